package hub

import "lms_backend/internal/domain"

// Push channel event names, shared by both directions of the socket protocol.
const (
	EventConnected   = "connected"
	EventIdentify    = "identify"
	EventJoinRoom    = "joinRoom"
	EventLeaveRoom   = "leaveRoom"
	EventTyping      = "typing"
	EventStopTyping  = "stopTyping"
	EventNewMessage  = "newMessage"
	EventMessageSeen = "messageSeen"
)

// Event is the wire envelope for push-channel traffic. A room identifier is
// either a user identity (direct delivery) or a conversation identity
// (broadcast to all participants).
type Event struct {
	Name           string          `json:"event"`
	Room           string          `json:"room,omitempty"`
	UserID         string          `json:"user_id,omitempty"`
	ConversationID string          `json:"conversation_id,omitempty"`
	Message        *domain.Message `json:"message,omitempty"`
}

// frame is a single delivery instruction processed by the hub loop: an event
// addressed to one room, optionally excluding the originating connection.
type frame struct {
	Room        string `json:"room"`
	ExcludeConn string `json:"exclude_conn,omitempty"`
	Event       Event  `json:"payload"`
}
