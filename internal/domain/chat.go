package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"

	apperr "lms_backend/pkg/errors"
)

// Conversation is a chat thread between two or more users. Direct conversations
// hold exactly two participants and are unique per unordered pair; the group
// fields (Name, AdminID) exist for N-participant threads but no group
// management operations are exposed.
type Conversation struct {
	ID            uuid.UUID  `json:"id"`
	Name          string     `json:"name,omitempty"`
	IsGroup       bool       `json:"is_group"`
	AdminID       *uuid.UUID `json:"admin_id,omitempty"`
	Participants  []*User    `json:"participants"`
	LatestMessage *Message   `json:"latest_message,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// HasParticipant reports whether the user belongs to the conversation.
func (c *Conversation) HasParticipant(userID uuid.UUID) bool {
	for _, p := range c.Participants {
		if p != nil && p.ID == userID {
			return true
		}
	}
	return false
}

const (
	MessageTypeText  = "text"
	MessageTypeImage = "image"
	MessageTypeVideo = "video"
	MessageTypeAudio = "audio"
)

func ValidMessageType(t string) bool {
	switch t {
	case MessageTypeText, MessageTypeImage, MessageTypeVideo, MessageTypeAudio:
		return true
	}
	return false
}

// Message carries exactly one content variant: text messages use Content,
// media messages carry a resolved URL in Media.
type Message struct {
	ID             uuid.UUID     `json:"id"`
	ConversationID uuid.UUID     `json:"conversation_id"`
	SenderID       uuid.UUID     `json:"sender_id"`
	Sender         *User         `json:"sender,omitempty"`
	Type           string        `json:"type"`
	Content        string        `json:"content,omitempty"`
	Media          *string       `json:"media,omitempty"`
	IsRead         bool          `json:"is_read"`
	Conversation   *Conversation `json:"conversation,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// ValidateContent enforces the content-variant rules: a known type, text
// messages with a body, media messages with a URL.
func (m *Message) ValidateContent() error {
	if !ValidMessageType(m.Type) {
		return apperr.ErrBadRequest
	}
	if m.Type == MessageTypeText {
		if strings.TrimSpace(m.Content) == "" {
			return apperr.ErrEmptyContent
		}
		return nil
	}
	if m.Media == nil || *m.Media == "" {
		return apperr.ErrEmptyContent
	}
	return nil
}

// MessagePatch carries partial updates for a message; nil fields are left
// unchanged.
type MessagePatch struct {
	Content *string `json:"content,omitempty"`
	Media   *string `json:"media,omitempty"`
	Type    *string `json:"type,omitempty"`
}

func (p *MessagePatch) Empty() bool {
	return p == nil || (p.Content == nil && p.Media == nil && p.Type == nil)
}
