package hub

import (
	"context"
	"encoding/json"

	"lms_backend/internal/domain"
	"lms_backend/pkg/logger"
)

// Publisher fans frames out across instances. When nil, frames loop back to
// the local delivery queue directly.
type Publisher interface {
	Publish(ctx context.Context, payload []byte) error
}

type commandKind int

const (
	cmdRegister commandKind = iota
	cmdUnregister
	cmdIdentify
	cmdJoin
	cmdLeave
)

type command struct {
	kind   commandKind
	client Client
	room   string
}

// Hub owns all room membership state. Rooms are keyed by user identity (for
// direct delivery) or conversation identity (for broadcast); membership maps
// are touched only by the Run goroutine, which also delivers every frame in
// arrival order; that single loop is what preserves per-room ordering. The
// commands channel is unbuffered, so a membership call returns only after the
// loop has taken the command, and the command is applied before any frame
// queued afterwards is delivered.
type Hub struct {
	rooms       map[string]map[Client]struct{}
	memberships map[Client]map[string]struct{}
	// dropped marks connections whose send channel the hub already closed.
	// Their read side may still be alive and issuing commands; those commands
	// are ignored until the transport unregisters, so a closed channel can
	// never re-enter a room.
	dropped map[Client]struct{}

	commands  chan command
	deliver   chan frame
	publisher Publisher
	log       logger.Logger
}

func New(log logger.Logger) *Hub {
	return &Hub{
		rooms:       make(map[string]map[Client]struct{}),
		memberships: make(map[Client]map[string]struct{}),
		dropped:     make(map[Client]struct{}),
		commands:    make(chan command),
		deliver:     make(chan frame, 64),
		log:         log,
	}
}

// SetPublisher installs the cross-instance bridge. Must be called before Run.
func (h *Hub) SetPublisher(p Publisher) {
	h.publisher = p
}

// Run processes membership commands and deliveries until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case cmd := <-h.commands:
			h.handleCommand(cmd)
		case f := <-h.deliver:
			h.deliverFrame(f)
		case <-ctx.Done():
			return
		}
	}
}

func (h *Hub) Register(c Client) {
	h.commands <- command{kind: cmdRegister, client: c}
}

func (h *Hub) Unregister(c Client) {
	h.commands <- command{kind: cmdUnregister, client: c}
}

// Identify binds a connection to a user identity and auto-joins it to the
// room named for that identity. A missing identity is rejected and logged;
// the connection stays unidentified.
func (h *Hub) Identify(c Client, userID string) {
	if userID == "" {
		h.log.Warn("identify rejected: empty user identity", "conn", c.ConnID())
		return
	}
	h.commands <- command{kind: cmdIdentify, client: c, room: userID}
}

func (h *Hub) Join(c Client, room string) {
	if room == "" {
		return
	}
	h.commands <- command{kind: cmdJoin, client: c, room: room}
}

func (h *Hub) Leave(c Client, room string) {
	if room == "" {
		return
	}
	h.commands <- command{kind: cmdLeave, client: c, room: room}
}

// BroadcastTyping notifies all other members of the room; the originating
// connection never sees its own indicator.
func (h *Hub) BroadcastTyping(room string, typing bool, excludeConn string) {
	name := EventTyping
	if !typing {
		name = EventStopTyping
	}
	h.dispatch(frame{
		Room:        room,
		ExcludeConn: excludeConn,
		Event:       Event{Name: name, Room: room},
	})
}

// NotifyNewMessage delivers a stored message to every participant's identity
// room except the sender, then echoes it to the sender's own identity room
// for multi-device sync. A message without a populated conversation is a
// caller error and is dropped with a log line.
func (h *Hub) NotifyNewMessage(msg *domain.Message) {
	if msg == nil || msg.Conversation == nil || len(msg.Conversation.Participants) == 0 {
		h.log.Error("new message notification without conversation participants")
		return
	}

	ev := Event{Name: EventNewMessage, Message: msg}
	for _, p := range msg.Conversation.Participants {
		if p == nil || p.ID == msg.SenderID {
			continue
		}
		h.dispatch(frame{Room: p.ID.String(), Event: ev})
	}
	h.dispatch(frame{Room: msg.SenderID.String(), Event: ev})
}

// NotifyMessagesSeen broadcasts a read receipt to every member of the
// conversation's room.
func (h *Hub) NotifyMessagesSeen(conversationID string) {
	h.dispatch(frame{
		Room:  conversationID,
		Event: Event{Name: EventMessageSeen, ConversationID: conversationID},
	})
}

// HandleClientEvent routes an inbound push-channel event. Client events only
// touch room membership and trigger broadcasts; they never reach the durable
// store. The messageSeen event in particular reflects a prior REST mutation.
func (h *Hub) HandleClientEvent(c Client, ev Event) {
	switch ev.Name {
	case EventIdentify:
		h.Identify(c, ev.UserID)
	case EventJoinRoom:
		h.Join(c, ev.Room)
	case EventLeaveRoom:
		h.Leave(c, ev.Room)
	case EventTyping:
		h.BroadcastTyping(ev.Room, true, c.ConnID())
	case EventStopTyping:
		h.BroadcastTyping(ev.Room, false, c.ConnID())
	case EventNewMessage:
		h.NotifyNewMessage(ev.Message)
	case EventMessageSeen:
		h.NotifyMessagesSeen(ev.ConversationID)
	default:
		h.log.Warn("unknown push event", "event", ev.Name, "conn", c.ConnID())
	}
}

// dispatch routes a frame through the publisher when one is installed, so
// every instance (including this one) receives it via its subscription;
// otherwise it loops back to the local delivery queue.
func (h *Hub) dispatch(f frame) {
	if h.publisher == nil {
		h.deliver <- f
		return
	}

	payload, err := json.Marshal(f)
	if err != nil {
		h.log.Error("failed to encode frame", "error", err)
		return
	}
	if err := h.publisher.Publish(context.Background(), payload); err != nil {
		h.log.Error("failed to publish frame, delivering locally", "error", err)
		h.deliver <- f
	}
}

// inject queues a frame received from the cross-instance bridge.
func (h *Hub) inject(f frame) {
	h.deliver <- f
}

func (h *Hub) handleCommand(cmd command) {
	if _, gone := h.dropped[cmd.client]; gone {
		if cmd.kind == cmdUnregister {
			delete(h.dropped, cmd.client)
		}
		return
	}

	switch cmd.kind {
	case cmdRegister:
		if _, ok := h.memberships[cmd.client]; !ok {
			h.memberships[cmd.client] = make(map[string]struct{})
		}

	case cmdUnregister:
		h.dropClient(cmd.client)

	case cmdIdentify:
		cmd.client.SetUserID(cmd.room)
		h.joinRoom(cmd.client, cmd.room)
		// Ack directly to the identified connection only.
		select {
		case cmd.client.SendChannel() <- Event{Name: EventConnected, UserID: cmd.room}:
		default:
		}

	case cmdJoin:
		h.joinRoom(cmd.client, cmd.room)

	case cmdLeave:
		h.leaveRoom(cmd.client, cmd.room)
	}
}

func (h *Hub) joinRoom(c Client, room string) {
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[Client]struct{})
	}
	h.rooms[room][c] = struct{}{}

	if h.memberships[c] == nil {
		h.memberships[c] = make(map[string]struct{})
	}
	h.memberships[c][room] = struct{}{}
}

func (h *Hub) leaveRoom(c Client, room string) {
	if members, ok := h.rooms[room]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	if rooms, ok := h.memberships[c]; ok {
		delete(rooms, room)
	}
}

// dropClient releases every membership held by the connection. Nothing is
// persisted: a reconnecting client must re-identify and rejoin.
func (h *Hub) dropClient(c Client) {
	rooms, ok := h.memberships[c]
	if !ok {
		return
	}
	for room := range rooms {
		if members, exists := h.rooms[room]; exists {
			delete(members, c)
			if len(members) == 0 {
				delete(h.rooms, room)
			}
		}
	}
	delete(h.memberships, c)
	c.Close()
}

// deliverFrame is best-effort: an empty room is a silent no-op, and a client
// whose send buffer is full is dropped rather than allowed to stall the loop.
func (h *Hub) deliverFrame(f frame) {
	members := h.rooms[f.Room]
	for c := range members {
		if f.ExcludeConn != "" && c.ConnID() == f.ExcludeConn {
			continue
		}
		select {
		case c.SendChannel() <- f.Event:
		default:
			h.log.Warn("dropping slow push client", "conn", c.ConnID(), "room", f.Room)
			h.dropClient(c)
			// The connection's read side is still running. Remember the drop
			// so its later commands cannot resurrect the closed channel.
			h.dropped[c] = struct{}{}
		}
	}
}
