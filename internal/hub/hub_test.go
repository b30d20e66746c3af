package hub

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lms_backend/internal/domain"
	"lms_backend/pkg/logger"
)

type fakeClient struct {
	connID string
	userID string
	recv   chan Event
}

func newFakeClient(buffer int) *fakeClient {
	return &fakeClient{
		connID: uuid.New().String(),
		recv:   make(chan Event, buffer),
	}
}

func (c *fakeClient) ConnID() string            { return c.connID }
func (c *fakeClient) UserID() string            { return c.userID }
func (c *fakeClient) SetUserID(id string)       { c.userID = id }
func (c *fakeClient) SendChannel() chan<- Event { return c.recv }
func (c *fakeClient) Close()                    { close(c.recv) }

func startHub(t *testing.T) *Hub {
	t.Helper()
	h := New(logger.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go h.Run(ctx)
	return h
}

func waitEvent(t *testing.T, c *fakeClient) Event {
	t.Helper()
	select {
	case ev, ok := <-c.recv:
		require.True(t, ok, "client channel closed while waiting for event")
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func assertNoEvent(t *testing.T, c *fakeClient) {
	t.Helper()
	select {
	case ev, ok := <-c.recv:
		if ok {
			t.Fatalf("unexpected event %q", ev.Name)
		}
	case <-time.After(50 * time.Millisecond):
	}
}

// identify registers and identifies a client, consuming the connected ack so
// the test starts from settled membership state.
func identify(t *testing.T, h *Hub, c *fakeClient, userID string) {
	t.Helper()
	h.Register(c)
	h.Identify(c, userID)

	ev := waitEvent(t, c)
	require.Equal(t, EventConnected, ev.Name)
	require.Equal(t, userID, ev.UserID)
}

func TestIdentifyAutoJoinsIdentityRoom(t *testing.T) {
	h := startHub(t)

	userID := uuid.New().String()
	c := newFakeClient(8)
	identify(t, h, c, userID)

	assert.Equal(t, userID, c.UserID())

	// The identity room is live: a broadcast to it reaches the client.
	h.NotifyMessagesSeen(userID)
	ev := waitEvent(t, c)
	assert.Equal(t, EventMessageSeen, ev.Name)
	assert.Equal(t, userID, ev.ConversationID)
}

func TestIdentifyRejectsEmptyIdentity(t *testing.T) {
	h := startHub(t)

	c := newFakeClient(8)
	h.Register(c)
	h.Identify(c, "")

	assertNoEvent(t, c)
	assert.Empty(t, c.UserID())
}

func TestNewMessageFanoutExcludesSenderAndEchoes(t *testing.T) {
	h := startHub(t)

	sender := &domain.User{ID: uuid.New()}
	peer := &domain.User{ID: uuid.New()}
	outsider := uuid.New()

	senderConn := newFakeClient(8)
	peerConn := newFakeClient(8)
	outsiderConn := newFakeClient(8)
	identify(t, h, senderConn, sender.ID.String())
	identify(t, h, peerConn, peer.ID.String())
	identify(t, h, outsiderConn, outsider.String())

	msg := &domain.Message{
		ID:       uuid.New(),
		SenderID: sender.ID,
		Type:     domain.MessageTypeText,
		Content:  "hello",
		Conversation: &domain.Conversation{
			ID:           uuid.New(),
			Participants: []*domain.User{sender, peer},
		},
	}
	h.NotifyNewMessage(msg)

	peerEv := waitEvent(t, peerConn)
	assert.Equal(t, EventNewMessage, peerEv.Name)
	require.NotNil(t, peerEv.Message)
	assert.Equal(t, msg.ID, peerEv.Message.ID)

	// The sender gets exactly one copy, via the echo to its identity room.
	senderEv := waitEvent(t, senderConn)
	assert.Equal(t, EventNewMessage, senderEv.Name)
	assertNoEvent(t, senderConn)

	assertNoEvent(t, outsiderConn)
}

func TestNewMessageWithoutConversationIsDropped(t *testing.T) {
	h := startHub(t)

	c := newFakeClient(8)
	identify(t, h, c, uuid.New().String())

	h.NotifyNewMessage(nil)
	h.NotifyNewMessage(&domain.Message{ID: uuid.New(), SenderID: uuid.New()})

	assertNoEvent(t, c)
}

func TestTypingExcludesOriginatingConnection(t *testing.T) {
	h := startHub(t)

	room := uuid.New().String()
	a := newFakeClient(8)
	b := newFakeClient(8)
	identify(t, h, a, uuid.New().String())
	identify(t, h, b, uuid.New().String())
	h.Join(a, room)
	h.Join(b, room)

	// Join is synchronous with the hub loop: once it returns, the membership
	// is applied before any later frame is delivered.
	h.BroadcastTyping(room, true, a.ConnID())
	ev := waitEvent(t, b)
	assert.Equal(t, EventTyping, ev.Name)
	assert.Equal(t, room, ev.Room)
	assertNoEvent(t, a)

	h.BroadcastTyping(room, false, a.ConnID())
	ev = waitEvent(t, b)
	assert.Equal(t, EventStopTyping, ev.Name)
}

func TestJoinAndLeaveAreIdempotent(t *testing.T) {
	h := startHub(t)

	room := uuid.New().String()
	c := newFakeClient(8)
	identify(t, h, c, uuid.New().String())

	h.Join(c, room)
	h.Join(c, room)
	h.NotifyMessagesSeen(room)
	assert.Equal(t, EventMessageSeen, waitEvent(t, c).Name)
	assertNoEvent(t, c)

	h.Leave(c, room)
	h.Leave(c, room)
	h.NotifyMessagesSeen(room)
	assertNoEvent(t, c)
}

func TestUnregisterReleasesAllMemberships(t *testing.T) {
	h := startHub(t)

	userID := uuid.New().String()
	room := uuid.New().String()
	c := newFakeClient(8)
	identify(t, h, c, userID)
	h.Join(c, room)

	h.Unregister(c)

	h.NotifyMessagesSeen(userID)
	h.NotifyMessagesSeen(room)

	// The channel is closed by the hub on drop; no events were queued first.
	select {
	case ev, ok := <-c.recv:
		assert.False(t, ok, "expected closed channel, got event %q", ev.Name)
	case <-time.After(time.Second):
		t.Fatal("client channel was not closed on unregister")
	}
}

func TestSlowClientIsDropped(t *testing.T) {
	h := startHub(t)

	room := uuid.New().String()

	healthy := newFakeClient(8)
	identify(t, h, healthy, uuid.New().String())
	h.Join(healthy, room)

	slow := newFakeClient(1)
	identify(t, h, slow, uuid.New().String())
	h.Join(slow, room)

	// Fill the slow client's buffer, then force one more delivery.
	h.NotifyMessagesSeen(room)
	h.NotifyMessagesSeen(room)

	assert.Equal(t, EventMessageSeen, waitEvent(t, healthy).Name)
	assert.Equal(t, EventMessageSeen, waitEvent(t, healthy).Name)

	// The slow client got the buffered event and was then dropped: its
	// channel ends closed.
	ev, ok := <-slow.recv
	require.True(t, ok)
	assert.Equal(t, EventMessageSeen, ev.Name)
	_, ok = <-slow.recv
	assert.False(t, ok, "slow client channel should be closed")

	// The room keeps working for the remaining member.
	h.NotifyMessagesSeen(room)
	assert.Equal(t, EventMessageSeen, waitEvent(t, healthy).Name)
}

func TestDroppedClientCannotRejoin(t *testing.T) {
	h := startHub(t)

	room := uuid.New().String()

	healthy := newFakeClient(8)
	identify(t, h, healthy, uuid.New().String())
	h.Join(healthy, room)

	slow := newFakeClient(1)
	slowUser := uuid.New().String()
	identify(t, h, slow, slowUser)
	h.Join(slow, room)

	// Overflow the slow client's buffer so the hub drops it.
	h.NotifyMessagesSeen(room)
	h.NotifyMessagesSeen(room)
	assert.Equal(t, EventMessageSeen, waitEvent(t, healthy).Name)
	assert.Equal(t, EventMessageSeen, waitEvent(t, healthy).Name)
	<-slow.recv
	_, ok := <-slow.recv
	require.False(t, ok, "slow client channel should be closed")

	// The dropped connection's read side is still alive and keeps issuing
	// commands. None of them may put the closed channel back into a room.
	h.Join(slow, room)
	h.Identify(slow, slowUser)

	h.NotifyMessagesSeen(room)
	h.NotifyMessagesSeen(slowUser)
	assert.Equal(t, EventMessageSeen, waitEvent(t, healthy).Name)

	// The hub survived both deliveries and still processes commands.
	late := newFakeClient(8)
	identify(t, h, late, uuid.New().String())

	// Transport teardown for the dropped connection is a clean no-op.
	h.Unregister(slow)
	h.NotifyMessagesSeen(room)
	assert.Equal(t, EventMessageSeen, waitEvent(t, healthy).Name)
}

func TestHandleClientEventRoutesMembership(t *testing.T) {
	h := startHub(t)

	userID := uuid.New().String()
	room := uuid.New().String()

	c := newFakeClient(8)
	h.Register(c)
	h.HandleClientEvent(c, Event{Name: EventIdentify, UserID: userID})
	require.Equal(t, EventConnected, waitEvent(t, c).Name)

	h.HandleClientEvent(c, Event{Name: EventJoinRoom, Room: room})
	h.NotifyMessagesSeen(room)
	assert.Equal(t, EventMessageSeen, waitEvent(t, c).Name)

	h.HandleClientEvent(c, Event{Name: EventLeaveRoom, Room: room})
	h.NotifyMessagesSeen(room)
	assertNoEvent(t, c)
}
