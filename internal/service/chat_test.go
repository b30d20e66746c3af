package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"lms_backend/internal/domain"
	apperr "lms_backend/pkg/errors"
	"lms_backend/pkg/logger"
)

type mockConversationRepo struct {
	mock.Mock
}

func (m *mockConversationRepo) FindOrCreateDirect(ctx context.Context, userA, userB uuid.UUID) (*domain.Conversation, bool, error) {
	args := m.Called(ctx, userA, userB)
	conv, _ := args.Get(0).(*domain.Conversation)
	return conv, args.Bool(1), args.Error(2)
}

func (m *mockConversationRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Conversation, error) {
	args := m.Called(ctx, id)
	conv, _ := args.Get(0).(*domain.Conversation)
	return conv, args.Error(1)
}

func (m *mockConversationRepo) ListForParticipant(ctx context.Context, userID uuid.UUID) ([]*domain.Conversation, error) {
	args := m.Called(ctx, userID)
	convs, _ := args.Get(0).([]*domain.Conversation)
	return convs, args.Error(1)
}

func (m *mockConversationRepo) SetLatestMessage(ctx context.Context, conversationID, messageID uuid.UUID) error {
	args := m.Called(ctx, conversationID, messageID)
	return args.Error(0)
}

type mockMessageRepo struct {
	mock.Mock
}

func (m *mockMessageRepo) Create(ctx context.Context, message *domain.Message) error {
	args := m.Called(ctx, message)
	return args.Error(0)
}

func (m *mockMessageRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Message, error) {
	args := m.Called(ctx, id)
	msg, _ := args.Get(0).(*domain.Message)
	return msg, args.Error(1)
}

func (m *mockMessageRepo) ListByConversation(ctx context.Context, conversationID uuid.UUID) ([]*domain.Message, error) {
	args := m.Called(ctx, conversationID)
	msgs, _ := args.Get(0).([]*domain.Message)
	return msgs, args.Error(1)
}

func (m *mockMessageRepo) MarkAllRead(ctx context.Context, conversationID uuid.UUID) (int64, error) {
	args := m.Called(ctx, conversationID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockMessageRepo) Update(ctx context.Context, message *domain.Message) error {
	args := m.Called(ctx, message)
	return args.Error(0)
}

func (m *mockMessageRepo) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type mockUserRepo struct {
	mock.Mock
}

func (m *mockUserRepo) Create(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *mockUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	args := m.Called(ctx, id)
	user, _ := args.Get(0).(*domain.User)
	return user, args.Error(1)
}

func (m *mockUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	user, _ := args.Get(0).(*domain.User)
	return user, args.Error(1)
}

func (m *mockUserRepo) List(ctx context.Context, role string) ([]*domain.User, error) {
	args := m.Called(ctx, role)
	users, _ := args.Get(0).([]*domain.User)
	return users, args.Error(1)
}

func (m *mockUserRepo) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	args := m.Called(ctx, id, passwordHash)
	return args.Error(0)
}

func (m *mockUserRepo) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// recordingNotifier captures notifications so tests can assert ordering
// relative to persistence.
type recordingNotifier struct {
	newMessages []*domain.Message
	seen        []string
}

func (n *recordingNotifier) NotifyNewMessage(msg *domain.Message)     { n.newMessages = append(n.newMessages, msg) }
func (n *recordingNotifier) NotifyMessagesSeen(conversationID string) { n.seen = append(n.seen, conversationID) }

func newChatFixture() (*mockConversationRepo, *mockMessageRepo, *mockUserRepo, *recordingNotifier, ChatService) {
	convRepo := new(mockConversationRepo)
	msgRepo := new(mockMessageRepo)
	userRepo := new(mockUserRepo)
	notifier := &recordingNotifier{}
	svc := NewChatService(convRepo, msgRepo, userRepo, notifier, logger.NewNop())
	return convRepo, msgRepo, userRepo, notifier, svc
}

func TestAccessConversationCreatesOnFirstContact(t *testing.T) {
	convRepo, _, userRepo, _, svc := newChatFixture()

	caller := uuid.New()
	other := uuid.New()
	conv := &domain.Conversation{ID: uuid.New()}

	userRepo.On("GetByID", mock.Anything, other).Return(&domain.User{ID: other}, nil)
	convRepo.On("FindOrCreateDirect", mock.Anything, caller, other).Return(conv, true, nil)

	got, created, err := svc.AccessConversation(context.Background(), caller, other)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, conv, got)
}

func TestAccessConversationRejectsSelf(t *testing.T) {
	_, _, _, _, svc := newChatFixture()

	caller := uuid.New()
	_, _, err := svc.AccessConversation(context.Background(), caller, caller)
	assert.ErrorIs(t, err, apperr.ErrBadRequest)
}

func TestAccessConversationUnknownPeer(t *testing.T) {
	_, _, userRepo, _, svc := newChatFixture()

	other := uuid.New()
	userRepo.On("GetByID", mock.Anything, other).Return(nil, apperr.ErrNotFound)

	_, _, err := svc.AccessConversation(context.Background(), uuid.New(), other)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestSendPersistsBeforeNotifying(t *testing.T) {
	convRepo, msgRepo, _, notifier, svc := newChatFixture()

	sender := &domain.User{ID: uuid.New(), Name: "Alice"}
	peer := &domain.User{ID: uuid.New(), Name: "Bob"}
	conv := &domain.Conversation{
		ID:           uuid.New(),
		Participants: []*domain.User{sender, peer},
	}

	convRepo.On("GetByID", mock.Anything, conv.ID).Return(conv, nil)
	msgRepo.On("Create", mock.Anything, mock.Anything).Return(nil)
	convRepo.On("SetLatestMessage", mock.Anything, conv.ID, mock.Anything).Return(nil)

	msg, err := svc.Send(context.Background(), sender.ID, conv.ID, "", "hello", nil)
	require.NoError(t, err)

	assert.Equal(t, domain.MessageTypeText, msg.Type)
	assert.Equal(t, sender, msg.Sender)
	assert.Equal(t, conv, msg.Conversation)

	require.Len(t, notifier.newMessages, 1)
	assert.Equal(t, msg, notifier.newMessages[0])

	msgRepo.AssertCalled(t, "Create", mock.Anything, mock.Anything)
	convRepo.AssertCalled(t, "SetLatestMessage", mock.Anything, conv.ID, msg.ID)
}

func TestSendRejectsNonParticipant(t *testing.T) {
	convRepo, _, _, notifier, svc := newChatFixture()

	conv := &domain.Conversation{
		ID:           uuid.New(),
		Participants: []*domain.User{{ID: uuid.New()}, {ID: uuid.New()}},
	}
	convRepo.On("GetByID", mock.Anything, conv.ID).Return(conv, nil)

	_, err := svc.Send(context.Background(), uuid.New(), conv.ID, "", "hello", nil)
	assert.ErrorIs(t, err, apperr.ErrForbidden)
	assert.Empty(t, notifier.newMessages)
}

func TestSendRejectsEmptyText(t *testing.T) {
	_, _, _, notifier, svc := newChatFixture()

	_, err := svc.Send(context.Background(), uuid.New(), uuid.New(), domain.MessageTypeText, "   ", nil)
	assert.ErrorIs(t, err, apperr.ErrEmptyContent)
	assert.Empty(t, notifier.newMessages)
}

func TestMarkReadNotifiesOnlyWhenSomethingChanged(t *testing.T) {
	_, msgRepo, _, notifier, svc := newChatFixture()

	convID := uuid.New()
	msgRepo.On("MarkAllRead", mock.Anything, convID).Return(int64(3), nil).Once()

	count, err := svc.MarkRead(context.Background(), convID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
	assert.Equal(t, []string{convID.String()}, notifier.seen)

	// A second pass with nothing unread is success without a broadcast.
	msgRepo.On("MarkAllRead", mock.Anything, convID).Return(int64(0), nil).Once()

	count, err = svc.MarkRead(context.Background(), convID)
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Len(t, notifier.seen, 1)
}

func TestDeleteMessageRequiresSenderOrAdmin(t *testing.T) {
	_, msgRepo, _, _, svc := newChatFixture()

	sender := &domain.User{ID: uuid.New(), Role: domain.RoleStudent}
	stranger := &domain.User{ID: uuid.New(), Role: domain.RoleTeacher}
	admin := &domain.User{ID: uuid.New(), Role: domain.RoleAdmin}

	msg := &domain.Message{ID: uuid.New(), SenderID: sender.ID}
	msgRepo.On("GetByID", mock.Anything, msg.ID).Return(msg, nil)
	msgRepo.On("Delete", mock.Anything, msg.ID).Return(nil)

	err := svc.DeleteMessage(context.Background(), stranger, msg.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	assert.NoError(t, svc.DeleteMessage(context.Background(), sender, msg.ID))
	assert.NoError(t, svc.DeleteMessage(context.Background(), admin, msg.ID))
}

func TestUpdateMessageAppliesPatchAndRevalidates(t *testing.T) {
	_, msgRepo, _, _, svc := newChatFixture()

	sender := &domain.User{ID: uuid.New(), Role: domain.RoleStudent}
	msg := &domain.Message{
		ID:       uuid.New(),
		SenderID: sender.ID,
		Type:     domain.MessageTypeText,
		Content:  "before",
	}
	msgRepo.On("GetByID", mock.Anything, msg.ID).Return(msg, nil)
	msgRepo.On("Update", mock.Anything, mock.Anything).Return(nil)

	after := "after"
	updated, err := svc.UpdateMessage(context.Background(), sender, msg.ID, &domain.MessagePatch{Content: &after})
	require.NoError(t, err)
	assert.Equal(t, "after", updated.Content)

	// A patch that empties a text message is rejected.
	empty := ""
	_, err = svc.UpdateMessage(context.Background(), sender, msg.ID, &domain.MessagePatch{Content: &empty})
	assert.ErrorIs(t, err, apperr.ErrEmptyContent)
}
