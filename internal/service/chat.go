package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"lms_backend/internal/domain"
	"lms_backend/internal/repository"
	apperr "lms_backend/pkg/errors"
	"lms_backend/pkg/logger"
)

// Notifier is the push-side contract the chat service fans events out
// through. The realtime hub implements it.
type Notifier interface {
	NotifyNewMessage(msg *domain.Message)
	NotifyMessagesSeen(conversationID string)
}

// ChatService orchestrates the conversation directory, the message store and
// the realtime hub. Persistence always completes before any notification is
// emitted, so a client that re-fetches on a push event sees consistent state.
type ChatService interface {
	AccessConversation(ctx context.Context, callerID, otherUserID uuid.UUID) (*domain.Conversation, bool, error)
	ListConversations(ctx context.Context, callerID uuid.UUID) ([]*domain.Conversation, error)
	Send(ctx context.Context, callerID, conversationID uuid.UUID, msgType, content string, media *string) (*domain.Message, error)
	ListMessages(ctx context.Context, conversationID uuid.UUID) ([]*domain.Message, error)
	MarkRead(ctx context.Context, conversationID uuid.UUID) (int64, error)
	DeleteMessage(ctx context.Context, caller *domain.User, messageID uuid.UUID) error
	UpdateMessage(ctx context.Context, caller *domain.User, messageID uuid.UUID, patch *domain.MessagePatch) (*domain.Message, error)
}

type chatService struct {
	convRepo repository.ConversationRepository
	msgRepo  repository.MessageRepository
	userRepo repository.UserRepository
	notifier Notifier
	log      logger.Logger
}

func NewChatService(
	convRepo repository.ConversationRepository,
	msgRepo repository.MessageRepository,
	userRepo repository.UserRepository,
	notifier Notifier,
	log logger.Logger,
) ChatService {
	return &chatService{
		convRepo: convRepo,
		msgRepo:  msgRepo,
		userRepo: userRepo,
		notifier: notifier,
		log:      log,
	}
}

func (s *chatService) AccessConversation(ctx context.Context, callerID, otherUserID uuid.UUID) (*domain.Conversation, bool, error) {
	if otherUserID == uuid.Nil {
		return nil, false, fmt.Errorf("other user id is required: %w", apperr.ErrBadRequest)
	}
	if otherUserID == callerID {
		return nil, false, fmt.Errorf("cannot open a conversation with yourself: %w", apperr.ErrBadRequest)
	}

	if _, err := s.userRepo.GetByID(ctx, otherUserID); err != nil {
		return nil, false, err
	}

	return s.convRepo.FindOrCreateDirect(ctx, callerID, otherUserID)
}

func (s *chatService) ListConversations(ctx context.Context, callerID uuid.UUID) ([]*domain.Conversation, error) {
	return s.convRepo.ListForParticipant(ctx, callerID)
}

func (s *chatService) Send(ctx context.Context, callerID, conversationID uuid.UUID, msgType, content string, media *string) (*domain.Message, error) {
	if conversationID == uuid.Nil {
		return nil, fmt.Errorf("conversation id is required: %w", apperr.ErrBadRequest)
	}
	if msgType == "" {
		msgType = domain.MessageTypeText
	}

	msg := &domain.Message{
		ID:             uuid.New(),
		ConversationID: conversationID,
		SenderID:       callerID,
		Type:           msgType,
		Content:        content,
		Media:          media,
	}
	if err := msg.ValidateContent(); err != nil {
		return nil, err
	}

	conv, err := s.convRepo.GetByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conv.HasParticipant(callerID) {
		return nil, fmt.Errorf("sender is not a participant: %w", apperr.ErrForbidden)
	}

	if err := s.msgRepo.Create(ctx, msg); err != nil {
		return nil, err
	}
	if err := s.convRepo.SetLatestMessage(ctx, conversationID, msg.ID); err != nil {
		return nil, err
	}

	msg.Sender = lo.FindOrElse(conv.Participants, nil, func(p *domain.User) bool {
		return p != nil && p.ID == callerID
	})
	msg.Conversation = conv

	// Persistence and the latest-message pointer are settled; only now do
	// other participants get notified.
	s.notifier.NotifyNewMessage(msg)

	return msg, nil
}

func (s *chatService) ListMessages(ctx context.Context, conversationID uuid.UUID) ([]*domain.Message, error) {
	return s.msgRepo.ListByConversation(ctx, conversationID)
}

// MarkRead flips all unread messages and broadcasts a read receipt when
// anything changed. Zero changes is still success.
func (s *chatService) MarkRead(ctx context.Context, conversationID uuid.UUID) (int64, error) {
	count, err := s.msgRepo.MarkAllRead(ctx, conversationID)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		s.notifier.NotifyMessagesSeen(conversationID.String())
	}
	return count, nil
}

// canModify is the single capability check for destructive message
// operations: the original sender, or the admin role.
func canModify(caller *domain.User, msg *domain.Message) bool {
	return caller != nil && (caller.ID == msg.SenderID || caller.Role == domain.RoleAdmin)
}

func (s *chatService) DeleteMessage(ctx context.Context, caller *domain.User, messageID uuid.UUID) error {
	msg, err := s.msgRepo.GetByID(ctx, messageID)
	if err != nil {
		return err
	}
	if !canModify(caller, msg) {
		return fmt.Errorf("not the sender: %w", apperr.ErrForbidden)
	}
	return s.msgRepo.Delete(ctx, messageID)
}

func (s *chatService) UpdateMessage(ctx context.Context, caller *domain.User, messageID uuid.UUID, patch *domain.MessagePatch) (*domain.Message, error) {
	msg, err := s.msgRepo.GetByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if !canModify(caller, msg) {
		return nil, fmt.Errorf("not the sender: %w", apperr.ErrForbidden)
	}

	if patch.Content != nil {
		msg.Content = *patch.Content
	}
	if patch.Media != nil {
		msg.Media = patch.Media
	}
	if patch.Type != nil {
		msg.Type = *patch.Type
	}
	if err := msg.ValidateContent(); err != nil {
		return nil, err
	}

	if err := s.msgRepo.Update(ctx, msg); err != nil {
		return nil, err
	}
	return msg, nil
}
