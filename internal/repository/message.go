package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"lms_backend/internal/domain"
	apperr "lms_backend/pkg/errors"
	"lms_backend/pkg/logger"
)

// MessageRepository is the durable append-only message store. Listing
// resolves sender display attributes; isRead transitions happen in bulk via
// MarkAllRead.
type MessageRepository interface {
	Create(ctx context.Context, message *domain.Message) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Message, error)
	ListByConversation(ctx context.Context, conversationID uuid.UUID) ([]*domain.Message, error)
	MarkAllRead(ctx context.Context, conversationID uuid.UUID) (int64, error)
	Update(ctx context.Context, message *domain.Message) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type messageRepository struct {
	db  *pgxpool.Pool
	log logger.Logger
}

func NewMessageRepository(db *pgxpool.Pool, log logger.Logger) MessageRepository {
	return &messageRepository{db: db, log: log}
}

const messageColumns = `m.id, m.conversation_id, m.sender_id, m.type, m.content, m.media,
	m.is_read, m.created_at, m.updated_at, u.id, u.name, u.email, u.role, u.created_at, u.updated_at`

func scanMessage(row pgx.Row) (*domain.Message, error) {
	msg := &domain.Message{Sender: &domain.User{}}
	err := row.Scan(&msg.ID, &msg.ConversationID, &msg.SenderID, &msg.Type,
		&msg.Content, &msg.Media, &msg.IsRead, &msg.CreatedAt, &msg.UpdatedAt,
		&msg.Sender.ID, &msg.Sender.Name, &msg.Sender.Email, &msg.Sender.Role,
		&msg.Sender.CreatedAt, &msg.Sender.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return msg, nil
}

func (r *messageRepository) Create(ctx context.Context, message *domain.Message) error {
	query := `
		INSERT INTO messages (id, conversation_id, sender_id, type, content, media, is_read, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, FALSE, $7, $7)
		RETURNING created_at, updated_at
	`

	err := r.db.QueryRow(ctx, query,
		message.ID, message.ConversationID, message.SenderID,
		message.Type, message.Content, message.Media, time.Now(),
	).Scan(&message.CreatedAt, &message.UpdatedAt)

	if err != nil {
		r.log.Error("failed to create message", "error", err)
		return fmt.Errorf("%w: %v", apperr.ErrStoreFailure, err)
	}
	message.IsRead = false
	return nil
}

func (r *messageRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Message, error) {
	query := `
		SELECT ` + messageColumns + `
		FROM messages m
		JOIN users u ON u.id = m.sender_id
		WHERE m.id = $1
	`

	msg, err := scanMessage(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("message %s: %w", id, apperr.ErrNotFound)
		}
		r.log.Error("failed to get message", "error", err)
		return nil, fmt.Errorf("%w: %v", apperr.ErrStoreFailure, err)
	}
	return msg, nil
}

func (r *messageRepository) ListByConversation(ctx context.Context, conversationID uuid.UUID) ([]*domain.Message, error) {
	query := `
		SELECT ` + messageColumns + `
		FROM messages m
		JOIN users u ON u.id = m.sender_id
		WHERE m.conversation_id = $1
		ORDER BY m.created_at
	`

	rows, err := r.db.Query(ctx, query, conversationID)
	if err != nil {
		r.log.Error("failed to list messages", "error", err)
		return nil, fmt.Errorf("%w: %v", apperr.ErrStoreFailure, err)
	}
	defer rows.Close()

	var messages []*domain.Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", apperr.ErrStoreFailure, err)
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// MarkAllRead flips every unread message in the conversation and reports how
// many changed. Repeat calls return 0.
func (r *messageRepository) MarkAllRead(ctx context.Context, conversationID uuid.UUID) (int64, error) {
	query := `
		UPDATE messages
		SET is_read = TRUE, updated_at = $2
		WHERE conversation_id = $1 AND is_read = FALSE
	`

	tag, err := r.db.Exec(ctx, query, conversationID, time.Now())
	if err != nil {
		r.log.Error("failed to mark messages read", "error", err)
		return 0, fmt.Errorf("%w: %v", apperr.ErrStoreFailure, err)
	}
	return tag.RowsAffected(), nil
}

func (r *messageRepository) Update(ctx context.Context, message *domain.Message) error {
	query := `
		UPDATE messages
		SET type = $2, content = $3, media = $4, updated_at = $5
		WHERE id = $1
		RETURNING updated_at
	`

	err := r.db.QueryRow(ctx, query,
		message.ID, message.Type, message.Content, message.Media, time.Now(),
	).Scan(&message.UpdatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("message %s: %w", message.ID, apperr.ErrNotFound)
		}
		r.log.Error("failed to update message", "error", err)
		return fmt.Errorf("%w: %v", apperr.ErrStoreFailure, err)
	}
	return nil
}

func (r *messageRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM messages WHERE id = $1`, id)
	if err != nil {
		r.log.Error("failed to delete message", "error", err)
		return fmt.Errorf("%w: %v", apperr.ErrStoreFailure, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("message %s: %w", id, apperr.ErrNotFound)
	}
	return nil
}
