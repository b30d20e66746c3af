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

// ConversationRepository is the durable directory of chat threads. Every
// conversation returned by its methods has participants and the latest
// message resolved for display.
type ConversationRepository interface {
	// FindOrCreateDirect returns the unique direct conversation for the
	// unordered pair, creating it when absent. The second result reports
	// whether this call created it.
	FindOrCreateDirect(ctx context.Context, userA, userB uuid.UUID) (*domain.Conversation, bool, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Conversation, error)
	ListForParticipant(ctx context.Context, userID uuid.UUID) ([]*domain.Conversation, error)
	SetLatestMessage(ctx context.Context, conversationID, messageID uuid.UUID) error
}

type conversationRepository struct {
	db  *pgxpool.Pool
	log logger.Logger
}

func NewConversationRepository(db *pgxpool.Pool, log logger.Logger) ConversationRepository {
	return &conversationRepository{db: db, log: log}
}

// directKey normalizes an unordered user pair into a stable key. The partial
// unique index on conversations(direct_key) serializes concurrent creation:
// two racing callers insert the same key and exactly one row survives.
func directKey(a, b uuid.UUID) string {
	as, bs := a.String(), b.String()
	if as > bs {
		as, bs = bs, as
	}
	return as + ":" + bs
}

// FindOrCreateDirect returns the single direct conversation between the pair,
// creating it on first contact. Uniqueness under concurrent calls is enforced
// by the database, not application logic: the insert targets the partial
// unique index on direct_key with ON CONFLICT DO NOTHING, and the winner's
// row is re-read by key afterwards.
func (r *conversationRepository) FindOrCreateDirect(ctx context.Context, userA, userB uuid.UUID) (*domain.Conversation, bool, error) {
	key := directKey(userA, userB)

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", apperr.ErrStoreFailure, err)
	}
	defer tx.Rollback(ctx)

	id := uuid.New()
	now := time.Now()
	insert := `
		INSERT INTO conversations (id, name, is_group, direct_key, created_at, updated_at)
		VALUES ($1, '', FALSE, $2, $3, $3)
		ON CONFLICT (direct_key) WHERE NOT is_group DO NOTHING
	`
	tag, err := tx.Exec(ctx, insert, id, key, now)
	if err != nil {
		r.log.Error("failed to insert conversation", "error", err)
		return nil, false, fmt.Errorf("%w: %v", apperr.ErrStoreFailure, err)
	}

	created := tag.RowsAffected() > 0
	if created {
		participants := `
			INSERT INTO conversation_participants (conversation_id, user_id)
			VALUES ($1, $2), ($1, $3)
		`
		if _, err := tx.Exec(ctx, participants, id, userA, userB); err != nil {
			r.log.Error("failed to insert participants", "error", err)
			return nil, false, fmt.Errorf("%w: %v", apperr.ErrStoreFailure, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, false, fmt.Errorf("%w: %v", apperr.ErrStoreFailure, err)
	}

	// Re-select by key: either our row or the one a concurrent caller won with.
	var existingID uuid.UUID
	err = r.db.QueryRow(ctx,
		`SELECT id FROM conversations WHERE direct_key = $1 AND NOT is_group`, key,
	).Scan(&existingID)
	if err != nil {
		r.log.Error("failed to resolve direct conversation", "error", err)
		return nil, false, fmt.Errorf("%w: %v", apperr.ErrStoreFailure, err)
	}

	conv, err := r.GetByID(ctx, existingID)
	if err != nil {
		return nil, false, err
	}
	return conv, created, nil
}

const conversationColumns = `c.id, c.name, c.is_group, c.admin_id, c.latest_message_id, c.created_at, c.updated_at`

func (r *conversationRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Conversation, error) {
	query := `SELECT ` + conversationColumns + ` FROM conversations c WHERE c.id = $1`

	conv, latestID, err := scanConversation(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("conversation %s: %w", id, apperr.ErrNotFound)
		}
		r.log.Error("failed to get conversation", "error", err)
		return nil, fmt.Errorf("%w: %v", apperr.ErrStoreFailure, err)
	}

	if err := r.resolve(ctx, []*domain.Conversation{conv}, map[uuid.UUID]*uuid.UUID{conv.ID: latestID}); err != nil {
		return nil, err
	}
	return conv, nil
}

func (r *conversationRepository) ListForParticipant(ctx context.Context, userID uuid.UUID) ([]*domain.Conversation, error) {
	query := `
		SELECT ` + conversationColumns + `
		FROM conversations c
		JOIN conversation_participants cp ON cp.conversation_id = c.id
		WHERE cp.user_id = $1
		ORDER BY c.updated_at DESC
	`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		r.log.Error("failed to list conversations", "error", err)
		return nil, fmt.Errorf("%w: %v", apperr.ErrStoreFailure, err)
	}
	defer rows.Close()

	var convs []*domain.Conversation
	latest := make(map[uuid.UUID]*uuid.UUID)
	for rows.Next() {
		conv, latestID, err := scanConversation(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", apperr.ErrStoreFailure, err)
		}
		convs = append(convs, conv)
		latest[conv.ID] = latestID
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrStoreFailure, err)
	}

	if err := r.resolve(ctx, convs, latest); err != nil {
		return nil, err
	}
	return convs, nil
}

func (r *conversationRepository) SetLatestMessage(ctx context.Context, conversationID, messageID uuid.UUID) error {
	query := `UPDATE conversations SET latest_message_id = $2, updated_at = $3 WHERE id = $1`

	tag, err := r.db.Exec(ctx, query, conversationID, messageID, time.Now())
	if err != nil {
		r.log.Error("failed to set latest message", "error", err)
		return fmt.Errorf("%w: %v", apperr.ErrStoreFailure, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("conversation %s: %w", conversationID, apperr.ErrNotFound)
	}
	return nil
}

func scanConversation(row pgx.Row) (*domain.Conversation, *uuid.UUID, error) {
	conv := &domain.Conversation{}
	var latestID *uuid.UUID
	err := row.Scan(&conv.ID, &conv.Name, &conv.IsGroup, &conv.AdminID,
		&latestID, &conv.CreatedAt, &conv.UpdatedAt)
	if err != nil {
		return nil, nil, err
	}
	return conv, latestID, nil
}

// resolve fills participants and latest messages for the given conversations.
func (r *conversationRepository) resolve(ctx context.Context, convs []*domain.Conversation, latest map[uuid.UUID]*uuid.UUID) error {
	if len(convs) == 0 {
		return nil
	}

	ids := make([]uuid.UUID, 0, len(convs))
	byID := make(map[uuid.UUID]*domain.Conversation, len(convs))
	for _, c := range convs {
		ids = append(ids, c.ID)
		byID[c.ID] = c
	}

	query := `
		SELECT cp.conversation_id, u.id, u.name, u.email, u.role, u.created_at, u.updated_at
		FROM conversation_participants cp
		JOIN users u ON u.id = cp.user_id
		WHERE cp.conversation_id = ANY($1)
	`
	rows, err := r.db.Query(ctx, query, ids)
	if err != nil {
		r.log.Error("failed to load participants", "error", err)
		return fmt.Errorf("%w: %v", apperr.ErrStoreFailure, err)
	}
	defer rows.Close()

	for rows.Next() {
		var convID uuid.UUID
		user := &domain.User{}
		err := rows.Scan(&convID, &user.ID, &user.Name, &user.Email, &user.Role,
			&user.CreatedAt, &user.UpdatedAt)
		if err != nil {
			return fmt.Errorf("%w: %v", apperr.ErrStoreFailure, err)
		}
		if conv, ok := byID[convID]; ok {
			conv.Participants = append(conv.Participants, user)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrStoreFailure, err)
	}

	var msgIDs []uuid.UUID
	for _, latestID := range latest {
		if latestID != nil {
			msgIDs = append(msgIDs, *latestID)
		}
	}
	if len(msgIDs) == 0 {
		return nil
	}

	msgQuery := `
		SELECT ` + messageColumns + `
		FROM messages m
		JOIN users u ON u.id = m.sender_id
		WHERE m.id = ANY($1)
	`
	msgRows, err := r.db.Query(ctx, msgQuery, msgIDs)
	if err != nil {
		r.log.Error("failed to load latest messages", "error", err)
		return fmt.Errorf("%w: %v", apperr.ErrStoreFailure, err)
	}
	defer msgRows.Close()

	for msgRows.Next() {
		msg, err := scanMessage(msgRows)
		if err != nil {
			return fmt.Errorf("%w: %v", apperr.ErrStoreFailure, err)
		}
		if conv, ok := byID[msg.ConversationID]; ok {
			conv.LatestMessage = msg
		}
	}
	return msgRows.Err()
}
