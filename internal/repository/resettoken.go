package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	apperr "lms_backend/pkg/errors"
	"lms_backend/pkg/logger"
)

// ResetTokenRepository keeps short-lived password-reset tokens in redis. A
// token maps to the owning user and disappears on expiry or first use.
type ResetTokenRepository interface {
	Save(ctx context.Context, token string, userID uuid.UUID, ttl time.Duration) error
	Consume(ctx context.Context, token string) (uuid.UUID, error)
}

type resetTokenRepository struct {
	redis *redis.Client
	log   logger.Logger
}

func NewResetTokenRepository(redis *redis.Client, log logger.Logger) ResetTokenRepository {
	return &resetTokenRepository{redis: redis, log: log}
}

func resetKey(token string) string {
	return "reset_token:" + token
}

func (r *resetTokenRepository) Save(ctx context.Context, token string, userID uuid.UUID, ttl time.Duration) error {
	if err := r.redis.Set(ctx, resetKey(token), userID.String(), ttl).Err(); err != nil {
		r.log.Error("failed to save reset token", "error", err)
		return fmt.Errorf("%w: %v", apperr.ErrStoreFailure, err)
	}
	return nil
}

// Consume deletes the token as it is read so it can be used exactly once.
func (r *resetTokenRepository) Consume(ctx context.Context, token string) (uuid.UUID, error) {
	val, err := r.redis.GetDel(ctx, resetKey(token)).Result()
	if errors.Is(err, redis.Nil) {
		return uuid.Nil, apperr.ErrInvalidToken
	}
	if err != nil {
		r.log.Error("failed to consume reset token", "error", err)
		return uuid.Nil, fmt.Errorf("%w: %v", apperr.ErrStoreFailure, err)
	}

	userID, err := uuid.Parse(val)
	if err != nil {
		return uuid.Nil, apperr.ErrInvalidToken
	}
	return userID, nil
}
