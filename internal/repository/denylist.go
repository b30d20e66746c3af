package repository

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	apperr "lms_backend/pkg/errors"
	"lms_backend/pkg/logger"
)

// TokenDenylistRepository records access tokens revoked by logout. An entry
// lives only until the token's own expiry, after which the signature check
// rejects it anyway.
type TokenDenylistRepository interface {
	Deny(ctx context.Context, token string, ttl time.Duration) error
	IsDenied(ctx context.Context, token string) (bool, error)
}

type tokenDenylistRepository struct {
	redis *redis.Client
	log   logger.Logger
}

func NewTokenDenylistRepository(redis *redis.Client, log logger.Logger) TokenDenylistRepository {
	return &tokenDenylistRepository{redis: redis, log: log}
}

// denylistKey hashes the token so raw credentials never land in redis.
func denylistKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return "denied_token:" + hex.EncodeToString(sum[:])
}

func (r *tokenDenylistRepository) Deny(ctx context.Context, token string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := r.redis.Set(ctx, denylistKey(token), "1", ttl).Err(); err != nil {
		r.log.Error("failed to deny token", "error", err)
		return fmt.Errorf("%w: %v", apperr.ErrStoreFailure, err)
	}
	return nil
}

func (r *tokenDenylistRepository) IsDenied(ctx context.Context, token string) (bool, error) {
	n, err := r.redis.Exists(ctx, denylistKey(token)).Result()
	if err != nil {
		r.log.Error("failed to check token denylist", "error", err)
		return false, fmt.Errorf("%w: %v", apperr.ErrStoreFailure, err)
	}
	return n > 0, nil
}
