package repository

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"lms_backend/pkg/logger"
)

// RateLimitRepository keeps fixed-window request counters in redis.
type RateLimitRepository interface {
	CheckLimit(ctx context.Context, key string, limit int) (bool, error)
	Increment(ctx context.Context, key string, window time.Duration) (int64, error)
}

type rateLimitRepository struct {
	redis *redis.Client
	log   logger.Logger
}

func NewRateLimitRepository(redis *redis.Client, log logger.Logger) RateLimitRepository {
	return &rateLimitRepository{redis: redis, log: log}
}

func (r *rateLimitRepository) CheckLimit(ctx context.Context, key string, limit int) (bool, error) {
	count, err := r.redis.Get(ctx, key).Int()
	if errors.Is(err, redis.Nil) {
		return true, nil
	}
	if err != nil {
		r.log.Error("failed to check rate limit", "error", err)
		return false, err
	}
	return count < limit, nil
}

func (r *rateLimitRepository) Increment(ctx context.Context, key string, window time.Duration) (int64, error) {
	count, err := r.redis.Incr(ctx, key).Result()
	if err != nil {
		r.log.Error("failed to increment rate limit", "error", err)
		return 0, err
	}
	if count == 1 {
		r.redis.Expire(ctx, key, window)
	}
	return count, nil
}
