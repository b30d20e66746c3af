package repository

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"lms_backend/pkg/logger"
)

type Repositories struct {
	User         UserRepository
	Conversation ConversationRepository
	Message      MessageRepository
	Course       CourseRepository
	Transaction  TransactionRepository
	ResetToken   ResetTokenRepository
	Denylist     TokenDenylistRepository
	RateLimit    RateLimitRepository
}

func NewRepositories(db *pgxpool.Pool, rdb *redis.Client, log logger.Logger) *Repositories {
	return &Repositories{
		User:         NewUserRepository(db, log),
		Conversation: NewConversationRepository(db, log),
		Message:      NewMessageRepository(db, log),
		Course:       NewCourseRepository(db, log),
		Transaction:  NewTransactionRepository(db, log),
		ResetToken:   NewResetTokenRepository(rdb, log),
		Denylist:     NewTokenDenylistRepository(rdb, log),
		RateLimit:    NewRateLimitRepository(rdb, log),
	}
}
