package repository

import (
	"EnclosureAPI/internal/adapter"
	"database/sql"
)

type Repository struct {
	PendingMessage *PendingMessageRepository
	RateLimit      *RateLimitRepository
}

// NewRepository leaves RateLimit nil when Redis is not available.
func NewRepository(db *sql.DB, redisAdapter *adapter.RedisAdapter) *Repository {
	repo := &Repository{
		PendingMessage: NewPendingMessageRepository(db),
	}
	if redisAdapter != nil {
		repo.RateLimit = NewRateLimitRepository(redisAdapter)
	}
	return repo
}
