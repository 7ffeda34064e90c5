package cache

import (
	"context"
	"errors"
	"time"

	"github.com/weiawesome/wes-io-dm/internal/domain"
)

var ErrCacheMiss = errors.New("cache miss")

const (
	DriverMemory = "memory"
	DriverRedis  = "redis"
)

// PageCache stores conversation pages addressed by cursor.
type PageCache interface {
	Get(ctx context.Context, key string) (*domain.Page, error)
	Set(ctx context.Context, conversationKey, key string, page *domain.Page, ttl time.Duration) error
	// InvalidateConversation drops every cached page of the conversation.
	InvalidateConversation(ctx context.Context, conversationKey string) error
	BuildKey(conversationKey, cursor string, limit int) string
	Close() error
}

// ProfileCache stores public profiles by user id.
type ProfileCache interface {
	Get(ctx context.Context, userID string) (*domain.Profile, error)
	Set(ctx context.Context, profile *domain.Profile, ttl time.Duration) error
	Delete(ctx context.Context, userIDs ...string) error
	Close() error
}
