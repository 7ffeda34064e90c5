package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/weiawesome/wes-io-dm/internal/domain"
)

const defaultCleanupInterval = 5 * time.Minute

// MemoryPageCache keeps pages in process memory. Entries are copied on the
// way in and out so callers never share a cached slice.
type MemoryPageCache struct {
	store  *gocache.Cache
	prefix string
}

func NewMemoryPageCache(prefix string) *MemoryPageCache {
	return &MemoryPageCache{
		store:  gocache.New(gocache.NoExpiration, defaultCleanupInterval),
		prefix: prefix,
	}
}

func (c *MemoryPageCache) BuildKey(conversationKey, cursor string, limit int) string {
	return buildPageKey(c.prefix, conversationKey, cursor, limit)
}

func (c *MemoryPageCache) Get(_ context.Context, key string) (*domain.Page, error) {
	v, ok := c.store.Get(key)
	if !ok {
		return nil, ErrCacheMiss
	}
	return copyPage(v.(*domain.Page)), nil
}

func (c *MemoryPageCache) Set(_ context.Context, _ string, key string, page *domain.Page, ttl time.Duration) error {
	c.store.Set(key, copyPage(page), ttl)
	return nil
}

func (c *MemoryPageCache) InvalidateConversation(_ context.Context, conversationKey string) error {
	prefix := conversationPrefix(c.prefix, conversationKey)
	for key := range c.store.Items() {
		if strings.HasPrefix(key, prefix) {
			c.store.Delete(key)
		}
	}
	return nil
}

func (c *MemoryPageCache) Close() error {
	c.store.Flush()
	return nil
}

// MemoryProfileCache keeps profiles in process memory.
type MemoryProfileCache struct {
	store  *gocache.Cache
	prefix string
}

func NewMemoryProfileCache(prefix string) *MemoryProfileCache {
	return &MemoryProfileCache{
		store:  gocache.New(gocache.NoExpiration, defaultCleanupInterval),
		prefix: prefix,
	}
}

func (c *MemoryProfileCache) key(userID string) string {
	return buildProfileKey(c.prefix, userID)
}

func (c *MemoryProfileCache) Get(_ context.Context, userID string) (*domain.Profile, error) {
	v, ok := c.store.Get(c.key(userID))
	if !ok {
		return nil, ErrCacheMiss
	}
	p := v.(domain.Profile)
	return &p, nil
}

func (c *MemoryProfileCache) Set(_ context.Context, profile *domain.Profile, ttl time.Duration) error {
	c.store.Set(c.key(profile.ID), *profile, ttl)
	return nil
}

func (c *MemoryProfileCache) Delete(_ context.Context, userIDs ...string) error {
	for _, id := range userIDs {
		c.store.Delete(c.key(id))
	}
	return nil
}

func (c *MemoryProfileCache) Close() error {
	c.store.Flush()
	return nil
}

func buildPageKey(prefix, conversationKey, cursor string, limit int) string {
	if cursor == "" {
		cursor = "latest"
	}
	return fmt.Sprintf("%s%s:%d", conversationPrefix(prefix, conversationKey), cursor, limit)
}

func conversationPrefix(prefix, conversationKey string) string {
	return fmt.Sprintf("%s:page:%s:", prefix, conversationKey)
}

func buildProfileKey(prefix, userID string) string {
	return fmt.Sprintf("%s:profile:%s", prefix, userID)
}

func copyPage(p *domain.Page) *domain.Page {
	out := *p
	out.Messages = make([]*domain.Message, len(p.Messages))
	for i, m := range p.Messages {
		mc := *m
		out.Messages[i] = &mc
	}
	if p.NextCursor != nil {
		cursor := *p.NextCursor
		out.NextCursor = &cursor
	}
	return &out
}
