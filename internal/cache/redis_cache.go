package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/weiawesome/wes-io-dm/internal/config"
	"github.com/weiawesome/wes-io-dm/internal/domain"
)

// NewRedisClient connects to Redis and verifies the connection.
func NewRedisClient(cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return client, nil
}

// RedisPageCache stores pages as JSON. Each conversation keeps a set of its
// page keys so they can be dropped together.
type RedisPageCache struct {
	client *redis.Client
	prefix string
}

func NewRedisPageCache(client *redis.Client, prefix string) *RedisPageCache {
	return &RedisPageCache{
		client: client,
		prefix: prefix,
	}
}

func (c *RedisPageCache) BuildKey(conversationKey, cursor string, limit int) string {
	return buildPageKey(c.prefix, conversationKey, cursor, limit)
}

func (c *RedisPageCache) indexKey(conversationKey string) string {
	return fmt.Sprintf("%s:pages:%s", c.prefix, conversationKey)
}

func (c *RedisPageCache) Get(ctx context.Context, key string) (*domain.Page, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to get from redis: %w", err)
	}

	var page domain.Page
	if err := json.Unmarshal(data, &page); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cache data: %w", err)
	}

	return &page, nil
}

func (c *RedisPageCache) Set(ctx context.Context, conversationKey, key string, page *domain.Page, ttl time.Duration) error {
	data, err := json.Marshal(page)
	if err != nil {
		return fmt.Errorf("failed to marshal cache data: %w", err)
	}

	index := c.indexKey(conversationKey)
	pipe := c.client.TxPipeline()
	pipe.Set(ctx, key, data, ttl)
	pipe.SAdd(ctx, index, key)
	if ttl > 0 {
		pipe.Expire(ctx, index, ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to set in redis: %w", err)
	}

	return nil
}

func (c *RedisPageCache) InvalidateConversation(ctx context.Context, conversationKey string) error {
	index := c.indexKey(conversationKey)
	keys, err := c.client.SMembers(ctx, index).Result()
	if err != nil {
		return fmt.Errorf("failed to read page index: %w", err)
	}

	keys = append(keys, index)
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete from redis: %w", err)
	}

	return nil
}

// Close is a no-op; the shared client is closed by its owner.
func (c *RedisPageCache) Close() error {
	return nil
}

// RedisProfileCache stores profiles as JSON.
type RedisProfileCache struct {
	client *redis.Client
	prefix string
}

func NewRedisProfileCache(client *redis.Client, prefix string) *RedisProfileCache {
	return &RedisProfileCache{
		client: client,
		prefix: prefix,
	}
}

func (c *RedisProfileCache) Get(ctx context.Context, userID string) (*domain.Profile, error) {
	data, err := c.client.Get(ctx, buildProfileKey(c.prefix, userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to get from redis: %w", err)
	}

	var profile domain.Profile
	if err := json.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cache data: %w", err)
	}

	return &profile, nil
}

func (c *RedisProfileCache) Set(ctx context.Context, profile *domain.Profile, ttl time.Duration) error {
	data, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("failed to marshal cache data: %w", err)
	}

	if err := c.client.Set(ctx, buildProfileKey(c.prefix, profile.ID), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set in redis: %w", err)
	}

	return nil
}

func (c *RedisProfileCache) Delete(ctx context.Context, userIDs ...string) error {
	if len(userIDs) == 0 {
		return nil
	}

	keys := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		keys = append(keys, buildProfileKey(c.prefix, id))
	}

	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete from redis: %w", err)
	}

	return nil
}

// Close is a no-op; the shared client is closed by its owner.
func (c *RedisProfileCache) Close() error {
	return nil
}
