package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/weiawesome/wes-io-dm/pkg/log"
)

// RedisPubSub implements PubSub interface using Redis.
// Redis pub/sub is fire-and-forget: subscribers that are offline miss events.
type RedisPubSub struct {
	client        *redis.Client
	subscriptions map[string]*redis.PubSub
	mu            sync.RWMutex
}

// NewRedisPubSub creates a new Redis-based PubSub instance.
func NewRedisPubSub(cfg RedisConfig) (*RedisPubSub, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisPubSub{
		client:        client,
		subscriptions: make(map[string]*redis.PubSub),
	}, nil
}

// Publish publishes an event to the specified channel.
func (r *RedisPubSub) Publish(ctx context.Context, channel string, event *Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	return r.client.Publish(ctx, channel, data).Err()
}

// Subscribe subscribes to a specific channel.
func (r *RedisPubSub) Subscribe(ctx context.Context, channel string) (<-chan *Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ps := r.client.Subscribe(ctx, channel)
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", channel, err)
	}
	r.subscriptions[channel] = ps

	eventCh := make(chan *Event, 100)
	go r.processMessages(ctx, ps, eventCh)

	return eventCh, nil
}

// SubscribePattern subscribes to channels matching a pattern.
func (r *RedisPubSub) SubscribePattern(ctx context.Context, pattern string) (<-chan *Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ps := r.client.PSubscribe(ctx, pattern)
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		return nil, fmt.Errorf("failed to psubscribe to %s: %w", pattern, err)
	}
	r.subscriptions[pattern] = ps

	eventCh := make(chan *Event, 100)
	go r.processMessages(ctx, ps, eventCh)

	return eventCh, nil
}

// Unsubscribe unsubscribes from a channel.
func (r *RedisPubSub) Unsubscribe(ctx context.Context, channel string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if ps, ok := r.subscriptions[channel]; ok {
		if err := ps.Close(); err != nil {
			return err
		}
		delete(r.subscriptions, channel)
	}

	return nil
}

// Close closes all subscriptions and the Redis client.
func (r *RedisPubSub) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, ps := range r.subscriptions {
		ps.Close()
	}
	r.subscriptions = make(map[string]*redis.PubSub)

	return r.client.Close()
}

// processMessages reads messages from the Redis pubsub and sends them to the event channel.
func (r *RedisPubSub) processMessages(ctx context.Context, ps *redis.PubSub, eventCh chan<- *Event) {
	defer close(eventCh)
	l := log.L()

	ch := ps.Channel()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}

			var event Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				l.Warn().Err(err).Str("channel", msg.Channel).Msg("redis pubsub: failed to unmarshal event")
				continue
			}

			select {
			case eventCh <- &event:
			case <-ctx.Done():
				return
			default:
				l.Warn().Str("channel", msg.Channel).Str("type", event.Type).Msg("redis pubsub: subscriber lagging, event dropped")
			}
		}
	}
}
