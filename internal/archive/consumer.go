package archive

import (
	"context"
	"fmt"

	"github.com/weiawesome/wes-io-dm/pkg/log"
	"github.com/weiawesome/wes-io-dm/pkg/pubsub"
)

// Consumer copies message events from the bus into the archive.
type Consumer struct {
	subscriber pubsub.Subscriber
	store      Store
}

func NewConsumer(subscriber pubsub.Subscriber, store Store) *Consumer {
	return &Consumer{
		subscriber: subscriber,
		store:      store,
	}
}

// Run consumes every conversation channel until ctx is cancelled or the
// subscription ends.
func (c *Consumer) Run(ctx context.Context) error {
	events, err := c.subscriber.SubscribePattern(ctx, pubsub.PatternConversationMessages)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", pubsub.PatternConversationMessages, err)
	}

	l := log.Ctx(ctx)
	l.Info().Str("pattern", pubsub.PatternConversationMessages).Msg("archive consumer started")

	for {
		select {
		case <-ctx.Done():
			l.Info().Msg("archive consumer stopping")
			return nil
		case event, ok := <-events:
			if !ok {
				return fmt.Errorf("subscription to %s closed", pubsub.PatternConversationMessages)
			}
			if err := c.handleEvent(ctx, event); err != nil {
				l.Error().Err(err).Str("type", event.Type).Str(log.FieldConversationID, event.Key).Msg("failed to archive event")
			}
		}
	}
}

func (c *Consumer) handleEvent(ctx context.Context, event *pubsub.Event) error {
	var msg pubsub.MessagePayload
	if err := event.UnmarshalPayload(&msg); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}
	if msg.MessageID == "" || msg.ConversationKey == "" {
		return fmt.Errorf("payload without message id or conversation key")
	}

	l := log.Ctx(ctx)
	switch event.Type {
	case pubsub.EventMessageCreated:
		if err := c.store.SaveMessage(ctx, &msg); err != nil {
			return err
		}
		l.Debug().Str(log.FieldMessageID, msg.MessageID).Str(log.FieldConversationID, msg.ConversationKey).Msg("archived message")

	case pubsub.EventMessageDeleted:
		if err := c.store.MarkDeleted(ctx, &msg); err != nil {
			return err
		}
		l.Debug().Str(log.FieldMessageID, msg.MessageID).Str(log.FieldConversationID, msg.ConversationKey).Msg("archived deletion")

	default:
		l.Debug().Str("type", event.Type).Msg("ignoring event")
	}
	return nil
}
