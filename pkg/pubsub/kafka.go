package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"

	"github.com/weiawesome/wes-io-dm/pkg/log"
)

// channelToTopicAndKey converts a Redis-style channel to a Kafka topic and message key.
//
//	"dm:conversation:5:alice|bob:messages" → topic: "dm-messages", key: "5:alice|bob"
func channelToTopicAndKey(channel string) (topic, key string, err error) {
	// Expected format: {prefix}:conversation:{key}:{stream}. The key may
	// itself contain ':'.
	first := strings.Index(channel, ":")
	last := strings.LastIndex(channel, ":")
	if first <= 0 || last <= first || last == len(channel)-1 {
		return "", "", fmt.Errorf("invalid channel format: %s", channel)
	}

	prefix := channel[:first]
	stream := channel[last+1:]
	scoped := channel[first+1 : last]

	const scope = "conversation:"
	if !strings.HasPrefix(scoped, scope) || len(scoped) == len(scope) {
		return "", "", fmt.Errorf("invalid channel format: %s", channel)
	}

	return prefix + "-" + strings.ReplaceAll(stream, "_", "-"), scoped[len(scope):], nil
}

// patternToTopic converts a Redis-style subscribe pattern to a Kafka topic.
//
//	"dm:conversation:*:messages" → "dm-messages"
func patternToTopic(pattern string) (string, error) {
	topic, _, err := channelToTopicAndKey(strings.ReplaceAll(pattern, "*", "_placeholder_"))
	return topic, err
}

// kafkaSubscription tracks a single consumer subscription.
type kafkaSubscription struct {
	consumer *kafka.Consumer
	cancel   context.CancelFunc
}

// KafkaPubSub implements PubSub interface using Apache Kafka.
type KafkaPubSub struct {
	producer      *kafka.Producer
	subscriptions map[string]*kafkaSubscription // key (channel or pattern) → subscription
	config        KafkaConfig
	mu            sync.Mutex
	doneCh        chan struct{}
}

// NewKafkaPubSub creates a new Kafka-based PubSub instance.
func NewKafkaPubSub(cfg KafkaConfig) (*KafkaPubSub, error) {
	p, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers": cfg.Brokers,
		"acks":              "all",
		"linger.ms":         5,
		"compression.type":  "snappy",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	kps := &KafkaPubSub{
		producer:      p,
		subscriptions: make(map[string]*kafkaSubscription),
		config:        cfg,
		doneCh:        make(chan struct{}),
	}

	go kps.deliveryReportHandler()

	topic, _ := patternToTopic(PatternConversationMessages)
	if err := kps.ensureTopics(topic); err != nil {
		l := log.L()
		l.Warn().Err(err).Msg("failed to ensure kafka topics (may already exist)")
	}

	return kps, nil
}

// ensureTopics creates the given topics if they don't exist.
func (k *KafkaPubSub) ensureTopics(topics ...string) error {
	admin, err := kafka.NewAdminClient(&kafka.ConfigMap{
		"bootstrap.servers": k.config.Brokers,
	})
	if err != nil {
		return fmt.Errorf("failed to create admin client: %w", err)
	}
	defer admin.Close()

	partitions := k.config.Partitions
	if partitions <= 0 {
		partitions = 4
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	specs := make([]kafka.TopicSpecification, 0, len(topics))
	for _, t := range topics {
		specs = append(specs, kafka.TopicSpecification{
			Topic:             t,
			NumPartitions:     partitions,
			ReplicationFactor: 1,
		})
	}

	results, err := admin.CreateTopics(ctx, specs)
	if err != nil {
		return fmt.Errorf("failed to create topics: %w", err)
	}

	for _, r := range results {
		if r.Error.Code() != kafka.ErrNoError && r.Error.Code() != kafka.ErrTopicAlreadyExists {
			return fmt.Errorf("failed to create topic %s: %v", r.Topic, r.Error)
		}
	}

	return nil
}

// deliveryReportHandler processes delivery reports from the producer.
func (k *KafkaPubSub) deliveryReportHandler() {
	l := log.L()
	for e := range k.producer.Events() {
		if ev, ok := e.(*kafka.Message); ok && ev.TopicPartition.Error != nil {
			l.Error().Err(ev.TopicPartition.Error).Str("key", string(ev.Key)).Msg("kafka delivery failed")
		}
	}
	close(k.doneCh)
}

// Publish publishes an event to the specified channel (converted to Kafka topic + key).
// Events of one conversation share a key and therefore a partition, which keeps
// them ordered for consumers.
func (k *KafkaPubSub) Publish(ctx context.Context, channel string, event *Event) error {
	topic, key, err := channelToTopicAndKey(channel)
	if err != nil {
		return fmt.Errorf("failed to parse channel: %w", err)
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	err = k.producer.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{
			Topic:     &topic,
			Partition: kafka.PartitionAny,
		},
		Key:   []byte(key),
		Value: data,
	}, nil)
	if err != nil {
		return fmt.Errorf("failed to produce message: %w", err)
	}

	return nil
}

// Subscribe subscribes to a specific channel, filtering messages by key.
func (k *KafkaPubSub) Subscribe(ctx context.Context, channel string) (<-chan *Event, error) {
	topic, key, err := channelToTopicAndKey(channel)
	if err != nil {
		return nil, fmt.Errorf("failed to parse channel: %w", err)
	}

	return k.subscribeToTopic(ctx, channel, topic, key)
}

// SubscribePattern subscribes to channels matching a pattern (consumes all messages on the topic).
func (k *KafkaPubSub) SubscribePattern(ctx context.Context, pattern string) (<-chan *Event, error) {
	topic, err := patternToTopic(pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to parse pattern: %w", err)
	}

	return k.subscribeToTopic(ctx, pattern, topic, "")
}

// subscribeToTopic creates a consumer for a topic, optionally filtering by key.
func (k *KafkaPubSub) subscribeToTopic(ctx context.Context, subKey, topic, filterKey string) (<-chan *Event, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if existing, ok := k.subscriptions[subKey]; ok {
		existing.cancel()
		existing.consumer.Close()
		delete(k.subscriptions, subKey)
	}

	groupID := k.config.GroupID
	if groupID == "" {
		groupID = "dm-default"
	}

	// Keyed subscriptions get their own group so they do not steal
	// partitions from pattern subscribers.
	consumerGroupID := groupID
	if filterKey != "" {
		consumerGroupID = fmt.Sprintf("%s-%s", groupID, sanitizeGroupID(subKey))
	}

	offsetReset := k.config.AutoOffsetReset
	if offsetReset == "" {
		offsetReset = "latest"
	}

	c, err := kafka.NewConsumer(&kafka.ConfigMap{
		"bootstrap.servers":       k.config.Brokers,
		"group.id":                consumerGroupID,
		"auto.offset.reset":       offsetReset,
		"enable.auto.commit":      true,
		"auto.commit.interval.ms": 5000,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka consumer: %w", err)
	}

	if err := c.Subscribe(topic, nil); err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to subscribe to topic %s: %w", topic, err)
	}

	subCtx, cancel := context.WithCancel(ctx)
	eventCh := make(chan *Event, 100)

	k.subscriptions[subKey] = &kafkaSubscription{
		consumer: c,
		cancel:   cancel,
	}

	go k.consumeMessages(subCtx, c, eventCh, filterKey)

	return eventCh, nil
}

// consumeMessages polls Kafka and forwards events to the channel.
// Unlike the Redis driver it blocks when the channel is full: Kafka keeps
// the backlog, so there is no reason to drop.
func (k *KafkaPubSub) consumeMessages(ctx context.Context, c *kafka.Consumer, eventCh chan<- *Event, filterKey string) {
	defer close(eventCh)
	l := log.L()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		ev := c.Poll(500)
		if ev == nil {
			continue
		}

		switch e := ev.(type) {
		case *kafka.Message:
			if filterKey != "" && string(e.Key) != filterKey {
				continue
			}

			var event Event
			if err := json.Unmarshal(e.Value, &event); err != nil {
				l.Warn().Err(err).Msg("kafka pubsub: failed to unmarshal event")
				continue
			}

			select {
			case eventCh <- &event:
			case <-ctx.Done():
				return
			}

		case kafka.Error:
			l.Error().Err(e).Int("code", int(e.Code())).Bool("fatal", e.IsFatal()).Msg("kafka pubsub error")
			if e.IsFatal() {
				return
			}
		}
	}
}

// Unsubscribe unsubscribes from a channel or pattern.
func (k *KafkaPubSub) Unsubscribe(ctx context.Context, channel string) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if sub, ok := k.subscriptions[channel]; ok {
		sub.cancel()
		if err := sub.consumer.Close(); err != nil {
			return fmt.Errorf("failed to close consumer: %w", err)
		}
		delete(k.subscriptions, channel)
	}

	return nil
}

// Close closes all subscriptions and the producer.
func (k *KafkaPubSub) Close() error {
	k.mu.Lock()
	defer k.mu.Unlock()

	for key, sub := range k.subscriptions {
		sub.cancel()
		sub.consumer.Close()
		delete(k.subscriptions, key)
	}

	k.producer.Flush(5000)
	k.producer.Close()
	<-k.doneCh

	return nil
}

var groupIDRegexp = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

// sanitizeGroupID replaces characters not suitable for Kafka group IDs.
func sanitizeGroupID(s string) string {
	return groupIDRegexp.ReplaceAllString(s, "-")
}
