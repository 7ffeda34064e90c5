package pubsub

import (
	"fmt"
	"time"
)

const (
	DriverNone  = "none"
	DriverRedis = "redis"
	DriverKafka = "kafka"
)

// KafkaConfig holds Kafka-specific configuration.
type KafkaConfig struct {
	Brokers         string `mapstructure:"brokers"`
	GroupID         string `mapstructure:"group_id"`
	Partitions      int    `mapstructure:"partitions"`
	AutoOffsetReset string `mapstructure:"auto_offset_reset"`
}

// Config holds the configuration for the pub/sub system.
type Config struct {
	Driver string      `mapstructure:"driver"` // "none", "redis", "kafka"
	Redis  RedisConfig `mapstructure:"redis"`
	Kafka  KafkaConfig `mapstructure:"kafka"`
}

// RedisConfig holds Redis-specific configuration.
type RedisConfig struct {
	Address      string        `mapstructure:"address"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Driver: DriverNone,
		Redis: RedisConfig{
			Address:      "localhost:6379",
			PoolSize:     10,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Kafka: KafkaConfig{
			Brokers:         "localhost:9092",
			GroupID:         "dm-archiver",
			Partitions:      4,
			AutoOffsetReset: "earliest",
		},
	}
}

// NewPubSub creates a new PubSub instance based on the configuration.
// The "none" driver has no bus; callers check Enabled first.
func NewPubSub(cfg Config) (PubSub, error) {
	switch cfg.Driver {
	case DriverKafka:
		return NewKafkaPubSub(cfg.Kafka)
	case DriverRedis:
		return NewRedisPubSub(cfg.Redis)
	default:
		return nil, fmt.Errorf("unsupported pubsub driver: %q", cfg.Driver)
	}
}

// Enabled reports whether an event bus is configured.
func (c Config) Enabled() bool {
	return c.Driver != "" && c.Driver != DriverNone
}
