package config

import (
	"os"
	"strings"
	"time"

	pkgconfig "github.com/weiawesome/wes-io-dm/pkg/config"
	"github.com/weiawesome/wes-io-dm/pkg/database"
	"github.com/weiawesome/wes-io-dm/pkg/jwt"
	"github.com/weiawesome/wes-io-dm/pkg/log"
	"github.com/weiawesome/wes-io-dm/pkg/pubsub"
	"github.com/weiawesome/wes-io-dm/pkg/storage"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	WebSocket WebSocketConfig `mapstructure:"websocket"`
	Database  database.Config `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Message   MessageConfig   `mapstructure:"message"`
	Events    pubsub.Config   `mapstructure:"events"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Cassandra CassandraConfig `mapstructure:"cassandra"`
	Archiver  ArchiverConfig  `mapstructure:"archiver"`
	Log       log.Config      `mapstructure:"log"`
}

type ServerConfig struct {
	Host             string        `mapstructure:"host"`
	Port             int           `mapstructure:"port"`
	OperationTimeout time.Duration `mapstructure:"operation_timeout"`
	ShutdownTimeout  time.Duration `mapstructure:"shutdown_timeout"`
}

type WebSocketConfig struct {
	PingInterval   time.Duration `mapstructure:"ping_interval"`
	PongWait       time.Duration `mapstructure:"pong_wait"`
	WriteWait      time.Duration `mapstructure:"write_wait"`
	MaxMessageSize int64         `mapstructure:"max_message_size"`
	SendBuffer     int           `mapstructure:"send_buffer"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type CacheConfig struct {
	Driver     string        `mapstructure:"driver"` // memory, redis
	Prefix     string        `mapstructure:"prefix"`
	PageTTL    time.Duration `mapstructure:"page_ttl"`
	ProfileTTL time.Duration `mapstructure:"profile_ttl"`
}

type AuthConfig struct {
	JWT        jwt.Config `mapstructure:"jwt"`
	CookieName string     `mapstructure:"cookie_name"`
}

type MessageConfig struct {
	DefaultLimit           int    `mapstructure:"default_limit"`
	MaxLimit               int    `mapstructure:"max_limit"`
	MaxTextLength          int    `mapstructure:"max_text_length"`
	MaxAttachmentRefLength int    `mapstructure:"max_attachment_ref_length"`
	IDGenerator            string `mapstructure:"id_generator"`
}

type StorageConfig struct {
	storage.Config   `mapstructure:",squash"`
	AttachmentPrefix string        `mapstructure:"attachment_prefix"`
	URLTTL           time.Duration `mapstructure:"url_ttl"`
	MaxUploadBytes   int64         `mapstructure:"max_upload_bytes"`
}

type CassandraConfig struct {
	Hosts             []string      `mapstructure:"hosts"`
	Keyspace          string        `mapstructure:"keyspace"`
	Consistency       string        `mapstructure:"consistency"`
	ReplicationFactor int           `mapstructure:"replication_factor"`
	ConnectTimeout    time.Duration `mapstructure:"connect_timeout"`
	Timeout           time.Duration `mapstructure:"timeout"`
}

// ArchiverConfig is the health/metrics listener of the archiver worker.
type ArchiverConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

func Load() (*Config, error) {
	v, err := pkgconfig.Load("./config", "config")
	if err != nil {
		return nil, err
	}

	// Set defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8095)
	v.SetDefault("server.operation_timeout", "10s")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("websocket.ping_interval", "30s")
	v.SetDefault("websocket.pong_wait", "60s")
	v.SetDefault("websocket.write_wait", "10s")
	v.SetDefault("websocket.max_message_size", 4096)
	v.SetDefault("websocket.send_buffer", 256)
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.file_path", "dm.db")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.log_level", "warn")
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.max_open_conns", 50)
	v.SetDefault("database.conn_max_lifetime", 60)
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("cache.driver", "memory")
	v.SetDefault("cache.prefix", "dm")
	v.SetDefault("cache.page_ttl", "60s")
	v.SetDefault("cache.profile_ttl", "5m")
	v.SetDefault("auth.jwt.issuer", "")
	v.SetDefault("auth.jwt.access_duration", "15m")
	v.SetDefault("auth.cookie_name", "jwt")
	v.SetDefault("message.default_limit", 50)
	v.SetDefault("message.max_limit", 100)
	v.SetDefault("message.max_text_length", 2000)
	v.SetDefault("message.max_attachment_ref_length", 1024)
	v.SetDefault("message.id_generator", "ulid")
	v.SetDefault("events.driver", pubsub.DriverNone)
	v.SetDefault("events.redis.address", "localhost:6379")
	v.SetDefault("events.redis.pool_size", 10)
	v.SetDefault("events.redis.read_timeout", "3s")
	v.SetDefault("events.redis.write_timeout", "3s")
	v.SetDefault("events.kafka.brokers", "localhost:9092")
	v.SetDefault("events.kafka.group_id", "dm-archiver")
	v.SetDefault("events.kafka.partitions", 4)
	v.SetDefault("events.kafka.auto_offset_reset", "earliest")
	v.SetDefault("storage.driver", storage.DriverLocal)
	v.SetDefault("storage.local.base_path", "./data/attachments")
	v.SetDefault("storage.local.url_prefix", "/api/v1/attachments/files")
	v.SetDefault("storage.attachment_prefix", "attachments")
	v.SetDefault("storage.url_ttl", "1h")
	v.SetDefault("storage.max_upload_bytes", 10<<20)
	v.SetDefault("cassandra.hosts", []string{"localhost:9042"})
	v.SetDefault("cassandra.keyspace", "dm")
	v.SetDefault("cassandra.consistency", "LOCAL_QUORUM")
	v.SetDefault("cassandra.replication_factor", 1)
	v.SetDefault("cassandra.connect_timeout", "10s")
	v.SetDefault("cassandra.timeout", "5s")
	v.SetDefault("archiver.host", "0.0.0.0")
	v.SetDefault("archiver.port", 8096)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.service_name", "dm-service")

	// Override from environment
	v.BindEnv("server.port", "PORT")
	v.BindEnv("database.driver", "DB_DRIVER")
	v.BindEnv("database.host", "DB_HOST")
	v.BindEnv("database.port", "DB_PORT")
	v.BindEnv("database.user", "DB_USER")
	v.BindEnv("database.password", "DB_PASSWORD")
	v.BindEnv("database.dbname", "DB_NAME")
	v.BindEnv("redis.address", "REDIS_ADDRESS")
	v.BindEnv("redis.password", "REDIS_PASSWORD")
	v.BindEnv("auth.jwt.secret", "JWT_SECRET")
	v.BindEnv("events.driver", "EVENTS_DRIVER")
	v.BindEnv("events.kafka.brokers", "KAFKA_BROKERS")
	v.BindEnv("storage.driver", "STORAGE_DRIVER")
	v.BindEnv("storage.s3.access_key_id", "S3_ACCESS_KEY_ID")
	v.BindEnv("storage.s3.secret_access_key", "S3_SECRET_ACCESS_KEY")
	v.BindEnv("log.level", "LOG_LEVEL")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// Parse durations
	cfg.Server.OperationTimeout = pkgconfig.Duration(v, "server.operation_timeout", 10*time.Second)
	cfg.Server.ShutdownTimeout = pkgconfig.Duration(v, "server.shutdown_timeout", 10*time.Second)
	cfg.WebSocket.PingInterval = pkgconfig.Duration(v, "websocket.ping_interval", 30*time.Second)
	cfg.WebSocket.PongWait = pkgconfig.Duration(v, "websocket.pong_wait", 60*time.Second)
	cfg.WebSocket.WriteWait = pkgconfig.Duration(v, "websocket.write_wait", 10*time.Second)
	cfg.Cache.PageTTL = pkgconfig.Duration(v, "cache.page_ttl", 60*time.Second)
	cfg.Cache.ProfileTTL = pkgconfig.Duration(v, "cache.profile_ttl", 5*time.Minute)
	cfg.Auth.JWT.AccessDuration = pkgconfig.Duration(v, "auth.jwt.access_duration", 15*time.Minute)
	cfg.Storage.URLTTL = pkgconfig.Duration(v, "storage.url_ttl", time.Hour)
	cfg.Cassandra.ConnectTimeout = pkgconfig.Duration(v, "cassandra.connect_timeout", 10*time.Second)
	cfg.Cassandra.Timeout = pkgconfig.Duration(v, "cassandra.timeout", 5*time.Second)

	// CASSANDRA_HOSTS: comma-separated, e.g. "cassandra:9042" or "host1:9042,host2:9042"
	if hosts := os.Getenv("CASSANDRA_HOSTS"); hosts != "" {
		cfg.Cassandra.Hosts = strings.Split(strings.TrimSpace(hosts), ",")
		for i, h := range cfg.Cassandra.Hosts {
			cfg.Cassandra.Hosts[i] = strings.TrimSpace(h)
		}
	}

	return &cfg, nil
}
