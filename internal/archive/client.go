package archive

import (
	"fmt"
	"strings"
	"time"

	"github.com/gocql/gocql"

	"github.com/weiawesome/wes-io-dm/internal/config"
)

// Client wraps the Cassandra session of the archive keyspace.
type Client struct {
	session *gocql.Session
}

// NewClient connects to the cluster, creating the keyspace on first use.
func NewClient(cfg config.CassandraConfig) (*Client, error) {
	if cfg.Keyspace == "" {
		return nil, fmt.Errorf("cassandra keyspace is required")
	}

	if err := ensureKeyspace(cfg); err != nil {
		return nil, err
	}

	cluster := newCluster(cfg)
	cluster.Keyspace = cfg.Keyspace

	session, err := cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create Cassandra session: %w", err)
	}

	return &Client{session: session}, nil
}

func newCluster(cfg config.CassandraConfig) *gocql.ClusterConfig {
	cluster := gocql.NewCluster(cfg.Hosts...)
	cluster.Consistency = parseConsistency(cfg.Consistency)
	if cfg.ConnectTimeout > 0 {
		cluster.ConnectTimeout = cfg.ConnectTimeout
	}
	if cfg.Timeout > 0 {
		cluster.Timeout = cfg.Timeout
	}

	cluster.RetryPolicy = &gocql.ExponentialBackoffRetryPolicy{
		NumRetries: 3,
		Min:        100 * time.Millisecond,
		Max:        2 * time.Second,
	}
	return cluster
}

func ensureKeyspace(cfg config.CassandraConfig) error {
	session, err := newCluster(cfg).CreateSession()
	if err != nil {
		return fmt.Errorf("failed to create Cassandra session: %w", err)
	}
	defer session.Close()

	rf := cfg.ReplicationFactor
	if rf <= 0 {
		rf = 1
	}
	stmt := fmt.Sprintf(
		`CREATE KEYSPACE IF NOT EXISTS %s WITH replication = {'class': 'SimpleStrategy', 'replication_factor': %d}`,
		cfg.Keyspace, rf,
	)
	if err := session.Query(stmt).Exec(); err != nil {
		return fmt.Errorf("failed to create keyspace %s: %w", cfg.Keyspace, err)
	}
	return nil
}

// Session returns the underlying gocql session.
func (c *Client) Session() *gocql.Session {
	return c.session
}

// Close closes the Cassandra session.
func (c *Client) Close() {
	if c.session != nil {
		c.session.Close()
	}
}

func parseConsistency(s string) gocql.Consistency {
	switch strings.ToUpper(s) {
	case "ANY":
		return gocql.Any
	case "ONE":
		return gocql.One
	case "TWO":
		return gocql.Two
	case "QUORUM":
		return gocql.Quorum
	case "ALL":
		return gocql.All
	case "LOCAL_ONE":
		return gocql.LocalOne
	case "EACH_QUORUM":
		return gocql.EachQuorum
	default:
		return gocql.LocalQuorum
	}
}
