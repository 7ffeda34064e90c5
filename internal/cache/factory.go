package cache

import (
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/weiawesome/wes-io-dm/internal/config"
)

// New builds the page and profile caches for cfg.Driver. The redis driver
// requires a connected client, which the caller owns and closes.
func New(cfg config.CacheConfig, client *redis.Client) (PageCache, ProfileCache, error) {
	switch cfg.Driver {
	case DriverMemory, "":
		return NewMemoryPageCache(cfg.Prefix), NewMemoryProfileCache(cfg.Prefix), nil
	case DriverRedis:
		if client == nil {
			return nil, nil, fmt.Errorf("cache driver %q requires a redis client", cfg.Driver)
		}
		return NewRedisPageCache(client, cfg.Prefix), NewRedisProfileCache(client, cfg.Prefix), nil
	default:
		return nil, nil, fmt.Errorf("unsupported cache driver: %q", cfg.Driver)
	}
}
