package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redhat-data-and-ai/favourites/pkg/cache/inmemory"
	"github.com/redhat-data-and-ai/favourites/pkg/cache/redis"
)

// NoExpiration keeps an entry until it is deleted explicitly
const NoExpiration time.Duration = -1

const (
	DriverMemory = "memory"
	DriverRedis  = "redis"
)

// Cache is the key/value contract shared by every cache driver
// Values written by this module are always strings (JSON payloads)
type Cache interface {
	// Get returns the value for key, or an error when the key is missing or expired
	Get(ctx context.Context, key string) (interface{}, error)

	// Set stores value under key; NoExpiration keeps it until deleted
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error

	// Delete removes key; deleting a missing key is not an error
	Delete(ctx context.Context, key string) error

	// GetByPattern returns every key/value whose key matches the glob pattern
	GetByPattern(ctx context.Context, pattern string) (map[string]interface{}, error)

	// DeleteByPattern removes every key matching the glob pattern and
	// returns how many keys were removed
	DeleteByPattern(ctx context.Context, pattern string) (int, error)
}

// Config selects and configures a cache driver
type Config struct {
	Driver   string           `mapstructure:"driver" yaml:"driver"`
	InMemory *inmemory.Config `mapstructure:"inmemory" yaml:"inmemory,omitempty"`
	Redis    *redis.Config    `mapstructure:"redis" yaml:"redis,omitempty"`
}

// New creates the cache driver described by cfg
// An empty driver falls back to the in-memory cache
func New(cfg *Config) (Cache, error) {
	if cfg == nil {
		return nil, fmt.Errorf("cache configuration is required")
	}

	switch strings.ToLower(cfg.Driver) {
	case "", DriverMemory:
		memCfg := cfg.InMemory
		if memCfg == nil {
			memCfg = &inmemory.Config{
				DefaultExpiration: 300,
				CleanupInterval:   600,
			}
		}
		return inmemory.NewCache(memCfg)
	case DriverRedis:
		if cfg.Redis == nil {
			return nil, fmt.Errorf("redis cache configuration is missing")
		}
		return redis.NewCache(cfg.Redis)
	default:
		return nil, fmt.Errorf("unsupported cache driver: %s", cfg.Driver)
	}
}
