package redis

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/redis/go-redis/extra/redisotel/v9"
	goredis "github.com/redis/go-redis/v9"
)

const scanBatchSize = 100

// Config holds the redis connection settings
type Config struct {
	Host     string `mapstructure:"host" yaml:"host"`
	Port     int    `mapstructure:"port" yaml:"port"`
	Username string `mapstructure:"username" yaml:"username,omitempty"`
	Password string `mapstructure:"password" yaml:"password,omitempty"`
	Database int    `mapstructure:"database" yaml:"database"`
	// PingTimeout in seconds, defaults to 5
	PingTimeout int `mapstructure:"ping_timeout" yaml:"ping_timeout"`
}

// Cache is a shared cache backed by redis
type Cache struct {
	client *goredis.Client
}

// NewCache connects to redis, verifies the connection and enables
// OpenTelemetry tracing and metrics on the client
func NewCache(cfg *Config) (*Cache, error) {
	if cfg == nil {
		return nil, fmt.Errorf("redis cache configuration is required")
	}
	if cfg.Host == "" || cfg.Port == 0 {
		return nil, fmt.Errorf("redis host and port are required")
	}

	client := goredis.NewClient(&goredis.Options{
		Addr:     net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.Database,
	})

	timeout := time.Duration(cfg.PingTimeout) * time.Second
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	if err := redisotel.InstrumentTracing(client); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to instrument redis tracing: %w", err)
	}
	if err := redisotel.InstrumentMetrics(client); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to instrument redis metrics: %w", err)
	}

	return &Cache{client: client}, nil
}

func (c *Cache) Get(ctx context.Context, key string) (interface{}, error) {
	val, err := c.client.Get(ctx, key).Result()
	if err != nil {
		return nil, err
	}
	return val, nil
}

// Set stores value; a negative expiration never expires
func (c *Cache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	if expiration < 0 {
		expiration = 0
	}
	return c.client.Set(ctx, key, value, expiration).Err()
}

func (c *Cache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, key).Err()
}

// GetByPattern walks the keyspace with SCAN so large keyspaces never block the server
func (c *Cache) GetByPattern(ctx context.Context, pattern string) (map[string]interface{}, error) {
	keys, err := c.scanKeys(ctx, pattern)
	if err != nil {
		return nil, err
	}

	result := make(map[string]interface{}, len(keys))
	for start := 0; start < len(keys); start += scanBatchSize {
		end := min(start+scanBatchSize, len(keys))
		batch := keys[start:end]

		values, err := c.client.MGet(ctx, batch...).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to fetch keys matching %q: %w", pattern, err)
		}
		for i, val := range values {
			// keys can expire between SCAN and MGET
			if val == nil {
				continue
			}
			result[batch[i]] = val
		}
	}

	return result, nil
}

func (c *Cache) DeleteByPattern(ctx context.Context, pattern string) (int, error) {
	keys, err := c.scanKeys(ctx, pattern)
	if err != nil {
		return 0, err
	}

	removed := 0
	for start := 0; start < len(keys); start += scanBatchSize {
		end := min(start+scanBatchSize, len(keys))
		n, err := c.client.Del(ctx, keys[start:end]...).Result()
		if err != nil {
			return removed, fmt.Errorf("failed to delete keys matching %q: %w", pattern, err)
		}
		removed += int(n)
	}

	return removed, nil
}

// Close releases the underlying connection pool
func (c *Cache) Close() error {
	return c.client.Close()
}

func (c *Cache) scanKeys(ctx context.Context, pattern string) ([]string, error) {
	var keys []string
	iter := c.client.Scan(ctx, 0, pattern, scanBatchSize).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan keys matching %q: %w", pattern, err)
	}
	return keys, nil
}
