package inmemory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gobwas/glob"
	gocache "github.com/patrickmn/go-cache"
)

// ErrKeyNotFound is returned by Get for missing or expired keys
var ErrKeyNotFound = errors.New("key not found in cache")

// Config holds the in-memory cache settings, both values in seconds
type Config struct {
	DefaultExpiration int `mapstructure:"default_expiration" yaml:"default_expiration"`
	CleanupInterval   int `mapstructure:"cleanup_interval" yaml:"cleanup_interval"`
}

// Cache is a process local cache backed by go-cache
type Cache struct {
	client *gocache.Cache
}

// NewCache creates an in-memory cache
func NewCache(cfg *Config) (*Cache, error) {
	if cfg == nil {
		return nil, fmt.Errorf("in-memory cache configuration is required")
	}
	if cfg.DefaultExpiration < 0 || cfg.CleanupInterval < 0 {
		return nil, fmt.Errorf("in-memory cache durations must not be negative")
	}

	return &Cache{
		client: gocache.New(
			time.Duration(cfg.DefaultExpiration)*time.Second,
			time.Duration(cfg.CleanupInterval)*time.Second,
		),
	}, nil
}

func (c *Cache) Get(_ context.Context, key string) (interface{}, error) {
	val, found := c.client.Get(key)
	if !found {
		return nil, ErrKeyNotFound
	}
	return val, nil
}

// Set stores value; a negative expiration never expires, zero uses the default
func (c *Cache) Set(_ context.Context, key string, value interface{}, expiration time.Duration) error {
	if expiration < 0 {
		expiration = gocache.NoExpiration
	}
	c.client.Set(key, value, expiration)
	return nil
}

func (c *Cache) Delete(_ context.Context, key string) error {
	c.client.Delete(key)
	return nil
}

// GetByPattern matches keys with redis style globs (*, ?, [...])
func (c *Cache) GetByPattern(_ context.Context, pattern string) (map[string]interface{}, error) {
	g, err := compilePattern(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid key pattern %q: %w", pattern, err)
	}

	result := make(map[string]interface{})
	for key, item := range c.client.Items() {
		if g.Match(key) {
			result[key] = item.Object
		}
	}
	return result, nil
}

func (c *Cache) DeleteByPattern(ctx context.Context, pattern string) (int, error) {
	matches, err := c.GetByPattern(ctx, pattern)
	if err != nil {
		return 0, err
	}
	for key := range matches {
		c.client.Delete(key)
	}
	return len(matches), nil
}

// ItemCount returns the number of live entries, expired ones included until cleanup
func (c *Cache) ItemCount() int {
	return c.client.ItemCount()
}

// compilePattern compiles a redis KEYS/SCAN pattern. No separators are
// given so '*' also matches ':' and '/'. Redis negated classes "[^...]"
// are rewritten to the "[!...]" form
func compilePattern(pattern string) (glob.Glob, error) {
	return glob.Compile(strings.ReplaceAll(pattern, "[^", "[!"))
}
