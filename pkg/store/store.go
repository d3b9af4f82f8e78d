package store

import (
	"time"

	"github.com/redhat-data-and-ai/favourites/pkg/cache"
	"github.com/redhat-data-and-ai/favourites/pkg/events"
	"github.com/redhat-data-and-ai/favourites/pkg/favourites"
)

// Store groups the cache backed stores of the service
// NOTE: This store does NOT handle locking - the cache driver provides per key atomicity only
type Store struct {
	Favourites FavouritesStoreInterface
}

// Option customises the stores created by New
type Option func(*options)

type options struct {
	ttl time.Duration
}

// WithTTL sets how long a cached favourites list lives, cache.NoExpiration keeps it until invalidated
func WithTTL(ttl time.Duration) Option {
	return func(o *options) {
		o.ttl = ttl
	}
}

// New creates a Store whose favourites are read through c and persisted in backend
func New(c cache.Cache, backend favourites.Store, opts ...Option) *Store {
	o := &options{ttl: cache.NoExpiration}
	for _, opt := range opts {
		opt(o)
	}

	return &Store{
		Favourites: newFavouritesStore(c, backend, o.ttl),
	}
}

// Compile-time interface compliance checks
var (
	_ FavouritesStoreInterface  = (*FavouritesStore)(nil)
	_ favourites.Store          = (*FavouritesStore)(nil)
	_ events.ClearCacheListener = (*FavouritesStore)(nil)
)
