package store

import (
	"context"

	"github.com/redhat-data-and-ai/favourites/pkg/events"
	"github.com/redhat-data-and-ai/favourites/pkg/favourites"
)

// FavouritesStoreInterface is a favourites.Store that caches id lists per
// (user, entity type) partition
type FavouritesStoreInterface interface {
	favourites.Store
	events.ClearCacheListener

	// Invalidate drops the cached list of one partition
	Invalidate(ctx context.Context, userKey string, entityType favourites.EntityType) error

	// InvalidateAll drops every cached favourites list and returns how many were dropped
	InvalidateAll(ctx context.Context) (int, error)
}
