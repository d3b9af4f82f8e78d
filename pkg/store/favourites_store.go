package store

import (
	"context"
	"fmt"
	"slices"
	"sync/atomic"
	"time"

	"github.com/redhat-data-and-ai/favourites/pkg/cache"
	"github.com/redhat-data-and-ai/favourites/pkg/events"
	"github.com/redhat-data-and-ai/favourites/pkg/favourites"
	"github.com/redhat-data-and-ai/favourites/pkg/logger"
	"github.com/redhat-data-and-ai/favourites/pkg/telemetry"
	"github.com/sirupsen/logrus"
)

const favouritesPrefix = "favourites:"

// FavouritesStore caches ordered favourite id lists with "favourites:" prefix
// in front of a persistent favourites.Store.
// Writes go to the backend first and the affected entry is invalidated
// afterwards, also when the backend fails
// NOTE: This store does NOT handle locking - concurrent writers of one partition race at the backend
type FavouritesStore struct {
	cache   cache.Cache
	backend favourites.Store
	ttl     time.Duration
	// generation is bumped on every invalidation so a fill that raced
	// with a write on this node is dropped instead of cached
	generation atomic.Uint64
}

// newFavouritesStore creates a new FavouritesStore instance
func newFavouritesStore(c cache.Cache, backend favourites.Store, ttl time.Duration) *FavouritesStore {
	return &FavouritesStore{
		cache:   c,
		backend: backend,
		ttl:     ttl,
	}
}

// favouritesKey returns the prefixed cache key for a partition
func (s *FavouritesStore) favouritesKey(userKey string, entityType favourites.EntityType) string {
	return favouritesPrefix + string(entityType) + ":" + userKey
}

// GetFavouriteIDs returns the cached list or loads it from the backend.
// A missing list is returned as an empty slice, never nil
func (s *FavouritesStore) GetFavouriteIDs(ctx context.Context, userKey string, entityType favourites.EntityType) ([]int64, error) {
	key := s.favouritesKey(userKey, entityType)
	metrics := telemetry.GetFavouritesMetrics()

	if val, err := s.cache.Get(ctx, key); err == nil {
		ids, err := decodeIDs(val)
		if err == nil {
			metrics.RecordCacheHit(ctx, entityType.String())
			return ids, nil
		}
		// unreadable entries are reloaded from the backend
		logger.Logger(ctx).WithField("key", key).WithError(err).Warn("discarding corrupt favourites cache entry")
	}
	metrics.RecordCacheMiss(ctx, entityType.String())

	gen := s.generation.Load()
	ids, err := s.backend.GetFavouriteIDs(ctx, userKey, entityType)
	if err != nil {
		return nil, err
	}
	if ids == nil {
		ids = []int64{}
	}

	// A write on another node can still land between the load and the set,
	// such an entry lives until the next invalidation or the ttl
	if s.generation.Load() != gen {
		logger.Logger(ctx).WithField("key", key).Debug("skipping favourites cache fill after concurrent invalidation")
		return ids, nil
	}

	data, err := encodeIDs(ids)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, key, data, s.ttl); err != nil {
		logger.Logger(ctx).WithField("key", key).WithError(err).Warn("failed to cache favourites")
	}

	return ids, nil
}

// IsFavourite answers from the cached list
func (s *FavouritesStore) IsFavourite(ctx context.Context, userKey string, entity favourites.Identifier) (bool, error) {
	ids, err := s.GetFavouriteIDs(ctx, userKey, entity.Type)
	if err != nil {
		return false, err
	}
	return slices.Contains(ids, entity.ID), nil
}

func (s *FavouritesStore) AddFavourite(ctx context.Context, userKey string, entity favourites.Identifier) (_ bool, err error) {
	defer s.invalidateAfter(ctx, userKey, entity.Type, &err)
	return s.backend.AddFavourite(ctx, userKey, entity)
}

func (s *FavouritesStore) RemoveFavourite(ctx context.Context, userKey string, entity favourites.Identifier) (_ bool, err error) {
	defer s.invalidateAfter(ctx, userKey, entity.Type, &err)
	return s.backend.RemoveFavourite(ctx, userKey, entity)
}

func (s *FavouritesStore) RemoveFavouritesForUser(ctx context.Context, userKey string, entityType favourites.EntityType) (err error) {
	defer s.invalidateAfter(ctx, userKey, entityType, &err)
	return s.backend.RemoveFavouritesForUser(ctx, userKey, entityType)
}

func (s *FavouritesStore) UpdateSequence(ctx context.Context, userKey string, entityType favourites.EntityType, ids []int64) (err error) {
	defer s.invalidateAfter(ctx, userKey, entityType, &err)
	return s.backend.UpdateSequence(ctx, userKey, entityType, ids)
}

// RemoveFavouritesForEntity flushes every cached list since the affected users are unknown
func (s *FavouritesStore) RemoveFavouritesForEntity(ctx context.Context, entity favourites.Identifier) (err error) {
	defer func() {
		if _, invErr := s.InvalidateAll(ctx); invErr != nil && err == nil {
			err = invErr
		}
	}()
	return s.backend.RemoveFavouritesForEntity(ctx, entity)
}

func (s *FavouritesStore) Invalidate(ctx context.Context, userKey string, entityType favourites.EntityType) error {
	s.generation.Add(1)
	if err := s.cache.Delete(ctx, s.favouritesKey(userKey, entityType)); err != nil {
		return fmt.Errorf("failed to invalidate favourites cache: %w", err)
	}
	telemetry.GetFavouritesMetrics().RecordCacheInvalidation(ctx, telemetry.ScopePartition)
	return nil
}

func (s *FavouritesStore) InvalidateAll(ctx context.Context) (int, error) {
	s.generation.Add(1)
	removed, err := s.cache.DeleteByPattern(ctx, favouritesPrefix+"*")
	if err != nil {
		return removed, fmt.Errorf("failed to flush favourites cache: %w", err)
	}
	telemetry.GetFavouritesMetrics().RecordCacheInvalidation(ctx, telemetry.ScopeAll)
	logger.Logger(ctx).WithField("removed", removed).Debug("flushed favourites cache")
	return removed, nil
}

// OnClearCache flushes the cache when a clear cache event is broadcast
func (s *FavouritesStore) OnClearCache(ctx context.Context, event events.ClearCacheEvent) error {
	removed, err := s.InvalidateAll(ctx)
	if err != nil {
		return err
	}
	logger.Logger(ctx).WithFields(logrus.Fields{
		"eventId": event.ID,
		"source":  event.Source,
		"removed": removed,
	}).Info("favourites cache cleared")
	return nil
}

// invalidateAfter runs deferred after a backend write. The backend error is
// kept when both fail
func (s *FavouritesStore) invalidateAfter(ctx context.Context, userKey string, entityType favourites.EntityType, errp *error) {
	if err := s.Invalidate(ctx, userKey, entityType); err != nil {
		if *errp == nil {
			*errp = err
			return
		}
		logger.Logger(ctx).WithFields(logrus.Fields{
			"user":       userKey,
			"entityType": entityType.String(),
		}).WithError(err).Error("failed to invalidate favourites cache after failed write")
	}
}
