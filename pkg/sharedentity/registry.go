package sharedentity

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/redhat-data-and-ai/favourites/pkg/favourites"
)

// Registry maps entity types to the accessor that resolves them.
// It also answers share checks by delegating to the accessor of the entity's type
type Registry struct {
	mu        sync.RWMutex
	accessors map[favourites.EntityType]favourites.Accessor
}

func NewRegistry() *Registry {
	return &Registry{
		accessors: make(map[favourites.EntityType]favourites.Accessor),
	}
}

var (
	_ favourites.AccessorRegistry = (*Registry)(nil)
	_ favourites.ShareChecker     = (*Registry)(nil)
)

// Register replaces any accessor previously registered for entityType
func (r *Registry) Register(entityType favourites.EntityType, accessor favourites.Accessor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.accessors[entityType] = accessor
}

func (r *Registry) Accessor(entityType favourites.EntityType) (favourites.Accessor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	accessor, ok := r.accessors[entityType]
	return accessor, ok
}

// Types returns the registered entity types in sorted order
func (r *Registry) Types() []favourites.EntityType {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]favourites.EntityType, 0, len(r.accessors))
	for t := range r.accessors {
		types = append(types, t)
	}
	slices.Sort(types)
	return types
}

// IsSharedWith uses the accessor's own ShareChecker when it has one and
// falls back to HasPermissionToUse
func (r *Registry) IsSharedWith(ctx context.Context, user *favourites.User, entity *favourites.SharedEntity) (bool, error) {
	if entity == nil {
		return false, nil
	}
	accessor, ok := r.Accessor(entity.Type)
	if !ok {
		return false, fmt.Errorf("%w: %s", favourites.ErrNoAccessor, entity.Type)
	}
	if checker, ok := accessor.(favourites.ShareChecker); ok {
		return checker.IsSharedWith(ctx, user, entity)
	}
	return accessor.HasPermissionToUse(ctx, user, entity)
}
