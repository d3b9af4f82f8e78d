package sharedentity

import (
	"context"
	"sync"

	"github.com/redhat-data-and-ai/favourites/pkg/favourites"
)

type record struct {
	entity favourites.SharedEntity
	public bool
	grants map[string]struct{}
}

// MemoryAccessor keeps shared entities of one type in memory.
// An entity is usable by its owner, by everyone when public, and by the users it was granted to
type MemoryAccessor struct {
	mu         sync.RWMutex
	entityType favourites.EntityType
	records    map[int64]*record
}

func NewMemoryAccessor(entityType favourites.EntityType) *MemoryAccessor {
	return &MemoryAccessor{
		entityType: entityType,
		records:    make(map[int64]*record),
	}
}

var (
	_ favourites.Accessor      = (*MemoryAccessor)(nil)
	_ favourites.CountAdjuster = (*MemoryAccessor)(nil)
)

// Put stores or replaces an entity. The entity type is forced to the accessor's type
func (a *MemoryAccessor) Put(entity favourites.SharedEntity, public bool, grantees ...string) *favourites.SharedEntity {
	a.mu.Lock()
	defer a.mu.Unlock()

	entity.Type = a.entityType
	r := &record{entity: entity, public: public, grants: make(map[string]struct{}, len(grantees))}
	for _, g := range grantees {
		r.grants[g] = struct{}{}
	}
	a.records[entity.ID] = r

	out := r.entity
	return &out
}

// Delete forgets the entity, later lookups resolve it to nil
func (a *MemoryAccessor) Delete(id int64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.records, id)
}

func (a *MemoryAccessor) Grant(id int64, userKey string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if r, ok := a.records[id]; ok {
		r.grants[userKey] = struct{}{}
	}
}

func (a *MemoryAccessor) Revoke(id int64, userKey string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if r, ok := a.records[id]; ok {
		delete(r.grants, userKey)
	}
}

func (a *MemoryAccessor) SetPublic(id int64, public bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if r, ok := a.records[id]; ok {
		r.public = public
	}
}

// FavouriteCount returns the current count, 0 for unknown entities
func (a *MemoryAccessor) FavouriteCount(id int64) int64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if r, ok := a.records[id]; ok {
		return r.entity.FavouriteCount
	}
	return 0
}

func (a *MemoryAccessor) GetSharedEntity(_ context.Context, id int64) (*favourites.SharedEntity, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	r, ok := a.records[id]
	if !ok {
		return nil, nil
	}
	out := r.entity
	return &out, nil
}

func (a *MemoryAccessor) HasPermissionToUse(_ context.Context, user *favourites.User, entity *favourites.SharedEntity) (bool, error) {
	if user == nil || user.Key == "" || entity == nil {
		return false, nil
	}

	a.mu.RLock()
	defer a.mu.RUnlock()

	r, ok := a.records[entity.ID]
	if !ok {
		return false, nil
	}
	if r.public || r.entity.OwnerKey == user.Key {
		return true, nil
	}
	_, granted := r.grants[user.Key]
	return granted, nil
}

// AdjustFavouriteCount ignores entities it does not know and never lets the count go negative
func (a *MemoryAccessor) AdjustFavouriteCount(_ context.Context, entity favourites.Identifier, delta int64) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	r, ok := a.records[entity.ID]
	if !ok {
		return nil
	}
	r.entity.FavouriteCount = max(0, r.entity.FavouriteCount+delta)
	return nil
}
