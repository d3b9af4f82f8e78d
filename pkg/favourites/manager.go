package favourites

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/redhat-data-and-ai/favourites/pkg/logger"
	"github.com/redhat-data-and-ai/favourites/pkg/telemetry"
	"github.com/sirupsen/logrus"
)

const (
	opAdd             = "add"
	opAddInPosition   = "add_in_position"
	opRemove          = "remove"
	opIsFavourite     = "is_favourite"
	opGetIDs          = "get_ids"
	opGetEntities     = "get_entities"
	opRemoveForUser   = "remove_for_user"
	opRemoveForEntity = "remove_for_entity"
	opReorderPrefix   = "reorder_"
	opCompact         = "compact"
)

// DefaultManager applies permission checks, favourite count bookkeeping and
// the reorder protocol on top of a Store.
// NOTE: no locking is done here. Two concurrent reorders of the same partition
// race and the last UpdateSequence wins
type DefaultManager struct {
	store     Store
	shares    ShareChecker
	accessors AccessorRegistry
}

// NewDefaultManager creates a manager. store is normally the caching store
func NewDefaultManager(store Store, shares ShareChecker, accessors AccessorRegistry) *DefaultManager {
	return &DefaultManager{
		store:     store,
		shares:    shares,
		accessors: accessors,
	}
}

var _ Manager = (*DefaultManager)(nil)

// AddFavourite appends entity to the user's favourites. Adding an existing
// favourite is a no-op and does not touch the favourite count
func (m *DefaultManager) AddFavourite(ctx context.Context, user *User, entity *SharedEntity) (err error) {
	defer recordOperation(ctx, opAdd, time.Now(), &err)

	if err := validate(user, entity); err != nil {
		return err
	}
	if err := m.checkShared(ctx, user, entity); err != nil {
		return err
	}
	return m.addFavourite(ctx, user, entity)
}

// AddFavouriteInPosition adds entity and then moves it to position within the
// user's visible favourites. position is clamped to the list bounds
func (m *DefaultManager) AddFavouriteInPosition(ctx context.Context, user *User, entity *SharedEntity, position int) (err error) {
	defer recordOperation(ctx, opAddInPosition, time.Now(), &err)

	if err := validate(user, entity); err != nil {
		return err
	}
	if err := m.checkShared(ctx, user, entity); err != nil {
		return err
	}
	if err := m.addFavourite(ctx, user, entity); err != nil {
		return err
	}
	return m.reorderFavourites(ctx, user, entity.Type, entity.ID, MoveToPositionReorder(position))
}

// RemoveFavourite never checks permissions, users may remove favourites they can no longer see
func (m *DefaultManager) RemoveFavourite(ctx context.Context, user *User, entity *SharedEntity) (err error) {
	defer recordOperation(ctx, opRemove, time.Now(), &err)

	if err := validate(user, entity); err != nil {
		return err
	}
	return m.removeFavourite(ctx, user, entity.Identifier)
}

func (m *DefaultManager) IsFavourite(ctx context.Context, user *User, entity *SharedEntity) (_ bool, err error) {
	defer recordOperation(ctx, opIsFavourite, time.Now(), &err)

	if err := validate(user, entity); err != nil {
		return false, err
	}
	if err := m.checkShared(ctx, user, entity); err != nil {
		return false, err
	}

	ids, err := m.store.GetFavouriteIDs(ctx, user.Key, entity.Type)
	if err != nil {
		return false, fmt.Errorf("failed to get favourites: %w", err)
	}
	return slices.Contains(ids, entity.ID), nil
}

// GetFavouriteIDs returns the raw ordered ids. They are not filtered, so the
// list may include entities the user can no longer see or that were deleted
func (m *DefaultManager) GetFavouriteIDs(ctx context.Context, user *User, entityType EntityType) (_ []int64, err error) {
	defer recordOperation(ctx, opGetIDs, time.Now(), &err)

	if !user.valid() || entityType == "" {
		return nil, fmt.Errorf("%w: user and entity type are required", ErrInvalidArgument)
	}

	ids, err := m.store.GetFavouriteIDs(ctx, user.Key, entityType)
	if err != nil {
		return nil, fmt.Errorf("failed to get favourites: %w", err)
	}
	return ids, nil
}

// GetFavouriteEntities resolves the user's favourites to the entities they can
// still use, in favourite order. Unlike a reorder it never mutates the store
func (m *DefaultManager) GetFavouriteEntities(ctx context.Context, user *User, entityType EntityType) (_ []*SharedEntity, err error) {
	defer recordOperation(ctx, opGetEntities, time.Now(), &err)

	if !user.valid() || entityType == "" {
		return nil, fmt.Errorf("%w: user and entity type are required", ErrInvalidArgument)
	}
	accessor, err := m.accessor(entityType)
	if err != nil {
		return nil, err
	}

	ids, err := m.store.GetFavouriteIDs(ctx, user.Key, entityType)
	if err != nil {
		return nil, fmt.Errorf("failed to get favourites: %w", err)
	}

	entities := make([]*SharedEntity, 0, len(ids))
	for _, id := range ids {
		entity, err := accessor.GetSharedEntity(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve %s:%d: %w", entityType, id, err)
		}
		if entity == nil {
			continue
		}
		ok, err := accessor.HasPermissionToUse(ctx, user, entity)
		if err != nil {
			return nil, fmt.Errorf("failed to check permission on %s: %w", entity.Identifier, err)
		}
		if ok {
			entities = append(entities, entity)
		}
	}
	return entities, nil
}

// RemoveFavouritesForUser removes the user's favourites one by one so each
// removal adjusts the favourite count of its entity
func (m *DefaultManager) RemoveFavouritesForUser(ctx context.Context, user *User, entityType EntityType) (err error) {
	defer recordOperation(ctx, opRemoveForUser, time.Now(), &err)

	if !user.valid() || entityType == "" {
		return fmt.Errorf("%w: user and entity type are required", ErrInvalidArgument)
	}

	ids, err := m.store.GetFavouriteIDs(ctx, user.Key, entityType)
	if err != nil {
		return fmt.Errorf("failed to get favourites: %w", err)
	}
	for _, id := range ids {
		if err := m.removeFavourite(ctx, user, Identifier{ID: id, Type: entityType}); err != nil {
			return err
		}
	}
	return nil
}

// RemoveFavouritesForEntityDelete drops entity from every user's favourites.
// Favourite counts are left alone since the entity is going away
func (m *DefaultManager) RemoveFavouritesForEntityDelete(ctx context.Context, entity Identifier) (err error) {
	defer recordOperation(ctx, opRemoveForEntity, time.Now(), &err)

	if !entity.valid() {
		return fmt.Errorf("%w: entity id and type are required", ErrInvalidArgument)
	}
	if err := m.store.RemoveFavouritesForEntity(ctx, entity); err != nil {
		return fmt.Errorf("failed to remove favourites for %s: %w", entity, err)
	}

	logger.Logger(ctx).WithField("entity", entity.String()).Info("removed favourites for deleted entity")
	return nil
}

// IncreaseFavouriteSequence moves entity one step towards the end of the list
func (m *DefaultManager) IncreaseFavouriteSequence(ctx context.Context, user *User, entity *SharedEntity) error {
	return m.reorder(ctx, user, entity, IncreaseReorder())
}

// DecreaseFavouriteSequence moves entity one step towards the start of the list
func (m *DefaultManager) DecreaseFavouriteSequence(ctx context.Context, user *User, entity *SharedEntity) error {
	return m.reorder(ctx, user, entity, DecreaseReorder())
}

func (m *DefaultManager) MoveToStartFavouriteSequence(ctx context.Context, user *User, entity *SharedEntity) error {
	return m.reorder(ctx, user, entity, MoveToStartReorder())
}

func (m *DefaultManager) MoveToEndFavouriteSequence(ctx context.Context, user *User, entity *SharedEntity) error {
	return m.reorder(ctx, user, entity, MoveToEndReorder())
}

// CompactFavourites runs the clean up half of a reorder without moving anything:
// deleted entities are removed and entities the user lost access to go last
func (m *DefaultManager) CompactFavourites(ctx context.Context, user *User, entityType EntityType) (err error) {
	defer recordOperation(ctx, opCompact, time.Now(), &err)

	if !user.valid() || entityType == "" {
		return fmt.Errorf("%w: user and entity type are required", ErrInvalidArgument)
	}
	return m.reorderFavourites(ctx, user, entityType, 0, NoReorder())
}

func (m *DefaultManager) reorder(ctx context.Context, user *User, entity *SharedEntity, cmd ReorderCommand) (err error) {
	defer recordOperation(ctx, opReorderPrefix+cmd.String(), time.Now(), &err)

	if err := validate(user, entity); err != nil {
		return err
	}
	return m.reorderFavourites(ctx, user, entity.Type, entity.ID, cmd)
}

// favouriteBuckets is the result of resolving a favourites list
type favouriteBuckets struct {
	live         []int64
	noPermission []int64
	dead         []int64
}

// reorderFavourites repositions target among the live favourites, demotes the
// ones the user can no longer use to the tail, deletes the ones whose entity is
// gone and persists the resulting order. A target that is not live is not moved
// but the list is still cleaned up
func (m *DefaultManager) reorderFavourites(ctx context.Context, user *User, entityType EntityType, target int64, cmd ReorderCommand) error {
	log := logger.Logger(ctx).WithFields(logrus.Fields{
		"user":       user.Key,
		"entityType": entityType.String(),
		"reorder":    cmd.String(),
	})

	accessor, err := m.accessor(entityType)
	if err != nil {
		return err
	}

	ids, err := m.store.GetFavouriteIDs(ctx, user.Key, entityType)
	if err != nil {
		return fmt.Errorf("failed to get favourites: %w", err)
	}

	buckets, err := m.resolve(ctx, user, accessor, entityType, ids)
	if err != nil {
		return err
	}

	live := buckets.live
	if index := slices.Index(live, target); index >= 0 {
		live = cmd.Apply(live, index)
	} else if target > 0 {
		log.WithField("entityId", target).Debug("target is not a usable favourite, skipping move")
	}
	ordered := make([]int64, 0, len(ids))
	ordered = append(ordered, live...)
	ordered = append(ordered, buckets.noPermission...)

	removed := 0
	for _, id := range buckets.dead {
		placeholder := Identifier{ID: id, Type: entityType}
		if _, err := m.store.RemoveFavourite(ctx, user.Key, placeholder); err != nil {
			log.WithError(err).WithField("entityId", id).Warn("failed to remove favourite of deleted entity")
			continue
		}
		removed++
	}
	if removed > 0 {
		log.WithField("removed", removed).Info("removed favourites of deleted entities")
		telemetry.GetFavouritesMetrics().RecordDeadEntriesRemoved(ctx, entityType.String(), removed)
	}

	if err := m.store.UpdateSequence(ctx, user.Key, entityType, ordered); err != nil {
		return fmt.Errorf("failed to update favourites sequence: %w", err)
	}
	return nil
}

func (m *DefaultManager) resolve(ctx context.Context, user *User, accessor Accessor, entityType EntityType, ids []int64) (favouriteBuckets, error) {
	var b favouriteBuckets
	for _, id := range ids {
		entity, err := accessor.GetSharedEntity(ctx, id)
		if err != nil {
			return b, fmt.Errorf("failed to resolve %s:%d: %w", entityType, id, err)
		}
		if entity == nil {
			b.dead = append(b.dead, id)
			continue
		}

		ok, err := accessor.HasPermissionToUse(ctx, user, entity)
		if err != nil {
			return b, fmt.Errorf("failed to check permission on %s: %w", entity.Identifier, err)
		}
		if ok {
			b.live = append(b.live, id)
		} else {
			b.noPermission = append(b.noPermission, id)
		}
	}
	return b, nil
}

func (m *DefaultManager) addFavourite(ctx context.Context, user *User, entity *SharedEntity) error {
	added, err := m.store.AddFavourite(ctx, user.Key, entity.Identifier)
	if err != nil {
		return fmt.Errorf("failed to add favourite %s: %w", entity.Identifier, err)
	}
	if !added {
		return nil
	}
	return m.adjustFavouriteCount(ctx, entity.Identifier, 1)
}

func (m *DefaultManager) removeFavourite(ctx context.Context, user *User, entity Identifier) error {
	removed, err := m.store.RemoveFavourite(ctx, user.Key, entity)
	if err != nil {
		return fmt.Errorf("failed to remove favourite %s: %w", entity, err)
	}
	if !removed {
		return nil
	}
	return m.adjustFavouriteCount(ctx, entity, -1)
}

// adjustFavouriteCount is skipped when the entity type has no accessor or the
// accessor keeps no count
func (m *DefaultManager) adjustFavouriteCount(ctx context.Context, entity Identifier, delta int64) error {
	accessor, ok := m.accessors.Accessor(entity.Type)
	if !ok {
		return nil
	}
	adjuster, ok := accessor.(CountAdjuster)
	if !ok {
		return nil
	}
	if err := adjuster.AdjustFavouriteCount(ctx, entity, delta); err != nil {
		return fmt.Errorf("failed to adjust favourite count of %s: %w", entity, err)
	}
	return nil
}

func (m *DefaultManager) checkShared(ctx context.Context, user *User, entity *SharedEntity) error {
	ok, err := m.shares.IsSharedWith(ctx, user, entity)
	if err != nil {
		return fmt.Errorf("failed to check share permission on %s: %w", entity.Identifier, err)
	}
	if !ok {
		return fmt.Errorf("%w: %s is not shared with user %s", ErrPermissionDenied, entity.Identifier, user.Key)
	}
	return nil
}

func (m *DefaultManager) accessor(entityType EntityType) (Accessor, error) {
	accessor, ok := m.accessors.Accessor(entityType)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoAccessor, entityType)
	}
	return accessor, nil
}

func validate(user *User, entity *SharedEntity) error {
	if !user.valid() {
		return fmt.Errorf("%w: user is required", ErrInvalidArgument)
	}
	if entity == nil {
		return fmt.Errorf("%w: entity is required", ErrInvalidArgument)
	}
	if entity.Type == "" {
		return fmt.Errorf("%w: entity type is required", ErrInvalidArgument)
	}
	if entity.ID <= 0 {
		return fmt.Errorf("%w: entity id is required", ErrInvalidArgument)
	}
	return nil
}

func recordOperation(ctx context.Context, operation string, start time.Time, err *error) {
	telemetry.GetFavouritesMetrics().RecordOperation(ctx, operation, start, *err)
}
