package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/redhat-data-and-ai/favourites/pkg/favourites"
	"github.com/redhat-data-and-ai/favourites/pkg/logger"
)

const (
	queryGetEntity = `SELECT id, owner_key, name, favourite_count FROM shared_entities
		WHERE entity_type = $1 AND id = $2`

	queryHasPermission = `SELECT EXISTS (
		SELECT 1 FROM shared_entities e
		WHERE e.entity_type = $1 AND e.id = $2
			AND (e.owner_key = $3 OR e.public OR EXISTS (
				SELECT 1 FROM shared_entity_grants g
				WHERE g.entity_type = e.entity_type AND g.entity_id = e.id AND g.user_key = $3)))`

	queryAdjustCount = `UPDATE shared_entities SET favourite_count = GREATEST(0, favourite_count + $3)
		WHERE entity_type = $1 AND id = $2`

	queryUpsertEntity = `INSERT INTO shared_entities (entity_type, id, owner_key, name, public)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (entity_type, id) DO UPDATE
		SET owner_key = EXCLUDED.owner_key, name = EXCLUDED.name, public = EXCLUDED.public`

	queryDeleteEntity = `DELETE FROM shared_entities WHERE entity_type = $1 AND id = $2`

	queryGrant = `INSERT INTO shared_entity_grants (entity_type, entity_id, user_key) VALUES ($1, $2, $3)`
)

// EntityAccessor resolves shared entities of one type from the shared_entities
// table. Visibility is owner, public flag or an explicit grant
type EntityAccessor struct {
	db         *sql.DB
	entityType favourites.EntityType
}

var (
	_ favourites.Accessor      = (*EntityAccessor)(nil)
	_ favourites.ShareChecker  = (*EntityAccessor)(nil)
	_ favourites.CountAdjuster = (*EntityAccessor)(nil)
)

func NewEntityAccessor(db *sql.DB, entityType favourites.EntityType) *EntityAccessor {
	return &EntityAccessor{db: db, entityType: entityType}
}

// GetSharedEntity returns nil, nil when the entity does not exist
func (a *EntityAccessor) GetSharedEntity(ctx context.Context, id int64) (*favourites.SharedEntity, error) {
	entity := &favourites.SharedEntity{Identifier: favourites.Identifier{Type: a.entityType}}
	err := a.db.QueryRowContext(ctx, queryGetEntity, string(a.entityType), id).
		Scan(&entity.ID, &entity.OwnerKey, &entity.Name, &entity.FavouriteCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s:%d: %w", a.entityType, id, err)
	}
	return entity, nil
}

func (a *EntityAccessor) HasPermissionToUse(ctx context.Context, user *favourites.User, entity *favourites.SharedEntity) (bool, error) {
	if user == nil || entity == nil {
		return false, nil
	}
	var ok bool
	err := a.db.QueryRowContext(ctx, queryHasPermission, string(a.entityType), entity.ID, user.Key).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("failed to check permission on %s: %w", entity.Identifier, err)
	}
	return ok, nil
}

// IsSharedWith uses the same rule as HasPermissionToUse
func (a *EntityAccessor) IsSharedWith(ctx context.Context, user *favourites.User, entity *favourites.SharedEntity) (bool, error) {
	return a.HasPermissionToUse(ctx, user, entity)
}

// AdjustFavouriteCount never lets the count drop below zero. Unknown entities are ignored
func (a *EntityAccessor) AdjustFavouriteCount(ctx context.Context, entity favourites.Identifier, delta int64) error {
	if _, err := a.db.ExecContext(ctx, queryAdjustCount, string(a.entityType), entity.ID, delta); err != nil {
		return fmt.Errorf("failed to adjust favourite count of %s: %w", entity, err)
	}
	return nil
}

// Put creates or replaces an entity, keeping its favourite count
func (a *EntityAccessor) Put(ctx context.Context, entity favourites.SharedEntity, public bool) error {
	_, err := a.db.ExecContext(ctx, queryUpsertEntity, string(a.entityType), entity.ID, entity.OwnerKey, entity.Name, public)
	if err != nil {
		return fmt.Errorf("failed to store %s:%d: %w", a.entityType, entity.ID, err)
	}
	return nil
}

// Delete removes the entity and its grants
func (a *EntityAccessor) Delete(ctx context.Context, id int64) error {
	if _, err := a.db.ExecContext(ctx, queryDeleteEntity, string(a.entityType), id); err != nil {
		return fmt.Errorf("failed to delete %s:%d: %w", a.entityType, id, err)
	}
	return nil
}

// Grant shares the entity with userKey. Granting twice is not an error
func (a *EntityAccessor) Grant(ctx context.Context, id int64, userKey string) error {
	_, err := a.db.ExecContext(ctx, queryGrant, string(a.entityType), id, userKey)
	if isUniqueViolation(err) {
		logger.Logger(ctx).WithField("entity", fmt.Sprintf("%s:%d", a.entityType, id)).
			WithField("user", userKey).Debug("entity already granted")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to grant %s:%d to %s: %w", a.entityType, id, userKey, err)
	}
	return nil
}
