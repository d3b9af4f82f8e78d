package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/redhat-data-and-ai/favourites/pkg/favourites"
)

const (
	queryAddFavourite = `INSERT INTO favourite_associations (user_key, entity_type, entity_id, sequence)
		SELECT $1, $2, $3, COUNT(*) FROM favourite_associations WHERE user_key = $1 AND entity_type = $2
		ON CONFLICT (user_key, entity_type, entity_id) DO NOTHING`

	queryRemoveFavourite = `DELETE FROM favourite_associations
		WHERE user_key = $1 AND entity_type = $2 AND entity_id = $3`

	queryIsFavourite = `SELECT EXISTS (SELECT 1 FROM favourite_associations
		WHERE user_key = $1 AND entity_type = $2 AND entity_id = $3)`

	queryFavouriteIDs = `SELECT entity_id FROM favourite_associations
		WHERE user_key = $1 AND entity_type = $2 ORDER BY sequence, id`

	queryAssociations = `SELECT entity_id, sequence FROM favourite_associations
		WHERE user_key = $1 AND entity_type = $2 ORDER BY sequence, id`

	queryRemoveForUser = `DELETE FROM favourite_associations WHERE user_key = $1 AND entity_type = $2`

	queryRemoveForEntity = `DELETE FROM favourite_associations
		WHERE entity_type = $1 AND entity_id = $2 RETURNING user_key`

	queryShiftSequence = `UPDATE favourite_associations SET sequence = sequence + $3
		WHERE user_key = $1 AND entity_type = $2`

	querySetSequence = `UPDATE favourite_associations SET sequence = $4
		WHERE user_key = $1 AND entity_type = $2 AND entity_id = $3`

	queryRenumber = `UPDATE favourite_associations AS f SET sequence = r.rn
		FROM (SELECT id, ROW_NUMBER() OVER (ORDER BY sequence, id) - 1 AS rn
			FROM favourite_associations WHERE user_key = $1 AND entity_type = $2) AS r
		WHERE f.id = r.id AND f.sequence <> r.rn`

	queryListPartitions = `SELECT DISTINCT user_key, entity_type FROM favourite_associations
		ORDER BY user_key, entity_type`
)

// Store persists favourites in the favourite_associations table.
// Every write that removes rows renumbers the partition in the same
// transaction so sequences stay dense and zero based
type Store struct {
	db *sql.DB
}

var (
	_ favourites.Store           = (*Store)(nil)
	_ favourites.PartitionLister = (*Store)(nil)
)

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) AddFavourite(ctx context.Context, userKey string, entity favourites.Identifier) (bool, error) {
	res, err := s.db.ExecContext(ctx, queryAddFavourite, userKey, string(entity.Type), entity.ID)
	if err != nil {
		return false, fmt.Errorf("failed to add favourite %s: %w", entity, err)
	}
	return affected(res)
}

func (s *Store) RemoveFavourite(ctx context.Context, userKey string, entity favourites.Identifier) (bool, error) {
	removed := false
	err := withTx(ctx, s.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, queryRemoveFavourite, userKey, string(entity.Type), entity.ID)
		if err != nil {
			return err
		}
		if removed, err = affected(res); err != nil || !removed {
			return err
		}
		return renumber(ctx, tx, userKey, entity.Type)
	})
	if err != nil {
		return false, fmt.Errorf("failed to remove favourite %s: %w", entity, err)
	}
	return removed, nil
}

func (s *Store) IsFavourite(ctx context.Context, userKey string, entity favourites.Identifier) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, queryIsFavourite, userKey, string(entity.Type), entity.ID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check favourite %s: %w", entity, err)
	}
	return exists, nil
}

func (s *Store) GetFavouriteIDs(ctx context.Context, userKey string, entityType favourites.EntityType) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, queryFavouriteIDs, userKey, string(entityType))
	if err != nil {
		return nil, fmt.Errorf("failed to query favourites: %w", err)
	}
	defer rows.Close()

	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan favourite: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate favourites: %w", err)
	}
	return ids, nil
}

// Associations returns the rows of one partition, sequence included
func (s *Store) Associations(ctx context.Context, userKey string, entityType favourites.EntityType) ([]favourites.Association, error) {
	rows, err := s.db.QueryContext(ctx, queryAssociations, userKey, string(entityType))
	if err != nil {
		return nil, fmt.Errorf("failed to query associations: %w", err)
	}
	defer rows.Close()

	var out []favourites.Association
	for rows.Next() {
		a := favourites.Association{UserKey: userKey, EntityType: entityType}
		if err := rows.Scan(&a.EntityID, &a.Sequence); err != nil {
			return nil, fmt.Errorf("failed to scan association: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate associations: %w", err)
	}
	return out, nil
}

func (s *Store) RemoveFavouritesForUser(ctx context.Context, userKey string, entityType favourites.EntityType) error {
	if _, err := s.db.ExecContext(ctx, queryRemoveForUser, userKey, string(entityType)); err != nil {
		return fmt.Errorf("failed to remove favourites for user: %w", err)
	}
	return nil
}

// RemoveFavouritesForEntity deletes every row pointing at entity and
// renumbers each partition it was removed from
func (s *Store) RemoveFavouritesForEntity(ctx context.Context, entity favourites.Identifier) error {
	err := withTx(ctx, s.db, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, queryRemoveForEntity, string(entity.Type), entity.ID)
		if err != nil {
			return err
		}
		var users []string
		for rows.Next() {
			var userKey string
			if err := rows.Scan(&userKey); err != nil {
				rows.Close()
				return err
			}
			users = append(users, userKey)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		for _, userKey := range users {
			if err := renumber(ctx, tx, userKey, entity.Type); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to remove favourites for %s: %w", entity, err)
	}
	return nil
}

// UpdateSequence moves the listed ids to the front in the given order.
// Unlisted favourites are shifted past them, keeping their relative order, and
// the final renumber closes the gaps left by unknown ids
func (s *Store) UpdateSequence(ctx context.Context, userKey string, entityType favourites.EntityType, ids []int64) error {
	ordered := dedupe(ids)
	err := withTx(ctx, s.db, func(tx *sql.Tx) error {
		if len(ordered) > 0 {
			if _, err := tx.ExecContext(ctx, queryShiftSequence, userKey, string(entityType), len(ordered)); err != nil {
				return err
			}
		}
		for i, id := range ordered {
			if _, err := tx.ExecContext(ctx, querySetSequence, userKey, string(entityType), id, i); err != nil {
				return err
			}
		}
		return renumber(ctx, tx, userKey, entityType)
	})
	if err != nil {
		return fmt.Errorf("failed to update favourites sequence: %w", err)
	}
	return nil
}

func (s *Store) ListPartitions(ctx context.Context) ([]favourites.Partition, error) {
	rows, err := s.db.QueryContext(ctx, queryListPartitions)
	if err != nil {
		return nil, fmt.Errorf("failed to list partitions: %w", err)
	}
	defer rows.Close()

	var partitions []favourites.Partition
	for rows.Next() {
		var p favourites.Partition
		if err := rows.Scan(&p.UserKey, &p.EntityType); err != nil {
			return nil, fmt.Errorf("failed to scan partition: %w", err)
		}
		partitions = append(partitions, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate partitions: %w", err)
	}
	return partitions, nil
}

func renumber(ctx context.Context, ex execer, userKey string, entityType favourites.EntityType) error {
	if _, err := ex.ExecContext(ctx, queryRenumber, userKey, string(entityType)); err != nil {
		return fmt.Errorf("failed to renumber favourites: %w", err)
	}
	return nil
}

func affected(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n > 0, nil
}

func dedupe(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
