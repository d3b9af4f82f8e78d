package badgerstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/fxamacker/cbor/v2"
	"github.com/redhat-data-and-ai/favourites/pkg/favourites"
)

const (
	partitionPrefix = "fav/"
	entityPrefix    = "favent/"
)

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("badgerstore: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("badgerstore: CBOR decoder initialization failed: " + err.Error())
	}
}

// Store keeps each (user, entity type) partition as one CBOR encoded ordered
// id list, so the position in the list is the sequence and stays dense.
// A reverse index favent/<type>/<id>/<user> finds the users of an entity
type Store struct {
	db *badger.DB
	gc *gcRunner
}

var (
	_ favourites.Store           = (*Store)(nil)
	_ favourites.PartitionLister = (*Store)(nil)
)

// Open opens the database and starts value log GC when configured
func Open(cfg Config) (*Store, error) {
	db, err := openDB(cfg)
	if err != nil {
		return nil, err
	}

	s := &Store{db: db}
	if cfg.GCInterval > 0 && !cfg.InMemory {
		runner, err := newGCRunner(db, cfg.GCInterval, cfg.GCDiscardRatio)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to create GC runner: %w", err)
		}
		s.gc = runner
		runner.start()
	}
	return s, nil
}

func (s *Store) Close() error {
	if s.gc != nil {
		s.gc.stop()
	}
	return s.db.Close()
}

func partitionKey(userKey string, entityType favourites.EntityType) []byte {
	return []byte(partitionPrefix + string(entityType) + "/" + userKey)
}

func entityKeyPrefix(entity favourites.Identifier) []byte {
	return []byte(entityPrefix + string(entity.Type) + "/" + strconv.FormatInt(entity.ID, 10) + "/")
}

func entityKey(entity favourites.Identifier, userKey string) []byte {
	return append(entityKeyPrefix(entity), userKey...)
}

func (s *Store) AddFavourite(ctx context.Context, userKey string, entity favourites.Identifier) (bool, error) {
	added := false
	err := s.update(ctx, func(txn *badger.Txn) error {
		ids, err := readIDs(txn, partitionKey(userKey, entity.Type))
		if err != nil {
			return err
		}
		if slices.Contains(ids, entity.ID) {
			return nil
		}

		if err := writeIDs(txn, partitionKey(userKey, entity.Type), append(ids, entity.ID)); err != nil {
			return err
		}
		if err := txn.Set(entityKey(entity, userKey), []byte{}); err != nil {
			return err
		}
		added = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to add favourite: %w", err)
	}
	return added, nil
}

func (s *Store) RemoveFavourite(ctx context.Context, userKey string, entity favourites.Identifier) (bool, error) {
	removed := false
	err := s.update(ctx, func(txn *badger.Txn) error {
		var err error
		removed, err = removeFromPartition(txn, userKey, entity)
		return err
	})
	if err != nil {
		return false, fmt.Errorf("failed to remove favourite: %w", err)
	}
	return removed, nil
}

func (s *Store) IsFavourite(ctx context.Context, userKey string, entity favourites.Identifier) (bool, error) {
	ids, err := s.GetFavouriteIDs(ctx, userKey, entity.Type)
	if err != nil {
		return false, err
	}
	return slices.Contains(ids, entity.ID), nil
}

// GetFavouriteIDs returns nil for users without favourites of entityType
func (s *Store) GetFavouriteIDs(ctx context.Context, userKey string, entityType favourites.EntityType) ([]int64, error) {
	var ids []int64
	err := s.view(ctx, func(txn *badger.Txn) error {
		var err error
		ids, err = readIDs(txn, partitionKey(userKey, entityType))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get favourites: %w", err)
	}
	return ids, nil
}

func (s *Store) RemoveFavouritesForUser(ctx context.Context, userKey string, entityType favourites.EntityType) error {
	err := s.update(ctx, func(txn *badger.Txn) error {
		key := partitionKey(userKey, entityType)
		ids, err := readIDs(txn, key)
		if err != nil {
			return err
		}
		for _, id := range ids {
			if err := txn.Delete(entityKey(favourites.Identifier{ID: id, Type: entityType}, userKey)); err != nil {
				return err
			}
		}
		return txn.Delete(key)
	})
	if err != nil {
		return fmt.Errorf("failed to remove favourites for user: %w", err)
	}
	return nil
}

func (s *Store) RemoveFavouritesForEntity(ctx context.Context, entity favourites.Identifier) error {
	err := s.update(ctx, func(txn *badger.Txn) error {
		prefix := entityKeyPrefix(entity)

		var users []string
		it := txn.NewIterator(badger.IteratorOptions{PrefetchValues: false, Prefix: prefix})
		for it.Rewind(); it.Valid(); it.Next() {
			users = append(users, string(bytes.TrimPrefix(it.Item().KeyCopy(nil), prefix)))
		}
		it.Close()

		for _, userKey := range users {
			if _, err := removeFromPartition(txn, userKey, entity); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to remove favourites for entity: %w", err)
	}
	return nil
}

// UpdateSequence orders the partition as ids. Favourites missing from ids keep
// their relative order after the listed ones and unknown ids are ignored
func (s *Store) UpdateSequence(ctx context.Context, userKey string, entityType favourites.EntityType, ids []int64) error {
	err := s.update(ctx, func(txn *badger.Txn) error {
		key := partitionKey(userKey, entityType)
		current, err := readIDs(txn, key)
		if err != nil {
			return err
		}
		if len(current) == 0 {
			return nil
		}

		ordered := make([]int64, 0, len(current))
		seen := make(map[int64]struct{}, len(current))
		for _, id := range ids {
			if _, dup := seen[id]; dup || !slices.Contains(current, id) {
				continue
			}
			seen[id] = struct{}{}
			ordered = append(ordered, id)
		}
		for _, id := range current {
			if _, ok := seen[id]; !ok {
				ordered = append(ordered, id)
			}
		}
		return writeIDs(txn, key, ordered)
	})
	if err != nil {
		return fmt.Errorf("failed to update favourites sequence: %w", err)
	}
	return nil
}

// ListPartitions returns every (user, entity type) pair holding favourites
func (s *Store) ListPartitions(ctx context.Context) ([]favourites.Partition, error) {
	var partitions []favourites.Partition
	err := s.view(ctx, func(txn *badger.Txn) error {
		prefix := []byte(partitionPrefix)
		it := txn.NewIterator(badger.IteratorOptions{PrefetchValues: false, Prefix: prefix})
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			rest := strings.TrimPrefix(string(it.Item().Key()), partitionPrefix)
			entityType, userKey, ok := strings.Cut(rest, "/")
			if !ok {
				continue
			}
			partitions = append(partitions, favourites.Partition{
				UserKey:    userKey,
				EntityType: favourites.EntityType(entityType),
			})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list partitions: %w", err)
	}
	return partitions, nil
}

// Associations returns the rows of one partition, sequence included
func (s *Store) Associations(ctx context.Context, userKey string, entityType favourites.EntityType) ([]favourites.Association, error) {
	ids, err := s.GetFavouriteIDs(ctx, userKey, entityType)
	if err != nil {
		return nil, err
	}
	rows := make([]favourites.Association, len(ids))
	for i, id := range ids {
		rows[i] = favourites.Association{UserKey: userKey, EntityType: entityType, EntityID: id, Sequence: i}
	}
	return rows, nil
}

func (s *Store) update(ctx context.Context, fn func(txn *badger.Txn) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(fn)
}

func (s *Store) view(ctx context.Context, fn func(txn *badger.Txn) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.View(fn)
}

func removeFromPartition(txn *badger.Txn, userKey string, entity favourites.Identifier) (bool, error) {
	key := partitionKey(userKey, entity.Type)
	ids, err := readIDs(txn, key)
	if err != nil {
		return false, err
	}
	index := slices.Index(ids, entity.ID)
	if index < 0 {
		return false, nil
	}

	ids = slices.Delete(ids, index, index+1)
	if len(ids) == 0 {
		err = txn.Delete(key)
	} else {
		err = writeIDs(txn, key, ids)
	}
	if err != nil {
		return false, err
	}
	return true, txn.Delete(entityKey(entity, userKey))
}

func readIDs(txn *badger.Txn, key []byte) ([]int64, error) {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var ids []int64
	err = item.Value(func(val []byte) error {
		return decMode.Unmarshal(val, &ids)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to decode favourites of %s: %w", key, err)
	}
	return ids, nil
}

func writeIDs(txn *badger.Txn, key []byte, ids []int64) error {
	data, err := encMode.Marshal(ids)
	if err != nil {
		return fmt.Errorf("failed to encode favourites: %w", err)
	}
	return txn.Set(key, data)
}
