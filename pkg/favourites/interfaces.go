package favourites

import "context"

//go:generate mockgen -destination=mocks/mock_store.go -package=mocks github.com/redhat-data-and-ai/favourites/pkg/favourites Store,ShareChecker,Accessor

// Store is the persistent favourites store
// Add and Remove report whether the store actually changed
type Store interface {
	// AddFavourite appends the entity at the end of the partition
	AddFavourite(ctx context.Context, userKey string, entity Identifier) (bool, error)

	// RemoveFavourite deletes the entity and renumbers the partition
	RemoveFavourite(ctx context.Context, userKey string, entity Identifier) (bool, error)

	IsFavourite(ctx context.Context, userKey string, entity Identifier) (bool, error)

	// GetFavouriteIDs returns ids ordered by sequence
	GetFavouriteIDs(ctx context.Context, userKey string, entityType EntityType) ([]int64, error)

	RemoveFavouritesForUser(ctx context.Context, userKey string, entityType EntityType) error

	// RemoveFavouritesForEntity removes the entity from every user's favourites
	RemoveFavouritesForEntity(ctx context.Context, entity Identifier) error

	// UpdateSequence rewrites the sequence of every listed id to its index
	UpdateSequence(ctx context.Context, userKey string, entityType EntityType, ids []int64) error
}

// ShareChecker decides whether an entity is visible to a user
type ShareChecker interface {
	IsSharedWith(ctx context.Context, user *User, entity *SharedEntity) (bool, error)
}

// Accessor resolves entities of one type
type Accessor interface {
	// GetSharedEntity returns nil, nil when the entity no longer exists
	GetSharedEntity(ctx context.Context, id int64) (*SharedEntity, error)

	HasPermissionToUse(ctx context.Context, user *User, entity *SharedEntity) (bool, error)
}

// CountAdjuster is implemented by accessors that keep a denormalised favourite count
type CountAdjuster interface {
	AdjustFavouriteCount(ctx context.Context, entity Identifier, delta int64) error
}

// AccessorRegistry maps entity types to their accessor
type AccessorRegistry interface {
	Register(entityType EntityType, accessor Accessor)
	Accessor(entityType EntityType) (Accessor, bool)
}

// PartitionLister is implemented by stores that can enumerate their partitions
type PartitionLister interface {
	ListPartitions(ctx context.Context) ([]Partition, error)
}

// Manager is the favourites API exposed to the HTTP layer and jobs
type Manager interface {
	AddFavourite(ctx context.Context, user *User, entity *SharedEntity) error
	AddFavouriteInPosition(ctx context.Context, user *User, entity *SharedEntity, position int) error
	RemoveFavourite(ctx context.Context, user *User, entity *SharedEntity) error
	IsFavourite(ctx context.Context, user *User, entity *SharedEntity) (bool, error)
	GetFavouriteIDs(ctx context.Context, user *User, entityType EntityType) ([]int64, error)
	GetFavouriteEntities(ctx context.Context, user *User, entityType EntityType) ([]*SharedEntity, error)
	RemoveFavouritesForUser(ctx context.Context, user *User, entityType EntityType) error
	RemoveFavouritesForEntityDelete(ctx context.Context, entity Identifier) error
	IncreaseFavouriteSequence(ctx context.Context, user *User, entity *SharedEntity) error
	DecreaseFavouriteSequence(ctx context.Context, user *User, entity *SharedEntity) error
	MoveToStartFavouriteSequence(ctx context.Context, user *User, entity *SharedEntity) error
	MoveToEndFavouriteSequence(ctx context.Context, user *User, entity *SharedEntity) error
	CompactFavourites(ctx context.Context, user *User, entityType EntityType) error
}
