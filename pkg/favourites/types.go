package favourites

import "fmt"

// EntityType discriminates the kind of shared entity a favourite points at
type EntityType string

const (
	EntityTypeSearchRequest EntityType = "SearchRequest"
	EntityTypePortalPage    EntityType = "PortalPage"
)

func (t EntityType) String() string {
	return string(t)
}

// User is the acting user. A nil *User or an empty Key is treated as no user
type User struct {
	Key  string `json:"key"`
	Name string `json:"name,omitempty"`
}

func (u *User) valid() bool {
	return u != nil && u.Key != ""
}

// Identifier points at a shared entity without resolving it.
// It is also used as a placeholder for entities that no longer exist
type Identifier struct {
	ID       int64      `json:"id"`
	Type     EntityType `json:"type"`
	OwnerKey string     `json:"ownerKey,omitempty"`
}

func (i Identifier) String() string {
	return fmt.Sprintf("%s:%d", i.Type, i.ID)
}

func (i Identifier) valid() bool {
	return i.ID > 0 && i.Type != ""
}

// SharedEntity is an entity that can be shared with users and favourited by them
type SharedEntity struct {
	Identifier
	Name           string `json:"name"`
	FavouriteCount int64  `json:"favouriteCount"`
}

// Association is a single persisted favourite row
// Sequence is dense and zero based within a (UserKey, EntityType) partition
type Association struct {
	UserKey    string     `json:"userKey"`
	EntityType EntityType `json:"entityType"`
	EntityID   int64      `json:"entityId"`
	Sequence   int        `json:"sequence"`
}

// Partition identifies one user's favourites of a single entity type
type Partition struct {
	UserKey    string     `json:"userKey"`
	EntityType EntityType `json:"entityType"`
}
