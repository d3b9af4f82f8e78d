package sharedentity

import (
	"context"
	"testing"

	"github.com/redhat-data-and-ai/favourites/pkg/favourites"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupAccessor(t *testing.T) *MemoryAccessor {
	t.Helper()
	a := NewMemoryAccessor(favourites.EntityTypeSearchRequest)
	a.Put(favourites.SharedEntity{Identifier: favourites.Identifier{ID: 1, OwnerKey: "alice"}, Name: "mine"}, false)
	a.Put(favourites.SharedEntity{Identifier: favourites.Identifier{ID: 2, OwnerKey: "bob"}, Name: "public"}, true)
	a.Put(favourites.SharedEntity{Identifier: favourites.Identifier{ID: 3, OwnerKey: "bob"}, Name: "granted"}, false, "alice")
	a.Put(favourites.SharedEntity{Identifier: favourites.Identifier{ID: 4, OwnerKey: "bob"}, Name: "private"}, false)
	return a
}

func TestMemoryAccessor_GetSharedEntity(t *testing.T) {
	ctx := context.Background()
	a := setupAccessor(t)

	entity, err := a.GetSharedEntity(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, entity)
	assert.Equal(t, favourites.EntityTypeSearchRequest, entity.Type)
	assert.Equal(t, "mine", entity.Name)

	a.Delete(1)
	entity, err = a.GetSharedEntity(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, entity)
}

func TestMemoryAccessor_HasPermissionToUse(t *testing.T) {
	ctx := context.Background()
	alice := &favourites.User{Key: "alice"}

	tests := []struct {
		name  string
		user  *favourites.User
		id    int64
		setup func(a *MemoryAccessor)
		want  bool
	}{
		{name: "owner", user: alice, id: 1, want: true},
		{name: "public entity", user: alice, id: 2, want: true},
		{name: "granted entity", user: alice, id: 3, want: true},
		{name: "private entity", user: alice, id: 4, want: false},
		{name: "revoked grant", user: alice, id: 3, setup: func(a *MemoryAccessor) { a.Revoke(3, "alice") }, want: false},
		{name: "made private", user: alice, id: 2, setup: func(a *MemoryAccessor) { a.SetPublic(2, false) }, want: false},
		{name: "new grant", user: alice, id: 4, setup: func(a *MemoryAccessor) { a.Grant(4, "alice") }, want: true},
		{name: "nil user", user: nil, id: 2, want: false},
		{name: "deleted entity", user: alice, id: 1, setup: func(a *MemoryAccessor) { a.Delete(1) }, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := setupAccessor(t)
			entity := &favourites.SharedEntity{Identifier: favourites.Identifier{ID: tt.id, Type: favourites.EntityTypeSearchRequest}}
			if tt.setup != nil {
				tt.setup(a)
			}

			got, err := a.HasPermissionToUse(ctx, tt.user, entity)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMemoryAccessor_AdjustFavouriteCount(t *testing.T) {
	ctx := context.Background()
	a := setupAccessor(t)
	id := favourites.Identifier{ID: 1, Type: favourites.EntityTypeSearchRequest}

	require.NoError(t, a.AdjustFavouriteCount(ctx, id, 1))
	require.NoError(t, a.AdjustFavouriteCount(ctx, id, 1))
	assert.Equal(t, int64(2), a.FavouriteCount(1))

	require.NoError(t, a.AdjustFavouriteCount(ctx, id, -5))
	assert.Zero(t, a.FavouriteCount(1))

	// unknown entities are ignored
	assert.NoError(t, a.AdjustFavouriteCount(ctx, favourites.Identifier{ID: 99}, 1))
}

func TestRegistry(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry()

	_, ok := r.Accessor(favourites.EntityTypeSearchRequest)
	assert.False(t, ok)

	a := setupAccessor(t)
	r.Register(favourites.EntityTypeSearchRequest, a)
	r.Register(favourites.EntityTypePortalPage, NewMemoryAccessor(favourites.EntityTypePortalPage))

	got, ok := r.Accessor(favourites.EntityTypeSearchRequest)
	require.True(t, ok)
	assert.Same(t, a, got)
	assert.Equal(t, []favourites.EntityType{favourites.EntityTypePortalPage, favourites.EntityTypeSearchRequest}, r.Types())

	alice := &favourites.User{Key: "alice"}
	shared, err := r.IsSharedWith(ctx, alice, &favourites.SharedEntity{Identifier: favourites.Identifier{ID: 3, Type: favourites.EntityTypeSearchRequest}})
	require.NoError(t, err)
	assert.True(t, shared)

	shared, err = r.IsSharedWith(ctx, alice, &favourites.SharedEntity{Identifier: favourites.Identifier{ID: 4, Type: favourites.EntityTypeSearchRequest}})
	require.NoError(t, err)
	assert.False(t, shared)

	_, err = r.IsSharedWith(ctx, alice, &favourites.SharedEntity{Identifier: favourites.Identifier{ID: 1, Type: "Dashboard"}})
	assert.ErrorIs(t, err, favourites.ErrNoAccessor)
}
