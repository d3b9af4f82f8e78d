package entityservice

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redhat-data-and-ai/favourites/pkg/favourites"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sr = favourites.EntityTypeSearchRequest

func setupClient(t *testing.T, handler http.HandlerFunc, retries int) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	c, err := NewClient(Config{URL: server.URL + "/", APIToken: "secret", Timeout: time.Second, RetryCount: retries})
	require.NoError(t, err)
	return c
}

func TestNewClient_Validation(t *testing.T) {
	_, err := NewClient(Config{})
	assert.Error(t, err)

	_, err = NewClient(Config{URL: "not a url"})
	assert.Error(t, err)
}

func TestAccessor_GetSharedEntity(t *testing.T) {
	c := setupClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		switch r.URL.Path {
		case "/api/v1/entities/SearchRequest/4":
			_ = json.NewEncoder(w).Encode(entityResponse{ID: 4, Type: "SearchRequest", OwnerKey: "bob", Name: "open bugs", FavouriteCount: 3})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}, 0)
	a := c.Accessor(sr)

	entity, err := a.GetSharedEntity(context.Background(), 4)
	require.NoError(t, err)
	assert.Equal(t, &favourites.SharedEntity{
		Identifier:     favourites.Identifier{ID: 4, Type: sr, OwnerKey: "bob"},
		Name:           "open bugs",
		FavouriteCount: 3,
	}, entity)

	entity, err = a.GetSharedEntity(context.Background(), 5)
	require.NoError(t, err)
	assert.Nil(t, entity)
}

func TestAccessor_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	c := setupClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_ = json.NewEncoder(w).Encode(entityResponse{ID: 4, OwnerKey: "bob"})
	}, 2)

	entity, err := c.Accessor(sr).GetSharedEntity(context.Background(), 4)
	require.NoError(t, err)
	require.NotNil(t, entity)
	assert.Equal(t, int32(2), calls.Load())
}

func TestAccessor_ServerError(t *testing.T) {
	c := setupClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("database down"))
	}, 0)

	_, err := c.Accessor(sr).GetSharedEntity(context.Background(), 4)
	assert.ErrorContains(t, err, "database down")
}

func TestAccessor_HasPermissionToUse(t *testing.T) {
	c := setupClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/entities/SearchRequest/4/permission", r.URL.Path)
		allowed := r.URL.Query().Get("user") == "ldap/alice"
		_ = json.NewEncoder(w).Encode(permissionResponse{Allowed: allowed})
	}, 0)
	a := c.Accessor(sr)
	entity := &favourites.SharedEntity{Identifier: favourites.Identifier{ID: 4, Type: sr}}

	ok, err := a.HasPermissionToUse(context.Background(), &favourites.User{Key: "ldap/alice"}, entity)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = a.IsSharedWith(context.Background(), &favourites.User{Key: "carol"}, entity)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = a.HasPermissionToUse(context.Background(), nil, entity)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAccessor_AdjustFavouriteCount(t *testing.T) {
	var got countRequest
	c := setupClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		if r.URL.Path != "/api/v1/entities/SearchRequest/4/favourite-count" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}, 0)
	a := c.Accessor(sr)

	require.NoError(t, a.AdjustFavouriteCount(context.Background(), favourites.Identifier{ID: 4, Type: sr}, -1))
	assert.Equal(t, int64(-1), got.Delta)

	// a deleted entity has no count to adjust
	assert.NoError(t, a.AdjustFavouriteCount(context.Background(), favourites.Identifier{ID: 9, Type: sr}, 1))
}

func TestAccessor_AdjustFavouriteCountIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	c := setupClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}, 3)

	err := c.Accessor(sr).AdjustFavouriteCount(context.Background(), favourites.Identifier{ID: 4, Type: sr}, 1)
	assert.ErrorContains(t, err, "failed to adjust favourite count")
	assert.Equal(t, int32(1), calls.Load())
}
