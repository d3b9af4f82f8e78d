/*
Copyright 2025.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package entityservice

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/redhat-data-and-ai/favourites/pkg/favourites"
)

// entityResponse is the entity representation returned by the service
type entityResponse struct {
	ID             int64  `json:"id"`
	Type           string `json:"type"`
	OwnerKey       string `json:"ownerKey"`
	Name           string `json:"name"`
	FavouriteCount int64  `json:"favouriteCount"`
}

type permissionResponse struct {
	Allowed bool `json:"allowed"`
}

type countRequest struct {
	Delta int64 `json:"delta"`
}

// Accessor resolves entities of a single type through the entity service
type Accessor struct {
	client     *Client
	entityType favourites.EntityType
}

var (
	_ favourites.Accessor      = (*Accessor)(nil)
	_ favourites.ShareChecker  = (*Accessor)(nil)
	_ favourites.CountAdjuster = (*Accessor)(nil)
)

// GetSharedEntity returns nil, nil when the service answers 404
func (a *Accessor) GetSharedEntity(ctx context.Context, id int64) (*favourites.SharedEntity, error) {
	var resp entityResponse
	err := a.client.sendRequest(ctx, http.MethodGet, a.client.entityURL(a.entityType, id), nil, &resp)
	if errors.Is(err, errNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s:%d: %w", a.entityType, id, err)
	}

	return &favourites.SharedEntity{
		Identifier: favourites.Identifier{
			ID:       resp.ID,
			Type:     a.entityType,
			OwnerKey: resp.OwnerKey,
		},
		Name:           resp.Name,
		FavouriteCount: resp.FavouriteCount,
	}, nil
}

// HasPermissionToUse asks the service. An entity it no longer knows is not usable
func (a *Accessor) HasPermissionToUse(ctx context.Context, user *favourites.User, entity *favourites.SharedEntity) (bool, error) {
	if user == nil || entity == nil {
		return false, nil
	}

	endpoint := a.client.entityURL(a.entityType, entity.ID, "permission") + "?user=" + url.QueryEscape(user.Key)
	var resp permissionResponse
	err := a.client.sendRequest(ctx, http.MethodGet, endpoint, nil, &resp)
	if errors.Is(err, errNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check permission on %s: %w", entity.Identifier, err)
	}
	return resp.Allowed, nil
}

func (a *Accessor) IsSharedWith(ctx context.Context, user *favourites.User, entity *favourites.SharedEntity) (bool, error) {
	return a.HasPermissionToUse(ctx, user, entity)
}

// AdjustFavouriteCount ignores entities the service no longer knows. The
// delta is sent once, a failed call is reported and not repeated
func (a *Accessor) AdjustFavouriteCount(ctx context.Context, entity favourites.Identifier, delta int64) error {
	endpoint := a.client.entityURL(a.entityType, entity.ID, "favourite-count")
	err := a.client.sendRequestOnce(ctx, http.MethodPost, endpoint, countRequest{Delta: delta}, nil)
	if err != nil && !errors.Is(err, errNotFound) {
		return fmt.Errorf("failed to adjust favourite count of %s: %w", entity, err)
	}
	return nil
}
