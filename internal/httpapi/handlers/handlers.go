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

package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/redhat-data-and-ai/favourites/internal/httpapi/middleware"
	"github.com/redhat-data-and-ai/favourites/pkg/config"
	"github.com/redhat-data-and-ai/favourites/pkg/events"
	"github.com/redhat-data-and-ai/favourites/pkg/favourites"
	"github.com/redhat-data-and-ai/favourites/pkg/logger"
)

// UserHeader carries the acting user when authentication does not identify one,
// e.g. a trusted service calling with an API key
const UserHeader = "X-User-Key"

type Handlers struct {
	config    *config.AppConfig
	manager   favourites.Manager
	accessors favourites.AccessorRegistry
	publisher events.Publisher
}

func NewHandlers(cfg *config.AppConfig, manager favourites.Manager, accessors favourites.AccessorRegistry, publisher events.Publisher) *Handlers {
	return &Handlers{
		config:    cfg,
		manager:   manager,
		accessors: accessors,
		publisher: publisher,
	}
}

// FavouritesResponse lists a user's favourites of one type in order
type FavouritesResponse struct {
	User       string                     `json:"user"`
	EntityType string                     `json:"entityType"`
	IDs        []int64                    `json:"ids"`
	Entities   []*favourites.SharedEntity `json:"entities,omitempty"`
}

// MoveRequest is the body of the move endpoint
type MoveRequest struct {
	Direction string `json:"direction" binding:"required,oneof=increase decrease start end"`
}

// ClearCacheRequest is the optional body of the cache clear endpoint
type ClearCacheRequest struct {
	Reason string `json:"reason"`
}

// ListFavourites returns the ordered ids, resolved to usable entities when ?resolve=true
func (h *Handlers) ListFavourites(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	entityType := favourites.EntityType(c.Param("type"))
	ctx := c.Request.Context()

	ids, err := h.manager.GetFavouriteIDs(ctx, user, entityType)
	if err != nil {
		writeError(c, err)
		return
	}
	response := FavouritesResponse{User: user.Key, EntityType: entityType.String(), IDs: ids}

	if resolve, _ := strconv.ParseBool(c.Query("resolve")); resolve {
		entities, err := h.manager.GetFavouriteEntities(ctx, user, entityType)
		if err != nil {
			writeError(c, err)
			return
		}
		response.Entities = entities
	}

	c.JSON(http.StatusOK, response)
}

func (h *Handlers) IsFavourite(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	entity, ok := h.resolveEntity(c, false)
	if !ok {
		return
	}

	isFavourite, err := h.manager.IsFavourite(c.Request.Context(), user, entity)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"favourite": isFavourite})
}

// AddFavourite appends the entity, or inserts it at ?position=N
func (h *Handlers) AddFavourite(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	entity, ok := h.resolveEntity(c, false)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	var err error
	if raw, present := c.GetQuery("position"); present {
		position, convErr := strconv.Atoi(raw)
		if convErr != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "position must be an integer"})
			return
		}
		err = h.manager.AddFavouriteInPosition(ctx, user, entity, position)
	} else {
		err = h.manager.AddFavourite(ctx, user, entity)
	}
	if err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// RemoveFavourite works for entities that no longer exist
func (h *Handlers) RemoveFavourite(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	entity, ok := h.resolveEntity(c, true)
	if !ok {
		return
	}

	if err := h.manager.RemoveFavourite(c.Request.Context(), user, entity); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handlers) RemoveAllFavourites(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	err := h.manager.RemoveFavouritesForUser(c.Request.Context(), user, favourites.EntityType(c.Param("type")))
	if err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handlers) MoveFavourite(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var req MoveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	entity, ok := h.resolveEntity(c, true)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	var err error
	switch req.Direction {
	case "increase":
		err = h.manager.IncreaseFavouriteSequence(ctx, user, entity)
	case "decrease":
		err = h.manager.DecreaseFavouriteSequence(ctx, user, entity)
	case "start":
		err = h.manager.MoveToStartFavouriteSequence(ctx, user, entity)
	case "end":
		err = h.manager.MoveToEndFavouriteSequence(ctx, user, entity)
	}
	if err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handlers) CompactFavourites(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	err := h.manager.CompactFavourites(c.Request.Context(), user, favourites.EntityType(c.Param("type")))
	if err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// EntityDeleted is called by the entity owner when an entity is deleted
func (h *Handlers) EntityDeleted(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id must be an integer"})
		return
	}

	entity := favourites.Identifier{ID: id, Type: favourites.EntityType(c.Param("type"))}
	if err := h.manager.RemoveFavouritesForEntityDelete(c.Request.Context(), entity); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ClearCache broadcasts a clear cache event to every node
func (h *Handlers) ClearCache(c *gin.Context) {
	var req ClearCacheRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	event := events.NewClearCacheEvent(h.config.App.Name, req.Reason)
	if err := h.publisher.Publish(c.Request.Context(), event); err != nil {
		logger.Logger(c.Request.Context()).WithError(err).Error("failed to publish clear cache event")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to clear cache"})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"eventId": event.ID})
}

// resolveEntity loads the entity named by the :type and :id route params.
// With allowMissing an entity that no longer exists resolves to a placeholder
func (h *Handlers) resolveEntity(c *gin.Context, allowMissing bool) (*favourites.SharedEntity, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id must be a positive integer"})
		return nil, false
	}
	entityType := favourites.EntityType(c.Param("type"))

	accessor, ok := h.accessors.Accessor(entityType)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown entity type " + entityType.String()})
		return nil, false
	}

	entity, err := accessor.GetSharedEntity(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return nil, false
	}
	if entity == nil {
		if !allowMissing {
			c.JSON(http.StatusNotFound, gin.H{"error": "entity not found"})
			return nil, false
		}
		entity = &favourites.SharedEntity{Identifier: favourites.Identifier{ID: id, Type: entityType}}
	}
	return entity, true
}

func currentUser(c *gin.Context) (*favourites.User, bool) {
	key := c.GetString(middleware.UserKey)
	if key == "" {
		key = c.GetHeader(UserHeader)
	}
	if key == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user is required", "hint": "Add " + UserHeader + " header"})
		return nil, false
	}
	return &favourites.User{Key: key}, true
}

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, favourites.ErrInvalidArgument), errors.Is(err, favourites.ErrNoAccessor):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, favourites.ErrPermissionDenied):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	default:
		logger.Logger(c.Request.Context()).WithError(err).Error("favourites request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
