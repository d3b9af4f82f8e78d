package favourites

import "errors"

var (
	// ErrInvalidArgument is returned before any store access when a required
	// user, entity, id or type is missing
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrPermissionDenied is returned when the user cannot see the entity
	ErrPermissionDenied = errors.New("permission denied")

	// ErrNoAccessor is returned when no accessor is registered for an entity type
	// and the operation needs to resolve entities of that type
	ErrNoAccessor = errors.New("no shared entity accessor registered")
)
