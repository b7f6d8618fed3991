package core

import "errors"

var (
	// ErrNotFound is returned by stores and managers when an entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidDescriptor is returned when a token or authorization
	// descriptor fails validation.
	ErrInvalidDescriptor = errors.New("invalid descriptor")

	// ErrInvalidStatus is returned when an operation is not allowed in the
	// entity's current status, such as redeeming a revoked token.
	ErrInvalidStatus = errors.New("invalid status")
)
