package storage

import (
	"errors"

	"tokenvault/internal/core"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = core.ErrNotFound
)
