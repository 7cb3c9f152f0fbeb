package persistence

import "errors"

var (
	// ErrEntityNotFound is returned when a lookup matches no row.
	ErrEntityNotFound = errors.New("entity not found")

	// ErrStoreClosed is returned by stores used after shutdown.
	ErrStoreClosed = errors.New("store closed")
)
