package storage

import "errors"

// Common client storage errors
var (
	// ErrNotFound indicates that the requested record does not exist
	// (or exists but has expired, for cache and auth records)
	ErrNotFound = errors.New("record not found")

	// ErrAlreadyExists indicates that Add was called with an id that is already stored
	ErrAlreadyExists = errors.New("record already exists")

	// ErrReadOnly indicates a write attempted inside a View transaction
	ErrReadOnly = errors.New("write in read-only transaction")

	// ErrStorageClosed indicates that storage is closed
	ErrStorageClosed = errors.New("storage is closed")
)
