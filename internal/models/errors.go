package models

import (
	"errors"
)

// Error taxonomy. Services return these wrapped with context; the store
// additionally converts them into typed result objects at its boundary so no
// raw error ever reaches a caller of a mutation.
var (
	// ErrAuthRequired means there is no active user session.
	ErrAuthRequired = errors.New("authentication required")

	// ErrNotFound means the referenced item or group does not exist.
	ErrNotFound = errors.New("not found")

	// ErrValidation covers blank or duplicate names, malformed import
	// documents and password-protection requested without a password.
	ErrValidation = errors.New("validation error")

	// ErrBackend is a persistence layer failure.
	ErrBackend = errors.New("backend error")

	// ErrCacheMiss is internal to the store. It is never surfaced to a
	// caller; it always triggers a fallback query instead.
	ErrCacheMiss = errors.New("cache miss")
)
