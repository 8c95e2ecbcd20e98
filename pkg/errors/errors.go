package errors

import "errors"

var (
	// ErrOptimisticLock is returned when a versioned row changed under the caller.
	ErrOptimisticLock = errors.New("record was modified by another operation, reload and retry")
	// ErrConflict is returned when a write collides with a uniqueness constraint.
	ErrConflict = errors.New("record already exists")
)
