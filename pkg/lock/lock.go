// Package lock guards mutations of shared host state against concurrent runs.
package lock

import (
	"context"
	"errors"
)

// ErrLocked means another process already holds the lock for the same key.
var ErrLocked = errors.New("lock is held by another process")

// Locker acquires an exclusive lock for a key. Acquisition is non-blocking:
// a second caller gets ErrLocked instead of waiting, since a provisioning
// run racing another one has no useful outcome.
type Locker interface {
	Acquire(ctx context.Context, key string) (Lock, error)
}

// Lock represents an acquired lock that must be released.
type Lock interface {
	Release() error
}
