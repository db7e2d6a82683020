package store

import (
	"context"
	"time"

	"github.com/gofrs/flock"
)

// FileLock guards the JSON file against writers in other processes
type FileLock interface {
	// TryLockContext attempts to acquire an exclusive lock, polling every
	// retryInterval until ctx is done
	TryLockContext(ctx context.Context, retryInterval time.Duration) (bool, error)

	// Unlock releases the lock
	Unlock() error
}

// FileLockFactory creates FileLock instances
type FileLockFactory interface {
	New(path string) FileLock
}

// flockFactory is the default factory, backed by github.com/gofrs/flock
type flockFactory struct{}

func (flockFactory) New(path string) FileLock {
	return flock.New(path)
}
