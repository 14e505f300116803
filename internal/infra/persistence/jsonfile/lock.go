package jsonfile

import (
	"context"
	"time"

	"github.com/gofrs/flock"
)

// FileLock is the exclusive advisory lock guarding the snapshot file.
type FileLock interface {
	TryLockContext(ctx context.Context, retryInterval time.Duration) (bool, error)
	Unlock() error
}

// FileLockFactory creates a FileLock for a lock file path.
type FileLockFactory interface {
	New(path string) FileLock
}

// FlockFactory builds locks on github.com/gofrs/flock.
type FlockFactory struct{}

// New implements FileLockFactory.
func (FlockFactory) New(path string) FileLock { return flock.New(path) }
