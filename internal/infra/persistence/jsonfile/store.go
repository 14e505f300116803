// Package jsonfile stores the snapshot as a single indented JSON document.
// Every persist rewrites the whole file through a temp file and a rename
// while holding an flock on "<path>.lock".
package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"salescore/pkg/domain"
)

// DefaultPath is used when no path is configured.
const DefaultPath = "database.json"

const (
	defaultLockTimeout = 3 * time.Second
	lockRetryDelay     = 100 * time.Millisecond
)

// ErrLocked is returned when the lock file stays held past the timeout.
var ErrLocked = errors.New("could not acquire file lock")

// Option configures a Store.
type Option func(*Store)

// WithLockFactory replaces the flock based lock, mainly for tests.
func WithLockFactory(f FileLockFactory) Option {
	return func(s *Store) {
		if f != nil {
			s.locks = f
		}
	}
}

// WithLockTimeout bounds how long Load and Persist wait for the lock.
func WithLockTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.lockTimeout = d
		}
	}
}

// Store is a domain.SnapshotStore over one JSON file.
type Store struct {
	mu          sync.Mutex
	path        string
	lock        FileLock
	locks       FileLockFactory
	lockTimeout time.Duration
}

// New prepares a store at path, creating its parent directory. The file
// itself is only written on the first Persist.
func New(path string, opts ...Option) (*Store, error) {
	if path == "" {
		path = DefaultPath
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create snapshot dir: %w", err)
		}
	}
	s := &Store{path: path, locks: FlockFactory{}, lockTimeout: defaultLockTimeout}
	for _, opt := range opts {
		opt(s)
	}
	s.lock = s.locks.New(path + ".lock")
	return s, nil
}

// Path returns the snapshot file location.
func (s *Store) Path() string { return s.path }

// Load reads the snapshot. A missing or empty file yields an empty snapshot.
func (s *Store) Load(ctx context.Context) (domain.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	unlock, err := s.acquire(ctx)
	if err != nil {
		return domain.Snapshot{}, err
	}
	defer unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return domain.NewSnapshot(), nil
	}
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("read snapshot: %w", err)
	}
	if len(data) == 0 {
		return domain.NewSnapshot(), nil
	}
	var snap domain.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return domain.Snapshot{}, fmt.Errorf("parse snapshot %s: %w", s.path, err)
	}
	snap.Normalize()
	return snap, nil
}

// Persist rewrites the file with snap.
func (s *Store) Persist(ctx context.Context, snap domain.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	unlock, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	snap.Normalize()
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	tmpFile := s.path + ".tmp"
	if err := os.WriteFile(tmpFile, data, 0o644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmpFile, s.path); err != nil {
		_ = os.Remove(tmpFile)
		return fmt.Errorf("rename snapshot: %w", err)
	}
	return nil
}

// Close releases nothing; locks are held only for the duration of a call.
func (s *Store) Close() error { return nil }

func (s *Store) acquire(ctx context.Context) (func(), error) {
	ctx, cancel := context.WithTimeout(ctx, s.lockTimeout)
	defer cancel()
	locked, err := s.lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %s.lock", ErrLocked, s.path)
		}
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("%w: %s.lock", ErrLocked, s.path)
	}
	return func() { _ = s.lock.Unlock() }, nil
}

var _ domain.SnapshotStore = (*Store)(nil)
