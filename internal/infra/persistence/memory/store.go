// Package memory keeps the snapshot in process memory. It backs tests and
// throwaway sessions.
package memory

import (
	"context"
	"errors"
	"sync"

	"salescore/pkg/domain"
)

// ErrClosed is returned once the store has been closed.
var ErrClosed = errors.New("memory store closed")

// Store holds a private copy of the last persisted snapshot.
type Store struct {
	mu       sync.RWMutex
	snapshot domain.Snapshot
	persists int
	closed   bool
}

// New returns a store seeded with initial, which may be empty.
func New(initial ...domain.Snapshot) *Store {
	s := &Store{snapshot: domain.NewSnapshot()}
	if len(initial) > 0 {
		s.snapshot = initial[0].Clone()
	}
	return s
}

// Load returns a copy of the stored snapshot.
func (s *Store) Load(context.Context) (domain.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return domain.Snapshot{}, ErrClosed
	}
	return s.snapshot.Clone(), nil
}

// Persist replaces the stored snapshot with a copy of snap.
func (s *Store) Persist(ctx context.Context, snap domain.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.snapshot = snap.Clone()
	s.persists++
	return nil
}

// Persists reports how many snapshots were written.
func (s *Store) Persists() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.persists
}

// Close marks the store closed.
func (s *Store) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

var _ domain.SnapshotStore = (*Store)(nil)
