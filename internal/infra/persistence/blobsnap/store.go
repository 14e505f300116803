// Package blobsnap keeps the snapshot as an append-only series of JSON
// objects in a blob store. Each persist writes the next version; Load reads
// the newest and older versions beyond the retention window are pruned.
package blobsnap

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"sync"

	"salescore/internal/blob"
	"salescore/pkg/domain"
)

const (
	// DefaultPrefix is the key prefix used when none is configured.
	DefaultPrefix = "snapshots/"
	// DefaultRetain is the number of versions kept when none is configured.
	DefaultRetain = 5

	contentType = "application/json"
	suffix      = ".json"
)

// Options configures a Store.
type Options struct {
	Prefix string
	Retain int
}

// Store is a domain.SnapshotStore over a blob.Store.
type Store struct {
	mu      sync.Mutex
	blobs   blob.Store
	prefix  string
	retain  int
	version uint64
	scanned bool
}

// New wraps blobs. Versions are discovered lazily on first use.
func New(blobs blob.Store, opts Options) (*Store, error) {
	if blobs == nil {
		return nil, errors.New("blobsnap: blob store required")
	}
	prefix := opts.Prefix
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	retain := opts.Retain
	if retain <= 0 {
		retain = DefaultRetain
	}
	return &Store{blobs: blobs, prefix: prefix, retain: retain}, nil
}

// Load returns the newest stored version, or an empty snapshot.
func (s *Store) Load(ctx context.Context) (domain.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	versions, err := s.versions(ctx)
	if err != nil {
		return domain.Snapshot{}, err
	}
	if len(versions) == 0 {
		return domain.NewSnapshot(), nil
	}
	latest := versions[len(versions)-1]
	_, rc, err := s.blobs.Get(ctx, s.key(latest))
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("get snapshot %d: %w", latest, err)
	}
	defer func() { _ = rc.Close() }()
	data, err := io.ReadAll(rc)
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("read snapshot %d: %w", latest, err)
	}
	var snap domain.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return domain.Snapshot{}, fmt.Errorf("decode snapshot %d: %w", latest, err)
	}
	snap.Normalize()
	return snap, nil
}

// Persist writes snap as the next version and prunes old ones. Pruning
// failures do not fail the persist.
func (s *Store) Persist(ctx context.Context, snap domain.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.scanned {
		if _, err := s.versions(ctx); err != nil {
			return err
		}
	}
	snap.Normalize()
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	next := s.version + 1
	_, err = s.blobs.Put(ctx, s.key(next), bytes.NewReader(data), blob.PutOptions{
		ContentType: contentType,
		Metadata:    map[string]string{"version": strconv.FormatUint(next, 10)},
	})
	if err != nil {
		return fmt.Errorf("put snapshot %d: %w", next, err)
	}
	s.version = next
	_ = s.prune(ctx)
	return nil
}

// Versions lists stored version numbers in ascending order.
func (s *Store) Versions(ctx context.Context) ([]uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.versions(ctx)
}

// Close is a no-op; the blob store is owned by the caller.
func (s *Store) Close() error { return nil }

func (s *Store) key(version uint64) string {
	return fmt.Sprintf("%s%020d%s", s.prefix, version, suffix)
}

func (s *Store) versions(ctx context.Context) ([]uint64, error) {
	infos, err := s.blobs.List(ctx, s.prefix)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	out := make([]uint64, 0, len(infos))
	for _, info := range infos {
		name := strings.TrimPrefix(info.Key, s.prefix)
		if strings.Contains(name, "/") || !strings.HasSuffix(name, suffix) {
			continue
		}
		v, err := strconv.ParseUint(strings.TrimSuffix(name, suffix), 10, 64)
		if err != nil {
			continue
		}
		out = append(out, v)
	}
	slices.Sort(out)
	if n := len(out); n > 0 && out[n-1] > s.version {
		s.version = out[n-1]
	}
	s.scanned = true
	return out, nil
}

func (s *Store) prune(ctx context.Context) error {
	versions, err := s.versions(ctx)
	if err != nil {
		return err
	}
	var errs []error
	for len(versions) > s.retain {
		if _, err := s.blobs.Delete(ctx, s.key(versions[0])); err != nil {
			errs = append(errs, err)
		}
		versions = versions[1:]
	}
	return errors.Join(errs...)
}

var _ domain.SnapshotStore = (*Store)(nil)
