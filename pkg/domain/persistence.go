package domain

import "context"

// SnapshotStore is a durable backend holding exactly one Snapshot. Persist
// replaces the whole stored snapshot; Load of a store that has never been
// written returns an empty snapshot.
type SnapshotStore interface {
	Load(ctx context.Context) (Snapshot, error)
	Persist(ctx context.Context, s Snapshot) error
	Close() error
}
