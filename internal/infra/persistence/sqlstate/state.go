// Package sqlstate reads and writes the snapshot as one JSON payload per
// collection in a two column "state" table. The SQLite and Postgres stores
// share it and differ only in DDL and placeholders.
package sqlstate

import (
	"context"
	"database/sql"
	"fmt"

	"salescore/pkg/domain"
)

// Dialect carries the statements a driver needs.
type Dialect struct {
	// CreateTable must be idempotent.
	CreateTable string
	// Upsert takes (bucket, payload).
	Upsert string
}

const selectState = `SELECT bucket, payload FROM state`

// EnsureTable creates the state table if missing.
func EnsureTable(ctx context.Context, db *sql.DB, d Dialect) error {
	if _, err := db.ExecContext(ctx, d.CreateTable); err != nil {
		return fmt.Errorf("ensure state table: %w", err)
	}
	return nil
}

// Load decodes every stored bucket. An empty table yields an empty snapshot.
func Load(ctx context.Context, db *sql.DB) (domain.Snapshot, error) {
	rows, err := db.QueryContext(ctx, selectState)
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("select state: %w", err)
	}
	defer func() { _ = rows.Close() }()

	snap := domain.NewSnapshot()
	for rows.Next() {
		var (
			bucket  string
			payload []byte
		)
		if err := rows.Scan(&bucket, &payload); err != nil {
			return domain.Snapshot{}, fmt.Errorf("scan state: %w", err)
		}
		if err := snap.DecodeBucket(bucket, payload); err != nil {
			return domain.Snapshot{}, err
		}
	}
	if err := rows.Err(); err != nil {
		return domain.Snapshot{}, fmt.Errorf("iterate state: %w", err)
	}
	snap.Normalize()
	return snap, nil
}

// Persist upserts every bucket of snap inside one transaction.
func Persist(ctx context.Context, db *sql.DB, d Dialect, snap domain.Snapshot) (retErr error) {
	buckets, err := snap.EncodeBuckets()
	if err != nil {
		return err
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()
	for _, bucket := range domain.SnapshotBuckets {
		if _, err := tx.ExecContext(ctx, d.Upsert, bucket, buckets[bucket]); err != nil {
			return fmt.Errorf("upsert %s: %w", bucket, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
