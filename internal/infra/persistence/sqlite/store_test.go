package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salescore/internal/infra/persistence/storetest"
	"salescore/pkg/domain"
)

func TestStoreConformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) (domain.SnapshotStore, func() domain.SnapshotStore) {
		path := filepath.Join(t.TempDir(), "sales.db")
		s, err := NewStore(context.Background(), path)
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Close() })
		return s, func() domain.SnapshotStore {
			again, err := NewStore(context.Background(), path)
			require.NoError(t, err)
			return again
		}
	})
}

func TestPersistKeepsOneRowPerBucket(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "sales.db")
	s, err := NewStore(ctx, path)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()
	assert.Equal(t, path, s.Path())

	require.NoError(t, s.Persist(ctx, storetest.Sample()))
	require.NoError(t, s.Persist(ctx, storetest.Sample()))

	rows, err := s.DB().QueryContext(ctx, `SELECT bucket FROM state ORDER BY bucket`)
	require.NoError(t, err)
	defer func() { _ = rows.Close() }()
	var buckets []string
	for rows.Next() {
		var b string
		require.NoError(t, rows.Scan(&b))
		buckets = append(buckets, b)
	}
	require.NoError(t, rows.Err())
	assert.Equal(t, []string{"invoices", "partners", "products", "saleorders"}, buckets)
}

func TestLoadSkipsUnknownBuckets(t *testing.T) {
	ctx := context.Background()
	s, err := NewStore(ctx, filepath.Join(t.TempDir(), "sales.db"))
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	_, err = s.DB().ExecContext(ctx, `INSERT INTO state(bucket,payload) VALUES(?,?)`, "legacy", []byte(`{"x":1}`))
	require.NoError(t, err)
	_, err = s.DB().ExecContext(ctx, `INSERT INTO state(bucket,payload) VALUES(?,?)`, "products", []byte(`{"4":{"id":4,"name":"Bolt","model":"Product","price":0.5,"qty":9}}`))
	require.NoError(t, err)

	snap, err := s.Load(ctx)
	require.NoError(t, err)
	require.Len(t, snap.Products, 1)
	assert.Equal(t, 9, snap.Products["4"].Qty)
	assert.Empty(t, snap.Partners)
}
