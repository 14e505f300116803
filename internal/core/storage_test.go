package core

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"salescore/internal/blob"
	"salescore/internal/infra/persistence/blobsnap"
	"salescore/internal/infra/persistence/jsonfile"
	"salescore/internal/infra/persistence/memory"
	"salescore/internal/infra/persistence/sqlite"
	"salescore/internal/infra/persistence/storetest"
)

func TestOpenSnapshotStoreDrivers(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	cases := []struct {
		name  string
		cfg   StorageConfig
		check func(t *testing.T, store any)
	}{
		{"memory", StorageConfig{Driver: StorageMemory}, func(t *testing.T, s any) {
			require.IsType(t, &memory.Store{}, s)
		}},
		{"json", StorageConfig{Driver: StorageJSON, JSONPath: filepath.Join(dir, "sales.json")}, func(t *testing.T, s any) {
			require.IsType(t, &jsonfile.Store{}, s)
			require.Equal(t, filepath.Join(dir, "sales.json"), s.(*jsonfile.Store).Path())
		}},
		{"default", StorageConfig{JSONPath: filepath.Join(dir, "default.json")}, func(t *testing.T, s any) {
			require.IsType(t, &jsonfile.Store{}, s)
		}},
		{"sqlite", StorageConfig{Driver: StorageSQLite, SQLitePath: filepath.Join(dir, "sales.db")}, func(t *testing.T, s any) {
			require.IsType(t, &sqlite.Store{}, s)
		}},
		{"blob", StorageConfig{Driver: StorageBlob, Blob: BlobConfig{
			Config: blob.Config{Driver: blob.DriverMemory},
			Retain: 2,
		}}, func(t *testing.T, s any) {
			require.IsType(t, &blobsnap.Store{}, s)
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store, err := OpenSnapshotStore(ctx, tc.cfg)
			require.NoError(t, err)
			t.Cleanup(func() { _ = store.Close() })
			tc.check(t, store)

			require.NoError(t, store.Persist(ctx, storetest.Sample()))
			snap, err := store.Load(ctx)
			require.NoError(t, err)
			require.Len(t, snap.SaleOrders, 2)
		})
	}
}

func TestOpenSnapshotStoreUnknownDriver(t *testing.T) {
	_, err := OpenSnapshotStore(context.Background(), StorageConfig{Driver: "etcd"})
	require.ErrorContains(t, err, "unknown storage driver etcd")
}

func TestOpenSnapshotStoreBlobFailure(t *testing.T) {
	_, err := OpenSnapshotStore(context.Background(), StorageConfig{Driver: StorageBlob, Blob: BlobConfig{
		Config: blob.Config{Driver: "ftp"},
	}})
	require.ErrorContains(t, err, "open blob store")
}
