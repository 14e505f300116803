package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"salescore/internal/infra/persistence/storetest"
	"salescore/pkg/domain"
)

func TestStoreConformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) (domain.SnapshotStore, func() domain.SnapshotStore) {
		return New(), nil
	})
}

func TestStoreIsolatesCallers(t *testing.T) {
	ctx := context.Background()
	snap := storetest.Sample()
	s := New(snap)

	snap.Products["1"] = domain.ProductRecord{ID: 1, Name: "Changed"}
	loaded, err := s.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, "Widget", loaded.Products["1"].Name)

	loaded.Partners["1"].SaleOrderIDs[0] = 42
	again, err := s.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, again.Partners["1"].SaleOrderIDs[0])
}

func TestStoreCountsPersistsAndCloses(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.Persist(ctx, domain.NewSnapshot()))
	require.NoError(t, s.Persist(ctx, storetest.Sample()))
	require.Equal(t, 2, s.Persists())

	require.NoError(t, s.Close())
	_, err := s.Load(ctx)
	require.ErrorIs(t, err, ErrClosed)
	require.ErrorIs(t, s.Persist(ctx, domain.NewSnapshot()), ErrClosed)
}

func TestPersistHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := New()
	require.ErrorIs(t, s.Persist(ctx, domain.NewSnapshot()), context.Canceled)
	require.Zero(t, s.Persists())
}
