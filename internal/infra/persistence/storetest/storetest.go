// Package storetest holds the behaviour every domain.SnapshotStore driver
// must share, run from each driver's tests.
package storetest

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"salescore/pkg/domain"
)

// Opener returns a fresh store plus a function reopening the same backing
// storage. Drivers without durable storage return a nil reopen.
type Opener func(t *testing.T) (store domain.SnapshotStore, reopen func() domain.SnapshotStore)

// Sample returns a snapshot touching every collection and relation.
func Sample() domain.Snapshot {
	invoiceID := 1
	s := domain.NewSnapshot()
	s.Products["1"] = domain.ProductRecord{ID: 1, Name: "Widget", Model: "Product", Price: 10, Qty: 3}
	s.Products["2"] = domain.ProductRecord{ID: 2, Name: "Gadget", Model: "Product", Price: 4.25, Qty: 7}
	s.Partners["1"] = domain.PartnerRecord{ID: 1, Name: "Acme", Model: "Partner", Email: "buyer@acme.test", SaleOrderIDs: []int{1, 2}, InvoiceIDs: []int{1}}
	s.Invoices["1"] = domain.InvoiceRecord{ID: 1, Name: "INV", Model: "Invoice", CustomerID: 1, State: "draft",
		Lines: []domain.LineRecord{{ProductID: 1, Qty: 2, UnitPrice: 10}}}
	s.SaleOrders["1"] = domain.SaleOrderRecord{ID: 1, Name: "SO", Model: "SaleOrder", CustomerID: 1, State: "confirmed", InvoiceID: &invoiceID,
		Lines: []domain.LineRecord{{ProductID: 1, Qty: 2, UnitPrice: 10}}}
	s.SaleOrders["2"] = domain.SaleOrderRecord{ID: 2, Name: "SO", Model: "SaleOrder", CustomerID: 1, State: "draft",
		Lines: []domain.LineRecord{{ProductID: 2, Qty: 1, UnitPrice: 4.25}}}
	return s
}

// Run exercises load, persist, replace and reopen semantics.
func Run(t *testing.T, open Opener) {
	t.Helper()
	ctx := context.Background()

	t.Run("EmptyLoad", func(t *testing.T) {
		store, _ := open(t)
		snap, err := store.Load(ctx)
		require.NoError(t, err)
		require.NotNil(t, snap.Products)
		require.NotNil(t, snap.Partners)
		require.NotNil(t, snap.SaleOrders)
		require.NotNil(t, snap.Invoices)
		require.Empty(t, snap.Products)
	})

	t.Run("PersistThenLoad", func(t *testing.T) {
		store, _ := open(t)
		require.NoError(t, store.Persist(ctx, Sample()))
		got, err := store.Load(ctx)
		require.NoError(t, err)
		if diff := cmp.Diff(Sample(), got); diff != "" {
			t.Fatalf("loaded snapshot mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("PersistReplacesWholeSnapshot", func(t *testing.T) {
		store, _ := open(t)
		require.NoError(t, store.Persist(ctx, Sample()))

		next := Sample()
		delete(next.Products, "2")
		delete(next.SaleOrders, "2")
		p := next.Products["1"]
		p.Qty = 1
		next.Products["1"] = p
		require.NoError(t, store.Persist(ctx, next))

		got, err := store.Load(ctx)
		require.NoError(t, err)
		if diff := cmp.Diff(next, got); diff != "" {
			t.Fatalf("replaced snapshot mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("Reopen", func(t *testing.T) {
		store, reopen := open(t)
		if reopen == nil {
			t.Skip("driver keeps no durable state")
		}
		require.NoError(t, store.Persist(ctx, Sample()))
		require.NoError(t, store.Close())

		again := reopen()
		t.Cleanup(func() { _ = again.Close() })
		got, err := again.Load(ctx)
		require.NoError(t, err)
		if diff := cmp.Diff(Sample(), got); diff != "" {
			t.Fatalf("reopened snapshot mismatch (-want +got):\n%s", diff)
		}
	})
}
