package domain

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

func mustProduct(t *testing.T, ids IDSource, name, price string, qty int) *Product {
	t.Helper()
	p, err := NewProduct(ids, name, dec(t, price), qty)
	require.NoError(t, err)
	return p
}

func mustPartner(t *testing.T, ids IDSource, name, email string) *Partner {
	t.Helper()
	p, err := NewPartner(ids, name, email)
	require.NoError(t, err)
	return p
}

type mapResolver struct {
	products map[int]*Product
	partners map[int]*Partner
}

func newMapResolver() *mapResolver {
	return &mapResolver{products: map[int]*Product{}, partners: map[int]*Partner{}}
}

func (r *mapResolver) Product(id int) (*Product, bool) {
	p, ok := r.products[id]
	return p, ok
}

func (r *mapResolver) Partner(id int) (*Partner, bool) {
	p, ok := r.partners[id]
	return p, ok
}

// recordingTx stores every saved entity into a snapshot and can fail the
// n-th save.
type recordingTx struct {
	snapshot  Snapshot
	saves     []EntityType
	failAt    int
	rollbacks []func()
}

func newRecordingTx() *recordingTx {
	return &recordingTx{snapshot: NewSnapshot(), failAt: -1}
}

var errSaveFailed = errors.New("save failed")

func (tx *recordingTx) Save(_ context.Context, e Entity) error {
	if tx.failAt == len(tx.saves) {
		tx.saves = append(tx.saves, e.Kind())
		return errSaveFailed
	}
	tx.saves = append(tx.saves, e.Kind())
	e.StoreInto(&tx.snapshot)
	return nil
}

func (tx *recordingTx) OnRollback(fn func()) { tx.rollbacks = append(tx.rollbacks, fn) }

func (tx *recordingTx) rollback() {
	for i := len(tx.rollbacks) - 1; i >= 0; i-- {
		tx.rollbacks[i]()
	}
}
