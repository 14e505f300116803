package domain

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInvoiceLinesAndTotal(t *testing.T) {
	ids := NewIDAllocator()
	customer := mustPartner(t, ids, "Acme", "buyer@acme.test")
	widget := mustProduct(t, ids, "Widget", "10.0", 5)
	gadget := mustProduct(t, ids, "Gadget", "2.5", 5)

	inv, err := NewInvoice(ids, customer)
	require.NoError(t, err)
	assert.Equal(t, InvoiceDraft, inv.State())
	assert.Equal(t, "INV", inv.Name())
	assert.Equal(t, []*Invoice{inv}, customer.Invoices())

	require.ErrorIs(t, inv.AddLine(widget, 0, nil), ErrValidation)
	require.NoError(t, inv.AddLine(widget, 2, nil))
	special := dec(t, "2")
	require.NoError(t, inv.AddLine(gadget, 4, &special))
	assert.True(t, inv.TotalAmount().Equal(dec(t, "28")))

	// a later price change does not touch existing lines
	require.NoError(t, widget.SetPrice(dec(t, "99")))
	assert.True(t, inv.TotalAmount().Equal(dec(t, "28")))
}

func TestInvoicePost(t *testing.T) {
	ids := NewIDAllocator()
	inv, err := NewInvoice(ids, mustPartner(t, ids, "Acme", "buyer@acme.test"))
	require.NoError(t, err)

	require.NoError(t, inv.Post())
	assert.Equal(t, InvoicePosted, inv.State())

	err = inv.Post()
	var stateErr *StateError
	require.ErrorAs(t, err, &stateErr)
	assert.Equal(t, "post", stateErr.Action)
	assert.Equal(t, InvoicePosted, inv.State())

	widget := mustProduct(t, ids, "Widget", "1", 1)
	require.ErrorIs(t, inv.AddLine(widget, 1, nil), ErrState)
}

func TestInvoiceFromRecord(t *testing.T) {
	ids := NewIDAllocator()
	resolver := newMapResolver()
	customer := mustPartner(t, ids, "Acme", "buyer@acme.test")
	widget := mustProduct(t, ids, "Widget", "10.0", 5)
	resolver.partners[customer.ID()] = customer
	resolver.products[widget.ID()] = widget

	rec := InvoiceRecord{
		ID: 4, Name: "INV", Model: "Invoice", CustomerID: customer.ID(), State: "posted",
		Lines: []LineRecord{{ProductID: widget.ID(), Qty: 2, UnitPrice: 9.5}},
	}
	inv, err := InvoiceFromRecord(rec, resolver)
	require.NoError(t, err)
	assert.Same(t, widget, inv.Lines()[0].Product())
	assert.Equal(t, rec, inv.Record())
	assert.Equal(t, []int{4}, customer.InvoiceIDs())

	missing := rec
	missing.CustomerID = 42
	_, err = InvoiceFromRecord(missing, resolver)
	var refErr *ReferenceError
	require.ErrorAs(t, err, &refErr)
	assert.Equal(t, EntityPartner, refErr.Missing)

	badLine := rec
	badLine.Lines = []LineRecord{{ProductID: 77, Qty: 1}}
	_, err = InvoiceFromRecord(badLine, resolver)
	require.ErrorIs(t, err, ErrReference)

	badState := rec
	badState.State = "void"
	_, err = InvoiceFromRecord(badState, resolver)
	require.ErrorIs(t, err, ErrValidation)

	zeroQty := rec
	zeroQty.Lines = []LineRecord{{ProductID: widget.ID(), Qty: 0, UnitPrice: 1}}
	_, err = InvoiceFromRecord(zeroQty, resolver)
	require.ErrorIs(t, err, ErrValidation)
}

func TestInvoicePostAndSave(t *testing.T) {
	ids := NewIDAllocator()
	customer := mustPartner(t, ids, "Acme", "buyer@acme.test")
	inv, err := NewInvoice(ids, customer)
	require.NoError(t, err)

	tx := newRecordingTx()
	require.NoError(t, inv.PostAndSave(context.Background(), tx))
	assert.Equal(t, []EntityType{EntityInvoice, EntityPartner}, tx.saves)
	assert.Equal(t, "posted", tx.snapshot.Invoices[Key(inv.ID())].State)

	failing := newRecordingTx()
	other, err := NewInvoice(ids, customer)
	require.NoError(t, err)
	failing.failAt = 0
	require.ErrorIs(t, other.PostAndSave(context.Background(), failing), errSaveFailed)
	failing.rollback()
	assert.Equal(t, InvoiceDraft, other.State())

	require.ErrorIs(t, inv.PostAndSave(context.Background(), newRecordingTx()), ErrState)
}
