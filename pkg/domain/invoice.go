package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

// InvoiceState is the posting state of an invoice.
type InvoiceState string

// Invoices move from draft to posted exactly once.
const (
	InvoiceDraft  InvoiceState = "draft"
	InvoicePosted InvoiceState = "posted"
)

const defaultInvoiceName = "INV"

// Invoice bills a customer for a list of lines.
type Invoice struct {
	base
	customer *Partner
	lines    []Line
	state    InvoiceState
}

var _ Entity = (*Invoice)(nil)

// NewInvoice creates a draft invoice for customer and attaches it to the
// customer's invoices.
func NewInvoice(ids IDSource, customer *Partner) (*Invoice, error) {
	if customer == nil {
		return nil, &ValidationError{Entity: EntityInvoice, Field: "customer", Message: "is required"}
	}
	inv := &Invoice{
		base:     base{id: ids.NextID(EntityInvoice), name: defaultInvoiceName},
		customer: customer,
		state:    InvoiceDraft,
	}
	customer.AddInvoice(inv)
	return inv, nil
}

// InvoiceFromRecord rebuilds an invoice, resolving its customer and line
// products through resolve, and attaches it to the customer.
func InvoiceFromRecord(rec InvoiceRecord, resolve Resolver) (*Invoice, error) {
	customer, ok := resolve.Partner(rec.CustomerID)
	if !ok {
		return nil, &ReferenceError{Entity: EntityInvoice, ID: rec.ID, Missing: EntityPartner, MissingID: rec.CustomerID}
	}
	state := InvoiceState(rec.State)
	if state == "" {
		state = InvoiceDraft
	}
	lines, err := linesFromRecords(EntityInvoice, rec.ID, rec.Lines, resolve)
	if err != nil {
		return nil, err
	}
	inv := &Invoice{
		base:     base{id: rec.ID, name: rec.Name},
		customer: customer,
		lines:    lines,
		state:    state,
	}
	if err := inv.Validate(); err != nil {
		return nil, err
	}
	customer.AddInvoice(inv)
	return inv, nil
}

// Kind implements Entity.
func (inv *Invoice) Kind() EntityType { return EntityInvoice }

// Customer returns the billed partner.
func (inv *Invoice) Customer() *Partner { return inv.customer }

// State returns the posting state.
func (inv *Invoice) State() InvoiceState { return inv.state }

// Lines returns a copy of the invoice lines.
func (inv *Invoice) Lines() []Line {
	out := make([]Line, len(inv.lines))
	copy(out, inv.lines)
	return out
}

// Validate checks name, customer and state.
func (inv *Invoice) Validate() error {
	if err := ValidateName(EntityInvoice, inv.name); err != nil {
		return err
	}
	if inv.customer == nil {
		return &ValidationError{Entity: EntityInvoice, Field: "customer", Message: "is required"}
	}
	switch inv.state {
	case InvoiceDraft, InvoicePosted:
		return nil
	}
	return &ValidationError{Entity: EntityInvoice, Field: "state", Message: "unknown state " + string(inv.state)}
}

// SetName renames the invoice.
func (inv *Invoice) SetName(name string) error { return inv.setName(EntityInvoice, name) }

// AddLine appends a line. Posted invoices are immutable.
func (inv *Invoice) AddLine(product *Product, qty int, unitPrice *decimal.Decimal) error {
	if inv.state != InvoiceDraft {
		return &StateError{Entity: EntityInvoice, ID: inv.id, State: string(inv.state), Action: "add line to"}
	}
	line, err := NewLine(EntityInvoice, product, qty, unitPrice)
	if err != nil {
		return err
	}
	inv.lines = append(inv.lines, line)
	return nil
}

// TotalAmount sums the line totals.
func (inv *Invoice) TotalAmount() decimal.Decimal { return sumLines(inv.lines) }

// Post moves a draft invoice to posted.
func (inv *Invoice) Post() error {
	if inv.state != InvoiceDraft {
		return &StateError{Entity: EntityInvoice, ID: inv.id, State: string(inv.state), Action: "post"}
	}
	inv.state = InvoicePosted
	return nil
}

// PostAndSave posts the invoice and saves it with its customer through tx.
// If tx rolls back the invoice returns to draft.
func (inv *Invoice) PostAndSave(ctx context.Context, tx Tx) error {
	if err := inv.Post(); err != nil {
		return err
	}
	tx.OnRollback(func() { inv.state = InvoiceDraft })
	if err := tx.Save(ctx, inv); err != nil {
		return err
	}
	return tx.Save(ctx, inv.customer)
}

// Record returns the persisted shape of the invoice.
func (inv *Invoice) Record() InvoiceRecord {
	return InvoiceRecord{
		ID:         inv.id,
		Name:       inv.name,
		Model:      EntityInvoice.Model(),
		CustomerID: inv.customer.ID(),
		State:      string(inv.state),
		Lines:      lineRecords(inv.lines),
	}
}

// StoreInto implements Entity.
func (inv *Invoice) StoreInto(s *Snapshot) {
	s.Normalize()
	s.Invoices[Key(inv.id)] = inv.Record()
}
