package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

// OrderState is the workflow state of a sale order.
type OrderState string

// Orders start as drafts and are either confirmed or cancelled.
const (
	OrderDraft     OrderState = "draft"
	OrderConfirmed OrderState = "confirmed"
	OrderCancelled OrderState = "cancelled"
)

const defaultSaleOrderName = "SO"

// SaleOrder is a customer's request for products. Confirming it consumes
// stock and produces an invoice.
type SaleOrder struct {
	base
	customer  *Partner
	lines     []Line
	state     OrderState
	invoiceID *int
}

var _ Entity = (*SaleOrder)(nil)

// NewSaleOrder creates a draft order for customer and attaches it to the
// customer's orders.
func NewSaleOrder(ids IDSource, customer *Partner) (*SaleOrder, error) {
	if customer == nil {
		return nil, &ValidationError{Entity: EntitySaleOrder, Field: "customer", Message: "is required"}
	}
	o := &SaleOrder{
		base:     base{id: ids.NextID(EntitySaleOrder), name: defaultSaleOrderName},
		customer: customer,
		state:    OrderDraft,
	}
	customer.AddSaleOrder(o)
	return o, nil
}

// SaleOrderFromRecord rebuilds an order, resolving its customer and line
// products through resolve, and attaches it to the customer.
func SaleOrderFromRecord(rec SaleOrderRecord, resolve Resolver) (*SaleOrder, error) {
	customer, ok := resolve.Partner(rec.CustomerID)
	if !ok {
		return nil, &ReferenceError{Entity: EntitySaleOrder, ID: rec.ID, Missing: EntityPartner, MissingID: rec.CustomerID}
	}
	state := OrderState(rec.State)
	if state == "" {
		state = OrderDraft
	}
	lines, err := linesFromRecords(EntitySaleOrder, rec.ID, rec.Lines, resolve)
	if err != nil {
		return nil, err
	}
	o := &SaleOrder{
		base:     base{id: rec.ID, name: rec.Name},
		customer: customer,
		lines:    lines,
		state:    state,
	}
	if rec.InvoiceID != nil {
		id := *rec.InvoiceID
		o.invoiceID = &id
	}
	if err := o.Validate(); err != nil {
		return nil, err
	}
	customer.AddSaleOrder(o)
	return o, nil
}

// Kind implements Entity.
func (o *SaleOrder) Kind() EntityType { return EntitySaleOrder }

// Customer returns the ordering partner.
func (o *SaleOrder) Customer() *Partner { return o.customer }

// State returns the workflow state.
func (o *SaleOrder) State() OrderState { return o.state }

// InvoiceID returns the id of the invoice created on confirmation.
func (o *SaleOrder) InvoiceID() (int, bool) {
	if o.invoiceID == nil {
		return 0, false
	}
	return *o.invoiceID, true
}

// Lines returns a copy of the order lines.
func (o *SaleOrder) Lines() []Line {
	out := make([]Line, len(o.lines))
	copy(out, o.lines)
	return out
}

// Validate checks name, customer and state.
func (o *SaleOrder) Validate() error {
	if err := ValidateName(EntitySaleOrder, o.name); err != nil {
		return err
	}
	if o.customer == nil {
		return &ValidationError{Entity: EntitySaleOrder, Field: "customer", Message: "is required"}
	}
	switch o.state {
	case OrderDraft, OrderConfirmed, OrderCancelled:
		return nil
	}
	return &ValidationError{Entity: EntitySaleOrder, Field: "state", Message: "unknown state " + string(o.state)}
}

// SetName renames the order.
func (o *SaleOrder) SetName(name string) error { return o.setName(EntitySaleOrder, name) }

// AddLine appends a line. Only draft orders accept lines.
func (o *SaleOrder) AddLine(product *Product, qty int, unitPrice *decimal.Decimal) error {
	if o.state != OrderDraft {
		return &StateError{Entity: EntitySaleOrder, ID: o.id, State: string(o.state), Action: "add line to"}
	}
	line, err := NewLine(EntitySaleOrder, product, qty, unitPrice)
	if err != nil {
		return err
	}
	o.lines = append(o.lines, line)
	return nil
}

// TotalAmount sums the line totals.
func (o *SaleOrder) TotalAmount() decimal.Decimal { return sumLines(o.lines) }

// CheckStock verifies every line against its product's current quantity and
// returns the first shortfall.
func (o *SaleOrder) CheckStock() error {
	for _, l := range o.lines {
		if l.qty > l.product.Qty() {
			return &StockError{ProductID: l.product.ID(), Product: l.product.Name(), Requested: l.qty, Available: l.product.Qty()}
		}
	}
	return nil
}

// Confirm runs the order-to-invoice workflow:
//
//  1. the order must be a draft with at least one line;
//  2. every line is checked against stock before anything changes;
//  3. each product is decremented and saved;
//  4. the order becomes confirmed;
//  5. a draft invoice with the same lines is created for the customer and saved;
//  6. the order records the invoice id and is saved with its customer.
//
// Saves go through tx one entity at a time. When tx cannot roll back, a
// failure during step 3 or later leaves the earlier saves in place.
func (o *SaleOrder) Confirm(ctx context.Context, ids IDSource, tx Tx) (*Invoice, error) {
	if o.state != OrderDraft {
		return nil, &StateError{Entity: EntitySaleOrder, ID: o.id, State: string(o.state), Action: "confirm"}
	}
	if len(o.lines) == 0 {
		return nil, &StateError{Entity: EntitySaleOrder, ID: o.id, State: string(o.state), Action: "confirm empty"}
	}
	if err := o.CheckStock(); err != nil {
		return nil, err
	}

	var (
		decreased []Line
		inv       *Invoice
	)
	tx.OnRollback(func() {
		for i := len(decreased) - 1; i >= 0; i-- {
			decreased[i].product.qty += decreased[i].qty
		}
		if inv != nil {
			o.customer.RemoveInvoice(inv.ID())
		}
		o.state = OrderDraft
		o.invoiceID = nil
	})

	for _, l := range o.lines {
		if err := l.product.DecreaseQty(l.qty); err != nil {
			return nil, err
		}
		decreased = append(decreased, l)
		if err := tx.Save(ctx, l.product); err != nil {
			return nil, err
		}
	}

	o.state = OrderConfirmed

	var err error
	inv, err = NewInvoice(ids, o.customer)
	if err != nil {
		return nil, err
	}
	inv.lines = append([]Line(nil), o.lines...)
	if err := tx.Save(ctx, inv); err != nil {
		return nil, err
	}

	invoiceID := inv.ID()
	o.invoiceID = &invoiceID
	if err := tx.Save(ctx, o); err != nil {
		return nil, err
	}
	if err := tx.Save(ctx, o.customer); err != nil {
		return nil, err
	}
	return inv, nil
}

// Cancel moves a draft or confirmed order to cancelled. Stock consumed by a
// confirmed order is not returned.
func (o *SaleOrder) Cancel() error {
	if o.state == OrderCancelled {
		return &StateError{Entity: EntitySaleOrder, ID: o.id, State: string(o.state), Action: "cancel"}
	}
	o.state = OrderCancelled
	return nil
}

// CancelAndSave cancels the order and saves it through tx, restoring the
// previous state if tx rolls back.
func (o *SaleOrder) CancelAndSave(ctx context.Context, tx Tx) error {
	prev := o.state
	if err := o.Cancel(); err != nil {
		return err
	}
	tx.OnRollback(func() { o.state = prev })
	return tx.Save(ctx, o)
}

// Record returns the persisted shape of the order.
func (o *SaleOrder) Record() SaleOrderRecord {
	rec := SaleOrderRecord{
		ID:         o.id,
		Name:       o.name,
		Model:      EntitySaleOrder.Model(),
		CustomerID: o.customer.ID(),
		State:      string(o.state),
		Lines:      lineRecords(o.lines),
	}
	if o.invoiceID != nil {
		id := *o.invoiceID
		rec.InvoiceID = &id
	}
	return rec
}

// StoreInto implements Entity.
func (o *SaleOrder) StoreInto(s *Snapshot) {
	s.Normalize()
	s.SaleOrders[Key(o.id)] = o.Record()
}
