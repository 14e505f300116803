package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Partner is a customer. Its sale orders and invoices are in-memory
// relations; only their ids are persisted.
type Partner struct {
	base
	email      string
	saleOrders []*SaleOrder
	invoices   []*Invoice

	// ids as read from the persisted record, kept for drift checks.
	storedOrderIDs   []int
	storedInvoiceIDs []int
}

var _ Entity = (*Partner)(nil)

// NewPartner validates the fields and allocates a fresh id.
func NewPartner(ids IDSource, name, email string) (*Partner, error) {
	p := &Partner{base: base{name: name}, email: email}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	p.id = ids.NextID(EntityPartner)
	return p, nil
}

// PartnerFromRecord rebuilds a partner with the record's id. Relations are
// empty until the graph loader attaches orders and invoices.
func PartnerFromRecord(rec PartnerRecord) (*Partner, error) {
	p := &Partner{
		base:             base{id: rec.ID, name: rec.Name},
		email:            rec.Email,
		storedOrderIDs:   cloneInts(rec.SaleOrderIDs),
		storedInvoiceIDs: cloneInts(rec.InvoiceIDs),
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Kind implements Entity.
func (p *Partner) Kind() EntityType { return EntityPartner }

// Email returns the contact address.
func (p *Partner) Email() string { return p.email }

// Validate checks name and email.
func (p *Partner) Validate() error {
	if err := ValidateName(EntityPartner, p.name); err != nil {
		return err
	}
	return validateEmail(p.email)
}

// SetName renames the partner.
func (p *Partner) SetName(name string) error { return p.setName(EntityPartner, name) }

// SetEmail changes the contact address.
func (p *Partner) SetEmail(email string) error {
	if err := validateEmail(email); err != nil {
		return err
	}
	p.email = email
	return nil
}

// AddSaleOrder attaches o unless that exact instance is already attached.
func (p *Partner) AddSaleOrder(o *SaleOrder) {
	if o == nil {
		return
	}
	for _, existing := range p.saleOrders {
		if existing == o {
			return
		}
	}
	p.saleOrders = append(p.saleOrders, o)
}

// AddInvoice attaches inv unless that exact instance is already attached.
func (p *Partner) AddInvoice(inv *Invoice) {
	if inv == nil {
		return
	}
	for _, existing := range p.invoices {
		if existing == inv {
			return
		}
	}
	p.invoices = append(p.invoices, inv)
}

// RemoveSaleOrder detaches the order with id and reports whether it was attached.
func (p *Partner) RemoveSaleOrder(id int) bool {
	for i, o := range p.saleOrders {
		if o.ID() == id {
			p.saleOrders = append(p.saleOrders[:i], p.saleOrders[i+1:]...)
			return true
		}
	}
	return false
}

// RemoveInvoice detaches the invoice with id and reports whether it was attached.
func (p *Partner) RemoveInvoice(id int) bool {
	for i, inv := range p.invoices {
		if inv.ID() == id {
			p.invoices = append(p.invoices[:i], p.invoices[i+1:]...)
			return true
		}
	}
	return false
}

// SaleOrders returns the attached orders in attachment order.
func (p *Partner) SaleOrders() []*SaleOrder {
	out := make([]*SaleOrder, len(p.saleOrders))
	copy(out, p.saleOrders)
	return out
}

// Invoices returns the attached invoices in attachment order.
func (p *Partner) Invoices() []*Invoice {
	out := make([]*Invoice, len(p.invoices))
	copy(out, p.invoices)
	return out
}

// TotalOrders returns the number of attached sale orders.
func (p *Partner) TotalOrders() int { return len(p.saleOrders) }

// TotalInvoicedAmount sums the totals of every attached invoice.
func (p *Partner) TotalInvoicedAmount() decimal.Decimal {
	total := decimal.Zero
	for _, inv := range p.invoices {
		total = total.Add(inv.TotalAmount())
	}
	return total
}

// PostedInvoicedAmount sums the totals of attached posted invoices only.
func (p *Partner) PostedInvoicedAmount() decimal.Decimal {
	total := decimal.Zero
	for _, inv := range p.invoices {
		if inv.State() == InvoicePosted {
			total = total.Add(inv.TotalAmount())
		}
	}
	return total
}

// StoredSaleOrderIDs returns the order ids read from the persisted record.
func (p *Partner) StoredSaleOrderIDs() []int { return cloneInts(p.storedOrderIDs) }

// StoredInvoiceIDs returns the invoice ids read from the persisted record.
func (p *Partner) StoredInvoiceIDs() []int { return cloneInts(p.storedInvoiceIDs) }

// SaleOrderIDs returns the ids of the attached orders.
func (p *Partner) SaleOrderIDs() []int {
	ids := make([]int, 0, len(p.saleOrders))
	for _, o := range p.saleOrders {
		ids = append(ids, o.ID())
	}
	return ids
}

// InvoiceIDs returns the ids of the attached invoices.
func (p *Partner) InvoiceIDs() []int {
	ids := make([]int, 0, len(p.invoices))
	for _, inv := range p.invoices {
		ids = append(ids, inv.ID())
	}
	return ids
}

// Record returns the persisted shape of the partner with relation ids taken
// from the attached orders and invoices.
func (p *Partner) Record() PartnerRecord {
	return PartnerRecord{
		ID:           p.id,
		Name:         p.name,
		Model:        EntityPartner.Model(),
		Email:        p.email,
		SaleOrderIDs: p.SaleOrderIDs(),
		InvoiceIDs:   p.InvoiceIDs(),
	}
}

// StoreInto implements Entity. The stored id lists keep the values decoded
// at load; they are never touched by a write.
func (p *Partner) StoreInto(s *Snapshot) {
	s.Normalize()
	s.Partners[Key(p.id)] = p.Record()
}

func validateEmail(email string) error {
	if email == "" || !strings.Contains(email, "@") {
		return &ValidationError{Entity: EntityPartner, Field: "email", Message: "must contain @"}
	}
	return nil
}
