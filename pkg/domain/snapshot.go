package domain

import (
	"sort"
	"strconv"
)

// ProductRecord is the persisted shape of a Product.
type ProductRecord struct {
	ID    int     `json:"id"`
	Name  string  `json:"name"`
	Model string  `json:"model"`
	Price float64 `json:"price"`
	Qty   int     `json:"qty"`
}

// PartnerRecord is the persisted shape of a Partner. Relations are stored as
// id lists only.
type PartnerRecord struct {
	ID           int    `json:"id"`
	Name         string `json:"name"`
	Model        string `json:"model"`
	Email        string `json:"email"`
	SaleOrderIDs []int  `json:"sale_order_ids"`
	InvoiceIDs   []int  `json:"invoice_ids"`
}

// LineRecord is the persisted shape of an invoice or sale order line.
type LineRecord struct {
	ProductID int     `json:"product_id"`
	Qty       int     `json:"qty"`
	UnitPrice float64 `json:"unit_price"`
}

// InvoiceRecord is the persisted shape of an Invoice.
type InvoiceRecord struct {
	ID         int          `json:"id"`
	Name       string       `json:"name"`
	Model      string       `json:"model"`
	CustomerID int          `json:"customer_id"`
	State      string       `json:"state"`
	Lines      []LineRecord `json:"lines"`
}

// SaleOrderRecord is the persisted shape of a SaleOrder.
type SaleOrderRecord struct {
	ID         int          `json:"id"`
	Name       string       `json:"name"`
	Model      string       `json:"model"`
	CustomerID int          `json:"customer_id"`
	State      string       `json:"state"`
	InvoiceID  *int         `json:"invoice_id"`
	Lines      []LineRecord `json:"lines"`
}

// Snapshot is the whole durable state: one collection per entity type, each
// keyed by the stringified record id.
type Snapshot struct {
	Products   map[string]ProductRecord   `json:"products"`
	Partners   map[string]PartnerRecord   `json:"partners"`
	SaleOrders map[string]SaleOrderRecord `json:"saleorders"`
	Invoices   map[string]InvoiceRecord   `json:"invoices"`
}

// Key returns the collection key for id.
func Key(id int) string { return strconv.Itoa(id) }

// NewSnapshot returns a snapshot with every collection allocated.
func NewSnapshot() Snapshot {
	return Snapshot{
		Products:   make(map[string]ProductRecord),
		Partners:   make(map[string]PartnerRecord),
		SaleOrders: make(map[string]SaleOrderRecord),
		Invoices:   make(map[string]InvoiceRecord),
	}
}

// Normalize allocates any collection left nil by a decoder.
func (s *Snapshot) Normalize() {
	if s.Products == nil {
		s.Products = make(map[string]ProductRecord)
	}
	if s.Partners == nil {
		s.Partners = make(map[string]PartnerRecord)
	}
	if s.SaleOrders == nil {
		s.SaleOrders = make(map[string]SaleOrderRecord)
	}
	if s.Invoices == nil {
		s.Invoices = make(map[string]InvoiceRecord)
	}
}

// Clone returns a deep copy of the snapshot.
func (s Snapshot) Clone() Snapshot {
	out := NewSnapshot()
	for k, v := range s.Products {
		out.Products[k] = v
	}
	for k, v := range s.Partners {
		v.SaleOrderIDs = cloneInts(v.SaleOrderIDs)
		v.InvoiceIDs = cloneInts(v.InvoiceIDs)
		out.Partners[k] = v
	}
	for k, v := range s.SaleOrders {
		v.Lines = cloneLines(v.Lines)
		if v.InvoiceID != nil {
			id := *v.InvoiceID
			v.InvoiceID = &id
		}
		out.SaleOrders[k] = v
	}
	for k, v := range s.Invoices {
		v.Lines = cloneLines(v.Lines)
		out.Invoices[k] = v
	}
	return out
}

// Counts returns the number of records per entity type.
func (s Snapshot) Counts() map[EntityType]int {
	return map[EntityType]int{
		EntityProduct:   len(s.Products),
		EntityPartner:   len(s.Partners),
		EntitySaleOrder: len(s.SaleOrders),
		EntityInvoice:   len(s.Invoices),
	}
}

// MaxID returns the highest id of kind present in the snapshot, or 0 when
// there is none. Ids only held as references count too: an order's
// invoice_id and a partner's sale_order_ids and invoice_ids.
func (s Snapshot) MaxID(kind EntityType) int {
	highest := 0
	raise := func(id int) {
		if id > highest {
			highest = id
		}
	}
	for _, id := range s.IDs(kind) {
		raise(id)
	}
	switch kind {
	case EntityInvoice:
		for _, o := range s.SaleOrders {
			if o.InvoiceID != nil {
				raise(*o.InvoiceID)
			}
		}
		for _, p := range s.Partners {
			for _, id := range p.InvoiceIDs {
				raise(id)
			}
		}
	case EntitySaleOrder:
		for _, p := range s.Partners {
			for _, id := range p.SaleOrderIDs {
				raise(id)
			}
		}
	}
	return highest
}

// IDs returns the record ids of kind in ascending order.
func (s Snapshot) IDs(kind EntityType) []int {
	var ids []int
	switch kind {
	case EntityProduct:
		for _, r := range s.Products {
			ids = append(ids, r.ID)
		}
	case EntityPartner:
		for _, r := range s.Partners {
			ids = append(ids, r.ID)
		}
	case EntitySaleOrder:
		for _, r := range s.SaleOrders {
			ids = append(ids, r.ID)
		}
	case EntityInvoice:
		for _, r := range s.Invoices {
			ids = append(ids, r.ID)
		}
	}
	sort.Ints(ids)
	return ids
}

// Has reports whether a record of kind with id exists.
func (s Snapshot) Has(kind EntityType, id int) bool {
	k := Key(id)
	var ok bool
	switch kind {
	case EntityProduct:
		_, ok = s.Products[k]
	case EntityPartner:
		_, ok = s.Partners[k]
	case EntitySaleOrder:
		_, ok = s.SaleOrders[k]
	case EntityInvoice:
		_, ok = s.Invoices[k]
	}
	return ok
}

// Remove deletes the record of kind with id and reports whether it existed.
func (s *Snapshot) Remove(kind EntityType, id int) bool {
	if !s.Has(kind, id) {
		return false
	}
	k := Key(id)
	switch kind {
	case EntityProduct:
		delete(s.Products, k)
	case EntityPartner:
		delete(s.Partners, k)
	case EntitySaleOrder:
		delete(s.SaleOrders, k)
	case EntityInvoice:
		delete(s.Invoices, k)
	}
	return true
}

// ReferenceTo returns the first record (lowest type order, then lowest id)
// that still points at the entity of kind with id.
func (s Snapshot) ReferenceTo(kind EntityType, id int) (EntityType, int, bool) {
	switch kind {
	case EntityProduct:
		for _, oid := range s.IDs(EntitySaleOrder) {
			if linesReference(s.SaleOrders[Key(oid)].Lines, id) {
				return EntitySaleOrder, oid, true
			}
		}
		for _, iid := range s.IDs(EntityInvoice) {
			if linesReference(s.Invoices[Key(iid)].Lines, id) {
				return EntityInvoice, iid, true
			}
		}
	case EntityPartner:
		for _, oid := range s.IDs(EntitySaleOrder) {
			if s.SaleOrders[Key(oid)].CustomerID == id {
				return EntitySaleOrder, oid, true
			}
		}
		for _, iid := range s.IDs(EntityInvoice) {
			if s.Invoices[Key(iid)].CustomerID == id {
				return EntityInvoice, iid, true
			}
		}
	case EntityInvoice:
		for _, oid := range s.IDs(EntitySaleOrder) {
			if ref := s.SaleOrders[Key(oid)].InvoiceID; ref != nil && *ref == id {
				return EntitySaleOrder, oid, true
			}
		}
	}
	return "", 0, false
}

func linesReference(lines []LineRecord, productID int) bool {
	for _, l := range lines {
		if l.ProductID == productID {
			return true
		}
	}
	return false
}

func cloneInts(in []int) []int {
	if in == nil {
		return nil
	}
	out := make([]int, len(in))
	copy(out, in)
	return out
}

func cloneLines(in []LineRecord) []LineRecord {
	if in == nil {
		return nil
	}
	out := make([]LineRecord, len(in))
	copy(out, in)
	return out
}
