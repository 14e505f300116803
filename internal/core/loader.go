package core

import (
	"fmt"
	"slices"
	"sort"

	"salescore/pkg/domain"
)

// Graph is the rehydrated object graph. It holds exactly one instance per
// product and partner; every line and customer reference points at it.
type Graph struct {
	products   map[int]*domain.Product
	partners   map[int]*domain.Partner
	invoices   map[int]*domain.Invoice
	saleOrders map[int]*domain.SaleOrder
}

// Drift describes a partner whose persisted relation ids differ from the
// relations rebuilt from orders and invoices.
type Drift struct {
	PartnerID          int
	StoredSaleOrderIDs []int
	SaleOrderIDs       []int
	StoredInvoiceIDs   []int
	InvoiceIDs         []int
}

// NewGraph returns an empty graph.
func NewGraph() *Graph {
	return &Graph{
		products:   make(map[int]*domain.Product),
		partners:   make(map[int]*domain.Partner),
		invoices:   make(map[int]*domain.Invoice),
		saleOrders: make(map[int]*domain.SaleOrder),
	}
}

// LoadGraph decodes snap into a graph. Products and partners are decoded
// first so invoices and orders resolve against the canonical instances;
// within a collection records are visited in ascending id order. Decoding
// an invoice or order re-attaches it to its customer.
func LoadGraph(snap domain.Snapshot) (*Graph, error) {
	snap.Normalize()
	g := NewGraph()

	products, err := orderedRecords(domain.EntityProduct, snap.Products, func(r domain.ProductRecord) int { return r.ID })
	if err != nil {
		return nil, err
	}
	for _, rec := range products {
		p, err := domain.ProductFromRecord(rec)
		if err != nil {
			return nil, err
		}
		g.products[p.ID()] = p
	}

	partners, err := orderedRecords(domain.EntityPartner, snap.Partners, func(r domain.PartnerRecord) int { return r.ID })
	if err != nil {
		return nil, err
	}
	for _, rec := range partners {
		p, err := domain.PartnerFromRecord(rec)
		if err != nil {
			return nil, err
		}
		g.partners[p.ID()] = p
	}

	invoices, err := orderedRecords(domain.EntityInvoice, snap.Invoices, func(r domain.InvoiceRecord) int { return r.ID })
	if err != nil {
		return nil, err
	}
	for _, rec := range invoices {
		inv, err := domain.InvoiceFromRecord(rec, g)
		if err != nil {
			return nil, err
		}
		g.invoices[inv.ID()] = inv
	}

	orders, err := orderedRecords(domain.EntitySaleOrder, snap.SaleOrders, func(r domain.SaleOrderRecord) int { return r.ID })
	if err != nil {
		return nil, err
	}
	for _, rec := range orders {
		o, err := domain.SaleOrderFromRecord(rec, g)
		if err != nil {
			return nil, err
		}
		g.saleOrders[o.ID()] = o
	}
	return g, nil
}

// orderedRecords returns the collection sorted by record id, rejecting any
// record stored under a key other than its own id.
func orderedRecords[R any](kind domain.EntityType, records map[string]R, id func(R) int) ([]R, error) {
	keys := make([]string, 0, len(records))
	for k := range records {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]R, 0, len(records))
	for _, k := range keys {
		rec := records[k]
		if k != domain.Key(id(rec)) {
			return nil, &domain.ValidationError{
				Entity:  kind,
				Field:   "id",
				Message: fmt.Sprintf("record stored under key %q has id %d", k, id(rec)),
			}
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return id(out[i]) < id(out[j]) })
	return out, nil
}

// Product implements domain.Resolver.
func (g *Graph) Product(id int) (*domain.Product, bool) {
	p, ok := g.products[id]
	return p, ok
}

// Partner implements domain.Resolver.
func (g *Graph) Partner(id int) (*domain.Partner, bool) {
	p, ok := g.partners[id]
	return p, ok
}

// Invoice returns the invoice with id.
func (g *Graph) Invoice(id int) (*domain.Invoice, bool) {
	inv, ok := g.invoices[id]
	return inv, ok
}

// SaleOrder returns the order with id.
func (g *Graph) SaleOrder(id int) (*domain.SaleOrder, bool) {
	o, ok := g.saleOrders[id]
	return o, ok
}

// Put registers e, replacing any entity of the same kind and id.
func (g *Graph) Put(e domain.Entity) {
	switch v := e.(type) {
	case *domain.Product:
		g.products[v.ID()] = v
	case *domain.Partner:
		g.partners[v.ID()] = v
	case *domain.Invoice:
		g.invoices[v.ID()] = v
	case *domain.SaleOrder:
		g.saleOrders[v.ID()] = v
	}
}

// Drop forgets the entity of kind with id.
func (g *Graph) Drop(kind domain.EntityType, id int) {
	switch kind {
	case domain.EntityProduct:
		delete(g.products, id)
	case domain.EntityPartner:
		delete(g.partners, id)
	case domain.EntityInvoice:
		delete(g.invoices, id)
	case domain.EntitySaleOrder:
		delete(g.saleOrders, id)
	}
}

// Products returns every product ordered by id.
func (g *Graph) Products() []*domain.Product { return sortedByID(g.products) }

// Partners returns every partner ordered by id.
func (g *Graph) Partners() []*domain.Partner { return sortedByID(g.partners) }

// Invoices returns every invoice ordered by id.
func (g *Graph) Invoices() []*domain.Invoice { return sortedByID(g.invoices) }

// SaleOrders returns every order ordered by id.
func (g *Graph) SaleOrders() []*domain.SaleOrder { return sortedByID(g.saleOrders) }

// Drift lists partners whose stored relation ids disagree with the relinked
// relations, ordered by partner id.
func (g *Graph) Drift() []Drift {
	var out []Drift
	for _, p := range g.Partners() {
		stored, linked := sortedCopy(p.StoredSaleOrderIDs()), sortedCopy(p.SaleOrderIDs())
		storedInv, linkedInv := sortedCopy(p.StoredInvoiceIDs()), sortedCopy(p.InvoiceIDs())
		if slices.Equal(stored, linked) && slices.Equal(storedInv, linkedInv) {
			continue
		}
		out = append(out, Drift{
			PartnerID:          p.ID(),
			StoredSaleOrderIDs: stored,
			SaleOrderIDs:       linked,
			StoredInvoiceIDs:   storedInv,
			InvoiceIDs:         linkedInv,
		})
	}
	return out
}

func sortedByID[T interface{ ID() int }](m map[int]T) []T {
	out := make([]T, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

func sortedCopy(ids []int) []int {
	out := append([]int{}, ids...)
	slices.Sort(out)
	return out
}

var _ domain.Resolver = (*Graph)(nil)
