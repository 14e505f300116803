// Package domain defines the sales entities, their validation rules and the
// snapshot records they serialize into.
package domain

import "context"

// EntityType identifies the type of record stored in the snapshot.
type EntityType string

// Supported entity types, one snapshot collection each.
const (
	// EntityProduct identifies a stocked, priced product.
	EntityProduct EntityType = "product"
	// EntityPartner identifies a customer.
	EntityPartner EntityType = "partner"
	// EntitySaleOrder identifies a sale order.
	EntitySaleOrder EntityType = "sale_order"
	// EntityInvoice identifies an invoice.
	EntityInvoice EntityType = "invoice"
)

// EntityTypes lists every entity type in load order.
var EntityTypes = []EntityType{EntityProduct, EntityPartner, EntityInvoice, EntitySaleOrder}

// Collection returns the snapshot collection name for the type.
func (t EntityType) Collection() string {
	switch t {
	case EntityProduct:
		return "products"
	case EntityPartner:
		return "partners"
	case EntitySaleOrder:
		return "saleorders"
	case EntityInvoice:
		return "invoices"
	}
	return string(t)
}

// Model returns the type tag written into every record's "model" field.
func (t EntityType) Model() string {
	switch t {
	case EntityProduct:
		return "Product"
	case EntityPartner:
		return "Partner"
	case EntitySaleOrder:
		return "SaleOrder"
	case EntityInvoice:
		return "Invoice"
	}
	return string(t)
}

// Entity is implemented by every persisted domain object.
type Entity interface {
	ID() int
	Name() string
	Kind() EntityType
	Validate() error
	// StoreInto upserts the entity's record into its snapshot collection.
	StoreInto(*Snapshot)
}

// Saver persists a single entity.
type Saver interface {
	Save(ctx context.Context, e Entity) error
}

// Tx is the persistence scope handed to multi-step workflows. Rollback hooks
// run in reverse registration order when the scope fails; scopes that cannot
// roll back ignore them.
type Tx interface {
	Saver
	OnRollback(fn func())
}

// Resolver looks up canonical product and partner instances while decoding
// records that reference them.
type Resolver interface {
	Product(id int) (*Product, bool)
	Partner(id int) (*Partner, bool)
}

// ValidateName rejects empty names.
func ValidateName(kind EntityType, value string) error {
	if value == "" {
		return &ValidationError{Entity: kind, Field: "name", Message: "cannot be empty"}
	}
	return nil
}

// base carries the identity fields shared by all entities.
type base struct {
	id   int
	name string
}

// ID returns the entity identifier.
func (b *base) ID() int { return b.id }

// Name returns the entity display name.
func (b *base) Name() string { return b.name }

func (b *base) setName(kind EntityType, value string) error {
	if err := ValidateName(kind, value); err != nil {
		return err
	}
	b.name = value
	return nil
}
