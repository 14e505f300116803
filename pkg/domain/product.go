package domain

import "github.com/shopspring/decimal"

// Product is a stocked item with a unit price.
type Product struct {
	base
	price decimal.Decimal
	qty   int
}

var _ Entity = (*Product)(nil)

// NewProduct validates the fields and allocates a fresh id. Nothing is
// allocated when validation fails.
func NewProduct(ids IDSource, name string, price decimal.Decimal, qty int) (*Product, error) {
	p := &Product{base: base{name: name}, price: price, qty: qty}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	p.id = ids.NextID(EntityProduct)
	return p, nil
}

// ProductFromRecord rebuilds a product with the record's id.
func ProductFromRecord(rec ProductRecord) (*Product, error) {
	p := &Product{
		base:  base{id: rec.ID, name: rec.Name},
		price: decimal.NewFromFloat(rec.Price),
		qty:   rec.Qty,
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Kind implements Entity.
func (p *Product) Kind() EntityType { return EntityProduct }

// Price returns the current unit price.
func (p *Product) Price() decimal.Decimal { return p.price }

// Qty returns the quantity on hand.
func (p *Product) Qty() int { return p.qty }

// Validate checks name, price and quantity constraints.
func (p *Product) Validate() error {
	if err := ValidateName(EntityProduct, p.name); err != nil {
		return err
	}
	if err := validatePrice(EntityProduct, "price", p.price); err != nil {
		return err
	}
	return validateQty(p.qty)
}

// SetName renames the product.
func (p *Product) SetName(name string) error { return p.setName(EntityProduct, name) }

// SetPrice changes the unit price. Lines already created keep their price.
func (p *Product) SetPrice(price decimal.Decimal) error {
	if err := validatePrice(EntityProduct, "price", price); err != nil {
		return err
	}
	p.price = price
	return nil
}

// SetQty overwrites the quantity on hand.
func (p *Product) SetQty(qty int) error {
	if err := validateQty(qty); err != nil {
		return err
	}
	p.qty = qty
	return nil
}

// IncreaseQty adds amount units of stock.
func (p *Product) IncreaseQty(amount int) error {
	if amount <= 0 {
		return &ValidationError{Entity: EntityProduct, Field: "amount", Message: "increase amount must be positive"}
	}
	p.qty += amount
	return nil
}

// DecreaseQty removes amount units of stock. The quantity is left unchanged
// on error.
func (p *Product) DecreaseQty(amount int) error {
	if amount <= 0 {
		return &ValidationError{Entity: EntityProduct, Field: "amount", Message: "decrease amount must be positive"}
	}
	if amount > p.qty {
		return &StockError{ProductID: p.id, Product: p.name, Requested: amount, Available: p.qty}
	}
	p.qty -= amount
	return nil
}

// Record returns the persisted shape of the product.
func (p *Product) Record() ProductRecord {
	return ProductRecord{
		ID:    p.id,
		Name:  p.name,
		Model: EntityProduct.Model(),
		Price: p.price.InexactFloat64(),
		Qty:   p.qty,
	}
}

// StoreInto implements Entity.
func (p *Product) StoreInto(s *Snapshot) {
	s.Normalize()
	s.Products[Key(p.id)] = p.Record()
}

func validatePrice(kind EntityType, field string, price decimal.Decimal) error {
	if price.IsNegative() {
		return &ValidationError{Entity: kind, Field: field, Message: "cannot be negative"}
	}
	return nil
}

func validateQty(qty int) error {
	if qty < 0 {
		return &ValidationError{Entity: EntityProduct, Field: "qty", Message: "cannot be negative"}
	}
	return nil
}
