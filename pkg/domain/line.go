package domain

import "github.com/shopspring/decimal"

// Line is one product/quantity entry on an invoice or sale order. The unit
// price is captured when the line is created and never follows later product
// price changes.
type Line struct {
	product   *Product
	qty       int
	unitPrice decimal.Decimal
}

// InvoiceLine is a line on an invoice.
type InvoiceLine = Line

// SaleOrderLine is a line on a sale order.
type SaleOrderLine = Line

// NewLine builds a line for product. A nil unitPrice takes the product's
// current price.
func NewLine(owner EntityType, product *Product, qty int, unitPrice *decimal.Decimal) (Line, error) {
	if product == nil {
		return Line{}, &ValidationError{Entity: owner, Field: "product", Message: "is required"}
	}
	if qty <= 0 {
		return Line{}, &ValidationError{Entity: owner, Field: "qty", Message: "quantity must be positive"}
	}
	price := product.Price()
	if unitPrice != nil {
		price = *unitPrice
	}
	if err := validatePrice(owner, "unit_price", price); err != nil {
		return Line{}, err
	}
	return Line{product: product, qty: qty, unitPrice: price}, nil
}

// Product returns the referenced product.
func (l Line) Product() *Product { return l.product }

// Qty returns the line quantity.
func (l Line) Qty() int { return l.qty }

// UnitPrice returns the captured unit price.
func (l Line) UnitPrice() decimal.Decimal { return l.unitPrice }

// Total returns unit price times quantity.
func (l Line) Total() decimal.Decimal {
	return l.unitPrice.Mul(decimal.NewFromInt(int64(l.qty)))
}

// Record returns the persisted shape of the line.
func (l Line) Record() LineRecord {
	return LineRecord{ProductID: l.product.ID(), Qty: l.qty, UnitPrice: l.unitPrice.InexactFloat64()}
}

func linesFromRecords(owner EntityType, ownerID int, recs []LineRecord, resolve Resolver) ([]Line, error) {
	lines := make([]Line, 0, len(recs))
	for _, rec := range recs {
		product, ok := resolve.Product(rec.ProductID)
		if !ok {
			return nil, &ReferenceError{Entity: owner, ID: ownerID, Missing: EntityProduct, MissingID: rec.ProductID}
		}
		price := decimal.NewFromFloat(rec.UnitPrice)
		line, err := NewLine(owner, product, rec.Qty, &price)
		if err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, nil
}

func lineRecords(lines []Line) []LineRecord {
	out := make([]LineRecord, 0, len(lines))
	for _, l := range lines {
		out = append(out, l.Record())
	}
	return out
}

func sumLines(lines []Line) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Total())
	}
	return total
}
