package core

import (
	"context"

	"github.com/shopspring/decimal"

	"salescore/internal/events"
	"salescore/pkg/domain"
)

// LineInput describes one order or invoice line. A nil UnitPrice takes the
// product's current price.
type LineInput struct {
	ProductID int
	Qty       int
	UnitPrice *decimal.Decimal
}

// CreateSaleOrder stores a draft order for a customer with the given lines.
func (s *Service) CreateSaleOrder(ctx context.Context, customerID int, lines []LineInput) (*domain.SaleOrder, error) {
	var created *domain.SaleOrder
	err := s.run(ctx, "create_sale_order", func(ctx context.Context) error {
		customer, err := s.partner(customerID)
		if err != nil {
			return err
		}
		err = s.repo.Batch(ctx, func(tx *BatchTx) error {
			o, err := domain.NewSaleOrder(s.repo.IDs(), customer)
			if err != nil {
				return err
			}
			tx.OnRollback(func() { customer.RemoveSaleOrder(o.ID()) })
			for _, in := range lines {
				p, err := s.product(in.ProductID)
				if err != nil {
					return err
				}
				if err := o.AddLine(p, in.Qty, in.UnitPrice); err != nil {
					return err
				}
			}
			if err := tx.Save(ctx, o); err != nil {
				return err
			}
			if err := tx.Save(ctx, customer); err != nil {
				return err
			}
			created = o
			return nil
		})
		if err != nil {
			return err
		}
		s.graph.Put(created)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// ConfirmSaleOrder runs the confirmation workflow for a draft order inside
// one batch: stock is checked for every line before anything changes, and a
// failure at any later step restores stock, order state and customer links.
func (s *Service) ConfirmSaleOrder(ctx context.Context, id int) (*domain.Invoice, error) {
	var (
		inv   *domain.Invoice
		order *domain.SaleOrder
	)
	err := s.run(ctx, "confirm_sale_order", func(ctx context.Context) error {
		o, err := s.saleOrder(id)
		if err != nil {
			return err
		}
		err = s.repo.Batch(ctx, func(tx *BatchTx) error {
			created, err := o.Confirm(ctx, s.repo.IDs(), tx)
			if err != nil {
				return err
			}
			inv, order = created, o
			return nil
		})
		if err != nil {
			return err
		}
		s.graph.Put(inv)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx,
		events.Event{
			Type:        events.OrderConfirmed,
			Aggregate:   string(domain.EntitySaleOrder),
			AggregateID: order.ID(),
			CustomerID:  order.Customer().ID(),
			Metadata: map[string]any{
				"invoice_id": inv.ID(),
				"total":      order.TotalAmount().String(),
			},
		},
		invoiceEvent(events.InvoiceCreated, inv),
	)
	return inv, nil
}

// CancelSaleOrder cancels a draft or confirmed order. Stock consumed by a
// confirmed order stays consumed.
func (s *Service) CancelSaleOrder(ctx context.Context, id int) (*domain.SaleOrder, error) {
	var (
		cancelled *domain.SaleOrder
		previous  domain.OrderState
	)
	err := s.run(ctx, "cancel_sale_order", func(ctx context.Context) error {
		o, err := s.saleOrder(id)
		if err != nil {
			return err
		}
		previous = o.State()
		return s.repo.Batch(ctx, func(tx *BatchTx) error {
			if err := o.CancelAndSave(ctx, tx); err != nil {
				return err
			}
			cancelled = o
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	if previous == domain.OrderConfirmed {
		s.logger.Warn("confirmed order cancelled without restock", "sale_order_id", id)
	}
	s.publish(ctx, events.Event{
		Type:        events.OrderCancelled,
		Aggregate:   string(domain.EntitySaleOrder),
		AggregateID: cancelled.ID(),
		CustomerID:  cancelled.Customer().ID(),
		Metadata: map[string]any{
			"previous_state": string(previous),
			"restocked":      false,
		},
	})
	return cancelled, nil
}

// DeleteSaleOrder removes an order and detaches it from its customer.
func (s *Service) DeleteSaleOrder(ctx context.Context, id int) error {
	return s.run(ctx, "delete_sale_order", func(ctx context.Context) error {
		o, err := s.saleOrder(id)
		if err != nil {
			return err
		}
		customer := o.Customer()
		err = s.repo.Batch(ctx, func(tx *BatchTx) error {
			if err := tx.Delete(ctx, domain.EntitySaleOrder, id); err != nil {
				return err
			}
			customer.RemoveSaleOrder(id)
			tx.OnRollback(func() { customer.AddSaleOrder(o) })
			return tx.Save(ctx, customer)
		})
		if err != nil {
			return err
		}
		s.graph.Drop(domain.EntitySaleOrder, id)
		return nil
	})
}

// CreateInvoice stores a draft invoice for a customer with the given lines,
// outside the order workflow.
func (s *Service) CreateInvoice(ctx context.Context, customerID int, lines []LineInput) (*domain.Invoice, error) {
	var created *domain.Invoice
	err := s.run(ctx, "create_invoice", func(ctx context.Context) error {
		customer, err := s.partner(customerID)
		if err != nil {
			return err
		}
		err = s.repo.Batch(ctx, func(tx *BatchTx) error {
			inv, err := domain.NewInvoice(s.repo.IDs(), customer)
			if err != nil {
				return err
			}
			tx.OnRollback(func() { customer.RemoveInvoice(inv.ID()) })
			for _, in := range lines {
				p, err := s.product(in.ProductID)
				if err != nil {
					return err
				}
				if err := inv.AddLine(p, in.Qty, in.UnitPrice); err != nil {
					return err
				}
			}
			if err := tx.Save(ctx, inv); err != nil {
				return err
			}
			if err := tx.Save(ctx, customer); err != nil {
				return err
			}
			created = inv
			return nil
		})
		if err != nil {
			return err
		}
		s.graph.Put(created)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, invoiceEvent(events.InvoiceCreated, created))
	return created, nil
}

// PostInvoice posts a draft invoice and saves it with its customer.
func (s *Service) PostInvoice(ctx context.Context, id int) (*domain.Invoice, error) {
	var posted *domain.Invoice
	err := s.run(ctx, "post_invoice", func(ctx context.Context) error {
		inv, err := s.invoice(id)
		if err != nil {
			return err
		}
		return s.repo.Batch(ctx, func(tx *BatchTx) error {
			if err := inv.PostAndSave(ctx, tx); err != nil {
				return err
			}
			posted = inv
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, invoiceEvent(events.InvoicePosted, posted))
	return posted, nil
}

// DeleteInvoice removes an invoice no order points at and detaches it from
// its customer.
func (s *Service) DeleteInvoice(ctx context.Context, id int) error {
	return s.run(ctx, "delete_invoice", func(ctx context.Context) error {
		inv, err := s.invoice(id)
		if err != nil {
			return err
		}
		customer := inv.Customer()
		err = s.repo.Batch(ctx, func(tx *BatchTx) error {
			if err := tx.Delete(ctx, domain.EntityInvoice, id); err != nil {
				return err
			}
			customer.RemoveInvoice(id)
			tx.OnRollback(func() { customer.AddInvoice(inv) })
			return tx.Save(ctx, customer)
		})
		if err != nil {
			return err
		}
		s.graph.Drop(domain.EntityInvoice, id)
		return nil
	})
}

func invoiceEvent(t events.Type, inv *domain.Invoice) events.Event {
	return events.Event{
		Type:        t,
		Aggregate:   string(domain.EntityInvoice),
		AggregateID: inv.ID(),
		CustomerID:  inv.Customer().ID(),
		Metadata: map[string]any{
			"state": string(inv.State()),
			"total": inv.TotalAmount().String(),
		},
	}
}
