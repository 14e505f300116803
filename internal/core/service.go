package core

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"salescore/internal/events"
	"salescore/pkg/domain"
)

// Service exposes the sales operations over the rehydrated graph. Each
// mutating operation runs inside a repository batch so that the mirror, the
// durable snapshot and the in-memory graph move together.
type Service struct {
	mu      sync.Mutex
	repo    *Repository
	graph   *Graph
	logger  Logger
	metrics MetricsRecorder
	tracer  Tracer
	events  events.Publisher
	now     func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(l Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics sets the operation metrics recorder.
func WithMetrics(m MetricsRecorder) Option {
	return func(s *Service) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithTracer sets the operation tracer.
func WithTracer(t Tracer) Option {
	return func(s *Service) {
		if t != nil {
			s.tracer = t
		}
	}
}

// WithEventPublisher sets where committed events go.
func WithEventPublisher(p events.Publisher) Option {
	return func(s *Service) {
		if p != nil {
			s.events = p
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService rehydrates the graph from the repository mirror. Partners whose
// stored relation ids drifted from the relinked graph are logged; the next
// save of such a partner rewrites its ids.
func NewService(repo *Repository, opts ...Option) (*Service, error) {
	if repo == nil {
		return nil, errors.New("service: repository required")
	}
	s := &Service{
		repo:    repo,
		logger:  noopLogger{},
		metrics: noopMetrics{},
		tracer:  noopTracer{},
		events:  events.Noop{},
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	graph, err := LoadGraph(repo.Snapshot())
	if err != nil {
		return nil, err
	}
	s.graph = graph
	for _, d := range graph.Drift() {
		s.logger.Warn("partner relation ids drifted",
			"partner_id", d.PartnerID,
			"stored_sale_order_ids", d.StoredSaleOrderIDs,
			"sale_order_ids", d.SaleOrderIDs,
			"stored_invoice_ids", d.StoredInvoiceIDs,
			"invoice_ids", d.InvoiceIDs)
	}
	return s, nil
}

// Repository returns the underlying repository.
func (s *Service) Repository() *Repository { return s.repo }

// run meters, traces and logs one operation while holding the service lock.
func (s *Service) run(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, span := s.tracer.Start(ctx, op)
	start := s.now()
	err := fn(ctx)
	elapsed := s.now().Sub(start)
	span.End(err)
	s.metrics.Observe(ctx, op, err == nil, elapsed)

	switch {
	case err == nil:
		s.logger.Debug("operation completed", "operation", op, "duration", elapsed)
	case domain.IsClientError(err):
		s.logger.Warn("operation rejected", "operation", op, "error", err)
	default:
		s.logger.Error("operation failed", "operation", op, "error", err)
	}
	return err
}

// publish delivers events after a commit. Delivery failures are logged and
// never undo the committed change.
func (s *Service) publish(ctx context.Context, evs ...events.Event) {
	for _, e := range evs {
		if e.Timestamp.IsZero() {
			e.Timestamp = s.now().UTC()
		}
		if err := s.events.Publish(ctx, e); err != nil {
			s.logger.Warn("event publish failed", "type", e.Type, "key", e.Key(), "error", err)
		}
	}
}

// ProductInput describes a new product.
type ProductInput struct {
	Name  string
	Price decimal.Decimal
	Qty   int
}

// ProductUpdate changes the non-nil fields of a product.
type ProductUpdate struct {
	Name  *string
	Price *decimal.Decimal
	Qty   *int
}

// CreateProduct validates and stores a new product.
func (s *Service) CreateProduct(ctx context.Context, in ProductInput) (*domain.Product, error) {
	var created *domain.Product
	err := s.run(ctx, "create_product", func(ctx context.Context) error {
		p, err := domain.NewProduct(s.repo.IDs(), in.Name, in.Price, in.Qty)
		if err != nil {
			return err
		}
		if err := s.repo.Save(ctx, p); err != nil {
			return err
		}
		s.graph.Put(p)
		created = p
		return nil
	})
	return created, err
}

// UpdateProduct applies upd atomically: either every field changes and is
// persisted or the product is left as it was.
func (s *Service) UpdateProduct(ctx context.Context, id int, upd ProductUpdate) (*domain.Product, error) {
	var updated *domain.Product
	err := s.run(ctx, "update_product", func(ctx context.Context) error {
		p, err := s.product(id)
		if err != nil {
			return err
		}
		return s.repo.Batch(ctx, func(tx *BatchTx) error {
			restoreProduct(tx, p)
			if upd.Name != nil {
				if err := p.SetName(*upd.Name); err != nil {
					return err
				}
			}
			if upd.Price != nil {
				if err := p.SetPrice(*upd.Price); err != nil {
					return err
				}
			}
			if upd.Qty != nil {
				if err := p.SetQty(*upd.Qty); err != nil {
					return err
				}
			}
			if err := tx.Save(ctx, p); err != nil {
				return err
			}
			updated = p
			return nil
		})
	})
	return updated, err
}

// RestockProduct adds amount units to a product's stock.
func (s *Service) RestockProduct(ctx context.Context, id, amount int) (*domain.Product, error) {
	var restocked *domain.Product
	err := s.run(ctx, "restock_product", func(ctx context.Context) error {
		p, err := s.product(id)
		if err != nil {
			return err
		}
		return s.repo.Batch(ctx, func(tx *BatchTx) error {
			restoreProduct(tx, p)
			if err := p.IncreaseQty(amount); err != nil {
				return err
			}
			if err := tx.Save(ctx, p); err != nil {
				return err
			}
			restocked = p
			return nil
		})
	})
	return restocked, err
}

// DeleteProduct removes a product no order or invoice line refers to.
func (s *Service) DeleteProduct(ctx context.Context, id int) error {
	return s.run(ctx, "delete_product", func(ctx context.Context) error {
		if _, err := s.product(id); err != nil {
			return err
		}
		if err := s.repo.Delete(ctx, domain.EntityProduct, id); err != nil {
			return err
		}
		s.graph.Drop(domain.EntityProduct, id)
		return nil
	})
}

// restoreProduct registers a rollback returning p to its current values.
func restoreProduct(tx domain.Tx, p *domain.Product) {
	name, price, qty := p.Name(), p.Price(), p.Qty()
	tx.OnRollback(func() {
		_ = p.SetName(name)
		_ = p.SetPrice(price)
		_ = p.SetQty(qty)
	})
}

// PartnerInput describes a new partner.
type PartnerInput struct {
	Name  string
	Email string
}

// PartnerUpdate changes the non-nil fields of a partner.
type PartnerUpdate struct {
	Name  *string
	Email *string
}

// CreatePartner validates and stores a new partner.
func (s *Service) CreatePartner(ctx context.Context, in PartnerInput) (*domain.Partner, error) {
	var created *domain.Partner
	err := s.run(ctx, "create_partner", func(ctx context.Context) error {
		p, err := domain.NewPartner(s.repo.IDs(), in.Name, in.Email)
		if err != nil {
			return err
		}
		if err := s.repo.Save(ctx, p); err != nil {
			return err
		}
		s.graph.Put(p)
		created = p
		return nil
	})
	return created, err
}

// UpdatePartner applies upd atomically.
func (s *Service) UpdatePartner(ctx context.Context, id int, upd PartnerUpdate) (*domain.Partner, error) {
	var updated *domain.Partner
	err := s.run(ctx, "update_partner", func(ctx context.Context) error {
		p, err := s.partner(id)
		if err != nil {
			return err
		}
		return s.repo.Batch(ctx, func(tx *BatchTx) error {
			name, email := p.Name(), p.Email()
			tx.OnRollback(func() {
				_ = p.SetName(name)
				_ = p.SetEmail(email)
			})
			if upd.Name != nil {
				if err := p.SetName(*upd.Name); err != nil {
					return err
				}
			}
			if upd.Email != nil {
				if err := p.SetEmail(*upd.Email); err != nil {
					return err
				}
			}
			if err := tx.Save(ctx, p); err != nil {
				return err
			}
			updated = p
			return nil
		})
	})
	return updated, err
}

// DeletePartner removes a partner without orders or invoices.
func (s *Service) DeletePartner(ctx context.Context, id int) error {
	return s.run(ctx, "delete_partner", func(ctx context.Context) error {
		if _, err := s.partner(id); err != nil {
			return err
		}
		if err := s.repo.Delete(ctx, domain.EntityPartner, id); err != nil {
			return err
		}
		s.graph.Drop(domain.EntityPartner, id)
		return nil
	})
}

// Product returns the product with id.
func (s *Service) Product(id int) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.product(id)
}

// Partner returns the partner with id.
func (s *Service) Partner(id int) (*domain.Partner, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.partner(id)
}

// SaleOrder returns the order with id.
func (s *Service) SaleOrder(id int) (*domain.SaleOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saleOrder(id)
}

// Invoice returns the invoice with id.
func (s *Service) Invoice(id int) (*domain.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.invoice(id)
}

// Products lists products by id.
func (s *Service) Products() []*domain.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.graph.Products()
}

// Partners lists partners by id.
func (s *Service) Partners() []*domain.Partner {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.graph.Partners()
}

// SaleOrders lists orders by id.
func (s *Service) SaleOrders() []*domain.SaleOrder {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.graph.SaleOrders()
}

// Invoices lists invoices by id.
func (s *Service) Invoices() []*domain.Invoice {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.graph.Invoices()
}

// PartnerSummary aggregates a partner's orders and invoices.
type PartnerSummary struct {
	Partner        *domain.Partner
	Orders         int
	SaleOrderIDs   []int
	InvoiceIDs     []int
	TotalInvoiced  decimal.Decimal
	PostedInvoiced decimal.Decimal
}

// PartnerSummary reports order count and invoiced totals for a partner.
func (s *Service) PartnerSummary(id int) (PartnerSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.partner(id)
	if err != nil {
		return PartnerSummary{}, err
	}
	return PartnerSummary{
		Partner:        p,
		Orders:         p.TotalOrders(),
		SaleOrderIDs:   p.SaleOrderIDs(),
		InvoiceIDs:     p.InvoiceIDs(),
		TotalInvoiced:  p.TotalInvoicedAmount(),
		PostedInvoiced: p.PostedInvoicedAmount(),
	}, nil
}

func (s *Service) product(id int) (*domain.Product, error) {
	p, ok := s.graph.Product(id)
	if !ok {
		return nil, &domain.NotFoundError{Entity: domain.EntityProduct, ID: id}
	}
	return p, nil
}

func (s *Service) partner(id int) (*domain.Partner, error) {
	p, ok := s.graph.Partner(id)
	if !ok {
		return nil, &domain.NotFoundError{Entity: domain.EntityPartner, ID: id}
	}
	return p, nil
}

func (s *Service) saleOrder(id int) (*domain.SaleOrder, error) {
	o, ok := s.graph.SaleOrder(id)
	if !ok {
		return nil, &domain.NotFoundError{Entity: domain.EntitySaleOrder, ID: id}
	}
	return o, nil
}

func (s *Service) invoice(id int) (*domain.Invoice, error) {
	inv, ok := s.graph.Invoice(id)
	if !ok {
		return nil, &domain.NotFoundError{Entity: domain.EntityInvoice, ID: id}
	}
	return inv, nil
}
