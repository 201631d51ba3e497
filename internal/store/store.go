// Package store owns the catalog and the customer registry and runs the
// purchase transaction over them.
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"techstore/internal/cart"
	"techstore/internal/discount"
	"techstore/internal/domain"
	"techstore/internal/payment"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const tracerName = "techstore/internal/store"

// Store is the single owner of products and customers. All stock and
// history mutation goes through its methods.
type Store struct {
	name   string
	logger *zap.Logger
	tracer trace.Tracer
	now    func() time.Time

	mu            sync.RWMutex
	products      map[string]*domain.Product
	productLocks  map[string]*sync.Mutex
	productOrder  []string
	customers     map[string]*domain.Customer
	customerOrder []string
}

// Option configures a Store
type Option func(*Store)

// WithClock overrides the purchase timestamp source
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithTracerProvider sets the provider purchase spans are created from
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Store) { s.tracer = tp.Tracer(tracerName) }
}

// New creates an empty store
func New(name string, logger *zap.Logger, opts ...Option) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Store{
		name:         name,
		logger:       logger,
		tracer:       otel.Tracer(tracerName),
		now:          time.Now,
		products:     make(map[string]*domain.Product),
		productLocks: make(map[string]*sync.Mutex),
		customers:    make(map[string]*domain.Customer),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the store name printed on invoices
func (s *Store) Name() string {
	return s.name
}

// AddProduct adds a product to the catalog
func (s *Store) AddProduct(p *domain.Product) error {
	if p == nil {
		return errors.New("product is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.products[p.Code()]; exists {
		return errors.Wrapf(domain.ErrDuplicateCode, "product %s", p.Code())
	}
	s.products[p.Code()] = p
	s.productLocks[p.Code()] = &sync.Mutex{}
	s.productOrder = append(s.productOrder, p.Code())

	s.logger.Info("Product added to catalog",
		zap.String("code", p.Code()),
		zap.String("kind", string(p.Kind())),
		zap.Int("stock", p.Stock()),
	)
	return nil
}

// RegisterCustomer adds a customer to the registry
func (s *Store) RegisterCustomer(c *domain.Customer) error {
	if c == nil {
		return errors.New("customer is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.customers[c.ID()]; exists {
		return errors.Wrapf(domain.ErrDuplicateID, "customer %s", c.ID())
	}
	s.customers[c.ID()] = c
	s.customerOrder = append(s.customerOrder, c.ID())

	s.logger.Info("Customer registered", zap.String("customer_id", c.ID()))
	return nil
}

// FindProduct looks a product up by code
func (s *Store) FindProduct(code string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[code]
	if !ok {
		return nil, errors.Wrapf(domain.ErrNotFound, "product %s", code)
	}
	return p, nil
}

// FindCustomer looks a customer up by id
func (s *Store) FindCustomer(id string) (*domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.customers[id]
	if !ok {
		return nil, errors.Wrapf(domain.ErrNotFound, "customer %s", id)
	}
	return c, nil
}

// Products lists the catalog in the order products were added
func (s *Store) Products() []*domain.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.Product, 0, len(s.productOrder))
	for _, code := range s.productOrder {
		out = append(out, s.products[code])
	}
	return out
}

// Customers lists the registry in the order customers registered
func (s *Store) Customers() []*domain.Customer {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.Customer, 0, len(s.customerOrder))
	for _, id := range s.customerOrder {
		out = append(out, s.customers[id])
	}
	return out
}

// Restock adds qty units to a catalog product
func (s *Store) Restock(code string, qty int) error {
	p, err := s.FindProduct(code)
	if err != nil {
		return err
	}

	unlock := s.lockProducts([]string{code})
	defer unlock()

	if err := p.IncreaseStock(qty); err != nil {
		return err
	}

	s.logger.Info("Product restocked",
		zap.String("code", code),
		zap.Int("added", qty),
		zap.Int("stock", p.Stock()),
	)
	return nil
}

// ProcessPurchase checks out the cart as a single all-or-nothing step:
// every line is validated against live stock, the total is discounted and
// settled, and only then is stock reduced and the purchase recorded. On any
// failure the catalog, the customer and the cart are left untouched.
// A nil discount means none is applied.
func (s *Store) ProcessPurchase(ctx context.Context, c *cart.Cart, method payment.Method, d discount.Discount) (*Invoice, error) {
	ctx, span := s.tracer.Start(ctx, "store.ProcessPurchase")
	defer span.End()

	invoice, err := s.processPurchase(ctx, span, c, method, d)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.String("purchase.outcome", outcome(err)))

		s.logger.Warn("Purchase rejected", zap.Error(err))
		return nil, err
	}

	span.SetAttributes(
		attribute.String("purchase.id", invoice.PurchaseID.String()),
		attribute.String("purchase.outcome", "committed"),
		attribute.String("purchase.total", invoice.Total.String()),
		attribute.Int("purchase.points", invoice.PointsEarned),
	)
	s.logger.Info("Purchase processed",
		zap.String("purchase_id", invoice.PurchaseID.String()),
		zap.String("customer_id", invoice.CustomerID),
		zap.String("subtotal", invoice.Subtotal.String()),
		zap.String("total", invoice.Total.String()),
		zap.Int("points_earned", invoice.PointsEarned),
	)
	return invoice, nil
}

func (s *Store) processPurchase(ctx context.Context, span trace.Span, c *cart.Cart, method payment.Method, d discount.Discount) (*Invoice, error) {
	if c == nil {
		return nil, errors.New("cart is required")
	}
	if method == nil {
		return nil, errors.New("payment method is required")
	}

	customer := c.Customer()
	if customer == nil {
		return nil, errors.Wrap(domain.ErrNotFound, "cart has no customer")
	}
	registered, err := s.FindCustomer(customer.ID())
	if err != nil {
		return nil, err
	}
	if registered != customer {
		return nil, errors.Wrapf(domain.ErrNotFound, "customer %s is not registered with this store", customer.ID())
	}
	span.SetAttributes(
		attribute.String("customer.id", customer.ID()),
		attribute.String("payment.method", string(method.Type())),
	)

	var invoice *Invoice
	err = c.Checkout(func(lines []cart.Line) error {
		if len(lines) == 0 {
			return errors.Wrap(domain.ErrInvalidAmount, "cart is empty")
		}
		span.SetAttributes(attribute.Int("cart.lines", len(lines)))

		productCodes := make([]string, 0, len(lines))
		for _, l := range lines {
			catalogued, err := s.FindProduct(l.Product.Code())
			if err != nil {
				return err
			}
			if catalogued != l.Product {
				return errors.Wrapf(domain.ErrNotFound, "product %s is not part of this catalog", l.Product.Code())
			}
			productCodes = append(productCodes, l.Product.Code())
		}

		unlock := s.lockProducts(productCodes)
		defer unlock()

		for _, l := range lines {
			if available := l.Product.Stock(); l.Quantity > available {
				return errors.Wrapf(domain.ErrInsufficientStock, "product %s (%s): requested %d, available %d",
					l.Product.Code(), l.Product.Name(), l.Quantity, available)
			}
		}

		before := cart.Total(lines)
		after := before
		description := ""
		if d != nil {
			after = d.Apply(before)
			description = d.Description()
		}

		if err := method.Settle(ctx, after); err != nil {
			return fmt.Errorf("%w: %s: %w", domain.ErrPaymentDeclined, method.Description(), err)
		}

		// Validation above holds every lock, so these reductions cannot fail
		// unless stock was changed outside the store.
		for _, l := range lines {
			if err := l.Product.ReduceStock(l.Quantity); err != nil {
				s.logger.Error("Stock changed outside the store during commit",
					zap.String("code", l.Product.Code()),
					zap.Error(err),
				)
				return errors.Wrap(err, "commit")
			}
		}

		purchase := domain.Purchase{
			ID:                  uuid.New(),
			Timestamp:           s.now(),
			Lines:               snapshot(lines),
			TotalBeforeDiscount: before,
			TotalAfterDiscount:  after,
			DiscountDescription: description,
			PaymentDescription:  method.Description(),
		}
		customer.RecordPurchase(purchase)

		inv := NewInvoice(s.name, customer, purchase)
		invoice = &inv
		return nil
	})
	if err != nil {
		return nil, err
	}
	return invoice, nil
}

// lockProducts acquires the locks of codes in sorted order and returns the
// matching release function.
func (s *Store) lockProducts(codes []string) func() {
	sorted := make([]string, len(codes))
	copy(sorted, codes)
	sort.Strings(sorted)

	s.mu.RLock()
	locks := make([]*sync.Mutex, 0, len(sorted))
	for i, code := range sorted {
		if i > 0 && sorted[i-1] == code {
			continue
		}
		if l, ok := s.productLocks[code]; ok {
			locks = append(locks, l)
		}
	}
	s.mu.RUnlock()

	for _, l := range locks {
		l.Lock()
	}
	return func() {
		for i := len(locks) - 1; i >= 0; i-- {
			locks[i].Unlock()
		}
	}
}

func snapshot(lines []cart.Line) []domain.PurchaseLine {
	out := make([]domain.PurchaseLine, 0, len(lines))
	for _, l := range lines {
		out = append(out, domain.PurchaseLine{
			ProductCode: l.Product.Code(),
			ProductName: l.Product.Name(),
			UnitPrice:   l.Product.Price(),
			Quantity:    l.Quantity,
		})
	}
	return out
}

func outcome(err error) string {
	switch {
	case errors.Is(err, domain.ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, domain.ErrPaymentDeclined):
		return "payment_declined"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrInvalidAmount):
		return "invalid_amount"
	default:
		return "error"
	}
}

// CustomerSummary aggregates one customer's purchases
type CustomerSummary struct {
	ID        string
	Name      string
	Purchases int
	Spent     decimal.Decimal
	Points    int
}

// Summary aggregates sales over the whole store
type Summary struct {
	StoreName     string
	ProductCount  int
	CustomerCount int
	TotalSales    decimal.Decimal
	TotalPoints   int
	Customers     []CustomerSummary
}

// Summary reports total sales and points, overall and per customer
func (s *Store) Summary() Summary {
	products := s.Products()
	customers := s.Customers()

	summary := Summary{
		StoreName:     s.name,
		ProductCount:  len(products),
		CustomerCount: len(customers),
		TotalSales:    decimal.Zero,
		Customers:     make([]CustomerSummary, 0, len(customers)),
	}
	for _, c := range customers {
		cs := CustomerSummary{
			ID:        c.ID(),
			Name:      c.Name(),
			Purchases: len(c.Purchases()),
			Spent:     c.TotalSpent(),
			Points:    c.Points(),
		}
		summary.TotalSales = summary.TotalSales.Add(cs.Spent)
		summary.TotalPoints += cs.Points
		summary.Customers = append(summary.Customers, cs)
	}
	return summary
}
