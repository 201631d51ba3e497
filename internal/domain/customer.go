package domain

import (
	"strings"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// pointsDivisor is the spend that earns one loyalty point
const pointsDivisor = 10

// PurchaseLine is a priced copy of a cart line taken at purchase time
type PurchaseLine struct {
	ProductCode string
	ProductName string
	UnitPrice   decimal.Decimal
	Quantity    int
}

// Subtotal returns UnitPrice × Quantity
func (l PurchaseLine) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Purchase is the immutable record of a committed sale
type Purchase struct {
	ID                  uuid.UUID
	Timestamp           time.Time
	Lines               []PurchaseLine
	TotalBeforeDiscount decimal.Decimal
	TotalAfterDiscount  decimal.Decimal
	DiscountDescription string
	PaymentDescription  string
}

// HasDiscount reports whether a discount was applied to the purchase
func (p Purchase) HasDiscount() bool {
	return p.DiscountDescription != ""
}

// DiscountAmount returns how much the discount took off the total
func (p Purchase) DiscountAmount() decimal.Decimal {
	return p.TotalBeforeDiscount.Sub(p.TotalAfterDiscount)
}

func (p Purchase) clone() Purchase {
	p.Lines = append([]PurchaseLine(nil), p.Lines...)
	return p
}

// Points returns the loyalty points the purchase earns
func (p Purchase) Points() int {
	return PointsFor(p.TotalAfterDiscount)
}

// PointsFor returns floor(total / 10), or zero for a non-positive total
func PointsFor(total decimal.Decimal) int {
	if !total.IsPositive() {
		return 0
	}
	return int(total.Div(decimal.NewFromInt(pointsDivisor)).Floor().IntPart())
}

// Customer is a registered shopper with a purchase history
type Customer struct {
	id   string
	name string

	mu        sync.RWMutex
	purchases []Purchase
	points    int
}

// NewCustomer creates a customer with no history
func NewCustomer(id, name string) (*Customer, error) {
	if strings.TrimSpace(id) == "" {
		return nil, errors.New("customer id is required")
	}
	return &Customer{id: id, name: name}, nil
}

func (c *Customer) ID() string   { return c.id }
func (c *Customer) Name() string { return c.name }

// Points returns the accumulated loyalty points
func (c *Customer) Points() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.points
}

// Purchases returns a deep copy of the purchase history, oldest first
func (c *Customer) Purchases() []Purchase {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Purchase, 0, len(c.purchases))
	for _, p := range c.purchases {
		out = append(out, p.clone())
	}
	return out
}

// TotalSpent sums the post-discount totals of every purchase
func (c *Customer) TotalSpent() decimal.Decimal {
	c.mu.RLock()
	defer c.mu.RUnlock()
	total := decimal.Zero
	for _, p := range c.purchases {
		total = total.Add(p.TotalAfterDiscount)
	}
	return total
}

// RecordPurchase appends a copy of the purchase and awards its points. It
// returns the points awarded and the new balance.
func (c *Customer) RecordPurchase(p Purchase) (awarded, balance int) {
	awarded = p.Points()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.purchases = append(c.purchases, p.clone())
	c.points += awarded
	return awarded, c.points
}
