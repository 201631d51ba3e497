// Package cart stages the lines a customer intends to buy.
package cart

import (
	"sync"

	"techstore/internal/domain"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Line pairs a catalog product with a requested quantity
type Line struct {
	Product  *domain.Product
	Quantity int
}

// Subtotal returns the line price at the product's current price
func (l Line) Subtotal() decimal.Decimal {
	return l.Product.Price().Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Cart belongs to one customer and holds at most one line per product code.
// Adding a line checks the live stock but reserves nothing.
type Cart struct {
	customer *domain.Customer

	mu    sync.Mutex
	lines []Line
}

// New creates an empty cart for the customer
func New(customer *domain.Customer) *Cart {
	return &Cart{customer: customer}
}

// Customer returns the cart owner
func (c *Cart) Customer() *domain.Customer {
	return c.customer
}

// AddLine adds quantity units of product, merging into an existing line for
// the same code. Nothing changes when the merged quantity exceeds the
// product's current stock.
func (c *Cart) AddLine(product *domain.Product, quantity int) error {
	if product == nil {
		return errors.Wrap(domain.ErrNotFound, "product")
	}
	if quantity < 1 {
		return errors.Wrapf(domain.ErrInvalidAmount, "quantity %d for %s", quantity, product.Code())
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	available := product.Stock()
	for i := range c.lines {
		if c.lines[i].Product.Code() != product.Code() {
			continue
		}
		merged := c.lines[i].Quantity + quantity
		if merged > available {
			return errors.Wrapf(domain.ErrInsufficientStock, "product %s: requested %d, available %d", product.Code(), merged, available)
		}
		c.lines[i].Quantity = merged
		return nil
	}

	if quantity > available {
		return errors.Wrapf(domain.ErrInsufficientStock, "product %s: requested %d, available %d", product.Code(), quantity, available)
	}
	c.lines = append(c.lines, Line{Product: product, Quantity: quantity})
	return nil
}

// Lines returns a copy of the cart lines in insertion order
func (c *Cart) Lines() []Line {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot()
}

// Len returns the number of distinct products in the cart
func (c *Cart) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.lines)
}

// CalculateTotal sums unit price × quantity over all lines
func (c *Cart) CalculateTotal() decimal.Decimal {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Total(c.lines)
}

// Clear empties the cart
func (c *Cart) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = nil
}

// Checkout passes a snapshot of the lines to commit while holding the cart,
// so no line can be added mid-purchase. The cart is cleared only when commit
// returns nil; otherwise it is left exactly as it was.
func (c *Cart) Checkout(commit func(lines []Line) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := commit(c.snapshot()); err != nil {
		return err
	}
	c.lines = nil
	return nil
}

func (c *Cart) snapshot() []Line {
	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}

// Total sums the subtotals of lines
func Total(lines []Line) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Subtotal())
	}
	return total
}
