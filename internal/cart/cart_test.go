package cart

import (
	"testing"

	"techstore/internal/domain"

	"github.com/go-faster/errors"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newProduct(t *testing.T, code string, price int64, stock int) *domain.Product {
	t.Helper()
	p, err := domain.NewElectronic(code, "Product "+code, decimal.NewFromInt(price), stock, 12, "Brand")
	require.NoError(t, err)
	return p
}

func newCustomer(t *testing.T) *domain.Customer {
	t.Helper()
	c, err := domain.NewCustomer("CLI001", "Maria Gonzalez")
	require.NoError(t, err)
	return c
}

func TestAddLineMergesDuplicates(t *testing.T) {
	p := newProduct(t, "P", 20, 10)
	c := New(newCustomer(t))

	require.NoError(t, c.AddLine(p, 3))
	require.NoError(t, c.AddLine(p, 4))

	lines := c.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, 7, lines[0].Quantity)
	assert.Equal(t, 10, p.Stock(), "adding to the cart must not reserve stock")
	assert.True(t, decimal.NewFromInt(140).Equal(c.CalculateTotal()))
}

func TestAddLineRejectsInsufficientStock(t *testing.T) {
	q := newProduct(t, "Q", 5, 2)
	c := New(newCustomer(t))

	err := c.AddLine(q, 3)
	assert.True(t, errors.Is(err, domain.ErrInsufficientStock))
	assert.Zero(t, c.Len())
	assert.Equal(t, 2, q.Stock())

	require.NoError(t, c.AddLine(q, 2))
	err = c.AddLine(q, 1)
	assert.True(t, errors.Is(err, domain.ErrInsufficientStock))
	assert.Equal(t, 2, c.Lines()[0].Quantity, "failed merge must leave the line untouched")
}

func TestAddLineRejectsNonPositiveQuantity(t *testing.T) {
	p := newProduct(t, "P", 20, 10)
	c := New(newCustomer(t))

	assert.True(t, errors.Is(c.AddLine(p, 0), domain.ErrInvalidAmount))
	assert.True(t, errors.Is(c.AddLine(p, -2), domain.ErrInvalidAmount))
	assert.True(t, errors.Is(c.AddLine(nil, 1), domain.ErrNotFound))
	assert.Zero(t, c.Len())
}

func TestLinesKeepInsertionOrder(t *testing.T) {
	a := newProduct(t, "A", 1, 5)
	b := newProduct(t, "B", 2, 5)
	c := New(newCustomer(t))

	require.NoError(t, c.AddLine(b, 1))
	require.NoError(t, c.AddLine(a, 1))
	require.NoError(t, c.AddLine(b, 1))

	lines := c.Lines()
	require.Len(t, lines, 2)
	assert.Equal(t, "B", lines[0].Product.Code())
	assert.Equal(t, 2, lines[0].Quantity)
	assert.Equal(t, "A", lines[1].Product.Code())
}

func TestCheckoutClearsOnlyOnSuccess(t *testing.T) {
	p := newProduct(t, "P", 20, 10)
	c := New(newCustomer(t))
	require.NoError(t, c.AddLine(p, 2))

	failure := errors.New("declined")
	err := c.Checkout(func(lines []Line) error {
		assert.Len(t, lines, 1)
		return failure
	})
	assert.ErrorIs(t, err, failure)
	assert.Equal(t, 1, c.Len())

	require.NoError(t, c.Checkout(func(lines []Line) error { return nil }))
	assert.Zero(t, c.Len())
}

func TestClear(t *testing.T) {
	p := newProduct(t, "P", 20, 10)
	c := New(newCustomer(t))
	require.NoError(t, c.AddLine(p, 1))

	c.Clear()
	assert.Zero(t, c.Len())
	assert.True(t, c.CalculateTotal().IsZero())
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	customer := newCustomer(t)

	_, ok := r.Get(customer.ID())
	assert.False(t, ok)

	first := r.Open(customer)
	second := r.Open(customer)
	assert.Same(t, first, second)
	assert.Same(t, customer, first.Customer())

	got, ok := r.Get(customer.ID())
	assert.True(t, ok)
	assert.Same(t, first, got)

	r.Discard(customer.ID())
	_, ok = r.Get(customer.ID())
	assert.False(t, ok)
}

func TestProperty_CartQuantityNeverExceedsStock(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("the merged line never exceeds live stock and failures change nothing", prop.ForAll(
		func(stock int, adds []int) bool {
			p, _ := domain.NewApparel("AP", "Shirt", decimal.NewFromInt(10), stock, "M", "Red")
			c := New(nil)

			inCart := 0
			for _, qty := range adds {
				err := c.AddLine(p, qty)
				if inCart+qty <= stock {
					if err != nil {
						return false
					}
					inCart += qty
				} else if !errors.Is(err, domain.ErrInsufficientStock) {
					return false
				}
			}

			lines := c.Lines()
			if inCart == 0 {
				return len(lines) == 0
			}
			return len(lines) == 1 && lines[0].Quantity == inCart && p.Stock() == stock
		},
		gen.IntRange(0, 30),
		gen.SliceOf(gen.IntRange(1, 10)),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}
