package domain

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Kind identifies a product variant
type Kind string

const (
	KindElectronic Kind = "electronic"
	KindApparel    Kind = "apparel"
	KindFood       Kind = "food"
)

// ExpiryLayout is the date layout used for food expiry dates
const ExpiryLayout = "2006-01-02"

// Details holds the descriptive attributes of one product variant.
// The set of implementations is closed to this package.
type Details interface {
	Kind() Kind
	sealed()
}

// Electronic describes an electronic device
type Electronic struct {
	WarrantyMonths int
	Brand          string
}

// Apparel describes a clothing item
type Apparel struct {
	Size  string
	Color string
}

// Food describes a perishable item
type Food struct {
	ExpiresOn time.Time
}

func (Electronic) Kind() Kind { return KindElectronic }
func (Apparel) Kind() Kind    { return KindApparel }
func (Food) Kind() Kind       { return KindFood }

func (Electronic) sealed() {}
func (Apparel) sealed()    {}
func (Food) sealed()       {}

// Product represents an item in the catalog.
//
// Price is fixed at construction. Stock is only changed through
// ReduceStock and IncreaseStock and never drops below zero. A Product
// must not be copied after first use.
type Product struct {
	code    string
	name    string
	price   decimal.Decimal
	stock   atomic.Int64
	details Details
}

// NewProduct creates a product of the variant described by details
func NewProduct(code, name string, price decimal.Decimal, stock int, details Details) (*Product, error) {
	if strings.TrimSpace(code) == "" {
		return nil, errors.Wrap(ErrInvalidAmount, "product code is required")
	}
	if price.IsNegative() {
		return nil, errors.Wrapf(ErrInvalidAmount, "product %s: negative price %s", code, price)
	}
	if stock < 0 {
		return nil, errors.Wrapf(ErrInvalidAmount, "product %s: negative stock %d", code, stock)
	}
	if details == nil {
		return nil, errors.Errorf("product %s: variant details are required", code)
	}

	p := &Product{
		code:    code,
		name:    name,
		price:   price,
		details: details,
	}
	p.stock.Store(int64(stock))
	return p, nil
}

// NewElectronic creates an electronic product
func NewElectronic(code, name string, price decimal.Decimal, stock, warrantyMonths int, brand string) (*Product, error) {
	return NewProduct(code, name, price, stock, Electronic{WarrantyMonths: warrantyMonths, Brand: brand})
}

// NewApparel creates a clothing product
func NewApparel(code, name string, price decimal.Decimal, stock int, size, color string) (*Product, error) {
	return NewProduct(code, name, price, stock, Apparel{Size: size, Color: color})
}

// NewFood creates a food product
func NewFood(code, name string, price decimal.Decimal, stock int, expiresOn time.Time) (*Product, error) {
	return NewProduct(code, name, price, stock, Food{ExpiresOn: expiresOn})
}

func (p *Product) Code() string           { return p.code }
func (p *Product) Name() string           { return p.name }
func (p *Product) Price() decimal.Decimal { return p.price }
func (p *Product) Kind() Kind             { return p.details.Kind() }
func (p *Product) Details() Details       { return p.details }

// Stock returns the units currently available
func (p *Product) Stock() int {
	return int(p.stock.Load())
}

// ReduceStock removes qty units. The stock is left unchanged when fewer
// than qty units are available.
func (p *Product) ReduceStock(qty int) error {
	if qty < 1 {
		return errors.Wrapf(ErrInvalidAmount, "product %s: quantity %d", p.code, qty)
	}

	for {
		current := p.stock.Load()
		if int64(qty) > current {
			return errors.Wrapf(ErrInsufficientStock, "product %s: requested %d, available %d", p.code, qty, current)
		}
		if p.stock.CompareAndSwap(current, current-int64(qty)) {
			return nil
		}
	}
}

// IncreaseStock adds qty units
func (p *Product) IncreaseStock(qty int) error {
	if qty < 0 {
		return errors.Wrapf(ErrInvalidAmount, "product %s: quantity %d", p.code, qty)
	}
	p.stock.Add(int64(qty))
	return nil
}

// Describe returns a one-line human summary of the product
func (p *Product) Describe() string {
	base := fmt.Sprintf("%s - $%s (Stock: %d)", p.name, p.price.String(), p.Stock())

	switch d := p.details.(type) {
	case Electronic:
		return fmt.Sprintf("%s | %s - Warranty: %d months", base, d.Brand, d.WarrantyMonths)
	case Apparel:
		return fmt.Sprintf("%s | Size: %s, Color: %s", base, d.Size, d.Color)
	case Food:
		return fmt.Sprintf("%s | Expires: %s", base, d.ExpiresOn.Format(ExpiryLayout))
	default:
		return base
	}
}
