// Package discount implements the interchangeable total-amount discounts
// applied at checkout.
package discount

import (
	"fmt"
	"strings"

	"techstore/internal/domain"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Type enumerates the supported discount strategies
type Type string

const (
	TypeNone       Type = "none"
	TypePercentage Type = "percentage"
	TypeFixed      Type = "fixed"
)

var hundred = decimal.NewFromInt(100)

// Discount transforms a purchase total. Apply has no side effects and never
// returns a negative amount for a non-negative total.
type Discount interface {
	Type() Type
	Apply(total decimal.Decimal) decimal.Decimal
	Description() string
}

// Percentage takes a share of the total off
type Percentage struct {
	percent decimal.Decimal
}

// NewPercentage creates a percentage discount, percent in [0, 100]
func NewPercentage(percent decimal.Decimal) (Percentage, error) {
	if percent.IsNegative() || percent.GreaterThan(hundred) {
		return Percentage{}, errors.Wrapf(domain.ErrInvalidAmount, "percentage %s outside [0, 100]", percent)
	}
	return Percentage{percent: percent}, nil
}

func (Percentage) Type() Type { return TypePercentage }

// Apply returns total − total×percent/100
func (d Percentage) Apply(total decimal.Decimal) decimal.Decimal {
	return total.Sub(total.Mul(d.percent).Div(hundred))
}

func (d Percentage) Description() string {
	return fmt.Sprintf("%s%% off", d.percent.String())
}

// Percent returns the configured percentage
func (d Percentage) Percent() decimal.Decimal { return d.percent }

// Fixed takes a flat amount off, floored at zero
type Fixed struct {
	amount decimal.Decimal
}

// NewFixed creates a fixed discount, amount >= 0
func NewFixed(amount decimal.Decimal) (Fixed, error) {
	if amount.IsNegative() {
		return Fixed{}, errors.Wrapf(domain.ErrInvalidAmount, "fixed discount %s is negative", amount)
	}
	return Fixed{amount: amount}, nil
}

func (Fixed) Type() Type { return TypeFixed }

// Apply returns max(0, total − amount)
func (d Fixed) Apply(total decimal.Decimal) decimal.Decimal {
	return decimal.Max(decimal.Zero, total.Sub(d.amount))
}

func (d Fixed) Description() string {
	return fmt.Sprintf("$%s off", d.amount.String())
}

// Amount returns the configured amount
func (d Fixed) Amount() decimal.Decimal { return d.amount }

// None leaves the total unchanged
type None struct{}

func (None) Type() Type                                  { return TypeNone }
func (None) Apply(total decimal.Decimal) decimal.Decimal { return total }
func (None) Description() string                         { return "" }

// Parse builds a discount from its wire form. An empty type means no
// discount and yields a nil Discount.
func Parse(kind string, value decimal.Decimal) (Discount, error) {
	switch Type(strings.ToLower(strings.TrimSpace(kind))) {
	case "":
		return nil, nil
	case TypeNone:
		return None{}, nil
	case TypePercentage:
		return NewPercentage(value)
	case TypeFixed:
		return NewFixed(value)
	default:
		return nil, errors.Errorf("unknown discount type %q", kind)
	}
}
