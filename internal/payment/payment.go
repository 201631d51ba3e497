// Package payment implements the settlement strategies offered at checkout.
package payment

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"techstore/internal/domain"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Type enumerates the supported payment methods
type Type string

const (
	TypeCash Type = "cash"
	TypeCard Type = "card"
)

// Method settles a purchase amount. Settle returns nil when the amount was
// collected and an error when it was declined.
type Method interface {
	Type() Type
	Settle(ctx context.Context, amount decimal.Decimal) error
	Description() string
}

// Cash is paid at the till and never declines
type Cash struct {
	logger *zap.Logger
}

// NewCash creates a cash payment
func NewCash(logger *zap.Logger) Cash {
	return Cash{logger: orNop(logger)}
}

func (Cash) Type() Type          { return TypeCash }
func (Cash) Description() string { return "cash" }

// Settle records the cash collection
func (c Cash) Settle(ctx context.Context, amount decimal.Decimal) error {
	orNop(c.logger).Info("Cash payment settled", zap.String("amount", amount.StringFixed(2)))
	return nil
}

// Card charges a payment card. The full number is never exposed.
type Card struct {
	number string
	logger *zap.Logger
}

// NewCard creates a card payment. The number must carry at least 4 digits.
func NewCard(number string, logger *zap.Logger) (Card, error) {
	digits := 0
	for _, r := range number {
		if unicode.IsDigit(r) {
			digits++
		}
	}
	if digits < 4 {
		return Card{}, errors.Wrap(domain.ErrInvalidAmount, "card number needs at least 4 digits")
	}
	return Card{number: number, logger: orNop(logger)}, nil
}

func (Card) Type() Type { return TypeCard }

// LastFour returns the final four digits of the card number
func (c Card) LastFour() string {
	digits := make([]rune, 0, len(c.number))
	for _, r := range c.number {
		if unicode.IsDigit(r) {
			digits = append(digits, r)
		}
	}
	if len(digits) < 4 {
		return string(digits)
	}
	return string(digits[len(digits)-4:])
}

// Description returns the masked card, e.g. "card **** 9010"
func (c Card) Description() string {
	return fmt.Sprintf("card **** %s", c.LastFour())
}

// Settle charges the card
func (c Card) Settle(ctx context.Context, amount decimal.Decimal) error {
	orNop(c.logger).Info("Card payment settled",
		zap.String("card", "**** "+c.LastFour()),
		zap.String("amount", amount.StringFixed(2)),
	)
	return nil
}

// Parse builds a payment method from its wire form
func Parse(kind, cardNumber string, logger *zap.Logger) (Method, error) {
	switch Type(strings.ToLower(strings.TrimSpace(kind))) {
	case TypeCash:
		return NewCash(logger), nil
	case TypeCard:
		return NewCard(cardNumber, logger)
	default:
		return nil, errors.Errorf("unknown payment method %q", kind)
	}
}

func orNop(logger *zap.Logger) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}
