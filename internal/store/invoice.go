package store

import (
	"time"

	"techstore/internal/domain"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvoiceLine is one priced line of an invoice
type InvoiceLine struct {
	ProductCode string
	ProductName string
	Quantity    int
	UnitPrice   decimal.Decimal
	Subtotal    decimal.Decimal
}

// Invoice is the customer-facing view of a committed purchase. It is built
// on demand and never stored.
type Invoice struct {
	StoreName      string
	PurchaseID     uuid.UUID
	Date           time.Time
	CustomerID     string
	CustomerName   string
	Lines          []InvoiceLine
	Subtotal       decimal.Decimal
	Discount       string
	DiscountAmount decimal.Decimal
	Total          decimal.Decimal
	Payment        string
	PointsEarned   int
	PointsBalance  int
}

// NewInvoice builds the invoice of purchase. The points balance is the
// customer's balance right after that purchase was recorded.
func NewInvoice(storeName string, customer *domain.Customer, purchase domain.Purchase) Invoice {
	inv := Invoice{
		StoreName:      storeName,
		PurchaseID:     purchase.ID,
		Date:           purchase.Timestamp,
		CustomerID:     customer.ID(),
		CustomerName:   customer.Name(),
		Lines:          make([]InvoiceLine, 0, len(purchase.Lines)),
		Subtotal:       purchase.TotalBeforeDiscount,
		DiscountAmount: decimal.Zero,
		Total:          purchase.TotalAfterDiscount,
		Payment:        purchase.PaymentDescription,
		PointsEarned:   purchase.Points(),
		PointsBalance:  balanceAfter(customer, purchase.ID),
	}
	if purchase.HasDiscount() {
		inv.Discount = purchase.DiscountDescription
		inv.DiscountAmount = purchase.DiscountAmount()
	}
	for _, l := range purchase.Lines {
		inv.Lines = append(inv.Lines, InvoiceLine{
			ProductCode: l.ProductCode,
			ProductName: l.ProductName,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
			Subtotal:    l.Subtotal(),
		})
	}
	return inv
}

// balanceAfter replays the customer's history up to purchaseID
func balanceAfter(customer *domain.Customer, purchaseID uuid.UUID) int {
	balance := 0
	for _, p := range customer.Purchases() {
		balance += p.Points()
		if p.ID == purchaseID {
			return balance
		}
	}
	return customer.Points()
}

// Invoice rebuilds the invoice of a past purchase
func (s *Store) Invoice(customerID string, purchaseID uuid.UUID) (*Invoice, error) {
	customer, err := s.FindCustomer(customerID)
	if err != nil {
		return nil, err
	}

	for _, p := range customer.Purchases() {
		if p.ID == purchaseID {
			inv := NewInvoice(s.name, customer, p)
			return &inv, nil
		}
	}
	return nil, errors.Wrapf(domain.ErrNotFound, "purchase %s of customer %s", purchaseID, customerID)
}
