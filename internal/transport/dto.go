package transport

import (
	"time"

	"techstore/internal/cart"
	"techstore/internal/domain"
	"techstore/internal/store"

	"github.com/shopspring/decimal"
)

// CreateProductRequest is the payload of POST /api/products
type CreateProductRequest struct {
	Code  string `json:"code" validate:"required,max=32"`
	Kind  string `json:"kind" validate:"required,oneof=electronic apparel food"`
	Name  string `json:"name" validate:"required,max=120"`
	Price string `json:"price" validate:"required,money"`
	Stock int    `json:"stock" validate:"gte=0"`

	WarrantyMonths int    `json:"warranty_months" validate:"gte=0"`
	Brand          string `json:"brand"`
	Size           string `json:"size"`
	Color          string `json:"color"`
	ExpiresOn      string `json:"expires_on" validate:"required_if=Kind food"`
}

// RestockRequest is the payload of POST /api/products/{code}/restock
type RestockRequest struct {
	Quantity int `json:"quantity"`
}

// RegisterCustomerRequest is the payload of POST /api/customers
type RegisterCustomerRequest struct {
	ID   string `json:"id" validate:"required,max=32"`
	Name string `json:"name" validate:"required,max=120"`
}

// AddLineRequest is the payload of POST /api/customers/{id}/cart/lines
type AddLineRequest struct {
	ProductCode string `json:"product_code" validate:"required"`
	Quantity    int    `json:"quantity"`
}

// PaymentRequest selects how a checkout is settled
type PaymentRequest struct {
	Method     string `json:"method" validate:"required,oneof=cash card"`
	CardNumber string `json:"card_number" validate:"required_if=Method card"`
}

// DiscountRequest selects the discount applied at checkout
type DiscountRequest struct {
	Type  string `json:"type" validate:"required,oneof=none percentage fixed"`
	Value string `json:"value" validate:"omitempty,money"`
}

// CheckoutRequest is the payload of POST /api/customers/{id}/checkout
type CheckoutRequest struct {
	Payment  PaymentRequest   `json:"payment"`
	Discount *DiscountRequest `json:"discount,omitempty"`
}

// ProductResponse is the wire form of a catalog product
type ProductResponse struct {
	Code        string          `json:"code"`
	Name        string          `json:"name"`
	Kind        domain.Kind     `json:"kind"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	Description string          `json:"description"`

	WarrantyMonths int    `json:"warranty_months,omitempty"`
	Brand          string `json:"brand,omitempty"`
	Size           string `json:"size,omitempty"`
	Color          string `json:"color,omitempty"`
	ExpiresOn      string `json:"expires_on,omitempty"`
}

func newProductResponse(p *domain.Product) ProductResponse {
	resp := ProductResponse{
		Code:        p.Code(),
		Name:        p.Name(),
		Kind:        p.Kind(),
		Price:       p.Price(),
		Stock:       p.Stock(),
		Description: p.Describe(),
	}
	switch d := p.Details().(type) {
	case domain.Electronic:
		resp.WarrantyMonths = d.WarrantyMonths
		resp.Brand = d.Brand
	case domain.Apparel:
		resp.Size = d.Size
		resp.Color = d.Color
	case domain.Food:
		resp.ExpiresOn = d.ExpiresOn.Format(domain.ExpiryLayout)
	}
	return resp
}

// LineResponse is one priced line of a cart, purchase or invoice
type LineResponse struct {
	ProductCode string          `json:"product_code"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

// PurchaseResponse is the wire form of a recorded purchase
type PurchaseResponse struct {
	ID             string          `json:"id"`
	Timestamp      time.Time       `json:"timestamp"`
	Lines          []LineResponse  `json:"lines"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	Discount       string          `json:"discount,omitempty"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	Total          decimal.Decimal `json:"total"`
	Payment        string          `json:"payment"`
	Points         int             `json:"points"`
}

func newPurchaseResponse(p domain.Purchase) PurchaseResponse {
	lines := make([]LineResponse, 0, len(p.Lines))
	for _, l := range p.Lines {
		lines = append(lines, LineResponse{
			ProductCode: l.ProductCode,
			ProductName: l.ProductName,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
			Subtotal:    l.Subtotal(),
		})
	}
	return PurchaseResponse{
		ID:             p.ID.String(),
		Timestamp:      p.Timestamp,
		Lines:          lines,
		Subtotal:       p.TotalBeforeDiscount,
		Discount:       p.DiscountDescription,
		DiscountAmount: p.DiscountAmount(),
		Total:          p.TotalAfterDiscount,
		Payment:        p.PaymentDescription,
		Points:         p.Points(),
	}
}

// CustomerResponse is the wire form of a customer. Purchases are only
// included on single customer lookups.
type CustomerResponse struct {
	ID         string             `json:"id"`
	Name       string             `json:"name"`
	Points     int                `json:"points"`
	TotalSpent decimal.Decimal    `json:"total_spent"`
	Purchases  []PurchaseResponse `json:"purchases,omitempty"`
}

func newCustomerResponse(c *domain.Customer, withHistory bool) CustomerResponse {
	resp := CustomerResponse{
		ID:         c.ID(),
		Name:       c.Name(),
		Points:     c.Points(),
		TotalSpent: c.TotalSpent(),
	}
	if withHistory {
		history := c.Purchases()
		resp.Purchases = make([]PurchaseResponse, 0, len(history))
		for _, p := range history {
			resp.Purchases = append(resp.Purchases, newPurchaseResponse(p))
		}
	}
	return resp
}

// CartResponse is the wire form of a customer's cart
type CartResponse struct {
	CustomerID string          `json:"customer_id"`
	Lines      []LineResponse  `json:"lines"`
	Total      decimal.Decimal `json:"total"`
}

func newCartResponse(customerID string, lines []cart.Line) CartResponse {
	resp := CartResponse{
		CustomerID: customerID,
		Lines:      make([]LineResponse, 0, len(lines)),
		Total:      cart.Total(lines),
	}
	for _, l := range lines {
		resp.Lines = append(resp.Lines, LineResponse{
			ProductCode: l.Product.Code(),
			ProductName: l.Product.Name(),
			Quantity:    l.Quantity,
			UnitPrice:   l.Product.Price(),
			Subtotal:    l.Subtotal(),
		})
	}
	return resp
}

// InvoiceResponse is the wire form of an invoice
type InvoiceResponse struct {
	StoreName      string          `json:"store_name"`
	PurchaseID     string          `json:"purchase_id"`
	Date           time.Time       `json:"date"`
	CustomerID     string          `json:"customer_id"`
	CustomerName   string          `json:"customer_name"`
	Lines          []LineResponse  `json:"lines"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	Discount       string          `json:"discount,omitempty"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	Total          decimal.Decimal `json:"total"`
	Payment        string          `json:"payment"`
	PointsEarned   int             `json:"points_earned"`
	PointsBalance  int             `json:"points_balance"`
}

func newInvoiceResponse(inv *store.Invoice) InvoiceResponse {
	lines := make([]LineResponse, 0, len(inv.Lines))
	for _, l := range inv.Lines {
		lines = append(lines, LineResponse{
			ProductCode: l.ProductCode,
			ProductName: l.ProductName,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
			Subtotal:    l.Subtotal,
		})
	}
	return InvoiceResponse{
		StoreName:      inv.StoreName,
		PurchaseID:     inv.PurchaseID.String(),
		Date:           inv.Date,
		CustomerID:     inv.CustomerID,
		CustomerName:   inv.CustomerName,
		Lines:          lines,
		Subtotal:       inv.Subtotal,
		Discount:       inv.Discount,
		DiscountAmount: inv.DiscountAmount,
		Total:          inv.Total,
		Payment:        inv.Payment,
		PointsEarned:   inv.PointsEarned,
		PointsBalance:  inv.PointsBalance,
	}
}

// SummaryResponse is the wire form of the store summary
type SummaryResponse struct {
	StoreName     string            `json:"store_name"`
	ProductCount  int               `json:"product_count"`
	CustomerCount int               `json:"customer_count"`
	TotalSales    decimal.Decimal   `json:"total_sales"`
	TotalPoints   int               `json:"total_points"`
	Customers     []CustomerSummary `json:"customers"`
}

// CustomerSummary is one customer's row in the store summary
type CustomerSummary struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Purchases int             `json:"purchases"`
	Spent     decimal.Decimal `json:"spent"`
	Points    int             `json:"points"`
}

func newSummaryResponse(s store.Summary) SummaryResponse {
	resp := SummaryResponse{
		StoreName:     s.StoreName,
		ProductCount:  s.ProductCount,
		CustomerCount: s.CustomerCount,
		TotalSales:    s.TotalSales,
		TotalPoints:   s.TotalPoints,
		Customers:     make([]CustomerSummary, 0, len(s.Customers)),
	}
	for _, c := range s.Customers {
		resp.Customers = append(resp.Customers, CustomerSummary(c))
	}
	return resp
}
