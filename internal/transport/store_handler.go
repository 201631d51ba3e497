package transport

import (
	"net/http"
	"time"

	"techstore/internal/cart"
	"techstore/internal/discount"
	"techstore/internal/domain"
	"techstore/internal/middleware"
	"techstore/internal/payment"
	"techstore/internal/store"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// StoreHandler serves the catalog, customer, cart and checkout routes
type StoreHandler struct {
	store  *store.Store
	carts  *cart.Registry
	logger *zap.Logger
}

// NewStoreHandler creates a new StoreHandler
func NewStoreHandler(s *store.Store, carts *cart.Registry, logger *zap.Logger) *StoreHandler {
	return &StoreHandler{
		store:  s,
		carts:  carts,
		logger: logger,
	}
}

// RegisterRoutes mounts the store API. admin guards operator routes and
// checkoutLimit, when set, wraps the checkout route.
func (h *StoreHandler) RegisterRoutes(r chi.Router, admin func(http.Handler) http.Handler, checkoutLimit func(http.Handler) http.Handler) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/products", h.ListProducts)
		r.Get("/products/{code}", h.GetProduct)
		r.Post("/customers", h.RegisterCustomer)
		r.Get("/customers/{id}", h.GetCustomer)
		r.Get("/customers/{id}/cart", h.GetCart)
		r.Post("/customers/{id}/cart/lines", h.AddCartLine)
		r.Delete("/customers/{id}/cart", h.DiscardCart)
		r.Get("/customers/{id}/purchases/{purchaseID}/invoice", h.GetInvoice)

		checkout := http.Handler(http.HandlerFunc(h.Checkout))
		if checkoutLimit != nil {
			checkout = checkoutLimit(checkout)
		}
		r.Method(http.MethodPost, "/customers/{id}/checkout", checkout)

		// Operator routes
		r.Group(func(r chi.Router) {
			r.Use(admin)
			r.Post("/products", h.CreateProduct)
			r.Post("/products/{code}/restock", h.RestockProduct)
			r.Get("/customers", h.ListCustomers)
			r.Get("/summary", h.Summary)
		})
	})
}

// ListProducts returns the catalog in insertion order
func (h *StoreHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products := h.store.Products()
	resp := make([]ProductResponse, 0, len(products))
	for _, p := range products {
		resp = append(resp, newProductResponse(p))
	}
	middleware.RespondWithJSON(w, http.StatusOK, resp)
}

// GetProduct returns one product by code
func (h *StoreHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.store.FindProduct(chi.URLParam(r, "code"))
	if err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, newProductResponse(p))
}

// CreateProduct adds a product to the catalog
func (h *StoreHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req CreateProductRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Create product validation failed", zap.Error(err))
		middleware.RespondWithDecodeError(w, err)
		return
	}

	price, _ := decimal.NewFromString(req.Price) // format checked by validation

	var details domain.Details
	switch domain.Kind(req.Kind) {
	case domain.KindElectronic:
		details = domain.Electronic{WarrantyMonths: req.WarrantyMonths, Brand: req.Brand}
	case domain.KindApparel:
		details = domain.Apparel{Size: req.Size, Color: req.Color}
	case domain.KindFood:
		expires, err := time.Parse(domain.ExpiryLayout, req.ExpiresOn)
		if err != nil {
			middleware.RespondWithValidationErrors(w, []middleware.ValidationError{{
				Field:   "expires_on",
				Message: "Must be a date formatted as " + domain.ExpiryLayout,
			}})
			return
		}
		details = domain.Food{ExpiresOn: expires}
	}

	p, err := domain.NewProduct(req.Code, req.Name, price, req.Stock, details)
	if err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}
	if err := h.store.AddProduct(p); err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}

	h.logger.Info("Product added", zap.String("code", p.Code()), zap.String("kind", string(p.Kind())))
	middleware.RespondWithJSON(w, http.StatusCreated, newProductResponse(p))
}

// RestockProduct adds units to a product's stock
func (h *StoreHandler) RestockProduct(w http.ResponseWriter, r *http.Request) {
	var req RestockRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.RespondWithDecodeError(w, err)
		return
	}

	code := chi.URLParam(r, "code")
	if err := h.store.Restock(code, req.Quantity); err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}

	p, err := h.store.FindProduct(code)
	if err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, newProductResponse(p))
}

// RegisterCustomer adds a customer to the registry
func (h *StoreHandler) RegisterCustomer(w http.ResponseWriter, r *http.Request) {
	var req RegisterCustomerRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Register customer validation failed", zap.Error(err))
		middleware.RespondWithDecodeError(w, err)
		return
	}

	c, err := domain.NewCustomer(req.ID, req.Name)
	if err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}
	if err := h.store.RegisterCustomer(c); err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}

	h.logger.Info("Customer registered", zap.String("customer_id", c.ID()))
	middleware.RespondWithJSON(w, http.StatusCreated, newCustomerResponse(c, false))
}

// ListCustomers returns every customer without purchase history
func (h *StoreHandler) ListCustomers(w http.ResponseWriter, r *http.Request) {
	customers := h.store.Customers()
	resp := make([]CustomerResponse, 0, len(customers))
	for _, c := range customers {
		resp = append(resp, newCustomerResponse(c, false))
	}
	middleware.RespondWithJSON(w, http.StatusOK, resp)
}

// GetCustomer returns a customer with points and purchase history
func (h *StoreHandler) GetCustomer(w http.ResponseWriter, r *http.Request) {
	c, err := h.store.FindCustomer(chi.URLParam(r, "id"))
	if err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, newCustomerResponse(c, true))
}

// GetCart returns the customer's open cart, empty if none was opened
func (h *StoreHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	c, err := h.store.FindCustomer(chi.URLParam(r, "id"))
	if err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}

	var lines []cart.Line
	if open, ok := h.carts.Get(c.ID()); ok {
		lines = open.Lines()
	}
	middleware.RespondWithJSON(w, http.StatusOK, newCartResponse(c.ID(), lines))
}

// AddCartLine adds a product to the customer's cart, opening one if needed
func (h *StoreHandler) AddCartLine(w http.ResponseWriter, r *http.Request) {
	var req AddLineRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.RespondWithDecodeError(w, err)
		return
	}

	c, err := h.store.FindCustomer(chi.URLParam(r, "id"))
	if err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}
	p, err := h.store.FindProduct(req.ProductCode)
	if err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}

	open := h.carts.Open(c)
	if err := open.AddLine(p, req.Quantity); err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, newCartResponse(c.ID(), open.Lines()))
}

// DiscardCart drops the customer's cart
func (h *StoreHandler) DiscardCart(w http.ResponseWriter, r *http.Request) {
	c, err := h.store.FindCustomer(chi.URLParam(r, "id"))
	if err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}
	h.carts.Discard(c.ID())
	w.WriteHeader(http.StatusNoContent)
}

// Checkout processes the customer's cart and returns the invoice
func (h *StoreHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req CheckoutRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Checkout validation failed", zap.Error(err))
		middleware.RespondWithDecodeError(w, err)
		return
	}

	c, err := h.store.FindCustomer(chi.URLParam(r, "id"))
	if err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}

	method, err := payment.Parse(req.Payment.Method, req.Payment.CardNumber, h.logger)
	if err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}

	var d discount.Discount
	if req.Discount != nil {
		value := decimal.Zero
		if req.Discount.Value != "" {
			value, _ = decimal.NewFromString(req.Discount.Value) // format checked by validation
		}
		if d, err = discount.Parse(req.Discount.Type, value); err != nil {
			middleware.RespondWithDomainError(w, h.logger, err)
			return
		}
	}

	// Without an open cart the store sees an empty one and rejects it
	open, ok := h.carts.Get(c.ID())
	if !ok {
		open = cart.New(c)
	}

	inv, err := h.store.ProcessPurchase(r.Context(), open, method, d)
	if err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusCreated, newInvoiceResponse(inv))
}

// GetInvoice rebuilds the invoice of a past purchase
func (h *StoreHandler) GetInvoice(w http.ResponseWriter, r *http.Request) {
	purchaseID, err := uuid.Parse(chi.URLParam(r, "purchaseID"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid purchase id")
		return
	}

	inv, err := h.store.Invoice(chi.URLParam(r, "id"), purchaseID)
	if err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, newInvoiceResponse(inv))
}

// Summary reports store-wide sales and points
func (h *StoreHandler) Summary(w http.ResponseWriter, r *http.Request) {
	middleware.RespondWithJSON(w, http.StatusOK, newSummaryResponse(h.store.Summary()))
}
