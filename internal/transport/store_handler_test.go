package transport

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"techstore/internal/cart"
	"techstore/internal/domain"
	"techstore/internal/middleware"
	"techstore/internal/seed"
	"techstore/internal/store"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSecret = "test-secret"

type testAPI struct {
	t      *testing.T
	router chi.Router
	store  *store.Store
	admin  string
	clerk  string
}

func newTestAPI(t *testing.T, checkoutLimit func(http.Handler) http.Handler) *testAPI {
	t.Helper()

	s := store.New("TechStore", zap.NewNop())
	f, err := seed.Load("../../seed/techstore.yaml")
	require.NoError(t, err)
	require.NoError(t, f.Apply(s))

	logger := zap.NewNop()
	admin := func(next http.Handler) http.Handler {
		return middleware.Authenticate(testSecret, logger)(middleware.RequireAdmin(logger)(next))
	}

	router := chi.NewRouter()
	NewStoreHandler(s, cart.NewRegistry(), logger).RegisterRoutes(router, admin, checkoutLimit)

	adminToken, err := middleware.IssueToken(testSecret, "op-admin", middleware.RoleAdmin, time.Hour)
	require.NoError(t, err)
	clerkToken, err := middleware.IssueToken(testSecret, "op-clerk", middleware.RoleClerk, time.Hour)
	require.NoError(t, err)

	return &testAPI{t: t, router: router, store: s, admin: adminToken, clerk: clerkToken}
}

func (a *testAPI) do(method, path string, body any, token string) *httptest.ResponseRecorder {
	a.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func (a *testAPI) addLine(customerID, code string, qty int) *httptest.ResponseRecorder {
	return a.do(http.MethodPost, "/api/customers/"+customerID+"/cart/lines", AddLineRequest{ProductCode: code, Quantity: qty}, "")
}

func TestListAndGetProducts(t *testing.T) {
	api := newTestAPI(t, nil)

	w := api.do(http.MethodGet, "/api/products", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	products := decode[[]ProductResponse](t, w)
	require.Len(t, products, 7)
	assert.Equal(t, "ELEC001", products[0].Code)
	assert.Equal(t, "HP", products[0].Brand)

	w = api.do(http.MethodGet, "/api/products/ALI002", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	coffee := decode[ProductResponse](t, w)
	assert.Equal(t, domain.KindFood, coffee.Kind)
	assert.Equal(t, "2025-12-20", coffee.ExpiresOn)
	assert.True(t, decimal.NewFromInt(8).Equal(coffee.Price))

	w = api.do(http.MethodGet, "/api/products/NOPE", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, middleware.CodeNotFound, decode[middleware.ErrorResponse](t, w).Error.Code)
}

func TestCreateProductRequiresAdmin(t *testing.T) {
	api := newTestAPI(t, nil)
	body := CreateProductRequest{Code: "ROP003", Kind: "apparel", Name: "Hoodie", Price: "45.50", Stock: 12, Size: "XL", Color: "Gray"}

	assert.Equal(t, http.StatusUnauthorized, api.do(http.MethodPost, "/api/products", body, "").Code)
	assert.Equal(t, http.StatusForbidden, api.do(http.MethodPost, "/api/products", body, api.clerk).Code)

	w := api.do(http.MethodPost, "/api/products", body, api.admin)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[ProductResponse](t, w)
	assert.Equal(t, "Hoodie - $45.5 (Stock: 12) | Size: XL, Color: Gray", created.Description)

	w = api.do(http.MethodPost, "/api/products", body, api.admin)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, middleware.CodeDuplicateCode, decode[middleware.ErrorResponse](t, w).Error.Code)
}

func TestCreateProductValidation(t *testing.T) {
	api := newTestAPI(t, nil)

	tests := []struct {
		name string
		body CreateProductRequest
	}{
		{"missing code", CreateProductRequest{Kind: "apparel", Name: "X", Price: "1"}},
		{"negative price", CreateProductRequest{Code: "X", Kind: "apparel", Name: "X", Price: "-1"}},
		{"negative stock", CreateProductRequest{Code: "X", Kind: "apparel", Name: "X", Price: "1", Stock: -3}},
		{"unknown kind", CreateProductRequest{Code: "X", Kind: "toy", Name: "X", Price: "1"}},
		{"food without expiry", CreateProductRequest{Code: "X", Kind: "food", Name: "X", Price: "1"}},
		{"food with bad expiry", CreateProductRequest{Code: "X", Kind: "food", Name: "X", Price: "1", ExpiresOn: "tomorrow"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := api.do(http.MethodPost, "/api/products", tt.body, api.admin)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, middleware.CodeValidation, decode[middleware.ErrorResponse](t, w).Error.Code)
		})
	}

	_, err := api.store.FindProduct("X")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRestockProduct(t *testing.T) {
	api := newTestAPI(t, nil)

	w := api.do(http.MethodPost, "/api/products/ELEC002/restock", RestockRequest{Quantity: 5}, api.admin)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 10, decode[ProductResponse](t, w).Stock)

	w = api.do(http.MethodPost, "/api/products/ELEC002/restock", RestockRequest{Quantity: -1}, api.admin)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, middleware.CodeInvalidAmount, decode[middleware.ErrorResponse](t, w).Error.Code)

	w = api.do(http.MethodPost, "/api/products/NOPE/restock", RestockRequest{Quantity: 1}, api.admin)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRegisterAndListCustomers(t *testing.T) {
	api := newTestAPI(t, nil)

	w := api.do(http.MethodPost, "/api/customers", RegisterCustomerRequest{ID: "CLI003", Name: "Ana Ruiz"}, "")
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, 0, decode[CustomerResponse](t, w).Points)

	w = api.do(http.MethodPost, "/api/customers", RegisterCustomerRequest{ID: "CLI003", Name: "Other"}, "")
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, middleware.CodeDuplicateID, decode[middleware.ErrorResponse](t, w).Error.Code)

	w = api.do(http.MethodPost, "/api/customers", RegisterCustomerRequest{Name: "No ID"}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	assert.Equal(t, http.StatusUnauthorized, api.do(http.MethodGet, "/api/customers", nil, "").Code)

	w = api.do(http.MethodGet, "/api/customers", nil, api.admin)
	require.Equal(t, http.StatusOK, w.Code)
	customers := decode[[]CustomerResponse](t, w)
	require.Len(t, customers, 3)
	assert.Equal(t, []string{"CLI001", "CLI002", "CLI003"}, []string{customers[0].ID, customers[1].ID, customers[2].ID})
}

func TestCartLifecycle(t *testing.T) {
	api := newTestAPI(t, nil)

	w := api.do(http.MethodGet, "/api/customers/CLI001/cart", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[CartResponse](t, w).Lines)

	require.Equal(t, http.StatusOK, api.addLine("CLI001", "ELEC003", 1).Code)
	w = api.addLine("CLI001", "ELEC003", 2)
	require.Equal(t, http.StatusOK, w.Code)
	c := decode[CartResponse](t, w)
	require.Len(t, c.Lines, 1)
	assert.Equal(t, 3, c.Lines[0].Quantity)
	assert.True(t, decimal.NewFromInt(750).Equal(c.Total))

	w = api.addLine("CLI001", "ELEC003", 13)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, middleware.CodeInsufficientStock, decode[middleware.ErrorResponse](t, w).Error.Code)

	assert.Equal(t, http.StatusBadRequest, api.addLine("CLI001", "ELEC003", 0).Code)
	assert.Equal(t, http.StatusNotFound, api.addLine("CLI001", "NOPE", 1).Code)
	assert.Equal(t, http.StatusNotFound, api.addLine("CLI999", "ELEC003", 1).Code)

	w = api.do(http.MethodGet, "/api/customers/CLI001/cart", nil, "")
	assert.Equal(t, 3, decode[CartResponse](t, w).Lines[0].Quantity)

	assert.Equal(t, http.StatusNoContent, api.do(http.MethodDelete, "/api/customers/CLI001/cart", nil, "").Code)
	w = api.do(http.MethodGet, "/api/customers/CLI001/cart", nil, "")
	assert.Empty(t, decode[CartResponse](t, w).Lines)

	p, err := api.store.FindProduct("ELEC003")
	require.NoError(t, err)
	assert.Equal(t, 15, p.Stock())
}

func TestCheckoutProducesInvoice(t *testing.T) {
	api := newTestAPI(t, nil)

	require.Equal(t, http.StatusOK, api.addLine("CLI001", "ELEC001", 1).Code)
	require.Equal(t, http.StatusOK, api.addLine("CLI001", "ELEC003", 2).Code)
	require.Equal(t, http.StatusOK, api.addLine("CLI001", "ROP001", 1).Code)

	w := api.do(http.MethodPost, "/api/customers/CLI001/checkout", CheckoutRequest{
		Payment:  PaymentRequest{Method: "card", CardNumber: "1234-5678-9012-3456"},
		Discount: &DiscountRequest{Type: "percentage", Value: "10"},
	}, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	inv := decode[InvoiceResponse](t, w)
	assert.True(t, decimal.NewFromInt(1385).Equal(inv.Subtotal))
	assert.True(t, decimal.RequireFromString("1246.5").Equal(inv.Total))
	assert.True(t, decimal.RequireFromString("138.5").Equal(inv.DiscountAmount))
	assert.Equal(t, "10% off", inv.Discount)
	assert.Equal(t, "card **** 3456", inv.Payment)
	assert.Equal(t, 124, inv.PointsEarned)
	assert.Equal(t, 124, inv.PointsBalance)
	assert.Len(t, inv.Lines, 3)

	w = api.do(http.MethodGet, "/api/customers/CLI001/cart", nil, "")
	assert.Empty(t, decode[CartResponse](t, w).Lines)

	w = api.do(http.MethodGet, "/api/customers/CLI001", nil, "")
	customer := decode[CustomerResponse](t, w)
	assert.Equal(t, 124, customer.Points)
	require.Len(t, customer.Purchases, 1)
	assert.Equal(t, inv.PurchaseID, customer.Purchases[0].ID)

	w = api.do(http.MethodGet, "/api/customers/CLI001/purchases/"+inv.PurchaseID+"/invoice", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, inv.PointsBalance, decode[InvoiceResponse](t, w).PointsBalance)

	w = api.do(http.MethodGet, "/api/summary", nil, api.admin)
	require.Equal(t, http.StatusOK, w.Code)
	summary := decode[SummaryResponse](t, w)
	assert.True(t, decimal.RequireFromString("1246.5").Equal(summary.TotalSales))
	assert.Equal(t, 124, summary.TotalPoints)
}

func TestCheckoutRejections(t *testing.T) {
	api := newTestAPI(t, nil)
	cash := CheckoutRequest{Payment: PaymentRequest{Method: "cash"}}

	w := api.do(http.MethodPost, "/api/customers/CLI002/checkout", cash, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, middleware.CodeInvalidAmount, decode[middleware.ErrorResponse](t, w).Error.Code)

	assert.Equal(t, http.StatusNotFound, api.do(http.MethodPost, "/api/customers/CLI999/checkout", cash, "").Code)

	require.Equal(t, http.StatusOK, api.addLine("CLI002", "ELEC002", 1).Code)

	tests := []struct {
		name string
		req  CheckoutRequest
	}{
		{"unknown method", CheckoutRequest{Payment: PaymentRequest{Method: "bitcoin"}}},
		{"card without number", CheckoutRequest{Payment: PaymentRequest{Method: "card"}}},
		{"short card number", CheckoutRequest{Payment: PaymentRequest{Method: "card", CardNumber: "12"}}},
		{"percentage over 100", CheckoutRequest{Payment: cash.Payment, Discount: &DiscountRequest{Type: "percentage", Value: "150"}}},
		{"negative fixed", CheckoutRequest{Payment: cash.Payment, Discount: &DiscountRequest{Type: "fixed", Value: "-5"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, http.StatusBadRequest, api.do(http.MethodPost, "/api/customers/CLI002/checkout", tt.req, "").Code)
		})
	}

	// Stock sold elsewhere after the line was added
	phone, err := api.store.FindProduct("ELEC002")
	require.NoError(t, err)
	require.NoError(t, phone.ReduceStock(5))

	w = api.do(http.MethodPost, "/api/customers/CLI002/checkout", cash, "")
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, middleware.CodeInsufficientStock, decode[middleware.ErrorResponse](t, w).Error.Code)

	w = api.do(http.MethodGet, "/api/customers/CLI002/cart", nil, "")
	assert.Len(t, decode[CartResponse](t, w).Lines, 1)
}

func TestGetInvoiceErrors(t *testing.T) {
	api := newTestAPI(t, nil)

	assert.Equal(t, http.StatusBadRequest, api.do(http.MethodGet, "/api/customers/CLI001/purchases/not-a-uuid/invoice", nil, "").Code)
	assert.Equal(t, http.StatusNotFound,
		api.do(http.MethodGet, "/api/customers/CLI001/purchases/00000000-0000-0000-0000-000000000001/invoice", nil, "").Code)
}

func TestCheckoutIsRateLimitedPerCustomer(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	limiter := middleware.RateLimit(client, middleware.RateLimitConfig{
		RequestsPerWindow: 1,
		Window:            time.Minute,
		KeyPrefix:         "checkout",
		KeyFunc:           func(r *http.Request) string { return chi.URLParam(r, "id") },
	}, zap.NewNop())
	api := newTestAPI(t, limiter)

	cash := CheckoutRequest{Payment: PaymentRequest{Method: "cash"}}
	require.Equal(t, http.StatusOK, api.addLine("CLI001", "ALI001", 2).Code)
	require.Equal(t, http.StatusCreated, api.do(http.MethodPost, "/api/customers/CLI001/checkout", cash, "").Code)

	require.Equal(t, http.StatusOK, api.addLine("CLI001", "ALI001", 2).Code)
	assert.Equal(t, http.StatusTooManyRequests, api.do(http.MethodPost, "/api/customers/CLI001/checkout", cash, "").Code)

	require.Equal(t, http.StatusOK, api.addLine("CLI002", "ALI001", 2).Code)
	assert.Equal(t, http.StatusCreated, api.do(http.MethodPost, "/api/customers/CLI002/checkout", cash, "").Code)
}

func TestProperty_CheckoutCommitsOrLeavesStock(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("checkout either sells the quantity or changes nothing", prop.ForAll(
		func(qty int, sold int) bool {
			api := newTestAPI(t, nil)
			phone, _ := api.store.FindProduct("ELEC002")

			if api.addLine("CLI001", "ELEC002", qty).Code != http.StatusOK {
				t.Logf("FAIL: could not add %d phones", qty)
				return false
			}
			if sold > 0 {
				_ = phone.ReduceStock(sold)
			}
			before := phone.Stock()

			w := api.do(http.MethodPost, "/api/customers/CLI001/checkout", CheckoutRequest{Payment: PaymentRequest{Method: "cash"}}, "")
			customer, _ := api.store.FindCustomer("CLI001")

			if qty <= before {
				return w.Code == http.StatusCreated && phone.Stock() == before-qty && customer.Points() == 120*qty
			}
			return w.Code == http.StatusConflict && phone.Stock() == before && customer.Points() == 0
		},
		gen.IntRange(1, 5),
		gen.IntRange(0, 5),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}
