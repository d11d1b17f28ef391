package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/config"
	"storefront/internal/domain"
	"storefront/internal/metrics"
	"storefront/internal/repo"
	"storefront/internal/service"
)

const testSecret = "test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeUsers map[int64]*domain.User

func (f fakeUsers) FindByID(_ context.Context, id int64) (*domain.User, error) {
	if u, ok := f[id]; ok {
		return u, nil
	}
	return nil, repo.ErrUserNotFound
}

type fakeHealth struct{}

func (fakeHealth) Health() map[string]string { return map[string]string{"status": "up"} }

type fakeCheckout struct {
	in    service.CheckoutInput
	order *domain.Order
	err   error
}

func (f *fakeCheckout) Checkout(_ context.Context, in service.CheckoutInput) (*domain.Order, error) {
	f.in = in
	return f.order, f.err
}

type fakeOrders struct {
	service.OrderService
	err error
}

func (f *fakeOrders) List(_ context.Context, user *domain.User) ([]domain.Order, error) {
	return []domain.Order{{ID: 1, UserID: user.ID, Status: domain.OrderPending}}, nil
}

func (f *fakeOrders) Update(_ context.Context, user *domain.User, id int64, upd service.OrderUpdate) (*domain.Order, error) {
	if !user.IsStaff {
		return nil, service.ErrForbidden
	}
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Order{ID: id, Status: *upd.Status}, nil
}

type fakeCarts struct {
	service.CartService
}

func (fakeCarts) AddItem(_ context.Context, _ *domain.User, variantID int64, qty int) (*domain.CartItem, error) {
	if qty > 3 {
		return nil, &repo.InsufficientStockError{VariantID: variantID, Requested: qty, Available: 3}
	}
	return &domain.CartItem{ID: 9, VariantID: variantID, Quantity: qty}, nil
}

type fakePayments struct {
	initiated  []service.InitiateInput
	successErr error
	succeeded  []string
	cancelled  []string
	failed     []string
}

func (f *fakePayments) Initiate(_ context.Context, in service.InitiateInput) (string, error) {
	f.initiated = append(f.initiated, in)
	return "https://pay.example.com/session", nil
}

func (f *fakePayments) HandleSuccess(_ context.Context, token string) (*domain.Order, error) {
	f.succeeded = append(f.succeeded, token)
	if f.successErr != nil {
		return nil, f.successErr
	}
	return &domain.Order{ID: 1}, nil
}

func (f *fakePayments) HandleCancel(_ context.Context, token string) { f.cancelled = append(f.cancelled, token) }
func (f *fakePayments) HandleFail(_ context.Context, token string) { f.failed = append(f.failed, token) }

type harness struct {
	handler  http.Handler
	checkout *fakeCheckout
	orders   *fakeOrders
	payments *fakePayments
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	cfg := &config.Config{
		Port:         8080,
		JWTSecret:    testSecret,
		FrontendURL:  "http://front",
		CORSOrigins:  []string{"http://front"},
		InitiateRate: 1,
	}
	h := &harness{
		checkout: &fakeCheckout{},
		orders:   &fakeOrders{},
		payments: &fakePayments{},
	}
	srv := New(cfg, Deps{
		DB: fakeHealth{},
		Users: fakeUsers{
			1: {ID: 1, Email: "buyer@example.com"},
			2: {ID: 2, Email: "staff@example.com", IsStaff: true},
		},
		Carts:    fakeCarts{},
		Orders:   h.orders,
		Checkout: h.checkout,
		Payments: h.payments,
		Metrics:  metrics.New(),
	})
	h.handler = srv.RegisterRoutes()
	return h
}

func token(t *testing.T, userID int64, secret string) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	s, err := tok.SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func (h *harness) do(t *testing.T, method, path string, userID int64, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != 0 {
		req.Header.Set("Authorization", "Bearer "+token(t, userID, testSecret))
	}
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	return rec
}

func errorBody(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body["error"]
}

func TestAuth(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodGet, "/api/orders", 0, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
	req.Header.Set("Authorization", "Bearer "+token(t, 1, "wrong-secret"))
	rec = httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = h.do(t, http.MethodGet, "/api/orders", 42, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = h.do(t, http.MethodGet, "/api/orders", 1, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))
}

func TestOrders_DirectCreateNotAllowed(t *testing.T) {
	h := newHarness(t)
	rec := h.do(t, http.MethodPost, "/api/orders", 1, map[string]any{})
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestOrders_Checkout(t *testing.T) {
	h := newHarness(t)
	h.checkout.order = &domain.Order{
		ID:         5,
		UserID:     1,
		Status:     domain.OrderPending,
		TotalPrice: decimal.RequireFromString("20.00"),
		Items:      []domain.OrderItem{{VariantID: 3, Quantity: 2, Price: decimal.RequireFromString("10.00")}},
	}

	rec := h.do(t, http.MethodPost, "/api/orders/checkout", 1, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, int64(1), h.checkout.in.UserID)
	assert.Nil(t, h.checkout.in.TransactionReference)

	var got map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "20", got["total_price"])
	assert.Equal(t, "pending", got["status"])
}

func TestOrders_CheckoutErrors(t *testing.T) {
	h := newHarness(t)

	h.checkout.err = service.ErrEmptyCart
	rec := h.do(t, http.MethodPost, "/api/orders/checkout", 1, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "cart is empty", errorBody(t, rec))

	h.checkout.err = &repo.InsufficientStockError{VariantID: 3, Requested: 2, Available: 1}
	rec = h.do(t, http.MethodPost, "/api/orders/checkout", 1, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, errorBody(t, rec), "available 1")

	rec = h.do(t, http.MethodPost, "/api/orders/checkout", 1, map[string]any{
		"shipping_address": map[string]string{"city": "Dhaka"},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOrders_UpdateRequiresStaff(t *testing.T) {
	h := newHarness(t)
	body := map[string]string{"status": "shipped"}

	rec := h.do(t, http.MethodPatch, "/api/orders/7", 1, body)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = h.do(t, http.MethodPatch, "/api/orders/7", 2, body)
	require.Equal(t, http.StatusOK, rec.Code)

	h.orders.err = service.ErrOrderNotFound
	rec = h.do(t, http.MethodPatch, "/api/orders/7", 2, body)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = h.do(t, http.MethodPatch, "/api/orders/abc", 2, body)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCart_AddItem(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodPost, "/api/cart/items", 1, map[string]int{"variant_detail": 3, "quantity": 2})
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = h.do(t, http.MethodPost, "/api/cart/items", 1, map[string]int{"variant_detail": 3, "quantity": 9})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(t, http.MethodPost, "/api/cart/items", 1, map[string]int{"quantity": 1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPayment_InitiateIsRateLimited(t *testing.T) {
	h := newHarness(t)
	body := map[string]any{
		"amount":     "20.00",
		"cartId":     7,
		"totalItems": 2,
		"shipping_address": map[string]string{
			"address": "1 Main St", "city": "Dhaka", "postal_code": "1207", "country": "BD",
		},
	}

	rec := h.do(t, http.MethodPost, "/payment/api/initiate", 1, body)
	require.Equal(t, http.StatusOK, rec.Code)
	var got map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "https://pay.example.com/session", got["payment_url"])
	require.Len(t, h.payments.initiated, 1)
	assert.Equal(t, int64(7), h.payments.initiated[0].CartID)
	assert.True(t, h.payments.initiated[0].Amount.Equal(decimal.NewFromInt(20)))
	assert.Equal(t, "Dhaka", h.payments.initiated[0].Address.City)

	rec = h.do(t, http.MethodPost, "/payment/api/initiate", 1, body)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	// limits are per user
	rec = h.do(t, http.MethodPost, "/payment/api/initiate", 2, body)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func postForm(h *harness, path, tranID string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(url.Values{"tran_id": {tranID}}.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	return rec
}

func TestPayment_Callbacks(t *testing.T) {
	h := newHarness(t)
	const tranID = "transectionId720240115"

	rec := postForm(h, "/payment/api/success", tranID)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "http://front/payment/success/", rec.Header().Get("Location"))
	assert.Equal(t, []string{tranID}, h.payments.succeeded)

	h.payments.successErr = &service.ReconciliationError{TransactionReference: tranID, Err: service.ErrEmptyCart}
	rec = postForm(h, "/payment/api/success", tranID)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Checkout failed after payment.", errorBody(t, rec))

	h.payments.successErr = service.ErrCartNotFound
	rec = h.do(t, http.MethodPost, "/payment/api/success", 0, map[string]string{"tran_id": tranID})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = postForm(h, "/payment/api/cancel", tranID)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "http://front/payment/cancel/", rec.Header().Get("Location"))
	assert.Equal(t, []string{tranID}, h.payments.cancelled)

	rec = postForm(h, "/payment/api/fail", tranID)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "http://front/payment/fail/", rec.Header().Get("Location"))
	assert.Equal(t, []string{tranID}, h.payments.failed)
}

func TestPayment_CallbackFallsBackToQuery(t *testing.T) {
	h := newHarness(t)
	hook := logtest.NewGlobal()
	level := log.GetLevel()
	log.SetLevel(log.DebugLevel)
	t.Cleanup(func() {
		log.SetLevel(level)
		log.StandardLogger().ReplaceHooks(make(log.LevelHooks))
	})

	const tranID = "transectionId720240115"
	req := httptest.NewRequest(http.MethodPost, "/payment/api/cancel?tran_id="+tranID, strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, []string{tranID}, h.payments.cancelled)

	var bound bool
	for _, e := range hook.AllEntries() {
		if e.Level == log.DebugLevel && e.Data[log.ErrorKey] != nil {
			bound = true
		}
	}
	assert.True(t, bound)
}

func TestHealthAndMetrics(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodGet, "/health", 0, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"up"`)

	rec = h.do(t, http.MethodGet, "/metrics", 0, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "storefront_http_requests_total")
}

func TestCORSPreflight(t *testing.T) {
	h := newHarness(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/orders", nil)
	req.Header.Set("Origin", "http://front")
	req.Header.Set("Access-Control-Request-Method", "GET")
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://front", rec.Header().Get("Access-Control-Allow-Origin"))
}
