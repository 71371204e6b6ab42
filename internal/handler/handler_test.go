package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flicky/storefront-api/internal/model"
	"github.com/flicky/storefront-api/internal/repository"
	"github.com/flicky/storefront-api/internal/service"
)

const testSecret = "handler-secret"

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type stubProducts struct {
	repository.ProductRepository
	products map[uuid.UUID]*model.Product
}

func (s *stubProducts) GetByID(_ context.Context, id uuid.UUID) (*model.Product, error) {
	p, ok := s.products[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

type stubCarts struct {
	carts map[uuid.UUID]*model.Cart
}

func (s *stubCarts) GetByUserID(_ context.Context, userID uuid.UUID) (*model.Cart, error) {
	c, ok := s.carts[userID]
	if !ok {
		return nil, nil
	}
	cp := *c
	cp.Items = append([]model.CartItem(nil), c.Items...)
	return &cp, nil
}

func (s *stubCarts) Save(_ context.Context, cart *model.Cart) error {
	cp := *cart
	s.carts[cart.UserID] = &cp
	return nil
}

func (s *stubCarts) DeleteByUserID(_ context.Context, userID uuid.UUID) error {
	delete(s.carts, userID)
	return nil
}

type stubOrders struct {
	repository.OrderRepository
	orders map[uuid.UUID]*model.Order
}

func (s *stubOrders) GetByID(_ context.Context, id uuid.UUID) (*model.Order, error) {
	return s.orders[id], nil
}

type allVerified struct{}

func (allVerified) IsVerified(context.Context, uuid.UUID) (bool, error) { return true, nil }

type testServer struct {
	router   *gin.Engine
	products *stubProducts
	orders   *stubOrders
}

func newTestServer() *testServer {
	gin.SetMode(gin.TestMode)
	products := &stubProducts{products: make(map[uuid.UUID]*model.Product)}
	orders := &stubOrders{orders: make(map[uuid.UUID]*model.Order)}
	carts := &stubCarts{carts: make(map[uuid.UUID]*model.Cart)}

	cartSvc := service.NewCartService(carts, products, discard)
	orderSvc := service.NewOrderService(orders, nil, products, cartSvc, nil, nil, nil, nil, discard)

	router := NewRouter(Handlers{
		Health: NewHealthHandler(map[string]Check{
			"postgres": func(context.Context) error { return nil },
			"redis":    func(context.Context) error { return errors.New("dial tcp: refused") },
		}),
		Cart:  NewCartHandler(cartSvc, nil, discard),
		Order: NewOrderHandler(orderSvc, discard),
	}, testSecret, allVerified{})
	return &testServer{router: router, products: products, orders: orders}
}

func token(t *testing.T, userID uuid.UUID, role string) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": userID.String(), "role": role, "exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return s
}

type envelope struct {
	OK      bool            `json:"ok"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (s *testServer) do(t *testing.T, method, path, bearer, body string) (int, envelope) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w.Code, env
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{service.ErrOrderNotFound, http.StatusNotFound},
		{service.ErrOrderAccessDenied, http.StatusForbidden},
		{service.ErrAlreadyAssigned, http.StatusConflict},
		{service.ErrInvalidShippingMethod, http.StatusBadRequest},
		{&service.StockError{Name: "Desk"}, http.StatusUnprocessableEntity},
		{&service.TransitionError{From: "EN_ENTREGA", To: "PENDIENTE", Err: service.ErrIllegalRegression}, http.StatusConflict},
		{fmt.Errorf("get order: %w", service.ErrOrderNotFound), http.StatusNotFound},
		{service.ErrInvalidCredentials, http.StatusUnauthorized},
		{errors.New("connection refused"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}

func TestReadyz_ReportsFailingDependency(t *testing.T) {
	s := newTestServer()
	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), `"redis":"unavailable"`)
	assert.Contains(t, w.Body.String(), `"postgres":"connected"`)
}

func TestCartHandler_AddAndUpdate(t *testing.T) {
	s := newTestServer()
	userID := uuid.New()
	bearer := token(t, userID, model.RoleCustomer)
	product := &model.Product{ID: uuid.New(), Name: "Desk", Price: decimal.RequireFromString("99.90"), Stock: 5, Active: true}
	s.products.products[product.ID] = product

	code, env := s.do(t, http.MethodPost, "/api/v1/cart/items", bearer,
		fmt.Sprintf(`{"product_id":%q,"quantity":2}`, product.ID))
	require.Equal(t, http.StatusCreated, code)
	assert.True(t, env.OK)
	assert.Contains(t, string(env.Data), `"total":"199.80"`)

	code, env = s.do(t, http.MethodPut, "/api/v1/cart/items/"+product.ID.String(), bearer, `{"quantity":6}`)
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.False(t, env.OK)
	assert.Contains(t, env.Message, "Desk")

	code, _ = s.do(t, http.MethodPut, "/api/v1/cart/items/not-a-uuid", bearer, `{"quantity":1}`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = s.do(t, http.MethodGet, "/api/v1/cart", "", "")
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestOrderHandler_Tracking(t *testing.T) {
	s := newTestServer()
	owner := uuid.New()
	order := &model.Order{ID: uuid.New(), UserID: owner, OrderNumber: "ORD-20260310-ABC123", Status: model.OrderStatusPreparing}
	s.orders.orders[order.ID] = order

	code, env := s.do(t, http.MethodGet, "/api/v1/orders/"+order.ID.String()+"/tracking", token(t, owner, model.RoleCustomer), "")
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), `"status":"PREPARANDO"`)

	code, env = s.do(t, http.MethodGet, "/api/v1/orders/"+order.ID.String()+"/tracking", token(t, uuid.New(), model.RoleCustomer), "")
	assert.Equal(t, http.StatusForbidden, code)
	assert.False(t, env.OK)

	code, _ = s.do(t, http.MethodGet, "/api/v1/orders/"+uuid.NewString()+"/tracking", token(t, owner, model.RoleCustomer), "")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestOrderHandler_ChangeStatusRequiresAdmin(t *testing.T) {
	s := newTestServer()
	code, _ := s.do(t, http.MethodPatch, "/api/v1/orders/"+uuid.NewString()+"/status", token(t, uuid.New(), model.RoleCustomer), `{"status":"CANCELADO"}`)
	assert.Equal(t, http.StatusForbidden, code)

	code, env := s.do(t, http.MethodPatch, "/api/v1/orders/"+uuid.NewString()+"/status", token(t, uuid.New(), model.RoleAdmin), `{"status":"NOPE"}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, env.Message, "invalid status")
}
