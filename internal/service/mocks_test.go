package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/flicky/storefront-api/internal/model"
	"github.com/flicky/storefront-api/internal/repository"
)

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// --- products ---

type mockProductRepo struct {
	products map[uuid.UUID]*model.Product
}

func newMockProductRepo() *mockProductRepo {
	return &mockProductRepo{products: make(map[uuid.UUID]*model.Product)}
}

func (m *mockProductRepo) add(name string, price string, stock int) *model.Product {
	p := &model.Product{
		ID: uuid.New(), Name: name, SKU: "SKU-" + strings.ToUpper(name),
		Price: decimal.RequireFromString(price), Stock: stock, Active: true,
	}
	m.products[p.ID] = p
	return p
}

func (m *mockProductRepo) Create(_ context.Context, product *model.Product) error {
	for _, p := range m.products {
		if p.SKU == product.SKU {
			return repository.ErrDuplicate
		}
	}
	product.ID = uuid.New()
	cp := *product
	m.products[product.ID] = &cp
	return nil
}

func (m *mockProductRepo) GetByID(_ context.Context, id uuid.UUID) (*model.Product, error) {
	p, ok := m.products[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (m *mockProductRepo) List(_ context.Context, _, _ int, _, _, _ string) ([]model.Product, int, error) {
	var out []model.Product
	for _, p := range m.products {
		out = append(out, *p)
	}
	return out, len(out), nil
}

func (m *mockProductRepo) Update(_ context.Context, product *model.Product) error {
	p, ok := m.products[product.ID]
	if !ok {
		return repository.ErrNoRows
	}
	for id, other := range m.products {
		if id != product.ID && other.SKU == product.SKU {
			return repository.ErrDuplicate
		}
	}
	product.Stock = p.Stock
	cp := *product
	m.products[product.ID] = &cp
	return nil
}

func (m *mockProductRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.products[id]; !ok {
		return repository.ErrNoRows
	}
	delete(m.products, id)
	return nil
}

func (m *mockProductRepo) DecrementStock(_ context.Context, id uuid.UUID, quantity int) error {
	p, ok := m.products[id]
	if !ok || p.Stock < quantity {
		return repository.ErrInsufficientStock
	}
	p.Stock -= quantity
	return nil
}

func (m *mockProductRepo) IncrementStock(_ context.Context, id uuid.UUID, quantity int) error {
	p, ok := m.products[id]
	if !ok {
		return repository.ErrNoRows
	}
	if p.Stock+quantity > math.MaxInt32 {
		return repository.ErrOutOfRange
	}
	p.Stock += quantity
	return nil
}

// --- carts ---

type mockCartRepo struct {
	carts map[uuid.UUID]*model.Cart
}

func newMockCartRepo() *mockCartRepo {
	return &mockCartRepo{carts: make(map[uuid.UUID]*model.Cart)}
}

func copyCart(c *model.Cart) *model.Cart {
	cp := *c
	cp.Items = slices.Clone(c.Items)
	return &cp
}

func (m *mockCartRepo) GetByUserID(_ context.Context, userID uuid.UUID) (*model.Cart, error) {
	c, ok := m.carts[userID]
	if !ok {
		return nil, nil
	}
	return copyCart(c), nil
}

func (m *mockCartRepo) Save(_ context.Context, cart *model.Cart) error {
	if cart.ID == uuid.Nil {
		cart.ID = uuid.New()
	}
	m.carts[cart.UserID] = copyCart(cart)
	return nil
}

func (m *mockCartRepo) DeleteByUserID(_ context.Context, userID uuid.UUID) error {
	delete(m.carts, userID)
	return nil
}

// --- users ---

type mockUserRepo struct {
	users map[uuid.UUID]*model.User
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[uuid.UUID]*model.User)}
}

func (m *mockUserRepo) add(email string) *model.User {
	u := &model.User{ID: uuid.New(), Email: email, FirstName: "Test", LastName: "User", Role: model.RoleCustomer, Verified: true}
	m.users[u.ID] = u
	return u
}

func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	for _, u := range m.users {
		if u.Email == user.Email {
			return repository.ErrDuplicate
		}
	}
	user.ID = uuid.New()
	m.users[user.ID] = user
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	return m.users[id], nil
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, nil
}

func (m *mockUserRepo) SetVerified(_ context.Context, id uuid.UUID, verified bool) error {
	u, ok := m.users[id]
	if !ok {
		return repository.ErrNoRows
	}
	u.Verified = verified
	return nil
}

// --- addresses ---

type mockAddressRepo struct {
	addresses map[uuid.UUID]*model.Address
}

func newMockAddressRepo() *mockAddressRepo {
	return &mockAddressRepo{addresses: make(map[uuid.UUID]*model.Address)}
}

func (m *mockAddressRepo) add(userID uuid.UUID) *model.Address {
	a := &model.Address{
		ID: uuid.New(), UserID: userID, Street: "Av. Arequipa 123", City: "Lima",
		State: "Lima", PostalCode: "15046", Country: "PE",
	}
	m.addresses[a.ID] = a
	return a
}

func (m *mockAddressRepo) Create(_ context.Context, a *model.Address) error {
	a.ID = uuid.New()
	cp := *a
	m.addresses[a.ID] = &cp
	return nil
}

func (m *mockAddressRepo) GetByID(_ context.Context, id uuid.UUID) (*model.Address, error) {
	a, ok := m.addresses[id]
	if !ok {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

func (m *mockAddressRepo) ListByUserID(_ context.Context, userID uuid.UUID) ([]model.Address, error) {
	var out []model.Address
	for _, a := range m.addresses {
		if a.UserID == userID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (m *mockAddressRepo) Update(_ context.Context, a *model.Address) error {
	existing, ok := m.addresses[a.ID]
	if !ok || existing.UserID != a.UserID {
		return repository.ErrNoRows
	}
	cp := *a
	m.addresses[a.ID] = &cp
	return nil
}

func (m *mockAddressRepo) Delete(_ context.Context, id, userID uuid.UUID) error {
	a, ok := m.addresses[id]
	if !ok || a.UserID != userID {
		return repository.ErrNoRows
	}
	delete(m.addresses, id)
	return nil
}

// --- orders ---

type mockOrderRepo struct {
	orders map[uuid.UUID]*model.Order
	// history records every status written, per order.
	history   map[uuid.UUID][]model.OrderStatus
	taken     map[string]bool
	updateErr error
	// collisions makes ExistsByNumber report a clash this many times.
	collisions int
}

func newMockOrderRepo() *mockOrderRepo {
	return &mockOrderRepo{
		orders:  make(map[uuid.UUID]*model.Order),
		history: make(map[uuid.UUID][]model.OrderStatus),
		taken:   make(map[string]bool),
	}
}

func (m *mockOrderRepo) add(o *model.Order) *model.Order {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	if o.OrderNumber == "" {
		o.OrderNumber = "ORD-20260301-" + o.ID.String()[:6]
	}
	m.orders[o.ID] = o
	m.history[o.ID] = []model.OrderStatus{o.Status}
	return o
}

func (m *mockOrderRepo) Create(_ context.Context, order *model.Order) error {
	if m.taken[order.OrderNumber] {
		return repository.ErrDuplicate
	}
	order.ID = uuid.New()
	order.CreatedAt = testNow
	order.UpdatedAt = testNow
	cp := *order
	m.orders[order.ID] = &cp
	m.history[order.ID] = []model.OrderStatus{order.Status}
	m.taken[order.OrderNumber] = true
	return nil
}

func (m *mockOrderRepo) GetByID(_ context.Context, id uuid.UUID) (*model.Order, error) {
	o, ok := m.orders[id]
	if !ok {
		return nil, nil
	}
	cp := *o
	return &cp, nil
}

func (m *mockOrderRepo) ExistsByNumber(_ context.Context, number string) (bool, error) {
	if m.collisions > 0 {
		m.collisions--
		return true, nil
	}
	return m.taken[number], nil
}

func (m *mockOrderRepo) ListByUserID(_ context.Context, userID uuid.UUID) ([]model.Order, error) {
	var orders []model.Order
	for _, o := range m.orders {
		if o.UserID == userID {
			orders = append(orders, *o)
		}
	}
	return orders, nil
}

func (m *mockOrderRepo) ListAll(_ context.Context) ([]model.Order, error) {
	var orders []model.Order
	for _, o := range m.orders {
		orders = append(orders, *o)
	}
	return orders, nil
}

func (m *mockOrderRepo) ListStale(_ context.Context, statuses []model.OrderStatus, cutoff time.Time) ([]model.Order, error) {
	var orders []model.Order
	for _, o := range m.orders {
		if slices.Contains(statuses, o.Status) && !o.CreatedAt.After(cutoff) {
			orders = append(orders, *o)
		}
	}
	return orders, nil
}

func (m *mockOrderRepo) UpdateStatus(_ context.Context, id uuid.UUID, from, to model.OrderStatus) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	o, ok := m.orders[id]
	if !ok || o.Status != from {
		return repository.ErrStaleWrite
	}
	o.Status = to
	m.history[id] = append(m.history[id], to)
	return nil
}

func (m *mockOrderRepo) MarkStockRestored(_ context.Context, id uuid.UUID) (bool, error) {
	o, ok := m.orders[id]
	if !ok || o.StockRestored {
		return false, nil
	}
	o.StockRestored = true
	return true, nil
}

func (m *mockOrderRepo) Deactivate(_ context.Context, id uuid.UUID) (*model.Order, error) {
	o, ok := m.orders[id]
	if !ok {
		return nil, nil
	}
	o.Active = false
	cp := *o
	return &cp, nil
}

// --- shipments ---

type mockShipmentRepo struct {
	shipments map[uuid.UUID]*model.Shipment
	// collisions makes ExistsByTrackingNumber report a clash this many times.
	collisions int
}

func newMockShipmentRepo() *mockShipmentRepo {
	return &mockShipmentRepo{shipments: make(map[uuid.UUID]*model.Shipment)}
}

func (m *mockShipmentRepo) add(s *model.Shipment) *model.Shipment {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	m.shipments[s.ID] = s
	return s
}

func (m *mockShipmentRepo) Create(_ context.Context, s *model.Shipment) error {
	for _, existing := range m.shipments {
		if existing.OrderID == s.OrderID || existing.TrackingNumber == s.TrackingNumber {
			return repository.ErrDuplicate
		}
	}
	s.ID = uuid.New()
	cp := *s
	m.shipments[s.ID] = &cp
	return nil
}

func (m *mockShipmentRepo) GetByID(_ context.Context, id uuid.UUID) (*model.Shipment, error) {
	s, ok := m.shipments[id]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (m *mockShipmentRepo) GetByOrderID(_ context.Context, orderID uuid.UUID) (*model.Shipment, error) {
	for _, s := range m.shipments {
		if s.OrderID == orderID {
			cp := *s
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *mockShipmentRepo) ExistsByTrackingNumber(_ context.Context, tracking string) (bool, error) {
	if m.collisions > 0 {
		m.collisions--
		return true, nil
	}
	for _, s := range m.shipments {
		if s.TrackingNumber == tracking {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockShipmentRepo) List(_ context.Context) ([]model.Shipment, error) {
	var out []model.Shipment
	for _, s := range m.shipments {
		out = append(out, *s)
	}
	return out, nil
}

func (m *mockShipmentRepo) ListOverdue(_ context.Context, excluded []model.ShipmentStatus, cutoff time.Time) ([]model.Shipment, error) {
	var out []model.Shipment
	for _, s := range m.shipments {
		if !slices.Contains(excluded, s.Status) && s.ShipmentAt.Before(cutoff) {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (m *mockShipmentRepo) Update(_ context.Context, s *model.Shipment, from model.ShipmentStatus) error {
	stored, ok := m.shipments[s.ID]
	if !ok || stored.Status != from {
		return repository.ErrStaleWrite
	}
	cp := *s
	m.shipments[s.ID] = &cp
	return nil
}

func (m *mockShipmentRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.shipments[id]; !ok {
		return repository.ErrNoRows
	}
	delete(m.shipments, id)
	return nil
}

// --- tx and notifier ---

type fakeTx struct {
	calls int
}

func (f *fakeTx) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	f.calls++
	return fn(ctx)
}

type sentEmail struct {
	To, Subject, HTML string
}

type recordingNotifier struct {
	mu       sync.Mutex
	emails   []sentEmail
	pushes   []model.PushEvent
	emailErr error
}

func (n *recordingNotifier) SendEmail(_ context.Context, to, subject, html string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.emailErr != nil {
		return n.emailErr
	}
	n.emails = append(n.emails, sentEmail{To: to, Subject: subject, HTML: html})
	return nil
}

func (n *recordingNotifier) PushToUser(_ context.Context, _ uuid.UUID, event model.PushEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.pushes = append(n.pushes, event)
}

var errSMTPDown = errors.New("smtp: connection refused")

// --- wiring ---

type testEnv struct {
	products  *mockProductRepo
	carts     *mockCartRepo
	users     *mockUserRepo
	addresses *mockAddressRepo
	orderRepo *mockOrderRepo
	shipRepo  *mockShipmentRepo
	tx        *fakeTx
	notifier  *recordingNotifier

	cartSvc     *CartService
	checkoutSvc *CheckoutService
	orderSvc    *OrderService
	shipmentSvc *ShipmentService
	sweeper     *Sweeper
}

func newTestEnv() *testEnv {
	env := &testEnv{
		products:  newMockProductRepo(),
		carts:     newMockCartRepo(),
		users:     newMockUserRepo(),
		addresses: newMockAddressRepo(),
		orderRepo: newMockOrderRepo(),
		shipRepo:  newMockShipmentRepo(),
		tx:        &fakeTx{},
		notifier:  &recordingNotifier{},
	}
	log := discardLogger()
	clock := func() time.Time { return testNow }

	env.cartSvc = NewCartService(env.carts, env.products, log)
	env.cartSvc.now = clock
	env.checkoutSvc = NewCheckoutService(env.cartSvc, env.products, env.addresses)
	inventory := NewInventoryLedger(env.products, log)
	env.orderSvc = NewOrderService(env.orderRepo, env.users, env.products, env.cartSvc, env.checkoutSvc,
		inventory, env.tx, env.notifier, log)
	env.orderSvc.now = clock
	env.shipmentSvc = NewShipmentService(env.shipRepo, env.orderRepo, env.orderSvc, env.tx, log)
	env.shipmentSvc.now = clock
	env.sweeper = NewSweeper(env.orderSvc, env.shipmentSvc, DefaultCancelAfter, DefaultLostAfter, log)
	return env
}

func customer(u *model.User) model.Principal {
	return model.Principal{UserID: u.ID, Role: model.RoleCustomer}
}

func (e *testEnv) stock(id uuid.UUID) int {
	return e.products.products[id].Stock
}
