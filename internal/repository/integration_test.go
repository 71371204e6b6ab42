//go:build integration

package repository

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flicky/storefront-api/internal/model"
)

func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	pool, err := pgxpool.New(context.Background(), dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, Migrate(context.Background(), pool))
	cleanupTable(t, pool, "shipments", "orders", "carts", "addresses", "products", "users")
	return pool
}

func cleanupTable(t *testing.T, pool *pgxpool.Pool, tables ...string) {
	t.Helper()
	for _, table := range tables {
		if _, err := pool.Exec(context.Background(), fmt.Sprintf("DELETE FROM %s", table)); err != nil {
			t.Fatalf("failed to cleanup table %s: %v", table, err)
		}
	}
}

func TestProductRepository_Integration(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewProductRepository(pool)
	ctx := context.Background()

	p := &model.Product{
		Name: "Integration Test Product", Description: "test", SKU: "INT-1",
		Price: decimal.NewFromFloat(19.99), Stock: 5, Active: true,
	}
	require.NoError(t, repo.Create(ctx, p))
	assert.ErrorIs(t, repo.Create(ctx, &model.Product{Name: "dup", SKU: "INT-1", Price: decimal.NewFromInt(1)}), ErrDuplicate)

	require.NoError(t, repo.DecrementStock(ctx, p.ID, 5))
	assert.ErrorIs(t, repo.DecrementStock(ctx, p.ID, 1), ErrInsufficientStock)
	require.NoError(t, repo.IncrementStock(ctx, p.ID, 2))

	found, err := repo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, found.Stock)
	assert.True(t, p.Price.Equal(found.Price))
}

func TestCartRepository_Integration(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewCartRepository(pool)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	cart := &model.Cart{UserID: uuid.New(), CreatedAt: now}
	item := model.CartItem{ProductID: uuid.New(), Name: "P", UnitPrice: decimal.NewFromInt(10), PriceLockedUntil: now}
	item.SetQuantity(2)
	cart.Items = append(cart.Items, item)
	cart.Recalculate()
	cart.Touch(now)
	require.NoError(t, repo.Save(ctx, cart))

	found, err := repo.GetByUserID(ctx, cart.UserID)
	require.NoError(t, err)
	require.Len(t, found.Items, 1)
	assert.Equal(t, 2, found.Items[0].Quantity)
	assert.True(t, found.Total.Equal(decimal.NewFromInt(20)))

	require.NoError(t, repo.DeleteByUserID(ctx, cart.UserID))
	found, err = repo.GetByUserID(ctx, cart.UserID)
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestOrderRepository_Integration(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewOrderRepository(pool)
	ctx := context.Background()

	order := &model.Order{
		UserID: uuid.New(), OrderNumber: "ORD-20260101-AAAAAA", Status: model.OrderStatusPending,
		TotalAmount: decimal.NewFromInt(50), ShippingAddressID: uuid.New(), ShippingMethod: "standard", Active: true,
		Items: []model.OrderItem{{ProductID: uuid.New(), Name: "P", Quantity: 2, UnitPrice: decimal.NewFromInt(25), Subtotal: decimal.NewFromInt(50)}},
	}
	require.NoError(t, repo.Create(ctx, order))

	stale, err := repo.ListStale(ctx, model.CancellableByAge, time.Now().Add(time.Minute))
	require.NoError(t, err)
	require.Len(t, stale, 1)

	require.NoError(t, repo.UpdateStatus(ctx, order.ID, model.OrderStatusPending, model.OrderStatusCancelled))
	assert.ErrorIs(t, repo.UpdateStatus(ctx, order.ID, model.OrderStatusPending, model.OrderStatusPreparing), ErrStaleWrite)

	found, err := repo.GetByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusCancelled, found.Status)
	require.Len(t, found.Items, 1)
}

func TestUserRepository_Integration(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewUserRepository(pool)
	ctx := context.Background()

	user := &model.User{Email: "ana@example.com", Password: "hash", FirstName: "Ana", Role: model.RoleCustomer}
	require.NoError(t, repo.Create(ctx, user))
	assert.ErrorIs(t, repo.Create(ctx, &model.User{Email: "ana@example.com", Password: "x", Role: model.RoleCustomer}), ErrDuplicate)

	require.NoError(t, repo.SetVerified(ctx, user.ID, true))
	found, err := repo.GetByEmail(ctx, "ana@example.com")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.True(t, found.Verified)
}

func TestShipmentRepository_Integration(t *testing.T) {
	pool := setupTestDB(t)
	orders := NewOrderRepository(pool)
	repo := NewShipmentRepository(pool)
	ctx := context.Background()

	order := &model.Order{
		UserID: uuid.New(), OrderNumber: "ORD-20260101-BBBBBB", Status: model.OrderStatusInTransit,
		TotalAmount: decimal.NewFromInt(10), ShippingAddressID: uuid.New(), ShippingMethod: "standard", Active: true,
	}
	require.NoError(t, orders.Create(ctx, order))

	shippedAt := time.Now().UTC().Add(-20 * 24 * time.Hour).Truncate(time.Millisecond)
	shipment := &model.Shipment{
		OrderID: order.ID, TrackingNumber: "DHL-0A1B2C3D", Carrier: "DHL",
		Status: model.ShipmentStatusInTransit, ShipmentAt: shippedAt, UpdatedAt: shippedAt,
	}
	require.NoError(t, repo.Create(ctx, shipment))
	assert.ErrorIs(t, repo.Create(ctx, &model.Shipment{OrderID: order.ID, TrackingNumber: "UPS-00000000", Carrier: "UPS",
		Status: model.ShipmentStatusCreated, ShipmentAt: shippedAt, UpdatedAt: shippedAt}), ErrDuplicate)

	exists, err := repo.ExistsByTrackingNumber(ctx, "DHL-0A1B2C3D")
	require.NoError(t, err)
	assert.True(t, exists)

	overdue, err := repo.ListOverdue(ctx, []model.ShipmentStatus{model.ShipmentStatusDelivered, model.ShipmentStatusLost},
		time.Now().Add(-15*24*time.Hour))
	require.NoError(t, err)
	require.Len(t, overdue, 1)
	assert.Equal(t, shipment.ID, overdue[0].ID)

	require.NoError(t, repo.Delete(ctx, shipment.ID))
	assert.ErrorIs(t, repo.Delete(ctx, shipment.ID), ErrNoRows)
}

func TestTxManager_RollsBack(t *testing.T) {
	pool := setupTestDB(t)
	products := NewProductRepository(pool)
	tx := NewTxManager(pool)
	ctx := context.Background()

	p := &model.Product{Name: "Tx", SKU: "TX-1", Price: decimal.NewFromInt(5), Stock: 3, Active: true}
	require.NoError(t, products.Create(ctx, p))

	err := tx.WithTx(ctx, func(ctx context.Context) error {
		require.NoError(t, products.DecrementStock(ctx, p.ID, 2))
		return products.DecrementStock(ctx, p.ID, 2)
	})
	assert.ErrorIs(t, err, ErrInsufficientStock)

	found, err := products.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, found.Stock)
}
