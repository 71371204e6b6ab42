package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/flicky/storefront-api/internal/model"
	"github.com/flicky/storefront-api/internal/repository"
)

// InventoryLedger owns every stock movement. Each change is a single
// conditional UPDATE, so concurrent orders never lose a decrement.
type InventoryLedger struct {
	products repository.ProductRepository
	log      *slog.Logger
}

func NewInventoryLedger(products repository.ProductRepository, log *slog.Logger) *InventoryLedger {
	return &InventoryLedger{products: products, log: log}
}

// Reserve takes stock for every item. Callers run it inside a transaction
// so a shortfall on a later item undoes the earlier ones.
func (l *InventoryLedger) Reserve(ctx context.Context, items []model.OrderItem) error {
	for _, item := range items {
		err := l.products.DecrementStock(ctx, item.ProductID, item.Quantity)
		if errors.Is(err, repository.ErrInsufficientStock) {
			return l.stockError(ctx, item)
		}
		if err != nil {
			return fmt.Errorf("reserve stock: %w", err)
		}
	}
	return nil
}

// Restore gives back the quantities of items. Products deleted since the
// order was placed are skipped.
func (l *InventoryLedger) Restore(ctx context.Context, items []model.OrderItem) error {
	for _, item := range items {
		err := l.products.IncrementStock(ctx, item.ProductID, item.Quantity)
		if errors.Is(err, repository.ErrNoRows) {
			l.log.Warn("skip stock restore for missing product", "product_id", item.ProductID, "quantity", item.Quantity)
			continue
		}
		if err != nil {
			return fmt.Errorf("restore stock: %w", err)
		}
	}
	return nil
}

// MaxQuantity bounds every single cart line and restock.
const MaxQuantity = 1_000_000

func validQuantity(n int) bool { return n >= 1 && n <= MaxQuantity }

func (l *InventoryLedger) Restock(ctx context.Context, productID uuid.UUID, quantity int) error {
	if !validQuantity(quantity) {
		return ErrInvalidQuantity
	}
	err := l.products.IncrementStock(ctx, productID, quantity)
	if errors.Is(err, repository.ErrNoRows) {
		return ErrProductNotFound
	}
	if errors.Is(err, repository.ErrOutOfRange) {
		return ErrStockOverflow
	}
	if err != nil {
		return fmt.Errorf("restock product: %w", err)
	}
	return nil
}

func (l *InventoryLedger) stockError(ctx context.Context, item model.OrderItem) error {
	stockErr := &StockError{ProductID: item.ProductID, Name: item.Name, Requested: item.Quantity}
	product, err := l.products.GetByID(ctx, item.ProductID)
	if err != nil {
		return fmt.Errorf("get product: %w", err)
	}
	if product != nil {
		stockErr.Available = product.Stock
	}
	return stockErr
}
