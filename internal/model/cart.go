package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	CartTTL      = 24 * time.Hour
	PriceLockTTL = 2 * time.Hour
)

type Cart struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Items     []CartItem
	Total     decimal.Decimal
	CreatedAt time.Time
	UpdatedAt time.Time
	ExpiresAt time.Time
}

// CartItem is stored as JSON inside the cart row.
type CartItem struct {
	ProductID        uuid.UUID       `json:"product_id"`
	Name             string          `json:"name"`
	Quantity         int             `json:"quantity"`
	UnitPrice        decimal.Decimal `json:"unit_price"`
	Subtotal         decimal.Decimal `json:"subtotal"`
	PriceLockedUntil time.Time       `json:"price_locked_until"`
}

func (i *CartItem) SetQuantity(quantity int) {
	i.Quantity = quantity
	i.Subtotal = i.UnitPrice.Mul(decimal.NewFromInt(int64(quantity)))
}

func (c *Cart) Item(productID uuid.UUID) *CartItem {
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			return &c.Items[i]
		}
	}
	return nil
}

// RemoveItem drops the line for productID and reports whether it existed.
func (c *Cart) RemoveItem(productID uuid.UUID) bool {
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
			return true
		}
	}
	return false
}

// Recalculate sets Total to the sum of item subtotals.
func (c *Cart) Recalculate() {
	total := decimal.Zero
	for _, item := range c.Items {
		total = total.Add(item.Subtotal)
	}
	c.Total = total
}

// Touch refreshes the activity timestamps after a mutation.
func (c *Cart) Touch(now time.Time) {
	c.UpdatedAt = now
	c.ExpiresAt = now.Add(CartTTL)
}

func (c *Cart) Expired(now time.Time) bool {
	return now.Sub(c.UpdatedAt) > CartTTL
}

func (c *Cart) Quantity() int {
	n := 0
	for _, item := range c.Items {
		n += item.Quantity
	}
	return n
}
