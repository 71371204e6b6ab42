package model

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestOrderTransition(t *testing.T) {
	tests := []struct {
		name     string
		from, to OrderStatus
		want     Transition
	}{
		{"forward one step", OrderStatusPending, OrderStatusPreparing, TransitionAllowed},
		{"forward skipping", OrderStatusPending, OrderStatusDelivered, TransitionAllowed},
		{"same status", OrderStatusInTransit, OrderStatusInTransit, TransitionNoop},
		{"regression", OrderStatusOutForDelivery, OrderStatusPending, TransitionRegression},
		{"cancel pending", OrderStatusPending, OrderStatusCancelled, TransitionAllowed},
		{"cancel delivered", OrderStatusDelivered, OrderStatusCancelled, TransitionAllowed},
		{"cancel lost", OrderStatusLost, OrderStatusCancelled, TransitionAllowed},
		{"from cancelled", OrderStatusCancelled, OrderStatusPending, TransitionFromCancelled},
		{"cancel twice", OrderStatusCancelled, OrderStatusCancelled, TransitionFromCancelled},
		{"lost is reserved", OrderStatusInTransit, OrderStatusLost, TransitionReserved},
		{"out of delivered", OrderStatusDelivered, OrderStatusInTransit, TransitionRegression},
		{"unknown target", OrderStatusPending, OrderStatus("SHIPPED"), TransitionUnknownStatus},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, OrderTransition(tt.from, tt.to))
		})
	}
}

// Every allowed move either keeps or raises the index, or lands on CANCELADO.
func TestOrderTransition_Monotonic(t *testing.T) {
	for _, from := range OrderStatuses() {
		for _, to := range OrderStatuses() {
			if OrderTransition(from, to) != TransitionAllowed {
				continue
			}
			if to == OrderStatusCancelled {
				assert.NotEqual(t, OrderStatusCancelled, from)
				continue
			}
			assert.Greater(t, to.Index(), from.Index(), "%s -> %s", from, to)
		}
	}
}

func TestParseOrderStatus(t *testing.T) {
	st, ok := ParseOrderStatus("EN_ENTREGA")
	assert.True(t, ok)
	assert.Equal(t, OrderStatusOutForDelivery, st)

	_, ok = ParseOrderStatus("en_entrega")
	assert.False(t, ok)
}

func TestShipmentStatus_FlowIndex(t *testing.T) {
	assert.Equal(t, 0, ShipmentStatusCreated.FlowIndex())
	assert.Equal(t, 3, ShipmentStatusDelivered.FlowIndex())
	assert.Equal(t, -1, ShipmentStatusLost.FlowIndex())
	assert.Equal(t, -1, ShipmentStatus("RETURNED").FlowIndex())

	st, ok := ShipmentStatusLost.OrderStatus()
	assert.True(t, ok)
	assert.Equal(t, OrderStatusLost, st)
	_, ok = ShipmentStatusCreated.OrderStatus()
	assert.False(t, ok)
}

func TestCart_Recalculate(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	cart := &Cart{Items: []CartItem{
		{ProductID: a, UnitPrice: decimal.RequireFromString("19.99")},
		{ProductID: b, UnitPrice: decimal.RequireFromString("5.50")},
	}}
	cart.Items[0].SetQuantity(2)
	cart.Items[1].SetQuantity(3)
	cart.Recalculate()
	assert.True(t, decimal.RequireFromString("56.48").Equal(cart.Total))
	assert.Equal(t, 5, cart.Quantity())

	assert.True(t, cart.RemoveItem(a))
	assert.False(t, cart.RemoveItem(a))
	cart.Recalculate()
	assert.True(t, decimal.RequireFromString("16.50").Equal(cart.Total))
	assert.Nil(t, cart.Item(a))
	assert.NotNil(t, cart.Item(b))
}

func TestCart_Expired(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	cart := &Cart{}
	cart.Touch(now)
	assert.Equal(t, now.Add(CartTTL), cart.ExpiresAt)

	assert.False(t, cart.Expired(now.Add(CartTTL)))
	assert.True(t, cart.Expired(now.Add(CartTTL+time.Second)))
}

func TestAddress_IsComplete(t *testing.T) {
	addr := &Address{Street: "Main 1", City: "Lima", PostalCode: "15001", Country: "PE"}
	assert.True(t, addr.IsComplete())

	addr.PostalCode = "  "
	assert.False(t, addr.IsComplete())
}

func TestValidShippingMethod(t *testing.T) {
	assert.True(t, ValidShippingMethod("standard"))
	assert.True(t, ValidShippingMethod("express"))
	assert.False(t, ValidShippingMethod("overnight"))
	assert.False(t, ValidShippingMethod(""))
}
