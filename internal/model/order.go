package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Order struct {
	ID                uuid.UUID
	UserID            uuid.UUID
	OrderNumber       string
	Items             []OrderItem
	TotalAmount       decimal.Decimal
	Status            OrderStatus
	ShippingAddressID uuid.UUID
	ShippingMethod    string
	Active            bool
	StockRestored     bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// OrderItem is a snapshot of a cart line taken at placement time.
type OrderItem struct {
	ProductID uuid.UUID       `json:"product_id"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

type OrderStatus string

const (
	OrderStatusPending        OrderStatus = "PENDIENTE"
	OrderStatusPreparing      OrderStatus = "PREPARANDO"
	OrderStatusInTransit      OrderStatus = "EN_TRANSITO"
	OrderStatusOutForDelivery OrderStatus = "EN_ENTREGA"
	OrderStatusDelivered      OrderStatus = "ENTREGADO"
	OrderStatusCancelled      OrderStatus = "CANCELADO"
	OrderStatusLost           OrderStatus = "PERDIDO"
)

// orderStatuses is the ordering used by the forward-only rule.
var orderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusPreparing,
	OrderStatusInTransit,
	OrderStatusOutForDelivery,
	OrderStatusDelivered,
	OrderStatusCancelled,
	OrderStatusLost,
}

func OrderStatuses() []OrderStatus {
	out := make([]OrderStatus, len(orderStatuses))
	copy(out, orderStatuses)
	return out
}

func ParseOrderStatus(s string) (OrderStatus, bool) {
	st := OrderStatus(s)
	return st, st.Index() >= 0
}

// Index is the position of s in the status sequence, or -1.
func (s OrderStatus) Index() int {
	for i, st := range orderStatuses {
		if st == s {
			return i
		}
	}
	return -1
}

func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusCancelled || s == OrderStatusDelivered || s == OrderStatusLost
}

type Transition int

const (
	TransitionAllowed Transition = iota
	TransitionNoop
	TransitionUnknownStatus
	TransitionFromCancelled
	TransitionRegression
	// TransitionReserved marks targets that only the shipment sweeper may set.
	TransitionReserved
)

// OrderTransition classifies a requested move from one status to another.
// Cancellation is accepted from every status except CANCELADO itself,
// including ENTREGADO and PERDIDO.
func OrderTransition(from, to OrderStatus) Transition {
	if to.Index() < 0 {
		return TransitionUnknownStatus
	}
	if from == OrderStatusCancelled {
		return TransitionFromCancelled
	}
	if from == to {
		return TransitionNoop
	}
	if to == OrderStatusCancelled {
		return TransitionAllowed
	}
	if to == OrderStatusLost {
		return TransitionReserved
	}
	if to.Index() < from.Index() {
		return TransitionRegression
	}
	return TransitionAllowed
}

// CancellableByAge lists the statuses the stale-order sweeper cancels.
var CancellableByAge = []OrderStatus{OrderStatusPending, OrderStatusPreparing}

const (
	ShippingStandard = "standard"
	ShippingExpress  = "express"
)

func ValidShippingMethod(method string) bool {
	return method == ShippingStandard || method == ShippingExpress
}
