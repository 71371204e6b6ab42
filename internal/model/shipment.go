package model

import (
	"time"

	"github.com/google/uuid"
)

type Shipment struct {
	ID                  uuid.UUID
	OrderID             uuid.UUID
	TrackingNumber      string
	Carrier             string
	Status              ShipmentStatus
	ShipmentAt          time.Time
	DeliveryAt          *time.Time
	ConfirmedByCustomer bool
	UpdatedAt           time.Time
}

type ShipmentStatus string

const (
	ShipmentStatusCreated        ShipmentStatus = "CREATED"
	ShipmentStatusInTransit      ShipmentStatus = "EN_TRANSITO"
	ShipmentStatusOutForDelivery ShipmentStatus = "EN_ENTREGA"
	ShipmentStatusDelivered      ShipmentStatus = "ENTREGADO"
	ShipmentStatusLost           ShipmentStatus = "PERDIDO"
)

var shipmentFlow = []ShipmentStatus{
	ShipmentStatusCreated,
	ShipmentStatusInTransit,
	ShipmentStatusOutForDelivery,
	ShipmentStatusDelivered,
}

// FlowIndex is the position of s in the sequential flow, or -1 for
// statuses outside it (PERDIDO and unknown values).
func (s ShipmentStatus) FlowIndex() int {
	for i, st := range shipmentFlow {
		if st == s {
			return i
		}
	}
	return -1
}

func (s ShipmentStatus) IsTerminal() bool {
	return s == ShipmentStatusDelivered || s == ShipmentStatusLost
}

// OrderStatus is the order status that mirrors a shipment status.
func (s ShipmentStatus) OrderStatus() (OrderStatus, bool) {
	switch s {
	case ShipmentStatusInTransit:
		return OrderStatusInTransit, true
	case ShipmentStatusOutForDelivery:
		return OrderStatusOutForDelivery, true
	case ShipmentStatusDelivered:
		return OrderStatusDelivered, true
	case ShipmentStatusLost:
		return OrderStatusLost, true
	}
	return "", false
}

// ShipmentSettled lists statuses ignored by the lost-shipment sweeper.
var ShipmentSettled = []ShipmentStatus{ShipmentStatusDelivered, ShipmentStatusLost}
