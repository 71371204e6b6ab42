package service

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

const (
	DefaultCancelAfter = 48 * time.Hour
	DefaultLostAfter   = 15 * 24 * time.Hour
)

// Sweeper holds the two periodic corrections: cancelling orders stuck in an
// early status and writing off shipments that never arrived. A failure on
// one entity is logged and the sweep moves on.
type Sweeper struct {
	orders      *OrderService
	shipments   *ShipmentService
	cancelAfter time.Duration
	lostAfter   time.Duration
	log         *slog.Logger
}

func NewSweeper(orders *OrderService, shipments *ShipmentService, cancelAfter, lostAfter time.Duration, log *slog.Logger) *Sweeper {
	if cancelAfter <= 0 {
		cancelAfter = DefaultCancelAfter
	}
	if lostAfter <= 0 {
		lostAfter = DefaultLostAfter
	}
	return &Sweeper{orders: orders, shipments: shipments, cancelAfter: cancelAfter, lostAfter: lostAfter, log: log}
}

// AutoCancelPendingOrders returns how many orders it cancelled.
func (s *Sweeper) AutoCancelPendingOrders(ctx context.Context) (int, error) {
	stale, err := s.orders.ListStale(ctx, s.cancelAfter)
	if err != nil {
		return 0, err
	}

	cancelled := 0
	for i := range stale {
		order := &stale[i]
		if err := s.orders.AutoCancel(ctx, order, s.cancelAfter); err != nil {
			s.log.Error("auto-cancel order failed", "order_id", order.ID, "order_number", order.OrderNumber, "error", err)
			continue
		}
		cancelled++
		s.log.Info("order auto-cancelled", "order_id", order.ID, "order_number", order.OrderNumber)
	}
	return cancelled, nil
}

// MarkLostShipments returns how many shipments it marked PERDIDO.
func (s *Sweeper) MarkLostShipments(ctx context.Context) (int, error) {
	overdue, err := s.shipments.ListOverdue(ctx, s.lostAfter)
	if err != nil {
		return 0, err
	}

	lost := 0
	for i := range overdue {
		shipment := &overdue[i]
		err := s.shipments.MarkLost(ctx, shipment)
		if errors.Is(err, ErrShipmentChanged) {
			s.log.Info("shipment changed since listed, skipped", "shipment_id", shipment.ID)
			continue
		}
		if err != nil {
			s.log.Error("mark shipment lost failed", "shipment_id", shipment.ID, "error", err)
			continue
		}
		lost++
		s.log.Info("shipment marked lost", "shipment_id", shipment.ID, "tracking_number", shipment.TrackingNumber)
	}
	return lost, nil
}
