package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/flicky/storefront-api/internal/model"
	"github.com/flicky/storefront-api/internal/notify"
	"github.com/flicky/storefront-api/internal/repository"
)

type ShipmentService struct {
	shipmentRepo repository.ShipmentRepository
	orderRepo    repository.OrderRepository
	orders       *OrderService
	tx           repository.TxManager
	log          *slog.Logger
	now          func() time.Time
}

func NewShipmentService(
	shipmentRepo repository.ShipmentRepository,
	orderRepo repository.OrderRepository,
	orders *OrderService,
	tx repository.TxManager,
	log *slog.Logger,
) *ShipmentService {
	return &ShipmentService{
		shipmentRepo: shipmentRepo, orderRepo: orderRepo, orders: orders,
		tx: tx, log: log, now: time.Now,
	}
}

// Assign creates the order's shipment with a fresh tracking number.
func (s *ShipmentService) Assign(ctx context.Context, orderID uuid.UUID, carrier string) (*model.Shipment, error) {
	carrier = strings.TrimSpace(carrier)
	if carrier == "" {
		return nil, ErrInvalidCarrier
	}

	existing, err := s.shipmentRepo.GetByOrderID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("get shipment: %w", err)
	}
	if existing != nil {
		return nil, ErrAlreadyAssigned
	}
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}

	tracking, err := s.newTrackingNumber(ctx, carrier)
	if err != nil {
		return nil, err
	}

	now := s.now()
	shipment := &model.Shipment{
		OrderID:        orderID,
		TrackingNumber: tracking,
		Carrier:        carrier,
		Status:         model.ShipmentStatusCreated,
		ShipmentAt:     now,
		UpdatedAt:      now,
	}
	if err := s.shipmentRepo.Create(ctx, shipment); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrAlreadyAssigned
		}
		return nil, fmt.Errorf("create shipment: %w", err)
	}
	s.log.Info("shipment assigned", "shipment_id", shipment.ID, "order_id", orderID, "tracking_number", tracking)
	return shipment, nil
}

func (s *ShipmentService) newTrackingNumber(ctx context.Context, carrier string) (string, error) {
	for i := 0; i < maxCodeAttempts; i++ {
		tracking, err := trackingNumber(carrier)
		if err != nil {
			return "", fmt.Errorf("generate tracking number: %w", err)
		}
		exists, err := s.shipmentRepo.ExistsByTrackingNumber(ctx, tracking)
		if err != nil {
			return "", fmt.Errorf("check tracking number: %w", err)
		}
		if !exists {
			return tracking, nil
		}
	}
	return "", errors.New("generate tracking number: no free number after retries")
}

// Advance moves a shipment exactly one step along its flow. Delivery needs
// the customer's confirmation. The owning order follows along when it can.
func (s *ShipmentService) Advance(ctx context.Context, shipmentID uuid.UUID, newStatus string, proof bool) (*model.Shipment, error) {
	shipment, err := s.Get(ctx, shipmentID)
	if err != nil {
		return nil, err
	}

	to := model.ShipmentStatus(newStatus)
	if to.FlowIndex() < 0 {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, newStatus)
	}
	current := shipment.Status.FlowIndex()
	if current < 0 || to.FlowIndex() != current+1 {
		return nil, &TransitionError{From: string(shipment.Status), To: newStatus, Err: ErrNonSequential}
	}
	if to == model.ShipmentStatusDelivered && !proof {
		return nil, ErrProofRequired
	}

	now := s.now()
	from := shipment.Status
	shipment.Status = to
	shipment.UpdatedAt = now
	if to == model.ShipmentStatusDelivered {
		shipment.DeliveryAt = &now
		shipment.ConfirmedByCustomer = true
	}
	if err := s.shipmentRepo.Update(ctx, shipment, from); err != nil {
		if errors.Is(err, repository.ErrStaleWrite) {
			return nil, ErrShipmentChanged
		}
		return nil, fmt.Errorf("update shipment: %w", err)
	}

	log := s.log.With("shipment_id", shipment.ID, "order_id", shipment.OrderID)
	log.Info("shipment advanced", "status", to)
	if orderStatus, ok := to.OrderStatus(); ok {
		notify.BestEffort(log, "mirror order status", func() error {
			_, err := s.orders.ChangeStatus(ctx, shipment.OrderID, string(orderStatus))
			return err
		})
	}
	return shipment, nil
}

func (s *ShipmentService) Remove(ctx context.Context, shipmentID uuid.UUID) error {
	err := s.shipmentRepo.Delete(ctx, shipmentID)
	if errors.Is(err, repository.ErrNoRows) {
		return ErrShipmentNotFound
	}
	if err != nil {
		return fmt.Errorf("delete shipment: %w", err)
	}
	return nil
}

func (s *ShipmentService) Get(ctx context.Context, shipmentID uuid.UUID) (*model.Shipment, error) {
	shipment, err := s.shipmentRepo.GetByID(ctx, shipmentID)
	if err != nil {
		return nil, fmt.Errorf("get shipment: %w", err)
	}
	if shipment == nil {
		return nil, ErrShipmentNotFound
	}
	return shipment, nil
}

func (s *ShipmentService) List(ctx context.Context) ([]model.Shipment, error) {
	shipments, err := s.shipmentRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list shipments: %w", err)
	}
	return shipments, nil
}

// ListOverdue returns undelivered shipments created more than olderThan ago.
func (s *ShipmentService) ListOverdue(ctx context.Context, olderThan time.Duration) ([]model.Shipment, error) {
	shipments, err := s.shipmentRepo.ListOverdue(ctx, model.ShipmentSettled, s.now().Add(-olderThan))
	if err != nil {
		return nil, fmt.Errorf("list overdue shipments: %w", err)
	}
	return shipments, nil
}

// MarkLost sets the shipment to PERDIDO and, in the same transaction, moves
// its order to PERDIDO with the stock given back. A shipment whose status
// changed since it was read is left alone with ErrShipmentChanged.
func (s *ShipmentService) MarkLost(ctx context.Context, shipment *model.Shipment) error {
	var change *StatusChange
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		from := shipment.Status
		shipment.Status = model.ShipmentStatusLost
		shipment.UpdatedAt = s.now()
		if err := s.shipmentRepo.Update(ctx, shipment, from); err != nil {
			if errors.Is(err, repository.ErrStaleWrite) {
				return ErrShipmentChanged
			}
			return fmt.Errorf("update shipment: %w", err)
		}

		c, err := s.orders.MarkLost(ctx, shipment.OrderID)
		if errors.Is(err, ErrOrderNotFound) {
			s.log.Warn("lost shipment has no order", "shipment_id", shipment.ID, "order_id", shipment.OrderID)
			return nil
		}
		change = c
		return err
	})
	if err != nil {
		return err
	}
	if change != nil {
		s.orders.NotifyStatusChange(ctx, *change)
	}
	return nil
}
