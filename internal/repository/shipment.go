package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/flicky/storefront-api/internal/model"
)

type ShipmentRepository interface {
	Create(ctx context.Context, shipment *model.Shipment) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Shipment, error)
	GetByOrderID(ctx context.Context, orderID uuid.UUID) (*model.Shipment, error)
	ExistsByTrackingNumber(ctx context.Context, trackingNumber string) (bool, error)
	List(ctx context.Context) ([]model.Shipment, error)
	// ListOverdue returns shipments outside the excluded statuses that were
	// shipped before the cutoff.
	ListOverdue(ctx context.Context, excluded []model.ShipmentStatus, cutoff time.Time) ([]model.Shipment, error)
	// Update writes the shipment only while its stored status is still from.
	Update(ctx context.Context, shipment *model.Shipment, from model.ShipmentStatus) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type pgShipmentRepo struct{ db DB }

func NewShipmentRepository(db DB) ShipmentRepository {
	return &pgShipmentRepo{db: db}
}

const shipmentColumns = `id, order_id, tracking_number, carrier, status, shipment_at, delivery_at,
	confirmed_by_customer, updated_at`

func (r *pgShipmentRepo) Create(ctx context.Context, s *model.Shipment) error {
	s.ID = uuid.New()
	_, err := conn(ctx, r.db).Exec(ctx,
		`INSERT INTO shipments (id, order_id, tracking_number, carrier, status, shipment_at, delivery_at,
		 confirmed_by_customer, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		s.ID, s.OrderID, s.TrackingNumber, s.Carrier, string(s.Status), s.ShipmentAt, s.DeliveryAt,
		s.ConfirmedByCustomer, s.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert shipment: %w", err)
	}
	return nil
}

func (r *pgShipmentRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Shipment, error) {
	return r.get(ctx, `SELECT `+shipmentColumns+` FROM shipments WHERE id = $1`, id)
}

func (r *pgShipmentRepo) GetByOrderID(ctx context.Context, orderID uuid.UUID) (*model.Shipment, error) {
	return r.get(ctx, `SELECT `+shipmentColumns+` FROM shipments WHERE order_id = $1`, orderID)
}

func (r *pgShipmentRepo) get(ctx context.Context, query string, id uuid.UUID) (*model.Shipment, error) {
	s, err := scanShipment(conn(ctx, r.db).QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get shipment: %w", err)
	}
	return s, nil
}

func (r *pgShipmentRepo) ExistsByTrackingNumber(ctx context.Context, trackingNumber string) (bool, error) {
	var exists bool
	err := conn(ctx, r.db).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM shipments WHERE tracking_number = $1)`, trackingNumber,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check tracking number: %w", err)
	}
	return exists, nil
}

func (r *pgShipmentRepo) List(ctx context.Context) ([]model.Shipment, error) {
	return r.list(ctx, `SELECT `+shipmentColumns+` FROM shipments ORDER BY shipment_at DESC`)
}

func (r *pgShipmentRepo) ListOverdue(ctx context.Context, excluded []model.ShipmentStatus, cutoff time.Time) ([]model.Shipment, error) {
	names := make([]string, len(excluded))
	for i, s := range excluded {
		names[i] = string(s)
	}
	return r.list(ctx,
		`SELECT `+shipmentColumns+` FROM shipments WHERE NOT (status = ANY($1)) AND shipment_at < $2 ORDER BY shipment_at`,
		names, cutoff,
	)
}

func (r *pgShipmentRepo) list(ctx context.Context, query string, args ...any) ([]model.Shipment, error) {
	rows, err := conn(ctx, r.db).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list shipments: %w", err)
	}
	defer rows.Close()

	var shipments []model.Shipment
	for rows.Next() {
		s, err := scanShipment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan shipment: %w", err)
		}
		shipments = append(shipments, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate shipments: %w", err)
	}
	return shipments, nil
}

func (r *pgShipmentRepo) Update(ctx context.Context, s *model.Shipment, from model.ShipmentStatus) error {
	ct, err := conn(ctx, r.db).Exec(ctx,
		`UPDATE shipments SET status = $2, delivery_at = $3, confirmed_by_customer = $4, updated_at = $5
		 WHERE id = $1 AND status = $6`,
		s.ID, string(s.Status), s.DeliveryAt, s.ConfirmedByCustomer, s.UpdatedAt, string(from),
	)
	if err != nil {
		return fmt.Errorf("update shipment: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrStaleWrite
	}
	return nil
}

func (r *pgShipmentRepo) Delete(ctx context.Context, id uuid.UUID) error {
	ct, err := conn(ctx, r.db).Exec(ctx, `DELETE FROM shipments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete shipment: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNoRows
	}
	return nil
}

func scanShipment(row pgx.Row) (*model.Shipment, error) {
	s := &model.Shipment{}
	var status string
	err := row.Scan(
		&s.ID, &s.OrderID, &s.TrackingNumber, &s.Carrier, &status, &s.ShipmentAt, &s.DeliveryAt,
		&s.ConfirmedByCustomer, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	s.Status = model.ShipmentStatus(status)
	return s, nil
}
