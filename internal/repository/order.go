package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/flicky/storefront-api/internal/model"
)

type OrderRepository interface {
	Create(ctx context.Context, order *model.Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error)
	ExistsByNumber(ctx context.Context, orderNumber string) (bool, error)
	ListByUserID(ctx context.Context, userID uuid.UUID) ([]model.Order, error)
	ListAll(ctx context.Context) ([]model.Order, error)
	// ListStale returns orders in one of statuses created at or before the cutoff.
	ListStale(ctx context.Context, statuses []model.OrderStatus, cutoff time.Time) ([]model.Order, error)
	// UpdateStatus moves the order from one status to another and returns
	// ErrStaleWrite when the stored status is no longer from.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to model.OrderStatus) error
	// MarkStockRestored flips the stock_restored flag and reports whether
	// this call was the one that flipped it.
	MarkStockRestored(ctx context.Context, id uuid.UUID) (bool, error)
	Deactivate(ctx context.Context, id uuid.UUID) (*model.Order, error)
}

type pgOrderRepo struct{ db DB }

func NewOrderRepository(db DB) OrderRepository {
	return &pgOrderRepo{db: db}
}

const orderColumns = `id, user_id, order_number, items, total_amount, status, shipping_address_id,
	shipping_method, active, stock_restored, created_at, updated_at`

func (r *pgOrderRepo) Create(ctx context.Context, order *model.Order) error {
	order.ID = uuid.New()
	items, err := json.Marshal(order.Items)
	if err != nil {
		return fmt.Errorf("encode order items: %w", err)
	}
	err = conn(ctx, r.db).QueryRow(ctx,
		`INSERT INTO orders (id, user_id, order_number, items, total_amount, status, shipping_address_id,
		 shipping_method, active, stock_restored, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, FALSE, NOW(), NOW()) RETURNING created_at, updated_at`,
		order.ID, order.UserID, order.OrderNumber, items, order.TotalAmount, string(order.Status),
		order.ShippingAddressID, order.ShippingMethod, order.Active,
	).Scan(&order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func (r *pgOrderRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	order, err := scanOrder(conn(ctx, r.db).QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	return order, nil
}

func (r *pgOrderRepo) ExistsByNumber(ctx context.Context, orderNumber string) (bool, error) {
	var exists bool
	err := conn(ctx, r.db).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM orders WHERE order_number = $1)`, orderNumber,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check order number: %w", err)
	}
	return exists, nil
}

func (r *pgOrderRepo) ListByUserID(ctx context.Context, userID uuid.UUID) ([]model.Order, error) {
	return r.list(ctx, `SELECT `+orderColumns+` FROM orders WHERE user_id = $1 ORDER BY created_at DESC`, userID)
}

func (r *pgOrderRepo) ListAll(ctx context.Context) ([]model.Order, error) {
	return r.list(ctx, `SELECT `+orderColumns+` FROM orders ORDER BY created_at DESC`)
}

func (r *pgOrderRepo) ListStale(ctx context.Context, statuses []model.OrderStatus, cutoff time.Time) ([]model.Order, error) {
	names := make([]string, len(statuses))
	for i, s := range statuses {
		names[i] = string(s)
	}
	return r.list(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE status = ANY($1) AND created_at <= $2 ORDER BY created_at`,
		names, cutoff,
	)
}

func (r *pgOrderRepo) list(ctx context.Context, query string, args ...any) ([]model.Order, error) {
	rows, err := conn(ctx, r.db).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var orders []model.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate orders: %w", err)
	}
	return orders, nil
}

func (r *pgOrderRepo) UpdateStatus(ctx context.Context, id uuid.UUID, from, to model.OrderStatus) error {
	ct, err := conn(ctx, r.db).Exec(ctx,
		`UPDATE orders SET status = $3, updated_at = NOW() WHERE id = $1 AND status = $2`,
		id, string(from), string(to),
	)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrStaleWrite
	}
	return nil
}

func (r *pgOrderRepo) MarkStockRestored(ctx context.Context, id uuid.UUID) (bool, error) {
	ct, err := conn(ctx, r.db).Exec(ctx,
		`UPDATE orders SET stock_restored = TRUE, updated_at = NOW() WHERE id = $1 AND NOT stock_restored`, id,
	)
	if err != nil {
		return false, fmt.Errorf("mark stock restored: %w", err)
	}
	return ct.RowsAffected() == 1, nil
}

func (r *pgOrderRepo) Deactivate(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	order, err := scanOrder(conn(ctx, r.db).QueryRow(ctx,
		`UPDATE orders SET active = FALSE, updated_at = NOW() WHERE id = $1 RETURNING `+orderColumns, id,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("deactivate order: %w", err)
	}
	return order, nil
}

func scanOrder(row pgx.Row) (*model.Order, error) {
	o := &model.Order{}
	var items []byte
	var status string
	err := row.Scan(
		&o.ID, &o.UserID, &o.OrderNumber, &items, &o.TotalAmount, &status, &o.ShippingAddressID,
		&o.ShippingMethod, &o.Active, &o.StockRestored, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	o.Status = model.OrderStatus(status)
	if err := json.Unmarshal(items, &o.Items); err != nil {
		return nil, fmt.Errorf("decode order items: %w", err)
	}
	return o, nil
}
