package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/flicky/storefront-api/internal/model"
)

// CartRepository stores one cart document per user; items live in a JSONB column.
type CartRepository interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (*model.Cart, error)
	Save(ctx context.Context, cart *model.Cart) error
	DeleteByUserID(ctx context.Context, userID uuid.UUID) error
}

type pgCartRepo struct{ db DB }

func NewCartRepository(db DB) CartRepository {
	return &pgCartRepo{db: db}
}

func (r *pgCartRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (*model.Cart, error) {
	cart := &model.Cart{}
	var items []byte
	err := conn(ctx, r.db).QueryRow(ctx,
		`SELECT id, user_id, items, total, created_at, updated_at, expires_at FROM carts WHERE user_id = $1`, userID,
	).Scan(&cart.ID, &cart.UserID, &items, &cart.Total, &cart.CreatedAt, &cart.UpdatedAt, &cart.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get cart: %w", err)
	}
	if err := json.Unmarshal(items, &cart.Items); err != nil {
		return nil, fmt.Errorf("decode cart items: %w", err)
	}
	return cart, nil
}

// Save inserts the cart or replaces the stored one for the same user.
func (r *pgCartRepo) Save(ctx context.Context, cart *model.Cart) error {
	if cart.ID == uuid.Nil {
		cart.ID = uuid.New()
	}
	if cart.Items == nil {
		cart.Items = []model.CartItem{}
	}
	items, err := json.Marshal(cart.Items)
	if err != nil {
		return fmt.Errorf("encode cart items: %w", err)
	}
	_, err = conn(ctx, r.db).Exec(ctx,
		`INSERT INTO carts (id, user_id, items, total, created_at, updated_at, expires_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (user_id) DO UPDATE SET items = EXCLUDED.items, total = EXCLUDED.total,
		 updated_at = EXCLUDED.updated_at, expires_at = EXCLUDED.expires_at`,
		cart.ID, cart.UserID, items, cart.Total, cart.CreatedAt, cart.UpdatedAt, cart.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	return nil
}

func (r *pgCartRepo) DeleteByUserID(ctx context.Context, userID uuid.UUID) error {
	if _, err := conn(ctx, r.db).Exec(ctx, `DELETE FROM carts WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("delete cart: %w", err)
	}
	return nil
}
