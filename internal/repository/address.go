package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/flicky/storefront-api/internal/model"
)

type AddressRepository interface {
	Create(ctx context.Context, address *model.Address) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Address, error)
	ListByUserID(ctx context.Context, userID uuid.UUID) ([]model.Address, error)
	Update(ctx context.Context, address *model.Address) error
	Delete(ctx context.Context, id, userID uuid.UUID) error
}

type pgAddressRepo struct{ db DB }

func NewAddressRepository(db DB) AddressRepository {
	return &pgAddressRepo{db: db}
}

const addressColumns = `id, user_id, street, city, state, postal_code, country, created_at, updated_at`

func (r *pgAddressRepo) Create(ctx context.Context, a *model.Address) error {
	a.ID = uuid.New()
	err := conn(ctx, r.db).QueryRow(ctx,
		`INSERT INTO addresses (id, user_id, street, city, state, postal_code, country, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW()) RETURNING created_at, updated_at`,
		a.ID, a.UserID, a.Street, a.City, a.State, a.PostalCode, a.Country,
	).Scan(&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create address: %w", err)
	}
	return nil
}

func (r *pgAddressRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Address, error) {
	a := &model.Address{}
	err := conn(ctx, r.db).QueryRow(ctx, `SELECT `+addressColumns+` FROM addresses WHERE id = $1`, id).Scan(
		&a.ID, &a.UserID, &a.Street, &a.City, &a.State, &a.PostalCode, &a.Country, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get address: %w", err)
	}
	return a, nil
}

func (r *pgAddressRepo) ListByUserID(ctx context.Context, userID uuid.UUID) ([]model.Address, error) {
	rows, err := conn(ctx, r.db).Query(ctx,
		`SELECT `+addressColumns+` FROM addresses WHERE user_id = $1 ORDER BY created_at`, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list addresses: %w", err)
	}
	defer rows.Close()

	var addresses []model.Address
	for rows.Next() {
		var a model.Address
		if err := rows.Scan(&a.ID, &a.UserID, &a.Street, &a.City, &a.State, &a.PostalCode, &a.Country, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan address: %w", err)
		}
		addresses = append(addresses, a)
	}
	return addresses, rows.Err()
}

func (r *pgAddressRepo) Update(ctx context.Context, a *model.Address) error {
	err := conn(ctx, r.db).QueryRow(ctx,
		`UPDATE addresses SET street=$3, city=$4, state=$5, postal_code=$6, country=$7, updated_at=NOW()
		 WHERE id=$1 AND user_id=$2 RETURNING updated_at`,
		a.ID, a.UserID, a.Street, a.City, a.State, a.PostalCode, a.Country,
	).Scan(&a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNoRows
		}
		return fmt.Errorf("update address: %w", err)
	}
	return nil
}

func (r *pgAddressRepo) Delete(ctx context.Context, id, userID uuid.UUID) error {
	ct, err := conn(ctx, r.db).Exec(ctx, `DELETE FROM addresses WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("delete address: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNoRows
	}
	return nil
}
