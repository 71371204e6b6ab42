package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/flicky/storefront-api/internal/dto"
	"github.com/flicky/storefront-api/internal/model"
	"github.com/flicky/storefront-api/internal/repository"
)

// AddressService manages the caller's own shipping addresses.
type AddressService struct {
	addressRepo repository.AddressRepository
}

func NewAddressService(addressRepo repository.AddressRepository) *AddressService {
	return &AddressService{addressRepo: addressRepo}
}

func (s *AddressService) Create(ctx context.Context, principal model.Principal, req dto.AddressRequest) (*model.Address, error) {
	address := &model.Address{UserID: principal.UserID}
	applyAddress(address, req)
	if !address.IsComplete() {
		return nil, ErrIncompleteAddress
	}
	if err := s.addressRepo.Create(ctx, address); err != nil {
		return nil, fmt.Errorf("create address: %w", err)
	}
	return address, nil
}

func (s *AddressService) Get(ctx context.Context, principal model.Principal, id uuid.UUID) (*model.Address, error) {
	address, err := s.addressRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get address: %w", err)
	}
	if address == nil || address.UserID != principal.UserID {
		return nil, ErrAddressNotFound
	}
	return address, nil
}

func (s *AddressService) List(ctx context.Context, principal model.Principal) ([]model.Address, error) {
	addresses, err := s.addressRepo.ListByUserID(ctx, principal.UserID)
	if err != nil {
		return nil, fmt.Errorf("list addresses: %w", err)
	}
	return addresses, nil
}

func (s *AddressService) Update(ctx context.Context, principal model.Principal, id uuid.UUID, req dto.AddressRequest) (*model.Address, error) {
	address, err := s.Get(ctx, principal, id)
	if err != nil {
		return nil, err
	}
	applyAddress(address, req)
	if !address.IsComplete() {
		return nil, ErrIncompleteAddress
	}
	if err := s.addressRepo.Update(ctx, address); err != nil {
		if errors.Is(err, repository.ErrNoRows) {
			return nil, ErrAddressNotFound
		}
		return nil, fmt.Errorf("update address: %w", err)
	}
	return address, nil
}

func (s *AddressService) Delete(ctx context.Context, principal model.Principal, id uuid.UUID) error {
	err := s.addressRepo.Delete(ctx, id, principal.UserID)
	if errors.Is(err, repository.ErrNoRows) {
		return ErrAddressNotFound
	}
	if err != nil {
		return fmt.Errorf("delete address: %w", err)
	}
	return nil
}

func applyAddress(a *model.Address, req dto.AddressRequest) {
	a.Street = req.Street
	a.City = req.City
	a.State = req.State
	a.PostalCode = req.PostalCode
	a.Country = req.Country
}
