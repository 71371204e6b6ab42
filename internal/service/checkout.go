package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/flicky/storefront-api/internal/model"
	"github.com/flicky/storefront-api/internal/repository"
)

// CheckoutSummary is the cart re-priced at live product prices.
type CheckoutSummary struct {
	Items []model.OrderItem
	Total decimal.Decimal
}

// CheckoutService validates a cart and a shipping choice right before an
// order is placed. It never writes.
type CheckoutService struct {
	carts       *CartService
	productRepo repository.ProductRepository
	addressRepo repository.AddressRepository
}

func NewCheckoutService(carts *CartService, productRepo repository.ProductRepository, addressRepo repository.AddressRepository) *CheckoutService {
	return &CheckoutService{carts: carts, productRepo: productRepo, addressRepo: addressRepo}
}

// ConfirmCart checks every line against the live catalog. Subtotals use the
// current price rather than the locked one.
func (s *CheckoutService) ConfirmCart(ctx context.Context, userID uuid.UUID) (*CheckoutSummary, error) {
	cart, err := s.carts.current(ctx, userID)
	if err != nil {
		return nil, err
	}
	if cart == nil {
		return nil, ErrCartNotFound
	}
	if len(cart.Items) == 0 {
		return nil, ErrEmptyCart
	}

	summary := &CheckoutSummary{Items: make([]model.OrderItem, 0, len(cart.Items)), Total: decimal.Zero}
	for _, item := range cart.Items {
		product, err := s.productRepo.GetByID(ctx, item.ProductID)
		if err != nil {
			return nil, fmt.Errorf("get product: %w", err)
		}
		if product == nil || !product.Active {
			return nil, fmt.Errorf("%w: %s", ErrProductGone, item.Name)
		}
		if product.Stock < item.Quantity {
			return nil, &StockError{ProductID: product.ID, Name: product.Name, Available: product.Stock, Requested: item.Quantity}
		}

		line := orderLine(product, item.Quantity, product.Price)
		summary.Items = append(summary.Items, line)
		summary.Total = summary.Total.Add(line.Subtotal)
	}
	return summary, nil
}

// ValidateShipping checks that the address belongs to the caller, is
// complete, and that the shipping method is one we offer.
func (s *CheckoutService) ValidateShipping(ctx context.Context, principal model.Principal, addressID uuid.UUID, method string) (*model.Address, error) {
	address, err := s.addressRepo.GetByID(ctx, addressID)
	if err != nil {
		return nil, fmt.Errorf("get address: %w", err)
	}
	if address == nil || address.UserID != principal.UserID {
		return nil, ErrAddressNotFound
	}
	if !address.IsComplete() {
		return nil, ErrIncompleteAddress
	}
	if !model.ValidShippingMethod(method) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidShippingMethod, method)
	}
	return address, nil
}

func orderLine(product *model.Product, quantity int, price decimal.Decimal) model.OrderItem {
	return model.OrderItem{
		ProductID: product.ID,
		Name:      product.Name,
		Quantity:  quantity,
		UnitPrice: price,
		Subtotal:  price.Mul(decimal.NewFromInt(int64(quantity))),
	}
}
