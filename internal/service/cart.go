package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/flicky/storefront-api/internal/model"
	"github.com/flicky/storefront-api/internal/repository"
)

type CartService struct {
	cartRepo    repository.CartRepository
	productRepo repository.ProductRepository
	log         *slog.Logger
	now         func() time.Time
}

func NewCartService(cartRepo repository.CartRepository, productRepo repository.ProductRepository, log *slog.Logger) *CartService {
	return &CartService{cartRepo: cartRepo, productRepo: productRepo, log: log, now: time.Now}
}

// GetCart returns the user's cart, or an empty one when there is none or it
// expired. Expired carts are deleted on the way out.
func (s *CartService) GetCart(ctx context.Context, userID uuid.UUID) (*model.Cart, error) {
	cart, err := s.current(ctx, userID)
	if err != nil {
		return nil, err
	}
	if cart == nil {
		return &model.Cart{UserID: userID, Items: []model.CartItem{}}, nil
	}
	return cart, nil
}

func (s *CartService) AddItem(ctx context.Context, userID, productID uuid.UUID, quantity int) (*model.Cart, error) {
	if !validQuantity(quantity) {
		return nil, ErrInvalidQuantity
	}
	product, err := s.productRepo.GetByID(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	if product == nil || !product.Active {
		return nil, ErrProductUnavailable
	}

	cart, err := s.current(ctx, userID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if cart == nil {
		cart = &model.Cart{ID: uuid.New(), UserID: userID, CreatedAt: now}
	}

	if item := cart.Item(productID); item != nil {
		// subtract rather than add so the check cannot overflow
		if quantity > product.Stock-item.Quantity {
			return nil, &StockError{ProductID: productID, Name: product.Name, Available: product.Stock, Requested: item.Quantity + quantity}
		}
		refreshPriceLock(item, product, now)
		item.SetQuantity(item.Quantity + quantity)
	} else {
		if quantity > product.Stock {
			return nil, &StockError{ProductID: productID, Name: product.Name, Available: product.Stock, Requested: quantity}
		}
		item := model.CartItem{
			ProductID:        productID,
			Name:             product.Name,
			UnitPrice:        product.Price,
			PriceLockedUntil: now.Add(model.PriceLockTTL),
		}
		item.SetQuantity(quantity)
		cart.Items = append(cart.Items, item)
	}

	if err := s.save(ctx, cart, now); err != nil {
		return nil, err
	}
	return cart, nil
}

func (s *CartService) UpdateItemQuantity(ctx context.Context, userID, productID uuid.UUID, quantity int) (*model.Cart, error) {
	if !validQuantity(quantity) {
		return nil, ErrInvalidQuantity
	}
	cart, err := s.current(ctx, userID)
	if err != nil {
		return nil, err
	}
	if cart == nil {
		return nil, ErrCartNotFound
	}
	item := cart.Item(productID)
	if item == nil {
		return nil, ErrItemNotFound
	}

	product, err := s.productRepo.GetByID(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	if product == nil {
		return nil, ErrProductNotFound
	}
	if quantity > product.Stock {
		return nil, &StockError{ProductID: productID, Name: product.Name, Available: product.Stock, Requested: quantity}
	}

	now := s.now()
	refreshPriceLock(item, product, now)
	item.SetQuantity(quantity)
	if err := s.save(ctx, cart, now); err != nil {
		return nil, err
	}
	return cart, nil
}

func (s *CartService) RemoveItem(ctx context.Context, userID, productID uuid.UUID) (*model.Cart, error) {
	cart, err := s.current(ctx, userID)
	if err != nil {
		return nil, err
	}
	if cart == nil {
		return nil, ErrCartNotFound
	}
	if !cart.RemoveItem(productID) {
		return nil, ErrItemNotFound
	}
	if err := s.save(ctx, cart, s.now()); err != nil {
		return nil, err
	}
	return cart, nil
}

func (s *CartService) Clear(ctx context.Context, userID uuid.UUID) error {
	if err := s.cartRepo.DeleteByUserID(ctx, userID); err != nil {
		return fmt.Errorf("delete cart: %w", err)
	}
	return nil
}

// current loads the live cart, treating an expired one as absent.
func (s *CartService) current(ctx context.Context, userID uuid.UUID) (*model.Cart, error) {
	cart, err := s.cartRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get cart: %w", err)
	}
	if cart == nil {
		return nil, nil
	}
	if cart.Expired(s.now()) {
		if err := s.cartRepo.DeleteByUserID(ctx, userID); err != nil {
			return nil, fmt.Errorf("delete expired cart: %w", err)
		}
		s.log.Info("expired cart removed", "user_id", userID, "cart_id", cart.ID)
		return nil, nil
	}
	return cart, nil
}

func (s *CartService) save(ctx context.Context, cart *model.Cart, now time.Time) error {
	cart.Recalculate()
	cart.Touch(now)
	if err := s.cartRepo.Save(ctx, cart); err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	return nil
}

// refreshPriceLock re-prices an item whose lock has lapsed and starts a new
// lock window.
func refreshPriceLock(item *model.CartItem, product *model.Product, now time.Time) {
	if now.After(item.PriceLockedUntil) {
		item.UnitPrice = product.Price
		item.Name = product.Name
		item.PriceLockedUntil = now.Add(model.PriceLockTTL)
	}
}
