package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/flicky/storefront-api/internal/model"
	"github.com/flicky/storefront-api/internal/notify"
	"github.com/flicky/storefront-api/internal/repository"
)

const maxCodeAttempts = 10

// OrderStatusView is what a customer sees when tracking an order.
type OrderStatusView struct {
	OrderID     uuid.UUID
	OrderNumber string
	Status      model.OrderStatus
}

// StatusChange is a committed transition whose notifications are still due.
type StatusChange struct {
	Order *model.Order
	From  model.OrderStatus
}

type OrderService struct {
	orderRepo   repository.OrderRepository
	userRepo    repository.UserRepository
	productRepo repository.ProductRepository
	carts       *CartService
	checkout    *CheckoutService
	inventory   *InventoryLedger
	tx          repository.TxManager
	notifier    Notifier
	log         *slog.Logger
	now         func() time.Time
}

func NewOrderService(
	orderRepo repository.OrderRepository,
	userRepo repository.UserRepository,
	productRepo repository.ProductRepository,
	carts *CartService,
	checkout *CheckoutService,
	inventory *InventoryLedger,
	tx repository.TxManager,
	notifier Notifier,
	log *slog.Logger,
) *OrderService {
	return &OrderService{
		orderRepo: orderRepo, userRepo: userRepo, productRepo: productRepo,
		carts: carts, checkout: checkout, inventory: inventory,
		tx: tx, notifier: notifier, log: log, now: time.Now,
	}
}

// PlaceOrder turns the caller's cart into a PENDIENTE order. The order row,
// the stock reservation and the cart deletion commit together.
func (s *OrderService) PlaceOrder(ctx context.Context, principal model.Principal, addressID uuid.UUID, shippingMethod string) (*model.Order, error) {
	if shippingMethod == "" {
		shippingMethod = model.ShippingStandard
	}

	cart, err := s.carts.current(ctx, principal.UserID)
	if err != nil {
		return nil, err
	}
	if cart == nil {
		return nil, ErrCartNotFound
	}
	if len(cart.Items) == 0 {
		return nil, ErrEmptyCart
	}

	user, err := s.userRepo.GetByID(ctx, principal.UserID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	address, err := s.checkout.ValidateShipping(ctx, principal, addressID, shippingMethod)
	if err != nil {
		return nil, err
	}

	now := s.now()
	items := make([]model.OrderItem, 0, len(cart.Items))
	total := decimal.Zero
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
		price := item.UnitPrice
		if now.After(item.PriceLockedUntil) {
			price = product.Price
		}
		line := orderLine(product, item.Quantity, price)
		items = append(items, line)
		total = total.Add(line.Subtotal)
	}

	number, err := s.newOrderNumber(ctx, now)
	if err != nil {
		return nil, err
	}

	order := &model.Order{
		UserID:            principal.UserID,
		OrderNumber:       number,
		Items:             items,
		TotalAmount:       total,
		Status:            model.OrderStatusPending,
		ShippingAddressID: address.ID,
		ShippingMethod:    shippingMethod,
		Active:            true,
	}

	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := s.orderRepo.Create(ctx, order); err != nil {
			return fmt.Errorf("create order: %w", err)
		}
		if err := s.inventory.Reserve(ctx, order.Items); err != nil {
			return err
		}
		return s.carts.Clear(ctx, principal.UserID)
	})
	if err != nil {
		return nil, err
	}

	log := s.log.With("order_id", order.ID, "order_number", order.OrderNumber)
	log.Info("order placed", "user_id", order.UserID, "total", order.TotalAmount.StringFixed(2))

	notify.BestEffort(log, "push order created", func() error {
		s.notifier.PushToUser(ctx, order.UserID, model.PushEvent{
			Type: EventOrderCreated, OrderID: order.ID, OrderNumber: order.OrderNumber,
			Status: order.Status, Message: "Order created", At: now,
		})
		return nil
	})
	notify.BestEffort(log, "send order confirmation", func() error {
		subject, html, err := notify.OrderPlacedEmail(user, order)
		if err != nil {
			return err
		}
		return s.notifier.SendEmail(ctx, user.Email, subject, html)
	})

	return order, nil
}

func (s *OrderService) newOrderNumber(ctx context.Context, now time.Time) (string, error) {
	for i := 0; i < maxCodeAttempts; i++ {
		number, err := orderNumber(now)
		if err != nil {
			return "", fmt.Errorf("generate order number: %w", err)
		}
		exists, err := s.orderRepo.ExistsByNumber(ctx, number)
		if err != nil {
			return "", fmt.Errorf("check order number: %w", err)
		}
		if !exists {
			return number, nil
		}
	}
	return "", errors.New("generate order number: no free number after retries")
}

// GetStatus returns the tracking view of an order owned by the caller.
func (s *OrderService) GetStatus(ctx context.Context, principal model.Principal, orderID uuid.UUID) (*OrderStatusView, error) {
	order, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != principal.UserID {
		return nil, ErrOrderAccessDenied
	}
	return &OrderStatusView{OrderID: order.ID, OrderNumber: order.OrderNumber, Status: order.Status}, nil
}

// Get returns the full order. Admins may read any order; customers only
// their own active ones.
func (s *OrderService) Get(ctx context.Context, principal model.Principal, orderID uuid.UUID) (*model.Order, error) {
	order, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if principal.IsAdmin() {
		return order, nil
	}
	if order.UserID != principal.UserID {
		return nil, ErrOrderAccessDenied
	}
	if !order.Active {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

func (s *OrderService) List(ctx context.Context, principal model.Principal) ([]model.Order, error) {
	if principal.IsAdmin() {
		orders, err := s.orderRepo.ListAll(ctx)
		if err != nil {
			return nil, fmt.Errorf("list orders: %w", err)
		}
		return orders, nil
	}

	orders, err := s.orderRepo.ListByUserID(ctx, principal.UserID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	active := orders[:0]
	for _, o := range orders {
		if o.Active {
			active = append(active, o)
		}
	}
	return active, nil
}

// ChangeStatus moves an order to newStatus. Cancelling gives the stock back
// in the same transaction that writes the status.
func (s *OrderService) ChangeStatus(ctx context.Context, orderID uuid.UUID, newStatus string) (*model.Order, error) {
	to, ok := model.ParseOrderStatus(newStatus)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, newStatus)
	}
	order, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}

	from := order.Status
	switch model.OrderTransition(from, to) {
	case model.TransitionNoop:
		return order, nil
	case model.TransitionFromCancelled:
		return nil, &TransitionError{From: string(from), To: string(to), Err: ErrAlreadyCancelled}
	case model.TransitionRegression:
		return nil, &TransitionError{From: string(from), To: string(to), Err: ErrIllegalRegression}
	case model.TransitionReserved:
		return nil, &TransitionError{From: string(from), To: string(to), Err: ErrReservedStatus}
	case model.TransitionUnknownStatus:
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, newStatus)
	}

	if err := s.applyStatus(ctx, order, to); err != nil {
		return nil, err
	}
	s.log.Info("order status changed", "order_id", order.ID, "from", from, "to", to)
	s.NotifyStatusChange(ctx, StatusChange{Order: order, From: from})
	return order, nil
}

func (s *OrderService) Deactivate(ctx context.Context, orderID uuid.UUID) (*model.Order, error) {
	order, err := s.orderRepo.Deactivate(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("deactivate order: %w", err)
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// ListStale returns orders still waiting in an early status after olderThan.
func (s *OrderService) ListStale(ctx context.Context, olderThan time.Duration) ([]model.Order, error) {
	orders, err := s.orderRepo.ListStale(ctx, model.CancellableByAge, s.now().Add(-olderThan))
	if err != nil {
		return nil, fmt.Errorf("list stale orders: %w", err)
	}
	return orders, nil
}

// AutoCancel cancels an order the sweeper found stale and tells its owner.
func (s *OrderService) AutoCancel(ctx context.Context, order *model.Order, olderThan time.Duration) error {
	from := order.Status
	if model.OrderTransition(from, model.OrderStatusCancelled) != model.TransitionAllowed {
		return &TransitionError{From: string(from), To: string(model.OrderStatusCancelled), Err: ErrAlreadyCancelled}
	}
	if err := s.applyStatus(ctx, order, model.OrderStatusCancelled); err != nil {
		return err
	}

	log := s.log.With("order_id", order.ID, "order_number", order.OrderNumber)
	s.push(ctx, log, StatusChange{Order: order, From: from})
	notify.BestEffort(log, "send auto-cancel email", func() error {
		user, err := s.owner(ctx, order)
		if err != nil {
			return err
		}
		subject, html, err := notify.AutoCancelledEmail(user, order, int(olderThan.Hours()))
		if err != nil {
			return err
		}
		return s.notifier.SendEmail(ctx, user.Email, subject, html)
	})
	return nil
}

// MarkLost moves the order of a lost shipment to PERDIDO and restores its
// stock once. Orders already in a terminal status are left as they are and
// a nil change is returned. Notifications are the caller's job once its
// transaction commits.
func (s *OrderService) MarkLost(ctx context.Context, orderID uuid.UUID) (*StatusChange, error) {
	order, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status.IsTerminal() {
		return nil, nil
	}
	from := order.Status
	if err := s.applyStatus(ctx, order, model.OrderStatusLost); err != nil {
		return nil, err
	}
	return &StatusChange{Order: order, From: from}, nil
}

// NotifyStatusChange pushes the new status to the owner and emails an
// old -> new summary. Failures are logged only.
func (s *OrderService) NotifyStatusChange(ctx context.Context, change StatusChange) {
	order := change.Order
	log := s.log.With("order_id", order.ID, "order_number", order.OrderNumber)
	s.push(ctx, log, change)
	notify.BestEffort(log, "send status email", func() error {
		user, err := s.owner(ctx, order)
		if err != nil {
			return err
		}
		subject, html, err := notify.StatusChangedEmail(user, order, change.From)
		if err != nil {
			return err
		}
		return s.notifier.SendEmail(ctx, user.Email, subject, html)
	})
}

func (s *OrderService) push(ctx context.Context, log *slog.Logger, change StatusChange) {
	notify.BestEffort(log, "push status change", func() error {
		s.notifier.PushToUser(ctx, change.Order.UserID, model.PushEvent{
			Type:        EventOrderStatusChanged,
			OrderID:     change.Order.ID,
			OrderNumber: change.Order.OrderNumber,
			Status:      change.Order.Status,
			Message:     fmt.Sprintf("Order %s: %s -> %s", change.Order.OrderNumber, change.From, change.Order.Status),
			At:          s.now(),
		})
		return nil
	})
}

// applyStatus writes the transition with a compare-and-set on the status
// read by the caller. Moves into CANCELADO or PERDIDO also restore stock,
// guarded by the order's stock_restored flag.
func (s *OrderService) applyStatus(ctx context.Context, order *model.Order, to model.OrderStatus) error {
	restores := to == model.OrderStatusCancelled || to == model.OrderStatusLost
	restored := order.StockRestored

	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		err := s.orderRepo.UpdateStatus(ctx, order.ID, order.Status, to)
		if errors.Is(err, repository.ErrStaleWrite) {
			return ErrConcurrentUpdate
		}
		if err != nil {
			return fmt.Errorf("update order status: %w", err)
		}
		if !restores {
			return nil
		}

		flipped, err := s.orderRepo.MarkStockRestored(ctx, order.ID)
		if err != nil {
			return fmt.Errorf("mark stock restored: %w", err)
		}
		if !flipped {
			return nil
		}
		restored = true
		return s.inventory.Restore(ctx, order.Items)
	})
	if err != nil {
		return err
	}

	order.Status = to
	order.StockRestored = restored
	order.UpdatedAt = s.now()
	return nil
}

func (s *OrderService) load(ctx context.Context, orderID uuid.UUID) (*model.Order, error) {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

func (s *OrderService) owner(ctx context.Context, order *model.Order) (*model.User, error) {
	user, err := s.userRepo.GetByID(ctx, order.UserID)
	if err != nil {
		return nil, fmt.Errorf("get order owner: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}
