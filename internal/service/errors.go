package service

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Error kinds. Every error returned by the services either matches one of
// these through errors.Is or is an unclassified dependency failure.
var (
	ErrNotFound          = errors.New("not found")
	ErrForbidden         = errors.New("forbidden")
	ErrConflict          = errors.New("conflict")
	ErrValidation        = errors.New("validation failed")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrIllegalTransition = errors.New("illegal status transition")
)

type kindError struct {
	kind error
	msg  string
}

func (e *kindError) Error() string { return e.msg }
func (e *kindError) Unwrap() error { return e.kind }

func newError(kind error, msg string) error {
	return &kindError{kind: kind, msg: msg}
}

var (
	ErrUserNotFound       = newError(ErrNotFound, "user not found")
	ErrUserAlreadyExists  = newError(ErrConflict, "user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")

	ErrProductNotFound    = newError(ErrNotFound, "product not found")
	ErrProductUnavailable = newError(ErrValidation, "product not available")
	ErrProductGone        = newError(ErrConflict, "product no longer exists")
	ErrSKUTaken           = newError(ErrConflict, "sku already in use")

	ErrCartNotFound    = newError(ErrNotFound, "cart not found")
	ErrItemNotFound    = newError(ErrNotFound, "product not found in cart")
	ErrInvalidQuantity = newError(ErrValidation, "quantity must be between 1 and 1000000")
	ErrStockOverflow   = newError(ErrValidation, "restock would exceed the maximum stock level")
	ErrEmptyCart       = newError(ErrValidation, "cart is empty")

	ErrAddressNotFound       = newError(ErrNotFound, "address not found")
	ErrIncompleteAddress     = newError(ErrValidation, "shipping address is incomplete")
	ErrInvalidShippingMethod = newError(ErrValidation, "invalid shipping method")

	ErrOrderNotFound     = newError(ErrNotFound, "order not found")
	ErrOrderAccessDenied = newError(ErrForbidden, "access denied: order belongs to another user")
	ErrInvalidStatus     = newError(ErrValidation, "invalid status")
	ErrAlreadyCancelled  = newError(ErrConflict, "order is already cancelled")
	ErrIllegalRegression = newError(ErrIllegalTransition, "status cannot move backwards")
	ErrReservedStatus    = newError(ErrIllegalTransition, "status is only set by the lost-shipment sweep")
	ErrConcurrentUpdate  = newError(ErrConflict, "order was modified concurrently, retry")

	ErrShipmentNotFound = newError(ErrNotFound, "shipment not found")
	ErrAlreadyAssigned  = newError(ErrConflict, "order already has a shipment")
	ErrInvalidCarrier   = newError(ErrValidation, "carrier is required")
	ErrNonSequential    = newError(ErrIllegalTransition, "shipment can only advance to the next status")
	ErrProofRequired    = newError(ErrValidation, "delivery requires customer confirmation")
	ErrShipmentChanged  = newError(ErrConflict, "shipment was modified concurrently, retry")
)

// StockError reports which product cannot cover the requested quantity.
type StockError struct {
	ProductID uuid.UUID
	Name      string
	Available int
	Requested int
}

func (e *StockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: requested %d, available %d", e.Name, e.Requested, e.Available)
}

func (e *StockError) Is(target error) bool { return target == ErrInsufficientStock }

// TransitionError carries the current and attempted status of a rejected
// state change. Err is the specific rule that was violated.
type TransitionError struct {
	From string
	To   string
	Err  error
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s (current: %s, requested: %s)", e.Err, e.From, e.To)
}

func (e *TransitionError) Unwrap() error { return e.Err }
