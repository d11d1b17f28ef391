package service

import (
	"errors"
	"fmt"

	"storefront/internal/repo"
)

var (
	ErrEmptyCart          = errors.New("cart is empty")
	ErrForbidden          = errors.New("permission denied")
	ErrInvalidToken       = errors.New("invalid transaction reference")
	ErrAddressNotFound    = errors.New("shipping address not found for transaction")
	ErrGatewayFailure     = errors.New("payment initiation failed")
	ErrGatewayUnreachable = errors.New("payment gateway unreachable")
	ErrInvalidQuantity    = errors.New("quantity must be at least 1")
	ErrInvalidAmount      = errors.New("amount must be positive")
	ErrInvalidStatus      = errors.New("invalid status value")

	ErrCartNotFound     = repo.ErrCartNotFound
	ErrCartItemNotFound = repo.ErrCartItemNotFound
	ErrOrderNotFound    = repo.ErrOrderNotFound
	ErrVariantNotFound  = repo.ErrVariantNotFound
	ErrUserNotFound     = repo.ErrUserNotFound
)

// ReconciliationError means the gateway confirmed a payment but no order
// could be recorded for it. Someone has to settle it by hand.
type ReconciliationError struct {
	TransactionReference string
	CartID               int64
	UserID               int64
	Err                  error
}

func (e *ReconciliationError) Error() string {
	return fmt.Sprintf("checkout failed after payment %s (cart %d, user %d): %v",
		e.TransactionReference, e.CartID, e.UserID, e.Err)
}

func (e *ReconciliationError) Unwrap() error {
	return e.Err
}
