package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

var (
	ErrVariantNotFound  = errors.New("variant not found")
	ErrCartNotFound     = errors.New("cart not found")
	ErrCartItemNotFound = errors.New("cart item not found")
	ErrOrderNotFound    = errors.New("order not found")
	ErrUserNotFound     = errors.New("user not found")
	ErrPendingNotFound  = errors.New("pending payment not found")
)

// InsufficientStockError is returned by the inventory ledger when a variant
// cannot cover the requested quantity.
type InsufficientStockError struct {
	VariantID int64
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("not enough stock for variant %d: requested %d, available %d", e.VariantID, e.Requested, e.Available)
}

// Querier is the subset shared by *sql.DB and *sql.Tx.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// execNode runs on tx when one is given, otherwise on the pool.
func execNode(db *sql.DB, tx *sql.Tx) Querier {
	if tx == nil {
		return db
	}
	return tx
}
