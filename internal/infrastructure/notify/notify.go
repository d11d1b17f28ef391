// Package notify delivers order confirmations once a checkout has committed.
package notify

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type OrderConfirmation struct {
	OrderID              int64           `json:"order_id"`
	UserID               int64           `json:"user_id"`
	Email                string          `json:"email"`
	Name                 string          `json:"name"`
	Total                decimal.Decimal `json:"total"`
	ItemCount            int             `json:"item_count"`
	TransactionReference string          `json:"tran_id,omitempty"`
	PlacedAt             time.Time       `json:"placed_at"`
}

type Notifier interface {
	OrderPlaced(ctx context.Context, c OrderConfirmation) error
}
