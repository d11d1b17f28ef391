package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Cart struct {
	ID        int64      `json:"id"`
	UserID    int64      `json:"user_id"`
	CreatedAt time.Time  `json:"created_at"`
	Items     []CartItem `json:"items"`
}

// CartItem is one (variant, quantity) line of a cart. Variant is populated
// when the line is loaded together with its variant row.
type CartItem struct {
	ID        int64    `json:"id"`
	CartID    int64    `json:"cart_id"`
	VariantID int64    `json:"variant_id"`
	Quantity  int      `json:"quantity"`
	Variant   *Variant `json:"variant,omitempty"`
}

// Total sums quantity*price over the lines loaded with their variant.
func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range c.Items {
		if item.Variant == nil {
			continue
		}
		total = total.Add(item.Variant.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total
}
