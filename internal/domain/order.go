package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderPending    OrderStatus = "pending"
	OrderProcessing OrderStatus = "processing"
	OrderShipped    OrderStatus = "shipped"
	OrderDelivered  OrderStatus = "delivered"
	OrderCancelled  OrderStatus = "cancelled"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderProcessing, OrderShipped, OrderDelivered, OrderCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether the status ends the fulfilment workflow.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderDelivered || s == OrderCancelled
}

type Order struct {
	ID                   int64            `json:"id"`
	UserID               int64            `json:"user_id"`
	Status               OrderStatus      `json:"status"`
	PaymentStatus        PaymentStatus    `json:"payment_status"`
	TotalPrice           decimal.Decimal  `json:"total_price"`
	TransactionReference *string          `json:"tran_id"`
	ShippingAddress      *ShippingAddress `json:"shipping_address,omitempty"`
	Items                []OrderItem      `json:"items"`
	CreatedAt            time.Time        `json:"created_at"`
	UpdatedAt            time.Time        `json:"updated_at"`
}

// OrderItem is a snapshot of a cart line; Price is the variant price at checkout time.
type OrderItem struct {
	ID        int64           `json:"id"`
	OrderID   int64           `json:"order_id"`
	VariantID int64           `json:"variant_id"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

func (i OrderItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// ItemsTotal sums quantity*price over the order lines.
func (o *Order) ItemsTotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.Subtotal())
	}
	return total
}
