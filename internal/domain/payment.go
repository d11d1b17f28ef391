package domain

import (
	"time"
)

type PaymentStatus string

const (
	PaymentUnpaid   PaymentStatus = "unpaid"
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentUnpaid, PaymentPending, PaymentPaid, PaymentFailed, PaymentRefunded:
		return true
	}
	return false
}

// PendingPayment correlates a gateway session with the cart and shipping
// address that started it. It lives from initiation until the success
// callback consumes it.
type PendingPayment struct {
	Token     string
	UserID    int64
	CartID    int64
	Address   ShippingAddress
	CreatedAt time.Time
}
