package payment

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

var (
	// ErrSessionRejected means the gateway answered but refused to open a session.
	ErrSessionRejected = errors.New("payment gateway rejected the session")
	// ErrUnreachable covers timeouts, transport errors and an open breaker.
	ErrUnreachable = errors.New("payment gateway unreachable")
)

type Customer struct {
	Name       string
	Email      string
	Phone      string
	Address    string
	City       string
	PostalCode string
	Country    string
}

// SessionRequest asks the gateway for a hosted payment page. TransactionID is
// echoed back on the success, fail and cancel callbacks.
type SessionRequest struct {
	TransactionID string
	Amount        decimal.Decimal
	Currency      string
	ItemCount     int
	Customer      Customer

	SuccessURL string
	FailURL    string
	CancelURL  string
}

type Session struct {
	URL        string
	SessionKey string
}

type PaymentGateway interface {
	CreateSession(ctx context.Context, req SessionRequest) (*Session, error)
}
