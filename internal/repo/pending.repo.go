package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"storefront/internal/domain"
)

// PendingPaymentRepo stores the context of payment sessions that are waiting
// for a gateway callback.
type PendingPaymentRepo interface {
	// Save replaces any context stored under the same token.
	Save(ctx context.Context, p *domain.PendingPayment) error
	// Find reads the context without removing it; Discard removes it once the
	// order is in place.
	Find(ctx context.Context, token string) (*domain.PendingPayment, error)
	Discard(ctx context.Context, token string) error
	// DeleteCreatedBefore drops stale contexts and reports how many went.
	DeleteCreatedBefore(ctx context.Context, before time.Time) (int64, error)
}

type pendingPaymentRepo struct {
	db *sql.DB
}

func NewPendingPaymentRepo(db *sql.DB) PendingPaymentRepo {
	return &pendingPaymentRepo{db: db}
}

func (r *pendingPaymentRepo) Save(ctx context.Context, p *domain.PendingPayment) error {
	query := `
		INSERT INTO pending_payments (token, user_id, cart_id, address, city, postal_code, country, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now())
		ON CONFLICT (token) DO UPDATE
		SET user_id = EXCLUDED.user_id,
		    cart_id = EXCLUDED.cart_id,
		    address = EXCLUDED.address,
		    city = EXCLUDED.city,
		    postal_code = EXCLUDED.postal_code,
		    country = EXCLUDED.country,
		    created_at = now()
		RETURNING created_at
	`
	err := r.db.QueryRowContext(ctx, query,
		p.Token, p.UserID, p.CartID, p.Address.Address, p.Address.City, p.Address.PostalCode, p.Address.Country,
	).Scan(&p.CreatedAt)
	if err != nil {
		return fmt.Errorf("save pending payment %s: %w", p.Token, err)
	}
	return nil
}

func (r *pendingPaymentRepo) Find(ctx context.Context, token string) (*domain.PendingPayment, error) {
	query := `
		SELECT token, user_id, cart_id, address, city, postal_code, country, created_at
		FROM pending_payments WHERE token = $1
	`
	var p domain.PendingPayment
	err := r.db.QueryRowContext(ctx, query, token).Scan(
		&p.Token,
		&p.UserID,
		&p.CartID,
		&p.Address.Address,
		&p.Address.City,
		&p.Address.PostalCode,
		&p.Address.Country,
		&p.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPendingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query pending payment %s: %w", token, err)
	}
	return &p, nil
}

func (r *pendingPaymentRepo) Discard(ctx context.Context, token string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM pending_payments WHERE token = $1`, token); err != nil {
		return fmt.Errorf("discard pending payment %s: %w", token, err)
	}
	return nil
}

func (r *pendingPaymentRepo) DeleteCreatedBefore(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM pending_payments WHERE created_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("delete stale pending payments: %w", err)
	}
	return res.RowsAffected()
}
