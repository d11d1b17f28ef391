package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"storefront/internal/domain"
)

const pendingKeyPrefix = "pending_payment:"

type redisPendingPaymentRepo struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisPendingPaymentRepo keeps contexts in Redis; entries expire after ttl
// on their own, so DeleteCreatedBefore has nothing to do.
func NewRedisPendingPaymentRepo(rdb *redis.Client, ttl time.Duration) PendingPaymentRepo {
	return &redisPendingPaymentRepo{rdb: rdb, ttl: ttl}
}

type pendingRecord struct {
	Token     string                 `json:"token"`
	UserID    int64                  `json:"user_id"`
	CartID    int64                  `json:"cart_id"`
	Address   domain.ShippingAddress `json:"address"`
	CreatedAt time.Time              `json:"created_at"`
}

func (r *redisPendingPaymentRepo) Save(ctx context.Context, p *domain.PendingPayment) error {
	p.CreatedAt = time.Now().UTC()
	data, err := json.Marshal(pendingRecord{
		Token:     p.Token,
		UserID:    p.UserID,
		CartID:    p.CartID,
		Address:   p.Address,
		CreatedAt: p.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("marshal pending payment %s: %w", p.Token, err)
	}
	if err := r.rdb.Set(ctx, pendingKeyPrefix+p.Token, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("save pending payment %s: %w", p.Token, err)
	}
	return nil
}

func (r *redisPendingPaymentRepo) Find(ctx context.Context, token string) (*domain.PendingPayment, error) {
	data, err := r.rdb.Get(ctx, pendingKeyPrefix+token).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrPendingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get pending payment %s: %w", token, err)
	}

	var rec pendingRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal pending payment %s: %w", token, err)
	}
	return &domain.PendingPayment{
		Token:     rec.Token,
		UserID:    rec.UserID,
		CartID:    rec.CartID,
		Address:   rec.Address,
		CreatedAt: rec.CreatedAt,
	}, nil
}

func (r *redisPendingPaymentRepo) Discard(ctx context.Context, token string) error {
	if err := r.rdb.Del(ctx, pendingKeyPrefix+token).Err(); err != nil {
		return fmt.Errorf("discard pending payment %s: %w", token, err)
	}
	return nil
}

func (r *redisPendingPaymentRepo) DeleteCreatedBefore(context.Context, time.Time) (int64, error) {
	return 0, nil
}
