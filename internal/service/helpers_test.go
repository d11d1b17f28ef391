package service

import (
	"context"
	"database/sql"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"storefront/internal/domain"
	"storefront/internal/infrastructure/notify"
	"storefront/internal/metrics"
	"storefront/internal/repo"
)

type recordingNotifier struct {
	mu   sync.Mutex
	sent []notify.OrderConfirmation
}

func (n *recordingNotifier) OrderPlaced(c notify.OrderConfirmation) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, c)
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}

type fixture struct {
	db       *sql.DB
	carts    repo.CartRepo
	variants repo.VariantRepo
	orders   repo.OrderRepo
	users    repo.UserRepo
	pending  repo.PendingPaymentRepo
	notifier *recordingNotifier
	metrics  *metrics.Metrics
	checkout CheckoutService
}

func newFixture(t *testing.T, db *sql.DB) *fixture {
	t.Helper()
	f := &fixture{
		db:       db,
		carts:    repo.NewCartRepo(db),
		variants: repo.NewVariantRepo(db),
		orders:   repo.NewOrderRepo(db),
		users:    repo.NewUserRepo(db),
		pending:  repo.NewPendingPaymentRepo(db),
		notifier: &recordingNotifier{},
		metrics:  metrics.New(),
	}
	f.checkout = NewCheckoutService(db, f.carts, f.variants, f.orders, f.users, f.notifier, f.metrics)
	return f
}

func (f *fixture) user(t *testing.T, id int64) *domain.User {
	t.Helper()
	u, err := f.users.FindByID(context.Background(), id)
	require.NoError(t, err)
	return u
}
