package worker

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"storefront/internal/metrics"
	"storefront/internal/repo"
)

// PendingSweeper drops payment contexts whose customers never came back
// from the gateway.
type PendingSweeper struct {
	pendingRepo repo.PendingPaymentRepo
	metrics     *metrics.Metrics
	interval    time.Duration
	maxAge      time.Duration
	now         func() time.Time
}

func NewPendingSweeper(
	pendingRepo repo.PendingPaymentRepo,
	m *metrics.Metrics,
	interval time.Duration,
	maxAge time.Duration,
) *PendingSweeper {
	return &PendingSweeper{
		pendingRepo: pendingRepo,
		metrics:     m,
		interval:    interval,
		maxAge:      maxAge,
		now:         time.Now,
	}
}

func (w *PendingSweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	log.WithField("interval", w.interval).Info("pending payment sweeper started")

	for {
		select {
		case <-ctx.Done():
			log.Info("pending payment sweeper stopped")
			return
		case <-ticker.C:
			if _, err := w.process(ctx); err != nil {
				log.Errorf("pending payment sweep failed: %v", err)
			}
		}
	}
}

func (w *PendingSweeper) process(ctx context.Context) (int64, error) {
	removed, err := w.pendingRepo.DeleteCreatedBefore(ctx, w.now().Add(-w.maxAge))
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		w.metrics.PendingSwept.Add(float64(removed))
		log.Infof("removed %d abandoned payment contexts", removed)
	}
	return removed, nil
}
