package notify

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// Dispatcher runs notifications off the request path. Failures and panics
// are logged and never reach the caller.
type Dispatcher struct {
	notifier Notifier
	timeout  time.Duration
	wg       sync.WaitGroup
}

func NewDispatcher(n Notifier, timeout time.Duration) *Dispatcher {
	return &Dispatcher{notifier: n, timeout: timeout}
}

func (d *Dispatcher) OrderPlaced(c OrderConfirmation) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			if p := recover(); p != nil {
				log.WithField("order_id", c.OrderID).Errorf("order notification panicked: %v", p)
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()
		if err := d.notifier.OrderPlaced(ctx, c); err != nil {
			log.WithField("order_id", c.OrderID).Errorf("order notification failed: %v", err)
		}
	}()
}

// Wait blocks until every dispatched notification has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
