package notify

import (
	"context"

	log "github.com/sirupsen/logrus"
)

type LogNotifier struct{}

func (LogNotifier) OrderPlaced(_ context.Context, c OrderConfirmation) error {
	log.WithFields(log.Fields{
		"order_id": c.OrderID,
		"user_id":  c.UserID,
		"tran_id":  c.TransactionReference,
	}).Infof("order confirmation for %s: %d items, total %s", c.Email, c.ItemCount, c.Total.StringFixed(2))
	return nil
}
