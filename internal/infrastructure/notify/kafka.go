package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
)

const eventOrderPlaced = "order.placed"

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaNotifier publishes confirmations as events keyed by order id, leaving
// delivery to downstream consumers.
type KafkaNotifier struct {
	writer messageWriter
}

func NewKafkaNotifier(brokers []string, topic string) *KafkaNotifier {
	return &KafkaNotifier{writer: &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}}
}

func (n *KafkaNotifier) OrderPlaced(ctx context.Context, c OrderConfirmation) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal confirmation for order %d: %w", c.OrderID, err)
	}
	msg := kafka.Message{
		Key:   []byte(strconv.FormatInt(c.OrderID, 10)),
		Value: data,
		Time:  time.Now().UTC(),
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(eventOrderPlaced)},
		},
	}
	if err := n.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish confirmation for order %d: %w", c.OrderID, err)
	}
	return nil
}

func (n *KafkaNotifier) Close() error {
	return n.writer.Close()
}
