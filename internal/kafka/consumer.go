package kafka

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
)

// BookingUpdate is the backend-originated notification that something about a
// booking changed out from under the agent. Any update triggers a refresh of
// the local booking list.
type BookingUpdate struct {
	Type      string `json:"type"`
	BookingID int64  `json:"booking_id"`
	Status    string `json:"status,omitempty"`
	Message   string `json:"message,omitempty"`
}

type Consumer struct {
	reader *kafka.Reader
}

func NewConsumer(brokers []string, groupID, topic string) *Consumer {
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:           brokers,
			GroupID:           groupID,
			Topic:             topic,
			HeartbeatInterval: 3 * time.Second,
			SessionTimeout:    30 * time.Second,
		}),
	}
}

func (c *Consumer) Close() error {
	if c == nil || c.reader == nil {
		return nil
	}
	return c.reader.Close()
}

func (c *Consumer) Consume(ctx context.Context, handler func(context.Context, kafka.Message) error) error {
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			return err
		}

		if err := handler(ctx, msg); err != nil {
			return err
		}
	}
}
