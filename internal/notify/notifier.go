package notify

import (
	"context"
	"fmt"

	"github.com/mastant/fieldsync/internal/kafka"
)

// Sender surfaces backend booking updates to the worker. Stdout is the sink
// here; a real device would route these into the notification tray.
type Sender struct{}

func NewSender() *Sender {
	return &Sender{}
}

func (s *Sender) Send(ctx context.Context, update kafka.BookingUpdate) error {
	if update.Message != "" {
		fmt.Printf("notify worker: booking %d %s: %s\n", update.BookingID, update.Type, update.Message)
		return nil
	}
	fmt.Printf("notify worker: booking %d %s\n", update.BookingID, update.Type)
	return nil
}
