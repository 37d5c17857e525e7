package email

import (
	"context"
	"fmt"

	"github.com/Domenick1991/hotelops/internal/kafka"
)

type Sender struct{}

func NewSender() *Sender {
	return &Sender{}
}

func (s *Sender) SendBooking(ctx context.Context, event kafka.BookingEvent) error {
	fmt.Printf("notify guest %d: %s for booking %s (unit %d)\n", event.GuestID, event.Type, event.Reference, event.UnitID)
	return nil
}

func (s *Sender) SendPayment(ctx context.Context, event kafka.PaymentEvent) error {
	fmt.Printf("notify booking %s: %s for transaction %s\n", event.BookingReference, event.Type, event.ExternalRef)
	return nil
}
