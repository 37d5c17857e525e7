package kafka

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
)

// EventHandlers routes decoded notification events. Booking and payment
// events share a topic and are told apart by their type prefix. A nil
// handler drops its events.
type EventHandlers struct {
	Booking func(context.Context, BookingEvent) error
	Payment func(context.Context, PaymentEvent) error
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

// Consume reads until the context is canceled, handing each event to the
// matching handler. Undecodable messages are logged and skipped so one bad
// payload cannot wedge the group; handler errors stop consumption.
func (c *Consumer) Consume(ctx context.Context, handlers EventHandlers) error {
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			return err
		}

		if err := c.dispatch(ctx, msg.Value, handlers); err != nil {
			return err
		}
	}
}

func (c *Consumer) dispatch(ctx context.Context, value []byte, handlers EventHandlers) error {
	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(value, &envelope); err != nil {
		log.Printf("WARNING: skipping undecodable event: %v", err)
		return nil
	}

	switch {
	case strings.HasPrefix(envelope.Type, "payment_"):
		if handlers.Payment == nil {
			return nil
		}
		var event PaymentEvent
		if err := json.Unmarshal(value, &event); err != nil {
			log.Printf("WARNING: skipping malformed payment event: %v", err)
			return nil
		}
		return handlers.Payment(ctx, event)
	case strings.HasPrefix(envelope.Type, "booking_"):
		if handlers.Booking == nil {
			return nil
		}
		var event BookingEvent
		if err := json.Unmarshal(value, &event); err != nil {
			log.Printf("WARNING: skipping malformed booking event: %v", err)
			return nil
		}
		return handlers.Booking(ctx, event)
	default:
		log.Printf("WARNING: skipping event with unknown type %q", envelope.Type)
		return nil
	}
}
