package worker

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/jesuscorral/ticketwave/pkg/bus"
	"github.com/jesuscorral/ticketwave/pkg/events"
	"github.com/jesuscorral/ticketwave/services/notification-service/internal/notifier"
)

// Consumer turns integration events into user notifications. Each event
// type has its own handler so each gets its own queue and retry budget.
type Consumer struct {
	n   notifier.Notifier
	log zerolog.Logger
}

func NewConsumer(n notifier.Notifier, log zerolog.Logger) *Consumer {
	return &Consumer{n: n, log: log.With().Str("component", "notify-consumer").Logger()}
}

func (c *Consumer) HandleBookingNotification(ctx context.Context, body []byte) error {
	evt, err := events.Unmarshal[events.SendBookingNotification](body)
	if err != nil {
		return bus.Poison(events.RKNotificationRequested, "", err)
	}
	msg := evt.Message
	if msg == "" {
		msg = fmt.Sprintf("Your booking %s has been received.", evt.BookingID)
	}
	return c.n.Notify(ctx, evt.UserID, "Booking received", msg)
}

func (c *Consumer) HandlePaymentCompleted(ctx context.Context, body []byte) error {
	evt, err := events.Unmarshal[events.PaymentCompleted](body)
	if err != nil {
		return bus.Poison(events.RKPaymentCompleted, "", err)
	}
	msg := fmt.Sprintf("Payment of %d %s for booking %s succeeded.",
		evt.Amount, strings.ToUpper(evt.Currency), evt.BookingID)
	return c.n.Notify(ctx, "", "Payment completed", msg)
}

func (c *Consumer) HandlePaymentFailed(ctx context.Context, body []byte) error {
	evt, err := events.Unmarshal[events.PaymentFailed](body)
	if err != nil {
		return bus.Poison(events.RKPaymentFailed, "", err)
	}
	msg := fmt.Sprintf("Payment for booking %s failed.", evt.BookingID)
	if evt.FailureCode != "" || evt.FailureMessage != "" {
		msg = fmt.Sprintf("%s Reason: %s %s", msg, evt.FailureCode, evt.FailureMessage)
	}
	return c.n.Notify(ctx, "", "Payment failed", msg)
}

func (c *Consumer) HandleBookingCancelled(ctx context.Context, body []byte) error {
	evt, err := events.Unmarshal[events.BookingCancelled](body)
	if err != nil {
		return bus.Poison(events.RKBookingCancelled, "", err)
	}
	msg := fmt.Sprintf("Booking %s has been cancelled.", evt.BookingID)
	if evt.Reason != "" {
		msg = fmt.Sprintf("%s Reason: %s", msg, evt.Reason)
	}
	return c.n.Notify(ctx, evt.UserID, "Booking cancelled", msg)
}

func (c *Consumer) HandleBookingExpired(ctx context.Context, body []byte) error {
	evt, err := events.Unmarshal[events.BookingExpired](body)
	if err != nil {
		return bus.Poison(events.RKBookingExpired, "", err)
	}
	msg := fmt.Sprintf("Booking %s expired before confirmation and was released.", evt.BookingID)
	return c.n.Notify(ctx, evt.UserID, "Booking expired", msg)
}

// Register subscribes every handler on the bus.
func (c *Consumer) Register(ctx context.Context, b *bus.Bus) error {
	subs := []struct {
		key     string
		handler bus.Handler
	}{
		{events.RKNotificationRequested, c.HandleBookingNotification},
		{events.RKPaymentCompleted, c.HandlePaymentCompleted},
		{events.RKPaymentFailed, c.HandlePaymentFailed},
		{events.RKBookingCancelled, c.HandleBookingCancelled},
		{events.RKBookingExpired, c.HandleBookingExpired},
	}
	for _, s := range subs {
		if err := b.Subscribe(ctx, s.key, s.handler); err != nil {
			return fmt.Errorf("subscribe %s: %w", s.key, err)
		}
		c.log.Info().Str("eventType", s.key).Msg("subscribed")
	}
	return nil
}
