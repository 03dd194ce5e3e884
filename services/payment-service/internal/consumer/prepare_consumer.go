package consumer

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/jesuscorral/ticketwave/pkg/bus"
	"github.com/jesuscorral/ticketwave/pkg/events"
	"github.com/jesuscorral/ticketwave/services/payment-service/internal/service"
)

// PrepareConsumer records payment data for bookings with a positive total.
type PrepareConsumer struct {
	svc *service.PaymentService
	log zerolog.Logger
}

func NewPrepareConsumer(svc *service.PaymentService, log zerolog.Logger) *PrepareConsumer {
	return &PrepareConsumer{svc: svc, log: log.With().Str("consumer", events.RKPaymentPrepareRequested).Logger()}
}

// Handle is the bus handler for payment.data.prepare.requested.
func (c *PrepareConsumer) Handle(ctx context.Context, body []byte) error {
	evt, err := events.Unmarshal[events.PreparePaymentData](body)
	if err != nil {
		return bus.Poison(events.RKPaymentPrepareRequested, "", err)
	}
	if evt.ID == "" || evt.BookingID == "" || evt.Amount <= 0 {
		return bus.Poison(events.RKPaymentPrepareRequested, evt.ID, errInvalidPayload)
	}
	p, err := c.svc.Prepare(ctx, evt)
	if err != nil {
		return err
	}
	if p != nil {
		c.log.Info().Str("bookingId", p.BookingID).Int64("amount", p.Amount).Msg("payment prepared")
	}
	return nil
}

var errInvalidPayload = errors.New("invalid prepare payment payload")
