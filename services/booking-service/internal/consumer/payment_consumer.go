package consumer

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/jesuscorral/ticketwave/pkg/bus"
	twdomain "github.com/jesuscorral/ticketwave/pkg/domain"
	"github.com/jesuscorral/ticketwave/pkg/events"
	"github.com/jesuscorral/ticketwave/services/booking-service/internal/service"
)

// PaymentConsumer closes the choreography loop: payment outcomes decide
// whether a pending booking is confirmed or cancelled. Deliveries are
// at-least-once; the service records each event id in the processed ledger
// inside the same transaction as the status change.
type PaymentConsumer struct {
	svc *service.BookingService
	log zerolog.Logger
}

func NewPaymentConsumer(svc *service.BookingService, log zerolog.Logger) *PaymentConsumer {
	return &PaymentConsumer{svc: svc, log: log.With().Str("consumer", "payment").Logger()}
}

// HandleCompleted is the bus handler for payment.completed.
func (pc *PaymentConsumer) HandleCompleted(ctx context.Context, body []byte) error {
	evt, err := events.Unmarshal[events.PaymentCompleted](body)
	if err != nil {
		return bus.Poison(events.RKPaymentCompleted, "", err)
	}
	if evt.ID == "" || evt.BookingID == "" {
		return bus.Poison(events.RKPaymentCompleted, evt.ID, errInvalidPayload)
	}

	_, err = pc.svc.ConfirmIfNotProcessed(ctx, evt.BookingID, evt.ID, evt.EventType)
	var invalid *twdomain.InvalidStateError
	if errors.As(err, &invalid) {
		// Payment landed after the booking expired or was cancelled. The
		// reservation TTL already compensated the inventory side; a refund
		// is an operator concern.
		pc.log.Warn().Err(err).Str("bookingId", evt.BookingID).Msg("payment outcome for non-pending booking")
		return nil
	}
	return err
}

// HandleFailed is the bus handler for payment.failed.
func (pc *PaymentConsumer) HandleFailed(ctx context.Context, body []byte) error {
	evt, err := events.Unmarshal[events.PaymentFailed](body)
	if err != nil {
		return bus.Poison(events.RKPaymentFailed, "", err)
	}
	if evt.ID == "" || evt.BookingID == "" {
		return bus.Poison(events.RKPaymentFailed, evt.ID, errInvalidPayload)
	}

	reason := evt.FailureMessage
	if reason == "" {
		reason = "payment failed"
	}
	_, err = pc.svc.CancelIfNotProcessed(ctx, evt.BookingID, evt.ID, evt.EventType, reason)
	var conflict *twdomain.ConflictError
	if errors.As(err, &conflict) {
		pc.log.Warn().Err(err).Str("bookingId", evt.BookingID).Msg("payment failure for completed booking")
		return nil
	}
	return err
}

var errInvalidPayload = errors.New("invalid payment event payload")
