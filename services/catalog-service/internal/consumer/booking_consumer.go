package consumer

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/jesuscorral/ticketwave/pkg/bus"
	twdomain "github.com/jesuscorral/ticketwave/pkg/domain"
	"github.com/jesuscorral/ticketwave/pkg/events"
	"github.com/jesuscorral/ticketwave/services/catalog-service/internal/service"
)

// BookingConsumer promotes a booking's reserved tickets to sold when the
// booking is confirmed. Without this hop the expiry sweep would release
// inventory that the customer already paid for.
type BookingConsumer struct {
	svc  *service.ReservationService
	repo service.TicketRepository
	log  zerolog.Logger
}

func NewBookingConsumer(svc *service.ReservationService, repo service.TicketRepository, log zerolog.Logger) *BookingConsumer {
	return &BookingConsumer{svc: svc, repo: repo, log: log.With().Str("consumer", events.RKBookingConfirmed).Logger()}
}

// HandleConfirmed is the bus handler for the booking.confirmed queue.
func (c *BookingConsumer) HandleConfirmed(ctx context.Context, body []byte) error {
	evt, err := events.Unmarshal[events.BookingConfirmed](body)
	if err != nil {
		return bus.Poison(events.RKBookingConfirmed, "", err)
	}
	if evt.ID == "" || evt.BookingID == "" {
		return bus.Poison(events.RKBookingConfirmed, evt.ID, errBadPayload)
	}

	err = c.repo.WithTx(ctx, func(txCtx context.Context) error {
		fresh, err := c.repo.MarkConsumed(txCtx, evt.ID, evt.EventType)
		if err != nil {
			return err
		}
		if !fresh {
			c.log.Debug().Str("messageId", evt.ID).Msg("duplicate delivery skipped")
			return nil
		}
		_, err = c.svc.Confirm(txCtx, evt.BookingID)
		return err
	})

	var invalid *twdomain.InvalidStateError
	if errors.As(err, &invalid) {
		// Nothing reserved anymore, the TTL sweep beat the confirmation.
		// The booking side reconciles through its own expiry path.
		c.log.Warn().Str("bookingId", evt.BookingID).Msg("confirm arrived after reservation expired")
		return nil
	}
	return err
}
