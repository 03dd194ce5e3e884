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

// InventoryConsumer cancels a booking when the catalog could not hold its
// tickets. Without this hop a booking whose reserve was rejected would sit
// PENDING until the payment-window sweep expired it.
type InventoryConsumer struct {
	svc *service.BookingService
	log zerolog.Logger
}

func NewInventoryConsumer(svc *service.BookingService, log zerolog.Logger) *InventoryConsumer {
	return &InventoryConsumer{svc: svc, log: log.With().Str("consumer", "inventory").Logger()}
}

// HandleUpdateFailed is the bus handler for catalog.inventory.update.failed.
func (ic *InventoryConsumer) HandleUpdateFailed(ctx context.Context, body []byte) error {
	evt, err := events.Unmarshal[events.EventInventoryUpdateFailed](body)
	if err != nil {
		return bus.Poison(events.RKInventoryUpdateFailed, "", err)
	}
	if evt.ID == "" || evt.BookingID == "" {
		return bus.Poison(events.RKInventoryUpdateFailed, evt.ID, errInvalidPayload)
	}

	reason := evt.Reason
	if reason == "" {
		reason = "inventory unavailable"
	}
	_, err = ic.svc.CancelIfNotProcessed(ctx, evt.BookingID, evt.ID, evt.EventType, reason)
	var conflict *twdomain.ConflictError
	if errors.As(err, &conflict) {
		// The booking completed anyway, so the rejection is stale.
		ic.log.Warn().Err(err).Str("bookingId", evt.BookingID).Msg("inventory rejection for completed booking")
		return nil
	}
	return err
}
