package consumer

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/jesuscorral/ticketwave/pkg/bus"
	"github.com/jesuscorral/ticketwave/pkg/events"
	"github.com/jesuscorral/ticketwave/services/catalog-service/internal/domain"
	"github.com/jesuscorral/ticketwave/services/catalog-service/internal/service"
)

// Publisher is the outbound seam; satisfied by *bus.Bus.
type Publisher interface {
	Publish(ctx context.Context, e events.Integration) error
}

// InventoryConsumer applies catalog.inventory.update.requested messages.
// Deliveries are at-least-once, so every apply is guarded by the processed
// ledger inside the same transaction as the inventory change.
type InventoryConsumer struct {
	svc    *service.ReservationService
	repo   service.TicketRepository
	pub    Publisher
	source string
	log    zerolog.Logger
}

func NewInventoryConsumer(svc *service.ReservationService, repo service.TicketRepository, pub Publisher, source string, log zerolog.Logger) *InventoryConsumer {
	return &InventoryConsumer{svc: svc, repo: repo, pub: pub, source: source, log: log.With().Str("consumer", events.RKInventoryUpdateRequested).Logger()}
}

// Handle is the bus handler for the inventory-update queue.
func (c *InventoryConsumer) Handle(ctx context.Context, body []byte) error {
	evt, err := events.Unmarshal[events.UpdateEventInventory](body)
	if err != nil {
		return bus.Poison(events.RKInventoryUpdateRequested, "", err)
	}
	if evt.ID == "" || evt.EventID == "" || evt.BookingID == "" {
		return bus.Poison(events.RKInventoryUpdateRequested, evt.ID, errBadPayload)
	}

	applied := false
	var insufficient *domain.InsufficientInventoryError

	err = c.repo.WithTx(ctx, func(txCtx context.Context) error {
		fresh, err := c.repo.MarkConsumed(txCtx, evt.ID, evt.EventType)
		if err != nil {
			return err
		}
		if !fresh {
			c.log.Debug().Str("messageId", evt.ID).Msg("duplicate delivery skipped")
			return nil
		}
		switch evt.Action {
		case events.InventoryActionReserve:
			_, err = c.svc.ReserveBatch(txCtx, evt.EventID, evt.BookingID, evt.Quantity, 0)
		case events.InventoryActionRelease:
			_, err = c.svc.ReleaseForBooking(txCtx, evt.BookingID)
		default:
			return fmt.Errorf("%w: action %q", errBadPayload, evt.Action)
		}
		if errors.As(err, &insufficient) {
			// Business rejection: the request is answered, not retried.
			// Roll back the ledger row along with everything else so a
			// redelivery gets the same answer.
			return err
		}
		if err != nil {
			return err
		}
		applied = true
		return nil
	})

	switch {
	case insufficient != nil:
		c.publishFailed(ctx, evt, insufficient.Available, insufficient.Error())
		return nil
	case err != nil:
		return err
	case applied:
		c.publishUpdated(ctx, evt)
	}
	return nil
}

func (c *InventoryConsumer) publishUpdated(ctx context.Context, evt events.UpdateEventInventory) {
	out := events.EventInventoryUpdated{
		Envelope:  events.NewEnvelope(events.RKInventoryUpdated, c.source),
		EventID:   evt.EventID,
		BookingID: evt.BookingID,
		Quantity:  evt.Quantity,
		Action:    evt.Action,
	}
	if err := c.pub.Publish(ctx, out); err != nil {
		c.log.Error().Err(err).Str("bookingId", evt.BookingID).Msg("publish inventory.updated failed")
	}
}

func (c *InventoryConsumer) publishFailed(ctx context.Context, evt events.UpdateEventInventory, available int, reason string) {
	out := events.EventInventoryUpdateFailed{
		Envelope:  events.NewEnvelope(events.RKInventoryUpdateFailed, c.source),
		EventID:   evt.EventID,
		BookingID: evt.BookingID,
		Requested: evt.Quantity,
		Available: available,
		Reason:    reason,
	}
	if err := c.pub.Publish(ctx, out); err != nil {
		c.log.Error().Err(err).Str("bookingId", evt.BookingID).Msg("publish inventory.update.failed failed")
	}
}

var errBadPayload = errors.New("invalid inventory update payload")
