package service

import (
	"context"
	"fmt"

	twdomain "github.com/jesuscorral/ticketwave/pkg/domain"
	"github.com/jesuscorral/ticketwave/pkg/events"
	"github.com/jesuscorral/ticketwave/services/booking-service/internal/domain"
)

// RegisterEventHandlers wires the domain-to-integration translation: each
// handler turns one in-process domain event into the bus messages that drive
// the rest of the choreography. Handlers for the same event run
// concurrently during dispatch.
func RegisterEventHandlers(d *twdomain.Dispatcher, pub Publisher, source string) {
	// A new booking fans out to inventory, notification and (for paid
	// bookings) payment preparation. No coordinator tracks the branches;
	// failures are compensated by the reservation TTL and explicit release
	// events.
	twdomain.On(d, func(ctx context.Context, e domain.Created) error {
		out := events.UpdateEventInventory{
			Envelope:  events.NewEnvelope(events.RKInventoryUpdateRequested, source),
			EventID:   e.EventID,
			BookingID: e.BookingID,
			Quantity:  e.Quantity,
			Action:    events.InventoryActionReserve,
		}
		return pub.Publish(ctx, out)
	})
	twdomain.On(d, func(ctx context.Context, e domain.Created) error {
		out := events.SendBookingNotification{
			Envelope:  events.NewEnvelope(events.RKNotificationRequested, source),
			BookingID: e.BookingID,
			UserID:    e.UserID,
			Message:   fmt.Sprintf("Booking %s created for %d ticket(s), expires %s", e.BookingID, e.Quantity, e.ExpiresAt.Format("2006-01-02 15:04")),
		}
		return pub.Publish(ctx, out)
	})
	twdomain.On(d, func(ctx context.Context, e domain.Created) error {
		if e.TotalAmount == 0 {
			// Free booking: nothing to charge.
			return nil
		}
		out := events.PreparePaymentData{
			Envelope:  events.NewEnvelope(events.RKPaymentPrepareRequested, source),
			BookingID: e.BookingID,
			UserID:    e.UserID,
			Amount:    e.TotalAmount,
			Currency:  e.Currency,
		}
		return pub.Publish(ctx, out)
	})

	twdomain.On(d, func(ctx context.Context, e domain.Confirmed) error {
		out := events.BookingConfirmed{
			Envelope:  events.NewEnvelope(events.RKBookingConfirmed, source),
			BookingID: e.BookingID,
			UserID:    e.UserID,
		}
		return pub.Publish(ctx, out)
	})

	twdomain.On(d, func(ctx context.Context, e domain.Cancelled) error {
		out := events.BookingCancelled{
			Envelope:  events.NewEnvelope(events.RKBookingCancelled, source),
			BookingID: e.BookingID,
			EventID:   e.EventID,
			UserID:    e.UserID,
			Reason:    e.Reason,
		}
		return pub.Publish(ctx, out)
	})
	twdomain.On(d, func(ctx context.Context, e domain.Cancelled) error {
		return pub.Publish(ctx, releaseRequest(source, e.EventID, e.BookingID))
	})

	twdomain.On(d, func(ctx context.Context, e domain.Expired) error {
		out := events.BookingExpired{
			Envelope:  events.NewEnvelope(events.RKBookingExpired, source),
			BookingID: e.BookingID,
			EventID:   e.EventID,
			UserID:    e.UserID,
		}
		return pub.Publish(ctx, out)
	})
	twdomain.On(d, func(ctx context.Context, e domain.Expired) error {
		return pub.Publish(ctx, releaseRequest(source, e.EventID, e.BookingID))
	})
}

// releaseRequest asks catalog to return whatever the booking still holds.
// Quantity is zero: the release path frees every unit reserved under the
// booking, so the count is resolved on the catalog side.
func releaseRequest(source, eventID, bookingID string) events.UpdateEventInventory {
	return events.UpdateEventInventory{
		Envelope:  events.NewEnvelope(events.RKInventoryUpdateRequested, source),
		EventID:   eventID,
		BookingID: bookingID,
		Action:    events.InventoryActionRelease,
	}
}
