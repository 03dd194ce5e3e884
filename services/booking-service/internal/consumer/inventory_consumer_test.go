package consumer

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/jesuscorral/ticketwave/pkg/bus"
	"github.com/jesuscorral/ticketwave/pkg/clock"
	twdomain "github.com/jesuscorral/ticketwave/pkg/domain"
	"github.com/jesuscorral/ticketwave/pkg/events"
	"github.com/jesuscorral/ticketwave/services/booking-service/internal/domain"
	"github.com/jesuscorral/ticketwave/services/booking-service/internal/service"
)

func setupInventory(t *testing.T) (*InventoryConsumer, *memBookingRepo, *domain.Booking) {
	t.Helper()
	repo := newMemBookingRepo()
	d := twdomain.NewDispatcher()
	service.RegisterEventHandlers(d, &nullPublisher{}, "booking-service")
	svc := service.NewBookingService(repo, d, clock.NewFixed(testNow))

	b, err := svc.Create(context.Background(), service.CreateBookingInput{
		EventID: "ev-1", UserID: "u-1", Quantity: 3, TotalAmount: 7500, Currency: "thb",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	return NewInventoryConsumer(svc, zerolog.Nop()), repo, b
}

func updateFailedBody(t *testing.T, msgID, bookingID, reason string) []byte {
	t.Helper()
	env := events.NewEnvelope(events.RKInventoryUpdateFailed, "catalog-service")
	env.ID = msgID
	body, err := events.Encode(events.EventInventoryUpdateFailed{
		Envelope:  env,
		EventID:   "ev-1",
		BookingID: bookingID,
		Requested: 3,
		Available: 1,
		Reason:    reason,
	})
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	return body
}

func TestHandleUpdateFailed(t *testing.T) {
	t.Parallel()

	t.Run("cancels the pending booking once", func(t *testing.T) {
		t.Parallel()
		ic, repo, b := setupInventory(t)
		body := updateFailedBody(t, "msg-1", b.ID, "event ev-1: requested 3, available 1")

		if err := ic.HandleUpdateFailed(context.Background(), body); err != nil {
			t.Fatalf("HandleUpdateFailed() error = %v", err)
		}
		if got := repo.bookings[b.ID].Status; got != domain.BookingCancelled {
			t.Fatalf("status = %s, want CANCELLED", got)
		}
		// Redelivery of the same message id is acked without effect.
		if err := ic.HandleUpdateFailed(context.Background(), body); err != nil {
			t.Fatalf("duplicate HandleUpdateFailed() error = %v", err)
		}
		if got := repo.bookings[b.ID].Status; got != domain.BookingCancelled {
			t.Fatalf("status after redelivery = %s, want CANCELLED", got)
		}
	})

	t.Run("stale rejection for a completed booking acks with a warning", func(t *testing.T) {
		t.Parallel()
		ic, repo, b := setupInventory(t)
		repo.bookings[b.ID].Status = domain.BookingCompleted

		if err := ic.HandleUpdateFailed(context.Background(), updateFailedBody(t, "msg-2", b.ID, "")); err != nil {
			t.Fatalf("HandleUpdateFailed() error = %v, want nil ack", err)
		}
		if got := repo.bookings[b.ID].Status; got != domain.BookingCompleted {
			t.Fatalf("status = %s, want COMPLETED", got)
		}
	})

	t.Run("bad payloads are poison", func(t *testing.T) {
		t.Parallel()
		ic, _, _ := setupInventory(t)
		var pe *bus.PoisonMessageError
		if err := ic.HandleUpdateFailed(context.Background(), []byte("not json")); !errors.As(err, &pe) {
			t.Fatalf("error = %v, want PoisonMessageError", err)
		}
		if err := ic.HandleUpdateFailed(context.Background(), []byte(`{"id":"","bookingId":""}`)); !errors.As(err, &pe) {
			t.Fatalf("error = %v, want PoisonMessageError", err)
		}
	})
}
