package domain

import (
	"errors"
	"testing"
	"time"

	twdomain "github.com/jesuscorral/ticketwave/pkg/domain"
)

var testNow = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func pending(t *testing.T) *Booking {
	t.Helper()
	b, err := NewBooking("ev-1", "u-1", 2, 5000, "thb", testNow, 15*time.Minute)
	if err != nil {
		t.Fatalf("NewBooking() error = %v", err)
	}
	return b
}

func TestNewBooking(t *testing.T) {
	t.Parallel()

	t.Run("starts pending with one recorded event", func(t *testing.T) {
		t.Parallel()
		b := pending(t)
		if b.Status != BookingPending {
			t.Fatalf("Status = %s, want PENDING", b.Status)
		}
		if want := testNow.Add(15 * time.Minute); !b.ExpiresAt.Equal(want) {
			t.Fatalf("ExpiresAt = %v, want %v", b.ExpiresAt, want)
		}
		evts := b.Uncommitted()
		if len(evts) != 1 {
			t.Fatalf("recorded %d events, want 1", len(evts))
		}
		if evts[0].EventName() != "BookingCreated" {
			t.Fatalf("event name = %s", evts[0].EventName())
		}
	})

	t.Run("rejects bad input", func(t *testing.T) {
		t.Parallel()
		if _, err := NewBooking("ev", "u", 0, 100, "thb", testNow, time.Minute); !errors.Is(err, ErrInvalidQuantity) {
			t.Fatalf("quantity 0 error = %v", err)
		}
		if _, err := NewBooking("ev", "u", 1, -1, "thb", testNow, time.Minute); !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("negative amount error = %v", err)
		}
	})
}

func TestBookingConfirm(t *testing.T) {
	t.Parallel()

	t.Run("pending within the window", func(t *testing.T) {
		t.Parallel()
		b := pending(t)
		b.ClearUncommitted()
		if err := b.Confirm(testNow.Add(time.Minute)); err != nil {
			t.Fatalf("Confirm() error = %v", err)
		}
		if b.Status != BookingConfirmed {
			t.Fatalf("Status = %s", b.Status)
		}
		if got := b.Uncommitted(); len(got) != 1 || got[0].EventName() != "BookingConfirmed" {
			t.Fatalf("events = %v", got)
		}
	})

	t.Run("after the window closed", func(t *testing.T) {
		t.Parallel()
		b := pending(t)
		err := b.Confirm(b.ExpiresAt.Add(time.Second))
		var ise *twdomain.InvalidStateError
		if !errors.As(err, &ise) {
			t.Fatalf("Confirm() error = %v, want InvalidStateError", err)
		}
		if b.Status != BookingPending {
			t.Fatal("rejected confirm changed status")
		}
	})

	t.Run("not pending", func(t *testing.T) {
		t.Parallel()
		b := pending(t)
		if _, err := b.Cancel("changed my mind"); err != nil {
			t.Fatalf("Cancel() error = %v", err)
		}
		var ise *twdomain.InvalidStateError
		if err := b.Confirm(testNow); !errors.As(err, &ise) {
			t.Fatalf("Confirm() on cancelled error = %v, want InvalidStateError", err)
		}
	})
}

func TestBookingCancel(t *testing.T) {
	t.Parallel()

	t.Run("pending cancels and records", func(t *testing.T) {
		t.Parallel()
		b := pending(t)
		b.ClearUncommitted()
		changed, err := b.Cancel("user request")
		if err != nil || !changed {
			t.Fatalf("Cancel() = (%v, %v)", changed, err)
		}
		if got := b.Uncommitted(); len(got) != 1 || got[0].EventName() != "BookingCancelled" {
			t.Fatalf("events = %v", got)
		}
	})

	t.Run("double cancel is a no-op", func(t *testing.T) {
		t.Parallel()
		b := pending(t)
		if _, err := b.Cancel("first"); err != nil {
			t.Fatalf("Cancel() error = %v", err)
		}
		b.ClearUncommitted()
		changed, err := b.Cancel("second")
		if err != nil || changed {
			t.Fatalf("second Cancel() = (%v, %v), want (false, nil)", changed, err)
		}
		if got := b.Uncommitted(); len(got) != 0 {
			t.Fatalf("no-op cancel recorded %d events", len(got))
		}
	})

	t.Run("completed booking is a conflict", func(t *testing.T) {
		t.Parallel()
		b := pending(t)
		if err := b.Confirm(testNow); err != nil {
			t.Fatalf("Confirm() error = %v", err)
		}
		if err := b.Complete(); err != nil {
			t.Fatalf("Complete() error = %v", err)
		}
		_, err := b.Cancel("too late")
		var ce *twdomain.ConflictError
		if !errors.As(err, &ce) {
			t.Fatalf("Cancel() error = %v, want ConflictError", err)
		}
	})
}

func TestBookingExpire(t *testing.T) {
	t.Parallel()

	t.Run("pending past the window", func(t *testing.T) {
		t.Parallel()
		b := pending(t)
		b.ClearUncommitted()
		if err := b.Expire(b.ExpiresAt.Add(time.Second)); err != nil {
			t.Fatalf("Expire() error = %v", err)
		}
		if b.Status != BookingExpired {
			t.Fatalf("Status = %s", b.Status)
		}
		if got := b.Uncommitted(); len(got) != 1 || got[0].EventName() != "BookingExpired" {
			t.Fatalf("events = %v", got)
		}
	})

	t.Run("before the window closes", func(t *testing.T) {
		t.Parallel()
		b := pending(t)
		var ise *twdomain.InvalidStateError
		if err := b.Expire(testNow); !errors.As(err, &ise) {
			t.Fatalf("Expire() error = %v, want InvalidStateError", err)
		}
	})

	t.Run("confirmed booking never expires", func(t *testing.T) {
		t.Parallel()
		b := pending(t)
		if err := b.Confirm(testNow); err != nil {
			t.Fatalf("Confirm() error = %v", err)
		}
		var ise *twdomain.InvalidStateError
		if err := b.Expire(b.ExpiresAt.Add(time.Hour)); !errors.As(err, &ise) {
			t.Fatalf("Expire() error = %v, want InvalidStateError", err)
		}
	})
}
