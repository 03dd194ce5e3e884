package domain

import (
	"errors"
	"testing"
	"time"

	twdomain "github.com/jesuscorral/ticketwave/pkg/domain"
)

var (
	baseTime = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	deadline = baseTime.Add(15 * time.Minute)
)

func available() Ticket {
	return Ticket{ID: "t-1", EventID: "ev-1", Status: TicketAvailable}
}

func reserved() Ticket {
	t := available()
	_ = t.Reserve("bk-1", deadline)
	return t
}

func TestTicketReserve(t *testing.T) {
	t.Parallel()

	t.Run("available to reserved", func(t *testing.T) {
		t.Parallel()
		tk := available()
		if err := tk.Reserve("bk-1", deadline); err != nil {
			t.Fatalf("Reserve() error = %v", err)
		}
		if tk.Status != TicketReserved || tk.BookingID == nil || *tk.BookingID != "bk-1" {
			t.Fatalf("ticket after reserve = %+v", tk)
		}
		if tk.ReservedUntil == nil || !tk.ReservedUntil.Equal(deadline) {
			t.Fatalf("ReservedUntil = %v, want %v", tk.ReservedUntil, deadline)
		}
	})

	t.Run("reserved unit cannot be reserved again", func(t *testing.T) {
		t.Parallel()
		tk := reserved()
		err := tk.Reserve("bk-2", deadline)
		var ise *twdomain.InvalidStateError
		if !errors.As(err, &ise) {
			t.Fatalf("Reserve() error = %v, want InvalidStateError", err)
		}
		if *tk.BookingID != "bk-1" {
			t.Fatal("failed reserve mutated the holder")
		}
	})
}

func TestTicketConfirmSale(t *testing.T) {
	t.Parallel()

	t.Run("reserved to sold for the holder", func(t *testing.T) {
		t.Parallel()
		tk := reserved()
		if err := tk.ConfirmSale("bk-1"); err != nil {
			t.Fatalf("ConfirmSale() error = %v", err)
		}
		if tk.Status != TicketSold || tk.ReservedUntil != nil {
			t.Fatalf("ticket after sale = %+v", tk)
		}
	})

	t.Run("another booking cannot confirm", func(t *testing.T) {
		t.Parallel()
		tk := reserved()
		var ise *twdomain.InvalidStateError
		if err := tk.ConfirmSale("bk-2"); !errors.As(err, &ise) {
			t.Fatalf("ConfirmSale() error = %v, want InvalidStateError", err)
		}
	})

	t.Run("available unit cannot be sold", func(t *testing.T) {
		t.Parallel()
		tk := available()
		var ise *twdomain.InvalidStateError
		if err := tk.ConfirmSale("bk-1"); !errors.As(err, &ise) {
			t.Fatalf("ConfirmSale() error = %v, want InvalidStateError", err)
		}
	})
}

func TestTicketRelease(t *testing.T) {
	t.Parallel()

	t.Run("reserved back to available", func(t *testing.T) {
		t.Parallel()
		tk := reserved()
		if err := tk.Release(); err != nil {
			t.Fatalf("Release() error = %v", err)
		}
		if tk.Status != TicketAvailable || tk.BookingID != nil || tk.ReservedUntil != nil {
			t.Fatalf("ticket after release = %+v", tk)
		}
	})

	t.Run("releasing an available unit is a no-op", func(t *testing.T) {
		t.Parallel()
		tk := available()
		if err := tk.Release(); err != nil {
			t.Fatalf("Release() error = %v", err)
		}
	})

	t.Run("sold unit cannot be released", func(t *testing.T) {
		t.Parallel()
		tk := reserved()
		_ = tk.ConfirmSale("bk-1")
		var ise *twdomain.InvalidStateError
		if err := tk.Release(); !errors.As(err, &ise) {
			t.Fatalf("Release() error = %v, want InvalidStateError", err)
		}
	})
}

func TestTicketCancel(t *testing.T) {
	t.Parallel()

	t.Run("sold unit is a conflict", func(t *testing.T) {
		t.Parallel()
		tk := reserved()
		_ = tk.ConfirmSale("bk-1")
		var ce *twdomain.ConflictError
		if err := tk.Cancel(); !errors.As(err, &ce) {
			t.Fatalf("Cancel() error = %v, want ConflictError", err)
		}
	})

	t.Run("reserved unit degrades to release", func(t *testing.T) {
		t.Parallel()
		tk := reserved()
		if err := tk.Cancel(); err != nil {
			t.Fatalf("Cancel() error = %v", err)
		}
		if tk.Status != TicketAvailable {
			t.Fatalf("status after cancel = %s", tk.Status)
		}
	})
}

func TestTicketExpiredAt(t *testing.T) {
	t.Parallel()

	tk := reserved()
	if tk.ExpiredAt(baseTime) {
		t.Fatal("reservation reported expired before its deadline")
	}
	if !tk.ExpiredAt(deadline.Add(time.Second)) {
		t.Fatal("reservation not reported expired past its deadline")
	}
	av := available()
	if av.ExpiredAt(deadline.Add(time.Hour)) {
		t.Fatal("available unit reported expired")
	}
}
