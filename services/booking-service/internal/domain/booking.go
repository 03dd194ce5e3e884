package domain

import (
	"time"

	"github.com/google/uuid"

	"github.com/jesuscorral/ticketwave/pkg/domain"
)

type BookingStatus string

const (
	BookingPending   BookingStatus = "PENDING"
	BookingConfirmed BookingStatus = "CONFIRMED"
	BookingCompleted BookingStatus = "COMPLETED"
	BookingCancelled BookingStatus = "CANCELLED"
	BookingExpired   BookingStatus = "EXPIRED"
)

// Booking is a customer's request for Quantity inventory units of one
// catalog event. Business methods record domain events into the embedded
// buffer; the buffer is drained exactly once, after the booking is
// committed.
type Booking struct {
	domain.AggregateBase

	ID          string `gorm:"primaryKey"`
	EventID     string `gorm:"index"`
	UserID      string `gorm:"index"`
	Quantity    int
	TotalAmount int64 // minor units
	Currency    string
	Status      BookingStatus `gorm:"index"`
	ExpiresAt   time.Time     `gorm:"index"`
	CreatedAt   time.Time
}

// NewBooking creates a PENDING booking that must be paid within ttl.
func NewBooking(eventID, userID string, quantity int, totalAmount int64, currency string, now time.Time, ttl time.Duration) (*Booking, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	if totalAmount < 0 {
		return nil, ErrInvalidAmount
	}
	b := &Booking{
		ID:          uuid.NewString(),
		EventID:     eventID,
		UserID:      userID,
		Quantity:    quantity,
		TotalAmount: totalAmount,
		Currency:    currency,
		Status:      BookingPending,
		ExpiresAt:   now.Add(ttl).UTC(),
		CreatedAt:   now.UTC(),
	}
	b.Record(Created{
		BookingID:   b.ID,
		EventID:     b.EventID,
		UserID:      b.UserID,
		Quantity:    b.Quantity,
		TotalAmount: b.TotalAmount,
		Currency:    b.Currency,
		ExpiresAt:   b.ExpiresAt,
	})
	return b, nil
}

// Confirm moves a PENDING booking to CONFIRMED. Confirming after the payment
// window closed is rejected; the expiry sweep owns that booking by then.
func (b *Booking) Confirm(now time.Time) error {
	if b.Status != BookingPending {
		return &domain.InvalidStateError{Entity: "booking", ID: b.ID, From: string(b.Status), To: string(BookingConfirmed)}
	}
	if now.After(b.ExpiresAt) {
		return &domain.InvalidStateError{Entity: "booking", ID: b.ID, From: "expired-pending", To: string(BookingConfirmed)}
	}
	b.Status = BookingConfirmed
	b.Record(Confirmed{BookingID: b.ID, UserID: b.UserID})
	return nil
}

// Complete closes out a CONFIRMED booking (tickets handed over).
func (b *Booking) Complete() error {
	if b.Status != BookingConfirmed {
		return &domain.InvalidStateError{Entity: "booking", ID: b.ID, From: string(b.Status), To: string(BookingCompleted)}
	}
	b.Status = BookingCompleted
	return nil
}

// Cancel aborts a booking. Cancelling a COMPLETED booking is a conflict;
// cancelling an already CANCELLED one is a no-op. The bool reports whether
// state changed.
func (b *Booking) Cancel(reason string) (bool, error) {
	switch b.Status {
	case BookingCancelled:
		return false, nil
	case BookingCompleted:
		return false, &domain.ConflictError{Entity: "booking", ID: b.ID, Reason: "cannot cancel a completed booking"}
	}
	b.Status = BookingCancelled
	b.Record(Cancelled{BookingID: b.ID, EventID: b.EventID, UserID: b.UserID, Reason: reason})
	return true, nil
}

// Expire marks a PENDING booking whose payment window has passed.
func (b *Booking) Expire(now time.Time) error {
	if b.Status != BookingPending {
		return &domain.InvalidStateError{Entity: "booking", ID: b.ID, From: string(b.Status), To: string(BookingExpired)}
	}
	if now.Before(b.ExpiresAt) {
		return &domain.InvalidStateError{Entity: "booking", ID: b.ID, From: string(BookingPending), To: string(BookingExpired)}
	}
	b.Status = BookingExpired
	b.Record(Expired{BookingID: b.ID, EventID: b.EventID, UserID: b.UserID})
	return nil
}

// EventConsumed is the processed-event ledger: one row per integration event
// this service applied, keyed by the event's identity.
type EventConsumed struct {
	ID          string `gorm:"primaryKey"`
	EventKey    string `gorm:"index"`
	ProcessedAt time.Time
}
