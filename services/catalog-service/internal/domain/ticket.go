package domain

import (
	"time"

	"github.com/jesuscorral/ticketwave/pkg/domain"
)

type TicketStatus string

const (
	TicketAvailable TicketStatus = "AVAILABLE"
	TicketReserved  TicketStatus = "RESERVED"
	TicketSold      TicketStatus = "SOLD"
	TicketCancelled TicketStatus = "CANCELLED"
)

// Ticket is one sellable inventory unit. Created AVAILABLE, never deleted;
// all transitions go through the reservation engine.
type Ticket struct {
	ID            string       `gorm:"primaryKey"`
	EventID       string       `gorm:"index"`
	Status        TicketStatus `gorm:"index"`
	BookingID     *string      `gorm:"index"`
	ReservedUntil *time.Time   `gorm:"index"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Reserve stakes the unit for a booking until the deadline.
func (t *Ticket) Reserve(bookingID string, until time.Time) error {
	if t.Status != TicketAvailable {
		return &domain.InvalidStateError{Entity: "ticket", ID: t.ID, From: string(t.Status), To: string(TicketReserved)}
	}
	t.Status = TicketReserved
	t.BookingID = &bookingID
	u := until.UTC()
	t.ReservedUntil = &u
	return nil
}

// ConfirmSale moves a reserved unit to SOLD for the booking that holds it.
func (t *Ticket) ConfirmSale(bookingID string) error {
	if t.Status != TicketReserved || t.BookingID == nil || *t.BookingID != bookingID {
		return &domain.InvalidStateError{Entity: "ticket", ID: t.ID, From: string(t.Status), To: string(TicketSold)}
	}
	t.Status = TicketSold
	t.ReservedUntil = nil
	return nil
}

// Release puts the unit back in the pool. Releasing an already available
// unit is a no-op, not an error.
func (t *Ticket) Release() error {
	switch t.Status {
	case TicketAvailable:
		return nil
	case TicketReserved:
		t.Status = TicketAvailable
		t.BookingID = nil
		t.ReservedUntil = nil
		return nil
	default:
		return &domain.InvalidStateError{Entity: "ticket", ID: t.ID, From: string(t.Status), To: string(TicketAvailable)}
	}
}

// Cancel retires the unit. On SOLD it is a conflict; on AVAILABLE/RESERVED
// it degrades to Release.
func (t *Ticket) Cancel() error {
	switch t.Status {
	case TicketSold:
		return &domain.ConflictError{Entity: "ticket", ID: t.ID, Reason: "cannot cancel a sold ticket"}
	case TicketCancelled:
		return nil
	default:
		return t.Release()
	}
}

// ExpiredAt reports whether a reservation deadline has passed.
func (t *Ticket) ExpiredAt(now time.Time) bool {
	return t.Status == TicketReserved && t.ReservedUntil != nil && t.ReservedUntil.Before(now)
}
