package domain

import "time"

// In-process domain events recorded by Booking's business methods. They
// never leave this service; handlers registered on the dispatcher translate
// them into integration events after commit.

type Created struct {
	BookingID   string
	EventID     string
	UserID      string
	Quantity    int
	TotalAmount int64
	Currency    string
	ExpiresAt   time.Time
}

func (Created) EventName() string     { return "BookingCreated" }
func (e Created) AggregateID() string { return e.BookingID }

type Confirmed struct {
	BookingID string
	UserID    string
}

func (Confirmed) EventName() string     { return "BookingConfirmed" }
func (e Confirmed) AggregateID() string { return e.BookingID }

type Cancelled struct {
	BookingID string
	EventID   string
	UserID    string
	Reason    string
}

func (Cancelled) EventName() string     { return "BookingCancelled" }
func (e Cancelled) AggregateID() string { return e.BookingID }

type Expired struct {
	BookingID string
	EventID   string
	UserID    string
}

func (Expired) EventName() string     { return "BookingExpired" }
func (e Expired) AggregateID() string { return e.BookingID }
