// Package events defines the integration event contracts shared by every
// TicketWave service. An integration event crosses service boundaries over
// the bus; its routing key is the stable eventType string.
package events

import (
	"time"

	"github.com/google/uuid"
)

// Routing keys. One durable queue per (consumer, key) pair; no wildcards.
const (
	RKBookingCreated   = "booking.created"
	RKBookingConfirmed = "booking.confirmed"
	RKBookingCancelled = "booking.cancelled"
	RKBookingExpired   = "booking.expired"

	RKInventoryUpdateRequested = "catalog.inventory.update.requested"
	RKInventoryUpdated         = "catalog.inventory.updated"
	RKInventoryUpdateFailed    = "catalog.inventory.update.failed"

	RKNotificationRequested = "notification.booking.requested"

	RKPaymentPrepareRequested = "payment.data.prepare.requested"
	RKPaymentCompleted        = "payment.completed"
	RKPaymentFailed           = "payment.failed"
)

// Inventory update actions carried by UpdateEventInventory.
const (
	InventoryActionReserve = "reserve"
	InventoryActionRelease = "release"
)

// Envelope is embedded in every integration event. ID and OccurredAt are
// assigned once at construction and must survive retries and redeliveries
// unchanged; consumers use ID as their deduplication key.
type Envelope struct {
	ID         string    `json:"id"`
	OccurredAt time.Time `json:"occurredAt"`
	EventType  string    `json:"eventType"`
	Source     string    `json:"source"`
}

// NewEnvelope stamps a fresh identity for an event of the given type.
func NewEnvelope(eventType, source string) Envelope {
	return Envelope{
		ID:         uuid.NewString(),
		OccurredAt: time.Now().UTC(),
		EventType:  eventType,
		Source:     source,
	}
}

// Integration is implemented by every cross-service event.
type Integration interface {
	Meta() Envelope
	RoutingKey() string
}

func (e Envelope) Meta() Envelope     { return e }
func (e Envelope) RoutingKey() string { return e.EventType }

// BookingCreated announces a new pending booking.
type BookingCreated struct {
	Envelope
	BookingID   string    `json:"bookingId"`
	EventID     string    `json:"eventId"`
	UserID      string    `json:"userId"`
	Quantity    int       `json:"quantity"`
	TotalAmount int64     `json:"totalAmount"` // minor units
	Currency    string    `json:"currency"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// BookingConfirmed / BookingCancelled / BookingExpired close out a booking's
// lifecycle for downstream listeners.
type BookingConfirmed struct {
	Envelope
	BookingID string `json:"bookingId"`
	UserID    string `json:"userId"`
}

type BookingCancelled struct {
	Envelope
	BookingID string `json:"bookingId"`
	EventID   string `json:"eventId"`
	UserID    string `json:"userId"`
	Reason    string `json:"reason,omitempty"`
}

type BookingExpired struct {
	Envelope
	BookingID string `json:"bookingId"`
	EventID   string `json:"eventId"`
	UserID    string `json:"userId"`
}

// UpdateEventInventory asks catalog to reserve or release units for a booking.
type UpdateEventInventory struct {
	Envelope
	EventID   string `json:"eventId"`
	BookingID string `json:"bookingId"`
	Quantity  int    `json:"quantity"`
	Action    string `json:"action"` // reserve|release
}

// EventInventoryUpdated reports a successful inventory change.
type EventInventoryUpdated struct {
	Envelope
	EventID   string `json:"eventId"`
	BookingID string `json:"bookingId"`
	Quantity  int    `json:"quantity"`
	Action    string `json:"action"`
}

// EventInventoryUpdateFailed reports a rejected inventory change, carrying
// how many units were actually available at the time.
type EventInventoryUpdateFailed struct {
	Envelope
	EventID   string `json:"eventId"`
	BookingID string `json:"bookingId"`
	Requested int    `json:"requested"`
	Available int    `json:"available"`
	Reason    string `json:"reason"`
}

// SendBookingNotification asks notification to tell the user about a booking.
type SendBookingNotification struct {
	Envelope
	BookingID string `json:"bookingId"`
	UserID    string `json:"userId"`
	Message   string `json:"message"`
}

// PreparePaymentData asks payment to set up a charge for a booking. Emitted
// only when the booking total is positive.
type PreparePaymentData struct {
	Envelope
	BookingID string `json:"bookingId"`
	UserID    string `json:"userId"`
	Amount    int64  `json:"amount"` // minor units
	Currency  string `json:"currency"`
}

// PaymentCompleted / PaymentFailed report the outcome of a charge.
type PaymentCompleted struct {
	Envelope
	BookingID string `json:"bookingId"`
	PaymentID string `json:"paymentId"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
}

type PaymentFailed struct {
	Envelope
	BookingID      string `json:"bookingId"`
	PaymentID      string `json:"paymentId"`
	FailureCode    string `json:"failureCode,omitempty"`
	FailureMessage string `json:"failureMessage,omitempty"`
}
