package domain

import "time"

// Event is a ticketed catalog event. Its sellable units are Tickets seeded
// at creation time.
type Event struct {
	ID        string `gorm:"primaryKey"`
	Name      string
	Venue     string
	StartsAt  time.Time `gorm:"index"`
	Capacity  int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// EventConsumed is the processed-event ledger: one row per integration event
// this service has applied, keyed by the event's identity. Checked inside
// the same transaction as the state change so duplicate deliveries are
// no-ops.
type EventConsumed struct {
	ID          string `gorm:"primaryKey"`
	EventKey    string `gorm:"index"`
	ProcessedAt time.Time
}
