// Package domain provides the in-process domain event mechanism: aggregates
// buffer events produced by their business methods, and a Dispatcher fans
// each drained event out to its registered handlers after commit.
package domain

import "time"

// Event is an in-process notification that an aggregate changed state. It
// never leaves the service that produced it.
type Event interface {
	EventName() string
	AggregateID() string
}

// AggregateBase carries the pending-event buffer. Embed it in an aggregate;
// the aggregate exclusively owns the buffer, which is drained exactly once
// after the new state is durably committed.
type AggregateBase struct {
	events    []Event
	UpdatedAt time.Time
}

// Record appends an event to the buffer and refreshes the modification
// timestamp. It never fails.
func (a *AggregateBase) Record(e Event) {
	a.events = append(a.events, e)
	a.UpdatedAt = time.Now().UTC()
}

// Uncommitted returns the buffered events.
func (a *AggregateBase) Uncommitted() []Event {
	return a.events
}

// ClearUncommitted empties the buffer.
func (a *AggregateBase) ClearUncommitted() {
	a.events = nil
}

// Source is the subset of an aggregate the dispatcher needs.
type Source interface {
	Uncommitted() []Event
	ClearUncommitted()
}
