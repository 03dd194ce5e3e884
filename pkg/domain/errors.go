package domain

import "fmt"

// InvalidStateError reports a transition attempted from a state that does not
// permit it. Usually a programming error or a race surfaced by the store.
type InvalidStateError struct {
	Entity string
	ID     string
	From   string
	To     string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("%s %s: invalid transition %s -> %s", e.Entity, e.ID, e.From, e.To)
}

// ConflictError reports two mutually exclusive transitions racing, e.g.
// cancelling a unit that was already sold.
type ConflictError struct {
	Entity string
	ID     string
	Reason string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s %s: %s", e.Entity, e.ID, e.Reason)
}
