package domain

import (
	"errors"
	"fmt"
)

var (
	ErrEventNotFound   = errors.New("event not found")
	ErrTicketNotFound  = errors.New("ticket not found")
	ErrInvalidQuantity = errors.New("invalid quantity")
)

// InsufficientInventoryError is a business rejection, not a fault: fewer
// units were available than requested. Nothing was mutated.
type InsufficientInventoryError struct {
	EventID   string
	Requested int
	Available int
}

func (e *InsufficientInventoryError) Error() string {
	return fmt.Sprintf("event %s: requested %d tickets, %d available", e.EventID, e.Requested, e.Available)
}
