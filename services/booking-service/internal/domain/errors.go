package domain

import "errors"

var (
	ErrBookingNotFound = errors.New("booking not found")
	ErrInvalidQuantity = errors.New("invalid quantity")
	ErrInvalidAmount   = errors.New("invalid amount")
)
