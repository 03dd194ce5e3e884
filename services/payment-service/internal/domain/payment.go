package domain

import (
	"errors"
	"time"
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "PENDING"
	PaymentSucceeded PaymentStatus = "SUCCEEDED"
	PaymentFailed    PaymentStatus = "FAILED"
)

var (
	ErrPaymentNotFound = errors.New("payment not found")
	ErrAlreadySettled  = errors.New("payment already settled")
)

// Payment is the prepared charge data for one booking, created when
// payment.data.prepare.requested arrives and settled when the charge runs.
type Payment struct {
	ID             string `gorm:"primaryKey"`
	BookingID      string `gorm:"uniqueIndex"`
	UserID         string `gorm:"index"`
	Amount         int64  // minor units
	Currency       string
	Status         PaymentStatus `gorm:"index"`
	ChargeID       string
	FailureCode    string
	FailureMessage string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// EventConsumed is the processed-event ledger for this service's consumers.
type EventConsumed struct {
	ID          string `gorm:"primaryKey"`
	EventKey    string `gorm:"index"`
	ProcessedAt time.Time
}
