package service

import (
	"context"
	"fmt"
	"time"

	"github.com/jesuscorral/ticketwave/pkg/clock"
	twdomain "github.com/jesuscorral/ticketwave/pkg/domain"
	"github.com/jesuscorral/ticketwave/pkg/events"
	"github.com/jesuscorral/ticketwave/services/booking-service/internal/domain"
)

// BookingRepository is the persistence seam for bookings.
type BookingRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	Create(ctx context.Context, b *domain.Booking) error
	Save(ctx context.Context, b *domain.Booking) error
	ByID(ctx context.Context, id string) (*domain.Booking, error)
	ExpiredPending(ctx context.Context, now time.Time) ([]domain.Booking, error)
	List(ctx context.Context, page, size int, userID, eventID string) ([]domain.Booking, int64, error)
	MarkConsumed(ctx context.Context, eventID, eventKey string) (bool, error)
}

// Publisher is the outbound seam; satisfied by *bus.Bus.
type Publisher interface {
	Publish(ctx context.Context, e events.Integration) error
}

const DefaultBookingTTL = 15 * time.Minute

type BookingService struct {
	repo       BookingRepository
	dispatcher *twdomain.Dispatcher
	clock      clock.Clock
	ttl        time.Duration
}

type Option func(*BookingService)

// WithBookingTTL overrides the payment window for new bookings.
func WithBookingTTL(d time.Duration) Option {
	return func(s *BookingService) {
		if d > 0 {
			s.ttl = d
		}
	}
}

func NewBookingService(repo BookingRepository, d *twdomain.Dispatcher, clk clock.Clock, opts ...Option) *BookingService {
	s := &BookingService{repo: repo, dispatcher: d, clock: clk, ttl: DefaultBookingTTL}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type CreateBookingInput struct {
	EventID     string
	UserID      string
	Quantity    int
	TotalAmount int64
	Currency    string
}

// Create persists a new PENDING booking and then drains its domain events
// through the dispatcher. A dispatch failure is returned to the caller even
// though the booking is already committed: there is no outbox to retry from,
// so the caller must see that a side effect did not run.
func (s *BookingService) Create(ctx context.Context, in CreateBookingInput) (*domain.Booking, error) {
	b, err := domain.NewBooking(in.EventID, in.UserID, in.Quantity, in.TotalAmount, in.Currency, s.clock.Now(), s.ttl)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, b); err != nil {
		return nil, err
	}
	if err := s.dispatcher.DrainAndDispatch(ctx, b); err != nil {
		return b, fmt.Errorf("booking %s committed but dispatch failed: %w", b.ID, err)
	}
	return b, nil
}

// Confirm moves a booking to CONFIRMED, normally on payment completion.
func (s *BookingService) Confirm(ctx context.Context, id string) (*domain.Booking, error) {
	var b *domain.Booking
	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		var err error
		b, err = s.repo.ByID(txCtx, id)
		if err != nil {
			return err
		}
		if err := b.Confirm(s.clock.Now()); err != nil {
			return err
		}
		return s.repo.Save(txCtx, b)
	})
	if err != nil {
		return nil, err
	}
	if err := s.dispatcher.DrainAndDispatch(ctx, b); err != nil {
		return b, fmt.Errorf("booking %s committed but dispatch failed: %w", b.ID, err)
	}
	return b, nil
}

// Cancel aborts a booking; already-cancelled is a no-op.
func (s *BookingService) Cancel(ctx context.Context, id, reason string) (*domain.Booking, error) {
	var b *domain.Booking
	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		var err error
		b, err = s.repo.ByID(txCtx, id)
		if err != nil {
			return err
		}
		changed, err := b.Cancel(reason)
		if err != nil {
			return err
		}
		if !changed {
			return nil
		}
		return s.repo.Save(txCtx, b)
	})
	if err != nil {
		return nil, err
	}
	if err := s.dispatcher.DrainAndDispatch(ctx, b); err != nil {
		return b, fmt.Errorf("booking %s committed but dispatch failed: %w", b.ID, err)
	}
	return b, nil
}

// ConfirmIfNotProcessed confirms a booking on behalf of an integration
// event, recording the event id in the processed ledger inside the same
// transaction as the status change. A duplicate delivery is a no-op. Domain
// events are dispatched only after the transaction committed.
func (s *BookingService) ConfirmIfNotProcessed(ctx context.Context, bookingID, eventID, eventKey string) (*domain.Booking, error) {
	var b *domain.Booking
	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		fresh, err := s.repo.MarkConsumed(txCtx, eventID, eventKey)
		if err != nil {
			return err
		}
		if !fresh {
			return nil
		}
		b, err = s.repo.ByID(txCtx, bookingID)
		if err != nil {
			return err
		}
		if err := b.Confirm(s.clock.Now()); err != nil {
			return err
		}
		return s.repo.Save(txCtx, b)
	})
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, nil
	}
	if err := s.dispatcher.DrainAndDispatch(ctx, b); err != nil {
		return b, fmt.Errorf("booking %s committed but dispatch failed: %w", b.ID, err)
	}
	return b, nil
}

// CancelIfNotProcessed is the failure-path twin of ConfirmIfNotProcessed.
func (s *BookingService) CancelIfNotProcessed(ctx context.Context, bookingID, eventID, eventKey, reason string) (*domain.Booking, error) {
	var b *domain.Booking
	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		fresh, err := s.repo.MarkConsumed(txCtx, eventID, eventKey)
		if err != nil {
			return err
		}
		if !fresh {
			return nil
		}
		b, err = s.repo.ByID(txCtx, bookingID)
		if err != nil {
			return err
		}
		changed, err := b.Cancel(reason)
		if err != nil {
			return err
		}
		if !changed {
			b = nil
			return nil
		}
		return s.repo.Save(txCtx, b)
	})
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, nil
	}
	if err := s.dispatcher.DrainAndDispatch(ctx, b); err != nil {
		return b, fmt.Errorf("booking %s committed but dispatch failed: %w", b.ID, err)
	}
	return b, nil
}

// ExpireDue sweeps PENDING bookings past their payment window to EXPIRED.
// Returns the count expired. Compensation is choreography: each expiry emits
// events that release the booking's reserved inventory.
func (s *BookingService) ExpireDue(ctx context.Context) (int, error) {
	now := s.clock.Now()
	var expired []*domain.Booking
	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		due, err := s.repo.ExpiredPending(txCtx, now)
		if err != nil {
			return err
		}
		for i := range due {
			b := &due[i]
			if err := b.Expire(now); err != nil {
				return err
			}
			if err := s.repo.Save(txCtx, b); err != nil {
				return err
			}
			expired = append(expired, b)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	for _, b := range expired {
		if err := s.dispatcher.DrainAndDispatch(ctx, b); err != nil {
			return len(expired), fmt.Errorf("booking %s expired but dispatch failed: %w", b.ID, err)
		}
	}
	return len(expired), nil
}

func (s *BookingService) Get(ctx context.Context, id string) (*domain.Booking, error) {
	return s.repo.ByID(ctx, id)
}

func (s *BookingService) List(ctx context.Context, page, size int, userID, eventID string) ([]domain.Booking, int64, error) {
	return s.repo.List(ctx, page, size, userID, eventID)
}
