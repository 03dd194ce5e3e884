package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jesuscorral/ticketwave/pkg/clock"
	twdomain "github.com/jesuscorral/ticketwave/pkg/domain"
	"github.com/jesuscorral/ticketwave/services/catalog-service/internal/domain"
)

// TicketRepository is the persistence seam the engine needs. All reads that
// feed a write happen inside WithTx; the implementation must lock the rows
// returned by AvailableForUpdate so two concurrent reservations cannot pick
// overlapping units.
type TicketRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	AvailableForUpdate(ctx context.Context, eventID string, limit int) ([]domain.Ticket, error)
	SaveBatch(ctx context.Context, tickets []domain.Ticket) error
	ReservedByBooking(ctx context.Context, bookingID string) ([]domain.Ticket, error)
	TicketByID(ctx context.Context, id string) (domain.Ticket, error)
	ExpiredReserved(ctx context.Context, now time.Time) ([]domain.Ticket, error)
	CountAvailable(ctx context.Context, eventID string) (int, error)
	CreateEvent(ctx context.Context, ev domain.Event, tickets []domain.Ticket) error
	EventByID(ctx context.Context, id string) (domain.Event, error)
	// MarkConsumed records an integration event id in the processed ledger.
	// Returns false when the id was recorded before.
	MarkConsumed(ctx context.Context, eventID, eventKey string) (bool, error)
}

const DefaultReservationTTL = 15 * time.Minute

type ReservationService struct {
	repo  TicketRepository
	clock clock.Clock
	ttl   time.Duration
}

type ReservationOption func(*ReservationService)

// WithTTL overrides the default reservation hold window.
func WithTTL(d time.Duration) ReservationOption {
	return func(s *ReservationService) {
		if d > 0 {
			s.ttl = d
		}
	}
}

func NewReservationService(repo TicketRepository, clk clock.Clock, opts ...ReservationOption) *ReservationService {
	s := &ReservationService{repo: repo, clock: clk, ttl: DefaultReservationTTL}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *ReservationService) TTL() time.Duration { return s.ttl }

// CreateEvent registers a catalog event and seeds one AVAILABLE ticket per
// unit of capacity.
func (s *ReservationService) CreateEvent(ctx context.Context, name, venue string, startsAt time.Time, capacity int) (domain.Event, error) {
	if capacity <= 0 {
		return domain.Event{}, domain.ErrInvalidQuantity
	}
	now := s.clock.Now()
	ev := domain.Event{
		ID:        uuid.NewString(),
		Name:      name,
		Venue:     venue,
		StartsAt:  startsAt.UTC(),
		Capacity:  capacity,
		CreatedAt: now,
		UpdatedAt: now,
	}
	tickets := make([]domain.Ticket, capacity)
	for i := range tickets {
		tickets[i] = domain.Ticket{
			ID:        uuid.NewString(),
			EventID:   ev.ID,
			Status:    domain.TicketAvailable,
			CreatedAt: now,
			UpdatedAt: now,
		}
	}
	if err := s.repo.CreateEvent(ctx, ev, tickets); err != nil {
		return domain.Event{}, err
	}
	return ev, nil
}

// ReserveBatch atomically moves quantity AVAILABLE units of eventID to
// RESERVED under bookingID, all stamped with the same deadline. Either every
// selected unit transitions or none do. Selection is ordered by ticket id so
// repeated calls pick deterministically.
func (s *ReservationService) ReserveBatch(ctx context.Context, eventID, bookingID string, quantity int, ttl time.Duration) ([]domain.Ticket, error) {
	if quantity <= 0 {
		return nil, domain.ErrInvalidQuantity
	}
	if ttl <= 0 {
		ttl = s.ttl
	}
	until := s.clock.Now().Add(ttl)

	var reserved []domain.Ticket
	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		tickets, err := s.repo.AvailableForUpdate(txCtx, eventID, quantity)
		if err != nil {
			return err
		}
		if len(tickets) < quantity {
			return &domain.InsufficientInventoryError{EventID: eventID, Requested: quantity, Available: len(tickets)}
		}
		for i := range tickets {
			if err := tickets[i].Reserve(bookingID, until); err != nil {
				return err
			}
			tickets[i].UpdatedAt = s.clock.Now()
		}
		if err := s.repo.SaveBatch(txCtx, tickets); err != nil {
			return err
		}
		reserved = tickets
		return nil
	})
	if err != nil {
		return nil, err
	}
	return reserved, nil
}

// Confirm moves every RESERVED unit held by bookingID to SOLD. A booking
// with no reserved units, or units reserved under someone else, is an
// invalid state.
func (s *ReservationService) Confirm(ctx context.Context, bookingID string) ([]domain.Ticket, error) {
	var sold []domain.Ticket
	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		tickets, err := s.repo.ReservedByBooking(txCtx, bookingID)
		if err != nil {
			return err
		}
		if len(tickets) == 0 {
			return &twdomain.InvalidStateError{Entity: "booking", ID: bookingID, From: "unreserved", To: string(domain.TicketSold)}
		}
		for i := range tickets {
			if err := tickets[i].ConfirmSale(bookingID); err != nil {
				return err
			}
			tickets[i].UpdatedAt = s.clock.Now()
		}
		if err := s.repo.SaveBatch(txCtx, tickets); err != nil {
			return err
		}
		sold = tickets
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sold, nil
}

// Release returns a single unit to the pool. Idempotent.
func (s *ReservationService) Release(ctx context.Context, ticketID string) error {
	return s.repo.WithTx(ctx, func(txCtx context.Context) error {
		t, err := s.repo.TicketByID(txCtx, ticketID)
		if err != nil {
			return err
		}
		if t.Status == domain.TicketAvailable {
			return nil
		}
		if err := t.Release(); err != nil {
			return err
		}
		t.UpdatedAt = s.clock.Now()
		return s.repo.SaveBatch(txCtx, []domain.Ticket{t})
	})
}

// ReleaseForBooking returns every unit still RESERVED under bookingID to the
// pool. Used by the release choreography branch; no-op when nothing is held.
func (s *ReservationService) ReleaseForBooking(ctx context.Context, bookingID string) (int, error) {
	released := 0
	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		tickets, err := s.repo.ReservedByBooking(txCtx, bookingID)
		if err != nil {
			return err
		}
		if len(tickets) == 0 {
			return nil
		}
		for i := range tickets {
			if err := tickets[i].Release(); err != nil {
				return err
			}
			tickets[i].UpdatedAt = s.clock.Now()
		}
		if err := s.repo.SaveBatch(txCtx, tickets); err != nil {
			return err
		}
		released = len(tickets)
		return nil
	})
	return released, err
}

// ReleaseExpired sweeps every RESERVED unit whose deadline has passed back
// to AVAILABLE and clears its booking link. Returns the count released. It
// only touches units already past their deadline, so it needs no
// coordination with in-flight reservations.
func (s *ReservationService) ReleaseExpired(ctx context.Context) (int, error) {
	now := s.clock.Now()
	released := 0
	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		tickets, err := s.repo.ExpiredReserved(txCtx, now)
		if err != nil {
			return err
		}
		if len(tickets) == 0 {
			return nil
		}
		for i := range tickets {
			if err := tickets[i].Release(); err != nil {
				return err
			}
			tickets[i].UpdatedAt = now
		}
		if err := s.repo.SaveBatch(txCtx, tickets); err != nil {
			return err
		}
		released = len(tickets)
		return nil
	})
	return released, err
}

// Availability reports how many units of eventID are currently AVAILABLE.
func (s *ReservationService) Availability(ctx context.Context, eventID string) (int, error) {
	return s.repo.CountAvailable(ctx, eventID)
}

func (s *ReservationService) Event(ctx context.Context, id string) (domain.Event, error) {
	return s.repo.EventByID(ctx, id)
}
