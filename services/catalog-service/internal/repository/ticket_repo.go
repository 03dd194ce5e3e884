package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/jesuscorral/ticketwave/services/catalog-service/internal/domain"
)

type TicketRepo struct{ db *gorm.DB }

func NewTicketRepo(db *gorm.DB) *TicketRepo {
	return &TicketRepo{db: db}
}

func (r *TicketRepo) Migrate() error {
	return r.db.AutoMigrate(&domain.Event{}, &domain.Ticket{}, &domain.EventConsumed{})
}

type txKey struct{}

// WithTx runs fn inside a transaction; repository calls made with the ctx it
// passes to fn join the same transaction.
func (r *TicketRepo) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return fn(ctx)
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

func (r *TicketRepo) conn(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx
	}
	return r.db.WithContext(ctx)
}

// AvailableForUpdate selects up to limit AVAILABLE tickets for the event,
// row-locked so concurrent reservations cannot pick overlapping units.
// SKIP LOCKED steps over rows a competing transaction holds instead of
// blocking on them, so a unit mid-reservation elsewhere counts as
// unavailable here. Ordered by id for a deterministic selection.
func (r *TicketRepo) AvailableForUpdate(ctx context.Context, eventID string, limit int) ([]domain.Ticket, error) {
	var out []domain.Ticket
	err := r.conn(ctx).
		Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
		Where("event_id = ? AND status = ?", eventID, domain.TicketAvailable).
		Order("id ASC").
		Limit(limit).
		Find(&out).Error
	return out, err
}

func (r *TicketRepo) SaveBatch(ctx context.Context, tickets []domain.Ticket) error {
	if len(tickets) == 0 {
		return nil
	}
	return r.conn(ctx).Save(&tickets).Error
}

func (r *TicketRepo) ReservedByBooking(ctx context.Context, bookingID string) ([]domain.Ticket, error) {
	var out []domain.Ticket
	err := r.conn(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("booking_id = ? AND status = ?", bookingID, domain.TicketReserved).
		Order("id ASC").
		Find(&out).Error
	return out, err
}

func (r *TicketRepo) TicketByID(ctx context.Context, id string) (domain.Ticket, error) {
	var t domain.Ticket
	err := r.conn(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).First(&t, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.Ticket{}, domain.ErrTicketNotFound
	}
	return t, err
}

func (r *TicketRepo) ExpiredReserved(ctx context.Context, now time.Time) ([]domain.Ticket, error) {
	var out []domain.Ticket
	err := r.conn(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("status = ? AND reserved_until < ?", domain.TicketReserved, now).
		Order("id ASC").
		Find(&out).Error
	return out, err
}

func (r *TicketRepo) CountAvailable(ctx context.Context, eventID string) (int, error) {
	var n int64
	err := r.conn(ctx).Model(&domain.Ticket{}).
		Where("event_id = ? AND status = ?", eventID, domain.TicketAvailable).
		Count(&n).Error
	return int(n), err
}

func (r *TicketRepo) CreateEvent(ctx context.Context, ev domain.Event, tickets []domain.Ticket) error {
	return r.WithTx(ctx, func(txCtx context.Context) error {
		if err := r.conn(txCtx).Create(&ev).Error; err != nil {
			return err
		}
		// Seed in chunks; big events can carry thousands of units.
		return r.conn(txCtx).CreateInBatches(&tickets, 500).Error
	})
}

func (r *TicketRepo) EventByID(ctx context.Context, id string) (domain.Event, error) {
	var ev domain.Event
	err := r.conn(ctx).First(&ev, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.Event{}, domain.ErrEventNotFound
	}
	return ev, err
}

// MarkConsumed inserts the event id into the processed ledger. A duplicate
// key means the event was applied before; report false and change nothing.
func (r *TicketRepo) MarkConsumed(ctx context.Context, eventID, eventKey string) (bool, error) {
	rec := domain.EventConsumed{ID: eventID, EventKey: eventKey, ProcessedAt: time.Now().UTC()}
	res := r.conn(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&rec)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
