package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/jesuscorral/ticketwave/services/booking-service/internal/domain"
)

type BookingRepo struct{ db *gorm.DB }

func NewBookingRepo(db *gorm.DB) *BookingRepo {
	return &BookingRepo{db: db}
}

func (r *BookingRepo) Migrate() error {
	return r.db.AutoMigrate(&domain.Booking{}, &domain.EventConsumed{})
}

type txKey struct{}

// WithTx runs fn inside a transaction; nested calls join the active one.
func (r *BookingRepo) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return fn(ctx)
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

func (r *BookingRepo) conn(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx
	}
	return r.db.WithContext(ctx)
}

func (r *BookingRepo) Create(ctx context.Context, b *domain.Booking) error {
	return r.conn(ctx).Create(b).Error
}

func (r *BookingRepo) Save(ctx context.Context, b *domain.Booking) error {
	return r.conn(ctx).Save(b).Error
}

// ByID loads a booking; inside a transaction the row is locked so a status
// change and a concurrent consumer cannot race.
func (r *BookingRepo) ByID(ctx context.Context, id string) (*domain.Booking, error) {
	var b domain.Booking
	q := r.conn(ctx)
	if _, inTx := ctx.Value(txKey{}).(*gorm.DB); inTx {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	if err := q.First(&b, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrBookingNotFound
		}
		return nil, err
	}
	return &b, nil
}

// ExpiredPending returns PENDING bookings whose payment window has passed,
// row-locked for the expiry sweep.
func (r *BookingRepo) ExpiredPending(ctx context.Context, now time.Time) ([]domain.Booking, error) {
	var out []domain.Booking
	err := r.conn(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("status = ? AND expires_at < ?", domain.BookingPending, now).
		Order("id ASC").
		Find(&out).Error
	return out, err
}

func (r *BookingRepo) List(ctx context.Context, page, size int, userID, eventID string) ([]domain.Booking, int64, error) {
	if size <= 0 {
		size = 20
	}
	if page < 0 {
		page = 0
	}
	qb := r.conn(ctx).Model(&domain.Booking{})
	if userID != "" {
		qb = qb.Where("user_id = ?", userID)
	}
	if eventID != "" {
		qb = qb.Where("event_id = ?", eventID)
	}
	var total int64
	if err := qb.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var out []domain.Booking
	if err := qb.Order("created_at DESC").Limit(size).Offset(page * size).Find(&out).Error; err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// MarkConsumed records an integration event id in the processed ledger.
// Returns false when the id was seen before.
func (r *BookingRepo) MarkConsumed(ctx context.Context, eventID, eventKey string) (bool, error) {
	rec := domain.EventConsumed{ID: eventID, EventKey: eventKey, ProcessedAt: time.Now().UTC()}
	res := r.conn(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&rec)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
