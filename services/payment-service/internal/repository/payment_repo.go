package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/jesuscorral/ticketwave/services/payment-service/internal/domain"
)

type PaymentRepo struct{ db *gorm.DB }

func NewPaymentRepo(db *gorm.DB) *PaymentRepo {
	return &PaymentRepo{db: db}
}

func (r *PaymentRepo) Migrate() error {
	return r.db.AutoMigrate(&domain.Payment{}, &domain.EventConsumed{})
}

type txKey struct{}

func (r *PaymentRepo) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return fn(ctx)
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

func (r *PaymentRepo) conn(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx
	}
	return r.db.WithContext(ctx)
}

func (r *PaymentRepo) Create(ctx context.Context, p *domain.Payment) error {
	return r.conn(ctx).Create(p).Error
}

func (r *PaymentRepo) Save(ctx context.Context, p *domain.Payment) error {
	return r.conn(ctx).Save(p).Error
}

func (r *PaymentRepo) ByBookingID(ctx context.Context, bookingID string) (*domain.Payment, error) {
	var p domain.Payment
	q := r.conn(ctx)
	if _, inTx := ctx.Value(txKey{}).(*gorm.DB); inTx {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	if err := q.First(&p, "booking_id = ?", bookingID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrPaymentNotFound
		}
		return nil, err
	}
	return &p, nil
}

// MarkConsumed records an integration event id in the processed ledger.
// Returns false when the id was seen before.
func (r *PaymentRepo) MarkConsumed(ctx context.Context, eventID, eventKey string) (bool, error) {
	rec := domain.EventConsumed{ID: eventID, EventKey: eventKey, ProcessedAt: time.Now().UTC()}
	res := r.conn(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&rec)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
