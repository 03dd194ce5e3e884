package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/omise/omise-go"
	"github.com/omise/omise-go/operations"
	"github.com/rs/zerolog"

	"github.com/jesuscorral/ticketwave/pkg/events"
	"github.com/jesuscorral/ticketwave/services/payment-service/internal/domain"
)

// PaymentRepository is the persistence seam for prepared payments.
type PaymentRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	Create(ctx context.Context, p *domain.Payment) error
	Save(ctx context.Context, p *domain.Payment) error
	ByBookingID(ctx context.Context, bookingID string) (*domain.Payment, error)
	MarkConsumed(ctx context.Context, eventID, eventKey string) (bool, error)
}

// Publisher is the outbound seam; satisfied by *bus.Bus.
type Publisher interface {
	Publish(ctx context.Context, e events.Integration) error
}

type PaymentService struct {
	repo   PaymentRepository
	omc    *omise.Client
	pub    Publisher
	source string
	log    zerolog.Logger
}

func NewPaymentService(repo PaymentRepository, omc *omise.Client, pub Publisher, source string, log zerolog.Logger) *PaymentService {
	return &PaymentService{repo: repo, omc: omc, pub: pub, source: source, log: log.With().Str("component", "payment").Logger()}
}

// Prepare records the charge data for a booking. Idempotent per integration
// event id; a duplicate delivery returns the existing payment.
func (s *PaymentService) Prepare(ctx context.Context, evt events.PreparePaymentData) (*domain.Payment, error) {
	var p *domain.Payment
	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		fresh, err := s.repo.MarkConsumed(txCtx, evt.ID, evt.EventType)
		if err != nil {
			return err
		}
		if !fresh {
			p, err = s.repo.ByBookingID(txCtx, evt.BookingID)
			if errors.Is(err, domain.ErrPaymentNotFound) {
				return nil
			}
			return err
		}
		p = &domain.Payment{
			ID:        uuid.NewString(),
			BookingID: evt.BookingID,
			UserID:    evt.UserID,
			Amount:    evt.Amount,
			Currency:  evt.Currency,
			Status:    domain.PaymentPending,
			CreatedAt: time.Now().UTC(),
		}
		return s.repo.Create(txCtx, p)
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// ChargeCard runs the prepared charge for a booking with a card token. The
// outcome is published as payment.completed or payment.failed; pending
// charge states wait for the webhook.
func (s *PaymentService) ChargeCard(ctx context.Context, bookingID, cardToken string) (*domain.Payment, error) {
	if cardToken == "" {
		return nil, errors.New("card token required")
	}
	p, err := s.repo.ByBookingID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if p.Status != domain.PaymentPending {
		return nil, domain.ErrAlreadySettled
	}

	ch := &omise.Charge{}
	req := &operations.CreateCharge{
		Amount:   p.Amount,
		Currency: p.Currency,
		Card:     cardToken,
		Metadata: map[string]any{"booking_id": p.BookingID},
	}
	if err := s.omc.Do(ch, req); err != nil {
		s.settleFailed(ctx, p, "", "create_charge_error", err.Error())
		return p, err
	}

	switch string(ch.Status) {
	case "successful":
		s.settleCompleted(ctx, p, ch.ID)
	case "failed":
		var fc, fm string
		if ch.FailureCode != nil {
			fc = *ch.FailureCode
		}
		if ch.FailureMessage != nil {
			fm = *ch.FailureMessage
		}
		s.settleFailed(ctx, p, ch.ID, fc, fm)
	default:
		// pending / awaiting_authorize: the webhook settles it later.
		p.ChargeID = ch.ID
		if err := s.repo.Save(ctx, p); err != nil {
			return p, err
		}
	}
	return p, nil
}

// SettleCharge applies an asynchronous charge outcome (webhook path).
func (s *PaymentService) SettleCharge(ctx context.Context, ch *omise.Charge) error {
	bookingID, _ := ch.Metadata["booking_id"].(string)
	if bookingID == "" {
		return errors.New("charge has no booking_id metadata")
	}
	p, err := s.repo.ByBookingID(ctx, bookingID)
	if err != nil {
		return err
	}
	if p.Status != domain.PaymentPending {
		return nil
	}
	if string(ch.Status) == "successful" {
		s.settleCompleted(ctx, p, ch.ID)
		return nil
	}
	var fc, fm string
	if ch.FailureCode != nil {
		fc = *ch.FailureCode
	}
	if ch.FailureMessage != nil {
		fm = *ch.FailureMessage
	}
	s.settleFailed(ctx, p, ch.ID, fc, fm)
	return nil
}

func (s *PaymentService) settleCompleted(ctx context.Context, p *domain.Payment, chargeID string) {
	p.Status = domain.PaymentSucceeded
	p.ChargeID = chargeID
	if err := s.repo.Save(ctx, p); err != nil {
		s.log.Error().Err(err).Str("bookingId", p.BookingID).Msg("save settled payment failed")
		return
	}
	out := events.PaymentCompleted{
		Envelope:  events.NewEnvelope(events.RKPaymentCompleted, s.source),
		BookingID: p.BookingID,
		PaymentID: p.ID,
		Amount:    p.Amount,
		Currency:  p.Currency,
	}
	if err := s.pub.Publish(ctx, out); err != nil {
		s.log.Error().Err(err).Str("bookingId", p.BookingID).Msg("publish payment.completed failed")
	}
}

func (s *PaymentService) settleFailed(ctx context.Context, p *domain.Payment, chargeID, code, message string) {
	p.Status = domain.PaymentFailed
	p.ChargeID = chargeID
	p.FailureCode = code
	p.FailureMessage = message
	if err := s.repo.Save(ctx, p); err != nil {
		s.log.Error().Err(err).Str("bookingId", p.BookingID).Msg("save failed payment failed")
		return
	}
	out := events.PaymentFailed{
		Envelope:       events.NewEnvelope(events.RKPaymentFailed, s.source),
		BookingID:      p.BookingID,
		PaymentID:      p.ID,
		FailureCode:    code,
		FailureMessage: message,
	}
	if err := s.pub.Publish(ctx, out); err != nil {
		s.log.Error().Err(err).Str("bookingId", p.BookingID).Msg("publish payment.failed failed")
	}
}

// PaymentForBooking returns the prepared payment for a booking.
func (s *PaymentService) PaymentForBooking(ctx context.Context, bookingID string) (*domain.Payment, error) {
	return s.repo.ByBookingID(ctx, bookingID)
}
