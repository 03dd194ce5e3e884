package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Sweeper expires pending bookings whose payment window has closed. Expiry
// is the compensation path for the booking choreography: each expired
// booking emits the events that free its reserved inventory.
type Sweeper struct {
	svc      *BookingService
	interval time.Duration
	log      zerolog.Logger
}

func NewSweeper(svc *BookingService, interval time.Duration, log zerolog.Logger) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Sweeper{svc: svc, interval: interval, log: log.With().Str("component", "booking-sweeper").Logger()}
}

// Run blocks until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	t := time.NewTicker(s.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := s.svc.ExpireDue(ctx)
			if err != nil {
				s.log.Error().Err(err).Msg("booking expiry sweep failed")
				continue
			}
			if n > 0 {
				s.log.Info().Int("expired", n).Msg("pending bookings expired")
			}
		}
	}
}
