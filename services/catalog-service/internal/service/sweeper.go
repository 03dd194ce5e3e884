package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Sweeper periodically releases expired reservations. It runs independently
// of any booking's lifecycle; a missed tick just means the next one catches
// the same units.
type Sweeper struct {
	svc      *ReservationService
	interval time.Duration
	log      zerolog.Logger
}

func NewSweeper(svc *ReservationService, interval time.Duration, log zerolog.Logger) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Sweeper{svc: svc, interval: interval, log: log.With().Str("component", "sweeper").Logger()}
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
			n, err := s.svc.ReleaseExpired(ctx)
			if err != nil {
				s.log.Error().Err(err).Msg("expiry sweep failed")
				continue
			}
			if n > 0 {
				s.log.Info().Int("released", n).Msg("expired reservations released")
			}
		}
	}
}
