package service

import (
	"context"
	"time"
)

// StartExpirySweeper runs a background loop that removes expired pending
// reservations. Pending rows hold no capacity, so the sweep is pure
// housekeeping: it is idempotent, touches only pending rows and never
// cascades into the confirmed ledger. It blocks until the context is
// cancelled, so it should be launched in a separate goroutine.
func (s *Service) StartExpirySweeper(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.SweepInterval)
	defer ticker.Stop()

	s.logger.Info("Reservation expiry sweeper started")

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Reservation expiry sweeper stopped")
			return
		case <-ticker.C:
			s.SweepExpired(ctx)
		}
	}
}

// SweepExpired deletes pending reservations whose confirmation window has
// closed. Failures are logged and retried on the next tick.
func (s *Service) SweepExpired(ctx context.Context) {
	deleted, err := s.Reservations.DeleteExpiredPending(ctx, time.Now())
	if err != nil {
		s.logger.WithError(err).Error("Failed to sweep expired pending reservations")
		return
	}
	if deleted > 0 {
		s.metrics.SweptReservations.Add(float64(deleted))
		s.logger.WithField("deleted", deleted).Info("Swept expired pending reservations")
	}
}
