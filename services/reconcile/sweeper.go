package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	bookingsRepo "slotbook/database/repository/bookings"
	"slotbook/models"

	"go.uber.org/zap"
)

// SweepReason is recorded on bookings released by the sweeper.
const SweepReason = "payment not confirmed in time"

// SweepReport summarises one sweep.
type SweepReport struct {
	Scanned int `json:"scanned"`
	Swept   int `json:"swept"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
	// Resumed counts releases left unfinished by an earlier cancellation.
	Resumed int `json:"resumed"`
}

// Sweeper releases pending bookings whose webhook never arrived.
type Sweeper struct {
	Bookings   bookingsRepo.BookingRepository
	Canceller  *Canceller
	StaleAfter time.Duration
	Logger     *zap.Logger
	Now        func() time.Time
}

func (s *Sweeper) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Sweep scans pending bookings once. The scan is only a candidate list: each delete re-reads the
// booking's status, so one confirmed after the scan is left alone.
func (s *Sweeper) Sweep(ctx context.Context) (SweepReport, error) {
	var report SweepReport

	resumed, failed, err := s.Canceller.ResumePending(ctx)
	if err != nil {
		s.Logger.Warn("pending slot releases not resumed", zap.Error(err))
	}
	report.Resumed, report.Failed = resumed, failed

	pending, err := s.Bookings.List(ctx, models.BookingFilter{Status: models.BookingPending})
	if err != nil {
		return report, fmt.Errorf("list pending bookings: %w", err)
	}
	report.Scanned = len(pending)
	now := s.now()

	for i := range pending {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		b := &pending[i]
		if !b.IsStale(now, s.StaleAfter) {
			report.Skipped++
			continue
		}

		_, err := s.Canceller.CancelIfPending(ctx, b.ID, SweepReason)
		switch {
		case err == nil:
			report.Swept++
		case errors.Is(err, models.ErrNotPending), errors.Is(err, models.ErrBookingNotFound):
			// Confirmed or cancelled by the webhook while we were scanning.
			report.Skipped++
		default:
			report.Failed++
			s.Logger.Error("failed to sweep stale booking", zap.String("bookingId", b.ID), zap.Error(err))
		}
	}

	s.Logger.Info("stale booking sweep finished",
		zap.Int("scanned", report.Scanned),
		zap.Int("swept", report.Swept),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", report.Failed),
		zap.Int("resumed", report.Resumed),
	)
	return report, nil
}
