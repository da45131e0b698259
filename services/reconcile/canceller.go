package reconcile

import (
	"context"
	"fmt"
	"time"

	bookingsRepo "slotbook/database/repository/bookings"
	slotsRepo "slotbook/database/repository/slots"
	"slotbook/models"

	"go.uber.org/zap"
)

const releaseAttempts = 3

// CancelResult describes a completed cancellation.
type CancelResult struct {
	Booking    *models.Booking
	SlotsFreed int
}

// Canceller is the single compensating step for every cancellation path: webhook failure,
// stale sweep and client-requested release. The booking and its rows go in one atomic delete,
// guarded by a fresh status read; the slot release that follows is keyed by date, so it is a
// separate idempotent step retried on its own. A pending release record written right after the
// delete carries the slots until they are freed, so a release that keeps failing can be finished
// by a later webhook delivery or sweep.
type Canceller struct {
	Bookings bookingsRepo.BookingRepository
	Slots    slotsRepo.SlotRepository
	Ledger   ReleaseLedger
	Logger   *zap.Logger

	Now   func() time.Time
	Sleep func(ctx context.Context, d time.Duration) error
}

func (c *Canceller) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

// CancelIfPending deletes a still-pending booking, frees its slots and records why.
// It returns models.ErrNotPending for a booking that has been confirmed meanwhile.
// When the slots cannot be freed the booking stays deleted and a pending release record is left
// behind for Resume.
func (c *Canceller) CancelIfPending(ctx context.Context, bookingID, reason string) (*CancelResult, error) {
	b, err := c.Bookings.DeleteIfPending(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	rec := models.ReleaseRecord{
		BookingID:  b.ID,
		PaymentID:  b.Payment.PaymentID,
		OrderID:    b.Payment.OrderID,
		Date:       b.Date,
		TimeSlots:  b.TimeSlots,
		Reason:     reason,
		SlotsFreed: len(b.TimeSlots),
		Pending:    true,
		ReleasedAt: c.now(),
	}
	c.record(ctx, rec)

	if err := c.finish(ctx, rec); err != nil {
		return nil, err
	}
	c.Logger.Info("booking cancelled",
		zap.String("bookingId", b.ID),
		zap.String("paymentId", b.Payment.PaymentID),
		zap.Int("slotsFreed", rec.SlotsFreed),
		zap.String("reason", reason),
	)
	return &CancelResult{Booking: b, SlotsFreed: rec.SlotsFreed}, nil
}

// Resume finishes a release whose booking is already deleted. Releasing is idempotent, so a
// record whose slots were in fact freed is simply marked done.
func (c *Canceller) Resume(ctx context.Context, rec models.ReleaseRecord) (*CancelResult, error) {
	if err := c.finish(ctx, rec); err != nil {
		return nil, err
	}
	c.Logger.Info("pending slot release finished",
		zap.String("bookingId", rec.BookingID),
		zap.String("paymentId", rec.PaymentID),
		zap.Int("slotsFreed", rec.SlotsFreed),
	)
	return &CancelResult{
		Booking: &models.Booking{
			ID:        rec.BookingID,
			Date:      rec.Date,
			TimeSlots: rec.TimeSlots,
			Payment:   models.Payment{PaymentID: rec.PaymentID, OrderID: rec.OrderID},
			Status:    models.BookingCancelled,
		},
		SlotsFreed: rec.SlotsFreed,
	}, nil
}

// ResumePending finishes every outstanding release in the ledger.
func (c *Canceller) ResumePending(ctx context.Context) (resumed, failed int, err error) {
	if c.Ledger == nil {
		return 0, 0, nil
	}
	pending, err := c.Ledger.Pending(ctx)
	if err != nil {
		return 0, 0, err
	}
	for _, rec := range pending {
		if err := ctx.Err(); err != nil {
			return resumed, failed, err
		}
		if _, err := c.Resume(ctx, rec); err != nil {
			failed++
			continue
		}
		resumed++
	}
	return resumed, failed, nil
}

// finish releases rec's slots and then marks the record done.
func (c *Canceller) finish(ctx context.Context, rec models.ReleaseRecord) error {
	if err := c.releaseSlots(ctx, rec.BookingID, rec.Date, rec.TimeSlots); err != nil {
		c.Logger.Error("booking deleted but slots not released",
			zap.String("bookingId", rec.BookingID),
			zap.String("date", rec.Date),
			zap.Strings("timeSlots", rec.TimeSlots),
			zap.Error(err),
		)
		return fmt.Errorf("release slots for booking %s: %w", rec.BookingID, err)
	}
	rec.Pending = false
	c.record(ctx, rec)
	return nil
}

func (c *Canceller) record(ctx context.Context, rec models.ReleaseRecord) {
	if c.Ledger == nil {
		return
	}
	if err := c.Ledger.Record(ctx, rec); err != nil {
		c.Logger.Warn("failed to record booking release",
			zap.String("bookingId", rec.BookingID),
			zap.Bool("pending", rec.Pending),
			zap.Error(err),
		)
	}
}

func (c *Canceller) releaseSlots(ctx context.Context, bookingID, date string, labels []string) error {
	var err error
	for attempt := 1; attempt <= releaseAttempts; attempt++ {
		if err = c.Slots.Release(ctx, date, labels); err == nil {
			return nil
		}
		c.Logger.Warn("slot release failed",
			zap.String("bookingId", bookingID),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		if attempt < releaseAttempts {
			sleep := sleepContext
			if c.Sleep != nil {
				sleep = c.Sleep
			}
			if serr := sleep(ctx, time.Duration(attempt)*500*time.Millisecond); serr != nil {
				return serr
			}
		}
	}
	return err
}
