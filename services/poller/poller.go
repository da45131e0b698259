package poller

import (
	"context"
	"errors"
	"fmt"
	"time"

	"slotbook/models"

	"go.uber.org/zap"
)

const (
	DefaultInterval = 3 * time.Second
	DefaultTimeout  = 30 * time.Second
)

var (
	// ErrTimedOut is returned when no final status arrives before the poller's timeout.
	ErrTimedOut = errors.New("timed out waiting for payment confirmation")
	// ErrNotFound is returned when the service no longer knows the payment.
	ErrNotFound = errors.New("booking not found")
)

// StatusSource is the booking service as seen by the poller.
type StatusSource interface {
	// Status returns ErrNotFound when no booking or release record exists for paymentID.
	Status(ctx context.Context, paymentID string) (*models.BookingStatusReport, error)
	Release(ctx context.Context, paymentID, reason string) error
}

// Outcome is the final state Watch observed.
type Outcome struct {
	Status    models.BookingStatus
	BookingID string
	Reason    string
	Polls     int
}

func (o Outcome) Confirmed() bool { return o.Status == models.BookingConfirmed }

// Poller watches one payment until its booking is confirmed or cancelled.
type Poller struct {
	Source   StatusSource
	Interval time.Duration
	Timeout  time.Duration
	Logger   *zap.Logger
}

func New(source StatusSource, logger *zap.Logger) *Poller {
	return &Poller{
		Source:   source,
		Interval: DefaultInterval,
		Timeout:  DefaultTimeout,
		Logger:   logger,
	}
}

func (p *Poller) logger() *zap.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return zap.NewNop()
}

// Watch polls immediately and then every Interval. A confirmed or cancelled booking ends the
// watch. When the booking is missing or the timeout passes, Watch asks the service to release
// the booking before returning the failure. Transient status errors are retried on the next tick.
// Each poll runs under the timeout's deadline, so a slow source cannot stretch the watch.
func (p *Poller) Watch(ctx context.Context, paymentID string) (*Outcome, error) {
	interval, timeout := p.Interval, p.Timeout
	if interval <= 0 {
		interval = DefaultInterval
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	log := p.logger().With(zap.String("paymentId", paymentID))

	wctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	timedOut := func(polls int) (*Outcome, error) {
		log.Warn("payment confirmation timed out", zap.Duration("timeout", timeout), zap.Int("polls", polls))
		p.release(ctx, log, paymentID, "payment confirmation timed out")
		return &Outcome{Polls: polls}, ErrTimedOut
	}

	polls := 0
	for {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if wctx.Err() != nil {
			return timedOut(polls)
		}

		polls++
		report, err := p.Source.Status(wctx, paymentID)
		switch {
		case errors.Is(err, ErrNotFound):
			log.Warn("booking not found while polling")
			p.release(ctx, log, paymentID, "booking not found")
			return &Outcome{Polls: polls}, ErrNotFound
		case err != nil:
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if wctx.Err() != nil {
				return timedOut(polls)
			}
			log.Warn("status poll failed", zap.Int("poll", polls), zap.Error(err))
		case report.Status == models.BookingConfirmed || report.Status == models.BookingCancelled:
			log.Info("payment resolved", zap.String("status", string(report.Status)), zap.Int("polls", polls))
			return &Outcome{
				Status:    report.Status,
				BookingID: report.BookingID,
				Reason:    report.FailureReason,
				Polls:     polls,
			}, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-wctx.Done():
			return timedOut(polls)
		case <-ticker.C:
		}
	}
}

// release is best effort; the scheduled sweep catches whatever it misses.
func (p *Poller) release(ctx context.Context, log *zap.Logger, paymentID, reason string) {
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := p.Source.Release(rctx, paymentID, reason); err != nil {
		log.Warn("defensive release failed", zap.Error(fmt.Errorf("release %s: %w", paymentID, err)))
	}
}
