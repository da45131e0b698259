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

// Search methods reported back to the gateway.
const (
	SearchByPaymentID = "paymentId"
	SearchByOrderID   = "orderId"
)

// Located is a booking found by the Locator.
type Located struct {
	Booking  *models.Booking
	Method   string
	Attempts int
}

// Locator finds the booking a webhook refers to. The client's optimistic booking write races the
// gateway's callback, so a miss is retried a fixed number of times before giving up.
type Locator struct {
	Bookings     bookingsRepo.BookingRepository
	InitialDelay time.Duration
	RetryDelay   time.Duration
	MaxAttempts  int
	Logger       *zap.Logger

	// Sleep waits for d or until ctx is done. Defaults to a timer.
	Sleep func(ctx context.Context, d time.Duration) error
}

func (l *Locator) sleep(ctx context.Context, d time.Duration) error {
	if l.Sleep != nil {
		return l.Sleep(ctx, d)
	}
	return sleepContext(ctx, d)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// MaxWait is the longest Locate sleeps before reporting not found.
func (l *Locator) MaxWait() time.Duration {
	if l.MaxAttempts < 1 {
		return l.InitialDelay
	}
	return l.InitialDelay + time.Duration(l.MaxAttempts-1)*l.RetryDelay
}

// LocateOnce tries the payment id, then the order id, without waiting.
func (l *Locator) LocateOnce(ctx context.Context, paymentID, orderID string) (*Located, error) {
	b, err := l.Bookings.FindByPaymentID(ctx, paymentID)
	if err == nil {
		return &Located{Booking: b, Method: SearchByPaymentID, Attempts: 1}, nil
	}
	if !errors.Is(err, models.ErrBookingNotFound) {
		return nil, err
	}
	b, err = l.Bookings.FindByOrderID(ctx, orderID)
	if err == nil {
		return &Located{Booking: b, Method: SearchByOrderID, Attempts: 1}, nil
	}
	return nil, err
}

// Locate waits InitialDelay, then makes up to MaxAttempts lookups spaced RetryDelay apart.
// It returns models.ErrBookingNotFound once the attempts are exhausted; store errors end it early.
func (l *Locator) Locate(ctx context.Context, paymentID, orderID string) (*Located, error) {
	if err := l.sleep(ctx, l.InitialDelay); err != nil {
		return nil, err
	}

	attempts := l.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	for attempt := 1; attempt <= attempts; attempt++ {
		found, err := l.LocateOnce(ctx, paymentID, orderID)
		if err == nil {
			found.Attempts = attempt
			return found, nil
		}
		if !errors.Is(err, models.ErrBookingNotFound) {
			return nil, fmt.Errorf("booking lookup attempt %d: %w", attempt, err)
		}

		if l.Logger != nil {
			l.Logger.Debug("booking not found yet",
				zap.String("paymentId", paymentID),
				zap.String("orderId", orderID),
				zap.Int("attempt", attempt),
			)
		}
		if attempt < attempts {
			if err := l.sleep(ctx, l.RetryDelay); err != nil {
				return nil, err
			}
		}
	}
	return nil, models.ErrBookingNotFound
}
