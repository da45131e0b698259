package testutil

import (
	"context"
	"time"

	"slotbook/models"
)

// Labels is a short slot day used by tests.
var Labels = []string{"09:00 AM", "09:10 AM", "09:20 AM", "09:30 AM"}

// Epoch is the fixed clock tests start from.
var Epoch = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

// PendingBooking builds a pending booking created at createdAt.
func PendingBooking(id, paymentID, orderID string, createdAt time.Time, slots ...string) models.Booking {
	if len(slots) == 0 {
		slots = []string{Labels[0]}
	}
	return models.Booking{
		ID:              id,
		Date:            "2025-03-15",
		TimeSlots:       slots,
		PerformanceType: "solo",
		Payment: models.Payment{
			PaymentID: paymentID,
			OrderID:   orderID,
			Amount:    50000,
			Currency:  "INR",
			Status:    models.PaymentPending,
		},
		Status:    models.BookingPending,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

// NoSleep returns immediately unless ctx is already done.
func NoSleep(ctx context.Context, _ time.Duration) error {
	return ctx.Err()
}

// Clock returns a func reporting t.
func Clock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
