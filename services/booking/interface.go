package booking

import (
	"context"
	"time"

	bookingsRepo "slotbook/database/repository/bookings"
	slotsRepo "slotbook/database/repository/slots"
	"slotbook/models"
	"slotbook/services/reconcile"

	"go.uber.org/zap"
)

// BookingService is the server side of the client's booking flow.
type BookingService interface {
	// CreateBooking reserves the requested slots and writes a pending booking. It reports false
	// when a booking for the same payment id already exists and returns that booking instead.
	CreateBooking(ctx context.Context, req models.CreateBookingRequest) (*models.Booking, bool, error)
	GetSlots(ctx context.Context, date string) (*models.SlotDay, error)
	Status(ctx context.Context, paymentID string) (*models.BookingStatusReport, error)
	// ReleaseByPayment cancels the pending booking paid with paymentID. A missing booking is not an error.
	ReleaseByPayment(ctx context.Context, paymentID, reason string) (*reconcile.CancelResult, error)
	List(ctx context.Context, filter models.BookingFilter) ([]models.Booking, error)
}

// DefaultBookingService implements BookingService.
type DefaultBookingService struct {
	Bookings  bookingsRepo.BookingRepository
	Slots     slotsRepo.SlotRepository
	Canceller *reconcile.Canceller
	Ledger    reconcile.ReleaseLedger
	Logger    *zap.Logger

	// SlotLabels is the ordered list of labels offered on every date.
	SlotLabels []string
	// CheckoutSecret verifies checkout signatures on incoming bookings. Empty skips the check.
	CheckoutSecret string

	Now func() time.Time
}
