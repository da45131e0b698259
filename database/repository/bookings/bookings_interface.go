package bookingsRepo

import (
	"context"
	"sort"
	"time"

	"slotbook/models"
)

// BookingRepository stores the authoritative booking documents together with their per-slot
// reporting rows. Rows are always written and deleted in the same atomic unit as their booking.
type BookingRepository interface {
	Create(ctx context.Context, booking *models.Booking) error
	GetByID(ctx context.Context, id string) (*models.Booking, error)
	FindByPaymentID(ctx context.Context, paymentID string) (*models.Booking, error)
	FindByOrderID(ctx context.Context, orderID string) (*models.Booking, error)
	List(ctx context.Context, filter models.BookingFilter) ([]models.Booking, error)

	// Confirm moves a pending booking to confirmed and records the authoritative gateway ids.
	// It reports false without writing when the booking is already confirmed.
	Confirm(ctx context.Context, id, paymentID, orderID string, at time.Time) (bool, error)
	// MarkAuthorized records an authorized payment on a pending booking without changing its status.
	MarkAuthorized(ctx context.Context, id string, at time.Time) (bool, error)
	// DeleteIfPending re-reads the booking and deletes it with its rows only if it is still pending.
	// It returns the deleted booking, models.ErrNotPending or models.ErrBookingNotFound.
	DeleteIfPending(ctx context.Context, id string) (*models.Booking, error)
}

// sortByCreated orders bookings oldest first.
func sortByCreated(bookings []models.Booking) {
	sort.Slice(bookings, func(i, j int) bool {
		return bookings[i].CreatedAt.Before(bookings[j].CreatedAt)
	})
}
