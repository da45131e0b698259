package bookingsRepo

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"slotbook/models"

	"github.com/google/uuid"
)

// rowLookup reports the status of a flat row and whether it exists.
type rowLookup func(ctx context.Context, rowID string) (models.BookingStatus, bool, error)

func newPending(slots ...string) *models.Booking {
	id := uuid.NewString()
	now := time.Now().UTC().Truncate(time.Millisecond)
	return &models.Booking{
		ID:              id,
		Date:            "2025-03-15",
		TimeSlots:       slots,
		PerformanceType: "duet",
		Payment: models.Payment{
			PaymentID: "pay_" + id,
			OrderID:   "order_" + id,
			Amount:    50000,
			Currency:  "INR",
			Status:    models.PaymentPending,
		},
		Status:    models.BookingPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func assertRows(t *testing.T, rows rowLookup, b *models.Booking, want models.BookingStatus, exist bool) {
	t.Helper()
	for i := range b.TimeSlots {
		status, ok, err := rows(context.Background(), models.FlatRowID(b.ID, i))
		if err != nil {
			t.Fatalf("row %d lookup: %v", i, err)
		}
		if ok != exist {
			t.Errorf("row %d exists = %v, want %v", i, ok, exist)
			continue
		}
		if exist && status != want {
			t.Errorf("row %d status = %s, want %s", i, status, want)
		}
	}
}

// runRepositoryTests checks the guarantees every BookingRepository implementation must keep.
func runRepositoryTests(t *testing.T, repo BookingRepository, rows rowLookup) {
	ctx := context.Background()

	t.Run("create and find", func(t *testing.T) {
		b := newPending("09:00 AM", "09:10 AM")
		if err := repo.Create(ctx, b); err != nil {
			t.Fatalf("Create() error: %v", err)
		}
		for name, find := range map[string]func() (*models.Booking, error){
			"id":      func() (*models.Booking, error) { return repo.GetByID(ctx, b.ID) },
			"payment": func() (*models.Booking, error) { return repo.FindByPaymentID(ctx, b.Payment.PaymentID) },
			"order":   func() (*models.Booking, error) { return repo.FindByOrderID(ctx, b.Payment.OrderID) },
		} {
			got, err := find()
			if err != nil || got.ID != b.ID || len(got.TimeSlots) != 2 {
				t.Errorf("find by %s = %+v, %v", name, got, err)
			}
		}
		assertRows(t, rows, b, models.BookingPending, true)

		if _, err := repo.FindByPaymentID(ctx, "pay_missing_"+b.ID); !errors.Is(err, models.ErrBookingNotFound) {
			t.Errorf("missing payment error = %v", err)
		}
	})

	t.Run("confirm is idempotent", func(t *testing.T) {
		b := newPending("09:20 AM")
		if err := repo.Create(ctx, b); err != nil {
			t.Fatalf("Create() error: %v", err)
		}
		at := time.Now().UTC()
		changed, err := repo.Confirm(ctx, b.ID, b.Payment.PaymentID, b.Payment.OrderID, at)
		if err != nil || !changed {
			t.Fatalf("first Confirm() = %v, %v", changed, err)
		}
		changed, err = repo.Confirm(ctx, b.ID, b.Payment.PaymentID, b.Payment.OrderID, at)
		if err != nil || changed {
			t.Fatalf("second Confirm() = %v, %v; want false, nil", changed, err)
		}
		got, err := repo.GetByID(ctx, b.ID)
		if err != nil || got.Status != models.BookingConfirmed || got.Payment.Status != models.PaymentSuccess || !got.Payment.WebhookProcessed {
			t.Errorf("confirmed booking = %+v, %v", got, err)
		}
		assertRows(t, rows, b, models.BookingConfirmed, true)
	})

	t.Run("delete refuses confirmed booking", func(t *testing.T) {
		b := newPending("09:30 AM")
		if err := repo.Create(ctx, b); err != nil {
			t.Fatalf("Create() error: %v", err)
		}
		if _, err := repo.Confirm(ctx, b.ID, "", "", time.Now().UTC()); err != nil {
			t.Fatalf("Confirm() error: %v", err)
		}
		if _, err := repo.DeleteIfPending(ctx, b.ID); !errors.Is(err, models.ErrNotPending) {
			t.Fatalf("DeleteIfPending() error = %v, want ErrNotPending", err)
		}
		if _, err := repo.GetByID(ctx, b.ID); err != nil {
			t.Errorf("confirmed booking gone: %v", err)
		}
		assertRows(t, rows, b, models.BookingConfirmed, true)
	})

	t.Run("delete removes booking and rows", func(t *testing.T) {
		b := newPending("09:40 AM", "09:50 AM")
		if err := repo.Create(ctx, b); err != nil {
			t.Fatalf("Create() error: %v", err)
		}
		deleted, err := repo.DeleteIfPending(ctx, b.ID)
		if err != nil || deleted.ID != b.ID || len(deleted.TimeSlots) != 2 {
			t.Fatalf("DeleteIfPending() = %+v, %v", deleted, err)
		}
		if _, err := repo.GetByID(ctx, b.ID); !errors.Is(err, models.ErrBookingNotFound) {
			t.Errorf("GetByID() after delete error = %v", err)
		}
		assertRows(t, rows, b, "", false)
		if _, err := repo.DeleteIfPending(ctx, b.ID); !errors.Is(err, models.ErrBookingNotFound) {
			t.Errorf("second delete error = %v, want ErrBookingNotFound", err)
		}
	})

	t.Run("confirm and delete race", func(t *testing.T) {
		for i := 0; i < 5; i++ {
			b := newPending("10:00 AM")
			if err := repo.Create(ctx, b); err != nil {
				t.Fatalf("Create() error: %v", err)
			}

			var (
				wg        sync.WaitGroup
				confirmed bool
				confErr   error
				delErr    error
			)
			wg.Add(2)
			go func() {
				defer wg.Done()
				confirmed, confErr = repo.Confirm(ctx, b.ID, b.Payment.PaymentID, "", time.Now().UTC())
			}()
			go func() {
				defer wg.Done()
				_, delErr = repo.DeleteIfPending(ctx, b.ID)
			}()
			wg.Wait()

			switch {
			case confErr == nil && confirmed:
				if !errors.Is(delErr, models.ErrNotPending) {
					t.Fatalf("confirm won but delete error = %v", delErr)
				}
				got, err := repo.GetByID(ctx, b.ID)
				if err != nil || got.Status != models.BookingConfirmed {
					t.Fatalf("confirmed booking = %+v, %v", got, err)
				}
			case delErr == nil:
				if !errors.Is(confErr, models.ErrBookingNotFound) {
					t.Fatalf("delete won but confirm error = %v", confErr)
				}
			default:
				t.Fatalf("neither won: confirm = %v, %v; delete = %v", confirmed, confErr, delErr)
			}
		}
	})

	t.Run("list filters by status", func(t *testing.T) {
		b := newPending("10:10 AM")
		b.Date = "2031-01-01"
		if err := repo.Create(ctx, b); err != nil {
			t.Fatalf("Create() error: %v", err)
		}
		pending, err := repo.List(ctx, models.BookingFilter{Status: models.BookingPending, Date: b.Date})
		if err != nil {
			t.Fatalf("List() error: %v", err)
		}
		found := false
		for _, p := range pending {
			if p.Status != models.BookingPending {
				t.Errorf("listed %s booking %s", p.Status, p.ID)
			}
			found = found || p.ID == b.ID
		}
		if !found {
			t.Error("pending booking not listed")
		}
	})
}
