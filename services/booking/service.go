package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"slotbook/models"
	"slotbook/services/payment"
	"slotbook/services/reconcile"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	dateLayout     = "2006-01-02"
	defaultRelease = "payment not confirmed"
)

func (s *DefaultBookingService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func validateDate(date string) error {
	if _, err := time.Parse(dateLayout, date); err != nil {
		return newValidationError("date", "expected YYYY-MM-DD, got %q", date)
	}
	return nil
}

// validateSlots checks that labels are configured, unique and adjacent in configured order.
func (s *DefaultBookingService) validateSlots(labels []string) error {
	if len(labels) == 0 {
		return newValidationError("timeSlots", "at least one slot is required")
	}
	index := make(map[string]int, len(s.SlotLabels))
	for i, l := range s.SlotLabels {
		index[l] = i
	}
	prev := -1
	for n, l := range labels {
		i, ok := index[l]
		if !ok {
			return newValidationError("timeSlots", "unknown slot %q", l)
		}
		if n > 0 && i != prev+1 {
			return newValidationError("timeSlots", "slots must be consecutive, %q does not follow %q", l, labels[n-1])
		}
		prev = i
	}
	return nil
}

func (s *DefaultBookingService) CreateBooking(ctx context.Context, req models.CreateBookingRequest) (*models.Booking, bool, error) {
	if err := validateDate(req.Date); err != nil {
		return nil, false, err
	}
	if err := s.validateSlots(req.TimeSlots); err != nil {
		return nil, false, err
	}
	if req.Payment.PaymentID == "" {
		return nil, false, newValidationError("payment.paymentId", "is required")
	}
	if s.CheckoutSecret != "" && req.Payment.Signature != "" {
		if !payment.VerifyCheckoutSignature(req.Payment.OrderID, req.Payment.PaymentID, req.Payment.Signature, s.CheckoutSecret) {
			return nil, false, ErrInvalidCheckoutSignature
		}
	}

	// A retried submission of the same checkout must not book twice.
	existing, err := s.Bookings.FindByPaymentID(ctx, req.Payment.PaymentID)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, models.ErrBookingNotFound) {
		return nil, false, err
	}

	if err := s.Slots.Reserve(ctx, req.Date, req.TimeSlots); err != nil {
		return nil, false, err
	}

	now := s.now()
	b := &models.Booking{
		ID:              uuid.New().String(),
		Date:            req.Date,
		TimeSlots:       req.TimeSlots,
		PerformanceType: req.PerformanceType,
		Details:         req.Details,
		Payment: models.Payment{
			PaymentID: req.Payment.PaymentID,
			OrderID:   req.Payment.OrderID,
			Signature: req.Payment.Signature,
			Amount:    req.Payment.Amount,
			Currency:  req.Payment.Currency,
			Status:    models.PaymentPending,
		},
		Status:    models.BookingPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.Bookings.Create(ctx, b); err != nil {
		if rerr := s.Slots.Release(context.WithoutCancel(ctx), req.Date, req.TimeSlots); rerr != nil {
			s.Logger.Error("failed to release slots after booking write failed",
				zap.String("date", req.Date),
				zap.Strings("timeSlots", req.TimeSlots),
				zap.Error(rerr),
			)
		}
		return nil, false, fmt.Errorf("create booking: %w", err)
	}

	s.Logger.Info("pending booking created",
		zap.String("bookingId", b.ID),
		zap.String("paymentId", b.Payment.PaymentID),
		zap.String("date", b.Date),
		zap.Strings("timeSlots", b.TimeSlots),
	)
	return b, true, nil
}

func (s *DefaultBookingService) GetSlots(ctx context.Context, date string) (*models.SlotDay, error) {
	if err := validateDate(date); err != nil {
		return nil, err
	}
	day, err := s.Slots.GetDay(ctx, date)
	if err != nil {
		return nil, err
	}
	return &models.SlotDay{Date: date, Slots: day}, nil
}

// Status reports the booking paid with paymentID. A booking already released is reported as
// cancelled for as long as its release record lives.
func (s *DefaultBookingService) Status(ctx context.Context, paymentID string) (*models.BookingStatusReport, error) {
	b, err := s.Bookings.FindByPaymentID(ctx, paymentID)
	if err == nil {
		return &models.BookingStatusReport{
			Found:         true,
			BookingID:     b.ID,
			Status:        b.Status,
			PaymentStatus: b.Payment.Status,
			FailureReason: b.FailureReason,
		}, nil
	}
	if !errors.Is(err, models.ErrBookingNotFound) {
		return nil, err
	}

	if s.Ledger != nil {
		rec, lerr := s.Ledger.Lookup(ctx, paymentID)
		if lerr != nil {
			s.Logger.Warn("release ledger unavailable", zap.String("paymentId", paymentID), zap.Error(lerr))
		} else if rec != nil {
			return &models.BookingStatusReport{
				Found:         true,
				BookingID:     rec.BookingID,
				Status:        models.BookingCancelled,
				PaymentStatus: models.PaymentFailed,
				FailureReason: rec.Reason,
			}, nil
		}
	}
	return nil, models.ErrBookingNotFound
}

func (s *DefaultBookingService) ReleaseByPayment(ctx context.Context, paymentID, reason string) (*reconcile.CancelResult, error) {
	if reason == "" {
		reason = defaultRelease
	}
	b, err := s.Bookings.FindByPaymentID(ctx, paymentID)
	if errors.Is(err, models.ErrBookingNotFound) {
		return s.resumeRelease(ctx, paymentID)
	}
	if err != nil {
		return nil, err
	}

	res, err := s.Canceller.CancelIfPending(ctx, b.ID, reason)
	if errors.Is(err, models.ErrBookingNotFound) {
		// Released by someone else since the lookup.
		return nil, nil
	}
	return res, err
}

// resumeRelease finishes a release interrupted after its booking was deleted. Nothing to do is
// reported as nil, nil.
func (s *DefaultBookingService) resumeRelease(ctx context.Context, paymentID string) (*reconcile.CancelResult, error) {
	if s.Ledger == nil {
		return nil, nil
	}
	rec, err := s.Ledger.Lookup(ctx, paymentID)
	if err != nil {
		s.Logger.Warn("release ledger unavailable", zap.String("paymentId", paymentID), zap.Error(err))
		return nil, nil
	}
	if rec == nil || !rec.Pending {
		return nil, nil
	}
	return s.Canceller.Resume(ctx, *rec)
}

func (s *DefaultBookingService) List(ctx context.Context, filter models.BookingFilter) ([]models.Booking, error) {
	if filter.Date != "" {
		if err := validateDate(filter.Date); err != nil {
			return nil, err
		}
	}
	return s.Bookings.List(ctx, filter)
}
