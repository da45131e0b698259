package booking

import (
	"context"
	"errors"
	"testing"

	"slotbook/models"
	"slotbook/services/payment"
	"slotbook/services/reconcile"
	"slotbook/testutil"

	"go.uber.org/zap/zaptest"
)

type harness struct {
	svc      *DefaultBookingService
	bookings *testutil.BookingStore
	slots    *testutil.SlotStore
	ledger   *testutil.Ledger
}

func newHarness(t *testing.T, secret string) *harness {
	t.Helper()
	logger := zaptest.NewLogger(t)
	h := &harness{
		bookings: testutil.NewBookingStore(),
		slots:    testutil.NewSlotStore(testutil.Labels...),
		ledger:   testutil.NewLedger(),
	}
	h.svc = &DefaultBookingService{
		Bookings: h.bookings,
		Slots:    h.slots,
		Canceller: &reconcile.Canceller{
			Bookings: h.bookings,
			Slots:    h.slots,
			Ledger:   h.ledger,
			Logger:   logger,
			Sleep:    testutil.NoSleep,
		},
		Ledger:         h.ledger,
		Logger:         logger,
		SlotLabels:     testutil.Labels,
		CheckoutSecret: secret,
		Now:            testutil.Clock(testutil.Epoch),
	}
	return h
}

func request(paymentID string, slots ...string) models.CreateBookingRequest {
	return models.CreateBookingRequest{
		Date:            "2025-03-15",
		TimeSlots:       slots,
		PerformanceType: "solo",
		Payment: models.CheckoutResult{
			PaymentID: paymentID,
			OrderID:   "order_" + paymentID,
			Amount:    50000,
			Currency:  "INR",
		},
	}
}

func TestCreateBookingReservesSlots(t *testing.T) {
	h := newHarness(t, "")

	b, created, err := h.svc.CreateBooking(context.Background(), request("pay_1", "09:00 AM", "09:10 AM"))
	if err != nil {
		t.Fatalf("CreateBooking() error: %v", err)
	}
	if !created || b.Status != models.BookingPending || b.Payment.Status != models.PaymentPending {
		t.Errorf("booking = %+v, created = %v", b, created)
	}
	if !b.CreatedAt.Equal(testutil.Epoch) {
		t.Errorf("createdAt = %v", b.CreatedAt)
	}
	for _, l := range []string{"09:00 AM", "09:10 AM"} {
		if h.slots.Status("2025-03-15", l) != models.SlotBooked {
			t.Errorf("slot %s not booked", l)
		}
	}
	if rows := h.bookings.Rows(b.ID); len(rows) != 2 {
		t.Errorf("%d flat rows, want 2", len(rows))
	}
}

func TestCreateBookingIsIdempotentPerPayment(t *testing.T) {
	h := newHarness(t, "")
	ctx := context.Background()

	first, _, err := h.svc.CreateBooking(ctx, request("pay_1", "09:00 AM"))
	if err != nil {
		t.Fatalf("CreateBooking() error: %v", err)
	}
	second, created, err := h.svc.CreateBooking(ctx, request("pay_1", "09:00 AM"))
	if err != nil {
		t.Fatalf("retry error: %v", err)
	}
	if created || second.ID != first.ID {
		t.Errorf("retry created a second booking")
	}
}

func TestCreateBookingConflict(t *testing.T) {
	h := newHarness(t, "")
	ctx := context.Background()

	if _, _, err := h.svc.CreateBooking(ctx, request("pay_1", "09:10 AM")); err != nil {
		t.Fatalf("CreateBooking() error: %v", err)
	}
	_, _, err := h.svc.CreateBooking(ctx, request("pay_2", "09:00 AM", "09:10 AM"))
	if !errors.Is(err, models.ErrSlotUnavailable) {
		t.Fatalf("error = %v, want ErrSlotUnavailable", err)
	}
	if h.slots.Status("2025-03-15", "09:00 AM") != models.SlotAvailable {
		t.Error("partial reservation left 09:00 AM booked")
	}
}

func TestCreateBookingValidation(t *testing.T) {
	h := newHarness(t, "")

	tests := []struct {
		name string
		req  models.CreateBookingRequest
	}{
		{"bad date", func() models.CreateBookingRequest { r := request("p", "09:00 AM"); r.Date = "15/03/2025"; return r }()},
		{"unknown slot", request("p", "08:50 AM")},
		{"gap", request("p", "09:00 AM", "09:20 AM")},
		{"out of order", request("p", "09:10 AM", "09:00 AM")},
		{"duplicate", request("p", "09:00 AM", "09:00 AM")},
		{"no payment id", request("", "09:00 AM")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := h.svc.CreateBooking(context.Background(), tt.req)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("error = %v, want ValidationError", err)
			}
		})
	}
	if h.bookings.Len() != 0 {
		t.Error("invalid request wrote a booking")
	}
}

func TestCreateBookingChecksSignature(t *testing.T) {
	h := newHarness(t, "key_secret")
	req := request("pay_1", "09:00 AM")

	req.Payment.Signature = "forged"
	if _, _, err := h.svc.CreateBooking(context.Background(), req); !errors.Is(err, ErrInvalidCheckoutSignature) {
		t.Fatalf("error = %v, want ErrInvalidCheckoutSignature", err)
	}

	req.Payment.Signature = payment.ComputeSignature([]byte(req.Payment.OrderID+"|"+req.Payment.PaymentID), "key_secret")
	if _, _, err := h.svc.CreateBooking(context.Background(), req); err != nil {
		t.Fatalf("valid signature rejected: %v", err)
	}
}

func TestCreateBookingReleasesSlotsWhenWriteFails(t *testing.T) {
	h := newHarness(t, "")
	h.bookings.CreateErr = errors.New("write failed")

	_, _, err := h.svc.CreateBooking(context.Background(), request("pay_1", "09:00 AM"))
	if err == nil {
		t.Fatal("expected error")
	}
	if h.slots.Status("2025-03-15", "09:00 AM") != models.SlotAvailable {
		t.Error("slot left booked after failed write")
	}
}

func TestStatusFallsBackToReleaseRecord(t *testing.T) {
	h := newHarness(t, "")
	ctx := context.Background()

	b, _, err := h.svc.CreateBooking(ctx, request("pay_1", "09:00 AM"))
	if err != nil {
		t.Fatalf("CreateBooking() error: %v", err)
	}
	report, err := h.svc.Status(ctx, "pay_1")
	if err != nil || report.Status != models.BookingPending || report.BookingID != b.ID {
		t.Fatalf("Status() = %+v, %v", report, err)
	}

	if _, err := h.svc.Canceller.CancelIfPending(ctx, b.ID, "card declined"); err != nil {
		t.Fatalf("CancelIfPending() error: %v", err)
	}
	report, err = h.svc.Status(ctx, "pay_1")
	if err != nil {
		t.Fatalf("Status() after release error: %v", err)
	}
	if report.Status != models.BookingCancelled || report.FailureReason != "card declined" {
		t.Errorf("report = %+v", report)
	}

	if _, err := h.svc.Status(ctx, "pay_unknown"); !errors.Is(err, models.ErrBookingNotFound) {
		t.Errorf("unknown payment error = %v", err)
	}
}

func TestReleaseByPayment(t *testing.T) {
	h := newHarness(t, "")
	ctx := context.Background()

	if _, _, err := h.svc.CreateBooking(ctx, request("pay_1", "09:00 AM")); err != nil {
		t.Fatalf("CreateBooking() error: %v", err)
	}
	res, err := h.svc.ReleaseByPayment(ctx, "pay_1", "")
	if err != nil || res == nil || res.SlotsFreed != 1 {
		t.Fatalf("ReleaseByPayment() = %+v, %v", res, err)
	}
	if h.slots.Status("2025-03-15", "09:00 AM") != models.SlotAvailable {
		t.Error("slot still booked")
	}

	res, err = h.svc.ReleaseByPayment(ctx, "pay_1", "")
	if err != nil || res != nil {
		t.Errorf("second release = %+v, %v; want nil, nil", res, err)
	}
}

func TestReleaseByPaymentLeavesConfirmedBooking(t *testing.T) {
	h := newHarness(t, "")
	ctx := context.Background()

	b, _, err := h.svc.CreateBooking(ctx, request("pay_1", "09:00 AM"))
	if err != nil {
		t.Fatalf("CreateBooking() error: %v", err)
	}
	h.bookings.SetStatus(b.ID, models.BookingConfirmed)

	if _, err := h.svc.ReleaseByPayment(ctx, "pay_1", "timeout"); !errors.Is(err, models.ErrNotPending) {
		t.Fatalf("error = %v, want ErrNotPending", err)
	}
	if h.slots.Status("2025-03-15", "09:00 AM") != models.SlotBooked {
		t.Error("confirmed booking's slot released")
	}
}

func TestReleaseByPaymentFinishesInterruptedRelease(t *testing.T) {
	h := newHarness(t, "")
	ctx := context.Background()

	b, _, err := h.svc.CreateBooking(ctx, request("pay_1", "09:00 AM"))
	if err != nil {
		t.Fatalf("CreateBooking() error: %v", err)
	}
	down := errors.New("unavailable")
	h.slots.ReleaseErrs = []error{down, down, down}
	if _, err := h.svc.ReleaseByPayment(ctx, "pay_1", "timeout"); err == nil {
		t.Fatal("expected release error")
	}
	if _, ok := h.bookings.Get(b.ID); ok {
		t.Fatal("booking not deleted")
	}

	res, err := h.svc.ReleaseByPayment(ctx, "pay_1", "timeout")
	if err != nil || res == nil || res.SlotsFreed != 1 {
		t.Fatalf("retry = %+v, %v", res, err)
	}
	if h.slots.Status("2025-03-15", "09:00 AM") != models.SlotAvailable {
		t.Error("slot still booked")
	}
}
