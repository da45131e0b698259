package reconcile_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"slotbook/models"
	"slotbook/services/reconcile"
	"slotbook/testutil"

	"go.uber.org/zap/zaptest"
)

// recordingSleeper records requested waits without sleeping. OnSleep runs after each one with the
// number of sleeps so far.
type recordingSleeper struct {
	mu      sync.Mutex
	waits   []time.Duration
	OnSleep func(n int)
}

func (s *recordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	s.waits = append(s.waits, d)
	n := len(s.waits)
	s.mu.Unlock()
	if s.OnSleep != nil {
		s.OnSleep(n)
	}
	return nil
}

func (s *recordingSleeper) Total() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	var total time.Duration
	for _, w := range s.waits {
		total += w
	}
	return total
}

type fixture struct {
	bookings  *testutil.BookingStore
	slots     *testutil.SlotStore
	ledger    *testutil.Ledger
	sleeper   *recordingSleeper
	locator   *reconcile.Locator
	canceller *reconcile.Canceller
	processor *reconcile.WebhookProcessor
}

func newFixture(t *testing.T, bookings ...models.Booking) *fixture {
	t.Helper()
	logger := zaptest.NewLogger(t)

	f := &fixture{
		bookings: testutil.NewBookingStore(bookings...),
		slots:    testutil.NewSlotStore(testutil.Labels...),
		ledger:   testutil.NewLedger(),
		sleeper:  &recordingSleeper{},
	}
	for _, b := range bookings {
		f.slots.Book(b.Date, b.TimeSlots...)
	}
	f.locator = &reconcile.Locator{
		Bookings:     f.bookings,
		InitialDelay: 2 * time.Second,
		RetryDelay:   3 * time.Second,
		MaxAttempts:  5,
		Logger:       logger,
		Sleep:        f.sleeper.Sleep,
	}
	f.canceller = &reconcile.Canceller{
		Bookings: f.bookings,
		Slots:    f.slots,
		Ledger:   f.ledger,
		Logger:   logger,
		Now:      testutil.Clock(testutil.Epoch),
		Sleep:    testutil.NoSleep,
	}
	f.processor = &reconcile.WebhookProcessor{
		Bookings:  f.bookings,
		Locator:   f.locator,
		Canceller: f.canceller,
		Ledger:    f.ledger,
		Claims:    f.ledger,
		Logger:    logger,
		Now:       testutil.Clock(testutil.Epoch),
	}
	return f
}

func event(kind, paymentID, orderID string) models.WebhookEvent {
	var evt models.WebhookEvent
	evt.Event = kind
	evt.Payload.Payment.Entity = models.GatewayPayment{
		ID:      paymentID,
		OrderID: orderID,
		Amount:  50000,
	}
	return evt
}
