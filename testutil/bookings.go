// Package testutil provides in-memory stores for package tests.
package testutil

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"slotbook/models"
)

// BookingStore is an in-memory BookingRepository. The Err fields, when set, are returned by the
// matching method instead of touching the data.
type BookingStore struct {
	mu       sync.Mutex
	bookings map[string]models.Booking
	rows     map[string]models.FlatBooking

	// FindCalls counts FindByPaymentID and FindByOrderID calls.
	FindCalls int

	CreateErr  error
	FindErr    error
	ConfirmErr error
	DeleteErr  error

	// BeforeDelete runs inside DeleteIfPending before the status is re-read.
	BeforeDelete func(id string)
}

func NewBookingStore(bookings ...models.Booking) *BookingStore {
	s := &BookingStore{
		bookings: make(map[string]models.Booking),
		rows:     make(map[string]models.FlatBooking),
	}
	for i := range bookings {
		s.put(bookings[i])
	}
	return s
}

func (s *BookingStore) put(b models.Booking) {
	s.bookings[b.ID] = cloneBooking(b)
	for _, row := range b.FlatRows() {
		s.rows[row.ID] = row
	}
}

func cloneBooking(b models.Booking) models.Booking {
	b.TimeSlots = append([]string(nil), b.TimeSlots...)
	return b
}

// Get returns a copy of the stored booking.
func (s *BookingStore) Get(id string) (models.Booking, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	return cloneBooking(b), ok
}

// Rows returns the reporting rows of a booking.
func (s *BookingStore) Rows(bookingID string) []models.FlatBooking {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.FlatBooking
	for _, r := range s.rows {
		if r.BookingID == bookingID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// SetStatus overwrites a booking's status, for simulating concurrent writers.
func (s *BookingStore) SetStatus(id string, status models.BookingStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.bookings[id]; ok {
		b.Status = status
		s.bookings[id] = b
	}
}

func (s *BookingStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.bookings)
}

func (s *BookingStore) Create(_ context.Context, b *models.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.CreateErr != nil {
		return s.CreateErr
	}
	if _, exists := s.bookings[b.ID]; exists {
		return fmt.Errorf("booking %s already exists", b.ID)
	}
	s.put(*b)
	return nil
}

func (s *BookingStore) GetByID(_ context.Context, id string) (*models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		return nil, models.ErrBookingNotFound
	}
	out := cloneBooking(b)
	return &out, nil
}

func (s *BookingStore) find(match func(models.Booking) bool) (*models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.FindCalls++
	if s.FindErr != nil {
		return nil, s.FindErr
	}
	for _, b := range s.bookings {
		if match(b) {
			out := cloneBooking(b)
			return &out, nil
		}
	}
	return nil, models.ErrBookingNotFound
}

func (s *BookingStore) FindByPaymentID(_ context.Context, paymentID string) (*models.Booking, error) {
	if paymentID == "" {
		return nil, models.ErrBookingNotFound
	}
	return s.find(func(b models.Booking) bool { return b.Payment.PaymentID == paymentID })
}

func (s *BookingStore) FindByOrderID(_ context.Context, orderID string) (*models.Booking, error) {
	if orderID == "" {
		return nil, models.ErrBookingNotFound
	}
	return s.find(func(b models.Booking) bool { return b.Payment.OrderID == orderID })
}

func (s *BookingStore) List(_ context.Context, filter models.BookingFilter) ([]models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Booking
	for _, b := range s.bookings {
		if filter.Status != "" && b.Status != filter.Status {
			continue
		}
		if filter.Date != "" && b.Date != filter.Date {
			continue
		}
		out = append(out, cloneBooking(b))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *BookingStore) Confirm(_ context.Context, id, paymentID, orderID string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ConfirmErr != nil {
		return false, s.ConfirmErr
	}
	b, ok := s.bookings[id]
	if !ok {
		return false, models.ErrBookingNotFound
	}
	if b.Status == models.BookingConfirmed {
		return false, nil
	}
	if err := b.Transition(models.BookingConfirmed, at); err != nil {
		return false, err
	}
	if paymentID != "" {
		b.Payment.PaymentID = paymentID
	}
	if orderID != "" {
		b.Payment.OrderID = orderID
	}
	s.put(b)
	return true, nil
}

func (s *BookingStore) MarkAuthorized(_ context.Context, id string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		return false, models.ErrBookingNotFound
	}
	if b.Status != models.BookingPending {
		return false, nil
	}
	b.Payment.Status = models.PaymentAuthorized
	b.Payment.WebhookProcessed = true
	b.UpdatedAt = at
	s.bookings[id] = b
	return true, nil
}

func (s *BookingStore) DeleteIfPending(_ context.Context, id string) (*models.Booking, error) {
	if s.BeforeDelete != nil {
		s.BeforeDelete(id)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.DeleteErr != nil {
		return nil, s.DeleteErr
	}
	b, ok := s.bookings[id]
	if !ok {
		return nil, models.ErrBookingNotFound
	}
	if b.Status != models.BookingPending {
		return nil, models.ErrNotPending
	}
	delete(s.bookings, id)
	for i := range b.TimeSlots {
		delete(s.rows, models.FlatRowID(id, i))
	}
	out := cloneBooking(b)
	return &out, nil
}
