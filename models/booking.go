package models

import (
	"errors"
	"fmt"
	"time"
)

// BookingStatus is the lifecycle state of a logical booking.
type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
)

// ErrInvalidTransition is returned when a booking is asked to move to a state it cannot reach.
var ErrInvalidTransition = errors.New("invalid booking status transition")

// Booking is the authoritative reservation record. It owns one or more slot labels on a single date.
type Booking struct {
	ID              string                 `bson:"_id" json:"id" firestore:"id"`
	Date            string                 `bson:"date" json:"date" firestore:"date"`                                  // "2006-01-02"
	TimeSlots       []string               `bson:"timeSlots" json:"timeSlots" firestore:"timeSlots"`                   // e.g. ["09:00 AM", "09:10 AM"]
	PerformanceType string                 `bson:"performanceType" json:"performanceType" firestore:"performanceType"` // solo, duet, group...
	Details         map[string]interface{} `bson:"details,omitempty" json:"details,omitempty" firestore:"details,omitempty"`
	Payment         Payment                `bson:"payment" json:"payment" firestore:"payment"`
	Status          BookingStatus          `bson:"status" json:"status" firestore:"status"`
	FailureReason   string                 `bson:"failureReason,omitempty" json:"failureReason,omitempty" firestore:"failureReason,omitempty"`
	CreatedAt       time.Time              `bson:"createdAt" json:"createdAt" firestore:"createdAt"`
	UpdatedAt       time.Time              `bson:"updatedAt" json:"updatedAt" firestore:"updatedAt"`
}

// CanTransition reports whether the booking may move from its current status to next.
// Only pending bookings move, and only to confirmed or cancelled.
func (b *Booking) CanTransition(next BookingStatus) bool {
	if b.Status != BookingPending {
		return false
	}
	return next == BookingConfirmed || next == BookingCancelled
}

// Transition moves the booking to next, keeping the payment sub-record consistent with it.
func (b *Booking) Transition(next BookingStatus, at time.Time) error {
	if !b.CanTransition(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, b.Status, next)
	}
	b.Status = next
	b.UpdatedAt = at
	switch next {
	case BookingConfirmed:
		b.Payment.Status = PaymentSuccess
		b.Payment.WebhookProcessed = true
		b.Payment.CapturedAt = &at
	case BookingCancelled:
		b.Payment.Status = PaymentFailed
	}
	return nil
}

// IsStale reports whether a pending booking was created more than maxAge before now.
func (b *Booking) IsStale(now time.Time, maxAge time.Duration) bool {
	return b.Status == BookingPending && now.Sub(b.CreatedAt) > maxAge
}

// FlatBooking is the per-slot reporting projection of a Booking. It is never authoritative.
type FlatBooking struct {
	ID              string        `bson:"_id" json:"id" firestore:"id"`
	BookingID       string        `bson:"bookingId" json:"bookingId" firestore:"bookingId"`
	Date            string        `bson:"date" json:"date" firestore:"date"`
	TimeSlot        string        `bson:"timeSlot" json:"timeSlot" firestore:"timeSlot"`
	PerformanceType string        `bson:"performanceType" json:"performanceType" firestore:"performanceType"`
	Status          BookingStatus `bson:"status" json:"status" firestore:"status"`
	PaymentID       string        `bson:"paymentId,omitempty" json:"paymentId,omitempty" firestore:"paymentId,omitempty"`
	CreatedAt       time.Time     `bson:"createdAt" json:"createdAt" firestore:"createdAt"`
}

// FlatRowID is the deterministic id of the reporting row for slot index i of a booking.
func FlatRowID(bookingID string, i int) string {
	return fmt.Sprintf("%s_%d", bookingID, i)
}

// FlatRows projects a booking into one reporting row per slot.
func (b *Booking) FlatRows() []FlatBooking {
	rows := make([]FlatBooking, 0, len(b.TimeSlots))
	for i, label := range b.TimeSlots {
		rows = append(rows, FlatBooking{
			ID:              FlatRowID(b.ID, i),
			BookingID:       b.ID,
			Date:            b.Date,
			TimeSlot:        label,
			PerformanceType: b.PerformanceType,
			Status:          b.Status,
			PaymentID:       b.Payment.PaymentID,
			CreatedAt:       b.CreatedAt,
		})
	}
	return rows
}

// CreateBookingRequest is the optimistic write a client sends once checkout reports success.
type CreateBookingRequest struct {
	Date            string                 `json:"date" binding:"required"`
	TimeSlots       []string               `json:"timeSlots" binding:"required,min=1"`
	PerformanceType string                 `json:"performanceType" binding:"required"`
	Details         map[string]interface{} `json:"details"`
	Payment         CheckoutResult         `json:"payment" binding:"required"`
}

// BookingFilter narrows admin listings. Empty fields match everything.
type BookingFilter struct {
	Status BookingStatus
	Date   string
}
