package models

import "time"

// PaymentStatus tracks what the gateway has told us about a booking's payment.
type PaymentStatus string

const (
	PaymentPending    PaymentStatus = "pending"
	PaymentAuthorized PaymentStatus = "authorized"
	PaymentSuccess    PaymentStatus = "success"
	PaymentFailed     PaymentStatus = "failed"
)

// Payment is embedded in every Booking.
type Payment struct {
	PaymentID        string        `bson:"paymentId" json:"paymentId" firestore:"paymentId"`
	OrderID          string        `bson:"orderId" json:"orderId" firestore:"orderId"`
	Signature        string        `bson:"signature,omitempty" json:"signature,omitempty" firestore:"signature,omitempty"`
	Amount           int64         `bson:"amount" json:"amount" firestore:"amount"` // smallest currency unit
	Currency         string        `bson:"currency" json:"currency" firestore:"currency"`
	Status           PaymentStatus `bson:"status" json:"status" firestore:"status"`
	WebhookProcessed bool          `bson:"webhookProcessed" json:"webhookProcessed" firestore:"webhookProcessed"`
	CapturedAt       *time.Time    `bson:"capturedAt,omitempty" json:"capturedAt,omitempty" firestore:"capturedAt,omitempty"`
}

// CheckoutResult is what the browser receives from the gateway checkout on success.
type CheckoutResult struct {
	PaymentID string `json:"paymentId" binding:"required"`
	OrderID   string `json:"orderId"`
	Signature string `json:"signature"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
}

// CreateOrderRequest is the body of POST /createRazorpayOrder. Amount is a pointer so a missing
// value can be told apart from zero.
type CreateOrderRequest struct {
	Amount   *float64               `json:"amount"`
	Currency string                 `json:"currency"`
	Receipt  string                 `json:"receipt"`
	Notes    map[string]interface{} `json:"notes"`
}

// VerifyPaymentRequest carries the checkout handler's signature for server-side verification.
type VerifyPaymentRequest struct {
	OrderID   string `json:"orderId" binding:"required"`
	PaymentID string `json:"paymentId" binding:"required"`
	Signature string `json:"signature" binding:"required"`
}

// ReleaseRecord remembers why a booking was released after the booking itself is gone.
// While Pending is set the booking is deleted but its slots may still be booked; Date and
// TimeSlots are kept so the release can be finished later.
type ReleaseRecord struct {
	BookingID  string    `json:"bookingId"`
	PaymentID  string    `json:"paymentId"`
	OrderID    string    `json:"orderId,omitempty"`
	Date       string    `json:"date"`
	TimeSlots  []string  `json:"timeSlots"`
	Reason     string    `json:"reason"`
	SlotsFreed int       `json:"slotsFreed"`
	Pending    bool      `json:"pending,omitempty"`
	ReleasedAt time.Time `json:"releasedAt"`
}
