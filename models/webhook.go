package models

// Gateway event kinds handled by the webhook receiver.
const (
	EventPaymentCaptured   = "payment.captured"
	EventPaymentFailed     = "payment.failed"
	EventPaymentAuthorized = "payment.authorized"
)

// WebhookEvent is the gateway's JSON event envelope.
type WebhookEvent struct {
	Entity    string         `json:"entity"`
	AccountID string         `json:"account_id"`
	Event     string         `json:"event"`
	Contains  []string       `json:"contains"`
	Payload   WebhookPayload `json:"payload"`
	CreatedAt int64          `json:"created_at"`
}

type WebhookPayload struct {
	Payment struct {
		Entity GatewayPayment `json:"entity"`
	} `json:"payment"`
}

// GatewayPayment is the payment entity embedded in payment.* events.
type GatewayPayment struct {
	ID               string                 `json:"id"`
	OrderID          string                 `json:"order_id"`
	Amount           int64                  `json:"amount"`
	Currency         string                 `json:"currency"`
	Status           string                 `json:"status"`
	Method           string                 `json:"method"`
	ErrorCode        string                 `json:"error_code"`
	ErrorDescription string                 `json:"error_description"`
	ErrorReason      string                 `json:"error_reason"`
	Notes            map[string]interface{} `json:"notes"`
}

// FailureReason picks the most descriptive failure text the gateway sent.
func (p GatewayPayment) FailureReason() string {
	switch {
	case p.ErrorDescription != "":
		return p.ErrorDescription
	case p.ErrorReason != "":
		return p.ErrorReason
	case p.ErrorCode != "":
		return p.ErrorCode
	}
	return "payment failed"
}

// BookingStatusReport is the response of GET /bookingStatus.
type BookingStatusReport struct {
	Found         bool          `json:"found"`
	BookingID     string        `json:"bookingId,omitempty"`
	Status        BookingStatus `json:"status,omitempty"`
	PaymentStatus PaymentStatus `json:"paymentStatus,omitempty"`
	FailureReason string        `json:"failureReason,omitempty"`
}
