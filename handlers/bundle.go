package handlers

import (
	"github.com/gin-gonic/gin"
)

// HandlerBundle groups all your endpoint handlers into one struct.
type HandlerBundle struct {
	// Gateway endpoints
	RazorpayWebhookHandler gin.HandlerFunc
	WebhookStatusHandler   gin.HandlerFunc
	CreateOrderHandler     gin.HandlerFunc
	VerifyPaymentHandler   gin.HandlerFunc

	// Booking endpoints
	CreateBookingHandler  gin.HandlerFunc
	GetSlotsHandler       gin.HandlerFunc
	BookingStatusHandler  gin.HandlerFunc
	ReleaseBookingHandler gin.HandlerFunc

	// Admin endpoints
	ListBookingsHandler gin.HandlerFunc
	SweepHandler        gin.HandlerFunc

	HealthHandler gin.HandlerFunc
}
