package routes

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"slotbook/handlers"

	"github.com/gin-gonic/gin"
)

func TestPreflightReturnsNoContent(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ok := func(c *gin.Context) { c.Status(http.StatusOK) }
	r := gin.New()
	RegisterRoutes(r, &handlers.HandlerBundle{
		RazorpayWebhookHandler: ok,
		WebhookStatusHandler:   ok,
		CreateOrderHandler:     ok,
		VerifyPaymentHandler:   ok,
		CreateBookingHandler:   ok,
		GetSlotsHandler:        ok,
		BookingStatusHandler:   ok,
		ReleaseBookingHandler:  ok,
		ListBookingsHandler:    ok,
		SweepHandler:           ok,
	})

	for _, path := range []string{"/razorpayWebhook", "/createRazorpayOrder", "/webhookStatus"} {
		for _, withOrigin := range []bool{true, false} {
			req := httptest.NewRequest(http.MethodOptions, path, nil)
			if withOrigin {
				req.Header.Set("Origin", "https://example.com")
				req.Header.Set("Access-Control-Request-Method", http.MethodPost)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != http.StatusNoContent {
				t.Errorf("OPTIONS %s (origin %v): status = %d, want 204", path, withOrigin, w.Code)
			}
		}
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK {
		t.Errorf("GET /health status = %d", w.Code)
	}
}
