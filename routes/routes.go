package routes

import (
	"net/http"
	"time"

	"slotbook/handlers"
	"slotbook/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// WebhookPath is exempt from rate limiting.
const WebhookPath = "/razorpayWebhook"

// RegisterGatewayRoutes registers the payment gateway endpoints.
func RegisterGatewayRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	r.POST(WebhookPath, hb.RazorpayWebhookHandler)
	r.GET("/webhookStatus", hb.WebhookStatusHandler)
	r.POST("/createRazorpayOrder", hb.CreateOrderHandler)
	r.POST("/verifyPayment", hb.VerifyPaymentHandler)
}

// RegisterBookingRoutes registers the client booking flow.
func RegisterBookingRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	r.POST("/bookings", hb.CreateBookingHandler)
	r.GET("/slots/:date", hb.GetSlotsHandler)
	r.GET("/bookingStatus", hb.BookingStatusHandler)
	r.POST("/releaseBooking", hb.ReleaseBookingHandler)
}

// RegisterHealthRoute registers a health-check endpoint.
func RegisterHealthRoute(r *gin.Engine, hb *handlers.HandlerBundle) {
	if hb.HealthHandler != nil {
		r.GET("/health", hb.HealthHandler)
		return
	}
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}

// RegisterAdminRoutes sets up endpoints for admin operations.
func RegisterAdminRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	adminGroup := r.Group("/admin")
	{
		adminGroup.Use(middleware.JWTAuthAdminMiddleware())
		adminGroup.GET("/bookings", hb.ListBookingsHandler)
		adminGroup.POST("/sweep", hb.SweepHandler)
	}
}

// CORS answers preflight requests with 204 on every route.
func CORS() gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type", "X-Razorpay-Signature", "X-Razorpay-Event-Id"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	})
}

// preflight answers OPTIONS requests the CORS middleware let through, such as those without an Origin.
func preflight() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// RegisterRoutes centralizes registration of all endpoints and middleware.
func RegisterRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	r.Use(CORS(), preflight())

	RegisterGatewayRoutes(r, hb)
	RegisterBookingRoutes(r, hb)
	RegisterHealthRoute(r, hb)
	RegisterAdminRoutes(r, hb)
}
