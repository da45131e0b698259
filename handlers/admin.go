package handlers

import (
	"context"
	"net/http"

	"slotbook/models"
	"slotbook/services/booking"
	"slotbook/services/reconcile"
	"slotbook/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Sweeper runs one stale booking sweep.
type Sweeper interface {
	Sweep(ctx context.Context) (reconcile.SweepReport, error)
}

// AdminHandler encapsulates elevated admin-level operations.
type AdminHandler struct {
	Bookings booking.BookingService
	Sweeper  Sweeper
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(bs booking.BookingService, sw Sweeper) *AdminHandler {
	return &AdminHandler{Bookings: bs, Sweeper: sw}
}

// ListBookingsHandler returns bookings, optionally filtered by status and date.
func (ah *AdminHandler) ListBookingsHandler(c *gin.Context) {
	filter := models.BookingFilter{
		Status: models.BookingStatus(c.Query("status")),
		Date:   c.Query("date"),
	}
	switch filter.Status {
	case "", models.BookingPending, models.BookingConfirmed, models.BookingCancelled:
	default:
		utils.JSONError(c, http.StatusBadRequest, "Invalid status", string(filter.Status))
		return
	}

	bookings, err := ah.Bookings.List(c.Request.Context(), filter)
	if err != nil {
		writeBookingError(c, err)
		return
	}
	if bookings == nil {
		bookings = []models.Booking{}
	}
	c.JSON(http.StatusOK, gin.H{"bookings": bookings, "count": len(bookings)})
}

// SweepHandler runs one sweep synchronously and returns its report.
func (ah *AdminHandler) SweepHandler(c *gin.Context) {
	report, err := ah.Sweeper.Sweep(c.Request.Context())
	if err != nil {
		zap.L().Error("Manual sweep failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Sweep failed", "report": report})
		return
	}
	getLogger(c).Info("manual sweep", zap.String("admin", c.GetString("adminSubject")), zap.Int("swept", report.Swept))
	c.JSON(http.StatusOK, report)
}
