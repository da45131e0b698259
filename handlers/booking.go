package handlers

import (
	"errors"
	"net/http"

	"slotbook/models"
	"slotbook/services/booking"
	"slotbook/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// BookingHandler serves the client's booking flow.
type BookingHandler struct {
	Service booking.BookingService
}

func NewBookingHandler(svc booking.BookingService) *BookingHandler {
	return &BookingHandler{Service: svc}
}

type releaseBookingRequest struct {
	PaymentID string `json:"paymentId" binding:"required"`
	Reason    string `json:"reason"`
}

// writeBookingError maps booking service errors to responses.
func writeBookingError(c *gin.Context, err error) {
	var verr *booking.ValidationError
	switch {
	case errors.As(err, &verr):
		utils.JSONError(c, http.StatusBadRequest, "Invalid booking request", verr.Error())
	case errors.Is(err, booking.ErrInvalidCheckoutSignature):
		utils.JSONError(c, http.StatusBadRequest, "Invalid signature", "")
	case errors.Is(err, models.ErrUnknownSlot):
		utils.JSONError(c, http.StatusBadRequest, "Unknown slot", "")
	case errors.Is(err, models.ErrSlotUnavailable):
		utils.JSONError(c, http.StatusConflict, "Slot no longer available", "")
	case errors.Is(err, models.ErrBookingNotFound):
		c.JSON(http.StatusNotFound, gin.H{"found": false, "error": "Booking not found"})
	case errors.Is(err, models.ErrNotPending):
		c.JSON(http.StatusConflict, gin.H{"released": false, "error": "Booking is no longer pending"})
	default:
		getLogger(c).Error("booking request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

// CreateBookingHandler writes the optimistic pending booking after checkout success.
func (h *BookingHandler) CreateBookingHandler(c *gin.Context) {
	var req models.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}

	b, created, err := h.Service.CreateBooking(c.Request.Context(), req)
	if err != nil {
		writeBookingError(c, err)
		return
	}
	if !created {
		c.JSON(http.StatusOK, gin.H{"booking": b, "already_exists": true})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"booking": b})
}

// GetSlotsHandler returns the slot map of a date.
func (h *BookingHandler) GetSlotsHandler(c *gin.Context) {
	day, err := h.Service.GetSlots(c.Request.Context(), c.Param("date"))
	if err != nil {
		writeBookingError(c, err)
		return
	}
	c.JSON(http.StatusOK, day)
}

// BookingStatusHandler is polled by the client while it waits for the webhook.
func (h *BookingHandler) BookingStatusHandler(c *gin.Context) {
	paymentID := c.Query("paymentId")
	if paymentID == "" {
		utils.JSONError(c, http.StatusBadRequest, "paymentId is required", "")
		return
	}
	report, err := h.Service.Status(c.Request.Context(), paymentID)
	if err != nil {
		writeBookingError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// ReleaseBookingHandler frees the slots of a booking whose payment never resolved.
func (h *BookingHandler) ReleaseBookingHandler(c *gin.Context) {
	var req releaseBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}

	res, err := h.Service.ReleaseByPayment(c.Request.Context(), req.PaymentID, req.Reason)
	if err != nil {
		writeBookingError(c, err)
		return
	}
	if res == nil {
		c.JSON(http.StatusOK, gin.H{"released": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"released":    true,
		"booking_id":  res.Booking.ID,
		"slots_freed": res.SlotsFreed,
	})
}
