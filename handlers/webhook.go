package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"slotbook/models"
	"slotbook/services/payment"
	"slotbook/services/reconcile"
	"slotbook/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	signatureHeader = "x-razorpay-signature"
	eventIDHeader   = "x-razorpay-event-id"
)

// WebhookProcessor applies a verified gateway event.
type WebhookProcessor interface {
	Process(ctx context.Context, eventID string, evt models.WebhookEvent) (*reconcile.WebhookResult, error)
}

// WebhookHandler receives the gateway's payment events.
type WebhookHandler struct {
	Processor WebhookProcessor
	Secret    string
	Now       func() time.Time
}

func NewWebhookHandler(processor WebhookProcessor, secret string) *WebhookHandler {
	return &WebhookHandler{Processor: processor, Secret: secret, Now: time.Now}
}

// RazorpayWebhookHandler verifies the signature over the raw body before anything else is read
// from it, then maps the processing result to the status codes the gateway retries on.
func (h *WebhookHandler) RazorpayWebhookHandler(c *gin.Context) {
	logger := getLogger(c)

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid request body", "")
		return
	}

	signature := c.GetHeader(signatureHeader)
	if signature == "" {
		utils.JSONError(c, http.StatusBadRequest, "Missing signature", "")
		return
	}
	if !payment.VerifyWebhookSignature(body, signature, h.Secret) {
		logger.Warn("webhook signature mismatch", zap.Int("bodyBytes", len(body)))
		utils.JSONError(c, http.StatusBadRequest, "Invalid signature", "")
		return
	}

	var evt models.WebhookEvent
	if err := json.Unmarshal(body, &evt); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid payload", err.Error())
		return
	}

	res, err := h.Processor.Process(c.Request.Context(), c.GetHeader(eventIDHeader), evt)
	if err != nil {
		if errors.Is(err, models.ErrBookingNotFound) {
			logger.Warn("webhook booking not found",
				zap.String("event", evt.Event),
				zap.String("paymentId", evt.Payload.Payment.Entity.ID),
				zap.Error(err),
			)
			c.JSON(http.StatusNotFound, gin.H{"error": "Booking not found"})
			return
		}
		logger.Error("webhook processing failed", zap.String("event", evt.Event), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	switch res.Action {
	case reconcile.ActionConfirmed:
		c.JSON(http.StatusOK, gin.H{
			"status":            "ok",
			"booking_id":        res.BookingID,
			"search_method":     res.SearchMethod,
			"already_processed": res.AlreadyProcessed,
		})
	case reconcile.ActionCancelled:
		c.JSON(http.StatusOK, gin.H{
			"status":      "ok",
			"booking_id":  res.BookingID,
			"slots_freed": res.SlotsFreed,
		})
	case reconcile.ActionAuthorized:
		c.JSON(http.StatusOK, gin.H{"status": "ok", "booking_found": res.BookingFound})
	case reconcile.ActionDuplicate:
		c.JSON(http.StatusOK, gin.H{"status": "duplicate"})
	default:
		resp := gin.H{"status": "ignored", "event": res.Event}
		if res.BookingID != "" {
			resp["booking_id"] = res.BookingID
		}
		if res.Reason != "" {
			resp["reason"] = res.Reason
		}
		c.JSON(http.StatusOK, resp)
	}
}

// WebhookStatusHandler lets operators check the receiver is reachable.
func (h *WebhookHandler) WebhookStatusHandler(c *gin.Context) {
	now := time.Now
	if h.Now != nil {
		now = h.Now
	}
	c.JSON(http.StatusOK, gin.H{
		"message":   "Webhook endpoint is active",
		"timestamp": now().UTC().Format(time.RFC3339),
	})
}
