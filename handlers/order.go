package handlers

import (
	"context"
	"errors"
	"net/http"

	"slotbook/models"
	"slotbook/services/payment"
	"slotbook/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// OrderCreator creates gateway orders.
type OrderCreator interface {
	CreateOrder(ctx context.Context, req models.CreateOrderRequest) (map[string]interface{}, error)
}

// OrderHandler serves the checkout's server-side calls.
type OrderHandler struct {
	Orders OrderCreator
	// KeySecret verifies checkout signatures.
	KeySecret string
}

func NewOrderHandler(orders OrderCreator, keySecret string) *OrderHandler {
	return &OrderHandler{Orders: orders, KeySecret: keySecret}
}

// CreateRazorpayOrderHandler creates an automatically captured order for the checkout.
func (h *OrderHandler) CreateRazorpayOrderHandler(c *gin.Context) {
	var req models.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}

	order, err := h.Orders.CreateOrder(c.Request.Context(), req)
	switch {
	case errors.Is(err, payment.ErrInvalidAmount):
		utils.JSONError(c, http.StatusBadRequest, "Invalid amount", err.Error())
		return
	case errors.Is(err, payment.ErrGatewayNotConfigured):
		getLogger(c).Error("order requested without gateway credentials")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Payment gateway not configured"})
		return
	case err != nil:
		getLogger(c).Error("failed to create order", zap.Error(err))
		utils.JSONError(c, http.StatusInternalServerError, "Failed to create order", err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{"order": order})
}

// VerifyPaymentHandler checks a checkout signature without touching any booking.
func (h *OrderHandler) VerifyPaymentHandler(c *gin.Context) {
	var req models.VerifyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}
	if h.KeySecret == "" {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Payment gateway not configured"})
		return
	}

	valid := payment.VerifyCheckoutSignature(req.OrderID, req.PaymentID, req.Signature, h.KeySecret)
	if !valid {
		getLogger(c).Warn("checkout signature mismatch",
			zap.String("orderId", req.OrderID),
			zap.String("paymentId", req.PaymentID),
		)
	}
	c.JSON(http.StatusOK, gin.H{"valid": valid})
}
