package payment

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"slotbook/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrGatewayNotConfigured = errors.New("payment gateway not configured")
	ErrInvalidAmount        = errors.New("amount must be a positive integer in the smallest currency unit")
)

// OrderService creates gateway orders for the checkout. It persists nothing.
type OrderService struct {
	Gateway         OrderGateway
	DefaultCurrency string
	Logger          *zap.Logger
}

// NewOrderService returns a service that reports ErrGatewayNotConfigured for every call when
// keyID or keySecret is empty.
func NewOrderService(keyID, keySecret, defaultCurrency string, logger *zap.Logger) *OrderService {
	svc := &OrderService{DefaultCurrency: defaultCurrency, Logger: logger}
	if keyID != "" && keySecret != "" {
		svc.Gateway = NewRazorpayGateway(keyID, keySecret)
	}
	return svc
}

// ValidateAmount accepts only a present, finite, positive whole number.
func ValidateAmount(amount *float64) (int64, error) {
	if amount == nil {
		return 0, fmt.Errorf("%w: amount is required", ErrInvalidAmount)
	}
	a := *amount
	if math.IsNaN(a) || math.IsInf(a, 0) || a <= 0 || a != math.Trunc(a) || a >= math.MaxInt64 {
		return 0, fmt.Errorf("%w: got %v", ErrInvalidAmount, a)
	}
	return int64(a), nil
}

// CreateOrder validates req and creates an automatically captured order.
func (s *OrderService) CreateOrder(ctx context.Context, req models.CreateOrderRequest) (map[string]interface{}, error) {
	amount, err := ValidateAmount(req.Amount)
	if err != nil {
		return nil, err
	}
	if s.Gateway == nil {
		return nil, ErrGatewayNotConfigured
	}

	currency := req.Currency
	if currency == "" {
		currency = s.DefaultCurrency
	}
	if currency == "" {
		currency = "INR"
	}
	receipt := req.Receipt
	if receipt == "" {
		// The gateway caps receipts at 40 characters.
		receipt = "rcpt_" + strings.ReplaceAll(uuid.New().String(), "-", "")
	}

	params := map[string]interface{}{
		"amount":          amount,
		"currency":        currency,
		"receipt":         receipt,
		"payment_capture": 1,
	}
	if len(req.Notes) > 0 {
		params["notes"] = req.Notes
	}

	order, err := s.Gateway.CreateOrder(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("create gateway order: %w", err)
	}
	if s.Logger != nil {
		s.Logger.Info("gateway order created",
			zap.Any("orderId", order["id"]),
			zap.Int64("amount", amount),
			zap.String("currency", currency),
			zap.String("receipt", receipt),
		)
	}
	return order, nil
}
