package payment

import (
	"context"

	razorpay "github.com/razorpay/razorpay-go"
)

// OrderGateway creates orders at the payment gateway.
type OrderGateway interface {
	CreateOrder(ctx context.Context, params map[string]interface{}) (map[string]interface{}, error)
}

// RazorpayGateway is the OrderGateway backed by the Razorpay Orders API.
type RazorpayGateway struct {
	client *razorpay.Client
}

func NewRazorpayGateway(keyID, keySecret string) *RazorpayGateway {
	return &RazorpayGateway{client: razorpay.NewClient(keyID, keySecret)}
}

// CreateOrder calls the Orders API. The SDK does not take a context, so ctx only guards the call
// from starting after cancellation.
func (g *RazorpayGateway) CreateOrder(ctx context.Context, params map[string]interface{}) (map[string]interface{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return g.client.Order.Create(params, nil)
}
