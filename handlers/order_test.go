package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"slotbook/models"
	"slotbook/services/payment"

	"github.com/gin-gonic/gin"
)

type mockGateway struct {
	calls int
}

func (m *mockGateway) CreateOrder(_ context.Context, params map[string]interface{}) (map[string]interface{}, error) {
	m.calls++
	return map[string]interface{}{
		"id":       "order_Nx3dQ8p2WbZ1aF",
		"entity":   "order",
		"amount":   params["amount"],
		"currency": params["currency"],
		"status":   "created",
	}, nil
}

func orderRouter(orders OrderCreator, secret string) *gin.Engine {
	h := NewOrderHandler(orders, secret)
	r := gin.New()
	r.POST("/createRazorpayOrder", h.CreateRazorpayOrderHandler)
	r.POST("/verifyPayment", h.VerifyPaymentHandler)
	return r
}

func postJSON(r *gin.Engine, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCreateOrder(t *testing.T) {
	gw := &mockGateway{}
	svc := &payment.OrderService{Gateway: gw, DefaultCurrency: "INR"}

	w := postJSON(orderRouter(svc, "secret"), "/createRazorpayOrder", `{"amount":150000,"currency":"INR"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	order, ok := decode(t, w)["order"].(map[string]interface{})
	if !ok || !strings.HasPrefix(order["id"].(string), "order_") {
		t.Errorf("order = %v", order)
	}
	if gw.calls != 1 {
		t.Errorf("gateway calls = %d", gw.calls)
	}
}

func TestCreateOrderBadAmount(t *testing.T) {
	gw := &mockGateway{}
	svc := &payment.OrderService{Gateway: gw}
	r := orderRouter(svc, "secret")

	for _, body := range []string{`{}`, `{"amount":0}`, `{"amount":-5}`, `{"amount":12.5}`, `{"amount":"100"}`} {
		w := postJSON(r, "/createRazorpayOrder", body)
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", body, w.Code)
		}
		if decode(t, w)["error"] == nil {
			t.Errorf("%s: no error field", body)
		}
	}
	if gw.calls != 0 {
		t.Errorf("gateway called %d times", gw.calls)
	}
}

func TestCreateOrderWithoutCredentials(t *testing.T) {
	svc := payment.NewOrderService("", "", "INR", nil)

	w := postJSON(orderRouter(svc, ""), "/createRazorpayOrder", `{"amount":100}`)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
	if got := decode(t, w)["error"]; got != "Payment gateway not configured" {
		t.Errorf("error = %v", got)
	}
}

func TestVerifyPayment(t *testing.T) {
	r := orderRouter(&mockOrders{}, "key_secret")
	sig := payment.ComputeSignature([]byte("order_1|pay_1"), "key_secret")

	w := postJSON(r, "/verifyPayment", `{"orderId":"order_1","paymentId":"pay_1","signature":"`+sig+`"}`)
	if w.Code != http.StatusOK || decode(t, w)["valid"] != true {
		t.Errorf("valid signature: %d %s", w.Code, w.Body.String())
	}

	w = postJSON(r, "/verifyPayment", `{"orderId":"order_1","paymentId":"pay_2","signature":"`+sig+`"}`)
	if w.Code != http.StatusOK || decode(t, w)["valid"] != false {
		t.Errorf("mismatched signature: %d %s", w.Code, w.Body.String())
	}

	w = postJSON(r, "/verifyPayment", `{"orderId":"order_1"}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("incomplete body: status = %d, want 400", w.Code)
	}
}

type mockOrders struct{}

func (mockOrders) CreateOrder(context.Context, models.CreateOrderRequest) (map[string]interface{}, error) {
	return nil, nil
}
