package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"
)

func sign(payload, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifyWebhookSignature(t *testing.T) {
	body := []byte(`{"event":"payment.captured"}`)
	secret := "whsec"

	tests := []struct {
		name   string
		body   []byte
		sig    string
		secret string
		want   bool
	}{
		{"valid", body, sign(string(body), secret), secret, true},
		{"tampered body", []byte(`{"event":"payment.failed"}`), sign(string(body), secret), secret, false},
		{"wrong secret", body, sign(string(body), "other"), secret, false},
		{"empty signature", body, "", secret, false},
		{"empty secret", body, sign(string(body), ""), "", false},
		{"uppercase hex", body, "A" + sign(string(body), secret)[1:], secret, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := VerifyWebhookSignature(tt.body, tt.sig, tt.secret); got != tt.want {
				t.Errorf("VerifyWebhookSignature() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestVerifyCheckoutSignature(t *testing.T) {
	secret := "key_secret"
	sig := sign("order_1|pay_1", secret)

	if !VerifyCheckoutSignature("order_1", "pay_1", sig, secret) {
		t.Error("valid checkout signature rejected")
	}
	if VerifyCheckoutSignature("order_1", "pay_2", sig, secret) {
		t.Error("signature accepted for another payment")
	}
	if VerifyCheckoutSignature("", "pay_1", sig, secret) {
		t.Error("signature accepted without an order id")
	}
}

func TestComputeSignatureMatchesHMAC(t *testing.T) {
	if got, want := ComputeSignature([]byte("abc"), "s"), sign("abc", "s"); got != want {
		t.Errorf("ComputeSignature() = %s, want %s", got, want)
	}
}
