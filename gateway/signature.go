package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// SignatureVerifier authenticates gateway callbacks. Payment callbacks are
// signed with the API key secret; webhook events with a distinct webhook
// secret. Both comparisons are constant-time.
type SignatureVerifier struct {
	keySecret     string
	webhookSecret string
}

func NewSignatureVerifier(keySecret, webhookSecret string) *SignatureVerifier {
	return &SignatureVerifier{keySecret: keySecret, webhookSecret: webhookSecret}
}

// VerifyPayment checks the signature over "intentID|paymentID".
func (v *SignatureVerifier) VerifyPayment(intentID, paymentID, signature string) bool {
	return verify([]byte(intentID+"|"+paymentID), signature, v.keySecret)
}

// VerifyWebhook checks the signature over the raw request body.
func (v *SignatureVerifier) VerifyWebhook(body []byte, signature string) bool {
	return verify(body, signature, v.webhookSecret)
}

func verify(payload []byte, signature, secret string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// SignPayment computes the expected payment signature. Exported for tests
// and local tooling; production signatures come from the gateway.
func SignPayment(intentID, paymentID, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(intentID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// SignWebhook computes the expected webhook signature over a raw body.
func SignWebhook(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
