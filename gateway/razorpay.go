package gateway

import (
	"fmt"

	razorpay "github.com/razorpay/razorpay-go"
)

// RazorpayGateway implements PaymentGateway against the Razorpay Orders and
// Refunds APIs.
type RazorpayGateway struct {
	client *razorpay.Client
}

func NewRazorpayGateway(keyID, keySecret string) *RazorpayGateway {
	return &RazorpayGateway{client: razorpay.NewClient(keyID, keySecret)}
}

func (g *RazorpayGateway) CreateIntent(amount int64, currency, receipt string, notes map[string]interface{}) (*PaymentIntent, error) {
	data := map[string]interface{}{
		"amount":   amount,
		"currency": currency,
		"receipt":  receipt,
	}
	if len(notes) > 0 {
		data["notes"] = notes
	}

	body, err := g.client.Order.Create(data, nil)
	if err != nil {
		return nil, fmt.Errorf("razorpay order create failed: %w", err)
	}

	id, ok := body["id"].(string)
	if !ok || id == "" {
		return nil, fmt.Errorf("razorpay order create returned no id")
	}

	intent := &PaymentIntent{ID: id, Amount: amount, Currency: currency}
	if amt, ok := body["amount"].(float64); ok {
		intent.Amount = int64(amt)
	}
	if cur, ok := body["currency"].(string); ok && cur != "" {
		intent.Currency = cur
	}
	return intent, nil
}

func (g *RazorpayGateway) Refund(paymentID string, amount int64, notes map[string]interface{}) error {
	data := map[string]interface{}{}
	if len(notes) > 0 {
		data["notes"] = notes
	}

	if _, err := g.client.Payment.Refund(paymentID, int(amount), data, nil); err != nil {
		return fmt.Errorf("razorpay refund failed for payment %s: %w", paymentID, err)
	}
	return nil
}
