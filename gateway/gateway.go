package gateway

// PaymentIntent is the gateway-side order handle. Only the identifier,
// amount and currency are kept locally; the intent is never mutated here.
type PaymentIntent struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// PaymentGateway wraps the third-party payment provider. Injected into the
// lifecycle service so tests can substitute doubles.
type PaymentGateway interface {
	// CreateIntent registers an order with the gateway for the exact frozen
	// amount in minor units, with the order number as the receipt reference.
	CreateIntent(amount int64, currency, receipt string, notes map[string]interface{}) (*PaymentIntent, error)
	// Refund asks the gateway to return amount minor units of a captured
	// payment.
	Refund(paymentID string, amount int64, notes map[string]interface{}) error
}
