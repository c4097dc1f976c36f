package models

import "time"

// Order event types published to Kafka/SNS for the notification and
// order-history surfaces.
const (
	EventOrderCreated     = "order_created"
	EventPaymentSucceeded = "payment_succeeded"
	EventPaymentFailed    = "payment_failed"
	EventOrderCancelled   = "order_cancelled"
	EventOrderShipped     = "order_shipped"
	EventOrderDelivered   = "order_delivered"
	EventOrderRefunded    = "order_refunded"
)

// OrderEvent is the standardized lifecycle event envelope.
type OrderEvent struct {
	Type          string        `json:"type"`
	OrderID       string        `json:"order_id"`
	OrderNumber   string        `json:"order_number"`
	UserID        string        `json:"user_id"`
	Amount        int64         `json:"amount"`
	Currency      string        `json:"currency"`
	OrderStatus   OrderStatus   `json:"order_status"`
	PaymentStatus PaymentStatus `json:"payment_status"`
	Timestamp     time.Time     `json:"timestamp"`
}
