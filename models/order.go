package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// OrderStatus is the closed set of order states. Unknown strings are rejected
// at the boundary, never coerced.
type OrderStatus string

const (
	OrderStatusPending       OrderStatus = "pending"
	OrderStatusConfirmed     OrderStatus = "confirmed"
	OrderStatusProcessing    OrderStatus = "processing"
	OrderStatusShipped       OrderStatus = "shipped"
	OrderStatusDelivered     OrderStatus = "delivered"
	OrderStatusCancelled     OrderStatus = "cancelled"
	OrderStatusPaymentFailed OrderStatus = "payment_failed"
)

// PaymentStatus tracks the payment side of an order independently of fulfilment.
type PaymentStatus string

const (
	PaymentStatusPending           PaymentStatus = "pending"
	PaymentStatusPaid              PaymentStatus = "paid"
	PaymentStatusFailed            PaymentStatus = "failed"
	PaymentStatusRefunded          PaymentStatus = "refunded"
	PaymentStatusPartiallyRefunded PaymentStatus = "partially_refunded"
)

// transitions is the single source of truth for the order state machine.
// Every status change in the service goes through CanTransition.
var transitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:       {OrderStatusConfirmed, OrderStatusPaymentFailed, OrderStatusCancelled},
	OrderStatusConfirmed:     {OrderStatusProcessing, OrderStatusShipped, OrderStatusCancelled},
	OrderStatusProcessing:    {OrderStatusShipped},
	OrderStatusShipped:       {OrderStatusDelivered},
	OrderStatusDelivered:     {},
	OrderStatusCancelled:     {},
	OrderStatusPaymentFailed: {},
}

// ParseOrderStatus validates a raw status string against the closed set.
func ParseOrderStatus(s string) (OrderStatus, bool) {
	st := OrderStatus(strings.ToLower(strings.TrimSpace(s)))
	_, ok := transitions[st]
	return st, ok
}

// CanTransition reports whether the state machine allows from -> to.
func CanTransition(from, to OrderStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the order has reached a final state. Only
// delivered and cancelled are terminal; a payment_failed order stays open to
// admin edits even though no automatic transition leaves it.
func IsTerminal(s OrderStatus) bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// CustomerCancellable reports whether the customer may cancel an order in
// this state. Later-stage cancellations go through support.
func CustomerCancellable(s OrderStatus) bool {
	return s == OrderStatusPending || s == OrderStatusConfirmed
}

// Address is a frozen copy of the shipping destination, not a live reference
// to the user's address book.
type Address struct {
	Name       string `bson:"name" json:"name" binding:"required"`
	Phone      string `bson:"phone" json:"phone" binding:"required"`
	Street     string `bson:"street" json:"street" binding:"required"`
	City       string `bson:"city" json:"city" binding:"required"`
	State      string `bson:"state" json:"state" binding:"required"`
	PostalCode string `bson:"postal_code" json:"postal_code" binding:"required"`
	Country    string `bson:"country" json:"country"`
}

// MissingFields returns the names of required address fields that are empty.
func (a *Address) MissingFields() []string {
	var missing []string
	check := func(name, v string) {
		if strings.TrimSpace(v) == "" {
			missing = append(missing, name)
		}
	}
	check("name", a.Name)
	check("phone", a.Phone)
	check("street", a.Street)
	check("city", a.City)
	check("state", a.State)
	check("postal_code", a.PostalCode)
	return missing
}

// OrderItem is a frozen snapshot of a product at order-creation time.
// Unit price and line total are integer minor units (paise).
type OrderItem struct {
	ProductID string `bson:"product_id" json:"product_id"`
	Name      string `bson:"name" json:"name"`
	UnitPrice int64  `bson:"unit_price" json:"unit_price"`
	Quantity  int    `bson:"quantity" json:"quantity"`
	LineTotal int64  `bson:"line_total" json:"line_total"`
}

// Order is the durable record of one purchase attempt. Amounts are frozen at
// creation and never recomputed from live product prices. Version backs the
// optimistic per-order serialization of transitions.
type Order struct {
	ID          string      `bson:"_id" json:"id"`
	OrderNumber string      `bson:"order_number" json:"order_number"`
	UserID      string      `bson:"user_id" json:"user_id"`
	Items       []OrderItem `bson:"items" json:"items"`

	Subtotal    int64  `bson:"subtotal" json:"subtotal"`
	ShippingFee int64  `bson:"shipping_fee" json:"shipping_fee"`
	Tax         int64  `bson:"tax" json:"tax"`
	Discount    int64  `bson:"discount" json:"discount"`
	TotalAmount int64  `bson:"total_amount" json:"total_amount"`
	Currency    string `bson:"currency" json:"currency"`

	ShippingAddress Address `bson:"shipping_address" json:"shipping_address"`

	OrderStatus   OrderStatus   `bson:"order_status" json:"order_status"`
	PaymentStatus PaymentStatus `bson:"payment_status" json:"payment_status"`

	PaymentIntentID  string `bson:"payment_intent_id,omitempty" json:"payment_intent_id,omitempty"`
	PaymentID        string `bson:"payment_id,omitempty" json:"payment_id,omitempty"`
	PaymentSignature string `bson:"payment_signature,omitempty" json:"-"`
	PaymentAttempts  int    `bson:"payment_attempts" json:"payment_attempts"`
	RefundAmount     int64  `bson:"refund_amount,omitempty" json:"refund_amount,omitempty"`

	// CartCleared is the write-ahead marker stamped once the user's cart has
	// been emptied for this order. A crash before the stamp means the cart
	// must not be assumed cleared.
	CartCleared bool `bson:"cart_cleared" json:"-"`

	AdminNotes        string     `bson:"admin_notes,omitempty" json:"admin_notes,omitempty"`
	EstimatedDelivery *time.Time `bson:"estimated_delivery,omitempty" json:"estimated_delivery,omitempty"`

	ConfirmedAt *time.Time `bson:"confirmed_at,omitempty" json:"confirmed_at,omitempty"`
	ShippedAt   *time.Time `bson:"shipped_at,omitempty" json:"shipped_at,omitempty"`
	DeliveredAt *time.Time `bson:"delivered_at,omitempty" json:"delivered_at,omitempty"`
	CancelledAt *time.Time `bson:"cancelled_at,omitempty" json:"cancelled_at,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
	Version   int64     `bson:"version" json:"-"`
}

// NewOrderNumber generates the human-readable order number shown to the
// customer, e.g. ORD-20260901-3F9A1C. Distinct from the internal record id.
func NewOrderNumber(now time.Time) string {
	entropy := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:6]
	return "ORD-" + now.UTC().Format("20060102") + "-" + entropy
}
