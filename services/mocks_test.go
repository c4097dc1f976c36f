package services

import (
	"context"
	"time"

	"order-lifecycle-service/gateway"
	"order-lifecycle-service/models"
	"order-lifecycle-service/repository"

	"go.mongodb.org/mongo-driver/bson"
)

// mockOrderRepo keeps orders in memory and applies version-guarded updates
// the same way the Mongo implementation does.
type mockOrderRepo struct {
	orders    map[string]*models.Order
	createErr error

	lastFilter repository.ListFilter
	listOrders []models.Order
	listTotal  int64
	listErr    error
}

func newMockOrderRepo() *mockOrderRepo {
	return &mockOrderRepo{orders: make(map[string]*models.Order)}
}

func (m *mockOrderRepo) Create(_ context.Context, order *models.Order) error {
	if m.createErr != nil {
		return m.createErr
	}
	cp := *order
	m.orders[order.ID] = &cp
	return nil
}

func (m *mockOrderRepo) FindByID(_ context.Context, id string) (*models.Order, error) {
	o, ok := m.orders[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *mockOrderRepo) FindByIDAndUserID(_ context.Context, id, userID string) (*models.Order, error) {
	o, ok := m.orders[id]
	if !ok || o.UserID != userID {
		return nil, repository.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *mockOrderRepo) FindByIntentID(_ context.Context, intentID string) (*models.Order, error) {
	for _, o := range m.orders {
		if o.PaymentIntentID == intentID {
			cp := *o
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *mockOrderRepo) FindByUserID(_ context.Context, userID string, _, _ int) ([]models.Order, int64, error) {
	var out []models.Order
	for _, o := range m.orders {
		if o.UserID == userID {
			out = append(out, *o)
		}
	}
	return out, int64(len(out)), nil
}

func (m *mockOrderRepo) List(_ context.Context, filter repository.ListFilter, _, _ int) ([]models.Order, int64, error) {
	m.lastFilter = filter
	if m.listErr != nil {
		return nil, 0, m.listErr
	}
	return m.listOrders, m.listTotal, nil
}

func (m *mockOrderRepo) MarkCartCleared(_ context.Context, id string) error {
	o, ok := m.orders[id]
	if !ok {
		return repository.ErrNotFound
	}
	o.CartCleared = true
	return nil
}

func (m *mockOrderRepo) SetPaymentIntent(_ context.Context, id, intentID, currency string) error {
	o, ok := m.orders[id]
	if !ok {
		return repository.ErrNotFound
	}
	o.PaymentIntentID = intentID
	o.Currency = currency
	return nil
}

func (m *mockOrderRepo) UpdateWithVersion(_ context.Context, id string, version int64, set bson.M, inc bson.M) (*models.Order, error) {
	o, ok := m.orders[id]
	if !ok || o.Version != version {
		return nil, repository.ErrVersionConflict
	}
	for key, val := range set {
		switch key {
		case "order_status":
			o.OrderStatus = val.(models.OrderStatus)
		case "payment_status":
			o.PaymentStatus = val.(models.PaymentStatus)
		case "payment_id":
			o.PaymentID = val.(string)
		case "payment_signature":
			o.PaymentSignature = val.(string)
		case "admin_notes":
			o.AdminNotes = val.(string)
		case "refund_amount":
			o.RefundAmount = val.(int64)
		case "confirmed_at":
			t := val.(time.Time)
			o.ConfirmedAt = &t
		case "shipped_at":
			t := val.(time.Time)
			o.ShippedAt = &t
		case "delivered_at":
			t := val.(time.Time)
			o.DeliveredAt = &t
		case "cancelled_at":
			t := val.(time.Time)
			o.CancelledAt = &t
		case "estimated_delivery":
			t := val.(time.Time)
			o.EstimatedDelivery = &t
		}
	}
	if n, ok := inc["payment_attempts"]; ok {
		o.PaymentAttempts += n.(int)
	}
	o.Version++
	o.UpdatedAt = time.Now().UTC()
	cp := *o
	return &cp, nil
}

// mockCartRepo holds a single cart plus the idempotency-key map.
type mockCartRepo struct {
	cart      *models.Cart
	getErr    error
	deleteErr error
	deleted   bool
	idem      map[string]string
}

func newMockCartRepo(cart *models.Cart) *mockCartRepo {
	return &mockCartRepo{cart: cart, idem: make(map[string]string)}
}

func (m *mockCartRepo) GetCart(_ context.Context, _ string) (*models.Cart, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.cart, nil
}

func (m *mockCartRepo) SaveCart(_ context.Context, cart *models.Cart) error {
	m.cart = cart
	return nil
}

func (m *mockCartRepo) DeleteCart(_ context.Context, _ string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.deleted = true
	m.cart = nil
	return nil
}

func (m *mockCartRepo) GetIdempotency(_ context.Context, key string) (string, error) {
	return m.idem[key], nil
}

func (m *mockCartRepo) SetIdempotency(_ context.Context, key, orderID string, _ time.Duration) error {
	m.idem[key] = orderID
	return nil
}

type refundCall struct {
	paymentID string
	amount    int64
}

// mockGateway returns a canned intent and records refund calls.
type mockGateway struct {
	intent    *gateway.PaymentIntent
	createErr error
	refundErr error

	createdAmount   int64
	createdReceipt  string
	createdCurrency string
	refunds         []refundCall
}

func (m *mockGateway) CreateIntent(amount int64, currency, receipt string, _ map[string]interface{}) (*gateway.PaymentIntent, error) {
	m.createdAmount = amount
	m.createdCurrency = currency
	m.createdReceipt = receipt
	if m.createErr != nil {
		return nil, m.createErr
	}
	if m.intent != nil {
		return m.intent, nil
	}
	return &gateway.PaymentIntent{ID: "intent_test", Amount: amount, Currency: currency}, nil
}

func (m *mockGateway) Refund(paymentID string, amount int64, _ map[string]interface{}) error {
	m.refunds = append(m.refunds, refundCall{paymentID: paymentID, amount: amount})
	return m.refundErr
}

// mockProducer records published lifecycle events.
type mockProducer struct {
	events  []models.OrderEvent
	sendErr error
}

func (m *mockProducer) SendOrderEvent(evt models.OrderEvent) error {
	m.events = append(m.events, evt)
	return m.sendErr
}

func (m *mockProducer) Close() error { return nil }

func (m *mockProducer) eventTypes() []string {
	types := make([]string, 0, len(m.events))
	for _, evt := range m.events {
		types = append(types, evt.Type)
	}
	return types
}
