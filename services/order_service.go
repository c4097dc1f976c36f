package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"order-lifecycle-service/awsx"
	"order-lifecycle-service/gateway"
	"order-lifecycle-service/kafka"
	"order-lifecycle-service/models"
	"order-lifecycle-service/money"
	"order-lifecycle-service/repository"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

// CreateOrderRequest carries the shipping address the customer submitted.
// The cart itself is loaded server-side; clients never post prices.
type CreateOrderRequest struct {
	ShippingAddress models.Address `json:"shipping_address" binding:"required"`
	IdempotencyKey  string         `json:"-"`
}

// CreateOrderResult is returned to the storefront after order creation.
type CreateOrderResult struct {
	OrderID       string                 `json:"order_id"`
	OrderNumber   string                 `json:"order_number"`
	TotalAmount   string                 `json:"total_amount"`
	Currency      string                 `json:"currency"`
	PaymentIntent *gateway.PaymentIntent `json:"payment_intent,omitempty"`
}

// VerifyPaymentRequest is the signed payment callback relayed by the client.
type VerifyPaymentRequest struct {
	IntentID  string `json:"payment_intent_id" binding:"required"`
	PaymentID string `json:"payment_id" binding:"required"`
	Signature string `json:"signature" binding:"required"`
	OrderID   string `json:"order_id" binding:"required"`
}

// PaymentStateResult reports the order's state after a payment-path call.
type PaymentStateResult struct {
	OrderID       string               `json:"order_id"`
	OrderStatus   models.OrderStatus   `json:"order_status"`
	PaymentStatus models.PaymentStatus `json:"payment_status"`
}

// OrderListResponse is the paginated envelope for order history.
type OrderListResponse struct {
	Orders []models.Order `json:"orders"`
	Meta   MetaData       `json:"meta"`
}

type MetaData struct {
	Page        int   `json:"page"`
	Limit       int   `json:"limit"`
	TotalOrders int64 `json:"total_orders"`
	TotalPages  int64 `json:"total_pages"`
	HasMore     bool  `json:"has_more"`
}

// OrderService orchestrates the order/payment lifecycle: cart snapshot and
// clear, payment-intent creation, callback verification, failure handling
// and customer cancellation.
type OrderService struct {
	orders      repository.OrderRepository
	carts       repository.CartRepository
	gateway     gateway.PaymentGateway
	verifier    *gateway.SignatureVerifier
	producer    kafka.ProducerAPI
	snsClient   awsx.SNSPublisher
	snsTopicArn string
	logger      *zap.Logger

	currency       string
	shippingFee    int64
	idempotencyTTL time.Duration
}

func NewOrderService(
	orders repository.OrderRepository,
	carts repository.CartRepository,
	gw gateway.PaymentGateway,
	verifier *gateway.SignatureVerifier,
	producer kafka.ProducerAPI,
	snsClient awsx.SNSPublisher,
	snsTopicArn string,
	currency string,
	shippingFee int64,
	logger *zap.Logger,
) *OrderService {
	return &OrderService{
		orders:         orders,
		carts:          carts,
		gateway:        gw,
		verifier:       verifier,
		producer:       producer,
		snsClient:      snsClient,
		snsTopicArn:    snsTopicArn,
		logger:         logger,
		currency:       currency,
		shippingFee:    shippingFee,
		idempotencyTTL: 24 * time.Hour,
	}
}

// CreateOrder snapshots the user's cart into a frozen order record, clears
// the cart, then requests a payment intent from the gateway.
//
// Ordering is deliberate: the order is durably written and the cart cleared
// before any payment happens, so the order number survives a failed payment.
// If the gateway call fails the order stays in pending with no intent id and
// the caller gets PAYMENT_GATEWAY_UNAVAILABLE; a retry creates a new order.
func (s *OrderService) CreateOrder(ctx context.Context, userID string, req *CreateOrderRequest) (*CreateOrderResult, *ServiceError) {
	if missing := req.ShippingAddress.MissingFields(); len(missing) > 0 {
		return nil, newError(400, CodeInvalidAddress, fmt.Sprintf("Missing required address fields: %v", missing))
	}
	if req.ShippingAddress.Country == "" {
		req.ShippingAddress.Country = "IN"
	}

	// Replay of a previous submission returns the order it created, with the
	// intent handle restored so the client can resume payment.
	if req.IdempotencyKey != "" {
		if orderID, err := s.carts.GetIdempotency(ctx, req.IdempotencyKey); err == nil && orderID != "" {
			if existing, err := s.orders.FindByID(ctx, orderID); err == nil {
				result := s.resultFor(existing)
				if existing.PaymentIntentID != "" {
					result.PaymentIntent = &gateway.PaymentIntent{
						ID:       existing.PaymentIntentID,
						Amount:   existing.TotalAmount,
						Currency: existing.Currency,
					}
				}
				return result, nil
			}
		}
	}

	cart, err := s.carts.GetCart(ctx, userID)
	if err != nil {
		s.logger.Error("Failed to load cart", zap.String("user_id", userID), zap.Error(err))
		return nil, internalError("Failed to load cart")
	}
	if cart.IsEmpty() {
		return nil, newError(400, CodeEmptyCart, "Cart is empty")
	}

	// Snapshot line items. Fail closed on any corrupt price: no partial orders.
	items := make([]models.OrderItem, 0, len(cart.Items))
	var subtotal int64
	for _, ci := range cart.Items {
		price, perr := money.ParseDisplay(ci.Price)
		if perr != nil {
			s.logger.Warn("Corrupt price in cart",
				zap.String("user_id", userID),
				zap.String("product_id", ci.ProductID),
				zap.String("price", ci.Price),
			)
			return nil, newError(422, CodeInvalidPriceData, fmt.Sprintf("Stored price for product %s is not a valid amount", ci.ProductID))
		}
		unit := money.ToMinorUnits(price)
		line := unit * int64(ci.Quantity)
		items = append(items, models.OrderItem{
			ProductID: ci.ProductID,
			Name:      ci.Name,
			UnitPrice: unit,
			Quantity:  ci.Quantity,
			LineTotal: line,
		})
		subtotal += line
	}

	now := time.Now().UTC()
	order := &models.Order{
		ID:              uuid.NewString(),
		OrderNumber:     models.NewOrderNumber(now),
		UserID:          userID,
		Items:           items,
		Subtotal:        subtotal,
		ShippingFee:     s.shippingFee,
		Tax:             0,
		Discount:        0,
		TotalAmount:     subtotal + s.shippingFee,
		Currency:        s.currency,
		ShippingAddress: req.ShippingAddress,
		OrderStatus:     models.OrderStatusPending,
		PaymentStatus:   models.PaymentStatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.orders.Create(ctx, order); err != nil {
		s.logger.Error("Failed to persist order", zap.String("user_id", userID), zap.Error(err))
		return nil, internalError("Failed to create order")
	}

	// Clear the cart only after the order is durably written, and stamp the
	// marker only after the delete succeeded. A crash in between leaves the
	// cart intact for resubmission.
	if err := s.carts.DeleteCart(ctx, userID); err != nil {
		s.logger.Error("Failed to clear cart after order creation",
			zap.String("order_id", order.ID), zap.Error(err))
	} else if err := s.orders.MarkCartCleared(ctx, order.ID); err != nil {
		s.logger.Warn("Failed to stamp cart-cleared marker",
			zap.String("order_id", order.ID), zap.Error(err))
	}

	if req.IdempotencyKey != "" {
		if err := s.carts.SetIdempotency(ctx, req.IdempotencyKey, order.ID, s.idempotencyTTL); err != nil {
			s.logger.Warn("Failed to record idempotency key", zap.Error(err))
		}
	}

	intent, gerr := s.gateway.CreateIntent(order.TotalAmount, order.Currency, order.OrderNumber, map[string]interface{}{
		"order_id": order.ID,
		"user_id":  userID,
	})
	if gerr != nil {
		// The order record is kept (not rolled back) so the attempt stays
		// auditable; admins find it via the intent-less pending filter.
		s.logger.Error("Payment gateway unavailable",
			zap.String("order_id", order.ID),
			zap.String("order_number", order.OrderNumber),
			zap.Error(gerr),
		)
		return nil, newError(502, CodePaymentGatewayUnavailable, "Payment gateway is unavailable, please try again")
	}

	if err := s.orders.SetPaymentIntent(ctx, order.ID, intent.ID, intent.Currency); err != nil {
		s.logger.Error("Failed to record payment intent",
			zap.String("order_id", order.ID), zap.Error(err))
		return nil, internalError("Failed to record payment intent")
	}
	order.PaymentIntentID = intent.ID

	s.publishEvent(ctx, models.EventOrderCreated, order)

	result := s.resultFor(order)
	result.PaymentIntent = intent
	return result, nil
}

// VerifyPayment authenticates a payment callback and confirms the order.
// Repeated callbacks for an already-paid order are idempotent no-ops.
// A bad signature moves the order to payment_failed rather than crashing.
func (s *OrderService) VerifyPayment(ctx context.Context, req *VerifyPaymentRequest) (*PaymentStateResult, *ServiceError) {
	order, err := s.orders.FindByID(ctx, req.OrderID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, newError(404, CodeOrderNotFound, "Order not found")
		}
		return nil, internalError("Failed to load order")
	}

	// Idempotency guard: gateways retry callbacks. No counters bump, no
	// timestamps move.
	if order.PaymentStatus == models.PaymentStatusPaid {
		return stateOf(order), nil
	}

	if !s.verifier.VerifyPayment(req.IntentID, req.PaymentID, req.Signature) {
		failed := s.markPaymentFailed(ctx, order, "signature verification failed")
		return stateOf(failed), newError(400, CodeSignatureMismatch, "Payment signature verification failed")
	}

	confirmed := s.confirmPayment(ctx, order, req.PaymentID, req.Signature)
	return stateOf(confirmed), nil
}

// ReportPaymentFailure records a gateway-reported failure or a pre-payment
// cancellation against a pending order.
func (s *OrderService) ReportPaymentFailure(ctx context.Context, orderID, userID, info string) (*PaymentStateResult, *ServiceError) {
	order, err := s.orders.FindByIDAndUserID(ctx, orderID, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, newError(404, CodeOrderNotFound, "Order not found")
		}
		return nil, internalError("Failed to load order")
	}

	// Only a pending order can move to payment_failed; anything else is
	// reported as-is without mutation.
	if order.OrderStatus != models.OrderStatusPending {
		return stateOf(order), nil
	}

	failed := s.markPaymentFailed(ctx, order, info)
	return stateOf(failed), nil
}

// CancelOrder is the customer-facing cancellation: allowed only while the
// order is pending or confirmed. A paid order is flagged refunded and a
// gateway refund is attempted.
func (s *OrderService) CancelOrder(ctx context.Context, orderID, userID string) (*PaymentStateResult, *ServiceError) {
	order, err := s.orders.FindByIDAndUserID(ctx, orderID, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, newError(404, CodeOrderNotFound, "Order not found")
		}
		return nil, internalError("Failed to load order")
	}

	if !models.CustomerCancellable(order.OrderStatus) {
		return nil, newError(409, CodeOrderNotCancellable,
			fmt.Sprintf("Order in status %q cannot be cancelled, please contact support", order.OrderStatus))
	}

	now := time.Now().UTC()
	set := bson.M{
		"order_status": models.OrderStatusCancelled,
		"cancelled_at": now,
	}
	wasPaid := order.PaymentStatus == models.PaymentStatusPaid
	if wasPaid {
		set["payment_status"] = models.PaymentStatusRefunded
		set["refund_amount"] = order.TotalAmount
	}

	updated, uerr := s.orders.UpdateWithVersion(ctx, order.ID, order.Version, set, nil)
	if uerr != nil {
		if errors.Is(uerr, repository.ErrVersionConflict) {
			// Someone else transitioned first; report the winning state.
			current, rerr := s.orders.FindByID(ctx, order.ID)
			if rerr == nil && !models.CustomerCancellable(current.OrderStatus) {
				return nil, newError(409, CodeOrderNotCancellable,
					fmt.Sprintf("Order in status %q cannot be cancelled, please contact support", current.OrderStatus))
			}
			return nil, internalError("Order changed concurrently, please retry")
		}
		return nil, internalError("Failed to cancel order")
	}

	if wasPaid {
		s.refundViaGateway(ctx, updated, order.TotalAmount, "customer cancellation")
	}

	s.publishEvent(ctx, models.EventOrderCancelled, updated)
	return stateOf(updated), nil
}

// GetUserOrders retrieves paginated orders for a specific user.
func (s *OrderService) GetUserOrders(ctx context.Context, userID string, page, limit int) (*OrderListResponse, *ServiceError) {
	orders, total, err := s.orders.FindByUserID(ctx, userID, page, limit)
	if err != nil {
		s.logger.Error("Failed to fetch orders", zap.String("user_id", userID), zap.Error(err))
		return nil, internalError("Failed to fetch orders")
	}
	return &OrderListResponse{
		Orders: orders,
		Meta:   buildMeta(page, limit, total),
	}, nil
}

// GetOrderByID retrieves a specific order for a user.
func (s *OrderService) GetOrderByID(ctx context.Context, orderID, userID string) (*models.Order, *ServiceError) {
	order, err := s.orders.FindByIDAndUserID(ctx, orderID, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, newError(404, CodeOrderNotFound, "Order not found")
		}
		return nil, internalError("Failed to fetch order")
	}
	return order, nil
}

// HandleGatewayEvent processes an authenticated webhook event. Errors are
// logged, never returned to the gateway: the webhook endpoint acknowledges
// unconditionally.
func (s *OrderService) HandleGatewayEvent(ctx context.Context, eventType, intentID, paymentID, description string) {
	order, err := s.orders.FindByIntentID(ctx, intentID)
	if err != nil {
		s.logger.Warn("Webhook for unknown payment intent",
			zap.String("event", eventType),
			zap.String("intent_id", intentID),
		)
		return
	}

	switch eventType {
	case "payment.captured":
		if order.PaymentStatus == models.PaymentStatusPaid {
			return
		}
		// The webhook body was already authenticated with the webhook
		// secret; there is no per-payment signature to store here.
		s.confirmPayment(ctx, order, paymentID, "")
	case "payment.failed":
		if order.OrderStatus == models.OrderStatusPending {
			s.markPaymentFailed(ctx, order, description)
		}
	default:
		s.logger.Info("Unhandled gateway event type", zap.String("event", eventType))
	}
}

// confirmPayment transitions pending -> confirmed/paid exactly once.
// Returns the current order state whether or not this call won the race.
func (s *OrderService) confirmPayment(ctx context.Context, order *models.Order, paymentID, signature string) *models.Order {
	// A late callback must not resurrect a cancelled or otherwise closed
	// order; the transition table is the only path to confirmed.
	if !models.CanTransition(order.OrderStatus, models.OrderStatusConfirmed) {
		s.logger.Warn("Dropping payment confirmation for non-payable order",
			zap.String("order_id", order.ID),
			zap.String("order_status", string(order.OrderStatus)),
			zap.String("payment_id", paymentID),
		)
		return order
	}

	now := time.Now().UTC()
	set := bson.M{
		"order_status":   models.OrderStatusConfirmed,
		"payment_status": models.PaymentStatusPaid,
		"payment_id":     paymentID,
		"confirmed_at":   now,
	}
	if signature != "" {
		set["payment_signature"] = signature
	}

	updated, err := s.orders.UpdateWithVersion(ctx, order.ID, order.Version, set, nil)
	if err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			if current, rerr := s.orders.FindByID(ctx, order.ID); rerr == nil {
				return current
			}
		}
		s.logger.Error("Failed to confirm payment",
			zap.String("order_id", order.ID), zap.Error(err))
		return order
	}

	s.logger.Info("Payment confirmed",
		zap.String("order_id", updated.ID),
		zap.String("order_number", updated.OrderNumber),
		zap.String("payment_id", paymentID),
	)
	s.publishEvent(ctx, models.EventPaymentSucceeded, updated)
	return updated
}

// markPaymentFailed moves a pending order to payment_failed and increments
// the attempt counter. The order stays visible in history as "Payment
// Failed" rather than vanishing.
func (s *OrderService) markPaymentFailed(ctx context.Context, order *models.Order, reason string) *models.Order {
	if !models.CanTransition(order.OrderStatus, models.OrderStatusPaymentFailed) {
		s.logger.Warn("Dropping payment failure for order outside pending",
			zap.String("order_id", order.ID),
			zap.String("order_status", string(order.OrderStatus)),
		)
		return order
	}

	set := bson.M{
		"order_status":   models.OrderStatusPaymentFailed,
		"payment_status": models.PaymentStatusFailed,
	}
	if reason != "" {
		set["admin_notes"] = appendNote(order.AdminNotes, "payment failure: "+reason)
	}

	updated, err := s.orders.UpdateWithVersion(ctx, order.ID, order.Version, set, bson.M{"payment_attempts": 1})
	if err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			if current, rerr := s.orders.FindByID(ctx, order.ID); rerr == nil {
				return current
			}
		}
		s.logger.Error("Failed to record payment failure",
			zap.String("order_id", order.ID), zap.Error(err))
		return order
	}

	s.publishEvent(ctx, models.EventPaymentFailed, updated)
	return updated
}

// refundViaGateway requests a gateway refund; on failure the order is
// annotated for manual remediation rather than failing the cancellation.
func (s *OrderService) refundViaGateway(ctx context.Context, order *models.Order, amount int64, reason string) {
	if order.PaymentID == "" {
		return
	}
	if err := s.gateway.Refund(order.PaymentID, amount, map[string]interface{}{"reason": reason}); err != nil {
		s.logger.Error("Gateway refund failed, manual refund required",
			zap.String("order_id", order.ID),
			zap.String("payment_id", order.PaymentID),
			zap.Error(err),
		)
		note := appendNote(order.AdminNotes, "MANUAL REFUND REQUIRED: gateway refund failed")
		if _, uerr := s.orders.UpdateWithVersion(ctx, order.ID, order.Version, bson.M{"admin_notes": note}, nil); uerr != nil {
			s.logger.Warn("Failed to flag manual refund", zap.String("order_id", order.ID), zap.Error(uerr))
		}
	}
}

// publishEvent emits a lifecycle event to Kafka and SNS, best-effort.
func (s *OrderService) publishEvent(ctx context.Context, eventType string, order *models.Order) {
	evt := models.OrderEvent{
		Type:          eventType,
		OrderID:       order.ID,
		OrderNumber:   order.OrderNumber,
		UserID:        order.UserID,
		Amount:        order.TotalAmount,
		Currency:      order.Currency,
		OrderStatus:   order.OrderStatus,
		PaymentStatus: order.PaymentStatus,
		Timestamp:     time.Now().UTC(),
	}

	if s.producer != nil {
		if err := s.producer.SendOrderEvent(evt); err != nil {
			s.logger.Warn("Kafka publish failed", zap.String("type", eventType), zap.Error(err))
		}
	}

	if s.snsClient != nil && s.snsTopicArn != "" {
		data, err := json.Marshal(evt)
		if err == nil {
			if err := s.snsClient.Publish(ctx, s.snsTopicArn, data); err != nil {
				s.logger.Warn("SNS publish failed", zap.String("type", eventType), zap.Error(err))
			}
		}
	}
}

func (s *OrderService) resultFor(order *models.Order) *CreateOrderResult {
	return &CreateOrderResult{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		TotalAmount: money.FormatMinorUnits(order.TotalAmount),
		Currency:    order.Currency,
	}
}

func stateOf(order *models.Order) *PaymentStateResult {
	return &PaymentStateResult{
		OrderID:       order.ID,
		OrderStatus:   order.OrderStatus,
		PaymentStatus: order.PaymentStatus,
	}
}

func appendNote(existing, note string) string {
	stamp := time.Now().UTC().Format(time.RFC3339)
	if existing == "" {
		return "[" + stamp + "] " + note
	}
	return existing + "\n[" + stamp + "] " + note
}

func buildMeta(page, limit int, total int64) MetaData {
	return MetaData{
		Page:        page,
		Limit:       limit,
		TotalOrders: total,
		TotalPages:  calculateTotalPages(total, limit),
		HasMore:     total > int64(page*limit),
	}
}

func calculateTotalPages(total int64, limit int) int64 {
	if limit == 0 {
		return 0
	}
	return (total + int64(limit) - 1) / int64(limit)
}
