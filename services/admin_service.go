package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"order-lifecycle-service/models"
	"order-lifecycle-service/money"
	"order-lifecycle-service/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

// ListOrdersRequest holds the admin listing filters. All filters compose
// with AND; Query is free-text over order number and user identifier.
type ListOrdersRequest struct {
	Status        string
	PaymentStatus string
	From          *time.Time
	To            *time.Time
	Query         string
}

// AdminService applies the admin rows of the order transition table:
// status changes, tracking updates and refunds, plus the listing query.
type AdminService struct {
	orders *OrderService
	repo   repository.OrderRepository
	logger *zap.Logger
}

func NewAdminService(orders *OrderService, repo repository.OrderRepository, logger *zap.Logger) *AdminService {
	return &AdminService{orders: orders, repo: repo, logger: logger}
}

// ListOrders retrieves orders matching the filters, paginated. Free-text
// queries also match user identifiers when the query looks like an email or
// is longer than three characters.
func (s *AdminService) ListOrders(ctx context.Context, req ListOrdersRequest, page, limit int) (*OrderListResponse, *ServiceError) {
	filter := repository.ListFilter{
		From:  req.From,
		To:    req.To,
		Query: strings.TrimSpace(req.Query),
	}

	if req.Status != "" {
		st, ok := models.ParseOrderStatus(req.Status)
		if !ok {
			return nil, newError(400, CodeInvalidInput, fmt.Sprintf("Unknown order status %q", req.Status))
		}
		filter.Status = st
	}
	if req.PaymentStatus != "" {
		filter.PaymentStatus = models.PaymentStatus(strings.ToLower(req.PaymentStatus))
	}
	if filter.Query != "" {
		filter.MatchUsers = strings.Contains(filter.Query, "@") || len(filter.Query) > 3
	}

	orders, total, err := s.repo.List(ctx, filter, page, limit)
	if err != nil {
		s.logger.Error("Failed to list orders", zap.Error(err))
		return nil, internalError("Failed to list orders")
	}
	return &OrderListResponse{
		Orders: orders,
		Meta:   buildMeta(page, limit, total),
	}, nil
}

// GetOrder retrieves any order by id for the admin surface.
func (s *AdminService) GetOrder(ctx context.Context, orderID string) (*models.Order, *ServiceError) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, newError(404, CodeOrderNotFound, "Order not found")
		}
		return nil, internalError("Failed to fetch order")
	}
	return order, nil
}

// UpdateOrderStatus applies one row of the transition table. Unknown status
// strings and transitions outside the table are rejected, never coerced.
func (s *AdminService) UpdateOrderStatus(ctx context.Context, orderID, newStatus, notes string) (*models.Order, *ServiceError) {
	target, ok := models.ParseOrderStatus(newStatus)
	if !ok {
		return nil, newError(400, CodeInvalidStatusTransition, fmt.Sprintf("Unknown order status %q", newStatus))
	}

	order, svcErr := s.GetOrder(ctx, orderID)
	if svcErr != nil {
		return nil, svcErr
	}

	if !models.CanTransition(order.OrderStatus, target) {
		return nil, newError(409, CodeInvalidStatusTransition,
			fmt.Sprintf("Cannot transition order from %q to %q", order.OrderStatus, target))
	}

	now := time.Now().UTC()
	set := bson.M{"order_status": target}
	var event string

	switch target {
	case models.OrderStatusConfirmed:
		set["confirmed_at"] = now
	case models.OrderStatusShipped:
		set["shipped_at"] = now
		event = models.EventOrderShipped
	case models.OrderStatusDelivered:
		set["delivered_at"] = now
		event = models.EventOrderDelivered
	case models.OrderStatusCancelled:
		set["cancelled_at"] = now
		event = models.EventOrderCancelled
		// Cancelling a paid order flags the money side for refund.
		if order.PaymentStatus == models.PaymentStatusPaid {
			set["payment_status"] = models.PaymentStatusRefunded
			set["refund_amount"] = order.TotalAmount
			notes = strings.TrimSpace(notes + " (refund required: order was paid)")
		}
	}

	if notes != "" {
		set["admin_notes"] = appendNote(order.AdminNotes, notes)
	}

	updated, err := s.repo.UpdateWithVersion(ctx, order.ID, order.Version, set, nil)
	if err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			return nil, newError(409, CodeInvalidStatusTransition, "Order changed concurrently, please reload")
		}
		return nil, internalError("Failed to update order status")
	}

	if target == models.OrderStatusCancelled && order.PaymentStatus == models.PaymentStatusPaid {
		s.orders.refundViaGateway(ctx, updated, order.TotalAmount, "admin cancellation")
	}
	if event != "" {
		s.orders.publishEvent(ctx, event, updated)
	}
	return updated, nil
}

// UpdateTracking sets the estimated delivery date. Status is unchanged;
// terminal orders cannot be updated.
func (s *AdminService) UpdateTracking(ctx context.Context, orderID string, estimatedDelivery time.Time) (*models.Order, *ServiceError) {
	order, svcErr := s.GetOrder(ctx, orderID)
	if svcErr != nil {
		return nil, svcErr
	}

	if models.IsTerminal(order.OrderStatus) {
		return nil, newError(409, CodeInvalidStatusTransition,
			fmt.Sprintf("Cannot update tracking for order in terminal status %q", order.OrderStatus))
	}

	updated, err := s.repo.UpdateWithVersion(ctx, order.ID, order.Version, bson.M{
		"estimated_delivery": estimatedDelivery.UTC(),
	}, nil)
	if err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			return nil, newError(409, CodeInvalidStatusTransition, "Order changed concurrently, please reload")
		}
		return nil, internalError("Failed to update tracking")
	}
	return updated, nil
}

// ProcessRefund refunds a paid order, full or partial, and cancels it.
// A full refund sets payment status to refunded; a partial one to
// partially_refunded.
func (s *AdminService) ProcessRefund(ctx context.Context, orderID, amountStr, reason string) (*models.Order, *ServiceError) {
	order, svcErr := s.GetOrder(ctx, orderID)
	if svcErr != nil {
		return nil, svcErr
	}

	if order.PaymentStatus != models.PaymentStatusPaid {
		return nil, newError(409, CodeInvalidStatusTransition,
			fmt.Sprintf("Cannot refund order with payment status %q", order.PaymentStatus))
	}

	// Refunding cancels the order, so the cancellation must itself be a legal
	// transition; shipped and delivered orders go through returns, not here.
	if !models.CanTransition(order.OrderStatus, models.OrderStatusCancelled) {
		return nil, newError(409, CodeInvalidStatusTransition,
			fmt.Sprintf("Cannot refund order in status %q", order.OrderStatus))
	}

	amount, perr := money.ParseDisplay(amountStr)
	if perr != nil {
		return nil, newError(400, CodeInvalidInput, "Refund amount is not a valid amount")
	}
	refundMinor := money.ToMinorUnits(amount)
	if refundMinor <= 0 || refundMinor > order.TotalAmount {
		return nil, newError(400, CodeInvalidInput,
			fmt.Sprintf("Refund amount must be between 0 and %s", money.FormatMinorUnits(order.TotalAmount)))
	}

	paymentStatus := models.PaymentStatusPartiallyRefunded
	if refundMinor == order.TotalAmount {
		paymentStatus = models.PaymentStatusRefunded
	}

	now := time.Now().UTC()
	set := bson.M{
		"order_status":   models.OrderStatusCancelled,
		"payment_status": paymentStatus,
		"refund_amount":  refundMinor,
		"cancelled_at":   now,
		"admin_notes":    appendNote(order.AdminNotes, "refund "+money.FormatMinorUnits(refundMinor)+": "+reason),
	}

	updated, err := s.repo.UpdateWithVersion(ctx, order.ID, order.Version, set, nil)
	if err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			return nil, newError(409, CodeInvalidStatusTransition, "Order changed concurrently, please reload")
		}
		return nil, internalError("Failed to process refund")
	}

	s.orders.refundViaGateway(ctx, updated, refundMinor, reason)
	s.orders.publishEvent(ctx, models.EventOrderRefunded, updated)
	return updated, nil
}
