package services

import (
	"context"
	"testing"
	"time"

	"order-lifecycle-service/models"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func newTestAdminService(repo *mockOrderRepo, gw *mockGateway) (*AdminService, *mockProducer) {
	orders, producer := newTestService(repo, newMockCartRepo(nil), gw)
	return NewAdminService(orders, repo, zap.NewNop()), producer
}

func TestUpdateOrderStatus_AllowedTransition(t *testing.T) {
	repo := newMockOrderRepo()
	seedOrder(repo, models.OrderStatusConfirmed, models.PaymentStatusPaid)
	svc, producer := newTestAdminService(repo, &mockGateway{})

	updated, svcErr := svc.UpdateOrderStatus(context.Background(), "order_1", "shipped", "dispatched via courier")
	assert.Nil(t, svcErr)
	assert.Equal(t, models.OrderStatusShipped, updated.OrderStatus)
	assert.NotNil(t, updated.ShippedAt)
	assert.Contains(t, updated.AdminNotes, "dispatched via courier")
	assert.Equal(t, []string{models.EventOrderShipped}, producer.eventTypes())
}

func TestUpdateOrderStatus_RejectedTransition(t *testing.T) {
	repo := newMockOrderRepo()
	seedOrder(repo, models.OrderStatusPending, models.PaymentStatusPending)
	svc, _ := newTestAdminService(repo, &mockGateway{})

	_, svcErr := svc.UpdateOrderStatus(context.Background(), "order_1", "delivered", "")
	assert.NotNil(t, svcErr)
	assert.Equal(t, 409, svcErr.StatusCode)
	assert.Equal(t, CodeInvalidStatusTransition, svcErr.Code)
	assert.Equal(t, models.OrderStatusPending, repo.orders["order_1"].OrderStatus)
}

func TestUpdateOrderStatus_UnknownStatus(t *testing.T) {
	repo := newMockOrderRepo()
	seedOrder(repo, models.OrderStatusPending, models.PaymentStatusPending)
	svc, _ := newTestAdminService(repo, &mockGateway{})

	_, svcErr := svc.UpdateOrderStatus(context.Background(), "order_1", "misplaced", "")
	assert.NotNil(t, svcErr)
	assert.Equal(t, 400, svcErr.StatusCode)
	assert.Equal(t, CodeInvalidStatusTransition, svcErr.Code)
}

func TestUpdateOrderStatus_CancelPaidOrderRefunds(t *testing.T) {
	repo := newMockOrderRepo()
	seedOrder(repo, models.OrderStatusConfirmed, models.PaymentStatusPaid)
	gw := &mockGateway{}
	svc, _ := newTestAdminService(repo, gw)

	updated, svcErr := svc.UpdateOrderStatus(context.Background(), "order_1", "cancelled", "stock issue")
	assert.Nil(t, svcErr)
	assert.Equal(t, models.OrderStatusCancelled, updated.OrderStatus)
	assert.Equal(t, models.PaymentStatusRefunded, updated.PaymentStatus)
	assert.Equal(t, int64(59800), updated.RefundAmount)
	assert.Equal(t, []refundCall{{paymentID: "pay_1", amount: 59800}}, gw.refunds)
}

func TestUpdateTracking(t *testing.T) {
	repo := newMockOrderRepo()
	seedOrder(repo, models.OrderStatusProcessing, models.PaymentStatusPaid)
	svc, _ := newTestAdminService(repo, &mockGateway{})

	eta := time.Now().UTC().Add(72 * time.Hour)
	updated, svcErr := svc.UpdateTracking(context.Background(), "order_1", eta)
	assert.Nil(t, svcErr)
	assert.NotNil(t, updated.EstimatedDelivery)
	assert.WithinDuration(t, eta, *updated.EstimatedDelivery, time.Second)
	assert.Equal(t, models.OrderStatusProcessing, updated.OrderStatus)
}

func TestUpdateTracking_PaymentFailedOrderAllowed(t *testing.T) {
	repo := newMockOrderRepo()
	seedOrder(repo, models.OrderStatusPaymentFailed, models.PaymentStatusFailed)
	svc, _ := newTestAdminService(repo, &mockGateway{})

	// payment_failed is a dead end for transitions but not terminal for
	// admin edits.
	eta := time.Now().UTC().Add(48 * time.Hour)
	updated, svcErr := svc.UpdateTracking(context.Background(), "order_1", eta)
	assert.Nil(t, svcErr)
	assert.NotNil(t, updated.EstimatedDelivery)
}

func TestUpdateTracking_TerminalOrderRejected(t *testing.T) {
	repo := newMockOrderRepo()
	seedOrder(repo, models.OrderStatusDelivered, models.PaymentStatusPaid)
	svc, _ := newTestAdminService(repo, &mockGateway{})

	_, svcErr := svc.UpdateTracking(context.Background(), "order_1", time.Now().Add(24*time.Hour))
	assert.NotNil(t, svcErr)
	assert.Equal(t, 409, svcErr.StatusCode)
	assert.Equal(t, CodeInvalidStatusTransition, svcErr.Code)
}

func TestProcessRefund_Full(t *testing.T) {
	repo := newMockOrderRepo()
	seedOrder(repo, models.OrderStatusConfirmed, models.PaymentStatusPaid)
	gw := &mockGateway{}
	svc, producer := newTestAdminService(repo, gw)

	updated, svcErr := svc.ProcessRefund(context.Background(), "order_1", "598.00", "customer complaint")
	assert.Nil(t, svcErr)
	assert.Equal(t, models.PaymentStatusRefunded, updated.PaymentStatus)
	assert.Equal(t, models.OrderStatusCancelled, updated.OrderStatus)
	assert.Equal(t, int64(59800), updated.RefundAmount)
	assert.NotNil(t, updated.CancelledAt)
	assert.Equal(t, []refundCall{{paymentID: "pay_1", amount: 59800}}, gw.refunds)
	assert.Equal(t, []string{models.EventOrderRefunded}, producer.eventTypes())
}

func TestProcessRefund_Partial(t *testing.T) {
	repo := newMockOrderRepo()
	seedOrder(repo, models.OrderStatusConfirmed, models.PaymentStatusPaid)
	gw := &mockGateway{}
	svc, _ := newTestAdminService(repo, gw)

	updated, svcErr := svc.ProcessRefund(context.Background(), "order_1", "300.00", "damaged item")
	assert.Nil(t, svcErr)
	assert.Equal(t, models.PaymentStatusPartiallyRefunded, updated.PaymentStatus)
	assert.Equal(t, int64(30000), updated.RefundAmount)
	assert.Equal(t, []refundCall{{paymentID: "pay_1", amount: 30000}}, gw.refunds)
}

func TestProcessRefund_UnpaidRejected(t *testing.T) {
	repo := newMockOrderRepo()
	seedOrder(repo, models.OrderStatusPending, models.PaymentStatusPending)
	svc, _ := newTestAdminService(repo, &mockGateway{})

	_, svcErr := svc.ProcessRefund(context.Background(), "order_1", "598.00", "")
	assert.NotNil(t, svcErr)
	assert.Equal(t, 409, svcErr.StatusCode)
	assert.Equal(t, CodeInvalidStatusTransition, svcErr.Code)
}

func TestProcessRefund_DeliveredOrderRejected(t *testing.T) {
	repo := newMockOrderRepo()
	seedOrder(repo, models.OrderStatusDelivered, models.PaymentStatusPaid)
	gw := &mockGateway{}
	svc, _ := newTestAdminService(repo, gw)

	// Refunding cancels the order, and delivered -> cancelled is not a
	// legal transition.
	_, svcErr := svc.ProcessRefund(context.Background(), "order_1", "598.00", "damaged")
	assert.NotNil(t, svcErr)
	assert.Equal(t, 409, svcErr.StatusCode)
	assert.Equal(t, CodeInvalidStatusTransition, svcErr.Code)

	stored := repo.orders["order_1"]
	assert.Equal(t, models.OrderStatusDelivered, stored.OrderStatus)
	assert.Equal(t, models.PaymentStatusPaid, stored.PaymentStatus)
	assert.Empty(t, gw.refunds)
}

func TestProcessRefund_AmountBounds(t *testing.T) {
	repo := newMockOrderRepo()
	seedOrder(repo, models.OrderStatusConfirmed, models.PaymentStatusPaid)
	svc, _ := newTestAdminService(repo, &mockGateway{})

	for _, amount := range []string{"0", "-5", "999.00", "garbage"} {
		_, svcErr := svc.ProcessRefund(context.Background(), "order_1", amount, "")
		assert.NotNil(t, svcErr, "amount %q should be rejected", amount)
		assert.Equal(t, 400, svcErr.StatusCode)
		assert.Equal(t, CodeInvalidInput, svcErr.Code)
	}
}

func TestListOrders_FilterComposition(t *testing.T) {
	repo := newMockOrderRepo()
	repo.listOrders = []models.Order{{ID: "order_1"}}
	repo.listTotal = 1
	svc, _ := newTestAdminService(repo, &mockGateway{})

	from := time.Now().UTC().Add(-24 * time.Hour)
	resp, svcErr := svc.ListOrders(context.Background(), ListOrdersRequest{
		Status:        "shipped",
		PaymentStatus: "Paid",
		From:          &from,
		Query:         "asha@example.com",
	}, 1, 20)
	assert.Nil(t, svcErr)
	assert.Len(t, resp.Orders, 1)
	assert.Equal(t, int64(1), resp.Meta.TotalOrders)

	assert.Equal(t, models.OrderStatusShipped, repo.lastFilter.Status)
	assert.Equal(t, models.PaymentStatusPaid, repo.lastFilter.PaymentStatus)
	assert.Equal(t, &from, repo.lastFilter.From)
	assert.Equal(t, "asha@example.com", repo.lastFilter.Query)
	assert.True(t, repo.lastFilter.MatchUsers)
}

func TestListOrders_QueryUserExpansion(t *testing.T) {
	repo := newMockOrderRepo()
	svc, _ := newTestAdminService(repo, &mockGateway{})

	cases := []struct {
		query      string
		matchUsers bool
	}{
		{"a@b", true},   // email-shaped
		{"ORD", false},  // short order-number prefix
		{"ORD-", true},  // longer than three characters
		{"user42", true},
	}
	for _, tc := range cases {
		_, svcErr := svc.ListOrders(context.Background(), ListOrdersRequest{Query: tc.query}, 1, 20)
		assert.Nil(t, svcErr)
		assert.Equal(t, tc.matchUsers, repo.lastFilter.MatchUsers, "query %q", tc.query)
	}
}

func TestListOrders_UnknownStatusRejected(t *testing.T) {
	repo := newMockOrderRepo()
	svc, _ := newTestAdminService(repo, &mockGateway{})

	_, svcErr := svc.ListOrders(context.Background(), ListOrdersRequest{Status: "lost"}, 1, 20)
	assert.NotNil(t, svcErr)
	assert.Equal(t, 400, svcErr.StatusCode)
	assert.Equal(t, CodeInvalidInput, svcErr.Code)
}
