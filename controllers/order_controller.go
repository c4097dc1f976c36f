package controllers

import (
	"net/http"
	"strconv"

	"order-lifecycle-service/middleware"
	"order-lifecycle-service/services"

	"github.com/gin-gonic/gin"
)

type OrderController struct {
	Service *services.OrderService
}

func NewOrderController(service *services.OrderService) *OrderController {
	return &OrderController{Service: service}
}

func respondError(c *gin.Context, err *services.ServiceError) {
	c.JSON(err.StatusCode, gin.H{"code": err.Code, "error": err.Message})
}

// CreateOrder snapshots the caller's cart into a new order and returns the
// payment intent to complete client-side.
func (oc *OrderController) CreateOrder(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req services.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": services.CodeInvalidAddress, "error": err.Error()})
		return
	}
	req.IdempotencyKey = c.GetHeader("Idempotency-Key")

	result, svcErr := oc.Service.CreateOrder(c.Request.Context(), userID, &req)
	if svcErr != nil {
		respondError(c, svcErr)
		return
	}
	c.JSON(http.StatusCreated, result)
}

// VerifyPayment handles the signed redirect callback after the customer
// completed payment with the gateway.
func (oc *OrderController) VerifyPayment(c *gin.Context) {
	var req services.VerifyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": services.CodeInvalidInput, "error": err.Error()})
		return
	}

	result, svcErr := oc.Service.VerifyPayment(c.Request.Context(), &req)
	if svcErr != nil {
		// On a signature mismatch the order state is still reported so the
		// client can offer a retry.
		body := gin.H{"code": svcErr.Code, "error": svcErr.Message}
		if result != nil {
			body["order_status"] = result.OrderStatus
			body["payment_status"] = result.PaymentStatus
		}
		c.JSON(svcErr.StatusCode, body)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ReportPaymentFailure records a client-observed gateway failure or a
// pre-payment abandon against the order.
func (oc *OrderController) ReportPaymentFailure(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req struct {
		Reason string `json:"reason"`
	}
	_ = c.ShouldBindJSON(&req)

	result, svcErr := oc.Service.ReportPaymentFailure(c.Request.Context(), c.Param("id"), userID, req.Reason)
	if svcErr != nil {
		respondError(c, svcErr)
		return
	}
	c.JSON(http.StatusOK, result)
}

// CancelOrder is customer self-service cancellation for early-stage orders.
func (oc *OrderController) CancelOrder(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	result, svcErr := oc.Service.CancelOrder(c.Request.Context(), c.Param("id"), userID)
	if svcErr != nil {
		respondError(c, svcErr)
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetOrders returns the caller's paginated order history.
func (oc *OrderController) GetOrders(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	page, limit := pagination(c)
	result, svcErr := oc.Service.GetUserOrders(c.Request.Context(), userID, page, limit)
	if svcErr != nil {
		respondError(c, svcErr)
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetOrderByID returns one of the caller's orders.
func (oc *OrderController) GetOrderByID(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	order, svcErr := oc.Service.GetOrderByID(c.Request.Context(), c.Param("id"), userID)
	if svcErr != nil {
		respondError(c, svcErr)
		return
	}
	c.JSON(http.StatusOK, order)
}

func pagination(c *gin.Context) (int, int) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit < 1 || limit > 100 {
		limit = 20
	}
	return page, limit
}
