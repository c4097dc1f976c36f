package controllers

import (
	"net/http"
	"time"

	"order-lifecycle-service/services"

	"github.com/gin-gonic/gin"
)

type AdminController struct {
	Service *services.AdminService
}

func NewAdminController(service *services.AdminService) *AdminController {
	return &AdminController{Service: service}
}

// ListOrders returns paginated orders matching the query filters.
func (ac *AdminController) ListOrders(c *gin.Context) {
	req := services.ListOrdersRequest{
		Status:        c.Query("status"),
		PaymentStatus: c.Query("payment_status"),
		Query:         c.Query("q"),
	}
	if from := c.Query("from"); from != "" {
		if t, err := time.Parse(time.RFC3339, from); err == nil {
			req.From = &t
		}
	}
	if to := c.Query("to"); to != "" {
		if t, err := time.Parse(time.RFC3339, to); err == nil {
			req.To = &t
		}
	}

	page, limit := pagination(c)
	result, svcErr := ac.Service.ListOrders(c.Request.Context(), req, page, limit)
	if svcErr != nil {
		respondError(c, svcErr)
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetOrder returns any order by id.
func (ac *AdminController) GetOrder(c *gin.Context) {
	order, svcErr := ac.Service.GetOrder(c.Request.Context(), c.Param("id"))
	if svcErr != nil {
		respondError(c, svcErr)
		return
	}
	c.JSON(http.StatusOK, order)
}

// UpdateOrderStatus applies an admin status transition.
func (ac *AdminController) UpdateOrderStatus(c *gin.Context) {
	var req struct {
		Status string `json:"status" binding:"required"`
		Notes  string `json:"notes"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": services.CodeInvalidInput, "error": err.Error()})
		return
	}

	order, svcErr := ac.Service.UpdateOrderStatus(c.Request.Context(), c.Param("id"), req.Status, req.Notes)
	if svcErr != nil {
		respondError(c, svcErr)
		return
	}
	c.JSON(http.StatusOK, order)
}

// UpdateTracking sets the estimated delivery date.
func (ac *AdminController) UpdateTracking(c *gin.Context) {
	var req struct {
		EstimatedDelivery time.Time `json:"estimated_delivery" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": services.CodeInvalidInput, "error": err.Error()})
		return
	}

	order, svcErr := ac.Service.UpdateTracking(c.Request.Context(), c.Param("id"), req.EstimatedDelivery)
	if svcErr != nil {
		respondError(c, svcErr)
		return
	}
	c.JSON(http.StatusOK, order)
}

// ProcessRefund refunds a paid order, full or partial.
func (ac *AdminController) ProcessRefund(c *gin.Context) {
	var req struct {
		Amount string `json:"amount" binding:"required"`
		Reason string `json:"reason" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": services.CodeInvalidInput, "error": err.Error()})
		return
	}

	order, svcErr := ac.Service.ProcessRefund(c.Request.Context(), c.Param("id"), req.Amount, req.Reason)
	if svcErr != nil {
		respondError(c, svcErr)
		return
	}
	c.JSON(http.StatusOK, order)
}
