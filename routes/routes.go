package routes

import (
	"order-lifecycle-service/controllers"
	"order-lifecycle-service/middleware"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// Register wires all route groups onto the engine.
func Register(
	r *gin.Engine,
	orders *controllers.OrderController,
	carts *controllers.CartController,
	admin *controllers.AdminController,
	webhook *controllers.WebhookController,
	jwtSecret string,
) {
	auth := middleware.AuthMiddleware(jwtSecret)

	orderRoutes := r.Group("/orders")
	orderRoutes.Use(auth)
	orderRoutes.POST("", orders.CreateOrder)
	orderRoutes.POST("/verify", orders.VerifyPayment)
	orderRoutes.GET("", orders.GetOrders)
	orderRoutes.GET("/:id", orders.GetOrderByID)
	orderRoutes.POST("/:id/cancel", orders.CancelOrder)
	orderRoutes.POST("/:id/payment-failed", orders.ReportPaymentFailure)

	cartRoutes := r.Group("/cart")
	cartRoutes.Use(auth)
	cartRoutes.GET("", carts.GetCart)
	cartRoutes.POST("/items", carts.AddItem)
	cartRoutes.PUT("/items/:product_id", carts.UpdateItem)
	cartRoutes.DELETE("/items/:product_id", carts.RemoveItem)
	cartRoutes.DELETE("", carts.ClearCart)

	adminRoutes := r.Group("/admin")
	adminRoutes.Use(auth, middleware.AdminOnly())
	adminRoutes.GET("/orders", admin.ListOrders)
	adminRoutes.GET("/orders/:id", admin.GetOrder)
	adminRoutes.PATCH("/orders/:id/status", admin.UpdateOrderStatus)
	adminRoutes.PATCH("/orders/:id/tracking", admin.UpdateTracking)
	adminRoutes.POST("/orders/:id/refund", admin.ProcessRefund)

	webhookRoutes := r.Group("/webhook")
	webhookRoutes.Use(middleware.RateLimitMiddleware(rate.Limit(10), 20))
	webhookRoutes.POST("/payment", webhook.PaymentWebhook)
}
