package controllers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"order-lifecycle-service/gateway"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// GatewayEventHandler is the slice of the lifecycle service the webhook
// needs; narrowed for test doubles.
type GatewayEventHandler interface {
	HandleGatewayEvent(ctx context.Context, eventType, intentID, paymentID, description string)
}

type WebhookController struct {
	Verifier *gateway.SignatureVerifier
	Handler  GatewayEventHandler
	Logger   *zap.Logger
}

func NewWebhookController(verifier *gateway.SignatureVerifier, handler GatewayEventHandler, logger *zap.Logger) *WebhookController {
	return &WebhookController{Verifier: verifier, Handler: handler, Logger: logger}
}

// webhookEvent mirrors the gateway's event envelope.
type webhookEvent struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity struct {
				ID               string `json:"id"`
				OrderID          string `json:"order_id"`
				ErrorDescription string `json:"error_description"`
			} `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

// PaymentWebhook receives signed gateway event notifications. It always
// acknowledges with 200 — even on a bad signature — so the gateway does not
// retry-storm; mismatches are logged and dropped, never acted upon.
func (wc *WebhookController) PaymentWebhook(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		wc.Logger.Warn("Failed to read webhook body", zap.Error(err))
		c.JSON(http.StatusOK, gin.H{"status": "received"})
		return
	}

	signature := c.GetHeader("X-Webhook-Signature")
	if !wc.Verifier.VerifyWebhook(body, signature) {
		wc.Logger.Warn("Webhook signature mismatch",
			zap.String("ip", c.ClientIP()),
			zap.Int("body_len", len(body)),
		)
		c.JSON(http.StatusOK, gin.H{"status": "received"})
		return
	}

	var event webhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		wc.Logger.Warn("Malformed webhook payload", zap.Error(err))
		c.JSON(http.StatusOK, gin.H{"status": "received"})
		return
	}

	entity := event.Payload.Payment.Entity
	wc.Logger.Info("Processing gateway webhook",
		zap.String("event", event.Event),
		zap.String("intent_id", entity.OrderID),
		zap.String("payment_id", entity.ID),
	)
	wc.Handler.HandleGatewayEvent(c.Request.Context(), event.Event, entity.OrderID, entity.ID, entity.ErrorDescription)

	c.JSON(http.StatusOK, gin.H{"status": "received"})
}
