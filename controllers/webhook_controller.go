package controllers

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tabletap/tabletap-api/services"
	"go.uber.org/zap"
)

// MaxWebhookBodySize bounds the webhook payload read into memory
const MaxWebhookBodySize = 64 * 1024

// StripeSignatureHeader carries the webhook signature
const StripeSignatureHeader = "Stripe-Signature"

// PaymentNotificationHandler applies a verified payment event
type PaymentNotificationHandler interface {
	HandlePaymentNotification(ctx context.Context, event services.PaymentEvent) error
}

// WebhookController receives payment processor notifications
type WebhookController struct {
	parser  services.PaymentEventParser
	handler PaymentNotificationHandler
	logger  *zap.Logger
}

// NewWebhookController creates the webhook receiver
func NewWebhookController(parser services.PaymentEventParser, handler PaymentNotificationHandler, logger *zap.Logger) *WebhookController {
	return &WebhookController{parser: parser, handler: handler, logger: logger.Named("webhooks")}
}

// HandleStripe handles POST /api/v1/webhooks/stripe.
// Only storage failures return 5xx so the processor redelivers; rejected
// events are logged and acknowledged.
func (wc *WebhookController) HandleStripe(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, MaxWebhookBodySize+1))
	if err != nil {
		respondErrorBody(c, http.StatusBadRequest, "INVALID_PAYLOAD", "Could not read request body", nil)
		return
	}
	if len(payload) > MaxWebhookBodySize {
		respondErrorBody(c, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "Webhook payload is too large", nil)
		return
	}

	event, err := wc.parser.ParseEvent(payload, c.GetHeader(StripeSignatureHeader))
	if err != nil {
		wc.logger.Warn("rejected webhook", zap.Error(err))
		respondErrorBody(c, http.StatusBadRequest, "INVALID_SIGNATURE", "Webhook signature verification failed", nil)
		return
	}

	if err := wc.handler.HandlePaymentNotification(c.Request.Context(), event); err != nil {
		code := services.ErrorCode(err)
		if code == "" || code == services.CodePersistence {
			wc.logger.Error("webhook processing failed", zap.Error(err))
			respondErrorBody(c, http.StatusInternalServerError, "PROCESSING_ERROR", "Webhook could not be processed", nil)
			return
		}
		wc.logger.Warn("webhook event not applied", zap.String("code", code), zap.Error(err))
	}

	respondSuccess(c, http.StatusOK, gin.H{"received": true})
}
