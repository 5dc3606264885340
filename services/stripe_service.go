package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"
)

// Stripe event types acted on by the webhook
const (
	stripeEventCheckoutCompleted     = "checkout.session.completed"
	stripeEventAsyncPaymentSucceeded = "checkout.session.async_payment_succeeded"
	stripeEventCheckoutExpired       = "checkout.session.expired"
)

// StripeService creates Checkout Sessions on restaurants' connected accounts
type StripeService struct {
	api *client.API
}

// NewStripeService creates a Stripe client whose HTTP calls are bounded by timeout
func NewStripeService(secretKey string, timeout time.Duration) *StripeService {
	httpClient := &http.Client{Timeout: timeout}
	return &StripeService{
		api: client.New(secretKey, stripe.NewBackends(httpClient)),
	}
}

// CreateSession creates a payment-mode Checkout Session on the connected account
func (s *StripeService) CreateSession(ctx context.Context, req SessionRequest) (*PaymentSession, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(req.SuccessURL),
		CancelURL:  stripe.String(req.CancelURL),
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			Metadata: req.Metadata,
		},
	}
	params.Context = ctx
	params.SetStripeAccount(req.AccountID)
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}
	if orderID, ok := req.Metadata["order_id"]; ok {
		params.ClientReferenceID = stripe.String(orderID)
	}

	for _, item := range req.LineItems {
		product := &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
			Name: stripe.String(item.Name),
		}
		if item.Description != "" {
			product.Description = stripe.String(item.Description)
		}
		params.LineItems = append(params.LineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:    stripe.String(req.Currency),
				ProductData: product,
				UnitAmount:  stripe.Int64(item.UnitPriceCents),
			},
			Quantity: stripe.Int64(item.Quantity),
		})
	}

	sess, err := s.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe checkout session: %w", err)
	}
	return &PaymentSession{SessionID: sess.ID, RedirectURL: sess.URL}, nil
}

// StripeWebhookVerifier checks webhook signatures and decodes events
type StripeWebhookVerifier struct {
	secret string
}

// NewStripeWebhookVerifier creates a verifier for the endpoint signing secret
func NewStripeWebhookVerifier(secret string) *StripeWebhookVerifier {
	return &StripeWebhookVerifier{secret: secret}
}

// ParseEvent verifies the Stripe-Signature header and maps the event to a PaymentEvent
func (v *StripeWebhookVerifier) ParseEvent(payload []byte, signatureHeader string) (PaymentEvent, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signatureHeader, v.secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("invalid webhook signature: %w", err)
	}

	eventType := string(event.Type)
	switch eventType {
	case stripeEventCheckoutCompleted, stripeEventAsyncPaymentSucceeded:
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			return nil, fmt.Errorf("failed to decode checkout session: %w", err)
		}
		return CheckoutCompleted{
			EventID:     event.ID,
			SessionID:   sess.ID,
			AccountID:   event.Account,
			AmountCents: sess.AmountTotal,
			Paid:        string(sess.PaymentStatus) == string(stripe.CheckoutSessionPaymentStatusPaid),
		}, nil
	case stripeEventCheckoutExpired:
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			return nil, fmt.Errorf("failed to decode checkout session: %w", err)
		}
		return CheckoutExpired{
			EventID:   event.ID,
			SessionID: sess.ID,
			AccountID: event.Account,
		}, nil
	default:
		return UnknownEvent{EventID: event.ID, Type: eventType}, nil
	}
}
