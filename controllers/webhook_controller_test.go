package controllers

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tabletap/tabletap-api/models"
	"github.com/tabletap/tabletap-api/services"
	"github.com/tabletap/tabletap-api/tests/testutil"
	"go.uber.org/zap"
)

const testWebhookSecret = "whsec_controller_test"

type stubNotificationHandler struct {
	err    error
	events []services.PaymentEvent
}

func (h *stubNotificationHandler) HandlePaymentNotification(ctx context.Context, event services.PaymentEvent) error {
	h.events = append(h.events, event)
	return h.err
}

func newWebhookRouter(handler PaymentNotificationHandler) *gin.Engine {
	wc := NewWebhookController(services.NewStripeWebhookVerifier(testWebhookSecret), handler, zap.NewNop())
	router := setupTestRouter()
	router.POST("/webhooks/stripe", wc.HandleStripe)
	return router
}

func postWebhook(router http.Handler, payload []byte, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if signature != "" {
		req.Header.Set(StripeSignatureHeader, signature)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHandleStripe_PaymentFlow(t *testing.T) {
	env := setupTestEnv(t)
	result := env.placeOrder(t)
	order, err := env.orders.GetPublic(t.Context(), result.OrderID)
	require.NoError(t, err)
	sessionID := *order.ExternalPaymentSessionID

	router := newWebhookRouter(env.checkout)
	env.notifier.Clear()

	payload := testutil.StripeCheckoutEvent("checkout.session.completed", sessionID, "acct_luigis", "paid", 3334)

	for attempt := 1; attempt <= 2; attempt++ {
		w := postWebhook(router, payload, testutil.SignStripeWebhook(payload, testWebhookSecret))
		require.Equal(t, http.StatusOK, w.Code, "attempt %d: %s", attempt, w.Body.String())
	}

	paid, err := env.orders.GetPublic(t.Context(), result.OrderID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPaid, paid.Status)
	assert.NotNil(t, paid.PaidAt)
	assert.Len(t, env.notifier.Published(), 1, "redelivery publishes nothing")

	t.Run("Late expiry leaves a paid order alone", func(t *testing.T) {
		expired := testutil.StripeCheckoutEvent("checkout.session.expired", sessionID, "acct_luigis", "unpaid", 3334)
		w := postWebhook(router, expired, testutil.SignStripeWebhook(expired, testWebhookSecret))
		assert.Equal(t, http.StatusOK, w.Code)

		after, err := env.orders.GetPublic(t.Context(), result.OrderID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusPaid, after.Status)
	})
}

func TestHandleStripe_Expired(t *testing.T) {
	env := setupTestEnv(t)
	result := env.placeOrder(t)
	order, err := env.orders.GetPublic(t.Context(), result.OrderID)
	require.NoError(t, err)

	router := newWebhookRouter(env.checkout)
	payload := testutil.StripeCheckoutEvent("checkout.session.expired", *order.ExternalPaymentSessionID, "acct_luigis", "unpaid", 3334)
	w := postWebhook(router, payload, testutil.SignStripeWebhook(payload, testWebhookSecret))
	require.Equal(t, http.StatusOK, w.Code)

	canceled, err := env.orders.GetPublic(t.Context(), result.OrderID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCanceled, canceled.Status)
}

func TestHandleStripe_AcknowledgedButNotApplied(t *testing.T) {
	env := setupTestEnv(t)
	result := env.placeOrder(t)
	order, err := env.orders.GetPublic(t.Context(), result.OrderID)
	require.NoError(t, err)
	sessionID := *order.ExternalPaymentSessionID

	router := newWebhookRouter(env.checkout)

	tests := []struct {
		name    string
		payload []byte
	}{
		{"Other restaurant's account", testutil.StripeCheckoutEvent("checkout.session.completed", sessionID, "acct_intruder", "paid", 3334)},
		{"Unknown session", testutil.StripeCheckoutEvent("checkout.session.completed", "cs_unknown", "acct_luigis", "paid", 3334)},
		{"Payment still pending", testutil.StripeCheckoutEvent("checkout.session.completed", sessionID, "acct_luigis", "unpaid", 3334)},
		{"Unrelated event type", testutil.StripeCheckoutEvent("customer.created", sessionID, "acct_luigis", "paid", 0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postWebhook(router, tt.payload, testutil.SignStripeWebhook(tt.payload, testWebhookSecret))
			assert.Equal(t, http.StatusOK, w.Code, "Response body: %s", w.Body.String())
		})
	}

	unchanged, err := env.orders.GetPublic(t.Context(), result.OrderID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusNew, unchanged.Status)
}

func TestHandleStripe_BadRequests(t *testing.T) {
	handler := &stubNotificationHandler{}
	router := newWebhookRouter(handler)
	payload := testutil.StripeCheckoutEvent("checkout.session.completed", "cs_1", "acct_luigis", "paid", 3334)

	t.Run("Missing signature", func(t *testing.T) {
		w := postWebhook(router, payload, "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "INVALID_SIGNATURE", errorCodeOf(t, w))
	})

	t.Run("Signed with another secret", func(t *testing.T) {
		w := postWebhook(router, payload, testutil.SignStripeWebhook(payload, "whsec_other"))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Oversized body", func(t *testing.T) {
		big := []byte(`{"padding":"` + strings.Repeat("x", MaxWebhookBodySize) + `"}`)
		w := postWebhook(router, big, testutil.SignStripeWebhook(big, testWebhookSecret))
		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	})

	assert.Empty(t, handler.events, "unverified events never reach the handler")
}

func TestHandleStripe_ProcessingFailures(t *testing.T) {
	payload := testutil.StripeCheckoutEvent("checkout.session.completed", "cs_1", "acct_luigis", "paid", 3334)

	tests := []struct {
		name           string
		err            error
		expectedStatus int
	}{
		{"Storage failure is retried", &services.AppError{Code: services.CodePersistence, Message: "failed to mark paid"}, http.StatusInternalServerError},
		{"Unexpected error is retried", errors.New("boom"), http.StatusInternalServerError},
		{"Tenant mismatch is acknowledged", &services.AppError{Code: services.CodeTenantMismatch, Message: "mismatch"}, http.StatusOK},
		{"Unknown order is acknowledged", &services.AppError{Code: services.CodeNotFound, Message: "no order"}, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := &stubNotificationHandler{err: tt.err}
			router := newWebhookRouter(handler)

			w := postWebhook(router, payload, testutil.SignStripeWebhook(payload, testWebhookSecret))
			assert.Equal(t, tt.expectedStatus, w.Code)
			require.Len(t, handler.events, 1)
			assert.IsType(t, services.CheckoutCompleted{}, handler.events[0])
		})
	}
}
