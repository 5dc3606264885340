package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tabletap/tabletap-api/config"
	"github.com/tabletap/tabletap-api/controllers"
	"github.com/tabletap/tabletap-api/models"
	"github.com/tabletap/tabletap-api/repository"
	"github.com/tabletap/tabletap-api/services"
	"github.com/tabletap/tabletap-api/tests/testutil"
	"go.uber.org/zap"
)

// TestHealthCheck is a unit test for the health check handler
func TestHealthCheck(t *testing.T) {
	// Set Gin to test mode
	gin.SetMode(gin.TestMode)

	// Create a test context and response recorder
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	controllers.NewHealthController(nil).HealthCheck(c)

	assert.Equal(t, http.StatusOK, w.Code, "Expected status code 200")

	var response map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(t, err, "Response should be valid JSON")

	assert.Equal(t, true, response["success"], "Expected success to be true")
	assert.Equal(t, controllers.HealthMessage, response["message"], "Expected correct message")
}

// TestHealthCheckResponseFormat tests the exact JSON format
func TestHealthCheckResponseFormat(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	controllers.NewHealthController(nil).HealthCheck(c)

	assert.Equal(t, "application/json; charset=utf-8", w.Header().Get("Content-Type"))

	var response map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &response)
	assert.Len(t, response, 2, "Response should have exactly 2 fields")
	assert.Contains(t, response, "success")
	assert.Contains(t, response, "message")
}

func TestSweepAbandonedOrders(t *testing.T) {
	db := testutil.NewTestDB(t)
	restaurant := &models.Restaurant{Slug: "luigis", Name: "Luigi's", Currency: "usd"}
	require.NoError(t, db.Create(restaurant).Error)

	stale := &models.Order{RestaurantID: restaurant.ID, Code: "0001", Status: models.StatusNew, Currency: "usd", CreatedAt: time.Now().Add(-3 * time.Hour)}
	fresh := &models.Order{RestaurantID: restaurant.ID, Code: "0002", Status: models.StatusNew, Currency: "usd"}
	require.NoError(t, db.Create(stale).Error)
	require.NoError(t, db.Create(fresh).Error)

	notifier := services.NewMockNotifier()
	orders := services.NewOrderService(repository.NewOrderRepository(db), notifier, zap.NewNop())

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan struct{})
	go func() {
		sweepAbandonedOrders(ctx, orders, 2*time.Hour, 10*time.Millisecond, zap.NewNop())
		close(done)
	}()

	assert.Eventually(t, func() bool {
		var order models.Order
		return db.First(&order, "id = ?", stale.ID).Error == nil && order.Status == models.StatusCanceled
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop after cancel")
	}

	var order models.Order
	require.NoError(t, db.First(&order, "id = ?", fresh.ID).Error)
	assert.Equal(t, models.StatusNew, order.Status, "orders younger than the TTL stay open")
	assert.Len(t, notifier.Published(), 1)
}

func TestSweepAbandonedOrders_Disabled(t *testing.T) {
	done := make(chan struct{})
	go func() {
		sweepAbandonedOrders(t.Context(), nil, time.Hour, 0, zap.NewNop())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper with no interval should return immediately")
	}
}

func TestNewNotifier_WithoutBroker(t *testing.T) {
	notifier, closeNotifier, err := newNotifier(&config.Config{}, zap.NewNop())
	require.NoError(t, err)
	defer closeNotifier()

	assert.IsType(t, &services.LogNotifier{}, notifier)
	assert.NoError(t, notifier.Publish(t.Context(), services.OrderSnapshot{OrderID: "o-1"}))
}
