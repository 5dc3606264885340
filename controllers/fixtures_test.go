package controllers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/tabletap/tabletap-api/middleware"
	"github.com/tabletap/tabletap-api/models"
	"github.com/tabletap/tabletap-api/repository"
	"github.com/tabletap/tabletap-api/services"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	if err := models.AutoMigrate(db); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}
	return db
}

func setupTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	return router
}

// mockAuthMiddleware simulates the Auth0 JWT middleware for testing
// It sets up the context exactly as the real EnsureValidToken middleware does
func mockAuthMiddleware(auth0ID, accessToken string, scopes ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.ContextUserID, auth0ID)
		c.Set(middleware.ContextAccessToken, accessToken)
		c.Set(middleware.ContextClaims, &validator.ValidatedClaims{
			RegisteredClaims: validator.RegisteredClaims{Subject: auth0ID},
			CustomClaims:     &middleware.CustomClaims{Scope: strings.Join(scopes, " ")},
		})
		c.Next()
	}
}

// staffContext is the middleware chain a staff member's request passes through
func staffContext(db *gorm.DB, auth0ID string, scopes ...string) []gin.HandlerFunc {
	return []gin.HandlerFunc{
		mockAuthMiddleware(auth0ID, "token-"+auth0ID, scopes...),
		middleware.LoadStaffUser(repository.NewUserRepository(db)),
		middleware.RequireRestaurant(),
	}
}

// testEnv is a restaurant with a table, a pizza and staff, plus the services behind the controllers
type testEnv struct {
	db          *gorm.DB
	restaurant  *models.Restaurant
	table       *models.Table
	pizza       *models.MenuItem
	owner       *models.User
	waiter      *models.User
	notifier    *services.MockNotifier
	payments    *services.MockPaymentProvider
	s3          *services.MockS3Service
	restaurants *services.RestaurantService
	menu        *services.MenuService
	orders      *services.OrderService
	checkout    *services.CheckoutService
}

func setupTestEnv(t *testing.T) *testEnv {
	db := setupTestDB(t)
	env := &testEnv{
		db:       db,
		notifier: services.NewMockNotifier(),
		payments: services.NewMockPaymentProvider(),
		s3:       services.NewMockS3Service(),
	}

	account := "acct_luigis"
	env.restaurant = &models.Restaurant{
		Slug:              "luigis",
		Name:              "Luigi's",
		Currency:          "usd",
		TaxRateBps:        875,
		DefaultTipRateBps: 1800,
		StripeAccountID:   &account,
		PaymentsEnabled:   true,
	}
	require.NoError(t, db.Create(env.restaurant).Error)

	env.table = &models.Table{RestaurantID: env.restaurant.ID, Code: "t-12", Label: "Table 12"}
	require.NoError(t, db.Create(env.table).Error)

	env.pizza = &models.MenuItem{
		RestaurantID: env.restaurant.ID,
		Name:         "Margherita",
		Category:     "Pizza",
		PriceCents:   1299,
		IsAvailable:  true,
		Modifiers: []models.Modifier{{
			Name:    "Size",
			Type:    models.ModifierSingle,
			Options: []models.ModifierOption{{Name: "Small"}, {Name: "Large", PriceDeltaCents: 300}},
		}},
	}
	require.NoError(t, db.Create(env.pizza).Error)

	env.owner = &models.User{Auth0ID: "auth0|owner", Name: "Luigi", Email: "luigi@example.com", Role: models.RoleOwner, RestaurantID: &env.restaurant.ID}
	require.NoError(t, db.Create(env.owner).Error)
	env.waiter = &models.User{Auth0ID: "auth0|waiter", Name: "Mario", Email: "mario@example.com", Role: models.RoleStaff, RestaurantID: &env.restaurant.ID}
	require.NoError(t, db.Create(env.waiter).Error)

	restaurantRepo := repository.NewRestaurantRepository(db)
	env.restaurants = services.NewRestaurantService(restaurantRepo, zap.NewNop())
	env.menu = services.NewMenuService(repository.NewMenuRepository(db), services.NewS3ImageService(env.s3), zap.NewNop())
	env.orders = services.NewOrderService(repository.NewOrderRepository(db), env.notifier, zap.NewNop())
	env.checkout = services.NewCheckoutService(restaurantRepo, env.menu, env.orders, env.payments,
		"https://order.example.com", 5*time.Second, zap.NewNop())
	return env
}

// placeOrder checks out two plain pizzas at table t-12
func (e *testEnv) placeOrder(t *testing.T) *services.CheckoutResult {
	code := e.table.Code
	result, err := e.checkout.InitiateCheckout(t.Context(), services.CheckoutRequest{
		RestaurantSlug: e.restaurant.Slug,
		TableCode:      &code,
		Lines:          []services.CartLine{{MenuItemID: e.pizza.ID, Quantity: 2}},
	})
	require.NoError(t, err)
	return result
}

func doJSON(router http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		if raw, ok := body.(string); ok {
			reader = strings.NewReader(raw)
		} else {
			encoded, _ := json.Marshal(body)
			reader = bytes.NewReader(encoded)
		}
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response), "body: %s", w.Body.String())
	return response
}

func dataOf(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	response := decodeResponse(t, w)
	require.Equal(t, true, response["success"], "body: %s", w.Body.String())
	return response["data"].(map[string]interface{})
}

func errorCodeOf(t *testing.T, w *httptest.ResponseRecorder) string {
	response := decodeResponse(t, w)
	require.Equal(t, false, response["success"], "body: %s", w.Body.String())
	return response["error"].(map[string]interface{})["code"].(string)
}
