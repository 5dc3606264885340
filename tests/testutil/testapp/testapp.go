// Package testapp wires the full HTTP API against in-memory collaborators
// for the integration and acceptance suites.
package testapp

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tabletap/tabletap-api/controllers"
	"github.com/tabletap/tabletap-api/models"
	"github.com/tabletap/tabletap-api/repository"
	"github.com/tabletap/tabletap-api/routes"
	"github.com/tabletap/tabletap-api/services"
	"github.com/tabletap/tabletap-api/tests/testutil"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	// WebhookSecret signs test webhook deliveries
	WebhookSecret = "whsec_integration"
	// PublicURL is the customer web app the checkout redirects back to
	PublicURL = "https://order.example.com"
)

// Options configures New
type Options struct {
	// Identities maps bearer tokens to the staff member they authenticate
	Identities map[string]testutil.Identity
	// UserInfo maps bearer tokens to the Auth0 /userinfo profile
	UserInfo map[string]*services.Auth0UserInfo
}

// App is the running API plus handles on every collaborator
type App struct {
	Router   *gin.Engine
	DB       *gorm.DB
	Notifier *services.MockNotifier
	Payments *services.MockPaymentProvider
	S3       *services.MockS3Service
	Orders   *services.OrderService
}

// New builds the router the way main does, with mocks in place of Stripe, S3, RabbitMQ and Auth0
func New(t *testing.T, opts Options) *App {
	t.Helper()
	gin.SetMode(gin.TestMode)

	auth0 := mockAuth0(opts.UserInfo)
	t.Cleanup(auth0.Close)

	app := &App{
		DB:       testutil.NewTestDB(t),
		Notifier: services.NewMockNotifier(),
		Payments: services.NewMockPaymentProvider(),
		S3:       services.NewMockS3Service(),
	}
	logger := zap.NewNop()

	restaurantRepo := repository.NewRestaurantRepository(app.DB)
	users := repository.NewUserRepository(app.DB)
	restaurants := services.NewRestaurantService(restaurantRepo, logger)
	menu := services.NewMenuService(repository.NewMenuRepository(app.DB), services.NewS3ImageService(app.S3), logger)
	app.Orders = services.NewOrderService(repository.NewOrderRepository(app.DB), app.Notifier, logger)
	checkout := services.NewCheckoutService(restaurantRepo, menu, app.Orders, app.Payments, PublicURL, 5*time.Second, logger)

	app.Router = routes.NewRouter(routes.Dependencies{
		Logger:      logger,
		Auth:        testutil.StubAuth(opts.Identities),
		Users:       users,
		Health:      controllers.NewHealthController(app.DB),
		Public:      controllers.NewPublicController(restaurants, menu, checkout, app.Orders, logger),
		Webhooks:    controllers.NewWebhookController(services.NewStripeWebhookVerifier(WebhookSecret), checkout, logger),
		UserCtl:     controllers.NewUserController(users, services.NewAuth0Service(auth0.URL), logger),
		Restaurants: controllers.NewRestaurantController(restaurants, logger),
		Menu:        controllers.NewMenuController(menu, logger),
		Orders:      controllers.NewOrderController(app.Orders, logger),
	})
	return app
}

// SessionID returns the payment session attached to an order
func (a *App) SessionID(t *testing.T, orderID string) string {
	t.Helper()
	var order models.Order
	if err := a.DB.First(&order, "id = ?", orderID).Error; err != nil {
		t.Fatalf("Failed to load order %s: %v", orderID, err)
	}
	if order.ExternalPaymentSessionID == nil {
		t.Fatalf("Order %s has no payment session", orderID)
	}
	return *order.ExternalPaymentSessionID
}

func mockAuth0(profiles map[string]*services.Auth0UserInfo) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/userinfo" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		token, _ := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		profile, ok := profiles[token]
		if !ok {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(profile)
	}))
}
