package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tabletap/tabletap-api/config"
	"github.com/tabletap/tabletap-api/controllers"
	"github.com/tabletap/tabletap-api/middleware"
	"github.com/tabletap/tabletap-api/models"
	"github.com/tabletap/tabletap-api/repository"
	"github.com/tabletap/tabletap-api/routes"
	"github.com/tabletap/tabletap-api/services"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := config.NewLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	if err := run(cfg, logger); err != nil {
		logger.Fatal("Server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	logger.Info("Starting TableTap API server...")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := config.ConnectDatabase(cfg.DatabaseURL, logger)
	if err != nil {
		return err
	}
	if err := models.AutoMigrate(db); err != nil {
		return err
	}
	logger.Info("Database migration completed successfully")

	notifier, closeNotifier, err := newNotifier(cfg, logger)
	if err != nil {
		return err
	}
	defer closeNotifier()

	var images services.ImageService
	if cfg.AWSS3Bucket != "" {
		s3Service, err := services.NewS3Service(ctx, cfg, logger)
		if err != nil {
			return err
		}
		images = services.NewS3ImageService(s3Service)
	} else {
		logger.Warn("AWS_S3_BUCKET not set, menu photo uploads are disabled")
	}

	auth, err := middleware.EnsureValidToken(cfg, logger)
	if err != nil {
		return err
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	app := newApplication(cfg, logger, db, notifier, images, services.NewStripeService(cfg.StripeSecretKey, cfg.PaymentTimeout))
	router := routes.NewRouter(app.routerDependencies(auth))

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Server is running", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		sweepAbandonedOrders(gctx, app.orders, cfg.AbandonedOrderTTL, cfg.SweepInterval, logger)
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// application holds the wired services and controllers
type application struct {
	logger   *zap.Logger
	users    repository.IUserRepository
	orders   *services.OrderService
	health   *controllers.HealthController
	public   *controllers.PublicController
	webhooks *controllers.WebhookController
	userCtl  *controllers.UserController
	rests    *controllers.RestaurantController
	menu     *controllers.MenuController
	orderCtl *controllers.OrderController
	cors     []string
}

func newApplication(
	cfg *config.Config,
	logger *zap.Logger,
	db *gorm.DB,
	notifier services.Notifier,
	images services.ImageService,
	payments services.PaymentProvider,
) *application {
	restaurantRepo := repository.NewRestaurantRepository(db)
	users := repository.NewUserRepository(db)

	restaurants := services.NewRestaurantService(restaurantRepo, logger)
	menu := services.NewMenuService(repository.NewMenuRepository(db), images, logger)
	orders := services.NewOrderService(repository.NewOrderRepository(db), notifier, logger)
	checkout := services.NewCheckoutService(restaurantRepo, menu, orders, payments, cfg.PublicAppURL, cfg.PaymentTimeout, logger)

	return &application{
		logger:   logger,
		users:    users,
		orders:   orders,
		health:   controllers.NewHealthController(db),
		public:   controllers.NewPublicController(restaurants, menu, checkout, orders, logger),
		webhooks: controllers.NewWebhookController(services.NewStripeWebhookVerifier(cfg.StripeWebhookSecret), checkout, logger),
		userCtl:  controllers.NewUserController(users, services.NewAuth0Service(cfg.Auth0Domain), logger),
		rests:    controllers.NewRestaurantController(restaurants, logger),
		menu:     controllers.NewMenuController(menu, logger),
		orderCtl: controllers.NewOrderController(orders, logger),
		cors:     cfg.CORSAllowedOrigins,
	}
}

func (a *application) routerDependencies(auth gin.HandlerFunc) routes.Dependencies {
	return routes.Dependencies{
		Logger:             a.logger,
		Auth:               auth,
		Users:              a.users,
		CORSAllowedOrigins: a.cors,
		Health:             a.health,
		Public:             a.public,
		Webhooks:           a.webhooks,
		UserCtl:            a.userCtl,
		Restaurants:        a.rests,
		Menu:               a.menu,
		Orders:             a.orderCtl,
	}
}

// newNotifier uses RabbitMQ when RABBITMQ_URL is set and logs updates otherwise
func newNotifier(cfg *config.Config, logger *zap.Logger) (services.Notifier, func(), error) {
	if cfg.RabbitMQURL == "" {
		logger.Warn("RABBITMQ_URL not set, order updates are only logged")
		return services.NewLogNotifier(logger), func() {}, nil
	}
	notifier, err := services.NewRabbitMQNotifier(cfg.RabbitMQURL, logger)
	if err != nil {
		return nil, nil, err
	}
	return notifier, notifier.Close, nil
}

// sweepAbandonedOrders cancels NEW orders that never got a payment session
func sweepAbandonedOrders(ctx context.Context, orders *services.OrderService, ttl, interval time.Duration, logger *zap.Logger) {
	if interval <= 0 {
		logger.Warn("SWEEP_INTERVAL is not positive, abandoned order sweeper disabled")
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			canceled, err := orders.CancelAbandoned(ctx, ttl)
			if err != nil {
				logger.Error("abandoned order sweep failed", zap.Error(err))
				continue
			}
			if canceled > 0 {
				logger.Info("canceled abandoned orders", zap.Int("count", canceled))
			}
		}
	}
}
