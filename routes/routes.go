// Package routes assembles the HTTP API.
package routes

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/tabletap/tabletap-api/controllers"
	"github.com/tabletap/tabletap-api/middleware"
	"github.com/tabletap/tabletap-api/repository"
	"go.uber.org/zap"
)

// MaxUploadMemory is the multipart memory limit for menu photo uploads
const MaxUploadMemory = 10 << 20

// Dependencies are the controllers and middleware the router mounts
type Dependencies struct {
	Logger *zap.Logger
	// Auth validates the bearer token; tests swap in a stub
	Auth               gin.HandlerFunc
	Users              repository.IUserRepository
	CORSAllowedOrigins []string

	Health      *controllers.HealthController
	Public      *controllers.PublicController
	Webhooks    *controllers.WebhookController
	UserCtl     *controllers.UserController
	Restaurants *controllers.RestaurantController
	Menu        *controllers.MenuController
	Orders      *controllers.OrderController
}

// NewRouter builds the gin engine with every route under /api/v1
func NewRouter(deps Dependencies) *gin.Engine {
	router := gin.New()
	router.MaxMultipartMemory = MaxUploadMemory
	router.Use(gin.Recovery(), middleware.RequestLogger(deps.Logger))

	if len(deps.CORSAllowedOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     deps.CORSAllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.RequestIDHeader},
			ExposeHeaders:    []string{middleware.RequestIDHeader},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", deps.Health.HealthCheck)
		v1.GET("/database/status", deps.Health.DatabaseStatus)

		public := v1.Group("/public")
		{
			public.GET("/restaurants/:slug/menu", deps.Public.GetMenu)
			public.GET("/restaurants/:slug/tables/:code", deps.Public.ResolveTable)
			public.POST("/restaurants/:slug/checkout", deps.Public.Checkout)
			public.GET("/orders/:id", deps.Public.GetOrder)
		}

		v1.POST("/webhooks/stripe", deps.Webhooks.HandleStripe)

		authed := v1.Group("", deps.Auth)
		{
			// Creating a profile is the only staff call without a profile
			authed.POST("/users", deps.UserCtl.CreateUser)

			staff := authed.Group("", middleware.LoadStaffUser(deps.Users))
			staff.GET("/users/me", deps.UserCtl.GetMyProfile)
			staff.PUT("/users/me", deps.UserCtl.UpdateMyProfile)
			staff.POST("/restaurants", deps.Restaurants.CreateRestaurant)

			restaurant := staff.Group("/restaurant", middleware.RequireRestaurant())
			{
				restaurant.GET("", deps.Restaurants.GetRestaurant)
				restaurant.PUT("/payments", middleware.RequireOwner(), deps.Restaurants.UpdatePayments)
				restaurant.PUT("/pricing", middleware.RequireOwner(), deps.Restaurants.UpdatePricing)
				restaurant.POST("/tables", deps.Restaurants.CreateTable)
				restaurant.GET("/tables", deps.Restaurants.ListTables)

				menu := restaurant.Group("/menu/items")
				menu.GET("", deps.Menu.ListItems)
				menu.POST("", middleware.RequireScope(middleware.ScopeManageMenu), deps.Menu.CreateItem)
				menu.PUT("/:id", middleware.RequireScope(middleware.ScopeManageMenu), deps.Menu.UpdateItem)
				menu.POST("/:id/modifiers", middleware.RequireScope(middleware.ScopeManageMenu), deps.Menu.AddModifier)
				menu.POST("/:id/image", middleware.RequireScope(middleware.ScopeManageMenu), deps.Menu.UploadImage)

				restaurant.GET("/orders", deps.Orders.ListOrders)
				restaurant.GET("/orders/:id", deps.Orders.GetOrder)
				restaurant.PATCH("/orders/:id/status", deps.Orders.UpdateOrderStatus)
				restaurant.DELETE("/orders/:id", middleware.RequireOwner(), deps.Orders.DeleteOrder)
			}
		}
	}

	return router
}
