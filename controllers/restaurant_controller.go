package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tabletap/tabletap-api/middleware"
	"github.com/tabletap/tabletap-api/services"
	"go.uber.org/zap"
)

// CreateRestaurantRequest represents the request body for registering a restaurant
type CreateRestaurantRequest struct {
	Slug              string `json:"slug" binding:"required,max=64"`
	Name              string `json:"name" binding:"required,max=128"`
	Currency          string `json:"currency" binding:"omitempty,len=3"`
	TaxRateBps        int    `json:"tax_rate_bps" binding:"min=0,max=10000"`
	DefaultTipRateBps int    `json:"default_tip_rate_bps" binding:"min=0,max=10000"`
}

// UpdatePaymentsRequest connects or disconnects the payment account
type UpdatePaymentsRequest struct {
	StripeAccountID string `json:"stripe_account_id"`
	PaymentsEnabled bool   `json:"payments_enabled"`
}

// UpdatePricingRequest changes the tax rate and default tip
type UpdatePricingRequest struct {
	TaxRateBps        *int `json:"tax_rate_bps" binding:"required,min=0,max=10000"`
	DefaultTipRateBps *int `json:"default_tip_rate_bps" binding:"required,min=0,max=10000"`
}

// CreateTableRequest adds a table. Code is generated when omitted.
type CreateTableRequest struct {
	Label string `json:"label" binding:"required,max=64"`
	Code  string `json:"code" binding:"omitempty,max=64"`
}

// RestaurantController manages the staff member's restaurant
type RestaurantController struct {
	restaurants *services.RestaurantService
	logger      *zap.Logger
}

// NewRestaurantController creates the restaurant controller
func NewRestaurantController(restaurants *services.RestaurantService, logger *zap.Logger) *RestaurantController {
	return &RestaurantController{restaurants: restaurants, logger: logger}
}

// CreateRestaurant handles POST /api/v1/restaurants - the caller becomes the owner
func (rc *RestaurantController) CreateRestaurant(c *gin.Context) {
	user, ok := middleware.GetStaffUser(c)
	if !ok {
		respondErrorBody(c, http.StatusUnauthorized, "UNAUTHORIZED", "Could not extract user information", nil)
		return
	}

	var req CreateRestaurantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	restaurant, err := rc.restaurants.Create(c.Request.Context(), user, services.NewRestaurant{
		Slug:              req.Slug,
		Name:              req.Name,
		Currency:          req.Currency,
		TaxRateBps:        req.TaxRateBps,
		DefaultTipRateBps: req.DefaultTipRateBps,
	})
	if err != nil {
		respondServiceError(c, rc.logger, err)
		return
	}

	respondSuccess(c, http.StatusCreated, restaurant)
}

// GetRestaurant handles GET /api/v1/restaurant
func (rc *RestaurantController) GetRestaurant(c *gin.Context) {
	restaurantID, _ := middleware.GetRestaurantID(c)
	restaurant, err := rc.restaurants.Get(c.Request.Context(), restaurantID)
	if err != nil {
		respondServiceError(c, rc.logger, err)
		return
	}
	respondSuccess(c, http.StatusOK, restaurant)
}

// UpdatePayments handles PUT /api/v1/restaurant/payments (owner only)
func (rc *RestaurantController) UpdatePayments(c *gin.Context) {
	var req UpdatePaymentsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	restaurantID, _ := middleware.GetRestaurantID(c)
	restaurant, err := rc.restaurants.ConfigurePayments(c.Request.Context(), restaurantID, req.StripeAccountID, req.PaymentsEnabled)
	if err != nil {
		respondServiceError(c, rc.logger, err)
		return
	}
	respondSuccess(c, http.StatusOK, restaurant)
}

// UpdatePricing handles PUT /api/v1/restaurant/pricing (owner only)
func (rc *RestaurantController) UpdatePricing(c *gin.Context) {
	var req UpdatePricingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	restaurantID, _ := middleware.GetRestaurantID(c)
	restaurant, err := rc.restaurants.UpdatePricing(c.Request.Context(), restaurantID, *req.TaxRateBps, *req.DefaultTipRateBps)
	if err != nil {
		respondServiceError(c, rc.logger, err)
		return
	}
	respondSuccess(c, http.StatusOK, restaurant)
}

// CreateTable handles POST /api/v1/restaurant/tables
func (rc *RestaurantController) CreateTable(c *gin.Context) {
	var req CreateTableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	restaurantID, _ := middleware.GetRestaurantID(c)
	table, err := rc.restaurants.CreateTable(c.Request.Context(), restaurantID, req.Label, req.Code)
	if err != nil {
		respondServiceError(c, rc.logger, err)
		return
	}
	respondSuccess(c, http.StatusCreated, table)
}

// ListTables handles GET /api/v1/restaurant/tables
func (rc *RestaurantController) ListTables(c *gin.Context) {
	restaurantID, _ := middleware.GetRestaurantID(c)
	tables, err := rc.restaurants.ListTables(c.Request.Context(), restaurantID)
	if err != nil {
		respondServiceError(c, rc.logger, err)
		return
	}
	respondSuccess(c, http.StatusOK, tables)
}
