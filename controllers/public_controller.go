package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tabletap/tabletap-api/models"
	"github.com/tabletap/tabletap-api/services"
	"go.uber.org/zap"
)

// ModifierSelectionRequest picks options of one modifier
type ModifierSelectionRequest struct {
	ModifierID uint   `json:"modifier_id" binding:"required"`
	OptionIDs  []uint `json:"option_ids"`
}

// CartLineRequest is one line of a checkout request. Prices are never accepted from the client.
type CartLineRequest struct {
	MenuItemID uint                       `json:"menu_item_id" binding:"required"`
	Quantity   int                        `json:"quantity"`
	Modifiers  []ModifierSelectionRequest `json:"modifiers" binding:"dive"`
	Notes      *string                    `json:"notes" binding:"omitempty,max=500"`
}

// CheckoutRequest represents the request body for starting a checkout
type CheckoutRequest struct {
	TableCode  *string           `json:"table_code"` // omitted for pickup orders
	Lines      []CartLineRequest `json:"lines" binding:"dive"`
	TipRateBps *int              `json:"tip_rate_bps"`
	Notes      *string           `json:"notes" binding:"omitempty,max=500"`
}

// PublicRestaurant is the customer view of a restaurant
type PublicRestaurant struct {
	Slug              string `json:"slug"`
	Name              string `json:"name"`
	Currency          string `json:"currency"`
	TaxRateBps        int    `json:"tax_rate_bps"`
	DefaultTipRateBps int    `json:"default_tip_rate_bps"`
	AcceptsPayments   bool   `json:"accepts_payments"`
}

// PublicOrder is the order tracking view. It hides payment identifiers.
type PublicOrder struct {
	ID            string             `json:"id"`
	Code          string             `json:"code"`
	Status        models.OrderStatus `json:"status"`
	TableLabel    *string            `json:"table_label"`
	Currency      string             `json:"currency"`
	SubtotalCents int64              `json:"subtotal_cents"`
	TaxCents      int64              `json:"tax_cents"`
	TipCents      int64              `json:"tip_cents"`
	TotalCents    int64              `json:"total_cents"`
	Lines         []models.OrderLine `json:"lines"`
	PaidAt        *time.Time         `json:"paid_at"`
	CreatedAt     time.Time          `json:"created_at"`
}

func publicRestaurant(r *models.Restaurant) PublicRestaurant {
	return PublicRestaurant{
		Slug:              r.Slug,
		Name:              r.Name,
		Currency:          r.Currency,
		TaxRateBps:        r.TaxRateBps,
		DefaultTipRateBps: r.DefaultTipRateBps,
		AcceptsPayments:   r.AcceptsPayments(),
	}
}

func publicOrder(o *models.Order) PublicOrder {
	view := PublicOrder{
		ID:            o.ID,
		Code:          o.Code,
		Status:        o.Status,
		Currency:      o.Currency,
		SubtotalCents: o.SubtotalCents,
		TaxCents:      o.TaxCents,
		TipCents:      o.TipCents,
		TotalCents:    o.TotalCents,
		Lines:         o.Lines,
		PaidAt:        o.PaidAt,
		CreatedAt:     o.CreatedAt,
	}
	if o.Table != nil {
		view.TableLabel = &o.Table.Label
	}
	if view.Lines == nil {
		view.Lines = []models.OrderLine{}
	}
	return view
}

// PublicController serves the customer ordering pages
type PublicController struct {
	restaurants *services.RestaurantService
	menu        *services.MenuService
	checkout    *services.CheckoutService
	orders      *services.OrderService
	logger      *zap.Logger
}

// NewPublicController creates the customer-facing controller
func NewPublicController(
	restaurants *services.RestaurantService,
	menu *services.MenuService,
	checkout *services.CheckoutService,
	orders *services.OrderService,
	logger *zap.Logger,
) *PublicController {
	return &PublicController{
		restaurants: restaurants,
		menu:        menu,
		checkout:    checkout,
		orders:      orders,
		logger:      logger,
	}
}

// GetMenu handles GET /api/v1/public/restaurants/:slug/menu - lists available items
func (pc *PublicController) GetMenu(c *gin.Context) {
	ctx := c.Request.Context()
	restaurant, err := pc.restaurants.GetBySlug(ctx, c.Param("slug"))
	if err != nil {
		respondPublicError(c, pc.logger, err)
		return
	}

	items, err := pc.menu.ListMenu(ctx, restaurant.ID, true)
	if err != nil {
		respondPublicError(c, pc.logger, err)
		return
	}

	respondSuccess(c, http.StatusOK, gin.H{
		"restaurant": publicRestaurant(restaurant),
		"items":      items,
	})
}

// ResolveTable handles GET /api/v1/public/restaurants/:slug/tables/:code - resolves a scanned QR code
func (pc *PublicController) ResolveTable(c *gin.Context) {
	restaurant, table, err := pc.checkout.ResolveTable(c.Request.Context(), c.Param("slug"), c.Param("code"))
	if err != nil {
		respondPublicError(c, pc.logger, err)
		return
	}

	respondSuccess(c, http.StatusOK, gin.H{
		"restaurant": publicRestaurant(restaurant),
		"table": gin.H{
			"code":  table.Code,
			"label": table.Label,
		},
	})
}

// Checkout handles POST /api/v1/public/restaurants/:slug/checkout - prices the cart and starts payment
func (pc *PublicController) Checkout(c *gin.Context) {
	var req CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	lines := make([]services.CartLine, len(req.Lines))
	for i, line := range req.Lines {
		selections := make([]services.ModifierSelection, len(line.Modifiers))
		for j, m := range line.Modifiers {
			selections[j] = services.ModifierSelection{ModifierID: m.ModifierID, OptionIDs: m.OptionIDs}
		}
		lines[i] = services.CartLine{
			MenuItemID: line.MenuItemID,
			Quantity:   line.Quantity,
			Selections: selections,
			Notes:      line.Notes,
		}
	}

	result, err := pc.checkout.InitiateCheckout(c.Request.Context(), services.CheckoutRequest{
		RestaurantSlug: c.Param("slug"),
		TableCode:      req.TableCode,
		Lines:          lines,
		TipRateBps:     req.TipRateBps,
		Notes:          req.Notes,
	})
	if err != nil {
		respondPublicError(c, pc.logger, err)
		return
	}

	respondSuccess(c, http.StatusCreated, result)
}

// GetOrder handles GET /api/v1/public/orders/:id - the customer's tracking page
func (pc *PublicController) GetOrder(c *gin.Context) {
	order, err := pc.orders.GetPublic(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondPublicError(c, pc.logger, err)
		return
	}

	respondSuccess(c, http.StatusOK, publicOrder(order))
}
