package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/tabletap/tabletap-api/middleware"
	"github.com/tabletap/tabletap-api/models"
	"github.com/tabletap/tabletap-api/services"
	"go.uber.org/zap"
)

// ModifierOptionRequest is one option of a modifier group
type ModifierOptionRequest struct {
	Name            string `json:"name" binding:"required,max=64"`
	PriceDeltaCents int64  `json:"price_delta_cents"` // may be negative
}

// ModifierRequest is a modifier group such as "Size" or "Extras"
type ModifierRequest struct {
	Name    string                  `json:"name" binding:"required,max=64"`
	Type    string                  `json:"type" binding:"required,oneof=SINGLE MULTI"`
	Options []ModifierOptionRequest `json:"options" binding:"required,min=1,dive"`
}

// CreateMenuItemRequest represents the request body for adding a menu item
type CreateMenuItemRequest struct {
	Name        string            `json:"name" binding:"required,max=128"`
	Description string            `json:"description" binding:"max=1000"`
	Category    string            `json:"category" binding:"max=64"`
	PriceCents  *int64            `json:"price_cents" binding:"required,min=0"`
	IsAvailable *bool             `json:"is_available"` // defaults to true
	Modifiers   []ModifierRequest `json:"modifiers" binding:"dive"`
}

// UpdateMenuItemRequest changes only the fields that are present
type UpdateMenuItemRequest struct {
	Name        *string `json:"name" binding:"omitempty,min=1,max=128"`
	Description *string `json:"description" binding:"omitempty,max=1000"`
	Category    *string `json:"category" binding:"omitempty,max=64"`
	PriceCents  *int64  `json:"price_cents" binding:"omitempty,min=0"`
	IsAvailable *bool   `json:"is_available"`
}

func (r ModifierRequest) toModel() models.Modifier {
	options := make([]models.ModifierOption, len(r.Options))
	for i, o := range r.Options {
		options[i] = models.ModifierOption{Name: o.Name, PriceDeltaCents: o.PriceDeltaCents}
	}
	return models.Modifier{Name: r.Name, Type: models.ModifierType(r.Type), Options: options}
}

// MenuController lets staff edit the restaurant's menu
type MenuController struct {
	menu   *services.MenuService
	logger *zap.Logger
}

// NewMenuController creates the menu management controller
func NewMenuController(menu *services.MenuService, logger *zap.Logger) *MenuController {
	return &MenuController{menu: menu, logger: logger}
}

// ListItems handles GET /api/v1/restaurant/menu/items - includes unavailable items
func (mc *MenuController) ListItems(c *gin.Context) {
	restaurantID, _ := middleware.GetRestaurantID(c)
	items, err := mc.menu.ListMenu(c.Request.Context(), restaurantID, false)
	if err != nil {
		respondServiceError(c, mc.logger, err)
		return
	}
	respondSuccess(c, http.StatusOK, items)
}

// CreateItem handles POST /api/v1/restaurant/menu/items
func (mc *MenuController) CreateItem(c *gin.Context) {
	var req CreateMenuItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	in := services.NewMenuItem{
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
		PriceCents:  *req.PriceCents,
		IsAvailable: req.IsAvailable == nil || *req.IsAvailable,
	}
	for _, m := range req.Modifiers {
		in.Modifiers = append(in.Modifiers, m.toModel())
	}

	restaurantID, _ := middleware.GetRestaurantID(c)
	item, err := mc.menu.CreateItem(c.Request.Context(), restaurantID, in)
	if err != nil {
		respondServiceError(c, mc.logger, err)
		return
	}
	respondSuccess(c, http.StatusCreated, item)
}

// UpdateItem handles PUT /api/v1/restaurant/menu/items/:id
func (mc *MenuController) UpdateItem(c *gin.Context) {
	itemID, ok := parseItemID(c)
	if !ok {
		return
	}

	var req UpdateMenuItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	restaurantID, _ := middleware.GetRestaurantID(c)
	item, err := mc.menu.UpdateItem(c.Request.Context(), restaurantID, itemID, services.MenuItemUpdate{
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
		PriceCents:  req.PriceCents,
		IsAvailable: req.IsAvailable,
	})
	if err != nil {
		respondServiceError(c, mc.logger, err)
		return
	}
	respondSuccess(c, http.StatusOK, item)
}

// AddModifier handles POST /api/v1/restaurant/menu/items/:id/modifiers
func (mc *MenuController) AddModifier(c *gin.Context) {
	itemID, ok := parseItemID(c)
	if !ok {
		return
	}

	var req ModifierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	restaurantID, _ := middleware.GetRestaurantID(c)
	item, err := mc.menu.AddModifier(c.Request.Context(), restaurantID, itemID, req.toModel())
	if err != nil {
		respondServiceError(c, mc.logger, err)
		return
	}
	respondSuccess(c, http.StatusCreated, item)
}

// UploadImage handles POST /api/v1/restaurant/menu/items/:id/image (multipart field "image")
func (mc *MenuController) UploadImage(c *gin.Context) {
	itemID, ok := parseItemID(c)
	if !ok {
		return
	}

	fileHeader, err := c.FormFile("image")
	if err != nil {
		respondErrorBody(c, http.StatusBadRequest, "MISSING_FILE", "An image file is required in the \"image\" field", nil)
		return
	}

	restaurantID, _ := middleware.GetRestaurantID(c)
	item, err := mc.menu.SetImage(c.Request.Context(), restaurantID, itemID, fileHeader)
	if err != nil {
		respondServiceError(c, mc.logger, err)
		return
	}
	respondSuccess(c, http.StatusOK, item)
}

func parseItemID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondErrorBody(c, http.StatusBadRequest, services.CodeValidation, "Invalid menu item ID", nil)
		return 0, false
	}
	return uint(id), true
}
