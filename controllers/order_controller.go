package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/tabletap/tabletap-api/middleware"
	"github.com/tabletap/tabletap-api/models"
	"github.com/tabletap/tabletap-api/services"
	"go.uber.org/zap"
)

// UpdateOrderStatusRequest represents the request body for moving an order
type UpdateOrderStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// OrderController is the kitchen dashboard API
type OrderController struct {
	orders *services.OrderService
	logger *zap.Logger
}

// NewOrderController creates the staff order controller
func NewOrderController(orders *services.OrderService, logger *zap.Logger) *OrderController {
	return &OrderController{orders: orders, logger: logger}
}

// ListOrders handles GET /api/v1/restaurant/orders?status=PAID,IN_PROGRESS&page=1&page_size=50
func (oc *OrderController) ListOrders(c *gin.Context) {
	var statuses []models.OrderStatus
	for _, raw := range c.QueryArray("status") {
		for _, s := range strings.Split(raw, ",") {
			s = strings.TrimSpace(s)
			if s == "" {
				continue
			}
			status, ok := models.ParseOrderStatus(s)
			if !ok {
				respondErrorBody(c, http.StatusBadRequest, services.CodeValidation, "Unknown order status "+strconv.Quote(s), nil)
				return
			}
			statuses = append(statuses, status)
		}
	}

	page, err := queryInt(c, "page", 1)
	if err != nil {
		respondErrorBody(c, http.StatusBadRequest, services.CodeValidation, "page must be a number", nil)
		return
	}
	pageSize, err := queryInt(c, "page_size", services.DefaultPageSize)
	if err != nil {
		respondErrorBody(c, http.StatusBadRequest, services.CodeValidation, "page_size must be a number", nil)
		return
	}

	restaurantID, _ := middleware.GetRestaurantID(c)
	result, err := oc.orders.List(c.Request.Context(), restaurantID, statuses, page, pageSize)
	if err != nil {
		respondServiceError(c, oc.logger, err)
		return
	}
	respondSuccess(c, http.StatusOK, result)
}

// GetOrder handles GET /api/v1/restaurant/orders/:id
func (oc *OrderController) GetOrder(c *gin.Context) {
	restaurantID, _ := middleware.GetRestaurantID(c)
	order, err := oc.orders.Get(c.Request.Context(), restaurantID, c.Param("id"))
	if err != nil {
		respondServiceError(c, oc.logger, err)
		return
	}
	respondSuccess(c, http.StatusOK, order)
}

// UpdateOrderStatus handles PATCH /api/v1/restaurant/orders/:id/status
func (oc *OrderController) UpdateOrderStatus(c *gin.Context) {
	var req UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	target, ok := models.ParseOrderStatus(req.Status)
	if !ok {
		respondErrorBody(c, http.StatusBadRequest, services.CodeValidation, "Unknown order status "+strconv.Quote(req.Status), gin.H{
			"valid_statuses": models.AllStatuses,
		})
		return
	}

	restaurantID, _ := middleware.GetRestaurantID(c)
	order, err := oc.orders.Transition(c.Request.Context(), restaurantID, c.Param("id"), target, models.SourceStaff)
	if err != nil {
		respondServiceError(c, oc.logger, err)
		return
	}
	respondSuccess(c, http.StatusOK, order)
}

// DeleteOrder handles DELETE /api/v1/restaurant/orders/:id. Only orders
// without lines can be deleted.
func (oc *OrderController) DeleteOrder(c *gin.Context) {
	restaurantID, _ := middleware.GetRestaurantID(c)
	orderID := c.Param("id")
	if err := oc.orders.DeleteEmpty(c.Request.Context(), restaurantID, orderID); err != nil {
		respondServiceError(c, oc.logger, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"id": orderID, "deleted": true})
}

func queryInt(c *gin.Context, key string, fallback int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}
