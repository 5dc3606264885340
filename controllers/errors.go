package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tabletap/tabletap-api/services"
	"github.com/tabletap/tabletap-api/utils"
	"go.uber.org/zap"
)

var statusByCode = map[string]int{
	services.CodeInvalidCart:           http.StatusBadRequest,
	services.CodeTenantNotFound:        http.StatusNotFound,
	services.CodeTableNotFound:         http.StatusNotFound,
	services.CodeItemUnavailable:       http.StatusUnprocessableEntity,
	services.CodePaymentsNotConfigured: http.StatusConflict,
	services.CodePaymentSession:        http.StatusBadGateway,
	services.CodeInvalidTransition:     http.StatusConflict,
	services.CodeNotFound:              http.StatusNotFound,
	services.CodeTenantMismatch:        http.StatusForbidden,
	services.CodePersistence:           http.StatusInternalServerError,
	services.CodeValidation:            http.StatusBadRequest,
	services.CodeMenuItemNotFound:      http.StatusNotFound,
	services.CodeConflict:              http.StatusConflict,
	services.CodeForbidden:             http.StatusForbidden,
	services.CodeStorageNotConfigured:  http.StatusServiceUnavailable,
}

// Messages shown to customers. Internal detail stays in the logs.
var publicMessages = map[string]string{
	services.CodeInvalidCart:           "The cart is invalid",
	services.CodeTenantNotFound:        "Restaurant not found",
	services.CodeTableNotFound:         "Table not found",
	services.CodeItemUnavailable:       "An item in the cart is no longer available",
	services.CodePaymentsNotConfigured: "This restaurant is not accepting online payments",
	services.CodePaymentSession:        "Could not start the payment, please try again",
	services.CodeNotFound:              "Order not found",
	services.CodePersistence:           "Something went wrong, please try again",
}

func respondSuccess(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{
		"success": true,
		"data":    data,
	})
}

func respondErrorBody(c *gin.Context, status int, code, message string, details interface{}) {
	body := gin.H{
		"code":    code,
		"message": message,
	}
	if details != nil {
		body["details"] = details
	}
	c.JSON(status, gin.H{
		"success": false,
		"error":   body,
	})
}

func respondValidationError(c *gin.Context, err error) {
	respondErrorBody(c, http.StatusBadRequest, services.CodeValidation, "Invalid request data", err.Error())
}

// respondServiceError maps a service error to its HTTP status. Staff
// responses carry the error text; unknown errors are 500s.
func respondServiceError(c *gin.Context, logger *zap.Logger, err error) {
	respondError(c, logger, err, false)
}

// respondPublicError is respondServiceError for customer endpoints
func respondPublicError(c *gin.Context, logger *zap.Logger, err error) {
	respondError(c, logger, err, true)
}

func respondError(c *gin.Context, logger *zap.Logger, err error, public bool) {
	var uploadErr *utils.FileUploadError
	if errors.As(err, &uploadErr) {
		respondErrorBody(c, http.StatusBadRequest, uploadErr.Code, uploadErr.Message, nil)
		return
	}

	code := services.ErrorCode(err)
	status, known := statusByCode[code]
	if !known {
		code = "INTERNAL_ERROR"
		status = http.StatusInternalServerError
	}

	fields := []zap.Field{zap.String("code", code), zap.String("path", c.FullPath()), zap.Error(err)}
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", fields...)
	} else {
		logger.Info("request rejected", fields...)
	}

	message := err.Error()
	if public || status >= http.StatusInternalServerError {
		if generic, ok := publicMessages[code]; ok {
			message = generic
		} else {
			message = http.StatusText(status)
		}
	}

	var details interface{}
	var transitionErr *services.InvalidTransitionError
	if !public && errors.As(err, &transitionErr) {
		allowed := make([]string, len(transitionErr.Allowed))
		for i, s := range transitionErr.Allowed {
			allowed[i] = string(s)
		}
		details = gin.H{
			"current_status":   string(transitionErr.From),
			"allowed_statuses": allowed,
		}
	}

	respondErrorBody(c, status, code, message, details)
}
