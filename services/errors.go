package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tabletap/tabletap-api/models"
)

// Machine-readable error kinds, surfaced as the "code" of an error response
const (
	CodeInvalidCart           = "INVALID_CART"
	CodeTenantNotFound        = "TENANT_NOT_FOUND"
	CodeTableNotFound         = "TABLE_NOT_FOUND"
	CodeItemUnavailable       = "ITEM_UNAVAILABLE"
	CodePaymentsNotConfigured = "PAYMENTS_NOT_CONFIGURED"
	CodePaymentSession        = "PAYMENT_SESSION_ERROR"
	CodeInvalidTransition     = "INVALID_TRANSITION"
	CodeNotFound              = "ORDER_NOT_FOUND"
	CodeTenantMismatch        = "TENANT_MISMATCH"
	CodePersistence           = "PERSISTENCE_ERROR"
	CodeMenuItemNotFound      = "MENU_ITEM_NOT_FOUND"
	CodeValidation            = "VALIDATION_ERROR"
	CodeConflict              = "CONFLICT"
	CodeForbidden             = "FORBIDDEN"
	CodeStorageNotConfigured  = "STORAGE_NOT_CONFIGURED"
)

// AppError is a business error with a stable code.
// Two AppErrors match under errors.Is when their codes are equal.
type AppError struct {
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches any AppError with the same code
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	return ok && t.Code == e.Code
}

var (
	ErrInvalidCart           = &AppError{Code: CodeInvalidCart, Message: "invalid cart"}
	ErrTenantNotFound        = &AppError{Code: CodeTenantNotFound, Message: "restaurant not found"}
	ErrTableNotFound         = &AppError{Code: CodeTableNotFound, Message: "table not found"}
	ErrItemUnavailable       = &AppError{Code: CodeItemUnavailable, Message: "item unavailable"}
	ErrPaymentsNotConfigured = &AppError{Code: CodePaymentsNotConfigured, Message: "restaurant is not accepting online payments"}
	ErrPaymentSession        = &AppError{Code: CodePaymentSession, Message: "failed to create payment session"}
	ErrInvalidTransition     = &AppError{Code: CodeInvalidTransition, Message: "invalid status transition"}
	ErrNotFound              = &AppError{Code: CodeNotFound, Message: "order not found"}
	ErrTenantMismatch        = &AppError{Code: CodeTenantMismatch, Message: "payment account does not match the order's restaurant"}
	ErrPersistence           = &AppError{Code: CodePersistence, Message: "storage failure"}
	ErrMenuItemNotFound      = &AppError{Code: CodeMenuItemNotFound, Message: "menu item not found"}
	ErrValidation            = &AppError{Code: CodeValidation, Message: "invalid input"}
	ErrConflict              = &AppError{Code: CodeConflict, Message: "already exists"}
	ErrForbidden             = &AppError{Code: CodeForbidden, Message: "not allowed"}
	ErrStorageNotConfigured  = &AppError{Code: CodeStorageNotConfigured, Message: "image storage is not configured"}
)

func newError(kind *AppError, format string, args ...interface{}) *AppError {
	return &AppError{Code: kind.Code, Message: fmt.Sprintf(format, args...)}
}

func wrapError(kind *AppError, err error, format string, args ...interface{}) *AppError {
	return &AppError{Code: kind.Code, Message: fmt.Sprintf(format, args...), Err: err}
}

func persistenceError(err error, action string) *AppError {
	return wrapError(ErrPersistence, err, "failed to %s", action)
}

// InvalidTransitionError reports a status change outside the transition table
type InvalidTransitionError struct {
	OrderID string
	From    models.OrderStatus
	To      models.OrderStatus
	Allowed []models.OrderStatus
}

func newInvalidTransition(orderID string, from, to models.OrderStatus) *InvalidTransitionError {
	return &InvalidTransitionError{
		OrderID: orderID,
		From:    from,
		To:      to,
		Allowed: from.AllowedTransitions(),
	}
}

func (e *InvalidTransitionError) Error() string {
	if e.From.IsTerminal() {
		return fmt.Sprintf("cannot move order from %s to %s: %s is final", e.From, e.To, e.From)
	}
	allowed := make([]string, len(e.Allowed))
	for i, s := range e.Allowed {
		allowed[i] = string(s)
	}
	return fmt.Sprintf("cannot move order from %s to %s (allowed: %s)", e.From, e.To, strings.Join(allowed, ", "))
}

// Is lets errors.Is(err, ErrInvalidTransition) match
func (e *InvalidTransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

// ErrorCode returns the machine-readable code carried by err, or "" if it has none
func ErrorCode(err error) string {
	var transition *InvalidTransitionError
	if errors.As(err, &transition) {
		return CodeInvalidTransition
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}
