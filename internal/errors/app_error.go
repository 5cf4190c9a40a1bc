package errors

import (
	"errors"
	"fmt"
	"net/http"
)

type AppError struct {
	Code       string
	Message    string
	Detail     string
	Meta       map[string]any
	StatusCode int
	Err        error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NewAppError(code, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

func (e *AppError) WithDetail(detail string) *AppError {
	e.Detail = detail

	return e
}

func (e *AppError) WithError(err error) *AppError {
	e.Err = err

	return e
}

func (e *AppError) WithMeta(key string, value any) *AppError {
	if e.Meta == nil {
		e.Meta = make(map[string]any)
	}

	e.Meta[key] = value

	return e
}

const (
	ErrCodeValidation        = "VALIDATION_ERROR"
	ErrCodeBadRequest        = "BAD_REQUEST"
	ErrCodeNotFound          = "NOT_FOUND"
	ErrCodeUnauthorized      = "UNAUTHORIZED"
	ErrCodeForbidden         = "FORBIDDEN"
	ErrCodeInternal          = "INTERNAL_ERROR"
	ErrCodeDatabaseError     = "DATABASE_ERROR"
	ErrCodeInsufficientStock = "INSUFFICIENT_STOCK"
	ErrCodeCartEmpty         = "CART_EMPTY"
	ErrCodeCheckoutFailed    = "CHECKOUT_FAILED"
	ErrCodeInvalidTransition = "INVALID_STATUS_TRANSITION"
)

func ValidationError(message string) *AppError {
	return NewAppError(ErrCodeValidation, message, http.StatusBadRequest)
}

func BadRequestError(message string) *AppError {
	return NewAppError(ErrCodeBadRequest, message, http.StatusBadRequest)
}

func NotFoundError(message string) *AppError {
	return NewAppError(ErrCodeNotFound, message, http.StatusNotFound)
}

func UnauthorizedError(message string) *AppError {
	return NewAppError(ErrCodeUnauthorized, message, http.StatusUnauthorized)
}

func ForbiddenError(message string) *AppError {
	return NewAppError(ErrCodeForbidden, message, http.StatusForbidden)
}

func InternalError(message string) *AppError {
	return NewAppError(ErrCodeInternal, message, http.StatusInternalServerError)
}

func DatabaseError(message string) *AppError {
	return NewAppError(ErrCodeDatabaseError, message, http.StatusInternalServerError)
}

// InsufficientStockError carries the offending product and the quantities
// involved so the presentation layer can render an actionable message.
func InsufficientStockError(productName string, requested, available int) *AppError {
	return NewAppError(ErrCodeInsufficientStock,
		fmt.Sprintf("Insufficient stock for %s", productName), http.StatusConflict).
		WithDetail(fmt.Sprintf("requested %d, available %d", requested, available)).
		WithMeta("product", productName).
		WithMeta("requested", requested).
		WithMeta("available", available)
}

func CartEmptyError() *AppError {
	return NewAppError(ErrCodeCartEmpty, "Cannot checkout with an empty cart", http.StatusBadRequest)
}

func CheckoutFailedError(cause error) *AppError {
	return NewAppError(ErrCodeCheckoutFailed, "Checkout could not be completed", http.StatusInternalServerError).
		WithError(cause)
}

func InvalidStatusTransitionError(from, to string) *AppError {
	return NewAppError(ErrCodeInvalidTransition,
		fmt.Sprintf("Cannot transition order from %s to %s", from, to), http.StatusConflict).
		WithMeta("from", from).
		WithMeta("to", to)
}

// InvalidShippingDataError names the failing field.
func InvalidShippingDataError(field, reason string) *AppError {
	return ValidationError(fmt.Sprintf("Invalid shipping field '%s': %s", field, reason)).
		WithMeta("field", field).
		WithMeta("reason", reason)
}

func IsAppError(err error) (*AppError, bool) {
	var appError *AppError

	if errors.As(err, &appError) {
		return appError, true
	}

	return nil, false
}
