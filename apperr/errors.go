package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Code identifies a class of expected, recoverable failure.
type Code string

const (
	CodeInvalidTransition      Code = "INVALID_TRANSITION"
	CodeEquipmentConflict      Code = "EQUIPMENT_CONFLICT"
	CodeOrderNotEditable       Code = "ORDER_NOT_EDITABLE"
	CodeRefundExceedsPaid      Code = "REFUND_EXCEEDS_PAID"
	CodeDuplicateTip           Code = "DUPLICATE_TIP"
	CodeGateway                Code = "GATEWAY_ERROR"
	CodeUnauthorized           Code = "UNAUTHORIZED"
	CodeForbidden              Code = "FORBIDDEN"
	CodeNotFound               Code = "NOT_FOUND"
	CodeValidation             Code = "VALIDATION_ERROR"
	CodeConcurrentModification Code = "CONCURRENT_MODIFICATION"
	CodeInsufficientWallet     Code = "INSUFFICIENT_WALLET"
	CodeInternal               Code = "INTERNAL_ERROR"
)

// AppError is the typed result returned across package boundaries.
type AppError struct {
	Code    Code           `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
	Err     error          `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetail attaches a key/value pair rendered alongside the message.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = map[string]any{}
	}
	e.Details[key] = value
	return e
}

// HTTPStatus maps the error code to a response status.
func (e *AppError) HTTPStatus() int {
	switch e.Code {
	case CodeValidation:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeEquipmentConflict, CodeDuplicateTip, CodeConcurrentModification:
		return http.StatusConflict
	case CodeInvalidTransition, CodeOrderNotEditable:
		return http.StatusUnprocessableEntity
	case CodeRefundExceedsPaid, CodeInsufficientWallet:
		return http.StatusPaymentRequired
	case CodeGateway:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func New(code Code, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

func Wrap(err error, code Code, message string) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

func InvalidTransition(message string) *AppError {
	return New(CodeInvalidTransition, message)
}

func EquipmentConflict(message string) *AppError {
	return New(CodeEquipmentConflict, message)
}

func OrderNotEditable(message string) *AppError {
	return New(CodeOrderNotEditable, message)
}

func RefundExceedsPaid(message string) *AppError {
	return New(CodeRefundExceedsPaid, message)
}

func DuplicateTip() *AppError {
	return New(CodeDuplicateTip, "a tip from this payer already exists for the order")
}

func Gateway(err error) *AppError {
	return Wrap(err, CodeGateway, "payment gateway request failed")
}

func Unauthorized(message string) *AppError {
	return New(CodeUnauthorized, message)
}

func Forbidden(message string) *AppError {
	return New(CodeForbidden, message)
}

func NotFound(message string) *AppError {
	return New(CodeNotFound, message)
}

func Validation(message string) *AppError {
	return New(CodeValidation, message)
}

func InsufficientWallet() *AppError {
	return New(CodeInsufficientWallet, "wallet balance is insufficient")
}

// ErrConcurrentModification is returned when a versioned write loses a race.
// The unit of work retries on it.
var ErrConcurrentModification = New(CodeConcurrentModification, "order was modified concurrently")

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// From converts any error into an AppError, treating unknown errors as internal.
func From(err error) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return Wrap(err, CodeInternal, "internal server error")
}
