package types

import (
	"errors"
	"fmt"
)

// Error is the single error type surfaced by the engine. Code identifies the
// failure; Category groups codes by how callers should react to them.
type Error struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Code
	}
	return e.Message
}

// Is matches any *Error carrying the same code, so errors.Is works against the
// sentinel values below.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// Category returns the taxonomy bucket of the error code.
func (e *Error) Category() Category {
	return CategoryOf(e.Code)
}

// Retryable reports whether repeating the same request may succeed.
func (e *Error) Retryable() bool {
	return e.Category() == CategoryOracle
}

// Error codes
const (
	ErrZeroAmount            = "ZERO_AMOUNT"
	ErrUnsupportedToken      = "UNSUPPORTED_TOKEN"
	ErrInvalidRequest        = "INVALID_REQUEST"
	ErrInsufficientPayment   = "INSUFFICIENT_PAYMENT"
	ErrInsufficientAllowance = "INSUFFICIENT_ALLOWANCE"
	ErrInsufficientBalance   = "INSUFFICIENT_BALANCE"
	ErrPaymentUnverified     = "PAYMENT_UNVERIFIED"
	ErrPaymentReused         = "PAYMENT_REUSED"
	ErrTransferFailed        = "TRANSFER_FAILED"
	ErrOracleUnavailable     = "ORACLE_UNAVAILABLE"
	ErrUnauthorized          = "UNAUTHORIZED"
	ErrConsistencyFault      = "CONSISTENCY_FAULT"
	ErrNotFound              = "NOT_FOUND"
	ErrConfigError           = "CONFIG_ERROR"
	ErrStoreError            = "STORE_ERROR"
	ErrInternal              = "INTERNAL_ERROR"
)

// Category groups error codes.
type Category string

const (
	CategoryValidation    Category = "validation"
	CategoryPayment       Category = "payment"
	CategoryOracle        Category = "oracle"
	CategoryAuthorization Category = "authorization"
	CategoryConsistency   Category = "consistency"
	CategoryInternal      Category = "internal"
)

// CategoryOf maps an error code to its category.
func CategoryOf(code string) Category {
	switch code {
	case ErrZeroAmount, ErrUnsupportedToken, ErrInvalidRequest, ErrNotFound:
		return CategoryValidation
	case ErrInsufficientPayment, ErrInsufficientAllowance, ErrInsufficientBalance,
		ErrPaymentUnverified, ErrPaymentReused, ErrTransferFailed:
		return CategoryPayment
	case ErrOracleUnavailable:
		return CategoryOracle
	case ErrUnauthorized:
		return CategoryAuthorization
	case ErrConsistencyFault:
		return CategoryConsistency
	default:
		return CategoryInternal
	}
}

// NewError builds an *Error with a formatted message.
func NewError(code, format string, args ...interface{}) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// HasCode reports whether err, or anything it wraps, is an *Error with code.
func HasCode(err error, code string) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Code == code
}

// CodeOf returns the code of the first *Error in err's chain, or "".
func CodeOf(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return ""
	}
	return e.Code
}
