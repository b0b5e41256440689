package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unique error identifier
type ErrorCode string

const (
	// Validation
	ErrCodeValidation      ErrorCode = "VALIDATION_ERROR"
	ErrCodeInvalidInput    ErrorCode = "INVALID_INPUT"
	ErrCodeMissingRequired ErrorCode = "MISSING_REQUIRED"

	// Connection token
	ErrCodeInvalidToken ErrorCode = "INVALID_TOKEN"
	ErrCodeTokenExpired ErrorCode = "TOKEN_EXPIRED"

	// Handshake
	ErrCodePayloadMismatch       ErrorCode = "PAYLOAD_MISMATCH"
	ErrCodeConnectionNotFound    ErrorCode = "CONNECTION_NOT_FOUND"
	ErrCodeConnectionExpired     ErrorCode = "CONNECTION_EXPIRED"
	ErrCodeConnectionAlreadyUsed ErrorCode = "CONNECTION_ALREADY_USED"
	ErrCodeConnectionCancelled   ErrorCode = "CONNECTION_CANCELLED"
	ErrCodeInvalidWalletAddress  ErrorCode = "INVALID_WALLET_ADDRESS"
	ErrCodeInvalidSignature      ErrorCode = "INVALID_SIGNATURE"

	// Resource
	ErrCodeNotFound ErrorCode = "NOT_FOUND"

	// Rate Limiting
	ErrCodeRateLimitExceeded ErrorCode = "RATE_LIMIT_EXCEEDED"

	// Internal
	ErrCodeInternal         ErrorCode = "INTERNAL_ERROR"
	ErrCodeDatabase         ErrorCode = "DATABASE_ERROR"
	ErrCodeStoreUnavailable ErrorCode = "STORE_UNAVAILABLE"
)

// AppError is a structured error that can be returned to clients
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details any       `json:"details,omitempty"`
	cause   error
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.cause
}

// WithCause adds a cause to the error
func (e *AppError) WithCause(err error) *AppError {
	e.cause = err
	return e
}

// WithDetails adds details to the error
func (e *AppError) WithDetails(details any) *AppError {
	e.Details = details
	return e
}

// New creates a new AppError
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with an AppError
func Wrap(code ErrorCode, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		cause:   cause,
	}
}

// Common error constructors

func ValidationError(message string) *AppError {
	return New(ErrCodeValidation, message)
}

func InvalidInput(field string, reason string) *AppError {
	return New(ErrCodeInvalidInput, fmt.Sprintf("Invalid %s: %s", field, reason))
}

func MissingRequired(field string) *AppError {
	return New(ErrCodeMissingRequired, fmt.Sprintf("%s is required", field))
}

func InvalidToken() *AppError {
	return New(ErrCodeInvalidToken, "Invalid or expired connection token")
}

func PayloadMismatch() *AppError {
	return New(ErrCodePayloadMismatch, "Callback payload does not match the pending connection")
}

func ConnectionNotFound() *AppError {
	return New(ErrCodeConnectionNotFound, "Connection not found")
}

func ConnectionExpired() *AppError {
	return New(ErrCodeConnectionExpired, "Connection request has expired")
}

func ConnectionAlreadyUsed() *AppError {
	return New(ErrCodeConnectionAlreadyUsed, "Connection has already been completed")
}

func ConnectionCancelled() *AppError {
	return New(ErrCodeConnectionCancelled, "Connection has been cancelled")
}

func InvalidWalletAddress() *AppError {
	return New(ErrCodeInvalidWalletAddress, "Invalid wallet address")
}

func InvalidSignature() *AppError {
	return New(ErrCodeInvalidSignature, "Signature verification failed")
}

func NotFound(resource string) *AppError {
	return New(ErrCodeNotFound, fmt.Sprintf("%s not found", resource))
}

func RateLimitExceeded() *AppError {
	return New(ErrCodeRateLimitExceeded, "Rate limit exceeded")
}

func Internal(message string) *AppError {
	return New(ErrCodeInternal, message)
}

func Database(cause error) *AppError {
	return Wrap(ErrCodeDatabase, "Database error", cause)
}

func StoreUnavailable(cause error) *AppError {
	return Wrap(ErrCodeStoreUnavailable, "Connection store unavailable", cause)
}

// IsAppError checks if an error is an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// AsAppError converts an error to an AppError if possible
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// GetCode returns the error code if the error is an AppError, otherwise returns ErrCodeInternal
func GetCode(err error) ErrorCode {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code
	}
	return ErrCodeInternal
}
