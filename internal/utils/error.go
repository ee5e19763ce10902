package utils

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes with HTTP status mapping
const (
	// General errors
	ErrCodeInvalidRequest     = "INVALID_REQUEST"
	ErrCodeValidationFailed   = "VALIDATION_ERROR"
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodeGone               = "GONE"
	ErrCodeInternalError      = "INTERNAL_ERROR"
	ErrCodeRateLimitExceeded  = "RATE_LIMIT_EXCEEDED"
	ErrCodeInvalidJSON        = "INVALID_JSON"
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE"

	// Pipeline errors
	ErrCodePolicyViolation       = "POLICY_VIOLATION"
	ErrCodeStatementRejected     = "STATEMENT_REJECTED"
	ErrCodeDriverFailure         = "DRIVER_FAILURE"
	ErrCodeDependencyUnavailable = "DEPENDENCY_UNAVAILABLE"
	ErrCodeRenderFailed          = "RENDER_FAILED"
	ErrCodeUploadFailed          = "UPLOAD_FAILED"
	ErrCodeRegistrationFailed    = "REGISTRATION_FAILED"
	ErrCodeQuotaExceeded         = "QUOTA_EXCEEDED"
	ErrCodeStatementTimeout      = "STATEMENT_TIMEOUT"
)

// HTTPStatus maps error codes to HTTP status codes
var HTTPStatus = map[string]int{
	ErrCodeInvalidRequest:     http.StatusBadRequest,
	ErrCodeValidationFailed:   http.StatusUnprocessableEntity,
	ErrCodeUnauthorized:       http.StatusUnauthorized,
	ErrCodeNotFound:           http.StatusNotFound,
	ErrCodeGone:               http.StatusGone,
	ErrCodeInternalError:      http.StatusInternalServerError,
	ErrCodeRateLimitExceeded:  http.StatusTooManyRequests,
	ErrCodeInvalidJSON:        http.StatusBadRequest,
	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,

	ErrCodePolicyViolation:       http.StatusBadRequest,
	ErrCodeStatementRejected:     http.StatusForbidden,
	ErrCodeDriverFailure:         http.StatusBadGateway,
	ErrCodeDependencyUnavailable: http.StatusServiceUnavailable,
	ErrCodeRenderFailed:          http.StatusInternalServerError,
	ErrCodeUploadFailed:          http.StatusBadGateway,
	ErrCodeRegistrationFailed:    http.StatusBadGateway,
	ErrCodeQuotaExceeded:         http.StatusTooManyRequests,
	ErrCodeStatementTimeout:      http.StatusGatewayTimeout,
}

// AppError represents an application error with additional context
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
	Cause   error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s - %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// ErrorBuilder provides a fluent interface for creating errors
type ErrorBuilder struct {
	code    string
	message string
	details string
	cause   error
}

// NewErrorBuilder creates a new error builder
func NewErrorBuilder(code string) *ErrorBuilder {
	return &ErrorBuilder{code: code}
}

// WithMessage sets the error message
func (eb *ErrorBuilder) WithMessage(message string) *ErrorBuilder {
	eb.message = message
	return eb
}

// WithDetails sets the error details
func (eb *ErrorBuilder) WithDetails(details string) *ErrorBuilder {
	eb.details = details
	return eb
}

// WithCause sets the underlying error cause
func (eb *ErrorBuilder) WithCause(cause error) *ErrorBuilder {
	eb.cause = cause
	return eb
}

// Build constructs the final AppError
func (eb *ErrorBuilder) Build() *AppError {
	message := eb.message
	if message == "" {
		if eb.cause != nil {
			message = eb.cause.Error()
		} else {
			message = defaultMessages[eb.code]
		}
	}
	if message == "" {
		message = "Unknown error"
	}

	return &AppError{
		Code:    eb.code,
		Message: message,
		Details: eb.details,
		Cause:   eb.cause,
	}
}

var defaultMessages = map[string]string{
	ErrCodeInvalidRequest:     "The request is invalid",
	ErrCodeValidationFailed:   "Validation failed",
	ErrCodeUnauthorized:       "Unauthorized access",
	ErrCodeNotFound:           "Resource not found",
	ErrCodeGone:               "Resource has expired",
	ErrCodeInternalError:      "Internal server error",
	ErrCodeRateLimitExceeded:  "Rate limit exceeded",
	ErrCodeInvalidJSON:        "Invalid JSON format",
	ErrCodeServiceUnavailable: "Service temporarily unavailable",

	ErrCodePolicyViolation:       "Request violates connection policy",
	ErrCodeStatementRejected:     "Only read-only statements are allowed",
	ErrCodeDriverFailure:         "Database driver failure",
	ErrCodeDependencyUnavailable: "Required dependency is unavailable",
	ErrCodeRenderFailed:          "Report rendering failed",
	ErrCodeUploadFailed:          "Report upload failed",
	ErrCodeRegistrationFailed:    "Panel registration failed",
	ErrCodeQuotaExceeded:         "Report quota exceeded",
	ErrCodeStatementTimeout:      "Statement deadline exceeded",
}

// NewPolicyViolation reports a request the pipeline refuses to run.
func NewPolicyViolation(message string) *AppError {
	return NewErrorBuilder(ErrCodePolicyViolation).
		WithMessage(message).
		Build()
}

// NewDriverFailure keeps the driver's own message as the error message.
func NewDriverFailure(cause error) *AppError {
	return NewErrorBuilder(ErrCodeDriverFailure).
		WithCause(cause).
		Build()
}

func NewDependencyUnavailable(cause error) *AppError {
	return NewErrorBuilder(ErrCodeDependencyUnavailable).
		WithCause(cause).
		Build()
}

func NewValidationError(message string, details string) *AppError {
	return NewErrorBuilder(ErrCodeValidationFailed).
		WithMessage(message).
		WithDetails(details).
		Build()
}

// NewStatementTimeout reports a request deadline hit while waiting for or
// running a statement.
func NewStatementTimeout(cause error) *AppError {
	return NewErrorBuilder(ErrCodeStatementTimeout).
		WithMessage(defaultMessages[ErrCodeStatementTimeout]).
		WithCause(cause).
		Build()
}

// IsErrorType checks if an error matches a specific error code
func IsErrorType(err error, code string) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// GetErrorStatus returns the HTTP status code for an error
func GetErrorStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		if status, exists := HTTPStatus[appErr.Code]; exists {
			return status
		}
	}
	return http.StatusInternalServerError
}
