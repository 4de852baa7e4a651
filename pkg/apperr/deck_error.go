package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes
const (
	// Auth errors
	CodeUnauthorized = "UNAUTHORIZED"

	// Validation errors
	CodeValidationFailed = "VALIDATION_FAILED"
	CodeBadRequest       = "BAD_REQUEST"
	CodeInvalidInput     = "INVALID_INPUT"

	// Resource errors
	CodeNotFound = "NOT_FOUND"

	// Remote errors
	CodeNetworkError     = "NETWORK_ERROR"     // request never completed
	CodeApplicationError = "APPLICATION_ERROR" // server answered success:false

	// Sync errors
	CodeBroadcastUnavailable = "BROADCAST_UNAVAILABLE"
	CodeMalformedMessage     = "MALFORMED_MESSAGE"

	// Internal errors
	CodeInternalError = "INTERNAL_ERROR"
	CodeConfigError   = "CONFIG_ERROR"
)

// Kind groups error codes into the failure classes the UI cares about.
type Kind string

const (
	KindNetwork     Kind = "network"
	KindApplication Kind = "application"
	KindAuth        Kind = "auth"
	KindValidation  Kind = "validation"
	KindInternal    Kind = "internal"
)

// AppError represents a structured application error
type AppError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Status  int            `json:"-"`
	Details map[string]any `json:"details,omitempty"`
	Err     error          `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

func (e *AppError) WithError(err error) *AppError {
	e.Err = err
	return e
}

// HTTPStatus returns the HTTP status code
func (e *AppError) HTTPStatus() int {
	return e.Status
}

// Kind classifies the error.
func (e *AppError) Kind() Kind {
	switch e.Code {
	case CodeNetworkError:
		return KindNetwork
	case CodeApplicationError, CodeNotFound:
		return KindApplication
	case CodeUnauthorized:
		return KindAuth
	case CodeValidationFailed, CodeBadRequest, CodeInvalidInput:
		return KindValidation
	default:
		return KindInternal
	}
}

// Constructor functions
func New(code, message string, status int) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Status:  status,
	}
}

// Unauthorized is returned when the API rejected the bearer token.
func Unauthorized(message string) *AppError {
	if message == "" {
		message = "unauthorized"
	}
	return &AppError{
		Code:    CodeUnauthorized,
		Message: message,
		Status:  http.StatusUnauthorized,
	}
}

// Validation errors
func BadRequest(message string) *AppError {
	return &AppError{
		Code:    CodeBadRequest,
		Message: message,
		Status:  http.StatusBadRequest,
	}
}

func ValidationFailed(message string) *AppError {
	return &AppError{
		Code:    CodeValidationFailed,
		Message: message,
		Status:  http.StatusBadRequest,
	}
}

func InvalidInput(field, reason string) *AppError {
	return &AppError{
		Code:    CodeInvalidInput,
		Message: fmt.Sprintf("invalid input for '%s': %s", field, reason),
		Status:  http.StatusBadRequest,
		Details: map[string]any{"field": field},
	}
}

// Resource errors
func NotFound(resource string) *AppError {
	return &AppError{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s not found", resource),
		Status:  http.StatusNotFound,
	}
}

// NetworkError wraps a transport failure: the request never completed.
func NetworkError(operation string, err error) *AppError {
	return &AppError{
		Code:    CodeNetworkError,
		Message: fmt.Sprintf("network error during %s", operation),
		Status:  http.StatusBadGateway,
		Details: map[string]any{"operation": operation},
		Err:     err,
	}
}

// ApplicationError is a handled success:false answer from the API.
func ApplicationError(operation, message string) *AppError {
	if message == "" {
		message = fmt.Sprintf("%s failed", operation)
	}
	return &AppError{
		Code:    CodeApplicationError,
		Message: message,
		Status:  http.StatusUnprocessableEntity,
		Details: map[string]any{"operation": operation},
	}
}

func BroadcastUnavailable(err error) *AppError {
	return &AppError{
		Code:    CodeBroadcastUnavailable,
		Message: "broadcast medium unavailable",
		Status:  http.StatusServiceUnavailable,
		Err:     err,
	}
}

func MalformedMessage(err error) *AppError {
	return &AppError{
		Code:    CodeMalformedMessage,
		Message: "malformed sync message",
		Status:  http.StatusBadRequest,
		Err:     err,
	}
}

// Internal errors
func Internal(message string) *AppError {
	if message == "" {
		message = "internal error"
	}
	return &AppError{
		Code:    CodeInternalError,
		Message: message,
		Status:  http.StatusInternalServerError,
	}
}

func InternalWithError(err error) *AppError {
	return &AppError{
		Code:    CodeInternalError,
		Message: "internal error",
		Status:  http.StatusInternalServerError,
		Err:     err,
	}
}

func ConfigError(message string) *AppError {
	return &AppError{
		Code:    CodeConfigError,
		Message: message,
		Status:  http.StatusInternalServerError,
	}
}

// Helper functions
func AsAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return InternalWithError(err)
}

// KindOf classifies any error; nil is reported as internal.
func KindOf(err error) Kind {
	if err == nil {
		return KindInternal
	}
	return AsAppError(err).Kind()
}

// IsAuth reports whether err is an authentication failure.
func IsAuth(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == CodeUnauthorized
}

func GetHTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Status
	}
	return http.StatusInternalServerError
}
