// Package errors provides structured error handling with context propagation and HTTP status code mapping.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType represents the category of error for metrics and response formatting.
type ErrorType string

const (
	// TypeValidation indicates invalid input (HTTP 400)
	TypeValidation ErrorType = "validation"
	// TypeInternal indicates server-side error (HTTP 500)
	TypeInternal ErrorType = "internal"
	// TypeUnavailable indicates the door service is not accepting work (HTTP 503)
	TypeUnavailable ErrorType = "unavailable"
	// TypeProtocol indicates a malformed press/release payload on a connection
	TypeProtocol ErrorType = "protocol"
	// TypeTransport indicates a failed delivery to one connection
	TypeTransport ErrorType = "transport"
	// TypeLivenessTimeout indicates a connection missed its probe deadline
	TypeLivenessTimeout ErrorType = "liveness_timeout"
	// TypeActuator indicates the pin driver rejected a value
	TypeActuator ErrorType = "actuator"
)

// Error represents a structured error with type, message, and context.
type Error struct {
	Type    ErrorType
	Message string
	Cause   error
	Context map[string]any
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// HTTPStatus returns the appropriate HTTP status code for this error type.
func (e *Error) HTTPStatus() int {
	switch e.Type {
	case TypeValidation, TypeProtocol:
		return http.StatusBadRequest
	case TypeUnavailable:
		return http.StatusServiceUnavailable
	case TypeTransport, TypeActuator:
		return http.StatusBadGateway
	case TypeLivenessTimeout:
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}

func newError(t ErrorType, message string, cause error) *Error {
	return &Error{
		Type:    t,
		Message: message,
		Cause:   cause,
		Context: make(map[string]any),
	}
}

// ValidationError creates a new validation error (HTTP 400).
func ValidationError(message string) *Error {
	return newError(TypeValidation, message, nil)
}

// InternalError creates a new internal error (HTTP 500).
func InternalError(message string, cause error) *Error {
	return newError(TypeInternal, message, cause)
}

// UnavailableError creates a new unavailable error (HTTP 503).
func UnavailableError(message string, cause error) *Error {
	return newError(TypeUnavailable, message, cause)
}

// ProtocolError reports a payload that is neither a press nor a release.
func ProtocolError(message string, cause error) *Error {
	return newError(TypeProtocol, message, cause)
}

// TransportError reports a failed send or probe on one connection.
func TransportError(message string, cause error) *Error {
	return newError(TypeTransport, message, cause)
}

// LivenessTimeoutError reports an eviction after a missed probe deadline.
func LivenessTimeoutError(message string) *Error {
	return newError(TypeLivenessTimeout, message, nil)
}

// ActuatorError reports a pin-drive failure.
func ActuatorError(message string, cause error) *Error {
	return newError(TypeActuator, message, cause)
}

// WithContext adds context fields to the error (chainable).
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// WithField is an alias for WithContext (chainable).
func (e *Error) WithField(key string, value any) *Error {
	return e.WithContext(key, value)
}

// ErrorResponse represents the JSON structure sent to clients.
type ErrorResponse struct {
	Error   string         `json:"error"`
	Type    ErrorType      `json:"type"`
	Context map[string]any `json:"context,omitempty"`
}

// ToResponse converts an Error to an ErrorResponse for JSON serialization.
func (e *Error) ToResponse() ErrorResponse {
	return ErrorResponse{
		Error:   e.Message,
		Type:    e.Type,
		Context: e.Context,
	}
}

// AsStructuredError converts any error into a structured Error.
// If err is already an *Error, returns it unchanged.
// Otherwise wraps it as an internal error.
func AsStructuredError(err error) *Error {
	if err == nil {
		return nil
	}

	var structuredErr *Error
	if errors.As(err, &structuredErr) {
		return structuredErr
	}

	return InternalError("internal server error", err)
}

// TypeOf returns the ErrorType of err, or TypeInternal for unstructured errors.
func TypeOf(err error) ErrorType {
	if err == nil {
		return ""
	}
	return AsStructuredError(err).Type
}
