// Package errors provides the error taxonomy shared by the orchestrator and the
// backend services.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"time"
)

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	// ErrCodeValidation marks a malformed inbound request, rejected before any downstream call.
	ErrCodeValidation ErrorCode = "VALIDATION_ERROR"
	// ErrCodeBackend marks a downstream non-success status.
	ErrCodeBackend ErrorCode = "BACKEND_ERROR"
	// ErrCodeTransport marks an unreachable or timed out downstream.
	ErrCodeTransport ErrorCode = "TRANSPORT_ERROR"
	// ErrCodeNotFound marks a referenced user or search id that does not exist.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
	// ErrCodeInternal is anything else.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code       ErrorCode              `json:"code"`
	Message    string                 `json:"message"`
	Details    string                 `json:"details,omitempty"`
	Service    string                 `json:"service,omitempty"`
	StatusCode int                    `json:"-"`
	Retryable  bool                   `json:"retryable"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
	Timestamp  time.Time              `json:"timestamp"`

	cause error
}

func (e *StandardError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("StandardError[%s %d]: %s", e.Code, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

func (e *StandardError) Unwrap() error {
	return e.cause
}

// NewValidationError creates a non-retryable error for a malformed request.
func NewValidationError(message, details string) *StandardError {
	return &StandardError{
		Code:       ErrCodeValidation,
		Message:    message,
		Details:    details,
		StatusCode: http.StatusBadRequest,
		Retryable:  false,
		Timestamp:  time.Now().UTC(),
	}
}

// NewBackendError wraps a non-success downstream status. A 404 is classified as
// NOT_FOUND while keeping the original status and message.
func NewBackendError(service string, statusCode int, message string) *StandardError {
	code := ErrCodeBackend
	if statusCode == http.StatusNotFound {
		code = ErrCodeNotFound
	}
	return &StandardError{
		Code:       code,
		Message:    message,
		Service:    service,
		StatusCode: statusCode,
		Retryable:  statusCode >= http.StatusInternalServerError,
		Timestamp:  time.Now().UTC(),
	}
}

// NewTransportError creates a retryable error for a downstream that could not be reached.
func NewTransportError(service string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeTransport,
		Message:   fmt.Sprintf("service communication error: %v", err),
		Service:   service,
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewNotFoundError creates a non-retryable error for a missing user or search.
func NewNotFoundError(message string) *StandardError {
	return &StandardError{
		Code:       ErrCodeNotFound,
		Message:    message,
		StatusCode: http.StatusNotFound,
		Retryable:  false,
		Timestamp:  time.Now().UTC(),
	}
}

// NewInternalError wraps an unexpected failure.
func NewInternalError(message string, err error) *StandardError {
	details := ""
	if err != nil {
		details = err.Error()
	}
	return &StandardError{
		Code:      ErrCodeInternal,
		Message:   message,
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// AsStandardError extracts a StandardError from an error chain.
func AsStandardError(err error) (*StandardError, bool) {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr, true
	}
	return nil, false
}

// CodeOf returns the error code, or INTERNAL_ERROR for foreign errors.
func CodeOf(err error) ErrorCode {
	if stdErr, ok := AsStandardError(err); ok {
		return stdErr.Code
	}
	return ErrCodeInternal
}

func IsNotFound(err error) bool   { return CodeOf(err) == ErrCodeNotFound }
func IsTransport(err error) bool  { return CodeOf(err) == ErrCodeTransport }
func IsValidation(err error) bool { return CodeOf(err) == ErrCodeValidation }

// IsBackend reports whether a downstream answered with a non-success status,
// including 404s.
func IsBackend(err error) bool {
	stdErr, ok := AsStandardError(err)
	if !ok {
		return false
	}
	return stdErr.Code == ErrCodeBackend || (stdErr.Code == ErrCodeNotFound && stdErr.Service != "")
}

// HTTPStatus maps an error to the status code surfaced to callers: the downstream
// status when one is known, else a generic internal error.
func HTTPStatus(err error) int {
	stdErr, ok := AsStandardError(err)
	if !ok {
		return http.StatusInternalServerError
	}
	if stdErr.StatusCode >= 400 && stdErr.StatusCode <= 599 {
		return stdErr.StatusCode
	}
	switch stdErr.Code {
	case ErrCodeValidation:
		return http.StatusBadRequest
	case ErrCodeNotFound:
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}
