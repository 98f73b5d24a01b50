// internal/common/errors/handler.go
package errors

import (
	"time"

	"github.com/gin-gonic/gin"
)

// ErrorHandler renders errors at the HTTP boundary with standardized error handling
type ErrorHandler struct {
	logger Logger
}

type Logger interface {
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`
}

func NewErrorHandler(logger Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// Respond normalizes err, logs it and writes the error body with the mapped status.
func (h *ErrorHandler) Respond(c *gin.Context, err error) {
	stdErr := Normalize(err)
	status := HTTPStatus(stdErr)

	fields := map[string]interface{}{
		"code":      stdErr.Code,
		"status":    status,
		"path":      c.FullPath(),
		"retryable": stdErr.Retryable,
	}
	if stdErr.Service != "" {
		fields["service"] = stdErr.Service
	}
	if requestID, ok := c.Get("request_id"); ok {
		fields["requestId"] = requestID
	}

	if h.logger != nil {
		if status >= 500 {
			h.logger.Error(stdErr.Message, fields)
		} else {
			h.logger.Warn(stdErr.Message, fields)
		}
	}

	c.AbortWithStatusJSON(status, ErrorBody{
		Code:    stdErr.Code,
		Message: stdErr.Message,
		Details: stdErr.Details,
	})
}

// Normalize ensures we always have a StandardError
func Normalize(err error) *StandardError {
	if stdErr, ok := AsStandardError(err); ok {
		return stdErr
	}
	details := ""
	if err != nil {
		details = err.Error()
	}
	return &StandardError{
		Code:      ErrCodeInternal,
		Message:   "Unexpected error",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}
