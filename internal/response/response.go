// Package response defines the JSON envelopes and application errors shared by all handlers.
package response

import (
	"fmt"

	"github.com/gin-gonic/gin"
)

// Error codes
const (
	ErrCodeValidation    = "VALIDATION_ERROR"
	ErrCodeUnauthorized  = "UNAUTHORIZED"
	ErrCodeForbidden     = "FORBIDDEN"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeAlreadyExists = "ALREADY_EXISTS"
	ErrCodeConflict      = "CONFLICT"
	ErrCodeInternal      = "INTERNAL_ERROR"
)

// SuccessResponse wraps successful payloads
type SuccessResponse struct {
	Data interface{} `json:"data"`
}

// ErrorDetail is the body of an error response
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse wraps failures
type ErrorResponse struct {
	Error   ErrorDetail `json:"error"`
	Message string      `json:"message"`
}

// AppError is an error that carries the code and message sent to clients
type AppError struct {
	Code    string
	Message string
	Details string
}

func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewAppError creates an AppError
func NewAppError(code, message, details string) *AppError {
	return &AppError{Code: code, Message: message, Details: details}
}

func NewValidationError(message, details string) *AppError {
	return NewAppError(ErrCodeValidation, message, details)
}

func NewUnauthorizedError(message, details string) *AppError {
	return NewAppError(ErrCodeUnauthorized, message, details)
}

func NewForbiddenError(message, details string) *AppError {
	return NewAppError(ErrCodeForbidden, message, details)
}

func NewNotFoundError(message, details string) *AppError {
	return NewAppError(ErrCodeNotFound, message, details)
}

// SendSuccess writes {"data": data}
func SendSuccess(c *gin.Context, status int, data interface{}) {
	c.JSON(status, SuccessResponse{Data: data})
}

// SendError writes {"error": {"code", "message"}, "message"}
func SendError(c *gin.Context, status int, code, message string) {
	c.JSON(status, ErrorResponse{
		Error:   ErrorDetail{Code: code, Message: message},
		Message: message,
	})
}
