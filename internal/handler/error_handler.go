package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"status-service/internal/domain"
	"status-service/internal/middleware"
	"status-service/internal/response"
)

// handleServiceError maps service layer errors to appropriate HTTP responses
func handleServiceError(c *gin.Context, logger *zap.Logger, err error) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		response.SendError(c, http.StatusNotFound, response.ErrCodeNotFound, "Resource not found")
		return
	}

	var appErr *response.AppError
	if errors.As(err, &appErr) {
		logger.Debug("Request rejected",
			zap.String("code", appErr.Code),
			zap.String("message", appErr.Message),
			zap.String("details", appErr.Details),
		)
		response.SendError(c, mapErrorCodeToHTTPStatus(appErr.Code), appErr.Code, appErr.Message)
		return
	}

	logger.Error("Unhandled service error", zap.String("path", c.FullPath()), zap.Error(err))
	response.SendError(c, http.StatusInternalServerError, response.ErrCodeInternal, "Internal server error")
}

// mapErrorCodeToHTTPStatus maps error codes to HTTP status codes
func mapErrorCodeToHTTPStatus(code string) int {
	switch code {
	case response.ErrCodeNotFound:
		return http.StatusNotFound
	case response.ErrCodeAlreadyExists, response.ErrCodeConflict:
		return http.StatusConflict
	case response.ErrCodeValidation:
		return http.StatusBadRequest
	case response.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case response.ErrCodeForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// sessionFromContext returns the authenticated caller, or nil for anonymous requests
func sessionFromContext(c *gin.Context) *domain.Session {
	value, exists := c.Get(middleware.ContextUserID)
	if !exists {
		return nil
	}
	userID, ok := value.(uuid.UUID)
	if !ok || userID == uuid.Nil {
		return nil
	}
	return &domain.Session{UserID: userID, Token: c.GetString(middleware.ContextToken)}
}
