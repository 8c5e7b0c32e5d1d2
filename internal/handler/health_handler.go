package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// HealthHandler serves liveness and readiness probes
type HealthHandler struct {
	getDB func() *gorm.DB
	redis *redis.Client
}

// NewHealthHandler takes a DB getter since the connection may be established after startup
func NewHealthHandler(getDB func() *gorm.DB, redis *redis.Client) *HealthHandler {
	return &HealthHandler{
		getDB: getDB,
		redis: redis,
	}
}

func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "status-service",
	})
}

func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	connections := make(map[string]string)

	var db *gorm.DB
	if h.getDB != nil {
		db = h.getDB()
	}
	if db == nil {
		connections["database"] = "not connected"
	} else if sqlDB, err := db.DB(); err != nil {
		connections["database"] = "error: " + err.Error()
	} else if err := sqlDB.PingContext(ctx); err != nil {
		connections["database"] = "error: " + err.Error()
	} else {
		connections["database"] = "connected"
	}

	if h.redis != nil {
		if err := h.redis.Ping(ctx).Err(); err != nil {
			connections["redis"] = "error: " + err.Error()
		} else {
			connections["redis"] = "connected"
		}
	} else {
		connections["redis"] = "not configured"
	}

	hasError := false
	for _, status := range connections {
		if status != "connected" && status != "not configured" {
			hasError = true
			break
		}
	}

	status := http.StatusOK
	statusText := "ready"
	if hasError {
		status = http.StatusServiceUnavailable
		statusText = "not ready"
	}

	c.JSON(status, gin.H{
		"status":      statusText,
		"connections": connections,
	})
}
