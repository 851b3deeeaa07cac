package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mindcare-tw/mindcare-backend/pkg/api"
	"go.uber.org/zap"
)

// Pinger reports database reachability. *pgxpool.Pool satisfies it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler implements the liveness endpoint
type HealthHandler struct {
	db      Pinger
	version string
	logger  *zap.Logger
}

// NewHealthHandler creates a new HealthHandler
func NewHealthHandler(db Pinger, version string, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		db:      db,
		version: version,
		logger:  logger,
	}
}

// GetHealth checks database connectivity
func (h *HealthHandler) GetHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		h.logger.Error("health check failed: database unreachable", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, api.HealthResponse{
			Status:   "unhealthy",
			Database: "disconnected",
			Error:    stringPtr(err.Error()),
		})
		return
	}

	c.JSON(http.StatusOK, api.HealthResponse{
		Status:   "healthy",
		Database: "connected",
		Service:  stringPtr("mindcare-backend"),
		Version:  stringPtr(h.version),
	})
}
