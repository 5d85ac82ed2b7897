package handlers

import (
	"net/http"
	"time"

	"github.com/godyjooce/1win-predictor.01-international4/internal/service/stream"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type HealthHandler struct {
	metrics   *stream.Metrics
	startedAt time.Time
	logger    *zap.Logger
}

func NewHealthHandler(metrics *stream.Metrics, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		metrics:   metrics,
		startedAt: time.Now(),
		logger:    logger,
	}
}

// GET /health
func (h *HealthHandler) Check(c *gin.Context) {
	started, completed, stopped, failed, chunks := h.metrics.Snapshot()

	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"uptime": time.Since(h.startedAt).String(),
		"streams": gin.H{
			"started":   started,
			"completed": completed,
			"stopped":   stopped,
			"failed":    failed,
			"chunks":    chunks,
		},
	})
}
