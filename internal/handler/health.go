package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"quick_chat/internal/metrics"
	"quick_chat/internal/presence"
)

type HealthHandler struct {
	registry *presence.Registry
	metrics  *metrics.Metrics
}

func NewHealthHandler(registry *presence.Registry, m *metrics.Metrics) *HealthHandler {
	return &HealthHandler{registry: registry, metrics: m}
}

func (h *HealthHandler) Check(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":           "ok",
		"service":          "quick-chat",
		"online":           h.registry.Len(),
		"dropped_presence": h.registry.DroppedChanges(),
	})
}

// Metrics serves the Prometheus exposition of the service registry.
func (h *HealthHandler) Metrics() gin.HandlerFunc {
	return gin.WrapH(promhttp.HandlerFor(h.metrics.Registry, promhttp.HandlerOpts{}))
}
