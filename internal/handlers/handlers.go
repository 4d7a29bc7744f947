// Package handlers wires the HTTP control surface: health, metrics, monitor
// control, and the summary history.
package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"secure-mail-digest-go/internal/scheduler"
	"secure-mail-digest-go/internal/store"
)

// Handlers contains all HTTP handlers
type Handlers struct {
	store     store.Store
	scheduler *scheduler.Scheduler
}

// NewHandlers creates new HTTP handlers
func NewHandlers(st store.Store, s *scheduler.Scheduler) *Handlers {
	return &Handlers{store: st, scheduler: s}
}

// SetupRoutes registers all routes on the router
func (h *Handlers) SetupRoutes(router *gin.Engine) {
	// Health check
	router.GET("/healthz", h.HealthCheck)

	// Prometheus metrics
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API routes
	api := router.Group("/api/v1")
	{
		// Monitor control
		api.POST("/monitor/start", h.StartMonitor)
		api.POST("/monitor/stop", h.StopMonitor)
		api.POST("/monitor/run-once", h.RunOnce)
		api.GET("/monitor/status", h.GetMonitorStatus)

		// Summary history
		api.GET("/summaries", h.GetSummaries)
		api.GET("/summaries/:id", h.GetSummary)
	}
}
