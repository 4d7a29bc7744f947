package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// StartMonitor starts the mailbox monitor
func (h *Handlers) StartMonitor(c *gin.Context) {
	if err := h.scheduler.Start(); err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "monitor_error",
			Message: err.Error(),
			Code:    http.StatusInternalServerError,
		})
		return
	}
	c.JSON(http.StatusOK, h.scheduler.Status())
}

// StopMonitor stops the mailbox monitor
func (h *Handlers) StopMonitor(c *gin.Context) {
	if err := h.scheduler.Stop(); err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "monitor_error",
			Message: err.Error(),
			Code:    http.StatusInternalServerError,
		})
		return
	}
	c.JSON(http.StatusOK, h.scheduler.Status())
}

// RunOnce triggers a single poll cycle and waits for it to finish
func (h *Handlers) RunOnce(c *gin.Context) {
	if err := h.scheduler.RunOnce(); err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "cycle_error",
			Message: err.Error(),
			Code:    http.StatusInternalServerError,
		})
		return
	}
	c.JSON(http.StatusOK, h.scheduler.Status())
}

// GetMonitorStatus returns the monitor status
func (h *Handlers) GetMonitorStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.scheduler.Status())
}
