package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// GetSummaries returns a page of summary records, newest first
func (h *Handlers) GetSummaries(c *gin.Context) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid_page", Message: "Invalid page number", Code: http.StatusBadRequest})
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit < 1 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid_limit", Message: "Invalid page size", Code: http.StatusBadRequest})
		return
	}

	records, total, err := h.store.History(page, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "database_error",
			Message: "Failed to fetch summaries",
			Code:    http.StatusInternalServerError,
		})
		return
	}

	response := SummaryListResponse{
		Summaries: make([]SummaryResponse, 0, len(records)),
		Total:     total,
		Page:      page,
		Limit:     limit,
	}
	for _, rec := range records {
		response.Summaries = append(response.Summaries, toSummaryResponse(rec))
	}
	c.JSON(http.StatusOK, response)
}

// GetSummary returns a single summary record by ID
func (h *Handlers) GetSummary(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id < 1 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid_id", Message: "Invalid summary ID", Code: http.StatusBadRequest})
		return
	}

	rec, err := h.store.GetSummary(uint(id))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "not_found", Message: "Summary not found", Code: http.StatusNotFound})
			return
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "database_error",
			Message: "Failed to fetch summary",
			Code:    http.StatusInternalServerError,
		})
		return
	}
	c.JSON(http.StatusOK, toSummaryResponse(*rec))
}
