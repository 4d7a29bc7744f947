package handlers

import (
	"strings"
	"time"

	"secure-mail-digest-go/internal/model"
)

// HealthResponse represents a health check response
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Database  string    `json:"database"`
	Monitor   string    `json:"monitor"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// SummaryResponse is the API shape of a stored summary record.
type SummaryResponse struct {
	ID             uint      `json:"id"`
	MessageID      string    `json:"message_id"`
	Sender         string    `json:"sender"`
	Subject        string    `json:"subject"`
	Summary        string    `json:"summary"`
	IsConfidential bool      `json:"is_confidential"`
	Degraded       bool      `json:"degraded"`
	Markers        []string  `json:"markers,omitempty"`
	RedactionCount int       `json:"redaction_count"`
	CreatedAt      time.Time `json:"created_at"`
}

// SummaryListResponse is a page of summary records, newest first.
type SummaryListResponse struct {
	Summaries []SummaryResponse `json:"summaries"`
	Total     int64             `json:"total"`
	Page      int               `json:"page"`
	Limit     int               `json:"limit"`
}

func toSummaryResponse(rec model.SummaryRecord) SummaryResponse {
	resp := SummaryResponse{
		ID:             rec.ID,
		MessageID:      rec.MessageID,
		Sender:         rec.Sender,
		Subject:        rec.Subject,
		Summary:        rec.Summary,
		IsConfidential: rec.IsConfidential,
		Degraded:       rec.Degraded,
		RedactionCount: rec.RedactionCount,
		CreatedAt:      rec.CreatedAt,
	}
	if rec.Markers != "" {
		resp.Markers = strings.Split(rec.Markers, ",")
	}
	return resp
}
