package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"secure-mail-digest-go/internal/config"
	"secure-mail-digest-go/internal/model"
	"secure-mail-digest-go/internal/scheduler"
	"secure-mail-digest-go/internal/store"
)

type noopRunner struct {
	err error
}

func (r noopRunner) RunCycle(ctx context.Context) error { return r.err }

func setupTestAPI(t *testing.T, runner scheduler.CycleRunner) (*gin.Engine, store.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	st, err := store.Open(config.DatabaseConfig{Driver: "sqlite", Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	sched := scheduler.NewScheduler(runner, st, time.Hour, 10*time.Hour)
	t.Cleanup(func() { sched.Stop() })

	router := gin.New()
	NewHandlers(st, sched).SetupRoutes(router)
	return router, st
}

func doRequest(router *gin.Engine, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	router.ServeHTTP(w, req)
	return w
}

func seedSummary(t *testing.T, st store.Store, messageID string, createdAt time.Time) uint {
	t.Helper()
	rec := &model.SummaryRecord{
		MessageID:      messageID,
		Sender:         "alice@corp.example.com",
		Subject:        "Weekly update",
		Summary:        "- All systems nominal.",
		Markers:        "",
		RedactionCount: 0,
		CreatedAt:      createdAt,
	}
	require.NoError(t, st.AppendSummary(rec))
	return rec.ID
}

func TestHealthCheck(t *testing.T) {
	router, _ := setupTestAPI(t, noopRunner{})

	w := doRequest(router, http.MethodGet, "/healthz")
	require.Equal(t, http.StatusOK, w.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "ok", resp.Database)
	assert.Equal(t, "stopped", resp.Monitor)
}

func TestMonitorLifecycle(t *testing.T) {
	router, _ := setupTestAPI(t, noopRunner{})

	w := doRequest(router, http.MethodPost, "/api/v1/monitor/start")
	require.Equal(t, http.StatusOK, w.Code)
	var status scheduler.Status
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.True(t, status.Running)

	w = doRequest(router, http.MethodGet, "/api/v1/monitor/status")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.True(t, status.Running)

	w = doRequest(router, http.MethodPost, "/api/v1/monitor/stop")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.False(t, status.Running)
}

func TestRunOnce(t *testing.T) {
	router, _ := setupTestAPI(t, noopRunner{})

	w := doRequest(router, http.MethodPost, "/api/v1/monitor/run-once")
	require.Equal(t, http.StatusOK, w.Code)
}

func TestRunOnceReportsCycleError(t *testing.T) {
	router, _ := setupTestAPI(t, noopRunner{err: errors.New("mailbox unreachable")})

	w := doRequest(router, http.MethodPost, "/api/v1/monitor/run-once")
	require.Equal(t, http.StatusInternalServerError, w.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "cycle_error", resp.Error)
	assert.Contains(t, resp.Message, "mailbox unreachable")
}

func TestGetSummariesEmpty(t *testing.T) {
	router, _ := setupTestAPI(t, noopRunner{})

	w := doRequest(router, http.MethodGet, "/api/v1/summaries")
	require.Equal(t, http.StatusOK, w.Code)

	var resp SummaryListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, int64(0), resp.Total)
	assert.NotNil(t, resp.Summaries)
	assert.Len(t, resp.Summaries, 0)
}

func TestGetSummariesPaginated(t *testing.T) {
	router, st := setupTestAPI(t, noopRunner{})

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 1; i <= 3; i++ {
		seedSummary(t, st, fmt.Sprintf("msg-%d", i), base.Add(time.Duration(i)*time.Minute))
	}

	w := doRequest(router, http.MethodGet, "/api/v1/summaries?page=1&limit=2")
	require.Equal(t, http.StatusOK, w.Code)

	var resp SummaryListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, int64(3), resp.Total)
	require.Len(t, resp.Summaries, 2)
	assert.Equal(t, "msg-3", resp.Summaries[0].MessageID)
	assert.Equal(t, "msg-2", resp.Summaries[1].MessageID)

	w = doRequest(router, http.MethodGet, "/api/v1/summaries?page=2&limit=2")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Summaries, 1)
	assert.Equal(t, "msg-1", resp.Summaries[0].MessageID)
}

func TestGetSummariesInvalidPagination(t *testing.T) {
	router, _ := setupTestAPI(t, noopRunner{})

	w := doRequest(router, http.MethodGet, "/api/v1/summaries?page=abc")
	require.Equal(t, http.StatusBadRequest, w.Code)
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "invalid_page", resp.Error)

	w = doRequest(router, http.MethodGet, "/api/v1/summaries?limit=0")
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "invalid_limit", resp.Error)
}

func TestGetSummaryByID(t *testing.T) {
	router, st := setupTestAPI(t, noopRunner{})

	rec := &model.SummaryRecord{
		MessageID:      "msg-confidential",
		Sender:         "legal@corp.example.com",
		Subject:        "Confidential settlement terms",
		Summary:        "CONFIDENTIAL EMAIL DETECTED",
		IsConfidential: true,
		Markers:        "confidential,secret",
		RedactionCount: 2,
	}
	require.NoError(t, st.AppendSummary(rec))

	w := doRequest(router, http.MethodGet, fmt.Sprintf("/api/v1/summaries/%d", rec.ID))
	require.Equal(t, http.StatusOK, w.Code)

	var resp SummaryResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "msg-confidential", resp.MessageID)
	assert.True(t, resp.IsConfidential)
	assert.Equal(t, []string{"confidential", "secret"}, resp.Markers)
	assert.Equal(t, 2, resp.RedactionCount)
}

func TestGetSummaryNotFound(t *testing.T) {
	router, _ := setupTestAPI(t, noopRunner{})

	w := doRequest(router, http.MethodGet, "/api/v1/summaries/999")
	require.Equal(t, http.StatusNotFound, w.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "not_found", resp.Error)
}

func TestGetSummaryInvalidID(t *testing.T) {
	router, _ := setupTestAPI(t, noopRunner{})

	w := doRequest(router, http.MethodGet, "/api/v1/summaries/abc")
	require.Equal(t, http.StatusBadRequest, w.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "invalid_id", resp.Error)
}
