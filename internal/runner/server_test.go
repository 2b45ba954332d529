package runner

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kallahq/kalla/internal/config"
	"github.com/kallahq/kalla/internal/model"
	"github.com/kallahq/kalla/internal/wire"
)

func testRouterConfig() config.Config {
	return config.Config{
		JobQueueCapacity:  1,
		MaxConcurrentJobs: 1,
		SourcePartitions:  4,
		CORSAllowOrigins:  "*",
		RateLimitPerMin:   1000,
	}
}

func TestSubmitJobHandler_RejectsMalformedJSON(t *testing.T) {
	d := NewDispatcher(testRouterConfig(), wire.NewCodec(nil))
	r := NewRouter(testRouterConfig(), d)

	req := httptest.NewRequest(http.MethodPost, "/api/jobs", bytes.NewReader([]byte(`not json`)))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// Stage 0 intake validates nothing beyond type shape: a body that decodes
// cleanly but is semantically empty is still enqueued, per §4.4 Stage 0.
func TestSubmitJobHandler_AcceptsSemanticallyEmptyBody(t *testing.T) {
	d := NewDispatcher(testRouterConfig(), wire.NewCodec(nil))
	r := NewRouter(testRouterConfig(), d)

	req := httptest.NewRequest(http.MethodPost, "/api/jobs", bytes.NewReader([]byte(`{}`)))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusAccepted, w.Code)
}

func TestSubmitJobHandler_AcceptsValidRequest(t *testing.T) {
	d := NewDispatcher(testRouterConfig(), wire.NewCodec(nil))
	r := NewRouter(testRouterConfig(), d)

	body, err := json.Marshal(model.JobRequest{
		RunID:    "run-1",
		MatchSQL: "SELECT * FROM left JOIN right ON left.id = right.id",
		Sources: []model.JobSource{
			{Alias: "left", URI: "postgres://x/left"},
			{Alias: "right", URI: "postgres://x/right"},
		},
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/jobs", bytes.NewReader(body))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusAccepted, w.Code)
}

func TestSubmitJobHandler_QueueFullReturns503(t *testing.T) {
	d := NewDispatcher(testRouterConfig(), wire.NewCodec(nil))
	r := NewRouter(testRouterConfig(), d)

	validBody, err := json.Marshal(model.JobRequest{
		RunID:    "run-1",
		MatchSQL: "SELECT * FROM left JOIN right ON left.id = right.id",
		Sources: []model.JobSource{
			{Alias: "left", URI: "postgres://x/left"},
			{Alias: "right", URI: "postgres://x/right"},
		},
	})
	require.NoError(t, err)

	// Queue capacity is 1: fill it directly, bypassing the dispatch loop.
	require.True(t, d.Submit(&model.JobRequest{RunID: "occupant"}))

	req := httptest.NewRequest(http.MethodPost, "/api/jobs", bytes.NewReader(validBody))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestReadyHandler_ReportsQueueAndEngineMode(t *testing.T) {
	d := NewDispatcher(testRouterConfig(), wire.NewCodec(nil))
	r := NewRouter(testRouterConfig(), d)

	req := httptest.NewRequest(http.MethodGet, "/ready", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ready", body["status"])
	assert.Equal(t, "unknown", body["last_engine_mode"])
	assert.Equal(t, float64(1), body["queue_capacity"])
}

func TestReadyHandler_ReturnsServiceUnavailableWhenQueueFull(t *testing.T) {
	d := NewDispatcher(testRouterConfig(), wire.NewCodec(nil))
	r := NewRouter(testRouterConfig(), d)

	// testRouterConfig's queue capacity is 1; fill it directly.
	require.True(t, d.Submit(&model.JobRequest{RunID: "occupant"}))

	req := httptest.NewRequest(http.MethodGet, "/ready", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "queue_full", body["status"])
}

func TestHealthHandler_ReturnsOK(t *testing.T) {
	d := NewDispatcher(testRouterConfig(), wire.NewCodec(nil))
	r := NewRouter(testRouterConfig(), d)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}
