package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paiban/planner/internal/config"
	"github.com/paiban/planner/internal/database"
	"github.com/paiban/planner/internal/metrics"
	"github.com/paiban/planner/pkg/logger"
)

func init() {
	logger.Init(logger.Config{Level: "disabled", Output: "discard"})
}

const input = `{
	"days": ["Mon", "Tue"],
	"shifts": ["AM", "PM"],
	"users": ["alice", "bob", "carol"],
	"wishes": [[1, 0, 1]]
}`

func TestRouter(t *testing.T) {
	cfg := config.Default()
	cfg.Server.RateLimit = 0

	db, err := database.New(&config.DatabaseConfig{Driver: config.DriverSQLite, DSN: "file::memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate(context.Background()))

	collector := metrics.New("test")
	h := newRouter(cfg, db, collector)

	serve := func(method, target, body string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(method, target, strings.NewReader(body)))
		return rec
	}

	rec := serve(http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	assert.JSONEq(t, `{"status":"ok","service":"planner"}`, rec.Body.String())

	rec = serve(http.MethodGet, "/version", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"version":"dev"`)

	rec = serve(http.MethodPost, "/api/v1/plan", input)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"status":"OPTIMAL"`)

	rec = serve(http.MethodGet, "/api/v1/plans", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"total":1`)

	rec = serve(http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `test_solve_total{engine="pb",status="OPTIMAL"} 1`)
	assert.Contains(t, body, `test_http_requests_total`)
}

func TestRouter_WithoutStoreAndMetrics(t *testing.T) {
	cfg := config.Default()
	h := newRouter(cfg, nil, nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/plans", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
