package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siegfriedkaidisch/ROMIS/internal/config"
	"github.com/siegfriedkaidisch/ROMIS/internal/logging"
	"github.com/siegfriedkaidisch/ROMIS/internal/session"
)

type stubSource struct {
	progress session.Progress
}

func (s stubSource) Progress() session.Progress { return s.progress }

func testServer(src ProgressSource) *Server {
	cfg := &config.Config{}
	cfg.Monitor.Port = 0
	logger := logging.New(logging.ErrorLevel, io.Discard)
	return New(cfg, logger, src)
}

func TestHealthEndpoint(t *testing.T) {
	srv := testServer(stubSource{})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestStatusEndpoint(t *testing.T) {
	energy := -12.5
	srv := testServer(stubSource{progress: session.Progress{
		State:  "iterating",
		Steps:  7,
		Energy: &energy,
	}})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/status", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var got session.Progress
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "iterating", got.State)
	assert.Equal(t, 7, got.Steps)
	require.NotNil(t, got.Energy)
	assert.Equal(t, -12.5, *got.Energy)
}

func TestStatusOmitsEnergyBeforeFirstStep(t *testing.T) {
	srv := testServer(stubSource{progress: session.Progress{State: "init"}})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/status", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "energy")
}

func TestMetricsEndpoint(t *testing.T) {
	srv := testServer(stubSource{})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestRecoveryFromPanickingSource(t *testing.T) {
	srv := testServer(panicSource{})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/status", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

type panicSource struct{}

func (panicSource) Progress() session.Progress { panic("source gone") }
