package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"intraday-trade-bot-go/internal/config"
	"intraday-trade-bot-go/internal/engine"
	"intraday-trade-bot-go/internal/strategy"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestServer(t *testing.T) (*APIServer, *strategy.Registry) {
	t.Helper()
	cfg := config.Config{
		Engine: config.Engine{
			TickIntervalSeconds: 60,
			TotalCapital:        10000,
			DataDir:             t.TempDir(),
		},
		Server: config.Server{Port: 0},
	}
	registry := strategy.NewRegistry(10000)
	eng := engine.NewEngine(cfg, registry, nil, nil, zap.NewNop())
	return NewAPIServer(eng, 0, zap.NewNop()), registry
}

func TestHealthHandler(t *testing.T) {
	s, _ := newTestServer(t)
	rec := httptest.NewRecorder()

	s.healthHandler(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "OK")
}

func TestStatusHandler(t *testing.T) {
	s, _ := newTestServer(t)
	rec := httptest.NewRecorder()

	s.statusHandler(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var snapshot engine.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snapshot))
	assert.Equal(t, strategy.PresetS1, snapshot.Status.ActivePreset)
	assert.NotEmpty(t, snapshot.Status.EngineID)
}

func TestPresetsHandler(t *testing.T) {
	s, _ := newTestServer(t)
	rec := httptest.NewRecorder()

	s.presetsHandler(rec, httptest.NewRequest(http.MethodGet, "/api/presets", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var payload struct {
		Active  strategy.Preset   `json:"active"`
		Presets []strategy.Preset `json:"presets"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Equal(t, strategy.PresetS1, payload.Active.ID)
	assert.Len(t, payload.Presets, 4)
}

func TestApplyPresetHandler(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		s, registry := newTestServer(t)
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/apply-preset", strings.NewReader(`{"id":"S3"}`))

		s.applyPresetHandler(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, strategy.PresetS3, registry.Active().ID)
	})

	t.Run("UnknownPreset", func(t *testing.T) {
		s, registry := newTestServer(t)
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/apply-preset", strings.NewReader(`{"id":"S9"}`))

		s.applyPresetHandler(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, strategy.PresetS1, registry.Active().ID)
	})

	t.Run("MethodNotAllowed", func(t *testing.T) {
		s, _ := newTestServer(t)
		rec := httptest.NewRecorder()

		s.applyPresetHandler(rec, httptest.NewRequest(http.MethodGet, "/api/apply-preset", nil))

		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	})
}

func TestCloseHandler_RequiresSymbol(t *testing.T) {
	s, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/close", strings.NewReader(`{}`))

	s.closeHandler(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
