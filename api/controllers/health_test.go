package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/tradedesk-backend/api/responses"
	"github.com/angelmondragon/tradedesk-backend/pkg/config"
)

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

func TestHealthLive(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Env: "test"}}
	rec := httptest.NewRecorder()
	HealthLive(cfg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "test", rec.Header().Get(envHeader))
}

func TestHealthReady(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Env: "test"}}

	t.Run("all up", func(t *testing.T) {
		rec := httptest.NewRecorder()
		HealthReady(cfg, nil, stubPinger{}, stubPinger{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
		require.Equal(t, http.StatusOK, rec.Code)

		var env struct {
			Data struct {
				Checks map[string]string `json:"checks"`
			} `json:"data"`
		}
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&env))
		assert.Equal(t, map[string]string{"database": "ok", "redis": "ok"}, env.Data.Checks)
	})

	t.Run("redis skipped", func(t *testing.T) {
		rec := httptest.NewRecorder()
		HealthReady(cfg, nil, stubPinger{}, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("database down", func(t *testing.T) {
		rec := httptest.NewRecorder()
		HealthReady(cfg, nil, stubPinger{err: errors.New("dial tcp: refused")}, stubPinger{}).
			ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
		require.Equal(t, http.StatusServiceUnavailable, rec.Code)

		var env responses.ErrorEnvelope
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&env))
		details, ok := env.Error.Details.(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "down", details["database"])
		assert.Equal(t, "ok", details["redis"])
	})
}
