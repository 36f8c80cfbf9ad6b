package routes

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgAuth "github.com/angelmondragon/tradedesk-backend/pkg/auth"
	"github.com/angelmondragon/tradedesk-backend/pkg/config"
	"github.com/angelmondragon/tradedesk-backend/pkg/enums"
	"github.com/angelmondragon/tradedesk-backend/pkg/logger"
	"github.com/angelmondragon/tradedesk-backend/pkg/metrics"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error { return nil }

type stubSessions struct{}

func (stubSessions) HasSession(context.Context, string) (bool, error) { return true, nil }

func testConfig() *config.Config {
	return &config.Config{
		App:     config.AppConfig{Env: "test", Port: "0"},
		JWT:     config.JWTConfig{Secret: "router-secret", Issuer: "tradedesk-test", ExpirationMinutes: 5},
		Metrics: config.MetricsConfig{Enabled: true, Path: "/metrics"},
	}
}

func newTestRouter(t *testing.T) (http.Handler, *config.Config) {
	t.Helper()
	cfg := testConfig()
	reg := prometheus.NewRegistry()
	return NewRouter(Params{
		Config:            cfg,
		Logger:            logger.New(logger.Options{ServiceName: "router-test", Output: io.Discard}),
		DB:                stubPinger{},
		Sessions:          stubSessions{},
		MetricsHandler:    promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		HTTPMetrics:       metrics.NewHTTPMetrics(reg),
		CalculatorMetrics: metrics.NewCalculatorMetrics(reg),
	}), cfg
}

func bearer(t *testing.T, cfg *config.Config, role enums.UserRole) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{
		UserID: uuid.New(),
		Name:   "Router Test",
		Role:   role,
		JTI:    uuid.NewString(),
	})
	require.NoError(t, err)
	return "Bearer " + token
}

func TestHealthRoutes(t *testing.T) {
	router, _ := newTestRouter(t)

	for _, path := range []string{"/health/live", "/health/ready"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestAPIRoutesRequireToken(t *testing.T) {
	router, _ := newTestRouter(t)

	for _, path := range []string{"/api/users", "/api/sales", "/api/dashboard", "/api/activitylogs"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}
}

func TestAdminOnlyRoutes(t *testing.T) {
	router, cfg := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/users", strings.NewReader(`{}`))
	req.Header.Set("Authorization", bearer(t, cfg, enums.UserRoleStaff))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req = httptest.NewRequest(http.MethodDelete, "/api/sales/"+uuid.NewString(), nil)
	req.Header.Set("Authorization", bearer(t, cfg, enums.UserRoleStaff))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCalculatorRoute(t *testing.T) {
	router, cfg := newTestRouter(t)

	body := `{"line":{"product":{"id":"p1","name":"Eggs","unitCategory":"TRAY"},"paymentMode":"split"},` +
		`"event":{"type":"edit","field":"displayQuantity","value":"2"}}`
	req := httptest.NewRequest(http.MethodPost, "/api/calculator/line", bytes.NewBufferString(body))
	req.Header.Set("Authorization", bearer(t, cfg, enums.UserRoleStaff))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"quantity":"14"`)
}

func TestMetricsEndpoint(t *testing.T) {
	router, cfg := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, cfg.Metrics.Path, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `route="/health/live"`)
}

func TestUnknownRoute(t *testing.T) {
	router, _ := newTestRouter(t)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/orders", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
