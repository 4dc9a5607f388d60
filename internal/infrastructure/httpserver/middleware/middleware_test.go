package middleware_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/avatarctic/voter-email/go/internal/infrastructure/httpserver/middleware"
	tmocks "github.com/avatarctic/voter-email/go/test/mocks"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func okHandler(c echo.Context) error { return c.NoContent(http.StatusOK) }

func TestAdminKey_DisabledWithoutKey(t *testing.T) {
	e := echo.New()
	h := middleware.NewAdminKeyMiddleware("", logrus.New()).RequireAdminKey()(okHandler)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(middleware.AdminKeyHeader, "")
	err := h(e.NewContext(req, httptest.NewRecorder()))
	htErr, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	require.Equal(t, http.StatusServiceUnavailable, htErr.Code)
}

func TestAdminKey_AcceptsMatchingKey(t *testing.T) {
	e := echo.New()
	h := middleware.NewAdminKeyMiddleware("k", logrus.New()).RequireAdminKey()(okHandler)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(middleware.AdminKeyHeader, "k")
	rec := httptest.NewRecorder()
	require.NoError(t, h(e.NewContext(req, rec)))
	require.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(middleware.AdminKeyHeader, "kk")
	err := h(e.NewContext(req, httptest.NewRecorder()))
	htErr, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	require.Equal(t, http.StatusUnauthorized, htErr.Code)
}

func TestRateLimit_FailsOpenOnLimiterError(t *testing.T) {
	e := echo.New()
	limiter := &tmocks.RequestLimiterMock{AllowFn: func(ctx context.Context, subject string) (bool, int, int, time.Time, error) {
		return true, 30, 30, time.Now(), errors.New("redis down")
	}}
	h := middleware.NewRateLimitMiddleware(limiter, logrus.New()).Handler()(okHandler)

	req := httptest.NewRequest(http.MethodGet, "/?voter_device_id=dev-1", nil)
	rec := httptest.NewRecorder()
	require.NoError(t, h(e.NewContext(req, rec)))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "30", rec.Header().Get("X-RateLimit-Remaining"))
}

func TestRateLimit_SkipsRequestsWithoutDevice(t *testing.T) {
	e := echo.New()
	called := false
	limiter := &tmocks.RequestLimiterMock{AllowFn: func(ctx context.Context, subject string) (bool, int, int, time.Time, error) {
		called = true
		return false, 0, 1, time.Now(), nil
	}}
	h := middleware.NewRateLimitMiddleware(limiter, nil).Handler()(okHandler)

	rec := httptest.NewRecorder()
	require.NoError(t, h(e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)))
	require.False(t, called)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimit_Rejects(t *testing.T) {
	e := echo.New()
	limiter := &tmocks.RequestLimiterMock{AllowFn: func(ctx context.Context, subject string) (bool, int, int, time.Time, error) {
		return false, 0, 1, time.Now(), nil
	}}
	h := middleware.NewRateLimitMiddleware(limiter, nil).Handler()(okHandler)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Voter-Device-Id", "dev-1")
	err := h(e.NewContext(req, httptest.NewRecorder()))
	htErr, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	require.Equal(t, http.StatusTooManyRequests, htErr.Code)
}

func TestMetrics_CountsByRouteAndStatus(t *testing.T) {
	reg := prometheus.NewRegistry()
	total := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "test_requests_total"}, []string{"method", "path", "status"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{Name: "test_request_seconds"}, []string{"method", "path"})
	reg.MustRegister(total, duration)

	e := echo.New()
	e.Use(middleware.NewMetricsMiddleware(total, duration).CollectHTTPMetrics())
	e.GET("/voters/:id", okHandler)
	for i := 0; i < 2; i++ {
		e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/voters/42", nil))
	}

	families, err := reg.Gather()
	require.NoError(t, err)
	counts := map[string]float64{}
	for _, f := range families {
		if f.GetName() != "test_requests_total" {
			continue
		}
		for _, m := range f.GetMetric() {
			labels := map[string]string{}
			for _, l := range m.GetLabel() {
				labels[l.GetName()] = l.GetValue()
			}
			counts[labels["method"]+" "+labels["path"]+" "+labels["status"]] = m.GetCounter().GetValue()
		}
	}
	require.Equal(t, map[string]float64{"GET /voters/:id 200": 2}, counts)
}
