package handlers

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestGetLogsDefaultsToToday(t *testing.T) {
	env := newTestEnv(t, nil, "")

	rec := env.do(http.MethodGet, "/api/email-logs", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2026-10-19", env.emailLogs.day.String())
	assert.Equal(t, todayLogLimit, env.emailLogs.limit)
}

func TestGetLogsForDate(t *testing.T) {
	env := newTestEnv(t, nil, "")

	rec := env.do(http.MethodGet, "/api/email-logs?date=2026-09-01&limit=1000", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2026-09-01", env.emailLogs.day.String())
	assert.Equal(t, maxLogLimit, env.emailLogs.limit)

	rec = env.do(http.MethodGet, "/api/email-logs?date=yesterday", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetDailyLimit(t *testing.T) {
	env := newTestEnv(t, nil, "")

	rec := env.do(http.MethodGet, "/api/email-limit", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{
		"message": "Daily mail limit status retrieved",
		"status": "success",
		"data": {"current_count": 4, "limit": 10, "remaining": 6}
	}`, rec.Body.String())
}

func TestEmailStatsAndDailySends(t *testing.T) {
	env := newTestEnv(t, nil, "")

	rec := env.do(http.MethodGet, "/api/email-stats", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]interface{}{"Success": float64(3), "Failed": float64(1)}, decodeAPI(t, rec).Data)

	rec = env.do(http.MethodGet, "/api/email-daily?days=3", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeAPI(t, rec).Data, 3)
}

func TestHealth(t *testing.T) {
	rec := newTestEnv(t, nil, "").do(http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	h := ReadinessHandler(map[string]Check{
		"database": func(context.Context) error { return errors.New("dial tcp: refused") },
		"redis":    func(context.Context) error { return nil },
	}, zap.NewNop())
	env := &testEnv{router: h}
	rec = env.do(http.MethodGet, "/readyz", "")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	resp := decodeAPI(t, rec)
	assert.Contains(t, resp.Errors, "database")
	assert.NotContains(t, resp.Errors, "redis")
}
