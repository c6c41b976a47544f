package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func healthy(ctx context.Context) error { return nil }

func failing(msg string) Checker {
	return func(ctx context.Context) error { return errors.New(msg) }
}

// probeReadiness runs the readiness handler once and decodes its body.
func probeReadiness(t *testing.T, h *Handler) (int, Response) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ReadinessHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	var resp Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return rec.Code, resp
}

func TestLivenessHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	NewHandler().LivenessHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, StatusUp, resp.Status)
	assert.False(t, resp.Timestamp.IsZero())
	assert.Empty(t, resp.Checks, "liveness carries no per-dependency detail")
}

func TestReadinessHandler_StatusMatrix(t *testing.T) {
	tests := []struct {
		name       string
		setup      func(h *Handler)
		wantCode   int
		wantStatus Status
	}{
		{
			name:       "no checks registered",
			setup:      func(h *Handler) {},
			wantCode:   http.StatusOK,
			wantStatus: StatusUp,
		},
		{
			name: "all dependencies up",
			setup: func(h *Handler) {
				h.RegisterCritical("postgres", healthy)
				h.RegisterNonCritical("kafka", healthy)
				h.RegisterNonCritical("redis", healthy)
			},
			wantCode:   http.StatusOK,
			wantStatus: StatusUp,
		},
		{
			name: "critical dependency down",
			setup: func(h *Handler) {
				h.RegisterCritical("postgres", failing("connection refused"))
				h.RegisterNonCritical("kafka", healthy)
			},
			wantCode:   http.StatusServiceUnavailable,
			wantStatus: StatusDown,
		},
		{
			name: "non-critical dependency down",
			setup: func(h *Handler) {
				h.RegisterCritical("postgres", healthy)
				h.RegisterNonCritical("kafka", failing("broker unreachable"))
			},
			wantCode:   http.StatusOK,
			wantStatus: StatusDegraded,
		},
		{
			name: "several non-critical down stays degraded",
			setup: func(h *Handler) {
				h.RegisterCritical("postgres", healthy)
				h.RegisterNonCritical("kafka", failing("broker unreachable"))
				h.RegisterNonCritical("redis", failing("connection reset"))
			},
			wantCode:   http.StatusOK,
			wantStatus: StatusDegraded,
		},
		{
			name: "critical failure wins over degraded",
			setup: func(h *Handler) {
				h.RegisterCritical("postgres", failing("connection refused"))
				h.RegisterNonCritical("redis", failing("connection reset"))
			},
			wantCode:   http.StatusServiceUnavailable,
			wantStatus: StatusDown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandler()
			tt.setup(h)

			code, resp := probeReadiness(t, h)
			assert.Equal(t, tt.wantCode, code)
			assert.Equal(t, tt.wantStatus, resp.Status)
			assert.False(t, resp.Timestamp.IsZero())
		})
	}
}

func TestReadinessHandler_PerCheckDetail(t *testing.T) {
	h := NewHandler()
	h.RegisterCritical("postgres", healthy)
	h.RegisterNonCritical("kafka", failing("broker unreachable"))

	code, resp := probeReadiness(t, h)
	assert.Equal(t, http.StatusOK, code)
	require.Len(t, resp.Checks, 2)

	pg := resp.Checks["postgres"]
	assert.Equal(t, StatusUp, pg.Status)
	assert.True(t, pg.Critical)
	assert.Empty(t, pg.Error)

	kf := resp.Checks["kafka"]
	assert.Equal(t, StatusDown, kf.Status)
	assert.False(t, kf.Critical)
	assert.Equal(t, "broker unreachable", kf.Error)
}

func TestRegister_DefaultsToCritical(t *testing.T) {
	h := NewHandler()
	h.Register("postgres", failing("down"))

	code, resp := probeReadiness(t, h)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, StatusDown, resp.Status)
	assert.True(t, resp.Checks["postgres"].Critical)
}

func TestRegister_SameNameReplacesChecker(t *testing.T) {
	h := NewHandler()
	h.Register("postgres", failing("stale wiring"))
	h.Register("postgres", healthy)

	code, resp := probeReadiness(t, h)
	assert.Equal(t, http.StatusOK, code)
	require.Len(t, resp.Checks, 1)
	assert.Equal(t, StatusUp, resp.Checks["postgres"].Status)
}

func TestReadinessHandler_CheckerContextHasDeadline(t *testing.T) {
	h := NewHandler()
	var hasDeadline bool
	h.Register("postgres", func(ctx context.Context) error {
		_, hasDeadline = ctx.Deadline()
		return nil
	})

	code, _ := probeReadiness(t, h)
	assert.Equal(t, http.StatusOK, code)
	assert.True(t, hasDeadline, "checkers run under the probe timeout")
}
