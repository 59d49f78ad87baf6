package middleware

import (
	"bytes"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"refunds/internal/platform/logger"
	"refunds/internal/platform/metrics"
	"refunds/pkg/platform/middleware/metadata"
	"refunds/pkg/requestcontext"
	httptest "refunds/pkg/testutil"
)

func TestRequestID(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = requestcontext.RequestID(r.Context())
	}))

	t.Run("propagates the caller's id", func(t *testing.T) {
		req := httptest.NewRequest(t, http.MethodGet, "/")
		req.Header.Set(RequestIDHeader, "req-42")
		rr := httptest.DoRequest(h, req)
		assert.Equal(t, "req-42", seen)
		assert.Equal(t, "req-42", rr.Header().Get(RequestIDHeader))
	})

	t.Run("assigns one when absent", func(t *testing.T) {
		rr := httptest.DoRequest(h, httptest.NewRequest(t, http.MethodGet, "/"))
		assert.NotEmpty(t, seen)
		assert.Equal(t, seen, rr.Header().Get(RequestIDHeader))
	})
}

func TestRecoveryAndLogger(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewWithWriter(&buf, "info", "json")

	r := chi.NewRouter()
	r.Use(RequestID, metadata.ClientMetadata, Logger(log), Recovery(log))
	r.Get("/boom", func(http.ResponseWriter, *http.Request) { panic("boom") })

	req := httptest.NewRequest(t, http.MethodGet, "/boom")
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	rr := httptest.DoRequest(r, req)

	httptest.AssertStatusAndError(t, rr, http.StatusInternalServerError, "internal_error")
	out := buf.String()
	assert.Contains(t, out, `"msg":"panic serving request"`)
	assert.Contains(t, out, `"status":500`)
	assert.Contains(t, out, `"client_ip":"203.0.113.7"`)
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegisterer(reg)

	r := chi.NewRouter()
	r.Use(Metrics(m))
	r.Get("/parameters/{name}", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })

	httptest.DoRequest(r, httptest.NewRequest(t, http.MethodGet, "/parameters/refundTimeLimit"))
	httptest.DoRequest(r, httptest.NewRequest(t, http.MethodGet, "/parameters/allowedMethods"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Requests.WithLabelValues("/parameters/{name}", "GET", "204")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.Requests), "one series per route")
}
