package httptransport

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kycpass/pkg/platform/middleware/request"
)

type routeFunc func(r chi.Router)

func (f routeFunc) Register(r chi.Router) { f(r) }

func newTestRouter(t *testing.T, reg *prometheus.Registry) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewRouter(logger, request.NewMetrics(reg), time.Second,
		routeFunc(func(r chi.Router) {
			r.Get("/session", func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusOK)
			})
			r.Post("/session/verify", func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusOK)
			})
			r.Get("/boom", func(http.ResponseWriter, *http.Request) {
				panic("boom")
			})
		}),
	)
}

func TestRouterMiddleware(t *testing.T) {
	reg := prometheus.NewRegistry()
	router := newTestRouter(t, reg)

	t.Run("request id is echoed", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/session", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	})

	t.Run("non-json body is rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/session/verify", strings.NewReader("id=1"))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
	})

	t.Run("panics become 500", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})

	t.Run("unknown route", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nope", nil))

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.JSONEq(t, `{"error":"not_found","error_description":"route not found"}`, w.Body.String())
	})

	t.Run("wrong method", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/session", nil))

		assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	})

	t.Run("latency is labelled by route pattern", func(t *testing.T) {
		count, err := testutil.GatherAndCount(reg, "kycpass_http_request_duration_seconds")
		require.NoError(t, err)
		assert.Positive(t, count)
	})
}
