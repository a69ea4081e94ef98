// Package httptransport assembles the walletd HTTP surface: the middleware
// stack plus every route group.
package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	dErrors "kycpass/pkg/domain-errors"
	"kycpass/pkg/platform/httputil"
	"kycpass/pkg/platform/middleware/request"
)

// Routes mounts a route group on the router.
type Routes interface {
	Register(r chi.Router)
}

// NewRouter wires routes behind the shared middleware stack. A zero timeout
// leaves request contexts unbounded; m may be nil.
func NewRouter(logger *slog.Logger, m *request.Metrics, timeout time.Duration, routes ...Routes) http.Handler {
	r := chi.NewRouter()

	r.Use(request.Recovery(logger))
	r.Use(request.RequestID)
	r.Use(request.Logger(logger))
	r.Use(request.Latency(m))
	if timeout > 0 {
		r.Use(chimw.Timeout(timeout))
	}
	r.Use(request.ContentTypeJSON)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "route not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusMethodNotAllowed, httputil.ErrorResponse{Error: "method_not_allowed"})
	})

	for _, routes := range routes {
		routes.Register(r)
	}
	return r
}
