// internal/adapters/in/http/router.go
package httpin

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"storefront/internal/adapters/in/http/mall"
	"storefront/internal/adapters/in/http/middleware"
)

// RouterDeps collects what the router needs from DI.
type RouterDeps struct {
	Mall           mall.Deps
	AllowedOrigins []string
	Logger         *zap.Logger

	// Ready reports backend health for /readyz; nil means always ready.
	Ready func(ctx context.Context) error
}

// NewRouter builds the HTTP handler.
// Chain order (outer → inner): CORS → Recover → RequestID → routes.
func NewRouter(deps RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := chi.NewRouter()
	r.Use(middleware.CORS(deps.AllowedOrigins))
	r.Use(middleware.Recover)
	r.Use(chimw.RequestID)
	r.Use(chimw.StripSlashes)

	// Health check (always on)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if deps.Ready != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
			defer cancel()
			if err := deps.Ready(ctx); err != nil {
				logger.Warn("readiness check failed", zap.Error(err))
				http.Error(w, "not ready", http.StatusServiceUnavailable)
				return
			}
		}
		_, _ = w.Write([]byte("ok"))
	})

	mall.Register(r, deps.Mall)
	return r
}
