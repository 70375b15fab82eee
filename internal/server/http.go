// Package server assembles the HTTP router and owns the server lifecycle.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	identityhandler "github.com/MrSCAN/hobbyist-haven-api/internal/identity/handler"
	"github.com/MrSCAN/hobbyist-haven-api/internal/metrics"
	"github.com/MrSCAN/hobbyist-haven-api/internal/platform/rbac"
	projecthandler "github.com/MrSCAN/hobbyist-haven-api/internal/project/handler"
	"github.com/MrSCAN/hobbyist-haven-api/internal/server/httpx"
	"github.com/MrSCAN/hobbyist-haven-api/internal/server/middleware"
	userhandler "github.com/MrSCAN/hobbyist-haven-api/internal/user/handler"
)

// RouterDeps carries everything the router needs. Metrics, RateLimiter, and
// WebhookVerifier are optional; nil disables the corresponding feature.
type RouterDeps struct {
	Tokens          middleware.TokenVerifier
	Users           middleware.UserFinder
	Auth            identityhandler.AuthService
	UserStore       userhandler.Store
	ProviderSync    userhandler.ProviderSync
	WebhookVerifier userhandler.WebhookVerifier
	ProjectStore    projecthandler.Store
	Metrics         *metrics.Collector
	RateLimiter     *middleware.RateLimiter
	RequestTimeout  time.Duration
}

// NewRouter builds the full API router.
func NewRouter(deps RouterDeps) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Recovery)
	r.Use(middleware.RequestLogger)
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Middleware)
	}
	timeout := deps.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	r.Use(chimiddleware.Timeout(timeout))

	requireAuth := middleware.RequireAuth(deps.Tokens, deps.Users)
	requireAdmin := rbac.RequireAdmin(deps.Tokens, deps.Users)

	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	})
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		// Credential endpoints are rate limited per client IP to slow
		// password guessing; the rest of the API is not.
		r.Group(func(r chi.Router) {
			if deps.RateLimiter != nil {
				r.Use(deps.RateLimiter.Middleware())
			}
			r.Mount("/auth", identityhandler.NewHandler(deps.Auth).Routes(requireAuth))
		})
		r.Mount("/users", userhandler.NewHandler(deps.UserStore, deps.ProviderSync, deps.WebhookVerifier).Routes(requireAuth, requireAdmin))
		r.Mount("/projects", projecthandler.NewHandler(deps.ProjectStore).Routes(requireAuth))
	})

	return r
}

// Run serves the router on addr until ctx is canceled, then drains with a
// shutdown grace period.
func Run(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           otelhttp.NewHandler(handler, "http.server"),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
