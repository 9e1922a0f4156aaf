package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/BradenHooton/keystone/internal/auth"
	"github.com/BradenHooton/keystone/internal/handlers"
	"github.com/BradenHooton/keystone/internal/middleware"
	pkghttp "github.com/BradenHooton/keystone/pkg/http"
	"github.com/go-chi/chi/v5"
)

// HealthChecker reports whether a dependency is reachable
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// RegisterRoutes mounts the API under /api/{apiVersion}. External routes are
// public; internal routes require a valid session token.
func RegisterRoutes(
	router chi.Router,
	apiVersion string,
	authHandler *handlers.AuthHandler,
	tokenManager *auth.TokenManager,
	loginRateLimit middleware.RateLimitConfig,
) {
	router.Route("/api/"+apiVersion, func(r chi.Router) {
		r.Route("/external", func(r chi.Router) {
			r.With(middleware.RateLimitByIP(loginRateLimit)).Post("/security/login", authHandler.Login)
		})

		r.Route("/internal", func(r chi.Router) {
			r.Use(auth.Middleware(tokenManager))
			r.Get("/security/session", authHandler.Session)
		})
	})

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		pkghttp.WriteNotFound(w, "Route not found: "+r.Method+" "+r.URL.Path)
	})
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		pkghttp.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed: "+r.Method+" "+r.URL.Path)
	})
}

// HealthHandler reports database reachability
func HealthHandler(db HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := db.HealthCheck(ctx); err != nil {
			pkghttp.WriteError(w, http.StatusServiceUnavailable, "Database unavailable.")
			return
		}

		pkghttp.WriteSuccess(w, http.StatusOK, map[string]string{"status": "healthy", "database": "up"})
	}
}
