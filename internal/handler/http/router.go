package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/guardkit/guardkit/internal/service"
	"github.com/guardkit/guardkit/pkg/health"
	pkgmiddleware "github.com/guardkit/guardkit/pkg/middleware"
)

// NewRouter creates a chi router with all auth service routes registered.
// loginLimiter wraps only the login endpoint; pass nil to disable rate
// limiting. pprofCIDRs is the IP allowlist for /debug/pprof.
func NewRouter(
	authService *service.AuthService,
	healthHandler *health.Handler,
	loginLimiter func(http.Handler) http.Handler,
	logger *slog.Logger,
	corsConfig pkgmiddleware.CORSConfig,
	pprofCIDRs []string,
) http.Handler {
	if loginLimiter == nil {
		loginLimiter = func(next http.Handler) http.Handler { return next }
	}

	r := chi.NewRouter()

	// Middleware applied to every route, outermost first.
	r.Use(pkgmiddleware.CORS(corsConfig))
	r.Use(pkgmiddleware.Recovery(logger))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(pkgmiddleware.Tracing("auth"))
	r.Use(pkgmiddleware.RequestLogging(logger))
	r.Use(pkgmiddleware.RequestLogger(logger))
	r.Use(pkgmiddleware.PrometheusMetrics("auth"))

	// Probes and metrics sit outside /api and outside the auth stack.
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	// Pprof debug endpoints with IP allowlist.
	pkgmiddleware.RegisterPprof(r, pprofCIDRs, logger)

	authHandler := NewAuthHandler(authService, logger)
	userHandler := NewUserHandler(authService, logger)

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Use(pkgmiddleware.NoStore())

		// Body-bearing public endpoints.
		r.Group(func(r chi.Router) {
			r.Use(ContentTypeJSON)

			r.Post("/register", authHandler.Register)
			r.With(loginLimiter).Post("/login", authHandler.Login)
			r.Post("/refresh", authHandler.RefreshToken)
		})

		// Logout carries no body, only the bearer token.
		r.Group(func(r chi.Router) {
			r.Use(pkgmiddleware.Auth(authService.Authorize))

			r.Post("/logout", authHandler.Logout)
		})
	})

	r.Route("/api/v1/users", func(r chi.Router) {
		r.Use(pkgmiddleware.NoStore())
		r.Use(pkgmiddleware.Auth(authService.Authorize))

		r.Get("/me", userHandler.GetProfile)
	})

	return r
}
