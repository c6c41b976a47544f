package middleware

import (
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"strings"

	apperrors "github.com/guardkit/guardkit/pkg/errors"
	"github.com/guardkit/guardkit/pkg/ratelimit"
)

// RateLimit returns middleware that rejects requests exceeding the per-client
// budget with 429. Clients are identified by the first X-Forwarded-For hop,
// falling back to the connection's remote address. The limiter fails open: a
// failing backend admits the request and logs a warning.
func RateLimit(limiter ratelimit.Limiter, l *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := clientIP(r)

			allowed, err := limiter.Allow(r.Context(), key)
			if err != nil {
				l.WarnContext(r.Context(), "rate limiter unavailable, admitting request",
					slog.String("error", err.Error()),
					slog.String("path", r.URL.Path),
				)
				next.ServeHTTP(w, r)
				return
			}

			if !allowed {
				l.WarnContext(r.Context(), "rate limit exceeded",
					slog.String("client_ip", key),
					slog.String("path", r.URL.Path),
				)
				appErr := apperrors.RateLimited()
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(appErr.Status)
				_ = json.NewEncoder(w).Encode(map[string]any{
					"error": map[string]string{
						"code":    appErr.Code,
						"message": appErr.Message,
					},
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// clientIP extracts the originating client address, trusting the first
// X-Forwarded-For hop when a proxy sets it.
func clientIP(r *http.Request) string {
	if xff := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); xff != "" {
		if first := strings.TrimSpace(strings.Split(xff, ",")[0]); first != "" {
			return first
		}
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}
