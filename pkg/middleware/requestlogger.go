package middleware

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/guardkit/guardkit/pkg/logger"
)

// RequestLogger stores a request-scoped logger in the context, pre-enriched
// with correlation_id, user_id, trace_id and span_id so handlers logging via
// logger.FromContext get those fields for free.
//
// Mount it after RequestLogging (correlation ID) and Tracing (span context);
// it only reads what earlier middleware put into the request context.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if id := resolveUserID(r); id != 0 {
				ctx = logger.WithUserID(ctx, id)
			}

			ctx = logger.NewContext(ctx, logger.WithContext(ctx, base))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// resolveUserID prefers the id set by the Auth middleware and falls back to
// the X-User-ID header a trusted gateway may set on unauthenticated routes.
// Malformed header values are dropped.
func resolveUserID(r *http.Request) int64 {
	if id := UserIDFromContext(r.Context()); id != 0 {
		return id
	}
	header := r.Header.Get("X-User-ID")
	if header == "" {
		return 0
	}
	id, err := strconv.ParseInt(header, 10, 64)
	if err != nil {
		return 0
	}
	return id
}
