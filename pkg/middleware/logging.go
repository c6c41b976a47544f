package middleware

import (
	"bufio"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/guardkit/guardkit/pkg/logger"
)

// responseWriter records the status code and body size of a response while
// passing Flusher and Hijacker through to the wrapped writer.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	bytes      int
}

func (w *responseWriter) WriteHeader(code int) {
	w.statusCode = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *responseWriter) Write(b []byte) (int, error) {
	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err
}

func (w *responseWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (w *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := w.ResponseWriter.(http.Hijacker); ok {
		return h.Hijack()
	}
	return nil, nil, http.ErrNotSupported
}

// correlationID returns the inbound X-Correlation-ID or mints a fresh one.
func correlationID(r *http.Request) string {
	if id := r.Header.Get("X-Correlation-ID"); id != "" {
		return id
	}
	return uuid.New().String()
}

// RequestLogging emits one structured line per request with method, path,
// status, duration, and response size. The correlation ID is taken from the
// request or generated, stored in the context for downstream log calls, and
// echoed back to the client.
func RequestLogging(l *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			cid := correlationID(r)
			ctx := logger.WithCorrelationID(r.Context(), cid)
			w.Header().Set("X-Correlation-ID", cid)

			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(wrapped, r.WithContext(ctx))

			l.LogAttrs(ctx, slog.LevelInfo, "http request",
				slog.String("method", r.Method), slog.String("path", r.URL.Path),
				slog.Int("status", wrapped.statusCode), slog.Int("bytes", wrapped.bytes),
				slog.Duration("duration", time.Since(start)), slog.String("correlation_id", cid),
				slog.String("remote_addr", r.RemoteAddr), slog.String("user_agent", r.UserAgent()))
		})
	}
}
