package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"runtime/debug"

	apperrors "github.com/guardkit/guardkit/pkg/errors"
)

// Recovery converts handler panics into 500 responses so one bad request
// cannot take the process down. http.ErrAbortHandler is re-raised untouched
// since net/http uses it to abort a response on purpose.
func Recovery(l *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				l.ErrorContext(r.Context(), "panic recovered",
					slog.Any("panic", rec),
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.String("stack", string(debug.Stack())),
				)

				appErr := apperrors.Internal(nil)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(appErr.Status)
				_ = json.NewEncoder(w).Encode(map[string]any{
					"error": map[string]string{
						"code":    appErr.Code,
						"message": appErr.Message,
					},
				})
			}()

			next.ServeHTTP(w, r)
		})
	}
}
