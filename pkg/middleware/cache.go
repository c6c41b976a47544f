package middleware

import "net/http"

// NoStore returns middleware that marks responses as uncacheable. Responses
// carrying tokens or account data must never be stored by browsers or
// intermediaries.
func NoStore() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", "no-store")
			w.Header().Set("Pragma", "no-cache")
			next.ServeHTTP(w, r)
		})
	}
}
