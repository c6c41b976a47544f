package http

import (
	"net/http"
	"strings"
)

// ContentTypeJSON rejects body-carrying requests that do not declare a JSON
// body, so handlers can decode without sniffing. Parameters after the media
// type, such as charset, are accepted.
func ContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if expectsBody(r) && !strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
			writeJSON(w, http.StatusUnsupportedMediaType, response{
				Error: &errorResponse{
					Code:    "UNSUPPORTED_MEDIA_TYPE",
					Message: "Content-Type must be application/json",
				},
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// expectsBody reports whether the request should carry a JSON body. Methods
// that define one are always checked; anything else only when bytes actually
// arrived.
func expectsBody(r *http.Request) bool {
	switch r.Method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		return true
	}
	return r.ContentLength > 0
}
