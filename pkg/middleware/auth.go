package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
)

// authCtxKey keys the authenticated user ID in a request context.
type authCtxKey struct{}

// TokenValidator validates an access token and returns the user ID it
// carries. This allows the service to inject its own validation logic.
type TokenValidator func(token string) (int64, error)

var (
	errNoAuthHeader  = errors.New("missing authorization header")
	errBadAuthHeader = errors.New("invalid authorization header format")
)

// bearerToken extracts the credentials from an Authorization header of the
// form "Bearer <token>". The scheme match is case-insensitive.
func bearerToken(r *http.Request) (string, error) {
	h := r.Header.Get("Authorization")
	if h == "" {
		return "", errNoAuthHeader
	}
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", errBadAuthHeader
	}
	return token, nil
}

// Auth middleware validates bearer tokens and injects the user ID into the
// request context.
func Auth(validate TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := bearerToken(r)
			if err != nil {
				writeAuthError(w, err.Error())
				return
			}

			userID, err := validate(token)
			if err != nil {
				writeAuthError(w, "invalid or expired access token")
				return
			}

			ctx := context.WithValue(r.Context(), authCtxKey{}, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserIDFromContext extracts the authenticated user ID from the request
// context. It returns 0 when no user is authenticated.
func UserIDFromContext(ctx context.Context) int64 {
	id, _ := ctx.Value(authCtxKey{}).(int64)
	return id
}

func writeAuthError(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{
			"code":    "INVALID_ACCESS_TOKEN",
			"message": message,
		},
	})
}
