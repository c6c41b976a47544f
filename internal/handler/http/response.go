package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	apperrors "github.com/guardkit/guardkit/pkg/errors"
	pkgmiddleware "github.com/guardkit/guardkit/pkg/middleware"
	"github.com/guardkit/guardkit/pkg/validator"
)

// response is the envelope shared by every JSON endpoint: exactly one of
// Data or Error is present.
type response struct {
	Data  any            `json:"data,omitempty"`
	Error *errorResponse `json:"error,omitempty"`
}

type errorResponse struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Headers are already sent; nothing meaningful can be done if encoding fails.
	_ = json.NewEncoder(w).Encode(v)
}

// authedUserID pulls the user ID the bearer middleware stored on the request
// context. A zero ID means the route was wired without that middleware; the
// caller gets a 401 and false.
func authedUserID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	userID := pkgmiddleware.UserIDFromContext(r.Context())
	if userID == 0 {
		writeJSON(w, http.StatusUnauthorized, response{
			Error: &errorResponse{Code: "INVALID_ACCESS_TOKEN", Message: "user not authenticated"},
		})
		return 0, false
	}
	return userID, true
}

// writeAppError renders a service error. Structured AppErrors carry their own
// status, code, and caller-safe message; anything else is a 500 whose cause is
// logged but never echoed to the client.
func writeAppError(w http.ResponseWriter, r *http.Request, err error, logger *slog.Logger) {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		if appErr.Status >= http.StatusInternalServerError {
			logger.ErrorContext(r.Context(), "request failed",
				slog.String("error", err.Error()),
			)
		}
		writeJSON(w, appErr.Status, response{
			Error: &errorResponse{Code: appErr.Code, Message: appErr.Message},
		})
		return
	}

	status := apperrors.HTTPStatus(err)
	code := "INTERNAL_ERROR"
	message := "an internal error occurred"

	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		code = "NOT_FOUND"
		message = "resource not found"
	case errors.Is(err, apperrors.ErrAlreadyExists):
		code = "ALREADY_EXISTS"
		message = "resource already exists"
	case errors.Is(err, apperrors.ErrInvalidInput):
		code = "INVALID_INPUT"
		message = err.Error()
	case errors.Is(err, apperrors.ErrInvalidCredentials):
		code = "INVALID_CREDENTIALS"
		message = "invalid email or password"
	case errors.Is(err, apperrors.ErrAccountInactive):
		code = "ACCOUNT_INACTIVE"
		message = "account is inactive"
	case errors.Is(err, apperrors.ErrInvalidRefreshToken):
		code = "INVALID_REFRESH_TOKEN"
		message = "invalid or expired refresh token"
	case errors.Is(err, apperrors.ErrInvalidAccessToken):
		code = "INVALID_ACCESS_TOKEN"
		message = "invalid or expired access token"
	default:
		logger.ErrorContext(r.Context(), "request failed",
			slog.String("error", err.Error()),
		)
	}

	writeJSON(w, status, response{
		Error: &errorResponse{Code: code, Message: message},
	})
}

func writeValidationError(w http.ResponseWriter, err error) {
	var valErr *validator.ValidationError
	if errors.As(err, &valErr) {
		writeJSON(w, http.StatusBadRequest, response{
			Error: &errorResponse{
				Code:    "VALIDATION_ERROR",
				Message: "request validation failed",
				Fields:  valErr.Fields(),
			},
		})
		return
	}

	writeJSON(w, http.StatusBadRequest, response{
		Error: &errorResponse{Code: "INVALID_INPUT", Message: err.Error()},
	})
}
