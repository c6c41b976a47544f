package validator

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type registration struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=8,max=72"`
	Role     string `validate:"omitempty,oneof=user admin"`
}

// fieldsOf validates s, requires a tag failure, and returns the per-field messages.
func fieldsOf(t *testing.T, s any) map[string]string {
	t.Helper()

	err := Validate(s)
	require.Error(t, err)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	return verr.Fields()
}

func TestValidate_AcceptsWellFormedInput(t *testing.T) {
	assert.NoError(t, Validate(registration{
		Email:    "alice@example.com",
		Password: "Str0ngPass",
		Role:     "user",
	}))
}

func TestValidate_FieldMessages(t *testing.T) {
	tests := map[string]struct {
		input   registration
		field   string
		message string
	}{
		"missing email": {
			input:   registration{Password: "Str0ngPass"},
			field:   "Email",
			message: "is required",
		},
		"malformed email": {
			input:   registration{Email: "not-an-email", Password: "Str0ngPass"},
			field:   "Email",
			message: "must be a valid email address",
		},
		"password too short": {
			input:   registration{Email: "alice@example.com", Password: "short"},
			field:   "Password",
			message: "must be at least 8 characters",
		},
		"password too long": {
			input:   registration{Email: "alice@example.com", Password: strings.Repeat("x", 100)},
			field:   "Password",
			message: "must be at most 72 characters",
		},
		"role outside the allowed set": {
			input:   registration{Email: "alice@example.com", Password: "Str0ngPass", Role: "superuser"},
			field:   "Role",
			message: "must be one of: user admin",
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			fields := fieldsOf(t, tc.input)
			assert.Equal(t, tc.message, fields[tc.field])
		})
	}
}

func TestValidate_CollectsEveryFailingField(t *testing.T) {
	fields := fieldsOf(t, registration{})
	assert.Len(t, fields, 2)
	assert.Contains(t, fields, "Email")
	assert.Contains(t, fields, "Password")
}

func TestValidate_FallbackMessageNamesTag(t *testing.T) {
	type launch struct {
		When string `validate:"required,datetime=2006-01-02"`
	}
	fields := fieldsOf(t, launch{When: "not-a-date"})
	assert.Equal(t, "failed on 'datetime' validation", fields["When"])
}

func TestValidationError_JoinsMessages(t *testing.T) {
	err := Validate(registration{})
	require.Error(t, err)

	msg := err.Error()
	assert.Contains(t, msg, "field 'Email' is required")
	assert.Contains(t, msg, "field 'Password' is required")
	assert.Contains(t, msg, "; ")
}

func TestDecodeAndValidate(t *testing.T) {
	post := func(body string) *http.Request {
		return httptest.NewRequest(http.MethodPost, "/v1/auth/register", bytes.NewBufferString(body))
	}

	t.Run("decodes then validates", func(t *testing.T) {
		var in registration
		err := DecodeAndValidate(post(`{"Email":"alice@example.com","Password":"Str0ngPass"}`), &in)

		require.NoError(t, err)
		assert.Equal(t, "alice@example.com", in.Email)
		assert.Equal(t, "Str0ngPass", in.Password)
	})

	t.Run("reports malformed json", func(t *testing.T) {
		var in registration
		err := DecodeAndValidate(post(`{"Email":`), &in)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "decode request body")

		var verr *ValidationError
		assert.False(t, errors.As(err, &verr), "decode failures are not tag failures")
	})

	t.Run("surfaces tag failures", func(t *testing.T) {
		var in registration
		err := DecodeAndValidate(post(`{"Email":"bad","Password":""}`), &in)

		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Contains(t, verr.Fields(), "Email")
		assert.Contains(t, verr.Fields(), "Password")
	})
}
