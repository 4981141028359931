package errors

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProblemDetails_MarshalJSON(t *testing.T) {
	pd := NewProblemDetails(
		http.StatusUnauthorized,
		TypeUnauthorized,
		"Invalid Password",
		"The supplied report password is incorrect.",
		"/api/reports",
	).WithExtension("trace_id", "abc-123")

	data, err := json.Marshal(pd)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, TypeUnauthorized, decoded["type"])
	assert.Equal(t, "Invalid Password", decoded["title"])
	assert.Equal(t, float64(http.StatusUnauthorized), decoded["status"])
	assert.Equal(t, "abc-123", decoded["trace_id"])
}

func TestProblemDetails_OmitsEmptyFields(t *testing.T) {
	pd := NewProblemDetails(http.StatusNotFound, TypeNotFound, "Not Found", "", "")

	data, err := json.Marshal(pd)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))

	_, hasDetail := decoded["detail"]
	_, hasInstance := decoded["instance"]
	assert.False(t, hasDetail)
	assert.False(t, hasInstance)
}

func TestMapAuthError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"missing password", ErrMissingPassword, http.StatusUnauthorized, "MISSING_PASSWORD"},
		{"invalid password", ErrInvalidPassword, http.StatusUnauthorized, "INVALID_PASSWORD"},
		{"not configured", ErrAuthNotConfigured, http.StatusServiceUnavailable, "AUTH_NOT_CONFIGURED"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			renderer := MapAuthError(tt.err, "trace-1")

			pd, ok := renderer.(*ProblemDetails)
			require.True(t, ok)
			assert.Equal(t, tt.wantStatus, pd.Status)
			assert.Equal(t, tt.wantCode, pd.Extensions["error_code"])
			assert.Equal(t, "trace-1", pd.Extensions["trace_id"])
		})
	}
}
