package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/render"
)

// Sentinel errors for the authentication gate.
var (
	ErrMissingPassword   = errors.New("missing password")
	ErrInvalidPassword   = errors.New("invalid password")
	ErrAuthNotConfigured = errors.New("auth not configured")
)

// Sentinel errors for report processing.
var (
	ErrNoRecords      = errors.New("no records found")
	ErrReportNotFound = errors.New("report not found")
)

// ProblemDetails implements RFC 7807 Problem Details for HTTP APIs
type ProblemDetails struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`

	// Additional fields for extensibility
	Extensions map[string]interface{} `json:"-"`
}

// Render implements the render.Renderer interface
func (pd *ProblemDetails) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, pd.Status)
	return nil
}

// MarshalJSON custom marshaler to include extensions
func (pd *ProblemDetails) MarshalJSON() ([]byte, error) {
	data := make(map[string]interface{})

	data["type"] = pd.Type
	data["title"] = pd.Title
	data["status"] = pd.Status

	if pd.Detail != "" {
		data["detail"] = pd.Detail
	}
	if pd.Instance != "" {
		data["instance"] = pd.Instance
	}

	for k, v := range pd.Extensions {
		data[k] = v
	}

	return json.Marshal(data)
}

// NewProblemDetails creates a new RFC 7807 compliant error
func NewProblemDetails(status int, problemType, title, detail, instance string) *ProblemDetails {
	return &ProblemDetails{
		Type:       problemType,
		Title:      title,
		Status:     status,
		Detail:     detail,
		Instance:   instance,
		Extensions: make(map[string]interface{}),
	}
}

// WithExtension adds an extension field to the problem details
func (pd *ProblemDetails) WithExtension(key string, value interface{}) *ProblemDetails {
	pd.Extensions[key] = value
	return pd
}

// MapAuthError maps authentication errors to HTTP problem details.
func MapAuthError(err error, traceID string) render.Renderer {
	instance := fmt.Sprintf("/api/reports#trace-%s", traceID)

	switch {
	case errors.Is(err, ErrMissingPassword):
		return NewProblemDetails(
			http.StatusUnauthorized,
			TypeUnauthorized,
			"Authentication Required",
			"Provide the report password in the X-Report-Password header.",
			instance,
		).WithExtension("trace_id", traceID).
			WithExtension("error_code", "MISSING_PASSWORD")

	case errors.Is(err, ErrInvalidPassword):
		return NewProblemDetails(
			http.StatusUnauthorized,
			TypeUnauthorized,
			"Invalid Password",
			"The supplied report password is incorrect.",
			instance,
		).WithExtension("trace_id", traceID).
			WithExtension("error_code", "INVALID_PASSWORD")

	case errors.Is(err, ErrAuthNotConfigured):
		return NewProblemDetails(
			http.StatusServiceUnavailable,
			TypeServiceDown,
			"Authentication Unavailable",
			"The report password has not been configured on this server.",
			instance,
		).WithExtension("trace_id", traceID).
			WithExtension("error_code", "AUTH_NOT_CONFIGURED")

	default:
		return NewProblemDetails(
			http.StatusInternalServerError,
			TypeInternal,
			"Internal Server Error",
			"An unexpected error occurred while processing your request.",
			instance,
		).WithExtension("trace_id", traceID).
			WithExtension("error_code", "INTERNAL_ERROR")
	}
}
