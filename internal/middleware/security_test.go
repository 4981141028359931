package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	apierrors "swapsum/internal/errors"
)

type stubAuthenticator struct {
	password string
}

func (s *stubAuthenticator) Verify(_ context.Context, password string) error {
	if password != s.password {
		return apierrors.ErrInvalidPassword
	}
	return nil
}

func TestPasswordAuth(t *testing.T) {
	auth := &stubAuthenticator{password: "correct-horse"}
	handler := PasswordAuth(testLogger(), auth)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name     string
		password string
		want     int
	}{
		{"valid password", "correct-horse", http.StatusOK},
		{"wrong password", "battery-staple", http.StatusUnauthorized},
		{"missing password", "", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/api/reports", nil)
			if tt.password != "" {
				r.Header.Set(PasswordHeader, tt.password)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, r)

			assert.Equal(t, tt.want, rec.Code)
			if tt.want == http.StatusUnauthorized {
				assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
			}
		})
	}
}

func TestSecureHeaders_Defaults(t *testing.T) {
	sh := DefaultSecureHeaders()
	handler := sh.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Contains(t, rec.Header().Get("Content-Security-Policy"), "default-src 'self'")
	assert.Contains(t, rec.Header().Get("Permissions-Policy"), "camera=()")
	// No TLS on the test request, so HSTS stays unset.
	assert.Empty(t, rec.Header().Get("Strict-Transport-Security"))
}

func TestSecureHeaders_DevModeSkipsCSPDefault(t *testing.T) {
	sh := DefaultSecureHeaders()
	sh.DevMode = true
	handler := sh.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Empty(t, rec.Header().Get("Content-Security-Policy"))
}

func TestAuditLog_CapturesStatus(t *testing.T) {
	handler := AuditLog(testLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/reports", nil))

	assert.Equal(t, http.StatusAccepted, rec.Code)
}
