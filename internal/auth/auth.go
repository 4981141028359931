// Package auth verifies the shared report password against a configured
// hash. Bcrypt hashes are preferred; plain SHA-256 hex digests from older
// deployments are still accepted.
package auth

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"log/slog"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"swapsum/internal/config"
	apierrors "swapsum/internal/errors"
)

// Service verifies passwords for the report API.
type Service struct {
	enabled bool
	hash    string
	logger  *slog.Logger
}

// NewService creates an authentication service from configuration.
func NewService(cfg config.AuthConfig, logger *slog.Logger) *Service {
	return &Service{
		enabled: cfg.Enabled,
		hash:    strings.TrimSpace(cfg.PasswordHash),
		logger:  logger.With(slog.String("component", "auth")),
	}
}

// Enabled reports whether password protection is turned on.
func (s *Service) Enabled() bool {
	return s.enabled
}

// Verify checks the supplied password against the configured hash.
// Returns ErrMissingPassword, ErrInvalidPassword, or ErrAuthNotConfigured.
func (s *Service) Verify(ctx context.Context, password string) error {
	if !s.enabled {
		return nil
	}

	if s.hash == "" {
		s.logger.ErrorContext(ctx, "auth enabled but no password hash configured")
		return apierrors.ErrAuthNotConfigured
	}

	if password == "" {
		return apierrors.ErrMissingPassword
	}

	if isBcryptHash(s.hash) {
		if err := bcrypt.CompareHashAndPassword([]byte(s.hash), []byte(password)); err != nil {
			return apierrors.ErrInvalidPassword
		}
		return nil
	}

	// Legacy deployments store a SHA-256 hex digest.
	digest := sha256.Sum256([]byte(password))
	computed := hex.EncodeToString(digest[:])
	if subtle.ConstantTimeCompare([]byte(computed), []byte(strings.ToLower(s.hash))) != 1 {
		return apierrors.ErrInvalidPassword
	}
	return nil
}

// HashPassword produces a bcrypt hash suitable for SWAPSUM_AUTH_PASSWORDHASH.
func HashPassword(password string) (string, error) {
	out, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func isBcryptHash(hash string) bool {
	return strings.HasPrefix(hash, "$2a$") ||
		strings.HasPrefix(hash, "$2b$") ||
		strings.HasPrefix(hash, "$2y$")
}
