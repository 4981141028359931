package middleware

import "context"

// Authenticator verifies the shared report password.
// This allows for easier testing and decoupling from the concrete implementation
type Authenticator interface {
	Verify(ctx context.Context, password string) error
}
