package driven

import "github.com/custodia-labs/sercha-docqa/internal/core/domain"

// TokenVerifier validates API bearer tokens.
// It does NOT issue sessions; the service keeps no user state.
type TokenVerifier interface {
	// Verify checks a bearer token and returns the auth context.
	// Fails with domain.ErrUnauthorized, domain.ErrTokenInvalid or domain.ErrTokenExpired.
	Verify(token string) (*domain.AuthContext, error)

	// Enabled reports whether any credential is configured
	Enabled() bool
}
