package domain

import "time"

// TokenClaims are the verified claims of an API bearer token
type TokenClaims struct {
	Subject   string `json:"sub"`
	IssuedAt  int64  `json:"iat"`
	ExpiresAt int64  `json:"exp"`
}

// IsExpired reports whether the token is past its expiry at now
func (c *TokenClaims) IsExpired(now time.Time) bool {
	return c.ExpiresAt != 0 && now.Unix() >= c.ExpiresAt
}

// AuthContext is attached to authenticated requests
type AuthContext struct {
	Subject string `json:"subject"`
	Method  string `json:"method"` // "api_token" or "jwt"
}
