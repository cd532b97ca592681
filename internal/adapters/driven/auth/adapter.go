package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/custodia-labs/sercha-docqa/internal/core/domain"
	"github.com/custodia-labs/sercha-docqa/internal/core/ports/driven"
)

// Ensure Adapter implements TokenVerifier
var _ driven.TokenVerifier = (*Adapter)(nil)

// Auth methods reported in the AuthContext
const (
	MethodAPIToken = "api_token"
	MethodJWT      = "jwt"
)

// jwtClaims wraps domain.TokenClaims for JWT compatibility
type jwtClaims struct {
	jwt.RegisteredClaims
}

// Config holds the credentials accepted by the adapter.
// Either may be empty; with both empty authentication is disabled.
type Config struct {
	// APITokenHash is the bcrypt hash of the static API token
	APITokenHash string
	// JWTSecret signs and verifies HS256 bearer tokens
	JWTSecret string
}

// Adapter verifies bearer tokens using bcrypt and JWT
type Adapter struct {
	apiTokenHash []byte
	jwtSecret    []byte
	bcryptCost   int
}

// NewAdapter creates a new auth adapter
func NewAdapter(cfg Config) *Adapter {
	return &Adapter{
		apiTokenHash: []byte(cfg.APITokenHash),
		jwtSecret:    []byte(cfg.JWTSecret),
		bcryptCost:   bcrypt.DefaultCost,
	}
}

// NewAdapterWithCost creates a new auth adapter with custom bcrypt cost
func NewAdapterWithCost(cfg Config, bcryptCost int) *Adapter {
	a := NewAdapter(cfg)
	a.bcryptCost = bcryptCost
	return a
}

// Enabled reports whether any credential is configured
func (a *Adapter) Enabled() bool {
	return len(a.apiTokenHash) > 0 || len(a.jwtSecret) > 0
}

// HashToken generates a bcrypt hash of a plaintext API token
func (a *Adapter) HashToken(token string) (string, error) {
	if token == "" {
		return "", fmt.Errorf("%w: token is empty", domain.ErrInvalidInput)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(token), a.bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// GenerateToken creates a signed JWT from domain claims
func (a *Adapter) GenerateToken(claims *domain.TokenClaims) (string, error) {
	if len(a.jwtSecret) == 0 {
		return "", fmt.Errorf("%w: no JWT secret configured", domain.ErrInvalidInput)
	}

	jc := jwtClaims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:  claims.Subject,
		IssuedAt: jwt.NewNumericDate(time.Unix(claims.IssuedAt, 0)),
	}}
	if claims.ExpiresAt != 0 {
		jc.ExpiresAt = jwt.NewNumericDate(time.Unix(claims.ExpiresAt, 0))
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jc)
	return token.SignedString(a.jwtSecret)
}

// ParseToken validates a JWT and extracts domain claims
func (a *Adapter) ParseToken(tokenString string) (*domain.TokenClaims, error) {
	if len(a.jwtSecret) == 0 {
		return nil, fmt.Errorf("%w: JWT authentication is not configured", domain.ErrTokenInvalid)
	}

	token, err := jwt.ParseWithClaims(tokenString, &jwtClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.jwtSecret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %v", domain.ErrTokenExpired, err)
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrTokenInvalid, err)
	}

	claims, ok := token.Claims.(*jwtClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("%w: invalid token claims", domain.ErrTokenInvalid)
	}

	out := &domain.TokenClaims{Subject: claims.Subject}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Unix()
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Unix()
	}
	return out, nil
}

// Verify checks a bearer token against the configured credentials.
// Tokens shaped like a JWT are verified as one when a secret is set;
// anything else is compared against the API token hash.
func (a *Adapter) Verify(token string) (*domain.AuthContext, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, fmt.Errorf("%w: missing bearer token", domain.ErrUnauthorized)
	}

	if len(a.jwtSecret) > 0 && strings.Count(token, ".") == 2 {
		claims, err := a.ParseToken(token)
		if err != nil {
			return nil, err
		}
		return &domain.AuthContext{Subject: claims.Subject, Method: MethodJWT}, nil
	}

	if len(a.apiTokenHash) > 0 && bcrypt.CompareHashAndPassword(a.apiTokenHash, []byte(token)) == nil {
		return &domain.AuthContext{Subject: "api", Method: MethodAPIToken}, nil
	}
	return nil, fmt.Errorf("%w: token not recognised", domain.ErrUnauthorized)
}
