// Package auth verifies the bearer credentials attached to every request.
// Tokens are HS256 JWTs carrying the owner identity; the upstream OAuth
// exchange that would mint them in production is out of scope here, so Issue
// is exposed for the tokengen command and tests.
package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"web-analysis-platform/internal/models"
)

// Identity is the authenticated owner attached to a request.
type Identity struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type claims struct {
	Name string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// Tokens issues and verifies signed bearer tokens.
type Tokens struct {
	secret []byte
	ttl    time.Duration
}

// NewTokens builds a token service from the shared signing secret.
func NewTokens(secret string, ttl time.Duration) *Tokens {
	return &Tokens{secret: []byte(secret), ttl: ttl}
}

// Issue signs a token for the identity, valid for the configured TTL. The
// email rides in the subject claim.
func (t *Tokens) Issue(id Identity) (string, error) {
	if id.Email == "" {
		return "", fmt.Errorf("%w: email is required", models.ErrInvalidInput)
	}
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Name: id.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.Email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	})
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks the signature and expiry, returning the embedded identity.
// All failures wrap models.ErrUnauthenticated.
func (t *Tokens) Verify(token string) (Identity, error) {
	var c claims
	_, err := jwt.ParseWithClaims(token, &c,
		func(*jwt.Token) (any, error) { return t.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", models.ErrUnauthenticated, err)
	}
	if c.Subject == "" {
		return Identity{}, fmt.Errorf("%w: token missing subject", models.ErrUnauthenticated)
	}
	return Identity{Email: c.Subject, Name: c.Name}, nil
}
