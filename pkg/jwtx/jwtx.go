// Package jwtx wraps golang-jwt with the session-token shape used across
// the service: HS256-signed claims carrying the user identity and role.
package jwtx

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultSessionTTL is the default lifetime for session tokens.
const DefaultSessionTTL = 12 * time.Hour

var ErrInvalidToken = errors.New("invalid token")

// SessionClaims are the claims carried by a login session token. Keeping
// changes additive preserves compatibility for tokens already in the wild.
type SessionClaims struct {
	jwt.RegisteredClaims

	// Username for the authenticated user
	Username string `json:"username,omitempty"`

	// Role is the account role ("ADMIN" or "PARTICIPANT")
	Role string `json:"role,omitempty"`
}

// NewSessionClaims builds minimally-correct claims for a login session.
func NewSessionClaims(subject, username, role string, ttl time.Duration, now time.Time) SessionClaims {
	return SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        NewJTI(),
		},
		Username: username,
		Role:     role,
	}
}

// NewJTI returns a URL-safe random identifier for the "jti" claim.
func NewJTI() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		panic(fmt.Sprintf("jwtx: rand.Read failed: %v", err))
	}
	return base64.RawURLEncoding.EncodeToString(b)
}

// Sign produces a compact HS256 token for the claims.
func Sign(secret []byte, claims SessionClaims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// Verify parses and validates a compact token. Expired, malformed, and
// wrongly-signed tokens all surface ErrInvalidToken.
func Verify(secret []byte, tokenString string) (SessionClaims, error) {
	var claims SessionClaims
	_, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithExpirationRequired())
	if err != nil {
		return SessionClaims{}, ErrInvalidToken
	}
	if claims.Subject == "" {
		return SessionClaims{}, ErrInvalidToken
	}
	return claims, nil
}
