package domain

import (
	"fmt"
	"time"
)

// TokenType classifies what a token may be redeemed for. Types are persisted
// as their string form at the storage boundary.
type TokenType string

const (
	// TokenRegister activates a freshly registered account.
	TokenRegister TokenType = "REGISTER"
	// TokenForgotPassword grants a single password change.
	TokenForgotPassword TokenType = "FORGOT_PASSWORD"
	// TokenChangeEmail confirms a pending email address change. The pending
	// address travels in the token metadata.
	TokenChangeEmail TokenType = "CHANGE_EMAIL"
	// TokenDeactivated reverses a temporary account deactivation while the
	// grace period lasts.
	TokenDeactivated TokenType = "DEACTIVATED"
)

// ParseTokenType validates a stored string against the closed set of types.
func ParseTokenType(s string) (TokenType, error) {
	switch t := TokenType(s); t {
	case TokenRegister, TokenForgotPassword, TokenChangeEmail, TokenDeactivated:
		return t, nil
	default:
		return "", fmt.Errorf("unknown token type %q", s)
	}
}

func (t TokenType) String() string { return string(t) }

// Token is a single-use, typed, expiring credential owned by exactly one
// user. The opaque random value doubles as the primary key.
type Token struct {
	Value     string
	Type      TokenType
	UserID    string
	Metadata  string // pending email address for TokenChangeEmail, empty otherwise
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Expired reports whether the token's horizon has passed at the given time.
func (t Token) Expired(now time.Time) bool {
	return t.ExpiresAt.Before(now)
}

// Outcome describes the effect a successful redemption applied.
type Outcome struct {
	Type   TokenType
	UserID string
	// NewEmail carries the address that was applied for TokenChangeEmail.
	NewEmail string
}
