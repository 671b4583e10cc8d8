package domain

import (
	"fmt"
	"time"
)

// Role distinguishes experiment administrators from study participants.
type Role string

const (
	RoleAdmin       Role = "ADMIN"
	RoleParticipant Role = "PARTICIPANT"
)

// ParseRole validates a stored string against the closed set of roles.
func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case RoleAdmin, RoleParticipant:
		return r, nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

func (r Role) String() string { return string(r) }

type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string // argon2id encoded
	Role         Role
	Active       bool
	Attempts     int        // consecutive failed login attempts
	LastLogin    *time.Time // nil until the first successful login
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
