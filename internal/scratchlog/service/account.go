package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/scratchlog/scratchlog/internal/scratchlog/domain"
	"github.com/scratchlog/scratchlog/internal/scratchlog/store"
	"github.com/scratchlog/scratchlog/pkg/cryptox"
	"github.com/scratchlog/scratchlog/pkg/idx"
	"github.com/scratchlog/scratchlog/pkg/jwtx"
	"github.com/scratchlog/scratchlog/pkg/slogx"
)

// AccountService owns registration, login, and the account-change request
// flows. Confirmation of any change happens through token redemption in
// TokenService; this service only initiates them.
type AccountService struct {
	Store  store.Store
	Tokens *TokenService

	// MaxLoginAttempts is the consecutive-failure budget before an account
	// is deactivated.
	MaxLoginAttempts int

	// SessionSecret signs session JWTs (HS256).
	SessionSecret []byte
	// SessionTTL bounds session lifetime.
	SessionTTL time.Duration

	// Clock is injectable for tests; defaults to time.Now.
	Clock func() time.Time
}

func (s *AccountService) now() time.Time {
	if s.Clock != nil {
		return s.Clock()
	}
	return time.Now()
}

// Session is an authenticated login result.
type Session struct {
	UserID    string
	Username  string
	Role      domain.Role
	Token     string
	ExpiresAt time.Time
}

// Register creates a deactivated account and issues its activation token.
// The account stays unusable until the token is redeemed.
func (s *AccountService) Register(ctx context.Context, username, email, password string, role domain.Role) (domain.User, error) {
	log := slogx.FromContext(ctx)

	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if username == "" || email == "" || password == "" {
		return domain.User{}, ErrInvalidCredentials
	}
	if _, err := domain.ParseRole(role.String()); err != nil {
		return domain.User{}, err
	}

	if _, err := s.Store.Users().GetUserByUsername(ctx, username); err == nil {
		return domain.User{}, ErrUsernameTaken
	} else if !errors.Is(err, store.ErrNotFound) {
		return domain.User{}, err
	}
	if _, err := s.Store.Users().GetUserByEmail(ctx, email); err == nil {
		return domain.User{}, ErrEmailTaken
	} else if !errors.Is(err, store.ErrNotFound) {
		return domain.User{}, err
	}

	hash, err := cryptox.HashPassword(password)
	if err != nil {
		log.Error("failed to hash password", slog.Any("error", err))
		return domain.User{}, err
	}

	user := domain.User{
		ID:           idx.New().String(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		Active:       false,
	}
	if err := s.Store.Users().CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.User{}, ErrUsernameTaken
		}
		return domain.User{}, err
	}

	log.Info("user registered",
		slog.String("user_id", user.ID),
		slog.String("role", role.String()),
	)

	if _, err := s.Tokens.Issue(ctx, user.ID, domain.TokenRegister, ""); err != nil {
		// The account exists but the activation token didn't. The user can
		// recover through the password-forgot flow or re-registration support.
		log.Error("failed to issue activation token",
			slog.String("user_id", user.ID),
			slog.Any("error", err),
		)
		return user, err
	}

	return user, nil
}

// Authenticate verifies a username/password pair and mints a session JWT.
// Each failure bumps the attempt counter; hitting the budget deactivates the
// account and issues a DEACTIVATED grace token so the owner can reverse it.
func (s *AccountService) Authenticate(ctx context.Context, username, password string) (Session, error) {
	log := slogx.FromContext(ctx)

	user, err := s.Store.Users().GetUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Session{}, ErrInvalidCredentials
		}
		return Session{}, err
	}

	if !user.Active {
		return Session{}, ErrAccountDeactivated
	}

	if err := cryptox.VerifyPassword(password, user.PasswordHash); err != nil {
		if !errors.Is(err, cryptox.ErrPasswordMismatch) {
			return Session{}, err
		}
		return Session{}, s.recordFailedLogin(ctx, user)
	}

	now := s.now()
	if err := s.Store.Users().ResetLoginAttempts(ctx, user.ID); err != nil {
		log.Error("failed to reset login attempts", slog.Any("error", err))
	}
	if err := s.Store.Users().TouchLastLogin(ctx, user.ID, now); err != nil {
		log.Error("failed to record login time", slog.Any("error", err))
	}

	expiresAt := now.Add(s.SessionTTL)
	claims := jwtx.NewSessionClaims(user.ID, user.Username, user.Role.String(), s.SessionTTL, now)
	signed, err := jwtx.Sign(s.SessionSecret, claims)
	if err != nil {
		log.Error("failed to sign session token", slog.Any("error", err))
		return Session{}, err
	}

	log.Info("user authenticated", slog.String("user_id", user.ID))
	return Session{
		UserID:    user.ID,
		Username:  user.Username,
		Role:      user.Role,
		Token:     signed,
		ExpiresAt: expiresAt,
	}, nil
}

// recordFailedLogin bumps the counter and deactivates the account once the
// budget is spent. It always reports ErrInvalidCredentials or
// ErrAccountDeactivated, never the raw mismatch.
func (s *AccountService) recordFailedLogin(ctx context.Context, user domain.User) error {
	log := slogx.FromContext(ctx)

	attempts, err := s.Store.Users().IncrementLoginAttempts(ctx, user.ID)
	if err != nil {
		log.Error("failed to count login attempt", slog.Any("error", err))
		return ErrInvalidCredentials
	}
	if attempts < s.MaxLoginAttempts {
		return ErrInvalidCredentials
	}

	if err := s.Store.Users().SetUserActive(ctx, user.ID, false); err != nil {
		log.Error("failed to deactivate account after login failures",
			slog.String("user_id", user.ID),
			slog.Any("error", err),
		)
		return ErrInvalidCredentials
	}

	log.Warn("account deactivated after repeated login failures",
		slog.String("user_id", user.ID),
		slog.Int("attempts", attempts),
	)

	if _, err := s.Tokens.Issue(ctx, user.ID, domain.TokenDeactivated, ""); err != nil {
		log.Error("failed to issue deactivation grace token",
			slog.String("user_id", user.ID),
			slog.Any("error", err),
		)
	}
	return ErrAccountDeactivated
}

// VerifySession validates a session JWT and returns the identity it carries.
func (s *AccountService) VerifySession(ctx context.Context, tokenString string) (userID string, role domain.Role, err error) {
	claims, err := jwtx.Verify(s.SessionSecret, tokenString)
	if err != nil {
		return "", "", ErrInvalidSession
	}

	parsed, err := domain.ParseRole(claims.Role)
	if err != nil {
		return "", "", ErrInvalidSession
	}

	// Reject sessions of accounts deactivated after the token was minted.
	user, err := s.Store.Users().GetUserByID(ctx, claims.Subject)
	if err != nil {
		return "", "", ErrInvalidSession
	}
	if !user.Active {
		return "", "", ErrAccountDeactivated
	}

	return claims.Subject, parsed, nil
}

// RequestPasswordReset issues a FORGOT_PASSWORD token for the account behind
// the email. Unknown addresses are swallowed so the endpoint doesn't leak
// which emails exist.
func (s *AccountService) RequestPasswordReset(ctx context.Context, email string) error {
	log := slogx.FromContext(ctx)

	user, err := s.Store.Users().GetUserByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			log.Debug("password reset requested for unknown email")
			return nil
		}
		return err
	}

	_, err = s.Tokens.Issue(ctx, user.ID, domain.TokenForgotPassword, "")
	return err
}

// RequestEmailChange issues a CHANGE_EMAIL token carrying the pending
// address. The change only applies when the token is redeemed from the new
// inbox.
func (s *AccountService) RequestEmailChange(ctx context.Context, userID, newEmail string) error {
	newEmail = strings.TrimSpace(newEmail)
	if newEmail == "" {
		return ErrMetadataRequired
	}

	if existing, err := s.Store.Users().GetUserByEmail(ctx, newEmail); err == nil {
		if existing.ID != userID {
			return ErrEmailTaken
		}
		// Changing to the current address is a no-op request.
		return nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return err
	}

	_, err := s.Tokens.Issue(ctx, userID, domain.TokenChangeEmail, newEmail)
	return err
}
