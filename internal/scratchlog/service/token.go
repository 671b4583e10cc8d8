package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/scratchlog/scratchlog/internal/scratchlog/domain"
	"github.com/scratchlog/scratchlog/internal/scratchlog/mail"
	"github.com/scratchlog/scratchlog/internal/scratchlog/store"
	"github.com/scratchlog/scratchlog/pkg/cryptox"
	"github.com/scratchlog/scratchlog/pkg/slogx"
)

// TokenTTLs holds the expiration horizon per token type. The deactivation
// grace period is configurable per trigger: login failures and the
// inactivity sweep may use different horizons.
type TokenTTLs struct {
	Register              time.Duration
	ForgotPassword        time.Duration
	ChangeEmail           time.Duration
	Deactivated           time.Duration
	InactivityDeactivated time.Duration
}

// TokenService issues and redeems single-use typed tokens. Issuance sends a
// notification email with a bounded retry budget; delivery failure never
// fails the issuance itself.
type TokenService struct {
	Store  store.Store
	Mailer mail.Mailer

	// BaseURL is the externally reachable prefix for confirmation links.
	BaseURL string

	TTLs TokenTTLs

	// MailMaxRetries bounds the send attempts per issued token.
	MailMaxRetries int
	// MailTimeout is the per-attempt delivery timeout.
	MailTimeout time.Duration

	// Clock is injectable for tests; defaults to time.Now.
	Clock func() time.Time
}

func (s *TokenService) now() time.Time {
	if s.Clock != nil {
		return s.Clock()
	}
	return time.Now()
}

func (s *TokenService) horizon(typ domain.TokenType) time.Duration {
	switch typ {
	case domain.TokenRegister:
		return s.TTLs.Register
	case domain.TokenForgotPassword:
		return s.TTLs.ForgotPassword
	case domain.TokenChangeEmail:
		return s.TTLs.ChangeEmail
	default:
		return s.TTLs.Deactivated
	}
}

// Issue creates a token of the given type for the user, with the configured
// per-type horizon, and sends the matching notification email best-effort.
func (s *TokenService) Issue(
	ctx context.Context,
	userID string,
	typ domain.TokenType,
	metadata string,
) (domain.Token, error) {
	return s.issueAt(ctx, userID, typ, metadata, s.now(), s.horizon(typ))
}

// IssueDeactivatedAt issues a DEACTIVATED token anchored at an explicit
// time, used by the inactivity sweep so reports stay deterministic under an
// injected clock.
func (s *TokenService) IssueDeactivatedAt(
	ctx context.Context,
	userID string,
	now time.Time,
) (domain.Token, error) {
	return s.issueAt(ctx, userID, domain.TokenDeactivated, "", now, s.TTLs.InactivityDeactivated)
}

func (s *TokenService) issueAt(
	ctx context.Context,
	userID string,
	typ domain.TokenType,
	metadata string,
	now time.Time,
	ttl time.Duration,
) (domain.Token, error) {
	log := slogx.FromContext(ctx)

	if _, err := domain.ParseTokenType(typ.String()); err != nil {
		return domain.Token{}, err
	}
	if typ == domain.TokenChangeEmail && metadata == "" {
		return domain.Token{}, ErrMetadataRequired
	}

	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Token{}, ErrUserNotFound
		}
		log.Error("failed to fetch user for token issuance", slog.Any("error", err))
		return domain.Token{}, err
	}

	value, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		log.Error("failed to generate token value", slog.Any("error", err))
		return domain.Token{}, err
	}

	token := domain.Token{
		Value:     value,
		Type:      typ,
		UserID:    user.ID,
		Metadata:  metadata,
		ExpiresAt: now.Add(ttl),
	}

	if err := s.Store.Tokens().CreateToken(ctx, token); err != nil {
		log.Error("failed to persist token",
			slog.String("user_id", user.ID),
			slog.String("type", typ.String()),
			slog.Any("error", err),
		)
		return domain.Token{}, err
	}

	log.Debug("token issued",
		slog.String("user_id", user.ID),
		slog.String("type", typ.String()),
		slog.Time("expires_at", token.ExpiresAt),
	)

	// Best-effort delivery. A token whose mail never arrives can simply be
	// reissued, so the error stays here.
	s.notify(ctx, user, token)

	return token, nil
}

// notify sends the notification email for a freshly issued token, retrying
// transient failures up to the configured budget. It never returns an error.
func (s *TokenService) notify(ctx context.Context, user domain.User, token domain.Token) {
	log := slogx.FromContext(ctx)

	recipient := user.Email
	var tpl mail.Template
	switch token.Type {
	case domain.TokenRegister:
		tpl = mail.TemplateActivation
	case domain.TokenForgotPassword:
		tpl = mail.TemplatePasswordReset
	case domain.TokenChangeEmail:
		tpl = mail.TemplateEmailChange
		recipient = token.Metadata // confirm at the new address
	case domain.TokenDeactivated:
		tpl = mail.TemplateDeactivated
	}

	data := map[string]any{
		"Username":  user.Username,
		"Link":      fmt.Sprintf("%s/token?value=%s", s.BaseURL, url.QueryEscape(token.Value)),
		"ExpiresAt": token.ExpiresAt.Format(time.RFC1123),
	}

	for attempt := 1; attempt <= s.MailMaxRetries; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, s.MailTimeout)
		err := s.Mailer.Send(attemptCtx, recipient, tpl, data)
		cancel()

		if err == nil {
			return
		}
		log.Error("failed to send token mail",
			slog.String("user_id", user.ID),
			slog.String("template", string(tpl)),
			slog.Int("attempt", attempt),
			slog.Any("error", err),
		)
	}

	log.Warn("giving up on token mail after exhausting retries",
		slog.String("user_id", user.ID),
		slog.String("template", string(tpl)),
		slog.Int("max_retries", s.MailMaxRetries),
	)
}

// Consume redeems a token exactly once and applies its effect. The token row
// is claimed with an atomic delete inside the same transaction as the
// effect, so a racing sweep or second redemption observes ErrTokenNotFound.
//
// FORGOT_PASSWORD tokens are two-phase and must go through
// CheckPasswordToken / FinalizePasswordReset instead.
func (s *TokenService) Consume(ctx context.Context, value string) (domain.Outcome, error) {
	log := slogx.FromContext(ctx)

	token, err := s.lookup(ctx, value)
	if err != nil {
		return domain.Outcome{}, err
	}
	if token.Type == domain.TokenForgotPassword {
		return domain.Outcome{}, ErrWrongTokenType
	}

	outcome := domain.Outcome{Type: token.Type, UserID: token.UserID}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		claimed, err := tx.Tokens().DeleteTokenIfPresent(ctx, token.Value)
		if err != nil {
			return err
		}
		if !claimed {
			// Lost the race against a sweep or a concurrent redemption.
			return ErrTokenNotFound
		}

		switch token.Type {
		case domain.TokenRegister:
			return tx.Users().SetUserActive(ctx, token.UserID, true)
		case domain.TokenChangeEmail:
			outcome.NewEmail = token.Metadata
			return tx.Users().UpdateEmail(ctx, token.UserID, token.Metadata)
		case domain.TokenDeactivated:
			if err := tx.Users().SetUserActive(ctx, token.UserID, true); err != nil {
				return err
			}
			return tx.Users().ResetLoginAttempts(ctx, token.UserID)
		}
		return nil
	})
	if err != nil {
		return domain.Outcome{}, err
	}

	log.Info("token redeemed",
		slog.String("user_id", token.UserID),
		slog.String("type", token.Type.String()),
	)
	return outcome, nil
}

// CheckPasswordToken is phase one of a password reset: it validates the
// token without consuming it, so the caller can present the password form.
func (s *TokenService) CheckPasswordToken(ctx context.Context, value string) (domain.Token, error) {
	token, err := s.lookup(ctx, value)
	if err != nil {
		return domain.Token{}, err
	}
	if token.Type != domain.TokenForgotPassword {
		return domain.Token{}, ErrWrongTokenType
	}
	return token, nil
}

// FinalizePasswordReset is phase two: once the new password has been
// accepted, it claims the token and updates the hash atomically.
func (s *TokenService) FinalizePasswordReset(ctx context.Context, value, newPassword string) error {
	log := slogx.FromContext(ctx)

	token, err := s.CheckPasswordToken(ctx, value)
	if err != nil {
		return err
	}

	hash, err := cryptox.HashPassword(newPassword)
	if err != nil {
		log.Error("failed to hash new password", slog.Any("error", err))
		return err
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		claimed, err := tx.Tokens().DeleteTokenIfPresent(ctx, token.Value)
		if err != nil {
			return err
		}
		if !claimed {
			return ErrTokenNotFound
		}
		return tx.Users().UpdatePasswordHash(ctx, token.UserID, hash)
	})
	if err != nil {
		return err
	}

	log.Info("password reset finalized", slog.String("user_id", token.UserID))
	return nil
}

// lookup fetches a token and applies lazy expiry cleanup: an expired token
// is deleted on discovery and reported as ErrTokenExpired.
func (s *TokenService) lookup(ctx context.Context, value string) (domain.Token, error) {
	if value == "" {
		return domain.Token{}, ErrTokenNotFound
	}

	token, err := s.Store.Tokens().GetTokenByValue(ctx, value)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Token{}, ErrTokenNotFound
		}
		return domain.Token{}, err
	}

	if token.Expired(s.now()) {
		if _, err := s.Store.Tokens().DeleteTokenIfPresent(ctx, token.Value); err != nil {
			slogx.FromContext(ctx).Error("failed to delete expired token on discovery",
				slog.Any("error", err))
		}
		return domain.Token{}, ErrTokenExpired
	}

	return token, nil
}
