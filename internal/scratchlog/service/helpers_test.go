package service

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/scratchlog/scratchlog/internal/scratchlog/domain"
	"github.com/scratchlog/scratchlog/internal/scratchlog/mail"
	"github.com/scratchlog/scratchlog/internal/scratchlog/store"
	"github.com/scratchlog/scratchlog/internal/scratchlog/store/drivers/sqlite"
	"github.com/scratchlog/scratchlog/pkg/cryptox"
	"github.com/scratchlog/scratchlog/pkg/idx"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) store.Store {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	require.NoError(t, st.ApplyMigrations())
	return st
}

// newSharedTestStore backs the store with a temp file so every pooled
// connection sees the same database. In-memory sqlite is per-connection,
// which makes it useless for tests that exercise concurrency.
func newSharedTestStore(t *testing.T) store.Store {
	t.Helper()

	dsn := "file:" + filepath.Join(t.TempDir(), "scratchlog.db") +
		"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	st, err := sqlite.NewStore(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	require.NoError(t, st.ApplyMigrations())
	return st
}

type sentMail struct {
	To       string
	Template mail.Template
	Data     map[string]any
}

// fakeMailer records sends and can fail the first N attempts.
type fakeMailer struct {
	mu       sync.Mutex
	sent     []sentMail
	failures int
	attempts int
}

func (m *fakeMailer) Send(_ context.Context, to string, tpl mail.Template, data map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.attempts++
	if m.failures > 0 {
		m.failures--
		return errors.New("smtp unavailable")
	}
	m.sent = append(m.sent, sentMail{To: to, Template: tpl, Data: data})
	return nil
}

func (m *fakeMailer) sentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

func (m *fakeMailer) attemptCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.attempts
}

func (m *fakeMailer) lastSent(t *testing.T) sentMail {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.sent)
	return m.sent[len(m.sent)-1]
}

// newTokenService wires a TokenService against the given store with short,
// distinct horizons so tests can tell the types apart.
func newTokenService(st store.Store, mailer mail.Mailer, clock func() time.Time) *TokenService {
	return &TokenService{
		Store:   st,
		Mailer:  mailer,
		BaseURL: "http://localhost:8080",
		TTLs: TokenTTLs{
			Register:              24 * time.Hour,
			ForgotPassword:        time.Hour,
			ChangeEmail:           time.Hour,
			Deactivated:           7 * 24 * time.Hour,
			InactivityDeactivated: 3 * 24 * time.Hour,
		},
		MailMaxRetries: 3,
		MailTimeout:    time.Second,
		Clock:          clock,
	}
}

func mustCreateUser(t *testing.T, st store.Store, username string, active bool) domain.User {
	t.Helper()

	hash, err := cryptox.HashPassword("correct horse battery staple")
	require.NoError(t, err)

	user := domain.User{
		ID:           idx.New().String(),
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: hash,
		Role:         domain.RoleParticipant,
		Active:       active,
	}
	require.NoError(t, st.Users().CreateUser(context.Background(), user))
	return user
}
