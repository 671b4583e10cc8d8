package http

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/scratchlog/scratchlog/internal/scratchlog/domain"
	"github.com/scratchlog/scratchlog/internal/scratchlog/mail"
	"github.com/scratchlog/scratchlog/internal/scratchlog/service"
	"github.com/scratchlog/scratchlog/internal/scratchlog/store"
	"github.com/scratchlog/scratchlog/internal/scratchlog/store/drivers/sqlite"
	"github.com/stretchr/testify/require"
)

type recordingMailer struct {
	mu   sync.Mutex
	sent []mail.Template
}

func (m *recordingMailer) Send(_ context.Context, _ string, tpl mail.Template, _ map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, tpl)
	return nil
}

type testEnv struct {
	store   store.Store
	server  *httptest.Server
	tokens  *service.TokenService
	account *service.AccountService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	tokens := &service.TokenService{
		Store:   st,
		Mailer:  &recordingMailer{},
		BaseURL: "http://localhost:8080",
		TTLs: service.TokenTTLs{
			Register:              24 * time.Hour,
			ForgotPassword:        time.Hour,
			ChangeEmail:           time.Hour,
			Deactivated:           7 * 24 * time.Hour,
			InactivityDeactivated: 7 * 24 * time.Hour,
		},
		MailMaxRetries: 1,
		MailTimeout:    time.Second,
	}
	account := &service.AccountService{
		Store:            st,
		Tokens:           tokens,
		MaxLoginAttempts: 3,
		SessionSecret:    []byte("router-test-secret"),
		SessionTTL:       time.Hour,
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	router := NewRouter("test", st, logger)
	router.AccountService = account
	router.TokenService = tokens
	router.ApplyRoutes()

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return &testEnv{store: st, server: server, tokens: tokens, account: account}
}

func (e *testEnv) postForm(t *testing.T, path string, form url.Values, headers map[string]string) (*http.Response, map[string]any) {
	t.Helper()

	req, err := http.NewRequest(http.MethodPost, e.server.URL+path, strings.NewReader(form.Encode()))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp, decodeBody(t, resp)
}

func (e *testEnv) get(t *testing.T, path string) (*http.Response, map[string]any) {
	t.Helper()

	resp, err := http.Get(e.server.URL + path)
	require.NoError(t, err)
	return resp, decodeBody(t, resp)
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

// pendingToken digs the single outstanding token of a type out of the store,
// standing in for reading the mailed link.
func (e *testEnv) pendingToken(t *testing.T, typ domain.TokenType) string {
	t.Helper()

	found, err := e.store.Tokens().FindExpiredTokensBefore(context.Background(),
		time.Now().Add(365*24*time.Hour), typ)
	require.NoError(t, err)
	require.Len(t, found, 1)
	return found[0].Value
}

func TestRegisterActivateLoginFlow(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.postForm(t, "/v1/users/register", url.Values{
		"username": {"alice"},
		"email":    {"alice@example.com"},
		"password": {"a long enough password"},
	}, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.Equal(t, "alice", body["username"])

	t.Run("login is refused before activation", func(t *testing.T) {
		resp, body := env.postForm(t, "/v1/users/login", url.Values{
			"username": {"alice"},
			"password": {"a long enough password"},
		}, nil)
		require.Equal(t, http.StatusForbidden, resp.StatusCode)
		require.Equal(t, "account_deactivated", body["error"])
	})

	value := env.pendingToken(t, domain.TokenRegister)
	resp, body = env.get(t, "/v1/tokens/redeem?value="+url.QueryEscape(value))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "REGISTER", body["type"])

	resp, body = env.postForm(t, "/v1/users/login", url.Values{
		"username": {"alice"},
		"password": {"a long enough password"},
	}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotEmpty(t, body["token"])
	require.Equal(t, "PARTICIPANT", body["role"])
}

func TestRedeemDenialIsUniform(t *testing.T) {
	env := newTestEnv(t)

	resp, unknownBody := env.get(t, "/v1/tokens/redeem?value=does-not-exist")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// An expired token must produce the byte-identical denial.
	_, err := env.account.Register(context.Background(),
		"bob", "bob@example.com", "some password", domain.RoleParticipant)
	require.NoError(t, err)

	value := env.pendingToken(t, domain.TokenRegister)
	env.tokens.Clock = func() time.Time { return time.Now().Add(48 * time.Hour) }
	resp, expiredBody := env.get(t, "/v1/tokens/redeem?value="+url.QueryEscape(value))
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	require.Equal(t, unknownBody, expiredBody)
	require.Equal(t, "invalid_token", expiredBody["error"])
}

func TestPasswordResetFlow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user, err := env.account.Register(ctx, "carol", "carol@example.com", "old password", domain.RoleParticipant)
	require.NoError(t, err)
	require.NoError(t, env.store.Users().SetUserActive(ctx, user.ID, true))
	_, err = env.store.Tokens().DeleteExpiredTokensBefore(ctx, time.Now().Add(365*24*time.Hour))
	require.NoError(t, err)

	resp, _ := env.postForm(t, "/v1/users/password/forgot", url.Values{
		"email": {"carol@example.com"},
	}, nil)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	value := env.pendingToken(t, domain.TokenForgotPassword)

	t.Run("redeem validates without consuming", func(t *testing.T) {
		resp, body := env.get(t, "/v1/tokens/redeem?value="+url.QueryEscape(value))
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Equal(t, "FORGOT_PASSWORD", body["type"])

		// Still claimable afterwards.
		_, err := env.store.Tokens().GetTokenByValue(context.Background(), value)
		require.NoError(t, err)
	})

	resp, _ = env.postForm(t, "/v1/tokens/password", url.Values{
		"value":    {value},
		"password": {"new password"},
	}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	t.Run("old password no longer works", func(t *testing.T) {
		resp, _ := env.postForm(t, "/v1/users/login", url.Values{
			"username": {"carol"},
			"password": {"old password"},
		}, nil)
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("new password does", func(t *testing.T) {
		resp, _ := env.postForm(t, "/v1/users/login", url.Values{
			"username": {"carol"},
			"password": {"new password"},
		}, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("token is spent", func(t *testing.T) {
		resp, _ := env.postForm(t, "/v1/tokens/password", url.Values{
			"value":    {value},
			"password": {"yet another"},
		}, nil)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestEmailChangeFlow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user, err := env.account.Register(ctx, "dave", "dave@example.com", "some password", domain.RoleParticipant)
	require.NoError(t, err)
	require.NoError(t, env.store.Users().SetUserActive(ctx, user.ID, true))
	_, err = env.store.Tokens().DeleteExpiredTokensBefore(ctx, time.Now().Add(365*24*time.Hour))
	require.NoError(t, err)

	session, err := env.account.Authenticate(ctx, "dave", "some password")
	require.NoError(t, err)

	t.Run("requires a session", func(t *testing.T) {
		resp, body := env.postForm(t, "/v1/users/email", url.Values{
			"email": {"dave-new@example.com"},
		}, nil)
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		require.Equal(t, "invalid_session", body["error"])
	})

	resp, _ := env.postForm(t, "/v1/users/email", url.Values{
		"email": {"dave-new@example.com"},
	}, map[string]string{"Authorization": "Bearer " + session.Token})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	value := env.pendingToken(t, domain.TokenChangeEmail)
	resp, body := env.get(t, "/v1/tokens/redeem?value="+url.QueryEscape(value))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "CHANGE_EMAIL", body["type"])

	got, err := env.store.Users().GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, "dave-new@example.com", got.Email)
}

func TestHealthEndpoints(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.get(t, "/livez")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "ok", body["status"])

	resp, body = env.get(t, "/readyz")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "ok", body["status"])
}
