package service

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/scratchlog/scratchlog/internal/scratchlog/domain"
	"github.com/scratchlog/scratchlog/internal/scratchlog/store"
	"github.com/stretchr/testify/require"
)

func TestSchedulerRunsTokenSweepOnStartup(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	tokens := newTokenService(st, &fakeMailer{}, nil)
	lifecycle := newLifecycleService(st, tokens)

	user := mustCreateUser(t, st, "alice", true)

	issuedAt := time.Now().Add(-2 * time.Hour)
	tokens.Clock = func() time.Time { return issuedAt }
	expired, err := tokens.Issue(ctx, user.ID, domain.TokenForgotPassword, "")
	require.NoError(t, err)
	tokens.Clock = nil

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	scheduler := NewLifecycleScheduler(lifecycle, logger, time.Hour, time.Hour)

	scheduler.Start()
	scheduler.Stop()

	// Stop blocks until the startup sweep has finished.
	_, err = st.Tokens().GetTokenByValue(ctx, expired.Value)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestSchedulerSweepsLogThroughConfiguredLogger(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	tokens := newTokenService(st, &fakeMailer{}, nil)
	lifecycle := newLifecycleService(st, tokens)

	user := mustCreateUser(t, st, "bart", true)

	issuedAt := time.Now().Add(-2 * time.Hour)
	tokens.Clock = func() time.Time { return issuedAt }
	_, err := tokens.Issue(ctx, user.ID, domain.TokenForgotPassword, "")
	require.NoError(t, err)
	tokens.Clock = nil

	// The sweep summary is written by the lifecycle service through the
	// context logger, so it only lands here if the scheduler passes its
	// logger along.
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	scheduler := NewLifecycleScheduler(lifecycle, logger, time.Hour, time.Hour)

	scheduler.Start()
	scheduler.Stop()

	require.Contains(t, buf.String(), "token sweep finished")
}

func TestSchedulerDefaultsIntervals(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	scheduler := NewLifecycleScheduler(nil, logger, 0, -time.Minute)

	require.Equal(t, 10*time.Minute, scheduler.TokenInterval)
	require.Equal(t, 24*time.Hour, scheduler.InactivityInterval)
}
