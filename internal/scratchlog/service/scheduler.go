package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/scratchlog/scratchlog/internal/scratchlog/domain"
	"github.com/scratchlog/scratchlog/pkg/slogx"
)

// LifecycleScheduler drives the lifecycle sweeps on two cadences: a fast one
// for token cleanup and a slow one for inactivity checks. A single goroutine
// owns both tickers, so sweeps never overlap.
type LifecycleScheduler struct {
	Lifecycle *LifecycleService
	Logger    *slog.Logger

	// TokenInterval is the token sweep cadence.
	TokenInterval time.Duration
	// InactivityInterval is the inactivity sweep cadence.
	InactivityInterval time.Duration

	// Clock is injectable for tests; defaults to time.Now.
	Clock func() time.Time

	// Internal channels for lifecycle management
	stopCh chan struct{}
	doneCh chan struct{}
}

// NewLifecycleScheduler creates a scheduler with the given cadences. Zero or
// negative intervals fall back to 10 minutes for tokens and 24 hours for
// inactivity.
func NewLifecycleScheduler(lifecycle *LifecycleService, logger *slog.Logger, tokenInterval, inactivityInterval time.Duration) *LifecycleScheduler {
	if tokenInterval <= 0 {
		tokenInterval = 10 * time.Minute
	}
	if inactivityInterval <= 0 {
		inactivityInterval = 24 * time.Hour
	}

	return &LifecycleScheduler{
		Lifecycle:          lifecycle,
		Logger:             logger,
		TokenInterval:      tokenInterval,
		InactivityInterval: inactivityInterval,
		stopCh:             make(chan struct{}),
		doneCh:             make(chan struct{}),
	}
}

func (s *LifecycleScheduler) now() time.Time {
	if s.Clock != nil {
		return s.Clock()
	}
	return time.Now()
}

// Start begins the background worker. This is non-blocking and should be
// called after the database is ready. Call Stop() to gracefully shutdown.
func (s *LifecycleScheduler) Start() {
	go s.run()
	s.Logger.Info("lifecycle scheduler started",
		"token_interval", s.TokenInterval,
		"inactivity_interval", s.InactivityInterval,
	)
}

// Stop gracefully shuts down the background worker. Blocks until any
// in-progress sweep has finished.
func (s *LifecycleScheduler) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("lifecycle scheduler stopped")
}

// run is the main background worker loop.
func (s *LifecycleScheduler) run() {
	defer close(s.doneCh)

	tokenTicker := time.NewTicker(s.TokenInterval)
	defer tokenTicker.Stop()

	inactivityTicker := time.NewTicker(s.InactivityInterval)
	defer inactivityTicker.Stop()

	// Run the token sweep immediately on startup so restarts don't defer
	// cleanup by a full interval.
	s.sweep(s.Lifecycle.RunTokenSweep)

	for {
		select {
		case <-tokenTicker.C:
			s.sweep(s.Lifecycle.RunTokenSweep)
		case <-inactivityTicker.C:
			s.sweep(s.Lifecycle.RunInactivitySweep)
		case <-s.stopCh:
			return
		}
	}
}

func (s *LifecycleScheduler) sweep(run func(context.Context, time.Time) domain.SweepReport) {
	// Carry the scheduler's logger so the sweeps log through it rather than
	// falling back to slog.Default.
	ctx := slogx.WithContext(context.Background(), s.Logger)
	report := run(ctx, s.now())
	for _, err := range report.Errors {
		s.Logger.Error("sweep record failed", "error", err)
	}
}
