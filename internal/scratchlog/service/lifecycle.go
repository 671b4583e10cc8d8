package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/scratchlog/scratchlog/internal/scratchlog/domain"
	"github.com/scratchlog/scratchlog/internal/scratchlog/store"
	"github.com/scratchlog/scratchlog/pkg/slogx"
)

// InactivityWindows holds the per-kind windows after which an idle record is
// deactivated.
type InactivityWindows struct {
	Participant time.Duration
	Experiment  time.Duration
	Course      time.Duration
}

// LifecycleService runs the periodic housekeeping sweeps over tokens and
// inactive records. Both sweeps are idempotent: rerunning against unchanged
// state reports nothing.
type LifecycleService struct {
	Store   store.Store
	Tokens  *TokenService
	Windows InactivityWindows
}

// RunTokenSweep removes expired tokens. Generic types are bulk-deleted;
// expired DEACTIVATED tokens are claimed one by one so each removal is
// counted as a confirmed deactivation. The owning account stays inactive:
// reactivation only ever happens through a manual redemption.
func (s *LifecycleService) RunTokenSweep(ctx context.Context, now time.Time) domain.SweepReport {
	log := slogx.FromContext(ctx)
	var report domain.SweepReport

	deleted, err := s.Store.Tokens().DeleteExpiredTokensBefore(ctx, now,
		domain.TokenRegister,
		domain.TokenForgotPassword,
		domain.TokenChangeEmail,
	)
	if err != nil {
		report.Errors = append(report.Errors, fmt.Errorf("delete expired tokens: %w", err))
	}
	report.TokensDeleted = int(deleted)

	expired, err := s.Store.Tokens().FindExpiredTokensBefore(ctx, now, domain.TokenDeactivated)
	if err != nil {
		report.Errors = append(report.Errors, fmt.Errorf("list expired deactivation tokens: %w", err))
		expired = nil
	}
	for _, token := range expired {
		claimed, err := s.Store.Tokens().DeleteTokenIfPresent(ctx, token.Value)
		if err != nil {
			report.Errors = append(report.Errors,
				fmt.Errorf("confirm deactivation for user %s: %w", token.UserID, err))
			continue
		}
		if claimed {
			report.DeactivationsConfirmed++
		}
	}

	if !report.Empty() {
		log.Info("token sweep finished",
			slog.Int("tokens_deleted", report.TokensDeleted),
			slog.Int("deactivations_confirmed", report.DeactivationsConfirmed),
			slog.Int("errors", len(report.Errors)),
		)
	}
	return report
}

// RunInactivitySweep deactivates idle participants, experiments, and courses.
// Deactivated participants receive a fresh DEACTIVATED token so they can
// reactivate themselves within the grace period. Per-record failures are
// collected and never abort the batch.
func (s *LifecycleService) RunInactivitySweep(ctx context.Context, now time.Time) domain.SweepReport {
	log := slogx.FromContext(ctx)
	var report domain.SweepReport

	s.sweepParticipants(ctx, now, &report)
	s.sweepExperiments(ctx, now, &report)
	s.sweepCourses(ctx, now, &report)

	if !report.Empty() {
		log.Info("inactivity sweep finished",
			slog.Int("users_deactivated", report.UsersDeactivated),
			slog.Int("experiments_deactivated", report.ExperimentsDeactivated),
			slog.Int("courses_deactivated", report.CoursesDeactivated),
			slog.Int("errors", len(report.Errors)),
		)
	}
	return report
}

func (s *LifecycleService) sweepParticipants(ctx context.Context, now time.Time, report *domain.SweepReport) {
	cutoff := now.Add(-s.Windows.Participant)

	users, err := s.Store.Users().FindInactiveParticipants(ctx, cutoff)
	if err != nil {
		report.Errors = append(report.Errors, fmt.Errorf("list inactive participants: %w", err))
		return
	}

	for _, user := range users {
		if err := s.Store.Users().SetUserActive(ctx, user.ID, false); err != nil {
			report.Errors = append(report.Errors,
				fmt.Errorf("deactivate user %s: %w", user.ID, err))
			continue
		}
		report.UsersDeactivated++

		// The grace-period token also triggers the notification email. A
		// failure here leaves the account deactivated but recoverable via a
		// manually requested reset.
		if _, err := s.Tokens.IssueDeactivatedAt(ctx, user.ID, now); err != nil {
			report.Errors = append(report.Errors,
				fmt.Errorf("issue deactivation token for user %s: %w", user.ID, err))
		}
	}
}

func (s *LifecycleService) sweepExperiments(ctx context.Context, now time.Time, report *domain.SweepReport) {
	cutoff := now.Add(-s.Windows.Experiment)

	experiments, err := s.Store.Experiments().FindActiveExperiments(ctx)
	if err != nil {
		report.Errors = append(report.Errors, fmt.Errorf("list active experiments: %w", err))
		return
	}

	for _, exp := range experiments {
		last, err := s.Store.Participants().LastExperimentActivity(ctx, exp.ID)
		if err != nil {
			report.Errors = append(report.Errors,
				fmt.Errorf("resolve activity for experiment %s: %w", exp.ID, err))
			continue
		}

		// An experiment nobody ever worked on ages from its last update.
		reference := exp.UpdatedAt
		if last != nil {
			reference = *last
		}
		if !reference.Before(cutoff) {
			continue
		}

		if err := s.Store.Experiments().SetExperimentActive(ctx, exp.ID, false); err != nil {
			report.Errors = append(report.Errors,
				fmt.Errorf("deactivate experiment %s: %w", exp.ID, err))
			continue
		}
		report.ExperimentsDeactivated++
	}
}

func (s *LifecycleService) sweepCourses(ctx context.Context, now time.Time, report *domain.SweepReport) {
	cutoff := now.Add(-s.Windows.Course)

	courses, err := s.Store.Courses().FindActiveCoursesChangedBefore(ctx, cutoff)
	if err != nil {
		report.Errors = append(report.Errors, fmt.Errorf("list stale courses: %w", err))
		return
	}

	for _, course := range courses {
		if err := s.Store.Courses().SetCourseActive(ctx, course.ID, false); err != nil {
			report.Errors = append(report.Errors,
				fmt.Errorf("deactivate course %s: %w", course.ID, err))
			continue
		}
		report.CoursesDeactivated++
	}
}
