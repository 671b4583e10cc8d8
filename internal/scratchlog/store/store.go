package store

import (
	"context"
	"errors"
	"time"

	"github.com/scratchlog/scratchlog/internal/scratchlog/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite for now)
// implement this. It exposes sub-repositories to keep concerns tidy and
// testable.
type Store interface {
	Users() Users
	Tokens() Tokens
	Experiments() Experiments
	Participants() Participants
	Courses() Courses

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction. If fn returns an error the
	// transaction is rolled back, otherwise it is committed.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	// CreateUser inserts a new user (id is provided by app via ULID).
	CreateUser(ctx context.Context, u domain.User) error

	GetUserByID(ctx context.Context, id string) (domain.User, error)
	GetUserByUsername(ctx context.Context, username string) (domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)

	// SetUserActive flips the active flag and bumps updated_at.
	SetUserActive(ctx context.Context, userID string, active bool) error

	// UpdatePasswordHash sets the password_hash (argon2) and bumps updated_at.
	UpdatePasswordHash(ctx context.Context, userID string, newHash string) error

	// UpdateEmail applies a confirmed email address change.
	UpdateEmail(ctx context.Context, userID string, email string) error

	// IncrementLoginAttempts bumps the failed-login counter and returns the
	// new count.
	IncrementLoginAttempts(ctx context.Context, userID string) (int, error)

	// ResetLoginAttempts zeroes the failed-login counter.
	ResetLoginAttempts(ctx context.Context, userID string) error

	// TouchLastLogin records a successful login at the given time.
	TouchLastLogin(ctx context.Context, userID string, at time.Time) error

	// FindInactiveParticipants returns active PARTICIPANT accounts whose
	// last login precedes the cutoff. Accounts that never logged in are not
	// included.
	FindInactiveParticipants(ctx context.Context, cutoff time.Time) ([]domain.User, error)

	// DeleteUser cascades to tokens and participants (per schema).
	DeleteUser(ctx context.Context, userID string) error
}

type Tokens interface {
	// CreateToken stores a new token record.
	CreateToken(ctx context.Context, t domain.Token) error

	// GetTokenByValue returns a token by its opaque value.
	GetTokenByValue(ctx context.Context, value string) (domain.Token, error)

	// DeleteTokenIfPresent removes the token and reports whether a row was
	// actually deleted. This is the atomic claim primitive: when redemption
	// and a sweep race, exactly one caller observes true.
	DeleteTokenIfPresent(ctx context.Context, value string) (bool, error)

	// DeleteExpiredTokensBefore bulk-deletes tokens of the given types whose
	// expiry precedes now, returning the number of rows removed.
	DeleteExpiredTokensBefore(ctx context.Context, now time.Time, types ...domain.TokenType) (int64, error)

	// FindExpiredTokensBefore lists tokens of one type whose expiry precedes
	// now, for sweeps that need per-record handling.
	FindExpiredTokensBefore(ctx context.Context, now time.Time, typ domain.TokenType) ([]domain.Token, error)
}

type Experiments interface {
	CreateExperiment(ctx context.Context, e domain.Experiment) error
	GetExperimentByID(ctx context.Context, id string) (domain.Experiment, error)

	// SetExperimentActive flips the active flag and bumps updated_at.
	SetExperimentActive(ctx context.Context, experimentID string, active bool) error

	// FindActiveExperiments returns all experiments with active=1.
	FindActiveExperiments(ctx context.Context) ([]domain.Experiment, error)
}

type Participants interface {
	// AddParticipant links a user to an experiment.
	AddParticipant(ctx context.Context, p domain.Participant) error

	// LastExperimentActivity returns the newest start/finish timestamp among
	// an experiment's participants, or nil when no participant has any.
	LastExperimentActivity(ctx context.Context, experimentID string) (*time.Time, error)
}

type Courses interface {
	CreateCourse(ctx context.Context, c domain.Course) error
	GetCourseByID(ctx context.Context, id string) (domain.Course, error)

	// SetCourseActive flips the active flag.
	SetCourseActive(ctx context.Context, courseID string, active bool) error

	// FindActiveCoursesChangedBefore returns active courses whose
	// last_changed precedes the cutoff.
	FindActiveCoursesChangedBefore(ctx context.Context, cutoff time.Time) ([]domain.Course, error)

	// TouchCourseLastChanged bumps last_changed to the given time.
	TouchCourseLastChanged(ctx context.Context, courseID string, at time.Time) error
}
