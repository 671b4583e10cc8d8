package domain

import "time"

// Experiment is a behavioral-research study that participants take part in.
// Its notion of activity is derived from participant start/finish events.
type Experiment struct {
	ID        string
	Title     string
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Participant links a user to an experiment and records when they started
// and finished it. The newest of these timestamps across all participants is
// the experiment's last activity.
type Participant struct {
	ExperimentID string
	UserID       string
	StartedAt    *time.Time
	FinishedAt   *time.Time
}
