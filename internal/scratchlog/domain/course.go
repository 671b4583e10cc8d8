package domain

import "time"

// Course groups experiments and participants. LastChanged is bumped whenever
// its metadata, participant list, or contained experiments change, and drives
// the inactivity sweep.
type Course struct {
	ID          string
	Title       string
	Active      bool
	LastChanged time.Time
	CreatedAt   time.Time
}
