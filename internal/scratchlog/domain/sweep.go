package domain

// SweepReport summarizes what a lifecycle sweep changed. A second run with
// no intervening state change must produce an empty report.
type SweepReport struct {
	// TokensDeleted counts expired REGISTER, FORGOT_PASSWORD, and
	// CHANGE_EMAIL tokens removed.
	TokensDeleted int
	// DeactivationsConfirmed counts expired DEACTIVATED tokens removed
	// without reactivating the owning account.
	DeactivationsConfirmed int
	// UsersDeactivated counts participants deactivated for inactivity.
	UsersDeactivated int
	// ExperimentsDeactivated counts experiments deactivated for inactivity.
	ExperimentsDeactivated int
	// CoursesDeactivated counts courses deactivated for inactivity.
	CoursesDeactivated int
	// Errors holds per-record failures. A failing record never aborts the
	// rest of the sweep.
	Errors []error
}

// Empty reports whether the sweep changed nothing and hit no errors.
func (r SweepReport) Empty() bool {
	return r.TokensDeleted == 0 &&
		r.DeactivationsConfirmed == 0 &&
		r.UsersDeactivated == 0 &&
		r.ExperimentsDeactivated == 0 &&
		r.CoursesDeactivated == 0 &&
		len(r.Errors) == 0
}
