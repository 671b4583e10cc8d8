package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/scratchlog/scratchlog/internal/scratchlog/domain"
)

type participantsRepo struct {
	db dbtx
}

func (r *participantsRepo) AddParticipant(ctx context.Context, p domain.Participant) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO participants (experiment_id, user_id, started_at, finished_at)
		VALUES (?, ?, ?, ?)`,
		p.ExperimentID, p.UserID, mapOptionalTime(p.StartedAt), mapOptionalTime(p.FinishedAt),
	)
	return mapConstraint(err)
}

func (r *participantsRepo) LastExperimentActivity(
	ctx context.Context,
	experimentID string,
) (*time.Time, error) {
	// MAX over both columns; NULL rows drop out of the aggregate.
	row := r.db.QueryRowContext(ctx, `
		SELECT MAX(ts) FROM (
			SELECT started_at AS ts FROM participants WHERE experiment_id = ?
			UNION ALL
			SELECT finished_at AS ts FROM participants WHERE experiment_id = ?
		)`, experimentID, experimentID)

	var last sql.NullTime
	if err := row.Scan(&last); err != nil {
		return nil, err
	}
	return mapNullTimePtr(last), nil
}
