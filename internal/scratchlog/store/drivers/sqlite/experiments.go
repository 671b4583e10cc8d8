package sqlite

import (
	"context"

	"github.com/scratchlog/scratchlog/internal/scratchlog/domain"
)

type experimentsRepo struct {
	db dbtx
}

func (r *experimentsRepo) CreateExperiment(ctx context.Context, e domain.Experiment) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO experiments (id, title, active, created_at, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)`,
		e.ID, e.Title, e.Active,
	)
	return mapConstraint(err)
}

func (r *experimentsRepo) GetExperimentByID(ctx context.Context, id string) (domain.Experiment, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, title, active, created_at, updated_at
		FROM experiments WHERE id = ?`, id)

	var e domain.Experiment
	if err := row.Scan(&e.ID, &e.Title, &e.Active, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return domain.Experiment{}, mapNotFound(err)
	}
	return e, nil
}

func (r *experimentsRepo) SetExperimentActive(ctx context.Context, experimentID string, active bool) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE experiments SET active = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		active, experimentID)
	return err
}

func (r *experimentsRepo) FindActiveExperiments(ctx context.Context) ([]domain.Experiment, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, title, active, created_at, updated_at
		FROM experiments WHERE active = 1`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var experiments []domain.Experiment
	for rows.Next() {
		var e domain.Experiment
		if err := rows.Scan(&e.ID, &e.Title, &e.Active, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		experiments = append(experiments, e)
	}
	return experiments, rows.Err()
}
