package sqlite

import (
	"context"
	"time"

	"github.com/scratchlog/scratchlog/internal/scratchlog/domain"
)

type coursesRepo struct {
	db dbtx
}

func (r *coursesRepo) CreateCourse(ctx context.Context, c domain.Course) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO courses (id, title, active, last_changed, created_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)`,
		c.ID, c.Title, c.Active, c.LastChanged.UTC(),
	)
	return mapConstraint(err)
}

func (r *coursesRepo) GetCourseByID(ctx context.Context, id string) (domain.Course, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, title, active, last_changed, created_at
		FROM courses WHERE id = ?`, id)

	var c domain.Course
	if err := row.Scan(&c.ID, &c.Title, &c.Active, &c.LastChanged, &c.CreatedAt); err != nil {
		return domain.Course{}, mapNotFound(err)
	}
	return c, nil
}

func (r *coursesRepo) SetCourseActive(ctx context.Context, courseID string, active bool) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE courses SET active = ? WHERE id = ?`, active, courseID)
	return err
}

func (r *coursesRepo) FindActiveCoursesChangedBefore(
	ctx context.Context,
	cutoff time.Time,
) ([]domain.Course, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, title, active, last_changed, created_at
		FROM courses WHERE active = 1 AND last_changed < ?`, cutoff.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var courses []domain.Course
	for rows.Next() {
		var c domain.Course
		if err := rows.Scan(&c.ID, &c.Title, &c.Active, &c.LastChanged, &c.CreatedAt); err != nil {
			return nil, err
		}
		courses = append(courses, c)
	}
	return courses, rows.Err()
}

func (r *coursesRepo) TouchCourseLastChanged(ctx context.Context, courseID string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE courses SET last_changed = ? WHERE id = ?`, at.UTC(), courseID)
	return err
}
