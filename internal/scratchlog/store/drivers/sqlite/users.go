package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/scratchlog/scratchlog/internal/scratchlog/domain"
)

type usersRepo struct {
	db dbtx
}

const userColumns = `id, username, email, password_hash, role, active, attempts, last_login, created_at, updated_at`

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, username, email, password_hash, role, active, attempts, last_login, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)`,
		u.ID, u.Username, u.Email, u.PasswordHash, u.Role.String(), u.Active, u.Attempts,
		mapOptionalTime(u.LastLogin),
	)
	return mapConstraint(err)
}

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return scanUser(row)
}

func (r *usersRepo) GetUserByUsername(ctx context.Context, username string) (domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = ?`, username)
	return scanUser(row)
}

func (r *usersRepo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	return scanUser(row)
}

func (r *usersRepo) SetUserActive(ctx context.Context, userID string, active bool) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET active = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		active, userID)
	return err
}

func (r *usersRepo) UpdatePasswordHash(ctx context.Context, userID string, newHash string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET password_hash = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		newHash, userID)
	return err
}

func (r *usersRepo) UpdateEmail(ctx context.Context, userID string, email string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET email = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		email, userID)
	return err
}

func (r *usersRepo) IncrementLoginAttempts(ctx context.Context, userID string) (int, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE users SET attempts = attempts + 1, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
		RETURNING attempts`, userID)

	var attempts int
	if err := row.Scan(&attempts); err != nil {
		return 0, mapNotFound(err)
	}
	return attempts, nil
}

func (r *usersRepo) ResetLoginAttempts(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET attempts = 0, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, userID)
	return err
}

func (r *usersRepo) TouchLastLogin(ctx context.Context, userID string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET last_login = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		at.UTC(), userID)
	return err
}

func (r *usersRepo) FindInactiveParticipants(
	ctx context.Context,
	cutoff time.Time,
) ([]domain.User, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+userColumns+` FROM users
		WHERE role = ? AND active = 1 AND last_login IS NOT NULL AND last_login < ?`,
		domain.RoleParticipant.String(), cutoff.UTC(),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *usersRepo) DeleteUser(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, userID)
	return err
}

func scanUser(row rowScanner) (domain.User, error) {
	var (
		u         domain.User
		role      string
		lastLogin sql.NullTime
	)
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &role, &u.Active,
		&u.Attempts, &lastLogin, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}

	parsed, err := domain.ParseRole(role)
	if err != nil {
		return domain.User{}, err
	}
	u.Role = parsed
	u.LastLogin = mapNullTimePtr(lastLogin)
	return u, nil
}
