package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/scratchlog/scratchlog/internal/scratchlog/domain"
)

type tokensRepo struct {
	db dbtx
}

func (r *tokensRepo) CreateToken(ctx context.Context, t domain.Token) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO tokens (value, type, user_id, metadata, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP)`,
		t.Value, t.Type.String(), t.UserID, mapStringNull(t.Metadata), t.ExpiresAt.UTC(),
	)
	return mapConstraint(err)
}

func (r *tokensRepo) GetTokenByValue(ctx context.Context, value string) (domain.Token, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT value, type, user_id, metadata, expires_at, created_at
		FROM tokens WHERE value = ?`, value,
	)
	return scanToken(row)
}

func (r *tokensRepo) DeleteTokenIfPresent(ctx context.Context, value string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tokens WHERE value = ?`, value)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *tokensRepo) DeleteExpiredTokensBefore(
	ctx context.Context,
	now time.Time,
	types ...domain.TokenType,
) (int64, error) {
	if len(types) == 0 {
		res, err := r.db.ExecContext(ctx, `DELETE FROM tokens WHERE expires_at < ?`, now.UTC())
		if err != nil {
			return 0, err
		}
		return res.RowsAffected()
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(types)), ", ")
	args := make([]any, 0, len(types)+1)
	args = append(args, now.UTC())
	for _, typ := range types {
		args = append(args, typ.String())
	}

	res, err := r.db.ExecContext(ctx,
		`DELETE FROM tokens WHERE expires_at < ? AND type IN (`+placeholders+`)`, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *tokensRepo) FindExpiredTokensBefore(
	ctx context.Context,
	now time.Time,
	typ domain.TokenType,
) ([]domain.Token, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT value, type, user_id, metadata, expires_at, created_at
		FROM tokens WHERE expires_at < ? AND type = ?`,
		now.UTC(), typ.String(),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tokens []domain.Token
	for rows.Next() {
		t, err := scanToken(rows)
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, t)
	}
	return tokens, rows.Err()
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanToken(row rowScanner) (domain.Token, error) {
	var (
		t        domain.Token
		typ      string
		metadata sql.NullString
	)
	if err := row.Scan(&t.Value, &typ, &t.UserID, &metadata, &t.ExpiresAt, &t.CreatedAt); err != nil {
		return domain.Token{}, mapNotFound(err)
	}

	tokenType, err := domain.ParseTokenType(typ)
	if err != nil {
		return domain.Token{}, err
	}
	t.Type = tokenType
	t.Metadata = mapNullString(metadata)
	return t, nil
}
