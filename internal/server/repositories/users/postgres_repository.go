package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/tours/internal/common"
	"github.com/dmitrijs2005/tours/internal/dbx"
	"github.com/dmitrijs2005/tours/internal/server/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

const userColumns = `id, name, email, photo, password_hash, password_changed_at, reset_token_hash, reset_token_expires_at, created_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	query :=
		`INSERT INTO users (id, name, email, photo, password_hash, password_changed_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING created_at
		 `

	id := uuid.NewString()
	err := r.db.QueryRowContext(ctx, query,
		id, user.Name, user.Email, user.Photo, user.PasswordHash, user.PasswordChangedAt).Scan(&user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, common.ErrorConflict
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	user.ID = id
	return user, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, common.ErrorNotFound
	}
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

func (r *PostgresRepository) GetByResetTokenHash(ctx context.Context, digest string) (*models.User, error) {
	return r.getOne(ctx,
		`SELECT `+userColumns+` FROM users WHERE reset_token_hash = $1 AND reset_token_expires_at > now()`, digest)
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, args ...any) (*models.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return user, nil
}

func (r *PostgresRepository) Update(ctx context.Context, id string, upd models.UserUpdate) (*models.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, common.ErrorNotFound
	}
	if upd.Empty() {
		return r.GetByID(ctx, id)
	}

	var sets []string
	var args []any
	add := func(column string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if upd.Name != nil {
		add("name", *upd.Name)
	}
	if upd.Email != nil {
		add("email", *upd.Email)
	}
	if upd.Photo != nil {
		add("photo", *upd.Photo)
	}
	args = append(args, id)

	query := fmt.Sprintf(`UPDATE users SET %s WHERE id = $%d RETURNING %s`, strings.Join(sets, ", "), len(args), userColumns)

	user, err := scanUser(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		if isUniqueViolation(err) {
			return nil, common.ErrorConflict
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return user, nil
}

func (r *PostgresRepository) SetResetToken(ctx context.Context, id, digest string, expiresAt time.Time) error {
	return r.exec(ctx, id,
		`UPDATE users SET reset_token_hash = $1, reset_token_expires_at = $2 WHERE id = $3`,
		digest, expiresAt, id)
}

func (r *PostgresRepository) ClearResetToken(ctx context.Context, id string) error {
	return r.exec(ctx, id,
		`UPDATE users SET reset_token_hash = NULL, reset_token_expires_at = NULL WHERE id = $1`, id)
}

func (r *PostgresRepository) ResetPassword(ctx context.Context, id, digest, passwordHash string, changedAt time.Time) error {
	err := r.exec(ctx, id,
		`UPDATE users
		 SET password_hash = $1, password_changed_at = $2, reset_token_hash = NULL, reset_token_expires_at = NULL
		 WHERE id = $3 AND reset_token_hash = $4 AND reset_token_expires_at > $2`,
		passwordHash, changedAt, id, digest)
	if errors.Is(err, common.ErrorNotFound) {
		return common.ErrInvalidOrExpiredResetToken
	}
	return err
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	return r.exec(ctx, id, `DELETE FROM users WHERE id = $1`, id)
}

// exec runs a single-row write and maps "no row touched" to ErrorNotFound.
func (r *PostgresRepository) exec(ctx context.Context, id, query string, args ...any) error {
	if _, err := uuid.Parse(id); err != nil {
		return common.ErrorNotFound
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	var (
		user           models.User
		changedAt      sql.NullTime
		resetHash      sql.NullString
		resetExpiresAt sql.NullTime
	)
	err := row.Scan(&user.ID, &user.Name, &user.Email, &user.Photo, &user.PasswordHash,
		&changedAt, &resetHash, &resetExpiresAt, &user.CreatedAt)
	if err != nil {
		return nil, err
	}
	if changedAt.Valid {
		user.PasswordChangedAt = &changedAt.Time
	}
	if resetHash.Valid {
		user.ResetTokenHash = &resetHash.String
	}
	if resetExpiresAt.Valid {
		user.ResetTokenExpiresAt = &resetExpiresAt.Time
	}
	return &user, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
