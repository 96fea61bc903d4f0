package users

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/tours/internal/common"
	"github.com/dmitrijs2005/tours/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
)

const testID = "0b7e8e8c-8f2a-4a57-9b7e-2f7a4c6d1e01"

var userCols = []string{"id", "name", "email", "photo", "password_hash", "password_changed_at",
	"reset_token_hash", "reset_token_expires_at", "created_at"}

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

func TestCreate_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^INSERT\s+INTO\s+users\s*\(id,\s*name,\s*email,\s*photo,\s*password_hash,\s*password_changed_at\)\s*VALUES\s*\(\$1,\s*\$2,\s*\$3,\s*\$4,\s*\$5,\s*\$6\)\s*RETURNING\s+created_at\s*$`
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	mock.ExpectQuery(q).
		WithArgs(sqlmock.AnyArg(), "Jonas", "jonas@example.com", "", "$2a$hash", nil).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(created))

	got, err := repo.Create(context.Background(), &models.User{Name: "Jonas", Email: "jonas@example.com", PasswordHash: "$2a$hash"})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if got.ID == "" || !got.CreatedAt.Equal(created) {
		t.Fatalf("unexpected user: %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreate_DuplicateEmail(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)^INSERT\s+INTO\s+users`).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"})

	_, err := repo.Create(context.Background(), &models.User{Email: "jonas@example.com"})
	if !errors.Is(err, common.ErrorConflict) {
		t.Fatalf("want common.ErrorConflict, got %v", err)
	}
}

func TestCreate_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)^INSERT\s+INTO\s+users`).
		WillReturnError(errors.New("db down"))

	_, err := repo.Create(context.Background(), &models.User{Email: "jonas@example.com"})
	if err == nil || !regexp.MustCompile(`db error: .*db down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestGetByEmail_Found(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^SELECT\s+id,\s*name,.*FROM\s+users\s+WHERE\s+email\s*=\s*\$1\s*$`
	changed := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows(userCols).
		AddRow(testID, "Jonas", "jonas@example.com", "", "$2a$hash", changed, nil, nil, time.Now())
	mock.ExpectQuery(q).WithArgs("jonas@example.com").WillReturnRows(rows)

	got, err := repo.GetByEmail(context.Background(), "jonas@example.com")
	if err != nil {
		t.Fatalf("GetByEmail error: %v", err)
	}
	if got.ID != testID || got.PasswordHash != "$2a$hash" {
		t.Fatalf("unexpected user: %+v", got)
	}
	if got.PasswordChangedAt == nil || !got.PasswordChangedAt.Equal(changed) {
		t.Fatalf("password_changed_at not mapped: %+v", got.PasswordChangedAt)
	}
	if got.ResetTokenHash != nil || got.ResetTokenExpiresAt != nil {
		t.Fatalf("reset fields must be nil")
	}
}

func TestGetByEmail_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)^SELECT.*WHERE\s+email\s*=\s*\$1`).
		WithArgs("ghost@example.com").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByEmail(context.Background(), "ghost@example.com")
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want common.ErrorNotFound, got %v", err)
	}
}

func TestGetByID_InvalidIDIsNotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	_, err := repo.GetByID(context.Background(), "not-a-uuid")
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want common.ErrorNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("no query expected: %v", err)
	}
}

func TestGetByResetTokenHash(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^SELECT.*FROM\s+users\s+WHERE\s+reset_token_hash\s*=\s*\$1\s+AND\s+reset_token_expires_at\s*>\s*now\(\)\s*$`
	exp := time.Now().Add(5 * time.Minute)

	rows := sqlmock.NewRows(userCols).
		AddRow(testID, "Jonas", "jonas@example.com", "", "$2a$hash", nil, "digest", exp, time.Now())
	mock.ExpectQuery(q).WithArgs("digest").WillReturnRows(rows)

	got, err := repo.GetByResetTokenHash(context.Background(), "digest")
	if err != nil {
		t.Fatalf("GetByResetTokenHash error: %v", err)
	}
	if got.ResetTokenHash == nil || *got.ResetTokenHash != "digest" {
		t.Fatalf("reset hash not mapped: %+v", got)
	}
}

func TestUpdate_BuildsPartialSet(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^UPDATE\s+users\s+SET\s+name\s*=\s*\$1,\s*photo\s*=\s*\$2\s+WHERE\s+id\s*=\s*\$3\s+RETURNING\s+id,`
	rows := sqlmock.NewRows(userCols).
		AddRow(testID, "Jonas S", "jonas@example.com", "me.jpg", "$2a$hash", nil, nil, nil, time.Now())
	mock.ExpectQuery(q).WithArgs("Jonas S", "me.jpg", testID).WillReturnRows(rows)

	name, photo := "Jonas S", "me.jpg"
	got, err := repo.Update(context.Background(), testID, models.UserUpdate{Name: &name, Photo: &photo})
	if err != nil {
		t.Fatalf("Update error: %v", err)
	}
	if got.Name != "Jonas S" || got.Photo != "me.jpg" {
		t.Fatalf("unexpected user: %+v", got)
	}
}

func TestUpdate_NotFoundAndConflict(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	email := "taken@example.com"
	mock.ExpectQuery(`(?s)^UPDATE\s+users`).WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(`(?s)^UPDATE\s+users`).WillReturnError(&pgconn.PgError{Code: "23505"})

	if _, err := repo.Update(context.Background(), testID, models.UserUpdate{Email: &email}); !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want common.ErrorNotFound, got %v", err)
	}
	if _, err := repo.Update(context.Background(), testID, models.UserUpdate{Email: &email}); !errors.Is(err, common.ErrorConflict) {
		t.Fatalf("want common.ErrorConflict, got %v", err)
	}
}

func TestSetAndClearResetToken(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	exp := time.Now().Add(10 * time.Minute)
	mock.ExpectExec(`(?s)^UPDATE\s+users\s+SET\s+reset_token_hash\s*=\s*\$1,\s*reset_token_expires_at\s*=\s*\$2\s+WHERE\s+id\s*=\s*\$3$`).
		WithArgs("digest", exp, testID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`(?s)^UPDATE\s+users\s+SET\s+reset_token_hash\s*=\s*NULL,\s*reset_token_expires_at\s*=\s*NULL\s+WHERE\s+id\s*=\s*\$1$`).
		WithArgs(testID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.SetResetToken(context.Background(), testID, "digest", exp); err != nil {
		t.Fatalf("SetResetToken error: %v", err)
	}
	if err := repo.ClearResetToken(context.Background(), testID); err != nil {
		t.Fatalf("ClearResetToken error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestResetPassword_ConditionalOnToken(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	changed := time.Now()
	q := `(?s)^UPDATE\s+users\s+SET\s+password_hash\s*=\s*\$1,\s*password_changed_at\s*=\s*\$2,\s*reset_token_hash\s*=\s*NULL,\s*reset_token_expires_at\s*=\s*NULL\s+WHERE\s+id\s*=\s*\$3\s+AND\s+reset_token_hash\s*=\s*\$4\s+AND\s+reset_token_expires_at\s*>\s*\$2$`
	mock.ExpectExec(q).WithArgs("$2a$new", changed, testID, "digest").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q).WithArgs("$2a$new", changed, testID, "digest").WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.ResetPassword(context.Background(), testID, "digest", "$2a$new", changed); err != nil {
		t.Fatalf("ResetPassword error: %v", err)
	}
	if err := repo.ResetPassword(context.Background(), testID, "digest", "$2a$new", changed); !errors.Is(err, common.ErrInvalidOrExpiredResetToken) {
		t.Fatalf("want common.ErrInvalidOrExpiredResetToken, got %v", err)
	}
	if err := repo.ResetPassword(context.Background(), "not-a-uuid", "digest", "$2a$new", changed); !errors.Is(err, common.ErrInvalidOrExpiredResetToken) {
		t.Fatalf("want common.ErrInvalidOrExpiredResetToken for bad id, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestDelete(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^DELETE\s+FROM\s+users\s+WHERE\s+id\s*=\s*\$1$`
	mock.ExpectExec(q).WithArgs(testID).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q).WithArgs(testID).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(q).WithArgs(testID).WillReturnError(errors.New("conn reset"))

	if err := repo.Delete(context.Background(), testID); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if err := repo.Delete(context.Background(), testID); !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want common.ErrorNotFound, got %v", err)
	}
	if err := repo.Delete(context.Background(), testID); err == nil || !regexp.MustCompile(`db error: .*conn reset`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
	if err := repo.Delete(context.Background(), "42"); !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want common.ErrorNotFound for malformed id, got %v", err)
	}
}
