package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-seat-assignment/internal/model"
	"github.com/iliyamo/event-seat-assignment/internal/utils"
)

func newUserMock(t *testing.T) (*UserRepo, *TokenRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewUserRepo(db), NewTokenRepo(db), mock
}

var userCols = []string{"id", "email", "password_hash", "role", "is_active", "created_at", "updated_at"}

func TestCreateUserHashesAndMapsDuplicate(t *testing.T) {
	users, _, mock := newUserMock(t)
	ctx := context.Background()

	mock.ExpectExec("INSERT INTO users").
		WithArgs("gate@example.com", sqlmock.AnyArg(), model.RoleStaff).
		WillReturnResult(sqlmock.NewResult(5, 1))
	id, err := users.Create(ctx, " Gate@Example.com", "door-pass-1", model.RoleStaff, 4)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), id)

	mock.ExpectExec("INSERT INTO users").WillReturnError(&mysql.MySQLError{Number: 1062})
	_, err = users.Create(ctx, "gate@example.com", "door-pass-1", model.RoleStaff, 4)
	assert.ErrorIs(t, err, ErrEmailExists)

	_, err = users.Create(ctx, "short@example.com", "short", model.RoleStaff, 4)
	assert.ErrorIs(t, err, utils.ErrPasswordTooShort)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureAdminSkipsExisting(t *testing.T) {
	users, _, mock := newUserMock(t)
	ctx := context.Background()
	now := time.Now()

	mock.ExpectQuery("SELECT .* FROM users WHERE email=").
		WillReturnRows(sqlmock.NewRows(userCols).AddRow(1, "admin@example.com", "x", "ADMIN", true, now, now))
	created, err := users.EnsureAdmin(ctx, "admin@example.com", "admin-pass-1", 4)
	require.NoError(t, err)
	assert.False(t, created)

	mock.ExpectQuery("SELECT .* FROM users WHERE email=").WillReturnError(sql.ErrNoRows)
	mock.ExpectExec("INSERT INTO users").
		WithArgs("admin@example.com", sqlmock.AnyArg(), model.RoleAdmin).
		WillReturnResult(sqlmock.NewResult(1, 1))
	created, err = users.EnsureAdmin(ctx, "admin@example.com", "admin-pass-1", 4)
	require.NoError(t, err)
	assert.True(t, created)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetActiveUnknownUser(t *testing.T) {
	users, _, mock := newUserMock(t)
	ctx := context.Background()

	mock.ExpectExec("UPDATE users SET is_active").WithArgs(false, 9).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT 1 FROM users").WithArgs(9).WillReturnRows(sqlmock.NewRows([]string{"1"}))
	assert.ErrorIs(t, users.SetActive(ctx, 9, false), ErrNotFound)

	// unchanged row: 0 affected but the user exists
	mock.ExpectExec("UPDATE users SET is_active").WithArgs(true, 2).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT 1 FROM users").WithArgs(2).WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	assert.NoError(t, users.SetActive(ctx, 2, true))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRotateRefreshOnce(t *testing.T) {
	_, tokens, mock := newUserMock(t)
	ctx := context.Background()
	exp := time.Now().Add(time.Hour)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE refresh_tokens SET revoked_at").
		WithArgs(sqlmock.AnyArg(), "old").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO refresh_tokens").
		WithArgs(uint64(3), "new", sqlmock.AnyArg()).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()
	require.NoError(t, tokens.Rotate(ctx, "old", 3, "new", exp))

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE refresh_tokens SET revoked_at").
		WithArgs(sqlmock.AnyArg(), "old").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()
	assert.ErrorIs(t, tokens.Rotate(ctx, "old", 3, "newer", exp), ErrConflict)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestValidateRefreshUnknown(t *testing.T) {
	_, tokens, mock := newUserMock(t)

	mock.ExpectQuery("SELECT user_id FROM refresh_tokens").
		WithArgs("nope", sqlmock.AnyArg()).WillReturnRows(sqlmock.NewRows([]string{"user_id"}))
	_, err := tokens.ValidateRefresh(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
