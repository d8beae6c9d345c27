package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-seat-assignment/internal/model"
)

func newCheckinMock(t *testing.T) (*CheckinRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewCheckinRepo(db), mock
}

func TestCheckinRecordFirstScan(t *testing.T) {
	repo, mock := newCheckinMock(t)

	mock.ExpectExec(`INSERT IGNORE INTO checkin_records`).
		WithArgs(uint64(5), uint64(1), sqlmock.AnyArg(), "door-1").
		WillReturnResult(sqlmock.NewResult(10, 1))
	mock.ExpectExec(`UPDATE registrants SET is_checked_in = 1`).WithArgs(uint64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	created, at, err := repo.Record(context.Background(), 5, 1, "door-1")
	require.NoError(t, err)
	assert.True(t, created)
	assert.False(t, at.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckinRecordDuplicateScan(t *testing.T) {
	repo, mock := newCheckinMock(t)
	first := time.Date(2025, 12, 14, 18, 2, 0, 0, time.UTC)

	mock.ExpectExec(`INSERT IGNORE INTO checkin_records`).
		WithArgs(uint64(5), uint64(1), sqlmock.AnyArg(), nil).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT checked_in_at FROM checkin_records`).
		WillReturnRows(sqlmock.NewRows([]string{"checked_in_at"}).AddRow(first))

	created, at, err := repo.Record(context.Background(), 5, 1, "")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first, at)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteListWithRecordsConflicts(t *testing.T) {
	repo, mock := newCheckinMock(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM checkin_records`).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(3))
	assert.ErrorIs(t, repo.DeleteList(context.Background(), 1), ErrConflict)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM checkin_records`).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(0))
	mock.ExpectExec(`DELETE FROM checkin_lists`).WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.DeleteList(context.Background(), 2), ErrNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetListDecodesAllowedGroups(t *testing.T) {
	repo, mock := newCheckinMock(t)
	now := time.Now().UTC()

	mock.ExpectQuery(`FROM checkin_lists l WHERE l.id = \?`).WithArgs(uint64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "description", "allowed", "is_active", "created_at", "updated_at", "n"}).
			AddRow(3, "East gate", nil, `["A","B"]`, true, now, now, 12))

	l, err := repo.GetList(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, l.AllowedSeatGroups)
	assert.Equal(t, 12, l.CheckedInCount)
	assert.True(t, l.Admits("A"))
	assert.False(t, l.Admits("C"))
	assert.True(t, l.Admits(""))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListStatsRestrictsToAllowedGroups(t *testing.T) {
	repo, mock := newCheckinMock(t)

	mock.ExpectQuery(`seat_group IN \(\?, \?\)`).WithArgs("A", "VIP").
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(50))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM checkin_records WHERE checkin_list_id = \?`).WithArgs(uint64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(20))

	s, err := repo.ListStats(context.Background(), model.CheckinList{ID: 2, AllowedSeatGroups: []string{"A", "VIP"}})
	require.NoError(t, err)
	assert.Equal(t, model.CheckinStats{Eligible: 50, CheckedIn: 20, Remaining: 30}, s)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelRecordClearsFlag(t *testing.T) {
	repo, mock := newCheckinMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT registrant_id FROM checkin_records`).WithArgs(uint64(9), uint64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"registrant_id"}).AddRow(5))
	mock.ExpectExec(`DELETE FROM checkin_records WHERE id = \?`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE registrants SET is_checked_in = 0`).WithArgs(uint64(5), uint64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.CancelRecord(context.Background(), 1, 9))
	assert.NoError(t, mock.ExpectationsWereMet())
}
