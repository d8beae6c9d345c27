package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-seat-assignment/internal/model"
)

var registrantCols = []string{"id", "user_name", "phone", "birth_date", "ticket_count",
	"companion_name", "companion_phone", "companion_birth_date", "companion_completed",
	"is_paid", "seat_group", "seat_number", "seat_label", "seat_group_2", "seat_number_2", "seat_label_2",
	"is_checked_in", "created_at", "deleted_at"}

func newRegistrantMock(t *testing.T) (*RegistrantRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewRegistrantRepo(db), mock
}

func TestRegistrantCreate(t *testing.T) {
	repo, mock := newRegistrantMock(t)
	birth := "000229"

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM registrants WHERE companion_phone = \?`).WithArgs("01012345678").
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(0))
	mock.ExpectExec(`INSERT INTO registrants`).WithArgs("Kim", "01012345678", "000229", 2).
		WillReturnResult(sqlmock.NewResult(41, 1))

	reg := &model.Registrant{UserName: "Kim", Phone: "01012345678", BirthDate: &birth, TicketCount: 2}
	id, err := repo.Create(context.Background(), reg)
	require.NoError(t, err)
	assert.Equal(t, uint64(41), id)
	assert.Equal(t, uint64(41), reg.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistrantCreateDuplicatePhone(t *testing.T) {
	repo, mock := newRegistrantMock(t)

	mock.ExpectQuery(`SELECT COUNT`).WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(0))
	mock.ExpectExec(`INSERT INTO registrants`).WillReturnError(&mysql.MySQLError{Number: 1062})

	_, err := repo.Create(context.Background(), &model.Registrant{UserName: "Kim", Phone: "01012345678", TicketCount: 1})
	assert.ErrorIs(t, err, ErrPhoneExists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistrantCreatePhoneUsedByCompanion(t *testing.T) {
	repo, mock := newRegistrantMock(t)

	mock.ExpectQuery(`SELECT COUNT`).WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(1))

	_, err := repo.Create(context.Background(), &model.Registrant{UserName: "Lee", Phone: "01099998888", TicketCount: 1})
	assert.ErrorIs(t, err, ErrPhoneExists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByPhoneFallsBackToCompanion(t *testing.T) {
	repo, mock := newRegistrantMock(t)
	created := time.Date(2025, 11, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`FROM registrants WHERE phone = \?`).WithArgs("01022223333").
		WillReturnRows(sqlmock.NewRows(registrantCols))
	mock.ExpectQuery(`WHERE companion_phone = \? AND companion_completed = 1`).WithArgs("01022223333").
		WillReturnRows(sqlmock.NewRows(registrantCols).AddRow(
			7, "Park", "01011112222", "850505", 2,
			"Choi", "01022223333", nil, true,
			true, "C", 4, "C-4", "C", 5, "C-5",
			false, created, nil))

	reg, asCompanion, err := repo.FindByPhone(context.Background(), "01022223333")
	require.NoError(t, err)
	assert.True(t, asCompanion)
	assert.Equal(t, uint64(7), reg.ID)
	require.NotNil(t, reg.SeatLabel2)
	assert.Equal(t, "C-5", *reg.SeatLabel2)
	assert.Equal(t, 5, *reg.SeatNumber2)
	assert.Nil(t, reg.CompanionBirthDate)
	assert.Equal(t, "C-5", reg.Holding().Companion)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByPhoneNotFound(t *testing.T) {
	repo, mock := newRegistrantMock(t)

	mock.ExpectQuery(`WHERE phone = \?`).WillReturnRows(sqlmock.NewRows(registrantCols))
	mock.ExpectQuery(`WHERE companion_phone = \?`).WillReturnRows(sqlmock.NewRows(registrantCols))

	_, _, err := repo.FindByPhone(context.Background(), "01000000000")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSetCompanionRules(t *testing.T) {
	repo, mock := newRegistrantMock(t)

	assert.ErrorIs(t, repo.SetCompanion(context.Background(), "01011112222", Companion{Name: "x", Phone: "01011112222"}), ErrPhoneExists)

	mock.ExpectQuery(`SELECT id, ticket_count FROM registrants`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "ticket_count"}).AddRow(3, 1))
	assert.ErrorIs(t, repo.SetCompanion(context.Background(), "01011112222", Companion{Name: "x", Phone: "01033334444"}), ErrInvalidSlot)

	mock.ExpectQuery(`SELECT id, ticket_count FROM registrants`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "ticket_count"}).AddRow(3, 2))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM registrants`).WithArgs(uint64(3), "01033334444", "01033334444").
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(1))
	assert.ErrorIs(t, repo.SetCompanion(context.Background(), "01011112222", Companion{Name: "x", Phone: "01033334444"}), ErrPhoneExists)

	mock.ExpectQuery(`SELECT id, ticket_count FROM registrants`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "ticket_count"}).AddRow(3, 2))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM registrants`).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(0))
	mock.ExpectExec(`UPDATE registrants SET companion_name = \?`).WithArgs("Choi", "01033334444", nil, uint64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	assert.NoError(t, repo.SetCompanion(context.Background(), "01011112222", Companion{Name: "Choi", Phone: "01033334444"}))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetPaidUnchangedRowIsNotMissing(t *testing.T) {
	repo, mock := newRegistrantMock(t)

	mock.ExpectExec(`UPDATE registrants SET is_paid = \?`).WithArgs(true, uint64(2)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT 1 FROM registrants`).WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	assert.NoError(t, repo.SetPaid(context.Background(), 2, true))

	mock.ExpectExec(`UPDATE registrants SET is_paid = \?`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT 1 FROM registrants`).WillReturnRows(sqlmock.NewRows([]string{"1"}))
	assert.ErrorIs(t, repo.SetPaid(context.Background(), 99, true), ErrNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSoftDeleteReleasesSeats(t *testing.T) {
	repo, mock := newRegistrantMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE registrants SET deleted_at = \?`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM seat_claims WHERE registrant_id = \?`).WithArgs(uint64(4)).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	require.NoError(t, repo.SoftDelete(context.Background(), 4))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListBuildsFilters(t *testing.T) {
	repo, mock := newRegistrantMock(t)
	paid := true

	mock.ExpectQuery(`WHERE deleted_at IS NULL AND is_paid = \? AND \(user_name LIKE \?`).
		WithArgs(true, "%kim%", "%kim%", "%kim%", "%kim%", "%kim%").
		WillReturnRows(sqlmock.NewRows(registrantCols))

	out, err := repo.List(context.Background(), ListFilter{Query: " kim ", Paid: &paid})
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.NotNil(t, out)
	assert.NoError(t, mock.ExpectationsWereMet())
}
