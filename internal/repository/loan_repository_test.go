package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-booking-api/internal/models"
)

func newLoanRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func loanMockColumns() []string {
	return []string{"id", "user_id", "student_id", "lecturer_id", "room_id", "date", "start_time", "end_time", "reason", "status", "decided_by", "decided_at", "created_at", "updated_at"}
}

func TestLoanRepositoryListAcceptedByRoomAndDate(t *testing.T) {
	db, mock, cleanup := newLoanRepoMock(t)
	defer cleanup()
	repo := NewLoanRepository(db)

	date := time.Date(2025, 9, 5, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows(loanMockColumns()).
		AddRow("loan-1", "user-1", "student-1", nil, "room-1", date, "13:00", "15:00", "study group", string(models.LoanStatusAccepted), "admin-1", time.Now(), time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("FROM room_loans WHERE room_id = $1 AND date = $2 AND status = $3 ORDER BY start_time ASC")).
		WithArgs("room-1", date, models.LoanStatusAccepted).
		WillReturnRows(rows)

	loans, err := repo.ListAcceptedByRoomAndDate(context.Background(), nil, "room-1", date)
	require.NoError(t, err)
	require.Len(t, loans, 1)
	assert.Equal(t, models.RoleStudent, loans[0].Requester.Role)
	require.NotNil(t, loans[0].Requester.Student)
	assert.Equal(t, "student-1", loans[0].Requester.Student.StudentID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoanRepositoryFindByIDLocksInsideTransaction(t *testing.T) {
	db, mock, cleanup := newLoanRepoMock(t)
	defer cleanup()
	repo := NewLoanRepository(db)

	rows := sqlmock.NewRows(loanMockColumns()).
		AddRow("loan-1", "user-1", nil, "lect-1", "room-1", time.Now(), "13:00", "15:00", "guest lecture", string(models.LoanStatusPending), nil, nil, time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("FROM room_loans WHERE id = $1 FOR UPDATE")).
		WithArgs("loan-1").
		WillReturnRows(rows)

	loan, err := repo.FindByID(context.Background(), db, "loan-1")
	require.NoError(t, err)
	assert.Equal(t, models.RoleLecturer, loan.Requester.Role)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoanRepositoryFindByIDWithoutLock(t *testing.T) {
	db, mock, cleanup := newLoanRepoMock(t)
	defer cleanup()
	repo := NewLoanRepository(db)

	rows := sqlmock.NewRows(loanMockColumns()).
		AddRow("loan-1", "user-1", "student-1", nil, "room-1", time.Now(), "13:00", "15:00", "study group", string(models.LoanStatusPending), nil, nil, time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("FROM room_loans WHERE id = $1") + "$").
		WithArgs("loan-1").
		WillReturnRows(rows)

	_, err := repo.FindByID(context.Background(), nil, "loan-1")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoanRepositoryCreateMapsStudentRequester(t *testing.T) {
	db, mock, cleanup := newLoanRepoMock(t)
	defer cleanup()
	repo := NewLoanRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO room_loans")).
		WithArgs(sqlmock.AnyArg(), "user-1", sqlmock.AnyArg(), sqlmock.AnyArg(), "room-1", sqlmock.AnyArg(), "13:00", "15:00", "study group", string(models.LoanStatusPending), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	loan := &models.RoomLoan{
		Requester: models.NewStudentActor("user-1", "student-1"),
		RoomID:    "room-1",
		Date:      time.Date(2025, 9, 5, 0, 0, 0, 0, time.UTC),
		StartTime: "13:00",
		EndTime:   "15:00",
		Reason:    "study group",
	}
	err := repo.Create(context.Background(), loan)
	require.NoError(t, err)
	assert.NotEmpty(t, loan.ID)
	assert.Equal(t, models.LoanStatusPending, loan.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoanRepositoryUpdateStatus(t *testing.T) {
	db, mock, cleanup := newLoanRepoMock(t)
	defer cleanup()
	repo := NewLoanRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE room_loans SET status = $1, decided_by = $2, decided_at = $3, updated_at = $3 WHERE id = $4")).
		WithArgs(models.LoanStatusAccepted, "admin-1", sqlmock.AnyArg(), "loan-1").
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.UpdateStatus(context.Background(), nil, "loan-1", models.LoanStatusAccepted, "admin-1")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoanRepositoryUpdateStatusAlreadyDecided(t *testing.T) {
	db, mock, cleanup := newLoanRepoMock(t)
	defer cleanup()
	repo := NewLoanRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE room_loans SET")).
		WithArgs(models.LoanStatusAccepted, "admin-1", sqlmock.AnyArg(), "loan-1").
		WillReturnResult(sqlmock.NewResult(1, 0))

	err := repo.UpdateStatus(context.Background(), nil, "loan-1", models.LoanStatusAccepted, "admin-1")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
