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

func newSessionRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestSessionRepositoryListByRoomAndDate(t *testing.T) {
	db, mock, cleanup := newSessionRepoMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	date := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "template_id", "room_id", "date", "start_time", "end_time", "created_at", "updated_at"}).
		AddRow("sess-1", "tpl-1", "room-1", date, "09:00", "11:00", time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, template_id, room_id, date, start_time, end_time, created_at, updated_at FROM dated_sessions WHERE room_id = $1 AND date = $2 ORDER BY start_time ASC")).
		WithArgs("room-1", date).
		WillReturnRows(rows)

	sessions, err := repo.ListByRoomAndDate(context.Background(), nil, "room-1", date)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "sess-1", sessions[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newSessionRepoMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO dated_sessions")).
		WithArgs(sqlmock.AnyArg(), "tpl-1", "room-1", sqlmock.AnyArg(), "09:00", "11:00", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	session := &models.DatedSession{
		TemplateID: "tpl-1",
		RoomID:     "room-1",
		Date:       time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC),
		StartTime:  "09:00",
		EndTime:    "11:00",
	}
	err := repo.Create(context.Background(), nil, session)
	require.NoError(t, err)
	assert.NotEmpty(t, session.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryListWithFilters(t *testing.T) {
	db, mock, cleanup := newSessionRepoMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	rows := sqlmock.NewRows([]string{"id", "template_id", "room_id", "date", "start_time", "end_time", "created_at", "updated_at"}).
		AddRow("sess-1", "tpl-1", "room-1", time.Now(), "09:00", "11:00", time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("FROM dated_sessions WHERE 1=1 AND template_id = $1 AND room_id = $2 ORDER BY date ASC, start_time ASC LIMIT 20 OFFSET 0")).
		WithArgs("tpl-1", "room-1").
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM dated_sessions WHERE 1=1 AND template_id = $1 AND room_id = $2")).
		WithArgs("tpl-1", "room-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	sessions, total, err := repo.List(context.Background(), models.SessionFilter{TemplateID: "tpl-1", RoomID: "room-1"})
	require.NoError(t, err)
	assert.Len(t, sessions, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryUpdateSchedule(t *testing.T) {
	db, mock, cleanup := newSessionRepoMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	date := time.Date(2025, 9, 10, 0, 0, 0, 0, time.UTC)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE dated_sessions SET room_id = $1, date = $2, start_time = $3, end_time = $4, updated_at = $5 WHERE id = $6")).
		WithArgs("room-2", date, "10:00", "12:00", sqlmock.AnyArg(), "sess-1").
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.UpdateSchedule(context.Background(), nil, "sess-1", "room-2", date, "10:00", "12:00")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryUpdateScheduleNotFound(t *testing.T) {
	db, mock, cleanup := newSessionRepoMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE dated_sessions SET")).
		WithArgs("room-2", sqlmock.AnyArg(), "10:00", "12:00", sqlmock.AnyArg(), "sess-404").
		WillReturnResult(sqlmock.NewResult(1, 0))

	err := repo.UpdateSchedule(context.Background(), nil, "sess-404", "room-2", time.Now(), "10:00", "12:00")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
