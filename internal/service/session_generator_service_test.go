package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-booking-api/internal/dto"
	"github.com/noah-isme/campus-booking-api/internal/models"
	"github.com/noah-isme/campus-booking-api/pkg/config"
	appErrors "github.com/noah-isme/campus-booking-api/pkg/errors"
	"github.com/noah-isme/campus-booking-api/pkg/timeslot"
)

func TestSessionGeneratorGenerateSuccess(t *testing.T) {
	tx, mock := newTxProviderMock(t)
	sessions := &generatorSessionStoreStub{}
	service := newGeneratorServiceFixture(generatorFixtureConfig{tx: tx, sessions: sessions})

	for i := 0; i < 4; i++ {
		mock.ExpectBegin()
		mock.ExpectCommit()
	}

	// 2025-09-01 is a Monday, matching the template weekday.
	resp, err := service.Generate(context.Background(), dto.GenerateSessionsRequest{
		TemplateID:    "tpl-1",
		SemesterStart: "2025-09-01",
		MeetingCount:  4,
	}, "admin-1")
	require.NoError(t, err)
	require.Len(t, resp.Created, 4)
	assert.Empty(t, resp.Skipped)

	want := []string{"2025-09-01", "2025-09-08", "2025-09-15", "2025-09-22"}
	for i, session := range resp.Created {
		assert.Equal(t, want[i], timeslot.FormatDate(session.Date))
		assert.Equal(t, "room-1", session.RoomID)
		assert.Equal(t, "09:00", session.StartTime)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionGeneratorSkipsConflictedDates(t *testing.T) {
	tx, mock := newTxProviderMock(t)
	sessions := &generatorSessionStoreStub{}
	conflicts := conflictFinderStub{byDate: map[string][]models.BookingConflict{
		"2025-09-08": {{Source: models.ConflictSourceLoan, EntityID: "loan-9", RoomID: "room-1"}},
	}}
	service := newGeneratorServiceFixture(generatorFixtureConfig{tx: tx, sessions: sessions, conflicts: conflicts})

	mock.ExpectBegin()
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectRollback()
	mock.ExpectBegin()
	mock.ExpectCommit()

	resp, err := service.Generate(context.Background(), dto.GenerateSessionsRequest{
		TemplateID:    "tpl-1",
		SemesterStart: "2025-09-01",
		MeetingCount:  3,
	}, "admin-1")
	require.NoError(t, err)
	assert.Len(t, resp.Created, 2)
	require.Len(t, resp.Skipped, 1)
	assert.Equal(t, "2025-09-08", resp.Skipped[0].Date)
	assert.Contains(t, resp.Skipped[0].Reason, "loan-9")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionGeneratorUsesSerializableTransactions(t *testing.T) {
	inner, mock := newTxProviderMock(t)
	recorder := &txOptionsRecorder{inner: inner}
	service := newGeneratorServiceFixture(generatorFixtureConfig{tx: recorder})

	mock.ExpectBegin()
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectCommit()

	_, err := service.Generate(context.Background(), dto.GenerateSessionsRequest{
		TemplateID:    "tpl-1",
		SemesterStart: "2025-09-01",
		MeetingCount:  2,
	}, "admin-1")
	require.NoError(t, err)
	require.Len(t, recorder.opts, 2)
	for _, opts := range recorder.opts {
		require.NotNil(t, opts)
		assert.Equal(t, sql.LevelSerializable, opts.Isolation)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionGeneratorSkipsDateLostToConcurrentWriter(t *testing.T) {
	tx, mock := newTxProviderMock(t)
	sessions := &generatorSessionStoreStub{createErrByDate: map[string]error{
		"2025-09-08": &pq.Error{Code: "40001"},
	}}
	service := newGeneratorServiceFixture(generatorFixtureConfig{tx: tx, sessions: sessions})

	mock.ExpectBegin()
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectRollback()
	mock.ExpectBegin()
	mock.ExpectCommit()

	resp, err := service.Generate(context.Background(), dto.GenerateSessionsRequest{
		TemplateID:    "tpl-1",
		SemesterStart: "2025-09-01",
		MeetingCount:  3,
	}, "admin-1")
	require.NoError(t, err)
	assert.Len(t, resp.Created, 2)
	require.Len(t, resp.Skipped, 1)
	assert.Equal(t, "2025-09-08", resp.Skipped[0].Date)
	assert.Contains(t, resp.Skipped[0].Reason, "concurrent")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionGeneratorGenerateIsRepeatable(t *testing.T) {
	conflicts := conflictFinderStub{byDate: map[string][]models.BookingConflict{
		"2025-09-15": {{Source: models.ConflictSourceSession, EntityID: "sess-9", RoomID: "room-1"}},
	}}
	run := func() *dto.GenerateSessionsResponse {
		tx, mock := newTxProviderMock(t)
		service := newGeneratorServiceFixture(generatorFixtureConfig{tx: tx, conflicts: conflicts})
		mock.ExpectBegin()
		mock.ExpectCommit()
		mock.ExpectBegin()
		mock.ExpectCommit()
		mock.ExpectBegin()
		mock.ExpectRollback()
		mock.ExpectBegin()
		mock.ExpectCommit()

		resp, err := service.Generate(context.Background(), dto.GenerateSessionsRequest{
			TemplateID:    "tpl-1",
			SemesterStart: "2025-09-01",
			MeetingCount:  4,
		}, "admin-1")
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
		return resp
	}

	first := run()
	second := run()

	dates := func(sessions []models.DatedSession) []string {
		out := make([]string, 0, len(sessions))
		for _, s := range sessions {
			out = append(out, timeslot.FormatDate(s.Date))
		}
		return out
	}
	assert.Equal(t, dates(first.Created), dates(second.Created))
	assert.Equal(t, first.Skipped, second.Skipped)
}

func TestSessionGeneratorRejectsInactiveTemplate(t *testing.T) {
	service := newGeneratorServiceFixture(generatorFixtureConfig{
		template: &models.WeeklyTemplate{
			ID: "tpl-1", RoomID: "room-1", Weekday: time.Monday,
			StartTime: "09:00", EndTime: "11:00", Status: models.TemplateStatusInactive,
		},
	})

	_, err := service.Generate(context.Background(), dto.GenerateSessionsRequest{
		TemplateID:    "tpl-1",
		SemesterStart: "2025-09-01",
		MeetingCount:  2,
	}, "admin-1")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrStateConflict.Code, appErr.Code)
}

func TestSessionGeneratorRejectsOversizedCount(t *testing.T) {
	service := newGeneratorServiceFixture(generatorFixtureConfig{})

	_, err := service.Generate(context.Background(), dto.GenerateSessionsRequest{
		TemplateID:    "tpl-1",
		SemesterStart: "2025-09-01",
		MeetingCount:  25,
	}, "admin-1")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

// --- Fixtures ---

type generatorFixtureConfig struct {
	template  *models.WeeklyTemplate
	sessions  *generatorSessionStoreStub
	conflicts conflictFinder
	tx        txProvider
}

func newGeneratorServiceFixture(cfg generatorFixtureConfig) *SessionGeneratorService {
	tpl := cfg.template
	if tpl == nil {
		tpl = &models.WeeklyTemplate{
			ID: "tpl-1", CourseID: "course-1", RoomID: "room-1", Weekday: time.Monday,
			StartTime: "09:00", EndTime: "11:00", Status: models.TemplateStatusActive,
		}
	}
	sessions := cfg.sessions
	if sessions == nil {
		sessions = &generatorSessionStoreStub{}
	}
	conflicts := cfg.conflicts
	if conflicts == nil {
		conflicts = conflictFinderStub{}
	}
	tx := cfg.tx
	if tx == nil {
		tx = noopTxProvider{}
	}
	return NewSessionGeneratorService(
		generatorTemplateStub{tpl: tpl},
		sessions,
		conflicts,
		tx,
		&cacheInvalidatorStub{},
		&auditRecorderStub{},
		nil,
		config.BookingConfig{MaxMeetings: 20},
		nil,
		nil,
	)
}

type generatorTemplateStub struct {
	tpl *models.WeeklyTemplate
}

func (s generatorTemplateStub) FindByID(ctx context.Context, id string) (*models.WeeklyTemplate, error) {
	if s.tpl == nil || s.tpl.ID != id {
		return nil, sql.ErrNoRows
	}
	tpl := *s.tpl
	return &tpl, nil
}

type generatorSessionStoreStub struct {
	items           []models.DatedSession
	createErrByDate map[string]error
}

func (s *generatorSessionStoreStub) Create(ctx context.Context, exec sqlx.ExtContext, session *models.DatedSession) error {
	if err := s.createErrByDate[timeslot.FormatDate(session.Date)]; err != nil {
		return err
	}
	session.ID = fmt.Sprintf("sess-%d", len(s.items)+1)
	s.items = append(s.items, *session)
	return nil
}

func (s *generatorSessionStoreStub) ListByTemplate(ctx context.Context, templateID string) ([]models.DatedSession, error) {
	var out []models.DatedSession
	for _, item := range s.items {
		if item.TemplateID == templateID {
			out = append(out, item)
		}
	}
	return out, nil
}

func (s *generatorSessionStoreStub) List(ctx context.Context, filter models.SessionFilter) ([]models.DatedSession, int, error) {
	return s.items, len(s.items), nil
}

func (s *generatorSessionStoreStub) FindByID(ctx context.Context, id string) (*models.DatedSession, error) {
	for _, item := range s.items {
		if item.ID == id {
			found := item
			return &found, nil
		}
	}
	return nil, sql.ErrNoRows
}

type conflictFinderStub struct {
	byDate map[string][]models.BookingConflict
	err    error
}

func (c conflictFinderStub) FindConflicts(ctx context.Context, exec sqlx.ExtContext, roomID string, date time.Time, start, end timeslot.Clock, excludeSessionID string) ([]models.BookingConflict, error) {
	if c.err != nil {
		return nil, c.err
	}
	return c.byDate[timeslot.FormatDate(date)], nil
}

type cacheInvalidatorStub struct {
	patterns []string
}

func (c *cacheInvalidatorStub) Invalidate(ctx context.Context, pattern string) error {
	c.patterns = append(c.patterns, pattern)
	return nil
}

type auditRecorderStub struct {
	logs []models.AuditLog
}

func (a *auditRecorderStub) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	a.logs = append(a.logs, *log)
	return nil
}

type noopTxProvider struct{}

func (noopTxProvider) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return nil, appErrors.Clone(appErrors.ErrInternal, "transaction provider unavailable")
}

type txProviderMock struct {
	db *sqlx.DB
}

func newTxProviderMock(t *testing.T) (txProvider, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	t.Cleanup(func() { db.Close() })
	return &txProviderMock{db: sqlxdb}, mock
}

func (t *txProviderMock) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return t.db.BeginTxx(ctx, opts)
}

type txOptionsRecorder struct {
	inner txProvider
	opts  []*sql.TxOptions
}

func (r *txOptionsRecorder) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	r.opts = append(r.opts, opts)
	return r.inner.BeginTxx(ctx, opts)
}
