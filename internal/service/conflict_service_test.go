package service

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-booking-api/internal/dto"
	"github.com/noah-isme/campus-booking-api/internal/models"
	appErrors "github.com/noah-isme/campus-booking-api/pkg/errors"
	"github.com/noah-isme/campus-booking-api/pkg/timeslot"
)

func TestConflictServiceFindConflictsDetectsOverlap(t *testing.T) {
	service := newConflictServiceFixture(conflictFixtureConfig{
		sessions: []models.DatedSession{
			{ID: "sess-1", RoomID: "room-1", Date: mustDate("2025-09-01"), StartTime: "09:00", EndTime: "11:00"},
		},
	})

	conflicts, err := service.FindConflicts(context.Background(), nil, "room-1", mustDate("2025-09-01"),
		timeslot.MustClock("10:00"), timeslot.MustClock("12:00"), "")
	require.NoError(t, err)
	require.Len(t, conflicts, 1)
	assert.Equal(t, models.ConflictSourceSession, conflicts[0].Source)
	assert.Equal(t, "sess-1", conflicts[0].EntityID)
}

func TestConflictServiceTouchingIntervalsDoNotCollide(t *testing.T) {
	service := newConflictServiceFixture(conflictFixtureConfig{
		sessions: []models.DatedSession{
			{ID: "sess-1", RoomID: "room-1", Date: mustDate("2025-09-01"), StartTime: "09:00", EndTime: "11:00"},
		},
	})

	conflicts, err := service.FindConflicts(context.Background(), nil, "room-1", mustDate("2025-09-01"),
		timeslot.MustClock("11:00"), timeslot.MustClock("13:00"), "")
	require.NoError(t, err)
	assert.Empty(t, conflicts)
}

func TestConflictServiceExcludesSession(t *testing.T) {
	service := newConflictServiceFixture(conflictFixtureConfig{
		sessions: []models.DatedSession{
			{ID: "sess-1", RoomID: "room-1", Date: mustDate("2025-09-01"), StartTime: "09:00", EndTime: "11:00"},
			{ID: "sess-2", RoomID: "room-1", Date: mustDate("2025-09-01"), StartTime: "10:00", EndTime: "12:00"},
		},
	})

	conflicts, err := service.FindConflicts(context.Background(), nil, "room-1", mustDate("2025-09-01"),
		timeslot.MustClock("09:30"), timeslot.MustClock("10:30"), "sess-1")
	require.NoError(t, err)
	require.Len(t, conflicts, 1)
	assert.Equal(t, "sess-2", conflicts[0].EntityID)
}

func TestConflictServiceIncludesAcceptedLoans(t *testing.T) {
	service := newConflictServiceFixture(conflictFixtureConfig{
		loans: []models.RoomLoan{
			{ID: "loan-1", RoomID: "room-1", Date: mustDate("2025-09-01"), StartTime: "13:00", EndTime: "15:00", Status: models.LoanStatusAccepted},
		},
	})

	conflicts, err := service.FindConflicts(context.Background(), nil, "room-1", mustDate("2025-09-01"),
		timeslot.MustClock("14:00"), timeslot.MustClock("16:00"), "")
	require.NoError(t, err)
	require.Len(t, conflicts, 1)
	assert.Equal(t, models.ConflictSourceLoan, conflicts[0].Source)
	assert.Equal(t, "loan-1", conflicts[0].EntityID)
}

func TestConflictServiceReturnsEveryMatch(t *testing.T) {
	service := newConflictServiceFixture(conflictFixtureConfig{
		sessions: []models.DatedSession{
			{ID: "sess-1", RoomID: "room-1", Date: mustDate("2025-09-01"), StartTime: "09:00", EndTime: "11:00"},
		},
		loans: []models.RoomLoan{
			{ID: "loan-1", RoomID: "room-1", Date: mustDate("2025-09-01"), StartTime: "10:00", EndTime: "12:00", Status: models.LoanStatusAccepted},
		},
	})

	conflicts, err := service.FindConflicts(context.Background(), nil, "room-1", mustDate("2025-09-01"),
		timeslot.MustClock("09:30"), timeslot.MustClock("11:30"), "")
	require.NoError(t, err)
	require.Len(t, conflicts, 2)
	assert.Equal(t, models.ConflictSourceSession, conflicts[0].Source)
	assert.Equal(t, "sess-1", conflicts[0].EntityID)
	assert.Equal(t, models.ConflictSourceLoan, conflicts[1].Source)
	assert.Equal(t, "loan-1", conflicts[1].EntityID)
}

func TestConflictServiceFindConflictsIsRepeatable(t *testing.T) {
	service := newConflictServiceFixture(conflictFixtureConfig{
		sessions: []models.DatedSession{
			{ID: "sess-1", RoomID: "room-1", Date: mustDate("2025-09-01"), StartTime: "09:00", EndTime: "11:00"},
		},
		loans: []models.RoomLoan{
			{ID: "loan-1", RoomID: "room-1", Date: mustDate("2025-09-01"), StartTime: "10:00", EndTime: "12:00", Status: models.LoanStatusAccepted},
		},
	})

	first, err := service.FindConflicts(context.Background(), nil, "room-1", mustDate("2025-09-01"),
		timeslot.MustClock("09:30"), timeslot.MustClock("11:30"), "")
	require.NoError(t, err)
	second, err := service.FindConflicts(context.Background(), nil, "room-1", mustDate("2025-09-01"),
		timeslot.MustClock("09:30"), timeslot.MustClock("11:30"), "")
	require.NoError(t, err)
	require.NotEmpty(t, first)
	assert.Equal(t, first, second)
}

func TestConflictServiceCheckReportsFreeSlot(t *testing.T) {
	service := newConflictServiceFixture(conflictFixtureConfig{})

	resp, err := service.Check(context.Background(), dto.ConflictCheckRequest{
		RoomID:    "room-1",
		Date:      "2025-09-01",
		StartTime: "08:00",
		EndTime:   "10:00",
	})
	require.NoError(t, err)
	assert.True(t, resp.Free)
	assert.Empty(t, resp.Conflicts)
}

func TestConflictServiceCheckRejectsInvertedInterval(t *testing.T) {
	service := newConflictServiceFixture(conflictFixtureConfig{})

	_, err := service.Check(context.Background(), dto.ConflictCheckRequest{
		RoomID:    "room-1",
		Date:      "2025-09-01",
		StartTime: "12:00",
		EndTime:   "10:00",
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

// --- Fixtures ---

type conflictFixtureConfig struct {
	sessions []models.DatedSession
	loans    []models.RoomLoan
}

func newConflictServiceFixture(cfg conflictFixtureConfig) *ConflictService {
	sessions := conflictSessionStub{items: cfg.sessions}
	loans := conflictLoanStub{items: cfg.loans}
	return NewConflictService(sessions, loans, nil, nil, nil)
}

type conflictSessionStub struct {
	items []models.DatedSession
}

func (s conflictSessionStub) ListByRoomAndDate(ctx context.Context, exec sqlx.ExtContext, roomID string, date time.Time) ([]models.DatedSession, error) {
	var out []models.DatedSession
	for _, item := range s.items {
		if item.RoomID == roomID && timeslot.SameDate(item.Date, date) {
			out = append(out, item)
		}
	}
	return out, nil
}

type conflictLoanStub struct {
	items []models.RoomLoan
}

func (s conflictLoanStub) ListAcceptedByRoomAndDate(ctx context.Context, exec sqlx.ExtContext, roomID string, date time.Time) ([]models.RoomLoan, error) {
	var out []models.RoomLoan
	for _, item := range s.items {
		if item.RoomID == roomID && timeslot.SameDate(item.Date, date) && item.Status == models.LoanStatusAccepted {
			out = append(out, item)
		}
	}
	return out, nil
}

func mustDate(raw string) time.Time {
	d, err := timeslot.ParseDate(raw)
	if err != nil {
		panic(err)
	}
	return d
}
