package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-booking-api/internal/dto"
	"github.com/noah-isme/campus-booking-api/internal/models"
	"github.com/noah-isme/campus-booking-api/pkg/config"
	appErrors "github.com/noah-isme/campus-booking-api/pkg/errors"
)

func TestLoanServiceCreatePending(t *testing.T) {
	loans := &loanStoreStub{}
	audit := &auditRecorderStub{}
	service := newLoanServiceFixture(loanFixtureConfig{loans: loans, audit: audit})

	loan, err := service.Create(context.Background(), dto.CreateLoanRequest{
		RoomID:    "room-1",
		Date:      "2025-09-05",
		StartTime: "13:00",
		EndTime:   "15:00",
		Reason:    "study group",
	}, models.NewStudentActor("user-1", "student-1"))
	require.NoError(t, err)
	assert.Equal(t, models.LoanStatusPending, loan.Status)
	assert.Equal(t, "user-1", loan.Requester.UserID)
	require.Len(t, audit.logs, 1)
	assert.Equal(t, models.AuditActionLoanRequest, audit.logs[0].Action)
}

func TestLoanServiceCreateRejectsAdmins(t *testing.T) {
	service := newLoanServiceFixture(loanFixtureConfig{})

	_, err := service.Create(context.Background(), dto.CreateLoanRequest{
		RoomID:    "room-1",
		Date:      "2025-09-05",
		StartTime: "13:00",
		EndTime:   "15:00",
		Reason:    "meeting",
	}, models.NewAdminActor("admin-1", "adm-1"))
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
}

func TestLoanServiceCreateEnforcesGranularity(t *testing.T) {
	service := newLoanServiceFixture(loanFixtureConfig{granularity: 30})

	_, err := service.Create(context.Background(), dto.CreateLoanRequest{
		RoomID:    "room-1",
		Date:      "2025-09-05",
		StartTime: "13:10",
		EndTime:   "15:00",
		Reason:    "study group",
	}, models.NewStudentActor("user-1", "student-1"))
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestLoanServiceCreateRejectsUnusableRoom(t *testing.T) {
	service := newLoanServiceFixture(loanFixtureConfig{roomStatus: models.RoomStatusUnderRepair})

	_, err := service.Create(context.Background(), dto.CreateLoanRequest{
		RoomID:    "room-1",
		Date:      "2025-09-05",
		StartTime: "13:00",
		EndTime:   "15:00",
		Reason:    "study group",
	}, models.NewStudentActor("user-1", "student-1"))
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrStateConflict.Code, appErr.Code)
}

func TestLoanServiceAcceptSuccess(t *testing.T) {
	tx, mock := newTxProviderMock(t)
	loans := &loanStoreStub{items: []models.RoomLoan{pendingLoan("loan-1", "user-1")}}
	cache := &cacheInvalidatorStub{}
	service := newLoanServiceFixture(loanFixtureConfig{loans: loans, tx: tx, cache: cache})

	mock.ExpectBegin()
	mock.ExpectCommit()

	loan, err := service.Accept(context.Background(), "loan-1", models.NewAdminActor("admin-1", "adm-1"))
	require.NoError(t, err)
	assert.Equal(t, models.LoanStatusAccepted, loan.Status)
	require.NotNil(t, loan.DecidedBy)
	assert.Equal(t, "admin-1", *loan.DecidedBy)
	assert.NotNil(t, loan.DecidedAt)
	assert.Equal(t, []string{"availability:room-1:*"}, cache.patterns)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoanServiceAcceptConflict(t *testing.T) {
	tx, mock := newTxProviderMock(t)
	loans := &loanStoreStub{items: []models.RoomLoan{pendingLoan("loan-1", "user-1")}}
	conflicts := conflictFinderStub{byDate: map[string][]models.BookingConflict{
		"2025-09-05": {{Source: models.ConflictSourceSession, EntityID: "sess-3"}},
	}}
	service := newLoanServiceFixture(loanFixtureConfig{loans: loans, tx: tx, conflicts: conflicts})

	mock.ExpectBegin()
	mock.ExpectRollback()

	_, err := service.Accept(context.Background(), "loan-1", models.NewAdminActor("admin-1", "adm-1"))
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
	assert.Equal(t, models.LoanStatusPending, loans.items[0].Status, "conflicted acceptance must leave the loan pending")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoanServiceDecisionIsTerminal(t *testing.T) {
	tx, mock := newTxProviderMock(t)
	decided := pendingLoan("loan-1", "user-1")
	decided.Status = models.LoanStatusRejected
	loans := &loanStoreStub{items: []models.RoomLoan{decided}}
	service := newLoanServiceFixture(loanFixtureConfig{loans: loans, tx: tx})

	mock.ExpectBegin()
	mock.ExpectRollback()

	_, err := service.Accept(context.Background(), "loan-1", models.NewAdminActor("admin-1", "adm-1"))
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrStateConflict.Code, appErr.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoanServiceRejectSkipsConflictCheck(t *testing.T) {
	tx, mock := newTxProviderMock(t)
	loans := &loanStoreStub{items: []models.RoomLoan{pendingLoan("loan-1", "user-1")}}
	conflicts := conflictFinderStub{byDate: map[string][]models.BookingConflict{
		"2025-09-05": {{Source: models.ConflictSourceSession, EntityID: "sess-3"}},
	}}
	service := newLoanServiceFixture(loanFixtureConfig{loans: loans, tx: tx, conflicts: conflicts})

	mock.ExpectBegin()
	mock.ExpectCommit()

	loan, err := service.Reject(context.Background(), "loan-1", models.NewAdminActor("admin-1", "adm-1"))
	require.NoError(t, err)
	assert.Equal(t, models.LoanStatusRejected, loan.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoanServiceDecideRequiresAdmin(t *testing.T) {
	service := newLoanServiceFixture(loanFixtureConfig{})

	_, err := service.Accept(context.Background(), "loan-1", models.NewLecturerActor("user-2", "lect-1"))
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
}

func TestLoanServiceGetScopesToRequester(t *testing.T) {
	loans := &loanStoreStub{items: []models.RoomLoan{pendingLoan("loan-1", "user-1")}}
	service := newLoanServiceFixture(loanFixtureConfig{loans: loans})

	_, err := service.Get(context.Background(), "loan-1", models.NewStudentActor("user-2", "student-2"))
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)

	loan, err := service.Get(context.Background(), "loan-1", models.NewStudentActor("user-1", "student-1"))
	require.NoError(t, err)
	assert.Equal(t, "loan-1", loan.ID)
}

// --- Fixtures ---

type loanFixtureConfig struct {
	loans       *loanStoreStub
	conflicts   conflictFinder
	tx          txProvider
	cache       *cacheInvalidatorStub
	audit       *auditRecorderStub
	roomStatus  models.RoomStatus
	granularity int
}

func newLoanServiceFixture(cfg loanFixtureConfig) *LoanService {
	loans := cfg.loans
	if loans == nil {
		loans = &loanStoreStub{}
	}
	conflicts := cfg.conflicts
	if conflicts == nil {
		conflicts = conflictFinderStub{}
	}
	tx := cfg.tx
	if tx == nil {
		tx = noopTxProvider{}
	}
	cache := cfg.cache
	if cache == nil {
		cache = &cacheInvalidatorStub{}
	}
	audit := cfg.audit
	if audit == nil {
		audit = &auditRecorderStub{}
	}
	roomStatus := cfg.roomStatus
	if roomStatus == "" {
		roomStatus = models.RoomStatusUsable
	}
	return NewLoanService(
		loans,
		loanRoomStub{status: roomStatus},
		conflicts,
		tx,
		cache,
		audit,
		nil,
		config.BookingConfig{LoanGranularityMin: cfg.granularity},
		nil,
		nil,
	)
}

func pendingLoan(id, requesterID string) models.RoomLoan {
	return models.RoomLoan{
		ID:        id,
		Requester: models.NewStudentActor(requesterID, "student-"+requesterID),
		RoomID:    "room-1",
		Date:      mustDate("2025-09-05"),
		StartTime: "13:00",
		EndTime:   "15:00",
		Reason:    "study group",
		Status:    models.LoanStatusPending,
	}
}

type loanStoreStub struct {
	items []models.RoomLoan
}

func (s *loanStoreStub) List(ctx context.Context, filter models.LoanFilter) ([]models.RoomLoan, int, error) {
	var out []models.RoomLoan
	for _, item := range s.items {
		if filter.RequesterID != "" && item.Requester.UserID != filter.RequesterID {
			continue
		}
		out = append(out, item)
	}
	return out, len(out), nil
}

func (s *loanStoreStub) FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.RoomLoan, error) {
	for _, item := range s.items {
		if item.ID == id {
			found := item
			return &found, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *loanStoreStub) Create(ctx context.Context, loan *models.RoomLoan) error {
	loan.ID = fmt.Sprintf("loan-%d", len(s.items)+1)
	s.items = append(s.items, *loan)
	return nil
}

func (s *loanStoreStub) UpdateStatus(ctx context.Context, exec sqlx.ExtContext, id string, status models.LoanStatus, decidedBy string) error {
	for idx := range s.items {
		if s.items[idx].ID == id {
			if s.items[idx].Status.Terminal() {
				return sql.ErrNoRows
			}
			s.items[idx].Status = status
			s.items[idx].DecidedBy = &decidedBy
			return nil
		}
	}
	return sql.ErrNoRows
}

type loanRoomStub struct {
	status models.RoomStatus
}

func (s loanRoomStub) FindByID(ctx context.Context, id string) (*models.Room, error) {
	return &models.Room{ID: id, Name: "Lab " + id, Status: s.status}, nil
}
