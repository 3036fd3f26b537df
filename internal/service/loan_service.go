package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-booking-api/internal/dto"
	"github.com/noah-isme/campus-booking-api/internal/models"
	"github.com/noah-isme/campus-booking-api/pkg/config"
	appErrors "github.com/noah-isme/campus-booking-api/pkg/errors"
	"github.com/noah-isme/campus-booking-api/pkg/timeslot"
)

type auditLogger interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type loanStore interface {
	List(ctx context.Context, filter models.LoanFilter) ([]models.RoomLoan, int, error)
	FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.RoomLoan, error)
	Create(ctx context.Context, loan *models.RoomLoan) error
	UpdateStatus(ctx context.Context, exec sqlx.ExtContext, id string, status models.LoanStatus, decidedBy string) error
}

type loanRoomLookup interface {
	FindByID(ctx context.Context, id string) (*models.Room, error)
}

type loanMetrics interface {
	RecordLoanDecision(decision string)
}

// LoanService owns the room-loan lifecycle: open in PENDING, then a single
// terminal admin decision. Acceptance is the commit point; only then does
// the loan participate in conflict checks.
type LoanService struct {
	loans     loanStore
	rooms     loanRoomLookup
	conflicts conflictFinder
	tx        txProvider
	cache     availabilityInvalidator
	audit     auditLogger
	metrics   loanMetrics
	policy    config.BookingConfig
	validator *validator.Validate
	logger    *zap.Logger
}

// NewLoanService constructs the service.
func NewLoanService(
	loans loanStore,
	rooms loanRoomLookup,
	conflicts conflictFinder,
	tx txProvider,
	cache availabilityInvalidator,
	audit auditLogger,
	metrics loanMetrics,
	policy config.BookingConfig,
	validate *validator.Validate,
	logger *zap.Logger,
) *LoanService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LoanService{
		loans:     loans,
		rooms:     rooms,
		conflicts: conflicts,
		tx:        tx,
		cache:     cache,
		audit:     audit,
		metrics:   metrics,
		policy:    policy,
		validator: validate,
		logger:    logger,
	}
}

// Create opens a loan request in PENDING state. The slot must respect the
// configured granularity, the room must be usable, and the requester must
// be a student or lecturer. No conflict check happens here: overlapping
// pending requests are allowed and race at acceptance time.
func (s *LoanService) Create(ctx context.Context, req dto.CreateLoanRequest, requester models.Actor) (*models.RoomLoan, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid loan payload")
	}
	if requester.Role != models.RoleStudent && requester.Role != models.RoleLecturer {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only students and lecturers may request room loans")
	}
	date, err := timeslot.ParseDate(req.Date)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "date must be YYYY-MM-DD")
	}
	start, end, err := parseInterval(req.StartTime, req.EndTime)
	if err != nil {
		return nil, err
	}
	if !start.Aligned(s.policy.LoanGranularityMin) || !end.Aligned(s.policy.LoanGranularityMin) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "loan times must fall on the booking grid")
	}

	room, err := s.rooms.FindByID(ctx, req.RoomID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "room not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load room")
	}
	if room.Status != models.RoomStatusUsable {
		return nil, appErrors.Clone(appErrors.ErrStateConflict, "room is not usable")
	}

	loan := &models.RoomLoan{
		Requester: requester,
		RoomID:    room.ID,
		Date:      date,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		Reason:    req.Reason,
		Status:    models.LoanStatusPending,
	}
	if err := s.loans.Create(ctx, loan); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create loan request")
	}
	s.emitAudit(ctx, &models.AuditLog{
		UserID:     &loan.Requester.UserID,
		Action:     models.AuditActionLoanRequest,
		Resource:   "room_loan",
		ResourceID: &loan.ID,
	})
	return loan, nil
}

// List returns loans scoped to the actor: admins see everything, other
// actors only their own requests.
func (s *LoanService) List(ctx context.Context, filter models.LoanFilter, actor models.Actor) ([]models.RoomLoan, *models.Pagination, error) {
	if actor.Role != models.RoleAdmin {
		filter.RequesterID = actor.UserID
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	rows, total, err := s.loans.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list loans")
	}
	return rows, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// Get returns a loan, enforcing that non-admins only see their own.
func (s *LoanService) Get(ctx context.Context, id string, actor models.Actor) (*models.RoomLoan, error) {
	loan, err := s.loans.FindByID(ctx, nil, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "loan not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load loan")
	}
	if actor.Role != models.RoleAdmin && loan.Requester.UserID != actor.UserID {
		return nil, appErrors.ErrForbidden
	}
	return loan, nil
}

// Accept moves a pending loan to ACCEPTED. The row is locked and the slot
// re-checked against committed bookings inside one serializable
// transaction, so two overlapping loans can never both land.
func (s *LoanService) Accept(ctx context.Context, id string, decider models.Actor) (*models.RoomLoan, error) {
	return s.decide(ctx, id, decider, models.LoanStatusAccepted)
}

// Reject moves a pending loan to REJECTED. No conflict check: a rejection
// never books anything.
func (s *LoanService) Reject(ctx context.Context, id string, decider models.Actor) (*models.RoomLoan, error) {
	return s.decide(ctx, id, decider, models.LoanStatusRejected)
}

func (s *LoanService) decide(ctx context.Context, id string, decider models.Actor, next models.LoanStatus) (*models.RoomLoan, error) {
	if decider.Role != models.RoleAdmin {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only admins may review loan requests")
	}

	tx, err := s.tx.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin review transaction")
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	loan, err := s.loans.FindByID(ctx, tx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "loan not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load loan")
	}
	if loan.Status.Terminal() {
		return nil, appErrors.Clone(appErrors.ErrStateConflict, "loan has already been decided")
	}

	if next == models.LoanStatusAccepted {
		start, end, err := parseInterval(loan.StartTime, loan.EndTime)
		if err != nil {
			return nil, err
		}
		conflicts, err := s.conflicts.FindConflicts(ctx, tx, loan.RoomID, loan.Date, start, end, "")
		if err != nil {
			return nil, err
		}
		if len(conflicts) > 0 {
			return nil, appErrors.Wrap(
				&models.BookingConflictError{Message: "slot is no longer free", Conflicts: conflicts},
				appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "slot is no longer free",
			)
		}
	}

	if err := s.loans.UpdateStatus(ctx, tx, loan.ID, next, decider.UserID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrStateConflict, "loan has already been decided")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update loan status")
	}
	if err := tx.Commit(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit review transaction")
	}
	committed = true

	now := time.Now().UTC()
	loan.Status = next
	loan.DecidedBy = &decider.UserID
	loan.DecidedAt = &now

	if next == models.LoanStatusAccepted && s.cache != nil {
		if err := s.cache.Invalidate(ctx, availabilityCachePattern(loan.RoomID)); err != nil {
			s.logger.Warn("failed to invalidate availability cache", zap.Error(err))
		}
	}
	action := models.AuditActionLoanReject
	decision := "reject"
	if next == models.LoanStatusAccepted {
		action = models.AuditActionLoanAccept
		decision = "accept"
	}
	if s.metrics != nil {
		s.metrics.RecordLoanDecision(decision)
	}
	s.emitAudit(ctx, &models.AuditLog{
		UserID:     &decider.UserID,
		Action:     action,
		Resource:   "room_loan",
		ResourceID: &loan.ID,
	})
	s.logger.Info("loan decided",
		zap.String("loan_id", loan.ID),
		zap.String("status", string(next)),
		zap.String("decided_by", decider.UserID),
	)
	return loan, nil
}

func (s *LoanService) emitAudit(ctx context.Context, log *models.AuditLog) {
	if s.audit == nil || log == nil {
		return
	}
	log.IPAddress = "system"
	log.UserAgent = "loan-service"
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to persist audit log", zap.Error(err))
	}
}
