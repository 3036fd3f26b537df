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
	appErrors "github.com/noah-isme/campus-booking-api/pkg/errors"
	"github.com/noah-isme/campus-booking-api/pkg/timeslot"
)

type changeRequestStore interface {
	List(ctx context.Context, filter models.ChangeRequestFilter) ([]models.ScheduleChangeRequest, int, error)
	FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.ScheduleChangeRequest, error)
	Create(ctx context.Context, req *models.ScheduleChangeRequest) error
	Confirm(ctx context.Context, exec sqlx.ExtContext, id, confirmedBy string) error
	Delete(ctx context.Context, id string) error
}

type changeTemplateStore interface {
	FindByID(ctx context.Context, id string) (*models.WeeklyTemplate, error)
	UpdateSchedule(ctx context.Context, exec sqlx.ExtContext, id string, weekday time.Weekday, roomID, startTime, endTime string) error
}

type changeSessionStore interface {
	FindByID(ctx context.Context, id string) (*models.DatedSession, error)
	ListByTemplate(ctx context.Context, templateID string) ([]models.DatedSession, error)
	UpdateSchedule(ctx context.Context, exec sqlx.ExtContext, id, roomID string, date time.Time, startTime, endTime string) error
}

// ChangeRequestService owns the schedule-change workflow. A request starts
// UNCONFIRMED and either gets confirmed by an admin, which applies the
// proposed timing to the target, or gets withdrawn, which deletes the
// request and leaves no trace in the schedule.
type ChangeRequestService struct {
	requests  changeRequestStore
	templates changeTemplateStore
	sessions  changeSessionStore
	conflicts conflictFinder
	tx        txProvider
	cache     availabilityInvalidator
	audit     auditLogger
	validator *validator.Validate
	logger    *zap.Logger
}

// NewChangeRequestService constructs the service.
func NewChangeRequestService(
	requests changeRequestStore,
	templates changeTemplateStore,
	sessions changeSessionStore,
	conflicts conflictFinder,
	tx txProvider,
	cache availabilityInvalidator,
	audit auditLogger,
	validate *validator.Validate,
	logger *zap.Logger,
) *ChangeRequestService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChangeRequestService{
		requests:  requests,
		templates: templates,
		sessions:  sessions,
		conflicts: conflicts,
		tx:        tx,
		cache:     cache,
		audit:     audit,
		validator: validate,
		logger:    logger,
	}
}

// Create registers an UNCONFIRMED change request after validating that the
// target exists and the proposal is well-formed for its kind. The proposal
// is not conflict-checked here: the schedule may shift before confirmation,
// so the check only counts at confirm time.
func (s *ChangeRequestService) Create(ctx context.Context, req dto.CreateChangeRequest, requester models.Actor) (*models.ScheduleChangeRequest, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid change request payload")
	}
	if requester.Role != models.RoleLecturer && requester.Role != models.RoleAdmin {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only lecturers and admins may request schedule changes")
	}
	if _, _, err := parseInterval(req.ProposedStart, req.ProposedEnd); err != nil {
		return nil, err
	}

	change := &models.ScheduleChangeRequest{
		Kind:           models.ChangeRequestKind(req.Kind),
		TargetID:       req.TargetID,
		ProposedStart:  req.ProposedStart,
		ProposedEnd:    req.ProposedEnd,
		ProposedRoomID: req.ProposedRoomID,
		Reason:         req.Reason,
		RequestedBy:    requester.UserID,
		Status:         models.ChangeRequestStatusUnconfirmed,
	}

	switch change.Kind {
	case models.ChangeRequestKindTemplate:
		if req.ProposedWeekday == nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "template change requests need a proposed weekday")
		}
		weekday := time.Weekday(*req.ProposedWeekday)
		change.ProposedWeekday = &weekday
		if _, err := s.templates.FindByID(ctx, req.TargetID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "weekly template not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load weekly template")
		}
	case models.ChangeRequestKindSession:
		if req.ProposedDate == nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "session change requests need a proposed date")
		}
		date, err := timeslot.ParseDate(*req.ProposedDate)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "proposed date must be YYYY-MM-DD")
		}
		change.ProposedDate = &date
		if _, err := s.sessions.FindByID(ctx, req.TargetID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
		}
	}

	if err := s.requests.Create(ctx, change); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create change request")
	}
	s.emitAudit(ctx, &models.AuditLog{
		UserID:     &change.RequestedBy,
		Action:     models.AuditActionChangeRequest,
		Resource:   "change_request",
		ResourceID: &change.ID,
	})
	return change, nil
}

// List returns change requests scoped to the actor.
func (s *ChangeRequestService) List(ctx context.Context, filter models.ChangeRequestFilter, actor models.Actor) ([]models.ScheduleChangeRequest, *models.Pagination, error) {
	if actor.Role != models.RoleAdmin {
		filter.RequestedBy = actor.UserID
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	rows, total, err := s.requests.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list change requests")
	}
	return rows, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// Get returns one change request, enforcing ownership for non-admins.
func (s *ChangeRequestService) Get(ctx context.Context, id string, actor models.Actor) (*models.ScheduleChangeRequest, error) {
	change, err := s.requests.FindByID(ctx, nil, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "change request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load change request")
	}
	if actor.Role != models.RoleAdmin && change.RequestedBy != actor.UserID {
		return nil, appErrors.ErrForbidden
	}
	return change, nil
}

// Confirm applies the proposed timing to the target. The request row is
// locked and every affected (room, date, interval) re-checked inside one
// serializable transaction; any collision aborts the whole confirmation and
// the target stays untouched.
func (s *ChangeRequestService) Confirm(ctx context.Context, id string, decider models.Actor) (*models.ScheduleChangeRequest, error) {
	if decider.Role != models.RoleAdmin {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only admins may confirm change requests")
	}

	tx, err := s.tx.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin confirmation transaction")
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	change, err := s.requests.FindByID(ctx, tx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "change request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load change request")
	}
	if change.Status == models.ChangeRequestStatusConfirmed {
		return nil, appErrors.Clone(appErrors.ErrStateConflict, "change request is already confirmed")
	}
	start, end, err := parseInterval(change.ProposedStart, change.ProposedEnd)
	if err != nil {
		return nil, err
	}

	var touchedRooms []string
	switch change.Kind {
	case models.ChangeRequestKindSession:
		touchedRooms, err = s.confirmSession(ctx, tx, change, start, end)
	case models.ChangeRequestKindTemplate:
		touchedRooms, err = s.confirmTemplate(ctx, tx, change, start, end)
	default:
		err = appErrors.Clone(appErrors.ErrValidation, "unsupported change request kind")
	}
	if err != nil {
		return nil, err
	}

	if err := s.requests.Confirm(ctx, tx, change.ID, decider.UserID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrStateConflict, "change request is already confirmed")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to confirm change request")
	}
	if err := tx.Commit(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit confirmation transaction")
	}
	committed = true

	now := time.Now().UTC()
	change.Status = models.ChangeRequestStatusConfirmed
	change.ConfirmedBy = &decider.UserID
	change.ConfirmedAt = &now

	if s.cache != nil {
		for _, roomID := range touchedRooms {
			if err := s.cache.Invalidate(ctx, availabilityCachePattern(roomID)); err != nil {
				s.logger.Warn("failed to invalidate availability cache", zap.Error(err))
			}
		}
	}
	s.emitAudit(ctx, &models.AuditLog{
		UserID:     &decider.UserID,
		Action:     models.AuditActionChangeConfirm,
		Resource:   "change_request",
		ResourceID: &change.ID,
	})
	s.logger.Info("change request confirmed",
		zap.String("change_request_id", change.ID),
		zap.String("kind", string(change.Kind)),
		zap.String("confirmed_by", decider.UserID),
	)
	return change, nil
}

func (s *ChangeRequestService) confirmSession(ctx context.Context, tx *sqlx.Tx, change *models.ScheduleChangeRequest, start, end timeslot.Clock) ([]string, error) {
	session, err := s.sessions.FindByID(ctx, change.TargetID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "target session no longer exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load target session")
	}
	if change.ProposedDate == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "session change request has no proposed date")
	}

	roomID := session.RoomID
	if change.ProposedRoomID != nil {
		roomID = *change.ProposedRoomID
	}
	date := *change.ProposedDate

	conflicts, err := s.conflicts.FindConflicts(ctx, tx, roomID, date, start, end, session.ID)
	if err != nil {
		return nil, err
	}
	if len(conflicts) > 0 {
		return nil, appErrors.Wrap(
			&models.BookingConflictError{Message: "proposed slot is not free", Conflicts: conflicts},
			appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "proposed slot is not free",
		)
	}
	if err := s.sessions.UpdateSchedule(ctx, tx, session.ID, roomID, date, change.ProposedStart, change.ProposedEnd); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reschedule session")
	}
	rooms := []string{roomID}
	if roomID != session.RoomID {
		rooms = append(rooms, session.RoomID)
	}
	return rooms, nil
}

// confirmTemplate shifts every existing session of the template to the
// proposed weekday within its own calendar week, then rewrites the template
// itself. All shifted slots must be free or nothing moves.
func (s *ChangeRequestService) confirmTemplate(ctx context.Context, tx *sqlx.Tx, change *models.ScheduleChangeRequest, start, end timeslot.Clock) ([]string, error) {
	tpl, err := s.templates.FindByID(ctx, change.TargetID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "target template no longer exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load target template")
	}
	if change.ProposedWeekday == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "template change request has no proposed weekday")
	}
	weekday := *change.ProposedWeekday

	roomID := tpl.RoomID
	if change.ProposedRoomID != nil {
		roomID = *change.ProposedRoomID
	}

	sessions, err := s.sessions.ListByTemplate(ctx, tpl.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list template sessions")
	}

	type move struct {
		sessionID string
		date      time.Time
	}
	moves := make([]move, 0, len(sessions))
	var conflicts []models.BookingConflict
	for _, session := range sessions {
		shifted := session.Date.AddDate(0, 0, int(weekday)-int(session.Date.Weekday()))
		found, err := s.conflicts.FindConflicts(ctx, tx, roomID, shifted, start, end, session.ID)
		if err != nil {
			return nil, err
		}
		conflicts = append(conflicts, found...)
		moves = append(moves, move{sessionID: session.ID, date: shifted})
	}
	if len(conflicts) > 0 {
		return nil, appErrors.Wrap(
			&models.BookingConflictError{Message: "proposed weekly slot is not free", Conflicts: conflicts},
			appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "proposed weekly slot is not free",
		)
	}

	if err := s.templates.UpdateSchedule(ctx, tx, tpl.ID, weekday, roomID, change.ProposedStart, change.ProposedEnd); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update template schedule")
	}
	for _, m := range moves {
		if err := s.sessions.UpdateSchedule(ctx, tx, m.sessionID, roomID, m.date, change.ProposedStart, change.ProposedEnd); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reschedule template session")
		}
	}
	rooms := []string{roomID}
	if roomID != tpl.RoomID {
		rooms = append(rooms, tpl.RoomID)
	}
	return rooms, nil
}

// Withdraw deletes an unconfirmed change request. The requester may
// withdraw their own request; an admin withdrawing someone else's request
// is the rejection path. Rejection is deletion, not a status.
func (s *ChangeRequestService) Withdraw(ctx context.Context, id string, actor models.Actor) error {
	change, err := s.requests.FindByID(ctx, nil, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "change request not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load change request")
	}
	if actor.Role != models.RoleAdmin && change.RequestedBy != actor.UserID {
		return appErrors.ErrForbidden
	}
	if change.Status == models.ChangeRequestStatusConfirmed {
		return appErrors.Clone(appErrors.ErrStateConflict, "confirmed change requests cannot be withdrawn")
	}
	if err := s.requests.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "change request not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete change request")
	}
	s.emitAudit(ctx, &models.AuditLog{
		UserID:     &actor.UserID,
		Action:     models.AuditActionChangeWithdraw,
		Resource:   "change_request",
		ResourceID: &change.ID,
	})
	return nil
}

func (s *ChangeRequestService) emitAudit(ctx context.Context, log *models.AuditLog) {
	if s.audit == nil || log == nil {
		return
	}
	log.IPAddress = "system"
	log.UserAgent = "change-request-service"
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to persist audit log", zap.Error(err))
	}
}
