package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-booking-api/internal/dto"
	"github.com/noah-isme/campus-booking-api/internal/models"
	"github.com/noah-isme/campus-booking-api/pkg/config"
	appErrors "github.com/noah-isme/campus-booking-api/pkg/errors"
	"github.com/noah-isme/campus-booking-api/pkg/timeslot"
)

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

type generatorTemplateStore interface {
	FindByID(ctx context.Context, id string) (*models.WeeklyTemplate, error)
}

type generatorSessionStore interface {
	Create(ctx context.Context, exec sqlx.ExtContext, session *models.DatedSession) error
	ListByTemplate(ctx context.Context, templateID string) ([]models.DatedSession, error)
	List(ctx context.Context, filter models.SessionFilter) ([]models.DatedSession, int, error)
	FindByID(ctx context.Context, id string) (*models.DatedSession, error)
}

type conflictFinder interface {
	FindConflicts(ctx context.Context, exec sqlx.ExtContext, roomID string, date time.Time, start, end timeslot.Clock, excludeSessionID string) ([]models.BookingConflict, error)
}

type availabilityInvalidator interface {
	Invalidate(ctx context.Context, pattern string) error
}

type generationMetrics interface {
	RecordGeneration(created, skipped int)
}

// SessionGeneratorService expands a weekly template into dated sessions
// across a semester. Generation is partial-success: dates that collide with
// committed bookings are skipped and reported, never created.
type SessionGeneratorService struct {
	templates generatorTemplateStore
	sessions  generatorSessionStore
	conflicts conflictFinder
	tx        txProvider
	cache     availabilityInvalidator
	audit     auditLogger
	metrics   generationMetrics
	policy    config.BookingConfig
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSessionGeneratorService constructs the service.
func NewSessionGeneratorService(
	templates generatorTemplateStore,
	sessions generatorSessionStore,
	conflicts conflictFinder,
	tx txProvider,
	cache availabilityInvalidator,
	audit auditLogger,
	metrics generationMetrics,
	policy config.BookingConfig,
	validate *validator.Validate,
	logger *zap.Logger,
) *SessionGeneratorService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if policy.MaxMeetings <= 0 {
		policy.MaxMeetings = 20
	}
	return &SessionGeneratorService{
		templates: templates,
		sessions:  sessions,
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

// Generate materialises up to MeetingCount dated sessions from the
// template, starting at the first matching weekday on or after
// SemesterStart and stepping a week at a time. Each date is checked and
// inserted in its own short serializable transaction so a conflicted
// date never blocks the rest of the run.
func (s *SessionGeneratorService) Generate(ctx context.Context, req dto.GenerateSessionsRequest, actorID string) (*dto.GenerateSessionsResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid generation payload")
	}
	if req.MeetingCount < 1 || req.MeetingCount > s.policy.MaxMeetings {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("meeting count must be between 1 and %d", s.policy.MaxMeetings))
	}
	semesterStart, err := timeslot.ParseDate(req.SemesterStart)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "semester start must be YYYY-MM-DD")
	}

	tpl, err := s.templates.FindByID(ctx, req.TemplateID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "weekly template not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load weekly template")
	}
	if tpl.Status != models.TemplateStatusActive {
		return nil, appErrors.Clone(appErrors.ErrStateConflict, "template is inactive")
	}
	start, end, err := parseInterval(tpl.StartTime, tpl.EndTime)
	if err != nil {
		return nil, err
	}

	dates := timeslot.WeekdayDatesInRange(semesterStart, tpl.Weekday, req.MeetingCount)
	resp := &dto.GenerateSessionsResponse{
		Created: make([]models.DatedSession, 0, len(dates)),
		Skipped: make([]dto.SkippedDate, 0),
	}
	for _, date := range dates {
		session, skip, err := s.generateOne(ctx, tpl, date, start, end)
		if err != nil {
			return nil, err
		}
		if skip != nil {
			resp.Skipped = append(resp.Skipped, *skip)
			continue
		}
		resp.Created = append(resp.Created, *session)
	}

	if s.metrics != nil {
		s.metrics.RecordGeneration(len(resp.Created), len(resp.Skipped))
	}
	if s.cache != nil && len(resp.Created) > 0 {
		if err := s.cache.Invalidate(ctx, availabilityCachePattern(tpl.RoomID)); err != nil {
			s.logger.Warn("failed to invalidate availability cache", zap.Error(err))
		}
	}
	s.emitAudit(ctx, &models.AuditLog{
		UserID:     &actorID,
		Action:     models.AuditActionSessionGenerate,
		Resource:   "weekly_template",
		ResourceID: &tpl.ID,
	})
	s.logger.Info("generated sessions from template",
		zap.String("template_id", tpl.ID),
		zap.Int("created", len(resp.Created)),
		zap.Int("skipped", len(resp.Skipped)),
	)
	return resp, nil
}

func (s *SessionGeneratorService) generateOne(ctx context.Context, tpl *models.WeeklyTemplate, date time.Time, start, end timeslot.Clock) (*models.DatedSession, *dto.SkippedDate, error) {
	tx, err := s.tx.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin generation transaction")
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	conflicts, err := s.conflicts.FindConflicts(ctx, tx, tpl.RoomID, date, start, end, "")
	if err != nil {
		return nil, nil, err
	}
	if len(conflicts) > 0 {
		_ = tx.Rollback()
		return nil, &dto.SkippedDate{
			Date:   timeslot.FormatDate(date),
			Reason: fmt.Sprintf("room %s already booked by %s %s", tpl.RoomID, conflicts[0].Source, conflicts[0].EntityID),
		}, nil
	}

	session := &models.DatedSession{
		TemplateID: tpl.ID,
		RoomID:     tpl.RoomID,
		Date:       date,
		StartTime:  tpl.StartTime,
		EndTime:    tpl.EndTime,
	}
	if err := s.sessions.Create(ctx, tx, session); err != nil {
		if isSerializationFailure(err) {
			_ = tx.Rollback()
			return nil, concurrentWriterSkip(date), nil
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create session")
	}
	if err := tx.Commit(); err != nil {
		if isSerializationFailure(err) {
			return nil, concurrentWriterSkip(date), nil
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit generation transaction")
	}
	committed = true
	return session, nil, nil
}

// ListByTemplate returns every dated session derived from a template.
func (s *SessionGeneratorService) ListByTemplate(ctx context.Context, templateID string) ([]models.DatedSession, error) {
	rows, err := s.sessions.ListByTemplate(ctx, templateID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list sessions")
	}
	return rows, nil
}

// List returns sessions with filters and pagination.
func (s *SessionGeneratorService) List(ctx context.Context, filter models.SessionFilter) ([]models.DatedSession, *models.Pagination, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	rows, total, err := s.sessions.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list sessions")
	}
	return rows, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// Get returns one session by id.
func (s *SessionGeneratorService) Get(ctx context.Context, id string) (*models.DatedSession, error) {
	session, err := s.sessions.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	return session, nil
}

func (s *SessionGeneratorService) emitAudit(ctx context.Context, log *models.AuditLog) {
	if s.audit == nil || log == nil {
		return
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to persist audit log", zap.Error(err))
	}
}

func availabilityCachePattern(roomID string) string {
	return fmt.Sprintf("availability:%s:*", roomID)
}

// Postgres aborts one of two overlapping serializable transactions with
// SQLSTATE 40001. The losing date is reported as skipped rather than
// failing the whole run.
func isSerializationFailure(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "40001"
}

func concurrentWriterSkip(date time.Time) *dto.SkippedDate {
	return &dto.SkippedDate{
		Date:   timeslot.FormatDate(date),
		Reason: "a concurrent booking committed first",
	}
}
