package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-booking-api/internal/dto"
	"github.com/noah-isme/campus-booking-api/internal/models"
	appErrors "github.com/noah-isme/campus-booking-api/pkg/errors"
)

type templateStore interface {
	List(ctx context.Context, filter models.TemplateFilter) ([]models.WeeklyTemplate, int, error)
	FindByID(ctx context.Context, id string) (*models.WeeklyTemplate, error)
	FindByCourse(ctx context.Context, courseID string) (*models.WeeklyTemplate, error)
	Create(ctx context.Context, tpl *models.WeeklyTemplate) error
	UpdateStatus(ctx context.Context, id string, status models.TemplateStatus) error
	Delete(ctx context.Context, id string) error
}

type templateCourseLookup interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

type templateRoomLookup interface {
	FindByID(ctx context.Context, id string) (*models.Room, error)
}

// TemplateService manages weekly templates. A course carries at most one
// template, and timing changes after creation go through the
// change-request workflow rather than direct updates.
type TemplateService struct {
	templates templateStore
	courses   templateCourseLookup
	rooms     templateRoomLookup
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTemplateService constructs the service.
func NewTemplateService(templates templateStore, courses templateCourseLookup, rooms templateRoomLookup, validate *validator.Validate, logger *zap.Logger) *TemplateService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TemplateService{templates: templates, courses: courses, rooms: rooms, validator: validate, logger: logger}
}

// List returns templates with filters and pagination.
func (s *TemplateService) List(ctx context.Context, filter models.TemplateFilter) ([]models.WeeklyTemplate, *models.Pagination, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	rows, total, err := s.templates.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list templates")
	}
	return rows, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// Get returns a template by id.
func (s *TemplateService) Get(ctx context.Context, id string) (*models.WeeklyTemplate, error) {
	tpl, err := s.templates.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "weekly template not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load weekly template")
	}
	return tpl, nil
}

// Create registers a weekly template for a course that does not have one
// yet. Weekday is Monday through Friday and start must precede end; the
// slot itself is not conflict-checked because a template books nothing
// until sessions are generated from it.
func (s *TemplateService) Create(ctx context.Context, req dto.CreateTemplateRequest) (*models.WeeklyTemplate, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid template payload")
	}
	if _, _, err := parseInterval(req.StartTime, req.EndTime); err != nil {
		return nil, err
	}

	course, err := s.courses.FindByID(ctx, req.CourseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	if course.Status != models.CourseStatusActive {
		return nil, appErrors.Clone(appErrors.ErrStateConflict, "course is inactive")
	}
	if existing, err := s.templates.FindByCourse(ctx, course.ID); err == nil && existing != nil {
		return nil, appErrors.Clone(appErrors.ErrStateConflict, "course already has a weekly template")
	} else if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check course template")
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

	tpl := &models.WeeklyTemplate{
		CourseID:  course.ID,
		RoomID:    room.ID,
		Weekday:   time.Weekday(req.Weekday),
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		Status:    models.TemplateStatusActive,
	}
	if err := s.templates.Create(ctx, tpl); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create weekly template")
	}
	return tpl, nil
}

// Update mutates non-scheduling template fields.
func (s *TemplateService) Update(ctx context.Context, id string, req dto.UpdateTemplateRequest) (*models.WeeklyTemplate, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid template payload")
	}
	tpl, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Status != nil {
		status := models.TemplateStatus(*req.Status)
		if err := s.templates.UpdateStatus(ctx, id, status); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "weekly template not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update template status")
		}
		tpl.Status = status
	}
	return tpl, nil
}

// Delete removes a template. Existing sessions generated from it stay on
// the calendar; removing them is a separate, explicit operation.
func (s *TemplateService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.templates.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "weekly template not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete weekly template")
	}
	return nil
}
