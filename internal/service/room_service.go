package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-booking-api/internal/dto"
	"github.com/noah-isme/campus-booking-api/internal/models"
	appErrors "github.com/noah-isme/campus-booking-api/pkg/errors"
)

type roomStore interface {
	List(ctx context.Context, filter models.RoomFilter) ([]models.Room, int, error)
	FindByID(ctx context.Context, id string) (*models.Room, error)
	FindByName(ctx context.Context, name string) (*models.Room, error)
	Create(ctx context.Context, room *models.Room) error
	Update(ctx context.Context, room *models.Room) error
	CountDependencies(ctx context.Context, roomID string) (models.RoomDependencies, error)
	Delete(ctx context.Context, exec sqlx.ExtContext, id string) error
	DeleteDependents(ctx context.Context, exec sqlx.ExtContext, roomID string) error
}

// RoomService manages room master data. Deletion is guarded: a room with
// templates, sessions or loans pointing at it is only removed when the
// caller explicitly confirms the cascade.
type RoomService struct {
	rooms     roomStore
	tx        txProvider
	cache     availabilityInvalidator
	audit     auditLogger
	validator *validator.Validate
	logger    *zap.Logger
}

// NewRoomService constructs the service.
func NewRoomService(rooms roomStore, tx txProvider, cache availabilityInvalidator, audit auditLogger, validate *validator.Validate, logger *zap.Logger) *RoomService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RoomService{rooms: rooms, tx: tx, cache: cache, audit: audit, validator: validate, logger: logger}
}

// List returns rooms with filters and pagination.
func (s *RoomService) List(ctx context.Context, filter models.RoomFilter) ([]models.Room, *models.Pagination, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	rows, total, err := s.rooms.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list rooms")
	}
	return rows, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// Get returns a room by id.
func (s *RoomService) Get(ctx context.Context, id string) (*models.Room, error) {
	room, err := s.rooms.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "room not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load room")
	}
	return room, nil
}

// Create registers a new room. Names are unique.
func (s *RoomService) Create(ctx context.Context, req dto.CreateRoomRequest) (*models.Room, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid room payload")
	}
	name := strings.TrimSpace(req.Name)
	if existing, err := s.rooms.FindByName(ctx, name); err == nil && existing != nil {
		return nil, appErrors.Clone(appErrors.ErrStateConflict, fmt.Sprintf("room %q already exists", name))
	} else if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check room name")
	}

	room := &models.Room{
		Name:     name,
		Building: strings.TrimSpace(req.Building),
		Floor:    req.Floor,
		Capacity: req.Capacity,
		Status:   models.RoomStatus(req.Status),
	}
	if room.Status == "" {
		room.Status = models.RoomStatusUsable
	}
	if err := s.rooms.Create(ctx, room); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create room")
	}
	return room, nil
}

// Update rewrites a room's attributes.
func (s *RoomService) Update(ctx context.Context, id string, req dto.UpdateRoomRequest) (*models.Room, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid room payload")
	}
	room, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		room.Name = strings.TrimSpace(*req.Name)
	}
	if req.Building != nil {
		room.Building = strings.TrimSpace(*req.Building)
	}
	if req.Floor != nil {
		room.Floor = *req.Floor
	}
	if req.Capacity != nil {
		room.Capacity = *req.Capacity
	}
	if req.Status != nil {
		room.Status = models.RoomStatus(*req.Status)
	}
	if err := s.rooms.Update(ctx, room); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "room not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update room")
	}
	return room, nil
}

// Dependencies reports what still references the room so admin UIs can
// warn before a cascade.
func (s *RoomService) Dependencies(ctx context.Context, id string) (models.RoomDependencies, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return models.RoomDependencies{}, err
	}
	deps, err := s.rooms.CountDependencies(ctx, id)
	if err != nil {
		return models.RoomDependencies{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count room dependencies")
	}
	return deps, nil
}

// Delete removes a room. Without cascade, any remaining template, session
// or loan blocks the deletion; with cascade, dependents are removed in the
// same transaction.
func (s *RoomService) Delete(ctx context.Context, id string, cascade bool, actor models.Actor) error {
	room, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	deps, err := s.rooms.CountDependencies(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count room dependencies")
	}
	if !deps.Empty() && !cascade {
		return appErrors.Clone(appErrors.ErrStateConflict,
			fmt.Sprintf("room is referenced by %d templates, %d sessions and %d loans; pass cascade to remove them", deps.Templates, deps.Sessions, deps.Loans))
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin delete transaction")
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if cascade && !deps.Empty() {
		if err := s.rooms.DeleteDependents(ctx, tx, id); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete room dependents")
		}
	}
	if err := s.rooms.Delete(ctx, tx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "room not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete room")
	}
	if err := tx.Commit(); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit delete transaction")
	}
	committed = true

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, availabilityCachePattern(room.ID)); err != nil {
			s.logger.Warn("failed to invalidate availability cache", zap.Error(err))
		}
	}
	s.emitAudit(ctx, &models.AuditLog{
		UserID:     &actor.UserID,
		Action:     models.AuditActionRoomDelete,
		Resource:   "room",
		ResourceID: &room.ID,
	})
	return nil
}

func (s *RoomService) emitAudit(ctx context.Context, log *models.AuditLog) {
	if s.audit == nil || log == nil {
		return
	}
	log.IPAddress = "system"
	log.UserAgent = "room-service"
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to persist audit log", zap.Error(err))
	}
}
