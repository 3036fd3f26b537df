package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/campus-booking-api/internal/models"
)

// SessionRepository persists dated course sessions.
type SessionRepository struct {
	db *sqlx.DB
}

// NewSessionRepository creates a new session repository.
func NewSessionRepository(db *sqlx.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// ListByRoomAndDate returns every session booked for a room on a calendar
// date. The conflict checker calls this with the workflow transaction so
// concurrent approvals observe each other's writes.
func (r *SessionRepository) ListByRoomAndDate(ctx context.Context, exec sqlx.ExtContext, roomID string, date time.Time) ([]models.DatedSession, error) {
	const query = `SELECT id, template_id, room_id, date, start_time, end_time, created_at, updated_at FROM dated_sessions WHERE room_id = $1 AND date = $2 ORDER BY start_time ASC`
	var sessions []models.DatedSession
	if err := sqlx.SelectContext(ctx, r.exec(exec), &sessions, query, roomID, date); err != nil {
		return nil, fmt.Errorf("list sessions by room and date: %w", err)
	}
	return sessions, nil
}

// ListByTemplate returns all sessions derived from a template in date
// order.
func (r *SessionRepository) ListByTemplate(ctx context.Context, templateID string) ([]models.DatedSession, error) {
	const query = `SELECT id, template_id, room_id, date, start_time, end_time, created_at, updated_at FROM dated_sessions WHERE template_id = $1 ORDER BY date ASC`
	var sessions []models.DatedSession
	if err := r.db.SelectContext(ctx, &sessions, query, templateID); err != nil {
		return nil, fmt.Errorf("list sessions by template: %w", err)
	}
	return sessions, nil
}

// List returns sessions with optional filtering and pagination.
func (r *SessionRepository) List(ctx context.Context, filter models.SessionFilter) ([]models.DatedSession, int, error) {
	base := "FROM dated_sessions WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.TemplateID != "" {
		conditions = append(conditions, fmt.Sprintf("template_id = $%d", len(args)+1))
		args = append(args, filter.TemplateID)
	}
	if filter.RoomID != "" {
		conditions = append(conditions, fmt.Sprintf("room_id = $%d", len(args)+1))
		args = append(args, filter.RoomID)
	}
	if filter.DateFrom != nil {
		conditions = append(conditions, fmt.Sprintf("date >= $%d", len(args)+1))
		args = append(args, *filter.DateFrom)
	}
	if filter.DateTo != nil {
		conditions = append(conditions, fmt.Sprintf("date <= $%d", len(args)+1))
		args = append(args, *filter.DateTo)
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT id, template_id, room_id, date, start_time, end_time, created_at, updated_at %s ORDER BY date %s, start_time %s LIMIT %d OFFSET %d", base, order, order, size, offset)
	var sessions []models.DatedSession
	if err := r.db.SelectContext(ctx, &sessions, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list sessions: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count sessions: %w", err)
	}

	return sessions, total, nil
}

// FindByID loads a session by id.
func (r *SessionRepository) FindByID(ctx context.Context, id string) (*models.DatedSession, error) {
	const query = `SELECT id, template_id, room_id, date, start_time, end_time, created_at, updated_at FROM dated_sessions WHERE id = $1`
	var session models.DatedSession
	if err := r.db.GetContext(ctx, &session, query, id); err != nil {
		return nil, err
	}
	return &session, nil
}

// Create stores a new dated session.
func (r *SessionRepository) Create(ctx context.Context, exec sqlx.ExtContext, session *models.DatedSession) error {
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	session.UpdatedAt = now

	const query = `INSERT INTO dated_sessions (id, template_id, room_id, date, start_time, end_time, created_at, updated_at) VALUES (:id, :template_id, :room_id, :date, :start_time, :end_time, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, session); err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// UpdateSchedule rewrites a session's room, date and interval. Invoked only
// by a confirmed change request, inside the workflow transaction.
func (r *SessionRepository) UpdateSchedule(ctx context.Context, exec sqlx.ExtContext, id, roomID string, date time.Time, startTime, endTime string) error {
	const query = `UPDATE dated_sessions SET room_id = $1, date = $2, start_time = $3, end_time = $4, updated_at = $5 WHERE id = $6`
	result, err := r.exec(exec).ExecContext(ctx, query, roomID, date, startTime, endTime, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update session schedule: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
