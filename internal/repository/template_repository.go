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

// TemplateRepository persists recurring weekly course slots.
type TemplateRepository struct {
	db *sqlx.DB
}

// NewTemplateRepository creates a new template repository.
func NewTemplateRepository(db *sqlx.DB) *TemplateRepository {
	return &TemplateRepository{db: db}
}

func (r *TemplateRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// List returns templates with optional filtering and pagination.
func (r *TemplateRepository) List(ctx context.Context, filter models.TemplateFilter) ([]models.WeeklyTemplate, int, error) {
	base := "FROM weekly_templates WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.CourseID != "" {
		conditions = append(conditions, fmt.Sprintf("course_id = $%d", len(args)+1))
		args = append(args, filter.CourseID)
	}
	if filter.RoomID != "" {
		conditions = append(conditions, fmt.Sprintf("room_id = $%d", len(args)+1))
		args = append(args, filter.RoomID)
	}
	if filter.Weekday != nil {
		conditions = append(conditions, fmt.Sprintf("weekday = $%d", len(args)+1))
		args = append(args, int(*filter.Weekday))
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
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

	query := fmt.Sprintf("SELECT id, course_id, room_id, weekday, start_time, end_time, status, created_at, updated_at %s ORDER BY weekday %s, start_time %s LIMIT %d OFFSET %d", base, order, order, size, offset)
	var templates []models.WeeklyTemplate
	if err := r.db.SelectContext(ctx, &templates, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list templates: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count templates: %w", err)
	}

	return templates, total, nil
}

// FindByID loads a template by id.
func (r *TemplateRepository) FindByID(ctx context.Context, id string) (*models.WeeklyTemplate, error) {
	const query = `SELECT id, course_id, room_id, weekday, start_time, end_time, status, created_at, updated_at FROM weekly_templates WHERE id = $1`
	var tpl models.WeeklyTemplate
	if err := r.db.GetContext(ctx, &tpl, query, id); err != nil {
		return nil, err
	}
	return &tpl, nil
}

// FindByCourse loads the template bound to a course. A course has at most
// one.
func (r *TemplateRepository) FindByCourse(ctx context.Context, courseID string) (*models.WeeklyTemplate, error) {
	const query = `SELECT id, course_id, room_id, weekday, start_time, end_time, status, created_at, updated_at FROM weekly_templates WHERE course_id = $1`
	var tpl models.WeeklyTemplate
	if err := r.db.GetContext(ctx, &tpl, query, courseID); err != nil {
		return nil, err
	}
	return &tpl, nil
}

// Create stores a new template record.
func (r *TemplateRepository) Create(ctx context.Context, tpl *models.WeeklyTemplate) error {
	if tpl.ID == "" {
		tpl.ID = uuid.NewString()
	}
	if tpl.Status == "" {
		tpl.Status = models.TemplateStatusActive
	}
	now := time.Now().UTC()
	if tpl.CreatedAt.IsZero() {
		tpl.CreatedAt = now
	}
	tpl.UpdatedAt = now

	const query = `INSERT INTO weekly_templates (id, course_id, room_id, weekday, start_time, end_time, status, created_at, updated_at) VALUES (:id, :course_id, :room_id, :weekday, :start_time, :end_time, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, tpl); err != nil {
		return fmt.Errorf("create template: %w", err)
	}
	return nil
}

// UpdateSchedule rewrites the template's recurring slot. Invoked only by a
// confirmed change request, inside the workflow transaction.
func (r *TemplateRepository) UpdateSchedule(ctx context.Context, exec sqlx.ExtContext, id string, weekday time.Weekday, roomID, startTime, endTime string) error {
	const query = `UPDATE weekly_templates SET weekday = $1, room_id = $2, start_time = $3, end_time = $4, updated_at = $5 WHERE id = $6`
	result, err := r.exec(exec).ExecContext(ctx, query, int(weekday), roomID, startTime, endTime, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update template schedule: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// UpdateStatus toggles a template between ACTIVE and INACTIVE.
func (r *TemplateRepository) UpdateStatus(ctx context.Context, id string, status models.TemplateStatus) error {
	result, err := r.db.ExecContext(ctx, `UPDATE weekly_templates SET status = $1, updated_at = $2 WHERE id = $3`, status, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update template status: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a template by id.
func (r *TemplateRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM weekly_templates WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete template: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
