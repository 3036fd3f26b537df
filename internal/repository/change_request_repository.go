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

// ChangeRequestRepository persists schedule change requests.
type ChangeRequestRepository struct {
	db *sqlx.DB
}

// NewChangeRequestRepository creates a new change request repository.
func NewChangeRequestRepository(db *sqlx.DB) *ChangeRequestRepository {
	return &ChangeRequestRepository{db: db}
}

func (r *ChangeRequestRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

const changeRequestColumns = `id, kind, target_id, proposed_weekday, proposed_date, proposed_start, proposed_end, proposed_room_id, reason, requested_by, status, confirmed_by, confirmed_at, created_at, updated_at`

// List returns change requests with optional filtering and pagination.
func (r *ChangeRequestRepository) List(ctx context.Context, filter models.ChangeRequestFilter) ([]models.ScheduleChangeRequest, int, error) {
	base := "FROM schedule_change_requests WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.Kind != "" {
		conditions = append(conditions, fmt.Sprintf("kind = $%d", len(args)+1))
		args = append(args, filter.Kind)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.TargetID != "" {
		conditions = append(conditions, fmt.Sprintf("target_id = $%d", len(args)+1))
		args = append(args, filter.TargetID)
	}
	if filter.RequestedBy != "" {
		conditions = append(conditions, fmt.Sprintf("requested_by = $%d", len(args)+1))
		args = append(args, filter.RequestedBy)
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
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

	query := fmt.Sprintf("SELECT %s %s ORDER BY created_at DESC LIMIT %d OFFSET %d", changeRequestColumns, base, size, offset)
	var requests []models.ScheduleChangeRequest
	if err := r.db.SelectContext(ctx, &requests, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list change requests: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count change requests: %w", err)
	}

	return requests, total, nil
}

// FindByID loads a change request. When exec is a transaction the row is
// locked so concurrent confirmations serialise on it.
func (r *ChangeRequestRepository) FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.ScheduleChangeRequest, error) {
	query := fmt.Sprintf(`SELECT %s FROM schedule_change_requests WHERE id = $1`, changeRequestColumns)
	if exec != nil {
		query += " FOR UPDATE"
	}
	var req models.ScheduleChangeRequest
	if err := sqlx.GetContext(ctx, r.exec(exec), &req, query, id); err != nil {
		return nil, err
	}
	return &req, nil
}

// Create stores a new change request in UNCONFIRMED state.
func (r *ChangeRequestRepository) Create(ctx context.Context, req *models.ScheduleChangeRequest) error {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if req.Status == "" {
		req.Status = models.ChangeRequestStatusUnconfirmed
	}
	now := time.Now().UTC()
	if req.CreatedAt.IsZero() {
		req.CreatedAt = now
	}
	req.UpdatedAt = now

	const query = `INSERT INTO schedule_change_requests (id, kind, target_id, proposed_weekday, proposed_date, proposed_start, proposed_end, proposed_room_id, reason, requested_by, status, created_at, updated_at) VALUES (:id, :kind, :target_id, :proposed_weekday, :proposed_date, :proposed_start, :proposed_end, :proposed_room_id, :reason, :requested_by, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, req); err != nil {
		return fmt.Errorf("create change request: %w", err)
	}
	return nil
}

// Confirm marks a request CONFIRMED. Confirmation is terminal.
func (r *ChangeRequestRepository) Confirm(ctx context.Context, exec sqlx.ExtContext, id, confirmedBy string) error {
	const query = `UPDATE schedule_change_requests SET status = $1, confirmed_by = $2, confirmed_at = $3, updated_at = $3 WHERE id = $4`
	result, err := r.exec(exec).ExecContext(ctx, query, models.ChangeRequestStatusConfirmed, confirmedBy, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("confirm change request: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a change request. Rejection is modelled as deletion of an
// unconfirmed request; the service layer enforces the status precondition.
func (r *ChangeRequestRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM schedule_change_requests WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete change request: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
