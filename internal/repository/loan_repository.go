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

// loanRow is the persistence shape of a room loan. The requester is stored
// as a pair of nullable profile columns; the mapping to the Actor tagged
// union happens here and nowhere else.
type loanRow struct {
	ID          string            `db:"id"`
	UserID      string            `db:"user_id"`
	StudentID   sql.NullString    `db:"student_id"`
	LecturerID  sql.NullString    `db:"lecturer_id"`
	RoomID      string            `db:"room_id"`
	Date        time.Time         `db:"date"`
	StartTime   string            `db:"start_time"`
	EndTime     string            `db:"end_time"`
	Reason      string            `db:"reason"`
	Status      models.LoanStatus `db:"status"`
	DecidedBy   sql.NullString    `db:"decided_by"`
	DecidedAt   sql.NullTime      `db:"decided_at"`
	CreatedAt   time.Time         `db:"created_at"`
	UpdatedAt   time.Time         `db:"updated_at"`
}

func (row loanRow) toModel() models.RoomLoan {
	loan := models.RoomLoan{
		ID:        row.ID,
		RoomID:    row.RoomID,
		Date:      row.Date,
		StartTime: row.StartTime,
		EndTime:   row.EndTime,
		Reason:    row.Reason,
		Status:    row.Status,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
	switch {
	case row.StudentID.Valid:
		loan.Requester = models.NewStudentActor(row.UserID, row.StudentID.String)
	case row.LecturerID.Valid:
		loan.Requester = models.NewLecturerActor(row.UserID, row.LecturerID.String)
	default:
		loan.Requester = models.NewAdminActor(row.UserID, row.UserID)
	}
	if row.DecidedBy.Valid {
		loan.DecidedBy = &row.DecidedBy.String
	}
	if row.DecidedAt.Valid {
		decided := row.DecidedAt.Time
		loan.DecidedAt = &decided
	}
	return loan
}

func fromModel(loan *models.RoomLoan) loanRow {
	row := loanRow{
		ID:        loan.ID,
		UserID:    loan.Requester.UserID,
		RoomID:    loan.RoomID,
		Date:      loan.Date,
		StartTime: loan.StartTime,
		EndTime:   loan.EndTime,
		Reason:    loan.Reason,
		Status:    loan.Status,
		CreatedAt: loan.CreatedAt,
		UpdatedAt: loan.UpdatedAt,
	}
	switch loan.Requester.Role {
	case models.RoleStudent:
		row.StudentID = sql.NullString{String: loan.Requester.ProfileID(), Valid: true}
	case models.RoleLecturer:
		row.LecturerID = sql.NullString{String: loan.Requester.ProfileID(), Valid: true}
	}
	return row
}

// LoanRepository persists ad-hoc room loans.
type LoanRepository struct {
	db *sqlx.DB
}

// NewLoanRepository creates a new loan repository.
func NewLoanRepository(db *sqlx.DB) *LoanRepository {
	return &LoanRepository{db: db}
}

func (r *LoanRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

const loanColumns = `id, user_id, student_id, lecturer_id, room_id, date, start_time, end_time, reason, status, decided_by, decided_at, created_at, updated_at`

// ListAcceptedByRoomAndDate returns accepted loans blocking a room on a
// date. Pending and rejected loans never block, so they are filtered at
// the query level.
func (r *LoanRepository) ListAcceptedByRoomAndDate(ctx context.Context, exec sqlx.ExtContext, roomID string, date time.Time) ([]models.RoomLoan, error) {
	query := fmt.Sprintf(`SELECT %s FROM room_loans WHERE room_id = $1 AND date = $2 AND status = $3 ORDER BY start_time ASC`, loanColumns)
	var rows []loanRow
	if err := sqlx.SelectContext(ctx, r.exec(exec), &rows, query, roomID, date, models.LoanStatusAccepted); err != nil {
		return nil, fmt.Errorf("list accepted loans by room and date: %w", err)
	}
	loans := make([]models.RoomLoan, 0, len(rows))
	for _, row := range rows {
		loans = append(loans, row.toModel())
	}
	return loans, nil
}

// List returns loans with optional filtering and pagination.
func (r *LoanRepository) List(ctx context.Context, filter models.LoanFilter) ([]models.RoomLoan, int, error) {
	base := "FROM room_loans WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.RoomID != "" {
		conditions = append(conditions, fmt.Sprintf("room_id = $%d", len(args)+1))
		args = append(args, filter.RoomID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.RequesterID != "" {
		conditions = append(conditions, fmt.Sprintf("user_id = $%d", len(args)+1))
		args = append(args, filter.RequesterID)
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
		order = "DESC"
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

	query := fmt.Sprintf("SELECT %s %s ORDER BY created_at %s LIMIT %d OFFSET %d", loanColumns, base, order, size, offset)
	var rows []loanRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list loans: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count loans: %w", err)
	}

	loans := make([]models.RoomLoan, 0, len(rows))
	for _, row := range rows {
		loans = append(loans, row.toModel())
	}
	return loans, total, nil
}

// FindByID loads a loan. When exec is a transaction the row is locked so
// two concurrent reviews serialise on it.
func (r *LoanRepository) FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.RoomLoan, error) {
	query := fmt.Sprintf(`SELECT %s FROM room_loans WHERE id = $1`, loanColumns)
	if exec != nil {
		query += " FOR UPDATE"
	}
	var row loanRow
	if err := sqlx.GetContext(ctx, r.exec(exec), &row, query, id); err != nil {
		return nil, err
	}
	loan := row.toModel()
	return &loan, nil
}

// Create stores a new loan in PENDING state.
func (r *LoanRepository) Create(ctx context.Context, loan *models.RoomLoan) error {
	if loan.ID == "" {
		loan.ID = uuid.NewString()
	}
	if loan.Status == "" {
		loan.Status = models.LoanStatusPending
	}
	now := time.Now().UTC()
	if loan.CreatedAt.IsZero() {
		loan.CreatedAt = now
	}
	loan.UpdatedAt = now

	row := fromModel(loan)
	const query = `INSERT INTO room_loans (id, user_id, student_id, lecturer_id, room_id, date, start_time, end_time, reason, status, created_at, updated_at) VALUES (:id, :user_id, :student_id, :lecturer_id, :room_id, :date, :start_time, :end_time, :reason, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, row); err != nil {
		return fmt.Errorf("create loan: %w", err)
	}
	return nil
}

// UpdateStatus records a terminal review decision.
func (r *LoanRepository) UpdateStatus(ctx context.Context, exec sqlx.ExtContext, id string, status models.LoanStatus, decidedBy string) error {
	const query = `UPDATE room_loans SET status = $1, decided_by = $2, decided_at = $3, updated_at = $3 WHERE id = $4`
	result, err := r.exec(exec).ExecContext(ctx, query, status, decidedBy, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update loan status: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
