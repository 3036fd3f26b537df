package models

import "time"

// DatedSession is one concrete calendar-dated occurrence of a course
// meeting, derived from a WeeklyTemplate. Its room may diverge from the
// template's (relocation, online meeting). Superseded sessions are retained
// for audit via the change-request trail, never silently deleted.
type DatedSession struct {
	ID         string    `db:"id" json:"id"`
	TemplateID string    `db:"template_id" json:"template_id"`
	RoomID     string    `db:"room_id" json:"room_id"`
	Date       time.Time `db:"date" json:"date"`
	StartTime  string    `db:"start_time" json:"start_time"`
	EndTime    string    `db:"end_time" json:"end_time"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// SessionFilter describes query params for listing sessions.
type SessionFilter struct {
	TemplateID string
	RoomID     string
	DateFrom   *time.Time
	DateTo     *time.Time
	Page       int
	PageSize   int
	SortBy     string
	SortOrder  string
}

// ConflictSource identifies which entity class blocks a candidate booking.
type ConflictSource string

const (
	ConflictSourceSession ConflictSource = "SESSION"
	ConflictSourceLoan    ConflictSource = "LOAN"
)

// BookingConflict describes an existing committed booking that collides
// with a candidate (room, date, interval).
type BookingConflict struct {
	Source    ConflictSource `json:"source"`
	EntityID  string         `json:"entity_id"`
	RoomID    string         `json:"room_id"`
	Date      string         `json:"date"`
	StartTime string         `json:"start_time"`
	EndTime   string         `json:"end_time"`
}

// BookingConflictError is returned when a candidate booking collides with
// committed bookings. It carries every colliding entity so approval UIs can
// report them all.
type BookingConflictError struct {
	Message   string            `json:"message"`
	Conflicts []BookingConflict `json:"conflicts"`
}

// Error implements the error interface for conflict errors.
func (e *BookingConflictError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return e.Message
}
