package models

import "time"

// LoanStatus models the room-loan lifecycle. ACCEPTED and REJECTED are
// terminal; only ACCEPTED loans block other bookings.
type LoanStatus string

const (
	LoanStatusPending  LoanStatus = "PENDING"
	LoanStatusAccepted LoanStatus = "ACCEPTED"
	LoanStatusRejected LoanStatus = "REJECTED"
)

// Terminal reports whether the status permits no further transition.
func (s LoanStatus) Terminal() bool {
	return s == LoanStatusAccepted || s == LoanStatusRejected
}

// RoomLoan is an ad-hoc, non-recurring request to use a room at a specific
// date and time outside the regular schedule. The requester is the actor
// tagged union; the persistence adapter alone maps it to nullable
// student/lecturer columns.
type RoomLoan struct {
	ID        string     `json:"id"`
	Requester Actor      `json:"requester"`
	RoomID    string     `json:"room_id"`
	Date      time.Time  `json:"date"`
	StartTime string     `json:"start_time"`
	EndTime   string     `json:"end_time"`
	Reason    string     `json:"reason"`
	Status    LoanStatus `json:"status"`
	DecidedBy *string    `json:"decided_by,omitempty"`
	DecidedAt *time.Time `json:"decided_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// LoanFilter describes query params for listing loans.
type LoanFilter struct {
	RoomID      string
	Status      LoanStatus
	RequesterID string
	DateFrom    *time.Time
	DateTo      *time.Time
	Page        int
	PageSize    int
	SortBy      string
	SortOrder   string
}
