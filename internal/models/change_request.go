package models

import "time"

// ChangeRequestKind distinguishes template-level from single-session
// change requests.
type ChangeRequestKind string

const (
	ChangeRequestKindTemplate ChangeRequestKind = "TEMPLATE"
	ChangeRequestKindSession  ChangeRequestKind = "SESSION"
)

// ChangeRequestStatus models the change-request lifecycle. CONFIRMED is
// terminal; rejection is modelled as deletion of an unconfirmed request,
// not as a status value.
type ChangeRequestStatus string

const (
	ChangeRequestStatusUnconfirmed ChangeRequestStatus = "UNCONFIRMED"
	ChangeRequestStatusConfirmed   ChangeRequestStatus = "CONFIRMED"
)

// ScheduleChangeRequest proposes new timing (and optionally a new room) for
// a WeeklyTemplate or a single DatedSession. Confirmation re-validates the
// proposed interval through the conflict checker before the target is
// mutated; a conflicted confirmation leaves the target untouched.
type ScheduleChangeRequest struct {
	ID       string            `db:"id" json:"id"`
	Kind     ChangeRequestKind `db:"kind" json:"kind"`
	TargetID string            `db:"target_id" json:"target_id"`

	// ProposedWeekday applies to TEMPLATE requests, ProposedDate to
	// SESSION requests.
	ProposedWeekday *time.Weekday `db:"proposed_weekday" json:"proposed_weekday,omitempty"`
	ProposedDate    *time.Time    `db:"proposed_date" json:"proposed_date,omitempty"`
	ProposedStart   string        `db:"proposed_start" json:"proposed_start"`
	ProposedEnd     string        `db:"proposed_end" json:"proposed_end"`
	ProposedRoomID  *string       `db:"proposed_room_id" json:"proposed_room_id,omitempty"`

	Reason      string              `db:"reason" json:"reason"`
	RequestedBy string              `db:"requested_by" json:"requested_by"`
	Status      ChangeRequestStatus `db:"status" json:"status"`
	ConfirmedBy *string             `db:"confirmed_by" json:"confirmed_by,omitempty"`
	ConfirmedAt *time.Time          `db:"confirmed_at" json:"confirmed_at,omitempty"`
	CreatedAt   time.Time           `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time           `db:"updated_at" json:"updated_at"`
}

// ChangeRequestFilter describes query params for listing change requests.
type ChangeRequestFilter struct {
	Kind        ChangeRequestKind
	Status      ChangeRequestStatus
	TargetID    string
	RequestedBy string
	Page        int
	PageSize    int
}
