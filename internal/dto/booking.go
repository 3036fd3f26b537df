package dto

import "github.com/noah-isme/campus-booking-api/internal/models"

// ConflictCheckRequest asks whether a candidate (room, date, interval) is
// free. Times use HH:MM, dates use YYYY-MM-DD.
type ConflictCheckRequest struct {
	RoomID           string `json:"roomId" validate:"required"`
	Date             string `json:"date" validate:"required"`
	StartTime        string `json:"startTime" validate:"required"`
	EndTime          string `json:"endTime" validate:"required"`
	ExcludeSessionID string `json:"excludeSessionId"`
}

// ConflictCheckResponse lists every committed booking that collides with
// the candidate.
type ConflictCheckResponse struct {
	Free      bool                     `json:"free"`
	Conflicts []models.BookingConflict `json:"conflicts"`
}

// GenerateSessionsRequest materialises a semester of dated sessions from a
// weekly template.
type GenerateSessionsRequest struct {
	TemplateID    string `json:"templateId" validate:"required"`
	SemesterStart string `json:"semesterStart" validate:"required"`
	MeetingCount  int    `json:"meetingCount" validate:"required,min=1"`
}

// SkippedDate reports a generation date that was dropped because of a
// conflict.
type SkippedDate struct {
	Date   string `json:"date"`
	Reason string `json:"reason"`
}

// GenerateSessionsResponse reports the partial-success outcome of a
// generation run.
type GenerateSessionsResponse struct {
	Created []models.DatedSession `json:"created"`
	Skipped []SkippedDate         `json:"skipped"`
}

// CreateLoanRequest opens an ad-hoc room loan in PENDING state.
type CreateLoanRequest struct {
	RoomID    string `json:"roomId" validate:"required"`
	Date      string `json:"date" validate:"required"`
	StartTime string `json:"startTime" validate:"required"`
	EndTime   string `json:"endTime" validate:"required"`
	Reason    string `json:"reason" validate:"required,max=500"`
}

// LoanQuery filters loan listings.
type LoanQuery struct {
	RoomID string `form:"roomId"`
	Status string `form:"status"`
	Date   string `form:"date"`
}

// CreateChangeRequest proposes new timing for a template or a single
// session. ProposedWeekday (1=Monday..5=Friday) applies to TEMPLATE
// requests, ProposedDate to SESSION requests.
type CreateChangeRequest struct {
	Kind            string  `json:"kind" validate:"required,oneof=TEMPLATE SESSION"`
	TargetID        string  `json:"targetId" validate:"required"`
	ProposedWeekday *int    `json:"proposedWeekday" validate:"omitempty,min=1,max=5"`
	ProposedDate    *string `json:"proposedDate"`
	ProposedStart   string  `json:"proposedStart" validate:"required"`
	ProposedEnd     string  `json:"proposedEnd" validate:"required"`
	ProposedRoomID  *string `json:"proposedRoomId"`
	Reason          string  `json:"reason" validate:"required,max=500"`
}

// ChangeRequestQuery filters change-request listings.
type ChangeRequestQuery struct {
	Kind     string `form:"kind"`
	Status   string `form:"status"`
	TargetID string `form:"targetId"`
}

// AvailabilityResponse is the cached per-room-per-date booking view.
type AvailabilityResponse struct {
	RoomID   string                   `json:"roomId"`
	Date     string                   `json:"date"`
	Bookings []models.BookingConflict `json:"bookings"`
}
