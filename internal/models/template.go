package models

import "time"

// TemplateStatus marks whether a weekly template participates in
// generation.
type TemplateStatus string

const (
	TemplateStatusActive   TemplateStatus = "ACTIVE"
	TemplateStatusInactive TemplateStatus = "INACTIVE"
)

// WeeklyTemplate is the recurring weekly slot a course meets in: weekday
// (Monday through Friday) plus a start/end clock time and a room.
// Start/end are stored as HH:MM strings; start < end is enforced at the
// service boundary.
type WeeklyTemplate struct {
	ID        string         `db:"id" json:"id"`
	CourseID  string         `db:"course_id" json:"course_id"`
	RoomID    string         `db:"room_id" json:"room_id"`
	Weekday   time.Weekday   `db:"weekday" json:"weekday"`
	StartTime string         `db:"start_time" json:"start_time"`
	EndTime   string         `db:"end_time" json:"end_time"`
	Status    TemplateStatus `db:"status" json:"status"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt time.Time      `db:"updated_at" json:"updated_at"`
}

// TemplateFilter describes query params for listing templates.
type TemplateFilter struct {
	CourseID  string
	RoomID    string
	Weekday   *time.Weekday
	Status    TemplateStatus
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
