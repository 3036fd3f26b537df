package models

import "time"

// CourseStatus marks whether a course is currently offered.
type CourseStatus string

const (
	CourseStatusActive   CourseStatus = "ACTIVE"
	CourseStatusInactive CourseStatus = "INACTIVE"
)

// CourseKind distinguishes mandatory from elective courses.
type CourseKind string

const (
	CourseKindMandatory CourseKind = "MANDATORY"
	CourseKindElective  CourseKind = "ELECTIVE"
)

// Course is admin-owned master data. A course has at most one
// WeeklyTemplate.
type Course struct {
	ID         string       `db:"id" json:"id"`
	Code       string       `db:"code" json:"code"`
	Name       string       `db:"name" json:"name"`
	Credits    int          `db:"credits" json:"credits"`
	Capacity   int          `db:"capacity" json:"capacity"`
	Semester   int          `db:"semester" json:"semester"`
	Status     CourseStatus `db:"status" json:"status"`
	Kind       CourseKind   `db:"kind" json:"kind"`
	LecturerID *string      `db:"lecturer_id" json:"lecturer_id,omitempty"`
	CreatedAt  time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time    `db:"updated_at" json:"updated_at"`
}

// CourseFilter describes query params for listing courses.
type CourseFilter struct {
	Status     CourseStatus
	Kind       CourseKind
	Semester   int
	LecturerID string
	Search     string
	Page       int
	PageSize   int
	SortBy     string
	SortOrder  string
}
