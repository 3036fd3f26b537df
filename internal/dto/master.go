package dto

// CreateRoomRequest registers a classroom.
type CreateRoomRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Building string `json:"building" validate:"required,max=100"`
	Floor    int    `json:"floor" validate:"min=0"`
	Capacity int    `json:"capacity" validate:"required,min=1"`
	Status   string `json:"status" validate:"omitempty,oneof=USABLE UNUSABLE UNDER_REPAIR"`
}

// UpdateRoomRequest mutates room master data. Nil fields are left
// untouched.
type UpdateRoomRequest struct {
	Name     *string `json:"name" validate:"omitempty,max=100"`
	Building *string `json:"building" validate:"omitempty,max=100"`
	Floor    *int    `json:"floor" validate:"omitempty,min=0"`
	Capacity *int    `json:"capacity" validate:"omitempty,min=1"`
	Status   *string `json:"status" validate:"omitempty,oneof=USABLE UNUSABLE UNDER_REPAIR"`
}

// CreateCourseRequest registers a course.
type CreateCourseRequest struct {
	Code       string  `json:"code" validate:"required,max=20"`
	Name       string  `json:"name" validate:"required,max=150"`
	Credits    int     `json:"credits" validate:"required,min=1,max=6"`
	Capacity   int     `json:"capacity" validate:"required,min=1"`
	Semester   int     `json:"semester" validate:"required,min=1,max=14"`
	Kind       string  `json:"kind" validate:"required,oneof=MANDATORY ELECTIVE"`
	LecturerID *string `json:"lecturerId"`
}

// UpdateCourseRequest mutates course master data.
type UpdateCourseRequest struct {
	Name       *string `json:"name" validate:"omitempty,max=150"`
	Credits    *int    `json:"credits" validate:"omitempty,min=1,max=6"`
	Capacity   *int    `json:"capacity" validate:"omitempty,min=1"`
	Semester   *int    `json:"semester" validate:"omitempty,min=1,max=14"`
	Status     *string `json:"status" validate:"omitempty,oneof=ACTIVE INACTIVE"`
	Kind       *string `json:"kind" validate:"omitempty,oneof=MANDATORY ELECTIVE"`
	LecturerID *string `json:"lecturerId"`
}

// CreateTemplateRequest defines the recurring weekly slot for a course.
// Weekday uses 1=Monday..5=Friday; weekend teaching is not supported.
type CreateTemplateRequest struct {
	CourseID  string `json:"courseId" validate:"required"`
	RoomID    string `json:"roomId" validate:"required"`
	Weekday   int    `json:"weekday" validate:"required,min=1,max=5"`
	StartTime string `json:"startTime" validate:"required"`
	EndTime   string `json:"endTime" validate:"required"`
}

// UpdateTemplateRequest mutates non-scheduling template fields. Timing and
// room changes go through the change-request workflow instead.
type UpdateTemplateRequest struct {
	Status *string `json:"status" validate:"omitempty,oneof=ACTIVE INACTIVE"`
}
