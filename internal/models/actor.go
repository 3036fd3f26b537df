package models

import "github.com/golang-jwt/jwt/v5"

// ActorRole enumerates the closed set of actor kinds known to the booking
// workflows.
type ActorRole string

const (
	RoleAdmin    ActorRole = "ADMIN"
	RoleLecturer ActorRole = "LECTURER"
	RoleStudent  ActorRole = "STUDENT"
)

// Valid reports whether the role belongs to the closed set.
func (r ActorRole) Valid() bool {
	switch r {
	case RoleAdmin, RoleLecturer, RoleStudent:
		return true
	}
	return false
}

// Actor is the tagged union of the three user kinds. It is resolved once at
// the authentication boundary and passed by value into workflow operations;
// domain code never re-derives the role from nullable foreign keys. The
// profile pointer matching Role is set, the other two are nil.
type Actor struct {
	UserID   string           `json:"user_id"`
	Role     ActorRole        `json:"role"`
	Student  *StudentProfile  `json:"student,omitempty"`
	Lecturer *LecturerProfile `json:"lecturer,omitempty"`
	Admin    *AdminProfile    `json:"admin,omitempty"`
}

// StudentProfile carries the student-specific identity.
type StudentProfile struct {
	StudentID string `json:"student_id"`
	Cohort    string `json:"cohort,omitempty"`
}

// LecturerProfile carries the lecturer-specific identity.
type LecturerProfile struct {
	LecturerID string `json:"lecturer_id"`
}

// AdminProfile carries the admin-specific identity.
type AdminProfile struct {
	AdminID string `json:"admin_id"`
}

// NewStudentActor builds a student-tagged actor.
func NewStudentActor(userID, studentID string) Actor {
	return Actor{UserID: userID, Role: RoleStudent, Student: &StudentProfile{StudentID: studentID}}
}

// NewLecturerActor builds a lecturer-tagged actor.
func NewLecturerActor(userID, lecturerID string) Actor {
	return Actor{UserID: userID, Role: RoleLecturer, Lecturer: &LecturerProfile{LecturerID: lecturerID}}
}

// NewAdminActor builds an admin-tagged actor.
func NewAdminActor(userID, adminID string) Actor {
	return Actor{UserID: userID, Role: RoleAdmin, Admin: &AdminProfile{AdminID: adminID}}
}

// ProfileID returns the role-specific identity for the actor.
func (a Actor) ProfileID() string {
	switch a.Role {
	case RoleStudent:
		if a.Student != nil {
			return a.Student.StudentID
		}
	case RoleLecturer:
		if a.Lecturer != nil {
			return a.Lecturer.LecturerID
		}
	case RoleAdmin:
		if a.Admin != nil {
			return a.Admin.AdminID
		}
	}
	return ""
}

// JWTClaims is the token payload carried by authenticated requests. The
// auth boundary converts it into an Actor exactly once.
type JWTClaims struct {
	UserID    string    `json:"uid"`
	Role      ActorRole `json:"role"`
	ProfileID string    `json:"profile_id"`
	jwt.RegisteredClaims
}

// Actor materialises the tagged union from the claims.
func (c *JWTClaims) Actor() Actor {
	switch c.Role {
	case RoleStudent:
		return NewStudentActor(c.UserID, c.ProfileID)
	case RoleLecturer:
		return NewLecturerActor(c.UserID, c.ProfileID)
	default:
		return NewAdminActor(c.UserID, c.ProfileID)
	}
}
