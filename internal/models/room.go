package models

import "time"

// RoomStatus describes whether a room can be assigned.
type RoomStatus string

const (
	RoomStatusUsable      RoomStatus = "USABLE"
	RoomStatusUnusable    RoomStatus = "UNUSABLE"
	RoomStatusUnderRepair RoomStatus = "UNDER_REPAIR"
)

// Room is admin-owned master data referenced by templates, sessions and
// loans.
type Room struct {
	ID        string     `db:"id" json:"id"`
	Name      string     `db:"name" json:"name"`
	Building  string     `db:"building" json:"building"`
	Floor     int        `db:"floor" json:"floor"`
	Capacity  int        `db:"capacity" json:"capacity"`
	Status    RoomStatus `db:"status" json:"status"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
}

// RoomFilter describes query params for listing rooms.
type RoomFilter struct {
	Building  string
	Status    RoomStatus
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// RoomDependencies counts entities that still reference a room. A non-empty
// result blocks deletion unless the caller explicitly confirms the cascade.
type RoomDependencies struct {
	Templates int `json:"templates"`
	Sessions  int `json:"sessions"`
	Loans     int `json:"loans"`
}

// Empty reports whether nothing references the room.
func (d RoomDependencies) Empty() bool {
	return d.Templates == 0 && d.Sessions == 0 && d.Loans == 0
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
