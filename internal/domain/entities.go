package domain

import "time"

type ScreenType string

const (
	Screen2D   ScreenType = "2D"
	Screen3D   ScreenType = "3D"
	ScreenIMAX ScreenType = "IMAX"
)

var ScreenTypes = []ScreenType{Screen2D, Screen3D, ScreenIMAX}

func (s ScreenType) Valid() bool {
	for _, v := range ScreenTypes {
		if v == s {
			return true
		}
	}
	return false
}

type SeatType string

const (
	SeatRegular SeatType = "regular"
	SeatPremium SeatType = "premium"
	SeatVIP     SeatType = "vip"
)

var SeatTypes = []SeatType{SeatRegular, SeatPremium, SeatVIP}

func (s SeatType) Valid() bool {
	for _, v := range SeatTypes {
		if v == s {
			return true
		}
	}
	return false
}

type Room struct {
	ID         int64      `json:"id"`
	Name       string     `json:"name"`
	Capacity   int        `json:"capacity"`
	ScreenType ScreenType `json:"screen_type"`
	IsActive   bool       `json:"is_active"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"-"`
}

type Seat struct {
	ID          int64     `json:"id"`
	RoomID      int64     `json:"room_id"`
	RowNumber   string    `json:"row_number"`
	SeatNumber  int       `json:"seat_number"`
	SeatType    SeatType  `json:"seat_type"`
	IsAvailable bool      `json:"is_available"`
	CreatedAt   time.Time `json:"-"`
}

// Schedule is a showing of a catalog movie in a room. MovieID is an opaque
// reference into the document store and is never validated.
type Schedule struct {
	ID         int64      `json:"id"`
	RoomID     int64      `json:"room_id"`
	MovieID    string     `json:"movie_id"`
	ShowTime   time.Time  `json:"show_time"`
	Price      float64    `json:"price"`
	ScreenType ScreenType `json:"screen_type,omitempty"`
	IsActive   bool       `json:"is_active"`
	CreatedAt  time.Time  `json:"created_at"`
}

// ScheduleView is a schedule joined with its room.
type ScheduleView struct {
	Schedule
	RoomName     string `json:"room_name"`
	RoomCapacity int    `json:"room_capacity"`
}

// ScheduleListing is the general schedule listing row, which carries the room
// name only.
type ScheduleListing struct {
	Schedule
	RoomName string `json:"room_name"`
}

func (v ScheduleView) Listing() ScheduleListing {
	return ScheduleListing{Schedule: v.Schedule, RoomName: v.RoomName}
}

// RoomDeletion reports what a cascading room delete removed.
type RoomDeletion struct {
	RoomID    int64 `json:"room_id"`
	Schedules int64 `json:"schedules_deleted"`
	Seats     int64 `json:"seats_deleted"`
}
