package generator

import (
	"strconv"
	"time"

	"github.com/cinemalab/cinema-data/internal/domain"
)

const seatsPerRow = 10

var roomNames = []string{
	"Sala Principal", "Sala VIP", "Sala 3D", "Sala IMAX", "Sala Premium",
	"Sala 1", "Sala 2", "Sala 3", "Sala 4", "Sala 5",
	"Sala A", "Sala B", "Sala C", "Sala D", "Sala E",
	"Sala Norte", "Sala Sur", "Sala Este", "Sala Oeste", "Sala Central",
}

func itoa(n int) string { return strconv.Itoa(n) }

func (g *Generator) Room() domain.Room {
	now := g.now()
	return domain.Room{
		Name:       g.pick(roomNames) + " " + itoa(g.between(1, 50)),
		Capacity:   g.between(50, 200),
		ScreenType: domain.ScreenTypes[g.rnd.Intn(len(domain.ScreenTypes))],
		IsActive:   g.chance(3, 4),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func (g *Generator) Rooms(n int) []domain.Room {
	out := make([]domain.Room, n)
	for i := range out {
		out[i] = g.Room()
	}
	return out
}

// Seats lays out exactly capacity seats for a room, ten per row. Rows are
// labelled A, B, ... and the last row is partial when capacity is not a
// multiple of ten.
func (g *Generator) Seats(roomID int64, capacity int) []domain.Seat {
	if capacity <= 0 {
		return nil
	}
	rows := (capacity + seatsPerRow - 1) / seatsPerRow
	now := g.now()
	seats := make([]domain.Seat, 0, capacity)
	for row := 0; row < rows && len(seats) < capacity; row++ {
		label := domain.RowLabel(row)
		for n := 1; n <= seatsPerRow && len(seats) < capacity; n++ {
			seats = append(seats, domain.Seat{
				RoomID:      roomID,
				RowNumber:   label,
				SeatNumber:  n,
				SeatType:    domain.SeatTypeFor(n),
				IsAvailable: g.chance(3, 4),
				CreatedAt:   now,
			})
		}
	}
	return seats
}

// Schedule draws a showing in one of roomIDs. Show times span the last two
// years plus the next month, on the quarter hour between 09:00 and 23:45.
func (g *Generator) Schedule(roomIDs []int64) domain.Schedule {
	var roomID int64
	if len(roomIDs) > 0 {
		roomID = roomIDs[g.rnd.Intn(len(roomIDs))]
	} else {
		roomID = int64(g.between(1, 100))
	}

	now := g.now()
	start := now.AddDate(0, 0, -730)
	day := start.AddDate(0, 0, g.rnd.Intn(761))
	show := time.Date(day.Year(), day.Month(), day.Day(), g.between(9, 23), 15*g.rnd.Intn(4), 0, 0, time.UTC)

	return domain.Schedule{
		RoomID:    roomID,
		MovieID:   g.movieRef(),
		ShowTime:  show,
		Price:     g.money(5, 25),
		IsActive:  g.chance(3, 4),
		CreatedAt: now,
	}
}

func (g *Generator) Schedules(n int, roomIDs []int64) []domain.Schedule {
	out := make([]domain.Schedule, n)
	for i := range out {
		out[i] = g.Schedule(roomIDs)
	}
	return out
}
