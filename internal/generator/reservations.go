package generator

import (
	"strings"
	"time"

	"github.com/cinemalab/cinema-data/internal/domain"
)

var firstNames = []string{
	"John", "Jane", "Michael", "Sarah", "David", "Lisa", "Robert", "Emily",
	"James", "Jessica", "William", "Ashley", "Richard", "Amanda", "Charles",
	"Jennifer", "Joseph", "Michelle", "Thomas", "Kimberly", "Christopher",
	"Donna", "Daniel", "Carol", "Paul", "Sandra", "Mark", "Ruth", "Donald",
	"Sharon", "Steven", "Laura", "Andrew", "Helen", "Joshua", "Deborah",
}

var lastNames = []string{
	"Smith", "Johnson", "Williams", "Brown", "Jones", "Garcia", "Miller",
	"Davis", "Rodriguez", "Martinez", "Hernandez", "Lopez", "Gonzalez",
	"Wilson", "Anderson", "Thomas", "Taylor", "Moore", "Jackson", "Martin",
	"Lee", "Perez", "Thompson", "White", "Harris", "Sanchez", "Clark",
	"Ramirez", "Lewis", "Robinson", "Walker", "Young", "Allen", "King",
	"Wright", "Scott", "Torres", "Nguyen", "Hill", "Flores",
}

const (
	maxScheduleID = 12000
	maxSeatID     = 15000
	lookback      = 180 * 24 * time.Hour
)

func (g *Generator) User() domain.User {
	first, last := g.pick(firstNames), g.pick(lastNames)
	now := g.now()
	return domain.User{
		Email:     strings.ToLower(first+"."+last) + itoa(g.between(1, 9999)) + "@email.com",
		Name:      first + " " + last,
		Phone:     "+1" + g.digits(10),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (g *Generator) Users(n int) []domain.User {
	out := make([]domain.User, n)
	for i := range out {
		out[i] = g.User()
	}
	return out
}

func (g *Generator) Reservation(userID int64) domain.Reservation {
	now := g.now()
	return domain.Reservation{
		UserID:          userID,
		ScheduleID:      int64(g.between(1, maxScheduleID)),
		MovieID:         g.movieRef(),
		TotalAmount:     g.money(10, 100),
		Status:          domain.ReservationStatuses[g.rnd.Intn(len(domain.ReservationStatuses))],
		ReservationDate: g.timeBetween(now.Add(-lookback), now),
	}
}

// Reservations draws n reservations for users picked from userIDs.
func (g *Generator) Reservations(n int, userIDs []int64) []domain.Reservation {
	if len(userIDs) == 0 {
		return nil
	}
	out := make([]domain.Reservation, n)
	for i := range out {
		out[i] = g.Reservation(userIDs[g.rnd.Intn(len(userIDs))])
	}
	return out
}

// ReservedSeats draws one to six distinct seats for a reservation.
func (g *Generator) ReservedSeats(reservationID int64) []domain.ReservedSeat {
	n := g.between(1, 6)
	seen := make(map[int64]struct{}, n)
	out := make([]domain.ReservedSeat, 0, n)
	for len(out) < n {
		id := int64(g.between(1, maxSeatID))
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, domain.ReservedSeat{ReservationID: reservationID, SeatID: id})
	}
	return out
}

func (g *Generator) Payment(reservationID int64, amount float64) domain.Payment {
	now := g.now()
	return domain.Payment{
		ReservationID: reservationID,
		Amount:        amount,
		PaymentMethod: domain.PaymentMethods[g.rnd.Intn(len(domain.PaymentMethods))],
		PaymentStatus: domain.PaymentStatuses[g.rnd.Intn(len(domain.PaymentStatuses))],
		TransactionID: "TXN" + itoa(g.between(100000000, 999999999)),
		PaymentDate:   g.timeBetween(now.Add(-lookback), now),
	}
}
