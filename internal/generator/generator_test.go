package generator

import (
	"math/rand"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cinemalab/cinema-data/internal/domain"
)

var fixedNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestGenerator(seed int64) *Generator {
	return New(rand.New(rand.NewSource(seed)), func() time.Time { return fixedNow })
}

func TestSeats_CountMatchesCapacity(t *testing.T) {
	t.Parallel()
	g := newTestGenerator(1)

	for _, capacity := range []int{1, 9, 10, 11, 50, 55, 99, 100, 137, 200} {
		seats := g.Seats(7, capacity)
		require.Len(t, seats, capacity, "capacity %d", capacity)

		seen := map[string]bool{}
		for _, s := range seats {
			key := s.RowNumber + "-" + itoa(s.SeatNumber)
			assert.False(t, seen[key], "duplicate seat %s", key)
			seen[key] = true
			assert.Equal(t, int64(7), s.RoomID)
			assert.LessOrEqual(t, s.SeatNumber, 10)
		}
	}
}

func TestSeats_ZeroCapacity(t *testing.T) {
	t.Parallel()
	assert.Empty(t, newTestGenerator(1).Seats(1, 0))
}

func TestSeats_HundredRoomsTotals(t *testing.T) {
	t.Parallel()
	g := newTestGenerator(42)

	rooms := g.Rooms(100)
	total, sum := 0, 0
	for i, r := range rooms {
		require.GreaterOrEqual(t, r.Capacity, 50)
		require.LessOrEqual(t, r.Capacity, 200)
		sum += r.Capacity

		for _, s := range g.Seats(int64(i+1), r.Capacity) {
			total++
			if s.SeatType == domain.SeatVIP {
				assert.LessOrEqual(t, s.SeatNumber, 2)
			}
			if s.SeatNumber <= 2 {
				assert.Equal(t, domain.SeatVIP, s.SeatType)
			}
		}
	}
	assert.Equal(t, sum, total)
}

func TestRoom_Fields(t *testing.T) {
	t.Parallel()
	g := newTestGenerator(3)

	active := 0
	for i := 0; i < 400; i++ {
		r := g.Room()
		assert.True(t, r.ScreenType.Valid())
		assert.Regexp(t, `^Sala .+ \d{1,2}$`, r.Name)
		if r.IsActive {
			active++
		}
	}
	// three in four rooms are active
	assert.InDelta(t, 300, active, 60)
}

func TestSchedule_Fields(t *testing.T) {
	t.Parallel()
	g := newTestGenerator(5)
	roomIDs := []int64{11, 12, 13}

	earliest := fixedNow.AddDate(0, 0, -731)
	latest := fixedNow.AddDate(0, 0, 31)
	for i := 0; i < 500; i++ {
		s := g.Schedule(roomIDs)
		assert.Contains(t, roomIDs, s.RoomID)
		assert.True(t, strings.HasPrefix(s.MovieID, "507f1f77bcf86cd799"))
		assert.Len(t, s.MovieID, 24)
		assert.GreaterOrEqual(t, s.Price, 5.0)
		assert.LessOrEqual(t, s.Price, 25.0)
		assert.Equal(t, s.Price, float64(int64(s.Price*100+0.5))/100)
		assert.GreaterOrEqual(t, s.ShowTime.Hour(), 9)
		assert.LessOrEqual(t, s.ShowTime.Hour(), 23)
		assert.Zero(t, s.ShowTime.Minute()%15)
		assert.True(t, s.ShowTime.After(earliest) && s.ShowTime.Before(latest))
	}
}

func TestUserAndPayment_Formats(t *testing.T) {
	t.Parallel()
	g := newTestGenerator(9)
	email := regexp.MustCompile(`^[a-z]+\.[a-z]+\d{1,4}@email\.com$`)

	for i := 0; i < 100; i++ {
		u := g.User()
		assert.Regexp(t, email, u.Email)
		assert.Regexp(t, `^\+1\d{10}$`, u.Phone)

		p := g.Payment(int64(i), 42.5)
		assert.Regexp(t, `^TXN\d{9}$`, p.TransactionID)
		assert.Equal(t, 42.5, p.Amount)
		assert.Contains(t, domain.PaymentMethods, p.PaymentMethod)
		assert.Contains(t, domain.PaymentStatuses, p.PaymentStatus)
	}
}

func TestReservations(t *testing.T) {
	t.Parallel()
	g := newTestGenerator(11)

	assert.Nil(t, g.Reservations(5, nil))

	res := g.Reservations(200, []int64{1, 2, 3})
	require.Len(t, res, 200)
	for _, r := range res {
		assert.Contains(t, []int64{1, 2, 3}, r.UserID)
		assert.GreaterOrEqual(t, r.TotalAmount, 10.0)
		assert.LessOrEqual(t, r.TotalAmount, 100.0)
		assert.Contains(t, domain.ReservationStatuses, r.Status)
		assert.False(t, r.ReservationDate.After(fixedNow))
		assert.True(t, r.ReservationDate.After(fixedNow.Add(-lookback-time.Second)))

		seats := g.ReservedSeats(r.ID)
		assert.GreaterOrEqual(t, len(seats), 1)
		assert.LessOrEqual(t, len(seats), 6)
		ids := map[int64]bool{}
		for _, s := range seats {
			assert.Equal(t, r.ID, s.ReservationID)
			assert.GreaterOrEqual(t, s.SeatID, int64(1))
			assert.LessOrEqual(t, s.SeatID, int64(15000))
			assert.False(t, ids[s.SeatID])
			ids[s.SeatID] = true
		}
	}
}

func TestGenresAndMovies(t *testing.T) {
	t.Parallel()
	g := newTestGenerator(13)

	genres := g.Genres()
	require.Len(t, genres, 22)
	names := map[string]bool{}
	for _, gen := range genres {
		assert.False(t, names[gen.Name])
		names[gen.Name] = true
	}

	for i := 0; i < 100; i++ {
		m := g.Movie()
		assert.NotEmpty(t, m.Title)
		assert.GreaterOrEqual(t, len(m.Genre), 1)
		assert.LessOrEqual(t, len(m.Genre), 3)
		assert.GreaterOrEqual(t, len(m.Cast), 3)
		assert.LessOrEqual(t, len(m.Cast), 8)
		assert.GreaterOrEqual(t, m.Duration, 60)
		assert.LessOrEqual(t, m.Duration, 200)
		assert.GreaterOrEqual(t, m.Rating, 0.0)
		assert.LessOrEqual(t, m.Rating, 10.0)
		assert.False(t, m.UpdatedAt.Before(m.CreatedAt))
		for _, genre := range m.Genre {
			assert.True(t, names[genre])
		}
	}
}

func TestDeterministicUnderSeed(t *testing.T) {
	t.Parallel()
	a := newTestGenerator(99).Rooms(5)
	b := newTestGenerator(99).Rooms(5)
	assert.Equal(t, a, b)
}
