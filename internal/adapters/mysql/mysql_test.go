package mysql_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/cinemalab/cinema-data/internal/adapters/mysql"
	"github.com/cinemalab/cinema-data/internal/batch"
	"github.com/cinemalab/cinema-data/internal/config"
	"github.com/cinemalab/cinema-data/internal/domain"
	"github.com/cinemalab/cinema-data/internal/generator"
	"github.com/cinemalab/cinema-data/internal/observability"
)

func startMySQL(t *testing.T) config.MySQL {
	t.Helper()
	if testing.Short() {
		t.Skip("integration test")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)
	ctx := context.Background()

	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "mysql:8.0",
			ExposedPorts: []string{"3306/tcp"},
			Env: map[string]string{
				"MYSQL_ROOT_PASSWORD": "root",
				"MYSQL_DATABASE":      "cinema_rooms",
				"MYSQL_USER":          "cinema_user",
				"MYSQL_PASSWORD":      "cinema_password",
			},
			WaitingFor: wait.ForLog("port: 3306  MySQL Community Server").WithStartupTimeout(3 * time.Minute),
		},
		Started: true,
	})
	if err != nil {
		t.Skipf("docker unavailable: %v", err)
	}
	t.Cleanup(func() { _ = c.Terminate(ctx) })

	host, err := c.Host(ctx)
	require.NoError(t, err)
	port, err := c.MappedPort(ctx, "3306")
	require.NoError(t, err)

	return config.MySQL{
		Host:     host,
		Port:     port.Port(),
		User:     "cinema_user",
		Password: "cinema_password",
		Database: "cinema_rooms",
	}
}

func TestRoomsStore(t *testing.T) {
	cfg := startMySQL(t)
	ctx := context.Background()
	log := observability.NewNopLogger()

	conn := mysql.NewConnector(cfg, log)
	require.NoError(t, conn.Connect(ctx))
	defer conn.Close(ctx)
	require.NoError(t, mysql.EnsureSchema(ctx, conn.DB()))

	repo, err := mysql.NewRepository(conn.DB())
	require.NoError(t, err)

	t.Run("create and list rooms", func(t *testing.T) {
		room, err := repo.CreateRoom(ctx, domain.Room{Name: "Sala Test", Capacity: 100, ScreenType: domain.ScreenIMAX})
		require.NoError(t, err)

		rooms, err := repo.ListActiveRooms(ctx)
		require.NoError(t, err)
		require.Len(t, rooms, 1)
		assert.Equal(t, room.ID, rooms[0].ID)
		assert.Equal(t, domain.ScreenIMAX, rooms[0].ScreenType)

		_, err = repo.GetRoom(ctx, room.ID+1000)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("cascading delete", func(t *testing.T) {
		room, err := repo.CreateRoom(ctx, domain.Room{Name: "Sala Borrar", Capacity: 20, ScreenType: domain.Screen2D})
		require.NoError(t, err)

		n, err := repo.CreateSeats(ctx, room.ID, []domain.Seat{
			{RowNumber: "A", SeatNumber: 1, SeatType: domain.SeatVIP},
			{RowNumber: "A", SeatNumber: 2},
		})
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		_, err = repo.CreateSchedule(ctx, domain.Schedule{
			RoomID: room.ID, MovieID: "507f1f77bcf86cd799000001",
			ShowTime: time.Now().Add(24 * time.Hour), Price: 9.5, ScreenType: domain.Screen3D,
		})
		require.NoError(t, err)

		views, err := repo.SchedulesByMovie(ctx, "507f1f77bcf86cd799000001")
		require.NoError(t, err)
		require.Len(t, views, 1)
		assert.Equal(t, "Sala Borrar", views[0].RoomName)
		assert.Equal(t, 20, views[0].RoomCapacity)

		del, err := repo.DeleteRoom(ctx, room.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(1), del.Schedules)
		assert.Equal(t, int64(2), del.Seats)

		_, err = repo.DeleteRoom(ctx, room.ID)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("seed and extract", func(t *testing.T) {
		gen := generator.NewSeeded(7)
		rooms := gen.Rooms(5)
		_, err := batch.Load[domain.Room](ctx, "rooms", 2, mysql.RoomWriter(conn.DB()), log, rooms)
		require.NoError(t, err)

		pending, err := mysql.RoomsWithoutSeats(ctx, conn.DB())
		require.NoError(t, err)

		want := 0
		var seats []domain.Seat
		for _, r := range pending {
			seats = append(seats, gen.Seats(r.ID, r.Capacity)...)
			want += r.Capacity
		}
		stats, err := batch.Load[domain.Seat](ctx, "seats", 100, mysql.SeatWriter(conn.DB()), log, seats)
		require.NoError(t, err)
		assert.Equal(t, want, stats.Rows)

		ids, err := mysql.RoomIDs(ctx, conn.DB())
		require.NoError(t, err)
		_, err = batch.Load[domain.Schedule](ctx, "schedules", 10, mysql.ScheduleWriter(conn.DB()), log, gen.Schedules(25, ids))
		require.NoError(t, err)

		tbl, err := conn.FetchRooms(ctx)
		require.NoError(t, err)
		assert.Equal(t, "id", tbl.Columns[0])
		for _, rec := range tbl.Rows {
			assert.IsType(t, "", rec["created_at"])
			assert.IsType(t, true, rec["is_active"])
		}

		seatTbl, err := conn.FetchSeats(ctx)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, seatTbl.Len(), want)

		all, err := conn.FetchSchedules(ctx)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, all.Len(), 25)

		sched, err := conn.Fetch(ctx, mysql.TableSchedules, 3)
		require.NoError(t, err)
		require.Len(t, sched.Rows, 3)
		assert.IsType(t, float64(0), sched.Rows[0]["price"])
		assert.IsType(t, "", sched.Rows[0]["show_time"])

		_, err = conn.Fetch(ctx, "users", 0)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}
