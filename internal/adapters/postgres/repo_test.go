package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/cinemalab/cinema-data/internal/adapters/postgres"
	"github.com/cinemalab/cinema-data/internal/batch"
	"github.com/cinemalab/cinema-data/internal/config"
	"github.com/cinemalab/cinema-data/internal/domain"
	"github.com/cinemalab/cinema-data/internal/generator"
	"github.com/cinemalab/cinema-data/internal/observability"
)

func startPostgres(t *testing.T) config.Postgres {
	t.Helper()
	if testing.Short() {
		t.Skip("integration test")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)
	ctx := context.Background()

	pg, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "cinema_user",
				"POSTGRES_PASSWORD": "cinema_password",
				"POSTGRES_DB":       "cinema_reservations",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).WithStartupTimeout(2 * time.Minute),
		},
		Started: true,
	})
	if err != nil {
		t.Skipf("docker unavailable: %v", err)
	}
	t.Cleanup(func() { pg.Terminate(ctx) })

	host, err := pg.Host(ctx)
	if err != nil {
		t.Fatal(err)
	}
	port, err := pg.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatal(err)
	}
	return config.Postgres{
		Host:     host,
		Port:     port.Port(),
		User:     "cinema_user",
		Password: "cinema_password",
		Database: "cinema_reservations",
	}
}

func TestRepository_SeedAndExtract(t *testing.T) {
	cfg := startPostgres(t)
	ctx := context.Background()
	log := observability.NewNopLogger()

	conn := postgres.NewConnector(cfg, log)
	if err := conn.Connect(ctx); err != nil {
		t.Fatal(err)
	}
	defer conn.Close(ctx)

	repo := postgres.NewRepository(conn.Pool())
	if err := repo.EnsureSchema(ctx); err != nil {
		t.Fatal(err)
	}

	gen := generator.NewSeeded(11)
	users := gen.Users(20)
	// a duplicate email is skipped, not an error
	users = append(users, users[0])
	if _, err := batch.Load[domain.User](ctx, "users", 8, repo.Users(), log, users); err != nil {
		t.Fatal(err)
	}

	ids, err := repo.UserIDs(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) == 0 || len(ids) > 20 {
		t.Fatalf("expected 1..20 users, got %d", len(ids))
	}

	var seatsWritten int
	onCommit := func(ctx context.Context, stored []domain.Reservation) error {
		var seats []domain.ReservedSeat
		for _, r := range stored {
			if r.ID == 0 {
				t.Errorf("reservation without id after commit")
			}
			seats = append(seats, gen.ReservedSeats(r.ID)...)
		}
		stats, err := batch.Load[domain.ReservedSeat](ctx, "reserved_seats", 50, repo.ReservedSeats(), log, seats)
		seatsWritten += stats.Rows
		return err
	}
	stats, err := batch.Load[domain.Reservation](ctx, "reservations", 10, repo.Reservations(onCommit), log, gen.Reservations(30, ids))
	if err != nil {
		t.Fatal(err)
	}
	if stats.Rows != 30 || stats.Batches != 3 {
		t.Errorf("expected 30 rows in 3 batches, got %+v", stats)
	}

	unpaid, err := repo.UnpaidReservations(ctx)
	if err != nil {
		t.Fatal(err)
	}
	payments := make([]domain.Payment, len(unpaid))
	for i, r := range unpaid {
		payments[i] = gen.Payment(r.ID, r.TotalAmount)
	}
	if _, err := batch.Load[domain.Payment](ctx, "payments", 100, repo.Payments(), log, payments); err != nil {
		t.Fatal(err)
	}

	seats, err := conn.FetchReservedSeats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if seats.Len() != seatsWritten {
		t.Errorf("expected %d reserved seats, got %d", seatsWritten, seats.Len())
	}

	res, err := conn.Fetch(ctx, postgres.TableReservations, 5)
	if err != nil {
		t.Fatal(err)
	}
	if res.Len() != 5 {
		t.Fatalf("expected 5 rows, got %d", res.Len())
	}
	for _, rec := range res.Rows {
		if _, ok := rec["total_amount"].(float64); !ok {
			t.Errorf("total_amount should be float64, got %T", rec["total_amount"])
		}
		if _, ok := rec["reservation_date"].(string); !ok {
			t.Errorf("reservation_date should be a string, got %T", rec["reservation_date"])
		}
		if _, ok := rec["id"].(int64); !ok {
			t.Errorf("id should be int64, got %T", rec["id"])
		}
	}

	allRes, err := conn.FetchReservations(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if allRes.Len() != 30 {
		t.Errorf("expected 30 reservations, got %d", allRes.Len())
	}

	pays, err := conn.FetchPayments(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if pays.Len() != 30 {
		t.Errorf("expected one payment per reservation, got %d", pays.Len())
	}
}

func TestConnector_NotConnected(t *testing.T) {
	conn := postgres.NewConnector(config.Postgres{}, observability.NewNopLogger())
	if _, err := conn.FetchUsers(context.Background()); err == nil {
		t.Fatal("expected error before Connect")
	}
}
