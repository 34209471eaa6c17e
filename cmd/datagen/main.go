// Command datagen fills the three source databases with synthetic cinema data.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	mongoadapter "github.com/cinemalab/cinema-data/internal/adapters/mongo"
	mysqladapter "github.com/cinemalab/cinema-data/internal/adapters/mysql"
	"github.com/cinemalab/cinema-data/internal/adapters/postgres"
	"github.com/cinemalab/cinema-data/internal/batch"
	"github.com/cinemalab/cinema-data/internal/config"
	"github.com/cinemalab/cinema-data/internal/domain"
	"github.com/cinemalab/cinema-data/internal/generator"
	"github.com/cinemalab/cinema-data/internal/observability"
)

var (
	countScale bool
	seed       int64
	batchSize  int

	cfg    *config.Config
	logger observability.Logger
)

func main() {
	root := &cobra.Command{
		Use:           "datagen",
		Short:         "Generate synthetic cinema data into MySQL, PostgreSQL and MongoDB",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load()
			if err != nil {
				return err
			}
			logger = observability.NewLogger(cfg.LogLevel).WithField("service", "datagen")
			if batchSize <= 0 {
				batchSize = cfg.BatchSize
			}
			return nil
		},
	}
	root.PersistentFlags().BoolVar(&countScale, "count-scale", false, "generate the reduced test volumes")
	root.PersistentFlags().Int64Var(&seed, "seed", 0, "random seed (0 uses the clock)")
	root.PersistentFlags().IntVar(&batchSize, "batch-size", 0, "rows per committed batch (default BATCH_SIZE)")

	root.AddCommand(
		&cobra.Command{Use: "mysql", Short: "Rooms, seats and schedules", RunE: run(seedMySQL)},
		&cobra.Command{Use: "postgres", Short: "Users, reservations, reserved seats and payments", RunE: run(seedPostgres)},
		&cobra.Command{Use: "mongo", Short: "Genres and movies", RunE: run(seedMongo)},
		&cobra.Command{Use: "all", Short: "Every store in turn", RunE: run(func(ctx context.Context, gen *generator.Generator, vol generator.Volumes) error {
			for _, fn := range []seedFunc{seedMySQL, seedPostgres, seedMongo} {
				if err := fn(ctx, gen, vol); err != nil {
					return err
				}
			}
			return nil
		})},
	)

	if err := root.Execute(); err != nil {
		if logger != nil {
			logger.WithError(err).Error("datagen failed")
		}
		os.Exit(1)
	}
}

type seedFunc func(ctx context.Context, gen *generator.Generator, vol generator.Volumes) error

func run(fn seedFunc) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		s := seed
		if s == 0 {
			s = time.Now().UnixNano()
		}
		vol := generator.FullVolumes
		if countScale {
			vol = generator.SampleVolumes
		}
		start := time.Now()
		if err := fn(ctx, generator.NewSeeded(s), vol); err != nil {
			return err
		}
		logger.WithFields(map[string]interface{}{
			"command":  cmd.Name(),
			"duration": time.Since(start).String(),
		}).Info("generation complete")
		return nil
	}
}

func seedMySQL(ctx context.Context, gen *generator.Generator, vol generator.Volumes) error {
	db, err := mysqladapter.Open(ctx, cfg.MySQL)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := mysqladapter.EnsureSchema(ctx, db); err != nil {
		return err
	}

	if _, err := batch.Load[domain.Room](ctx, "rooms", batchSize, mysqladapter.RoomWriter(db), logger, gen.Rooms(vol.Rooms)); err != nil {
		return err
	}

	pending, err := mysqladapter.RoomsWithoutSeats(ctx, db)
	if err != nil {
		return err
	}
	seats, err := batch.NewLoader[domain.Seat]("seats", batchSize, mysqladapter.SeatWriter(db), logger)
	if err != nil {
		return err
	}
	for _, r := range pending {
		for _, s := range gen.Seats(r.ID, r.Capacity) {
			if err := seats.Add(ctx, s); err != nil {
				return err
			}
		}
	}
	if err := seats.Flush(ctx); err != nil {
		return err
	}

	ids, err := mysqladapter.RoomIDs(ctx, db)
	if err != nil {
		return err
	}
	_, err = batch.Load[domain.Schedule](ctx, "schedules", batchSize, mysqladapter.ScheduleWriter(db), logger, gen.Schedules(vol.Schedules, ids))
	return err
}

func seedPostgres(ctx context.Context, gen *generator.Generator, vol generator.Volumes) error {
	pool, err := postgres.Open(ctx, cfg.Postgres)
	if err != nil {
		return err
	}
	defer pool.Close()
	repo := postgres.NewRepository(pool)
	if err := repo.EnsureSchema(ctx); err != nil {
		return err
	}

	if _, err := batch.Load[domain.User](ctx, "users", batchSize, repo.Users(), logger, gen.Users(vol.Users)); err != nil {
		return err
	}
	userIDs, err := repo.UserIDs(ctx)
	if err != nil {
		return err
	}

	seatWriter := repo.ReservedSeats()
	onCommit := func(ctx context.Context, stored []domain.Reservation) error {
		var seats []domain.ReservedSeat
		for _, r := range stored {
			seats = append(seats, gen.ReservedSeats(r.ID)...)
		}
		_, err := batch.Load[domain.ReservedSeat](ctx, "reserved_seats", batchSize, seatWriter, logger, seats)
		return err
	}
	reservations := gen.Reservations(vol.Reservations, userIDs)
	if _, err := batch.Load[domain.Reservation](ctx, "reservations", batchSize, repo.Reservations(onCommit), logger, reservations); err != nil {
		return err
	}

	unpaid, err := repo.UnpaidReservations(ctx)
	if err != nil {
		return err
	}
	payments := make([]domain.Payment, len(unpaid))
	for i, r := range unpaid {
		payments[i] = gen.Payment(r.ID, r.TotalAmount)
	}
	_, err = batch.Load[domain.Payment](ctx, "payments", batchSize, repo.Payments(), logger, payments)
	return err
}

func seedMongo(ctx context.Context, gen *generator.Generator, vol generator.Volumes) error {
	client, err := mongoadapter.Open(ctx, cfg.Mongo)
	if err != nil {
		return err
	}
	defer client.Disconnect(context.WithoutCancel(ctx))

	catalog := mongoadapter.NewCatalogRepository(client.Database(cfg.Mongo.Database), logger)
	if err := catalog.EnsureIndexes(ctx); err != nil {
		return err
	}

	n, err := catalog.GenreCount(ctx)
	if err != nil {
		return err
	}
	if n == 0 {
		if _, err := batch.Load[domain.Genre](ctx, "genres", batchSize, catalog.Genres(), logger, gen.Genres()); err != nil {
			return err
		}
	} else {
		logger.WithField("genres", n).Info("genres already present, skipping")
	}

	_, err = batch.Load[domain.Movie](ctx, "movies", batchSize, catalog.Movies(), logger, gen.Movies(vol.Movies))
	return err
}
