// Package postgres holds the reservations store: pool setup, schema, the
// pgx.Batch writers used for seeding and the extract connector.
package postgres

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cinemalab/cinema-data/internal/config"
	"github.com/cinemalab/cinema-data/internal/domain"
)

func Open(ctx context.Context, cfg config.Postgres) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, cfg.DSN())
	if err != nil {
		return nil, errors.Wrap(err, "open postgres")
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, errors.Mark(errors.Wrapf(err, "ping postgres %s:%s", cfg.Host, cfg.Port), domain.ErrConnection)
	}
	return pool, nil
}

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// WithTx runs fn in a transaction and commits when it returns nil.
func (r *Repository) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id SERIAL PRIMARY KEY,
	email VARCHAR(255) UNIQUE NOT NULL,
	name VARCHAR(255) NOT NULL,
	phone VARCHAR(20),
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE IF NOT EXISTS reservations (
	id SERIAL PRIMARY KEY,
	user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	schedule_id INTEGER NOT NULL,
	movie_id VARCHAR(100) NOT NULL,
	total_amount DECIMAL(10,2) NOT NULL,
	status VARCHAR(20) DEFAULT 'PENDING'
		CHECK (status IN ('PENDING', 'CONFIRMED', 'CANCELLED', 'EXPIRED')),
	reservation_date TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE IF NOT EXISTS reserved_seats (
	id SERIAL PRIMARY KEY,
	reservation_id INTEGER NOT NULL REFERENCES reservations(id) ON DELETE CASCADE,
	seat_id INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS payments (
	id SERIAL PRIMARY KEY,
	reservation_id INTEGER NOT NULL REFERENCES reservations(id) ON DELETE CASCADE,
	amount DECIMAL(10,2) NOT NULL,
	payment_method VARCHAR(50) NOT NULL,
	payment_status VARCHAR(20) DEFAULT 'PENDING'
		CHECK (payment_status IN ('PENDING', 'COMPLETED', 'FAILED', 'REFUNDED')),
	transaction_id VARCHAR(255),
	payment_date TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);`

func (r *Repository) EnsureSchema(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, schema)
	return errors.Wrap(err, "create postgres schema")
}

func (r *Repository) UserIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.pool.Query(ctx, `SELECT id FROM users ORDER BY id`)
	if err != nil {
		return nil, errors.Wrap(err, "query user ids")
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	return ids, errors.Wrap(err, "scan user ids")
}

// UnpaidReservations returns id and amount of reservations without a payment.
func (r *Repository) UnpaidReservations(ctx context.Context) ([]domain.Reservation, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT r.id, r.total_amount::float8
		FROM reservations r
		LEFT JOIN payments p ON p.reservation_id = r.id
		WHERE p.id IS NULL
		ORDER BY r.id`)
	if err != nil {
		return nil, errors.Wrap(err, "query reservations")
	}
	defer rows.Close()

	var out []domain.Reservation
	for rows.Next() {
		var res domain.Reservation
		if err := rows.Scan(&res.ID, &res.TotalAmount); err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}
