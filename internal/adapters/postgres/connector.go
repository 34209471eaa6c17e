package postgres

import (
	"context"
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cinemalab/cinema-data/internal/config"
	"github.com/cinemalab/cinema-data/internal/dataset"
	"github.com/cinemalab/cinema-data/internal/domain"
	"github.com/cinemalab/cinema-data/internal/observability"
)

const (
	TableUsers         = "users"
	TableReservations  = "reservations"
	TableReservedSeats = "reserved_seats"
	TablePayments      = "payments"
)

var Tables = []string{TableUsers, TableReservations, TableReservedSeats, TablePayments}

type Connector struct {
	cfg    config.Postgres
	pool   *pgxpool.Pool
	logger observability.Logger
}

func NewConnector(cfg config.Postgres, logger observability.Logger) *Connector {
	return &Connector{cfg: cfg, logger: logger.WithField("source", "postgresql")}
}

func (c *Connector) Name() string     { return "postgresql" }
func (c *Connector) Database() string { return c.cfg.Database }
func (c *Connector) Host() string     { return c.cfg.Host }
func (c *Connector) Port() string     { return c.cfg.Port }
func (c *Connector) Tables() []string { return Tables }

func (c *Connector) Pool() *pgxpool.Pool { return c.pool }

func (c *Connector) Connect(ctx context.Context) error {
	pool, err := Open(ctx, c.cfg)
	if err != nil {
		c.logger.WithError(err).Error("postgres connection failed")
		return err
	}
	c.pool = pool
	c.logger.WithField("database", c.cfg.Database).Info("connected to postgres")
	return nil
}

func (c *Connector) Close(context.Context) error {
	if c.pool != nil {
		c.pool.Close()
		c.pool = nil
		c.logger.Info("postgres connection closed")
	}
	return nil
}

func (c *Connector) Fetch(ctx context.Context, table string, limit int) (dataset.Table, error) {
	if c.pool == nil {
		return dataset.Table{}, errors.Wrap(domain.ErrConnection, "postgres not connected")
	}
	if !known(table) {
		return dataset.Table{}, errors.Wrapf(domain.ErrInvalidInput, "unknown postgres table %q", table)
	}

	q := "SELECT * FROM " + table + " ORDER BY id"
	if limit > 0 {
		q += " LIMIT " + strconv.Itoa(limit)
	}
	rows, err := c.pool.Query(ctx, q)
	if err != nil {
		return dataset.Table{}, errors.Wrapf(err, "select %s", table)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	cols := make([]string, len(fields))
	for i, f := range fields {
		cols[i] = f.Name
	}

	t := dataset.Table{Name: table, Columns: cols, Rows: []dataset.Record{}}
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return dataset.Table{}, errors.Wrapf(err, "scan %s", table)
		}
		rec := make(dataset.Record, len(cols))
		for i, col := range cols {
			rec[col] = convert(vals[i])
		}
		t.Rows = append(t.Rows, dataset.NormalizeRecord(rec))
	}
	if err := rows.Err(); err != nil {
		return dataset.Table{}, errors.Wrapf(err, "read %s", table)
	}

	c.logger.WithFields(map[string]interface{}{"table": table, "rows": t.Len()}).Info("extracted table")
	return t, nil
}

func (c *Connector) FetchUsers(ctx context.Context) (dataset.Table, error) {
	return c.Fetch(ctx, TableUsers, 0)
}

func (c *Connector) FetchReservations(ctx context.Context) (dataset.Table, error) {
	return c.Fetch(ctx, TableReservations, 0)
}

func (c *Connector) FetchReservedSeats(ctx context.Context) (dataset.Table, error) {
	return c.Fetch(ctx, TableReservedSeats, 0)
}

func (c *Connector) FetchPayments(ctx context.Context) (dataset.Table, error) {
	return c.Fetch(ctx, TablePayments, 0)
}

func known(table string) bool {
	for _, t := range Tables {
		if t == table {
			return true
		}
	}
	return false
}

// convert turns pgx's numeric and integer values into float64 and int64.
func convert(v any) any {
	switch x := v.(type) {
	case pgtype.Numeric:
		if !x.Valid {
			return nil
		}
		f, err := x.Float64Value()
		if err != nil || !f.Valid {
			return nil
		}
		return f.Float64
	case int32:
		return int64(x)
	case int16:
		return int64(x)
	}
	return v
}
