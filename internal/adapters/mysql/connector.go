package mysql

import (
	"context"
	"database/sql"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/cinemalab/cinema-data/internal/config"
	"github.com/cinemalab/cinema-data/internal/dataset"
	"github.com/cinemalab/cinema-data/internal/domain"
	"github.com/cinemalab/cinema-data/internal/observability"
)

const (
	TableRooms     = "rooms"
	TableSeats     = "seats"
	TableSchedules = "schedules"
)

// Tables lists the extractable tables in export order.
var Tables = []string{TableRooms, TableSeats, TableSchedules}

// Connector extracts whole tables from the rooms database.
type Connector struct {
	cfg    config.MySQL
	db     *sql.DB
	logger observability.Logger
}

func NewConnector(cfg config.MySQL, logger observability.Logger) *Connector {
	return &Connector{cfg: cfg, logger: logger.WithField("source", "mysql")}
}

func (c *Connector) Name() string     { return "mysql" }
func (c *Connector) Database() string { return c.cfg.Database }
func (c *Connector) Host() string     { return c.cfg.Host }
func (c *Connector) Port() string     { return c.cfg.Port }
func (c *Connector) Tables() []string { return Tables }

// DB exposes the pool once connected.
func (c *Connector) DB() *sql.DB { return c.db }

func (c *Connector) Connect(ctx context.Context) error {
	db, err := Open(ctx, c.cfg)
	if err != nil {
		c.logger.WithError(err).Error("mysql connection failed")
		return err
	}
	c.db = db
	c.logger.WithField("database", c.cfg.Database).Info("connected to mysql")
	return nil
}

func (c *Connector) Close(context.Context) error {
	if c.db == nil {
		return nil
	}
	err := c.db.Close()
	c.db = nil
	c.logger.Info("mysql connection closed")
	return err
}

// Fetch reads table in primary-key order. A positive limit caps the rows.
func (c *Connector) Fetch(ctx context.Context, table string, limit int) (dataset.Table, error) {
	if c.db == nil {
		return dataset.Table{}, errors.Wrap(domain.ErrConnection, "mysql not connected")
	}
	if !known(table) {
		return dataset.Table{}, errors.Wrapf(domain.ErrInvalidInput, "unknown mysql table %q", table)
	}

	q := "SELECT * FROM " + table + " ORDER BY id"
	if limit > 0 {
		q += " LIMIT " + strconv.Itoa(limit)
	}
	rows, err := c.db.QueryContext(ctx, q)
	if err != nil {
		return dataset.Table{}, errors.Wrapf(err, "select %s", table)
	}
	defer rows.Close()

	t, err := scanTable(table, rows)
	if err != nil {
		return dataset.Table{}, err
	}
	c.logger.WithFields(map[string]interface{}{"table": table, "rows": t.Len()}).Info("extracted table")
	return t, nil
}

func (c *Connector) FetchRooms(ctx context.Context) (dataset.Table, error) {
	return c.Fetch(ctx, TableRooms, 0)
}

func (c *Connector) FetchSeats(ctx context.Context) (dataset.Table, error) {
	return c.Fetch(ctx, TableSeats, 0)
}

func (c *Connector) FetchSchedules(ctx context.Context) (dataset.Table, error) {
	return c.Fetch(ctx, TableSchedules, 0)
}

func known(table string) bool {
	for _, t := range Tables {
		if t == table {
			return true
		}
	}
	return false
}

func scanTable(name string, rows *sql.Rows) (dataset.Table, error) {
	cols, err := rows.Columns()
	if err != nil {
		return dataset.Table{}, err
	}
	types, err := rows.ColumnTypes()
	if err != nil {
		return dataset.Table{}, err
	}

	t := dataset.Table{Name: name, Columns: cols, Rows: []dataset.Record{}}
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return dataset.Table{}, errors.Wrapf(err, "scan %s", name)
		}

		rec := make(dataset.Record, len(cols))
		for i, col := range cols {
			rec[col] = convert(types[i].DatabaseTypeName(), vals[i])
		}
		t.Rows = append(t.Rows, dataset.NormalizeRecord(rec))
	}
	return t, errors.Wrapf(rows.Err(), "read %s", name)
}

// convert maps driver values to plain Go values by column type. Every TINYINT
// column in this schema is a BOOLEAN.
func convert(dbType string, v any) any {
	if v == nil {
		return nil
	}
	switch strings.ToUpper(dbType) {
	case "TINYINT":
		switch x := v.(type) {
		case int64:
			return x != 0
		case []byte:
			return string(x) != "0"
		}
	case "DECIMAL", "FLOAT", "DOUBLE":
		switch x := v.(type) {
		case []byte:
			f, err := strconv.ParseFloat(string(x), 64)
			if err == nil {
				return f
			}
		case float32:
			return float64(x)
		}
	case "INT", "BIGINT", "SMALLINT", "MEDIUMINT":
		if b, ok := v.([]byte); ok {
			if n, err := strconv.ParseInt(string(b), 10, 64); err == nil {
				return n
			}
		}
	}
	return v
}
