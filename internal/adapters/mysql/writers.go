package mysql

import (
	"context"
	"database/sql"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/cinemalab/cinema-data/internal/domain"
)

// maxPlaceholders is MySQL's limit on parameters in one prepared statement.
const maxPlaceholders = 65535

// TableWriter inserts a batch with multi-row INSERTs inside its own
// transaction. Batches wider than one statement allows are split into
// several statements before the single commit.
type TableWriter[T any] struct {
	db      *sql.DB
	table   string
	columns []string
	values  func(T) []any
}

func (w *TableWriter[T]) WriteBatch(ctx context.Context, rows []T) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrapf(err, "begin %s batch", w.table)
	}
	defer tx.Rollback()

	for _, n := range w.chunks(len(rows)) {
		chunk := rows[:n]
		rows = rows[n:]

		args := make([]any, 0, n*len(w.columns))
		for _, r := range chunk {
			args = append(args, w.values(r)...)
		}
		if _, err := tx.ExecContext(ctx, w.insertSQL(n), args...); err != nil {
			return errors.Wrapf(err, "insert into %s", w.table)
		}
	}
	return errors.Wrapf(tx.Commit(), "commit %s batch", w.table)
}

// chunks splits n rows into statement sizes that stay within maxPlaceholders.
func (w *TableWriter[T]) chunks(n int) []int {
	per := maxPlaceholders / len(w.columns)
	var out []int
	for n > 0 {
		size := min(n, per)
		out = append(out, size)
		n -= size
	}
	return out
}

func (w *TableWriter[T]) insertSQL(n int) string {
	cols := make([]string, len(w.columns))
	for i, c := range w.columns {
		cols[i] = "`" + c + "`"
	}
	tuple := "(" + strings.TrimSuffix(strings.Repeat("?,", len(w.columns)), ",") + ")"

	var b strings.Builder
	b.WriteString("INSERT INTO " + w.table + " (" + strings.Join(cols, ",") + ") VALUES ")
	for i := 0; i < n; i++ {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(tuple)
	}
	return b.String()
}

func RoomWriter(db *sql.DB) *TableWriter[domain.Room] {
	return &TableWriter[domain.Room]{
		db:      db,
		table:   "rooms",
		columns: []string{"name", "capacity", "screen_type", "is_active", "created_at", "updated_at"},
		values: func(r domain.Room) []any {
			return []any{r.Name, r.Capacity, string(r.ScreenType), r.IsActive, r.CreatedAt.UTC(), r.UpdatedAt.UTC()}
		},
	}
}

func SeatWriter(db *sql.DB) *TableWriter[domain.Seat] {
	return &TableWriter[domain.Seat]{
		db:      db,
		table:   "seats",
		columns: []string{"room_id", "row_number", "seat_number", "seat_type", "is_available", "created_at"},
		values: func(s domain.Seat) []any {
			return []any{s.RoomID, s.RowNumber, s.SeatNumber, string(s.SeatType), s.IsAvailable, s.CreatedAt.UTC()}
		},
	}
}

func ScheduleWriter(db *sql.DB) *TableWriter[domain.Schedule] {
	return &TableWriter[domain.Schedule]{
		db:      db,
		table:   "schedules",
		columns: []string{"room_id", "movie_id", "show_time", "price", "screen_type", "is_active", "created_at"},
		values: func(s domain.Schedule) []any {
			var screen any
			if s.ScreenType != "" {
				screen = string(s.ScreenType)
			}
			return []any{s.RoomID, s.MovieID, s.ShowTime.UTC(), s.Price, screen, s.IsActive, s.CreatedAt.UTC()}
		},
	}
}

// RoomsWithoutSeats lists rooms that have no seat rows yet, so seeding can
// lay out seats for freshly inserted rooms only.
func RoomsWithoutSeats(ctx context.Context, db *sql.DB) ([]domain.Room, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT r.id, r.capacity FROM rooms r
		LEFT JOIN seats s ON s.room_id = r.id
		WHERE s.id IS NULL
		ORDER BY r.id`)
	if err != nil {
		return nil, errors.Wrap(err, "query rooms without seats")
	}
	defer rows.Close()

	var rooms []domain.Room
	for rows.Next() {
		var r domain.Room
		if err := rows.Scan(&r.ID, &r.Capacity); err != nil {
			return nil, err
		}
		rooms = append(rooms, r)
	}
	return rooms, rows.Err()
}

func RoomIDs(ctx context.Context, db *sql.DB) ([]int64, error) {
	rows, err := db.QueryContext(ctx, `SELECT id FROM rooms ORDER BY id`)
	if err != nil {
		return nil, errors.Wrap(err, "query room ids")
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
