// Package mysql holds the rooms store: connection setup, schema, bulk batch
// writers for seeding, the extract connector and the gorm-backed repository
// behind the rooms API.
package mysql

import (
	"context"
	"database/sql"
	"time"

	"github.com/cockroachdb/errors"
	_ "github.com/go-sql-driver/mysql"

	"github.com/cinemalab/cinema-data/internal/config"
	"github.com/cinemalab/cinema-data/internal/domain"
)

// Open connects and pings with a short timeout.
func Open(ctx context.Context, cfg config.MySQL) (*sql.DB, error) {
	db, err := sql.Open("mysql", cfg.DSN())
	if err != nil {
		return nil, errors.Wrap(err, "open mysql")
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, errors.Mark(errors.Wrapf(err, "ping mysql %s:%s", cfg.Host, cfg.Port), domain.ErrConnection)
	}
	return db, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS rooms (
	id INT AUTO_INCREMENT PRIMARY KEY,
	name VARCHAR(255) NOT NULL,
	capacity INT NOT NULL,
	screen_type ENUM('2D','3D','IMAX') NOT NULL DEFAULT '2D',
	is_active BOOLEAN NOT NULL DEFAULT TRUE,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
);
CREATE TABLE IF NOT EXISTS seats (
	id INT AUTO_INCREMENT PRIMARY KEY,
	room_id INT NOT NULL,
	` + "`row_number`" + ` VARCHAR(10) NOT NULL,
	seat_number INT NOT NULL,
	seat_type ENUM('regular','premium','vip') NOT NULL DEFAULT 'regular',
	is_available BOOLEAN NOT NULL DEFAULT TRUE,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY (room_id) REFERENCES rooms(id),
	UNIQUE KEY unique_seat (room_id, ` + "`row_number`" + `, seat_number)
);
CREATE TABLE IF NOT EXISTS schedules (
	id INT AUTO_INCREMENT PRIMARY KEY,
	room_id INT NOT NULL,
	movie_id VARCHAR(100) NOT NULL,
	show_time DATETIME NOT NULL,
	price DECIMAL(10,2) NOT NULL,
	screen_type ENUM('2D','3D','IMAX') NULL,
	is_active BOOLEAN NOT NULL DEFAULT TRUE,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY (room_id) REFERENCES rooms(id),
	INDEX idx_schedules_movie (movie_id)
);`

// EnsureSchema creates the three rooms tables when missing. The DSN enables
// multiStatements so the DDL goes in one round trip.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, schema)
	return errors.Wrap(err, "create mysql schema")
}
