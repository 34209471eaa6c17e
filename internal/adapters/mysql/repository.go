package mysql

import (
	"context"
	"database/sql"
	"time"

	"github.com/cockroachdb/errors"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/cinemalab/cinema-data/internal/domain"
)

type roomModel struct {
	ID         int64  `gorm:"primaryKey"`
	Name       string `gorm:"size:255;not null"`
	Capacity   int    `gorm:"not null"`
	ScreenType string `gorm:"default:'2D'"`
	IsActive   bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (roomModel) TableName() string { return "rooms" }

func (m roomModel) toDomain() domain.Room {
	return domain.Room{
		ID:         m.ID,
		Name:       m.Name,
		Capacity:   m.Capacity,
		ScreenType: domain.ScreenType(m.ScreenType),
		IsActive:   m.IsActive,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
}

type seatModel struct {
	ID          int64  `gorm:"primaryKey"`
	RoomID      int64  `gorm:"not null"`
	RowNumber   string `gorm:"column:row_number;size:10;not null"`
	SeatNumber  int    `gorm:"not null"`
	SeatType    string `gorm:"default:'regular'"`
	IsAvailable bool
	CreatedAt   time.Time
}

func (seatModel) TableName() string { return "seats" }

func (m seatModel) toDomain() domain.Seat {
	return domain.Seat{
		ID:          m.ID,
		RoomID:      m.RoomID,
		RowNumber:   m.RowNumber,
		SeatNumber:  m.SeatNumber,
		SeatType:    domain.SeatType(m.SeatType),
		IsAvailable: m.IsAvailable,
		CreatedAt:   m.CreatedAt,
	}
}

type scheduleModel struct {
	ID         int64     `gorm:"primaryKey"`
	RoomID     int64     `gorm:"not null"`
	MovieID    string    `gorm:"size:100;not null"`
	ShowTime   time.Time `gorm:"not null"`
	Price      float64   `gorm:"type:decimal(10,2);not null"`
	ScreenType *string
	IsActive   bool
	CreatedAt  time.Time
}

func (scheduleModel) TableName() string { return "schedules" }

// scheduleRow is a schedule joined with its room.
type scheduleRow struct {
	scheduleModel
	RoomName     string
	RoomCapacity int
}

func (r scheduleRow) toDomain() domain.ScheduleView {
	s := domain.Schedule{
		ID:        r.ID,
		RoomID:    r.RoomID,
		MovieID:   r.MovieID,
		ShowTime:  r.ShowTime,
		Price:     r.Price,
		IsActive:  r.IsActive,
		CreatedAt: r.CreatedAt,
	}
	if r.ScreenType != nil {
		s.ScreenType = domain.ScreenType(*r.ScreenType)
	}
	return domain.ScheduleView{Schedule: s, RoomName: r.RoomName, RoomCapacity: r.RoomCapacity}
}

// ScheduleFilter narrows schedule listings. Zero values match everything.
type ScheduleFilter struct {
	MovieID string
	RoomID  int64
}

// Repository is the rooms API's view of the store.
type Repository struct {
	db *gorm.DB
}

// NewRepository wraps an existing pool so the API and the seed tools share
// one set of connections.
func NewRepository(sqlDB *sql.DB) (*Repository, error) {
	gdb, err := gorm.Open(gormmysql.New(gormmysql.Config{Conn: sqlDB}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, errors.Wrap(err, "open gorm")
	}
	return &Repository{db: gdb}, nil
}

func (r *Repository) ListActiveRooms(ctx context.Context) ([]domain.Room, error) {
	var models []roomModel
	if err := r.db.WithContext(ctx).Where("is_active = ?", true).Order("id").Find(&models).Error; err != nil {
		return nil, errors.Wrap(err, "list rooms")
	}
	rooms := make([]domain.Room, len(models))
	for i, m := range models {
		rooms[i] = m.toDomain()
	}
	return rooms, nil
}

func (r *Repository) GetRoom(ctx context.Context, id int64) (domain.Room, error) {
	var m roomModel
	if err := r.db.WithContext(ctx).First(&m, id).Error; err != nil {
		return domain.Room{}, notFound(err, "room %d", id)
	}
	return m.toDomain(), nil
}

func (r *Repository) CreateRoom(ctx context.Context, room domain.Room) (domain.Room, error) {
	m := roomModel{
		Name:       room.Name,
		Capacity:   room.Capacity,
		ScreenType: string(room.ScreenType),
		IsActive:   true,
	}
	if m.ScreenType == "" {
		m.ScreenType = string(domain.Screen2D)
	}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return domain.Room{}, errors.Wrap(err, "create room")
	}
	return m.toDomain(), nil
}

func (r *Repository) ListSeats(ctx context.Context, roomID int64) ([]domain.Seat, error) {
	if _, err := r.GetRoom(ctx, roomID); err != nil {
		return nil, err
	}
	var models []seatModel
	err := r.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("`row_number`, seat_number").
		Find(&models).Error
	if err != nil {
		return nil, errors.Wrap(err, "list seats")
	}
	seats := make([]domain.Seat, len(models))
	for i, m := range models {
		seats[i] = m.toDomain()
	}
	return seats, nil
}

// CreateSeats inserts all seats for a room in one transaction.
func (r *Repository) CreateSeats(ctx context.Context, roomID int64, seats []domain.Seat) (int, error) {
	if _, err := r.GetRoom(ctx, roomID); err != nil {
		return 0, err
	}
	if len(seats) == 0 {
		return 0, nil
	}
	models := make([]seatModel, len(seats))
	for i, s := range seats {
		st := s.SeatType
		if st == "" {
			st = domain.SeatRegular
		}
		models[i] = seatModel{
			RoomID:      roomID,
			RowNumber:   s.RowNumber,
			SeatNumber:  s.SeatNumber,
			SeatType:    string(st),
			IsAvailable: true,
		}
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.CreateInBatches(&models, 500).Error
	})
	if err != nil {
		return 0, errors.Wrapf(err, "create seats for room %d", roomID)
	}
	return len(models), nil
}

func (r *Repository) ListSchedules(ctx context.Context, f ScheduleFilter) ([]domain.ScheduleView, error) {
	q := r.schedules(ctx)
	if f.MovieID != "" {
		q = q.Where("schedules.movie_id = ?", f.MovieID)
	}
	if f.RoomID != 0 {
		q = q.Where("schedules.room_id = ?", f.RoomID)
	}
	return findSchedules(q)
}

func (r *Repository) SchedulesByMovie(ctx context.Context, movieID string) ([]domain.ScheduleView, error) {
	return findSchedules(r.schedules(ctx).Where("schedules.movie_id = ?", movieID))
}

func (r *Repository) schedules(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Model(&scheduleModel{}).
		Select("schedules.*, rooms.name AS room_name, rooms.capacity AS room_capacity").
		Joins("JOIN rooms ON rooms.id = schedules.room_id").
		Where("schedules.is_active = ?", true).
		Order("schedules.show_time")
}

func findSchedules(q *gorm.DB) ([]domain.ScheduleView, error) {
	var rows []scheduleRow
	if err := q.Scan(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "list schedules")
	}
	out := make([]domain.ScheduleView, len(rows))
	for i, row := range rows {
		out[i] = row.toDomain()
	}
	return out, nil
}

// CreateSchedule inserts an active schedule. The movie id is not checked
// against the catalog.
func (r *Repository) CreateSchedule(ctx context.Context, s domain.Schedule) (domain.Schedule, error) {
	if _, err := r.GetRoom(ctx, s.RoomID); err != nil {
		return domain.Schedule{}, err
	}
	m := scheduleModel{
		RoomID:   s.RoomID,
		MovieID:  s.MovieID,
		ShowTime: s.ShowTime.UTC(),
		Price:    s.Price,
		IsActive: true,
	}
	if s.ScreenType != "" {
		st := string(s.ScreenType)
		m.ScreenType = &st
	}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return domain.Schedule{}, errors.Wrap(err, "create schedule")
	}
	return scheduleRow{scheduleModel: m}.toDomain().Schedule, nil
}

// DeleteRoom removes a room together with its schedules and seats, in that
// order, inside one transaction.
func (r *Repository) DeleteRoom(ctx context.Context, id int64) (domain.RoomDeletion, error) {
	res := domain.RoomDeletion{RoomID: id}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var m roomModel
		if err := tx.First(&m, id).Error; err != nil {
			return notFound(err, "room %d", id)
		}

		del := tx.Where("room_id = ?", id).Delete(&scheduleModel{})
		if del.Error != nil {
			return errors.Wrap(del.Error, "delete schedules")
		}
		res.Schedules = del.RowsAffected

		del = tx.Where("room_id = ?", id).Delete(&seatModel{})
		if del.Error != nil {
			return errors.Wrap(del.Error, "delete seats")
		}
		res.Seats = del.RowsAffected

		return errors.Wrap(tx.Delete(&roomModel{}, id).Error, "delete room")
	})
	if err != nil {
		return domain.RoomDeletion{}, err
	}
	return res, nil
}

func notFound(err error, format string, args ...any) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return errors.Wrapf(domain.ErrNotFound, format, args...)
	}
	return errors.Wrapf(err, format, args...)
}
