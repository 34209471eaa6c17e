package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/cinemalab/cinema-data/internal/adapters/mysql"
	"github.com/cinemalab/cinema-data/internal/domain"
	"github.com/cinemalab/cinema-data/internal/observability"
)

const defaultSeatsPerRow = 10

// Store is the rooms API's persistence, implemented by mysql.Repository.
type Store interface {
	ListActiveRooms(ctx context.Context) ([]domain.Room, error)
	GetRoom(ctx context.Context, id int64) (domain.Room, error)
	CreateRoom(ctx context.Context, room domain.Room) (domain.Room, error)
	DeleteRoom(ctx context.Context, id int64) (domain.RoomDeletion, error)
	ListSeats(ctx context.Context, roomID int64) ([]domain.Seat, error)
	CreateSeats(ctx context.Context, roomID int64, seats []domain.Seat) (int, error)
	ListSchedules(ctx context.Context, f mysql.ScheduleFilter) ([]domain.ScheduleView, error)
	SchedulesByMovie(ctx context.Context, movieID string) ([]domain.ScheduleView, error)
	CreateSchedule(ctx context.Context, s domain.Schedule) (domain.Schedule, error)
}

type Handlers struct {
	store  Store
	logger observability.Logger
}

func NewHandlers(store Store, logger observability.Logger) *Handlers {
	return &Handlers{store: store, logger: logger}
}

// decode reads a JSON body into dst and validates it. On failure it writes
// the 400 response itself and returns false.
func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeFail(w, http.StatusBadRequest, "invalid JSON body", map[string]string{"body": err.Error()})
		return false
	}
	if err := validate.Struct(dst); err != nil {
		writeFail(w, http.StatusBadRequest, "Validation error", validationDetails(err))
		return false
	}
	return true
}

func idParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeFail(w, http.StatusBadRequest, "invalid room id", nil)
		return 0, false
	}
	return id, true
}

func (h *Handlers) ListRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := h.store.ListActiveRooms(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, rooms)
}

func (h *Handlers) GetRoom(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	room, err := h.store.GetRoom(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, room)
}

func (h *Handlers) CreateRoom(w http.ResponseWriter, r *http.Request) {
	var req createRoomRequest
	if !decode(w, r, &req) {
		return
	}
	room, err := h.store.CreateRoom(r.Context(), domain.Room{
		Name:       req.Name,
		Capacity:   *req.Capacity,
		ScreenType: domain.ScreenType(req.ScreenType),
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	LoggerFrom(r.Context(), h.logger).WithField("room_id", room.ID).Info("room created")
	writeData(w, http.StatusCreated, room)
}

// DeleteRoom removes the room with its schedules and seats and reports how
// many of each went.
func (h *Handlers) DeleteRoom(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	res, err := h.store.DeleteRoom(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	LoggerFrom(r.Context(), h.logger).WithFields(map[string]interface{}{
		"room_id":   id,
		"schedules": res.Schedules,
		"seats":     res.Seats,
	}).Info("room deleted")
	writeData(w, http.StatusOK, res)
}

func (h *Handlers) ListSeats(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	seats, err := h.store.ListSeats(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, seats)
}

// CreateSeats either lays out capacity/seats_per_row full rows of regular
// seats or inserts the explicit list.
func (h *Handlers) CreateSeats(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var req createSeatsRequest
	if !decode(w, r, &req) {
		return
	}

	var seats []domain.Seat
	if req.AutoGenerate {
		room, err := h.store.GetRoom(r.Context(), id)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		seats = gridSeats(room.Capacity, req.SeatsPerRow)
	} else {
		seats = make([]domain.Seat, len(req.Seats))
		for i, s := range req.Seats {
			seats[i] = domain.Seat{
				RowNumber:  s.RowNumber,
				SeatNumber: *s.SeatNumber,
				SeatType:   domain.SeatType(s.SeatType),
			}
		}
	}

	n, err := h.store.CreateSeats(r.Context(), id, seats)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, envelope{
		Success: true,
		Message: "Seats created successfully",
		Data:    map[string]int{"created": n},
	})
}

func gridSeats(capacity, perRow int) []domain.Seat {
	if perRow <= 0 {
		perRow = defaultSeatsPerRow
	}
	rows := capacity / perRow
	seats := make([]domain.Seat, 0, rows*perRow)
	for row := 0; row < rows; row++ {
		label := domain.RowLabel(row)
		for n := 1; n <= perRow; n++ {
			seats = append(seats, domain.Seat{RowNumber: label, SeatNumber: n, SeatType: domain.SeatRegular})
		}
	}
	return seats
}

func (h *Handlers) ListSchedules(w http.ResponseWriter, r *http.Request) {
	f := mysql.ScheduleFilter{MovieID: r.URL.Query().Get("movie_id")}
	if v := r.URL.Query().Get("room_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeFail(w, http.StatusBadRequest, "Validation error", map[string]string{"room_id": "must be an integer"})
			return
		}
		f.RoomID = id
	}
	schedules, err := h.store.ListSchedules(r.Context(), f)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	out := make([]domain.ScheduleListing, len(schedules))
	for i, v := range schedules {
		out[i] = v.Listing()
	}
	writeData(w, http.StatusOK, out)
}

func (h *Handlers) SchedulesByMovie(w http.ResponseWriter, r *http.Request) {
	schedules, err := h.store.SchedulesByMovie(r.Context(), chi.URLParam(r, "movie_id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, schedules)
}

func (h *Handlers) CreateSchedule(w http.ResponseWriter, r *http.Request) {
	var req createScheduleRequest
	if !decode(w, r, &req) {
		return
	}
	// the datetime tag has already checked the layout
	showTime, _ := time.Parse(time.RFC3339, req.ShowTime)

	s, err := h.store.CreateSchedule(r.Context(), domain.Schedule{
		MovieID:    req.MovieID,
		RoomID:     *req.RoomID,
		ShowTime:   showTime,
		Price:      *req.Price,
		ScreenType: domain.ScreenType(req.ScreenType),
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, s)
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy", "service": "rooms-api"})
}

func (h *Handlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	LoggerFrom(r.Context(), h.logger).WithError(err).Error("request failed")
	writeError(w, err)
}
