package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cinemalab/cinema-data/internal/adapters/mysql"
	redisadapter "github.com/cinemalab/cinema-data/internal/adapters/redis"
	"github.com/cinemalab/cinema-data/internal/domain"
	"github.com/cinemalab/cinema-data/internal/idempotency"
	"github.com/cinemalab/cinema-data/internal/observability"
)

type fakeStore struct {
	mu        sync.Mutex
	rooms     map[int64]domain.Room
	seats     map[int64][]domain.Seat
	schedules []domain.Schedule
	nextID    int64
	creates   int
}

func newFakeStore() *fakeStore {
	return &fakeStore{rooms: map[int64]domain.Room{}, seats: map[int64][]domain.Seat{}}
}

func (f *fakeStore) ListActiveRooms(context.Context) ([]domain.Room, error) {
	out := []domain.Room{}
	for id := int64(1); id <= f.nextID; id++ {
		if r, ok := f.rooms[id]; ok && r.IsActive {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeStore) GetRoom(_ context.Context, id int64) (domain.Room, error) {
	r, ok := f.rooms[id]
	if !ok {
		return domain.Room{}, errors.Wrapf(domain.ErrNotFound, "room %d", id)
	}
	return r, nil
}

func (f *fakeStore) CreateRoom(_ context.Context, room domain.Room) (domain.Room, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates++
	f.nextID++
	room.ID = f.nextID
	room.IsActive = true
	if room.ScreenType == "" {
		room.ScreenType = domain.Screen2D
	}
	f.rooms[room.ID] = room
	return room, nil
}

func (f *fakeStore) DeleteRoom(_ context.Context, id int64) (domain.RoomDeletion, error) {
	if _, ok := f.rooms[id]; !ok {
		return domain.RoomDeletion{}, errors.Wrapf(domain.ErrNotFound, "room %d", id)
	}
	res := domain.RoomDeletion{RoomID: id, Seats: int64(len(f.seats[id]))}
	kept := f.schedules[:0]
	for _, s := range f.schedules {
		if s.RoomID == id {
			res.Schedules++
			continue
		}
		kept = append(kept, s)
	}
	f.schedules = kept
	delete(f.seats, id)
	delete(f.rooms, id)
	return res, nil
}

func (f *fakeStore) ListSeats(ctx context.Context, roomID int64) ([]domain.Seat, error) {
	if _, err := f.GetRoom(ctx, roomID); err != nil {
		return nil, err
	}
	return f.seats[roomID], nil
}

func (f *fakeStore) CreateSeats(ctx context.Context, roomID int64, seats []domain.Seat) (int, error) {
	if _, err := f.GetRoom(ctx, roomID); err != nil {
		return 0, err
	}
	f.seats[roomID] = append(f.seats[roomID], seats...)
	return len(seats), nil
}

func (f *fakeStore) ListSchedules(_ context.Context, flt mysql.ScheduleFilter) ([]domain.ScheduleView, error) {
	out := []domain.ScheduleView{}
	for _, s := range f.schedules {
		if flt.MovieID != "" && s.MovieID != flt.MovieID {
			continue
		}
		if flt.RoomID != 0 && s.RoomID != flt.RoomID {
			continue
		}
		r := f.rooms[s.RoomID]
		out = append(out, domain.ScheduleView{Schedule: s, RoomName: r.Name, RoomCapacity: r.Capacity})
	}
	return out, nil
}

func (f *fakeStore) SchedulesByMovie(ctx context.Context, movieID string) ([]domain.ScheduleView, error) {
	return f.ListSchedules(ctx, mysql.ScheduleFilter{MovieID: movieID})
}

func (f *fakeStore) CreateSchedule(ctx context.Context, s domain.Schedule) (domain.Schedule, error) {
	if _, err := f.GetRoom(ctx, s.RoomID); err != nil {
		return domain.Schedule{}, err
	}
	s.ID = int64(len(f.schedules) + 1)
	s.IsActive = true
	f.schedules = append(f.schedules, s)
	return s, nil
}

type response struct {
	Success bool              `json:"success"`
	Data    json.RawMessage   `json:"data"`
	Message string            `json:"message"`
	Error   string            `json:"error"`
	Details map[string]string `json:"details"`
}

func do(t *testing.T, h http.Handler, method, path, body string, header ...string) (*httptest.ResponseRecorder, response) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var resp response
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	}
	return rec, resp
}

func newRouter(store Store, opts RouterOptions) http.Handler {
	log := observability.NewNopLogger()
	return SetupRouter(NewHandlers(store, log), log, opts)
}

func TestRooms_CreateAndList(t *testing.T) {
	h := newRouter(newFakeStore(), RouterOptions{})

	rec, resp := do(t, h, http.MethodPost, "/api/rooms", `{"name":"Sala Test","capacity":100,"screen_type":"IMAX"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.True(t, resp.Success)

	rec, resp = do(t, h, http.MethodGet, "/api/rooms", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var rooms []domain.Room
	require.NoError(t, json.Unmarshal(resp.Data, &rooms))
	require.Len(t, rooms, 1)
	assert.Equal(t, "Sala Test", rooms[0].Name)
	assert.Equal(t, domain.ScreenIMAX, rooms[0].ScreenType)
}

func TestRooms_Validation(t *testing.T) {
	h := newRouter(newFakeStore(), RouterOptions{})

	rec, resp := do(t, h, http.MethodPost, "/api/rooms", `{"capacity":0,"screen_type":"4DX"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, resp.Success)
	assert.Equal(t, "Validation error", resp.Error)
	assert.Contains(t, resp.Details, "name")
	assert.Contains(t, resp.Details, "capacity")
	assert.Contains(t, resp.Details, "screen_type")

	rec, _ = do(t, h, http.MethodPost, "/api/rooms", `{"name":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRooms_NotFound(t *testing.T) {
	h := newRouter(newFakeStore(), RouterOptions{})

	rec, resp := do(t, h, http.MethodGet, "/api/rooms/42", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.False(t, resp.Success)

	rec, _ = do(t, h, http.MethodDelete, "/api/rooms/42", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = do(t, h, http.MethodGet, "/api/rooms/abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSeats_AutoGenerateAndExplicit(t *testing.T) {
	store := newFakeStore()
	h := newRouter(store, RouterOptions{})
	do(t, h, http.MethodPost, "/api/rooms", `{"name":"Sala 1","capacity":95}`)

	rec, resp := do(t, h, http.MethodPost, "/api/rooms/1/seats", `{"auto_generate":true,"seats_per_row":10}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "Seats created successfully", resp.Message)
	// 95/10 full rows
	require.Len(t, store.seats[1], 90)
	assert.Equal(t, "A", store.seats[1][0].RowNumber)
	assert.Equal(t, "I", store.seats[1][89].RowNumber)
	assert.Equal(t, domain.SeatRegular, store.seats[1][0].SeatType)

	rec, _ = do(t, h, http.MethodPost, "/api/rooms/1/seats", `{"seats":[{"row_number":"Z","seat_number":1,"seat_type":"vip"}]}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Len(t, store.seats[1], 91)

	rec, resp = do(t, h, http.MethodPost, "/api/rooms/1/seats", `{"seats":[{"seat_number":1,"seat_type":"balcony"}]}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, resp.Details, "seats[0].row_number")
	assert.Contains(t, resp.Details, "seats[0].seat_type")

	rec, resp = do(t, h, http.MethodPost, "/api/rooms/1/seats", `{}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, resp.Details, "seats")

	rec, resp = do(t, h, http.MethodGet, "/api/rooms/1/seats", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var seats []domain.Seat
	require.NoError(t, json.Unmarshal(resp.Data, &seats))
	assert.Len(t, seats, 91)
}

func TestSchedules(t *testing.T) {
	store := newFakeStore()
	h := newRouter(store, RouterOptions{})
	do(t, h, http.MethodPost, "/api/rooms", `{"name":"Sala 1","capacity":80}`)

	rec, resp := do(t, h, http.MethodPost, "/api/schedules", `{"room_id":1,"show_time":"2025-03-01T20:00:00Z","price":12.5,"screen_type":"4K"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, resp.Details, "movie_id")
	assert.Contains(t, resp.Details, "screen_type")

	rec, resp = do(t, h, http.MethodPost, "/api/schedules", `{"movie_id":"m1","room_id":1,"show_time":"tomorrow","price":12.5}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, resp.Details, "show_time")

	rec, _ = do(t, h, http.MethodPost, "/api/schedules", `{"movie_id":"m1","room_id":9,"show_time":"2025-03-01T20:00:00Z","price":12.5}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, resp = do(t, h, http.MethodPost, "/api/schedules", `{"movie_id":"m1","room_id":1,"show_time":"2025-03-01T20:00:00Z","price":12.5,"screen_type":"3D"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var s domain.Schedule
	require.NoError(t, json.Unmarshal(resp.Data, &s))
	assert.Equal(t, time.Date(2025, 3, 1, 20, 0, 0, 0, time.UTC), s.ShowTime.UTC())
	assert.Equal(t, domain.Screen3D, s.ScreenType)

	rec, resp = do(t, h, http.MethodGet, "/api/schedules?movie_id=m1&room_id=1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list []map[string]any
	require.NoError(t, json.Unmarshal(resp.Data, &list))
	require.Len(t, list, 1)
	assert.Equal(t, "Sala 1", list[0]["room_name"])
	assert.NotContains(t, list[0], "room_capacity")

	rec, resp = do(t, h, http.MethodGet, "/api/schedules/movie/m1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(resp.Data, &list))
	assert.Equal(t, float64(80), list[0]["room_capacity"])

	rec, _ = do(t, h, http.MethodGet, "/api/schedules?room_id=x", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteRoom_Cascades(t *testing.T) {
	store := newFakeStore()
	h := newRouter(store, RouterOptions{})
	do(t, h, http.MethodPost, "/api/rooms", `{"name":"Sala 1","capacity":20}`)
	do(t, h, http.MethodPost, "/api/rooms/1/seats", `{"auto_generate":true}`)
	do(t, h, http.MethodPost, "/api/schedules", `{"movie_id":"m1","room_id":1,"show_time":"2025-03-01T20:00:00Z","price":9}`)

	rec, resp := do(t, h, http.MethodDelete, "/api/rooms/1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var del domain.RoomDeletion
	require.NoError(t, json.Unmarshal(resp.Data, &del))
	assert.Equal(t, domain.RoomDeletion{RoomID: 1, Schedules: 1, Seats: 20}, del)
	assert.Empty(t, store.rooms)
}

func TestHealth(t *testing.T) {
	h := newRouter(newFakeStore(), RouterOptions{})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy","service":"rooms-api"}`, rec.Body.String())
}

type denyAll struct{ calls int }

func (d *denyAll) Allow(context.Context, string) (bool, error) {
	d.calls++
	return false, nil
}

func TestRateLimit(t *testing.T) {
	l := &denyAll{}
	h := newRouter(newFakeStore(), RouterOptions{Limiter: l})

	rec, resp := do(t, h, http.MethodGet, "/api/rooms", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.False(t, resp.Success)
	assert.Equal(t, 1, l.calls)
}

type memBackend struct{ m map[string]redisadapter.IdempResponse }

func (b *memBackend) Get(_ context.Context, key string) (*redisadapter.IdempResponse, error) {
	r, ok := b.m[key]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (b *memBackend) Set(_ context.Context, key string, resp redisadapter.IdempResponse, _ time.Duration) error {
	b.m[key] = resp
	return nil
}

func TestIdempotentReplay(t *testing.T) {
	store := newFakeStore()
	idemp := idempotency.NewIdempotency(&memBackend{m: map[string]redisadapter.IdempResponse{}}, time.Hour)
	h := newRouter(store, RouterOptions{Idempotency: idemp})

	body := `{"name":"Sala 1","capacity":80}`
	rec1, _ := do(t, h, http.MethodPost, "/api/rooms", body, "Idempotency-Key", "abc-123")
	rec2, _ := do(t, h, http.MethodPost, "/api/rooms", body, "Idempotency-Key", "abc-123")

	assert.Equal(t, http.StatusCreated, rec1.Code)
	assert.Equal(t, http.StatusCreated, rec2.Code)
	assert.Equal(t, rec1.Body.String(), rec2.Body.String())
	assert.Equal(t, "true", rec2.Header().Get("Idempotent-Replayed"))
	assert.Equal(t, 1, store.creates)

	do(t, h, http.MethodPost, "/api/rooms", body)
	assert.Equal(t, 2, store.creates)
}
