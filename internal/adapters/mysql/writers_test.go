package mysql

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInsertSQL(t *testing.T) {
	w := SeatWriter(nil)
	got := w.insertSQL(2)
	assert.Equal(t,
		"INSERT INTO seats (`room_id`,`row_number`,`seat_number`,`seat_type`,`is_available`,`created_at`) VALUES (?,?,?,?,?,?),(?,?,?,?,?,?)",
		got)
}

func TestChunks_StayWithinPlaceholderLimit(t *testing.T) {
	schedules := ScheduleWriter(nil)
	assert.Equal(t, []int{9362, 638}, schedules.chunks(10000))
	assert.Equal(t, []int{500}, schedules.chunks(500))
	assert.Empty(t, schedules.chunks(0))

	seats := SeatWriter(nil)
	sizes := seats.chunks(25000)
	assert.Equal(t, []int{10922, 10922, 3156}, sizes)
	for _, n := range sizes {
		assert.LessOrEqual(t, n*6, maxPlaceholders)
		assert.Equal(t, n*6, strings.Count(seats.insertSQL(n), "?"))
	}
}

func TestConvert(t *testing.T) {
	assert.Equal(t, true, convert("TINYINT", int64(1)))
	assert.Equal(t, false, convert("TINYINT", []byte("0")))
	assert.Equal(t, 12.5, convert("DECIMAL", []byte("12.50")))
	assert.Equal(t, int64(42), convert("INT", []byte("42")))
	assert.Equal(t, "A", convert("VARCHAR", "A"))
	assert.Nil(t, convert("DECIMAL", nil))
}
