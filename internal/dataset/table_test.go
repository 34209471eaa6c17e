package dataset

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	t.Parallel()
	ts := time.Date(2024, 3, 9, 18, 30, 0, 0, time.FixedZone("x", 3600))

	got := NormalizeRecord(Record{
		"created_at": ts,
		"name":       []byte("Sala VIP 3"),
		"nested":     map[string]any{"when": ts, "tags": []any{ts, "a"}},
		"capacity":   int64(120),
		"nothing":    nil,
	})

	assert.Equal(t, "2024-03-09T17:30:00Z", got["created_at"])
	assert.Equal(t, "Sala VIP 3", got["name"])
	assert.Equal(t, int64(120), got["capacity"])
	assert.Nil(t, got["nothing"])
	nested := got["nested"].(map[string]any)
	assert.Equal(t, "2024-03-09T17:30:00Z", nested["when"])
	assert.Equal(t, []any{"2024-03-09T17:30:00Z", "a"}, nested["tags"])
}

func TestColumnsOf_IDFirst(t *testing.T) {
	t.Parallel()
	cols := ColumnsOf([]Record{
		{"title": "x", "_id": "1"},
		{"genre": []any{"Drama"}, "_id": "2"},
	})
	assert.Equal(t, []string{"_id", "genre", "title"}, cols)
}

func TestHead(t *testing.T) {
	t.Parallel()
	tbl := Table{Name: "rooms", Rows: []Record{{}, {}, {}, {}}}
	assert.Equal(t, 3, tbl.Head(3).Len())
	assert.Equal(t, 4, tbl.Head(10).Len())
}

func TestString(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "", String(nil))
	assert.Equal(t, "12.5", String(12.5))
	assert.Equal(t, "true", String(true))
	assert.Equal(t, "42", String(int64(42)))
	assert.Equal(t, "[a b]", String([]any{"a", "b"}))
}
