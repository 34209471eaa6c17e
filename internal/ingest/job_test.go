package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cinemalab/cinema-data/internal/dataset"
	"github.com/cinemalab/cinema-data/internal/domain"
	"github.com/cinemalab/cinema-data/internal/export"
	"github.com/cinemalab/cinema-data/internal/observability"
)

type fakeSource struct {
	name      string
	tables    map[string]dataset.Table
	order     []string
	connected bool
	closed    bool
	connErr   error
	limits    []int
}

func (f *fakeSource) Name() string     { return f.name }
func (f *fakeSource) Database() string { return "cinema_test" }
func (f *fakeSource) Host() string     { return "localhost" }
func (f *fakeSource) Port() string     { return "3307" }
func (f *fakeSource) Tables() []string { return f.order }

func (f *fakeSource) Connect(context.Context) error {
	if f.connErr != nil {
		return f.connErr
	}
	f.connected = true
	return nil
}

func (f *fakeSource) Close(context.Context) error {
	f.closed = true
	return nil
}

func (f *fakeSource) Fetch(_ context.Context, table string, limit int) (dataset.Table, error) {
	f.limits = append(f.limits, limit)
	t, ok := f.tables[table]
	if !ok {
		return dataset.Table{Name: table}, nil
	}
	if limit > 0 {
		t = t.Head(limit)
	}
	return t, nil
}

type memStore struct {
	mu      sync.Mutex
	objects map[string]export.Object
}

func (m *memStore) Put(_ context.Context, obj export.Object) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[obj.Key] = obj
	return nil
}

func (m *memStore) keys() []string {
	var out []string
	for k := range m.objects {
		out = append(out, k)
	}
	return out
}

type fakeBucket struct{ ensured int }

func (b *fakeBucket) EnsureBucket(context.Context) error {
	b.ensured++
	return nil
}

func rows(n int) []dataset.Record {
	out := make([]dataset.Record, n)
	for i := range out {
		out[i] = dataset.Record{"id": int64(i + 1), "name": "Sala " + string(rune('A'+i))}
	}
	return out
}

func mysqlSource() *fakeSource {
	return &fakeSource{
		name:  "mysql",
		order: []string{"rooms", "seats", "schedules"},
		tables: map[string]dataset.Table{
			"rooms": {Name: "rooms", Columns: []string{"id", "name"}, Rows: rows(5)},
			"seats": {Name: "seats", Columns: []string{"id", "name"}, Rows: rows(8)},
		},
	}
}

func newTestJob(t *testing.T, src *fakeSource) (*Job, *memStore, *fakeBucket) {
	t.Helper()
	spec, err := SpecFor(src.name)
	require.NoError(t, err)
	store := &memStore{objects: map[string]export.Object{}}
	bucket := &fakeBucket{}
	job := NewJob(spec, src, bucket, export.NewUploader(store, observability.NewNopLogger()), observability.NewNopLogger())
	job.now = func() time.Time { return time.Date(2025, 5, 6, 7, 8, 9, 0, time.UTC) }
	return job, store, bucket
}

func TestRun_TestModeUploadsSample(t *testing.T) {
	src := mysqlSource()
	job, store, bucket := newTestJob(t, src)

	res, err := job.Run(context.Background(), ModeTest)
	require.NoError(t, err)

	assert.Equal(t, 1, bucket.ensured)
	assert.True(t, src.closed)
	assert.Equal(t, []int{sampleRows}, src.limits)
	assert.Equal(t, 3, res.Records)
	assert.Equal(t, []string{"mysql-data/test/rooms_test_20250506_070809.csv"}, res.Files)

	obj := store.objects["mysql-data/test/rooms_test_20250506_070809.csv"]
	assert.Equal(t, "3", obj.Metadata["record_count"])
	assert.Equal(t, "text/csv", obj.ContentType)
}

func TestRun_TestModeMongoUsesBothFormats(t *testing.T) {
	src := &fakeSource{
		name:   "mongodb",
		order:  []string{"movies", "genres"},
		tables: map[string]dataset.Table{"genres": {Name: "genres", Columns: []string{"_id", "name"}, Rows: rows(4)}},
	}
	job, store, _ := newTestJob(t, src)

	res, err := job.Run(context.Background(), ModeTest)
	require.NoError(t, err)
	assert.Len(t, res.Files, 2)
	assert.ElementsMatch(t, []string{
		"mongodb-data/test/genres_test_20250506_070809.csv",
		"mongodb-data/test/genres_test_20250506_070809.json",
	}, store.keys())
}

func TestRun_TestModeEmptySampleFails(t *testing.T) {
	src := &fakeSource{name: "postgresql", order: []string{"users"}}
	job, store, _ := newTestJob(t, src)

	_, err := job.Run(context.Background(), ModeTest)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrEmptySample))
	assert.Empty(t, store.objects)
	assert.True(t, src.closed)
}

func TestRun_FullModeSkipsEmptyAndWritesSummary(t *testing.T) {
	src := mysqlSource()
	job, store, _ := newTestJob(t, src)

	res, err := job.Run(context.Background(), ModeFull)
	require.NoError(t, err)

	assert.Equal(t, []string{"rooms", "seats"}, res.Tables)
	assert.Equal(t, 13, res.Records)
	assert.Len(t, res.Files, 4)
	// two tables in both formats plus one summary
	assert.Len(t, store.objects, 5)

	summary, ok := store.objects["mysql-data/rooms/metadata_20250506_070809.json"]
	require.True(t, ok)
	var s export.Summary
	require.NoError(t, json.Unmarshal(summary.Body, &s))
	assert.Equal(t, "mysql", s.DatabaseType)
	assert.Equal(t, 4, s.TotalFiles)
	assert.Equal(t, []string{"rooms", "seats"}, s.TablesExported)

	for _, k := range res.Files {
		assert.True(t, strings.HasPrefix(k, "mysql-data/rooms/"), k)
	}
}

func TestRun_ConnectFailure(t *testing.T) {
	src := mysqlSource()
	src.connErr = errors.Mark(errors.New("dial tcp: refused"), domain.ErrConnection)
	job, _, bucket := newTestJob(t, src)

	_, err := job.Run(context.Background(), ModeFull)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrConnection))
	assert.Zero(t, bucket.ensured)
	assert.False(t, src.closed)
}

func TestSpecFor(t *testing.T) {
	assert.Equal(t, []string{"mysql", "postgresql", "mongodb"}, Sources())

	s, err := SpecFor("postgresql")
	require.NoError(t, err)
	assert.Equal(t, "users", s.TestTable)

	_, err = SpecFor("oracle")
	assert.True(t, errors.Is(err, domain.ErrUnknownSource))
}

func TestPromptMode(t *testing.T) {
	var out bytes.Buffer
	m, err := PromptMode(strings.NewReader("1\n"), &out, "mysql")
	require.NoError(t, err)
	assert.Equal(t, ModeTest, m)
	assert.Contains(t, out.String(), "2. Full export")

	m, err = PromptMode(strings.NewReader("2"), &out, "mysql")
	require.NoError(t, err)
	assert.Equal(t, ModeFull, m)

	_, err = PromptMode(strings.NewReader("9\n"), &out, "mysql")
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
}
