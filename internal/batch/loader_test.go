package batch

import (
	"context"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cinemalab/cinema-data/internal/domain"
	"github.com/cinemalab/cinema-data/internal/observability"
)

type recordingWriter struct {
	batches [][]int
	failAt  int
}

func (w *recordingWriter) WriteBatch(_ context.Context, rows []int) error {
	if w.failAt > 0 && len(w.batches)+1 == w.failAt {
		return errors.New("boom")
	}
	cp := append([]int(nil), rows...)
	w.batches = append(w.batches, cp)
	return nil
}

func seq(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func TestLoad_CommitsCeilNOverB(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name    string
		rows    int
		size    int
		batches int
	}{
		{"empty", 0, 1000, 0},
		{"single partial", 7, 1000, 1},
		{"exact multiple", 3000, 1000, 3},
		{"remainder", 12000 + 1, 1000, 13},
		{"batch of one", 5, 1, 5},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			w := &recordingWriter{}
			stats, err := Load[int](context.Background(), "t", tc.size, w, observability.NewNopLogger(), seq(tc.rows))
			require.NoError(t, err)
			assert.Equal(t, tc.rows, stats.Rows)
			assert.Equal(t, tc.batches, stats.Batches)
			assert.Len(t, w.batches, tc.batches)

			var flat []int
			for _, b := range w.batches {
				assert.LessOrEqual(t, len(b), tc.size)
				flat = append(flat, b...)
			}
			if tc.rows > 0 {
				assert.Equal(t, seq(tc.rows), flat)
			}
		})
	}
}

func TestLoad_FailureKeepsEarlierBatches(t *testing.T) {
	t.Parallel()
	w := &recordingWriter{failAt: 3}

	stats, err := Load[int](context.Background(), "seats", 10, w, nil, seq(45))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "batch 3")
	assert.Equal(t, Stats{Rows: 20, Batches: 2}, stats)
	assert.Len(t, w.batches, 2)
}

func TestNewLoader_RejectsNonPositiveSize(t *testing.T) {
	t.Parallel()
	_, err := NewLoader[int]("rooms", 0, &recordingWriter{}, nil)
	assert.True(t, errors.Is(err, domain.ErrInvalidBatchSize))
}

func TestAddFlush_Streaming(t *testing.T) {
	t.Parallel()
	var calls int
	w := WriterFunc[string](func(_ context.Context, rows []string) error {
		calls++
		return nil
	})
	l, err := NewLoader[string]("movies", 2, w, nil)
	require.NoError(t, err)

	ctx := context.Background()
	for _, s := range []string{"a", "b", "c"} {
		require.NoError(t, l.Add(ctx, s))
	}
	assert.Equal(t, 1, calls)
	require.NoError(t, l.Flush(ctx))
	require.NoError(t, l.Flush(ctx))
	assert.Equal(t, 2, calls)
	assert.Equal(t, Stats{Rows: 3, Batches: 2}, l.Stats())
}

func TestLoad_CancelledContext(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	w := &recordingWriter{}
	_, err := Load[int](ctx, "t", 2, w, nil, seq(4))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, w.batches)
}
