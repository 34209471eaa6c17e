// Package batch groups records into fixed-size batches and hands each batch to
// a Writer, which performs one bulk insert and one commit per call.
package batch

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/cinemalab/cinema-data/internal/domain"
	"github.com/cinemalab/cinema-data/internal/observability"
)

// Writer persists one batch durably. A nil return means the batch is committed.
type Writer[T any] interface {
	WriteBatch(ctx context.Context, rows []T) error
}

// WriterFunc adapts a function to Writer.
type WriterFunc[T any] func(ctx context.Context, rows []T) error

func (f WriterFunc[T]) WriteBatch(ctx context.Context, rows []T) error {
	return f(ctx, rows)
}

// Stats counts committed work only.
type Stats struct {
	Rows    int
	Batches int
}

type Loader[T any] struct {
	table  string
	size   int
	writer Writer[T]
	logger observability.Logger

	buf   []T
	stats Stats
}

func NewLoader[T any](table string, size int, writer Writer[T], logger observability.Logger) (*Loader[T], error) {
	if size <= 0 {
		return nil, errors.Wrapf(domain.ErrInvalidBatchSize, "table %s: got %d", table, size)
	}
	if logger == nil {
		logger = observability.NewNopLogger()
	}
	return &Loader[T]{
		table:  table,
		size:   size,
		writer: writer,
		logger: logger.WithField("table", table),
		buf:    make([]T, 0, size),
	}, nil
}

// Add buffers a row and writes the buffer once it holds a full batch.
func (l *Loader[T]) Add(ctx context.Context, row T) error {
	l.buf = append(l.buf, row)
	if len(l.buf) < l.size {
		return nil
	}
	return l.flush(ctx)
}

// Flush writes whatever is buffered as a final partial batch.
func (l *Loader[T]) Flush(ctx context.Context) error {
	if len(l.buf) == 0 {
		return nil
	}
	return l.flush(ctx)
}

// Load streams rows through Add and Flush and returns the loader's totals.
func (l *Loader[T]) Load(ctx context.Context, rows []T) (Stats, error) {
	for _, row := range rows {
		if err := l.Add(ctx, row); err != nil {
			return l.stats, err
		}
	}
	if err := l.Flush(ctx); err != nil {
		return l.stats, err
	}
	l.logger.WithFields(map[string]interface{}{
		"rows":    l.stats.Rows,
		"batches": l.stats.Batches,
	}).Info("load complete")
	return l.stats, nil
}

func (l *Loader[T]) Stats() Stats {
	return l.stats
}

func (l *Loader[T]) flush(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	start := time.Now()
	batchNo := l.stats.Batches + 1
	if err := l.writer.WriteBatch(ctx, l.buf); err != nil {
		l.logger.WithError(err).Errorf("batch %d failed", batchNo)
		return errors.Wrapf(err, "write %s batch %d", l.table, batchNo)
	}
	observability.DBTxDuration.Observe(time.Since(start).Seconds())

	n := len(l.buf)
	l.stats.Rows += n
	l.stats.Batches++
	observability.BatchRows.WithLabelValues(l.table).Add(float64(n))
	observability.BatchCommits.WithLabelValues(l.table).Inc()
	l.logger.Infof("inserted batch %d (%d rows, %d total)", batchNo, n, l.stats.Rows)

	l.buf = make([]T, 0, l.size)
	return nil
}

// Load is a convenience for a one-shot load of an in-memory slice.
func Load[T any](ctx context.Context, table string, size int, writer Writer[T], logger observability.Logger, rows []T) (Stats, error) {
	l, err := NewLoader(table, size, writer, logger)
	if err != nil {
		return Stats{}, err
	}
	return l.Load(ctx, rows)
}
