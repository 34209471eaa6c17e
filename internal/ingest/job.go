// Package ingest extracts one source database and uploads its tables to
// object storage, either as a small test sample or as a full export.
package ingest

import (
	"context"
	"path"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/cinemalab/cinema-data/internal/dataset"
	"github.com/cinemalab/cinema-data/internal/domain"
	"github.com/cinemalab/cinema-data/internal/export"
	"github.com/cinemalab/cinema-data/internal/observability"
)

type Mode string

const (
	ModeTest Mode = "test"
	ModeFull Mode = "full"
)

// sampleRows is how many rows a test run uploads.
const sampleRows = 3

// Source is a connected database that can be read table by table.
type Source interface {
	Name() string
	Database() string
	Host() string
	Port() string
	Tables() []string
	Connect(ctx context.Context) error
	Close(ctx context.Context) error
	Fetch(ctx context.Context, table string, limit int) (dataset.Table, error)
}

// Bucket makes sure the target bucket exists before anything is written.
type Bucket interface {
	EnsureBucket(ctx context.Context) error
}

// Spec describes where a source's exports go.
type Spec struct {
	Source     string
	Prefix     string
	TestTable  string
	TestFormat export.Format
}

var specs = []Spec{
	{Source: "mysql", Prefix: "mysql-data/rooms", TestTable: "rooms", TestFormat: export.FormatCSV},
	{Source: "postgresql", Prefix: "postgresql-data/reservations", TestTable: "users", TestFormat: export.FormatCSV},
	{Source: "mongodb", Prefix: "mongodb-data/movies", TestTable: "genres", TestFormat: export.FormatBoth},
}

// Sources lists the ingestable sources in run order.
func Sources() []string {
	out := make([]string, len(specs))
	for i, s := range specs {
		out[i] = s.Source
	}
	return out
}

func SpecFor(source string) (Spec, error) {
	for _, s := range specs {
		if s.Source == source {
			return s, nil
		}
	}
	return Spec{}, errors.Wrapf(domain.ErrUnknownSource, "%q", source)
}

type Result struct {
	Source  string   `json:"source"`
	Mode    Mode     `json:"mode"`
	Tables  []string `json:"tables"`
	Files   []string `json:"files"`
	Records int      `json:"records"`
}

type Job struct {
	spec     Spec
	source   Source
	bucket   Bucket
	uploader *export.Uploader
	logger   observability.Logger
	now      func() time.Time
}

func NewJob(spec Spec, source Source, bucket Bucket, uploader *export.Uploader, logger observability.Logger) *Job {
	return &Job{
		spec:     spec,
		source:   source,
		bucket:   bucket,
		uploader: uploader,
		logger:   logger.WithField("job", spec.Source),
		now:      time.Now,
	}
}

// Run connects, exports in the given mode and disconnects.
func (j *Job) Run(ctx context.Context, mode Mode) (res Result, err error) {
	start := time.Now()
	defer func() {
		status := "success"
		if err != nil {
			status = "failure"
		}
		observability.JobDuration.WithLabelValues(j.spec.Source, string(mode), status).Observe(time.Since(start).Seconds())
	}()

	if err := j.source.Connect(ctx); err != nil {
		return Result{}, errors.Wrapf(err, "connect %s", j.spec.Source)
	}
	defer func() {
		if cerr := j.source.Close(context.WithoutCancel(ctx)); cerr != nil {
			j.logger.WithError(cerr).Warn("close failed")
		}
	}()

	if err := j.bucket.EnsureBucket(ctx); err != nil {
		return Result{}, err
	}

	switch mode {
	case ModeTest:
		return j.test(ctx)
	case ModeFull:
		return j.full(ctx)
	}
	return Result{}, errors.Wrapf(domain.ErrInvalidInput, "unknown mode %q", mode)
}

func (j *Job) test(ctx context.Context) (Result, error) {
	res := Result{Source: j.spec.Source, Mode: ModeTest}

	t, err := j.source.Fetch(ctx, j.spec.TestTable, sampleRows)
	if err != nil {
		return res, err
	}
	if t.Len() == 0 {
		return res, errors.Wrapf(domain.ErrEmptySample, "%s.%s", j.spec.Source, t.Name)
	}

	key := path.Join(j.spec.Source+"-data", "test", t.Name+"_test_"+export.Timestamp(j.now()))
	ups, err := j.uploader.UploadTable(ctx, t, key, j.spec.TestFormat, map[string]string{
		"source_database": j.spec.Source,
		"mode":            string(ModeTest),
	})
	if err != nil {
		return res, err
	}

	res.Tables = []string{t.Name}
	res.Records = t.Len()
	for _, u := range ups {
		res.Files = append(res.Files, u.Key)
	}
	j.logger.WithField("files", len(res.Files)).Info("test export complete")
	return res, nil
}

func (j *Job) full(ctx context.Context) (Result, error) {
	res := Result{Source: j.spec.Source, Mode: ModeFull}
	ts := export.Timestamp(j.now())

	for _, table := range j.source.Tables() {
		t, err := j.source.Fetch(ctx, table, 0)
		if err != nil {
			return res, err
		}
		if t.Len() == 0 {
			j.logger.WithField("table", table).Warn("table is empty, skipping")
			continue
		}

		ups, err := j.uploader.UploadTable(ctx, t, path.Join(j.spec.Prefix, table+"_"+ts), export.FormatBoth, map[string]string{
			"source_database": j.spec.Source,
		})
		if err != nil {
			return res, err
		}
		res.Tables = append(res.Tables, table)
		res.Records += t.Len()
		for _, u := range ups {
			res.Files = append(res.Files, u.Key)
		}
	}

	summary := export.Summary{
		DatabaseType:   j.source.Name(),
		DatabaseName:   j.source.Database(),
		Host:           j.source.Host(),
		Port:           j.source.Port(),
		TablesExported: res.Tables,
		FilesUploaded:  res.Files,
	}
	key := path.Join(j.spec.Prefix, "metadata_"+ts+".json")
	if err := j.uploader.WriteSummary(ctx, key, summary); err != nil {
		return res, err
	}

	j.logger.WithFields(map[string]interface{}{
		"tables":  len(res.Tables),
		"files":   len(res.Files),
		"records": res.Records,
	}).Info("full export complete")
	return res, nil
}
