// Package export serializes dataset tables and writes them to object storage
// together with a per-run summary object.
package export

import (
	"context"
	"encoding/json"
	"path"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/cinemalab/cinema-data/internal/dataset"
	"github.com/cinemalab/cinema-data/internal/domain"
	"github.com/cinemalab/cinema-data/internal/observability"
)

type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
	FormatBoth Format = "both"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case FormatCSV, FormatJSON, FormatBoth:
		return f, nil
	}
	return "", errors.Wrapf(domain.ErrInvalidInput, "unknown export format %q", s)
}

func (f Format) extensions() []string {
	switch f {
	case FormatCSV:
		return []string{"csv"}
	case FormatJSON:
		return []string{"json"}
	default:
		return []string{"csv", "json"}
	}
}

const timestampLayout = "20060102_150405"

// Timestamp formats t the way every object key embeds it.
func Timestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

// BackupKey is <folder>/<source>/<table>/<ts>_<table>.json.
func BackupKey(folder, source, table, ts string) string {
	return path.Join(folder, source, table, ts+"_"+table+".json")
}

// AnalyticsKey is <folder>/<report>/<ts>_<report>.json.
func AnalyticsKey(folder, report, ts string) string {
	return path.Join(folder, report, ts+"_"+report+".json")
}

type Object struct {
	Key         string
	Body        []byte
	ContentType string
	Metadata    map[string]string
}

// ObjectStore writes one object. Implementations request server-side encryption.
type ObjectStore interface {
	Put(ctx context.Context, obj Object) error
}

type Upload struct {
	Key     string `json:"key"`
	Format  string `json:"format"`
	Records int    `json:"records"`
}

// Summary is the once-per-run metadata object.
type Summary struct {
	ExtractionDate string         `json:"extraction_date"`
	DatabaseType   string         `json:"database_type"`
	DatabaseName   string         `json:"database_name"`
	Host           string         `json:"host,omitempty"`
	Port           string         `json:"port,omitempty"`
	TablesExported []string       `json:"tables_exported"`
	FilesUploaded  []string       `json:"files_uploaded"`
	TotalFiles     int            `json:"total_files"`
	Extra          map[string]any `json:"extra,omitempty"`
}

type Uploader struct {
	store  ObjectStore
	logger observability.Logger
	now    func() time.Time
}

func NewUploader(store ObjectStore, logger observability.Logger) *Uploader {
	return &Uploader{store: store, logger: logger, now: time.Now}
}

// UploadTable writes <prefix>.csv and/or <prefix>.json. Every object carries
// source_table, record_count and timestamp metadata plus meta.
func (u *Uploader) UploadTable(ctx context.Context, t dataset.Table, prefix string, format Format, meta map[string]string) ([]Upload, error) {
	md := map[string]string{
		"source_table": t.Name,
		"record_count": strconv.Itoa(t.Len()),
		"timestamp":    u.now().UTC().Format(time.RFC3339),
	}
	for k, v := range meta {
		md[k] = v
	}

	var uploads []Upload
	for _, ext := range format.extensions() {
		var (
			body        []byte
			contentType string
			err         error
		)
		if ext == "csv" {
			body, err = EncodeCSV(t)
			contentType = "text/csv"
		} else {
			body, err = EncodeJSON(t)
			contentType = "application/json"
		}
		if err != nil {
			return uploads, err
		}

		key := prefix + "." + ext
		if err := u.store.Put(ctx, Object{Key: key, Body: body, ContentType: contentType, Metadata: md}); err != nil {
			u.logger.WithError(err).Errorf("upload %s failed", key)
			return uploads, errors.Wrapf(err, "upload %s", key)
		}
		observability.ObjectsUploaded.WithLabelValues(ext).Inc()
		u.logger.WithFields(map[string]interface{}{"key": key, "records": t.Len()}).Info("uploaded object")
		uploads = append(uploads, Upload{Key: key, Format: ext, Records: t.Len()})
	}
	return uploads, nil
}

// PutJSON writes v as an indented JSON object at key.
func (u *Uploader) PutJSON(ctx context.Context, key string, v any, meta map[string]string) error {
	body, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrapf(err, "encode %s", key)
	}
	if err := u.store.Put(ctx, Object{Key: key, Body: body, ContentType: "application/json", Metadata: meta}); err != nil {
		return errors.Wrapf(err, "upload %s", key)
	}
	observability.ObjectsUploaded.WithLabelValues("json").Inc()
	u.logger.WithField("key", key).Info("uploaded object")
	return nil
}

// WriteSummary fills in the derived fields of s and writes it to key.
func (u *Uploader) WriteSummary(ctx context.Context, key string, s Summary) error {
	if s.ExtractionDate == "" {
		s.ExtractionDate = u.now().UTC().Format(time.RFC3339)
	}
	if s.TablesExported == nil {
		s.TablesExported = []string{}
	}
	if s.FilesUploaded == nil {
		s.FilesUploaded = []string{}
	}
	s.TotalFiles = len(s.FilesUploaded)
	return u.PutJSON(ctx, key, s, map[string]string{"database_type": s.DatabaseType})
}
