// Package migration copies every source database into S3 backups and the
// DynamoDB wide tables, then writes a report of what it moved.
package migration

import (
	"context"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/cinemalab/cinema-data/internal/adapters/dynamo"
	"github.com/cinemalab/cinema-data/internal/adapters/rabbit"
	"github.com/cinemalab/cinema-data/internal/dataset"
	"github.com/cinemalab/cinema-data/internal/export"
	"github.com/cinemalab/cinema-data/internal/ingest"
	"github.com/cinemalab/cinema-data/internal/observability"
)

const (
	StatusSuccess = "SUCCESS"
	StatusPartial = "PARTIAL"

	reportName = "migration_report"
)

// Synchronizer is the DynamoDB side of a migration.
type Synchronizer interface {
	SetupTables(ctx context.Context) (map[string]dynamo.TableState, error)
	BatchPut(ctx context.Context, entity string, items []map[string]any) (int, error)
}

// Auditor keeps a copy of the report next to the catalog.
type Auditor interface {
	LogEvent(ctx context.Context, action string, runID uuid.UUID, data map[string]interface{}) error
}

type EventPublisher interface {
	PublishEvent(ctx context.Context, ev rabbit.Event) error
}

// Snapshot holds every table read from every source, by source name.
type Snapshot map[string][]dataset.Table

func (s Snapshot) table(source, name string) dataset.Table {
	for _, t := range s[source] {
		if t.Name == name {
			return t
		}
	}
	return dataset.Table{Name: name}
}

type SourceReport struct {
	Records int            `json:"records"`
	Tables  map[string]int `json:"tables"`
	Success bool           `json:"success"`
	Error   string         `json:"error,omitempty"`
}

type Report struct {
	RunID        string                  `json:"run_id"`
	Timestamp    string                  `json:"migration_timestamp"`
	Sources      map[string]SourceReport `json:"sources"`
	Dynamo       map[string]int          `json:"dynamodb_items"`
	DynamoOK     bool                    `json:"dynamodb_success"`
	TotalRecords int                     `json:"total_records"`
	Status       string                  `json:"status"`
	Duration     float64                 `json:"duration_seconds"`
}

type Service struct {
	sources   []ingest.Source
	uploader  *export.Uploader
	sync      Synchronizer
	audit     Auditor
	publisher EventPublisher
	backups   string
	analytics string
	logger    observability.Logger
	now       func() time.Time
}

type Option func(*Service)

func WithAuditor(a Auditor) Option {
	return func(s *Service) { s.audit = a }
}

func WithPublisher(p EventPublisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithFolders overrides the backup and analytics key prefixes.
func WithFolders(backups, analytics string) Option {
	return func(s *Service) {
		s.backups = backups
		s.analytics = analytics
	}
}

func NewService(sources []ingest.Source, uploader *export.Uploader, sync Synchronizer, logger observability.Logger, opts ...Option) *Service {
	s := &Service{
		sources:   sources,
		uploader:  uploader,
		sync:      sync,
		backups:   "backups",
		analytics: "analytics",
		logger:    logger.WithField("component", "migration"),
		now:       time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// ConnectAll opens every source concurrently. If any fails, the ones that
// did connect are closed again.
func (s *Service) ConnectAll(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, src := range s.sources {
		g.Go(func() error {
			return errors.Wrapf(src.Connect(gctx), "connect %s", src.Name())
		})
	}
	if err := g.Wait(); err != nil {
		s.CloseAll(context.WithoutCancel(ctx))
		return err
	}
	s.logger.WithField("sources", len(s.sources)).Info("all sources connected")
	return nil
}

func (s *Service) CloseAll(ctx context.Context) {
	for _, src := range s.sources {
		if err := src.Close(ctx); err != nil {
			s.logger.WithError(err).Warnf("close %s failed", src.Name())
		}
	}
}

// FetchAll reads every table of every source in full.
func (s *Service) FetchAll(ctx context.Context) (Snapshot, error) {
	snap := Snapshot{}
	for _, src := range s.sources {
		for _, table := range src.Tables() {
			t, err := src.Fetch(ctx, table, 0)
			if err != nil {
				return snap, errors.Wrapf(err, "fetch %s.%s", src.Name(), table)
			}
			snap[src.Name()] = append(snap[src.Name()], t)
		}
	}
	return snap, nil
}

// BackupToS3 writes each non-empty table as one JSON object. A failed upload
// marks its source unsuccessful and the rest carry on.
func (s *Service) BackupToS3(ctx context.Context, snap Snapshot, ts string) map[string]SourceReport {
	out := make(map[string]SourceReport, len(snap))
	for _, src := range s.sources {
		name := src.Name()
		rep := SourceReport{Tables: map[string]int{}, Success: true}
		for _, t := range snap[name] {
			rep.Tables[t.Name] = t.Len()
			rep.Records += t.Len()
			if t.Len() == 0 {
				s.logger.WithFields(map[string]interface{}{"source": name, "table": t.Name}).Warn("no rows to back up")
				continue
			}
			key := export.BackupKey(s.backups, name, t.Name, ts)
			err := s.uploader.PutJSON(ctx, key, t.Rows, map[string]string{
				"table_name":       t.Name,
				"source_database":  name,
				"backup_timestamp": ts,
				"record_count":     strconv.Itoa(t.Len()),
			})
			if err != nil {
				s.logger.WithError(err).Errorf("backup of %s.%s failed", name, t.Name)
				rep.Success = false
				rep.Error = err.Error()
			}
		}
		out[name] = rep
	}
	return out
}

// SyncDynamo makes sure the tables exist and writes the four entity sets.
func (s *Service) SyncDynamo(ctx context.Context, snap Snapshot) (map[string]int, error) {
	states, err := s.sync.SetupTables(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "setup tables")
	}
	s.logger.WithField("tables", len(states)).Info("dynamodb tables ready")

	entities := []struct {
		entity string
		items  []dynamo.Item
	}{
		{dynamo.EntityMovies, dynamo.TransformMovies(snap.table("mongodb", "movies").Rows)},
		{dynamo.EntityRooms, dynamo.TransformRooms(snap.table("mysql", "rooms").Rows)},
		{dynamo.EntityUsers, dynamo.TransformUsers(snap.table("postgresql", "users").Rows)},
		{dynamo.EntityReservations, dynamo.TransformReservations(snap.table("postgresql", "reservations").Rows)},
	}

	written := map[string]int{}
	for _, e := range entities {
		n, err := s.sync.BatchPut(ctx, e.entity, e.items)
		written[e.entity] = n
		if err != nil {
			return written, errors.Wrapf(err, "sync %s", e.entity)
		}
	}
	return written, nil
}

// Run performs a whole migration and returns its report. The error is only
// set when nothing could be migrated; partial failures show up in the
// report's status.
func (s *Service) Run(ctx context.Context) (Report, error) {
	start := time.Now()
	runID := uuid.New()
	ts := export.Timestamp(s.now())
	log := s.logger.WithField("run_id", runID.String())

	if err := s.ConnectAll(ctx); err != nil {
		log.WithError(err).Error("migration aborted")
		return Report{}, err
	}
	defer s.CloseAll(context.WithoutCancel(ctx))

	snap, err := s.FetchAll(ctx)
	if err != nil {
		log.WithError(err).Error("migration aborted")
		return Report{}, err
	}

	rep := Report{
		RunID:     runID.String(),
		Timestamp: s.now().UTC().Format(time.RFC3339),
		Sources:   s.BackupToS3(ctx, snap, ts),
		DynamoOK:  true,
	}

	rep.Dynamo, err = s.SyncDynamo(ctx, snap)
	if err != nil {
		log.WithError(err).Error("dynamodb sync failed")
		rep.DynamoOK = false
	}

	rep.Status = StatusSuccess
	if !rep.DynamoOK {
		rep.Status = StatusPartial
	}
	for _, sr := range rep.Sources {
		rep.TotalRecords += sr.Records
		if !sr.Success {
			rep.Status = StatusPartial
		}
	}
	rep.Duration = time.Since(start).Seconds()

	if err := s.uploader.PutJSON(ctx, export.AnalyticsKey(s.analytics, reportName, ts), rep, map[string]string{
		"status": rep.Status,
	}); err != nil {
		log.WithError(err).Error("failed to write migration report")
		rep.Status = StatusPartial
	}
	s.record(ctx, runID, rep)

	observability.JobDuration.WithLabelValues("migration", "full", rep.Status).Observe(rep.Duration)
	log.WithFields(map[string]interface{}{
		"status":  rep.Status,
		"records": rep.TotalRecords,
	}).Info("migration finished")
	return rep, nil
}

func (s *Service) record(ctx context.Context, runID uuid.UUID, rep Report) {
	if s.audit != nil {
		err := s.audit.LogEvent(ctx, reportName, runID, map[string]interface{}{
			"status":        rep.Status,
			"total_records": rep.TotalRecords,
			"sources":       rep.Sources,
			"dynamodb":      rep.Dynamo,
		})
		if err != nil {
			s.logger.WithError(err).Warn("audit write failed")
		}
	}
	if s.publisher != nil {
		err := s.publisher.PublishEvent(ctx, rabbit.Event{
			Type:     rabbit.KeyMigrationCompleted,
			RunID:    runID.String(),
			Mode:     "full",
			Success:  rep.Status == StatusSuccess,
			Duration: rep.Duration,
			At:       s.now().UTC(),
			Details:  map[string]any{"total_records": rep.TotalRecords, "status": rep.Status},
		})
		if err != nil {
			s.logger.WithError(err).Warn("event publish failed")
		}
	}
}
