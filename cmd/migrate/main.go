// Command migrate backs up every source database to S3, loads the DynamoDB
// tables and writes a migration report.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/olekukonko/tablewriter"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/spf13/cobra"

	"github.com/cinemalab/cinema-data/internal/adapters/awscfg"
	"github.com/cinemalab/cinema-data/internal/adapters/dynamo"
	mongoadapter "github.com/cinemalab/cinema-data/internal/adapters/mongo"
	mysqladapter "github.com/cinemalab/cinema-data/internal/adapters/mysql"
	"github.com/cinemalab/cinema-data/internal/adapters/postgres"
	"github.com/cinemalab/cinema-data/internal/adapters/rabbit"
	s3store "github.com/cinemalab/cinema-data/internal/adapters/s3"
	"github.com/cinemalab/cinema-data/internal/config"
	"github.com/cinemalab/cinema-data/internal/export"
	"github.com/cinemalab/cinema-data/internal/ingest"
	"github.com/cinemalab/cinema-data/internal/migration"
	"github.com/cinemalab/cinema-data/internal/observability"
)

// env is what every subcommand needs, built once in PersistentPreRunE.
type env struct {
	cfg    *config.Config
	logger observability.Logger
	aws    aws.Config
	store  *s3store.Store
}

var e env

func main() {
	root := &cobra.Command{
		Use:           "migrate",
		Short:         "Back up the source databases and sync them into DynamoDB",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			e.cfg = cfg
			e.logger = observability.NewLogger(cfg.LogLevel).WithField("service", "migrate")
			e.aws, err = awscfg.Load(cmd.Context(), cfg.AWS)
			if err != nil {
				return err
			}
			e.store = s3store.NewStore(s3store.NewClient(e.aws), cfg.AWS.Bucket, cfg.AWS.Region, e.logger)
			return nil
		},
	}

	root.AddCommand(
		&cobra.Command{Use: "run", Short: "Run a full migration", Args: cobra.NoArgs, RunE: runMigration},
		&cobra.Command{Use: "setup-tables", Short: "Create the DynamoDB tables", Args: cobra.NoArgs, RunE: setupTables},
		&cobra.Command{Use: "test-connections", Short: "Check S3 and DynamoDB access", Args: cobra.NoArgs, RunE: testConnections},
		&cobra.Command{Use: "list-backups [source [table]]", Short: "List backup objects", Args: cobra.MaximumNArgs(2), RunE: listBackups},
		&cobra.Command{Use: "show-report <key|timestamp>", Short: "Print a stored migration report", Args: cobra.ExactArgs(1), RunE: showReport},
		&cobra.Command{Use: "lifecycle", Short: "Apply the backup lifecycle policy", Args: cobra.NoArgs, RunE: lifecycle},
	)

	if err := root.Execute(); err != nil {
		if e.logger != nil {
			e.logger.WithError(err).Error("migrate failed")
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func synchronizer() *dynamo.Synchronizer {
	return dynamo.NewSynchronizer(dynamo.NewClient(e.aws), dynamo.Specs(e.cfg.Dynamo), e.logger)
}

func runMigration(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdown, err := observability.SetupOTel(ctx, e.cfg, "migrate")
	if err != nil {
		return err
	}
	defer shutdown()

	if err := e.store.EnsureBucket(ctx); err != nil {
		return err
	}

	mongoConn := mongoadapter.NewConnector(e.cfg.Mongo, e.logger)
	sources := []ingest.Source{
		mysqladapter.NewConnector(e.cfg.MySQL, e.logger),
		postgres.NewConnector(e.cfg.Postgres, e.logger),
		mongoConn,
	}

	opts := []migration.Option{
		migration.WithFolders(e.cfg.AWS.BackupFolder, e.cfg.AWS.AnalyticsFolder),
		migration.WithAuditor(lazyAudit{conn: mongoConn, logger: e.logger}),
	}
	if e.cfg.RabbitURL != "" {
		conn, err := amqp.Dial(e.cfg.RabbitURL)
		if err != nil {
			e.logger.WithError(err).Warn("rabbitmq unavailable, events disabled")
		} else {
			defer conn.Close()
			pub, err := rabbit.NewPublisher(conn)
			if err != nil {
				return err
			}
			defer pub.Close()
			opts = append(opts, migration.WithPublisher(pub))
		}
	}

	svc := migration.NewService(sources, export.NewUploader(e.store, e.logger), synchronizer(), e.logger, opts...)
	rep, err := svc.Run(ctx)
	if err != nil {
		return err
	}

	printReport(cmd.OutOrStdout(), rep)
	if rep.Status != migration.StatusSuccess {
		return errors.Newf("migration finished with status %s", rep.Status)
	}
	return nil
}

func printReport(w io.Writer, rep migration.Report) {
	names := make([]string, 0, len(rep.Sources))
	for name := range rep.Sources {
		names = append(names, name)
	}
	sort.Strings(names)

	tb := tablewriter.NewWriter(w)
	tb.SetHeader([]string{"Source", "Records", "Backup"})
	for _, name := range names {
		sr := rep.Sources[name]
		tb.Append([]string{name, fmt.Sprint(sr.Records), status(sr.Success)})
	}
	tb.Render()
	fmt.Fprintf(w, "DynamoDB: %s %v\n", status(rep.DynamoOK), rep.Dynamo)
	fmt.Fprintf(w, "Status: %s, %d records in %.1fs\n", rep.Status, rep.TotalRecords, rep.Duration)
}

// showReport prints a stored migration report. A bare timestamp is expanded
// to the report key.
func showReport(cmd *cobra.Command, args []string) error {
	key := args[0]
	if !strings.Contains(key, "/") {
		key = export.AnalyticsKey(e.cfg.AWS.AnalyticsFolder, "migration_report", key)
	}
	var rep migration.Report
	if err := e.store.GetJSON(cmd.Context(), key, &rep); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Run %s at %s\n", rep.RunID, rep.Timestamp)
	printReport(cmd.OutOrStdout(), rep)
	return nil
}

// lazyAudit writes through the Mongo connector, which is only connected once
// the migration has started.
type lazyAudit struct {
	conn   *mongoadapter.Connector
	logger observability.Logger
}

func (a lazyAudit) LogEvent(ctx context.Context, action string, runID uuid.UUID, data map[string]interface{}) error {
	db := a.conn.DB()
	if db == nil {
		return errors.New("mongodb not connected")
	}
	return mongoadapter.NewAuditLogger(db, a.logger).LogEvent(ctx, action, runID, data)
}

func status(ok bool) string {
	if ok {
		return "OK"
	}
	return "FAILED"
}

func setupTables(cmd *cobra.Command, _ []string) error {
	states, err := synchronizer().SetupTables(cmd.Context())
	names := make([]string, 0, len(states))
	for name := range states {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(cmd.OutOrStdout(), "%-28s %s\n", name, states[name])
	}
	return err
}

func testConnections(cmd *cobra.Command, _ []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	var failed bool
	if err := e.store.Ping(ctx); err != nil {
		fmt.Fprintf(cmd.OutOrStdout(), "S3 (%s): FAILED %v\n", e.store.Bucket(), err)
		failed = true
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "S3 (%s): OK\n", e.store.Bucket())
	}

	tables, err := synchronizer().ListTables(ctx)
	if err != nil {
		fmt.Fprintf(cmd.OutOrStdout(), "DynamoDB: FAILED %v\n", err)
		failed = true
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "DynamoDB: OK (%d tables)\n", len(tables))
	}

	if failed {
		return errors.New("connection test failed")
	}
	return nil
}

func listBackups(cmd *cobra.Command, args []string) error {
	var source, table string
	if len(args) > 0 {
		source = args[0]
	}
	if len(args) > 1 {
		table = args[1]
	}
	objs, err := migration.ListBackups(cmd.Context(), e.store, e.cfg.AWS.BackupFolder, source, table)
	if err != nil {
		return err
	}

	tb := tablewriter.NewWriter(cmd.OutOrStdout())
	tb.SetHeader([]string{"Key", "Size", "Last modified"})
	for _, o := range objs {
		tb.Append([]string{o.Key, fmt.Sprint(o.Size), o.LastModified.Local().Format(time.DateTime)})
	}
	tb.Render()
	return nil
}

func lifecycle(cmd *cobra.Command, _ []string) error {
	return e.store.PutLifecyclePolicy(cmd.Context(), e.cfg.AWS.BackupFolder)
}
