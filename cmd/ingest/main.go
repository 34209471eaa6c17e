// Command ingest exports one source database to S3, as a test sample or in
// full.
package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/cinemalab/cinema-data/internal/adapters/awscfg"
	mongoadapter "github.com/cinemalab/cinema-data/internal/adapters/mongo"
	mysqladapter "github.com/cinemalab/cinema-data/internal/adapters/mysql"
	"github.com/cinemalab/cinema-data/internal/adapters/postgres"
	s3store "github.com/cinemalab/cinema-data/internal/adapters/s3"
	"github.com/cinemalab/cinema-data/internal/config"
	"github.com/cinemalab/cinema-data/internal/domain"
	"github.com/cinemalab/cinema-data/internal/export"
	"github.com/cinemalab/cinema-data/internal/ingest"
	"github.com/cinemalab/cinema-data/internal/observability"
)

func main() {
	root := &cobra.Command{
		Use:           "ingest <mysql|postgresql|mongodb> [auto]",
		Short:         "Export one source database to S3",
		Args:          cobra.RangeArgs(1, 2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runIngest,
	}
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "ingest failed:", err)
		os.Exit(1)
	}
}

func runIngest(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := observability.NewLogger(cfg.LogLevel).WithField("service", "ingest")

	spec, err := ingest.SpecFor(args[0])
	if err != nil {
		return err
	}

	mode, err := resolveMode(args[1:], cmd.InOrStdin(), cmd.OutOrStdout(), spec.Source)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdown, err := observability.SetupOTel(ctx, cfg, "ingest-"+spec.Source)
	if err != nil {
		return err
	}
	defer shutdown()

	awsCfg, err := awscfg.Load(ctx, cfg.AWS)
	if err != nil {
		return err
	}
	store := s3store.NewStore(s3store.NewClient(awsCfg), cfg.AWS.Bucket, cfg.AWS.Region, logger)

	job := ingest.NewJob(spec, source(cfg, spec.Source, logger), store, export.NewUploader(store, logger), logger)
	res, err := job.Run(ctx, mode)
	if err != nil {
		logger.WithError(err).WithField("mode", string(mode)).Error("ingest failed")
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s %s export: %d records, %d files\n", res.Source, res.Mode, res.Records, len(res.Files))
	for _, f := range res.Files {
		fmt.Fprintf(cmd.OutOrStdout(), "  s3://%s/%s\n", store.Bucket(), f)
	}
	return nil
}

// resolveMode maps the optional "auto" argument to a full export and
// otherwise asks on in.
func resolveMode(rest []string, in io.Reader, out io.Writer, source string) (ingest.Mode, error) {
	if len(rest) == 0 {
		return ingest.PromptMode(in, out, source)
	}
	if rest[0] != "auto" {
		return "", errors.Wrapf(domain.ErrInvalidInput, "unexpected argument %q", rest[0])
	}
	return ingest.ModeFull, nil
}

func source(cfg *config.Config, name string, logger observability.Logger) ingest.Source {
	switch name {
	case "mysql":
		return mysqladapter.NewConnector(cfg.MySQL, logger)
	case "postgresql":
		return postgres.NewConnector(cfg.Postgres, logger)
	default:
		return mongoadapter.NewConnector(cfg.Mongo, logger)
	}
}
