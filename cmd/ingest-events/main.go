// Command ingest-events follows ingest and migration completion events and,
// with --audit, copies them into the MongoDB audit collection.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/spf13/cobra"

	mongoadapter "github.com/cinemalab/cinema-data/internal/adapters/mongo"
	"github.com/cinemalab/cinema-data/internal/adapters/rabbit"
	"github.com/cinemalab/cinema-data/internal/config"
	"github.com/cinemalab/cinema-data/internal/observability"
)

var (
	queue string
	audit bool
)

func main() {
	root := &cobra.Command{
		Use:           "ingest-events",
		Short:         "Tail ingest.completed and migration.completed events",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          tail,
	}
	root.Flags().StringVar(&queue, "queue", "cinema.ingest.events", "queue to bind and consume")
	root.Flags().BoolVar(&audit, "audit", false, "write every event to the ingest_audit collection")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func tail(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.RabbitURL == "" {
		return errors.New("RABBIT_URL is not set")
	}
	logger := observability.NewLogger(cfg.LogLevel).WithField("service", "ingest-events")

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	conn, err := amqp.Dial(cfg.RabbitURL)
	if err != nil {
		return errors.Wrap(err, "dial rabbitmq")
	}
	defer conn.Close()

	consumer, err := rabbit.NewConsumer(conn, queue, "ingest.*", "migration.*")
	if err != nil {
		return err
	}
	defer consumer.Close()

	var auditor *mongoadapter.AuditLogger
	if audit {
		client, err := mongoadapter.Open(ctx, cfg.Mongo)
		if err != nil {
			return err
		}
		defer client.Disconnect(context.WithoutCancel(ctx))
		auditor = mongoadapter.NewAuditLogger(client.Database(cfg.Mongo.Database), logger)
	}

	logger.WithField("queue", queue).Info("waiting for events")
	return consumer.Consume(ctx, func(ctx context.Context, ev rabbit.Event) error {
		logger.WithFields(map[string]interface{}{
			"type":     ev.Type,
			"run_id":   ev.RunID,
			"mode":     ev.Mode,
			"success":  ev.Success,
			"duration": ev.Duration,
		}).Info("event received")
		fmt.Fprintf(cmd.OutOrStdout(), "%s %-20s run=%s mode=%s success=%v %.1fs\n",
			ev.At.Local().Format("2006-01-02 15:04:05"), ev.Type, ev.RunID, ev.Mode, ev.Success, ev.Duration)

		if auditor == nil {
			return nil
		}
		runID, err := uuid.Parse(ev.RunID)
		if err != nil {
			runID = uuid.Nil
		}
		return auditor.LogEvent(ctx, ev.Type, runID, map[string]interface{}{
			"mode":     ev.Mode,
			"success":  ev.Success,
			"duration": ev.Duration,
			"details":  ev.Details,
		})
	})
}
