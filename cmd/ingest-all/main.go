// Command ingest-all runs every ingest job in sequence.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/olekukonko/tablewriter"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/spf13/cobra"

	"github.com/cinemalab/cinema-data/internal/adapters/rabbit"
	redisadapter "github.com/cinemalab/cinema-data/internal/adapters/redis"
	"github.com/cinemalab/cinema-data/internal/config"
	"github.com/cinemalab/cinema-data/internal/observability"
	"github.com/cinemalab/cinema-data/internal/orchestrator"
)

func main() {
	root := &cobra.Command{
		Use:           "ingest-all [test|t|full|f|<job>]",
		Short:         "Run the MySQL, PostgreSQL and MongoDB ingest jobs",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runAll,
	}
	root.AddCommand(&cobra.Command{
		Use:   "runs",
		Short: "Show the most recent runs from the run ledger",
		Args:  cobra.NoArgs,
		RunE:  showRuns,
	})

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runAll(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := observability.NewLogger(cfg.LogLevel).WithField("service", "ingest-all")

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var opts []orchestrator.Option
	if cfg.RedisAddr != "" {
		client := redisadapter.NewClient(cfg.RedisAddr)
		defer client.Close()
		cache := redisadapter.NewCache(client)
		if err := cache.Ping(ctx); err != nil {
			logger.WithError(err).Warn("redis unavailable, run ledger disabled")
		} else {
			opts = append(opts, orchestrator.WithLedger(cache))
		}
	}
	if cfg.RabbitURL != "" {
		conn, err := amqp.Dial(cfg.RabbitURL)
		if err != nil {
			logger.WithError(err).Warn("rabbitmq unavailable, events disabled")
		} else {
			defer conn.Close()
			pub, err := rabbit.NewPublisher(conn)
			if err != nil {
				return err
			}
			defer pub.Close()
			opts = append(opts, orchestrator.WithPublisher(pub))
		}
	}

	o := orchestrator.New(orchestrator.ExecRunner{Bin: cfg.IngestBin}, cmd.OutOrStdout(), logger, opts...)

	var ok bool
	if len(args) == 0 {
		rl, err := orchestrator.NewLineReader()
		if err != nil {
			return err
		}
		defer rl.Close()
		ok = o.Menu(ctx, rl)
	} else {
		mode, job, err := orchestrator.ParseTarget(args[0])
		if err != nil {
			return err
		}
		if job != "" {
			ok, err = o.RunOne(ctx, job, mode)
			if err != nil {
				return err
			}
		} else {
			ok, _ = o.RunAll(ctx, mode)
		}
	}

	if !ok {
		return errors.New("one or more jobs failed")
	}
	return nil
}

func showRuns(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.RedisAddr == "" {
		return errors.New("REDIS_ADDR is not set")
	}
	client := redisadapter.NewClient(cfg.RedisAddr)
	defer client.Close()

	runs, err := redisadapter.NewCache(client).RecentRuns(cmd.Context(), 20)
	if err != nil {
		return err
	}

	tb := tablewriter.NewWriter(cmd.OutOrStdout())
	tb.SetHeader([]string{"Started", "Mode", "Jobs", "Success", "Duration"})
	for _, r := range runs {
		ok := 0
		for _, j := range r.Jobs {
			if j.Success {
				ok++
			}
		}
		tb.Append([]string{
			r.StartedAt.Local().Format(time.DateTime),
			r.Mode,
			fmt.Sprintf("%d/%d", ok, len(r.Jobs)),
			fmt.Sprint(r.Success),
			r.Duration.Round(time.Millisecond).String(),
		})
	}
	tb.Render()
	return nil
}
