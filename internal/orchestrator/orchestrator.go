// Package orchestrator runs the per-source ingest jobs one after another and
// reports how each one went.
package orchestrator

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/olekukonko/tablewriter"

	"github.com/cinemalab/cinema-data/internal/adapters/rabbit"
	redisadapter "github.com/cinemalab/cinema-data/internal/adapters/redis"
	"github.com/cinemalab/cinema-data/internal/domain"
	"github.com/cinemalab/cinema-data/internal/ingest"
	"github.com/cinemalab/cinema-data/internal/observability"
)

type Ledger interface {
	RecordRun(ctx context.Context, run redisadapter.RunRecord) error
}

type EventPublisher interface {
	PublishEvent(ctx context.Context, ev rabbit.Event) error
}

type JobResult struct {
	Job      string
	Success  bool
	Duration time.Duration
	Output   Output
	Err      error
}

type Orchestrator struct {
	runner    Runner
	jobs      []string
	out       io.Writer
	ledger    Ledger
	publisher EventPublisher
	logger    observability.Logger
	now       func() time.Time
}

type Option func(*Orchestrator)

func WithLedger(l Ledger) Option {
	return func(o *Orchestrator) { o.ledger = l }
}

func WithPublisher(p EventPublisher) Option {
	return func(o *Orchestrator) { o.publisher = p }
}

func New(runner Runner, out io.Writer, logger observability.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		runner: runner,
		jobs:   ingest.Sources(),
		out:    out,
		logger: logger.WithField("component", "orchestrator"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *Orchestrator) Jobs() []string { return o.jobs }

// invocation returns the job's arguments and stdin for a mode. Test mode
// answers the job's prompt; full mode skips it.
func invocation(job string, mode ingest.Mode) ([]string, string) {
	if mode == ingest.ModeFull {
		return []string{job, "auto"}, ""
	}
	return []string{job}, "1\n"
}

// RunJob runs one job to completion and echoes what it printed.
func (o *Orchestrator) RunJob(ctx context.Context, job string, mode ingest.Mode) JobResult {
	args, stdin := invocation(job, mode)
	fmt.Fprintf(o.out, "\n>>> %s (%s)\n", job, mode)

	start := time.Now()
	output, err := o.runner.Run(ctx, args, stdin)
	res := JobResult{Job: job, Success: err == nil, Duration: time.Since(start), Output: output, Err: err}

	if output.Stdout != "" {
		fmt.Fprint(o.out, output.Stdout)
	}
	if output.Stderr != "" {
		fmt.Fprint(o.out, output.Stderr)
	}

	log := o.logger.WithFields(map[string]interface{}{"job": job, "mode": string(mode), "duration": res.Duration.String()})
	if err != nil {
		log.WithError(err).Error("job failed")
	} else {
		log.Info("job succeeded")
	}
	return res
}

// RunAll runs every job in order, never in parallel, and reports whether all
// of them succeeded.
func (o *Orchestrator) RunAll(ctx context.Context, mode ingest.Mode) (bool, []JobResult) {
	return o.run(ctx, mode, o.jobs)
}

// RunOne runs a single named job through the same bookkeeping as RunAll.
func (o *Orchestrator) RunOne(ctx context.Context, job string, mode ingest.Mode) (bool, error) {
	if _, err := ingest.SpecFor(job); err != nil {
		return false, err
	}
	ok, _ := o.run(ctx, mode, []string{job})
	return ok, nil
}

func (o *Orchestrator) run(ctx context.Context, mode ingest.Mode, jobs []string) (bool, []JobResult) {
	started := o.now()
	start := time.Now()

	results := make([]JobResult, 0, len(jobs))
	ok := true
	for _, job := range jobs {
		r := o.RunJob(ctx, job, mode)
		ok = ok && r.Success
		results = append(results, r)
	}
	total := time.Since(start)

	o.PrintSummary(results, total)
	o.record(ctx, mode, started, total, ok, results)
	return ok, results
}

// PrintSummary writes the status table and the success count.
func (o *Orchestrator) PrintSummary(results []JobResult, total time.Duration) {
	tb := tablewriter.NewWriter(o.out)
	tb.SetHeader([]string{"Status", "Job", "Duration"})
	succeeded := 0
	for _, r := range results {
		status := "FAIL"
		if r.Success {
			status = "OK"
			succeeded++
		}
		tb.Append([]string{status, r.Job, fmt.Sprintf("%.2fs", r.Duration.Seconds())})
	}
	fmt.Fprintln(o.out)
	tb.Render()
	fmt.Fprintf(o.out, "%d/%d jobs succeeded\n", succeeded, len(results))
	fmt.Fprintf(o.out, "Total time: %.2fs\n", total.Seconds())
}

func (o *Orchestrator) record(ctx context.Context, mode ingest.Mode, started time.Time, total time.Duration, ok bool, results []JobResult) {
	runID := uuid.NewString()
	if o.ledger != nil {
		run := redisadapter.RunRecord{
			ID:        runID,
			Mode:      string(mode),
			Success:   ok,
			StartedAt: started,
			Duration:  total,
		}
		for _, r := range results {
			run.Jobs = append(run.Jobs, redisadapter.JobRecord{Name: r.Job, Success: r.Success, Duration: r.Duration})
		}
		if err := o.ledger.RecordRun(ctx, run); err != nil {
			o.logger.WithError(err).Warn("run ledger write failed")
		}
	}
	if o.publisher != nil {
		jobs := map[string]any{}
		for _, r := range results {
			jobs[r.Job] = r.Success
		}
		err := o.publisher.PublishEvent(ctx, rabbit.Event{
			Type:     rabbit.KeyIngestCompleted,
			RunID:    runID,
			Mode:     string(mode),
			Success:  ok,
			Duration: total.Seconds(),
			At:       o.now().UTC(),
			Details:  jobs,
		})
		if err != nil {
			o.logger.WithError(err).Warn("event publish failed")
		}
	}
}

// ParseTarget interprets a positional argument: a mode for every job or the
// name of one job (run in test mode).
func ParseTarget(arg string) (mode ingest.Mode, job string, err error) {
	switch arg {
	case "test", "t":
		return ingest.ModeTest, "", nil
	case "full", "f":
		return ingest.ModeFull, "", nil
	}
	if _, err := ingest.SpecFor(arg); err == nil {
		return ingest.ModeTest, arg, nil
	}
	return "", "", errors.Wrapf(domain.ErrInvalidInput, "unknown argument %q", arg)
}
