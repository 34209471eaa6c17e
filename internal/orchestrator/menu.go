package orchestrator

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/cockroachdb/errors"

	"github.com/cinemalab/cinema-data/internal/domain"
	"github.com/cinemalab/cinema-data/internal/ingest"
)

// LineReader is satisfied by *readline.Instance.
type LineReader interface {
	Readline() (string, error)
}

// NewLineReader builds the interactive prompt used by the menu.
func NewLineReader() (*readline.Instance, error) {
	return readline.NewEx(&readline.Config{
		Prompt:          "» ",
		InterruptPrompt: "^C",
		EOFPrompt:       "^D",
	})
}

func (o *Orchestrator) printMenu() {
	fmt.Fprintln(o.out, "\nCinema ingestion")
	fmt.Fprintln(o.out, "  1. Test all jobs")
	fmt.Fprintln(o.out, "  2. Full run of all jobs")
	fmt.Fprintln(o.out, "  3. Run one job")
	fmt.Fprintln(o.out, "  4. Job info")
	fmt.Fprintln(o.out, "  5. Exit")
}

// Menu loops until the user exits or input ends. It reports whether every
// run started from the menu succeeded; a read error other than ^C or EOF
// ends the menu as a failure.
func (o *Orchestrator) Menu(ctx context.Context, rl LineReader) bool {
	ok := true
	for {
		o.printMenu()
		line, err := rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
				return ok
			}
			fmt.Fprintf(o.out, "read input: %v\n", err)
			return false
		}

		switch strings.TrimSpace(line) {
		case "1":
			r, _ := o.RunAll(ctx, ingest.ModeTest)
			ok = ok && r
		case "2":
			r, _ := o.RunAll(ctx, ingest.ModeFull)
			ok = ok && r
		case "3":
			r, err := o.pickJob(ctx, rl)
			if err != nil {
				fmt.Fprintln(o.out, err)
				continue
			}
			ok = ok && r
		case "4":
			o.printInfo()
		case "5", "exit":
			return ok
		default:
			fmt.Fprintf(o.out, "invalid option %q\n", line)
		}
	}
}

func (o *Orchestrator) pickJob(ctx context.Context, rl LineReader) (bool, error) {
	for i, j := range o.jobs {
		fmt.Fprintf(o.out, "  %d. %s\n", i+1, j)
	}
	line, err := rl.Readline()
	if err != nil {
		return false, err
	}
	n, err := strconv.Atoi(strings.TrimSpace(line))
	if err != nil || n < 1 || n > len(o.jobs) {
		return false, errors.Wrapf(domain.ErrInvalidInput, "invalid job %q", strings.TrimSpace(line))
	}

	fmt.Fprintln(o.out, "  1. Test  2. Full")
	line, err = rl.Readline()
	if err != nil {
		return false, err
	}
	mode, err := ingest.ParseChoice(line)
	if err != nil {
		return false, err
	}
	return o.RunOne(ctx, o.jobs[n-1], mode)
}

func (o *Orchestrator) printInfo() {
	for _, j := range o.jobs {
		spec, err := ingest.SpecFor(j)
		if err != nil {
			continue
		}
		fmt.Fprintf(o.out, "  %-11s prefix=%s test_table=%s\n", j, spec.Prefix, spec.TestTable)
	}
}
