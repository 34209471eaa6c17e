package orchestrator

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cinemalab/cinema-data/internal/adapters/rabbit"
	redisadapter "github.com/cinemalab/cinema-data/internal/adapters/redis"
	"github.com/cinemalab/cinema-data/internal/domain"
	"github.com/cinemalab/cinema-data/internal/ingest"
	"github.com/cinemalab/cinema-data/internal/observability"
)

type call struct {
	args  []string
	stdin string
}

type fakeRunner struct {
	calls []call
	fail  map[string]bool
}

func (f *fakeRunner) Run(_ context.Context, args []string, stdin string) (Output, error) {
	f.calls = append(f.calls, call{args: args, stdin: stdin})
	if f.fail[args[0]] {
		return Output{Stderr: args[0] + " exploded\n"}, errors.New("exit status 1")
	}
	return Output{Stdout: args[0] + " done\n"}, nil
}

type fakeLedger struct{ runs []redisadapter.RunRecord }

func (l *fakeLedger) RecordRun(_ context.Context, run redisadapter.RunRecord) error {
	l.runs = append(l.runs, run)
	return nil
}

type fakePublisher struct{ events []rabbit.Event }

func (p *fakePublisher) PublishEvent(_ context.Context, ev rabbit.Event) error {
	p.events = append(p.events, ev)
	return nil
}

type lines struct{ in []string }

func (l *lines) Readline() (string, error) {
	if len(l.in) == 0 {
		return "", io.EOF
	}
	s := l.in[0]
	l.in = l.in[1:]
	return s, nil
}

func TestRunAll_TestModeAnswersPrompt(t *testing.T) {
	runner := &fakeRunner{}
	var out bytes.Buffer
	o := New(runner, &out, observability.NewNopLogger())

	ok, results := o.RunAll(context.Background(), ingest.ModeTest)
	require.True(t, ok)
	require.Len(t, results, 3)

	require.Len(t, runner.calls, 3)
	assert.Equal(t, []string{"mysql"}, runner.calls[0].args)
	assert.Equal(t, "1\n", runner.calls[0].stdin)
	assert.Equal(t, []string{"postgresql"}, runner.calls[1].args)
	assert.Equal(t, []string{"mongodb"}, runner.calls[2].args)

	assert.Contains(t, out.String(), "mysql done")
	assert.Contains(t, out.String(), "3/3 jobs succeeded")
}

func TestRunAll_FullModeAndFailure(t *testing.T) {
	runner := &fakeRunner{fail: map[string]bool{"postgresql": true}}
	var out bytes.Buffer
	ledger := &fakeLedger{}
	pub := &fakePublisher{}
	o := New(runner, &out, observability.NewNopLogger(), WithLedger(ledger), WithPublisher(pub))

	ok, results := o.RunAll(context.Background(), ingest.ModeFull)
	assert.False(t, ok)
	// a failure does not stop later jobs
	require.Len(t, runner.calls, 3)
	assert.Equal(t, []string{"mongodb", "auto"}, runner.calls[2].args)
	assert.Empty(t, runner.calls[2].stdin)
	assert.False(t, results[1].Success)
	assert.True(t, results[2].Success)

	assert.Contains(t, out.String(), "postgresql exploded")
	assert.Contains(t, out.String(), "2/3 jobs succeeded")
	assert.Contains(t, out.String(), "FAIL")

	require.Len(t, ledger.runs, 1)
	assert.Equal(t, "full", ledger.runs[0].Mode)
	assert.False(t, ledger.runs[0].Success)
	assert.Len(t, ledger.runs[0].Jobs, 3)

	require.Len(t, pub.events, 1)
	assert.Equal(t, rabbit.KeyIngestCompleted, pub.events[0].Type)
	assert.Equal(t, false, pub.events[0].Details["postgresql"])
}

func TestParseTarget(t *testing.T) {
	m, job, err := ParseTarget("f")
	require.NoError(t, err)
	assert.Equal(t, ingest.ModeFull, m)
	assert.Empty(t, job)

	m, job, err = ParseTarget("mongodb")
	require.NoError(t, err)
	assert.Equal(t, ingest.ModeTest, m)
	assert.Equal(t, "mongodb", job)

	_, _, err = ParseTarget("sqlite")
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
}

func TestMenu(t *testing.T) {
	runner := &fakeRunner{}
	var out bytes.Buffer
	o := New(runner, &out, observability.NewNopLogger())

	ok := o.Menu(context.Background(), &lines{in: []string{"4", "3", "3", "2", "9", "5"}})
	assert.True(t, ok)
	require.Len(t, runner.calls, 1)
	assert.Equal(t, []string{"mongodb", "auto"}, runner.calls[0].args)
	assert.Contains(t, out.String(), "prefix=mysql-data/rooms")
	assert.Contains(t, out.String(), `invalid option "9"`)
}

type brokenReader struct{ reads int }

func (b *brokenReader) Readline() (string, error) {
	b.reads++
	return "", errors.New("terminal gone")
}

func TestMenu_StopsOnReadError(t *testing.T) {
	runner := &fakeRunner{}
	var out bytes.Buffer
	o := New(runner, &out, observability.NewNopLogger())

	rl := &brokenReader{}
	ok := o.Menu(context.Background(), rl)
	assert.False(t, ok)
	assert.Equal(t, 1, rl.reads)
	assert.Empty(t, runner.calls)
	assert.Contains(t, out.String(), "terminal gone")
}

func TestMenu_EndsOnEOF(t *testing.T) {
	runner := &fakeRunner{fail: map[string]bool{"mysql": true}}
	var out bytes.Buffer
	o := New(runner, &out, observability.NewNopLogger())

	ok := o.Menu(context.Background(), &lines{in: []string{"1"}})
	assert.False(t, ok)
	assert.Len(t, runner.calls, 3)
	assert.True(t, strings.Contains(out.String(), "2/3 jobs succeeded"))
}
