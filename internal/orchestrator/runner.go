package orchestrator

import (
	"bytes"
	"context"
	"os/exec"
	"strings"

	"github.com/cockroachdb/errors"
)

// Output is what a finished job process wrote.
type Output struct {
	Stdout string
	Stderr string
}

// Runner starts one job process and waits for it. A non-nil error means the
// job failed, either to start or with a non-zero exit status.
type Runner interface {
	Run(ctx context.Context, args []string, stdin string) (Output, error)
}

// ExecRunner runs the ingest binary as a child process.
type ExecRunner struct {
	Bin string
}

func (r ExecRunner) Run(ctx context.Context, args []string, stdin string) (Output, error) {
	cmd := exec.CommandContext(ctx, r.Bin, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if stdin != "" {
		cmd.Stdin = strings.NewReader(stdin)
	}
	err := cmd.Run()
	out := Output{Stdout: stdout.String(), Stderr: stderr.String()}
	if err != nil {
		return out, errors.Wrapf(err, "%s %s", r.Bin, strings.Join(args, " "))
	}
	return out, nil
}
