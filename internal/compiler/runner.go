package compiler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"
)

// defaultWaitDelay bounds how long Wait keeps draining output after the
// process is gone, e.g. when an orphaned grandchild still holds the pipe.
const defaultWaitDelay = 2 * time.Second

// Command describes one subprocess invocation.
type Command struct {
	Program string
	Args    []string
	Dir     string
	Timeout time.Duration
}

// Outcome is what a finished (or killed) subprocess left behind. Output holds
// stdout and stderr combined in arrival order.
type Outcome struct {
	ExitCode int
	Output   string
	TimedOut bool
	Canceled bool
}

// LaunchError means the process never started.
type LaunchError struct {
	Program string
	Err     error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("start %s: %v", e.Program, e.Err)
}

func (e *LaunchError) Unwrap() error { return e.Err }

// Runner runs a command to completion. The returned error is non-nil only
// when the process could not be launched.
type Runner interface {
	Run(ctx context.Context, cmd Command) (Outcome, error)
}

// ExecRunner runs commands with os/exec. On timeout or cancellation the whole
// process group is killed where the platform supports it.
type ExecRunner struct {
	WaitDelay time.Duration
}

func (r ExecRunner) Run(ctx context.Context, c Command) (Outcome, error) {
	runCtx := ctx
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, c.Program, c.Args...)
	cmd.Dir = c.Dir

	// Same writer for both streams: exec serializes writes to it.
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	cmd.WaitDelay = r.WaitDelay
	if cmd.WaitDelay <= 0 {
		cmd.WaitDelay = defaultWaitDelay
	}
	killGroupOnCancel(cmd)

	if err := cmd.Start(); err != nil {
		return Outcome{ExitCode: -1}, &LaunchError{Program: c.Program, Err: err}
	}
	waitErr := cmd.Wait()

	outcome := Outcome{Output: out.String()}
	switch {
	case ctx.Err() != nil:
		outcome.Canceled = true
	case runCtx.Err() != nil:
		outcome.TimedOut = true
	}

	var exitErr *exec.ExitError
	switch {
	case waitErr == nil:
		outcome.ExitCode = 0
	case errors.As(waitErr, &exitErr):
		outcome.ExitCode = exitErr.ExitCode()
	case errors.Is(waitErr, exec.ErrWaitDelay) && cmd.ProcessState != nil:
		outcome.ExitCode = cmd.ProcessState.ExitCode()
	default:
		outcome.ExitCode = -1
	}
	return outcome, nil
}
