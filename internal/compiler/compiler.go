// Package compiler invokes the external LaTeX compiler against a staged
// document set.
package compiler

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// DefaultTimeout bounds a single compiler run.
const DefaultTimeout = 60 * time.Second

var (
	ErrTimeout  = errors.New("compilation timed out")
	ErrCanceled = errors.New("compilation canceled")
)

// ExitError is returned when the compiler ran but exited nonzero.
type ExitError struct {
	Program string
	Code    int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%s exited with code %d", e.Program, e.Code)
}

// Config selects the compiler binary and its entry/artifact naming.
type Config struct {
	Program           string
	EntryFilename     string
	ArtifactExtension string
	Timeout           time.Duration
}

// Output is the result of a compile. Log is populated on failure too.
type Output struct {
	ArtifactPath string
	Log          string
	Duration     time.Duration
}

// Compiler runs one compilation per Compile call. It holds no per-run state
// and is safe for concurrent use.
type Compiler struct {
	cfg    Config
	runner Runner
}

// New returns a Compiler. A nil runner means ExecRunner.
func New(cfg Config, runner Runner) *Compiler {
	if cfg.Program == "" {
		cfg.Program = "pdflatex"
	}
	if cfg.EntryFilename == "" {
		cfg.EntryFilename = "main.tex"
	}
	if cfg.ArtifactExtension == "" {
		cfg.ArtifactExtension = ".pdf"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if runner == nil {
		runner = ExecRunner{}
	}
	return &Compiler{cfg: cfg, runner: runner}
}

// EntryFilename returns the name of the file compiled as the root.
func (c *Compiler) EntryFilename() string {
	return c.cfg.EntryFilename
}

// ArtifactName is the entry's base name with the artifact extension.
func (c *Compiler) ArtifactName() string {
	base := strings.TrimSuffix(c.cfg.EntryFilename, filepath.Ext(c.cfg.EntryFilename))
	return base + c.cfg.ArtifactExtension
}

// Args is the non-interactive argument list for a run in workDir.
func (c *Compiler) Args(workDir string) []string {
	return []string{
		"-interaction=nonstopmode",
		"-halt-on-error",
		"-output-directory=" + workDir,
		c.cfg.EntryFilename,
	}
}

// Compile runs the compiler with workDir as its working directory.
//
// Errors: *LaunchError if the binary could not start (empty log), ErrTimeout
// or ErrCanceled if the process was killed (partial log), *ExitError for a
// nonzero exit (full log).
func (c *Compiler) Compile(ctx context.Context, workDir string) (Output, error) {
	start := time.Now()
	// The output directory is resolved by the child, relative to workDir.
	if abs, err := filepath.Abs(workDir); err == nil {
		workDir = abs
	}
	outcome, err := c.runner.Run(ctx, Command{
		Program: c.cfg.Program,
		Args:    c.Args(workDir),
		Dir:     workDir,
		Timeout: c.cfg.Timeout,
	})
	out := Output{Log: outcome.Output, Duration: time.Since(start)}
	if err != nil {
		out.Log = ""
		return out, err
	}

	switch {
	case outcome.Canceled:
		return out, ErrCanceled
	case outcome.TimedOut:
		return out, fmt.Errorf("%w after %s", ErrTimeout, c.cfg.Timeout)
	case outcome.ExitCode != 0:
		return out, &ExitError{Program: c.cfg.Program, Code: outcome.ExitCode}
	}

	out.ArtifactPath = filepath.Join(workDir, c.ArtifactName())
	return out, nil
}
