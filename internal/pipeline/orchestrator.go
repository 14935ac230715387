// Package pipeline turns a workspace's document tree into a compiled
// artifact: load, resolve the entry, stage to a temp dir, compile, read,
// clean up.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/debug"
	"time"

	"github.com/dgallion1/prose/internal/compiler"
	"github.com/dgallion1/prose/internal/doctree"
	"github.com/dgallion1/prose/internal/entry"
	"github.com/dgallion1/prose/internal/materialize"
	"github.com/dgallion1/prose/internal/metrics"
)

// Orchestrator runs compilations. Runs share nothing but the staging root,
// so concurrent Run calls are safe.
type Orchestrator struct {
	source      doctree.Source
	compiler    *compiler.Compiler
	stagingRoot string
	log         *slog.Logger

	removeAll func(string) error
}

// NewOrchestrator creates an orchestrator. An empty stagingRoot means
// os.TempDir(); a relative one is resolved against the working directory.
func NewOrchestrator(source doctree.Source, comp *compiler.Compiler, stagingRoot string, log *slog.Logger) *Orchestrator {
	if stagingRoot != "" {
		if abs, err := filepath.Abs(stagingRoot); err == nil {
			stagingRoot = abs
		}
	}
	return &Orchestrator{
		source:      source,
		compiler:    comp,
		stagingRoot: stagingRoot,
		log:         log,
		removeAll:   os.RemoveAll,
	}
}

// ArtifactName is the file name the compiler produces for the entry.
func (o *Orchestrator) ArtifactName() string {
	return o.compiler.ArtifactName()
}

// Run compiles the workspace and returns Success or *Failure. The staging
// directory never outlives the call.
func (o *Orchestrator) Run(ctx context.Context, workspaceID string) Result {
	return o.run(ctx, workspaceID, nil)
}

func (o *Orchestrator) run(ctx context.Context, workspaceID string, onStage func(Stage)) (res Result) {
	start := time.Now()
	log := o.log.With("workspace_id", workspaceID)

	var stage Stage
	enter := func(s Stage) {
		stage = s
		log.Debug("compile stage", "stage", s)
		if onStage != nil {
			onStage(s)
		}
	}

	defer func() {
		if p := recover(); p != nil {
			log.Error("compile panic", "stage", stage, "panic", p, "stack", string(debug.Stack()))
			res = &Failure{Kind: KindEnvironment, Stage: stage, Message: "internal error during compilation"}
		}
		elapsed := time.Since(start)
		metrics.RecordCompilation(Outcome(res), elapsed)
		if f, ok := res.(*Failure); ok {
			log.Warn("compile failed", "kind", f.Kind, "stage", f.Stage, "error", f.Message, "duration", elapsed)
			return
		}
		log.Info("compile succeeded", "duration", elapsed)
	}()

	enter(StageLoading)
	tree, err := o.source.FetchTree(ctx, workspaceID)
	if err != nil {
		log.Error("load documents", "error", err)
		return &Failure{Kind: KindEnvironment, Stage: stage, Message: "failed to load workspace documents"}
	}
	if doctree.IsEmpty(tree) {
		return &Failure{Kind: KindInput, Stage: stage, Message: "no documents found in workspace"}
	}

	enter(StageResolving)
	files, err := materialize.Flatten(tree)
	if err != nil {
		return &Failure{Kind: KindInput, Stage: stage, Message: err.Error()}
	}
	if len(files) == 0 {
		return &Failure{Kind: KindInput, Stage: stage, Message: "no documents to compile"}
	}
	entryName := o.compiler.EntryFilename()
	entryDir, ok := entry.Locate(files, entryName)
	if !ok {
		return &Failure{
			Kind:    KindInput,
			Stage:   stage,
			Message: fmt.Sprintf("no entry document found; create a document named %q as the compilation root", entryName),
		}
	}

	enter(StageStaging)
	staging, err := os.MkdirTemp(o.stagingRoot, "latex-build-*")
	if err != nil {
		log.Error("create staging dir", "error", err)
		return &Failure{Kind: KindIO, Stage: stage, Message: "failed to create staging directory"}
	}
	defer o.cleanup(log, staging)

	if err := materialize.Write(staging, files); err != nil {
		log.Error("stage documents", "dir", staging, "error", err)
		return &Failure{Kind: KindIO, Stage: stage, Message: "failed to write documents to staging directory"}
	}

	enter(StageCompiling)
	workDir := filepath.Join(staging, filepath.FromSlash(entryDir))
	out, err := o.compiler.Compile(ctx, workDir)
	if err != nil {
		return compileFailure(err, out.Log)
	}
	log.Debug("compiler finished", "duration", out.Duration)

	enter(StageReading)
	data, err := os.ReadFile(out.ArtifactPath)
	if err != nil || len(data) == 0 {
		log.Error("read artifact", "path", out.ArtifactPath, "error", err)
		return &Failure{
			Kind:    KindEnvironment,
			Stage:   stage,
			Message: "compiler reported success but produced no output",
			Log:     out.Log,
		}
	}

	enter(StageDone)
	return Success{Artifact: data}
}

func compileFailure(err error, log string) *Failure {
	f := &Failure{Stage: StageCompiling, Message: err.Error(), Log: log}
	var exitErr *compiler.ExitError
	var launchErr *compiler.LaunchError
	switch {
	case errors.As(err, &exitErr):
		f.Kind = KindCompile
		f.Message = "LaTeX compilation failed: " + err.Error()
	case errors.As(err, &launchErr):
		f.Kind = KindEnvironment
		f.Log = ""
		f.Message = "LaTeX compiler is not available: " + err.Error()
	default:
		// timeout, cancellation
		f.Kind = KindEnvironment
	}
	return f
}

func (o *Orchestrator) cleanup(log *slog.Logger, dir string) {
	if err := o.removeAll(dir); err != nil {
		metrics.RecordCleanupFailure()
		log.Error("remove staging dir", "dir", dir, "error", err)
	}
}
