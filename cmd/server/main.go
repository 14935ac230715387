package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgallion1/prose/internal/api"
	"github.com/dgallion1/prose/internal/artifact"
	"github.com/dgallion1/prose/internal/compiler"
	"github.com/dgallion1/prose/internal/config"
	"github.com/dgallion1/prose/internal/pipeline"
	"github.com/dgallion1/prose/internal/workspace"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Workspace backend.
	var store workspace.Store
	var closeStore func() error
	if cfg.DatabaseURL != "" {
		pg, err := workspace.NewPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Error("connect database", "error", err)
			os.Exit(1)
		}
		store, closeStore = pg, pg.Close
	} else {
		dir, err := workspace.NewDirStore(cfg.WorkspaceRoot)
		if err != nil {
			log.Error("open workspace root", "root", cfg.WorkspaceRoot, "error", err)
			os.Exit(1)
		}
		store, closeStore = dir, func() error { return nil }
	}

	// Artifact store.
	var artifacts artifact.Store
	if cfg.S3.Enabled() {
		s3, err := artifact.NewS3Store(artifact.S3Config{
			Endpoint:  cfg.S3.Endpoint,
			Region:    cfg.S3.Region,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			Bucket:    cfg.S3.Bucket,
			UseSSL:    cfg.S3.UseSSL,
			Prefix:    "compiled",
		})
		if err != nil {
			log.Error("init artifact store", "error", err)
			os.Exit(1)
		}
		artifacts = s3
	} else {
		mem, err := artifact.NewMemoryStore(cfg.ArtifactCacheEntries)
		if err != nil {
			log.Error("init artifact cache", "error", err)
			os.Exit(1)
		}
		artifacts = mem
	}

	// Initialize pipeline.
	comp := compiler.New(compiler.Config{
		Program:       cfg.CompilerPath,
		EntryFilename: cfg.EntryFilename,
		Timeout:       cfg.CompileTimeout,
	}, nil)
	orch := pipeline.NewOrchestrator(store, comp, cfg.StagingRoot, log)
	jobs := pipeline.NewJobQueue(orch, artifacts, pipeline.QueueConfig{
		WorkerCount:  cfg.WorkerCount,
		MaxQueueSize: cfg.MaxQueueSize,
		JobTTL:       cfg.JobTTL,
	}, log)
	jobs.Start(ctx)

	// Initialize HTTP server.
	srv := api.NewServer(orch, jobs, store, log, cfg)

	httpServer := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     srv,
		ReadTimeout: 60 * time.Second,
		// Synchronous compiles hold the response open for the whole run.
		WriteTimeout: cfg.CompileTimeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		jobs.Stop()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		if err := closeStore(); err != nil {
			log.Warn("close workspace store", "error", err)
		}
	}()

	log.Info("starting prose",
		"port", cfg.Port,
		"compiler", cfg.CompilerPath,
		"entry", cfg.EntryFilename,
		"workers", cfg.WorkerCount,
		"postgres", cfg.DatabaseURL != "",
		"s3_artifacts", cfg.S3.Enabled(),
	)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
