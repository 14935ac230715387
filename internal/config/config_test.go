package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir()) // no .env file
	for _, k := range []string{"PORT", "COMPILER_PATH", "ENTRY_FILENAME", "COMPILE_TIMEOUT", "WORKER_COUNT", "MAX_QUEUE_SIZE", "JOB_TTL", "ARTIFACT_S3_ENDPOINT"} {
		t.Setenv(k, "")
	}
	cfg := Load()

	if cfg.Port != "8090" {
		t.Errorf("expected port 8090, got %q", cfg.Port)
	}
	if cfg.CompilerPath != "pdflatex" || cfg.EntryFilename != "main.tex" {
		t.Errorf("unexpected compiler defaults %q %q", cfg.CompilerPath, cfg.EntryFilename)
	}
	if cfg.CompileTimeout != 60*time.Second {
		t.Errorf("expected 60s timeout, got %s", cfg.CompileTimeout)
	}
	if cfg.WorkerCount != 2 || cfg.MaxQueueSize != 50 {
		t.Errorf("unexpected pool defaults %d %d", cfg.WorkerCount, cfg.MaxQueueSize)
	}
	if cfg.S3.Enabled() {
		t.Error("expected S3 disabled by default")
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("COMPILE_TIMEOUT", "90s")
	t.Setenv("WORKER_COUNT", "8")
	t.Setenv("ENTRY_FILENAME", "book.tex")
	t.Setenv("PDF_FALLBACK_PDFTOTEXT", "false")
	t.Setenv("MAX_QUEUE_SIZE", "-3")
	cfg := Load()

	if cfg.CompileTimeout != 90*time.Second {
		t.Errorf("expected 90s, got %s", cfg.CompileTimeout)
	}
	if cfg.WorkerCount != 8 || cfg.EntryFilename != "book.tex" || cfg.PDFFallbackPdftotext {
		t.Errorf("overrides not applied: %+v", cfg)
	}
	if cfg.MaxQueueSize != 50 {
		t.Errorf("expected invalid queue size to fall back to 50, got %d", cfg.MaxQueueSize)
	}
}

func TestValidate(t *testing.T) {
	base := Config{ProseAPIKey: "k", WorkspaceRoot: "/data"}
	if err := base.Validate(); err != nil {
		t.Errorf("expected valid config, got %v", err)
	}

	cases := map[string]Config{
		"missing key":     {WorkspaceRoot: "/data"},
		"no backend":      {ProseAPIKey: "k"},
		"both backends":   {ProseAPIKey: "k", WorkspaceRoot: "/data", DatabaseURL: "postgres://x"},
		"s3 without keys": {ProseAPIKey: "k", WorkspaceRoot: "/data", S3: S3Config{Endpoint: "minio:9000"}},
	}
	for name, cfg := range cases {
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}
