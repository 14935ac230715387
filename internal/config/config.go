package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port string

	// Auth
	ProseAPIKey string

	// Workspace backend: exactly one of these.
	DatabaseURL   string
	WorkspaceRoot string

	// Compiler
	CompilerPath   string
	EntryFilename  string
	CompileTimeout time.Duration
	StagingRoot    string

	// Worker pool
	WorkerCount  int
	MaxQueueSize int

	// Upload limits
	MaxUploadBytes int64

	// Job state
	JobTTL time.Duration

	// PDF
	PDFFallbackPdftotext bool

	// Artifacts
	ArtifactCacheEntries int
	S3                   S3Config
}

type S3Config struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// Enabled reports whether artifacts go to S3 instead of memory.
func (c S3Config) Enabled() bool {
	return c.Endpoint != ""
}

// Load reads the environment, after merging an optional .env file from the
// working directory. Variables already set win over the file.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		Port: envOr("PORT", "8090"),

		ProseAPIKey: os.Getenv("PROSE_API_KEY"),

		DatabaseURL:   os.Getenv("DATABASE_URL"),
		WorkspaceRoot: os.Getenv("WORKSPACE_ROOT"),

		CompilerPath:   envOr("COMPILER_PATH", "pdflatex"),
		EntryFilename:  envOr("ENTRY_FILENAME", "main.tex"),
		CompileTimeout: envDuration("COMPILE_TIMEOUT", 60*time.Second),
		StagingRoot:    envOr("STAGING_ROOT", os.TempDir()),

		WorkerCount:  envInt("WORKER_COUNT", 2),
		MaxQueueSize: envInt("MAX_QUEUE_SIZE", 50),

		MaxUploadBytes: envInt64("MAX_UPLOAD_BYTES", 52428800), // 50MB

		JobTTL: envDuration("JOB_TTL", 1*time.Hour),

		PDFFallbackPdftotext: envBool("PDF_FALLBACK_PDFTOTEXT", true),

		ArtifactCacheEntries: envInt("ARTIFACT_CACHE_ENTRIES", 128),
		S3: S3Config{
			Endpoint:  os.Getenv("ARTIFACT_S3_ENDPOINT"),
			Region:    envOr("ARTIFACT_S3_REGION", "us-east-1"),
			AccessKey: os.Getenv("ARTIFACT_S3_ACCESS_KEY"),
			SecretKey: os.Getenv("ARTIFACT_S3_SECRET_KEY"),
			Bucket:    envOr("ARTIFACT_S3_BUCKET", "prose-artifacts"),
			UseSSL:    envBool("ARTIFACT_S3_USE_SSL", false),
		},
	}

	if cfg.CompileTimeout <= 0 {
		cfg.CompileTimeout = 60 * time.Second
	}
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 2
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 50
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 52428800
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = 1 * time.Hour
	}
	if cfg.ArtifactCacheEntries <= 0 {
		cfg.ArtifactCacheEntries = 128
	}

	return cfg
}

func (c Config) Validate() error {
	if c.ProseAPIKey == "" {
		return fmt.Errorf("PROSE_API_KEY is required")
	}
	switch {
	case c.DatabaseURL == "" && c.WorkspaceRoot == "":
		return fmt.Errorf("one of DATABASE_URL or WORKSPACE_ROOT is required")
	case c.DatabaseURL != "" && c.WorkspaceRoot != "":
		return fmt.Errorf("DATABASE_URL and WORKSPACE_ROOT are mutually exclusive")
	}
	if c.S3.Enabled() && (c.S3.AccessKey == "" || c.S3.SecretKey == "") {
		return fmt.Errorf("ARTIFACT_S3_ACCESS_KEY and ARTIFACT_S3_SECRET_KEY are required when ARTIFACT_S3_ENDPOINT is set")
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
