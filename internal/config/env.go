// Package config loads pipeline configuration from the process
// environment, following the struct-tree-plus-FromEnv pattern the teacher
// uses in its own internal/config/env.go, with every variable prefixed
// HYBRIDOCR_ as catalogued in §6 of the expanded specification.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// LoggingConfig holds structured-logging sink configuration.
type LoggingConfig struct {
	Level      string
	Pretty     bool
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// AxiomConfig holds optional Axiom log-shipping configuration.
type AxiomConfig struct {
	Send          bool
	APIKey        string
	OrgID         string
	Dataset       string
	FlushInterval time.Duration
}

// StorageBackend selects where sidecar output is written.
type StorageBackend string

const (
	StorageLocal StorageBackend = "local"
	StorageS3    StorageBackend = "s3"
)

// StorageConfig configures the sidecar output destination.
type StorageConfig struct {
	Backend StorageBackend
	S3Bucket string
	S3Prefix string
	S3Region string
}

// RunCoordConfig configures optional Redis-backed idempotency/coordination
// across concurrent invocations of the pipeline. Empty RedisURL disables it.
type RunCoordConfig struct {
	RedisURL string
}

// Config is the top-level pipeline configuration.
type Config struct {
	InputDir           string
	OutputDir          string
	QualityThreshold   float64
	ForceTesseract     bool
	ForceSurya         bool
	MaxWorkers         int
	LangsTesseract     []string
	LangsSurya         []string
	Files              []string // optional explicit file subset, overrides InputDir scan
	ExtractText        bool
	Diagnostics        bool
	KeepIntermediates  bool
	Timeout            time.Duration
	BatchSize          int
	ModelTTL           time.Duration
	MetricsAddr        string

	Logging LoggingConfig
	Axiom   AxiomConfig
	Storage StorageConfig
	RunCoord RunCoordConfig
}

// FromEnv loads configuration from the environment with sensible defaults.
func FromEnv() Config {
	cfg := Config{
		InputDir:          getEnv("HYBRIDOCR_INPUT_DIR", "."),
		OutputDir:         getEnv("HYBRIDOCR_OUTPUT_DIR", "output"),
		QualityThreshold:  parseFloat(getEnv("HYBRIDOCR_QUALITY_THRESHOLD", "0.85"), 0.85),
		ForceTesseract:    parseBool(getEnv("HYBRIDOCR_FORCE_TESSERACT", "false")),
		ForceSurya:        parseBool(getEnv("HYBRIDOCR_FORCE_SURYA", "false")),
		MaxWorkers:        parseInt(getEnv("HYBRIDOCR_MAX_WORKERS", "4"), 4),
		LangsTesseract:    parseList(getEnv("HYBRIDOCR_LANGS_TESSERACT", "eng")),
		LangsSurya:        parseList(getEnv("HYBRIDOCR_LANGS_SURYA", "en")),
		Files:             parseList(getEnv("HYBRIDOCR_FILES", "")),
		ExtractText:       parseBool(getEnv("HYBRIDOCR_EXTRACT_TEXT", "true")),
		Diagnostics:       parseBool(getEnv("HYBRIDOCR_DIAGNOSTICS", "false")),
		KeepIntermediates: parseBool(getEnv("HYBRIDOCR_KEEP_INTERMEDIATES", "false")),
		Timeout:           parseDuration(getEnv("HYBRIDOCR_TIMEOUT", "10m"), 10*time.Minute),
		BatchSize:         parseInt(getEnv("HYBRIDOCR_BATCH_SIZE", "0"), 0), // parsed only: Phase 2 sub-batches are sized by batchplanner.SafeBatchSize and never read this value
		ModelTTL:          parseDuration(getEnv("HYBRIDOCR_MODEL_TTL", "30m"), 30*time.Minute),
		MetricsAddr:       getEnv("HYBRIDOCR_METRICS_ADDR", ":9090"),
	}

	cfg.Logging = LoggingConfig{
		Level:      getEnv("HYBRIDOCR_LOG_LEVEL", "info"),
		Pretty:     parseBool(getEnv("HYBRIDOCR_LOG_PRETTY", devDefaultPretty())),
		File:       getEnv("HYBRIDOCR_LOG_FILE", "logs/hybridocr.log"),
		MaxSizeMB:  parseInt(getEnv("HYBRIDOCR_LOG_MAX_SIZE_MB", "100"), 100),
		MaxBackups: parseInt(getEnv("HYBRIDOCR_LOG_MAX_BACKUPS", "10"), 10),
		MaxAgeDays: parseInt(getEnv("HYBRIDOCR_LOG_MAX_AGE_DAYS", "30"), 30),
		Compress:   parseBool(getEnv("HYBRIDOCR_LOG_COMPRESS", "true")),
	}

	cfg.Axiom = AxiomConfig{
		Send:          parseBool(getEnv("HYBRIDOCR_AXIOM_SEND", "0")),
		APIKey:        getEnv("HYBRIDOCR_AXIOM_API_KEY", ""),
		OrgID:         getEnv("HYBRIDOCR_AXIOM_ORG_ID", ""),
		Dataset:       getEnv("HYBRIDOCR_AXIOM_DATASET", "dev") + "_hybridocr",
		FlushInterval: parseDuration(getEnv("HYBRIDOCR_AXIOM_FLUSH_INTERVAL", "10s"), 10*time.Second),
	}

	cfg.Storage = StorageConfig{
		Backend:  StorageBackend(getEnv("HYBRIDOCR_STORAGE_BACKEND", string(StorageLocal))),
		S3Bucket: getEnv("HYBRIDOCR_S3_BUCKET", ""),
		S3Prefix: getEnv("HYBRIDOCR_S3_PREFIX", ""),
		S3Region: getEnv("HYBRIDOCR_S3_REGION", ""),
	}

	cfg.RunCoord = RunCoordConfig{
		RedisURL: getEnv("HYBRIDOCR_REDIS_URL", ""),
	}

	return cfg
}

func parseList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

func parseFloat(s string, def float64) float64 {
	if s == "" {
		return def
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return def
}

func parseBool(s string) bool {
	v := strings.ToLower(strings.TrimSpace(s))
	return v == "1" || v == "true" || v == "yes" || v == "on"
}

func parseDuration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	if d, err := time.ParseDuration(s); err == nil {
		return d
	}
	return def
}

func devDefaultPretty() string {
	env := strings.ToLower(os.Getenv("ENVIRONMENT"))
	if env == "dev" || env == "development" || env == "local" {
		return "true"
	}
	return "false"
}
