package config

import (
	"os"
	"strconv"
)

// Environment variable names.
const (
	EnvMaxPackageBytes = "MODELPREVIEW_MAX_PACKAGE_BYTES"
	EnvRecalcMaxRows   = "MODELPREVIEW_RECALC_MAX_ROWS"
	EnvRecalcMaxCols   = "MODELPREVIEW_RECALC_MAX_COLS"
	EnvRenderMaxRows   = "MODELPREVIEW_RENDER_MAX_ROWS"
	EnvRenderMaxCols   = "MODELPREVIEW_RENDER_MAX_COLS"
	EnvListenAddr      = "MODELPREVIEW_LISTEN_ADDR"
	EnvSupabaseURL     = "SUPABASE_URL"
	EnvSupabaseKey     = "SUPABASE_SERVICE_KEY"
	EnvStorageBucket   = "MODELPREVIEW_STORAGE_BUCKET"
	EnvSubmissionTable = "MODELPREVIEW_SUBMISSION_TABLE"
	EnvProduction      = "MODELPREVIEW_PRODUCTION"
)

// Defaults for missing or invalid environment values.
const (
	// DefaultMaxPackageBytes is the default maximum accepted package size (50 MiB).
	DefaultMaxPackageBytes int64 = 50 << 20

	// Recalculation transfers a bounded window of each sheet into the formula
	// engine; rendering walks a separately bounded viewport. The two caps are
	// independent knobs on purpose.
	DefaultRecalcMaxRows = 200
	DefaultRecalcMaxCols = 50
	DefaultRenderMaxRows = 100
	DefaultRenderMaxCols = 30

	DefaultListenAddr      = ":8080"
	DefaultStorageBucket   = "models"
	DefaultSubmissionTable = "submissions"
)

// Config holds runtime configuration sourced from environment variables.
type Config struct {
	MaxPackageBytes int64

	RecalcMaxRows int
	RecalcMaxCols int
	RenderMaxRows int
	RenderMaxCols int

	ListenAddr      string
	SupabaseURL     string
	SupabaseKey     string
	StorageBucket   string
	SubmissionTable string

	// Production suppresses parser internals in client-facing error bodies.
	Production bool
}

// MaxPackageMB returns the configured package size limit in whole megabytes.
func (c *Config) MaxPackageMB() int64 {
	return c.MaxPackageBytes >> 20
}

// Load reads Config from environment variables, falling back to defaults for
// missing or invalid values.
func Load() *Config {
	cfg := &Config{
		MaxPackageBytes: DefaultMaxPackageBytes,
		RecalcMaxRows:   DefaultRecalcMaxRows,
		RecalcMaxCols:   DefaultRecalcMaxCols,
		RenderMaxRows:   DefaultRenderMaxRows,
		RenderMaxCols:   DefaultRenderMaxCols,
		ListenAddr:      DefaultListenAddr,
		SupabaseURL:     os.Getenv(EnvSupabaseURL),
		SupabaseKey:     os.Getenv(EnvSupabaseKey),
		StorageBucket:   DefaultStorageBucket,
		SubmissionTable: DefaultSubmissionTable,
	}
	if v := os.Getenv(EnvMaxPackageBytes); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			cfg.MaxPackageBytes = n
		}
	}
	loadPositiveInt(EnvRecalcMaxRows, &cfg.RecalcMaxRows)
	loadPositiveInt(EnvRecalcMaxCols, &cfg.RecalcMaxCols)
	loadPositiveInt(EnvRenderMaxRows, &cfg.RenderMaxRows)
	loadPositiveInt(EnvRenderMaxCols, &cfg.RenderMaxCols)
	if v := os.Getenv(EnvListenAddr); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv(EnvStorageBucket); v != "" {
		cfg.StorageBucket = v
	}
	if v := os.Getenv(EnvSubmissionTable); v != "" {
		cfg.SubmissionTable = v
	}
	if v := os.Getenv(EnvProduction); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Production = b
		}
	}
	return cfg
}

func loadPositiveInt(env string, dst *int) {
	if v := os.Getenv(env); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			*dst = n
		}
	}
}
