// Package config defines gisc configuration and its defaults.
//
// Values are layered by Load: defaults from New, then an optional YAML
// file, then GISC_* environment variables. The CLI applies flag overrides
// on top of the loaded value and calls Validate before use.
package config

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"time"
)

// Window is the fixed impact window length.
const Window = 24 * time.Hour

// Store drivers.
const (
	DriverSQLite = "sqlite"
	DriverMemory = "memory"
)

// Significance strategies.
const (
	SignificanceMaxAbs   = "max_abs"
	SignificanceRelative = "relative"
	SignificanceNet      = "net"
)

// Genuineness strategies.
const (
	GenuinenessDispersion = "dispersion"
	GenuinenessWeighted   = "weighted"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat is text or json.
	LogFormat string `koanf:"log_format"`
	// LogsDir, when set, receives a copy of every log record.
	LogsDir string `koanf:"logs_dir"`

	Store       StoreConfig       `koanf:"store"`
	Analysis    AnalysisConfig    `koanf:"analysis"`
	Genuineness GenuinenessConfig `koanf:"genuineness"`
	Output      OutputConfig      `koanf:"output"`
	Serve       ServeConfig       `koanf:"serve"`
	Import      ImportConfig      `koanf:"import"`
}

// StoreConfig selects the event store.
type StoreConfig struct {
	Driver string `koanf:"driver"`
	// DSN is the SQLite database path (or ":memory:").
	DSN string `koanf:"dsn"`
	// Archives are imported into a memory store at startup.
	Archives []string `koanf:"archives"`
}

// AnalysisConfig tunes the growth-curve pipeline.
type AnalysisConfig struct {
	// Top is K, the number of influential actors; <= 0 means all.
	Top int `koanf:"top"`
	// Language restricts repositories by language, case-insensitive.
	Language string `koanf:"language"`
	// Degree of the fitted polynomial.
	Degree int `koanf:"degree"`
	// Window is fixed at 24h; any other value fails validation.
	Window             time.Duration `koanf:"window"`
	Significance       string        `koanf:"significance"`
	DeviationThreshold float64       `koanf:"deviation_threshold"`
	Workers            int           `koanf:"workers"`
	QueueSize          int           `koanf:"queue_size"`
}

// GenuinenessConfig tunes the dispersion check.
type GenuinenessConfig struct {
	Strategy  string  `koanf:"strategy"`
	MaxStdDev float64 `koanf:"max_stddev"`
	// MinDelta drops small deltas in the weighted strategy.
	MinDelta int `koanf:"min_delta"`
}

// OutputConfig controls chart rendering.
type OutputConfig struct {
	Dir    string `koanf:"dir"`
	Format string `koanf:"format"`
	// Clean empties Dir before a run.
	Clean bool `koanf:"clean"`
	// DryRun evaluates without rendering.
	DryRun bool `koanf:"dry_run"`
}

// ServeConfig configures the read-only HTTP API.
type ServeConfig struct {
	Addr            string        `koanf:"addr"`
	RefreshInterval time.Duration `koanf:"refresh_interval"`
	MaxLimit        int           `koanf:"max_limit"`
}

// ImportConfig configures archive ingestion.
type ImportConfig struct {
	DedupeSize int `koanf:"dedupe_size"`
	BatchSize  int `koanf:"batch_size"`
}

// New returns a Config populated with defaults.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:  "info",
		LogFormat: "text",
		Store: StoreConfig{
			Driver: DriverSQLite,
			DSN:    "gisc.db",
		},
		Analysis: AnalysisConfig{
			Top:                10,
			Degree:             2,
			Window:             Window,
			Significance:       SignificanceMaxAbs,
			DeviationThreshold: 10,
			Workers:            runtime.NumCPU(),
			QueueSize:          1024,
		},
		Genuineness: GenuinenessConfig{
			Strategy:  GenuinenessDispersion,
			MaxStdDev: 5,
			MinDelta:  50,
		},
		Output: OutputConfig{
			Dir:    "plots",
			Format: "html",
		},
		Serve: ServeConfig{
			Addr:     ":9080",
			MaxLimit: 100,
		},
		Import: ImportConfig{
			DedupeSize: 500_000,
			BatchSize:  1000,
		},
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case c.Store.Driver != DriverSQLite && c.Store.Driver != DriverMemory:
		return invalid("store.driver", c.Store.Driver)
	case c.Store.Driver == DriverSQLite && c.Store.DSN == "":
		return invalid("store.dsn", c.Store.DSN)
	case c.Analysis.Degree < 0:
		return invalid("analysis.degree", c.Analysis.Degree)
	case c.Analysis.Window != Window:
		return invalid("analysis.window", c.Analysis.Window)
	case c.Analysis.DeviationThreshold < 0:
		return invalid("analysis.deviation_threshold", c.Analysis.DeviationThreshold)
	case c.Analysis.Workers <= 0:
		return invalid("analysis.workers", c.Analysis.Workers)
	case c.Analysis.QueueSize <= 0:
		return invalid("analysis.queue_size", c.Analysis.QueueSize)
	case c.Genuineness.MaxStdDev < 0:
		return invalid("genuineness.max_stddev", c.Genuineness.MaxStdDev)
	case c.Serve.MaxLimit <= 0:
		return invalid("serve.max_limit", c.Serve.MaxLimit)
	case c.Serve.RefreshInterval < 0:
		return invalid("serve.refresh_interval", c.Serve.RefreshInterval)
	case c.Import.DedupeSize <= 0:
		return invalid("import.dedupe_size", c.Import.DedupeSize)
	case c.Import.BatchSize <= 0:
		return invalid("import.batch_size", c.Import.BatchSize)
	}

	switch c.Analysis.Significance {
	case SignificanceMaxAbs, SignificanceRelative, SignificanceNet:
	default:
		return invalid("analysis.significance", c.Analysis.Significance)
	}
	switch c.Genuineness.Strategy {
	case GenuinenessDispersion, GenuinenessWeighted:
	default:
		return invalid("genuineness.strategy", c.Genuineness.Strategy)
	}
	switch strings.ToLower(c.Output.Format) {
	case "html", "htm":
	default:
		return invalid("output.format", c.Output.Format)
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return invalid("log_format", c.LogFormat)
	}
	if c.Output.Dir == "" && !c.Output.DryRun {
		return invalid("output.dir", c.Output.Dir)
	}
	return nil
}

func invalid(key string, val any) error {
	return fmt.Errorf("%w: %s=%v", ErrInvalidConfig, key, val)
}
