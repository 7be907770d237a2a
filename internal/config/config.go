// Package config defines service configuration and its loading.
package config

import (
	"context"
	"runtime"
	"time"

	"github.com/okian/trainboard/internal/domain/model"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel  string `koanf:"log_level" validate:"oneof=debug info warn warning error"`
	LogFormat string `koanf:"log_format" validate:"oneof=text json"`

	// LogFile enables a size-rotated log file next to stdout.
	LogFile           string `koanf:"log_file"`
	LogFileMaxSizeMB  int    `koanf:"log_file_max_size_mb" validate:"gte=0"`
	LogFileMaxBackups int    `koanf:"log_file_max_backups" validate:"gte=0"`
	LogFileMaxAgeDays int    `koanf:"log_file_max_age_days" validate:"gte=0"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr" validate:"required"`

	// DatabaseURL selects the PostgreSQL store. Empty keeps state in memory.
	DatabaseURL string `koanf:"database_url"`

	// SeedFile is a roster file loaded into an empty store at startup.
	SeedFile string `koanf:"seed_file"`

	// Alliance labels metrics and logs.
	Alliance string `koanf:"alliance"`

	// EventQueueSize bounds the in-memory event queue.
	EventQueueSize int `koanf:"queue_size" validate:"gt=0"`

	// WorkerCount sets the number of event workers.
	WorkerCount int `koanf:"worker_count" validate:"gt=0"`

	// DedupeSize and DedupeTTL bound the event id cache.
	DedupeSize int           `koanf:"dedupe_size" validate:"gte=0"`
	DedupeTTL  time.Duration `koanf:"dedupe_ttl" validate:"gte=0"`

	// ScheduleConductorsFirst fills all conductor slots of a week before
	// any backup slot.
	ScheduleConductorsFirst bool `koanf:"schedule_conductors_first"`

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`

	// Scoring seeds the settings of a fresh store.
	Scoring model.ScoringSettings `koanf:"scoring"`
}

// New creates a Config with defaults. Context is accepted first by project
// convention.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:          "info",
		LogFormat:         "text",
		LogFileMaxSizeMB:  100,
		LogFileMaxBackups: 5,
		LogFileMaxAgeDays: 28,
		Addr:              ":9080",
		Alliance:          "default",
		EventQueueSize:    10_000,
		WorkerCount:       runtime.NumCPU(),
		DedupeSize:        100_000,
		DedupeTTL:         24 * time.Hour,
		ShutdownTimeout:   15 * time.Second,
		Scoring:           model.DefaultScoringSettings(),
	}
}
