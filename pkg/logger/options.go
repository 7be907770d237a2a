package logger

import (
	"io"

	"gopkg.in/lumberjack.v2"
)

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// FileConfig configures the rotating log file.
type FileConfig struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

type options struct {
	format  string
	level   string
	console bool
	output  io.Writer
	file    *lumberjack.Logger
}

// Option configures the global logger.
type Option func(*options)

// WithFormat selects "text" or "json" output.
func WithFormat(format string) Option {
	return func(o *options) {
		if format != "" {
			o.format = format
		}
	}
}

// WithLevel sets the initial level.
func WithLevel(level string) Option {
	return func(o *options) { o.level = level }
}

// WithConsole toggles stdout output.
func WithConsole(enabled bool) Option {
	return func(o *options) { o.console = enabled }
}

// WithOutput replaces stdout with w.
func WithOutput(w io.Writer) Option {
	return func(o *options) { o.output = w }
}

// WithFile additionally writes to a size-rotated file. An empty path is
// ignored.
func WithFile(cfg FileConfig) Option {
	return func(o *options) {
		if cfg.Path == "" {
			return
		}
		o.file = &lumberjack.Logger{
			Filename:   cfg.Path,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   cfg.Compress,
			LocalTime:  true,
		}
	}
}
