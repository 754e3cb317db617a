// SPDX-License-Identifier: MPL-2.0

// Package logging builds the daemon's logger: charmbracelet/log on stderr,
// optionally teed to a size-rotated file, and installed as the log/slog
// default so library code logging through slog lands in the same place.
package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/walrus-wm/walrus/internal/config"
)

// Prefix is printed before every message.
const Prefix = "walrus"

// Rotation defaults for the log file.
const (
	DefaultMaxSizeMB  = 5
	DefaultMaxBackups = 3
	DefaultMaxAgeDays = 14
)

type (
	// Options configures New.
	Options struct {
		// Level is the configured log level.
		Level config.LogLevel
		// Verbose forces debug logging regardless of Level.
		Verbose bool
		// Console defaults to os.Stderr.
		Console io.Writer
		// File, when set, receives a copy of every line and is rotated by
		// size. Its directory is created.
		File string
		// Rotation limits; zero values use the defaults above.
		MaxSizeMB  int
		MaxBackups int
		MaxAgeDays int
	}

	// Logger is a charm logger that can follow configuration reloads.
	Logger struct {
		*log.Logger
		file    *lumberjack.Logger
		verbose bool
	}
)

// New creates the logger and makes it the slog default.
func New(opts Options) (*Logger, error) {
	var out io.Writer = os.Stderr
	if opts.Console != nil {
		out = opts.Console
	}

	l := &Logger{verbose: opts.Verbose}
	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
			return nil, err
		}
		l.file = &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    orDefault(opts.MaxSizeMB, DefaultMaxSizeMB),
			MaxBackups: orDefault(opts.MaxBackups, DefaultMaxBackups),
			MaxAge:     orDefault(opts.MaxAgeDays, DefaultMaxAgeDays),
		}
		out = io.MultiWriter(out, l.file)
	}

	l.Logger = log.NewWithOptions(out, log.Options{
		Prefix:          Prefix,
		ReportTimestamp: true,
		TimeFormat:      time.DateTime,
		Level:           l.level(opts.Level),
	})
	slog.SetDefault(slog.New(l.Logger))
	return l, nil
}

// Apply sets the level from a reloaded configuration. --verbose wins.
func (l *Logger) Apply(cfg *config.Config) {
	l.SetLevel(l.level(cfg.General.LogLevel))
}

// Close flushes and closes the log file, if any.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}

func (l *Logger) level(lvl config.LogLevel) log.Level {
	if l.verbose {
		return log.DebugLevel
	}
	return Level(lvl)
}

// Level maps a configured level to the charm level. Unknown values map to
// info.
func Level(lvl config.LogLevel) log.Level {
	switch lvl {
	case config.LogLevelDebug:
		return log.DebugLevel
	case config.LogLevelWarn:
		return log.WarnLevel
	case config.LogLevelError:
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}

func orDefault(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}
