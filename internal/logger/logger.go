// Package logger provides structured logging configuration using log/slog.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Formats.
const (
	FormatText   = "text"
	FormatJSON   = "json"
	FormatPretty = "pretty"
)

// Config holds logger configuration.
type Config struct {
	Level  slog.Level
	Format string // "text", "json" or "pretty"

	// File, when set, receives a copy of the output and is rotated by size.
	File       string
	MaxSizeMB  int
	MaxBackups int
}

// NewLogger creates a configured slog.Logger writing to stderr and, when
// configured, to the log file. The returned function closes the file.
func NewLogger(cfg Config) (*slog.Logger, func() error) {
	var w io.Writer = os.Stderr
	closeFn := func() error { return nil }

	if cfg.File != "" {
		file := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
		}
		w = io.MultiWriter(os.Stderr, file)
		closeFn = file.Close
	}

	return New(cfg, w), closeFn
}

// New creates a logger writing to w.
func New(cfg Config, w io.Writer) *slog.Logger {
	var handler slog.Handler

	switch strings.ToLower(cfg.Format) {
	case FormatJSON:
		handler = slog.NewJSONHandler(w, handlerOptions(cfg))
	case FormatPretty:
		handler = log.NewWithOptions(w, log.Options{
			Level:           log.Level(cfg.Level),
			ReportTimestamp: true,
			ReportCaller:    cfg.Level <= slog.LevelDebug,
		})
	default:
		handler = slog.NewTextHandler(w, handlerOptions(cfg))
	}

	return slog.New(handler)
}

func handlerOptions(cfg Config) *slog.HandlerOptions {
	return &slog.HandlerOptions{
		Level: cfg.Level,
		// Add a source location for debug and error levels
		AddSource: cfg.Level <= slog.LevelDebug,
	}
}

// ParseLevel maps DEBUG, INFO, WARN (or WARNING) and ERROR to a level.
// Anything else is INFO.
func ParseLevel(s string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// DefaultConfig returns the default logger configuration.
// Parses the NUVE_LOG_LEVEL environment variable to set the log level.
// Valid values: DEBUG, INFO, WARN, WARNING, ERROR
// Default: INFO
func DefaultConfig() Config {
	return Config{
		Level:  ParseLevel(os.Getenv("NUVE_LOG_LEVEL")),
		Format: FormatText,
	}
}
