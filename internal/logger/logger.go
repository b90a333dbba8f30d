// Package logger provides structured logging for paperqa.
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Config holds logger configuration.
type Config struct {
	Level      string // debug, info, warn, error
	Pretty     bool   // console output for interactive use
	Output     io.Writer
	WithCaller bool
}

// Logger wraps zerolog with paperqa component helpers.
type Logger struct {
	zlog zerolog.Logger
}

// ParseLevel maps a config level name to a zerolog level. Unknown names map
// to info.
func ParseLevel(name string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// New creates a structured logger.
func New(cfg Config) *Logger {
	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: output, TimeFormat: time.RFC3339}
	}

	zlog := zerolog.New(output).
		Level(ParseLevel(cfg.Level)).
		With().
		Timestamp().
		Str("service", "paperqa").
		Logger()
	if cfg.WithCaller {
		zlog = zlog.With().Caller().Logger()
	}
	return &Logger{zlog: zlog}
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{zlog: zerolog.Nop()}
}

// Zerolog returns the underlying zerolog logger.
func (l *Logger) Zerolog() zerolog.Logger {
	return l.zlog
}

// Component returns the underlying logger tagged with a component name.
func (l *Logger) Component(name string) zerolog.Logger {
	return l.zlog.With().Str("component", name).Logger()
}

// WithComponent returns a Logger whose events carry the component name.
func (l *Logger) WithComponent(name string) *Logger {
	return &Logger{zlog: l.Component(name)}
}

// LogOperation logs a completed load or ask with optional extra fields.
// Failed operations log at error level.
func (l *Logger) LogOperation(operation string, duration time.Duration, err error, fields map[string]any) {
	event := l.zlog.Info()
	if err != nil {
		event = l.zlog.Error().Err(err)
	}
	if len(fields) > 0 {
		event = event.Fields(fields)
	}
	event.
		Str("operation", operation).
		Dur("duration_ms", duration).
		Msg("operation completed")
}

// OpenFile opens path for appending log output, creating it if needed.
func OpenFile(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
}
