// Package logger configures the process-wide zerolog logger.
package logger

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Level represents log severity
type Level = zerolog.Level

const (
	LevelDebug = zerolog.DebugLevel
	LevelInfo  = zerolog.InfoLevel
	LevelWarn  = zerolog.WarnLevel
	LevelError = zerolog.ErrorLevel
	LevelFatal = zerolog.FatalLevel
)

// ParseLevel parses a string level to Level. Unknown values fall back to info.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "info":
		return LevelInfo
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	case "fatal":
		return LevelFatal
	default:
		return LevelInfo
	}
}

// Config for logger
type Config struct {
	Level   Level
	Output  io.Writer
	Service string
	Console bool // human readable output (development)
}

var (
	defaultLogger zerolog.Logger
	once          sync.Once
	initialized   bool
	mu            sync.RWMutex
)

// Init initializes the default logger. Only the first call has an effect.
func Init(cfg Config) {
	once.Do(func() {
		mu.Lock()
		defer mu.Unlock()
		defaultLogger = New(cfg)
		initialized = true
	})
}

// New creates a new logger instance
func New(cfg Config) zerolog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}
	if cfg.Console {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}
	if cfg.Service == "" {
		cfg.Service = "taskdeck"
	}
	return zerolog.New(out).
		Level(cfg.Level).
		With().
		Timestamp().
		Str("service", cfg.Service).
		Logger()
}

// Default returns the default logger
func Default() zerolog.Logger {
	mu.RLock()
	ok := initialized
	mu.RUnlock()
	if !ok {
		Init(Config{Level: LevelInfo, Output: os.Stdout})
	}
	mu.RLock()
	defer mu.RUnlock()
	return defaultLogger
}

// Nop returns a disabled logger, used by tests and optional collaborators.
func Nop() zerolog.Logger {
	return zerolog.Nop()
}

// Component returns a child of the default logger tagged with a component name.
func Component(name string) zerolog.Logger {
	return Default().With().Str("component", name).Logger()
}

// Package-level printf style helpers using default logger
func Debug(msg string, args ...any) { l := Default(); l.Debug().Msgf(msg, args...) }
func Info(msg string, args ...any)  { l := Default(); l.Info().Msgf(msg, args...) }
func Warn(msg string, args ...any)  { l := Default(); l.Warn().Msgf(msg, args...) }
func Error(msg string, args ...any) { l := Default(); l.Error().Msgf(msg, args...) }
