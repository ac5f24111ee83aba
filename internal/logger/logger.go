package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

const timeFormat = "2006-01-02 15:04:05"

// Config selects the level, format and destination of log output.
type Config struct {
	// Level is DEBUG, INFO, WARN or ERROR (case-insensitive).
	Level string

	// Format is "text" (human readable) or "json".
	Format string

	// Output is "stdout", "stderr" or a file path. Files are rotated.
	Output string

	// Rotation limits for file output. Zero keeps lumberjack's defaults.
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

var (
	mu           sync.RWMutex
	currentLevel = LevelInfo
	logger       = newLogger(os.Stdout, "text")
	closer       io.Closer
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

func (l Level) zerolog() zerolog.Level {
	switch l {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func newLogger(w io.Writer, format string) zerolog.Logger {
	if format != "json" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: timeFormat, NoColor: w != os.Stdout && w != os.Stderr}
	}
	return zerolog.New(w).With().Timestamp().Logger()
}

func SetLevel(level string) {
	mu.Lock()
	defer mu.Unlock()

	switch strings.ToUpper(level) {
	case "DEBUG":
		currentLevel = LevelDebug
	case "INFO":
		currentLevel = LevelInfo
	case "WARN":
		currentLevel = LevelWarn
	case "ERROR":
		currentLevel = LevelError
	}
}

// GetLevel returns the current minimum level.
func GetLevel() Level {
	mu.RLock()
	defer mu.RUnlock()
	return currentLevel
}

// SetOutput sends log lines to w in the given format ("text" or "json").
func SetOutput(w io.Writer, format string) {
	mu.Lock()
	defer mu.Unlock()

	closeOutput()
	logger = newLogger(w, format)
}

// Configure applies a logging configuration. A previously opened log file
// is closed.
func Configure(cfg Config) error {
	var (
		w io.Writer
		c io.Closer
	)

	switch strings.ToLower(cfg.Output) {
	case "", "stdout":
		w = os.Stdout
	case "stderr":
		w = os.Stderr
	default:
		file := &lumberjack.Logger{
			Filename:   cfg.Output,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
		}
		w, c = file, file
	}

	switch cfg.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", cfg.Format)
	}

	SetOutput(w, cfg.Format)

	mu.Lock()
	closer = c
	mu.Unlock()

	if cfg.Level != "" {
		SetLevel(cfg.Level)
	}
	return nil
}

// Close releases a log file opened by Configure and reverts to stdout.
func Close() {
	mu.Lock()
	defer mu.Unlock()

	closeOutput()
	logger = newLogger(os.Stdout, "text")
}

// closeOutput must be called with mu held.
func closeOutput() {
	if closer != nil {
		_ = closer.Close()
		closer = nil
	}
}

func log(level Level, format string, v ...any) {
	mu.RLock()
	defer mu.RUnlock()

	if level < currentLevel {
		return
	}
	logger.WithLevel(level.zerolog()).Msgf(format, v...)
}

func Debug(format string, v ...any) {
	log(LevelDebug, format, v...)
}

func Info(format string, v ...any) {
	log(LevelInfo, format, v...)
}

func Warn(format string, v ...any) {
	log(LevelWarn, format, v...)
}

func Error(format string, v ...any) {
	log(LevelError, format, v...)
}
