package debuglog

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// LogLevel represents the severity level of a log message
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelOff // Disables all logging
)

// String returns the string representation of the log level
func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	case LevelOff:
		return "OFF"
	default:
		return "UNKNOWN"
	}
}

// ParseLogLevel parses a string into a LogLevel
func ParseLogLevel(s string) LogLevel {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return LevelDebug
	case "INFO":
		return LevelInfo
	case "WARN", "WARNING":
		return LevelWarn
	case "ERROR":
		return LevelError
	case "OFF":
		return LevelOff
	default:
		return LevelInfo
	}
}

func (l LogLevel) zerolog() zerolog.Level {
	switch l {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelInfo:
		return zerolog.InfoLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.Disabled
	}
}

var (
	mu           sync.RWMutex
	currentLevel = LevelOff
	logger       *zerolog.Logger
	logFile      *os.File
)

// DefaultPath is where the log lands when Setup is given no path.
func DefaultPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".reel", "reel.log")
}

// Setup configures the logging system with the specified level and optional file path.
// If filePath is empty, defaults to ~/.reel/reel.log.
func Setup(level LogLevel, filePath ...string) error {
	mu.Lock()
	defer mu.Unlock()

	currentLevel = level
	closeLocked()

	if level == LevelOff {
		return nil
	}

	logPath := DefaultPath()
	if len(filePath) > 0 && filePath[0] != "" {
		logPath = filePath[0]
	}
	if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open log file %s: %w", logPath, err)
	}

	logFile = f
	attach(f, level)
	return nil
}

// SetupWriter routes log output to w instead of a file. Used by tests and
// the CLI when logging to stderr.
func SetupWriter(level LogLevel, w io.Writer) {
	mu.Lock()
	defer mu.Unlock()

	currentLevel = level
	closeLocked()
	if level == LevelOff || w == nil {
		return
	}
	attach(w, level)
}

func attach(w io.Writer, level LogLevel) {
	zl := zerolog.New(w).
		Level(level.zerolog()).
		With().
		Timestamp().
		Str("app", "reel").
		Logger()
	logger = &zl
}

// SetLevel changes the current logging level
func SetLevel(level LogLevel) {
	mu.Lock()
	defer mu.Unlock()
	currentLevel = level
	if logger != nil {
		zl := logger.Level(level.zerolog())
		logger = &zl
	}
}

// GetLevel returns the current logging level
func GetLevel() LogLevel {
	mu.RLock()
	defer mu.RUnlock()
	return currentLevel
}

// Close closes the log file if open
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	return closeLocked()
}

func closeLocked() error {
	logger = nil
	if logFile == nil {
		return nil
	}
	err := logFile.Close()
	logFile = nil
	return err
}

func event(level LogLevel) *zerolog.Event {
	mu.RLock()
	defer mu.RUnlock()
	if level < currentLevel || logger == nil {
		return nil
	}
	switch level {
	case LevelDebug:
		return logger.Debug()
	case LevelInfo:
		return logger.Info()
	case LevelWarn:
		return logger.Warn()
	default:
		return logger.Error()
	}
}

func logf(level LogLevel, fields map[string]interface{}, format string, args ...any) {
	ev := event(level)
	if ev == nil {
		return
	}
	if len(fields) > 0 {
		keys := make([]string, 0, len(fields))
		for k := range fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			ev = ev.Interface(k, fields[k])
		}
	}
	ev.Msgf(format, args...)
}

func Debugf(format string, args ...any) { logf(LevelDebug, nil, format, args...) }
func Infof(format string, args ...any)  { logf(LevelInfo, nil, format, args...) }
func Warnf(format string, args ...any)  { logf(LevelWarn, nil, format, args...) }
func Errorf(format string, args ...any) { logf(LevelError, nil, format, args...) }

// FieldLogger attaches key/value fields to every message it writes.
type FieldLogger struct {
	fields map[string]interface{}
}

// WithFields returns a new logger with the specified fields
func WithFields(fields map[string]interface{}) *FieldLogger {
	return &FieldLogger{fields: fields}
}

// With returns a copy of fl with one more field.
func (fl *FieldLogger) With(key string, value interface{}) *FieldLogger {
	next := make(map[string]interface{}, len(fl.fields)+1)
	for k, v := range fl.fields {
		next[k] = v
	}
	next[key] = value
	return &FieldLogger{fields: next}
}

func (fl *FieldLogger) Debugf(format string, args ...any) { logf(LevelDebug, fl.fields, format, args...) }
func (fl *FieldLogger) Infof(format string, args ...any)  { logf(LevelInfo, fl.fields, format, args...) }
func (fl *FieldLogger) Warnf(format string, args ...any)  { logf(LevelWarn, fl.fields, format, args...) }
func (fl *FieldLogger) Errorf(format string, args ...any) { logf(LevelError, fl.fields, format, args...) }

// Since is a small helper for timing fields.
func Since(start time.Time) string {
	return time.Since(start).Round(time.Millisecond).String()
}
