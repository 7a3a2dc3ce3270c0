package log

import (
	"fmt"
	"io"
	stdlog "log"
	"os"
	"strings"
	"sync"
)

// LogLevel represents logging severity
type LogLevel int

const (
	// LogLevelDebug for detailed debugging information
	LogLevelDebug LogLevel = iota
	// LogLevelInfo for general informational messages
	LogLevelInfo
	// LogLevelWarn for warning messages
	LogLevelWarn
	// LogLevelError for error messages
	LogLevelError
	// LogLevelNone disables all logging
	LogLevelNone
)

// String returns the string representation of LogLevel
func (l LogLevel) String() string {
	switch l {
	case LogLevelDebug:
		return "DEBUG"
	case LogLevelInfo:
		return "INFO"
	case LogLevelWarn:
		return "WARN"
	case LogLevelError:
		return "ERROR"
	case LogLevelNone:
		return "NONE"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", l)
	}
}

// ParseLevel maps a level name such as "debug" or "warn" to its
// LogLevel. Unknown names fall back to LogLevelInfo.
func ParseLevel(name string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return LogLevelDebug
	case "info":
		return LogLevelInfo
	case "warn", "warning":
		return LogLevelWarn
	case "error":
		return LogLevelError
	case "none", "off", "disable":
		return LogLevelNone
	default:
		return LogLevelInfo
	}
}

// Logger is the leveled logging interface used across ragpipe.
type Logger interface {
	Debug(format string, v ...any)
	Info(format string, v ...any)
	Warn(format string, v ...any)
	Error(format string, v ...any)
}

// DefaultLogger implements Logger on the standard library's log package
type DefaultLogger struct {
	logger *stdlog.Logger
	level  LogLevel
}

var _ Logger = (*DefaultLogger)(nil)

// NewDefaultLogger creates a logger writing to stderr
func NewDefaultLogger(level LogLevel) *DefaultLogger {
	return NewCustomLogger(os.Stderr, level)
}

// NewCustomLogger creates a logger with custom output
func NewCustomLogger(out io.Writer, level LogLevel) *DefaultLogger {
	return &DefaultLogger{
		logger: stdlog.New(out, "[ragpipe] ", stdlog.LstdFlags),
		level:  level,
	}
}

func (l *DefaultLogger) logf(level LogLevel, format string, v ...any) {
	if level < l.level {
		return
	}
	l.logger.Printf("["+level.String()+"] "+format, v...)
}

// Debug logs debug messages
func (l *DefaultLogger) Debug(format string, v ...any) { l.logf(LogLevelDebug, format, v...) }

// Info logs informational messages
func (l *DefaultLogger) Info(format string, v ...any) { l.logf(LogLevelInfo, format, v...) }

// Warn logs warning messages
func (l *DefaultLogger) Warn(format string, v ...any) { l.logf(LogLevelWarn, format, v...) }

// Error logs error messages
func (l *DefaultLogger) Error(format string, v ...any) { l.logf(LogLevelError, format, v...) }

// NoOpLogger discards everything. Use it to silence a component.
type NoOpLogger struct{}

var _ Logger = (*NoOpLogger)(nil)

func (NoOpLogger) Debug(format string, v ...any) {}
func (NoOpLogger) Info(format string, v ...any)  {}
func (NoOpLogger) Warn(format string, v ...any)  {}
func (NoOpLogger) Error(format string, v ...any) {}

var (
	mu            sync.RWMutex
	defaultLogger Logger = NewDefaultLogger(LogLevelInfo)
)

// SetDefaultLogger sets the package-level logger
func SetDefaultLogger(logger Logger) {
	mu.Lock()
	defaultLogger = logger
	mu.Unlock()
}

// GetDefaultLogger returns the current package-level logger
func GetDefaultLogger() Logger {
	mu.RLock()
	defer mu.RUnlock()
	return defaultLogger
}

// componentLogger tags every line with a pipeline component name and
// resolves the package-level logger at call time, so later
// SetDefaultLogger calls take effect.
type componentLogger struct {
	name string
}

var _ Logger = componentLogger{}

// Component returns a Logger whose lines carry the given component
// name, e.g. "indexer" or "embedder".
func Component(name string) Logger {
	return componentLogger{name: name}
}

func (c componentLogger) Debug(format string, v ...any) {
	GetDefaultLogger().Debug(c.name+": "+format, v...)
}

func (c componentLogger) Info(format string, v ...any) {
	GetDefaultLogger().Info(c.name+": "+format, v...)
}

func (c componentLogger) Warn(format string, v ...any) {
	GetDefaultLogger().Warn(c.name+": "+format, v...)
}

func (c componentLogger) Error(format string, v ...any) {
	GetDefaultLogger().Error(c.name+": "+format, v...)
}
