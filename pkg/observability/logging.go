// Package observability holds the ambient logging and metrics plumbing
// shared by the graph store (pkg/deg) and builder (pkg/deg/builder): a
// dependency-injected structured logger for invariant violations and
// task failures, and a Prometheus registry for search/build/graph-shape
// instrumentation. Neither component imports the other's host directly —
// both are passed in, nil-safe, so pkg/deg never forces a logging or
// metrics backend on an embedding application (spec §7, §9).
package observability

import (
	"fmt"
	"io"
	"log"
	"os"
	"runtime"
	"time"
)

// LogLevel orders log severities from most to least verbose; a Logger
// drops any entry below its configured level.
type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
	FATAL
)

// String renders a level the way log lines print it.
func (l LogLevel) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	case FATAL:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// Logger writes leveled, field-tagged lines to an io.Writer. Graph.SetLogger
// and builder.New both accept one of these (or nil, which silences every
// call) rather than reaching for a process-wide default, so a library
// consumer embedding several independently-configured graphs can give each
// its own sink.
type Logger struct {
	level      LogLevel
	output     io.Writer
	fields     map[string]interface{}
	timeFormat string
}

// NewLogger builds a logger at level, writing to output (os.Stdout if nil).
func NewLogger(level LogLevel, output io.Writer) *Logger {
	if output == nil {
		output = os.Stdout
	}

	return &Logger{
		level:      level,
		output:     output,
		fields:     make(map[string]interface{}),
		timeFormat: time.RFC3339,
	}
}

// NewDefaultLogger returns an INFO-level logger to stdout, the baseline a
// caller gets before attaching anything domain-specific via WithFields.
func NewDefaultLogger() *Logger {
	return NewLogger(INFO, os.Stdout)
}

// WithFields derives a logger that tags every subsequent entry with fields
// in addition to whatever the parent already carries — e.g.
// Graph.reportInvariant chains WithFields(map[string]interface{}{"invariant": ...})
// before logging a corruption report.
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	newFields := make(map[string]interface{})
	for k, v := range l.fields {
		newFields[k] = v
	}
	for k, v := range fields {
		newFields[k] = v
	}

	return &Logger{
		level:      l.level,
		output:     l.output,
		fields:     newFields,
		timeFormat: l.timeFormat,
	}
}

// WithField is WithFields for a single key.
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return l.WithFields(map[string]interface{}{key: value})
}

// SetLevel changes the minimum severity this logger emits.
func (l *Logger) SetLevel(level LogLevel) {
	l.level = level
}

// Debug logs below the threshold anything not useful outside active
// development of the graph/builder internals would use.
func (l *Logger) Debug(msg string, fields ...map[string]interface{}) {
	l.log(DEBUG, msg, fields...)
}

// Info logs routine progress — a completed build step, a search outcome.
func (l *Logger) Info(msg string, fields ...map[string]interface{}) {
	l.log(INFO, msg, fields...)
}

// Warn logs a recoverable anomaly that doesn't fail the calling operation.
func (l *Logger) Warn(msg string, fields ...map[string]interface{}) {
	l.log(WARN, msg, fields...)
}

// Error logs a failed operation or a detected invariant violation (spec
// §7: Graph.reportInvariant calls this instead of aborting the process).
func (l *Logger) Error(msg string, fields ...map[string]interface{}) {
	l.log(ERROR, msg, fields...)
}

// Fatal logs at FATAL and exits the process. Nothing in pkg/deg or
// pkg/deg/builder calls this — per spec §7 a library never aborts on its
// own behalf — it exists for callers that want a fatal path of their own.
func (l *Logger) Fatal(msg string, fields ...map[string]interface{}) {
	l.log(FATAL, msg, fields...)
	os.Exit(1)
}

// log renders one entry: timestamp, level, message, then every carried
// and call-site field as "key=value", plus the caller's file:line.
func (l *Logger) log(level LogLevel, msg string, extraFields ...map[string]interface{}) {
	if level < l.level {
		return
	}

	allFields := make(map[string]interface{})
	for k, v := range l.fields {
		allFields[k] = v
	}
	for _, fields := range extraFields {
		for k, v := range fields {
			allFields[k] = v
		}
	}

	if _, file, line, ok := runtime.Caller(2); ok {
		allFields["file"] = fmt.Sprintf("%s:%d", file, line)
	}

	timestamp := time.Now().Format(l.timeFormat)
	entry := fmt.Sprintf("[%s] %s: %s", timestamp, level.String(), msg)

	if len(allFields) > 0 {
		entry += " |"
		for k, v := range allFields {
			entry += fmt.Sprintf(" %s=%v", k, v)
		}
	}

	entry += "\n"
	l.output.Write([]byte(entry))
}

// Debugf is Debug with fmt.Sprintf-style formatting.
func (l *Logger) Debugf(format string, args ...interface{}) {
	l.Debug(fmt.Sprintf(format, args...))
}

// Infof is Info with fmt.Sprintf-style formatting.
func (l *Logger) Infof(format string, args ...interface{}) {
	l.Info(fmt.Sprintf(format, args...))
}

// Warnf is Warn with fmt.Sprintf-style formatting.
func (l *Logger) Warnf(format string, args ...interface{}) {
	l.Warn(fmt.Sprintf(format, args...))
}

// Errorf is Error with fmt.Sprintf-style formatting.
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.Error(fmt.Sprintf(format, args...))
}

// Fatalf is Fatal with fmt.Sprintf-style formatting.
func (l *Logger) Fatalf(format string, args ...interface{}) {
	l.Fatal(fmt.Sprintf(format, args...))
}

// LogOperation brackets fn with a start/outcome log pair, timing it and
// attaching the duration (and error, if any) to the completion entry.
// OperationLogger.LogSearch/LogBuildStep cover search and build-step
// entries; this is the general form for anything else an embedding
// application wants timed the same way.
func (l *Logger) LogOperation(operation string, fn func() error) error {
	start := time.Now()
	l.Info(fmt.Sprintf("Starting operation: %s", operation))

	err := fn()

	duration := time.Since(start)
	if err != nil {
		l.Error(fmt.Sprintf("Operation failed: %s", operation), map[string]interface{}{
			"duration": duration,
			"error":    err.Error(),
		})
	} else {
		l.Info(fmt.Sprintf("Operation completed: %s", operation), map[string]interface{}{
			"duration": duration,
		})
	}

	return err
}

// LogOperationWithFields is LogOperation with extra fields tagged onto
// both the start and completion entries.
func (l *Logger) LogOperationWithFields(operation string, fields map[string]interface{}, fn func() error) error {
	logger := l.WithFields(fields)
	return logger.LogOperation(operation, fn)
}

// globalLogger backs the package-level convenience functions below, for
// call sites with no Graph or Builder handle to hang a logger off of
// (e.g. degio's standalone Save/Load).
var globalLogger = NewDefaultLogger()

// SetGlobalLogger replaces the package-level logger.
func SetGlobalLogger(logger *Logger) {
	globalLogger = logger
}

// GetGlobalLogger returns the package-level logger.
func GetGlobalLogger() *Logger {
	return globalLogger
}

// Debug logs a debug message through the global logger.
func Debug(msg string, fields ...map[string]interface{}) {
	globalLogger.Debug(msg, fields...)
}

// Info logs an info message through the global logger.
func Info(msg string, fields ...map[string]interface{}) {
	globalLogger.Info(msg, fields...)
}

// Warn logs a warning through the global logger.
func Warn(msg string, fields ...map[string]interface{}) {
	globalLogger.Warn(msg, fields...)
}

// Error logs an error through the global logger.
func Error(msg string, fields ...map[string]interface{}) {
	globalLogger.Error(msg, fields...)
}

// Fatal logs a fatal message through the global logger and exits.
func Fatal(msg string, fields ...map[string]interface{}) {
	globalLogger.Fatal(msg, fields...)
}

// Debugf is Debug with fmt.Sprintf-style formatting, via the global logger.
func Debugf(format string, args ...interface{}) {
	globalLogger.Debugf(format, args...)
}

// Infof is Info with fmt.Sprintf-style formatting, via the global logger.
func Infof(format string, args ...interface{}) {
	globalLogger.Infof(format, args...)
}

// Warnf is Warn with fmt.Sprintf-style formatting, via the global logger.
func Warnf(format string, args ...interface{}) {
	globalLogger.Warnf(format, args...)
}

// Errorf is Error with fmt.Sprintf-style formatting, via the global logger.
func Errorf(format string, args ...interface{}) {
	globalLogger.Errorf(format, args...)
}

// Fatalf is Fatal with fmt.Sprintf-style formatting, via the global logger.
func Fatalf(format string, args ...interface{}) {
	globalLogger.Fatalf(format, args...)
}

// ParseLogLevel maps a config string (all upper-case or all lower-case,
// "warning" as an alias for "warn") to a LogLevel, defaulting to INFO on
// anything else, mixed-case spellings included.
func ParseLogLevel(level string) LogLevel {
	switch level {
	case "DEBUG", "debug":
		return DEBUG
	case "INFO", "info":
		return INFO
	case "WARN", "warn", "WARNING", "warning":
		return WARN
	case "ERROR", "error":
		return ERROR
	case "FATAL", "fatal":
		return FATAL
	default:
		log.Printf("Unknown log level '%s', defaulting to INFO", level)
		return INFO
	}
}

// OperationLogger logs graph search and build operations with a
// consistent field shape (operation kind, counts, duration, outcome).
// Nothing in pkg/deg or pkg/deg/builder calls it; callers that want such
// entries log them through it themselves.
type OperationLogger struct {
	logger *Logger
}

// NewOperationLogger creates a new operation logger.
func NewOperationLogger(logger *Logger) *OperationLogger {
	return &OperationLogger{
		logger: logger,
	}
}

// LogSearch logs the outcome of a k-NN search or explore call.
func (ol *OperationLogger) LogSearch(op string, k int, resultCount int, truncated bool, duration time.Duration, fields map[string]interface{}) {
	allFields := map[string]interface{}{
		"op":          op,
		"k":           k,
		"resultCount": resultCount,
		"truncated":   truncated,
		"duration":    duration,
	}
	for k, v := range fields {
		allFields[k] = v
	}
	ol.logger.Info("search", allFields)
}

// LogBuildStep logs one builder step (an add, a remove, or an
// improvement pass).
func (ol *OperationLogger) LogBuildStep(step string, vertex uint32, duration time.Duration, fields map[string]interface{}) {
	allFields := map[string]interface{}{
		"step":     step,
		"vertex":   vertex,
		"duration": duration,
	}
	for k, v := range fields {
		allFields[k] = v
	}
	ol.logger.Info("build_step", allFields)
}
