package logging

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// TimestampLayout is ISO-8601 with a numeric UTC offset.
const TimestampLayout = "2006-01-02T15:04:05-07:00"

// LogLevel represents the logging level
type LogLevel int

const (
	LogLevelError LogLevel = iota
	LogLevelWarn
	LogLevelInfo
	LogLevelDebug
	LogLevelTrace
)

var logLevelNames = map[string]LogLevel{
	"error": LogLevelError,
	"warn":  LogLevelWarn,
	"info":  LogLevelInfo,
	"debug": LogLevelDebug,
	"trace": LogLevelTrace,
}

var logLevelStrings = map[LogLevel]string{
	LogLevelError: "ERROR",
	LogLevelWarn:  "WARN",
	LogLevelInfo:  "INFO",
	LogLevelDebug: "DEBUG",
	LogLevelTrace: "TRACE",
}

func (l LogLevel) String() string {
	if s, ok := logLevelStrings[l]; ok {
		return s
	}
	return fmt.Sprintf("LEVEL(%d)", int(l))
}

// Global logger configuration
var (
	globalLogLevel LogLevel = LogLevelInfo
	globalMu       sync.RWMutex

	output   io.Writer = os.Stderr
	outputMu sync.Mutex

	now = time.Now
)

func SetGlobalLogLevel(level LogLevel) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalLogLevel = level
}

func SetGlobalLogLevelFromString(levelStr string) bool {
	if level, exists := logLevelNames[levelStr]; exists {
		SetGlobalLogLevel(level)
		return true
	}
	return false
}

func GetGlobalLogLevel() LogLevel {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalLogLevel
}

// SetOutput replaces the destination of every Logger. It returns the previous writer.
func SetOutput(w io.Writer) io.Writer {
	outputMu.Lock()
	defer outputMu.Unlock()
	prev := output
	output = w
	return prev
}

type Logger struct {
	component string
}

func NewLogger(component string) *Logger {
	return &Logger{
		component: component,
	}
}

func (l *Logger) shouldLog(level LogLevel) bool {
	return GetGlobalLogLevel() >= level
}

func (l *Logger) formatMessage(level LogLevel, msg string) string {
	ts := now().Format(TimestampLayout)
	if l.component != "" {
		return ts + " [" + level.String() + "] [" + l.component + "] " + msg + "\n"
	}
	return ts + " [" + level.String() + "] " + msg + "\n"
}

// write emits the whole line in a single Write so concurrent loggers never interleave.
func (l *Logger) write(level LogLevel, format string, args []interface{}) {
	if !l.shouldLog(level) {
		return
	}
	line := l.formatMessage(level, fmt.Sprintf(format, args...))

	outputMu.Lock()
	defer outputMu.Unlock()
	_, _ = io.WriteString(output, line)
}

func (l *Logger) Error(format string, args ...interface{}) {
	l.write(LogLevelError, format, args)
}

func (l *Logger) Warn(format string, args ...interface{}) {
	l.write(LogLevelWarn, format, args)
}

func (l *Logger) Info(format string, args ...interface{}) {
	l.write(LogLevelInfo, format, args)
}

func (l *Logger) Debug(format string, args ...interface{}) {
	l.write(LogLevelDebug, format, args)
}

func (l *Logger) Trace(format string, args ...interface{}) {
	l.write(LogLevelTrace, format, args)
}
