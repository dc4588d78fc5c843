package logger

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
)

// ANSI color codes for console output
const (
	ColorReset        = "\033[0m"
	ColorGreen        = "\033[32m"
	ColorCyan         = "\033[36m"
	ColorBrightRed    = "\033[91m"
	ColorBrightYellow = "\033[93m"
	ColorBrightGray   = "\033[90m"
)

// Column widths for aligned console output
const (
	ServiceNameWidth = 20
	LogLevelWidth    = 7 // icons add +2
)

// Level names
const (
	LevelDebug = "DEBUG"
	LevelInfo  = "INFO"
	LevelWarn  = "WARN"
	LevelError = "ERROR"
)

var levelRank = map[string]int{
	LevelDebug: 0,
	LevelInfo:  1,
	LevelWarn:  2,
	LevelError: 3,
}

// LogEntry represents a single log entry
type LogEntry struct {
	Time    time.Time
	Level   string
	Message string
	Fields  map[string]string
	TraceID string
}

// Logger provides structured console logging with streaming support
type Logger struct {
	serviceName string
	version     string

	mu             sync.RWMutex
	out            io.Writer
	minLevel       string
	subscribers    []chan LogEntry
	colorEnabled   bool
	disableConsole bool
}

// New creates a new logger instance writing to stdout
func New(serviceName, version string) *Logger {
	return &Logger{
		serviceName:  serviceName,
		version:      version,
		out:          os.Stdout,
		minLevel:     LevelInfo,
		subscribers:  make([]chan LogEntry, 0),
		colorEnabled: isTerminal(),
	}
}

// isTerminal checks if we're outputting to a terminal (for color support)
func isTerminal() bool {
	if os.Getenv("TERM") == "dumb" {
		return false
	}
	fileInfo, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return (fileInfo.Mode() & os.ModeCharDevice) != 0
}

// SetOutput redirects console output. Color is disabled for non-stdout writers.
func (l *Logger) SetOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.out = w
	if w != os.Stdout {
		l.colorEnabled = false
	}
}

// SetLevel sets the minimum level written to the console. Subscribers
// receive every entry regardless of level.
func (l *Logger) SetLevel(level string) error {
	level = strings.ToUpper(strings.TrimSpace(level))
	if _, ok := levelRank[level]; !ok {
		return fmt.Errorf("unknown log level %q", level)
	}
	l.mu.Lock()
	l.minLevel = level
	l.mu.Unlock()
	return nil
}

// Subscribe returns a channel to receive log entries
func (l *Logger) Subscribe() <-chan LogEntry {
	ch := make(chan LogEntry, 100)

	l.mu.Lock()
	l.subscribers = append(l.subscribers, ch)
	l.mu.Unlock()

	return ch
}

// DisableConsoleOutput stops console output; subscribers still receive entries
func (l *Logger) DisableConsoleOutput() {
	l.mu.Lock()
	l.disableConsole = true
	l.mu.Unlock()
}

func (l *Logger) getColorForLevel(level string) string {
	if !l.colorEnabled {
		return ""
	}

	switch level {
	case LevelDebug:
		return ColorBrightGray
	case LevelInfo:
		return ColorGreen
	case LevelWarn:
		return ColorBrightYellow
	case LevelError:
		return ColorBrightRed
	default:
		return ColorReset
	}
}

// formatServiceName truncates and pads service name for consistent column width
func formatServiceName(serviceName string) string {
	if len(serviceName) > ServiceNameWidth {
		return serviceName[:ServiceNameWidth-1] + "…"
	}
	return fmt.Sprintf("%-*s", ServiceNameWidth, serviceName)
}

// formatLogLevel pads log level and adds a visual indicator
func formatLogLevel(level string) string {
	levelStr := level

	switch level {
	case LevelError:
		levelStr = "✗ " + levelStr
	case LevelWarn:
		levelStr = "⚠ " + levelStr
	case LevelInfo:
		levelStr = "ℹ " + levelStr
	case LevelDebug:
		levelStr = "◦ " + levelStr
	}

	return fmt.Sprintf("%-*s", LogLevelWidth+2, levelStr)
}

// formatFields renders fields as sorted key=value pairs
func formatFields(fields map[string]string) string {
	if len(fields) == 0 {
		return ""
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%s", k, fields[k]))
	}
	return " " + strings.Join(parts, " ")
}

func (l *Logger) log(level, message, traceID string, fields map[string]string) {
	now := time.Now()
	entry := LogEntry{
		Time:    now,
		Level:   level,
		Message: message,
		Fields:  fields,
		TraceID: traceID,
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	if !l.disableConsole && levelRank[level] >= levelRank[l.minLevel] {
		timestamp := now.Format("2006-01-02 15:04:05.000")

		color := l.getColorForLevel(level)
		resetColor := ""
		if l.colorEnabled {
			resetColor = ColorReset
		}

		trace := ""
		if traceID != "" {
			trace = fmt.Sprintf(" [%s]", traceID)
		}

		fmt.Fprintf(l.out, "[%s] [%s] [%s%s%s]%s %s%s\n",
			timestamp, formatServiceName(l.serviceName), color, formatLogLevel(level), resetColor,
			trace, message, formatFields(fields))
	}

	for _, ch := range l.subscribers {
		select {
		case ch <- entry:
		default:
			// Skip if channel is full
		}
	}
}

// Debug logs a debug message with optional formatting
func (l *Logger) Debug(message string, args ...interface{}) {
	l.log(LevelDebug, format(message, args), "", nil)
}

// Info logs an info message with optional formatting
func (l *Logger) Info(message string, args ...interface{}) {
	l.log(LevelInfo, format(message, args), "", nil)
}

// Warn logs a warning message with optional formatting
func (l *Logger) Warn(message string, args ...interface{}) {
	l.log(LevelWarn, format(message, args), "", nil)
}

// Error logs an error message with optional formatting
func (l *Logger) Error(message string, args ...interface{}) {
	l.log(LevelError, format(message, args), "", nil)
}

func format(message string, args []interface{}) string {
	if len(args) > 0 {
		return fmt.Sprintf(message, args...)
	}
	return message
}

// WithFields returns a context that attaches fields to every message
func (l *Logger) WithFields(fields map[string]string) *LogContext {
	return &LogContext{
		logger: l,
		fields: fields,
	}
}

// WithTrace returns a context that tags every message with a trace id
func (l *Logger) WithTrace(traceID string) *LogContext {
	return &LogContext{
		logger:  l,
		traceID: traceID,
	}
}

// LogContext provides field-based logging
type LogContext struct {
	logger  *Logger
	traceID string
	fields  map[string]string
}

// WithFields returns a copy of the context with the given fields merged in
func (c *LogContext) WithFields(fields map[string]string) *LogContext {
	merged := make(map[string]string, len(c.fields)+len(fields))
	for k, v := range c.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &LogContext{logger: c.logger, traceID: c.traceID, fields: merged}
}

func (c *LogContext) Debug(message string, args ...interface{}) {
	c.logger.log(LevelDebug, format(message, args), c.traceID, c.fields)
}

func (c *LogContext) Info(message string, args ...interface{}) {
	c.logger.log(LevelInfo, format(message, args), c.traceID, c.fields)
}

func (c *LogContext) Warn(message string, args ...interface{}) {
	c.logger.log(LevelWarn, format(message, args), c.traceID, c.fields)
}

func (c *LogContext) Error(message string, args ...interface{}) {
	c.logger.log(LevelError, format(message, args), c.traceID, c.fields)
}
