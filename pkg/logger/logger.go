package logger

import (
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/fatih/color"
)

// Level represents the severity level of a log message.
type Level int

const (
	DebugLevel Level = iota
	InfoLevel
	NoticeLevel
	ErrorLevel
)

// ParseLevel converts a level name as found in configuration into a Level
func ParseLevel(name string) (Level, error) {
	switch strings.ToLower(name) {
	case "debug":
		return DebugLevel, nil
	case "info":
		return InfoLevel, nil
	case "notice":
		return NoticeLevel, nil
	case "error":
		return ErrorLevel, nil
	}
	return InfoLevel, fmt.Errorf("unknown log level: %s", name)
}

// Component identifies the part of the service emitting a log line
type Component int

const (
	None Component = iota
	Swap
	Quote
	Relay
	Near
	Host
)

var componentPrefixes = map[Component]string{
	None:  "",
	Swap:  "[SWAP]  ",
	Quote: "[QUOTE] ",
	Relay: "[RELAY] ",
	Near:  "[NEAR]  ",
	Host:  "[HOST]  ",
}

var colors = map[Component]color.Attribute{
	None:  color.FgWhite,
	Swap:  color.FgHiGreen,
	Quote: color.FgYellow,
	Relay: color.FgMagenta,
	Near:  color.FgHiBlue,
	Host:  color.FgCyan,
}

// Logger is a simple interface for logging messages.
type Logger interface {
	// Info logs an informational message.
	Info(format string, args ...interface{})
	InfoWithComponent(component Component, format string, args ...interface{})

	// Error logs an error message.
	Error(format string, args ...interface{})
	ErrorWithComponent(component Component, format string, args ...interface{})

	// Debug logs a debug message.
	Debug(format string, args ...interface{})
	DebugWithComponent(component Component, format string, args ...interface{})

	// Notice logs a notice message.
	Notice(format string, args ...interface{})
	NoticeWithComponent(component Component, format string, args ...interface{})
}

// EmptyLogger is a simple implementation of the Logger interface that does nothing.
type EmptyLogger struct{}

var _ Logger = (*EmptyLogger)(nil)

func (l *EmptyLogger) Info(_ string, _ ...interface{}) {}
func (l *EmptyLogger) InfoWithComponent(_ Component, _ string, _ ...interface{}) {}
func (l *EmptyLogger) Error(_ string, _ ...interface{}) {}
func (l *EmptyLogger) ErrorWithComponent(_ Component, _ string, _ ...interface{}) {}
func (l *EmptyLogger) Debug(_ string, _ ...interface{}) {}
func (l *EmptyLogger) DebugWithComponent(_ Component, _ string, _ ...interface{}) {}
func (l *EmptyLogger) Notice(_ string, _ ...interface{}) {}
func (l *EmptyLogger) NoticeWithComponent(_ Component, _ string, _ ...interface{}) {}

// StdLogger is a standard implementation of the Logger interface that logs messages to the console.
type StdLogger struct {
	enableColoring bool
	level          Level
	mu             sync.Mutex
}

var _ Logger = (*StdLogger)(nil)

func NewStdLogger(enableColoring bool, level Level) *StdLogger {
	return &StdLogger{
		enableColoring: enableColoring,
		level:          level,
	}
}

// formatMessage formats the log message with the appropriate log level, component prefix, and coloring if enabled.
func (l *StdLogger) formatMessage(level Level, component Component, format string) string {
	prefix := componentPrefixes[component]
	if l.enableColoring && prefix != "" {
		prefix = color.New(colors[component]).Sprint(prefix)
	}

	var levelStr string
	switch level {
	case DebugLevel:
		levelStr = "[DEBUG]  "
	case InfoLevel:
		levelStr = "[INFO]   "
	case NoticeLevel:
		levelStr = "[NOTICE] "
	case ErrorLevel:
		levelStr = "[ERROR]  "
	}

	return levelStr + prefix + format
}

func (l *StdLogger) logf(level Level, component Component, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.level <= level {
		log.Printf(l.formatMessage(level, component, format), args...)
	}
}

func (l *StdLogger) Info(format string, args ...interface{}) {
	l.logf(InfoLevel, None, format, args...)
}

func (l *StdLogger) InfoWithComponent(component Component, format string, args ...interface{}) {
	l.logf(InfoLevel, component, format, args...)
}

func (l *StdLogger) Error(format string, args ...interface{}) {
	l.logf(ErrorLevel, None, format, args...)
}

func (l *StdLogger) ErrorWithComponent(component Component, format string, args ...interface{}) {
	l.logf(ErrorLevel, component, format, args...)
}

func (l *StdLogger) Debug(format string, args ...interface{}) {
	l.logf(DebugLevel, None, format, args...)
}

func (l *StdLogger) DebugWithComponent(component Component, format string, args ...interface{}) {
	l.logf(DebugLevel, component, format, args...)
}

func (l *StdLogger) Notice(format string, args ...interface{}) {
	l.logf(NoticeLevel, None, format, args...)
}

func (l *StdLogger) NoticeWithComponent(component Component, format string, args ...interface{}) {
	l.logf(NoticeLevel, component, format, args...)
}
