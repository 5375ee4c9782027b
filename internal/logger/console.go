// Package logger provides logging implementations for svncrawl.
//
// ConsoleLogger and FileLogger both satisfy crawler.Logger and filter messages
// by level. They are safe for concurrent use by crawl workers.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/harrison/svncrawl/internal/crawler"
	"github.com/harrison/svncrawl/internal/svn"
)

// Log level constants for filtering
const (
	levelTrace int = 0
	levelDebug int = 1
	levelInfo  int = 2
	levelWarn  int = 3
	levelError int = 4
)

// maxListedFailures caps the failed directories printed in a summary.
const maxListedFailures = 10

// ConsoleLogger logs crawl progress to a writer with [HH:MM:SS] timestamps.
// Color output is enabled automatically for os.Stdout and os.Stderr.
type ConsoleLogger struct {
	writer      io.Writer
	logLevel    string
	mutex       sync.Mutex
	colorOutput bool
}

// NewConsoleLogger creates a ConsoleLogger that writes to writer. A nil writer
// discards everything. logLevel is one of trace, debug, info, warn, error
// (case-insensitive); anything else means info.
func NewConsoleLogger(writer io.Writer, logLevel string) *ConsoleLogger {
	return &ConsoleLogger{
		writer:      writer,
		logLevel:    normalizeLogLevel(logLevel),
		colorOutput: isTerminal(writer),
	}
}

// isTerminal reports whether w is a standard stream that accepts colors.
func isTerminal(w io.Writer) bool {
	if w == nil {
		return false
	}
	if w == os.Stdout || w == os.Stderr {
		// NoColor is set by fatih/color for non-TTYs and NO_COLOR.
		return !color.NoColor
	}
	return false
}

// normalizeLogLevel lower-cases level, defaulting to "info" when unknown.
func normalizeLogLevel(level string) string {
	normalized := strings.ToLower(strings.TrimSpace(level))

	validLevels := map[string]bool{
		"trace": true,
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}

	if validLevels[normalized] {
		return normalized
	}

	return "info"
}

// logLevelToInt converts a log level string to its numeric value.
func logLevelToInt(level string) int {
	switch level {
	case "trace":
		return levelTrace
	case "debug":
		return levelDebug
	case "info":
		return levelInfo
	case "warn":
		return levelWarn
	case "error":
		return levelError
	default:
		return levelInfo
	}
}

// ColorEnabled reports whether output is colorized.
func (cl *ConsoleLogger) ColorEnabled() bool {
	return cl.colorOutput
}

func (cl *ConsoleLogger) shouldLog(messageLevel string) bool {
	return logLevelToInt(messageLevel) >= logLevelToInt(cl.logLevel)
}

// LogTrace logs a trace-level message.
func (cl *ConsoleLogger) LogTrace(format string, args ...interface{}) {
	cl.logWithLevel("TRACE", fmt.Sprintf(format, args...))
}

// LogDebug logs a debug-level message.
func (cl *ConsoleLogger) LogDebug(format string, args ...interface{}) {
	cl.logWithLevel("DEBUG", fmt.Sprintf(format, args...))
}

// LogInfo logs an info-level message.
func (cl *ConsoleLogger) LogInfo(format string, args ...interface{}) {
	cl.logWithLevel("INFO", fmt.Sprintf(format, args...))
}

// LogWarn logs a warning-level message.
func (cl *ConsoleLogger) LogWarn(format string, args ...interface{}) {
	cl.logWithLevel("WARN", fmt.Sprintf(format, args...))
}

// LogError logs an error-level message.
func (cl *ConsoleLogger) LogError(format string, args ...interface{}) {
	cl.logWithLevel("ERROR", fmt.Sprintf(format, args...))
}

func (cl *ConsoleLogger) logWithLevel(level string, message string) {
	if cl.writer == nil || !cl.shouldLog(strings.ToLower(level)) {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	tag := level
	if cl.colorOutput {
		tag = levelColor(level).Sprint(level)
	}
	fmt.Fprintf(cl.writer, "[%s] [%s] %s\n", timestamp(), tag, message)
}

func levelColor(level string) *color.Color {
	switch level {
	case "TRACE":
		return color.New(color.FgHiBlack)
	case "DEBUG":
		return color.New(color.FgCyan)
	case "INFO":
		return color.New(color.FgBlue)
	case "WARN":
		return color.New(color.FgYellow)
	case "ERROR":
		return color.New(color.FgRed)
	default:
		return color.New(color.Reset)
	}
}

// LogCrawlStart logs the crawl root and pool size at INFO level.
// Format: "[HH:MM:SS] Crawling <root> with <n> workers"
func (cl *ConsoleLogger) LogCrawlStart(root string, workers int) {
	if cl.writer == nil || !cl.shouldLog("info") {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	if cl.colorOutput {
		root = color.New(color.Bold).Sprint(root)
	}
	fmt.Fprintf(cl.writer, "[%s] Crawling %s with %d %s\n", timestamp(), root, workers, plural(workers, "worker", "workers"))
}

// LogTaskFailed logs a directory that could not be listed at WARN level.
// Paths the repository reports as missing are marked as such.
func (cl *ConsoleLogger) LogTaskFailed(err *svn.EnumerationError) {
	msg := err.Error()
	if svn.IsNotFound(err) {
		msg = "missing from repository: " + msg
	}
	cl.logWithLevel("WARN", msg)
}

// LogPruned logs a directory matched by a stop pattern at DEBUG level.
func (cl *ConsoleLogger) LogPruned(path string) {
	cl.logWithLevel("DEBUG", "pruned "+path)
}

// LogSummary logs the crawl counters and failed directories at INFO level.
func (cl *ConsoleLogger) LogSummary(result crawler.Result) {
	if cl.writer == nil || !cl.shouldLog("info") {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	ts := timestamp()
	header := "=== Crawl Summary ==="
	if cl.colorOutput {
		header = color.New(color.Bold).Sprint(header)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] %s\n", ts, header)
	fmt.Fprintf(&sb, "[%s] %s\n", ts, formatStats(result.Stats, cl.colorOutput))
	fmt.Fprintf(&sb, "[%s] Duration: %s\n", ts, formatDuration(result.Stats.Duration))

	if len(result.Errors) > 0 {
		label := "Failed directories:"
		if cl.colorOutput {
			label = color.New(color.FgRed).Sprint(label)
		}
		fmt.Fprintf(&sb, "[%s] %s\n", ts, label)
		writeFailures(&sb, ts, result.Errors)
	}

	io.WriteString(cl.writer, sb.String())
}

// LogProgress logs bar with the item just finished at INFO level.
// Format: "[HH:MM:SS] Progress: [===   ] 3/10 (30%) <item>"
func (cl *ConsoleLogger) LogProgress(bar *ProgressBar, item string) {
	if cl.writer == nil || !cl.shouldLog("info") {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	fmt.Fprintf(cl.writer, "[%s] Progress: %s %s\n", timestamp(), bar.Render(), item)
}

func writeFailures(sb *strings.Builder, ts string, errs []*svn.EnumerationError) {
	for i, err := range errs {
		if i == maxListedFailures {
			fmt.Fprintf(sb, "[%s]   ... and %d more\n", ts, len(errs)-maxListedFailures)
			return
		}
		fmt.Fprintf(sb, "[%s]   - %s\n", ts, err.Error())
	}
}

// timestamp returns the current time formatted as "15:04:05" (HH:MM:SS).
func timestamp() string {
	return time.Now().Format("15:04:05")
}

// formatDuration converts a duration to a short human-readable string.
// Examples: "250ms", "5.0s", "1m30s", "2h15m"
func formatDuration(d time.Duration) string {
	switch {
	case d >= time.Hour:
		hours := d / time.Hour
		minutes := (d % time.Hour) / time.Minute
		if minutes == 0 {
			return fmt.Sprintf("%dh", hours)
		}
		return fmt.Sprintf("%dh%dm", hours, minutes)
	case d >= time.Minute:
		minutes := d / time.Minute
		seconds := (d % time.Minute) / time.Second
		if seconds == 0 {
			return fmt.Sprintf("%dm", minutes)
		}
		return fmt.Sprintf("%dm%ds", minutes, seconds)
	case d >= time.Second:
		return fmt.Sprintf("%.1fs", d.Seconds())
	default:
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

// NoOpLogger discards all events.
type NoOpLogger struct{}

// NewNoOpLogger creates a NoOpLogger instance.
func NewNoOpLogger() *NoOpLogger {
	return &NoOpLogger{}
}

func (n *NoOpLogger) LogCrawlStart(root string, workers int) {}
func (n *NoOpLogger) LogTaskFailed(err *svn.EnumerationError) {}
func (n *NoOpLogger) LogPruned(path string) {}
func (n *NoOpLogger) LogSummary(result crawler.Result) {}
func (n *NoOpLogger) LogDebug(format string, args ...interface{}) {}
func (n *NoOpLogger) LogInfo(format string, args ...interface{}) {}
func (n *NoOpLogger) LogWarn(format string, args ...interface{}) {}
