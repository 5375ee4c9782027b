package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/harrison/svncrawl/internal/crawler"
	"github.com/harrison/svncrawl/internal/svn"
)

// DefaultLogDir is where run logs go unless configured otherwise.
var DefaultLogDir = filepath.Join(".svncrawl", "logs")

// FileLogger writes one timestamped log file per crawl and keeps a latest.log
// symlink pointing at the most recent one. It is thread-safe and implements
// crawler.Logger.
type FileLogger struct {
	logDir   string
	runLog   *os.File
	runFile  string
	logLevel string
	mu       sync.Mutex
}

// NewFileLogger creates a FileLogger in logDir with the given level. The
// directory is created if needed and the run log is named
// run-YYYYMMDD-HHMMSS.log.
func NewFileLogger(logDir string, logLevel string) (*FileLogger, error) {
	if logDir == "" {
		logDir = DefaultLogDir
	}
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	runFile := filepath.Join(logDir, fmt.Sprintf("run-%s.log", time.Now().Format("20060102-150405")))
	file, err := os.OpenFile(runFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create run log file: %w", err)
	}

	symlinkPath := filepath.Join(logDir, "latest.log")
	if _, err := os.Lstat(symlinkPath); err == nil {
		if err := os.Remove(symlinkPath); err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to remove old symlink: %w", err)
		}
	}
	if err := os.Symlink(filepath.Base(runFile), symlinkPath); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to create symlink: %w", err)
	}

	logger := &FileLogger{
		logDir:   logDir,
		runLog:   file,
		runFile:  runFile,
		logLevel: normalizeLogLevel(logLevel),
	}

	logger.writeRunLog("=== svncrawl Run Log ===\n")
	logger.writeRunLog(fmt.Sprintf("Started at: %s\n\n", time.Now().Format(time.RFC3339)))

	return logger, nil
}

// Path returns the run log file.
func (fl *FileLogger) Path() string {
	return fl.runFile
}

func (fl *FileLogger) shouldLog(messageLevel string) bool {
	return logLevelToInt(messageLevel) >= logLevelToInt(fl.logLevel)
}

// LogDebug logs a debug-level message.
func (fl *FileLogger) LogDebug(format string, args ...interface{}) {
	fl.logWithLevel("DEBUG", fmt.Sprintf(format, args...))
}

// LogInfo logs an info-level message.
func (fl *FileLogger) LogInfo(format string, args ...interface{}) {
	fl.logWithLevel("INFO", fmt.Sprintf(format, args...))
}

// LogWarn logs a warning-level message.
func (fl *FileLogger) LogWarn(format string, args ...interface{}) {
	fl.logWithLevel("WARN", fmt.Sprintf(format, args...))
}

// LogError logs an error-level message.
func (fl *FileLogger) LogError(format string, args ...interface{}) {
	fl.logWithLevel("ERROR", fmt.Sprintf(format, args...))
}

func (fl *FileLogger) logWithLevel(level string, message string) {
	if !fl.shouldLog(strings.ToLower(level)) {
		return
	}
	fl.writeRunLog(fmt.Sprintf("[%s] [%s] %s\n", timestamp(), level, message))
}

// LogCrawlStart records the root and pool size.
func (fl *FileLogger) LogCrawlStart(root string, workers int) {
	if !fl.shouldLog("info") {
		return
	}
	fl.writeRunLog(fmt.Sprintf("[%s] Crawling %s with %d %s\n",
		timestamp(), root, workers, plural(workers, "worker", "workers")))
}

// LogTaskFailed records a directory that could not be listed, with the svn
// stderr on its own line when present.
func (fl *FileLogger) LogTaskFailed(err *svn.EnumerationError) {
	if !fl.shouldLog("warn") {
		return
	}
	ts := timestamp()
	message := fmt.Sprintf("[%s] [WARN] cannot list %q (%s): %v\n", ts, err.Path, err.Target, err.Err)
	if stderr := strings.TrimSpace(err.Stderr); stderr != "" {
		message += fmt.Sprintf("[%s]   stderr: %s\n", ts, stderr)
	}
	fl.writeRunLog(message)
}

// LogPruned records a directory matched by a stop pattern at DEBUG level.
func (fl *FileLogger) LogPruned(path string) {
	fl.logWithLevel("DEBUG", "pruned "+path)
}

// LogSummary records the final counters and every failed directory.
func (fl *FileLogger) LogSummary(result crawler.Result) {
	if !fl.shouldLog("info") {
		return
	}

	ts := timestamp()
	status := "SUCCESS"
	if result.Stats.Failures > 0 {
		status = "PARTIAL"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "\n[%s] === CRAWL SUMMARY ===\n", ts)
	fmt.Fprintf(&sb, "[%s] Listed:       %d\n", ts, result.Stats.Tasks)
	fmt.Fprintf(&sb, "[%s] Entries:      %d\n", ts, result.Stats.Entries)
	fmt.Fprintf(&sb, "[%s] Published:    %d\n", ts, result.Stats.Published)
	fmt.Fprintf(&sb, "[%s] Pruned:       %d\n", ts, result.Stats.Pruned)
	fmt.Fprintf(&sb, "[%s] Failures:     %d\n", ts, result.Stats.Failures)
	if result.Stats.WriteFailures > 0 {
		fmt.Fprintf(&sb, "[%s] Write errors: %d\n", ts, result.Stats.WriteFailures)
	}
	fmt.Fprintf(&sb, "[%s] Total time:   %.1fs\n", ts, result.Stats.Duration.Seconds())
	fmt.Fprintf(&sb, "[%s] Status:       %s\n", ts, status)
	for _, err := range result.Errors {
		fmt.Fprintf(&sb, "[%s]   - %s\n", ts, err.Error())
	}
	fmt.Fprintf(&sb, "[%s] Completed at: %s\n", ts, time.Now().Format(time.RFC3339))

	fl.writeRunLog(sb.String())
}

// Close syncs and closes the run log file.
func (fl *FileLogger) Close() error {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	if fl.runLog != nil {
		if err := fl.runLog.Sync(); err != nil {
			return fmt.Errorf("failed to sync run log: %w", err)
		}
		if err := fl.runLog.Close(); err != nil {
			return fmt.Errorf("failed to close run log: %w", err)
		}
		fl.runLog = nil
	}

	return nil
}

func (fl *FileLogger) writeRunLog(message string) {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	if fl.runLog != nil {
		fl.runLog.WriteString(message)
	}
}
