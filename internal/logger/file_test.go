package logger

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/harrison/svncrawl/internal/crawler"
	"github.com/harrison/svncrawl/internal/svn"
)

func readLog(t *testing.T, fl *FileLogger) string {
	t.Helper()
	if err := fl.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	data, err := os.ReadFile(fl.Path())
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	return string(data)
}

func TestNewFileLogger(t *testing.T) {
	logDir := filepath.Join(t.TempDir(), "nested", "logs")

	fl, err := NewFileLogger(logDir, "info")
	if err != nil {
		t.Fatalf("NewFileLogger: %v", err)
	}

	base := filepath.Base(fl.Path())
	if !strings.HasPrefix(base, "run-") || !strings.HasSuffix(base, ".log") {
		t.Errorf("unexpected run log name %q", base)
	}

	target, err := os.Readlink(filepath.Join(logDir, "latest.log"))
	if err != nil {
		t.Fatalf("latest.log symlink: %v", err)
	}
	if target != base {
		t.Errorf("latest.log points to %q, want %q", target, base)
	}

	content := readLog(t, fl)
	if !strings.HasPrefix(content, "=== svncrawl Run Log ===\n") {
		t.Errorf("missing header:\n%s", content)
	}
}

func TestFileLoggerReplacesLatestSymlink(t *testing.T) {
	logDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(logDir, "run-old.log"), nil, 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink("run-old.log", filepath.Join(logDir, "latest.log")); err != nil {
		t.Fatal(err)
	}

	fl, err := NewFileLogger(logDir, "info")
	if err != nil {
		t.Fatalf("NewFileLogger: %v", err)
	}
	defer fl.Close()

	target, err := os.Readlink(filepath.Join(logDir, "latest.log"))
	if err != nil {
		t.Fatal(err)
	}
	if target != filepath.Base(fl.Path()) {
		t.Errorf("latest.log still points to %q", target)
	}
}

func TestFileLoggerEvents(t *testing.T) {
	fl, err := NewFileLogger(t.TempDir(), "debug")
	if err != nil {
		t.Fatalf("NewFileLogger: %v", err)
	}

	failure := &svn.EnumerationError{
		Path:   "b/",
		Target: "https://svn.example.org/repo/b/",
		Err:    errors.New("exit status 1"),
		Stderr: "svn: E170013: Unable to connect\n",
	}
	fl.LogCrawlStart("https://svn.example.org/repo/", 3)
	fl.LogPruned("tags/")
	fl.LogTaskFailed(failure)
	fl.LogInfo("published %d paths", 4)
	fl.LogSummary(crawler.Result{
		Stats:  crawler.Stats{Tasks: 5, Entries: 9, Published: 4, Pruned: 1, Failures: 1, Duration: 2 * time.Second},
		Errors: []*svn.EnumerationError{failure},
	})

	content := readLog(t, fl)
	for _, want := range []string{
		"Crawling https://svn.example.org/repo/ with 3 workers",
		"[DEBUG] pruned tags/",
		`[WARN] cannot list "b/" (https://svn.example.org/repo/b/): exit status 1`,
		"stderr: svn: E170013: Unable to connect",
		"[INFO] published 4 paths",
		"=== CRAWL SUMMARY ===",
		"Listed:       5",
		"Published:    4",
		"Status:       PARTIAL",
	} {
		if !strings.Contains(content, want) {
			t.Errorf("expected %q in log:\n%s", want, content)
		}
	}
}

func TestFileLoggerLevelFiltering(t *testing.T) {
	fl, err := NewFileLogger(t.TempDir(), "warn")
	if err != nil {
		t.Fatalf("NewFileLogger: %v", err)
	}

	fl.LogCrawlStart("r", 1)
	fl.LogDebug("hidden debug")
	fl.LogInfo("hidden info")
	fl.LogWarn("visible warn")
	fl.LogSummary(crawler.Result{})

	content := readLog(t, fl)
	if strings.Contains(content, "hidden") || strings.Contains(content, "Crawling") || strings.Contains(content, "SUMMARY") {
		t.Errorf("lower levels leaked into log:\n%s", content)
	}
	if !strings.Contains(content, "[WARN] visible warn") {
		t.Errorf("missing warn line:\n%s", content)
	}
}

func TestFileLoggerCloseIsIdempotent(t *testing.T) {
	fl, err := NewFileLogger(t.TempDir(), "info")
	if err != nil {
		t.Fatal(err)
	}
	if err := fl.Close(); err != nil {
		t.Fatal(err)
	}
	if err := fl.Close(); err != nil {
		t.Errorf("second close: %v", err)
	}
	fl.LogInfo("after close")
}

func TestNewFileLoggerBadDirectory(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(blocker, nil, 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewFileLogger(filepath.Join(blocker, "logs"), "info"); err == nil {
		t.Error("expected an error when the log directory cannot be created")
	}
}
