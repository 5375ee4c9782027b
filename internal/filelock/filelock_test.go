package filelock

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestForTarget(t *testing.T) {
	lock := ForTarget(filepath.Join("out", "paths.txt"))
	if lock.Path() != filepath.Join("out", "paths.txt.lock") {
		t.Errorf("unexpected lock path %s", lock.Path())
	}
}

func TestAcquireConflicts(t *testing.T) {
	target := filepath.Join(t.TempDir(), "paths.txt")

	first := ForTarget(target)
	second := ForTarget(target)

	if err := first.Acquire(); err != nil {
		t.Fatalf("first Acquire failed: %v", err)
	}

	err := second.Acquire()
	if !errors.Is(err, ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}

	if err := first.Release(); err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	if _, err := os.Stat(first.Path()); !os.IsNotExist(err) {
		t.Errorf("lock file should be removed after Release, stat err = %v", err)
	}

	if err := second.Acquire(); err != nil {
		t.Fatalf("Acquire after release failed: %v", err)
	}
	second.Release()
}

func TestTryLockAndUnlock(t *testing.T) {
	lockPath := filepath.Join(t.TempDir(), "x.lock")
	lock := NewFileLock(lockPath)

	acquired, err := lock.TryLock()
	if err != nil || !acquired {
		t.Fatalf("TryLock = %v, %v", acquired, err)
	}
	if err := lock.Unlock(); err != nil {
		t.Fatalf("Unlock failed: %v", err)
	}
	if _, err := os.Stat(lockPath); err != nil {
		t.Errorf("Unlock should keep the lock file: %v", err)
	}
}

func TestAtomicWriteCreatesParents(t *testing.T) {
	target := filepath.Join(t.TempDir(), "reports", "nested", "run.html")

	if err := AtomicWrite(target, []byte("<h1>run</h1>")); err != nil {
		t.Fatalf("AtomicWrite failed: %v", err)
	}

	got, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(got) != "<h1>run</h1>" {
		t.Errorf("unexpected content %q", got)
	}

	entries, _ := os.ReadDir(filepath.Dir(target))
	if len(entries) != 1 {
		t.Errorf("temp files left behind: %v", entries)
	}
}

func TestLockAndWriteOverwrites(t *testing.T) {
	target := filepath.Join(t.TempDir(), "report.md")
	if err := os.WriteFile(target, []byte("old"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := LockAndWrite(target, []byte("new")); err != nil {
		t.Fatalf("LockAndWrite failed: %v", err)
	}

	got, _ := os.ReadFile(target)
	if string(got) != "new" {
		t.Errorf("expected overwritten content, got %q", got)
	}
	if _, err := os.Stat(target + ".lock"); !os.IsNotExist(err) {
		t.Errorf("lock file should be released")
	}
}
