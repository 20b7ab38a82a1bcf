package scratch_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"imgferry/internal/scratch"
)

func exists(t *testing.T, path string) bool {
	t.Helper()
	_, err := os.Stat(path)
	if err == nil {
		return true
	}
	if !os.IsNotExist(err) {
		t.Fatalf("stat %s: %v", path, err)
	}
	return false
}

func TestNewDirCreatesImportDirectory(t *testing.T) {
	root := filepath.Join(t.TempDir(), "scratch")
	s := scratch.NewScheduler(root, time.Minute, nil)
	defer s.Close()

	dir, err := s.NewDir()
	if err != nil {
		t.Fatalf("NewDir failed: %v", err)
	}
	if filepath.Dir(dir) != root || !strings.HasPrefix(filepath.Base(dir), scratch.ImportPrefix) {
		t.Fatalf("unexpected dir %q", dir)
	}
	if !exists(t, dir) {
		t.Fatal("expected directory to exist")
	}
}

func TestScheduleRemovesAfterDelay(t *testing.T) {
	s := scratch.NewScheduler(t.TempDir(), 20*time.Millisecond, nil)
	defer s.Close()
	dir, err := s.NewDir()
	if err != nil {
		t.Fatalf("NewDir failed: %v", err)
	}

	s.Schedule(dir)
	if !exists(t, dir) {
		t.Fatal("directory removed before delay elapsed")
	}
	if s.Pending() != 1 {
		t.Fatalf("expected 1 pending, got %d", s.Pending())
	}

	deadline := time.Now().Add(2 * time.Second)
	for exists(t, dir) {
		if time.Now().After(deadline) {
			t.Fatal("directory not removed after delay")
		}
		time.Sleep(10 * time.Millisecond)
	}
	if s.Pending() != 0 {
		t.Fatalf("expected no pending removals, got %d", s.Pending())
	}
}

func TestZeroDelayRemovesImmediately(t *testing.T) {
	s := scratch.NewScheduler(t.TempDir(), 0, nil)
	dir, err := s.NewDir()
	if err != nil {
		t.Fatalf("NewDir failed: %v", err)
	}
	s.Schedule(dir)
	if exists(t, dir) {
		t.Fatal("expected immediate removal")
	}
}

func TestCloseFlushesPending(t *testing.T) {
	s := scratch.NewScheduler(t.TempDir(), time.Hour, nil)
	dir, err := s.NewDir()
	if err != nil {
		t.Fatalf("NewDir failed: %v", err)
	}
	s.Schedule(dir)

	s.Close()

	if exists(t, dir) {
		t.Fatal("expected Close to remove pending directory")
	}
	if s.Pending() != 0 {
		t.Fatalf("expected no pending, got %d", s.Pending())
	}

	late, err := s.NewDir()
	if err != nil {
		t.Fatalf("NewDir after Close failed: %v", err)
	}
	s.Schedule(late)
	if exists(t, late) {
		t.Fatal("expected scheduling after Close to remove immediately")
	}
}

func TestSweepRemovesOnlyOldImportDirs(t *testing.T) {
	root := t.TempDir()
	s := scratch.NewScheduler(root, time.Hour, nil)
	defer s.Close()

	old := filepath.Join(root, scratch.ImportPrefix+"old")
	fresh := filepath.Join(root, scratch.ImportPrefix+"fresh")
	other := filepath.Join(root, "keep-me")
	for _, dir := range []string{old, fresh, other} {
		if err := os.Mkdir(dir, 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
	}
	stale := time.Now().Add(-2 * time.Hour)
	if err := os.Chtimes(old, stale, stale); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
	if err := os.Chtimes(other, stale, stale); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	removed, err := s.Sweep(time.Hour)
	if err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 removal, got %d", removed)
	}
	if exists(t, old) || !exists(t, fresh) || !exists(t, other) {
		t.Fatal("sweep removed the wrong directories")
	}
}

func TestSweepMissingRoot(t *testing.T) {
	s := scratch.NewScheduler(filepath.Join(t.TempDir(), "absent"), time.Hour, nil)
	if removed, err := s.Sweep(time.Hour); err != nil || removed != 0 {
		t.Fatalf("expected no-op sweep, got %d %v", removed, err)
	}
}
