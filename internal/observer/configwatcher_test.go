package observer

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func waitForCount(t *testing.T, count *atomic.Int32, want int32) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if count.Load() == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("callback count = %d, want %d", count.Load(), want)
}

func TestConfigWatcher_FiresOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("[backend]\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	var fired atomic.Int32
	w, err := NewConfigWatcher(path, func(p string) {
		if p != path {
			t.Errorf("callback path = %q, want %q", p, path)
		}
		fired.Add(1)
	})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Stop()
	w.SetDebounce(50 * time.Millisecond)
	w.Start(context.Background())

	if err := os.WriteFile(path, []byte("[backend]\nbase_url = \"x\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	waitForCount(t, &fired, 1)
}

func TestConfigWatcher_DebouncesRapidWrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("a = 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	var fired atomic.Int32
	w, err := NewConfigWatcher(path, func(string) { fired.Add(1) })
	if err != nil {
		t.Fatal(err)
	}
	defer w.Stop()
	w.SetDebounce(100 * time.Millisecond)
	w.Start(context.Background())

	for i := 0; i < 5; i++ {
		if err := os.WriteFile(path, []byte("a = 2\n"), 0o644); err != nil {
			t.Fatal(err)
		}
		time.Sleep(10 * time.Millisecond)
	}

	waitForCount(t, &fired, 1)

	// Give the debounce window time to prove no extra callback arrives
	time.Sleep(200 * time.Millisecond)
	if got := fired.Load(); got != 1 {
		t.Errorf("callback count after settle = %d, want 1", got)
	}
}

func TestConfigWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	other := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(path, []byte("a = 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	var fired atomic.Int32
	w, err := NewConfigWatcher(path, func(string) { fired.Add(1) })
	if err != nil {
		t.Fatal(err)
	}
	defer w.Stop()
	w.SetDebounce(50 * time.Millisecond)
	w.Start(context.Background())

	if err := os.WriteFile(other, []byte("hello\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	time.Sleep(200 * time.Millisecond)
	if got := fired.Load(); got != 0 {
		t.Errorf("callback count = %d, want 0 for unrelated file", got)
	}
}

func TestConfigWatcher_StopPreventsCallbacks(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("a = 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	var fired atomic.Int32
	w, err := NewConfigWatcher(path, func(string) { fired.Add(1) })
	if err != nil {
		t.Fatal(err)
	}
	w.SetDebounce(50 * time.Millisecond)
	w.Start(context.Background())
	w.Stop()

	if err := os.WriteFile(path, []byte("a = 2\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	time.Sleep(200 * time.Millisecond)
	if got := fired.Load(); got != 0 {
		t.Errorf("callback count after Stop = %d, want 0", got)
	}
}
