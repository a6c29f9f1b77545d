package spool_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"whittle/internal/logging"
	"whittle/internal/spool"
)

func runWatcher(t *testing.T, dir string) (<-chan string, context.CancelFunc) {
	t.Helper()
	w := spool.NewWatcher(dir, 100*time.Millisecond, 25*time.Millisecond, logging.NewNop())
	ready := make(chan string, 8)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := w.Run(ctx, func(ctx context.Context, path string) error {
			ready <- path
			return nil
		}); err != nil {
			t.Errorf("watcher: %v", err)
		}
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return ready, cancel
}

func waitReady(t *testing.T, ready <-chan string) string {
	t.Helper()
	select {
	case path := <-ready:
		return path
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for a settled spool entry")
		return ""
	}
}

func TestWatcherPicksUpExistingEntries(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "image.dd"), []byte("raw"), 0o644); err != nil {
		t.Fatal(err)
	}

	ready, _ := runWatcher(t, dir)
	if got := waitReady(t, ready); got != filepath.Join(dir, "image.dd") {
		t.Fatalf("ready = %q", got)
	}
}

func TestWatcherEmitsDroppedFileOnce(t *testing.T) {
	dir := t.TempDir()
	ready, _ := runWatcher(t, dir)

	if err := os.WriteFile(filepath.Join(dir, "usb.dd"), []byte("raw"), 0o644); err != nil {
		t.Fatal(err)
	}
	if got := waitReady(t, ready); got != filepath.Join(dir, "usb.dd") {
		t.Fatalf("ready = %q", got)
	}

	select {
	case path := <-ready:
		t.Fatalf("entry emitted twice: %q", path)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatcherWaitsForDirectoryToSettle(t *testing.T) {
	dir := t.TempDir()
	ready, _ := runWatcher(t, dir)

	entry := filepath.Join(dir, "laptop")
	if err := os.MkdirAll(entry, 0o755); err != nil {
		t.Fatal(err)
	}
	// Keep the entry busy past several settle windows; it must not fire
	// while files are still arriving.
	for i := 0; i < 4; i++ {
		name := filepath.Join(entry, "unalloc_"+string(rune('a'+i)))
		if err := os.WriteFile(name, []byte("data"), 0o644); err != nil {
			t.Fatal(err)
		}
		select {
		case path := <-ready:
			t.Fatalf("entry fired while still being written: %q", path)
		case <-time.After(60 * time.Millisecond):
		}
	}

	if got := waitReady(t, ready); got != entry {
		t.Fatalf("ready = %q, want %q", got, entry)
	}
}

func TestWatcherStopsWhenHandlerFails(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "image.dd"), []byte("raw"), 0o644); err != nil {
		t.Fatal(err)
	}

	w := spool.NewWatcher(dir, 100*time.Millisecond, 25*time.Millisecond, logging.NewNop())
	handlerErr := errors.New("engine missing")
	done := make(chan error, 1)
	go func() {
		done <- w.Run(context.Background(), func(ctx context.Context, path string) error {
			return handlerErr
		})
	}()

	select {
	case err := <-done:
		if !errors.Is(err, handlerErr) {
			t.Fatalf("Run returned %v, want %v", err, handlerErr)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("watcher kept running after the handler failed")
	}
}

func TestWatcherDropsRemovedEntries(t *testing.T) {
	dir := t.TempDir()
	ready, _ := runWatcher(t, dir)

	path := filepath.Join(dir, "mistake.dd")
	if err := os.WriteFile(path, []byte("raw"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}

	select {
	case got := <-ready:
		t.Fatalf("removed entry still emitted: %q", got)
	case <-time.After(400 * time.Millisecond):
	}
}
