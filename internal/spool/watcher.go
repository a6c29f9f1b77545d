// Package spool watches an intake directory for dropped evidence and hands
// each entry to a callback once it has gone quiet. Copies into the spool are
// not atomic, so an entry is only ready after a settle window with no write
// activity anywhere beneath it.
package spool

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"whittle/internal/logging"
	"whittle/internal/services"
)

// Handler receives one settled spool entry. It runs on the watcher's
// goroutine; a slow handler delays later entries, never loses them. A
// non-nil error stops the watcher: handlers return one when the failure
// would doom every later entry too, and absorb per-entry faults.
type Handler func(ctx context.Context, sourcePath string) error

// Watcher tracks write activity under a spool directory.
type Watcher struct {
	dir    string
	settle time.Duration
	tick   time.Duration
	logger *slog.Logger

	// pending maps top-level entry name to its last observed activity.
	pending map[string]time.Time
}

// NewWatcher builds a spool watcher. settle is how long an entry must stay
// quiet before it is ready; tick is how often readiness is evaluated.
func NewWatcher(dir string, settle, tick time.Duration, logger *slog.Logger) *Watcher {
	if settle <= 0 {
		settle = 5 * time.Second
	}
	if tick <= 0 || tick > settle {
		tick = settle / 2
	}
	return &Watcher{
		dir:     dir,
		settle:  settle,
		tick:    tick,
		logger:  logging.NewComponentLogger(logger, "spool"),
		pending: make(map[string]time.Time),
	}
}

// Run watches until ctx is cancelled, invoking ready for each settled entry.
// Entries already sitting in the spool at startup are picked up too.
func (w *Watcher) Run(ctx context.Context, ready Handler) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return services.Wrap(services.ErrWorkspaceInit, "spool", "create watcher", "", err)
	}
	defer fsw.Close()
	if err := fsw.Add(w.dir); err != nil {
		return services.Wrap(services.ErrPathAccess, "spool", "watch dir", w.dir, err)
	}

	if err := w.scanExisting(fsw); err != nil {
		return err
	}
	w.logger.Info("watching spool",
		logging.String("dir", w.dir),
		logging.Duration("settle", w.settle))

	ticker := time.NewTicker(w.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			w.observe(fsw, event)
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", logging.Error(err))
		case <-ticker.C:
			for _, entry := range w.takeSettled(time.Now()) {
				path := filepath.Join(w.dir, entry)
				if _, err := os.Stat(path); err != nil {
					continue
				}
				w.logger.Info("spool entry ready", logging.String("entry", entry))
				if err := ready(ctx, path); err != nil {
					return err
				}
			}
		}
	}
}

// scanExisting seeds the pending set with entries that predate the watcher,
// so a restart does not strand evidence already in the spool.
func (w *Watcher) scanExisting(fsw *fsnotify.Watcher) error {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return services.Wrap(services.ErrPathAccess, "spool", "list dir", w.dir, err)
	}
	now := time.Now()
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		w.pending[entry.Name()] = now
		if entry.IsDir() {
			if err := fsw.Add(filepath.Join(w.dir, entry.Name())); err != nil {
				w.logger.Warn("watch subdir failed", logging.String("entry", entry.Name()), logging.Error(err))
			}
		}
	}
	return nil
}

// observe folds one filesystem event into the pending set. Activity inside a
// subdirectory refreshes the settle timer of its top-level entry.
func (w *Watcher) observe(fsw *fsnotify.Watcher, event fsnotify.Event) {
	entry, ok := w.topLevel(event.Name)
	if !ok || strings.HasPrefix(entry, ".") {
		return
	}
	if event.Op&fsnotify.Remove != 0 || event.Op&fsnotify.Rename != 0 {
		if filepath.Dir(event.Name) == w.dir {
			delete(w.pending, entry)
		}
		return
	}
	w.pending[entry] = time.Now()
	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := fsw.Add(event.Name); err != nil {
				w.logger.Warn("watch subdir failed", logging.String("entry", entry), logging.Error(err))
			}
		}
	}
}

// takeSettled removes and returns the entries quiet for a full settle
// window, in name order.
func (w *Watcher) takeSettled(now time.Time) []string {
	var settled []string
	for entry, last := range w.pending {
		if now.Sub(last) >= w.settle {
			settled = append(settled, entry)
		}
	}
	sort.Strings(settled)
	for _, entry := range settled {
		delete(w.pending, entry)
	}
	return settled
}

func (w *Watcher) topLevel(path string) (string, bool) {
	rel, err := filepath.Rel(w.dir, path)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", false
	}
	parts := strings.Split(rel, string(filepath.Separator))
	if len(parts) == 0 || parts[0] == "" {
		return "", false
	}
	return parts[0], true
}
