package model

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/ramili4/ml-ci-pipeline/internal/metrics"
)

const watchDebounce = 500 * time.Millisecond

// Watcher watches the models root after startup. The served model is never
// reloaded; a drift between the root and the loaded directory is only reported.
type Watcher struct {
	root       string
	loaded     string
	onChange   func(candidates []string, drifted bool)
	fsw        *fsnotify.Watcher
	candidates []string
	mu         sync.RWMutex
	changes    atomic.Uint32
	done       chan struct{}
	closeOnce  sync.Once
}

// NewWatcher starts watching root. loaded is the directory the process serves.
// onChange may be nil.
func NewWatcher(root, loaded string, onChange func(candidates []string, drifted bool)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	if err := fsw.Add(root); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("failed to watch models root %s: %w", root, err)
	}

	w := &Watcher{
		root:     root,
		loaded:   loaded,
		onChange: onChange,
		fsw:      fsw,
		done:     make(chan struct{}),
	}

	w.candidates = w.scan()
	go w.watch()

	return w, nil
}

// watch consumes fsnotify events until Close.
func (w *Watcher) watch() {
	var timer *time.Timer

	for {
		select {
		case <-w.done:
			if timer != nil {
				timer.Stop()
			}
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}

			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}

			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(watchDebounce, w.rescan)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}

			slog.Error("Watcher error", "root", w.root, "error", err)
		}
	}
}

// rescan lists the root again and reports drift.
func (w *Watcher) rescan() {
	candidates := w.scan()

	w.mu.Lock()
	changed := !slices.Equal(w.candidates, candidates)
	w.candidates = candidates
	w.mu.Unlock()

	if !changed {
		return
	}

	count := w.changes.Add(1)
	drifted := Drifted(w.loaded, candidates)
	if drifted {
		slog.Warn("Models root no longer matches the loaded model, restart to pick up changes",
			"root", w.root, "loaded", w.loaded, "candidates", candidates, "count", count)
	} else {
		slog.Info("Models root changed", "root", w.root, "candidates", candidates, "count", count)
	}

	if w.onChange != nil {
		w.onChange(candidates, drifted)
	}
}

func (w *Watcher) scan() []string {
	candidates, err := Candidates(w.root)
	if err != nil {
		slog.Error("Failed to scan models root", "root", w.root, "error", err)
		candidates = nil
	}

	metrics.ModelCandidates.Set(float64(len(candidates)))
	return candidates
}

// Candidates returns the last observed subdirectories of the root.
func (w *Watcher) Candidates() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()

	return slices.Clone(w.candidates)
}

// ChangeCount returns how many changes were observed since start.
func (w *Watcher) ChangeCount() uint32 {
	return w.changes.Load()
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.done)
		err = w.fsw.Close()
	})
	return err
}

// Drifted reports whether candidates no longer consist of exactly the loaded directory.
func Drifted(loaded string, candidates []string) bool {
	return len(candidates) != 1 || candidates[0] != loaded
}
