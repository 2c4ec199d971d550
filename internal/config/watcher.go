// ABOUTME: Polling mtime watcher that reloads settings when any source file changes
// ABOUTME: Runs until its context is cancelled; reload errors are reported, not fatal

package config

import (
	"context"
	"os"
	"sync"
	"time"
)

// DefaultWatchInterval is the polling period used when none is given.
const DefaultWatchInterval = 2 * time.Second

// Watcher polls settings files and calls onReload with freshly loaded
// settings (or the load error) whenever one of them changes.
type Watcher struct {
	projectRoot string
	explicit    string
	interval    time.Duration
	onReload    func(*Settings, error)

	mu     sync.Mutex
	mtimes map[string]time.Time
}

// NewWatcher creates a watcher over the same files Load reads.
func NewWatcher(projectRoot, explicit string, interval time.Duration, onReload func(*Settings, error)) *Watcher {
	if interval <= 0 {
		interval = DefaultWatchInterval
	}
	w := &Watcher{
		projectRoot: projectRoot,
		explicit:    explicit,
		interval:    interval,
		onReload:    onReload,
		mtimes:      make(map[string]time.Time),
	}
	w.mu.Lock()
	w.snapshotLocked()
	w.mu.Unlock()
	return w
}

// Run polls until ctx is done.
func (w *Watcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.Check()
		}
	}
}

// Check compares mtimes immediately and reloads if anything changed.
// Reports whether a reload happened.
func (w *Watcher) Check() bool {
	w.mu.Lock()
	changed := w.changedLocked()
	if changed {
		w.snapshotLocked()
	}
	w.mu.Unlock()

	if changed && w.onReload != nil {
		w.onReload(Load(w.projectRoot, w.explicit))
	}
	return changed
}

// changedLocked reports whether a file appeared, vanished, or was modified.
func (w *Watcher) changedLocked() bool {
	for _, path := range Files(w.projectRoot, w.explicit) {
		info, err := os.Stat(path)
		prev, existed := w.mtimes[path]
		if err != nil {
			if existed {
				return true
			}
			continue
		}
		if !existed || !info.ModTime().Equal(prev) {
			return true
		}
	}
	return false
}

func (w *Watcher) snapshotLocked() {
	for _, path := range Files(w.projectRoot, w.explicit) {
		info, err := os.Stat(path)
		if err != nil {
			delete(w.mtimes, path)
			continue
		}
		w.mtimes[path] = info.ModTime()
	}
}
