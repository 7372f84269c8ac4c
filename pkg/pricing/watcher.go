package pricing

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads a pricing table when its backing YAML file changes.
//
// Editors and configuration management tools often write files with several
// events in quick succession, so reloads are debounced. A file that fails to
// parse leaves the previous table in place.
type Watcher struct {
	table    *Table
	path     string
	debounce time.Duration
	watcher  *fsnotify.Watcher
	logger   *slog.Logger

	mu      sync.Mutex
	running bool
	doneCh  chan struct{}
}

// WatcherConfig contains configuration for the pricing watcher.
type WatcherConfig struct {
	// Path is the pricing YAML file to watch.
	Path string

	// DebounceInterval is the quiet period before a reload is applied
	// after a change event (default: 250ms).
	DebounceInterval time.Duration
}

// NewWatcher creates a watcher that keeps table in sync with the file at
// cfg.Path.
func NewWatcher(table *Table, cfg WatcherConfig) (*Watcher, error) {
	if table == nil {
		return nil, fmt.Errorf("table cannot be nil")
	}
	if cfg.Path == "" {
		return nil, fmt.Errorf("path cannot be empty")
	}
	if cfg.DebounceInterval <= 0 {
		cfg.DebounceInterval = 250 * time.Millisecond
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &Watcher{
		table:    table,
		path:     cfg.Path,
		debounce: cfg.DebounceInterval,
		watcher:  fw,
		logger:   slog.Default().With("component", "pricing.watcher"),
		doneCh:   make(chan struct{}),
	}, nil
}

// Watch blocks processing file events until the context is cancelled.
func (w *Watcher) Watch(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("watcher already running")
	}
	w.running = true
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
		close(w.doneCh)
	}()

	if err := w.watcher.Add(w.path); err != nil {
		return fmt.Errorf("failed to watch %q: %w", w.path, err)
	}

	w.logger.Info("pricing watcher started",
		"path", w.path,
		"debounce_ms", w.debounce.Milliseconds(),
	)

	var timer *time.Timer
	var timerCh <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("pricing watcher stopped")
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			// Debounce: restart the quiet-period timer on every event.
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerCh = timer.C
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}

		case <-timerCh:
			w.reload()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("pricing watcher error", "error", err)
		}
	}
}

// Close releases the underlying fsnotify watcher.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

// reload re-reads the pricing file and swaps the table contents.
func (w *Watcher) reload() {
	loaded, err := LoadTable(w.path)
	if err != nil {
		w.logger.Error("pricing reload failed, keeping previous table",
			"path", w.path,
			"error", err,
		)
		return
	}

	loaded.mu.RLock()
	entries := loaded.entries
	loaded.mu.RUnlock()

	w.table.Reload(entries)
	w.logger.Info("pricing table reloaded",
		"path", w.path,
		"models", len(entries),
	)
}
