package config

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const defaultDebounce = 500 * time.Millisecond

// Watcher reloads the configuration when config.yaml changes on disk.
type Watcher struct {
	dir      string
	watcher  *fsnotify.Watcher
	onReload func(*Configuration)
	logger   *slog.Logger
	debounce time.Duration

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
}

// NewWatcher creates a watcher for the configuration in dir. onReload is
// called with every valid configuration written after Start.
func NewWatcher(dir string, onReload func(*Configuration), logger *slog.Logger) (*Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Watcher{
		dir:      dir,
		watcher:  watcher,
		onReload: onReload,
		logger:   logger,
		debounce: defaultDebounce,
		stopCh:   make(chan struct{}),
	}, nil
}

// Start begins watching, it returns immediately.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return nil
	}

	// Editors often write a temp file and rename it, so watch the directory.
	if err := w.watcher.Add(w.dir); err != nil {
		return err
	}
	w.running = true

	w.logger.Debug("config watcher started", "dir", w.dir)
	go w.loop(ctx)
	return nil
}

// Stop stops watching, it's safe to call more than once.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.running {
		return nil
	}
	w.running = false

	close(w.stopCh)
	return w.watcher.Close()
}

func (w *Watcher) loop(ctx context.Context) {
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != ConfigurationName {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			w.logger.Debug("config changed", "op", event.Op.String())
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(w.debounce, w.reload)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("config watcher error", "error", err)

		case <-w.stopCh:
			return

		case <-ctx.Done():
			return
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := Load(w.dir)
	if err != nil {
		w.logger.Warn("ignoring configuration change", "error", err)
		return
	}

	w.logger.Info("configuration reloaded", "dir", w.dir)
	w.onReload(cfg)
}
