package config

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const debounceDelay = 500 * time.Millisecond

// Watcher reloads the configuration when its YAML file changes. Only the log
// level and the migration toggle take effect without a restart.
type Watcher struct {
	config    *Config
	callbacks []func(*Config)
	mu        sync.RWMutex
	logger    *zap.Logger
	watcher   *fsnotify.Watcher
	stopCh    chan struct{}
	stopOnce  sync.Once
	load      func() (*Config, error)
}

// NewWatcher creates a configuration watcher. Hot reloading is enabled only in
// development and only when the configuration came from a file.
func NewWatcher(initial *Config, logger *zap.Logger) (*Watcher, error) {
	w := &Watcher{
		config: initial,
		logger: logger,
		stopCh: make(chan struct{}),
		load:   LoadConfig,
	}

	if !initial.IsDevelopment() || initial.ConfigFile == "" {
		logger.Debug("Configuration hot reloading disabled",
			zap.String("environment", initial.Environment),
		)
		return w, nil
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	// editors replace files by rename, so watch the directory
	if err := fsWatcher.Add(filepath.Dir(initial.ConfigFile)); err != nil {
		fsWatcher.Close()
		return nil, fmt.Errorf("failed to watch config file: %w", err)
	}
	w.watcher = fsWatcher

	go w.watchLoop(filepath.Clean(initial.ConfigFile))

	logger.Info("Configuration hot reloading enabled",
		zap.String("file", initial.ConfigFile),
	)
	return w, nil
}

func (w *Watcher) watchLoop(path string) {
	defer w.watcher.Close()

	var debounceTimer *time.Timer

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}

			w.logger.Debug("Configuration file changed",
				zap.String("file", event.Name),
				zap.String("operation", event.Op.String()),
			)
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(debounceDelay, w.Reload)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("File watcher error", zap.Error(err))

		case <-w.stopCh:
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			return
		}
	}
}

// Reload loads the configuration again and notifies callbacks when a
// reloadable field changed. Invalid configurations are logged and ignored.
func (w *Watcher) Reload() {
	next, err := w.load()
	if err != nil {
		w.logger.Error("Invalid configuration after reload", zap.Error(err))
		return
	}

	w.mu.Lock()
	old := w.config
	changed := old.LogLevel != next.LogLevel || old.MigrateOnRequest != next.MigrateOnRequest
	if changed {
		// only the reloadable fields move; the rest stays as started
		updated := *old
		updated.LogLevel = next.LogLevel
		updated.MigrateOnRequest = next.MigrateOnRequest
		w.config = &updated
	}
	current := w.config
	callbacks := append([]func(*Config){}, w.callbacks...)
	w.mu.Unlock()

	if !changed {
		w.logger.Debug("Configuration unchanged after reload")
		return
	}

	w.logger.Info("Configuration reloaded",
		zap.String("log_level", current.LogLevel),
		zap.Bool("migrate_on_request", current.MigrateOnRequest),
	)
	for _, cb := range callbacks {
		cb(current)
	}
}

// OnChange registers a callback to be called when configuration changes.
func (w *Watcher) OnChange(callback func(*Config)) {
	w.mu.Lock()
	w.callbacks = append(w.callbacks, callback)
	w.mu.Unlock()
}

// Current returns the current configuration.
func (w *Watcher) Current() *Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.config
}

// Stop stops watching. It is safe to call more than once.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
	})
}
