package application

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultWatchDebounce coalesces the burst of filesystem events an atomic
// save produces into a single reload.
const DefaultWatchDebounce = 100 * time.Millisecond

// WeightsWatcher watches an engine configuration file and applies analyst
// weight changes to a live engine without a restart. Only weights are
// applied: adding or removing analysts and changing engine settings
// require a restart, and such entries are logged and skipped.
//
// A file revision that fails to parse or validate is ignored; the
// previous weights stay active.
type WeightsWatcher struct {
	path     string
	engine   *Engine
	loader   *ConfigLoader
	logger   *slog.Logger
	debounce time.Duration
}

// WeightsWatcherOption configures a WeightsWatcher.
type WeightsWatcherOption func(*WeightsWatcher)

// WithWatchLogger sets the structured logger. Defaults to slog.Default().
func WithWatchLogger(logger *slog.Logger) WeightsWatcherOption {
	return func(w *WeightsWatcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithWatchDebounce overrides the event debounce window.
func WithWatchDebounce(d time.Duration) WeightsWatcherOption {
	return func(w *WeightsWatcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// NewWeightsWatcher creates a watcher for the given config file bound to
// a live engine. The loader revalidates every revision of the file with
// the same rules used at startup.
func NewWeightsWatcher(path string, engine *Engine, loader *ConfigLoader, opts ...WeightsWatcherOption) (*WeightsWatcher, error) {
	if path == "" {
		return nil, fmt.Errorf("config path cannot be empty")
	}
	if engine == nil {
		return nil, fmt.Errorf("engine cannot be nil")
	}
	if loader == nil {
		return nil, fmt.Errorf("config loader cannot be nil")
	}

	w := &WeightsWatcher{
		path:     filepath.Clean(path),
		engine:   engine,
		loader:   loader,
		logger:   slog.Default(),
		debounce: DefaultWatchDebounce,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Watch monitors the config file and applies weight changes each time it
// is rewritten. It blocks until ctx is cancelled.
func (w *WeightsWatcher) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory rather than the file itself. Editors and deploy
	// tools often replace the file via rename, which drops a file-level
	// watch.
	dir := filepath.Dir(w.path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}

	w.logger.Info("weights: watching for changes", "path", w.path)

	var timerMu sync.Mutex
	var timer *time.Timer
	trigger := func() {
		timerMu.Lock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(w.debounce, w.reload)
		timerMu.Unlock()
	}
	defer func() {
		timerMu.Lock()
		if timer != nil {
			timer.Stop()
		}
		timerMu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !w.isConfigEvent(event) {
				continue
			}
			trigger()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("weights: watcher error", "error", err)
		}
	}
}

func (w *WeightsWatcher) isConfigEvent(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != w.path {
		return false
	}
	return event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0
}

// reload re-parses the config file and pushes changed weights onto the
// roster. Analysts present in the file but not on the roster are skipped;
// the watcher never creates or removes analysts.
func (w *WeightsWatcher) reload() {
	config, err := w.loader.LoadFromFile(w.path)
	if err != nil {
		w.logger.Error("weights: reload failed, keeping previous weights",
			"path", w.path, "error", err)
		return
	}

	registered := make(map[string]struct{})
	for _, id := range w.engine.Analysts() {
		registered[id] = struct{}{}
	}

	updated := 0
	for _, analyst := range config.Analysts {
		if _, ok := registered[analyst.ID]; !ok {
			w.logger.Warn("weights: analyst not on roster, restart required to add it",
				"analyst", analyst.ID)
			continue
		}

		weight := DefaultWeight
		if analyst.Weight != nil {
			weight = *analyst.Weight
		}
		if w.engine.Weight(analyst.ID) == weight {
			continue
		}

		if err := w.engine.SetWeight(analyst.ID, weight); err != nil {
			w.logger.Error("weights: update rejected",
				"analyst", analyst.ID, "weight", weight, "error", err)
			continue
		}
		w.logger.Info("weights: updated", "analyst", analyst.ID, "weight", weight)
		updated++
	}

	if updated > 0 {
		w.logger.Info("weights: reload applied", "path", w.path, "updated", updated)
	}
}
