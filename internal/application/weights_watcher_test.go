package application

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func watcherConfigYAML(smaWeight, valueWeight float64) string {
	return fmt.Sprintf(`
version: "1.0.0"
analysts:
  - id: sma-cross
    type: technical
    weight: %.2f
  - id: value-screen
    type: fundamental
    weight: %.2f
`, smaWeight, valueWeight)
}

// newWatcherFixture writes an initial config file, builds a live engine
// from it and binds a watcher with a short debounce to both.
func newWatcherFixture(t *testing.T) (string, *Engine, *WeightsWatcher) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "quorum.yaml")
	require.NoError(t, os.WriteFile(path, []byte(watcherConfigYAML(0.8, 0.6)), 0o600))

	loader, err := NewConfigLoader(&mockAnalystRegistry{})
	require.NoError(t, err)

	config, err := loader.LoadFromFile(path)
	require.NoError(t, err)

	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	engine, err := loader.BuildEngine(config, &stubComposer{report: "ok"}, WithEngineLogger(quiet))
	require.NoError(t, err)

	watcher, err := NewWeightsWatcher(path, engine, loader,
		WithWatchLogger(quiet), WithWatchDebounce(10*time.Millisecond))
	require.NoError(t, err)

	return path, engine, watcher
}

func TestNewWeightsWatcher_Validation(t *testing.T) {
	loader, err := NewConfigLoader(&mockAnalystRegistry{})
	require.NoError(t, err)
	engine := quietEngine(t, EngineConfig{})

	tests := []struct {
		name   string
		path   string
		engine *Engine
		loader *ConfigLoader
		errMsg string
	}{
		{name: "empty path", engine: engine, loader: loader, errMsg: "path"},
		{name: "nil engine", path: "quorum.yaml", loader: loader, errMsg: "engine"},
		{name: "nil loader", path: "quorum.yaml", engine: engine, errMsg: "loader"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewWeightsWatcher(tt.path, tt.engine, tt.loader)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestWeightsWatcher_ReloadAppliesWeightChanges(t *testing.T) {
	path, engine, watcher := newWatcherFixture(t)
	require.Equal(t, 0.8, engine.Weight("sma-cross"))
	require.Equal(t, 0.6, engine.Weight("value-screen"))

	require.NoError(t, os.WriteFile(path, []byte(watcherConfigYAML(0.3, 0.9)), 0o600))
	watcher.reload()

	assert.Equal(t, 0.3, engine.Weight("sma-cross"))
	assert.Equal(t, 0.9, engine.Weight("value-screen"))
	assert.Equal(t, []string{"sma-cross", "value-screen"}, engine.Analysts())
}

func TestWeightsWatcher_ReloadNeverTouchesRosterMembership(t *testing.T) {
	path, engine, watcher := newWatcherFixture(t)

	// A revision that adds an analyst only reweights the existing ones;
	// membership changes require a restart.
	revised := watcherConfigYAML(0.3, 0.6) + `  - id: newcomer
    type: sentiment
`
	require.NoError(t, os.WriteFile(path, []byte(revised), 0o600))
	watcher.reload()

	assert.Equal(t, []string{"sma-cross", "value-screen"}, engine.Analysts())
	assert.Equal(t, 0.3, engine.Weight("sma-cross"))
}

func TestWeightsWatcher_BadRevisionKeepsPreviousWeights(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "malformed yaml", content: "version: [unclosed"},
		{
			name: "validation failure",
			content: `
version: "oops"
analysts:
  - id: sma-cross
    type: technical
    weight: 0.1
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path, engine, watcher := newWatcherFixture(t)

			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o600))
			watcher.reload()

			assert.Equal(t, 0.8, engine.Weight("sma-cross"))
			assert.Equal(t, 0.6, engine.Weight("value-screen"))
		})
	}
}

func TestWeightsWatcher_OmittedWeightRevertsToDefault(t *testing.T) {
	path, engine, watcher := newWatcherFixture(t)

	revised := `
version: "1.0.0"
analysts:
  - id: sma-cross
    type: technical
  - id: value-screen
    type: fundamental
    weight: 0.6
`
	require.NoError(t, os.WriteFile(path, []byte(revised), 0o600))
	watcher.reload()

	assert.Equal(t, DefaultWeight, engine.Weight("sma-cross"))
}

func TestWeightsWatcher_WatchAppliesFileRewrites(t *testing.T) {
	path, engine, watcher := newWatcherFixture(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	watchErr := make(chan error, 1)
	go func() { watchErr <- watcher.Watch(ctx) }()

	// Rewriting inside the poll loop sidesteps the race with watcher
	// startup; once the watch is live a single rewrite suffices.
	require.Eventually(t, func() bool {
		if err := os.WriteFile(path, []byte(watcherConfigYAML(0.3, 0.9)), 0o600); err != nil {
			return false
		}
		return engine.Weight("sma-cross") == 0.3
	}, 3*time.Second, 50*time.Millisecond)

	cancel()
	assert.NoError(t, <-watchErr)
}
