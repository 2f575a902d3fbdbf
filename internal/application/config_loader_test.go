package application

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-quorum/internal/domain"
	"github.com/ahrav/go-quorum/internal/ports"
)

// createdAnalyst records one CreateAnalyst call made against the mock
// registry, with the parameters already decoded to a plain map.
type createdAnalyst struct {
	analystType string
	id          string
	params      map[string]any
}

// mockAnalystRegistry implements ports.AnalystRegistry for loader tests.
// Every successful CreateAnalyst call hands back a trivially valid
// analyst and records the call for inspection.
type mockAnalystRegistry struct {
	createError error
	created     []createdAnalyst
}

var _ ports.AnalystRegistry = (*mockAnalystRegistry)(nil)

func (m *mockAnalystRegistry) CreateAnalyst(analystType, id string, params map[string]any) (ports.Analyst, error) {
	if m.createError != nil {
		return nil, m.createError
	}
	m.created = append(m.created, createdAnalyst{analystType: analystType, id: id, params: params})
	return &scriptedAnalyst{
		name: id,
		analyze: func(context.Context, domain.AnalysisRequest) (domain.AnalysisResult, error) {
			return holdResult()
		},
	}, nil
}

func (m *mockAnalystRegistry) RegisterAnalystFactory(string, ports.AnalystFactory) error {
	return nil
}

func (m *mockAnalystRegistry) SupportedTypes() []string {
	return []string{"fundamental", "sentiment", "technical"}
}

const validConfigYAML = `
version: "1.0.0"
engine:
  max_concurrency: 8
  timeout_seconds: 5
  shutdown_grace_seconds: 2
analysts:
  - id: sma-cross
    type: technical
    weight: 0.8
    parameters:
      fast_period: 10
      slow_period: 30
  - id: value-screen
    type: fundamental
  - id: news-pulse
    type: sentiment
    weight: 0.5
    parameters:
      fuzzy_distance: 2
`

func newTestLoader(t *testing.T) (*ConfigLoader, *mockAnalystRegistry) {
	t.Helper()
	registry := &mockAnalystRegistry{}
	loader, err := NewConfigLoader(registry)
	require.NoError(t, err)
	return loader, registry
}

func TestNewConfigLoader_RequiresRegistry(t *testing.T) {
	_, err := NewConfigLoader(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "registry")
}

func TestConfigLoader_LoadFromReader(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr bool
		errMsg  string
		verify  func(t *testing.T, config *Config)
	}{
		{
			name: "loads full configuration",
			yaml: validConfigYAML,
			verify: func(t *testing.T, config *Config) {
				assert.Equal(t, "1.0.0", config.Version)
				assert.Equal(t, 8, config.Engine.MaxConcurrency)
				assert.Equal(t, 5, config.Engine.TimeoutSeconds)
				assert.Equal(t, 2, config.Engine.ShutdownGraceSeconds)

				require.Len(t, config.Analysts, 3)
				assert.Equal(t, "sma-cross", config.Analysts[0].ID)
				assert.Equal(t, "technical", config.Analysts[0].Type)
				require.NotNil(t, config.Analysts[0].Weight)
				assert.Equal(t, 0.8, *config.Analysts[0].Weight)
				assert.Nil(t, config.Analysts[1].Weight)
			},
		},
		{
			name: "omitted engine section uses zero values",
			yaml: `
version: "1.0.0"
analysts:
  - id: value-screen
    type: fundamental
`,
			verify: func(t *testing.T, config *Config) {
				assert.Zero(t, config.Engine.MaxConcurrency)
				assert.Zero(t, config.Engine.TimeoutSeconds)
			},
		},
		{
			name: "missing version fails",
			yaml: `
analysts:
  - id: value-screen
    type: fundamental
`,
			wantErr: true,
			errMsg:  "Version",
		},
		{
			name: "malformed version fails",
			yaml: `
version: "not-a-version"
analysts:
  - id: value-screen
    type: fundamental
`,
			wantErr: true,
			errMsg:  "semver",
		},
		{
			name:    "empty analyst list fails",
			yaml:    `version: "1.0.0"`,
			wantErr: true,
			errMsg:  "Analysts",
		},
		{
			name: "unknown top-level field fails strict decoding",
			yaml: `
version: "1.0.0"
analyst:
  - id: value-screen
    type: fundamental
`,
			wantErr: true,
			errMsg:  "not found in type",
		},
		{
			name: "unknown analyst type fails",
			yaml: `
version: "1.0.0"
analysts:
  - id: quant
    type: astrological
`,
			wantErr: true,
			errMsg:  "Type",
		},
		{
			name: "uppercase analyst ID fails",
			yaml: `
version: "1.0.0"
analysts:
  - id: SMA-Cross
    type: technical
`,
			wantErr: true,
			errMsg:  "analystid",
		},
		{
			name: "weight above one fails",
			yaml: `
version: "1.0.0"
analysts:
  - id: sma-cross
    type: technical
    weight: 1.5
`,
			wantErr: true,
			errMsg:  "Weight",
		},
		{
			name: "duplicate analyst IDs fail",
			yaml: `
version: "1.0.0"
analysts:
  - id: sma-cross
    type: technical
  - id: sma-cross
    type: fundamental
`,
			wantErr: true,
			errMsg:  "duplicate analyst ID",
		},
		{
			name: "inverted technical periods fail",
			yaml: `
version: "1.0.0"
analysts:
  - id: sma-cross
    type: technical
    parameters:
      fast_period: 30
      slow_period: 10
`,
			wantErr: true,
			errMsg:  "fast_period",
		},
		{
			name: "out-of-range fuzzy distance fails",
			yaml: `
version: "1.0.0"
analysts:
  - id: news-pulse
    type: sentiment
    parameters:
      fuzzy_distance: 9
`,
			wantErr: true,
			errMsg:  "fuzzy_distance must be between 0 and 5",
		},
		{
			name:    "malformed YAML fails",
			yaml:    "version: [unclosed",
			wantErr: true,
			errMsg:  "failed to parse YAML",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loader, _ := newTestLoader(t)

			config, err := loader.LoadFromReader(strings.NewReader(tt.yaml))

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				assert.Nil(t, config)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, config)
			if tt.verify != nil {
				tt.verify(t, config)
			}
		})
	}
}

func TestConfigLoader_LoadFromFile(t *testing.T) {
	loader, _ := newTestLoader(t)

	path := filepath.Join(t.TempDir(), "quorum.yaml")
	require.NoError(t, os.WriteFile(path, []byte(validConfigYAML), 0o600))

	config, err := loader.LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", config.Version)
	assert.Len(t, config.Analysts, 3)
}

func TestConfigLoader_LoadFromFileMissing(t *testing.T) {
	loader, _ := newTestLoader(t)

	_, err := loader.LoadFromFile(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read file")
}

func TestConfigLoader_BuildEngine(t *testing.T) {
	loader, registry := newTestLoader(t)

	config, err := loader.LoadFromReader(strings.NewReader(validConfigYAML))
	require.NoError(t, err)

	engine, err := loader.BuildEngine(config, &stubComposer{report: "ok"})
	require.NoError(t, err)

	assert.Equal(t, []string{"news-pulse", "sma-cross", "value-screen"}, engine.Analysts())
	assert.Equal(t, 0.8, engine.Weight("sma-cross"))
	assert.Equal(t, 0.5, engine.Weight("news-pulse"))
	// Omitted weights stay at the roster default.
	assert.Equal(t, DefaultWeight, engine.Weight("value-screen"))

	// Factories receive the decoded parameters, in file order.
	require.Len(t, registry.created, 3)
	assert.Equal(t, "technical", registry.created[0].analystType)
	assert.Equal(t, map[string]any{"fast_period": 10, "slow_period": 30}, registry.created[0].params)
	assert.Equal(t, "value-screen", registry.created[1].id)
	assert.Nil(t, registry.created[1].params)

	// The wired engine is immediately runnable.
	res, err := engine.Run(context.Background(), domain.AnalysisRequest{Symbol: "ACME"})
	require.NoError(t, err)
	require.NotNil(t, res.Consolidated)
	assert.Equal(t, 3, res.Consolidated.Contributors)
}

func TestConfigLoader_BuildEngineFactoryFailure(t *testing.T) {
	registry := &mockAnalystRegistry{createError: errors.New("provider offline")}
	loader, err := NewConfigLoader(registry)
	require.NoError(t, err)

	config, err := loader.LoadFromReader(strings.NewReader(validConfigYAML))
	require.NoError(t, err)

	_, err = loader.BuildEngine(config, &stubComposer{report: "ok"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create analyst sma-cross")
	assert.ErrorIs(t, err, registry.createError)
}
