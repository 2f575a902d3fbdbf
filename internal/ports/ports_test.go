package ports

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ahrav/go-quorum/internal/domain"
)

// mockAnalyst is a minimal Analyst used to verify the contract compiles
// and behaves as documented.
type mockAnalyst struct {
	name string
}

func (m *mockAnalyst) Name() string { return m.name }

func (m *mockAnalyst) Analyze(ctx context.Context, req domain.AnalysisRequest) (domain.AnalysisResult, error) {
	return domain.AnalysisResult{
		Recommendation: domain.RecommendationHold,
		Confidence:     0.5,
	}, nil
}

func (m *mockAnalyst) Validate() error { return nil }

// mockMetrics is a no-op MetricsCollector.
type mockMetrics struct{}

func (mockMetrics) RecordLatency(string, time.Duration, map[string]string) {}
func (mockMetrics) RecordCounter(string, float64, map[string]string)       {}
func (mockMetrics) RecordGauge(string, float64, map[string]string)         {}
func (mockMetrics) RecordHistogram(string, float64, map[string]string)     {}

func TestInterfaceCompliance(t *testing.T) {
	var _ Analyst = (*mockAnalyst)(nil)
	var _ MetricsCollector = mockMetrics{}

	analyst := &mockAnalyst{name: "mock"}
	assert.Equal(t, "mock", analyst.Name())

	res, err := analyst.Analyze(context.Background(), domain.AnalysisRequest{Symbol: "AAPL"})
	assert.NoError(t, err)
	assert.NoError(t, res.Validate())
}
