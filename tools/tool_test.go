package tools

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lexlens-backend/models"
)

type staticAnalyzer struct {
	name   string
	result *Result
	err    error
	panics bool
}

func (a *staticAnalyzer) Name() string { return a.name }

func (a *staticAnalyzer) Analyze(ctx context.Context, req *models.RequestContext) (*Result, error) {
	if a.panics {
		panic("boom")
	}
	return a.result, a.err
}

func (a *staticAnalyzer) HealthCheck() *models.HealthReport {
	return &models.HealthReport{Status: models.HealthStatusHealthy, TestResult: true}
}

func TestRunnerSuccessEnvelope(t *testing.T) {
	runner := NewRunner()
	a := &staticAnalyzer{
		name: "static",
		result: &Result{
			Data:  map[string]string{"k": "v"},
			Extra: map[string]interface{}{"n": 1},
		},
	}

	env := runner.Execute(context.Background(), a, &models.RequestContext{})

	require.NotNil(t, env)
	assert.True(t, env.Success)
	assert.Empty(t, env.Error)
	assert.Equal(t, "static", env.Metadata.ToolName)
	assert.GreaterOrEqual(t, env.Metadata.ProcessingTimeMs, int64(0))
	assert.Equal(t, map[string]string{"k": "v"}, env.Data)
}

func TestRunnerErrorBecomesFailureEnvelope(t *testing.T) {
	runner := NewRunner()
	a := &staticAnalyzer{name: "static", err: errors.New("pattern table corrupt")}

	env := runner.Execute(context.Background(), a, &models.RequestContext{})

	assert.False(t, env.Success)
	assert.Nil(t, env.Data)
	assert.Equal(t, "pattern table corrupt", env.Error)
	assert.Equal(t, "static", env.Metadata.ToolName)
}

func TestRunnerRecoversPanic(t *testing.T) {
	runner := NewRunner()
	a := &staticAnalyzer{name: "static", panics: true}

	env := runner.Execute(context.Background(), a, &models.RequestContext{})

	assert.False(t, env.Success)
	assert.Contains(t, env.Error, "internal error")
}

func TestRunnerCanceledContext(t *testing.T) {
	runner := NewRunner()
	a := &staticAnalyzer{name: "static", result: &Result{}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	env := runner.Execute(ctx, a, &models.RequestContext{})
	assert.False(t, env.Success)
	assert.Contains(t, env.Error, "context canceled")
}

func TestDedupStringsNormalizes(t *testing.T) {
	got := dedupStrings([]string{" Frist ", "frist", "FRIST", "Termin", ""})
	assert.Equal(t, []string{"frist", "termin"}, got)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 10))
	assert.Equal(t, "abc", truncate("abc def", 4))
	assert.Len(t, truncate("aaaaaaaaaa", 5), 5)
}

func TestExtractWindow(t *testing.T) {
	text := "0123456789"

	w := extractWindow(text, 4, 6, 2)
	assert.Equal(t, "23", w.Before)
	assert.Equal(t, "67", w.After)
	assert.Equal(t, "234567", w.Full)

	// window clipped at text bounds
	w = extractWindow(text, 0, 2, 5)
	assert.Equal(t, "", w.Before)
	assert.Equal(t, "0123456", w.Full)

	w = extractWindow(text, 8, 10, 5)
	assert.Equal(t, "", w.After)
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 0.1, clamp(-2, 0.1, 1.0))
	assert.Equal(t, 1.0, clamp(7, 0.1, 1.0))
	assert.Equal(t, 0.5, clamp(0.5, 0.1, 1.0))
}
