package tools

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lexlens-backend/models"
	"lexlens-backend/rules"
)

func clauseRequest(question string, chunks ...models.TextChunk) *models.RequestContext {
	return &models.RequestContext{
		Question:         question,
		RetrievalResults: &models.RetrievalResults{Results: chunks},
		UserMode:         models.ModeBusiness,
	}
}

func TestClauseFinderTerminationWithQuestionBoost(t *testing.T) {
	finder := NewClauseFinder(rules.Default())

	req := clauseRequest("Wie kann ich kündigen?", models.TextChunk{
		ChunkID: "c1",
		Text:    "Die Kündigung muss schriftlich erfolgen.",
		Score:   0.9,
		Spans:   models.Span{PageStart: 2},
	})

	res, err := finder.Analyze(context.Background(), req)
	require.NoError(t, err)

	data := res.Data.(*ClauseFinderData)
	require.Len(t, data.Findings, 1)

	f := data.Findings[0]
	assert.Equal(t, "termination", f.ClauseType)
	// 0.5 base + 0.3 question boost
	assert.GreaterOrEqual(t, f.Confidence, 0.8)
	assert.Equal(t, 2, f.Page)
	assert.NotEmpty(t, data.Explanation)
}

func TestClauseFinderEmptyContext(t *testing.T) {
	finder := NewClauseFinder(rules.Default())

	res, err := finder.Analyze(context.Background(), &models.RequestContext{Question: "Was gilt?"})
	require.NoError(t, err)

	data := res.Data.(*ClauseFinderData)
	assert.Empty(t, data.Findings)
	assert.Empty(t, data.ClauseTypes)
	assert.Empty(t, res.Citations)
}

func TestClauseFinderSingleTypePerChunk(t *testing.T) {
	finder := NewClauseFinder(rules.Default())

	// chunk mentions both termination and payment; only the stronger
	// match may be reported
	req := clauseRequest("Wann ist die Zahlung fällig?", models.TextChunk{
		ChunkID: "c1",
		Text:    "Bei Kündigung ist die offene Zahlung sofort fällig. Der Betrag ist per Rechnung fällig.",
		Score:   1.0,
	})

	res, err := finder.Analyze(context.Background(), req)
	require.NoError(t, err)

	data := res.Data.(*ClauseFinderData)
	require.Len(t, data.Findings, 1)
	assert.Equal(t, "payment", data.Findings[0].ClauseType)
}

func TestClauseFinderOrdersByRetrievalScore(t *testing.T) {
	finder := NewClauseFinder(rules.Default())

	req := clauseRequest("",
		models.TextChunk{ChunkID: "low", Text: "Die Haftung ist begrenzt.", Score: 0.2},
		models.TextChunk{ChunkID: "high", Text: "Die Kündigungsfrist beträgt drei Monate.", Score: 0.9},
	)

	res, err := finder.Analyze(context.Background(), req)
	require.NoError(t, err)

	data := res.Data.(*ClauseFinderData)
	require.Len(t, data.Findings, 2)
	assert.Equal(t, "high", data.Findings[0].ChunkID)
	assert.Equal(t, "low", data.Findings[1].ChunkID)
}

func TestClauseFinderKeyTermsDeduplicated(t *testing.T) {
	finder := NewClauseFinder(rules.Default())

	req := clauseRequest("", models.TextChunk{
		ChunkID: "c1",
		Text:    "Der Vertrag und der VERTRAG regeln die Kündigung schriftlich und Schriftlich.",
		Score:   1.0,
	})

	res, err := finder.Analyze(context.Background(), req)
	require.NoError(t, err)

	seen := map[string]int{}
	for _, term := range res.Insights.KeyTerms {
		seen[term]++
	}
	for term, n := range seen {
		assert.Equal(t, 1, n, "duplicate key term %q", term)
	}
}

func TestClauseFinderRiskDetection(t *testing.T) {
	finder := NewClauseFinder(rules.Default())

	req := clauseRequest("", models.TextChunk{
		ChunkID: "c1",
		Text:    "Die Haftung ist ausgeschlossen. Haftung ist ausgeschlossen für leichte Fahrlässigkeit.",
		Score:   1.0,
	})

	res, err := finder.Analyze(context.Background(), req)
	require.NoError(t, err)
	require.NotEmpty(t, res.Insights.Risks)
	assert.Equal(t, "contractual_risk", res.Insights.Risks[0].Type)
	assert.Equal(t, "medium", res.Insights.Risks[0].Severity)
}

func TestClauseFinderExplanationFallsBackToBusiness(t *testing.T) {
	finder := NewClauseFinder(rules.Default())

	req := clauseRequest("Wie kann ich kündigen?", models.TextChunk{
		ChunkID: "c1",
		Text:    "Die Kündigung muss schriftlich erfolgen.",
		Score:   1.0,
	})
	req.UserMode = models.UserMode("unknown")

	res, err := finder.Analyze(context.Background(), req)
	require.NoError(t, err)

	data := res.Data.(*ClauseFinderData)
	assert.Contains(t, data.Explanation, "Kündigungsklausel")
}

func TestClauseFinderCitationsTruncated(t *testing.T) {
	finder := NewClauseFinder(rules.Default())

	long := "Die Kündigung "
	for len(long) < 600 {
		long += "ist nur schriftlich mit einer Frist von drei Monaten möglich und "
	}

	req := clauseRequest("", models.TextChunk{ChunkID: "c1", Text: long, Score: 1.0})
	res, err := finder.Analyze(context.Background(), req)
	require.NoError(t, err)

	require.NotEmpty(t, res.Citations)
	assert.LessOrEqual(t, len(res.Citations[0].Text), 300)
}

func TestClauseFinderHealthCheck(t *testing.T) {
	finder := NewClauseFinder(rules.Default())

	report := finder.HealthCheck()
	assert.Equal(t, models.HealthStatusHealthy, report.Status)
	assert.True(t, report.TestResult)
	assert.Greater(t, report.PatternsLoaded, 0)
}
