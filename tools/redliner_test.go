package tools

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lexlens-backend/models"
	"lexlens-backend/rules"
)

type fakeGenerator struct {
	response string
	err      error
	calls    int
}

func (g *fakeGenerator) Generate(ctx context.Context, systemPrompt, userPrompt string, opts GenerateOptions) (string, error) {
	g.calls++
	if g.err != nil {
		return "", g.err
	}
	return g.response, nil
}

func redlineRequest(chunks ...models.TextChunk) *models.RequestContext {
	return &models.RequestContext{
		Question:         "Welche Klauseln sollten verbessert werden?",
		RetrievalResults: &models.RetrievalResults{Results: chunks},
	}
}

func TestRedlinerDetectsVagueAndUnlimited(t *testing.T) {
	redliner := NewRedliner(rules.Default())

	res, err := redliner.Analyze(context.Background(), redlineRequest(models.TextChunk{
		ChunkID: "c1",
		Text:    "Die Haftung ist unbegrenzt und angemessen.",
		Score:   1.0,
	}))
	require.NoError(t, err)

	data := res.Data.(*RedlinerData)
	require.Len(t, data.Sections, 1)

	issueTypes := map[string]bool{}
	for _, i := range data.Sections[0].Issues {
		issueTypes[i.Type] = true
	}
	assert.True(t, issueTypes[rules.IssueVagueLanguage])
	assert.True(t, issueTypes[rules.IssueUnlimitedLiability])
	assert.NotEmpty(t, data.Suggestions)
}

func TestRedlinerSkipsCleanSections(t *testing.T) {
	redliner := NewRedliner(rules.Default())

	res, err := redliner.Analyze(context.Background(), redlineRequest(models.TextChunk{
		ChunkID: "c1",
		Text:    "Die Lieferung erfolgt binnen 14 Tagen nach Bestellung.",
		Score:   1.0,
	}))
	require.NoError(t, err)

	data := res.Data.(*RedlinerData)
	assert.Empty(t, data.Sections)
	assert.Empty(t, data.Suggestions)
}

func TestRedlinerGeneratedSuggestions(t *testing.T) {
	gen := &fakeGenerator{
		response: `{"suggestions":[{"type":"risk","priority":"high","original":"Die Haftung ist unbegrenzt.","improved":"Die Haftung ist auf die Auftragssumme begrenzt.","reasoning":"Begrenzung des Risikos."}]}`,
	}
	redliner := NewRedliner(rules.Default(), RedlinerWithGenerator(gen))

	res, err := redliner.Analyze(context.Background(), redlineRequest(models.TextChunk{
		ChunkID: "c1",
		Text:    "Die Haftung ist unbegrenzt.",
		Score:   1.0,
	}))
	require.NoError(t, err)
	assert.Equal(t, 1, gen.calls)

	data := res.Data.(*RedlinerData)
	var ai *Suggestion
	for i := range data.Suggestions {
		if data.Suggestions[i].Source == SourceAI {
			ai = &data.Suggestions[i]
		}
	}
	require.NotNil(t, ai)
	assert.Equal(t, "risk", ai.Type)
	assert.InDelta(t, 0.8, ai.Confidence, 0.001)
	assert.Contains(t, ai.Improved, "begrenzt")
}

func TestRedlinerGeneratorErrorFallsBack(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("quota exceeded")}
	redliner := NewRedliner(rules.Default(), RedlinerWithGenerator(gen))

	res, err := redliner.Analyze(context.Background(), redlineRequest(models.TextChunk{
		ChunkID: "c1",
		Text:    "Nur der Anbieter ist allein zur Änderung berechtigt und angemessen informiert.",
		Score:   1.0,
	}))
	require.NoError(t, err)

	data := res.Data.(*RedlinerData)
	require.NotEmpty(t, data.Suggestions)
	for _, s := range data.Suggestions {
		assert.Equal(t, SourcePattern, s.Source)
	}
}

func TestRedlinerMalformedJSONFallsBack(t *testing.T) {
	gen := &fakeGenerator{response: "Hier sind meine Vorschläge: erstens..."}
	redliner := NewRedliner(rules.Default(), RedlinerWithGenerator(gen))

	res, err := redliner.Analyze(context.Background(), redlineRequest(models.TextChunk{
		ChunkID: "c1",
		Text:    "Die Haftung ist unbegrenzt und angemessen.",
		Score:   1.0,
	}))
	require.NoError(t, err)

	data := res.Data.(*RedlinerData)
	require.NotEmpty(t, data.Suggestions)
	for _, s := range data.Suggestions {
		assert.Equal(t, SourcePattern, s.Source)
	}
}

func TestRedlinerSuggestionOrdering(t *testing.T) {
	redliner := NewRedliner(rules.Default())

	res, err := redliner.Analyze(context.Background(), redlineRequest(models.TextChunk{
		ChunkID: "c1",
		Text:    "Die Haftung ist unbegrenzt und angemessen. Der Anbieter kann jederzeit kündigen.",
		Score:   1.0,
	}))
	require.NoError(t, err)

	data := res.Data.(*RedlinerData)
	require.NotEmpty(t, data.Suggestions)
	for i := 1; i < len(data.Suggestions); i++ {
		prev, cur := data.Suggestions[i-1], data.Suggestions[i]
		assert.GreaterOrEqual(t, priorityRank(prev.Priority), priorityRank(cur.Priority))
	}
}

func TestRedlinerImplementationGuide(t *testing.T) {
	suggestions := []Suggestion{
		{Priority: "high", Improved: "a"},
		{Priority: "high", Improved: "b"},
		{Priority: "medium", Improved: "c"},
		{Priority: "low", Improved: "d"},
	}

	guide := buildGuide(suggestions)
	require.Len(t, guide.Phases, 3)
	assert.Equal(t, 1, guide.Phases[0].Phase)
	assert.Equal(t, "1-2 Wochen", guide.Phases[0].Duration)
	// 4+4+2+1 hours
	assert.Equal(t, 11, guide.TotalEffortHours)
	assert.Equal(t, 2, guide.BusinessDays)
	assert.Empty(t, guide.Note)
}

func TestRedlinerGuidePhasedNote(t *testing.T) {
	var suggestions []Suggestion
	for i := 0; i < 12; i++ {
		suggestions = append(suggestions, Suggestion{Priority: "high", Improved: "x"})
	}

	guide := buildGuide(suggestions)
	assert.Equal(t, 48, guide.TotalEffortHours)
	assert.Equal(t, "Phasenweise Umsetzung empfohlen", guide.Note)
	// phase one carries at most three items
	assert.LessOrEqual(t, len(guide.Phases[0].Items), 3)
}

func TestRedlinerRiskReductionLevels(t *testing.T) {
	tests := []struct {
		name        string
		suggestions []Suggestion
		level       string
	}{
		{"low impact", []Suggestion{{Priority: "low"}}, "Gering"},
		{"moderate", []Suggestion{{Priority: "high"}, {Priority: "low"}}, "Moderat"},
		{"significant", []Suggestion{{Priority: "high"}, {Priority: "high"}, {Priority: "high"}}, "Signifikant"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rr := buildRiskReduction(tc.suggestions)
			assert.Equal(t, tc.level, rr.Level)
			assert.LessOrEqual(t, rr.Percentage, 100.0)
		})
	}
}

func TestRedlinerClarityScore(t *testing.T) {
	redliner := NewRedliner(rules.Default())

	res, err := redliner.Analyze(context.Background(), redlineRequest(models.TextChunk{
		ChunkID: "c1",
		Text:    "Die Leistung ist angemessen und angemessen und angemessen und angemessen und angemessen zu erbringen.",
		Score:   1.0,
	}))
	require.NoError(t, err)

	data := res.Data.(*RedlinerData)
	require.Len(t, data.Sections, 1)
	assert.GreaterOrEqual(t, data.Sections[0].ClarityScore, 0.0)
	assert.Less(t, data.Sections[0].ClarityScore, 0.8)
}

func TestRedlinerHealthCheck(t *testing.T) {
	redliner := NewRedliner(rules.Default(), RedlinerWithGenerator(&fakeGenerator{err: errors.New("offline")}))

	report := redliner.HealthCheck()
	assert.Equal(t, models.HealthStatusHealthy, report.Status)
	assert.True(t, report.TestResult)
}
