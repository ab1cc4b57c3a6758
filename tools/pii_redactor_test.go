package tools

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lexlens-backend/models"
	"lexlens-backend/rules"
)

func piiRequest(chunks ...models.TextChunk) *models.RequestContext {
	return &models.RequestContext{
		Question:         "Welche personenbezogenen Daten enthält der Vertrag?",
		FeatureFlags:     map[string]bool{FlagPIIRedaction: true},
		RetrievalResults: &models.RetrievalResults{Results: chunks},
	}
}

func newTestRedactor() *PIIRedactor {
	return NewPIIRedactor(rules.Default(), RedactorWithYear(func() int { return 2025 }))
}

func TestPIIRedactorBasicCategories(t *testing.T) {
	redactor := newTestRedactor()

	res, err := redactor.Analyze(context.Background(), piiRequest(models.TextChunk{
		ChunkID: "c1",
		Text:    "Max Mustermann, max@example.com, +49 30 12345678",
		Score:   1.0,
	}))
	require.NoError(t, err)

	data := res.Data.(*PIIRedactorData)

	categories := map[string]bool{}
	for _, f := range data.Findings {
		categories[f.Category] = true
	}
	assert.True(t, categories[rules.PIINames])
	assert.True(t, categories[rules.PIIEmails])
	assert.True(t, categories[rules.PIIPhones])
}

func TestPIIRedactorRedactsConfidentFindingsOnly(t *testing.T) {
	redactor := newTestRedactor()

	res, err := redactor.Analyze(context.Background(), piiRequest(models.TextChunk{
		ChunkID: "c1",
		Text:    "Max Mustermann, max@example.com, +49 30 12345678",
		Score:   1.0,
	}))
	require.NoError(t, err)

	data := res.Data.(*PIIRedactorData)
	assert.True(t, data.RedactionEnabled)
	require.Len(t, data.RedactedChunks, 1)

	redacted := data.RedactedChunks[0].RedactedText
	assert.Contains(t, redacted, "[EMAIL]")
	assert.Contains(t, redacted, "[PHONE]")
	assert.NotContains(t, redacted, "max@example.com")
	// a bare two-word name sits at 0.6 confidence and survives
	assert.Contains(t, redacted, "Max Mustermann")
}

func TestPIIRedactorDetectsWithoutRedactingByDefault(t *testing.T) {
	redactor := newTestRedactor()

	// no feature flags on the request: findings are reported but no
	// redacted chunk copies are produced
	res, err := redactor.Analyze(context.Background(), &models.RequestContext{
		Question: "Welche personenbezogenen Daten enthält der Vertrag?",
		RetrievalResults: &models.RetrievalResults{Results: []models.TextChunk{{
			ChunkID: "c1",
			Text:    "Kontakt: max@example.com",
			Score:   1.0,
		}}},
	})
	require.NoError(t, err)

	data := res.Data.(*PIIRedactorData)
	assert.False(t, data.RedactionEnabled)
	assert.Empty(t, data.RedactedChunks)
	assert.NotEmpty(t, data.Findings)

	types := map[string]bool{}
	for _, rec := range res.Insights.Recommendations {
		types[rec.Type] = true
	}
	assert.True(t, types["redaction_suggested"])
}

func TestPIIRedactorContextClueBoost(t *testing.T) {
	redactor := newTestRedactor()

	res, err := redactor.Analyze(context.Background(), piiRequest(models.TextChunk{
		ChunkID: "c1",
		Text:    "Unterzeichnet von Herr Max Mustermann.",
		Score:   1.0,
	}))
	require.NoError(t, err)

	data := res.Data.(*PIIRedactorData)
	var name *PIIFinding
	for i := range data.Findings {
		if data.Findings[i].Category == rules.PIINames {
			name = &data.Findings[i]
			break
		}
	}
	require.NotNil(t, name)
	// 0.6 base + 0.2 context clue
	assert.InDelta(t, 0.8, name.Confidence, 0.001)
	assert.Contains(t, data.RedactedChunks[0].RedactedText, "[NAME]")
}

func TestPIIRedactorCompanyDemotion(t *testing.T) {
	redactor := newTestRedactor()

	res, err := redactor.Analyze(context.Background(), piiRequest(models.TextChunk{
		ChunkID: "c1",
		Text:    "Vertragspartner ist die Muster Bau GmbH mit Sitz in Berlin.",
		Score:   1.0,
	}))
	require.NoError(t, err)

	data := res.Data.(*PIIRedactorData)
	for _, f := range data.Findings {
		if f.Category == rules.PIINames {
			assert.Less(t, f.Confidence, 0.5, "company-like name %q should be demoted", f.Text)
		}
	}
}

func TestPIIRedactorImplausibleBirthDate(t *testing.T) {
	redactor := newTestRedactor()

	res, err := redactor.Analyze(context.Background(), piiRequest(models.TextChunk{
		ChunkID: "c1",
		Text:    "Datum: 01.01.2099",
		Score:   1.0,
	}))
	require.NoError(t, err)

	data := res.Data.(*PIIRedactorData)
	for _, f := range data.Findings {
		if f.Category == rules.PIIBirthDates {
			// 0.6 base halved for a year in the future
			assert.InDelta(t, 0.3, f.Confidence, 0.001)
		}
	}
}

func TestPIIRedactorRedactionOffsets(t *testing.T) {
	redactor := newTestRedactor()

	// multiple replacements in one chunk must not corrupt surrounding text
	res, err := redactor.Analyze(context.Background(), piiRequest(models.TextChunk{
		ChunkID: "c1",
		Text:    "Kontakt: erste@example.com und zweite@example.com, Ende.",
		Score:   1.0,
	}))
	require.NoError(t, err)

	data := res.Data.(*PIIRedactorData)
	redacted := data.RedactedChunks[0].RedactedText
	assert.Equal(t, "Kontakt: [EMAIL] und [EMAIL], Ende.", redacted)
	assert.Equal(t, 2, data.RedactedChunks[0].RedactedCount)
}

func TestPIIRedactorChunkRiskLevels(t *testing.T) {
	redactor := newTestRedactor()

	tests := []struct {
		name string
		text string
		want string
	}{
		{"benign text", "Der Vertrag regelt die Zusammenarbeit.", "low"},
		{"single high confidence", "Kontakt: max@example.com", "medium"},
		{"many findings", "a@b.de c@d.de e@f.de g@h.de i@j.de", "high"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res, err := redactor.Analyze(context.Background(), piiRequest(models.TextChunk{
				ChunkID: "c1", Text: tc.text, Score: 1.0,
			}))
			require.NoError(t, err)

			data := res.Data.(*PIIRedactorData)
			require.Len(t, data.RedactedChunks, 1)
			assert.Equal(t, tc.want, data.RedactedChunks[0].RiskLevel)
		})
	}
}

func TestPIIRedactorComplianceScore(t *testing.T) {
	redactor := newTestRedactor()

	res, err := redactor.Analyze(context.Background(), piiRequest(models.TextChunk{
		ChunkID: "c1",
		Text:    "IBAN: DE89 3704 0044 0532 0130 00",
		Score:   1.0,
	}))
	require.NoError(t, err)

	data := res.Data.(*PIIRedactorData)
	assert.Less(t, data.ComplianceScore, 100)
	assert.Equal(t, "high", data.GDPR.RiskLevel)
	assert.NotEmpty(t, data.GDPR.Issues)
}

func TestPIIRedactorCitationsNeverExposeValues(t *testing.T) {
	redactor := newTestRedactor()

	res, err := redactor.Analyze(context.Background(), piiRequest(models.TextChunk{
		ChunkID: "c1",
		Text:    "Max Mustermann, max@example.com, IBAN: DE89 3704 0044 0532 0130 00",
		Score:   1.0,
	}))
	require.NoError(t, err)

	assert.LessOrEqual(t, len(res.Citations), 5)
	for _, c := range res.Citations {
		assert.Contains(t, c.Text, "[REDACTED for privacy]")
		assert.NotContains(t, c.Text, "example.com")
		assert.NotContains(t, c.Text, "DE89")
	}
}

func TestPIIRedactorEmptyContext(t *testing.T) {
	redactor := newTestRedactor()

	res, err := redactor.Analyze(context.Background(), &models.RequestContext{Question: "PII?"})
	require.NoError(t, err)

	data := res.Data.(*PIIRedactorData)
	assert.Empty(t, data.Findings)
	assert.Equal(t, 100, data.ComplianceScore)
	assert.Equal(t, "low", data.GDPR.RiskLevel)
}

func TestPIIRedactorConfidenceBounds(t *testing.T) {
	redactor := newTestRedactor()

	res, err := redactor.Analyze(context.Background(), piiRequest(models.TextChunk{
		ChunkID: "c1",
		Text:    "E-Mail Kontakt: max@example.com, Telefon: +49 30 12345678, Steuer-ID 12 345 678 901",
		Score:   1.0,
	}))
	require.NoError(t, err)

	data := res.Data.(*PIIRedactorData)
	require.NotEmpty(t, data.Findings)
	for _, f := range data.Findings {
		assert.GreaterOrEqual(t, f.Confidence, 0.1)
		assert.LessOrEqual(t, f.Confidence, 1.0)
	}
}

func TestPIIRedactorHealthCheck(t *testing.T) {
	redactor := newTestRedactor()

	report := redactor.HealthCheck()
	assert.Equal(t, models.HealthStatusHealthy, report.Status)
	assert.True(t, report.TestResult)
	assert.Equal(t, len(rules.Default().PII.Definitions), report.PatternsLoaded)
}
