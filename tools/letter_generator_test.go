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

const sampleLetter = `Max Mustermann
Musterstraße 1, 10115 Berlin

Beispiel GmbH
Beispielweg 2, 80331 München

Berlin, 15.03.2024

Betreff: Kündigung des Dienstleistungsvertrages

Sehr geehrte Damen und Herren,

hiermit kündige ich den Dienstleistungsvertrag vom 01.01.2023 fristgerecht zum 30.06.2024.

Bitte bestätigen Sie mir den Erhalt dieser Kündigung schriftlich.

Mit freundlichen Grüßen

Max Mustermann`

func letterRequest(question string, chunks ...models.TextChunk) *models.RequestContext {
	return &models.RequestContext{
		Question:         question,
		RetrievalResults: &models.RetrievalResults{Results: chunks},
	}
}

func TestLetterGeneratorIntentDetection(t *testing.T) {
	gen := NewLetterGenerator(rules.Default())

	tests := []struct {
		question string
		wantType string
	}{
		{"Ich möchte den Vertrag kündigen", "termination"},
		{"Bitte erinnern Sie an die überfällige Zahlung", "reminder"},
		{"Ich möchte Paragraph 5 ändern lassen", "amendment"},
		{"Die Änderung von § 3 soll vereinbart werden", "amendment"},
		{"Die Miete ist seit zwei Wochen überfällig", "reminder"},
		{"Bitte benachrichtigen Sie die Gegenseite über den Umzug", "notice"},
		{"Was kostet das Angebot?", "request"},
	}

	for _, tc := range tests {
		t.Run(tc.question, func(t *testing.T) {
			intent := gen.detectIntent(tc.question)
			assert.Equal(t, tc.wantType, intent.Type)
		})
	}
}

func TestLetterGeneratorDefaultIntentConfidence(t *testing.T) {
	gen := NewLetterGenerator(rules.Default())

	intent := gen.detectIntent("Was kostet das Angebot?")
	assert.Equal(t, "request", intent.Type)
	assert.InDelta(t, 0.3, intent.Confidence, 0.001)
}

func TestLetterGeneratorFallbackWithoutGenerator(t *testing.T) {
	gen := NewLetterGenerator(rules.Default())

	res, err := gen.Analyze(context.Background(), letterRequest("Ich möchte den Vertrag kündigen"))
	require.NoError(t, err)

	data := res.Data.(*LetterGeneratorData)
	assert.Equal(t, "termination", data.Intent.Type)
	assert.Equal(t, "Kündigungsschreiben", data.Intent.Label)
	assert.Equal(t, SourceFallback, data.Letter.Source)
	assert.Contains(t, data.Letter.Text, "Kündigung")
	assert.Empty(t, data.Alternatives)
}

func TestLetterGeneratorGeneratedLetter(t *testing.T) {
	fake := &fakeGenerator{response: sampleLetter}
	gen := NewLetterGenerator(rules.Default(), LetterWithGenerator(fake))

	res, err := gen.Analyze(context.Background(), letterRequest(
		"Ich möchte den Vertrag kündigen",
		models.TextChunk{
			ChunkID: "c1",
			Text:    "Vertrag zwischen Max Mustermann und der Beispiel GmbH vom 01.01.2023. Monatliche Zahlung: 500,00 €. Kündigungsfrist: 3 Monate.",
			Score:   0.9,
			Spans:   models.Span{PageStart: 1},
		},
	))
	require.NoError(t, err)

	data := res.Data.(*LetterGeneratorData)
	assert.Equal(t, SourceGenerated, data.Letter.Source)
	assert.Equal(t, "Kündigung des Dienstleistungsvertrages", data.Letter.Sections.Subject)

	// primary + two alternatives
	assert.Equal(t, 3, fake.calls)
	assert.Len(t, data.Alternatives, 2)

	assert.Contains(t, data.ContractInfo.Parties, "Beispiel GmbH")
	assert.Contains(t, data.ContractInfo.Dates, "01.01.2023")
	require.NotEmpty(t, data.ContractInfo.References)
	assert.LessOrEqual(t, len(data.ContractInfo.References[0].Text), 200)
}

func TestLetterGeneratorGenerationErrorUsesFallback(t *testing.T) {
	fake := &fakeGenerator{err: errors.New("model unavailable")}
	gen := NewLetterGenerator(rules.Default(), LetterWithGenerator(fake))

	res, err := gen.Analyze(context.Background(), letterRequest("Ich möchte den Vertrag kündigen"))
	require.NoError(t, err)

	data := res.Data.(*LetterGeneratorData)
	assert.Equal(t, SourceFallback, data.Letter.Source)
	assert.NotEmpty(t, data.Letter.Text)
	// alternatives are skipped once the primary draft fell back
	assert.Empty(t, data.Alternatives)
}

func TestParseLetterSections(t *testing.T) {
	sec := parseLetter(sampleLetter)

	assert.Equal(t, "Kündigung des Dienstleistungsvertrages", sec.Subject)
	assert.Equal(t, "Sehr geehrte Damen und Herren,", sec.Salutation)
	assert.Contains(t, sec.Body, "hiermit kündige ich")
	assert.Equal(t, "Mit freundlichen Grüßen", sec.Closing)
	assert.Contains(t, sec.Signature, "Max Mustermann")
	assert.Contains(t, sec.Header, "Musterstraße 1")
	assert.Contains(t, sec.Recipient, "Beispiel GmbH")
}

func TestLetterGeneratorRecommendations(t *testing.T) {
	gen := NewLetterGenerator(rules.Default())

	res, err := gen.Analyze(context.Background(), letterRequest(
		"Ich möchte den Vertrag kündigen",
		models.TextChunk{
			ChunkID: "c1",
			Text:    "Kündigungsfrist bis zum 31.12.2024. Offener Betrag: 1.500,00 €.",
			Score:   1.0,
		},
	))
	require.NoError(t, err)

	types := map[string]string{}
	for _, rec := range res.Insights.Recommendations {
		types[rec.Type] = rec.Priority
	}
	assert.Equal(t, "high", types["deadline_check"])
	assert.Equal(t, "medium", types["financial_review"])
	assert.Equal(t, "high", types["legal_review"])
	// confidence 0.6 < 0.7 triggers verification
	assert.Contains(t, types, "intent_verification")
}

func TestLetterGeneratorCitationsLimited(t *testing.T) {
	gen := NewLetterGenerator(rules.Default())

	chunks := make([]models.TextChunk, 8)
	for i := range chunks {
		chunks[i] = models.TextChunk{ChunkID: "c", Text: "Vertragstext.", Score: 0.5}
	}

	res, err := gen.Analyze(context.Background(), letterRequest("Ich möchte kündigen", chunks...))
	require.NoError(t, err)
	assert.Len(t, res.Citations, 5)
}

func TestLetterGeneratorHealthCheck(t *testing.T) {
	gen := NewLetterGenerator(rules.Default(), LetterWithGenerator(&fakeGenerator{err: errors.New("offline")}))

	report := gen.HealthCheck()
	assert.Equal(t, models.HealthStatusHealthy, report.Status)
	assert.True(t, report.TestResult)
}
