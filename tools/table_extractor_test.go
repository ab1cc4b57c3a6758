package tools

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lexlens-backend/models"
	"lexlens-backend/rules"
)

func tableRequest(chunks ...models.TextChunk) *models.RequestContext {
	return &models.RequestContext{
		Question:         "Welche Kosten stehen im Vertrag?",
		RetrievalResults: &models.RetrievalResults{Results: chunks},
		UserMode:         models.ModeBusiness,
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		raw  string
		want float64
		ok   bool
	}{
		{"1.200,00", 1200.00, true},
		{"500,00", 500.00, true},
		{"10,000", 10000, true},
		{"1,234,567.89", 1234567.89, true},
		{"1.200", 1200, true},
		{"500.00", 500.00, true},
		{"0,5", 0.5, true},
		{"42", 42, true},
		{"", 0, false},
		{"abc", 0, false},
	}

	for _, tc := range tests {
		t.Run(tc.raw, func(t *testing.T) {
			got, ok := ParseAmount(tc.raw)
			assert.Equal(t, tc.ok, ok)
			if tc.ok {
				assert.InDelta(t, tc.want, got, 0.001)
			}
		})
	}
}

func TestTableExtractorPipeTable(t *testing.T) {
	extractor := NewTableExtractor(rules.Default())

	res, err := extractor.Analyze(context.Background(), tableRequest(models.TextChunk{
		ChunkID: "c1",
		Text:    "Position | Beschreibung | Preis\n1 | Beratung | 500,00 €\n2 | Umsetzung | 1.200,00 €",
		Score:   1.0,
	}))
	require.NoError(t, err)

	data := res.Data.(*TableExtractorData)
	require.Len(t, data.Tables, 1)

	tbl := data.Tables[0]
	assert.Equal(t, TablePipe, tbl.Type)
	assert.Equal(t, []string{"Position", "Beschreibung", "Preis"}, tbl.Headers)
	require.Len(t, tbl.Rows, 2)
	assert.Equal(t, []string{"1", "Beratung", "500,00 €"}, tbl.Rows[0])
	assert.InDelta(t, 0.9, tbl.Confidence, 0.001)
}

func TestTableExtractorAmountsAndCalculations(t *testing.T) {
	extractor := NewTableExtractor(rules.Default())

	res, err := extractor.Analyze(context.Background(), tableRequest(models.TextChunk{
		ChunkID: "c1",
		Text:    "Position | Beschreibung | Preis\n1 | Beratung | 500,00 €\n2 | Umsetzung | 1.200,00 €",
		Score:   1.0,
	}))
	require.NoError(t, err)

	data := res.Data.(*TableExtractorData)
	require.Len(t, data.Amounts, 2)
	assert.InDelta(t, 500.00, data.Amounts[0].Value, 0.001)
	assert.InDelta(t, 1200.00, data.Amounts[1].Value, 0.001)
	assert.Equal(t, "EUR", data.Amounts[0].Currency)

	assert.InDelta(t, 1700.00, data.Calculations["total_eur"], 0.001)
	assert.InDelta(t, 850.00, data.Calculations["average_eur"], 0.001)
}

func TestTableExtractorIndicatorGate(t *testing.T) {
	extractor := NewTableExtractor(rules.Default())

	res, err := extractor.Analyze(context.Background(), tableRequest(models.TextChunk{
		ChunkID: "c1",
		Text:    "Die Vertragsparteien vereinbaren eine vertrauensvolle Zusammenarbeit.",
		Score:   1.0,
	}))
	require.NoError(t, err)

	data := res.Data.(*TableExtractorData)
	assert.Empty(t, data.Tables)
	assert.Empty(t, data.Amounts)
}

func TestTableExtractorIndicatorCoverage(t *testing.T) {
	extractor := NewTableExtractor(rules.Default())

	tests := []struct {
		text string
		want bool
	}{
		{"Position | Beschreibung | Preis", true},
		{"Der Zinssatz beträgt 5,5 %", true},
		{"Die Vergütung wird pro Stunde abgerechnet", true},
		{"Der Verzugszins liegt bei zwei Prozent über dem Basiszinssatz", true},
		{"Die Parteien vereinbaren Vertraulichkeit.", false},
	}

	for _, tc := range tests {
		t.Run(tc.text, func(t *testing.T) {
			assert.Equal(t, tc.want, extractor.hasIndicator(tc.text))
		})
	}
}

func TestTableExtractorFinancialDataOutsideTables(t *testing.T) {
	extractor := NewTableExtractor(rules.Default())

	// running prose without any tabular structure still yields its
	// percentages and amounts
	res, err := extractor.Analyze(context.Background(), tableRequest(
		models.TextChunk{ChunkID: "c1", Text: "Der Zinssatz erhöht sich um 5,5 % jährlich.", Score: 1.0},
		models.TextChunk{ChunkID: "c2", Text: "Bei Verzug zahlt der Auftragnehmer eine Strafe von 5000 Euro.", Score: 0.9},
	))
	require.NoError(t, err)

	data := res.Data.(*TableExtractorData)
	assert.Empty(t, data.Tables)

	require.Len(t, data.Percentages, 1)
	assert.InDelta(t, 5.5, data.Percentages[0].Value, 0.001)

	require.Len(t, data.Amounts, 1)
	assert.InDelta(t, 5000, data.Amounts[0].Value, 0.001)
	assert.Equal(t, "EUR", data.Amounts[0].Currency)
}

func TestTableExtractorNumberedList(t *testing.T) {
	extractor := NewTableExtractor(rules.Default())

	res, err := extractor.Analyze(context.Background(), tableRequest(models.TextChunk{
		ChunkID: "c1",
		Text:    "1. Anzahlung 1.000,00 €\n2. Zwischenrechnung 2.000,00 €\n3. Schlussrechnung 3.000,00 €",
		Score:   1.0,
	}))
	require.NoError(t, err)

	data := res.Data.(*TableExtractorData)
	require.NotEmpty(t, data.Tables)

	var numbered *ExtractedTable
	for i := range data.Tables {
		if data.Tables[i].Type == TableNumberedList {
			numbered = &data.Tables[i]
		}
	}
	require.NotNil(t, numbered)
	assert.Equal(t, []string{"Position", "Inhalt"}, numbered.Headers)
	assert.Len(t, numbered.Rows, 3)
	assert.InDelta(t, 0.7, numbered.Confidence, 0.001)
}

func TestTableExtractorKeyValue(t *testing.T) {
	extractor := NewTableExtractor(rules.Default())

	res, err := extractor.Analyze(context.Background(), tableRequest(models.TextChunk{
		ChunkID: "c1",
		Text:    "Vertragsbeginn: 01.01.2024\nLaufzeit: 24 Monate\nMonatsrate: 99,00 €",
		Score:   1.0,
	}))
	require.NoError(t, err)

	data := res.Data.(*TableExtractorData)

	var kv *ExtractedTable
	for i := range data.Tables {
		if data.Tables[i].Type == TableKeyValue {
			kv = &data.Tables[i]
		}
	}
	require.NotNil(t, kv)
	assert.Equal(t, []string{"Eigenschaft", "Wert"}, kv.Headers)
	require.Len(t, kv.Rows, 3)
	assert.Equal(t, []string{"Vertragsbeginn", "01.01.2024"}, kv.Rows[0])
}

func TestTableExtractorRates(t *testing.T) {
	extractor := NewTableExtractor(rules.Default())

	res, err := extractor.Analyze(context.Background(), tableRequest(models.TextChunk{
		ChunkID: "c1",
		Text:    "Der Stundensatz beträgt 120 € pro Stunde zuzüglich Umsatzsteuer.",
		Score:   1.0,
	}))
	require.NoError(t, err)

	data := res.Data.(*TableExtractorData)
	require.Len(t, data.Rates, 1)
	assert.InDelta(t, 120, data.Rates[0].Value, 0.001)
	assert.Equal(t, "stunde", data.Rates[0].Unit)
}

func TestTableExtractorHighValueRisk(t *testing.T) {
	extractor := NewTableExtractor(rules.Default())

	res, err := extractor.Analyze(context.Background(), tableRequest(models.TextChunk{
		ChunkID: "c1",
		Text:    "Gesamtsumme: 25.000,00 € zuzüglich 19 % Umsatzsteuer.",
		Score:   1.0,
	}))
	require.NoError(t, err)

	types := map[string]bool{}
	for _, r := range res.Insights.Risks {
		types[r.Type] = true
	}
	assert.True(t, types["high_value"])
	assert.True(t, types["high_percentage"])
}

func TestTableExtractorDataQualityBounds(t *testing.T) {
	extractor := NewTableExtractor(rules.Default())

	res, err := extractor.Analyze(context.Background(), tableRequest(models.TextChunk{
		ChunkID: "c1",
		Text:    "Preis: 100,00 €\nRabatt: 5 %\nSumme: 95,00 €",
		Score:   1.0,
	}))
	require.NoError(t, err)

	data := res.Data.(*TableExtractorData)
	assert.GreaterOrEqual(t, data.Analysis.DataQuality, 0.0)
	assert.LessOrEqual(t, data.Analysis.DataQuality, 1.0)
	assert.NotEmpty(t, data.Summary)
}

func TestTableExtractorPricingPattern(t *testing.T) {
	extractor := NewTableExtractor(rules.Default())

	res, err := extractor.Analyze(context.Background(), tableRequest(models.TextChunk{
		ChunkID: "c1",
		Text:    "Position | Preis\nBeratung | 500,00 €\nSchulung | 500,00 €",
		Score:   1.0,
	}))
	require.NoError(t, err)

	data := res.Data.(*TableExtractorData)
	assert.Contains(t, data.Analysis.DetectedPattern, "pricing_structure")
}

func TestTableExtractorHealthCheck(t *testing.T) {
	extractor := NewTableExtractor(rules.Default())

	report := extractor.HealthCheck()
	assert.Equal(t, models.HealthStatusHealthy, report.Status)
	assert.True(t, report.TestResult)
}
