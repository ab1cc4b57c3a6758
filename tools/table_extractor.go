package tools

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"lexlens-backend/models"
	"lexlens-backend/rules"
)

// Table shape identifiers
const (
	TablePipe         = "pipe"
	TableTab          = "tab"
	TableNumberedList = "numbered_list"
	TableKeyValue     = "key_value"
)

// TableExtractor reconstructs tabular structures and financial data from
// retrieved contract text.
type TableExtractor struct {
	rules *rules.Set
}

// NewTableExtractor creates a table extractor on the given rule set
func NewTableExtractor(ruleSet *rules.Set) *TableExtractor {
	return &TableExtractor{rules: ruleSet}
}

// ExtractedTable is one reconstructed table
type ExtractedTable struct {
	Type       string     `json:"type"`
	Headers    []string   `json:"headers"`
	Rows       [][]string `json:"rows"`
	Confidence float64    `json:"confidence"`
	Page       int        `json:"page"`
	ChunkID    string     `json:"chunk_id"`
}

// ExtractedAmount is one monetary amount with its parsed value
type ExtractedAmount struct {
	Raw      string  `json:"raw"`
	Value    float64 `json:"value"`
	Currency string  `json:"currency"`
	Parsed   bool    `json:"parsed"`
	Page     int     `json:"page"`
	ChunkID  string  `json:"chunk_id"`
}

// ExtractedPercentage is one percentage value
type ExtractedPercentage struct {
	Raw     string  `json:"raw"`
	Value   float64 `json:"value"`
	Page    int     `json:"page"`
	ChunkID string  `json:"chunk_id"`
}

// ExtractedRate is one per-unit rate (e.g. 120 € pro Stunde)
type ExtractedRate struct {
	Raw     string  `json:"raw"`
	Value   float64 `json:"value"`
	Unit    string  `json:"unit"`
	Page    int     `json:"page"`
	ChunkID string  `json:"chunk_id"`
}

// AmountStats summarizes the parsed amounts
type AmountStats struct {
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Sum     float64 `json:"sum"`
	Average float64 `json:"average"`
}

// TableAnalysis is the derived overview of all extracted data
type TableAnalysis struct {
	TableCounts     map[string]int `json:"table_counts"`
	DataQuality     float64        `json:"data_quality"`
	AmountStats     *AmountStats   `json:"amount_stats,omitempty"`
	PercentageMin   float64        `json:"percentage_min,omitempty"`
	PercentageMax   float64        `json:"percentage_max,omitempty"`
	Currencies      []string       `json:"currencies"`
	DetectedPattern []string       `json:"detected_patterns"`
}

// TableExtractorData is the extractor's result payload
type TableExtractorData struct {
	Tables       []ExtractedTable      `json:"tables"`
	Amounts      []ExtractedAmount     `json:"amounts"`
	Percentages  []ExtractedPercentage `json:"percentages"`
	Rates        []ExtractedRate       `json:"rates"`
	Calculations map[string]float64    `json:"calculations"`
	Analysis     TableAnalysis         `json:"analysis"`
	Summary      string                `json:"summary"`
}

// Name implements Analyzer
func (t *TableExtractor) Name() string { return "table_extractor" }

// Analyze implements Analyzer
func (t *TableExtractor) Analyze(ctx context.Context, req *models.RequestContext) (*Result, error) {
	data := &TableExtractorData{Calculations: map[string]float64{}}

	for _, chunk := range req.Chunks() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		// table reconstruction only runs on chunks that look tabular;
		// financial data is extracted from every chunk
		if t.hasIndicator(chunk.Text) {
			data.Tables = append(data.Tables, t.extractTables(&chunk)...)
		}
		data.Amounts = append(data.Amounts, t.extractAmounts(&chunk)...)
		data.Percentages = append(data.Percentages, t.extractPercentages(&chunk)...)
		data.Rates = append(data.Rates, t.extractRates(&chunk)...)
	}

	t.calculate(data)
	data.Analysis = t.analyze(data)
	data.Summary = t.summarize(data, req.UserMode)

	return &Result{
		Data:      data,
		Insights:  t.insights(data),
		Citations: t.citations(data),
		Extra: map[string]interface{}{
			"tables_found":  len(data.Tables),
			"amounts_found": len(data.Amounts),
		},
	}, nil
}

func (t *TableExtractor) hasIndicator(text string) bool {
	for _, re := range t.rules.Table.Indicators {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

// extractTables tries the four supported shapes in order of structural
// confidence; a chunk can yield tables of several shapes
func (t *TableExtractor) extractTables(chunk *models.TextChunk) []ExtractedTable {
	var out []ExtractedTable
	if tbl, ok := t.pipeTable(chunk); ok {
		out = append(out, tbl)
	}
	if tbl, ok := t.tabTable(chunk); ok {
		out = append(out, tbl)
	}
	if tbl, ok := t.numberedList(chunk); ok {
		out = append(out, tbl)
	}
	if tbl, ok := t.keyValueTable(chunk); ok {
		out = append(out, tbl)
	}
	return out
}

func (t *TableExtractor) pipeTable(chunk *models.TextChunk) (ExtractedTable, bool) {
	var rows [][]string
	for _, line := range strings.Split(chunk.Text, "\n") {
		if !strings.Contains(line, "|") {
			continue
		}
		cells := splitCells(line, "|")
		if len(cells) < 2 {
			continue
		}
		rows = append(rows, cells)
	}
	if len(rows) < 2 {
		return ExtractedTable{}, false
	}
	return ExtractedTable{
		Type:       TablePipe,
		Headers:    rows[0],
		Rows:       rows[1:],
		Confidence: 0.9,
		Page:       chunk.Page(),
		ChunkID:    chunk.ChunkID,
	}, true
}

func (t *TableExtractor) tabTable(chunk *models.TextChunk) (ExtractedTable, bool) {
	var rows [][]string
	for _, line := range strings.Split(chunk.Text, "\n") {
		if !strings.Contains(line, "\t") {
			continue
		}
		cells := splitCells(line, "\t")
		if len(cells) <= 2 {
			continue
		}
		rows = append(rows, cells)
	}
	if len(rows) < 2 {
		return ExtractedTable{}, false
	}
	return ExtractedTable{
		Type:       TableTab,
		Headers:    rows[0],
		Rows:       rows[1:],
		Confidence: 0.8,
		Page:       chunk.Page(),
		ChunkID:    chunk.ChunkID,
	}, true
}

func (t *TableExtractor) numberedList(chunk *models.TextChunk) (ExtractedTable, bool) {
	matches := t.rules.Table.NumberedItem.FindAllStringSubmatch(chunk.Text, -1)
	if len(matches) < 3 {
		return ExtractedTable{}, false
	}
	rows := make([][]string, 0, len(matches))
	for i, m := range matches {
		content := strings.TrimSpace(m[2])
		row := []string{strconv.Itoa(i + 1), content}
		if am := t.rules.Table.Amount.FindString(content); am != "" {
			row = append(row, am)
		}
		if pc := t.rules.Table.Percentage.FindString(content); pc != "" {
			row = append(row, pc)
		}
		rows = append(rows, row)
	}
	return ExtractedTable{
		Type:       TableNumberedList,
		Headers:    []string{"Position", "Inhalt"},
		Rows:       rows,
		Confidence: 0.7,
		Page:       chunk.Page(),
		ChunkID:    chunk.ChunkID,
	}, true
}

func (t *TableExtractor) keyValueTable(chunk *models.TextChunk) (ExtractedTable, bool) {
	matches := t.rules.Table.KeyValueLine.FindAllStringSubmatch(chunk.Text, -1)
	if len(matches) < 3 {
		return ExtractedTable{}, false
	}
	rows := make([][]string, 0, len(matches))
	for _, m := range matches {
		rows = append(rows, []string{strings.TrimSpace(m[1]), strings.TrimSpace(m[2])})
	}
	return ExtractedTable{
		Type:       TableKeyValue,
		Headers:    []string{"Eigenschaft", "Wert"},
		Rows:       rows,
		Confidence: 0.6,
		Page:       chunk.Page(),
		ChunkID:    chunk.ChunkID,
	}, true
}

func splitCells(line, sep string) []string {
	var cells []string
	for _, c := range strings.Split(line, sep) {
		c = strings.TrimSpace(c)
		if c != "" {
			cells = append(cells, c)
		}
	}
	return cells
}

func (t *TableExtractor) extractAmounts(chunk *models.TextChunk) []ExtractedAmount {
	var out []ExtractedAmount
	for _, m := range t.rules.Table.Amount.FindAllStringSubmatch(chunk.Text, -1) {
		value, ok := ParseAmount(m[1])
		out = append(out, ExtractedAmount{
			Raw:      m[0],
			Value:    value,
			Currency: t.rules.Table.NormalizeCurrency(m[2]),
			Parsed:   ok,
			Page:     chunk.Page(),
			ChunkID:  chunk.ChunkID,
		})
	}
	return out
}

func (t *TableExtractor) extractPercentages(chunk *models.TextChunk) []ExtractedPercentage {
	var out []ExtractedPercentage
	for _, m := range t.rules.Table.Percentage.FindAllStringSubmatch(chunk.Text, -1) {
		value, ok := ParseAmount(m[1])
		if !ok {
			continue
		}
		out = append(out, ExtractedPercentage{
			Raw:     m[0],
			Value:   value,
			Page:    chunk.Page(),
			ChunkID: chunk.ChunkID,
		})
	}
	return out
}

func (t *TableExtractor) extractRates(chunk *models.TextChunk) []ExtractedRate {
	var out []ExtractedRate
	for _, m := range t.rules.Table.Rate.FindAllStringSubmatch(chunk.Text, -1) {
		value, ok := ParseAmount(m[1])
		if !ok {
			continue
		}
		out = append(out, ExtractedRate{
			Raw:     m[0],
			Value:   value,
			Unit:    strings.ToLower(m[2]),
			Page:    chunk.Page(),
			ChunkID: chunk.ChunkID,
		})
	}
	return out
}

// ParseAmount converts a localized number literal ("1.200,00", "10,000",
// "500.00") to its numeric value. It decides the decimal separator from
// the rightmost of '.' and ',' and treats the other as grouping.
func ParseAmount(raw string) (float64, bool) {
	var b strings.Builder
	for _, r := range raw {
		if (r >= '0' && r <= '9') || r == '.' || r == ',' {
			b.WriteRune(r)
		}
	}
	s := b.String()
	if s == "" {
		return 0, false
	}

	lastDot := strings.LastIndex(s, ".")
	lastComma := strings.LastIndex(s, ",")

	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastComma > lastDot {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case lastComma >= 0:
		if strings.Count(s, ",") == 1 && len(s)-lastComma-1 <= 2 {
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case lastDot >= 0:
		// a lone dot followed by exactly three digits is a thousands
		// separator ("1.200"), not a decimal point
		if strings.Count(s, ".") > 1 || len(s)-lastDot-1 == 3 {
			s = strings.ReplaceAll(s, ".", "")
		}
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// calculate fills per-currency totals and averages
func (t *TableExtractor) calculate(data *TableExtractorData) {
	sums := make(map[string]float64)
	counts := make(map[string]int)
	for _, a := range data.Amounts {
		if !a.Parsed {
			continue
		}
		sums[a.Currency] += a.Value
		counts[a.Currency]++
	}
	for cur, sum := range sums {
		data.Calculations["total_"+strings.ToLower(cur)] = round2(sum)
		data.Calculations["average_"+strings.ToLower(cur)] = round2(sum / float64(counts[cur]))
	}
}

func (t *TableExtractor) analyze(data *TableExtractorData) TableAnalysis {
	a := TableAnalysis{TableCounts: map[string]int{}, Currencies: []string{}}

	confSum := 0.0
	for _, tbl := range data.Tables {
		a.TableCounts[tbl.Type]++
		confSum += tbl.Confidence
	}

	unparseable := false
	currencySet := make(map[string]bool)
	var stats *AmountStats
	for _, am := range data.Amounts {
		currencySet[am.Currency] = true
		if !am.Parsed {
			unparseable = true
			continue
		}
		if stats == nil {
			stats = &AmountStats{Min: am.Value, Max: am.Value}
		}
		if am.Value < stats.Min {
			stats.Min = am.Value
		}
		if am.Value > stats.Max {
			stats.Max = am.Value
		}
		stats.Sum += am.Value
	}
	if stats != nil {
		parsed := 0
		for _, am := range data.Amounts {
			if am.Parsed {
				parsed++
			}
		}
		stats.Sum = round2(stats.Sum)
		stats.Average = round2(stats.Sum / float64(parsed))
		a.AmountStats = stats
	}
	for cur := range currencySet {
		a.Currencies = append(a.Currencies, cur)
	}
	sort.Strings(a.Currencies)

	if len(data.Percentages) > 0 {
		a.PercentageMin = data.Percentages[0].Value
		a.PercentageMax = data.Percentages[0].Value
		for _, p := range data.Percentages[1:] {
			if p.Value < a.PercentageMin {
				a.PercentageMin = p.Value
			}
			if p.Value > a.PercentageMax {
				a.PercentageMax = p.Value
			}
		}
	}

	quality := 0.5
	if len(data.Tables) > 0 {
		quality += (confSum / float64(len(data.Tables))) * 0.3
	}
	if unparseable {
		quality -= 0.2
	}
	a.DataQuality = clamp(quality, 0, 1.0)

	a.DetectedPattern = t.detectPatterns(data)
	return a
}

func (t *TableExtractor) detectPatterns(data *TableExtractorData) []string {
	var patterns []string

	pricing := false
	for _, tbl := range data.Tables {
		for _, h := range tbl.Headers {
			lh := strings.ToLower(h)
			if strings.Contains(lh, "preis") || strings.Contains(lh, "price") ||
				strings.Contains(lh, "betrag") || strings.Contains(lh, "amount") ||
				strings.Contains(lh, "kosten") || strings.Contains(lh, "cost") {
				pricing = true
			}
		}
	}
	if pricing {
		patterns = append(patterns, "pricing_structure")
	}

	unique := make(map[float64]bool)
	for _, am := range data.Amounts {
		if am.Parsed {
			unique[am.Value] = true
		}
	}
	if len(unique) > 0 && len(data.Amounts) > len(unique)*2 {
		patterns = append(patterns, "recurring_amounts")
	}

	if len(data.Percentages) > 2 {
		patterns = append(patterns, "percentage_based_fees")
	}
	return patterns
}

func (t *TableExtractor) summarize(data *TableExtractorData, mode models.UserMode) string {
	switch mode {
	case models.ModeLayperson:
		return fmt.Sprintf("Im Dokument wurden %d Tabelle(n) und %d Geldbetrag/-beträge gefunden. Die wichtigsten Zahlen sind unten aufgelistet.",
			len(data.Tables), len(data.Amounts))
	case models.ModeLegal:
		return fmt.Sprintf("Extraktion: %d tabellarische Struktur(en), %d Beträge, %d Prozentangaben, %d Sätze. Datenqualität %.2f.",
			len(data.Tables), len(data.Amounts), len(data.Percentages), len(data.Rates), data.Analysis.DataQuality)
	default:
		return fmt.Sprintf("%d Tabelle(n) und %d Beträge extrahiert; Summen und Durchschnitte je Währung unter calculations.",
			len(data.Tables), len(data.Amounts))
	}
}

func (t *TableExtractor) insights(data *TableExtractorData) *models.Insights {
	ins := &models.Insights{}

	for _, am := range data.Amounts {
		if !am.Parsed {
			continue
		}
		ins.Amounts = append(ins.Amounts, models.InsightAmount{
			Amount:   am.Value,
			Currency: am.Currency,
			Context:  am.Raw,
			Page:     am.Page,
		})
	}

	for _, am := range data.Amounts {
		if am.Parsed && am.Value > 10000 {
			ins.Risks = append(ins.Risks, models.Risk{
				Type:        "high_value",
				Description: fmt.Sprintf("Hoher Betrag gefunden: %s", am.Raw),
				Severity:    "medium",
				Page:        am.Page,
			})
		}
	}
	for _, p := range data.Percentages {
		if p.Value > 10 {
			ins.Risks = append(ins.Risks, models.Risk{
				Type:        "high_percentage",
				Description: fmt.Sprintf("Hoher Prozentsatz gefunden: %s", p.Raw),
				Severity:    "medium",
				Page:        p.Page,
			})
		}
	}
	return ins
}

func (t *TableExtractor) citations(data *TableExtractorData) []models.Citation {
	var out []models.Citation
	for _, tbl := range data.Tables {
		out = append(out, models.Citation{
			ChunkID:    tbl.ChunkID,
			Text:       fmt.Sprintf("%s mit %d Einträgen", tbl.Type, len(tbl.Rows)),
			Page:       tbl.Page,
			Type:       "table",
			Confidence: tbl.Confidence,
		})
	}
	added := 0
	for _, am := range data.Amounts {
		if !am.Parsed || am.Value <= 1000 || added >= 5 {
			continue
		}
		out = append(out, models.Citation{
			ChunkID: am.ChunkID,
			Text:    am.Raw,
			Page:    am.Page,
			Type:    "amount",
		})
		added++
	}
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// HealthCheck implements Analyzer
func (t *TableExtractor) HealthCheck() *models.HealthReport {
	req := &models.RequestContext{
		Question: "Welche Kosten stehen im Vertrag?",
		RetrievalResults: &models.RetrievalResults{
			Results: []models.TextChunk{{
				ChunkID: "health-1",
				Text:    "Position | Beschreibung | Preis\n1 | Beratung | 500,00 €\n2 | Umsetzung | 1.200,00 €",
				Score:   1.0,
				Spans:   models.Span{PageStart: 1},
			}},
		},
	}

	patterns := len(t.rules.Table.Indicators) + 3

	res, err := t.Analyze(context.Background(), req)
	if err != nil {
		return &models.HealthReport{Status: models.HealthStatusUnhealthy, PatternsLoaded: patterns, Error: err.Error()}
	}
	data, _ := res.Data.(*TableExtractorData)
	ok := data != nil && len(data.Tables) > 0 && len(data.Amounts) >= 2
	status := models.HealthStatusHealthy
	if !ok {
		status = models.HealthStatusUnhealthy
	}
	return &models.HealthReport{Status: status, PatternsLoaded: patterns, TestResult: ok}
}
