package tools

import (
	"context"
	"sort"
	"strings"

	"lexlens-backend/models"
	"lexlens-backend/rules"
)

// ClauseFinder locates clauses of known types in retrieved contract text
// and scores how well each finding answers the user's question.
type ClauseFinder struct {
	rules *rules.Set
}

// NewClauseFinder creates a clause finder on the given rule set
func NewClauseFinder(ruleSet *rules.Set) *ClauseFinder {
	return &ClauseFinder{rules: ruleSet}
}

// ClauseFinding is one located clause
type ClauseFinding struct {
	ClauseType string   `json:"clause_type"`
	Confidence float64  `json:"confidence"`
	Text       string   `json:"text"`
	Page       int      `json:"page"`
	ChunkID    string   `json:"chunk_id"`
	Dates      []string `json:"dates,omitempty"`
	Amounts    []string `json:"amounts,omitempty"`
	Timeframes []string `json:"timeframes,omitempty"`
	KeyTerms   []string `json:"key_terms,omitempty"`
}

// ClauseFinderData is the clause finder's result payload
type ClauseFinderData struct {
	Findings    []ClauseFinding `json:"findings"`
	ClauseTypes []string        `json:"clause_types_found"`
	Explanation string          `json:"explanation,omitempty"`
}

// Name implements Analyzer
func (t *ClauseFinder) Name() string { return "clause_finder" }

// Analyze implements Analyzer
func (t *ClauseFinder) Analyze(ctx context.Context, req *models.RequestContext) (*Result, error) {
	chunks := append([]models.TextChunk(nil), req.Chunks()...)
	sort.SliceStable(chunks, func(i, j int) bool { return chunks[i].Score > chunks[j].Score })

	findings := make([]ClauseFinding, 0, len(chunks))
	typesSeen := make(map[string]bool)
	var keyTerms []string
	var risks []models.Risk

	for i := range chunks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		chunk := &chunks[i]
		f, ok := t.analyzeChunk(chunk, req.Question)
		if !ok {
			continue
		}
		findings = append(findings, f)
		typesSeen[f.ClauseType] = true
		keyTerms = append(keyTerms, f.KeyTerms...)
		risks = append(risks, t.risksFromTerms(f.KeyTerms, chunk.Page())...)
	}

	clauseTypes := make([]string, 0, len(typesSeen))
	for _, f := range findings {
		if typesSeen[f.ClauseType] {
			clauseTypes = append(clauseTypes, f.ClauseType)
			typesSeen[f.ClauseType] = false
		}
	}

	data := &ClauseFinderData{
		Findings:    findings,
		ClauseTypes: clauseTypes,
	}
	if len(findings) > 0 {
		data.Explanation = t.explain(rules.ClauseType(findings[0].ClauseType), req.UserMode)
	}

	citations := make([]models.Citation, 0, len(findings))
	for _, f := range findings {
		citations = append(citations, models.Citation{
			ChunkID:    f.ChunkID,
			Text:       f.Text,
			Page:       f.Page,
			Type:       "clause",
			Confidence: f.Confidence,
		})
	}

	insights := &models.Insights{
		KeyTerms: dedupStrings(keyTerms),
		Risks:    risks,
	}

	return &Result{
		Data:      data,
		Insights:  insights,
		Citations: citations,
		Extra: map[string]interface{}{
			"chunks_analyzed": len(chunks),
		},
	}, nil
}

// analyzeChunk evaluates all clause types against one chunk and keeps
// the single highest-confidence match
func (t *ClauseFinder) analyzeChunk(chunk *models.TextChunk, question string) (ClauseFinding, bool) {
	best := ClauseFinding{}
	found := false

	for i := range t.rules.Clause.Definitions {
		def := &t.rules.Clause.Definitions[i]
		if !def.Matches(chunk.Text) {
			continue
		}
		conf := t.confidence(def, chunk.Text, question)
		if !found || conf > best.Confidence {
			found = true
			best = ClauseFinding{
				ClauseType: string(def.Type),
				Confidence: conf,
				Text:       truncate(chunk.Text, 300),
				Page:       chunk.Page(),
				ChunkID:    chunk.ChunkID,
			}
		}
	}
	if !found {
		return best, false
	}

	best.Dates = matchAll(t.rules.Clause.DatePatterns, chunk.Text)
	best.Amounts = matchAll(t.rules.Clause.AmountPatterns, chunk.Text)
	best.Timeframes = matchAll(t.rules.Clause.TimeframePatterns, chunk.Text)
	best.KeyTerms = t.keyTerms(rules.ClauseType(best.ClauseType), chunk.Text)
	return best, true
}

// confidence starts at 0.5, adds 0.3 when the clause type also matches
// the question, and 0.1 per contextual keyword found in the text
func (t *ClauseFinder) confidence(def *rules.ClauseDefinition, text, question string) float64 {
	conf := 0.5
	if question != "" && def.Matches(question) {
		conf += 0.3
	}
	for _, kw := range t.rules.Clause.ContextKeywords[def.Type] {
		if kw.MatchString(text) {
			conf += 0.1
		}
	}
	return clamp(conf, 0, 1.0)
}

func (t *ClauseFinder) keyTerms(clauseType rules.ClauseType, text string) []string {
	terms := matchAll(t.rules.Clause.GeneralTerms, text)
	terms = append(terms, matchAll(t.rules.Clause.SpecificTerms[clauseType], text)...)
	return dedupStrings(terms)
}

// risksFromTerms flags key terms that indicate contractual risk
func (t *ClauseFinder) risksFromTerms(terms []string, page int) []models.Risk {
	var out []models.Risk
	for _, term := range terms {
		for _, risky := range t.rules.Clause.RiskTerms {
			if strings.Contains(term, risky) {
				out = append(out, models.Risk{
					Type:        "contractual_risk",
					Description: "Risikorelevante Formulierung gefunden: " + term,
					Severity:    "medium",
					Page:        page,
				})
				break
			}
		}
	}
	return out
}

func (t *ClauseFinder) explain(clauseType rules.ClauseType, mode models.UserMode) string {
	byMode, ok := t.rules.Clause.Explanations[clauseType]
	if !ok {
		return ""
	}
	if text, ok := byMode[mode]; ok {
		return text
	}
	return byMode[models.ModeBusiness]
}

// HealthCheck implements Analyzer
func (t *ClauseFinder) HealthCheck() *models.HealthReport {
	req := &models.RequestContext{
		Question: "Wie kann ich kündigen?",
		RetrievalResults: &models.RetrievalResults{
			Results: []models.TextChunk{{
				ChunkID: "health-1",
				Text:    "Die Kündigung muss schriftlich erfolgen.",
				Score:   1.0,
				Spans:   models.Span{PageStart: 1},
			}},
		},
		UserMode: models.ModeBusiness,
	}

	patterns := 0
	for i := range t.rules.Clause.Definitions {
		patterns += len(t.rules.Clause.Definitions[i].German) + len(t.rules.Clause.Definitions[i].English)
	}

	res, err := t.Analyze(context.Background(), req)
	if err != nil {
		return &models.HealthReport{Status: models.HealthStatusUnhealthy, PatternsLoaded: patterns, Error: err.Error()}
	}
	data, _ := res.Data.(*ClauseFinderData)
	ok := data != nil && len(data.Findings) > 0 && data.Findings[0].ClauseType == string(rules.ClauseTermination)
	status := models.HealthStatusHealthy
	if !ok {
		status = models.HealthStatusUnhealthy
	}
	return &models.HealthReport{Status: status, PatternsLoaded: patterns, TestResult: ok}
}
