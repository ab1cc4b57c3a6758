package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"sort"
	"strings"

	"lexlens-backend/models"
	"lexlens-backend/rules"
)

// Redliner analyzes clause quality and proposes improved wording. Pattern
// analysis always runs; a text generator, when configured, contributes
// rewrite suggestions for the worst sections and canned suggestions take
// over whenever generation fails.
type Redliner struct {
	rules     *rules.Set
	generator TextGenerator
}

// RedlinerOption configures the redliner
type RedlinerOption func(*Redliner)

// RedlinerWithGenerator injects the text generator used for rewrite
// suggestions
func RedlinerWithGenerator(g TextGenerator) RedlinerOption {
	return func(r *Redliner) { r.generator = g }
}

// NewRedliner creates a redliner on the given rule set
func NewRedliner(ruleSet *rules.Set, opts ...RedlinerOption) *Redliner {
	r := &Redliner{rules: ruleSet}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RedlineIssue is one detected drafting problem in a section
type RedlineIssue struct {
	Type     string `json:"type"`
	Severity string `json:"severity"`
	Count    int    `json:"count"`
}

// SectionAnalysis is the quality assessment of one chunk
type SectionAnalysis struct {
	ChunkID      string         `json:"chunk_id"`
	Page         int            `json:"page"`
	Preview      string         `json:"preview"`
	Issues       []RedlineIssue `json:"issues"`
	ClarityScore float64        `json:"clarity_score"`
}

// Suggestion is one proposed improvement
type Suggestion struct {
	Type       string  `json:"type"` // "clarity" or "risk"
	Priority   string  `json:"priority"`
	Original   string  `json:"original"`
	Improved   string  `json:"improved"`
	Reasoning  string  `json:"reasoning,omitempty"`
	Source     string  `json:"source"` // "ai" or "pattern"
	Confidence float64 `json:"confidence"`
	ChunkID    string  `json:"chunk_id"`
	Page       int     `json:"page"`
}

// ImplementationPhase groups suggestions into a rollout step
type ImplementationPhase struct {
	Phase    int      `json:"phase"`
	Title    string   `json:"title"`
	Items    []string `json:"items"`
	Duration string   `json:"duration"`
}

// ImplementationGuide estimates the rollout of all suggestions
type ImplementationGuide struct {
	Phases           []ImplementationPhase `json:"phases"`
	TotalEffortHours int                   `json:"total_effort_hours"`
	BusinessDays     int                   `json:"business_days"`
	Note             string                `json:"note,omitempty"`
}

// RiskReduction estimates the effect of applying all suggestions
type RiskReduction struct {
	Points     int     `json:"points"`
	Percentage float64 `json:"percentage"`
	Level      string  `json:"level"`
}

// RedlinerData is the redliner's result payload
type RedlinerData struct {
	Sections      []SectionAnalysis   `json:"sections"`
	Suggestions   []Suggestion        `json:"suggestions"`
	Guide         ImplementationGuide `json:"implementation_guide"`
	RiskReduction RiskReduction       `json:"risk_reduction"`
}

// Name implements Analyzer
func (t *Redliner) Name() string { return "redliner" }

// Analyze implements Analyzer
func (t *Redliner) Analyze(ctx context.Context, req *models.RequestContext) (*Result, error) {
	var sections []SectionAnalysis
	var suggestions []Suggestion

	for _, chunk := range req.Chunks() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		sec, ok := t.analyzeSection(&chunk)
		if !ok {
			continue
		}
		sections = append(sections, sec)
		suggestions = append(suggestions, t.patternSuggestions(&sec)...)
	}

	// worst sections first for generation
	ranked := append([]SectionAnalysis(nil), sections...)
	sort.SliceStable(ranked, func(i, j int) bool { return issueCount(ranked[i]) > issueCount(ranked[j]) })
	if len(ranked) > 3 {
		ranked = ranked[:3]
	}
	for i := range ranked {
		suggestions = append(suggestions, t.generatedSuggestions(ctx, &ranked[i])...)
	}

	sortSuggestions(suggestions)

	data := &RedlinerData{
		Sections:      sections,
		Suggestions:   suggestions,
		Guide:         buildGuide(suggestions),
		RiskReduction: buildRiskReduction(suggestions),
	}

	return &Result{
		Data:      data,
		Insights:  t.insights(sections, suggestions),
		Citations: t.citations(suggestions),
		Extra: map[string]interface{}{
			"sections_analyzed": len(sections),
		},
	}, nil
}

// analyzeSection scores one chunk; chunks without any issue are skipped
func (t *Redliner) analyzeSection(chunk *models.TextChunk) (SectionAnalysis, bool) {
	var issues []RedlineIssue

	vagueCount := t.rules.Redline.Vague.CountMatches(chunk.Text)
	vagueness := math.Min(1.0, float64(vagueCount)*0.2)
	if vagueCount > 0 {
		issues = append(issues, RedlineIssue{Type: rules.IssueVagueLanguage, Severity: "medium", Count: vagueCount})
	}

	if n := t.rules.Redline.Onesided.CountMatches(chunk.Text); n > 0 {
		issues = append(issues, RedlineIssue{Type: rules.IssueOnesidedTerms, Severity: "high", Count: n})
	}
	if n := t.rules.Redline.Unlimited.CountMatches(chunk.Text); n > 0 {
		issues = append(issues, RedlineIssue{Type: rules.IssueUnlimitedLiability, Severity: "high", Count: n})
	}

	riskCount := 0
	for _, re := range t.rules.Redline.RiskTerms {
		riskCount += len(re.FindAllStringIndex(chunk.Text, -1))
	}
	if riskCount > 0 {
		issues = append(issues, RedlineIssue{Type: rules.IssueLiabilityExclusion, Severity: "high", Count: riskCount})
	}

	if len(issues) == 0 {
		return SectionAnalysis{}, false
	}

	clarity := 0.8
	if averageSentenceLength(chunk.Text) > 25 {
		clarity -= 0.3
	}
	clarity -= vagueness
	if clarity < 0 {
		clarity = 0
	}

	return SectionAnalysis{
		ChunkID:      chunk.ChunkID,
		Page:         chunk.Page(),
		Preview:      truncate(chunk.Text, 300),
		Issues:       issues,
		ClarityScore: clarity,
	}, true
}

func averageSentenceLength(text string) float64 {
	sentences := 0
	words := len(strings.Fields(text))
	for _, r := range text {
		if r == '.' || r == '!' || r == '?' {
			sentences++
		}
	}
	if sentences == 0 {
		sentences = 1
	}
	return float64(words) / float64(sentences)
}

func issueCount(s SectionAnalysis) int {
	n := 0
	for _, i := range s.Issues {
		n += i.Count
	}
	return n
}

// patternSuggestions produces one canned suggestion per improvement
// family present in the section
func (t *Redliner) patternSuggestions(sec *SectionAnalysis) []Suggestion {
	var out []Suggestion
	for _, fam := range t.rules.Redline.Families() {
		if !sectionHasIssue(sec, fam.Key) {
			continue
		}
		out = append(out, Suggestion{
			Type:       fam.Type,
			Priority:   fam.Priority,
			Original:   sec.Preview,
			Improved:   fam.Suggestion,
			Source:     SourcePattern,
			Confidence: 0.7,
			ChunkID:    sec.ChunkID,
			Page:       sec.Page,
		})
	}
	return out
}

func sectionHasIssue(sec *SectionAnalysis, key string) bool {
	for _, i := range sec.Issues {
		if i.Type == key {
			return true
		}
	}
	return false
}

// generatedSuggestions asks the text generator to rewrite a problematic
// section. Any failure, including malformed output, degrades to canned
// suggestions marked as pattern-sourced.
func (t *Redliner) generatedSuggestions(ctx context.Context, sec *SectionAnalysis) []Suggestion {
	if t.generator == nil {
		return t.fallbackSuggestions(sec)
	}

	systemPrompt := "Du bist ein erfahrener Vertragsjurist. Verbessere die folgende Vertragspassage. " +
		`Antworte ausschließlich mit JSON der Form {"suggestions":[{"type":"clarity|risk","priority":"high|medium|low","original":"...","improved":"...","reasoning":"..."}]}.`
	userPrompt := fmt.Sprintf("Vertragspassage (Seite %d):\n%s\n\nGefundene Probleme: %s",
		sec.Page, sec.Preview, issueSummary(sec))

	raw, err := t.generator.Generate(ctx, systemPrompt, userPrompt, GenerateOptions{Temperature: 0.2, MaxTokens: 1500})
	if err != nil {
		log.Printf("Warning: redline generation failed, using pattern suggestions: %v", err)
		return t.fallbackSuggestions(sec)
	}

	var parsed struct {
		Suggestions []struct {
			Type      string `json:"type"`
			Priority  string `json:"priority"`
			Original  string `json:"original"`
			Improved  string `json:"improved"`
			Reasoning string `json:"reasoning"`
		} `json:"suggestions"`
	}
	if err := json.Unmarshal([]byte(extractJSON(raw)), &parsed); err != nil || len(parsed.Suggestions) == 0 {
		log.Printf("Warning: redline generation returned unparseable output, using pattern suggestions")
		return t.fallbackSuggestions(sec)
	}

	out := make([]Suggestion, 0, len(parsed.Suggestions))
	for _, s := range parsed.Suggestions {
		out = append(out, Suggestion{
			Type:       s.Type,
			Priority:   s.Priority,
			Original:   s.Original,
			Improved:   s.Improved,
			Reasoning:  s.Reasoning,
			Source:     SourceAI,
			Confidence: 0.8,
			ChunkID:    sec.ChunkID,
			Page:       sec.Page,
		})
	}
	return out
}

// fallbackSuggestions are the canned replacements used when generation
// is unavailable
func (t *Redliner) fallbackSuggestions(sec *SectionAnalysis) []Suggestion {
	var out []Suggestion
	if sectionHasIssue(sec, rules.IssueVagueLanguage) {
		out = append(out, Suggestion{
			Type:       "clarity",
			Priority:   "medium",
			Original:   sec.Preview,
			Improved:   t.rules.Redline.Vague.Suggestion,
			Source:     SourcePattern,
			Confidence: 0.6,
			ChunkID:    sec.ChunkID,
			Page:       sec.Page,
		})
	}
	if sectionHasIssue(sec, rules.IssueOnesidedTerms) {
		out = append(out, Suggestion{
			Type:       "risk",
			Priority:   "high",
			Original:   sec.Preview,
			Improved:   t.rules.Redline.Onesided.Suggestion,
			Source:     SourcePattern,
			Confidence: 0.7,
			ChunkID:    sec.ChunkID,
			Page:       sec.Page,
		})
	}
	return out
}

func issueSummary(sec *SectionAnalysis) string {
	parts := make([]string, 0, len(sec.Issues))
	for _, i := range sec.Issues {
		parts = append(parts, fmt.Sprintf("%s (%dx)", i.Type, i.Count))
	}
	return strings.Join(parts, ", ")
}

// extractJSON strips markdown fences and surrounding prose from model
// output, keeping the outermost JSON object
func extractJSON(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return raw
	}
	return raw[start : end+1]
}

func priorityRank(p string) int {
	switch p {
	case "high":
		return 3
	case "medium":
		return 2
	default:
		return 1
	}
}

func sortSuggestions(s []Suggestion) {
	sort.SliceStable(s, func(i, j int) bool {
		if priorityRank(s[i].Priority) != priorityRank(s[j].Priority) {
			return priorityRank(s[i].Priority) > priorityRank(s[j].Priority)
		}
		return s[i].Confidence > s[j].Confidence
	})
}

func buildGuide(suggestions []Suggestion) ImplementationGuide {
	var high, medium, low []string
	effort := 0
	for _, s := range suggestions {
		switch s.Priority {
		case "high":
			high = append(high, s.Improved)
			effort += 4
		case "medium":
			medium = append(medium, s.Improved)
			effort += 2
		default:
			low = append(low, s.Improved)
			effort++
		}
	}

	var phases []ImplementationPhase
	if len(high) > 0 {
		phases = append(phases, ImplementationPhase{
			Phase: 1, Title: "Kritische Anpassungen", Items: capItems(high, 3), Duration: "1-2 Wochen",
		})
	}
	if len(medium) > 0 {
		phases = append(phases, ImplementationPhase{
			Phase: 2, Title: "Wichtige Verbesserungen", Items: capItems(medium, 5), Duration: "2-4 Wochen",
		})
	}
	if len(low) > 0 {
		phases = append(phases, ImplementationPhase{
			Phase: 3, Title: "Optionale Optimierungen", Items: low, Duration: "1-2 Wochen",
		})
	}

	guide := ImplementationGuide{
		Phases:           phases,
		TotalEffortHours: effort,
		BusinessDays:     int(math.Ceil(float64(effort) / 8)),
	}
	if effort > 40 {
		guide.Note = "Phasenweise Umsetzung empfohlen"
	}
	return guide
}

func capItems(items []string, n int) []string {
	if len(items) > n {
		return items[:n]
	}
	return items
}

func buildRiskReduction(suggestions []Suggestion) RiskReduction {
	points := 0
	for _, s := range suggestions {
		switch s.Priority {
		case "high":
			points += 10
		case "medium":
			points += 5
		default:
			points += 2
		}
	}
	pct := math.Min(100, float64(points)*2)
	level := "Gering"
	switch {
	case pct > 50:
		level = "Signifikant"
	case pct > 20:
		level = "Moderat"
	}
	return RiskReduction{Points: points, Percentage: pct, Level: level}
}

func (t *Redliner) insights(sections []SectionAnalysis, suggestions []Suggestion) *models.Insights {
	ins := &models.Insights{}

	for _, sec := range sections {
		for _, issue := range sec.Issues {
			if issue.Type == rules.IssueUnlimitedLiability || issue.Type == rules.IssueLiabilityExclusion {
				ins.Risks = append(ins.Risks, models.Risk{
					Type:        issue.Type,
					Description: fmt.Sprintf("%s auf Seite %d (%d Fundstellen)", issue.Type, sec.Page, issue.Count),
					Severity:    issue.Severity,
					Page:        sec.Page,
				})
			}
		}
	}

	highCount, riskCount := 0, 0
	for _, s := range suggestions {
		if s.Priority == "high" {
			highCount++
		}
		if s.Type == "risk" {
			riskCount++
		}
	}
	if highCount > 5 {
		ins.Recommendations = append(ins.Recommendations, models.Recommendation{
			Type:     "complexity",
			Priority: "medium",
			Message:  "Viele kritische Änderungen. Umsetzung in Abstimmung mit der Gegenseite planen.",
		})
	}
	if riskCount > 3 {
		ins.Recommendations = append(ins.Recommendations, models.Recommendation{
			Type:     "legal_review",
			Priority: "high",
			Message:  "Mehrere risikorelevante Klauseln. Anwaltliche Prüfung vor Umsetzung empfohlen.",
		})
	}
	return ins
}

func (t *Redliner) citations(suggestions []Suggestion) []models.Citation {
	var out []models.Citation
	for _, s := range suggestions {
		if s.Confidence <= 0.6 {
			continue
		}
		out = append(out, models.Citation{
			ChunkID:    s.ChunkID,
			Text:       truncate(s.Original, 200),
			Page:       s.Page,
			Type:       "redline",
			Confidence: s.Confidence,
		})
		if len(out) >= 10 {
			break
		}
	}
	return out
}

// HealthCheck implements Analyzer
func (t *Redliner) HealthCheck() *models.HealthReport {
	req := &models.RequestContext{
		Question: "Welche Klauseln sollten verbessert werden?",
		RetrievalResults: &models.RetrievalResults{
			Results: []models.TextChunk{{
				ChunkID: "health-1",
				Text:    "Die Haftung ist unbegrenzt und angemessen.",
				Score:   1.0,
				Spans:   models.Span{PageStart: 1},
			}},
		},
	}

	// health checks must not depend on the generator
	probe := NewRedliner(t.rules)

	patterns := len(t.rules.Redline.Vague.Patterns) + len(t.rules.Redline.Onesided.Patterns) +
		len(t.rules.Redline.Unlimited.Patterns) + len(t.rules.Redline.RiskTerms)

	res, err := probe.Analyze(context.Background(), req)
	if err != nil {
		return &models.HealthReport{Status: models.HealthStatusUnhealthy, PatternsLoaded: patterns, Error: err.Error()}
	}
	data, _ := res.Data.(*RedlinerData)
	ok := data != nil && len(data.Sections) > 0 && len(data.Suggestions) > 0
	status := models.HealthStatusHealthy
	if !ok {
		status = models.HealthStatusUnhealthy
	}
	return &models.HealthReport{Status: status, PatternsLoaded: patterns, TestResult: ok}
}
