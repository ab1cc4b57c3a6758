package tools

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"lexlens-backend/models"
	"lexlens-backend/rules"
)

// FlagPIIRedaction is the feature flag that turns detected findings into
// redacted chunk copies. Detection itself always runs.
const FlagPIIRedaction = "pii_redaction_enabled"

// PIIRedactor detects personal data in retrieved contract text and
// produces redacted chunk copies plus a GDPR exposure assessment.
// Redaction is pure pattern work; no text ever leaves the process.
type PIIRedactor struct {
	rules       *rules.Set
	currentYear func() int
}

// PIIRedactorOption configures the redactor
type PIIRedactorOption func(*PIIRedactor)

// RedactorWithYear injects the current-year source used for birth date
// plausibility checks
func RedactorWithYear(year func() int) PIIRedactorOption {
	return func(r *PIIRedactor) { r.currentYear = year }
}

// NewPIIRedactor creates a PII redactor on the given rule set
func NewPIIRedactor(ruleSet *rules.Set, opts ...PIIRedactorOption) *PIIRedactor {
	r := &PIIRedactor{rules: ruleSet, currentYear: defaultCurrentYear}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func defaultCurrentYear() int {
	return time.Now().Year()
}

// PIIFinding is one detected piece of personal data
type PIIFinding struct {
	Category   string  `json:"category"`
	Text       string  `json:"text"`
	Position   int     `json:"position"`
	Length     int     `json:"length"`
	Confidence float64 `json:"confidence"`
	ChunkID    string  `json:"chunk_id"`
	Page       int     `json:"page"`
}

// ChunkRedaction is the redacted copy of one chunk
type ChunkRedaction struct {
	ChunkID       string `json:"chunk_id"`
	Page          int    `json:"page"`
	RiskLevel     string `json:"risk_level"`
	RedactedText  string `json:"redacted_text"`
	FindingsCount int    `json:"findings_count"`
	RedactedCount int    `json:"redacted_count"`
}

// GDPRAssessment summarizes the data protection exposure
type GDPRAssessment struct {
	RiskLevel string   `json:"risk_level"`
	Issues    []string `json:"issues"`
}

// PIIRedactorData is the redactor's result payload
type PIIRedactorData struct {
	Findings         []PIIFinding     `json:"findings"`
	RedactionEnabled bool             `json:"redaction_enabled"`
	RedactedChunks   []ChunkRedaction `json:"redacted_chunks"`
	ComplianceScore  int              `json:"compliance_score"`
	GDPR             GDPRAssessment   `json:"gdpr_assessment"`
}

// Name implements Analyzer
func (t *PIIRedactor) Name() string { return "pii_redactor" }

// Analyze implements Analyzer
func (t *PIIRedactor) Analyze(ctx context.Context, req *models.RequestContext) (*Result, error) {
	var all []PIIFinding
	var redacted []ChunkRedaction
	redactionEnabled := req.Flag(FlagPIIRedaction)

	for _, chunk := range req.Chunks() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		findings := t.scanChunk(&chunk)
		all = append(all, findings...)
		if redactionEnabled {
			redacted = append(redacted, t.redactChunk(&chunk, findings))
		}
	}

	data := &PIIRedactorData{
		Findings:         all,
		RedactionEnabled: redactionEnabled,
		RedactedChunks:   redacted,
		ComplianceScore:  t.complianceScore(all),
	}
	data.GDPR = t.assessGDPR(all, data.ComplianceScore)

	return &Result{
		Data:      data,
		Insights:  t.insights(all, redactionEnabled),
		Citations: t.citations(all),
		Extra: map[string]interface{}{
			"findings_total": len(all),
		},
	}, nil
}

// scanChunk runs every category pattern over the chunk and scores each hit
func (t *PIIRedactor) scanChunk(chunk *models.TextChunk) []PIIFinding {
	var out []PIIFinding
	for i := range t.rules.PII.Definitions {
		def := &t.rules.PII.Definitions[i]
		for _, loc := range def.Pattern.FindAllStringIndex(chunk.Text, -1) {
			match := chunk.Text[loc[0]:loc[1]]
			out = append(out, PIIFinding{
				Category:   def.Key,
				Text:       match,
				Position:   loc[0],
				Length:     loc[1] - loc[0],
				Confidence: t.confidence(def, chunk.Text, match, loc[0], loc[1]),
				ChunkID:    chunk.ChunkID,
				Page:       chunk.Page(),
			})
		}
	}
	return out
}

// confidence starts at the category base, boosted once by a nearby
// context clue and adjusted by category-specific plausibility checks
func (t *PIIRedactor) confidence(def *rules.PIIDefinition, text, match string, start, end int) float64 {
	conf := def.BaseConfidence

	window := strings.ToLower(extractWindow(text, start, end, 100).Full)
	for _, clue := range t.rules.PII.ContextClues[def.Key] {
		if strings.Contains(window, clue) {
			conf += 0.2
			break
		}
	}

	switch def.Key {
	case rules.PIINames:
		tail := end + 20
		if tail > len(text) {
			tail = len(text)
		}
		if t.rules.PII.CompanyIndicator.MatchString(text[start:tail]) {
			conf *= 0.3
		} else if t.rules.PII.PlaceIndicator.MatchString(match) {
			conf *= 0.4
		}
	case rules.PIIPhones:
		if strings.HasPrefix(match, "+") || strings.HasPrefix(match, "00") {
			conf += 0.1
		}
	case rules.PIIBirthDates:
		if year, err := strconv.Atoi(match[strings.LastIndex(match, ".")+1:]); err == nil {
			if year > t.currentYear() || year < 1900 {
				conf *= 0.5
			}
		}
	}

	return clamp(conf, 0.1, 1.0)
}

// redactChunk replaces confident findings with category markers. Findings
// are applied in descending position order so earlier offsets stay valid,
// and overlapping matches are skipped after the first replacement.
func (t *PIIRedactor) redactChunk(chunk *models.TextChunk, findings []PIIFinding) ChunkRedaction {
	candidates := make([]PIIFinding, 0, len(findings))
	for _, f := range findings {
		if f.Confidence > 0.7 {
			candidates = append(candidates, f)
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].Position > candidates[j].Position })

	text := chunk.Text
	lastStart := len(text) + 1
	applied := 0
	for _, f := range candidates {
		if f.Position+f.Length > lastStart {
			continue
		}
		text = text[:f.Position] + t.marker(f.Category) + text[f.Position+f.Length:]
		lastStart = f.Position
		applied++
	}

	return ChunkRedaction{
		ChunkID:       chunk.ChunkID,
		Page:          chunk.Page(),
		RiskLevel:     t.chunkRisk(findings),
		RedactedText:  text,
		FindingsCount: len(findings),
		RedactedCount: applied,
	}
}

func (t *PIIRedactor) marker(category string) string {
	for i := range t.rules.PII.Definitions {
		if t.rules.PII.Definitions[i].Key == category {
			return t.rules.PII.Definitions[i].Marker
		}
	}
	return "[REDACTED]"
}

func (t *PIIRedactor) chunkRisk(findings []PIIFinding) string {
	highConf := 0
	for _, f := range findings {
		if f.Confidence > 0.8 {
			highConf++
		}
	}
	switch {
	case highConf >= 3 || len(findings) >= 5:
		return "high"
	case highConf >= 1 || len(findings) >= 2:
		return "medium"
	default:
		return "low"
	}
}

// complianceScore starts at 100 and deducts for volume and sensitivity
func (t *PIIRedactor) complianceScore(findings []PIIFinding) int {
	score := 100
	names := 0
	for _, f := range findings {
		if t.rules.PII.IsSensitive(f.Category) {
			score -= 20
		}
		if f.Category == rules.PIINames {
			names++
		}
	}
	if len(findings) > 10 {
		score -= 20
	}
	if len(findings) > 20 {
		score -= 20
	}
	if names > 5 {
		score -= 10
	}
	if score < 0 {
		score = 0
	}
	return score
}

func (t *PIIRedactor) assessGDPR(findings []PIIFinding, score int) GDPRAssessment {
	sensitive := 0
	for _, f := range findings {
		if t.rules.PII.IsSensitive(f.Category) {
			sensitive++
		}
	}

	var issues []string
	if sensitive > 0 {
		issues = append(issues, fmt.Sprintf("%d besonders schutzwürdige Datenpunkte (Finanz-/Identifikationsdaten) gefunden.", sensitive))
	}
	if len(findings) > 10 {
		issues = append(issues, "Hohe Dichte personenbezogener Daten. Datenminimierung nach Art. 5 DSGVO prüfen.")
	}
	if len(findings) > 0 {
		issues = append(issues, "Dokument enthält personenbezogene Daten. Rechtsgrundlage der Verarbeitung prüfen (Art. 6 DSGVO).")
	}

	risk := "low"
	switch {
	case sensitive > 0 || score < 50:
		risk = "high"
	case len(findings) > 5 || score < 80:
		risk = "medium"
	}

	return GDPRAssessment{RiskLevel: risk, Issues: issues}
}

func (t *PIIRedactor) insights(findings []PIIFinding, redactionEnabled bool) *models.Insights {
	ins := &models.Insights{}

	names := 0
	sensitiveByCat := make(map[string]int)
	for _, f := range findings {
		if f.Category == rules.PIINames {
			names++
		}
		if t.rules.PII.IsSensitive(f.Category) {
			sensitiveByCat[f.Category]++
		}
	}
	if names > 0 {
		ins.Parties = append(ins.Parties, models.InsightParty{
			Type:        "data_subjects",
			Count:       names,
			Description: "Im Text erkannte Personennamen",
		})
	}
	for cat, n := range sensitiveByCat {
		ins.Risks = append(ins.Risks, models.Risk{
			Type:        "privacy_risk",
			Description: fmt.Sprintf("Sensible Daten der Kategorie %s (%d Fundstellen)", cat, n),
			Severity:    "high",
		})
	}
	sort.Slice(ins.Risks, func(i, j int) bool { return ins.Risks[i].Description < ins.Risks[j].Description })

	if len(sensitiveByCat) > 0 {
		ins.Recommendations = append(ins.Recommendations, models.Recommendation{
			Type:     "data_minimization",
			Priority: "high",
			Message:  "Sensible Finanz- und Identifikationsdaten vor Weitergabe des Dokuments entfernen.",
		})
	}
	if len(findings) > 0 {
		rec := models.Recommendation{
			Type:     "redaction_review",
			Priority: "medium",
			Message:  "Geschwärzte Fassung vor Versand manuell gegenprüfen.",
		}
		if !redactionEnabled {
			rec.Type = "redaction_suggested"
			rec.Message = "Schwärzung ist deaktiviert; vor Weitergabe des Dokuments aktivieren."
		}
		ins.Recommendations = append(ins.Recommendations, rec)
	}
	return ins
}

// citations never expose matched values and skip sensitive categories
func (t *PIIRedactor) citations(findings []PIIFinding) []models.Citation {
	var out []models.Citation
	for _, f := range findings {
		if t.rules.PII.IsSensitive(f.Category) {
			continue
		}
		out = append(out, models.Citation{
			ChunkID:    f.ChunkID,
			Text:       f.Category + ": [REDACTED for privacy]",
			Page:       f.Page,
			Type:       "pii",
			Confidence: f.Confidence,
		})
		if len(out) >= 5 {
			break
		}
	}
	return out
}

// HealthCheck implements Analyzer
func (t *PIIRedactor) HealthCheck() *models.HealthReport {
	req := &models.RequestContext{
		Question:     "Welche personenbezogenen Daten enthält der Vertrag?",
		FeatureFlags: map[string]bool{FlagPIIRedaction: true},
		RetrievalResults: &models.RetrievalResults{
			Results: []models.TextChunk{{
				ChunkID: "health-1",
				Text:    "Max Mustermann, max@example.com, +49 30 12345678",
				Score:   1.0,
				Spans:   models.Span{PageStart: 1},
			}},
		},
	}

	res, err := t.Analyze(context.Background(), req)
	if err != nil {
		return &models.HealthReport{Status: models.HealthStatusUnhealthy, PatternsLoaded: len(t.rules.PII.Definitions), Error: err.Error()}
	}
	data, _ := res.Data.(*PIIRedactorData)
	ok := data != nil && len(data.Findings) >= 2
	status := models.HealthStatusHealthy
	if !ok {
		status = models.HealthStatusUnhealthy
	}
	return &models.HealthReport{Status: status, PatternsLoaded: len(t.rules.PII.Definitions), TestResult: ok}
}
