package tools

import (
	"context"
	"fmt"
	"log"
	"strings"

	"lexlens-backend/models"
	"lexlens-backend/rules"
)

// LetterGenerator drafts formal legal correspondence from the user's
// question and the retrieved contract context. Intent detection and fact
// extraction are pure pattern work; only the final drafting calls the
// text generator, and a German template stands in when it fails.
type LetterGenerator struct {
	rules     *rules.Set
	generator TextGenerator
}

// LetterGeneratorOption configures the letter generator
type LetterGeneratorOption func(*LetterGenerator)

// LetterWithGenerator injects the text generator used for drafting
func LetterWithGenerator(g TextGenerator) LetterGeneratorOption {
	return func(l *LetterGenerator) { l.generator = g }
}

// NewLetterGenerator creates a letter generator on the given rule set
func NewLetterGenerator(ruleSet *rules.Set, opts ...LetterGeneratorOption) *LetterGenerator {
	l := &LetterGenerator{rules: ruleSet}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// LetterIntentResult is the detected letter intent
type LetterIntentResult struct {
	Type       string  `json:"type"`
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// LetterReference is a contract excerpt the letter is grounded on
type LetterReference struct {
	ChunkID string  `json:"chunk_id"`
	Text    string  `json:"text"`
	Page    int     `json:"page"`
	Score   float64 `json:"score"`
}

// ContractInfo holds the facts extracted for the letter
type ContractInfo struct {
	Parties    []string          `json:"parties"`
	Dates      []string          `json:"dates"`
	Amounts    []string          `json:"amounts"`
	KeyTerms   []string          `json:"key_terms"`
	References []LetterReference `json:"references"`
}

// LetterSections is the structural breakdown of a drafted letter
type LetterSections struct {
	Header     string `json:"header,omitempty"`
	Recipient  string `json:"recipient,omitempty"`
	Subject    string `json:"subject,omitempty"`
	Salutation string `json:"salutation,omitempty"`
	Body       string `json:"body,omitempty"`
	Closing    string `json:"closing,omitempty"`
	Signature  string `json:"signature,omitempty"`
}

// GeneratedLetter is one drafted letter variant
type GeneratedLetter struct {
	Text     string         `json:"text"`
	Sections LetterSections `json:"sections"`
	Source   string         `json:"source"` // "generated" or "fallback"
	Style    string         `json:"style,omitempty"`
}

// LetterGeneratorData is the letter generator's result payload
type LetterGeneratorData struct {
	Intent       LetterIntentResult `json:"intent"`
	ContractInfo ContractInfo       `json:"contract_info"`
	Letter       GeneratedLetter    `json:"letter"`
	Alternatives []GeneratedLetter  `json:"alternatives,omitempty"`
}

// Name implements Analyzer
func (t *LetterGenerator) Name() string { return "letter_generator" }

// Analyze implements Analyzer
func (t *LetterGenerator) Analyze(ctx context.Context, req *models.RequestContext) (*Result, error) {
	intent := t.detectIntent(req.Question)
	info := t.extractContractInfo(req.Chunks())

	letter := t.draft(ctx, intent, info, req.Question)
	alternatives := t.draftAlternatives(ctx, intent, info, req.Question, letter.Source)

	data := &LetterGeneratorData{
		Intent:       intent,
		ContractInfo: info,
		Letter:       letter,
		Alternatives: alternatives,
	}

	return &Result{
		Data:      data,
		Insights:  t.insights(intent, info),
		Citations: t.citations(info),
		Extra: map[string]interface{}{
			"letter_type":   intent.Type,
			"letter_source": letter.Source,
		},
	}, nil
}

// detectIntent scores every letter type against the question and keeps
// the one with the most pattern hits
func (t *LetterGenerator) detectIntent(question string) LetterIntentResult {
	bestType := t.rules.Letter.DefaultType
	bestHits := 0
	for i := range t.rules.Letter.Intents {
		in := &t.rules.Letter.Intents[i]
		if hits := in.MatchCount(question); hits > bestHits {
			bestHits = hits
			bestType = in.Type
		}
	}

	conf := t.rules.Letter.DefaultConfidence
	if bestHits > 0 {
		conf = 0.6
		lower := strings.ToLower(question)
		if in := t.rules.Letter.IntentByType(bestType); in != nil {
			for _, w := range in.SpecificWords {
				if strings.Contains(lower, w) {
					conf += 0.15
				}
			}
		}
		conf = clamp(conf, 0, 1.0)
	}

	return LetterIntentResult{
		Type:       string(bestType),
		Label:      t.rules.Letter.Label(bestType),
		Confidence: conf,
	}
}

func (t *LetterGenerator) extractContractInfo(chunks []models.TextChunk) ContractInfo {
	info := ContractInfo{}
	var parties, dates, amounts, terms []string

	for _, chunk := range chunks {
		parties = append(parties, t.rules.Letter.PartyPattern.FindAllString(chunk.Text, -1)...)
		dates = append(dates, t.rules.Letter.DatePattern.FindAllString(chunk.Text, -1)...)
		amounts = append(amounts, t.rules.Letter.AmountPattern.FindAllString(chunk.Text, -1)...)
		terms = append(terms, t.rules.Letter.LegalTermFinder.FindAllString(chunk.Text, -1)...)

		info.References = append(info.References, LetterReference{
			ChunkID: chunk.ChunkID,
			Text:    truncate(chunk.Text, 200),
			Page:    chunk.Page(),
			Score:   chunk.Score,
		})
	}

	// party names keep their casing; everything else is normalized
	info.Parties = dedupKeepCase(parties)
	info.Dates = dedupStrings(dates)
	info.Amounts = dedupStrings(amounts)
	info.KeyTerms = dedupStrings(terms)
	return info
}

func dedupKeepCase(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		k := strings.ToLower(s)
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, s)
	}
	return out
}

// draft produces the primary letter, falling back to the built-in
// template when generation is unavailable or fails
func (t *LetterGenerator) draft(ctx context.Context, intent LetterIntentResult, info ContractInfo, question string) GeneratedLetter {
	if t.generator != nil {
		in := t.rules.Letter.IntentByType(rules.LetterType(intent.Type))
		if in != nil {
			text, err := t.generator.Generate(ctx, in.SystemPrompt, t.userPrompt(info, question, ""), GenerateOptions{Temperature: 0.3, MaxTokens: 2000})
			if err == nil && strings.TrimSpace(text) != "" {
				return GeneratedLetter{Text: text, Sections: parseLetter(text), Source: SourceGenerated}
			}
			log.Printf("Warning: letter generation failed, using fallback template: %v", err)
		}
	}

	tmpl, ok := t.rules.Letter.FallbackTemplates[rules.LetterType(intent.Type)]
	if !ok {
		tmpl = t.rules.Letter.FallbackTemplates[rules.LetterNotice]
	}
	return GeneratedLetter{Text: tmpl, Sections: parseLetter(tmpl), Source: SourceFallback}
}

// draftAlternatives produces up to two style variants; generation errors
// skip the variant rather than failing the run
func (t *LetterGenerator) draftAlternatives(ctx context.Context, intent LetterIntentResult, info ContractInfo, question, primarySource string) []GeneratedLetter {
	if t.generator == nil || primarySource == SourceFallback {
		return nil
	}
	in := t.rules.Letter.IntentByType(rules.LetterType(intent.Type))
	if in == nil {
		return nil
	}

	var out []GeneratedLetter
	for _, style := range []string{"formal", "concise"} {
		if len(out) >= 2 {
			break
		}
		text, err := t.generator.Generate(ctx, in.SystemPrompt, t.userPrompt(info, question, style), GenerateOptions{Temperature: 0.4, MaxTokens: 1500})
		if err != nil || strings.TrimSpace(text) == "" {
			log.Printf("Warning: alternative letter (%s) failed: %v", style, err)
			continue
		}
		out = append(out, GeneratedLetter{Text: text, Sections: parseLetter(text), Source: SourceGenerated, Style: style})
	}
	return out
}

func (t *LetterGenerator) userPrompt(info ContractInfo, question, style string) string {
	var b strings.Builder
	b.WriteString("Anliegen: " + question + "\n\n")
	if len(info.Parties) > 0 {
		b.WriteString("Vertragsparteien: " + strings.Join(capItems(info.Parties, 3), ", ") + "\n")
	}
	if len(info.Dates) > 0 {
		b.WriteString("Relevante Daten: " + strings.Join(capItems(info.Dates, 3), ", ") + "\n")
	}
	if len(info.Amounts) > 0 {
		b.WriteString("Relevante Beträge: " + strings.Join(capItems(info.Amounts, 3), ", ") + "\n")
	}
	if len(info.KeyTerms) > 0 {
		b.WriteString("Wichtige Begriffe: " + strings.Join(capItems(info.KeyTerms, 5), ", ") + "\n")
	}
	b.WriteString("\nStruktur des Schreibens:\n" +
		"1. Briefkopf mit Absender\n" +
		"2. Empfängeradresse\n" +
		"3. Betreffzeile (beginnend mit \"Betreff:\")\n" +
		"4. Anrede\n" +
		"5. Haupttext mit Bezug auf den Vertrag\n" +
		"6. Grußformel\n" +
		"7. Unterschriftszeile\n")
	if style == "formal" {
		b.WriteString("\nStil: besonders förmlich und juristisch präzise.\n")
	}
	if style == "concise" {
		b.WriteString("\nStil: so knapp wie möglich, nur das Wesentliche.\n")
	}
	return b.String()
}

// parseLetter splits a drafted letter into its structural sections using
// the conventional German/English markers
func parseLetter(text string) LetterSections {
	lines := strings.Split(text, "\n")

	subjectIdx, salutIdx, closeIdx := -1, -1, -1
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		switch {
		case subjectIdx < 0 && strings.HasPrefix(trimmed, "Betreff:"):
			subjectIdx = i
		case salutIdx < 0 && (strings.HasPrefix(trimmed, "Sehr geehrte") || strings.HasPrefix(trimmed, "Dear")):
			salutIdx = i
		case closeIdx < 0 && (strings.Contains(trimmed, "Mit freundlichen Grüßen") || strings.Contains(trimmed, "Sincerely")):
			closeIdx = i
		}
	}

	sec := LetterSections{}
	if subjectIdx >= 0 {
		sec.Subject = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(lines[subjectIdx]), "Betreff:"))
	}
	if salutIdx >= 0 {
		sec.Salutation = strings.TrimSpace(lines[salutIdx])
	}

	headEnd := subjectIdx
	if headEnd < 0 {
		headEnd = salutIdx
	}
	if headEnd > 0 {
		head := strings.TrimSpace(strings.Join(lines[:headEnd], "\n"))
		if blocks := strings.Split(head, "\n\n"); len(blocks) >= 2 {
			sec.Header = strings.TrimSpace(blocks[0])
			sec.Recipient = strings.TrimSpace(blocks[1])
		} else {
			sec.Header = head
		}
	}

	bodyStart := salutIdx + 1
	if salutIdx < 0 {
		bodyStart = subjectIdx + 1
	}
	bodyEnd := closeIdx
	if bodyEnd < 0 {
		bodyEnd = len(lines)
	}
	if bodyStart > 0 && bodyStart < bodyEnd {
		sec.Body = strings.TrimSpace(strings.Join(lines[bodyStart:bodyEnd], "\n"))
	}

	if closeIdx >= 0 {
		sec.Closing = strings.TrimSpace(lines[closeIdx])
		if closeIdx+1 < len(lines) {
			sec.Signature = strings.TrimSpace(strings.Join(lines[closeIdx+1:], "\n"))
		}
	}
	return sec
}

func (t *LetterGenerator) insights(intent LetterIntentResult, info ContractInfo) *models.Insights {
	ins := &models.Insights{}

	if intent.Type == string(rules.LetterTermination) && len(info.Dates) > 0 {
		ins.Recommendations = append(ins.Recommendations, models.Recommendation{
			Type:     "deadline_check",
			Priority: "high",
			Message:  "Kündigungsfristen gegen die im Vertrag genannten Termine prüfen, bevor das Schreiben versendet wird.",
		})
	}
	if len(info.Amounts) > 0 {
		ins.Recommendations = append(ins.Recommendations, models.Recommendation{
			Type:     "financial_review",
			Priority: "medium",
			Message:  "Genannte Beträge vor Versand gegen die Vertragsunterlagen abgleichen.",
		})
	}
	ins.Recommendations = append(ins.Recommendations, models.Recommendation{
		Type:     "legal_review",
		Priority: "high",
		Message:  "Entwurf vor Versand juristisch prüfen lassen.",
	})
	if intent.Confidence < 0.7 {
		ins.Recommendations = append(ins.Recommendations, models.Recommendation{
			Type:     "intent_verification",
			Priority: "medium",
			Message:  fmt.Sprintf("Erkannte Schreibensart (%s) ist unsicher. Bitte bestätigen.", intent.Label),
		})
	}

	for _, p := range info.Parties {
		ins.Parties = append(ins.Parties, models.InsightParty{Name: p, Type: "contract_party"})
	}
	return ins
}

func (t *LetterGenerator) citations(info ContractInfo) []models.Citation {
	var out []models.Citation
	for _, ref := range info.References {
		out = append(out, models.Citation{
			ChunkID: ref.ChunkID,
			Text:    ref.Text,
			Page:    ref.Page,
			Type:    "reference",
		})
		if len(out) >= 5 {
			break
		}
	}
	return out
}

// HealthCheck implements Analyzer
func (t *LetterGenerator) HealthCheck() *models.HealthReport {
	req := &models.RequestContext{
		Question: "Ich möchte den Vertrag kündigen",
	}

	// the self-test must stay offline, so it runs without a generator
	probe := NewLetterGenerator(t.rules)

	patterns := 0
	for i := range t.rules.Letter.Intents {
		patterns += len(t.rules.Letter.Intents[i].Patterns)
	}

	res, err := probe.Analyze(context.Background(), req)
	if err != nil {
		return &models.HealthReport{Status: models.HealthStatusUnhealthy, PatternsLoaded: patterns, Error: err.Error()}
	}
	data, _ := res.Data.(*LetterGeneratorData)
	ok := data != nil && data.Intent.Type == string(rules.LetterTermination) && data.Letter.Text != ""
	status := models.HealthStatusHealthy
	if !ok {
		status = models.HealthStatusUnhealthy
	}
	return &models.HealthReport{Status: status, PatternsLoaded: patterns, TestResult: ok}
}
