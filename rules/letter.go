package rules

import "regexp"

// LetterType identifies a supported letter kind
type LetterType string

const (
	LetterTermination LetterType = "termination"
	LetterNotice      LetterType = "notice"
	LetterAmendment   LetterType = "amendment"
	LetterReminder    LetterType = "reminder"
	LetterRequest     LetterType = "request"
)

// LetterIntent holds the detection patterns and generation settings for
// one letter type. Intents are checked in declaration order.
type LetterIntent struct {
	Type     LetterType
	Label    string // German display label
	Patterns []*regexp.Regexp

	// SpecificWords refine the intent confidence when present in the
	// question
	SpecificWords []string

	// SystemPrompt instructs the text generator for this letter type
	SystemPrompt string
}

// MatchCount returns how many patterns of this intent match the question
func (i *LetterIntent) MatchCount(question string) int {
	n := 0
	for _, re := range i.Patterns {
		if re.MatchString(question) {
			n++
		}
	}
	return n
}

// LetterRules drives the letter generator
type LetterRules struct {
	Intents []LetterIntent

	// DefaultType is used when no intent pattern matches
	DefaultType       LetterType
	DefaultConfidence float64

	// Extraction patterns for contract facts referenced in the letter
	PartyPattern    *regexp.Regexp
	DatePattern     *regexp.Regexp
	AmountPattern   *regexp.Regexp
	LegalTermFinder *regexp.Regexp

	// FallbackTemplates are complete German letters used when generation
	// fails; keyed by letter type with LetterNotice as the ultimate
	// fallback
	FallbackTemplates map[LetterType]string
}

// IntentByType returns the intent definition for a letter type, or nil
func (r *LetterRules) IntentByType(t LetterType) *LetterIntent {
	for i := range r.Intents {
		if r.Intents[i].Type == t {
			return &r.Intents[i]
		}
	}
	return nil
}

// Label returns the German display label for a letter type
func (r *LetterRules) Label(t LetterType) string {
	if in := r.IntentByType(t); in != nil {
		return in.Label
	}
	return "Schreiben"
}

func defaultLetterRules() LetterRules {
	return LetterRules{
		Intents: []LetterIntent{
			{
				Type:  LetterTermination,
				Label: "Kündigungsschreiben",
				Patterns: []*regexp.Regexp{
					regexp.MustCompile(`(?i)\bkündig\w*\b`),
					regexp.MustCompile(`(?i)\bbeend\w*\b`),
					regexp.MustCompile(`(?i)\bterminat\w*\b`),
					regexp.MustCompile(`(?i)\bcancel\w*\b`),
				},
				SpecificWords: []string{"frist", "deadline", "zum", "beenden"},
				SystemPrompt: "Du bist ein erfahrener Jurist und verfasst ein formelles Kündigungsschreiben auf Deutsch. " +
					"Das Schreiben muss rechtssicher formuliert sein, die Kündigungsfrist und den Kündigungstermin nennen " +
					"und eine Bestätigung der Kündigung anfordern. Verwende einen sachlichen, höflichen Ton.",
			},
			{
				Type:  LetterNotice,
				Label: "Mitteilung",
				Patterns: []*regexp.Regexp{
					regexp.MustCompile(`(?i)\bmitteil\w*\b`),
					regexp.MustCompile(`(?i)\bbenachrichtig\w*\b`),
					regexp.MustCompile(`(?i)\bnotice\b`),
					regexp.MustCompile(`(?i)\binform\w*\b`),
				},
				SpecificWords: []string{"teilen", "mit", "hereby", "inform"},
				SystemPrompt: "Du bist ein erfahrener Jurist und verfasst eine formelle Mitteilung auf Deutsch. " +
					"Das Schreiben informiert die Gegenseite klar und nachweisbar über einen Sachverhalt. " +
					"Verwende einen sachlichen, präzisen Ton.",
			},
			{
				Type:  LetterAmendment,
				Label: "Änderungsvereinbarung",
				Patterns: []*regexp.Regexp{
					// no leading \b: RE2 word boundaries are ASCII-only and
					// never match before an umlaut
					regexp.MustCompile(`(?i)änder\w*`),
					regexp.MustCompile(`(?i)\banpass\w*\b`),
					regexp.MustCompile(`(?i)\bamend\w*\b`),
					regexp.MustCompile(`(?i)\bmodif\w*\b`),
				},
				SpecificWords: []string{"ändern", "modify", "section", "paragraph"},
				SystemPrompt: "Du bist ein erfahrener Jurist und verfasst den Entwurf einer Änderungsvereinbarung auf Deutsch. " +
					"Benenne die zu ändernden Vertragsklauseln präzise mit altem und neuem Wortlaut " +
					"und bitte um schriftliche Zustimmung der Gegenseite.",
			},
			{
				Type:  LetterReminder,
				Label: "Mahnung",
				Patterns: []*regexp.Regexp{
					regexp.MustCompile(`(?i)\bmahn\w*\b`),
					regexp.MustCompile(`(?i)\berinner\w*\b`),
					regexp.MustCompile(`(?i)\bremind\w*\b`),
					regexp.MustCompile(`(?i)überfällig\w*`),
					regexp.MustCompile(`(?i)\boverdue\b`),
				},
				SpecificWords: []string{"zahlbar", "due", "überfällig", "payment"},
				SystemPrompt: "Du bist ein erfahrener Jurist und verfasst eine formelle Mahnung auf Deutsch. " +
					"Nenne die offene Forderung mit Betrag und ursprünglicher Fälligkeit, setze eine angemessene Nachfrist " +
					"und weise auf die Folgen des Verzugs hin. Bleibe bestimmt, aber höflich.",
			},
			{
				Type:  LetterRequest,
				Label: "Anfrage",
				Patterns: []*regexp.Regexp{
					regexp.MustCompile(`(?i)\banfrag\w*\b`),
					regexp.MustCompile(`(?i)\bauskunft\w*\b`),
					regexp.MustCompile(`(?i)\brequest\w*\b`),
					regexp.MustCompile(`(?i)\binquir\w*\b`),
				},
				SpecificWords: []string{"bitte", "please", "würden", "could"},
				SystemPrompt: "Du bist ein erfahrener Jurist und verfasst eine formelle Anfrage auf Deutsch. " +
					"Formuliere das Auskunfts- oder Handlungsersuchen konkret, nenne die vertragliche Grundlage " +
					"und bitte um Antwort innerhalb einer angemessenen Frist.",
			},
		},
		DefaultType:       LetterRequest,
		DefaultConfidence: 0.3,
		PartyPattern:      regexp.MustCompile(`\b(?:[A-ZÄÖÜ][A-Za-zÄÖÜäöüß&.\-]*\s+){1,4}(?:GmbH|AG|Ltd|Inc|Corp)\b`),
		DatePattern:       regexp.MustCompile(`\b\d{1,2}\.\d{1,2}\.\d{2,4}\b`),
		AmountPattern:     regexp.MustCompile(`\b\d+(?:[.,]\d{3})*(?:[.,]\d{2})?\s*(?:€|EUR|USD|\$|CHF)`),
		LegalTermFinder:   regexp.MustCompile(`(?i)\b(?:kündig|haft|zahlung|frist|notice|payment|liability|termination)\w*\b`),
		FallbackTemplates: map[LetterType]string{
			LetterTermination: `[Absender]
[Adresse]

[Empfänger]
[Adresse]

[Ort], [Datum]

Betreff: Kündigung des Vertrages

Sehr geehrte Damen und Herren,

hiermit kündige ich den zwischen uns bestehenden Vertrag fristgerecht zum nächstmöglichen Zeitpunkt, hilfsweise zum [Datum].

Bitte bestätigen Sie mir den Erhalt dieser Kündigung sowie das Vertragsende schriftlich.

Mit freundlichen Grüßen

[Unterschrift]
[Name]`,
			LetterNotice: `[Absender]
[Adresse]

[Empfänger]
[Adresse]

[Ort], [Datum]

Betreff: Mitteilung zum bestehenden Vertrag

Sehr geehrte Damen und Herren,

hiermit teile ich Ihnen zu dem zwischen uns bestehenden Vertrag Folgendes mit: [Sachverhalt].

Bitte bestätigen Sie den Erhalt dieser Mitteilung schriftlich.

Mit freundlichen Grüßen

[Unterschrift]
[Name]`,
		},
	}
}
