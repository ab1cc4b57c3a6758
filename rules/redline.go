package rules

import "regexp"

// Redline issue keys
const (
	IssueVagueLanguage      = "vague_language"
	IssueOnesidedTerms      = "onesided_terms"
	IssueUnlimitedLiability = "unlimited_liability"
	IssueLiabilityExclusion = "liability_exclusion"
)

// ImprovementFamily groups the patterns for one class of drafting problem
// together with the canned suggestion shown when generation is unavailable
type ImprovementFamily struct {
	Key        string
	Patterns   []*regexp.Regexp
	Suggestion string
	Type       string // suggestion type: "clarity" or "risk"
	Priority   string // "high", "medium", "low"
}

// CountMatches sums pattern occurrences across the family
func (f *ImprovementFamily) CountMatches(text string) int {
	n := 0
	for _, re := range f.Patterns {
		n += len(re.FindAllStringIndex(text, -1))
	}
	return n
}

// RedlineRules drives the clause improvement tool
type RedlineRules struct {
	Vague     ImprovementFamily
	Onesided  ImprovementFamily
	Unlimited ImprovementFamily

	// RiskTerms flag liability exclusions regardless of drafting quality
	RiskTerms []*regexp.Regexp
}

// Families returns the improvement families in evaluation order
func (r *RedlineRules) Families() []*ImprovementFamily {
	return []*ImprovementFamily{&r.Vague, &r.Onesided, &r.Unlimited}
}

func defaultRedlineRules() RedlineRules {
	return RedlineRules{
		Vague: ImprovementFamily{
			Key: IssueVagueLanguage,
			Patterns: []*regexp.Regexp{
				regexp.MustCompile(`(?i)\b(?:angemessen\w*|reasonable|appropriate)\b`),
				regexp.MustCompile(`(?i)\b(?:unverzüglich|sofort|immediately|promptly)\b`),
				regexp.MustCompile(`(?i)\b(?:in\s+der\s+regel|normalerweise|usually|typically)\b`),
			},
			Suggestion: "Unbestimmte Begriffe durch konkrete Fristen oder messbare Kriterien ersetzen.",
			Type:       "clarity",
			Priority:   "medium",
		},
		Onesided: ImprovementFamily{
			Key: IssueOnesidedTerms,
			Patterns: []*regexp.Regexp{
				regexp.MustCompile(`(?i)\b(?:nur|solely|only|exclusively)\s+(?:der|die|das|party|customer|client)\b`),
				regexp.MustCompile(`(?i)\b(?:allein\w*\s+\w*\s*berechtigt|solely\s+entitled)\b`),
			},
			Suggestion: "Einseitige Rechte durch beidseitige oder an Bedingungen geknüpfte Regelungen ausgleichen.",
			Type:       "risk",
			Priority:   "high",
		},
		Unlimited: ImprovementFamily{
			Key: IssueUnlimitedLiability,
			Patterns: []*regexp.Regexp{
				regexp.MustCompile(`(?i)\b(?:unbegrenzt\w*|unlimited)\b|ohne\s+\w*\s*begrenzung`),
				regexp.MustCompile(`(?i)\b(?:jederzeit|at\s+any\s+time|beliebig)\b`),
				regexp.MustCompile(`(?i)vollständig\w*\s+\w*\s*ausgeschlossen|completely\s+excluded`),
			},
			Suggestion: "Unbegrenzte Verpflichtungen durch Haftungsobergrenzen oder zeitliche Schranken begrenzen.",
			Type:       "risk",
			Priority:   "high",
		},
		RiskTerms: []*regexp.Regexp{
			regexp.MustCompile(`(?i)haftung\s+\w*\s*ausgeschlossen|liability\s+\w*\s*excluded`),
			regexp.MustCompile(`(?i)ohne\s+\w*\s*gewähr|no\s+warranty|disclaimer`),
			regexp.MustCompile(`(?i)kein\w*\s+schadenersatz|kein\w*\s+schadensersatz|no\s+damages`),
		},
	}
}
