package rules

import (
	"regexp"

	"lexlens-backend/models"
)

// ClauseType identifies a recognized clause category
type ClauseType string

const (
	ClauseTermination     ClauseType = "termination"
	ClauseLiability       ClauseType = "liability"
	ClausePayment         ClauseType = "payment"
	ClauseConfidentiality ClauseType = "confidentiality"
	ClauseWarranty        ClauseType = "warranty"
	ClauseForceMajeure    ClauseType = "force_majeure"
)

// ClauseDefinition holds the detection patterns for one clause type.
// German and English patterns are kept separate so tools can report
// which language variant fired.
type ClauseDefinition struct {
	Type    ClauseType
	German  []*regexp.Regexp
	English []*regexp.Regexp
}

// Matches reports whether any pattern of either language matches the text
func (d *ClauseDefinition) Matches(text string) bool {
	for _, re := range d.German {
		if re.MatchString(text) {
			return true
		}
	}
	for _, re := range d.English {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

// ClauseRules drives the clause finder. Definitions is ordered; when two
// clause types score identically the earlier entry wins.
type ClauseRules struct {
	Definitions []ClauseDefinition

	// ContextKeywords boost confidence when found near a clause match
	ContextKeywords map[ClauseType][]*regexp.Regexp

	// Secondary extraction patterns
	DatePatterns      []*regexp.Regexp
	AmountPatterns    []*regexp.Regexp
	TimeframePatterns []*regexp.Regexp

	// Key term extraction: general terms plus per-type specific terms
	GeneralTerms  []*regexp.Regexp
	SpecificTerms map[ClauseType][]*regexp.Regexp

	// RiskTerms flag key terms that indicate contractual risk
	RiskTerms []string

	// Explanations keyed by clause type and user mode, with business as
	// the fallback register
	Explanations map[ClauseType]map[models.UserMode]string
}

func defaultClauseRules() ClauseRules {
	return ClauseRules{
		Definitions: []ClauseDefinition{
			{
				Type: ClauseTermination,
				German: []*regexp.Regexp{
					regexp.MustCompile(`(?i)kündig\w*`),
					regexp.MustCompile(`(?i)beend\w*`),
					regexp.MustCompile(`(?i)auflös\w*`),
					regexp.MustCompile(`(?i)vertragsende`),
					regexp.MustCompile(`(?i)laufzeit\w*`),
				},
				English: []*regexp.Regexp{
					regexp.MustCompile(`(?i)terminat\w*`),
					regexp.MustCompile(`(?i)cancel\w*`),
					regexp.MustCompile(`(?i)end\s+of\s+(?:contract|agreement)`),
					regexp.MustCompile(`(?i)expir\w*`),
					regexp.MustCompile(`(?i)dissolution`),
				},
			},
			{
				Type: ClauseLiability,
				German: []*regexp.Regexp{
					regexp.MustCompile(`(?i)haftung\w*`),
					regexp.MustCompile(`(?i)schadenersatz\w*`),
					regexp.MustCompile(`(?i)schadensersatz\w*`),
					regexp.MustCompile(`(?i)verantwort\w*`),
					regexp.MustCompile(`(?i)gewährleistung\w*`),
				},
				English: []*regexp.Regexp{
					regexp.MustCompile(`(?i)liabilit\w*`),
					regexp.MustCompile(`(?i)damages?\b`),
					regexp.MustCompile(`(?i)responsib\w*`),
					regexp.MustCompile(`(?i)indemnif\w*`),
					regexp.MustCompile(`(?i)hold\s+harmless`),
				},
			},
			{
				Type: ClausePayment,
				German: []*regexp.Regexp{
					regexp.MustCompile(`(?i)zahlung\w*`),
					regexp.MustCompile(`(?i)vergütung\w*`),
					regexp.MustCompile(`(?i)entgelt\w*`),
					regexp.MustCompile(`(?i)rechnung\w*`),
					regexp.MustCompile(`(?i)fällig\w*`),
				},
				English: []*regexp.Regexp{
					regexp.MustCompile(`(?i)payment\w*`),
					regexp.MustCompile(`(?i)remuneration`),
					regexp.MustCompile(`(?i)invoic\w*`),
					regexp.MustCompile(`(?i)compensation`),
					regexp.MustCompile(`(?i)fees?\b`),
				},
			},
			{
				Type: ClauseConfidentiality,
				German: []*regexp.Regexp{
					regexp.MustCompile(`(?i)vertraulich\w*`),
					regexp.MustCompile(`(?i)geheimhaltung\w*`),
					regexp.MustCompile(`(?i)verschwiegenheit\w*`),
					regexp.MustCompile(`(?i)datenschutz\w*`),
				},
				English: []*regexp.Regexp{
					regexp.MustCompile(`(?i)confidential\w*`),
					regexp.MustCompile(`(?i)non-disclosure`),
					regexp.MustCompile(`(?i)secrecy`),
					regexp.MustCompile(`(?i)proprietary\s+information`),
				},
			},
			{
				Type: ClauseWarranty,
				German: []*regexp.Regexp{
					regexp.MustCompile(`(?i)garantie\w*`),
					regexp.MustCompile(`(?i)zusicherung\w*`),
					regexp.MustCompile(`(?i)mängel\w*`),
					regexp.MustCompile(`(?i)mangel\w*`),
				},
				English: []*regexp.Regexp{
					regexp.MustCompile(`(?i)warrant\w*`),
					regexp.MustCompile(`(?i)guarantee\w*`),
					regexp.MustCompile(`(?i)defects?\b`),
					regexp.MustCompile(`(?i)representations?\b`),
				},
			},
			{
				Type: ClauseForceMajeure,
				German: []*regexp.Regexp{
					regexp.MustCompile(`(?i)höhere\s+gewalt`),
					regexp.MustCompile(`(?i)unvorhersehbar\w*`),
					regexp.MustCompile(`(?i)unabwendbar\w*`),
				},
				English: []*regexp.Regexp{
					regexp.MustCompile(`(?i)force\s+majeure`),
					regexp.MustCompile(`(?i)act\s+of\s+god`),
					regexp.MustCompile(`(?i)unforeseeable\s+events?`),
				},
			},
		},
		ContextKeywords: map[ClauseType][]*regexp.Regexp{
			ClauseTermination: {
				regexp.MustCompile(`(?i)frist\w*`),
				regexp.MustCompile(`(?i)notice`),
				regexp.MustCompile(`(?i)period`),
				regexp.MustCompile(`(?i)grund\w*`),
				regexp.MustCompile(`(?i)reason`),
			},
			ClauseLiability: {
				regexp.MustCompile(`(?i)schaden\w*`),
				regexp.MustCompile(`(?i)damage`),
				regexp.MustCompile(`(?i)ausschluss`),
				regexp.MustCompile(`(?i)limitation`),
			},
			ClausePayment: {
				regexp.MustCompile(`(?i)betrag\w*`),
				regexp.MustCompile(`(?i)amount`),
				regexp.MustCompile(`(?i)fällig\w*`),
				regexp.MustCompile(`(?i)due`),
			},
			ClauseWarranty: {
				regexp.MustCompile(`(?i)mangel\w*`),
				regexp.MustCompile(`(?i)defect`),
				regexp.MustCompile(`(?i)zusage`),
				regexp.MustCompile(`(?i)promise`),
			},
		},
		DatePatterns: []*regexp.Regexp{
			regexp.MustCompile(`\b\d{1,2}\.\d{1,2}\.\d{2,4}\b`),
			regexp.MustCompile(`\b\d{1,2}\.\s?(?:Januar|Februar|März|April|Mai|Juni|Juli|August|September|Oktober|November|Dezember)\s?\d{4}\b`),
			regexp.MustCompile(`\b(?:January|February|March|April|May|June|July|August|September|October|November|December)\s+\d{1,2},?\s+\d{4}\b`),
		},
		AmountPatterns: []*regexp.Regexp{
			regexp.MustCompile(`\b\d+(?:[.,]\d{3})*(?:[.,]\d{2})?\s*(?:€|EUR|USD|\$|CHF)`),
			regexp.MustCompile(`(?i)\b\d+(?:[.,]\d+)?\s*(?:Euro|Dollar|Franken)\b`),
			regexp.MustCompile(`\b\d+(?:[.,]\d+)?\s*%`),
		},
		TimeframePatterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b\d+\s*(?:Tag|Tage|Woche|Wochen|Monat|Monate|Jahr|Jahre)\b`),
			regexp.MustCompile(`(?i)\b\d+\s*(?:day|days|week|weeks|month|months|year|years)\b`),
			regexp.MustCompile(`(?i)\b(?:sofort|unverzüglich|immediately|promptly)\b`),
		},
		GeneralTerms: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b(?:vertrag\w*|contract|agreement)\b`),
			regexp.MustCompile(`(?i)\b(?:partei\w*|party|parties)\b`),
			regexp.MustCompile(`(?i)\b(?:schriftlich\w*|written|in\s+writing)\b`),
		},
		SpecificTerms: map[ClauseType][]*regexp.Regexp{
			ClauseTermination: {
				regexp.MustCompile(`(?i)\b(?:kündigungsfrist|notice\s+period)\b`),
				regexp.MustCompile(`(?i)\b(?:außerordentlich\w*|extraordinary)\b`),
				regexp.MustCompile(`(?i)\b(?:wichtiger?\s+grund|good\s+cause)\b`),
			},
			ClauseLiability: {
				regexp.MustCompile(`(?i)\b(?:haftung\s+(?:ist\s+)?ausgeschlossen|liability\s+(?:is\s+)?excluded)\b`),
				regexp.MustCompile(`(?i)\b(?:grobe?\s+fahrlässigkeit|gross\s+negligence)\b`),
				regexp.MustCompile(`(?i)\b(?:vorsatz|intent|willful)\b`),
			},
			ClausePayment: {
				regexp.MustCompile(`(?i)\b(?:zahlungsverzug|default|late\s+payment)\b`),
				regexp.MustCompile(`(?i)\b(?:skonto|discount)\b`),
				regexp.MustCompile(`(?i)\b(?:vertragsstrafe|penalty)\b`),
			},
		},
		RiskTerms: []string{
			"ausgeschlossen", "excluded",
			"haftung", "liability",
			"verzug", "default",
			"penalty", "strafe",
		},
		Explanations: map[ClauseType]map[models.UserMode]string{
			ClauseTermination: {
				models.ModeLayperson: "Diese Klausel regelt, wie und wann der Vertrag beendet werden kann. Achten Sie auf Fristen, die Sie einhalten müssen.",
				models.ModeBusiness:  "Kündigungsklausel: regelt Kündigungsfristen, -formen und -gründe. Prüfen Sie die Fristen gegen Ihre Planungszyklen.",
				models.ModeLegal:     "Kündigungsregelung; zu prüfen sind ordentliche und außerordentliche Kündigungsrechte, Formerfordernisse (§ 623 BGB analog) und Fristläufe.",
			},
			ClauseLiability: {
				models.ModeLayperson: "Diese Klausel bestimmt, wer für Schäden aufkommen muss. Haftungsausschlüsse können Ihre Ansprüche einschränken.",
				models.ModeBusiness:  "Haftungsklausel: regelt Haftungsumfang und -ausschlüsse. Prüfen Sie Haftungsobergrenzen gegen Ihr Risiko-Exposure.",
				models.ModeLegal:     "Haftungsregelung; AGB-Kontrolle nach §§ 305 ff. BGB beachten, insbesondere Unwirksamkeit pauschaler Ausschlüsse bei Vorsatz und grober Fahrlässigkeit (§ 309 Nr. 7 BGB).",
			},
			ClausePayment: {
				models.ModeLayperson: "Diese Klausel regelt Zahlungen: wie viel, wann und wie gezahlt werden muss. Verspätete Zahlung kann teuer werden.",
				models.ModeBusiness:  "Zahlungsklausel: regelt Beträge, Fälligkeiten und Verzugsfolgen. Prüfen Sie Zahlungsziele gegen Ihre Liquiditätsplanung.",
				models.ModeLegal:     "Zahlungsregelung; Fälligkeit, Verzugseintritt (§ 286 BGB) und Verzugszinsen (§ 288 BGB) prüfen.",
			},
		},
	}
}
