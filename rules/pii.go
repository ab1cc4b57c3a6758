package rules

import "regexp"

// PIICategory keys for the redactor
const (
	PIINames          = "names"
	PIIEmails         = "emails"
	PIIPhones         = "phones"
	PIIAddresses      = "addresses"
	PIIPostalCodes    = "postal_codes"
	PIITaxIDs         = "tax_ids"
	PIISocialSecurity = "social_security"
	PIIIBAN           = "iban"
	PIICreditCards    = "credit_cards"
	PIIBirthDates     = "birth_dates"
)

// PIIDefinition describes one detectable PII category. Categories are
// scanned in declaration order so overlapping matches resolve
// deterministically.
type PIIDefinition struct {
	Key            string
	Pattern        *regexp.Regexp
	BaseConfidence float64
	Marker         string // replacement token used during redaction
}

// PIIRules drives the PII redactor
type PIIRules struct {
	Definitions []PIIDefinition

	// ContextClues near a match raise its confidence
	ContextClues map[string][]string

	// SensitiveCategories weigh heavier in the compliance score and are
	// excluded from citations
	SensitiveCategories map[string]bool

	// CompanyIndicator and PlaceIndicator demote name matches that are
	// likely organizations or city names
	CompanyIndicator *regexp.Regexp
	PlaceIndicator   *regexp.Regexp
}

// IsSensitive reports whether the category carries heightened exposure
func (r *PIIRules) IsSensitive(key string) bool {
	return r.SensitiveCategories[key]
}

func defaultPIIRules() PIIRules {
	return PIIRules{
		Definitions: []PIIDefinition{
			{
				Key:            PIINames,
				Pattern:        regexp.MustCompile(`\b[A-ZÄÖÜ][a-zäöüß]+\s+[A-ZÄÖÜ][a-zäöüß]+(?:\s+[A-ZÄÖÜ][a-zäöüß]+)?\b`),
				BaseConfidence: 0.6,
				Marker:         "[NAME]",
			},
			{
				Key:            PIIEmails,
				Pattern:        regexp.MustCompile(`\b[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}\b`),
				BaseConfidence: 0.95,
				Marker:         "[EMAIL]",
			},
			{
				Key:            PIIPhones,
				Pattern:        regexp.MustCompile(`(?:\+49\s?|0)(?:\d{2,4}[\s\-/]?\d{3,8}|\d{10,11})|(?:\+\d{1,3}\s?)?\(?\d{2,4}\)?\s?[\d\s\-./]{6,14}\d`),
				BaseConfidence: 0.85,
				Marker:         "[PHONE]",
			},
			{
				Key:            PIIAddresses,
				Pattern:        regexp.MustCompile(`(?i)\b[A-ZÄÖÜ][a-zäöüß]+(?:straße|str\.|platz|weg|gasse|allee)\s+\d+[a-z]?\b`),
				BaseConfidence: 0.8,
				Marker:         "[ADDRESS]",
			},
			{
				Key:            PIIPostalCodes,
				Pattern:        regexp.MustCompile(`\b\d{5}\b`),
				BaseConfidence: 0.7,
				Marker:         "[PLZ]",
			},
			{
				Key:            PIITaxIDs,
				Pattern:        regexp.MustCompile(`\b\d{2}\s\d{3}\s\d{3}\s\d{3}\b`),
				BaseConfidence: 0.9,
				Marker:         "[STEUER-ID]",
			},
			{
				Key:            PIISocialSecurity,
				Pattern:        regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b|\b\d{9}\b`),
				BaseConfidence: 0.9,
				Marker:         "[SSN]",
			},
			{
				Key:            PIIIBAN,
				Pattern:        regexp.MustCompile(`\b[A-Z]{2}\d{2}\s?(?:\d{4}\s?){4,7}\d{0,2}\b`),
				BaseConfidence: 0.95,
				Marker:         "[IBAN]",
			},
			{
				Key:            PIICreditCards,
				Pattern:        regexp.MustCompile(`\b(?:\d{4}[\s\-]?){3}\d{4}\b`),
				BaseConfidence: 0.8,
				Marker:         "[KREDITKARTE]",
			},
			{
				Key:            PIIBirthDates,
				Pattern:        regexp.MustCompile(`\b\d{1,2}\.\d{1,2}\.\d{4}\b`),
				BaseConfidence: 0.6,
				Marker:         "[GEBURTSDATUM]",
			},
		},
		ContextClues: map[string][]string{
			PIINames:     {"herr", "frau", "dr.", "prof.", "mr.", "ms.", "mrs.", "name", "genannt", "unterzeichnet"},
			PIIEmails:    {"e-mail", "email", "mail", "kontakt", "contact"},
			PIIPhones:    {"telefon", "tel.", "phone", "mobil", "fax"},
			PIIAddresses: {"adresse", "anschrift", "address", "wohnhaft", "ansässig"},
			PIITaxIDs:    {"steuer", "tax", "umsatzsteuer", "vat"},
		},
		SensitiveCategories: map[string]bool{
			PIISocialSecurity: true,
			PIITaxIDs:         true,
			PIIIBAN:           true,
			PIICreditCards:    true,
		},
		CompanyIndicator: regexp.MustCompile(`(?i)\b(?:gmbh|ag|ltd|inc|corp|company)\b`),
		PlaceIndicator:   regexp.MustCompile(`(?i)\b(?:berlin|münchen|hamburg|köln|deutschland|germany)\b`),
	}
}
