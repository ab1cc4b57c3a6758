package rules

import "regexp"

// TableRules drives the table and financial-data extractor
type TableRules struct {
	// Indicators gate chunk scanning; any single match admits the chunk
	Indicators []*regexp.Regexp

	// Structural patterns for the four supported table shapes
	PipeRow      *regexp.Regexp
	NumberedItem *regexp.Regexp
	KeyValueLine *regexp.Regexp

	// Financial patterns. Amount captures (value, currency symbol);
	// Rate captures (value, unit).
	Amount     *regexp.Regexp
	Percentage *regexp.Regexp
	Rate       *regexp.Regexp

	// CurrencyCodes normalizes matched currency tokens to ISO codes
	CurrencyCodes map[string]string
}

// NormalizeCurrency maps a matched currency token to its ISO code,
// defaulting to EUR
func (r *TableRules) NormalizeCurrency(token string) string {
	if code, ok := r.CurrencyCodes[token]; ok {
		return code
	}
	return "EUR"
}

func defaultTableRules() TableRules {
	return TableRules{
		Indicators: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b(?:position|artikel|bezeichnung|beschreibung|menge|anzahl|preis|betrag|summe|gesamt|einzelpreis|nr\.|typ|kategorie|item|description|quantity|price|amount|total|unit)\b`),
			regexp.MustCompile(`\d+(?:[.,]\d{3})*(?:[.,]\d{2})?\s*(?:€|EUR|USD|\$|CHF|GBP|£)`),
			regexp.MustCompile(`(?m)^\s*\|.*\|\s*$`),
			regexp.MustCompile(`(?m)^\s*\d+\s*[.|)]\s+`),
			regexp.MustCompile(`\t.*\t`),
			regexp.MustCompile(`(?m)^[A-ZÄÖÜ][a-zA-ZäöüÄÖÜß\s]+:\s*.+$`),
			regexp.MustCompile(`\d+(?:[.,]\d+)?\s*%`),
			regexp.MustCompile(`(?i)\b(?:prozent\w*|zins\w*|\w*satz|\w*rate)\b`),
			regexp.MustCompile(`(?i)\b(?:pro|per|je)\s+(?:stunde|hour|tag|day|woche|week|monat|month|jahr|year|stück|piece|einheit|unit)\b`),
		},
		PipeRow:      regexp.MustCompile(`(?m)^\s*\|?.*\|.*$`),
		NumberedItem: regexp.MustCompile(`(?m)^\s*(\d+)\s*[.)]\s+(.+)$`),
		KeyValueLine: regexp.MustCompile(`(?m)^([A-ZÄÖÜ][a-zA-ZäöüÄÖÜß\s]+):\s*(.+)$`),
		Amount:       regexp.MustCompile(`(\d+(?:[.,]\d{3})*(?:[.,]\d{2})?)\s*(€|EUR|USD|\$|CHF|GBP|£|Dollar|Euro)`),
		Percentage:   regexp.MustCompile(`(\d+(?:[.,]\d+)?)\s*%`),
		Rate:         regexp.MustCompile(`(?i)(\d+(?:[.,]\d{1,2})?)\s*(?:€|EUR|USD|\$)?\s*(?:pro|per|je|each)\s+(stunde|hour|tag|day|woche|week|monat|month|jahr|year|stück|piece|einheit|unit)`),
		CurrencyCodes: map[string]string{
			"€": "EUR", "EUR": "EUR", "Euro": "EUR",
			"$": "USD", "USD": "USD", "Dollar": "USD",
			"CHF": "CHF",
			"£":   "GBP", "GBP": "GBP",
		},
	}
}
