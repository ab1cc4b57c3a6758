package rules

import "regexp"

// DeadlineCategory classifies a detected deadline
type DeadlineCategory string

const (
	DeadlineTermination DeadlineCategory = "termination"
	DeadlinePayment     DeadlineCategory = "payment"
	DeadlineRenewal     DeadlineCategory = "renewal"
	DeadlineNotice      DeadlineCategory = "notice"
	DeadlinePerformance DeadlineCategory = "performance"
	DeadlineWarranty    DeadlineCategory = "warranty"
	DeadlineGeneral     DeadlineCategory = "general"
)

// DateFormat names the shape of an absolute date match so the parser
// knows the field order
type DateFormat string

const (
	FormatNumericDotted DateFormat = "numeric_dotted" // DD.MM.YYYY
	FormatGermanMonth   DateFormat = "german_month"   // D. Monat YYYY
	FormatNumericSlash  DateFormat = "numeric_slash"  // MM/DD/YYYY
	FormatMonthFirst    DateFormat = "month_first"    // Month D, YYYY
	FormatDayFirst      DateFormat = "day_first"      // D Month YYYY
)

// AbsoluteDatePattern matches one absolute date format
type AbsoluteDatePattern struct {
	Format  DateFormat
	Pattern *regexp.Regexp
}

// RelativeUnit names the unit of a relative deadline expression
type RelativeUnit string

const (
	UnitDays   RelativeUnit = "days"
	UnitWeeks  RelativeUnit = "weeks"
	UnitMonths RelativeUnit = "months"
	UnitYears  RelativeUnit = "years"
)

// RelativeDeadlinePattern matches one relative deadline expression.
// The pattern's first capture group must be the numeric quantity.
type RelativeDeadlinePattern struct {
	Unit    RelativeUnit
	Pattern *regexp.Regexp
}

// DeadlineClassification maps contextual patterns to a category.
// Entries are checked in order; the first match wins.
type DeadlineClassification struct {
	Category DeadlineCategory
	Pattern  *regexp.Regexp
}

// DeadlineRules drives the deadline scanner
type DeadlineRules struct {
	// Triggers gate chunk scanning: a chunk without any trigger match
	// is skipped entirely
	Triggers []*regexp.Regexp

	Absolute []AbsoluteDatePattern
	Relative []RelativeDeadlinePattern

	// Confidence indicators found in the window around a match
	StrongIndicators []string
	WeakIndicators   []string

	Classifications []DeadlineClassification

	// ImportanceByCategory scales a deadline's priority
	ImportanceByCategory map[DeadlineCategory]float64

	// EventTitles label calendar events per category (German product copy)
	EventTitles map[DeadlineCategory]string
}

func defaultDeadlineRules() DeadlineRules {
	return DeadlineRules{
		Triggers: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b(?:frist\w*|termin\w*|stichtag|deadline)\b`),
			regexp.MustCompile(`(?i)\b(?:bis\s+zum|spätestens|kündigungsfrist)\b`),
			regexp.MustCompile(`(?i)\b(?:verlängerung\w*|erneuerung\w*|automatic\w*\s+renewal|auto-renew\w*)\b`),
			regexp.MustCompile(`(?i)\b(?:notice\s+period|mitteilungsfrist|notification|mitteilung)\b`),
			regexp.MustCompile(`(?i)\b(?:due\s+date|expiry|expiration|maturity)\b`),
			regexp.MustCompile(`(?i)\b(?:shall\s+expire|no\s+later\s+than|prior\s+to)\b`),
		},
		Absolute: []AbsoluteDatePattern{
			{
				Format:  FormatNumericDotted,
				Pattern: regexp.MustCompile(`\b(\d{1,2})\.(\d{1,2})\.(\d{2,4})\b`),
			},
			{
				Format:  FormatGermanMonth,
				Pattern: regexp.MustCompile(`\b(\d{1,2})\.\s?(Januar|Februar|März|April|Mai|Juni|Juli|August|September|Oktober|November|Dezember)\s?(\d{4})\b`),
			},
			{
				Format:  FormatNumericSlash,
				Pattern: regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})/(\d{2,4})\b`),
			},
			{
				Format:  FormatMonthFirst,
				Pattern: regexp.MustCompile(`\b(January|February|March|April|May|June|July|August|September|October|November|December)\s+(\d{1,2}),?\s+(\d{4})\b`),
			},
			{
				Format:  FormatDayFirst,
				Pattern: regexp.MustCompile(`\b(\d{1,2})\s+(January|February|March|April|May|June|July|August|September|October|November|December)\s+(\d{4})\b`),
			},
		},
		Relative: []RelativeDeadlinePattern{
			{Unit: UnitDays, Pattern: regexp.MustCompile(`(?i)\b(\d+)\s*(?:Tag(?:e|en)?|Werktag(?:e|en)?|Kalendertag(?:e|en)?)\b`)},
			{Unit: UnitWeeks, Pattern: regexp.MustCompile(`(?i)\b(\d+)\s*Woche(?:n)?\b`)},
			{Unit: UnitMonths, Pattern: regexp.MustCompile(`(?i)\b(\d+)\s*Monat(?:e|en)?\b`)},
			{Unit: UnitYears, Pattern: regexp.MustCompile(`(?i)\b(\d+)\s*Jahr(?:e|en)?\b`)},
			{Unit: UnitDays, Pattern: regexp.MustCompile(`(?i)\b(?:innerhalb|bis)\s+(?:von\s+)?(\d+)\s*Tag(?:e|en)?\b`)},
			{Unit: UnitDays, Pattern: regexp.MustCompile(`(?i)\b(\d+)\s*(?:day|days|business\s+day|business\s+days)\b`)},
			{Unit: UnitWeeks, Pattern: regexp.MustCompile(`(?i)\b(\d+)\s*week(?:s)?\b`)},
			{Unit: UnitMonths, Pattern: regexp.MustCompile(`(?i)\b(\d+)\s*month(?:s)?\b`)},
			{Unit: UnitYears, Pattern: regexp.MustCompile(`(?i)\b(\d+)\s*year(?:s)?\b`)},
			{Unit: UnitDays, Pattern: regexp.MustCompile(`(?i)\b(?:within|up\s+to)\s+(\d+)\s*day(?:s)?\b`)},
		},
		StrongIndicators: []string{
			"frist", "deadline", "spätestens", "no later than",
			"kündigung", "termination", "renewal", "verlängerung",
		},
		WeakIndicators: []string{
			"beispiel", "example", "etwa", "circa", "approximately",
		},
		Classifications: []DeadlineClassification{
			{DeadlineTermination, regexp.MustCompile(`(?i)kündig|terminat|cancel|beend`)},
			{DeadlinePayment, regexp.MustCompile(`(?i)zahlung|payment|rechnung|invoice|fällig|due`)},
			{DeadlineRenewal, regexp.MustCompile(`(?i)verlänger|renew|erneuer|extend`)},
			{DeadlineNotice, regexp.MustCompile(`(?i)mitteilung|notice|benachrichtig|inform`)},
			{DeadlinePerformance, regexp.MustCompile(`(?i)leistung|performance|lieferung|delivery|erfüllung`)},
			{DeadlineWarranty, regexp.MustCompile(`(?i)gewährleistung|warranty|garantie|mängel`)},
		},
		ImportanceByCategory: map[DeadlineCategory]float64{
			DeadlineTermination: 0.9,
			DeadlinePayment:     0.8,
			DeadlineRenewal:     0.7,
			DeadlineNotice:      0.6,
			DeadlinePerformance: 0.7,
			DeadlineWarranty:    0.5,
			DeadlineGeneral:     0.4,
		},
		EventTitles: map[DeadlineCategory]string{
			DeadlineTermination: "Kündigungsfrist",
			DeadlinePayment:     "Zahlungstermin",
			DeadlineRenewal:     "Verlängerungstermin",
			DeadlineNotice:      "Mitteilungsfrist",
			DeadlinePerformance: "Leistungstermin",
			DeadlineWarranty:    "Gewährleistungsfrist",
			DeadlineGeneral:     "Vertragstermin",
		},
	}
}

// GermanMonths maps German month names to month numbers
var GermanMonths = map[string]int{
	"Januar": 1, "Februar": 2, "März": 3, "April": 4,
	"Mai": 5, "Juni": 6, "Juli": 7, "August": 8,
	"September": 9, "Oktober": 10, "November": 11, "Dezember": 12,
}

// EnglishMonths maps English month names to month numbers
var EnglishMonths = map[string]int{
	"January": 1, "February": 2, "March": 3, "April": 4,
	"May": 5, "June": 6, "July": 7, "August": 8,
	"September": 9, "October": 10, "November": 11, "December": 12,
}
