// Package rules holds the bilingual (German/English) pattern tables the
// analysis tools run on. A Set is compiled once at startup and injected
// into each tool; nothing in this package mutates after construction, so
// a single Set is safe to share across concurrent requests.
//
// The tables intentionally over-approximate: they favor recall over
// precision because a human reviews every finding.
package rules

// Set bundles the rule tables for all analysis tools
type Set struct {
	Clause   ClauseRules
	Deadline DeadlineRules
	PII      PIIRules
	Table    TableRules
	Redline  RedlineRules
	Letter   LetterRules
}

// Default compiles the built-in rule set
func Default() *Set {
	return &Set{
		Clause:   defaultClauseRules(),
		Deadline: defaultDeadlineRules(),
		PII:      defaultPIIRules(),
		Table:    defaultTableRules(),
		Redline:  defaultRedlineRules(),
		Letter:   defaultLetterRules(),
	}
}
