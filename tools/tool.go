// Package tools implements the contract analysis tools. Every tool
// consumes the same request shape and produces the same envelope shape;
// the Runner wraps execution with timing and panic containment so a
// misbehaving tool degrades into a failed envelope instead of taking the
// process down.
package tools

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"lexlens-backend/models"
)

// Analyzer is the interface every analysis tool implements
type Analyzer interface {
	// Name returns the tool's registry key, e.g. "clause_finder"
	Name() string

	// Analyze runs the tool against the request context. Implementations
	// return partial-free results: either a complete Result or an error.
	Analyze(ctx context.Context, req *models.RequestContext) (*Result, error)

	// HealthCheck runs the tool's synchronous self-test
	HealthCheck() *models.HealthReport
}

// Result is a tool's raw output before envelope assembly
type Result struct {
	Data      interface{}
	Insights  *models.Insights
	Citations []models.Citation
	Extra     map[string]interface{}
}

// Runner executes tools and assembles result envelopes
type Runner struct {
	now func() time.Time
}

// NewRunner creates a tool runner
func NewRunner() *Runner {
	return &Runner{now: time.Now}
}

// Execute runs the analyzer and wraps its output in a ResultEnvelope.
// Panics inside the tool are recovered and reported as failures.
func (r *Runner) Execute(ctx context.Context, a Analyzer, req *models.RequestContext) (env *models.ResultEnvelope) {
	start := r.now()

	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("Warning: tool %s panicked: %v", a.Name(), rec)
			env = r.failure(a.Name(), start, fmt.Sprintf("internal error: %v", rec))
		}
	}()

	if err := ctx.Err(); err != nil {
		return r.failure(a.Name(), start, err.Error())
	}

	res, err := a.Analyze(ctx, req)
	if err != nil {
		log.Printf("Warning: tool %s failed: %v", a.Name(), err)
		return r.failure(a.Name(), start, err.Error())
	}

	return &models.ResultEnvelope{
		Success:   true,
		Data:      res.Data,
		Insights:  res.Insights,
		Citations: res.Citations,
		Metadata: models.EnvelopeMetadata{
			ProcessingTimeMs: r.now().Sub(start).Milliseconds(),
			ToolName:         a.Name(),
			Extra:            res.Extra,
		},
	}
}

func (r *Runner) failure(tool string, start time.Time, msg string) *models.ResultEnvelope {
	return &models.ResultEnvelope{
		Success: false,
		Error:   msg,
		Metadata: models.EnvelopeMetadata{
			ProcessingTimeMs: r.now().Sub(start).Milliseconds(),
			ToolName:         tool,
		},
	}
}

// truncate shortens s to at most n bytes, trimming trailing space.
// Truncation happens on excerpts only, never on text that gets redacted.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return strings.TrimRight(s[:n], " \t\n")
}

// extractWindow returns the text surrounding a match at [start,end)
// with up to size bytes on each side
func extractWindow(text string, start, end, size int) models.MatchContext {
	from := start - size
	if from < 0 {
		from = 0
	}
	to := end + size
	if to > len(text) {
		to = len(text)
	}
	return models.MatchContext{
		Before: text[from:start],
		After:  text[end:to],
		Full:   text[from:to],
	}
}

// clamp bounds v to [lo, hi]
func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// matchAll collects the matches of every pattern in order, deduplicated
// case-insensitively
func matchAll(patterns []*regexp.Regexp, text string) []string {
	var hits []string
	for _, re := range patterns {
		hits = append(hits, re.FindAllString(text, -1)...)
	}
	return dedupStrings(hits)
}

// dedupStrings lowercases, trims and deduplicates while keeping first-seen order
func dedupStrings(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		k := strings.ToLower(strings.TrimSpace(s))
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	return out
}
