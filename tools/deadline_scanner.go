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

// Urgency levels for deadlines
const (
	UrgencyOverdue = "overdue"
	UrgencyHigh    = "high"
	UrgencyMedium  = "medium"
	UrgencyLow     = "low"
)

// DeadlineScanner finds absolute and relative deadlines in retrieved
// contract text and ranks them by priority.
type DeadlineScanner struct {
	rules *rules.Set
	now   func() time.Time
}

// DeadlineScannerOption configures the scanner
type DeadlineScannerOption func(*DeadlineScanner)

// ScannerWithClock injects the time source used for urgency calculations
func ScannerWithClock(now func() time.Time) DeadlineScannerOption {
	return func(s *DeadlineScanner) { s.now = now }
}

// NewDeadlineScanner creates a deadline scanner on the given rule set
func NewDeadlineScanner(ruleSet *rules.Set, opts ...DeadlineScannerOption) *DeadlineScanner {
	s := &DeadlineScanner{rules: ruleSet, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Deadline is one detected deadline
type Deadline struct {
	Type       string  `json:"type"`
	Kind       string  `json:"kind"` // "absolute" or "relative"
	Date       string  `json:"date,omitempty"`
	RawText    string  `json:"raw_text"`
	Context    string  `json:"context"`
	DaysUntil  *int    `json:"days_until,omitempty"`
	Quantity   int     `json:"quantity,omitempty"`
	Unit       string  `json:"unit,omitempty"`
	Urgency    string  `json:"urgency"`
	Confidence float64 `json:"confidence"`
	Importance float64 `json:"importance"`
	Priority   float64 `json:"priority"`
	Page       int     `json:"page"`
	ChunkID    string  `json:"chunk_id"`
}

// CalendarEvent is an exportable calendar entry for a dated deadline
type CalendarEvent struct {
	Title       string `json:"title"`
	Date        string `json:"date"`
	Description string `json:"description"`
	Page        int    `json:"page"`
}

// DeadlineScannerData is the deadline scanner's result payload
type DeadlineScannerData struct {
	Deadlines      []Deadline      `json:"deadlines"`
	CalendarEvents []CalendarEvent `json:"calendar_events"`
}

// Name implements Analyzer
func (t *DeadlineScanner) Name() string { return "deadline_scanner" }

// Analyze implements Analyzer
func (t *DeadlineScanner) Analyze(ctx context.Context, req *models.RequestContext) (*Result, error) {
	var deadlines []Deadline

	for _, chunk := range req.Chunks() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !t.hasTrigger(chunk.Text) {
			continue
		}
		deadlines = append(deadlines, t.scanAbsolute(&chunk)...)
		deadlines = append(deadlines, t.scanRelative(&chunk)...)
	}

	sort.SliceStable(deadlines, func(i, j int) bool { return deadlines[i].Priority > deadlines[j].Priority })

	data := &DeadlineScannerData{
		Deadlines:      deadlines,
		CalendarEvents: t.calendarEvents(deadlines),
	}

	return &Result{
		Data:      data,
		Insights:  t.insights(deadlines),
		Citations: t.citations(deadlines),
		Extra: map[string]interface{}{
			"deadlines_found": len(deadlines),
		},
	}, nil
}

func (t *DeadlineScanner) hasTrigger(text string) bool {
	for _, re := range t.rules.Deadline.Triggers {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

func (t *DeadlineScanner) scanAbsolute(chunk *models.TextChunk) []Deadline {
	var out []Deadline
	seen := make(map[int]bool)

	for _, ap := range t.rules.Deadline.Absolute {
		for _, loc := range ap.Pattern.FindAllStringSubmatchIndex(chunk.Text, -1) {
			if seen[loc[0]] {
				continue
			}
			date, ok := parseAbsoluteDate(ap, chunk.Text, loc)
			if !ok {
				continue
			}
			seen[loc[0]] = true

			window := extractWindow(chunk.Text, loc[0], loc[1], 100)
			conf := t.confidence(chunk.Text, loc[0], loc[1])
			category := t.classify(window.Full)
			importance := t.importance(category, conf)
			days := t.daysUntil(date)
			urgency := urgencyFor(days)

			out = append(out, Deadline{
				Type:       string(category),
				Kind:       "absolute",
				Date:       date.Format("2006-01-02"),
				RawText:    chunk.Text[loc[0]:loc[1]],
				Context:    window.Full,
				DaysUntil:  &days,
				Urgency:    urgency,
				Confidence: conf,
				Importance: importance,
				Priority:   importance * urgencyFactor(urgency),
				Page:       chunk.Page(),
				ChunkID:    chunk.ChunkID,
			})
		}
	}
	return out
}

func (t *DeadlineScanner) scanRelative(chunk *models.TextChunk) []Deadline {
	var out []Deadline
	seen := make(map[int]bool)

	for _, rp := range t.rules.Deadline.Relative {
		for _, loc := range rp.Pattern.FindAllStringSubmatchIndex(chunk.Text, -1) {
			if seen[loc[0]] {
				continue
			}
			qty, err := strconv.Atoi(chunk.Text[loc[2]:loc[3]])
			if err != nil || qty <= 0 {
				continue
			}
			seen[loc[0]] = true

			window := extractWindow(chunk.Text, loc[0], loc[1], 100)
			conf := t.confidence(chunk.Text, loc[0], loc[1])
			category := t.classify(window.Full)
			importance := t.importance(category, conf)
			urgency := urgencyFor(estimateDays(qty, rp.Unit))

			out = append(out, Deadline{
				Type:       string(category),
				Kind:       "relative",
				RawText:    chunk.Text[loc[0]:loc[1]],
				Context:    window.Full,
				Quantity:   qty,
				Unit:       string(rp.Unit),
				Urgency:    urgency,
				Confidence: conf,
				Importance: importance,
				Priority:   importance * urgencyFactor(urgency),
				Page:       chunk.Page(),
				ChunkID:    chunk.ChunkID,
			})
		}
	}
	return out
}

// confidence starts at 0.5 and shifts by 0.2 per strong indicator and
// -0.3 per weak indicator within 50 characters of the match
func (t *DeadlineScanner) confidence(text string, start, end int) float64 {
	window := strings.ToLower(extractWindow(text, start, end, 50).Full)
	conf := 0.5
	for _, ind := range t.rules.Deadline.StrongIndicators {
		if strings.Contains(window, ind) {
			conf += 0.2
		}
	}
	for _, ind := range t.rules.Deadline.WeakIndicators {
		if strings.Contains(window, ind) {
			conf -= 0.3
		}
	}
	return clamp(conf, 0.1, 1.0)
}

func (t *DeadlineScanner) classify(window string) rules.DeadlineCategory {
	for _, c := range t.rules.Deadline.Classifications {
		if c.Pattern.MatchString(window) {
			return c.Category
		}
	}
	return rules.DeadlineGeneral
}

func (t *DeadlineScanner) importance(category rules.DeadlineCategory, conf float64) float64 {
	score, ok := t.rules.Deadline.ImportanceByCategory[category]
	if !ok {
		score = t.rules.Deadline.ImportanceByCategory[rules.DeadlineGeneral]
	}
	return clamp(score*conf, 0, 1.0)
}

func (t *DeadlineScanner) daysUntil(date time.Time) int {
	now := t.now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return int(date.Sub(today).Hours() / 24)
}

func urgencyFor(days int) string {
	switch {
	case days < 0:
		return UrgencyOverdue
	case days <= 7:
		return UrgencyHigh
	case days <= 30:
		return UrgencyMedium
	default:
		return UrgencyLow
	}
}

func urgencyFactor(urgency string) float64 {
	switch urgency {
	case UrgencyOverdue:
		return 1.0
	case UrgencyHigh:
		return 0.9
	case UrgencyMedium:
		return 0.6
	default:
		return 0.3
	}
}

// estimateDays converts a relative quantity to calendar days for urgency
// estimation only; the raw quantity and unit are preserved on the finding
func estimateDays(qty int, unit rules.RelativeUnit) int {
	switch unit {
	case rules.UnitWeeks:
		return qty * 7
	case rules.UnitMonths:
		return qty * 30
	case rules.UnitYears:
		return qty * 365
	default:
		return qty
	}
}

// parseAbsoluteDate turns a submatch into a UTC date, rejecting
// impossible day or month values. Two-digit years map to 2000+.
func parseAbsoluteDate(ap rules.AbsoluteDatePattern, text string, loc []int) (time.Time, bool) {
	group := func(n int) string { return text[loc[2*n]:loc[2*n+1]] }

	var day, month, year int
	switch ap.Format {
	case rules.FormatNumericDotted:
		day, _ = strconv.Atoi(group(1))
		month, _ = strconv.Atoi(group(2))
		year, _ = strconv.Atoi(group(3))
	case rules.FormatGermanMonth:
		day, _ = strconv.Atoi(group(1))
		month = rules.GermanMonths[group(2)]
		year, _ = strconv.Atoi(group(3))
	case rules.FormatNumericSlash:
		month, _ = strconv.Atoi(group(1))
		day, _ = strconv.Atoi(group(2))
		year, _ = strconv.Atoi(group(3))
	case rules.FormatMonthFirst:
		month = rules.EnglishMonths[group(1)]
		day, _ = strconv.Atoi(group(2))
		year, _ = strconv.Atoi(group(3))
	case rules.FormatDayFirst:
		day, _ = strconv.Atoi(group(1))
		month = rules.EnglishMonths[group(2)]
		year, _ = strconv.Atoi(group(3))
	default:
		return time.Time{}, false
	}

	if year < 100 {
		year += 2000
	}
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC), true
}

// calendarEvents builds exportable entries for dated deadlines that are
// not already overdue
func (t *DeadlineScanner) calendarEvents(deadlines []Deadline) []CalendarEvent {
	events := make([]CalendarEvent, 0)
	for _, d := range deadlines {
		if d.Kind != "absolute" || d.Urgency == UrgencyOverdue {
			continue
		}
		title, ok := t.rules.Deadline.EventTitles[rules.DeadlineCategory(d.Type)]
		if !ok {
			title = t.rules.Deadline.EventTitles[rules.DeadlineGeneral]
		}
		events = append(events, CalendarEvent{
			Title:       title,
			Date:        d.Date,
			Description: truncate(d.Context, 200),
			Page:        d.Page,
		})
	}
	return events
}

func (t *DeadlineScanner) insights(deadlines []Deadline) *models.Insights {
	ins := &models.Insights{}

	for _, d := range deadlines {
		if d.Kind == "absolute" && d.DaysUntil != nil && *d.DaysUntil > 0 && *d.DaysUntil <= 30 {
			ins.Deadlines = append(ins.Deadlines, models.InsightDeadline{
				Date:        d.Date,
				Type:        d.Type,
				DaysUntil:   *d.DaysUntil,
				Urgency:     d.Urgency,
				Page:        d.Page,
				Description: truncate(d.Context, 200),
			})
		}
	}

	hasHigh, overdue := false, 0
	for _, d := range deadlines {
		switch d.Urgency {
		case UrgencyHigh:
			hasHigh = true
		case UrgencyOverdue:
			overdue++
		}
	}
	if hasHigh {
		ins.Recommendations = append(ins.Recommendations, models.Recommendation{
			Type:     "urgent_action",
			Priority: "high",
			Message:  "Mindestens eine Frist läuft innerhalb der nächsten 7 Tage ab. Kurzfristig handeln.",
		})
	}
	if overdue > 0 {
		ins.Recommendations = append(ins.Recommendations, models.Recommendation{
			Type:     "overdue_alert",
			Priority: "critical",
			Message:  fmt.Sprintf("%d Frist(en) bereits überschritten. Rechtliche Folgen prüfen.", overdue),
		})
	}
	return ins
}

// citations keeps only confident findings
func (t *DeadlineScanner) citations(deadlines []Deadline) []models.Citation {
	var out []models.Citation
	for _, d := range deadlines {
		if d.Confidence <= 0.6 {
			continue
		}
		out = append(out, models.Citation{
			ChunkID:    d.ChunkID,
			Text:       truncate(d.Context, 200),
			Page:       d.Page,
			Type:       "deadline",
			Confidence: d.Confidence,
		})
	}
	return out
}

// HealthCheck implements Analyzer
func (t *DeadlineScanner) HealthCheck() *models.HealthReport {
	req := &models.RequestContext{
		Question: "Welche Fristen gibt es?",
		RetrievalResults: &models.RetrievalResults{
			Results: []models.TextChunk{{
				ChunkID: "health-1",
				Text:    "Die Kündigungsfrist beträgt 3 Monate zum 31.12.2024.",
				Score:   1.0,
				Spans:   models.Span{PageStart: 1},
			}},
		},
	}

	patterns := len(t.rules.Deadline.Absolute) + len(t.rules.Deadline.Relative) + len(t.rules.Deadline.Triggers)

	res, err := t.Analyze(context.Background(), req)
	if err != nil {
		return &models.HealthReport{Status: models.HealthStatusUnhealthy, PatternsLoaded: patterns, Error: err.Error()}
	}
	data, _ := res.Data.(*DeadlineScannerData)
	ok := data != nil && len(data.Deadlines) > 0
	status := models.HealthStatusHealthy
	if !ok {
		status = models.HealthStatusUnhealthy
	}
	return &models.HealthReport{Status: status, PatternsLoaded: patterns, TestResult: ok}
}
