package models

// Citation points a finding back to its source chunk for provenance.
// The text is always a truncated excerpt of real chunk content.
type Citation struct {
	ChunkID    string  `json:"chunk_id"`
	Text       string  `json:"text"`
	Page       int     `json:"page"`
	Type       string  `json:"type"`
	Confidence float64 `json:"confidence,omitempty"`
}

// Risk is a flagged concern surfaced in the insights panel
type Risk struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	Severity    string `json:"severity"`
	Page        int    `json:"page,omitempty"`
	DaysUntil   *int   `json:"days_until,omitempty"`
}

// InsightDeadline is a deadline entry for the insights panel
type InsightDeadline struct {
	Date        string `json:"date"`
	Type        string `json:"type"`
	DaysUntil   int    `json:"days_until,omitempty"`
	Urgency     string `json:"urgency,omitempty"`
	Page        int    `json:"page,omitempty"`
	Description string `json:"description,omitempty"`
	Source      string `json:"source,omitempty"`
}

// InsightAmount is a monetary amount entry for the insights panel
type InsightAmount struct {
	Amount   interface{} `json:"amount"`
	Currency string      `json:"currency,omitempty"`
	Context  string      `json:"context,omitempty"`
	Page     int         `json:"page,omitempty"`
	Source   string      `json:"source,omitempty"`
}

// InsightParty is a contract party or data subject entry
type InsightParty struct {
	Name        string `json:"name,omitempty"`
	Type        string `json:"type"`
	Role        string `json:"role,omitempty"`
	Count       int    `json:"count,omitempty"`
	Description string `json:"description,omitempty"`
}

// Recommendation is an actionable hint attached to tool output
type Recommendation struct {
	Type     string `json:"type"`
	Priority string `json:"priority"`
	Message  string `json:"message"`
}

// Insights is the cross-tool insights panel payload. Tools fill the
// sections that apply to them and leave the rest empty.
type Insights struct {
	KeyTerms        []string          `json:"key_terms,omitempty"`
	Deadlines       []InsightDeadline `json:"deadlines,omitempty"`
	Amounts         []InsightAmount   `json:"amounts,omitempty"`
	Risks           []Risk            `json:"risks,omitempty"`
	Parties         []InsightParty    `json:"parties,omitempty"`
	Recommendations []Recommendation  `json:"recommendations,omitempty"`
}

// EnvelopeMetadata carries timing and identification data for a tool run
type EnvelopeMetadata struct {
	ProcessingTimeMs int64                  `json:"processing_time_ms"`
	ToolName         string                 `json:"tool_name"`
	Extra            map[string]interface{} `json:"extra,omitempty"`
}

// ResultEnvelope is the uniform output contract of every analysis tool.
// It is constructed once and never mutated after return. A failed run
// carries Error and a nil Data; partial results are never returned.
type ResultEnvelope struct {
	Success   bool             `json:"success"`
	Data      interface{}      `json:"data"`
	Insights  *Insights        `json:"insights,omitempty"`
	Citations []Citation       `json:"citations,omitempty"`
	Error     string           `json:"error,omitempty"`
	Metadata  EnvelopeMetadata `json:"metadata"`
}

// HealthStatus values for tool self-tests
const (
	HealthStatusHealthy   = "healthy"
	HealthStatusUnhealthy = "unhealthy"
)

// HealthReport is the result of a tool's synchronous self-test
type HealthReport struct {
	Status         string                 `json:"status"`
	PatternsLoaded int                    `json:"patterns_loaded,omitempty"`
	TestResult     bool                   `json:"test_result"`
	Error          string                 `json:"error,omitempty"`
	Details        map[string]interface{} `json:"details,omitempty"`
}
