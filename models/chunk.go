package models

// Span locates a chunk inside the source document
type Span struct {
	PageStart int  `json:"page_start"`
	PageEnd   *int `json:"page_end,omitempty"`
	CharStart *int `json:"char_start,omitempty"`
	CharEnd   *int `json:"char_end,omitempty"`
}

// TextChunk is a scored fragment of contract text supplied by the retrieval layer.
// Chunks are immutable; ChunkID is unique within a single request only.
type TextChunk struct {
	ChunkID  string                 `json:"chunk_id"`
	Text     string                 `json:"text"`
	Score    float64                `json:"score"`
	Spans    Span                   `json:"spans"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// Page returns the start page of the chunk, defaulting to 1
func (c *TextChunk) Page() int {
	if c.Spans.PageStart > 0 {
		return c.Spans.PageStart
	}
	return 1
}

// RetrievalResults wraps the ranked chunk list from the retrieval layer
type RetrievalResults struct {
	Results []TextChunk `json:"results"`
}

// UserMode controls the register of generated explanations
type UserMode string

const (
	ModeLayperson UserMode = "layperson"
	ModeBusiness  UserMode = "business"
	ModeLegal     UserMode = "legal"
)

// RequestContext is the uniform input to every analysis tool.
// It is constructed once per invocation and treated as read-only.
type RequestContext struct {
	Question         string                 `json:"question"`
	RetrievalResults *RetrievalResults      `json:"retrieval_results"`
	UserMode         UserMode               `json:"user_mode,omitempty"`
	FeatureFlags     map[string]bool        `json:"feature_flags,omitempty"`
	Metadata         map[string]interface{} `json:"metadata,omitempty"`
}

// Chunks returns the retrieved chunks, or nil when retrieval results are absent.
// A missing result set means "zero findings", never an error.
func (r *RequestContext) Chunks() []TextChunk {
	if r == nil || r.RetrievalResults == nil {
		return nil
	}
	return r.RetrievalResults.Results
}

// Flag reports whether a feature flag is set
func (r *RequestContext) Flag(name string) bool {
	if r == nil || r.FeatureFlags == nil {
		return false
	}
	return r.FeatureFlags[name]
}

// MatchContext is the text window surrounding a pattern match
type MatchContext struct {
	Before string `json:"before"`
	After  string `json:"after"`
	Full   string `json:"full"`
}
