package tools

import "context"

// GenerateOptions tune a single generation call
type GenerateOptions struct {
	Temperature float64
	MaxTokens   int
}

// TextGenerator is the boundary to the language model. Tools that draft
// or rewrite text depend on this interface only; pattern analysis never
// calls it.
type TextGenerator interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string, opts GenerateOptions) (string, error)
}

// Provenance values for generated content
const (
	SourceGenerated = "generated"
	SourceFallback  = "fallback"
	SourcePattern   = "pattern"
	SourceAI        = "ai"
)
