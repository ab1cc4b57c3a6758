package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"lexlens-backend/tools"

	"github.com/google/generative-ai-go/genai"
)

var (
	ErrGeneratorUnavailable = errors.New("text generator not configured")
	ErrGenerationFailed     = errors.New("failed to generate content")
)

const (
	embeddingAPI   = "https://generativelanguage.googleapis.com/v1beta/models/gemini-embedding-001:embedContent"
	generationAPI  = "https://generativelanguage.googleapis.com/v1beta/models/gemini-3-pro-preview:generateContent"
	maxRetries     = 3
	initialBackoff = time.Second

	// Prompts beyond this length are truncated before the API call
	maxPromptChars = 30000
)

// GenerationService calls the Gemini generation API and implements
// tools.TextGenerator for the tools that draft or rewrite text.
type GenerationService struct {
	geminiClient *genai.Client
}

// GenerationServiceOption is a functional option for GenerationService
type GenerationServiceOption func(*GenerationService)

// GenerationWithGeminiClient sets the Gemini client
func GenerationWithGeminiClient(client *genai.Client) GenerationServiceOption {
	return func(s *GenerationService) {
		s.geminiClient = client
	}
}

// NewGenerationService creates a new generation service
func NewGenerationService(opts ...GenerationServiceOption) *GenerationService {
	s := &GenerationService{}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ tools.TextGenerator = (*GenerationService)(nil)

// Generate produces text for the given prompts. Transient API failures are
// retried with exponential backoff; client errors (400, 401) are not.
func (s *GenerationService) Generate(
	ctx context.Context,
	systemPrompt string,
	userPrompt string,
	opts tools.GenerateOptions,
) (string, error) {
	if s.geminiClient == nil {
		return "", ErrGeneratorUnavailable
	}

	if len(userPrompt) > maxPromptChars {
		log.Printf("Warning: Prompt truncated from %d to %d characters", len(userPrompt), maxPromptChars)
		userPrompt = userPrompt[:maxPromptChars]
	}

	var content string
	var lastErr error
	backoff := initialBackoff
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(backoff)
			backoff *= 2
		}

		content, lastErr = s.callGenerationAPI(ctx, systemPrompt, userPrompt, opts)
		if lastErr == nil {
			return content, nil
		}

		// Don't retry on client errors or a cancelled context
		if errors.Is(lastErr, errNoRetry) || ctx.Err() != nil {
			return "", lastErr
		}

		if attempt == maxRetries-1 {
			return "", fmt.Errorf("failed to generate content after %d attempts: %w", maxRetries, lastErr)
		}
	}

	return "", ErrGenerationFailed
}

// errNoRetry wraps API failures that a retry cannot fix
var errNoRetry = errors.New("non-retryable API error")

// callGenerationAPI calls the Gemini generation API directly via HTTP
func (s *GenerationService) callGenerationAPI(
	ctx context.Context,
	systemPrompt string,
	userPrompt string,
	opts tools.GenerateOptions,
) (string, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return "", fmt.Errorf("GEMINI_API_KEY not set: %w", errNoRetry)
	}

	generationConfig := map[string]interface{}{
		"temperature": opts.Temperature,
	}
	if opts.MaxTokens > 0 {
		generationConfig["maxOutputTokens"] = opts.MaxTokens
	}

	reqBody := map[string]interface{}{
		"contents": []map[string]interface{}{
			{
				"parts": []map[string]interface{}{
					{"text": userPrompt},
				},
			},
		},
		"generationConfig": generationConfig,
	}
	if systemPrompt != "" {
		reqBody["systemInstruction"] = map[string]interface{}{
			"parts": []map[string]interface{}{
				{"text": systemPrompt},
			},
		}
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", generationAPI, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", apiKey)

	client := &http.Client{Timeout: 120 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		log.Printf("Gemini API error: Status %d, Body: %s", resp.StatusCode, string(bodyBytes))
		if resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnauthorized {
			return "", fmt.Errorf("API error: %d: %w", resp.StatusCode, errNoRetry)
		}
		return "", fmt.Errorf("API error: %d - %s", resp.StatusCode, string(bodyBytes))
	}

	var apiResp struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
			FinishReason string `json:"finishReason,omitempty"`
		} `json:"candidates"`
		PromptFeedback struct {
			BlockReason string `json:"blockReason,omitempty"`
		} `json:"promptFeedback,omitempty"`
		Error struct {
			Code    int    `json:"code,omitempty"`
			Message string `json:"message,omitempty"`
		} `json:"error,omitempty"`
	}

	bodyBytes, _ := io.ReadAll(resp.Body)
	if err := json.Unmarshal(bodyBytes, &apiResp); err != nil {
		log.Printf("Failed to decode response. Body: %s", string(bodyBytes))
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	if apiResp.Error.Message != "" {
		return "", fmt.Errorf("API error: %s (code: %d)", apiResp.Error.Message, apiResp.Error.Code)
	}

	if apiResp.PromptFeedback.BlockReason != "" {
		return "", fmt.Errorf("API blocked prompt: %s: %w", apiResp.PromptFeedback.BlockReason, errNoRetry)
	}

	if len(apiResp.Candidates) == 0 {
		log.Printf("API returned no candidates. Full response: %s", string(bodyBytes))
		return "", fmt.Errorf("API returned no candidates")
	}

	var responseText strings.Builder
	for i, candidate := range apiResp.Candidates {
		if candidate.FinishReason != "" && candidate.FinishReason != "STOP" {
			log.Printf("Warning: Candidate %d finished with reason: %s", i, candidate.FinishReason)
		}

		if len(candidate.Content.Parts) == 0 {
			log.Printf("Error: Candidate %d has no parts. Response (first 1000 chars): %s",
				i, string(bodyBytes[:min(1000, len(bodyBytes))]))
			return "", fmt.Errorf("API candidate has no parts (finish reason: %s)", candidate.FinishReason)
		}

		for j, part := range candidate.Content.Parts {
			if part.Text == "" {
				log.Printf("Warning: Candidate %d, part %d has empty text", i, j)
				continue
			}
			responseText.WriteString(part.Text)
		}
	}

	result := responseText.String()
	if result == "" {
		return "", fmt.Errorf("API returned empty content")
	}

	return result, nil
}

// min returns the minimum of two integers
func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
