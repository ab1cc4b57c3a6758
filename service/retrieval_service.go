package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"os"
	"time"

	"lexlens-backend/models"
	"lexlens-backend/repository"

	"github.com/google/uuid"
)

var (
	ErrEmbeddingFailed = errors.New("failed to generate embedding")
	ErrRetrievalFailed = errors.New("failed to retrieve contract context")
)

// defaultRetrievalLimit caps how many chunks a single request receives
const defaultRetrievalLimit = 8

// RetrievalService turns a user question into the ranked chunk context
// the analysis tools consume.
type RetrievalService struct {
	chunkRepo *repository.ContractChunkRepository
}

// RetrievalServiceOption is a functional option for RetrievalService
type RetrievalServiceOption func(*RetrievalService)

// RetrievalWithContractChunkRepository sets the contract chunk repository
func RetrievalWithContractChunkRepository(repo *repository.ContractChunkRepository) RetrievalServiceOption {
	return func(s *RetrievalService) {
		s.chunkRepo = repo
	}
}

// NewRetrievalService creates a new retrieval service
func NewRetrievalService(opts ...RetrievalServiceOption) *RetrievalService {
	s := &RetrievalService{}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RetrieveRequest describes one retrieval run
type RetrieveRequest struct {
	Question   string
	DocumentID *uuid.UUID // Optional, restricts search to one document
	UserMode   models.UserMode
	Limit      int
}

// Retrieve embeds the question, searches the chunk store and assembles
// the request context for the tools. Cosine distance is converted to a
// similarity score (1 - distance).
func (s *RetrievalService) Retrieve(ctx context.Context, req RetrieveRequest) (*models.RequestContext, error) {
	if s.chunkRepo == nil {
		return nil, errors.New("contract chunk repository not set")
	}

	limit := req.Limit
	if limit <= 0 {
		limit = defaultRetrievalLimit
	}

	embedding, err := s.generateQueryEmbedding(ctx, req.Question)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
	}

	chunks, err := s.chunkRepo.Search(ctx, embedding, req.DocumentID, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRetrievalFailed, err)
	}

	results := make([]models.TextChunk, 0, len(chunks))
	for _, chunk := range chunks {
		score := 1.0 - chunk.Distance
		if score < 0 {
			score = 0
		}
		results = append(results, models.TextChunk{
			ChunkID: chunk.ID.String(),
			Text:    chunk.Text,
			Score:   score,
			Spans: models.Span{
				PageStart: chunk.PageStart,
				PageEnd:   chunk.PageEnd,
				CharStart: chunk.CharStart,
				CharEnd:   chunk.CharEnd,
			},
			Metadata: chunk.Metadata,
		})
	}

	return &models.RequestContext{
		Question:         req.Question,
		RetrievalResults: &models.RetrievalResults{Results: results},
		UserMode:         req.UserMode,
	}, nil
}

// EmbeddingRequest represents an embedding API request
type EmbeddingRequest struct {
	Model                string       `json:"model"`
	Content              ContentInput `json:"content"`
	TaskType             string       `json:"task_type,omitempty"`
	OutputDimensionality int          `json:"output_dimensionality,omitempty"`
}

// ContentInput represents content for embedding
type ContentInput struct {
	Parts []PartInput `json:"parts"`
}

// PartInput represents a part of content
type PartInput struct {
	Text string `json:"text"`
}

// EmbeddingResponse represents an embedding API response
type EmbeddingResponse struct {
	Embedding EmbeddingData `json:"embedding"`
}

// EmbeddingData contains the embedding values
type EmbeddingData struct {
	Values []float64 `json:"values"`
}

// generateQueryEmbedding generates an embedding for a retrieval query
func (s *RetrievalService) generateQueryEmbedding(ctx context.Context, queryText string) ([]float64, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY not set")
	}

	reqBody := EmbeddingRequest{
		Model: "models/gemini-embedding-001",
		Content: ContentInput{
			Parts: []PartInput{{Text: queryText}},
		},
		TaskType:             "RETRIEVAL_QUERY",
		OutputDimensionality: 768,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	var embedding []float64
	backoff := initialBackoff
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(backoff)
			backoff *= 2
		}

		req, err := http.NewRequestWithContext(ctx, "POST", embeddingAPI, bytes.NewBuffer(jsonData))
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}

		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("x-goog-api-key", apiKey)

		client := &http.Client{Timeout: 30 * time.Second}
		resp, err := client.Do(req)
		if err != nil {
			if attempt == maxRetries-1 {
				return nil, fmt.Errorf("failed to send request after %d attempts: %w", maxRetries, err)
			}
			continue
		}

		if resp.StatusCode == http.StatusOK {
			var apiResp EmbeddingResponse
			if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
				resp.Body.Close()
				if attempt == maxRetries-1 {
					return nil, fmt.Errorf("failed to decode response: %w", err)
				}
				continue
			}
			resp.Body.Close()

			embedding = apiResp.Embedding.Values
			// Normalize embedding
			norm := 0.0
			for _, v := range embedding {
				norm += v * v
			}
			norm = math.Sqrt(norm)
			if norm > 0 {
				for i := range embedding {
					embedding[i] /= norm
				}
			}

			return embedding, nil
		}

		resp.Body.Close()

		// Don't retry on 400 or 401 errors
		if resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnauthorized {
			return nil, fmt.Errorf("API error: %d", resp.StatusCode)
		}

		if attempt == maxRetries-1 {
			return nil, fmt.Errorf("API error after %d attempts: %d", maxRetries, resp.StatusCode)
		}
	}

	return nil, ErrEmbeddingFailed
}
