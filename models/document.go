package models

import (
	"time"

	"github.com/google/uuid"
)

// Document represents an uploaded contract document
type Document struct {
	ID          uuid.UUID `json:"id"`
	Filename    string    `json:"filename"`
	MimeType    string    `json:"mime_type"`
	Size        int64     `json:"size"`
	StoragePath string    `json:"storage_path"`
	Language    string    `json:"language,omitempty"` // "de" or "en" when detected
	CreatedAt   time.Time `json:"created_at"`
}

// ContractChunk is a stored, embedded fragment of an ingested contract.
// The retrieval service turns rows of this shape into TextChunks.
type ContractChunk struct {
	ID         uuid.UUID              `json:"id"`
	DocumentID uuid.UUID              `json:"document_id"`
	Text       string                 `json:"text"`
	PageStart  int                    `json:"page_start"`
	PageEnd    *int                   `json:"page_end,omitempty"`
	CharStart  *int                   `json:"char_start,omitempty"`
	CharEnd    *int                   `json:"char_end,omitempty"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
	Distance   float64                `json:"distance,omitempty"` // Vector similarity distance
}
