package repository

import (
	"context"
	"fmt"
	"strings"

	"lexlens-backend/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ContractChunkRepository handles database operations for contract chunks
type ContractChunkRepository struct {
	db *pgxpool.Pool
}

// NewContractChunkRepository creates a new contract chunk repository
func NewContractChunkRepository(db *pgxpool.Pool) *ContractChunkRepository {
	return &ContractChunkRepository{db: db}
}

// formatVector formats an embedding vector as a string for pgx
func formatVector(embedding []float64) string {
	if len(embedding) == 0 {
		return "[]"
	}
	var parts []string
	for _, v := range embedding {
		parts = append(parts, fmt.Sprintf("%.6f", v))
	}
	return "[" + strings.Join(parts, ",") + "]"
}

// Insert stores a contract chunk together with its embedding
func (r *ContractChunkRepository) Insert(
	ctx context.Context,
	chunk *models.ContractChunk,
	embedding []float64,
) error {
	if len(embedding) != 768 {
		return fmt.Errorf("embedding must be 768 dimensions, got %d", len(embedding))
	}

	query := `
		INSERT INTO contract_chunks (
			document_id, chunk_text, page_start, page_end, char_start, char_end, metadata, embedding
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8::vector)
		RETURNING id`

	err := r.db.QueryRow(
		ctx, query,
		chunk.DocumentID,
		chunk.Text,
		chunk.PageStart,
		chunk.PageEnd,
		chunk.CharStart,
		chunk.CharEnd,
		chunk.Metadata,
		formatVector(embedding),
	).Scan(&chunk.ID)

	return err
}

// Search performs a vector similarity search over contract chunks.
// embedding: query embedding vector (768 dimensions)
// documentID: optional filter to a single document
// limit: maximum number of chunks to return
func (r *ContractChunkRepository) Search(
	ctx context.Context,
	embedding []float64,
	documentID *uuid.UUID,
	limit int,
) ([]models.ContractChunk, error) {
	if len(embedding) != 768 {
		return nil, fmt.Errorf("embedding must be 768 dimensions, got %d", len(embedding))
	}

	vectorStr := formatVector(embedding)

	var documentFilter string
	var args []interface{}
	if documentID == nil {
		documentFilter = "TRUE"
		args = []interface{}{vectorStr, limit}
	} else {
		documentFilter = "document_id = $2"
		args = []interface{}{vectorStr, *documentID, limit}
	}

	query := fmt.Sprintf(`
		SELECT
			id,
			document_id,
			chunk_text,
			page_start,
			page_end,
			char_start,
			char_end,
			metadata,
			embedding <=> $1::vector AS distance
		FROM contract_chunks
		WHERE %s
		ORDER BY
			embedding <=> $1::vector
		LIMIT $%d`, documentFilter, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query contract chunks: %w", err)
	}
	defer rows.Close()

	var chunks []models.ContractChunk
	for rows.Next() {
		var chunk models.ContractChunk
		err := rows.Scan(
			&chunk.ID,
			&chunk.DocumentID,
			&chunk.Text,
			&chunk.PageStart,
			&chunk.PageEnd,
			&chunk.CharStart,
			&chunk.CharEnd,
			&chunk.Metadata,
			&chunk.Distance,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan contract chunk: %w", err)
		}
		chunks = append(chunks, chunk)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating contract chunks: %w", err)
	}

	return chunks, nil
}

// DeleteByDocument removes all chunks of a document
func (r *ContractChunkRepository) DeleteByDocument(ctx context.Context, documentID uuid.UUID) error {
	query := `DELETE FROM contract_chunks WHERE document_id = $1`
	_, err := r.db.Exec(ctx, query, documentID)
	return err
}
