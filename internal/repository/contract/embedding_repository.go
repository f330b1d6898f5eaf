package contract

import (
	"context"

	"datachat-be/internal/entity"

	"github.com/google/uuid"
)

// ScoredProjectEmbedding wraps an embedding with its similarity score
type ScoredProjectEmbedding struct {
	Embedding  *entity.ProjectEmbedding
	Similarity float64 // 0.0 to 1.0 (1.0 = identical)
}

type EmbeddingRepository interface {
	CreateBulk(ctx context.Context, embeddings []*entity.ProjectEmbedding) error
	DeleteByProjectId(ctx context.Context, projectId uuid.UUID) error

	// SearchSimilarWithScore returns the closest documents above the
	// similarity threshold
	SearchSimilarWithScore(ctx context.Context, embedding []float32, limit int, threshold float64) ([]*ScoredProjectEmbedding, error)
}
