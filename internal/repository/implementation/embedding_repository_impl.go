package implementation

import (
	"context"
	"fmt"

	"datachat-be/internal/entity"
	"datachat-be/internal/repository/contract"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

type EmbeddingRepositoryImpl struct {
	db *gorm.DB
}

func NewEmbeddingRepository(db *gorm.DB) contract.EmbeddingRepository {
	return &EmbeddingRepositoryImpl{db: db}
}

func (r *EmbeddingRepositoryImpl) CreateBulk(ctx context.Context, embeddings []*entity.ProjectEmbedding) error {
	if len(embeddings) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(embeddings).Error
}

func (r *EmbeddingRepositoryImpl) DeleteByProjectId(ctx context.Context, projectId uuid.UUID) error {
	return r.db.WithContext(ctx).Where("project_id = ?", projectId).Delete(&entity.ProjectEmbedding{}).Error
}

func (r *EmbeddingRepositoryImpl) SearchSimilarWithScore(ctx context.Context, embedding []float32, limit int, threshold float64) ([]*contract.ScoredProjectEmbedding, error) {
	if limit <= 0 {
		limit = 5
	}

	// Cosine distance in pgvector is 1 - cosine_similarity, so
	// 1 - (embedding_value <=> query_vector) gives the similarity
	type result struct {
		entity.ProjectEmbedding
		Similarity float64
	}
	var results []result

	queryVector := pgvector.NewVector(embedding)

	err := r.db.WithContext(ctx).
		Table("project_embeddings").
		Select("project_embeddings.*, 1 - (embedding_value <=> ?) as similarity", queryVector).
		Where("1 - (embedding_value <=> ?) >= ?", queryVector, threshold).
		Order("similarity DESC").
		Limit(limit).
		Scan(&results).Error
	if err != nil {
		return nil, fmt.Errorf("similarity search: %w", err)
	}

	scored := make([]*contract.ScoredProjectEmbedding, len(results))
	for i, res := range results {
		emb := res.ProjectEmbedding
		scored[i] = &contract.ScoredProjectEmbedding{
			Embedding:  &emb,
			Similarity: res.Similarity,
		}
	}
	return scored, nil
}
