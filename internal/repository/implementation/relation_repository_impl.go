package implementation

import (
	"context"
	"fmt"

	"datachat-be/internal/entity"
	"datachat-be/internal/repository/contract"
	"datachat-be/pkg/store"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type RelationRepositoryImpl struct {
	db *gorm.DB
}

func NewRelationRepository(db *gorm.DB) contract.RelationRepository {
	return &RelationRepositoryImpl{db: db}
}

func (r *RelationRepositoryImpl) Traverse(ctx context.Context, sourceModel string, sourceIDs []string, limit int) ([]store.RelationHit, error) {
	if limit <= 0 {
		limit = defaultRecordLimit
	}

	query := r.db.WithContext(ctx).
		Model(&entity.ProjectRelation{}).
		Where("source_model = ?", sourceModel).
		Limit(limit)

	if len(sourceIDs) > 0 {
		uuids := make([]uuid.UUID, 0, len(sourceIDs))
		for _, id := range sourceIDs {
			if parsed, err := uuid.Parse(id); err == nil {
				uuids = append(uuids, parsed)
			}
		}
		query = query.Where("source_id IN ?", uuids)
	}

	var edges []*entity.ProjectRelation
	if err := query.Find(&edges).Error; err != nil {
		return nil, fmt.Errorf("traverse %s relations: %w", sourceModel, err)
	}

	hits := make([]store.RelationHit, len(edges))
	for i, e := range edges {
		hits[i] = store.RelationHit{
			SourceModel: e.SourceModel,
			SourceID:    e.SourceId.String(),
			TargetModel: e.TargetModel,
			TargetID:    e.TargetId.String(),
			Field:       e.Field,
			Label:       e.Label,
		}
	}
	return hits, nil
}
