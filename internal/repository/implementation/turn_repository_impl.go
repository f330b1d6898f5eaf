package implementation

import (
	"context"

	"datachat-be/internal/entity"
	"datachat-be/internal/repository/contract"
	"datachat-be/internal/repository/specification"

	"gorm.io/gorm"
)

type TurnRepositoryImpl struct {
	db *gorm.DB
}

func NewTurnRepository(db *gorm.DB) contract.TurnRepository {
	return &TurnRepositoryImpl{db: db}
}

func (r *TurnRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *TurnRepositoryImpl) Create(ctx context.Context, turn *entity.EngineTurn) error {
	return r.db.WithContext(ctx).Create(turn).Error
}

func (r *TurnRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.EngineTurn, error) {
	var turns []*entity.EngineTurn
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&turns).Error; err != nil {
		return nil, err
	}
	return turns, nil
}

func (r *TurnRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	err := query.Model(&entity.EngineTurn{}).Count(&count).Error
	return count, err
}
