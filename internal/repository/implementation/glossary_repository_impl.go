package implementation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"datachat-be/internal/entity"
	"datachat-be/internal/repository/contract"
	"datachat-be/pkg/store"

	"gorm.io/gorm"
)

type GlossaryRepositoryImpl struct {
	db *gorm.DB
}

func NewGlossaryRepository(db *gorm.DB) contract.GlossaryRepository {
	return &GlossaryRepositoryImpl{db: db}
}

func (r *GlossaryRepositoryImpl) Lookup(ctx context.Context, terms []string) ([]store.KnowledgeNote, error) {
	if len(terms) == 0 {
		return nil, nil
	}

	lowered := make([]string, len(terms))
	for i, t := range terms {
		lowered[i] = strings.ToLower(strings.TrimSpace(t))
	}

	var rows []*entity.GlossaryTerm
	err := r.db.WithContext(ctx).
		Where("lower(term) IN ?", lowered).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("glossary lookup: %w", err)
	}

	notes := make([]store.KnowledgeNote, len(rows))
	for i, row := range rows {
		notes[i] = store.KnowledgeNote{
			Term: row.Term,
			Text: row.Definition,
		}
	}
	return notes, nil
}

func (r *GlossaryRepositoryImpl) ResolveTerm(ctx context.Context, term string) (string, string, bool, error) {
	var row entity.GlossaryTerm
	err := r.db.WithContext(ctx).
		Where("lower(term) = ?", strings.ToLower(strings.TrimSpace(term))).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", "", false, nil
		}
		return "", "", false, fmt.Errorf("resolve term: %w", err)
	}
	if row.Field == "" {
		return "", "", false, nil
	}
	return row.Field, row.Value, true, nil
}

func (r *GlossaryRepositoryImpl) Create(ctx context.Context, term *entity.GlossaryTerm) error {
	return r.db.WithContext(ctx).Create(term).Error
}
