package contract

import (
	"context"

	"datachat-be/internal/entity"
	"datachat-be/pkg/store"
)

// GlossaryRepository serves domain-knowledge lookups and also backs the
// resolver's term catalog.
type GlossaryRepository interface {
	// Lookup returns definitions for the given terms; unknown terms are
	// simply absent from the result.
	Lookup(ctx context.Context, terms []string) ([]store.KnowledgeNote, error)

	// ResolveTerm maps a free-text term to its canonical field/value pair
	ResolveTerm(ctx context.Context, term string) (field string, value string, ok bool, err error)

	Create(ctx context.Context, term *entity.GlossaryTerm) error
}
