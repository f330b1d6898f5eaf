package contract

import (
	"context"

	"datachat-be/pkg/store"
)

// RelationRepository traverses the dataset's relationship graph
type RelationRepository interface {
	// Traverse follows edges out of the given source records. An empty
	// sourceIDs list traverses every edge of the source model.
	Traverse(ctx context.Context, sourceModel string, sourceIDs []string, limit int) ([]store.RelationHit, error)
}
