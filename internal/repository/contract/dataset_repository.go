package contract

import (
	"context"

	"datachat-be/pkg/store"
)

// DatasetRepository serves precise-filter reads over the warehouse models.
// Rows come back as generic records so the engine stays schema-agnostic.
type DatasetRepository interface {
	// Models lists the queryable model names
	Models() []string

	// FindRecords filters one model. Empty filters means all rows up to
	// limit; ids narrows to an explicit id list.
	FindRecords(ctx context.Context, model string, filters map[string]string, ids []string, limit int) ([]store.Record, error)
}
