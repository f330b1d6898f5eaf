package adapter

import (
	"context"
	"fmt"

	"datachat-be/internal/pkg/logger"
	"datachat-be/internal/repository/contract"
	"datachat-be/pkg/analysis"
	"datachat-be/pkg/store"
)

// GraphAdapter traverses the relationship edges between records.
type GraphAdapter struct {
	relations contract.RelationRepository
	logger    logger.ILogger
}

func NewGraphAdapter(relations contract.RelationRepository, logger logger.ILogger) *GraphAdapter {
	return &GraphAdapter{relations: relations, logger: logger}
}

func (a *GraphAdapter) Kind() store.Kind {
	return store.KindGraph
}

func (a *GraphAdapter) Execute(ctx context.Context, step store.RouteStep, ea *analysis.EnrichedAnalysis) (*store.SectionResult, error) {
	model := paramString(step.Params, "model", "projects")
	ids := paramStringSlice(step.Params, "id_in")
	limit := paramInt(step.Params, "limit", 50)

	hits, err := a.relations.Traverse(ctx, model, ids, limit)
	if err != nil {
		return nil, fmt.Errorf("graph traverse from %s: %w", model, err)
	}

	a.logger.Debug("GRAPH", "Traversed edges", map[string]interface{}{
		"source": model,
		"edges":  len(hits),
	})

	return &store.SectionResult{
		Backend:       store.KindGraph,
		Operation:     step.Operation,
		Success:       true,
		Data:          hits,
		RecordCount:   len(hits),
		TokenEstimate: store.EstimateResultTokens(len(hits)),
	}, nil
}
