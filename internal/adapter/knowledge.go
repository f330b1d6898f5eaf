package adapter

import (
	"context"
	"fmt"

	"datachat-be/internal/pkg/logger"
	"datachat-be/internal/repository/contract"
	"datachat-be/pkg/analysis"
	"datachat-be/pkg/store"
)

// KnowledgeAdapter resolves domain terms against the glossary.
type KnowledgeAdapter struct {
	glossary contract.GlossaryRepository
	logger   logger.ILogger
}

func NewKnowledgeAdapter(glossary contract.GlossaryRepository, logger logger.ILogger) *KnowledgeAdapter {
	return &KnowledgeAdapter{glossary: glossary, logger: logger}
}

func (a *KnowledgeAdapter) Kind() store.Kind {
	return store.KindKnowledge
}

func (a *KnowledgeAdapter) Execute(ctx context.Context, step store.RouteStep, ea *analysis.EnrichedAnalysis) (*store.SectionResult, error) {
	terms := paramStringSlice(step.Params, "terms")

	notes, err := a.glossary.Lookup(ctx, terms)
	if err != nil {
		return nil, fmt.Errorf("glossary lookup: %w", err)
	}

	a.logger.Debug("KNOWLEDGE", "Looked up terms", map[string]interface{}{
		"terms": len(terms),
		"notes": len(notes),
	})

	return &store.SectionResult{
		Backend:       store.KindKnowledge,
		Operation:     step.Operation,
		Success:       true,
		Data:          notes,
		RecordCount:   len(notes),
		TokenEstimate: store.EstimateResultTokens(len(notes)),
	}, nil
}
