package adapter

import (
	"context"
	"fmt"

	"datachat-be/internal/pkg/logger"
	"datachat-be/internal/repository/contract"
	"datachat-be/pkg/analysis"
	"datachat-be/pkg/embedding"
	"datachat-be/pkg/route"
	"datachat-be/pkg/store"
)

// similarityFloor filters out matches too weak to be meaningful
const similarityFloor = 0.3

// SemanticAdapter answers discovery queries through pgvector similarity
// search over the project documents.
type SemanticAdapter struct {
	embedder   embedding.Provider
	embeddings contract.EmbeddingRepository
	datasets   contract.DatasetRepository
	logger     logger.ILogger
}

func NewSemanticAdapter(
	embedder embedding.Provider,
	embeddings contract.EmbeddingRepository,
	datasets contract.DatasetRepository,
	logger logger.ILogger,
) *SemanticAdapter {
	return &SemanticAdapter{
		embedder:   embedder,
		embeddings: embeddings,
		datasets:   datasets,
		logger:     logger,
	}
}

func (a *SemanticAdapter) Kind() store.Kind {
	return store.KindSemantic
}

func (a *SemanticAdapter) Execute(ctx context.Context, step store.RouteStep, ea *analysis.EnrichedAnalysis) (*store.SectionResult, error) {
	queryText := paramString(step.Params, "query", ea.Query)
	topK := paramInt(step.Params, "top_k", 10)

	// find_similar searches around a named record instead of the query
	if step.Operation == route.OpFindSimilar {
		if ref := paramString(step.Params, "reference_id", ""); ref != "" {
			if text, err := a.referenceText(ctx, ref); err == nil && text != "" {
				queryText = text
			}
		}
	}

	vector, err := a.embedder.Generate(queryText, "RETRIEVAL_QUERY")
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	scored, err := a.embeddings.SearchSimilarWithScore(ctx, vector.Values, topK, similarityFloor)
	if err != nil {
		return nil, fmt.Errorf("similarity search: %w", err)
	}

	ids := make([]string, 0, len(scored))
	similarity := make(map[string]float64, len(scored))
	for _, s := range scored {
		id := s.Embedding.ProjectId.String()
		if _, seen := similarity[id]; !seen {
			ids = append(ids, id)
			similarity[id] = s.Similarity
		}
	}

	var records []store.Record
	if len(ids) > 0 {
		records, err = a.datasets.FindRecords(ctx, "projects", nil, ids, topK)
		if err != nil {
			return nil, fmt.Errorf("hydrate matches: %w", err)
		}
		for _, rec := range records {
			if id, ok := rec["id"].(string); ok {
				rec["similarity"] = similarity[id]
			}
		}
	}

	a.logger.Debug("SEMANTIC", "Executed search", map[string]interface{}{
		"operation": step.Operation,
		"matches":   len(records),
	})

	return &store.SectionResult{
		Backend:       store.KindSemantic,
		Operation:     step.Operation,
		Success:       true,
		Data:          &store.RecordSet{Model: "projects", Records: records},
		RecordCount:   len(records),
		TokenEstimate: store.EstimateResultTokens(len(records)),
	}, nil
}

// referenceText resolves a reference record into text worth embedding
func (a *SemanticAdapter) referenceText(ctx context.Context, ref string) (string, error) {
	records, err := a.datasets.FindRecords(ctx, "projects", map[string]string{"name": ref}, nil, 1)
	if err != nil {
		return "", err
	}
	if len(records) == 0 {
		records, err = a.datasets.FindRecords(ctx, "projects", nil, []string{ref}, 1)
		if err != nil || len(records) == 0 {
			return "", err
		}
	}
	name, _ := records[0]["name"].(string)
	status, _ := records[0]["status"].(string)
	region, _ := records[0]["region"].(string)
	return fmt.Sprintf("%s %s %s", name, status, region), nil
}
