package route

import (
	"datachat-be/pkg/analysis"
	"datachat-be/pkg/store"
)

// Operation names understood by the backend adapters
const (
	OpSearch      = "search"
	OpFindSimilar = "find_similar"
	OpFilter      = "filter"
	OpAggregate   = "aggregate"
	OpTraverse    = "traverse"
	OpLookup      = "lookup"
)

const defaultTopK = 10
const defaultLimit = 50

// selectOperation picks the concrete backend operation for this analysis.
// A named reference identifier upgrades a semantic search to find_similar;
// aggregation hints upgrade a structured filter to aggregate.
func selectOperation(kind store.Kind, ea *analysis.EnrichedAnalysis) string {
	switch kind {
	case store.KindSemantic:
		if referenceID(ea) != "" {
			return OpFindSimilar
		}
		return OpSearch
	case store.KindStructured:
		if ea.Operation != "" || len(ea.GroupByHints) > 0 || len(ea.ResolvedAggregations) > 0 {
			return OpAggregate
		}
		return OpFilter
	case store.KindGraph:
		return OpTraverse
	default:
		return OpLookup
	}
}

// buildParams turns the analysis into concrete operation parameters
func buildParams(kind store.Kind, ea *analysis.EnrichedAnalysis) map[string]interface{} {
	switch kind {
	case store.KindSemantic:
		return semanticParams(ea)
	case store.KindStructured:
		return structuredParams(ea)
	case store.KindGraph:
		return graphParams(ea)
	default:
		return knowledgeParams(ea)
	}
}

func semanticParams(ea *analysis.EnrichedAnalysis) map[string]interface{} {
	params := map[string]interface{}{
		"query": ea.Query,
		"top_k": defaultTopK,
	}
	if model := targetModel(ea); model != "" {
		params["model"] = model
	}
	if ref := referenceID(ea); ref != "" {
		params["reference_id"] = ref
	}
	return params
}

func structuredParams(ea *analysis.EnrichedAnalysis) map[string]interface{} {
	params := map[string]interface{}{
		"filters": filterConditions(ea),
		"limit":   defaultLimit,
	}
	if model := targetModel(ea); model != "" {
		params["model"] = model
	}

	if selectOperation(store.KindStructured, ea) == OpAggregate {
		aggs := ea.ResolvedAggregations
		if len(aggs) == 0 && ea.Operation != "" {
			aggs = []string{ea.Operation}
		}
		if len(aggs) == 0 {
			// count is the default when no keyword matched
			aggs = []string{"count"}
		}
		params["aggregations"] = aggs
		if len(ea.GroupByHints) > 0 {
			params["group_by"] = ea.GroupByHints
		}
	}

	return params
}

func graphParams(ea *analysis.EnrichedAnalysis) map[string]interface{} {
	params := map[string]interface{}{
		"filters": filterConditions(ea),
		"depth":   1,
	}
	if model := targetModel(ea); model != "" {
		params["model"] = model
	}
	return params
}

func knowledgeParams(ea *analysis.EnrichedAnalysis) map[string]interface{} {
	var terms []string
	for _, e := range ea.Entities {
		terms = append(terms, e.Value)
	}
	terms = append(terms, ea.ModelHints...)
	return map[string]interface{}{
		"terms": terms,
	}
}

// filterConditions prefers resolved canonical filters, falling back to
// the raw type:value entity tags
func filterConditions(ea *analysis.EnrichedAnalysis) map[string]string {
	if len(ea.ResolvedFilters) > 0 {
		return ea.ResolvedFilters
	}
	filters := make(map[string]string)
	for _, e := range ea.Entities {
		filters[e.Type] = e.Value
	}
	return filters
}

func targetModel(ea *analysis.EnrichedAnalysis) string {
	if ea.ResolvedModel != "" {
		return ea.ResolvedModel
	}
	if len(ea.ModelHints) > 0 {
		return ea.ModelHints[0]
	}
	return ""
}

func referenceID(ea *analysis.EnrichedAnalysis) string {
	for _, t := range []string{"like", "similar_to", "ref"} {
		if v := ea.EntityValue(t); v != "" {
			return v
		}
	}
	return ""
}
