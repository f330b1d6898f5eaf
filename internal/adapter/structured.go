package adapter

import (
	"context"
	"fmt"
	"sort"

	"datachat-be/internal/pkg/logger"
	"datachat-be/internal/repository/contract"
	"datachat-be/pkg/analysis"
	"datachat-be/pkg/route"
	"datachat-be/pkg/store"
)

// StructuredAdapter serves precise filters and aggregations from the
// warehouse tables.
type StructuredAdapter struct {
	datasets contract.DatasetRepository
	logger   logger.ILogger
}

func NewStructuredAdapter(datasets contract.DatasetRepository, logger logger.ILogger) *StructuredAdapter {
	return &StructuredAdapter{datasets: datasets, logger: logger}
}

func (a *StructuredAdapter) Kind() store.Kind {
	return store.KindStructured
}

func (a *StructuredAdapter) Execute(ctx context.Context, step store.RouteStep, ea *analysis.EnrichedAnalysis) (*store.SectionResult, error) {
	model := paramString(step.Params, "model", "projects")
	filters := paramStringMap(step.Params, "filters")
	ids := paramStringSlice(step.Params, "id_in")
	limit := paramInt(step.Params, "limit", 50)

	records, err := a.datasets.FindRecords(ctx, model, filters, ids, limit)
	if err != nil {
		return nil, fmt.Errorf("structured %s on %s: %w", step.Operation, model, err)
	}

	result := &store.SectionResult{
		Backend:       store.KindStructured,
		Operation:     step.Operation,
		Success:       true,
		RecordCount:   len(records),
		TokenEstimate: store.EstimateResultTokens(len(records)),
	}

	if step.Operation == route.OpAggregate {
		groupBy := paramStringSlice(step.Params, "group_by")
		aggregations := paramStringSlice(step.Params, "aggregations")
		if len(aggregations) == 0 {
			aggregations = []string{"count"}
		}
		result.Data = aggregate(model, records, groupBy, aggregations)
	} else {
		result.Data = &store.RecordSet{Model: model, Records: records}
	}

	a.logger.Debug("STRUCTURED", "Executed step", map[string]interface{}{
		"operation": step.Operation,
		"model":     model,
		"records":   len(records),
	})
	return result, nil
}

// aggregate buckets records in memory. The raw records ride along so a
// follow-up drilldown can regroup without another query.
func aggregate(model string, records []store.Record, groupBy, aggregations []string) *store.AggregationResult {
	field := "status"
	if len(groupBy) > 0 {
		field = groupBy[0]
	}

	byKey := make(map[string]*store.Group)
	for _, rec := range records {
		key := fmt.Sprintf("%v", rec[field])
		g, exists := byKey[key]
		if !exists {
			g = &store.Group{
				Key:  map[string]string{field: key},
				Sums: make(map[string]float64),
			}
			byKey[key] = g
		}
		g.Count++
		for column, value := range rec {
			if f, ok := asNumber(value); ok {
				g.Sums[column] += f
			}
		}
	}

	keys := make([]string, 0, len(byKey))
	for key := range byKey {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	groups := make([]store.Group, 0, len(keys))
	for _, key := range keys {
		groups = append(groups, *byKey[key])
	}

	return &store.AggregationResult{
		Model:        model,
		GroupBy:      []string{field},
		Aggregations: aggregations,
		Groups:       groups,
		Records:      records,
	}
}

func asNumber(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
