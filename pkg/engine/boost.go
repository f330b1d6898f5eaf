package engine

import (
	"context"

	"datachat-be/pkg/analysis"
)

// enrich runs entity resolution when the raw classification is below the
// routing threshold. Resolution and the confidence boost happen at most
// once per query; the raw analysis is never mutated.
func (e *Engine) enrich(ctx context.Context, qa *analysis.QuestionAnalysis) (*analysis.EnrichedAnalysis, error) {
	if qa.Confidence >= e.cfg.ConfidenceThreshold || e.resolver == nil {
		return analysis.Plain(*qa), nil
	}

	res, err := e.resolver.Resolve(ctx, qa, qa.Query)
	if err != nil {
		e.logger.Printf("[ENGINE] Resolution failed, routing on raw analysis: %v", err)
		return analysis.Plain(*qa), nil
	}

	ea := &analysis.EnrichedAnalysis{
		QuestionAnalysis:     *qa,
		ResolvedModel:        res.ResolvedModel,
		ResolvedFilters:      res.ResolvedFilters,
		ResolvedAggregations: res.ResolvedAggregations,
		ResolutionConfidence: res.ResolutionConfidence,
		WasEnriched:          res.WasEnriched,
	}

	if res.WasEnriched {
		ea.Confidence = boostConfidence(qa.Confidence, res.ResolutionConfidence)
		// A classification that asked for clarification can be rescued
		// when resolution lifts it over the routing threshold
		if ea.NeedsClarification && ea.Confidence >= e.cfg.ConfidenceThreshold {
			ea.NeedsClarification = false
			ea.ClarificationQuestions = nil
		}
	}
	return ea, nil
}

// boostConfidence blends resolution confidence into the raw score. The
// boost can only raise confidence, never lower it.
func boostConfidence(raw, resolution float64) float64 {
	boosted := 0.6*resolution + 0.4*raw
	if boosted < raw {
		return raw
	}
	return boosted
}
