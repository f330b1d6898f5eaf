package engine

import (
	"fmt"

	"datachat-be/pkg/analysis"
	"datachat-be/pkg/store"
)

// Mode lets the caller constrain the path decision
type Mode string

const (
	ModeAuto   Mode = "auto"   // engine decides
	ModeSimple Mode = "simple" // force the fast path when any pattern exists
	ModeFull   Mode = "full"   // always take the deep path
)

// decidePath picks between replaying a remembered single-step route and
// full planning. Only high-quality remembered routes qualify.
func (e *Engine) decidePath(mode Mode, ea *analysis.EnrichedAnalysis) *store.PathDecision {
	if mode == ModeFull {
		return &store.PathDecision{Path: store.PathDeep, Rationale: "full mode requested"}
	}

	if ea.NeedsClarification || ea.IsDrilldown {
		return &store.PathDecision{Path: store.PathDeep, Rationale: "analysis requires full planning"}
	}

	pattern, found := e.routes.Lookup(ea.Query, string(ea.Type))
	if !found {
		return &store.PathDecision{Path: store.PathDeep, Rationale: "no remembered route"}
	}

	if mode != ModeSimple && pattern.Quality < e.cfg.FastQualityThreshold {
		return &store.PathDecision{
			Path:      store.PathDeep,
			Rationale: fmt.Sprintf("remembered route quality %.2f below %.2f", pattern.Quality, e.cfg.FastQualityThreshold),
		}
	}

	step := pattern.Step
	return &store.PathDecision{
		Path:       store.PathFast,
		Rationale:  fmt.Sprintf("replaying remembered %s route (quality %.2f)", step.Backend, pattern.Quality),
		CachedStep: &step,
	}
}

// fastPlan wraps a remembered step into a single-step plan
func fastPlan(step store.RouteStep) *store.RoutePlan {
	step.Order = 0
	step.DependencyLevel = 0
	step.DependsOnPrevious = false
	return &store.RoutePlan{
		Steps:           []store.RouteStep{step},
		EstimatedTokens: store.EstimateResultTokens(25),
		CanParallelize:  false,
	}
}
