package schedule

import (
	"context"
	"log"
	"sort"
	"sync"
	"time"

	"datachat-be/pkg/analysis"
	"datachat-be/pkg/backend"
	"datachat-be/pkg/store"
)

// budgetStopFraction: no further level is scheduled once projected usage
// crosses this share of the session budget
const budgetStopFraction = 0.8

// DrilldownSink receives successful structured results so follow-up
// drilldown queries can reuse them
type DrilldownSink interface {
	Store(sessionID string, entry *store.DrilldownEntry)
}

// Budget is the scheduler's view of the session token budget
type Budget struct {
	UsedTokens   int
	BudgetTokens int
}

// Outcome is everything one plan execution produced
type Outcome struct {
	Results          []store.SectionResult
	Summaries        []store.StepSummary
	StoppedEarly     bool
	ConsumedEstimate int
}

type stepOutcome struct {
	result    store.SectionResult
	elapsedMs int64
}

// Scheduler executes a route plan level by level, chaining discovered data
// forward and enforcing the token budget. Step failures never escape; they
// become failed SectionResults.
type Scheduler struct {
	registry   *backend.Registry
	drilldowns DrilldownSink
	logger     *log.Logger
}

func NewScheduler(registry *backend.Registry, drilldowns DrilldownSink, logger *log.Logger) *Scheduler {
	return &Scheduler{
		registry:   registry,
		drilldowns: drilldowns,
		logger:     logger,
	}
}

// Run executes the plan. Levels run in ascending order; within a level,
// steps run concurrently when the plan allows it and are jointly awaited
// before the next level starts.
func (s *Scheduler) Run(
	ctx context.Context,
	plan *store.RoutePlan,
	ea *analysis.EnrichedAnalysis,
	sessionID string,
	budget Budget,
) *Outcome {

	outcome := &Outcome{}
	chain := NewChainContext()
	levels := groupByLevel(plan.Steps)

	for levelIdx, levelSteps := range levels {
		if s.overBudget(budget, outcome.ConsumedEstimate, levelSteps) {
			s.logger.Printf("[SCHED] Budget stop before level %d (consumed=%d, budget=%d)",
				levelIdx, budget.UsedTokens+outcome.ConsumedEstimate, budget.BudgetTokens)
			outcome.StoppedEarly = true
			break
		}

		// A dependent step whose upstream produced nothing it can consume
		// is skipped, not executed against empty inputs. Independent
		// siblings in the same level are unaffected.
		runnable := make([]store.RouteStep, 0, len(levelSteps))
		for _, step := range levelSteps {
			if reason := chain.MissingDependency(step); reason != "" {
				s.logger.Printf("[SCHED] Skipping %s/%s: %s", step.Backend, step.Operation, reason)
				skipped := store.SectionResult{
					Backend:   step.Backend,
					Operation: step.Operation,
					Success:   false,
					Error:     "skipped: " + reason,
				}
				outcome.Results = append(outcome.Results, skipped)
				outcome.Summaries = append(outcome.Summaries, summarize(skipped, 0))
				continue
			}
			runnable = append(runnable, step)
		}
		if len(runnable) == 0 {
			continue
		}

		level := s.runLevel(ctx, runnable, plan.CanParallelize, chain, ea)

		for i := range level {
			result := &level[i].result
			outcome.ConsumedEstimate += result.TokenEstimate
			chain.Absorb(result)
			if result.Success {
				s.persistForDrilldown(sessionID, ea, result)
			}
			outcome.Results = append(outcome.Results, *result)
			outcome.Summaries = append(outcome.Summaries, summarize(*result, level[i].elapsedMs))
		}
	}

	return outcome
}

func summarize(r store.SectionResult, elapsedMs int64) store.StepSummary {
	return store.StepSummary{
		Backend:     r.Backend,
		Operation:   r.Operation,
		Success:     r.Success,
		RecordCount: r.RecordCount,
		ElapsedMs:   elapsedMs,
	}
}

// runLevel executes one dependency level and waits for all of it
func (s *Scheduler) runLevel(
	ctx context.Context,
	steps []store.RouteStep,
	canParallelize bool,
	chain *ChainContext,
	ea *analysis.EnrichedAnalysis,
) []stepOutcome {

	results := make([]stepOutcome, len(steps))

	if canParallelize && len(steps) > 1 {
		var wg sync.WaitGroup
		for i, step := range steps {
			wg.Add(1)
			go func(idx int, st store.RouteStep) {
				defer wg.Done()
				results[idx] = s.runStep(ctx, st, chain, ea)
			}(i, step)
		}
		wg.Wait()
		return results
	}

	for i, step := range steps {
		results[i] = s.runStep(ctx, step, chain, ea)
	}
	return results
}

func (s *Scheduler) runStep(
	ctx context.Context,
	step store.RouteStep,
	chain *ChainContext,
	ea *analysis.EnrichedAnalysis,
) stepOutcome {

	enriched := chain.EnrichStep(step)

	adapter, ok := s.registry.Get(enriched.Backend)
	if !ok {
		return stepOutcome{result: store.SectionResult{
			Backend:   enriched.Backend,
			Operation: enriched.Operation,
			Success:   false,
			Error:     "no adapter registered",
		}}
	}

	started := time.Now()
	result, err := adapter.Execute(ctx, enriched, ea)
	elapsed := time.Since(started)

	if err != nil {
		s.logger.Printf("[SCHED] %s/%s failed after %s: %v", enriched.Backend, enriched.Operation, elapsed, err)
		return stepOutcome{
			result: store.SectionResult{
				Backend:   enriched.Backend,
				Operation: enriched.Operation,
				Success:   false,
				Error:     err.Error(),
			},
			elapsedMs: elapsed.Milliseconds(),
		}
	}

	if result.TokenEstimate == 0 {
		result.TokenEstimate = store.EstimateResultTokens(result.RecordCount)
	}

	s.logger.Printf("[SCHED] %s/%s ok in %s (%d records, ~%d tokens)",
		enriched.Backend, enriched.Operation, elapsed, result.RecordCount, result.TokenEstimate)

	return stepOutcome{result: *result, elapsedMs: elapsed.Milliseconds()}
}

// persistForDrilldown stores structured payloads in the session drilldown
// slot, tagged with the analysis hints a follow-up query needs
func (s *Scheduler) persistForDrilldown(sessionID string, ea *analysis.EnrichedAnalysis, result *store.SectionResult) {
	if s.drilldowns == nil || sessionID == "" {
		return
	}

	entry := &store.DrilldownEntry{
		Query:        ea.Query,
		Model:        ea.ResolvedModel,
		Filters:      ea.ResolvedFilters,
		GroupBy:      ea.GroupByHints,
		Aggregations: ea.ResolvedAggregations,
		CreatedAt:    time.Now(),
	}

	switch payload := result.Data.(type) {
	case *store.AggregationResult:
		entry.Kind = store.DrilldownAggregation
		entry.Aggregation = payload
		if entry.Model == "" {
			entry.Model = payload.Model
		}
	case *store.RecordSet:
		if result.Backend == store.KindSemantic {
			entry.Kind = store.DrilldownSemantic
		} else {
			entry.Kind = store.DrilldownRecords
		}
		entry.Records = payload
		if entry.Model == "" {
			entry.Model = payload.Model
		}
	default:
		// Knowledge text and relation hits feed the chain, not drilldowns
		return
	}

	s.drilldowns.Store(sessionID, entry)
}

func (s *Scheduler) overBudget(budget Budget, consumed int, nextLevel []store.RouteStep) bool {
	if budget.BudgetTokens <= 0 {
		return false
	}
	projected := budget.UsedTokens + consumed
	for _, step := range nextLevel {
		projected += store.EstimateResultTokens(defaultProjectedRecords(step))
	}
	return float64(projected) > budgetStopFraction*float64(budget.BudgetTokens)
}

// defaultProjectedRecords sizes a not-yet-run step for budget projection
func defaultProjectedRecords(step store.RouteStep) int {
	if limit, ok := step.Params["limit"].(int); ok {
		return limit
	}
	if topK, ok := step.Params["top_k"].(int); ok {
		return topK
	}
	return 10
}

// groupByLevel orders steps into ascending dependency levels, keeping
// step order stable within a level
func groupByLevel(steps []store.RouteStep) [][]store.RouteStep {
	byLevel := make(map[int][]store.RouteStep)
	maxLevel := 0
	for _, step := range steps {
		byLevel[step.DependencyLevel] = append(byLevel[step.DependencyLevel], step)
		if step.DependencyLevel > maxLevel {
			maxLevel = step.DependencyLevel
		}
	}

	var levels [][]store.RouteStep
	for level := 0; level <= maxLevel; level++ {
		levelSteps := byLevel[level]
		if len(levelSteps) == 0 {
			continue
		}
		sort.Slice(levelSteps, func(i, j int) bool { return levelSteps[i].Order < levelSteps[j].Order })
		levels = append(levels, levelSteps)
	}
	return levels
}
