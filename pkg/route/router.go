package route

import (
	"fmt"
	"log"

	"datachat-be/pkg/analysis"
	"datachat-be/pkg/store"
)

// dependency classes declared by the routing table
const (
	depNone    = "none"    // runs at the same level as the primary
	depPrimary = "primary" // consumes the primary step's output
	depChain   = "chain"   // consumes accumulated chain context
)

type secondaryRule struct {
	backend store.Kind
	class   string
}

type routeRule struct {
	primary     store.Kind
	secondaries []secondaryRule
	skipped     []store.SkippedBackend
}

// routingTable maps every question type to its backend line-up. Skipped
// backends carry explicit reasons for diagnostics; they are never dropped
// silently.
var routingTable = map[analysis.QuestionType]routeRule{
	analysis.TypePreciseLookup: {
		primary: store.KindStructured,
		skipped: []store.SkippedBackend{
			{Backend: store.KindSemantic, Reason: "explicit filters make similarity search redundant"},
			{Backend: store.KindGraph, Reason: "no relationship asked for"},
			{Backend: store.KindKnowledge, Reason: "lookup needs no domain context"},
		},
	},
	analysis.TypeDiscovery: {
		primary: store.KindSemantic,
		secondaries: []secondaryRule{
			{backend: store.KindStructured, class: depPrimary},
			{backend: store.KindKnowledge, class: depNone},
		},
		skipped: []store.SkippedBackend{
			{Backend: store.KindGraph, Reason: "no relationship asked for"},
		},
	},
	analysis.TypeAggregation: {
		primary: store.KindStructured,
		secondaries: []secondaryRule{
			{backend: store.KindKnowledge, class: depNone},
		},
		skipped: []store.SkippedBackend{
			{Backend: store.KindSemantic, Reason: "aggregation targets known filters, not similarity"},
			{Backend: store.KindGraph, Reason: "no relationship asked for"},
		},
	},
	analysis.TypeAggregationDiscovery: {
		primary: store.KindSemantic,
		secondaries: []secondaryRule{
			{backend: store.KindStructured, class: depPrimary},
			{backend: store.KindKnowledge, class: depNone},
		},
		skipped: []store.SkippedBackend{
			{Backend: store.KindGraph, Reason: "no relationship asked for"},
		},
	},
	analysis.TypeRelationship: {
		primary: store.KindGraph,
		secondaries: []secondaryRule{
			{backend: store.KindStructured, class: depPrimary},
		},
		skipped: []store.SkippedBackend{
			{Backend: store.KindSemantic, Reason: "relationship traversal starts from named records"},
			{Backend: store.KindKnowledge, Reason: "traversal needs no domain context"},
		},
	},
	analysis.TypeExplanation: {
		primary: store.KindKnowledge,
		secondaries: []secondaryRule{
			{backend: store.KindSemantic, class: depNone},
		},
		skipped: []store.SkippedBackend{
			{Backend: store.KindStructured, Reason: "explanations need prose, not rows"},
			{Backend: store.KindGraph, Reason: "no relationship asked for"},
		},
	},
	analysis.TypeComparison: {
		primary: store.KindStructured,
		secondaries: []secondaryRule{
			{backend: store.KindSemantic, class: depNone},
			{backend: store.KindKnowledge, class: depChain},
		},
	},
	analysis.TypeUnknown: {
		primary: store.KindSemantic,
		skipped: []store.SkippedBackend{
			{Backend: store.KindStructured, Reason: "no filters recognised"},
			{Backend: store.KindGraph, Reason: "no relationship asked for"},
			{Backend: store.KindKnowledge, Reason: "no terms recognised"},
		},
	},
}

// perStepTokens is the planning-time cost estimate per backend kind
var perStepTokens = map[store.Kind]int{
	store.KindStructured: 900,
	store.KindSemantic:   1200,
	store.KindGraph:      700,
	store.KindKnowledge:  400,
}

// Router builds dependency-leveled route plans from an analysis
type Router struct {
	logger *log.Logger
}

func NewRouter(logger *log.Logger) *Router {
	return &Router{logger: logger}
}

// CreatePlan maps the enriched analysis onto the routing table and builds
// concrete per-step parameters. The returned plan is validated; an invalid
// plan indicates a routing-table bug and surfaces as an error.
func (r *Router) CreatePlan(ea *analysis.EnrichedAnalysis) (*store.RoutePlan, error) {
	rule, ok := routingTable[ea.Type]
	if !ok {
		rule = routingTable[analysis.TypeUnknown]
	}

	plan := &store.RoutePlan{
		Skipped: rule.skipped,
	}

	order := 0
	primary := store.RouteStep{
		Backend:         rule.primary,
		Operation:       selectOperation(rule.primary, ea),
		Params:          buildParams(rule.primary, ea),
		Order:           order,
		DependencyLevel: 0,
		Rationale:       fmt.Sprintf("primary backend for %s questions", ea.Type),
	}
	plan.Steps = append(plan.Steps, primary)

	levelZero := 1
	for _, sec := range rule.secondaries {
		order++
		step := store.RouteStep{
			Backend:   sec.backend,
			Operation: selectOperation(sec.backend, ea),
			Params:    buildParams(sec.backend, ea),
			Order:     order,
			Rationale: fmt.Sprintf("%s support for %s questions", sec.class, ea.Type),
		}
		switch sec.class {
		case depPrimary:
			step.DependencyLevel = 1
			step.DependsOnPrevious = true
		case depChain:
			step.DependencyLevel = 2
			step.DependsOnPrevious = true
		default:
			step.DependencyLevel = 0
			levelZero++
		}
		plan.Steps = append(plan.Steps, step)
	}

	plan.CanParallelize = levelZero > 1
	plan.EstimatedTokens = estimateTokens(plan.Steps)

	if err := Validate(plan); err != nil {
		return nil, fmt.Errorf("invalid plan for %s: %w", ea.Type, err)
	}

	r.logger.Printf("[ROUTE] %s -> %d steps (parallel=%v, est=%d tokens, skipped=%d)",
		ea.Type, len(plan.Steps), plan.CanParallelize, plan.EstimatedTokens, len(plan.Skipped))

	return plan, nil
}

func estimateTokens(steps []store.RouteStep) int {
	total := 0
	for _, s := range steps {
		total += perStepTokens[s.Backend]
	}
	return total
}

// Validate enforces the structural plan invariants: at least one step,
// only known backends, unique order values, and level/dependency agreement.
func Validate(plan *store.RoutePlan) error {
	if len(plan.Steps) == 0 {
		return fmt.Errorf("plan has no steps")
	}

	orders := make(map[int]bool)
	for _, step := range plan.Steps {
		if !step.Backend.IsValid() {
			return fmt.Errorf("unknown backend %q at order %d", step.Backend, step.Order)
		}
		if orders[step.Order] {
			return fmt.Errorf("duplicate step order %d", step.Order)
		}
		orders[step.Order] = true

		if (step.DependencyLevel == 0) == step.DependsOnPrevious {
			return fmt.Errorf("step %d: level %d disagrees with depends_on_previous=%v",
				step.Order, step.DependencyLevel, step.DependsOnPrevious)
		}
		if step.DependencyLevel < 0 {
			return fmt.Errorf("step %d: negative dependency level", step.Order)
		}
	}

	return nil
}
