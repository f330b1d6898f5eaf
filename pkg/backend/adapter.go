package backend

import (
	"context"
	"fmt"

	"datachat-be/pkg/analysis"
	"datachat-be/pkg/store"
)

// Adapter executes route steps against one capability domain. Adapters
// must treat "no results" as a successful empty SectionResult; only
// genuine failures return an error.
type Adapter interface {
	Kind() store.Kind
	Execute(ctx context.Context, step store.RouteStep, ea *analysis.EnrichedAnalysis) (*store.SectionResult, error)
}

// Registry is the static, enum-keyed adapter registry populated at
// startup. Unknown backends fail at plan-validation time, not call time.
type Registry struct {
	adapters map[store.Kind]Adapter
}

func NewRegistry() *Registry {
	return &Registry{adapters: make(map[store.Kind]Adapter)}
}

// Register wires an adapter under its declared kind
func (r *Registry) Register(adapter Adapter) error {
	kind := adapter.Kind()
	if !kind.IsValid() {
		return fmt.Errorf("adapter declares unknown backend %q", kind)
	}
	if _, exists := r.adapters[kind]; exists {
		return fmt.Errorf("backend %q already registered", kind)
	}
	r.adapters[kind] = adapter
	return nil
}

// Get returns the adapter for a backend kind
func (r *Registry) Get(kind store.Kind) (Adapter, bool) {
	a, ok := r.adapters[kind]
	return a, ok
}

// ValidatePlan verifies every step's backend has a registered adapter
func (r *Registry) ValidatePlan(plan *store.RoutePlan) error {
	for _, step := range plan.Steps {
		if _, ok := r.adapters[step.Backend]; !ok {
			return fmt.Errorf("no adapter registered for backend %q (step order %d)", step.Backend, step.Order)
		}
	}
	return nil
}
