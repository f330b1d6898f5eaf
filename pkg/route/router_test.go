package route

import (
	"io"
	"log"
	"testing"

	"datachat-be/pkg/analysis"
	"datachat-be/pkg/store"
)

func testRouter() *Router {
	return NewRouter(log.New(io.Discard, "", 0))
}

func enriched(qa analysis.QuestionAnalysis) *analysis.EnrichedAnalysis {
	return analysis.Plain(qa)
}

func TestCreatePlanBackendLineup(t *testing.T) {
	tests := []struct {
		name         string
		qtype        analysis.QuestionType
		wantPrimary  store.Kind
		wantSteps    int
		wantSkipped  int
		wantParallel bool
	}{
		{
			name:        "precise lookup is structured only",
			qtype:       analysis.TypePreciseLookup,
			wantPrimary: store.KindStructured,
			wantSteps:   1,
			wantSkipped: 3,
		},
		{
			name:         "discovery chains structured after semantic",
			qtype:        analysis.TypeDiscovery,
			wantPrimary:  store.KindSemantic,
			wantSteps:    3,
			wantSkipped:  1,
			wantParallel: true,
		},
		{
			name:         "aggregation pairs structured with knowledge",
			qtype:        analysis.TypeAggregation,
			wantPrimary:  store.KindStructured,
			wantSteps:    2,
			wantSkipped:  2,
			wantParallel: true,
		},
		{
			name:        "relationship starts from graph",
			qtype:       analysis.TypeRelationship,
			wantPrimary: store.KindGraph,
			wantSteps:   2,
			wantSkipped: 2,
		},
		{
			name:         "comparison uses three backends",
			qtype:        analysis.TypeComparison,
			wantPrimary:  store.KindStructured,
			wantSteps:    3,
			wantSkipped:  0,
			wantParallel: true,
		},
		{
			name:        "unknown degrades to semantic only",
			qtype:       analysis.TypeUnknown,
			wantPrimary: store.KindSemantic,
			wantSteps:   1,
			wantSkipped: 3,
		},
	}

	r := testRouter()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := r.CreatePlan(enriched(analysis.QuestionAnalysis{Type: tt.qtype, Query: "q"}))
			if err != nil {
				t.Fatalf("CreatePlan() error = %v", err)
			}

			if plan.Steps[0].Backend != tt.wantPrimary {
				t.Errorf("primary = %s, want %s", plan.Steps[0].Backend, tt.wantPrimary)
			}
			if len(plan.Steps) != tt.wantSteps {
				t.Errorf("steps = %d, want %d", len(plan.Steps), tt.wantSteps)
			}
			if len(plan.Skipped) != tt.wantSkipped {
				t.Errorf("skipped = %d, want %d", len(plan.Skipped), tt.wantSkipped)
			}
			if plan.CanParallelize != tt.wantParallel {
				t.Errorf("CanParallelize = %v, want %v", plan.CanParallelize, tt.wantParallel)
			}
			if plan.EstimatedTokens == 0 {
				t.Error("EstimatedTokens should be non-zero")
			}
			if err := Validate(plan); err != nil {
				t.Errorf("plan failed validation: %v", err)
			}
			if plan.Steps[0].DependencyLevel != 0 || plan.Steps[0].DependsOnPrevious {
				t.Error("primary step must run at level 0 without dependencies")
			}
		})
	}
}

func TestCreatePlanOperations(t *testing.T) {
	r := testRouter()

	t.Run("aggregation hint upgrades filter to aggregate", func(t *testing.T) {
		plan, err := r.CreatePlan(enriched(analysis.QuestionAnalysis{
			Type:         analysis.TypeAggregation,
			Operation:    "sum",
			GroupByHints: []string{"region"},
		}))
		if err != nil {
			t.Fatalf("CreatePlan() error = %v", err)
		}

		step := plan.Steps[0]
		if step.Operation != OpAggregate {
			t.Errorf("operation = %s, want %s", step.Operation, OpAggregate)
		}
		aggs, _ := step.Params["aggregations"].([]string)
		if len(aggs) != 1 || aggs[0] != "sum" {
			t.Errorf("aggregations = %v, want [sum]", step.Params["aggregations"])
		}
		groupBy, _ := step.Params["group_by"].([]string)
		if len(groupBy) != 1 || groupBy[0] != "region" {
			t.Errorf("group_by = %v, want [region]", step.Params["group_by"])
		}
	})

	t.Run("plain lookup stays filter", func(t *testing.T) {
		plan, err := r.CreatePlan(enriched(analysis.QuestionAnalysis{
			Type:     analysis.TypePreciseLookup,
			Entities: []analysis.Entity{{Type: "status", Value: "active"}},
		}))
		if err != nil {
			t.Fatalf("CreatePlan() error = %v", err)
		}

		step := plan.Steps[0]
		if step.Operation != OpFilter {
			t.Errorf("operation = %s, want %s", step.Operation, OpFilter)
		}
		filters, _ := step.Params["filters"].(map[string]string)
		if filters["status"] != "active" {
			t.Errorf("filters = %v, want status=active", step.Params["filters"])
		}
	})

	t.Run("reference entity upgrades search to find_similar", func(t *testing.T) {
		plan, err := r.CreatePlan(enriched(analysis.QuestionAnalysis{
			Type:     analysis.TypeDiscovery,
			Entities: []analysis.Entity{{Type: "like", Value: "Harbour Expansion"}},
		}))
		if err != nil {
			t.Fatalf("CreatePlan() error = %v", err)
		}

		step := plan.Steps[0]
		if step.Operation != OpFindSimilar {
			t.Errorf("operation = %s, want %s", step.Operation, OpFindSimilar)
		}
		if step.Params["reference_id"] != "Harbour Expansion" {
			t.Errorf("reference_id = %v", step.Params["reference_id"])
		}
	})

	t.Run("resolved filters outrank raw entities", func(t *testing.T) {
		ea := enriched(analysis.QuestionAnalysis{
			Type:     analysis.TypePreciseLookup,
			Entities: []analysis.Entity{{Type: "status", Value: "stalled"}},
		})
		ea.ResolvedFilters = map[string]string{"status": "on_hold"}
		ea.ResolvedModel = "projects"

		plan, err := r.CreatePlan(ea)
		if err != nil {
			t.Fatalf("CreatePlan() error = %v", err)
		}

		step := plan.Steps[0]
		filters, _ := step.Params["filters"].(map[string]string)
		if filters["status"] != "on_hold" {
			t.Errorf("filters = %v, want resolved status=on_hold", filters)
		}
		if step.Params["model"] != "projects" {
			t.Errorf("model = %v, want projects", step.Params["model"])
		}
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		plan    store.RoutePlan
		wantErr bool
	}{
		{
			name:    "empty plan",
			plan:    store.RoutePlan{},
			wantErr: true,
		},
		{
			name: "unknown backend",
			plan: store.RoutePlan{Steps: []store.RouteStep{
				{Backend: "FILESYSTEM"},
			}},
			wantErr: true,
		},
		{
			name: "duplicate order",
			plan: store.RoutePlan{Steps: []store.RouteStep{
				{Backend: store.KindStructured, Order: 0},
				{Backend: store.KindSemantic, Order: 0, DependencyLevel: 1, DependsOnPrevious: true},
			}},
			wantErr: true,
		},
		{
			name: "level without dependency flag",
			plan: store.RoutePlan{Steps: []store.RouteStep{
				{Backend: store.KindStructured, Order: 0, DependencyLevel: 1},
			}},
			wantErr: true,
		},
		{
			name: "valid two-level plan",
			plan: store.RoutePlan{Steps: []store.RouteStep{
				{Backend: store.KindSemantic, Order: 0},
				{Backend: store.KindStructured, Order: 1, DependencyLevel: 1, DependsOnPrevious: true},
			}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(&tt.plan)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
