package engine

import (
	"context"
	"fmt"

	"datachat-be/pkg/analysis"
	"datachat-be/pkg/store"
)

// Diagnosis exposes every pre-retrieval decision the engine would make
// for a query, without touching a backend.
type Diagnosis struct {
	Analysis        *analysis.QuestionAnalysis `json:"analysis"`
	Enriched        *analysis.EnrichedAnalysis `json:"enriched"`
	Persona         string                     `json:"persona"`
	Path            *store.PathDecision        `json:"path"`
	Plan            *store.RoutePlan           `json:"plan,omitempty"`
	EstimatedTokens int                        `json:"estimated_tokens"`
	Warnings        []string                   `json:"warnings,omitempty"`
}

// Diagnose classifies, enriches and plans the query but executes nothing.
func (e *Engine) Diagnose(ctx context.Context, query string, mode Mode) (*Diagnosis, error) {
	qa, err := e.classifier.Classify(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("classification failed: %w", err)
	}

	diag := &Diagnosis{Analysis: qa}

	ea, err := e.enrich(ctx, qa)
	if err != nil {
		ea = analysis.Plain(*qa)
	}
	diag.Enriched = ea

	if ea.NeedsClarification {
		diag.Warnings = append(diag.Warnings, "query needs clarification before it can be executed")
		return diag, nil
	}

	if ea.Confidence < e.cfg.ConfidenceThreshold {
		diag.Warnings = append(diag.Warnings,
			fmt.Sprintf("confidence %.2f is below the %.2f routing threshold", ea.Confidence, e.cfg.ConfidenceThreshold))
	}

	diag.Persona = e.personas.Select(qa).ID
	diag.Path = e.decidePath(mode, ea)

	if diag.Path.Path == store.PathFast {
		diag.Plan = fastPlan(*diag.Path.CachedStep)
		diag.EstimatedTokens = diag.Plan.EstimatedTokens
		return diag, nil
	}

	plan, err := e.router.CreatePlan(ea)
	if err != nil {
		return nil, fmt.Errorf("planning failed: %w", err)
	}
	diag.Plan = plan
	diag.EstimatedTokens = plan.EstimatedTokens
	for _, skipped := range plan.Skipped {
		diag.Warnings = append(diag.Warnings, fmt.Sprintf("%s backend skipped: %s", skipped.Backend, skipped.Reason))
	}
	return diag, nil
}
