package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"datachat-be/pkg/analysis"
	"datachat-be/pkg/backend"
	"datachat-be/pkg/cache"
	"datachat-be/pkg/drill"
	"datachat-be/pkg/engine"
	"datachat-be/pkg/persona"
	"datachat-be/pkg/route"
	"datachat-be/pkg/schedule"
	"datachat-be/pkg/session"

	"github.com/fatih/color"
)

// Dry-run diagnostic for the query pipeline. Classifies, enriches and
// plans the query on the command line without a database, an LLM or a
// running server.
func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: diagnose \"<question>\" [mode]")
		fmt.Println("  mode: auto (default), simple, full")
		os.Exit(1)
	}
	query := os.Args[1]
	mode := engine.ModeAuto
	if len(os.Args) > 2 {
		mode = engine.Mode(os.Args[2])
	}

	logger := log.New(os.Stderr, "", 0)
	drilldowns := cache.NewDrilldownStore()
	registry := backend.NewRegistry()

	eng := engine.New(engine.Deps{
		Classifier: analysis.NewRuleClassifier(logger),
		Router:     route.NewRouter(logger),
		Registry:   registry,
		Scheduler:  schedule.NewScheduler(registry, drilldowns, logger),
		Sessions:   session.NewManager(session.Limits{}, nil, logger),
		Personas:   persona.NewSelector(),
		Answers:    cache.NewMemoryAnswerCache(0),
		Routes:     cache.NewRouteMemory(0),
		Drill:      drill.NewHandler(drilldowns, logger),
	}, engine.Config{})

	color.Cyan("🔍 Diagnosing: %q (mode=%s)\n", query, mode)

	diag, err := eng.Diagnose(context.Background(), query, mode)
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}

	color.Yellow("\n[1] Classification")
	fmt.Printf("  type:       %s\n", diag.Analysis.Type)
	fmt.Printf("  confidence: %.2f\n", diag.Analysis.Confidence)
	fmt.Printf("  complexity: %s\n", diag.Analysis.Complexity)
	if diag.Analysis.Operation != "" {
		fmt.Printf("  operation:  %s\n", diag.Analysis.Operation)
	}
	for _, e := range diag.Analysis.Entities {
		fmt.Printf("  entity:     %s=%q\n", e.Type, e.Value)
	}

	if diag.Enriched.NeedsClarification {
		color.Red("\n[!] Needs clarification:")
		for _, q := range diag.Enriched.ClarificationQuestions {
			fmt.Printf("  - %s\n", q)
		}
		return
	}

	color.Yellow("\n[2] Enrichment")
	fmt.Printf("  confidence: %.2f", diag.Enriched.Confidence)
	if diag.Enriched.Confidence > diag.Analysis.Confidence {
		fmt.Printf(" (boosted from %.2f)", diag.Analysis.Confidence)
	}
	fmt.Println()

	color.Yellow("\n[3] Persona")
	fmt.Printf("  selected:   %s\n", diag.Persona)

	color.Yellow("\n[4] Path")
	fmt.Printf("  path:       %s\n", diag.Path.Path)
	fmt.Printf("  rationale:  %s\n", diag.Path.Rationale)

	if diag.Plan == nil {
		return
	}

	color.Yellow("\n[5] Plan (estimated %d tokens, parallel=%v)", diag.Plan.EstimatedTokens, diag.Plan.CanParallelize)
	for _, step := range diag.Plan.Steps {
		chained := ""
		if step.DependsOnPrevious {
			chained = " [chained]"
		}
		color.Green("  L%d #%d %s.%s%s", step.DependencyLevel, step.Order, step.Backend, step.Operation, chained)
		fmt.Printf("       %s\n", step.Rationale)
		if len(step.Params) > 0 {
			parts := make([]string, 0, len(step.Params))
			for k, v := range step.Params {
				parts = append(parts, fmt.Sprintf("%s=%v", k, v))
			}
			fmt.Printf("       params: %s\n", strings.Join(parts, " "))
		}
	}
	for _, s := range diag.Plan.Skipped {
		fmt.Printf("  skipped %s: %s\n", s.Backend, s.Reason)
	}

	if len(diag.Warnings) > 0 {
		color.Yellow("\n[6] Warnings")
		for _, w := range diag.Warnings {
			fmt.Printf("  - %s\n", w)
		}
	}
}
