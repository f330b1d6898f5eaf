package engine

import (
	"context"
	"io"
	"log"
	"strings"
	"sync"
	"testing"
	"time"

	"datachat-be/pkg/analysis"
	"datachat-be/pkg/backend"
	"datachat-be/pkg/cache"
	"datachat-be/pkg/drill"
	"datachat-be/pkg/llm"
	"datachat-be/pkg/persona"
	"datachat-be/pkg/route"
	"datachat-be/pkg/schedule"
	"datachat-be/pkg/session"
	"datachat-be/pkg/store"
	"datachat-be/pkg/synth"
)

type countingAdapter struct {
	kind store.Kind
	fn   func(step store.RouteStep) (*store.SectionResult, error)

	mu    sync.Mutex
	calls int
}

func (a *countingAdapter) Kind() store.Kind { return a.kind }

func (a *countingAdapter) Execute(ctx context.Context, step store.RouteStep, ea *analysis.EnrichedAnalysis) (*store.SectionResult, error) {
	a.mu.Lock()
	a.calls++
	a.mu.Unlock()
	return a.fn(step)
}

func (a *countingAdapter) callCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}

func aggAdapter() *countingAdapter {
	return &countingAdapter{kind: store.KindStructured, fn: func(step store.RouteStep) (*store.SectionResult, error) {
		return &store.SectionResult{
			Backend:   step.Backend,
			Operation: step.Operation,
			Success:   true,
			Data: &store.AggregationResult{
				Model:        "projects",
				GroupBy:      []string{"status"},
				Aggregations: []string{"count"},
				Groups:       []store.Group{{Key: map[string]string{"status": "active"}, Count: 2}},
				Records: []store.Record{
					{"id": "p1", "name": "Harbour Expansion", "status": "active", "region": "EMEA"},
					{"id": "p2", "name": "Solar Farm Delta", "status": "active", "region": "APAC"},
				},
			},
			RecordCount: 2,
		}, nil
	}}
}

func noteAdapter() *countingAdapter {
	return &countingAdapter{kind: store.KindKnowledge, fn: func(step store.RouteStep) (*store.SectionResult, error) {
		return &store.SectionResult{
			Backend:     step.Backend,
			Operation:   step.Operation,
			Success:     true,
			Data:        []store.KnowledgeNote{{Term: "active", Text: "Projects currently in delivery"}},
			RecordCount: 1,
		}, nil
	}}
}

type engineFixture struct {
	engine   *Engine
	sessions *session.Manager
	routes   *cache.RouteMemory
	adapters []*countingAdapter
}

func newFixture(t *testing.T, limits session.Limits, adapters ...*countingAdapter) *engineFixture {
	t.Helper()
	logger := log.New(io.Discard, "", 0)

	registry := backend.NewRegistry()
	for _, a := range adapters {
		if err := registry.Register(a); err != nil {
			t.Fatalf("Register() error = %v", err)
		}
	}

	drilldowns := cache.NewDrilldownStore()
	routes := cache.NewRouteMemory(time.Minute)
	sessions := session.NewManager(limits, nil, logger)

	eng := New(Deps{
		Classifier: analysis.NewRuleClassifier(logger),
		Router:     route.NewRouter(logger),
		Registry:   registry,
		Scheduler:  schedule.NewScheduler(registry, drilldowns, logger),
		Sessions:   sessions,
		Personas:   persona.NewSelector(),
		Answers:    cache.NewMemoryAnswerCache(time.Minute),
		Routes:     routes,
		Drill:      drill.NewHandler(drilldowns, logger),
		Logger:     logger,
	}, Config{})

	return &engineFixture{engine: eng, sessions: sessions, routes: routes, adapters: adapters}
}

func TestExecuteAggregation(t *testing.T) {
	structured := aggAdapter()
	knowledge := noteAdapter()
	f := newFixture(t, session.Limits{TokenBudget: 60000, MaxTurns: 25}, structured, knowledge)

	result := f.engine.Execute(context.Background(), "how many projects are active", "", ModeAuto)

	if result.Error != "" {
		t.Fatalf("Error = %q", result.Error)
	}
	if result.Category != string(analysis.TypeAggregation) {
		t.Errorf("Category = %s, want %s", result.Category, analysis.TypeAggregation)
	}
	if result.Persona != "analyst" {
		t.Errorf("Persona = %s, want analyst", result.Persona)
	}
	if len(result.Steps) != 2 {
		t.Fatalf("Steps = %d, want 2", len(result.Steps))
	}
	// No synthesizer wired: deterministic formatting serves the answer
	if !strings.Contains(result.Response, "active: 2") {
		t.Errorf("response missing aggregation data:\n%s", result.Response)
	}
	if result.Confidence <= 0 {
		t.Errorf("Confidence = %.2f, want > 0", result.Confidence)
	}
	if result.Session == nil || result.Session.TurnsUsed != 1 {
		t.Errorf("Session = %+v, want 1 turn used", result.Session)
	}
	if structured.callCount() != 1 || knowledge.callCount() != 1 {
		t.Errorf("adapter calls = %d/%d, want 1/1", structured.callCount(), knowledge.callCount())
	}
}

func TestExecuteClarification(t *testing.T) {
	structured := aggAdapter()
	f := newFixture(t, session.Limits{MaxTurns: 25}, structured)

	result := f.engine.Execute(context.Background(), "qwerty asdf", "", ModeAuto)

	if !result.NeedsClarification {
		t.Fatal("NeedsClarification = false")
	}
	if len(result.Clarifications) == 0 {
		t.Error("no clarification questions returned")
	}
	if structured.callCount() != 0 {
		t.Error("backend executed for a clarification turn")
	}
}

func TestExecuteTurnLimit(t *testing.T) {
	f := newFixture(t, session.Limits{MaxTurns: 1, TokenBudget: 60000}, aggAdapter(), noteAdapter())

	first := f.engine.Execute(context.Background(), "how many projects are active", "", ModeAuto)
	if first.Error != "" {
		t.Fatalf("first turn failed: %s", first.Error)
	}

	second := f.engine.Execute(context.Background(), "how many contracts are signed", first.Session.ID, ModeAuto)
	if second.Error == "" {
		t.Fatal("second turn allowed past the limit")
	}
	if !strings.Contains(second.Error, "turn limit") && !strings.Contains(second.Error, "1-turn") {
		t.Errorf("Error = %q, want a turn-limit message", second.Error)
	}
	for _, a := range f.adapters {
		if a.callCount() > 1 {
			t.Error("backend executed after the turn limit")
		}
	}
}

func TestExecuteDrilldown(t *testing.T) {
	structured := aggAdapter()
	knowledge := noteAdapter()
	f := newFixture(t, session.Limits{TokenBudget: 60000, MaxTurns: 25}, structured, knowledge)

	first := f.engine.Execute(context.Background(), "how many projects are active", "", ModeAuto)
	if first.Error != "" {
		t.Fatalf("first turn failed: %s", first.Error)
	}
	callsAfterFirst := structured.callCount()

	second := f.engine.Execute(context.Background(), "group by region", first.Session.ID, ModeAuto)

	if second.Category != "DRILLDOWN" {
		t.Fatalf("Category = %s, want DRILLDOWN", second.Category)
	}
	for _, region := range []string{"EMEA", "APAC"} {
		if !strings.Contains(second.Response, region) {
			t.Errorf("drilldown response missing %s:\n%s", region, second.Response)
		}
	}
	if structured.callCount() != callsAfterFirst {
		t.Error("drilldown hit the backend")
	}
	if second.Session.TurnsUsed != 2 {
		t.Errorf("TurnsUsed = %d, want 2", second.Session.TurnsUsed)
	}
}

func TestExecuteFastPathReplay(t *testing.T) {
	structured := aggAdapter()
	knowledge := noteAdapter()
	f := newFixture(t, session.Limits{TokenBudget: 60000, MaxTurns: 25}, structured, knowledge)

	step := store.RouteStep{
		Backend:   store.KindStructured,
		Operation: route.OpAggregate,
		Params:    map[string]interface{}{"model": "projects", "aggregations": []string{"count"}},
	}
	f.routes.Store("how many projects are active", string(analysis.TypeAggregation), step, 0.95, 80)

	result := f.engine.Execute(context.Background(), "how many projects are active", "", ModeAuto)

	if result.Error != "" {
		t.Fatalf("Error = %q", result.Error)
	}
	// Fast path replays the single remembered step; the knowledge
	// support step from the full plan never runs
	if len(result.Steps) != 1 {
		t.Fatalf("Steps = %d, want 1", len(result.Steps))
	}
	if knowledge.callCount() != 0 {
		t.Error("fast path executed a secondary backend")
	}
	if structured.callCount() != 1 {
		t.Errorf("structured calls = %d, want 1", structured.callCount())
	}
}

func TestExecuteFastPathRequiresQuality(t *testing.T) {
	structured := aggAdapter()
	knowledge := noteAdapter()
	f := newFixture(t, session.Limits{TokenBudget: 60000, MaxTurns: 25}, structured, knowledge)

	step := store.RouteStep{Backend: store.KindStructured, Operation: route.OpAggregate, Params: map[string]interface{}{}}
	f.routes.Store("how many projects are active", string(analysis.TypeAggregation), step, 0.5, 80)

	result := f.engine.Execute(context.Background(), "how many projects are active", "", ModeAuto)

	if result.Error != "" {
		t.Fatalf("Error = %q", result.Error)
	}
	// Low-quality memory falls back to the full two-step plan
	if len(result.Steps) != 2 {
		t.Errorf("Steps = %d, want 2", len(result.Steps))
	}
}

func TestExecuteModeFullIgnoresMemory(t *testing.T) {
	structured := aggAdapter()
	knowledge := noteAdapter()
	f := newFixture(t, session.Limits{TokenBudget: 60000, MaxTurns: 25}, structured, knowledge)

	step := store.RouteStep{Backend: store.KindStructured, Operation: route.OpAggregate, Params: map[string]interface{}{}}
	f.routes.Store("how many projects are active", string(analysis.TypeAggregation), step, 0.99, 80)

	result := f.engine.Execute(context.Background(), "how many projects are active", "", ModeFull)

	if len(result.Steps) != 2 {
		t.Errorf("Steps = %d, want 2 under ModeFull", len(result.Steps))
	}
}

func TestExecuteRemembersSuccessfulRoute(t *testing.T) {
	f := newFixture(t, session.Limits{TokenBudget: 60000, MaxTurns: 25}, aggAdapter(), noteAdapter())

	f.engine.Execute(context.Background(), "how many projects are active", "", ModeAuto)

	pattern, found := f.routes.Lookup("how many projects are active", string(analysis.TypeAggregation))
	if !found {
		t.Fatal("successful route not remembered")
	}
	if pattern.Step.Backend != store.KindStructured {
		t.Errorf("remembered backend = %s, want %s", pattern.Step.Backend, store.KindStructured)
	}
}

func TestExecuteFailedStepsLowerConfidence(t *testing.T) {
	failing := &countingAdapter{kind: store.KindKnowledge, fn: func(step store.RouteStep) (*store.SectionResult, error) {
		return &store.SectionResult{
			Backend:   step.Backend,
			Operation: step.Operation,
			Success:   false,
			Error:     "glossary unavailable",
		}, nil
	}}
	okFixture := newFixture(t, session.Limits{TokenBudget: 60000, MaxTurns: 25}, aggAdapter(), noteAdapter())
	degradedFixture := newFixture(t, session.Limits{TokenBudget: 60000, MaxTurns: 25}, aggAdapter(), failing)

	okResult := okFixture.engine.Execute(context.Background(), "how many projects are active", "", ModeAuto)
	degraded := degradedFixture.engine.Execute(context.Background(), "how many projects are active", "", ModeAuto)

	if degraded.Confidence >= okResult.Confidence {
		t.Errorf("degraded confidence %.2f not below healthy %.2f", degraded.Confidence, okResult.Confidence)
	}
}

type countingSynth struct {
	mu    sync.Mutex
	calls int
}

func (s *countingSynth) Synthesize(ctx context.Context, instructions string, results []*store.SectionResult, history []llm.Message, opts synth.Options) (*synth.Result, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	return &synth.Result{Response: "There are 2 active projects.", Sources: synth.Attribute(results)}, nil
}

func (s *countingSynth) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func TestExecuteAnswerCacheSkipsSynthesis(t *testing.T) {
	f := newFixture(t, session.Limits{TokenBudget: 60000, MaxTurns: 25}, aggAdapter(), noteAdapter())
	synthesizer := &countingSynth{}
	f.engine.synthesizer = synthesizer

	first := f.engine.Execute(context.Background(), "how many projects are active", "", ModeAuto)
	if first.Error != "" {
		t.Fatalf("first turn failed: %s", first.Error)
	}
	if synthesizer.callCount() != 1 {
		t.Fatalf("synthesizer calls = %d, want 1", synthesizer.callCount())
	}

	// Same query, same retrieval shape: the cached answer is served and
	// the model is not called again
	second := f.engine.Execute(context.Background(), "how many projects are active", first.Session.ID, ModeAuto)
	if second.Error != "" {
		t.Fatalf("second turn failed: %s", second.Error)
	}
	if synthesizer.callCount() != 1 {
		t.Errorf("synthesizer calls = %d, want 1 after cache hit", synthesizer.callCount())
	}
	if second.Response != first.Response {
		t.Errorf("cached response %q differs from original %q", second.Response, first.Response)
	}
}

func semAdapter() *countingAdapter {
	return &countingAdapter{kind: store.KindSemantic, fn: func(step store.RouteStep) (*store.SectionResult, error) {
		return &store.SectionResult{
			Backend:   step.Backend,
			Operation: step.Operation,
			Success:   true,
			Data: &store.RecordSet{Model: "projects", Records: []store.Record{
				{"id": "p1", "name": "Harbour Expansion"},
			}},
			RecordCount: 1,
		}, nil
	}}
}

type stubResolver struct {
	res *analysis.Resolution

	mu    sync.Mutex
	calls int
}

func (r *stubResolver) Resolve(ctx context.Context, qa *analysis.QuestionAnalysis, query string) (*analysis.Resolution, error) {
	r.mu.Lock()
	r.calls++
	r.mu.Unlock()
	return r.res, nil
}

func (r *stubResolver) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func TestExecuteEnrichmentClearsClarification(t *testing.T) {
	semantic := semAdapter()
	f := newFixture(t, session.Limits{TokenBudget: 60000, MaxTurns: 25}, semantic)
	resolver := &stubResolver{res: &analysis.Resolution{
		ResolvedModel:        "projects",
		ResolutionConfidence: 0.95,
		WasEnriched:          true,
	}}
	f.engine.resolver = resolver

	result := f.engine.Execute(context.Background(), "qwerty asdf", "", ModeAuto)

	if resolver.callCount() != 1 {
		t.Fatalf("resolver calls = %d, want 1", resolver.callCount())
	}
	// 0.6*0.95 + 0.4*0.3 clears the 0.6 threshold, so the query executes
	if result.NeedsClarification {
		t.Fatal("NeedsClarification = true after a confident resolution")
	}
	if result.Error != "" {
		t.Fatalf("Error = %q", result.Error)
	}
	if semantic.callCount() != 1 {
		t.Errorf("semantic calls = %d, want 1", semantic.callCount())
	}
}

func TestExecuteUnresolvedClarificationStands(t *testing.T) {
	semantic := semAdapter()
	f := newFixture(t, session.Limits{TokenBudget: 60000, MaxTurns: 25}, semantic)
	resolver := &stubResolver{res: &analysis.Resolution{WasEnriched: false}}
	f.engine.resolver = resolver

	result := f.engine.Execute(context.Background(), "qwerty asdf", "", ModeAuto)

	if resolver.callCount() != 1 {
		t.Fatalf("resolver calls = %d, want 1", resolver.callCount())
	}
	if !result.NeedsClarification {
		t.Fatal("NeedsClarification = false without enrichment")
	}
	if semantic.callCount() != 0 {
		t.Error("backend executed for an unresolved clarification turn")
	}
}

func TestExecuteFastPathSkipsSynthesis(t *testing.T) {
	structured := aggAdapter()
	f := newFixture(t, session.Limits{TokenBudget: 60000, MaxTurns: 25}, structured, noteAdapter())
	synthesizer := &countingSynth{}
	f.engine.synthesizer = synthesizer

	step := store.RouteStep{
		Backend:   store.KindStructured,
		Operation: route.OpAggregate,
		Params:    map[string]interface{}{"model": "projects", "aggregations": []string{"count"}},
	}
	f.routes.Store("how many projects are active", string(analysis.TypeAggregation), step, 0.95, 80)

	result := f.engine.Execute(context.Background(), "how many projects are active", "", ModeAuto)

	if result.Error != "" {
		t.Fatalf("Error = %q", result.Error)
	}
	if len(result.Steps) != 1 {
		t.Fatalf("Steps = %d, want 1", len(result.Steps))
	}
	// The replayed route is formatted deterministically, never synthesized
	if synthesizer.callCount() != 0 {
		t.Errorf("synthesizer calls = %d, want 0 on the fast path", synthesizer.callCount())
	}
	if !strings.Contains(result.Response, "active: 2") {
		t.Errorf("deterministic response missing aggregation data:\n%s", result.Response)
	}
}

func TestExecuteAnswerCacheHitChargesNoTokens(t *testing.T) {
	f := newFixture(t, session.Limits{TokenBudget: 60000, MaxTurns: 25}, aggAdapter(), noteAdapter())

	first := f.engine.Execute(context.Background(), "how many projects are active", "", ModeAuto)
	if first.Error != "" {
		t.Fatalf("first turn failed: %s", first.Error)
	}

	sess := f.sessions.Get(first.Session.ID)
	usedAfterFirst := sess.Tokens.Total
	if usedAfterFirst == 0 {
		t.Fatal("first turn recorded no token cost")
	}

	second := f.engine.Execute(context.Background(), "how many projects are active", first.Session.ID, ModeAuto)
	if second.Error != "" {
		t.Fatalf("second turn failed: %s", second.Error)
	}

	// The cached turn counts against the session at zero token cost
	if sess.Tokens.Total != usedAfterFirst {
		t.Errorf("Tokens.Total = %d after cache hit, want %d", sess.Tokens.Total, usedAfterFirst)
	}
	if second.Session.TurnsUsed != 2 {
		t.Errorf("TurnsUsed = %d, want 2", second.Session.TurnsUsed)
	}
	if second.Timing.SynthesisMs != 0 {
		t.Errorf("SynthesisMs = %d, want 0", second.Timing.SynthesisMs)
	}
}

func TestExecuteAnswerCacheHitRefreshesRouteMemory(t *testing.T) {
	f := newFixture(t, session.Limits{TokenBudget: 60000, MaxTurns: 25}, aggAdapter(), noteAdapter())

	first := f.engine.Execute(context.Background(), "how many projects are active", "", ModeAuto)
	if first.Error != "" {
		t.Fatalf("first turn failed: %s", first.Error)
	}
	before, found := f.routes.Lookup("how many projects are active", string(analysis.TypeAggregation))
	if !found {
		t.Fatal("route not remembered after the first execution")
	}

	f.engine.Execute(context.Background(), "how many projects are active", first.Session.ID, ModeAuto)

	after, _ := f.routes.Lookup("how many projects are active", string(analysis.TypeAggregation))
	// The hit re-stores the route at quality 1.0, smoothed over the prior
	if after.Quality <= before.Quality {
		t.Errorf("Quality = %.2f after cache hit, want above %.2f", after.Quality, before.Quality)
	}
	if after.HitCount != before.HitCount+1 {
		t.Errorf("HitCount = %d, want %d", after.HitCount, before.HitCount+1)
	}
}

func TestAnalyzeDoesNotExecute(t *testing.T) {
	structured := aggAdapter()
	f := newFixture(t, session.Limits{MaxTurns: 25}, structured, noteAdapter())

	preview, err := f.engine.Analyze(context.Background(), "how many projects are active", "")
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	if preview.Analysis.Type != analysis.TypeAggregation {
		t.Errorf("Type = %s, want %s", preview.Analysis.Type, analysis.TypeAggregation)
	}
	if preview.Persona != "analyst" {
		t.Errorf("Persona = %s, want analyst", preview.Persona)
	}
	if preview.Plan == nil || len(preview.Plan.Steps) != 2 {
		t.Fatalf("Plan = %+v, want 2 steps", preview.Plan)
	}
	if preview.Instructions == "" {
		t.Error("Instructions empty")
	}
	if structured.callCount() != 0 {
		t.Error("Analyze executed a backend")
	}
	if f.sessions.Count() != 0 {
		t.Errorf("sessions = %d, want 0 created by Analyze", f.sessions.Count())
	}
	if preview.Session != nil {
		t.Errorf("Session = %+v, want nil without a session id", preview.Session)
	}
}

func TestDiagnoseDoesNotExecute(t *testing.T) {
	structured := aggAdapter()
	f := newFixture(t, session.Limits{MaxTurns: 25}, structured, noteAdapter())

	diag, err := f.engine.Diagnose(context.Background(), "how many projects are active", ModeAuto)
	if err != nil {
		t.Fatalf("Diagnose() error = %v", err)
	}

	if diag.Analysis.Type != analysis.TypeAggregation {
		t.Errorf("Type = %s, want %s", diag.Analysis.Type, analysis.TypeAggregation)
	}
	if diag.Persona != "analyst" {
		t.Errorf("Persona = %s, want analyst", diag.Persona)
	}
	if diag.Path == nil || diag.Path.Path != store.PathDeep {
		t.Errorf("Path = %+v, want deep", diag.Path)
	}
	if diag.Plan == nil || len(diag.Plan.Steps) != 2 {
		t.Errorf("Plan = %+v, want 2 steps", diag.Plan)
	}
	if diag.EstimatedTokens == 0 || diag.EstimatedTokens != diag.Plan.EstimatedTokens {
		t.Errorf("EstimatedTokens = %d, want the plan estimate %d", diag.EstimatedTokens, diag.Plan.EstimatedTokens)
	}
	// Backends the router left out surface as explicit warnings
	if len(diag.Warnings) != len(diag.Plan.Skipped) {
		t.Errorf("Warnings = %v, want one per skipped backend", diag.Warnings)
	}
	if structured.callCount() != 0 {
		t.Error("Diagnose executed a backend")
	}
}

func TestDiagnoseWarnsOnClarification(t *testing.T) {
	f := newFixture(t, session.Limits{MaxTurns: 25}, semAdapter())

	diag, err := f.engine.Diagnose(context.Background(), "qwerty asdf", ModeAuto)
	if err != nil {
		t.Fatalf("Diagnose() error = %v", err)
	}

	if !diag.Enriched.NeedsClarification {
		t.Fatal("NeedsClarification = false")
	}
	if len(diag.Warnings) == 0 || !strings.Contains(diag.Warnings[0], "clarification") {
		t.Errorf("Warnings = %v, want a clarification warning", diag.Warnings)
	}
	if diag.Plan != nil {
		t.Errorf("Plan = %+v, want nil for a clarification query", diag.Plan)
	}
}
