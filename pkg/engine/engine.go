package engine

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"datachat-be/pkg/analysis"
	"datachat-be/pkg/backend"
	"datachat-be/pkg/cache"
	"datachat-be/pkg/drill"
	"datachat-be/pkg/events"
	"datachat-be/pkg/llm"
	"datachat-be/pkg/persona"
	"datachat-be/pkg/route"
	"datachat-be/pkg/schedule"
	"datachat-be/pkg/session"
	"datachat-be/pkg/store"
	"datachat-be/pkg/synth"
	"datachat-be/pkg/telemetry"
)

// historyWindow is how many prior turns are replayed into synthesis
const historyWindow = 6

// Config holds the engine tunables
type Config struct {
	ConfidenceThreshold  float64 // below this, entity resolution runs
	FastQualityThreshold float64 // remembered routes must score this to replay
	SynthesisMaxTokens   int
}

// Deps wires the engine's collaborators. All are required except
// Synthesizer, Bus and Resolver, which degrade gracefully when nil.
type Deps struct {
	Classifier  analysis.Classifier
	Resolver    analysis.Resolver
	Router      *route.Router
	Registry    *backend.Registry
	Scheduler   *schedule.Scheduler
	Sessions    *session.Manager
	Personas    *persona.Selector
	Answers     cache.AnswerCache
	Routes      *cache.RouteMemory
	Drill       *drill.Handler
	Synthesizer synth.Synthesizer
	Bus         *telemetry.Bus
	Logger      *log.Logger
}

// Engine owns one query-orchestration pipeline instance. Multiple engines
// can coexist; nothing is shared through package state.
type Engine struct {
	classifier  analysis.Classifier
	resolver    analysis.Resolver
	router      *route.Router
	registry    *backend.Registry
	scheduler   *schedule.Scheduler
	sessions    *session.Manager
	personas    *persona.Selector
	answers     cache.AnswerCache
	routes      *cache.RouteMemory
	drill       *drill.Handler
	synthesizer synth.Synthesizer
	bus         *telemetry.Bus
	cfg         Config
	logger      *log.Logger
}

func New(deps Deps, cfg Config) *Engine {
	if cfg.ConfidenceThreshold == 0 {
		cfg.ConfidenceThreshold = 0.6
	}
	if cfg.FastQualityThreshold == 0 {
		cfg.FastQualityThreshold = 0.9
	}
	return &Engine{
		classifier:  deps.Classifier,
		resolver:    deps.Resolver,
		router:      deps.Router,
		registry:    deps.Registry,
		scheduler:   deps.Scheduler,
		sessions:    deps.Sessions,
		personas:    deps.Personas,
		answers:     deps.Answers,
		routes:      deps.Routes,
		drill:       deps.Drill,
		synthesizer: deps.Synthesizer,
		bus:         deps.Bus,
		cfg:         cfg,
		logger:      deps.Logger,
	}
}

// Preview is the analyze surface: everything the engine would decide for
// a query before retrieval, with no execution and no session mutation.
type Preview struct {
	Analysis     *analysis.QuestionAnalysis `json:"analysis"`
	Enriched     *analysis.EnrichedAnalysis `json:"enriched"`
	Plan         *store.RoutePlan           `json:"plan,omitempty"`
	Persona      string                     `json:"persona"`
	Instructions string                     `json:"instructions"`
	Session      *store.SessionSnapshot     `json:"session,omitempty"`
}

// Analyze classifies, enriches and plans a query without executing it.
// An existing session is reported but never created or modified.
func (e *Engine) Analyze(ctx context.Context, query, sessionID string) (*Preview, error) {
	qa, err := e.classifier.Classify(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("classification failed: %w", err)
	}

	ea, err := e.enrich(ctx, qa)
	if err != nil {
		ea = analysis.Plain(*qa)
	}

	chosen := e.personas.Select(qa)
	preview := &Preview{Analysis: qa, Enriched: ea, Persona: chosen.ID}

	var sess *session.Session
	if sessionID != "" {
		if sess = e.sessions.Get(sessionID); sess != nil {
			preview.Session = sess.Snapshot(e.sessions.MaxTurns())
		}
	}
	preview.Instructions = persona.BuildInstructions(chosen, ea, e.priorContext(sess))

	if ea.NeedsClarification {
		return preview, nil
	}

	plan, err := e.router.CreatePlan(ea)
	if err != nil {
		return nil, fmt.Errorf("planning failed: %w", err)
	}
	preview.Plan = plan
	return preview, nil
}

// Execute runs the full pipeline for one query. Errors never escape as
// Go errors; they surface in BlendResult.Error so a turn always yields a
// renderable result.
func (e *Engine) Execute(ctx context.Context, query, sessionID string, mode Mode) *store.BlendResult {
	started := time.Now()

	sess := e.sessions.GetOrCreate(sessionID)

	if err := e.sessions.CheckTurnLimit(sess); err != nil {
		result := &store.BlendResult{Error: err.Error()}
		e.finish(result, sess, started)
		return result
	}

	// Drilldowns reshape the previous result locally, before any
	// classification cost is paid
	if result := e.drill.TryHandle(query, sess.ID); result != nil {
		e.finish(result, sess, started)
		e.recordTurn(sess, query, result, nil, true)
		e.emit(events.TypeCacheHit, map[string]interface{}{
			"session_id": sess.ID,
			"kind":       "drilldown",
			"operation":  result.Sources[0].Operation,
		})
		return result
	}

	classifyStart := time.Now()
	qa, err := e.classifier.Classify(ctx, query)
	if err != nil {
		result := &store.BlendResult{Error: fmt.Sprintf("classification failed: %v", err)}
		e.finish(result, sess, started)
		return result
	}
	classifyMs := time.Since(classifyStart).Milliseconds()

	ea, err := e.enrich(ctx, qa)
	if err != nil {
		ea = analysis.Plain(*qa)
	}

	// Enrichment ran first: a boosted confidence may have cleared the
	// clarification flag, so only unresolved ambiguity stops here
	if ea.NeedsClarification {
		result := &store.BlendResult{
			Response:           "I need a little more detail before I can answer that.",
			Category:           string(qa.Type),
			Confidence:         ea.Confidence,
			NeedsClarification: true,
			Clarifications:     ea.ClarificationQuestions,
		}
		result.Timing.ClassifyMs = classifyMs
		e.finish(result, sess, started)
		e.recordTurn(sess, query, result, qa, true)
		return result
	}

	chosen := e.personas.Select(qa)
	e.sessions.SetPersona(sess, chosen.ID)

	decision := e.decidePath(mode, ea)

	routeStart := time.Now()
	var plan *store.RoutePlan
	if decision.Path == store.PathFast {
		plan = fastPlan(*decision.CachedStep)
	} else {
		plan, err = e.router.CreatePlan(ea)
		if err == nil {
			err = e.registry.ValidatePlan(plan)
		}
		if err != nil {
			result := &store.BlendResult{Error: fmt.Sprintf("planning failed: %v", err), Category: string(qa.Type)}
			e.finish(result, sess, started)
			return result
		}
	}
	routeMs := time.Since(routeStart).Milliseconds()

	retrievalStart := time.Now()
	outcome := e.scheduler.Run(ctx, plan, ea, sess.ID, schedule.Budget{
		UsedTokens:   sess.Tokens.Total,
		BudgetTokens: sess.Tokens.Budget,
	})
	retrievalMs := time.Since(retrievalStart).Milliseconds()

	if outcome.StoppedEarly {
		e.emit(events.TypeBudgetStop, map[string]interface{}{
			"session_id": sess.ID,
			"used":       sess.Tokens.Total,
			"budget":     sess.Tokens.Budget,
		})
	}

	signature := cache.Signature(outcome.Results)

	if entry, found := e.answers.Get(ctx, query, signature); found {
		e.logger.Printf("[ENGINE] Answer cache hit for session %s", sess.ID)
		result := &store.BlendResult{
			Response:   entry.Response,
			Sources:    entry.Sources,
			Confidence: entry.Confidence,
			Category:   string(qa.Type),
			Persona:    chosen.ID,
			Steps:      outcome.Summaries,
		}
		result.Timing = store.Timing{ClassifyMs: classifyMs, RouteMs: routeMs, RetrievalMs: retrievalMs}
		e.finish(result, sess, started)
		// The turn still counts against the session, at zero token cost
		e.recordTurn(sess, query, result, qa, false)
		if len(plan.Steps) > 0 {
			e.routes.Store(ea.Query, string(ea.Type), plan.Steps[0], 1.0, retrievalMs)
		}
		e.emit(events.TypeCacheHit, map[string]interface{}{
			"session_id": sess.ID,
			"kind":       "answer",
		})
		return result
	}

	synthesisStart := time.Now()
	blended := e.blend(ctx, decision.Path, chosen, ea, sess, outcome)
	synthesisMs := time.Since(synthesisStart).Milliseconds()

	confidence := e.executionConfidence(ea, outcome)

	response := blended.Response
	if outcome.StoppedEarly {
		response += "\n\nNote: retrieval stopped early to stay within the session budget."
	}

	result := &store.BlendResult{
		Response:   response,
		Sources:    blended.Sources,
		Confidence: confidence,
		Category:   string(qa.Type),
		Persona:    chosen.ID,
		Steps:      outcome.Summaries,
	}
	result.Timing = store.Timing{
		ClassifyMs:  classifyMs,
		RouteMs:     routeMs,
		RetrievalMs: retrievalMs,
		SynthesisMs: synthesisMs,
	}
	e.finish(result, sess, started)

	e.answers.Set(ctx, query, signature, &cache.AnswerEntry{
		Response:   result.Response,
		Sources:    result.Sources,
		Confidence: result.Confidence,
		CreatedAt:  time.Now(),
	})

	e.rememberRoute(ea, plan, outcome, confidence, retrievalMs)
	e.recordTurn(sess, query, result, qa, true)
	e.emitTurn(sess, query, result, decision.Path, blended.Tokens)

	return result
}

// blend runs synthesis, or deterministic formatting when synthesis is
// bypassed or unavailable. The fast path never synthesizes: the single
// replayed backend's result is formatted deterministically.
func (e *Engine) blend(
	ctx context.Context,
	path store.Path,
	chosen *persona.Persona,
	ea *analysis.EnrichedAnalysis,
	sess *session.Session,
	outcome *schedule.Outcome,
) *synth.Result {

	results := make([]*store.SectionResult, len(outcome.Results))
	for i := range outcome.Results {
		results[i] = &outcome.Results[i]
	}

	if path == store.PathFast || ea.CanBypassSynthesis || e.synthesizer == nil {
		return synth.FormatDeterministic(results)
	}

	instructions := persona.BuildInstructions(chosen, ea, e.priorContext(sess))
	blended, err := e.synthesizer.Synthesize(ctx, instructions, results, e.history(sess), synth.Options{
		MaxTokens: e.cfg.SynthesisMaxTokens,
	})
	if err != nil {
		e.logger.Printf("[ENGINE] Synthesis failed, serving deterministic formatting: %v", err)
		return synth.FormatDeterministic(results)
	}
	return blended
}

// executionConfidence scales analysis confidence by retrieval success
func (e *Engine) executionConfidence(ea *analysis.EnrichedAnalysis, outcome *schedule.Outcome) float64 {
	if len(outcome.Results) == 0 {
		return 0
	}
	succeeded := 0
	for _, r := range outcome.Results {
		if r.Success {
			succeeded++
		}
	}
	return ea.Confidence * float64(succeeded) / float64(len(outcome.Results))
}

// rememberRoute stores the primary step of a successful plan so similar
// queries can replay it
func (e *Engine) rememberRoute(ea *analysis.EnrichedAnalysis, plan *store.RoutePlan, outcome *schedule.Outcome, confidence float64, latencyMs int64) {
	if len(plan.Steps) == 0 {
		return
	}
	primary := plan.Steps[0]
	for _, r := range outcome.Results {
		if r.Backend == primary.Backend && r.Success {
			e.routes.Store(ea.Query, string(ea.Type), primary, confidence, latencyMs)
			e.emit(events.TypeRouteRecorded, map[string]interface{}{
				"category": string(ea.Type),
				"backend":  string(primary.Backend),
				"quality":  confidence,
			})
			return
		}
	}
}

// finish stamps total timing and the session snapshot onto a result
func (e *Engine) finish(result *store.BlendResult, sess *session.Session, started time.Time) {
	result.Timing.TotalMs = time.Since(started).Milliseconds()
	result.Session = sess.Snapshot(e.sessions.MaxTurns())
}

// recordTurn appends the turn pair to the session. Cached answers pass
// charge=false: the turn counts, its token cost is zero.
func (e *Engine) recordTurn(sess *session.Session, query string, result *store.BlendResult, qa *analysis.QuestionAnalysis, charge bool) {
	now := time.Now()
	userTurn := session.Turn{
		ID:        uuid.New(),
		Role:      session.RoleUser,
		Content:   query,
		CreatedAt: now,
		Analysis:  qa,
	}
	assistantTurn := session.Turn{
		ID:         uuid.New(),
		Role:       session.RoleAssistant,
		Content:    result.Response,
		CreatedAt:  now,
		Sources:    result.Sources,
		Confidence: result.Confidence,
	}
	if charge {
		userTurn.TokensIn = store.EstimateTextTokens(query)
		assistantTurn.TokensOut = store.EstimateTextTokens(result.Response)
		for _, step := range result.Steps {
			assistantTurn.TokensIn += store.EstimateResultTokens(step.RecordCount)
		}
	}
	e.sessions.RecordTurns(sess, userTurn, assistantTurn)

	// Snapshot was taken before the turn was appended; refresh it
	result.Session = sess.Snapshot(e.sessions.MaxTurns())
}

// history converts the recent session turns into chat messages
func (e *Engine) history(sess *session.Session) []llm.Message {
	turns := sess.Turns
	if len(turns) > historyWindow {
		turns = turns[len(turns)-historyWindow:]
	}
	messages := make([]llm.Message, 0, len(turns))
	for _, t := range turns {
		messages = append(messages, llm.Message{Role: t.Role, Content: t.Content})
	}
	return messages
}

// priorContext summarises the last assistant answer for the persona
// instructions
func (e *Engine) priorContext(sess *session.Session) string {
	if sess == nil {
		return ""
	}
	for i := len(sess.Turns) - 1; i >= 0; i-- {
		if sess.Turns[i].Role == session.RoleAssistant {
			content := sess.Turns[i].Content
			if len(content) > 400 {
				content = content[:400]
			}
			return content
		}
	}
	return ""
}

func (e *Engine) emit(eventType string, data map[string]interface{}) {
	if e.bus != nil {
		e.bus.Emit(eventType, data)
	}
}

func (e *Engine) emitTurn(sess *session.Session, query string, result *store.BlendResult, path store.Path, tokens store.TokenUsage) {
	if e.bus == nil {
		return
	}
	e.bus.EmitTurn(telemetry.TurnRecord{
		SessionID:  sess.ID,
		Query:      query,
		Response:   result.Response,
		Category:   result.Category,
		Persona:    result.Persona,
		Path:       path,
		Confidence: result.Confidence,
		TokensIn:   tokens.Input,
		TokensOut:  tokens.Output,
		Steps:      result.Steps,
		Timing:     result.Timing,
		CreatedAt:  time.Now(),
	})
}
