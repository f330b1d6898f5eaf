package store

import "time"

// Kind identifies one of the fixed retrieval capability domains
type Kind string

const (
	KindStructured Kind = "STRUCTURED" // precise-filter store
	KindSemantic   Kind = "SEMANTIC"   // vector similarity search
	KindGraph      Kind = "GRAPH"      // relationship traversal
	KindKnowledge  Kind = "KNOWLEDGE"  // domain glossary lookup
)

// KindCache is the synthetic attribution source for answers served from
// cached data; it is not a routable backend and never appears in plans.
const KindCache Kind = "CACHE"

// AllKinds is the closed set of routable backend identifiers
var AllKinds = []Kind{KindStructured, KindSemantic, KindGraph, KindKnowledge}

func (k Kind) IsValid() bool {
	for _, known := range AllKinds {
		if k == known {
			return true
		}
	}
	return false
}

// RouteStep is one planned call into a backend with concrete parameters
type RouteStep struct {
	Backend           Kind                   `json:"backend"`
	Operation         string                 `json:"operation"`
	Params            map[string]interface{} `json:"params"`
	Order             int                    `json:"order"`
	DependencyLevel   int                    `json:"dependency_level"`
	DependsOnPrevious bool                   `json:"depends_on_previous"`
	Rationale         string                 `json:"rationale"`
}

// SkippedBackend records why the router left a backend out of a plan
type SkippedBackend struct {
	Backend Kind   `json:"backend"`
	Reason  string `json:"reason"`
}

// RoutePlan is an ordered, dependency-leveled set of route steps.
// Immutable once built.
type RoutePlan struct {
	Steps           []RouteStep      `json:"steps"`
	Skipped         []SkippedBackend `json:"skipped,omitempty"`
	EstimatedTokens int              `json:"estimated_tokens"`
	CanParallelize  bool             `json:"can_parallelize"`
}

// SectionResult is the outcome of executing one route step
type SectionResult struct {
	Backend       Kind        `json:"backend"`
	Operation     string      `json:"operation"`
	Success       bool        `json:"success"`
	Data          interface{} `json:"data,omitempty"`
	Error         string      `json:"error,omitempty"`
	RecordCount   int         `json:"record_count"`
	TokenEstimate int         `json:"token_estimate"`
}

// Record is one structured row returned by a backend
type Record map[string]interface{}

// RecordSet is the structured payload of a lookup/discovery step
type RecordSet struct {
	Model   string   `json:"model"`
	Records []Record `json:"records"`
}

// Group is one bucket of an aggregation result
type Group struct {
	Key   map[string]string  `json:"key"`
	Count int                `json:"count"`
	Sums  map[string]float64 `json:"sums,omitempty"`
}

// AggregationResult is the structured payload of an aggregation step.
// Records carries the underlying rows so drilldowns can re-aggregate
// without another backend call.
type AggregationResult struct {
	Model        string   `json:"model"`
	GroupBy      []string `json:"group_by"`
	Aggregations []string `json:"aggregations"`
	Groups       []Group  `json:"groups"`
	Records      []Record `json:"records,omitempty"`
}

// RelationHit is one edge found by the graph backend
type RelationHit struct {
	SourceModel string `json:"source_model"`
	SourceID    string `json:"source_id"`
	TargetModel string `json:"target_model"`
	TargetID    string `json:"target_id"`
	Field       string `json:"field"`
	Label       string `json:"label,omitempty"`
}

// KnowledgeNote is the payload of a domain-knowledge lookup
type KnowledgeNote struct {
	Term string `json:"term"`
	Text string `json:"text"`
}

// Attribution ties a claim in the answer back to a backend call
type Attribution struct {
	Backend      Kind   `json:"backend"`
	Operation    string `json:"operation"`
	Contribution string `json:"contribution"`
	DataPoints   int    `json:"data_points"`
}

// StepSummary is the per-step digest included in a BlendResult
type StepSummary struct {
	Backend     Kind   `json:"backend"`
	Operation   string `json:"operation"`
	Success     bool   `json:"success"`
	RecordCount int    `json:"record_count"`
	ElapsedMs   int64  `json:"elapsed_ms"`
}

// Timing is the per-phase latency breakdown of one execution
type Timing struct {
	ClassifyMs  int64 `json:"classify_ms"`
	RouteMs     int64 `json:"route_ms"`
	RetrievalMs int64 `json:"retrieval_ms"`
	SynthesisMs int64 `json:"synthesis_ms"`
	TotalMs     int64 `json:"total_ms"`
}

// TokenUsage tracks spend against the session budget
type TokenUsage struct {
	Input  int `json:"input"`
	Output int `json:"output"`
	Total  int `json:"total"`
	Budget int `json:"budget"`
}

// SessionSnapshot is the session view embedded in a BlendResult
type SessionSnapshot struct {
	ID             string     `json:"id"`
	TurnsUsed      int        `json:"turns_used"`
	TurnsRemaining int        `json:"turns_remaining"`
	TokenUsage     TokenUsage `json:"token_usage"`
}

// BlendResult is the full attributed answer produced per call
type BlendResult struct {
	Response           string           `json:"response"`
	Sources            []Attribution    `json:"sources"`
	Confidence         float64          `json:"confidence"`
	Category           string           `json:"category"`
	Persona            string           `json:"persona"`
	Session            *SessionSnapshot `json:"session,omitempty"`
	Steps              []StepSummary    `json:"steps,omitempty"`
	Timing             Timing           `json:"timing"`
	Error              string           `json:"error,omitempty"`
	NeedsClarification bool             `json:"needs_clarification,omitempty"`
	Clarifications     []string         `json:"clarifications,omitempty"`
}

// Drilldown entry kinds, tagging what shape of payload was cached
const (
	DrilldownAggregation = "aggregation"
	DrilldownRecords     = "records"
	DrilldownSemantic    = "semantic"
)

// DrilldownEntry is the per-session cached structured result a follow-up
// drilldown query can reshape without new backend calls
type DrilldownEntry struct {
	Kind         string             `json:"kind"`
	Aggregation  *AggregationResult `json:"aggregation,omitempty"`
	Records      *RecordSet         `json:"records,omitempty"`
	Query        string             `json:"query"`
	Model        string             `json:"model,omitempty"`
	Filters      map[string]string  `json:"filters,omitempty"`
	GroupBy      []string           `json:"group_by,omitempty"`
	Aggregations []string           `json:"aggregations,omitempty"`
	TurnIndex    int                `json:"turn_index"`
	CreatedAt    time.Time          `json:"created_at"`
}

// Path identifies which execution path was chosen
type Path string

const (
	PathFast Path = "FAST"
	PathDeep Path = "DEEP"
)

// PathDecision records the fast/deep choice and why
type PathDecision struct {
	Path       Path       `json:"path"`
	Rationale  string     `json:"rationale"`
	CachedStep *RouteStep `json:"cached_step,omitempty"`
}

// EstimateTextTokens approximates token cost of prose (~4 chars/token)
func EstimateTextTokens(text string) int {
	return len(text) / 4
}

// EstimateResultTokens approximates the token cost of feeding a section
// result into synthesis
func EstimateResultTokens(recordCount int) int {
	const perRecord = 40
	return recordCount * perRecord
}
