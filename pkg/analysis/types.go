package analysis

// QuestionType classifies what kind of answer a query needs
type QuestionType string

const (
	TypePreciseLookup        QuestionType = "PRECISE_LOOKUP"
	TypeDiscovery            QuestionType = "DISCOVERY"
	TypeAggregation          QuestionType = "AGGREGATION"
	TypeAggregationDiscovery QuestionType = "AGGREGATION_DISCOVERY"
	TypeRelationship         QuestionType = "RELATIONSHIP"
	TypeExplanation          QuestionType = "EXPLANATION"
	TypeComparison           QuestionType = "COMPARISON"
	TypeUnknown              QuestionType = "UNKNOWN"
)

// Complexity classes drive the fast/deep path heuristic
const (
	ComplexitySimple   = "SIMPLE"
	ComplexityModerate = "MODERATE"
	ComplexityComplex  = "COMPLEX"
)

// Entity is a tagged value extracted from the query, e.g. region:victoria
type Entity struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// Drilldown operations a follow-up query can request against cached data
const (
	DrillRegroup = "REGROUP"
	DrillFilter  = "FILTER"
	DrillExpand  = "EXPAND"
	DrillExport  = "EXPORT"
)

// QuestionAnalysis is the classifier's verdict on a single query.
// It is immutable after creation; enrichment produces an EnrichedAnalysis
// copy instead of mutating it.
type QuestionAnalysis struct {
	Query      string       `json:"query"`
	Type       QuestionType `json:"type"`
	Confidence float64      `json:"confidence"`
	Entities   []Entity     `json:"entities"`

	Operation    string   `json:"operation,omitempty"`
	ModelHints   []string `json:"model_hints,omitempty"`
	FieldHints   []string `json:"field_hints,omitempty"`
	GroupByHints []string `json:"group_by_hints,omitempty"`

	NeedsClarification     bool     `json:"needs_clarification"`
	ClarificationQuestions []string `json:"clarification_questions,omitempty"`

	IsDrilldown      bool   `json:"is_drilldown"`
	DrilldownOp      string `json:"drilldown_op,omitempty"`
	DrilldownGroupBy string `json:"drilldown_group_by,omitempty"`
	DrilldownExpand  string `json:"drilldown_expand,omitempty"`

	Complexity         string `json:"complexity"`
	CanBypassSynthesis bool   `json:"can_bypass_synthesis"`
}

// EnrichedAnalysis is the output of entity resolution plus confidence
// boosting. The embedded analysis is a copy; the original is never touched.
type EnrichedAnalysis struct {
	QuestionAnalysis

	ResolvedModel        string            `json:"resolved_model,omitempty"`
	ResolvedFilters      map[string]string `json:"resolved_filters,omitempty"`
	ResolvedAggregations []string          `json:"resolved_aggregations,omitempty"`
	ResolutionConfidence float64           `json:"resolution_confidence"`
	WasEnriched          bool              `json:"was_enriched"`
}

// Plain wraps an analysis that needed no enrichment
func Plain(qa QuestionAnalysis) *EnrichedAnalysis {
	return &EnrichedAnalysis{QuestionAnalysis: qa}
}

// EntityValue returns the first entity value of the given type, or ""
func (qa *QuestionAnalysis) EntityValue(entityType string) string {
	for _, e := range qa.Entities {
		if e.Type == entityType {
			return e.Value
		}
	}
	return ""
}
