package analysis

import (
	"context"
	"log"
	"regexp"
	"strings"
)

// Classifier turns raw query text into a QuestionAnalysis.
// Implementations may be rule-based or model-based.
type Classifier interface {
	Classify(ctx context.Context, query string) (*QuestionAnalysis, error)
}

// RuleClassifier is the deterministic default classifier. It scores the
// query against keyword tables per question type and extracts tagged
// entities, aggregation operations and group-by hints.
type RuleClassifier struct {
	logger *log.Logger
}

// NewRuleClassifier creates the default rule-based classifier
func NewRuleClassifier(logger *log.Logger) *RuleClassifier {
	return &RuleClassifier{logger: logger}
}

var (
	entityPattern  = regexp.MustCompile(`([a-zA-Z_]+):("[^"]+"|[^\s"]+)`)
	groupByPattern = regexp.MustCompile(`(?i)\b(?:by|per|grouped by|group by)\s+([a-z_]+)`)
	regionPattern  = regexp.MustCompile(`(?i)\bin\s+([A-Z][a-zA-Z]+(?:\s+[A-Z][a-zA-Z]+)?)`)
)

var typeKeywords = map[QuestionType][]string{
	TypeComparison:   {"compare", " versus ", " vs ", "difference between"},
	TypeRelationship: {"related to", "connected to", "linked to", "who works on", "relationship", "depends on", "involved in"},
	TypeAggregation:  {"total", "how many", "count of", "sum of", "average", "breakdown", "per ", "overall"},
	TypeExplanation:  {"what is", "what does", "explain", "why ", "meaning of", "definition"},
	TypeDiscovery:    {"find", "show me", "list ", "search", "which ", "looking for", "any "},
}

var discoveryCues = []string{"find", "search", "show me", "which ", "looking for"}

var operationKeywords = []struct {
	keyword   string
	operation string
}{
	{"total", "sum"},
	{"sum", "sum"},
	{"how many", "count"},
	{"count", "count"},
	{"number of", "count"},
	{"average", "avg"},
	{"mean", "avg"},
	{"highest", "max"},
	{"largest", "max"},
	{"lowest", "min"},
	{"smallest", "min"},
}

// knownModels are dataset models the classifier recognises as hints
var knownModels = []string{"projects", "organisations", "contracts", "regions", "milestones"}

// Classify runs the keyword tables over the query. It never fails; an
// unmatchable query comes back as TypeUnknown with a clarification request.
func (c *RuleClassifier) Classify(ctx context.Context, query string) (*QuestionAnalysis, error) {
	lower := strings.ToLower(query)

	qa := &QuestionAnalysis{
		Query:      query,
		Type:       TypeUnknown,
		Confidence: 0.3,
	}

	qa.Entities = extractEntities(query)
	qa.ModelHints = extractModelHints(lower)
	qa.GroupByHints = extractGroupBy(lower)
	qa.Operation = extractOperation(lower)

	qa.Type = c.matchType(lower, qa)
	qa.Confidence = c.score(lower, qa)
	qa.Complexity = complexityFor(qa.Type)
	qa.CanBypassSynthesis = canBypass(qa)

	if qa.Type == TypeUnknown || qa.Confidence < 0.4 {
		qa.NeedsClarification = true
		qa.ClarificationQuestions = clarificationsFor(qa)
	}

	c.logger.Printf("[CLASSIFY] %s (confidence=%.2f, entities=%d, op=%s)",
		qa.Type, qa.Confidence, len(qa.Entities), qa.Operation)

	return qa, nil
}

func (c *RuleClassifier) matchType(lower string, qa *QuestionAnalysis) QuestionType {
	// Comparison and relationship phrasing outranks generic keywords
	for _, qt := range []QuestionType{TypeComparison, TypeRelationship} {
		if containsAny(lower, typeKeywords[qt]) {
			return qt
		}
	}

	hasAgg := containsAny(lower, typeKeywords[TypeAggregation]) || qa.Operation != ""
	hasDiscovery := containsAny(lower, discoveryCues)

	switch {
	case hasAgg && hasDiscovery:
		return TypeAggregationDiscovery
	case hasAgg:
		return TypeAggregation
	}

	if containsAny(lower, typeKeywords[TypeExplanation]) {
		return TypeExplanation
	}

	// Explicit tagged filters point at a precise lookup
	if len(qa.Entities) > 0 && !hasDiscovery {
		return TypePreciseLookup
	}

	if containsAny(lower, typeKeywords[TypeDiscovery]) {
		return TypeDiscovery
	}

	return TypeUnknown
}

func (c *RuleClassifier) score(lower string, qa *QuestionAnalysis) float64 {
	if qa.Type == TypeUnknown {
		return 0.3
	}

	confidence := 0.7
	if containsAny(lower, typeKeywords[qa.Type]) {
		confidence = 0.75
	}
	if len(qa.Entities) > 0 {
		confidence += 0.1
	}
	if len(qa.ModelHints) > 0 {
		confidence += 0.05
	}
	if confidence > 0.95 {
		confidence = 0.95
	}
	return confidence
}

func extractEntities(query string) []Entity {
	var entities []Entity

	for _, m := range entityPattern.FindAllStringSubmatch(query, -1) {
		value := strings.Trim(m[2], `"`)
		entities = append(entities, Entity{
			Type:  strings.ToLower(m[1]),
			Value: value,
		})
	}

	// "in Victoria" style phrasing becomes a region entity unless one
	// was already tagged explicitly
	if regionMatch := regionPattern.FindStringSubmatch(query); regionMatch != nil {
		tagged := false
		for _, e := range entities {
			if e.Type == "region" {
				tagged = true
				break
			}
		}
		if !tagged {
			entities = append(entities, Entity{Type: "region", Value: regionMatch[1]})
		}
	}

	return entities
}

func extractModelHints(lower string) []string {
	var hints []string
	for _, model := range knownModels {
		if strings.Contains(lower, model) || strings.Contains(lower, strings.TrimSuffix(model, "s")) {
			hints = append(hints, model)
		}
	}
	return hints
}

func extractGroupBy(lower string) []string {
	var hints []string
	seen := make(map[string]bool)
	for _, m := range groupByPattern.FindAllStringSubmatch(lower, -1) {
		field := m[1]
		if field == "the" || seen[field] {
			continue
		}
		seen[field] = true
		hints = append(hints, field)
	}
	return hints
}

func extractOperation(lower string) string {
	for _, op := range operationKeywords {
		if strings.Contains(lower, op.keyword) {
			return op.operation
		}
	}
	return ""
}

func complexityFor(qt QuestionType) string {
	switch qt {
	case TypeAggregationDiscovery, TypeComparison:
		return ComplexityComplex
	case TypeAggregation, TypeRelationship, TypeDiscovery:
		return ComplexityModerate
	default:
		return ComplexitySimple
	}
}

func canBypass(qa *QuestionAnalysis) bool {
	// A pure count over explicit filters needs no prose synthesis
	if qa.Type == TypePreciseLookup && len(qa.Entities) > 0 {
		return true
	}
	if qa.Type == TypeAggregation && qa.Operation == "count" && len(qa.Entities) > 0 {
		return true
	}
	return false
}

func clarificationsFor(qa *QuestionAnalysis) []string {
	questions := []string{"Could you rephrase what you want to know?"}
	if len(qa.ModelHints) == 0 {
		questions = append(questions, "Which records are you asking about (projects, organisations, contracts)?")
	}
	if qa.Operation == "" && (qa.Type == TypeAggregation || qa.Type == TypeUnknown) {
		questions = append(questions, "Do you want a count, a total, or a list?")
	}
	return questions
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
