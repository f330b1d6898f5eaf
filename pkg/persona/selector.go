package persona

import (
	"fmt"
	"strings"

	"datachat-be/pkg/analysis"
)

// Traits tune how a persona phrases its claims
type Traits struct {
	ClaimPrefix      string `json:"claim_prefix"`
	EvidenceEmphasis string `json:"evidence_emphasis"` // high | medium | low
	AsksFollowUps    bool   `json:"asks_follow_ups"`
}

// Persona is a named response-voice policy. Static configuration, loaded
// once, never mutated.
type Persona struct {
	ID               string                  `json:"id"`
	Name             string                  `json:"name"`
	BaseInstructions string                  `json:"base_instructions"`
	BestFor          []analysis.QuestionType `json:"best_for"`
	Traits           Traits                  `json:"traits"`
}

var personas = []Persona{
	{
		ID:   "analyst",
		Name: "Data Analyst",
		BaseInstructions: "You are a rigorous data analyst. Lead with the numbers, show how " +
			"each figure was derived, and flag any gaps in the underlying records.",
		BestFor: []analysis.QuestionType{
			analysis.TypeAggregation,
			analysis.TypeAggregationDiscovery,
			analysis.TypeComparison,
		},
		Traits: Traits{
			ClaimPrefix:      "The data shows",
			EvidenceEmphasis: "high",
			AsksFollowUps:    false,
		},
	},
	{
		ID:   "navigator",
		Name: "Dataset Navigator",
		BaseInstructions: "You help the user find their way through the dataset. Summarise what " +
			"was found, point out the most relevant records and suggest how to narrow down further.",
		BestFor: []analysis.QuestionType{
			analysis.TypeDiscovery,
			analysis.TypePreciseLookup,
		},
		Traits: Traits{
			ClaimPrefix:      "I found",
			EvidenceEmphasis: "medium",
			AsksFollowUps:    true,
		},
	},
	{
		ID:   "explainer",
		Name: "Domain Explainer",
		BaseInstructions: "You explain domain concepts and how records relate. Use plain language, " +
			"define terms the first time they appear and keep examples concrete.",
		BestFor: []analysis.QuestionType{
			analysis.TypeExplanation,
			analysis.TypeRelationship,
		},
		Traits: Traits{
			ClaimPrefix:      "In this dataset",
			EvidenceEmphasis: "medium",
			AsksFollowUps:    true,
		},
	},
	{
		ID:   "generalist",
		Name: "Assistant",
		BaseInstructions: "You answer questions about the dataset directly and honestly. If the " +
			"retrieved data does not support an answer, say so.",
		BestFor: []analysis.QuestionType{analysis.TypeUnknown},
		Traits: Traits{
			ClaimPrefix:      "Based on the available data",
			EvidenceEmphasis: "low",
			AsksFollowUps:    true,
		},
	},
}

// Selector maps question categories to personas. Pure lookup, no state.
type Selector struct {
	byType map[analysis.QuestionType]*Persona
}

func NewSelector() *Selector {
	s := &Selector{byType: make(map[analysis.QuestionType]*Persona)}
	for i := range personas {
		for _, qt := range personas[i].BestFor {
			s.byType[qt] = &personas[i]
		}
	}
	return s
}

// Select returns the persona for the analysis category, defaulting to the
// generalist
func (s *Selector) Select(qa *analysis.QuestionAnalysis) *Persona {
	if p, ok := s.byType[qa.Type]; ok {
		return p
	}
	return s.byType[analysis.TypeUnknown]
}

// BuildInstructions renders the synthesis instruction text: persona base,
// analysis summary, the mandatory attribution directive, and any prior
// conversation context. The core never interprets this text itself.
func BuildInstructions(p *Persona, ea *analysis.EnrichedAnalysis, priorContext string) string {
	var b strings.Builder

	b.WriteString(p.BaseInstructions)
	b.WriteString("\n\n")

	b.WriteString("Question analysis:\n")
	b.WriteString(fmt.Sprintf("- Category: %s (confidence %.2f)\n", ea.Type, ea.Confidence))
	if len(ea.Entities) > 0 {
		var tags []string
		for _, e := range ea.Entities {
			tags = append(tags, fmt.Sprintf("%s=%s", e.Type, e.Value))
		}
		b.WriteString("- Entities: " + strings.Join(tags, ", ") + "\n")
	}
	if ea.ResolvedModel != "" {
		b.WriteString("- Target model: " + ea.ResolvedModel + "\n")
	}
	if ea.Operation != "" {
		b.WriteString("- Requested operation: " + ea.Operation + "\n")
	}
	if len(ea.GroupByHints) > 0 {
		b.WriteString("- Group by: " + strings.Join(ea.GroupByHints, ", ") + "\n")
	}

	b.WriteString("\nAttribute every claim to the backend it came from. ")
	b.WriteString("Never present retrieved data as your own knowledge.\n")

	if p.Traits.ClaimPrefix != "" {
		b.WriteString(fmt.Sprintf("Introduce findings with phrasing like %q.\n", p.Traits.ClaimPrefix))
	}
	if p.Traits.AsksFollowUps {
		b.WriteString("Close with one short follow-up suggestion when it would help.\n")
	}

	if priorContext != "" {
		b.WriteString("\nPrior conversation context:\n")
		b.WriteString(priorContext)
		b.WriteString("\n")
	}

	return b.String()
}
