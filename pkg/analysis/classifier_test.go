package analysis

import (
	"context"
	"io"
	"log"
	"testing"
)

func testLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name           string
		query          string
		wantType       QuestionType
		wantOperation  string
		wantComplexity string
		wantClarify    bool
	}{
		{
			name:           "aggregation count",
			query:          "how many projects are active",
			wantType:       TypeAggregation,
			wantOperation:  "count",
			wantComplexity: ComplexityModerate,
		},
		{
			name:           "discovery with tagged filter",
			query:          "show me projects status:active",
			wantType:       TypeDiscovery,
			wantComplexity: ComplexityModerate,
		},
		{
			name:           "precise lookup from tagged filter",
			query:          "status:active projects",
			wantType:       TypePreciseLookup,
			wantComplexity: ComplexitySimple,
		},
		{
			name:           "comparison outranks aggregation",
			query:          "compare total budget by region",
			wantType:       TypeComparison,
			wantOperation:  "sum",
			wantComplexity: ComplexityComplex,
		},
		{
			name:           "relationship phrasing",
			query:          "which organisations are involved in the harbour project",
			wantType:       TypeRelationship,
			wantComplexity: ComplexityModerate,
		},
		{
			name:           "explanation",
			query:          "what is a stalled project",
			wantType:       TypeExplanation,
			wantComplexity: ComplexitySimple,
		},
		{
			name:           "aggregation plus discovery",
			query:          "find the total contract value per region",
			wantType:       TypeAggregationDiscovery,
			wantOperation:  "sum",
			wantComplexity: ComplexityComplex,
		},
		{
			name:           "gibberish needs clarification",
			query:          "qwerty asdf",
			wantType:       TypeUnknown,
			wantComplexity: ComplexitySimple,
			wantClarify:    true,
		},
	}

	c := NewRuleClassifier(testLogger())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			qa, err := c.Classify(context.Background(), tt.query)
			if err != nil {
				t.Fatalf("Classify() error = %v", err)
			}

			if qa.Type != tt.wantType {
				t.Errorf("Type = %s, want %s", qa.Type, tt.wantType)
			}
			if qa.Operation != tt.wantOperation {
				t.Errorf("Operation = %q, want %q", qa.Operation, tt.wantOperation)
			}
			if qa.Complexity != tt.wantComplexity {
				t.Errorf("Complexity = %s, want %s", qa.Complexity, tt.wantComplexity)
			}
			if qa.NeedsClarification != tt.wantClarify {
				t.Errorf("NeedsClarification = %v, want %v", qa.NeedsClarification, tt.wantClarify)
			}
			if tt.wantClarify && len(qa.ClarificationQuestions) == 0 {
				t.Error("expected clarification questions, got none")
			}
		})
	}
}

func TestExtractEntities(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  []Entity
	}{
		{
			name:  "tagged pair",
			query: "projects status:active",
			want:  []Entity{{Type: "status", Value: "active"}},
		},
		{
			name:  "quoted value",
			query: `organisation:"Pacific Grid Co" contracts`,
			want:  []Entity{{Type: "organisation", Value: "Pacific Grid Co"}},
		},
		{
			name:  "region from phrasing",
			query: "projects in Victoria",
			want:  []Entity{{Type: "region", Value: "Victoria"}},
		},
		{
			name:  "tagged region wins over phrasing",
			query: "projects region:EMEA in Victoria",
			want:  []Entity{{Type: "region", Value: "EMEA"}},
		},
		{
			name:  "no entities",
			query: "how many projects",
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := extractEntities(tt.query)

			if len(got) != len(tt.want) {
				t.Fatalf("entities = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("entity[%d] = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestExtractGroupBy(t *testing.T) {
	got := extractGroupBy("total budget by region per status by region")
	want := []string{"region", "status"}

	if len(got) != len(want) {
		t.Fatalf("groupBy = %v, want %v", got, want)
	}
	for i := range got {
		if got[i] != want[i] {
			t.Errorf("groupBy[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestCanBypassSynthesis(t *testing.T) {
	c := NewRuleClassifier(testLogger())

	qa, _ := c.Classify(context.Background(), "status:active projects")
	if !qa.CanBypassSynthesis {
		t.Error("precise lookup with filter should bypass synthesis")
	}

	qa, _ = c.Classify(context.Background(), "compare budget by region")
	if qa.CanBypassSynthesis {
		t.Error("comparison should not bypass synthesis")
	}
}
