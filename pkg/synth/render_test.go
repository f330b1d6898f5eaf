package synth

import (
	"strings"
	"testing"

	"datachat-be/pkg/store"
)

func TestRenderSection(t *testing.T) {
	tests := []struct {
		name   string
		result *store.SectionResult
		want   []string
	}{
		{
			name: "aggregation",
			result: &store.SectionResult{
				Success: true,
				Data: &store.AggregationResult{
					Model:   "projects",
					GroupBy: []string{"status"},
					Groups: []store.Group{
						{Key: map[string]string{"status": "active"}, Count: 2, Sums: map[string]float64{"budget": 6950000}},
						{Key: map[string]string{"status": "on_hold"}, Count: 1},
					},
				},
			},
			want: []string{"projects by status:", "- active: 2, sum(budget)=6950000.00", "- on_hold: 1"},
		},
		{
			name: "grand total group",
			result: &store.SectionResult{
				Success: true,
				Data: &store.AggregationResult{
					Model:  "projects",
					Groups: []store.Group{{Key: map[string]string{}, Count: 4}},
				},
			},
			want: []string{"projects by group:", "- (all): 4"},
		},
		{
			name: "record set",
			result: &store.SectionResult{
				Success: true,
				Data: &store.RecordSet{
					Model:   "projects",
					Records: []store.Record{{"name": "Harbour Expansion", "status": "active"}},
				},
			},
			want: []string{"projects records (1):", "name=Harbour Expansion, status=active"},
		},
		{
			name: "relations",
			result: &store.SectionResult{
				Success: true,
				Data: []store.RelationHit{
					{SourceModel: "projects", SourceID: "p1", TargetModel: "organisations", TargetID: "o1", Field: "organisation_id", Label: "delivered by"},
				},
			},
			want: []string{"relationships:", "projects/p1 -[organisation_id]-> organisations/o1 (delivered by)"},
		},
		{
			name: "knowledge notes",
			result: &store.SectionResult{
				Success: true,
				Data:    []store.KnowledgeNote{{Term: "stalled", Text: "Projects paused pending a decision"}},
			},
			want: []string{"definitions:", "- stalled: Projects paused pending a decision"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RenderSection(tt.result)
			for _, want := range tt.want {
				if !strings.Contains(got, want) {
					t.Errorf("rendered section missing %q:\n%s", want, got)
				}
			}
		})
	}
}

func TestRenderSectionSkipsFailures(t *testing.T) {
	if got := RenderSection(&store.SectionResult{Success: false, Error: "boom"}); got != "" {
		t.Errorf("failed section rendered %q", got)
	}
	if got := RenderSection(nil); got != "" {
		t.Errorf("nil section rendered %q", got)
	}
}

func TestAttribute(t *testing.T) {
	results := []*store.SectionResult{
		{Backend: store.KindStructured, Operation: "aggregate", Success: true, RecordCount: 4, TokenEstimate: 300},
		{Backend: store.KindKnowledge, Operation: "lookup", Success: true, RecordCount: 1, TokenEstimate: 100},
		{Backend: store.KindSemantic, Operation: "search", Success: false, TokenEstimate: 999},
	}

	sources := Attribute(results)
	if len(sources) != 2 {
		t.Fatalf("sources = %d, want 2 (failures excluded)", len(sources))
	}
	if sources[0].Contribution != "75%" {
		t.Errorf("structured contribution = %s, want 75%%", sources[0].Contribution)
	}
	if sources[1].Contribution != "25%" {
		t.Errorf("knowledge contribution = %s, want 25%%", sources[1].Contribution)
	}
	if sources[0].DataPoints != 4 {
		t.Errorf("DataPoints = %d, want 4", sources[0].DataPoints)
	}
}

func TestFormatDeterministic(t *testing.T) {
	results := []*store.SectionResult{
		{
			Backend: store.KindStructured, Success: true, TokenEstimate: 100,
			Data: &store.RecordSet{Model: "projects", Records: []store.Record{{"name": "Harbour Expansion"}}},
		},
		{Backend: store.KindSemantic, Success: false, Error: "backend down"},
		{
			Backend: store.KindKnowledge, Success: true, TokenEstimate: 50,
			Data: []store.KnowledgeNote{{Term: "active", Text: "in delivery"}},
		},
	}

	res := FormatDeterministic(results)

	if !strings.Contains(res.Response, "Harbour Expansion") {
		t.Errorf("response missing record data:\n%s", res.Response)
	}
	if !strings.Contains(res.Response, "\n\n") {
		t.Error("sections not separated by a blank line")
	}
	if strings.Contains(res.Response, "backend down") {
		t.Error("failed section leaked into the response")
	}
	if len(res.Sources) != 2 {
		t.Errorf("sources = %d, want 2", len(res.Sources))
	}
	if res.Tokens.Output == 0 {
		t.Error("token usage not estimated")
	}
}

func TestFormatDeterministicEmpty(t *testing.T) {
	res := FormatDeterministic(nil)
	if res.Response != "No data was retrieved for this question." {
		t.Errorf("Response = %q", res.Response)
	}

	res = FormatDeterministic([]*store.SectionResult{{Success: false}})
	if res.Response != "No data was retrieved for this question." {
		t.Errorf("Response = %q", res.Response)
	}
}
