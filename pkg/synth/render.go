package synth

import (
	"fmt"
	"sort"
	"strings"

	"datachat-be/pkg/store"
)

// RenderSection turns one backend payload into readable markdown. It is the
// shared formatter for prompt context, the synthesis-bypass path, and the
// degraded fallback when no LLM is reachable.
func RenderSection(result *store.SectionResult) string {
	if result == nil || !result.Success {
		return ""
	}

	var b strings.Builder
	switch data := result.Data.(type) {
	case *store.AggregationResult:
		writeAggregation(&b, data)
	case store.AggregationResult:
		writeAggregation(&b, &data)
	case *store.RecordSet:
		writeRecords(&b, data)
	case store.RecordSet:
		writeRecords(&b, &data)
	case []store.RelationHit:
		writeRelations(&b, data)
	case []store.KnowledgeNote:
		writeNotes(&b, data)
	case string:
		b.WriteString(data)
	default:
		fmt.Fprintf(&b, "%v", data)
	}
	return strings.TrimRight(b.String(), "\n")
}

func writeAggregation(b *strings.Builder, agg *store.AggregationResult) {
	if agg == nil {
		return
	}
	groupLabel := "group"
	if len(agg.GroupBy) > 0 {
		groupLabel = agg.GroupBy[0]
	}
	fmt.Fprintf(b, "%s by %s:\n", agg.Model, groupLabel)
	for _, g := range agg.Groups {
		fmt.Fprintf(b, "- %s: %d", groupKeyLabel(g.Key), g.Count)
		sumFields := make([]string, 0, len(g.Sums))
		for field := range g.Sums {
			sumFields = append(sumFields, field)
		}
		sort.Strings(sumFields)
		for _, field := range sumFields {
			fmt.Fprintf(b, ", sum(%s)=%.2f", field, g.Sums[field])
		}
		b.WriteString("\n")
	}
}

func groupKeyLabel(key map[string]string) string {
	if len(key) == 0 {
		return "(all)"
	}
	fields := make([]string, 0, len(key))
	for f := range key {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, key[f])
	}
	return strings.Join(parts, " / ")
}

func writeRecords(b *strings.Builder, rs *store.RecordSet) {
	if rs == nil {
		return
	}
	fmt.Fprintf(b, "%s records (%d):\n", rs.Model, len(rs.Records))
	for _, rec := range rs.Records {
		keys := make([]string, 0, len(rec))
		for k := range rec {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%s=%v", k, rec[k]))
		}
		fmt.Fprintf(b, "- %s\n", strings.Join(parts, ", "))
	}
}

func writeRelations(b *strings.Builder, hits []store.RelationHit) {
	b.WriteString("relationships:\n")
	for _, h := range hits {
		fmt.Fprintf(b, "- %s/%s -[%s]-> %s/%s", h.SourceModel, h.SourceID, h.Field, h.TargetModel, h.TargetID)
		if h.Label != "" {
			fmt.Fprintf(b, " (%s)", h.Label)
		}
		b.WriteString("\n")
	}
}

func writeNotes(b *strings.Builder, notes []store.KnowledgeNote) {
	b.WriteString("definitions:\n")
	for _, n := range notes {
		fmt.Fprintf(b, "- %s: %s\n", n.Term, n.Text)
	}
}

// Attribute computes the per-backend contribution share over the successful
// sections, weighted by estimated token volume.
func Attribute(results []*store.SectionResult) []store.Attribution {
	total := 0
	for _, r := range results {
		if r != nil && r.Success {
			total += r.TokenEstimate
		}
	}

	sources := make([]store.Attribution, 0, len(results))
	for _, r := range results {
		if r == nil || !r.Success {
			continue
		}
		contribution := "0%"
		if total > 0 {
			contribution = fmt.Sprintf("%.0f%%", 100*float64(r.TokenEstimate)/float64(total))
		}
		sources = append(sources, store.Attribution{
			Backend:      r.Backend,
			Operation:    r.Operation,
			Contribution: contribution,
			DataPoints:   r.RecordCount,
		})
	}
	return sources
}
