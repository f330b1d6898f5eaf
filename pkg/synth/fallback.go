package synth

import (
	"strings"

	"datachat-be/pkg/store"
)

// FormatDeterministic renders the successful sections without any model in
// the loop. It serves both the synthesis-bypass path for structured answers
// and the degraded mode when the LLM is unreachable.
func FormatDeterministic(results []*store.SectionResult) *Result {
	var b strings.Builder
	for _, result := range results {
		if result == nil || !result.Success {
			continue
		}
		rendered := RenderSection(result)
		if rendered == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(rendered)
	}

	response := b.String()
	if response == "" {
		response = "No data was retrieved for this question."
	}

	return &Result{
		Response: response,
		Sources:  Attribute(results),
		Tokens: store.TokenUsage{
			Output: store.EstimateTextTokens(response),
			Total:  store.EstimateTextTokens(response),
		},
	}
}
