package synth

import (
	"fmt"
	"strings"

	"datachat-be/pkg/store"
)

// promptBuilder assembles the synthesis prompt from persona instructions
// and the retrieved sections.
type promptBuilder struct {
	instructions string
	results      []*store.SectionResult
}

func newPromptBuilder(instructions string, results []*store.SectionResult) *promptBuilder {
	return &promptBuilder{
		instructions: instructions,
		results:      results,
	}
}

func (b *promptBuilder) Build() string {
	var prompt strings.Builder

	b.writeInstructions(&prompt)
	b.writeRetrievedData(&prompt)
	b.writeGuidelines(&prompt)

	prompt.WriteString("Now provide your complete response based on the retrieved data:")
	return prompt.String()
}

func (b *promptBuilder) writeInstructions(prompt *strings.Builder) {
	prompt.WriteString("<instructions>\n")
	prompt.WriteString(b.instructions)
	prompt.WriteString("\n</instructions>\n\n")
}

func (b *promptBuilder) writeRetrievedData(prompt *strings.Builder) {
	prompt.WriteString("<retrieved_data>\n")
	for _, result := range b.results {
		if result == nil || !result.Success {
			continue
		}
		rendered := RenderSection(result)
		if rendered == "" {
			continue
		}
		fmt.Fprintf(prompt, "<section backend=%q operation=%q records=\"%d\">\n", result.Backend, result.Operation, result.RecordCount)
		prompt.WriteString(rendered)
		prompt.WriteString("\n</section>\n")
	}
	prompt.WriteString("</retrieved_data>\n\n")
}

func (b *promptBuilder) writeGuidelines(prompt *strings.Builder) {
	prompt.WriteString("<guidelines>\n")
	prompt.WriteString("1. Base your answer strictly on the retrieved sections above\n")
	prompt.WriteString("2. Name the backend a figure or fact came from when sections disagree\n")
	prompt.WriteString("3. Perform any math the question requires and show the inputs\n")
	prompt.WriteString("4. If the sections don't contain what's being asked, say so honestly\n")
	prompt.WriteString("</guidelines>\n\n")
}
