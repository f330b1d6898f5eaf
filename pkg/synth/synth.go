package synth

import (
	"context"

	"datachat-be/pkg/llm"
	"datachat-be/pkg/store"
)

// Options controls a single synthesis call.
type Options struct {
	MaxTokens int
}

// Result is the blended answer with per-backend attribution.
type Result struct {
	Response string
	Sources  []store.Attribution
	Tokens   store.TokenUsage
}

// Synthesizer turns retrieved section results into a single response.
type Synthesizer interface {
	Synthesize(ctx context.Context, instructions string, results []*store.SectionResult, history []llm.Message, opts Options) (*Result, error)
}
