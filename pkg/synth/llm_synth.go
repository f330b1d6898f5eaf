package synth

import (
	"context"
	"fmt"
	"log"

	"datachat-be/pkg/llm"
	"datachat-be/pkg/store"
)

// LLMSynthesizer blends section results through a chat model.
type LLMSynthesizer struct {
	provider llm.LLMProvider
	logger   *log.Logger
}

func NewLLMSynthesizer(provider llm.LLMProvider, logger *log.Logger) *LLMSynthesizer {
	return &LLMSynthesizer{
		provider: provider,
		logger:   logger,
	}
}

func (s *LLMSynthesizer) Synthesize(ctx context.Context, instructions string, results []*store.SectionResult, history []llm.Message, opts Options) (*Result, error) {
	prompt := newPromptBuilder(instructions, results).Build()

	messages := make([]llm.Message, 0, len(history)+1)
	messages = append(messages, history...)
	messages = append(messages, llm.Message{Role: "user", Content: prompt})

	inputTokens := store.EstimateTextTokens(prompt)
	for _, msg := range history {
		inputTokens += store.EstimateTextTokens(msg.Content)
	}

	var callOpts []llm.Option
	if opts.MaxTokens > 0 {
		callOpts = append(callOpts, llm.WithMaxTokens(opts.MaxTokens))
	}

	response, err := s.provider.Chat(ctx, messages, callOpts...)
	if err != nil {
		return nil, fmt.Errorf("synthesis chat failed: %w", err)
	}

	outputTokens := store.EstimateTextTokens(response)
	s.logger.Printf("[SYNTH] blended %d sections, ~%d in / ~%d out tokens", len(results), inputTokens, outputTokens)

	return &Result{
		Response: response,
		Sources:  Attribute(results),
		Tokens: store.TokenUsage{
			Input:  inputTokens,
			Output: outputTokens,
			Total:  inputTokens + outputTokens,
		},
	}, nil
}
