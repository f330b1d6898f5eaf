package embedding

import "fmt"

// Vector is a normalized embedding ready for cosine-distance search.
type Vector struct {
	Values []float32 `json:"values"`
}

// Provider generates text embeddings for semantic retrieval.
type Provider interface {
	Generate(text string, taskType string) (*Vector, error)
}

func NewProvider(providerType, baseURL, model, apiKey string) (Provider, error) {
	switch providerType {
	case "ollama":
		return NewOllamaProvider(baseURL, model), nil
	case "gemini":
		return NewGeminiProvider(apiKey), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", providerType)
	}
}
