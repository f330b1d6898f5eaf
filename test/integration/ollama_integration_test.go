package integration

import (
	"context"
	"net/http"
	"os"
	"testing"
	"time"

	"datachat-be/pkg/embedding"
	"datachat-be/pkg/llm/factory"
)

const (
	ollamaBaseURL        = "http://localhost:11434"
	ollamaChatModel      = "llama3"
	ollamaEmbeddingModel = "nomic-embed-text"
)

func requireOllama(t *testing.T) {
	t.Helper()
	if os.Getenv("OLLAMA_INTEGRATION") == "" {
		t.Skip("Skipping integration test: OLLAMA_INTEGRATION not set")
	}
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(ollamaBaseURL + "/api/tags")
	if err != nil {
		t.Skipf("Skipping integration test: Ollama not reachable at %s: %v", ollamaBaseURL, err)
	}
	resp.Body.Close()
}

func TestOllamaChat(t *testing.T) {
	requireOllama(t)

	provider, err := factory.NewLLMProvider("ollama", ollamaChatModel, ollamaBaseURL)
	if err != nil {
		t.Fatalf("Failed to build provider: %v", err)
	}

	response, err := provider.Generate(context.Background(),
		"Answer with a single word: what colour is the sky on a clear day?")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if response == "" {
		t.Fatal("Empty response from Ollama")
	}
	t.Logf("Ollama response: %s", response)
}

func TestOllamaEmbedding(t *testing.T) {
	requireOllama(t)

	provider := embedding.NewOllamaProvider(ollamaBaseURL, ollamaEmbeddingModel)

	vec, err := provider.Generate("Harbour Expansion. Status: active. Region: EMEA.", "RETRIEVAL_DOCUMENT")
	if err != nil {
		t.Fatalf("Embedding failed: %v", err)
	}
	if len(vec.Values) == 0 {
		t.Fatal("Empty embedding vector")
	}

	// Vectors are normalized for cosine distance in pgvector
	var norm float64
	for _, v := range vec.Values {
		norm += float64(v) * float64(v)
	}
	if norm < 0.99 || norm > 1.01 {
		t.Errorf("Vector norm = %.4f, want ~1.0", norm)
	}
	t.Logf("Embedding dimensions: %d", len(vec.Values))
}
