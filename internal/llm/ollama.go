package llm

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms/ollama"
)

// OllamaEmbedder implements Embedder against a local Ollama server, for
// building knowledge bases without an OpenAI key.
type OllamaEmbedder struct {
	llm *ollama.LLM
}

// NewOllamaEmbedder connects to the Ollama server at baseURL using the given
// embedding model (e.g. "nomic-embed-text").
func NewOllamaEmbedder(baseURL, model string) (*OllamaEmbedder, error) {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if model == "" {
		model = "nomic-embed-text"
	}

	llm, err := ollama.New(
		ollama.WithModel(model),
		ollama.WithServerURL(baseURL),
	)
	if err != nil {
		return nil, fmt.Errorf("initialize ollama: %w", err)
	}

	return &OllamaEmbedder{llm: llm}, nil
}

// Embed converts texts into embedding vectors.
func (e *OllamaEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	vectors, err := e.llm.CreateEmbedding(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("ollama embedding: %w", err)
	}
	return vectors, nil
}
