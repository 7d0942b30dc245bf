package llm

import (
	"fmt"
	"strings"

	"github.com/claimlens/claimlens/internal/model"
)

// NewEmbedder creates the embedding backend selected in the configuration.
func NewEmbedder(cfg *model.Config) (Embedder, error) {
	switch strings.ToLower(cfg.LLM.Backend) {
	case "openai", "":
		client, err := NewOpenAIClient(cfg.LLM.APIKey, cfg.LLM.BaseURL, cfg.LLM.EmbeddingModel)
		if err != nil {
			return nil, err
		}
		return client, nil

	case "ollama":
		return NewOllamaEmbedder(cfg.LLM.BaseURL, cfg.LLM.EmbeddingModel)

	default:
		return nil, fmt.Errorf("unknown LLM backend: %s (supported: openai, ollama)", cfg.LLM.Backend)
	}
}

// NewChatClient creates the chat backend. Classification and evaluation are
// JSON-mode chat calls, which pins them to the OpenAI API.
func NewChatClient(cfg *model.Config) (ChatClient, error) {
	return NewOpenAIClient(cfg.LLM.APIKey, cfg.LLM.BaseURL, cfg.LLM.EmbeddingModel)
}
