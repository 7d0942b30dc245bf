package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// OpenAIClient implements ChatClient and Embedder on the OpenAI API.
type OpenAIClient struct {
	client         *openai.Client
	embeddingModel string
}

// NewOpenAIClient creates a client. baseURL may be empty for the default
// endpoint; embeddingModel is the model used for Embed calls.
func NewOpenAIClient(apiKey, baseURL, embeddingModel string) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}

	clientConfig := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		clientConfig.BaseURL = baseURL
	}

	return &OpenAIClient{
		client:         openai.NewClientWithConfig(clientConfig),
		embeddingModel: embeddingModel,
	}, nil
}

// Complete issues one chat completion call.
func (c *OpenAIClient) Complete(ctx context.Context, req ChatRequest) (string, error) {
	chatReq := openai.ChatCompletionRequest{
		Model: req.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.System},
			{Role: openai.ChatMessageRoleUser, Content: req.User},
		},
		Temperature: 0.1,
	}
	if req.JSONMode {
		chatReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := c.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		// Return the SDK error as-is so retry classification can inspect it.
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from model %s", req.Model)
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// Embed converts texts into embedding vectors.
func (c *OpenAIClient) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(c.embeddingModel),
		Input: texts,
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("embedding count mismatch: sent %d texts, got %d vectors", len(texts), len(resp.Data))
	}

	vectors := make([][]float32, len(resp.Data))
	for i, d := range resp.Data {
		vectors[i] = d.Embedding
	}
	return vectors, nil
}
