// Package llm holds the thin clients for the external model APIs: chat
// completions for classification and evaluation, embeddings for the knowledge
// base. Components depend on the interfaces here, never on a concrete SDK.
package llm

import "context"

// ChatRequest is a single system+user chat completion call.
type ChatRequest struct {
	Model  string
	System string
	User   string
	// JSONMode asks the provider to constrain output to a JSON object.
	JSONMode bool
}

// ChatClient produces one completion per request. Implementations must return
// the provider's error unwrapped enough for worker.ClassifyErr to see it.
type ChatClient interface {
	Complete(ctx context.Context, req ChatRequest) (string, error)
}

// Embedder converts texts into vectors for the knowledge base.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}
