package embedding

import "context"

// Task types hint the provider about the embedding's purpose. Gemini uses
// them to pick an optimized head; Ollama ignores them.
const (
	TaskRetrievalDocument = "RETRIEVAL_DOCUMENT"
	TaskRetrievalQuery    = "RETRIEVAL_QUERY"
)

// Provider generates a fixed-length vector representation of text.
type Provider interface {
	Embed(ctx context.Context, text string, taskType string) ([]float32, error)
}
