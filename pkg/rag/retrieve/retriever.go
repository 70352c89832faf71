package retrieve

import (
	"context"
	"fmt"
	"log"

	"study-assistant-be/pkg/embedding"
	"study-assistant-be/pkg/rag"
)

// Searcher is the narrow view of the vector index the retriever needs.
// The repository layer adapts pgvector similarity search to this contract.
type Searcher interface {
	SearchSimilar(ctx context.Context, vector []float32, k int) ([]rag.Passage, error)
}

// Retriever embeds a query and pulls the top-k most similar passages from
// the vector index. Ordering and the similarity metric are owned by the
// index; an empty result is a valid outcome, not an error.
type Retriever struct {
	embedder embedding.Provider
	searcher Searcher
	logger   *log.Logger
}

func NewRetriever(embedder embedding.Provider, searcher Searcher, logger *log.Logger) *Retriever {
	return &Retriever{
		embedder: embedder,
		searcher: searcher,
		logger:   logger,
	}
}

func (r *Retriever) Retrieve(ctx context.Context, query string, k int) ([]rag.Passage, error) {
	if query == "" {
		return nil, fmt.Errorf("retrieve: empty query")
	}
	if k < 1 {
		return nil, fmt.Errorf("retrieve: k must be >= 1, got %d", k)
	}

	vector, err := r.embedder.Embed(ctx, query, embedding.TaskRetrievalQuery)
	if err != nil {
		return nil, fmt.Errorf("%w: embed query: %v", rag.ErrRetrievalUnavailable, err)
	}

	passages, err := r.searcher.SearchSimilar(ctx, vector, k)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", rag.ErrRetrievalUnavailable, err)
	}

	r.logger.Printf("[RETRIEVE] query=%q k=%d hits=%d", truncate(query, 50), k, len(passages))
	return passages, nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
