package retriever

import (
	"context"
	"fmt"

	"docrag/internal/domain"
	"docrag/internal/port"
)

// SemanticRetriever embeds the question and searches the vector store.
type SemanticRetriever struct {
	vectorStore port.VectorStore
	embedder    port.Embedder
}

var _ port.Retriever = (*SemanticRetriever)(nil)

func NewSemanticRetriever(vectorStore port.VectorStore, embedder port.Embedder) *SemanticRetriever {
	return &SemanticRetriever{
		vectorStore: vectorStore,
		embedder:    embedder,
	}
}

func (r *SemanticRetriever) Retrieve(ctx context.Context, question string, k int) ([]domain.ScoredRecord, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: top_k must be positive, got %d", domain.ErrInvalidInput, k)
	}

	embedding, err := r.embedder.EmbedQuery(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	results, err := r.vectorStore.Search(ctx, embedding, k)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}
	return results, nil
}
