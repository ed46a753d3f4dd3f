package port

import (
	"context"

	"docrag/internal/domain"
)

// Retriever finds the records most similar to a question.
type Retriever interface {
	// Retrieve returns at most k records ordered by descending similarity.
	Retrieve(ctx context.Context, question string, k int) ([]domain.ScoredRecord, error)
}
