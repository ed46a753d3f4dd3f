package usecase

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"docrag/internal/domain"
	"docrag/internal/port"
)

// RetrieveUseCase validates questions and fetches the closest records.
type RetrieveUseCase struct {
	retriever         port.Retriever
	store             port.VectorStore
	defaultTopK       int
	maxTopK           int
	maxQuestionChars  int
	minScoreThreshold float64 // Filter results below this score (0 = disabled)
}

type RetrieveOptions struct {
	DefaultTopK      int
	MaxTopK          int
	MaxQuestionChars int // 0 disables the limit
	MinScore         float64
}

// NewRetrieveUseCase creates a new retrieve use case. retriever is usually
// a cache in front of a semantic retriever over store.
func NewRetrieveUseCase(retriever port.Retriever, store port.VectorStore, opts RetrieveOptions) *RetrieveUseCase {
	if opts.MaxTopK <= 0 {
		opts.MaxTopK = 10
	}
	if opts.DefaultTopK <= 0 || opts.DefaultTopK > opts.MaxTopK {
		opts.DefaultTopK = min(3, opts.MaxTopK)
	}
	return &RetrieveUseCase{
		retriever:         retriever,
		store:             store,
		defaultTopK:       opts.DefaultTopK,
		maxTopK:           opts.MaxTopK,
		maxQuestionChars:  opts.MaxQuestionChars,
		minScoreThreshold: opts.MinScore,
	}
}

// RetrievalResult is the outcome of one retrieval.
type RetrievalResult struct {
	Question string
	TopK     int
	Results  []domain.ScoredRecord
}

// Normalize fills the default top_k and validates the query.
func (u *RetrieveUseCase) Normalize(q domain.Query) (domain.Query, error) {
	q.Question = strings.TrimSpace(q.Question)
	if q.Question == "" {
		return q, fmt.Errorf("%w: question must not be empty", domain.ErrInvalidInput)
	}
	if u.maxQuestionChars > 0 && utf8.RuneCountInString(q.Question) > u.maxQuestionChars {
		return q, fmt.Errorf("%w: question is longer than %d characters", domain.ErrInputTooLarge, u.maxQuestionChars)
	}
	if q.TopK == 0 {
		q.TopK = u.defaultTopK
	}
	if q.TopK < 1 || q.TopK > u.maxTopK {
		return q, fmt.Errorf("%w: top_k must be between 1 and %d, got %d", domain.ErrInvalidInput, u.maxTopK, q.TopK)
	}
	return q, nil
}

// Retrieve returns the records closest to the question. An empty collection
// is reported as ErrNothingIndexed, distinct from an empty result.
func (u *RetrieveUseCase) Retrieve(ctx context.Context, q domain.Query) (*RetrievalResult, error) {
	q, err := u.Normalize(q)
	if err != nil {
		return nil, err
	}

	n, err := u.store.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count records: %w", err)
	}
	if n == 0 {
		return nil, domain.ErrNothingIndexed
	}

	results, err := u.retriever.Retrieve(ctx, q.Question, q.TopK)
	if err != nil {
		return nil, err
	}

	if u.minScoreThreshold > 0 {
		results = u.filterByThreshold(results)
	}

	return &RetrievalResult{Question: q.Question, TopK: q.TopK, Results: results}, nil
}

// filterByThreshold removes results below the minimum score threshold.
func (u *RetrieveUseCase) filterByThreshold(results []domain.ScoredRecord) []domain.ScoredRecord {
	filtered := make([]domain.ScoredRecord, 0, len(results))
	for _, r := range results {
		if r.Score >= u.minScoreThreshold {
			filtered = append(filtered, r)
		}
	}
	return filtered
}
