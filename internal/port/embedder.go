package port

import (
	"context"

	"docrag/internal/domain"
)

// Embedder generates vector embeddings for text.
type Embedder interface {
	// EmbedDocuments embeds chunk texts for storage.
	// Returns a slice of vectors, one per input text.
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedQuery embeds a search question.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)

	// Dimension returns the embedding vector dimension, or 0 if the
	// provider only reveals it on the first call.
	Dimension() int

	// ModelName returns the name of the embedding model.
	ModelName() string

	// Provider returns the backend name, e.g. "gemini".
	Provider() string
}

// VectorStore persists vector records in one collection and searches them.
type VectorStore interface {
	// Add appends records. It never deduplicates or overwrites.
	Add(ctx context.Context, records []domain.VectorRecord) error

	// Search returns at most k records ordered by descending similarity.
	Search(ctx context.Context, query []float32, k int) ([]domain.ScoredRecord, error)

	// Count returns the number of records in the collection.
	Count(ctx context.Context) (int, error)

	// Reset removes every record from the collection.
	Reset(ctx context.Context) error

	// Info returns the collection fingerprint.
	Info() domain.CollectionInfo

	// Generation changes whenever the collection contents change.
	Generation() uint64

	Close() error
}

// DocumentCatalog lists the documents that produced the stored records.
type DocumentCatalog interface {
	PutDocuments(ctx context.Context, docs []domain.DocumentSummary) error
	ListDocuments(ctx context.Context) ([]domain.DocumentSummary, error)
}
