package port

import "docrag/internal/domain"

// Splitter partitions a loaded document into overlapping chunks.
type Splitter interface {
	Split(doc domain.Document) ([]domain.Chunk, error)
}
