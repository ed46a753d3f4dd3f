package port

import "docrag/internal/domain"

// Loader turns raw file bytes into a document with normalized text.
type Loader interface {
	Load(filename string, data []byte) (domain.Document, error)
	Supports(filename string) bool
}
