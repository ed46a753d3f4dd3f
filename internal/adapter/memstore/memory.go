package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"docrag/internal/adapter/store"
	"docrag/internal/domain"
	"docrag/internal/port"
)

var (
	_ port.VectorStore     = (*MemoryStore)(nil)
	_ port.DocumentCatalog = (*MemoryStore)(nil)
)

// MemoryStore is a non-persistent vector store. Nothing survives Close.
type MemoryStore struct {
	mu      sync.RWMutex
	info    domain.CollectionInfo
	records []domain.VectorRecord
	docs    map[string]domain.DocumentSummary
	seq     uint64
	gen     atomic.Uint64
}

func NewMemoryStore(info domain.CollectionInfo) *MemoryStore {
	return &MemoryStore{
		info: info,
		docs: make(map[string]domain.DocumentSummary),
	}
}

func (s *MemoryStore) Add(ctx context.Context, records []domain.VectorRecord) error {
	if len(records) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dim := s.info.Dimension
	if dim == 0 {
		dim = len(records[0].Vector)
	}
	for i, r := range records {
		if len(r.Vector) != dim {
			return fmt.Errorf("%w: record %d has %d dimensions, collection has %d", domain.ErrDimensionMismatch, i, len(r.Vector), dim)
		}
	}

	now := time.Now().UTC()
	for _, r := range records {
		s.seq++
		r.Seq = s.seq
		if r.CreatedAt.IsZero() {
			r.CreatedAt = now
		}
		s.records = append(s.records, r)
	}
	s.info.Dimension = dim
	s.gen.Add(1)
	return nil
}

func (s *MemoryStore) Search(ctx context.Context, query []float32, k int) ([]domain.ScoredRecord, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", domain.ErrInvalidInput, k)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.records) == 0 {
		return nil, nil
	}
	if len(query) != s.info.Dimension {
		return nil, fmt.Errorf("%w: query has %d dimensions, collection has %d", domain.ErrDimensionMismatch, len(query), s.info.Dimension)
	}
	return store.Rank(s.info.Metric, s.records, query, k), nil
}

func (s *MemoryStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records), nil
}

func (s *MemoryStore) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = nil
	s.docs = make(map[string]domain.DocumentSummary)
	s.gen.Add(1)
	return nil
}

func (s *MemoryStore) Info() domain.CollectionInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.info
}

func (s *MemoryStore) Generation() uint64 {
	return s.gen.Load()
}

func (s *MemoryStore) PutDocuments(ctx context.Context, docs []domain.DocumentSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range docs {
		s.docs[d.DocID] = d
	}
	return nil
}

func (s *MemoryStore) ListDocuments(ctx context.Context) ([]domain.DocumentSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	docs := make([]domain.DocumentSummary, 0, len(s.docs))
	for _, d := range s.docs {
		docs = append(docs, d)
	}
	sort.Slice(docs, func(i, j int) bool {
		if !docs[i].IngestedAt.Equal(docs[j].IngestedAt) {
			return docs[i].IngestedAt.Before(docs[j].IngestedAt)
		}
		return docs[i].DocID < docs[j].DocID
	})
	return docs, nil
}

func (s *MemoryStore) Close() error {
	return nil
}
