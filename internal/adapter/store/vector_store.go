package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"go.etcd.io/bbolt"

	"docrag/internal/domain"
)

// Add appends records in a single transaction. Either every record is
// stored or none is.
func (s *BoltVectorStore) Add(ctx context.Context, records []domain.VectorRecord) error {
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
	added := make([]domain.VectorRecord, len(records))
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(s.recBucket)
		for i, r := range records {
			seq, err := b.NextSequence()
			if err != nil {
				return err
			}
			r.Seq = seq
			if r.CreatedAt.IsZero() {
				r.CreatedAt = now
			}
			data, err := json.Marshal(r)
			if err != nil {
				return err
			}
			if err := b.Put(seqKey(seq), data); err != nil {
				return err
			}
			added[i] = r
		}

		if s.info.Dimension == 0 {
			info := s.info
			info.Dimension = dim
			return putInfo(tx.Bucket(bucketMeta), info)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to add records: %w", err)
	}

	s.info.Dimension = dim
	s.records = append(s.records, added...)
	s.gen.Add(1)
	return nil
}

// Search finds the k nearest records to the query.
func (s *BoltVectorStore) Search(ctx context.Context, query []float32, k int) ([]domain.ScoredRecord, error) {
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
	return Rank(s.info.Metric, s.records, query, k), nil
}

// Count returns the number of records in the collection.
func (s *BoltVectorStore) Count(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records), nil
}

// Reset drops every record and catalog entry of the collection. The
// collection fingerprint stays.
func (s *BoltVectorStore) Reset(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{s.recBucket, s.docBucket} {
			if err := tx.DeleteBucket(name); err != nil && err != bbolt.ErrBucketNotFound {
				return err
			}
			if _, err := tx.CreateBucket(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to reset collection: %w", err)
	}

	s.log.Info().Int("records", len(s.records)).Msg("collection reset")
	s.records = nil
	s.gen.Add(1)
	return nil
}

func sortDocuments(docs []domain.DocumentSummary) {
	sort.SliceStable(docs, func(i, j int) bool {
		return docs[i].IngestedAt.Before(docs[j].IngestedAt)
	})
}
