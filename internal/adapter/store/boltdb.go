package store

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"go.etcd.io/bbolt"

	"docrag/internal/domain"
	"docrag/internal/port"
)

var (
	bucketMeta = []byte("meta")
)

var (
	_ port.VectorStore     = (*BoltVectorStore)(nil)
	_ port.DocumentCatalog = (*BoltVectorStore)(nil)
)

// BoltVectorStore implements VectorStore using BoltDB for persistence.
// Records of the open collection are mirrored in memory in insertion order
// and searched by brute force.
type BoltVectorStore struct {
	db      *bbolt.DB
	info    domain.CollectionInfo
	records []domain.VectorRecord
	gen     atomic.Uint64
	log     zerolog.Logger

	// mu serialises writers and keeps searches off a half-applied mirror
	mu sync.RWMutex

	recBucket []byte
	docBucket []byte
}

// OpenBoltVectorStore opens (or creates) the collection want.Name in the
// bbolt file at path. An existing collection built with a different
// embedding setup is refused.
func OpenBoltVectorStore(path string, want domain.CollectionInfo, log zerolog.Logger) (*BoltVectorStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		if errors.Is(err, bbolt.ErrTimeout) {
			return nil, fmt.Errorf("%w: %s", domain.ErrStoreLocked, path)
		}
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	s := &BoltVectorStore{
		db:        db,
		log:       log.With().Str("collection", want.Name).Logger(),
		recBucket: []byte("rec:" + want.Name),
		docBucket: []byte("doc:" + want.Name),
	}

	if err := s.init(want); err != nil {
		db.Close()
		return nil, err
	}
	if err := s.loadRecords(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to load records: %w", err)
	}

	s.log.Debug().Int("records", len(s.records)).Int("dimension", s.info.Dimension).Msg("collection opened")
	return s, nil
}

func (s *BoltVectorStore) init(want domain.CollectionInfo) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketMeta, s.recBucket, s.docBucket} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", name, err)
			}
		}

		meta := tx.Bucket(bucketMeta)
		raw := meta.Get([]byte(want.Name))
		if raw == nil {
			s.info = want
			return putInfo(meta, want)
		}

		var stored domain.CollectionInfo
		if err := json.Unmarshal(raw, &stored); err != nil {
			return fmt.Errorf("corrupt collection metadata for %q: %w", want.Name, err)
		}
		info, err := checkCompatible(stored, want)
		if err != nil {
			return err
		}
		s.info = info
		if info.Dimension != stored.Dimension {
			return putInfo(meta, info)
		}
		return nil
	})
}

func putInfo(meta *bbolt.Bucket, info domain.CollectionInfo) error {
	data, err := json.Marshal(info)
	if err != nil {
		return err
	}
	return meta.Put([]byte(info.Name), data)
}

// loadRecords loads all records of the collection into memory.
func (s *BoltVectorStore) loadRecords() error {
	return s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(s.recBucket)
		return b.ForEach(func(k, v []byte) error {
			var r domain.VectorRecord
			if err := json.Unmarshal(v, &r); err != nil {
				return fmt.Errorf("record %d: %w", binary.BigEndian.Uint64(k), err)
			}
			s.records = append(s.records, r)
			return nil
		})
	})
}

func seqKey(seq uint64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, seq)
	return k
}

func (s *BoltVectorStore) Info() domain.CollectionInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.info
}

func (s *BoltVectorStore) Generation() uint64 {
	return s.gen.Load()
}

func (s *BoltVectorStore) Close() error {
	return s.db.Close()
}

// PutDocuments records what each ingested document contributed.
func (s *BoltVectorStore) PutDocuments(ctx context.Context, docs []domain.DocumentSummary) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(s.docBucket)
		for _, d := range docs {
			data, err := json.Marshal(d)
			if err != nil {
				return err
			}
			if err := b.Put([]byte(d.DocID), data); err != nil {
				return err
			}
		}
		return nil
	})
}

// ListDocuments returns the catalog ordered by ingestion time.
func (s *BoltVectorStore) ListDocuments(ctx context.Context) ([]domain.DocumentSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var docs []domain.DocumentSummary
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(s.docBucket).ForEach(func(_, v []byte) error {
			var d domain.DocumentSummary
			if err := json.Unmarshal(v, &d); err != nil {
				return err
			}
			docs = append(docs, d)
			return nil
		})
	})
	sortDocuments(docs)
	return docs, err
}
