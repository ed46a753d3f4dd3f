package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog"

	"docrag/internal/domain"
	"docrag/internal/port"
)

var (
	_ port.VectorStore     = (*ChromemStore)(nil)
	_ port.DocumentCatalog = (*ChromemStore)(nil)
)

var errNoEmbeddingFunc = errors.New("chromem collection only accepts precomputed embeddings")

// ChromemStore keeps records in a persistent chromem-go collection. chromem
// normalises vectors and ranks by cosine similarity, so only the cosine
// metric is supported. Collection info and the document catalog live in a
// JSON sidecar next to the database directory.
type ChromemStore struct {
	db   *chromem.DB
	coll *chromem.Collection
	dir  string
	log  zerolog.Logger
	gen  atomic.Uint64

	mu   sync.RWMutex
	side chromemSidecar
}

type chromemSidecar struct {
	Info      domain.CollectionInfo    `json:"info"`
	LastSeq   uint64                   `json:"last_seq"`
	Documents []domain.DocumentSummary `json:"documents"`
}

// OpenChromemStore opens the collection want.Name under dir.
func OpenChromemStore(dir string, want domain.CollectionInfo, log zerolog.Logger) (*ChromemStore, error) {
	if want.Metric != domain.MetricCosine {
		return nil, fmt.Errorf("%w: chromem store only supports the cosine metric, got %q", domain.ErrInvalidInput, want.Metric)
	}

	db, err := chromem.NewPersistentDB(dir, false)
	if err != nil {
		return nil, fmt.Errorf("failed to open chromem db: %w", err)
	}

	s := &ChromemStore{
		db:  db,
		dir: dir,
		log: log.With().Str("collection", want.Name).Logger(),
	}

	side, err := s.readSidecar(want.Name)
	switch {
	case errors.Is(err, os.ErrNotExist):
		s.side = chromemSidecar{Info: want}
		if err := s.writeSidecar(); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	default:
		info, err := checkCompatible(side.Info, want)
		if err != nil {
			return nil, err
		}
		side.Info = info
		s.side = side
	}

	s.coll, err = db.GetOrCreateCollection(want.Name, nil, refuseEmbedding)
	if err != nil {
		return nil, fmt.Errorf("failed to open chromem collection: %w", err)
	}

	if n := uint64(s.coll.Count()); s.side.LastSeq < n {
		s.side.LastSeq = n
	}

	s.log.Debug().Int("records", s.coll.Count()).Msg("collection opened")
	return s, nil
}

func refuseEmbedding(context.Context, string) ([]float32, error) {
	return nil, errNoEmbeddingFunc
}

func (s *ChromemStore) sidecarPath(name string) string {
	return filepath.Join(s.dir, name+".collection.json")
}

func (s *ChromemStore) readSidecar(name string) (chromemSidecar, error) {
	var side chromemSidecar
	data, err := os.ReadFile(s.sidecarPath(name))
	if err != nil {
		return side, err
	}
	if err := json.Unmarshal(data, &side); err != nil {
		return side, fmt.Errorf("corrupt collection metadata for %q: %w", name, err)
	}
	return side, nil
}

// writeSidecar replaces the sidecar atomically. Callers hold mu or own s.
func (s *ChromemStore) writeSidecar() error {
	data, err := json.MarshalIndent(s.side, "", "  ")
	if err != nil {
		return err
	}
	path := s.sidecarPath(s.side.Info.Name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Add stores records as chromem documents carrying their provenance as
// metadata. Documents are keyed by sequence number, so records sharing an ID
// are kept side by side. Either every record is stored or none is.
func (s *ChromemStore) Add(ctx context.Context, records []domain.VectorRecord) error {
	if len(records) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dim := s.side.Info.Dimension
	if dim == 0 {
		dim = len(records[0].Vector)
	}
	for i, r := range records {
		if len(r.Vector) != dim {
			return fmt.Errorf("%w: record %d has %d dimensions, collection has %d", domain.ErrDimensionMismatch, i, len(r.Vector), dim)
		}
	}

	now := time.Now().UTC()
	before := s.coll.Count()
	keys := make([]string, len(records))
	docs := make([]chromem.Document, len(records))
	for i, r := range records {
		if r.CreatedAt.IsZero() {
			r.CreatedAt = now
		}
		seq := s.side.LastSeq + uint64(i) + 1
		keys[i] = chromemKey(seq)
		docs[i] = chromem.Document{
			ID:        keys[i],
			Embedding: r.Vector,
			Content:   r.Text,
			Metadata: map[string]string{
				"seq":          strconv.FormatUint(seq, 10),
				"record_id":    r.ID,
				"doc_id":       r.DocID,
				"filename":     r.Filename,
				"chunk_index":  strconv.Itoa(r.ChunkIndex),
				"total_chunks": strconv.Itoa(r.TotalChunks),
				"created_at":   r.CreatedAt.Format(time.RFC3339Nano),
			},
		}
	}

	// chromem workers stop silently on a done context, so a started batch
	// runs to completion and is checked afterwards.
	wctx := context.WithoutCancel(ctx)
	err := s.coll.AddDocuments(wctx, docs, runtime.NumCPU())
	if err == nil {
		if got := s.coll.Count() - before; got != len(records) {
			err = fmt.Errorf("stored %d of %d records", got, len(records))
		}
	}
	if err == nil {
		prev := s.side
		s.side.LastSeq += uint64(len(records))
		s.side.Info.Dimension = dim
		if err = s.writeSidecar(); err != nil {
			s.side = prev
		}
	}
	if err != nil {
		if derr := s.coll.Delete(wctx, nil, nil, keys...); derr != nil {
			s.log.Error().Err(derr).Msg("failed to roll back partial add")
		}
		return fmt.Errorf("failed to add records: %w", err)
	}

	s.gen.Add(1)
	return nil
}

func chromemKey(seq uint64) string {
	return fmt.Sprintf("%016x", seq)
}

// Search returns the k records closest to query by cosine similarity.
func (s *ChromemStore) Search(ctx context.Context, query []float32, k int) ([]domain.ScoredRecord, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", domain.ErrInvalidInput, k)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	n := s.coll.Count()
	if n == 0 {
		return nil, nil
	}
	if len(query) != s.side.Info.Dimension {
		return nil, fmt.Errorf("%w: query has %d dimensions, collection has %d", domain.ErrDimensionMismatch, len(query), s.side.Info.Dimension)
	}

	results, err := s.coll.QueryEmbedding(ctx, query, min(k, n), nil, nil)
	if err != nil {
		return nil, fmt.Errorf("chromem query failed: %w", err)
	}

	out := make([]domain.ScoredRecord, 0, len(results))
	for _, res := range results {
		out = append(out, domain.ScoredRecord{Record: recordFromResult(res), Score: float64(res.Similarity)})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Record.Seq < out[j].Record.Seq
	})
	return out, nil
}

func recordFromResult(res chromem.Result) domain.VectorRecord {
	r := domain.VectorRecord{
		ID:       res.Metadata["record_id"],
		DocID:    res.Metadata["doc_id"],
		Filename: res.Metadata["filename"],
		Text:     res.Content,
		Vector:   res.Embedding,
	}
	r.Seq, _ = strconv.ParseUint(res.Metadata["seq"], 10, 64)
	r.ChunkIndex, _ = strconv.Atoi(res.Metadata["chunk_index"])
	r.TotalChunks, _ = strconv.Atoi(res.Metadata["total_chunks"])
	r.CreatedAt, _ = time.Parse(time.RFC3339Nano, res.Metadata["created_at"])
	return r
}

func (s *ChromemStore) Count(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.coll.Count(), nil
}

// Reset drops and recreates the chromem collection and empties the catalog.
func (s *ChromemStore) Reset(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	name := s.side.Info.Name
	if err := s.db.DeleteCollection(name); err != nil {
		return fmt.Errorf("failed to reset collection: %w", err)
	}
	coll, err := s.db.GetOrCreateCollection(name, nil, refuseEmbedding)
	if err != nil {
		return fmt.Errorf("failed to recreate collection: %w", err)
	}
	s.coll = coll
	s.side.LastSeq = 0
	s.side.Documents = nil
	if err := s.writeSidecar(); err != nil {
		return err
	}

	s.log.Info().Msg("collection reset")
	s.gen.Add(1)
	return nil
}

func (s *ChromemStore) Info() domain.CollectionInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.side.Info
}

func (s *ChromemStore) Generation() uint64 {
	return s.gen.Load()
}

// Close is a no-op; chromem persists every write as it happens.
func (s *ChromemStore) Close() error {
	return nil
}

func (s *ChromemStore) PutDocuments(ctx context.Context, docs []domain.DocumentSummary) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	byID := make(map[string]int, len(s.side.Documents))
	for i, d := range s.side.Documents {
		byID[d.DocID] = i
	}
	for _, d := range docs {
		if i, ok := byID[d.DocID]; ok {
			s.side.Documents[i] = d
			continue
		}
		byID[d.DocID] = len(s.side.Documents)
		s.side.Documents = append(s.side.Documents, d)
	}
	return s.writeSidecar()
}

func (s *ChromemStore) ListDocuments(ctx context.Context) ([]domain.DocumentSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	docs := append([]domain.DocumentSummary(nil), s.side.Documents...)
	sortDocuments(docs)
	return docs, nil
}
