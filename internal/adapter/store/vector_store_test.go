package store

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docrag/internal/domain"
)

func testInfo(model string, dim int) domain.CollectionInfo {
	return NewCollectionInfo("rag_collection", "fake", model, dim, domain.MetricCosine)
}

func makeRecords(docID string, vectors ...[]float32) []domain.VectorRecord {
	out := make([]domain.VectorRecord, len(vectors))
	for i, v := range vectors {
		out[i] = domain.VectorRecord{
			ID:          uuid.NewString(),
			DocID:       docID,
			Filename:    docID + ".txt",
			ChunkIndex:  i,
			TotalChunks: len(vectors),
			Text:        fmt.Sprintf("%s chunk %d", docID, i),
			Vector:      v,
		}
	}
	return out
}

func openBolt(t *testing.T, path string, info domain.CollectionInfo) *BoltVectorStore {
	t.Helper()
	s, err := OpenBoltVectorStore(path, info, zerolog.Nop())
	require.NoError(t, err)
	return s
}

func TestBolt_AddTwiceDoublesCount(t *testing.T) {
	ctx := context.Background()
	s := openBolt(t, filepath.Join(t.TempDir(), "db", "docrag.db"), testInfo("m", 3))
	defer s.Close()

	recs := [][]float32{{1, 0, 0}, {0, 1, 0}}
	require.NoError(t, s.Add(ctx, makeRecords("a", recs...)))
	require.NoError(t, s.Add(ctx, makeRecords("a", recs...)))

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}

func TestBolt_SearchSortedAndBounded(t *testing.T) {
	ctx := context.Background()
	s := openBolt(t, filepath.Join(t.TempDir(), "docrag.db"), testInfo("m", 3))
	defer s.Close()

	require.NoError(t, s.Add(ctx, makeRecords("a",
		[]float32{1, 0, 0},
		[]float32{0.9, 0.1, 0},
		[]float32{0, 1, 0},
		[]float32{0, 0, 1},
		[]float32{0.5, 0.5, 0},
	)))

	res, err := s.Search(ctx, []float32{1, 0, 0}, 3)
	require.NoError(t, err)
	require.Len(t, res, 3)
	assert.Equal(t, 0, res[0].Record.ChunkIndex)
	assert.Equal(t, 1, res[1].Record.ChunkIndex)
	assert.Equal(t, 4, res[2].Record.ChunkIndex)
	for i := 1; i < len(res); i++ {
		assert.GreaterOrEqual(t, res[i-1].Score, res[i].Score)
	}

	res, err = s.Search(ctx, []float32{1, 0, 0}, 50)
	require.NoError(t, err)
	assert.Len(t, res, 5)
}

func TestBolt_SearchTiesKeepInsertionOrder(t *testing.T) {
	ctx := context.Background()
	s := openBolt(t, filepath.Join(t.TempDir(), "docrag.db"), testInfo("m", 2))
	defer s.Close()

	require.NoError(t, s.Add(ctx, makeRecords("a", []float32{1, 0}, []float32{1, 0}, []float32{1, 0})))

	res, err := s.Search(ctx, []float32{1, 0}, 3)
	require.NoError(t, err)
	require.Len(t, res, 3)
	assert.Less(t, res[0].Record.Seq, res[1].Record.Seq)
	assert.Less(t, res[1].Record.Seq, res[2].Record.Seq)
}

func TestBolt_SearchEdgeCases(t *testing.T) {
	ctx := context.Background()
	s := openBolt(t, filepath.Join(t.TempDir(), "docrag.db"), testInfo("m", 3))
	defer s.Close()

	res, err := s.Search(ctx, []float32{1, 0, 0}, 3)
	require.NoError(t, err)
	assert.Empty(t, res)

	_, err = s.Search(ctx, []float32{1, 0, 0}, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	require.NoError(t, s.Add(ctx, makeRecords("a", []float32{1, 0, 0})))
	_, err = s.Search(ctx, []float32{1, 0}, 1)
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
}

func TestBolt_AddRejectsWrongDimension(t *testing.T) {
	ctx := context.Background()
	s := openBolt(t, filepath.Join(t.TempDir(), "docrag.db"), testInfo("m", 3))
	defer s.Close()

	err := s.Add(ctx, makeRecords("a", []float32{1, 0, 0}, []float32{1, 0}))
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Zero(t, s.Generation())
}

func TestBolt_AdoptsFirstDimension(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "docrag.db")
	s := openBolt(t, path, testInfo("m", 0))

	require.NoError(t, s.Add(ctx, makeRecords("a", []float32{1, 2, 3, 4})))
	assert.Equal(t, 4, s.Info().Dimension)
	require.NoError(t, s.Close())

	s = openBolt(t, path, testInfo("m", 0))
	defer s.Close()
	assert.Equal(t, 4, s.Info().Dimension)
}

func TestBolt_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "docrag.db")
	info := testInfo("m", 3)

	s := openBolt(t, path, info)
	require.NoError(t, s.Add(ctx, makeRecords("a", []float32{1, 0, 0}, []float32{0, 1, 0})))
	require.NoError(t, s.PutDocuments(ctx, []domain.DocumentSummary{{DocID: "a", Filename: "a.txt", Chunks: 2}}))
	require.NoError(t, s.Close())

	s = openBolt(t, path, info)
	defer s.Close()

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	res, err := s.Search(ctx, []float32{0, 1, 0}, 1)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "a chunk 1", res[0].Record.Text)

	docs, err := s.ListDocuments(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, 2, docs[0].Chunks)
}

func TestBolt_RejectsIncompatibleModel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "docrag.db")
	info := testInfo("model-a", 3)

	s := openBolt(t, path, info)
	require.NoError(t, s.Close())

	other := info
	other.EmbeddingModel = "model-b"
	_, err := OpenBoltVectorStore(path, other, zerolog.Nop())
	assert.ErrorIs(t, err, domain.ErrIncompatibleCollection)

	// a different fingerprint names a different collection and opens cleanly
	s = openBolt(t, path, testInfo("model-b", 3))
	defer s.Close()
	assert.NotEqual(t, info.Name, s.Info().Name)
}

func TestBolt_LockedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "docrag.db")
	s := openBolt(t, path, testInfo("m", 3))
	defer s.Close()

	_, err := OpenBoltVectorStore(path, testInfo("m", 3), zerolog.Nop())
	assert.ErrorIs(t, err, domain.ErrStoreLocked)
}

func TestBolt_Reset(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "docrag.db")
	s := openBolt(t, path, testInfo("m", 3))

	require.NoError(t, s.Add(ctx, makeRecords("a", []float32{1, 0, 0})))
	require.NoError(t, s.PutDocuments(ctx, []domain.DocumentSummary{{DocID: "a"}}))
	gen := s.Generation()

	require.NoError(t, s.Reset(ctx))
	assert.Greater(t, s.Generation(), gen)

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	docs, err := s.ListDocuments(ctx)
	require.NoError(t, err)
	assert.Empty(t, docs)

	require.NoError(t, s.Add(ctx, makeRecords("b", []float32{0, 1, 0})))
	require.NoError(t, s.Close())

	s = openBolt(t, path, testInfo("m", 3))
	defer s.Close()
	n, err = s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestBolt_ConcurrentAdds(t *testing.T) {
	ctx := context.Background()
	s := openBolt(t, filepath.Join(t.TempDir(), "docrag.db"), testInfo("m", 2))
	defer s.Close()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, s.Add(ctx, makeRecords(fmt.Sprint("d", i), []float32{1, 0}, []float32{0, 1})))
			_, err := s.Search(ctx, []float32{1, 0}, 2)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 16, n)

	seen := make(map[uint64]bool)
	res, err := s.Search(ctx, []float32{1, 0}, 16)
	require.NoError(t, err)
	for _, r := range res {
		assert.False(t, seen[r.Record.Seq], "duplicate seq %d", r.Record.Seq)
		seen[r.Record.Seq] = true
	}
}

func TestRank_Metrics(t *testing.T) {
	recs := makeRecords("a", []float32{2, 0}, []float32{0, 1}, []float32{1, 1})

	top := Rank(domain.MetricDot, recs, []float32{1, 0}, 1)
	require.Len(t, top, 1)
	assert.InDelta(t, 2.0, top[0].Score, 1e-9)

	top = Rank(domain.MetricEuclidean, recs, []float32{0, 1}, 1)
	require.Len(t, top, 1)
	assert.Equal(t, 1, top[0].Record.ChunkIndex)
	assert.InDelta(t, 1.0, top[0].Score, 1e-9)

	assert.Nil(t, Rank(domain.MetricCosine, recs, []float32{1, 0}, 0))
}

func TestNewCollectionInfo_Fingerprint(t *testing.T) {
	a := NewCollectionInfo("rag", "gemini", "text-embedding-004", 768, domain.MetricCosine)
	b := NewCollectionInfo("rag", "gemini", "text-embedding-004", 768, domain.MetricCosine)
	c := NewCollectionInfo("rag", "openai", "text-embedding-3-small", 1536, domain.MetricCosine)

	assert.Equal(t, a.Name, b.Name)
	assert.NotEqual(t, a.Name, c.Name)
	assert.Regexp(t, `^rag-[0-9a-f]{8}$`, a.Name)
}
