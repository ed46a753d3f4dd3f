package retriever

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docrag/internal/adapter/memstore"
	"docrag/internal/domain"
)

// axisEmbedder maps a text to a unit vector on the axis of the first
// keyword it contains.
type axisEmbedder struct{ words []string }

func (e axisEmbedder) vec(text string) []float32 {
	v := make([]float32, len(e.words))
	for i, w := range e.words {
		if strings.Contains(strings.ToLower(text), w) {
			v[i] = 1
			return v
		}
	}
	return v
}

func (e axisEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = e.vec(t)
	}
	return out, nil
}

func (e axisEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, domain.ErrInvalidInput
	}
	return e.vec(text), nil
}

func (e axisEmbedder) Dimension() int    { return len(e.words) }
func (e axisEmbedder) ModelName() string { return "axis" }
func (e axisEmbedder) Provider() string  { return "test" }

func TestSemanticRetriever(t *testing.T) {
	ctx := context.Background()
	emb := axisEmbedder{words: []string{"apple", "river", "engine"}}
	store := memstore.NewMemoryStore(domain.CollectionInfo{Name: "t", Metric: domain.MetricCosine, Dimension: 3})

	texts := []string{"the river runs", "an apple a day", "engine oil"}
	vecs, err := emb.EmbedDocuments(ctx, texts)
	require.NoError(t, err)
	recs := make([]domain.VectorRecord, len(texts))
	for i := range texts {
		recs[i] = domain.VectorRecord{ID: texts[i], Text: texts[i], Vector: vecs[i]}
	}
	require.NoError(t, store.Add(ctx, recs))

	r := NewSemanticRetriever(store, emb)
	res, err := r.Retrieve(ctx, "Where does the river go?", 1)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "the river runs", res[0].Record.Text)

	_, err = r.Retrieve(ctx, "   ", 1)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = r.Retrieve(ctx, "apple", 0)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
