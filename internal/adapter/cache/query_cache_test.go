package cache

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docrag/internal/domain"
)

func result(id string) []domain.ScoredRecord {
	return []domain.ScoredRecord{{Record: domain.VectorRecord{ID: id}, Score: 0.5}}
}

func TestQueryCache_HitAndGeneration(t *testing.T) {
	c := NewQueryCache(10, time.Minute)

	c.Put("what is rag", 3, 1, result("a"))

	got, ok := c.Get("what is rag", 3, 1)
	require.True(t, ok)
	assert.Equal(t, "a", got[0].Record.ID)

	_, ok = c.Get("what is rag", 4, 1)
	assert.False(t, ok, "different k is a different key")

	_, ok = c.Get("what is rag", 3, 2)
	assert.False(t, ok, "stale generation must miss")
	assert.Zero(t, c.Size())
}

func TestQueryCache_TTL(t *testing.T) {
	c := NewQueryCache(10, time.Minute)
	now := time.Unix(1000, 0)
	c.now = func() time.Time { return now }

	c.Put("q", 3, 0, result("a"))
	now = now.Add(2 * time.Minute)

	_, ok := c.Get("q", 3, 0)
	assert.False(t, ok)
}

func TestQueryCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c := NewQueryCache(2, time.Minute)

	c.Put("a", 1, 0, result("a"))
	c.Put("b", 1, 0, result("b"))
	_, ok := c.Get("a", 1, 0)
	require.True(t, ok)

	c.Put("c", 1, 0, result("c"))

	_, ok = c.Get("b", 1, 0)
	assert.False(t, ok)
	_, ok = c.Get("a", 1, 0)
	assert.True(t, ok)
	assert.Equal(t, 2, c.Size())

	c.Invalidate()
	assert.Zero(t, c.Size())
}

type countingRetriever struct {
	calls int
	err   error
}

func (r *countingRetriever) Retrieve(_ context.Context, question string, k int) ([]domain.ScoredRecord, error) {
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	return result(fmt.Sprintf("%s-%d", question, r.calls)), nil
}

type fakeGen struct{ gen uint64 }

func (g *fakeGen) Generation() uint64 { return g.gen }

func TestCachedRetriever(t *testing.T) {
	ctx := context.Background()
	inner := &countingRetriever{}
	gen := &fakeGen{}
	r := NewCachedRetriever(inner, gen, NewQueryCache(10, time.Minute))

	first, err := r.Retrieve(ctx, "q", 3)
	require.NoError(t, err)
	second, err := r.Retrieve(ctx, "q", 3)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, inner.calls)

	gen.gen++
	third, err := r.Retrieve(ctx, "q", 3)
	require.NoError(t, err)
	assert.NotEqual(t, first, third)
	assert.Equal(t, 2, inner.calls)
}

func TestCachedRetriever_DoesNotCacheErrors(t *testing.T) {
	ctx := context.Background()
	inner := &countingRetriever{err: errors.New("boom")}
	r := NewCachedRetriever(inner, &fakeGen{}, NewQueryCache(10, time.Minute))

	_, err := r.Retrieve(ctx, "q", 3)
	require.Error(t, err)
	_, err = r.Retrieve(ctx, "q", 3)
	require.Error(t, err)
	assert.Equal(t, 2, inner.calls)
}
