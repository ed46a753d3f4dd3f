package usecase

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"docrag/internal/domain"
)

func scored(filename string, idx int, text string) domain.ScoredRecord {
	return domain.ScoredRecord{Record: domain.VectorRecord{Filename: filename, ChunkIndex: idx, Text: text}}
}

func TestBuildContext_Format(t *testing.T) {
	ctx, used := BuildContext([]domain.ScoredRecord{
		scored("a.txt", 2, "alpha"),
		scored("b.pdf", 0, "beta"),
	}, 0)

	assert.Equal(t, "[a.txt - chunk 2]\nalpha\n\n---\n[b.pdf - chunk 0]\nbeta\n", ctx)
	assert.Len(t, used, 2)
}

func TestBuildContext_Budget(t *testing.T) {
	long := strings.Repeat("x", 100)
	results := []domain.ScoredRecord{
		scored("a.txt", 0, long),
		scored("a.txt", 1, long),
		scored("a.txt", 2, "short"),
	}

	// The first block alone exceeds the budget but is still included.
	ctx, used := BuildContext(results, 50)
	assert.Len(t, used, 1)
	assert.Contains(t, ctx, "chunk 0")

	_, used = BuildContext(results, 260)
	assert.Len(t, used, 2)

	_, used = BuildContext(nil, 100)
	assert.Empty(t, used)
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "short", Preview("short", 150))
	assert.Equal(t, "abc...", Preview("abcdef", 3))
	assert.Equal(t, "日本...", Preview("日本語テキスト", 2))
	assert.Equal(t, "abcdef", Preview("abcdef", 0))
}

func TestCitations_KeepOrder(t *testing.T) {
	cites := Citations([]domain.ScoredRecord{scored("b.txt", 4, "x"), scored("a.txt", 1, "y")}, 150)
	assert.Equal(t, []domain.Citation{
		{Filename: "b.txt", ChunkIndex: 4, Preview: "x"},
		{Filename: "a.txt", ChunkIndex: 1, Preview: "y"},
	}, cites)
}
