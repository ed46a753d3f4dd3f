package usecase

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"unicode"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"docrag/internal/adapter/cache"
	"docrag/internal/adapter/chunker"
	"docrag/internal/adapter/loader"
	"docrag/internal/adapter/memstore"
	"docrag/internal/adapter/retriever"
	"docrag/internal/domain"
)

// keywordEmbedder counts occurrences of a fixed vocabulary, so similarity
// follows shared keywords exactly.
type keywordEmbedder struct {
	vocab []string
	calls int
}

func (e *keywordEmbedder) vector(text string) []float32 {
	v := make([]float32, len(e.vocab))
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool { return !unicode.IsLetter(r) })
	for _, w := range words {
		for i, term := range e.vocab {
			if w == term {
				v[i]++
			}
		}
	}
	return v
}

func (e *keywordEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	e.calls++
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = e.vector(t)
	}
	return out, nil
}

func (e *keywordEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	e.calls++
	return e.vector(text), nil
}

func (e *keywordEmbedder) Dimension() int    { return len(e.vocab) }
func (e *keywordEmbedder) ModelName() string { return "keywords" }
func (e *keywordEmbedder) Provider() string  { return "test" }

type stubLLM struct {
	reply  string
	err    error
	calls  int
	system string
	user   string
}

func (s *stubLLM) Generate(ctx context.Context, prompt string) (string, error) {
	return s.GenerateWithSystem(ctx, "", prompt)
}

func (s *stubLLM) GenerateWithSystem(_ context.Context, system, user string) (string, error) {
	s.calls++
	s.system, s.user = system, user
	return s.reply, s.err
}

func (s *stubLLM) ModelName() string { return "stub" }

type recordingObserver struct {
	docs, chunks int
	statuses     []string
}

func (o *recordingObserver) ObserveIngest(d, c int) { o.docs += d; o.chunks += c }
func (o *recordingObserver) ObserveQuery(s string)  { o.statuses = append(o.statuses, s) }

// sentences builds n sentences of exactly 49 runes joined by single spaces.
func sentences(n int, topic func(i int) string) string {
	parts := make([]string, n)
	for i := range parts {
		s := topic(i) + " " + strings.Repeat("-", 48)
		parts[i] = s[:48] + "."
	}
	return strings.Join(parts, " ")
}

// lighthouseDoc is 40 sentences (1999 runes). Only sentence 20, at runes
// 1000-1049, mentions the lighthouse, so it lands in chunk 1 alone at 800/150.
func lighthouseDoc() string {
	return sentences(40, func(i int) string {
		if i == 20 {
			return "The lighthouse keeper feeds seven cats"
		}
		return fmt.Sprintf("Filler sentence %d", i)
	})
}

type harness struct {
	store    *memstore.MemoryStore
	embedder *keywordEmbedder
	llm      *stubLLM
	observer *recordingObserver
	ingest   *IngestUseCase
	retrieve *RetrieveUseCase
	answer   *AnswerUseCase
}

func newHarness(t *testing.T, archiveDir string) *harness {
	t.Helper()

	splitter, err := chunker.NewRecursiveSplitter(800, 150)
	require.NoError(t, err)

	h := &harness{
		store:    memstore.NewMemoryStore(domain.CollectionInfo{Name: "test", Metric: domain.MetricCosine}),
		embedder: &keywordEmbedder{vocab: []string{"lighthouse", "keeper", "cats", "filler", "sentence", "orchard"}},
		llm:      &stubLLM{reply: "The keeper feeds seven cats."},
		observer: &recordingObserver{},
	}
	h.ingest = NewIngestUseCase(loader.NewRegistry(), splitter, h.embedder, h.store, h.store, IngestOptions{
		ArchiveDir:       archiveDir,
		MaxDocumentBytes: 1 << 20,
		Observer:         h.observer,
		Logger:           zerolog.Nop(),
	})

	semantic := retriever.NewSemanticRetriever(h.store, h.embedder)
	cached := cache.NewCachedRetriever(semantic, h.store, cache.NewQueryCache(16, 0))
	h.retrieve = NewRetrieveUseCase(cached, h.store, RetrieveOptions{DefaultTopK: 3, MaxTopK: 10, MaxQuestionChars: 500})
	h.answer = NewAnswerUseCase(h.retrieve, h.llm, AnswerOptions{
		MaxContextChars: 12000,
		PreviewChars:    150,
		Observer:        h.observer,
		Logger:          zerolog.Nop(),
	})
	return h
}
