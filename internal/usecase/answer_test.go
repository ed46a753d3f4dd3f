package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docrag/internal/domain"
)

func ingestLighthouse(t *testing.T, h *harness) {
	t.Helper()
	_, err := h.ingest.Ingest(context.Background(), []domain.Upload{{Filename: "lighthouse.txt", Data: []byte(lighthouseDoc())}})
	require.NoError(t, err)
}

func TestAsk_CitesTheChunkHoldingTheFact(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, "")
	ingestLighthouse(t, h)

	ans, err := h.answer.Ask(ctx, domain.Query{Question: "What does the lighthouse keeper feed?", TopK: 3})
	require.NoError(t, err)

	assert.Equal(t, "The keeper feeds seven cats.", ans.Text)
	assert.True(t, ans.Grounded)
	assert.Equal(t, domain.StatusAnswered, ans.Status)
	require.Len(t, ans.Citations, 3)
	assert.Equal(t, 1, ans.Citations[0].ChunkIndex)
	assert.Equal(t, "lighthouse.txt", ans.Citations[0].Filename)
	assert.Equal(t, 3, ans.ChunksUsed)
	assert.True(t, strings.HasSuffix(ans.Citations[0].Preview, "..."))
	assert.Equal(t, 153, len([]rune(ans.Citations[0].Preview)))

	assert.Equal(t, 1, h.llm.calls)
	assert.Contains(t, h.llm.system, FallbackAnswer)
	assert.True(t, strings.HasPrefix(h.llm.user, "CONTEXT:\n[lighthouse.txt - chunk 1]\n"))
	assert.Contains(t, h.llm.user, "QUESTION: What does the lighthouse keeper feed?")
	assert.Equal(t, []string{"answered"}, h.observer.statuses)
}

func TestAsk_NothingIndexed(t *testing.T) {
	h := newHarness(t, "")

	_, err := h.answer.Ask(context.Background(), domain.Query{Question: "anything?"})
	assert.ErrorIs(t, err, domain.ErrNothingIndexed)
	assert.Zero(t, h.llm.calls)
	assert.Zero(t, h.embedder.calls)
	assert.Equal(t, []string{"nothing_indexed"}, h.observer.statuses)
}

func TestAsk_FallbackReplyIsNotGrounded(t *testing.T) {
	h := newHarness(t, "")
	ingestLighthouse(t, h)
	h.llm.reply = "I don't have enough information to answer that question."

	ans, err := h.answer.Ask(context.Background(), domain.Query{Question: "Who built the lighthouse?"})
	require.NoError(t, err)
	assert.False(t, ans.Grounded)
	assert.Equal(t, domain.StatusInsufficientContext, ans.Status)
	assert.Len(t, ans.Citations, 3)
	assert.Equal(t, 3, ans.ChunksUsed)
}

func TestAsk_NoRelevantContentSkipsModel(t *testing.T) {
	h := newHarness(t, "")
	ingestLighthouse(t, h)

	strict := NewRetrieveUseCase(h.retrieve.retriever, h.store, RetrieveOptions{DefaultTopK: 3, MaxTopK: 10, MinScore: 0.5})
	answer := NewAnswerUseCase(strict, h.llm, AnswerOptions{MaxContextChars: 12000, Logger: zerolog.Nop()})

	ans, err := answer.Ask(context.Background(), domain.Query{Question: "Tell me about the orchard"})
	require.NoError(t, err)
	assert.Equal(t, FallbackAnswer, ans.Text)
	assert.False(t, ans.Grounded)
	assert.Equal(t, domain.StatusNoRelevantContent, ans.Status)
	assert.Empty(t, ans.Citations)
	assert.Zero(t, ans.ChunksUsed)
	assert.Zero(t, h.llm.calls)
}

func TestAsk_UpstreamErrorPropagates(t *testing.T) {
	h := newHarness(t, "")
	ingestLighthouse(t, h)
	h.llm.err = &domain.UpstreamError{Service: "stub", Op: "generate", Kind: domain.KindAuth, Err: errors.New("bad key")}

	_, err := h.answer.Ask(context.Background(), domain.Query{Question: "lighthouse?"})
	assert.ErrorIs(t, err, domain.ErrUpstreamAuth)
	assert.Equal(t, []string{"error"}, h.observer.statuses)
}

func TestRetrieve_Validation(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, "")
	ingestLighthouse(t, h)

	_, err := h.retrieve.Retrieve(ctx, domain.Query{Question: "  "})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = h.retrieve.Retrieve(ctx, domain.Query{Question: "lighthouse", TopK: 11})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = h.retrieve.Retrieve(ctx, domain.Query{Question: "lighthouse", TopK: -1})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = h.retrieve.Retrieve(ctx, domain.Query{Question: strings.Repeat("q", 501)})
	assert.ErrorIs(t, err, domain.ErrInputTooLarge)

	res, err := h.retrieve.Retrieve(ctx, domain.Query{Question: "lighthouse"})
	require.NoError(t, err)
	assert.Equal(t, 3, res.TopK)
	assert.Len(t, res.Results, 3)

	res, err = h.retrieve.Retrieve(ctx, domain.Query{Question: "lighthouse", TopK: 1})
	require.NoError(t, err)
	require.Len(t, res.Results, 1)
	assert.Equal(t, 1, res.Results[0].Record.ChunkIndex)
}

func TestRetrieve_CacheFollowsStoreGeneration(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, "")
	ingestLighthouse(t, h)

	before := h.embedder.calls
	_, err := h.retrieve.Retrieve(ctx, domain.Query{Question: "lighthouse"})
	require.NoError(t, err)
	_, err = h.retrieve.Retrieve(ctx, domain.Query{Question: "lighthouse"})
	require.NoError(t, err)
	assert.Equal(t, before+1, h.embedder.calls)

	ingestLighthouse(t, h)
	res, err := h.retrieve.Retrieve(ctx, domain.Query{Question: "lighthouse", TopK: 10})
	require.NoError(t, err)
	assert.Len(t, res.Results, 6)
}

func TestPrompt_DoesNotCallModel(t *testing.T) {
	h := newHarness(t, "")
	ingestLighthouse(t, h)

	p, err := h.answer.Prompt(context.Background(), domain.Query{Question: "lighthouse keeper", TopK: 1})
	require.NoError(t, err)
	assert.Contains(t, p.System, FallbackAnswer)
	assert.Contains(t, p.User, "[lighthouse.txt - chunk 1]")
	assert.Len(t, p.Context, 1)
	assert.Zero(t, h.llm.calls)
}
