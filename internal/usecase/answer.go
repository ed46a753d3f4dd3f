package usecase

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"
	"text/template"

	"github.com/rs/zerolog"

	"docrag/internal/domain"
	"docrag/internal/port"
)

// FallbackAnswer is the exact reply for questions the context cannot answer.
const FallbackAnswer = "I don't have enough information to answer that question."

//go:embed templates/answer.tmpl
var templateFS embed.FS

var prompts = template.Must(template.ParseFS(templateFS, "templates/answer.tmpl"))

// Prompt is a rendered grounded prompt and the records it shows.
type Prompt struct {
	System  string
	User    string
	Context []domain.ScoredRecord
}

// AnswerUseCase answers questions from retrieved context only.
type AnswerUseCase struct {
	retrieve        *RetrieveUseCase
	llm             port.LLM
	maxContextChars int
	previewChars    int
	observer        Observer
	log             zerolog.Logger
}

type AnswerOptions struct {
	MaxContextChars int
	PreviewChars    int
	Observer        Observer
	Logger          zerolog.Logger
}

func NewAnswerUseCase(retrieve *RetrieveUseCase, llm port.LLM, opts AnswerOptions) *AnswerUseCase {
	if opts.PreviewChars <= 0 {
		opts.PreviewChars = 150
	}
	return &AnswerUseCase{
		retrieve:        retrieve,
		llm:             llm,
		maxContextChars: opts.MaxContextChars,
		previewChars:    opts.PreviewChars,
		observer:        observerOrNop(opts.Observer),
		log:             opts.Logger.With().Str("component", "answer").Logger(),
	}
}

// RenderPrompt builds the grounded prompt for question from results.
func (u *AnswerUseCase) RenderPrompt(question string, results []domain.ScoredRecord) (Prompt, error) {
	ctxText, used := BuildContext(results, u.maxContextChars)
	data := struct {
		Fallback string
		Context  string
		Question string
	}{FallbackAnswer, ctxText, question}

	var sys, user strings.Builder
	if err := prompts.ExecuteTemplate(&sys, "system", data); err != nil {
		return Prompt{}, fmt.Errorf("render system prompt: %w", err)
	}
	if err := prompts.ExecuteTemplate(&user, "user", data); err != nil {
		return Prompt{}, fmt.Errorf("render user prompt: %w", err)
	}
	return Prompt{System: sys.String(), User: user.String(), Context: used}, nil
}

// Prompt retrieves context for q and renders the prompt without calling the model.
func (u *AnswerUseCase) Prompt(ctx context.Context, q domain.Query) (Prompt, error) {
	res, err := u.retrieve.Retrieve(ctx, q)
	if err != nil {
		return Prompt{}, err
	}
	return u.RenderPrompt(res.Question, res.Results)
}

// Ask answers q. The model is not called when nothing relevant is retrieved.
func (u *AnswerUseCase) Ask(ctx context.Context, q domain.Query) (*domain.Answer, error) {
	ans, err := u.ask(ctx, q)
	switch {
	case err == nil:
		u.observer.ObserveQuery(string(ans.Status))
	case errors.Is(err, domain.ErrNothingIndexed):
		u.observer.ObserveQuery("nothing_indexed")
	default:
		u.observer.ObserveQuery("error")
	}
	return ans, err
}

func (u *AnswerUseCase) ask(ctx context.Context, q domain.Query) (*domain.Answer, error) {
	res, err := u.retrieve.Retrieve(ctx, q)
	if err != nil {
		return nil, err
	}

	if len(res.Results) == 0 {
		return &domain.Answer{
			Text:      FallbackAnswer,
			Status:    domain.StatusNoRelevantContent,
			Citations: []domain.Citation{},
		}, nil
	}

	p, err := u.RenderPrompt(res.Question, res.Results)
	if err != nil {
		return nil, err
	}

	reply, err := u.llm.GenerateWithSystem(ctx, p.System, p.User)
	if err != nil {
		return nil, fmt.Errorf("failed to generate answer: %w", err)
	}

	citations := Citations(p.Context, u.previewChars)
	ans := &domain.Answer{
		Text:       reply,
		Grounded:   true,
		Status:     domain.StatusAnswered,
		Citations:  citations,
		ChunksUsed: len(citations),
	}
	if isFallback(reply) {
		ans.Grounded = false
		ans.Status = domain.StatusInsufficientContext
	}

	u.log.Debug().
		Int("retrieved", len(res.Results)).
		Int("context_chunks", len(p.Context)).
		Str("status", string(ans.Status)).
		Msg("question answered")
	return ans, nil
}

func isFallback(reply string) bool {
	norm := strings.ToLower(strings.ReplaceAll(reply, "’", "'"))
	return strings.Contains(norm, strings.ToLower(FallbackAnswer))
}
