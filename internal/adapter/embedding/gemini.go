package embedding

import (
	"context"
	"errors"

	"google.golang.org/genai"

	"docrag/internal/adapter/upstream"
)

var geminiDimensions = map[string]int{
	"text-embedding-004":   768,
	"gemini-embedding-001": 3072,
	"embedding-001":        768,
}

type Gemini struct {
	client *genai.Client
	model  string
	dim    int
}

func NewGemini(ctx context.Context, apiKey, model, baseURL string, dim int) (*Gemini, error) {
	if apiKey == "" {
		return nil, errors.New("gemini embedder: API key is empty (set the variable named by embedding.api_key_env)")
	}
	cc := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, err
	}

	if dim <= 0 {
		dim = geminiDimensions[model]
	}
	return &Gemini{client: client, model: model, dim: dim}, nil
}

func (g *Gemini) Embed(ctx context.Context, texts []string, task Task) ([][]float32, error) {
	contents := make([]*genai.Content, len(texts))
	for i, t := range texts {
		contents[i] = genai.NewContentFromText(t, genai.RoleUser)
	}

	cfg := &genai.EmbedContentConfig{TaskType: "RETRIEVAL_DOCUMENT"}
	if task == TaskQuery {
		cfg.TaskType = "RETRIEVAL_QUERY"
	}
	if g.dim > 0 {
		cfg.OutputDimensionality = genai.Ptr(int32(g.dim))
	}

	resp, err := g.client.Models.EmbedContent(ctx, g.model, contents, cfg)
	if err != nil {
		return nil, upstream.FromGemini("embed", err)
	}

	out := make([][]float32, len(resp.Embeddings))
	for i, e := range resp.Embeddings {
		if e != nil {
			out[i] = e.Values
		}
	}
	return out, nil
}

func (g *Gemini) Dimension() int    { return g.dim }
func (g *Gemini) ModelName() string { return g.model }
func (g *Gemini) Provider() string  { return "gemini" }
