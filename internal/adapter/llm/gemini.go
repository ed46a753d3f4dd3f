package llm

import (
	"context"
	"errors"

	"google.golang.org/genai"

	"docrag/internal/adapter/upstream"
)

var errEmptyReply = errors.New("model returned an empty reply")

type Gemini struct {
	client      *genai.Client
	model       string
	temperature float32
}

func NewGemini(ctx context.Context, apiKey, model, baseURL string, temperature float64) (*Gemini, error) {
	if apiKey == "" {
		return nil, errors.New("gemini generator: API key is empty (set the variable named by generation.api_key_env)")
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
	return &Gemini{client: client, model: model, temperature: float32(temperature)}, nil
}

func (g *Gemini) Complete(ctx context.Context, system, user string) (string, error) {
	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(g.temperature),
	}
	if system != "" {
		cfg.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(user), cfg)
	if err != nil {
		return "", upstream.FromGemini("generate", err)
	}
	return resp.Text(), nil
}

func (g *Gemini) ModelName() string { return g.model }
func (g *Gemini) Provider() string  { return "gemini" }
