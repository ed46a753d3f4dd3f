package llm

import (
	"context"
	"fmt"

	"docrag/config"
	"docrag/internal/adapter/upstream"
)

// FromConfig builds the configured generation provider behind a Client.
// fallback is the reply the mock provider gives when it has no context.
func FromConfig(ctx context.Context, cfg config.GenerationConfig, fallback string, opts upstream.Options) (*Client, error) {
	var (
		b   Backend
		err error
	)
	switch cfg.Provider {
	case "gemini":
		b, err = NewGemini(ctx, config.APIKey(cfg.APIKeyEnv), cfg.Model, cfg.BaseURL, cfg.Temperature)
	case "openai":
		b, err = NewOpenAI(config.APIKey(cfg.APIKeyEnv), cfg.Model, cfg.BaseURL, cfg.Temperature)
	case "ollama":
		b, err = NewOllama(cfg.BaseURL, cfg.Model, cfg.Temperature)
	case "mock":
		b = Extractive{Fallback: fallback}
	default:
		return nil, fmt.Errorf("unknown generation provider %q (use gemini, openai, ollama or mock)", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}

	opts.Timeout = cfg.Timeout
	opts.MaxRetries = cfg.MaxRetries
	return NewClient(b, upstream.NewPolicy("generation/"+b.Provider(), opts)), nil
}
