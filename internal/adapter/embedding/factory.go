package embedding

import (
	"context"
	"fmt"

	"docrag/config"
	"docrag/internal/adapter/upstream"
)

// FromConfig builds the configured embedding provider behind a Client. The
// observer and logger in opts are kept; limits come from cfg.
func FromConfig(ctx context.Context, cfg config.EmbeddingConfig, opts upstream.Options) (*Client, error) {
	var (
		b   Backend
		err error
	)
	switch cfg.Provider {
	case "gemini":
		b, err = NewGemini(ctx, config.APIKey(cfg.APIKeyEnv), cfg.Model, cfg.BaseURL, cfg.Dimension)
	case "openai":
		b, err = NewOpenAI(config.APIKey(cfg.APIKeyEnv), cfg.Model, cfg.BaseURL, cfg.Dimension)
	case "ollama":
		b, err = NewOllama(cfg.BaseURL, cfg.Model, cfg.Dimension)
	case "hash":
		b = NewHash(cfg.Dimension)
	default:
		return nil, fmt.Errorf("unknown embedding provider %q (use gemini, openai, ollama or hash)", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}

	opts.Timeout = cfg.Timeout
	opts.MaxRetries = cfg.MaxRetries
	opts.RequestsPerSecond = cfg.RequestsPerSecond
	opts.Burst = cfg.Burst
	policy := upstream.NewPolicy("embedding/"+b.Provider(), opts)
	return NewClient(b, policy, cfg.BatchSize, cfg.MaxInputChars), nil
}
