package llm

import (
	"context"
	"strings"

	"docrag/internal/adapter/upstream"
	"docrag/internal/domain"
	"docrag/internal/port"
)

// Backend is one generation provider. It makes a single non-streaming call.
type Backend interface {
	Complete(ctx context.Context, system, user string) (string, error)
	ModelName() string
	Provider() string
}

var _ port.LLM = (*Client)(nil)

// Client adapts a Backend to port.LLM under an upstream policy.
type Client struct {
	backend Backend
	policy  *upstream.Policy
}

func NewClient(b Backend, policy *upstream.Policy) *Client {
	if policy == nil {
		policy = upstream.NewPolicy(b.Provider(), upstream.Options{})
	}
	return &Client{backend: b, policy: policy}
}

func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	return c.GenerateWithSystem(ctx, "", prompt)
}

func (c *Client) GenerateWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	var out string
	err := c.policy.Do(ctx, "generate", func(ctx context.Context) error {
		var err error
		out, err = c.backend.Complete(ctx, systemPrompt, userPrompt)
		return err
	})
	if err != nil {
		return "", err
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", &domain.UpstreamError{Service: c.backend.Provider(), Op: "generate", Kind: domain.KindRejected, Err: errEmptyReply}
	}
	return out, nil
}

func (c *Client) ModelName() string {
	return c.backend.ModelName()
}
