package llm

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"

	"docrag/internal/adapter/upstream"
)

type Ollama struct {
	client      *api.Client
	model       string
	temperature float64
}

// NewOllama connects to baseURL, or to OLLAMA_HOST when baseURL is empty.
func NewOllama(baseURL, model string, temperature float64) (*Ollama, error) {
	var client *api.Client
	if baseURL == "" {
		var err error
		client, err = api.ClientFromEnvironment()
		if err != nil {
			return nil, fmt.Errorf("ollama client: %w", err)
		}
	} else {
		u, err := url.Parse(baseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid ollama url %q: %w", baseURL, err)
		}
		client = api.NewClient(u, http.DefaultClient)
	}
	return &Ollama{client: client, model: model, temperature: temperature}, nil
}

func (o *Ollama) Complete(ctx context.Context, system, user string) (string, error) {
	stream := false
	req := &api.ChatRequest{
		Model:   o.model,
		Stream:  &stream,
		Options: map[string]any{"temperature": o.temperature},
	}
	if system != "" {
		req.Messages = append(req.Messages, api.Message{Role: "system", Content: system})
	}
	req.Messages = append(req.Messages, api.Message{Role: "user", Content: user})

	var sb strings.Builder
	err := o.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		sb.WriteString(resp.Message.Content)
		return nil
	})
	if err != nil {
		return "", upstream.FromOllama("generate", err)
	}
	return sb.String(), nil
}

func (o *Ollama) ModelName() string { return o.model }
func (o *Ollama) Provider() string  { return "ollama" }
