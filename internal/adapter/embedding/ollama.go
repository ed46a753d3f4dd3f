package embedding

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/ollama/ollama/api"

	"docrag/internal/adapter/upstream"
)

var ollamaDimensions = map[string]int{
	"nomic-embed-text":  768,
	"mxbai-embed-large": 1024,
	"all-minilm":        384,
}

type Ollama struct {
	client *api.Client
	model  string
	dim    int
}

// NewOllama connects to baseURL, or to OLLAMA_HOST when baseURL is empty.
func NewOllama(baseURL, model string, dim int) (*Ollama, error) {
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

	if dim <= 0 {
		dim = ollamaDimensions[model]
	}
	return &Ollama{client: client, model: model, dim: dim}, nil
}

func (o *Ollama) Embed(ctx context.Context, texts []string, _ Task) ([][]float32, error) {
	resp, err := o.client.Embed(ctx, &api.EmbedRequest{Model: o.model, Input: texts})
	if err != nil {
		return nil, upstream.FromOllama("embed", err)
	}
	return resp.Embeddings, nil
}

func (o *Ollama) Dimension() int    { return o.dim }
func (o *Ollama) ModelName() string { return o.model }
func (o *Ollama) Provider() string  { return "ollama" }
