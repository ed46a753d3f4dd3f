package embedding

import (
	"context"
	"errors"
	"strings"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"docrag/internal/adapter/upstream"
)

var openAIDimensions = map[string]int{
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
	"jina-embeddings-v3":     1024,
}

// OpenAI talks to the OpenAI embeddings endpoint or any server that speaks
// the same protocol (set baseURL).
type OpenAI struct {
	client openai.Client
	model  string
	dim    int
	// shorten asks the API to truncate vectors; only the v3 models support it
	shorten bool
}

func NewOpenAI(apiKey, model, baseURL string, dim int) (*OpenAI, error) {
	if apiKey == "" && baseURL == "" {
		return nil, errors.New("openai embedder: API key is empty (set the variable named by embedding.api_key_env)")
	}
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	native := openAIDimensions[model]
	e := &OpenAI{
		client: openai.NewClient(opts...),
		model:  model,
		dim:    dim,
	}
	if dim <= 0 {
		e.dim = native
	} else if dim != native && strings.HasPrefix(model, "text-embedding-3") {
		e.shorten = true
	}
	return e, nil
}

func (e *OpenAI) Embed(ctx context.Context, texts []string, _ Task) ([][]float32, error) {
	params := openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
		Model: openai.EmbeddingModel(e.model),
	}
	if e.shorten {
		params.Dimensions = openai.Int(int64(e.dim))
	}

	resp, err := e.client.Embeddings.New(ctx, params)
	if err != nil {
		return nil, upstream.FromOpenAI("embed", err)
	}

	out := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if int(d.Index) >= len(out) {
			continue
		}
		v := make([]float32, len(d.Embedding))
		for j, x := range d.Embedding {
			v[j] = float32(x)
		}
		out[d.Index] = v
	}
	return out, nil
}

func (e *OpenAI) Dimension() int    { return e.dim }
func (e *OpenAI) ModelName() string { return e.model }
func (e *OpenAI) Provider() string  { return "openai" }
