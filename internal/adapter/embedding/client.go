package embedding

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"unicode/utf8"

	"docrag/internal/adapter/upstream"
	"docrag/internal/domain"
	"docrag/internal/port"
)

type Task int

const (
	TaskDocument Task = iota
	TaskQuery
)

// Backend is a single embedding provider. Implementations make one network
// call per Embed and leave batching, limits and retries to Client.
type Backend interface {
	Embed(ctx context.Context, texts []string, task Task) ([][]float32, error)
	Dimension() int
	ModelName() string
	Provider() string
}

var _ port.Embedder = (*Client)(nil)

// Client adapts a Backend to port.Embedder.
type Client struct {
	backend       Backend
	policy        *upstream.Policy
	batchSize     int
	maxInputChars int
	dim           atomic.Int64
}

func NewClient(b Backend, policy *upstream.Policy, batchSize, maxInputChars int) *Client {
	if policy == nil {
		policy = upstream.NewPolicy(b.Provider(), upstream.Options{})
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	c := &Client{
		backend:       b,
		policy:        policy,
		batchSize:     batchSize,
		maxInputChars: maxInputChars,
	}
	c.dim.Store(int64(b.Dimension()))
	return c
}

func (c *Client) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	for i, t := range texts {
		if err := c.checkSize(t); err != nil {
			return nil, fmt.Errorf("text %d: %w", i, err)
		}
	}

	out := make([][]float32, 0, len(texts))
	for i := 0; i < len(texts); i += c.batchSize {
		end := min(i+c.batchSize, len(texts))
		vecs, err := c.call(ctx, texts[i:end], TaskDocument)
		if err != nil {
			return nil, err
		}
		out = append(out, vecs...)
	}
	return out, nil
}

func (c *Client) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: empty query", domain.ErrInvalidInput)
	}
	if err := c.checkSize(text); err != nil {
		return nil, err
	}
	vecs, err := c.call(ctx, []string{text}, TaskQuery)
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (c *Client) Dimension() int {
	return int(c.dim.Load())
}

func (c *Client) ModelName() string {
	return c.backend.ModelName()
}

func (c *Client) Provider() string {
	return c.backend.Provider()
}

func (c *Client) checkSize(text string) error {
	if c.maxInputChars > 0 {
		if n := utf8.RuneCountInString(text); n > c.maxInputChars {
			return fmt.Errorf("%w: %d characters exceeds the embedding limit of %d", domain.ErrInputTooLarge, n, c.maxInputChars)
		}
	}
	return nil
}

func (c *Client) call(ctx context.Context, batch []string, task Task) ([][]float32, error) {
	var vecs [][]float32
	err := c.policy.Do(ctx, "embed", func(ctx context.Context) error {
		var err error
		vecs, err = c.backend.Embed(ctx, batch, task)
		return err
	})
	if err != nil {
		return nil, err
	}

	if len(vecs) != len(batch) {
		return nil, c.malformed(fmt.Errorf("got %d vectors for %d inputs", len(vecs), len(batch)))
	}
	want := c.Dimension()
	for i, v := range vecs {
		if len(v) == 0 {
			return nil, c.malformed(fmt.Errorf("empty vector at %d", i))
		}
		if want == 0 {
			want = len(v)
			c.dim.CompareAndSwap(0, int64(want))
		}
		if len(v) != want {
			return nil, fmt.Errorf("%w: provider returned %d dimensions, expected %d", domain.ErrDimensionMismatch, len(v), want)
		}
	}
	return vecs, nil
}

func (c *Client) malformed(err error) error {
	return &domain.UpstreamError{Service: c.backend.Provider(), Op: "embed", Kind: domain.KindRejected, Err: err}
}
