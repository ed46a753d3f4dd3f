package embedding

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docrag/config"
	"docrag/internal/adapter/upstream"
)

func TestFromConfig_DefaultDimensionFollowsModel(t *testing.T) {
	cases := []struct {
		provider, model, baseURL string
		want                     int
	}{
		{"ollama", "all-minilm", "http://127.0.0.1:11434", 384},
		{"openai", "text-embedding-ada-002", "http://127.0.0.1:8080/v1", 1536},
		{"hash", "", "", defaultHashDimension},
	}
	for _, tc := range cases {
		t.Run(tc.provider, func(t *testing.T) {
			cfg := config.DefaultConfig().Embedding
			cfg.Provider = tc.provider
			cfg.Model = tc.model
			cfg.BaseURL = tc.baseURL

			c, err := FromConfig(context.Background(), cfg, upstream.Options{})
			require.NoError(t, err)
			assert.Equal(t, tc.want, c.Dimension())
		})
	}
}

func TestFromConfig_UnknownProvider(t *testing.T) {
	cfg := config.DefaultConfig().Embedding
	cfg.Provider = "telepathy"

	_, err := FromConfig(context.Background(), cfg, upstream.Options{})
	assert.Error(t, err)
}
