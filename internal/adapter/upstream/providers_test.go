package upstream

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/ollama/ollama/api"
	"github.com/stretchr/testify/assert"
	"google.golang.org/genai"

	"docrag/internal/domain"
)

func TestFromGemini(t *testing.T) {
	err := FromGemini("embed", fmt.Errorf("call: %w", genai.APIError{Code: 429, Status: "RESOURCE_EXHAUSTED", Message: "quota"}))
	assert.ErrorIs(t, err, domain.ErrRateLimited)
	assert.True(t, domain.IsRetryable(err))

	err = FromGemini("embed", genai.APIError{Code: 400, Status: "INVALID_ARGUMENT", Message: "API key not valid"})
	assert.ErrorIs(t, err, domain.ErrUpstreamRejected)

	err = FromGemini("embed", genai.APIError{Code: 403, Status: "PERMISSION_DENIED"})
	assert.ErrorIs(t, err, domain.ErrUpstreamAuth)
	assert.False(t, domain.IsRetryable(err))
}

func TestFromOllama(t *testing.T) {
	err := FromOllama("generate", api.StatusError{StatusCode: 503, Status: "503 Service Unavailable"})
	assert.ErrorIs(t, err, domain.ErrUpstreamUnavailable)

	err = FromOllama("generate", api.StatusError{StatusCode: 404, ErrorMessage: "model not found"})
	assert.ErrorIs(t, err, domain.ErrUpstreamRejected)
}

func TestFromProviders_PassThrough(t *testing.T) {
	assert.ErrorIs(t, FromOpenAI("embed", context.Canceled), context.Canceled)
	assert.True(t, domain.IsRetryable(FromOllama("embed", errors.New("connection refused"))))
}
