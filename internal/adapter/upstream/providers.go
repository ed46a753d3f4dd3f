package upstream

import (
	"errors"
	"net/http"

	"github.com/ollama/ollama/api"
	"github.com/openai/openai-go/v2"
	"google.golang.org/genai"

	"docrag/internal/domain"
)

// FromGemini classifies an error returned by the genai SDK.
func FromGemini(op string, err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return geminiStatus(op, apiErr.Code, apiErr.Status, err)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) {
		return geminiStatus(op, apiErrPtr.Code, apiErrPtr.Status, err)
	}
	return Classify("gemini", op, err)
}

func geminiStatus(op string, code int, status string, err error) error {
	ue := StatusError("gemini", op, code, err)
	switch status {
	case "RESOURCE_EXHAUSTED":
		ue.Kind = domain.KindRateLimited
	case "UNAUTHENTICATED", "PERMISSION_DENIED":
		ue.Kind = domain.KindAuth
	}
	return ue
}

// FromOpenAI classifies an error returned by the openai-go SDK.
func FromOpenAI(op string, err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		ue := StatusError("openai", op, apiErr.StatusCode, err)
		if apiErr.Code == "insufficient_quota" {
			ue.Kind = domain.KindQuota
		}
		return ue
	}
	return Classify("openai", op, err)
}

// FromOllama classifies an error returned by the ollama API client.
func FromOllama(op string, err error) error {
	var se api.StatusError
	if errors.As(err, &se) {
		status := se.StatusCode
		if status == 0 {
			status = http.StatusInternalServerError
		}
		return StatusError("ollama", op, status, err)
	}
	return Classify("ollama", op, err)
}
