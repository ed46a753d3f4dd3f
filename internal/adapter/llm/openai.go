package llm

import (
	"context"
	"errors"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/openai/openai-go/v2/shared"

	"docrag/internal/adapter/upstream"
)

type OpenAI struct {
	client      openai.Client
	model       shared.ChatModel
	temperature float64
}

func NewOpenAI(apiKey, model, baseURL string, temperature float64) (*OpenAI, error) {
	if apiKey == "" && baseURL == "" {
		return nil, errors.New("openai generator: API key is empty (set the variable named by generation.api_key_env)")
	}
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &OpenAI{
		client:      openai.NewClient(opts...),
		model:       shared.ChatModel(model),
		temperature: temperature,
	}, nil
}

func (o *OpenAI) Complete(ctx context.Context, system, user string) (string, error) {
	var msgs []openai.ChatCompletionMessageParamUnion
	if system != "" {
		msgs = append(msgs, openai.SystemMessage(system))
	}
	msgs = append(msgs, openai.UserMessage(user))

	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       o.model,
		Messages:    msgs,
		Temperature: openai.Float(o.temperature),
	})
	if err != nil {
		return "", upstream.FromOpenAI("generate", err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}

func (o *OpenAI) ModelName() string { return string(o.model) }
func (o *OpenAI) Provider() string  { return "openai" }
