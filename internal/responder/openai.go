package responder

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"hospital-voice-agent/internal/config"
	"hospital-voice-agent/internal/dialogue"
)

// OpenAIResponder calls the OpenAI chat completion API. Callers bound every
// invocation with a context deadline; a timeout surfaces as an ordinary error
// and the orchestrator degrades to the fixed next-question prompt.
type OpenAIResponder struct {
	client *openai.Client
	model  string
}

func NewOpenAI(cfg config.OpenAIConfig) (*OpenAIResponder, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("responder: api key is required")
	}
	cc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		cc.BaseURL = cfg.BaseURL
	}
	model := cfg.Model
	if model == "" {
		model = openai.GPT4o
	}
	return &OpenAIResponder{
		client: openai.NewClientWithConfig(cc),
		model:  model,
	}, nil
}

func (r *OpenAIResponder) Reply(ctx context.Context, stage dialogue.Stage, fields dialogue.Fields, transcript string) (string, error) {
	resp, err := r.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: r.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt(stage, fields)},
			{Role: openai.ChatMessageRoleUser, Content: transcript},
		},
	})
	if err != nil {
		return "", fmt.Errorf("responder: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("responder: empty completion")
	}
	return resp.Choices[0].Message.Content, nil
}
