package generation

import (
	"context"
	"fmt"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAI talks to any OpenAI-compatible chat completions endpoint.
type OpenAI struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

func NewOpenAI(cfg Config) *OpenAI {
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	oc.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	return &OpenAI{client: openai.NewClientWithConfig(oc), model: cfg.Model, timeout: cfg.Timeout}
}

func (g *OpenAI) Generate(ctx context.Context, req Request, out any) error {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: req.Prompt},
		},
		Temperature: 0.4,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   req.Name,
				Schema: &req.Schema,
				Strict: false,
			},
		},
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}
	if len(resp.Choices) == 0 {
		return fmt.Errorf("%w: no choices returned", ErrGenerationFailed)
	}
	return decode(req, resp.Choices[0].Message.Content, out)
}
