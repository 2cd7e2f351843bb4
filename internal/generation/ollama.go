package generation

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
)

const defaultOllamaURL = "http://localhost:11434"

// Ollama uses a local Ollama server with schema-constrained output.
type Ollama struct {
	client  *api.Client
	model   string
	timeout time.Duration
}

func NewOllama(cfg Config) (*Ollama, error) {
	base := cfg.BaseURL
	if base == "" {
		base = defaultOllamaURL
	}
	// the native client wants the bare host, not the OpenAI-compatible /v1 path
	base = strings.TrimSuffix(strings.TrimSuffix(base, "/"), "/v1")
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("parse ollama base url %q: %w", base, err)
	}
	return &Ollama{
		client:  api.NewClient(u, &http.Client{Timeout: cfg.Timeout}),
		model:   cfg.Model,
		timeout: cfg.Timeout,
	}, nil
}

func (g *Ollama) Generate(ctx context.Context, req Request, out any) error {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	format, err := json.Marshal(&req.Schema)
	if err != nil {
		return fmt.Errorf("%w: marshal schema: %v", ErrGenerationFailed, err)
	}
	stream := false
	creq := &api.ChatRequest{
		Model: g.model,
		Messages: []api.Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: req.Prompt},
		},
		Stream:  &stream,
		Format:  format,
		Options: map[string]any{"temperature": 0.4},
	}

	var resp api.ChatResponse
	if err := g.client.Chat(ctx, creq, func(r api.ChatResponse) error {
		resp = r
		return nil
	}); err != nil {
		return fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}
	return decode(req, resp.Message.Content, out)
}
