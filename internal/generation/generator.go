// Package generation turns a prompt plus a JSON schema into a typed value
// using a hosted (OpenAI-compatible) or local (Ollama) language model.
package generation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai/jsonschema"
)

// ErrGenerationFailed is wrapped by every error a Generator returns.
var ErrGenerationFailed = errors.New("generation failed")

const systemPrompt = "You are BuildBuddy, a pragmatic hackathon mentor. " +
	"Answer with a single JSON document that conforms to the provided schema. " +
	"Do not add commentary or markdown."

// Request describes one structured generation call.
type Request struct {
	// Name identifies the schema in provider requests and metrics.
	Name   string
	Prompt string
	Schema jsonschema.Definition
}

// Generator produces a value conforming to req.Schema and decodes it into out.
type Generator interface {
	Generate(ctx context.Context, req Request, out any) error
}

// Config selects and configures a provider.
type Config struct {
	Provider string
	BaseURL  string
	APIKey   string
	Model    string
	Timeout  time.Duration
}

// New builds the configured provider wrapped with logging and metrics.
func New(cfg Config) (Generator, error) {
	var g Generator
	var err error
	switch strings.ToLower(cfg.Provider) {
	case "openai":
		g = NewOpenAI(cfg)
	case "ollama":
		g, err = NewOllama(cfg)
	default:
		return nil, fmt.Errorf("unknown generation provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}
	return Instrument(g, strings.ToLower(cfg.Provider), cfg.Model), nil
}

// decode validates raw model output against the schema and unmarshals it.
func decode(req Request, content string, out any) error {
	content = stripFences(content)
	if content == "" {
		return fmt.Errorf("%w: empty response for %s", ErrGenerationFailed, req.Name)
	}
	if err := jsonschema.VerifySchemaAndUnmarshal(req.Schema, []byte(content), out); err != nil {
		return fmt.Errorf("%w: %s does not match schema: %v", ErrGenerationFailed, req.Name, err)
	}
	return nil
}

// stripFences removes a surrounding markdown code fence some models add
// even when asked for raw JSON.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
