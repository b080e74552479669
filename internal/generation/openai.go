package generation

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// Mode selects the OpenAI endpoint used for generation.
type Mode string

const (
	ModeChat       Mode = "chat"
	ModeCompletion Mode = "completion"
)

// Config configures an OpenAI-compatible generator.
type Config struct {
	BaseURL     string
	APIKeyEnv   string
	Model       string
	Mode        Mode
	MaxTokens   int
	Temperature float32
	Timeout     time.Duration
}

// OpenAIGenerator produces answers through the chat or completion API of an
// OpenAI-compatible server.
type OpenAIGenerator struct {
	client *openai.Client
	cfg    Config
}

func NewOpenAIGenerator(cfg Config) (*OpenAIGenerator, error) {
	if cfg.APIKeyEnv == "" {
		cfg.APIKeyEnv = "OPENAI_API_KEY"
	}
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("missing API key in env %s", cfg.APIKeyEnv)
	}
	if cfg.Model == "" {
		cfg.Model = openai.GPT4oMini
	}
	if cfg.Mode == "" {
		cfg.Mode = ModeChat
	}
	if cfg.Mode != ModeChat && cfg.Mode != ModeCompletion {
		return nil, fmt.Errorf("unknown generation mode %q", cfg.Mode)
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 256
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	oc := openai.DefaultConfig(key)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	oc.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	return &OpenAIGenerator{client: openai.NewClientWithConfig(oc), cfg: cfg}, nil
}

// Model returns the configured model name.
func (g *OpenAIGenerator) Model() string { return g.cfg.Model }

// Generate returns the trimmed model output for prompt.
func (g *OpenAIGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	if g.cfg.Mode == ModeCompletion {
		resp, err := g.client.CreateCompletion(ctx, openai.CompletionRequest{
			Model:       g.cfg.Model,
			Prompt:      prompt,
			MaxTokens:   g.cfg.MaxTokens,
			Temperature: g.cfg.Temperature,
		})
		if err != nil {
			return "", fmt.Errorf("completion: %w", err)
		}
		if len(resp.Choices) == 0 {
			return "", errors.New("completion: no choices returned")
		}
		return strings.TrimSpace(resp.Choices[0].Text), nil
	}

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   g.cfg.MaxTokens,
		Temperature: g.cfg.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion: no choices returned")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
