package llm

import (
	"context"
)

// Request is one single-shot completion: a prompt plus an optional system instruction.
type Request struct {
	Model             string
	Prompt            string
	SystemInstruction string
}

type Provider interface {
	Generate(ctx context.Context, req Request) (string, error)
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type Config struct {
	Mode             string
	Provider         string
	Model            string
	BaseURL          string
	GeminiAPIKey     string
	OpenAIAPIKey     string
	OpenRouterAPIKey string
}

func NewProvider(ctx context.Context, cfg Config) (Provider, error) {
	if cfg.Mode == "local" {
		return NewOpenAIProvider(OpenAIConfig{
			Name:        "local",
			Model:       cfg.Model,
			BaseURL:     defaultIfEmpty(cfg.BaseURL, "http://localhost:11434/v1"),
			KeyOptional: true,
		}), nil
	}

	switch cfg.Provider {
	case "gemini":
		return NewGeminiProvider(ctx, GeminiConfig{
			APIKey:  cfg.GeminiAPIKey,
			Model:   cfg.Model,
			BaseURL: cfg.BaseURL,
		})
	case "openai":
		return NewOpenAIProvider(OpenAIConfig{
			Name:    "openai",
			APIKey:  cfg.OpenAIAPIKey,
			Model:   cfg.Model,
			BaseURL: cfg.BaseURL,
		}), nil
	case "openrouter":
		return NewOpenAIProvider(OpenAIConfig{
			Name:    "openrouter",
			APIKey:  cfg.OpenRouterAPIKey,
			Model:   cfg.Model,
			BaseURL: defaultIfEmpty(cfg.BaseURL, "https://openrouter.ai/api/v1"),
		}), nil
	default:
		return nil, ErrUnsupportedProvider{Provider: cfg.Provider}
	}
}

func defaultIfEmpty(value string, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

func modelFor(req Request, fallback string) string {
	if req.Model != "" {
		return req.Model
	}
	return fallback
}
