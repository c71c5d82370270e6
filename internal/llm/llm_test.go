package llm

import (
	"context"
	"testing"
)

func TestNewProvider_Local(t *testing.T) {
	provider, err := NewProvider(context.Background(), Config{Mode: "local", Model: "llama3"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	openai, ok := provider.(*OpenAIProvider)
	if !ok {
		t.Fatalf("expected *OpenAIProvider, got %T", provider)
	}
	if openai.baseURL != "http://localhost:11434/v1" || !openai.keyOptional {
		t.Errorf("unexpected local provider %+v", openai)
	}
}

func TestNewProvider_Gemini(t *testing.T) {
	provider, err := NewProvider(context.Background(), Config{Provider: "gemini", Model: "gemini-2.5-flash"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	gemini, ok := provider.(*GeminiProvider)
	if !ok {
		t.Fatalf("expected *GeminiProvider, got %T", provider)
	}
	if gemini.model != "gemini-2.5-flash" {
		t.Errorf("expected model to be forwarded, got %q", gemini.model)
	}
}

func TestNewProvider_OpenAI(t *testing.T) {
	provider, err := NewProvider(context.Background(), Config{Provider: "openai", Model: "gpt-4o-mini", OpenAIAPIKey: "sk"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	openai := provider.(*OpenAIProvider)
	if openai.apiKey != "sk" || openai.baseURL != "https://api.openai.com/v1" {
		t.Errorf("unexpected provider %+v", openai)
	}
}

func TestNewProvider_OpenRouter(t *testing.T) {
	provider, err := NewProvider(context.Background(), Config{Provider: "openrouter", Model: "m", OpenRouterAPIKey: "or"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	openai := provider.(*OpenAIProvider)
	if openai.baseURL != "https://openrouter.ai/api/v1" || openai.apiKey != "or" || openai.name != "openrouter" {
		t.Errorf("unexpected provider %+v", openai)
	}

	provider, _ = NewProvider(context.Background(), Config{Provider: "openrouter", BaseURL: "https://custom.test/v1"})
	if provider.(*OpenAIProvider).baseURL != "https://custom.test/v1" {
		t.Errorf("expected custom base URL")
	}
}

func TestNewProvider_Unsupported(t *testing.T) {
	_, err := NewProvider(context.Background(), Config{Provider: "codex"})
	if err == nil {
		t.Fatal("expected error for unsupported provider")
	}
	if _, ok := err.(ErrUnsupportedProvider); !ok {
		t.Fatalf("expected ErrUnsupportedProvider, got %T", err)
	}
}

func TestDefaultIfEmpty(t *testing.T) {
	if defaultIfEmpty("a", "b") != "a" || defaultIfEmpty("", "b") != "b" {
		t.Fatal("unexpected defaultIfEmpty result")
	}
}
