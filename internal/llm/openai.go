package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

type OpenAIConfig struct {
	Name        string
	APIKey      string
	Model       string
	BaseURL     string
	KeyOptional bool
}

// OpenAIProvider talks to any OpenAI-compatible chat completions endpoint.
type OpenAIProvider struct {
	name        string
	apiKey      string
	model       string
	baseURL     string
	keyOptional bool
	client      *http.Client
}

func NewOpenAIProvider(cfg OpenAIConfig) *OpenAIProvider {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	return &OpenAIProvider{
		name:        defaultIfEmpty(cfg.Name, "openai"),
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		baseURL:     strings.TrimRight(baseURL, "/"),
		keyOptional: cfg.KeyOptional,
		client:      &http.Client{Timeout: 35 * time.Second},
	}
}

func (p *OpenAIProvider) Generate(ctx context.Context, req Request) (string, error) {
	if p.apiKey == "" && !p.keyOptional {
		return "", errors.New("missing API key for remote provider")
	}
	model := modelFor(req, p.model)
	if model == "" {
		return "", errors.New("missing model for remote provider")
	}
	messages := make([]Message, 0, 2)
	if strings.TrimSpace(req.SystemInstruction) != "" {
		messages = append(messages, Message{Role: "system", Content: req.SystemInstruction})
	}
	messages = append(messages, Message{Role: "user", Content: req.Prompt})
	body, err := json.Marshal(map[string]any{
		"model":    model,
		"messages": messages,
	})
	if err != nil {
		return "", err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	if p.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusTooManyRequests {
		return "", p.rateLimited(resp)
	}
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("LLM request failed: %s", resp.Status)
	}

	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", err
	}
	if len(parsed.Choices) == 0 {
		return "", errors.New("LLM response had no choices")
	}
	content := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if content == "" {
		return "", errors.New("LLM response was empty")
	}
	return content, nil
}

func (p *OpenAIProvider) rateLimited(resp *http.Response) error {
	var payload struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	_ = json.Unmarshal(raw, &payload)
	message := strings.TrimSpace(payload.Error.Message)
	if retry := strings.TrimSpace(resp.Header.Get("Retry-After")); retry != "" {
		hint := "retry in " + retry + "s"
		if message == "" {
			message = hint
		} else {
			message += " (" + hint + ")"
		}
	}
	return RateLimitError{Provider: p.name, Message: message}
}
