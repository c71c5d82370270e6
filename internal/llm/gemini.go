package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"
)

type GeminiConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type GeminiProvider struct {
	model  string
	models contentGenerator
}

var newGenAIClient = genai.NewClient

// NewGeminiProvider builds a provider backed by the Gemini API. A missing
// key is reported on Generate so the service can still boot without one.
func NewGeminiProvider(ctx context.Context, cfg GeminiConfig) (*GeminiProvider, error) {
	provider := &GeminiProvider{model: defaultIfEmpty(cfg.Model, "gemini-2.0-flash")}
	if cfg.APIKey == "" {
		return provider, nil
	}
	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := newGenAIClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	provider.models = client.Models
	return provider, nil
}

func (p *GeminiProvider) Generate(ctx context.Context, req Request) (string, error) {
	if p.models == nil {
		return "", errors.New("missing API key for remote provider")
	}
	var config *genai.GenerateContentConfig
	if strings.TrimSpace(req.SystemInstruction) != "" {
		config = &genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(req.SystemInstruction, genai.RoleUser),
		}
	}
	resp, err := p.models.GenerateContent(ctx, modelFor(req, p.model), genai.Text(req.Prompt), config)
	if err != nil {
		return "", mapGeminiError(err)
	}
	if resp == nil {
		return "", errors.New("LLM response was empty")
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", errors.New("LLM response was empty")
	}
	return text, nil
}

func mapGeminiError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusTooManyRequests {
		return RateLimitError{Provider: "gemini", Message: apiErr.Message}
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr.Code == http.StatusTooManyRequests {
		return RateLimitError{Provider: "gemini", Message: apiErrPtr.Message}
	}
	return fmt.Errorf("gemini generate: %w", err)
}
