package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/Keyring-Network/keyring-notes/internal/assistant"
	"github.com/Keyring-Network/keyring-notes/internal/config"
	"github.com/Keyring-Network/keyring-notes/internal/events"
	"github.com/Keyring-Network/keyring-notes/internal/llm"
	"github.com/Keyring-Network/keyring-notes/internal/logging"
	"github.com/Keyring-Network/keyring-notes/internal/prompts"
	"github.com/Keyring-Network/keyring-notes/internal/secrets"
	"github.com/Keyring-Network/keyring-notes/internal/store"
	"github.com/Keyring-Network/keyring-notes/internal/store/memory"
	"github.com/Keyring-Network/keyring-notes/internal/store/postgres"
)

const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
)

// Runtime holds the collaborators shared by the HTTP server, the CLI and the
// Temporal worker.
type Runtime struct {
	Config    config.Config
	Logger    *zap.Logger
	Store     store.Store
	Broker    *events.Broker
	Assistant *assistant.Service

	closers []func() error
}

var (
	newPostgresStore = func(conn string) (store.Store, func() error, error) {
		st, err := postgres.New(conn)
		if err != nil {
			return nil, nil, err
		}
		return st, st.Close, nil
	}
	newProvider = llm.NewProvider
)

func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*Runtime, error) {
	logger = logging.OrNop(logger)

	st, closeStore, err := OpenStore(cfg)
	if err != nil {
		return nil, err
	}
	rt := &Runtime{Config: cfg, Logger: logger, Store: st}
	if closeStore != nil {
		rt.closers = append(rt.closers, closeStore)
	}

	provider, err := BuildProvider(ctx, cfg)
	if err != nil {
		_ = rt.Close()
		return nil, err
	}
	catalog, err := LoadCatalog(cfg)
	if err != nil {
		_ = rt.Close()
		return nil, err
	}

	rt.Broker = events.NewBroker()
	rt.Assistant = assistant.NewService(assistant.Deps{
		Store:    st,
		Provider: provider,
		Catalog:  catalog,
		Notifier: rt.Broker,
		Logger:   logger,
	}, assistant.Config{
		Model:              cfg.LLMModel,
		FragmentLimit:      cfg.FragmentLimit,
		HistoryWindow:      cfg.HistoryWindow,
		PlanningWindowDays: cfg.PlanningWindowDays,
	})

	logger.Info("runtime ready",
		zap.String("store", cfg.StoreDriver),
		zap.String("llm_mode", cfg.LLMMode),
		zap.String("llm_provider", cfg.LLMProvider),
		zap.String("planning_mode", cfg.PlanningMode),
	)
	return rt, nil
}

func (r *Runtime) Close() error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	r.closers = nil
	return errors.Join(errs...)
}

// OpenStore picks the persistence backend named by STORE_DRIVER. The returned
// close func is nil for the in-memory store.
func OpenStore(cfg config.Config) (store.Store, func() error, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.StoreDriver)) {
	case "", DriverMemory:
		return memory.New(), nil, nil
	case DriverPostgres:
		st, closeFn, err := newPostgresStore(cfg.PostgresURL)
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres store: %w", err)
		}
		return st, closeFn, nil
	default:
		return nil, nil, fmt.Errorf("unsupported store driver: %s", cfg.StoreDriver)
	}
}

// BuildProvider resolves the provider API key, opening the sealed key when no
// plaintext one is configured, and constructs the completion provider.
func BuildProvider(ctx context.Context, cfg config.Config) (llm.Provider, error) {
	apiKey, err := secrets.ResolveAPIKey(cfg.ProviderAPIKey(), cfg.LLMAPIKeyEnc, cfg.LLMSecretsKey)
	if err != nil {
		return nil, fmt.Errorf("resolve llm api key: %w", err)
	}
	llmCfg := llm.Config{
		Mode:             cfg.LLMMode,
		Provider:         cfg.LLMProvider,
		Model:            cfg.LLMModel,
		BaseURL:          cfg.LLMBaseURL,
		GeminiAPIKey:     cfg.GeminiAPIKey,
		OpenAIAPIKey:     cfg.OpenAIAPIKey,
		OpenRouterAPIKey: cfg.OpenRouterAPIKey,
	}
	switch cfg.LLMProvider {
	case "gemini":
		llmCfg.GeminiAPIKey = apiKey
	case "openai":
		llmCfg.OpenAIAPIKey = apiKey
	case "openrouter":
		llmCfg.OpenRouterAPIKey = apiKey
	}
	return newProvider(ctx, llmCfg)
}

func LoadCatalog(cfg config.Config) (*prompts.Catalog, error) {
	path := strings.TrimSpace(cfg.PromptsPath)
	if path == "" {
		return prompts.Default(), nil
	}
	catalog, err := prompts.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load prompts from %s: %w", path, err)
	}
	return catalog, nil
}
