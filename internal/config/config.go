package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Port                    string
	StoreDriver             string
	PostgresURL             string
	TemporalAddress         string
	TemporalTaskQueue       string
	PlanningMode            string
	LLMMode                 string
	LLMProvider             string
	LLMModel                string
	LLMBaseURL              string
	GeminiAPIKey            string
	OpenAIAPIKey            string
	OpenRouterAPIKey        string
	LLMAPIKeyEnc            string
	LLMSecretsKey           string
	PromptsPath             string
	CalendarTimezone        string
	FragmentLimit           int
	HistoryWindow           int
	PlanningWindowDays      int
	FragmentChunkChars      int
	FragmentChunkOverlap    int
	FragmentMaxChunks       int
	FragmentMinContentChars int
	FragmentMaxContentBytes int
	LogLevel                string
	Environment             string
	RequestLog              bool
}

func Load() Config {
	postgresURL := getEnv("POSTGRES_URL", "")
	if postgresURL == "" {
		postgresURL = buildPostgresURL()
	}
	return Config{
		Port:                    getEnv("PORT", "8080"),
		StoreDriver:             strings.ToLower(getEnv("STORE_DRIVER", "memory")),
		PostgresURL:             postgresURL,
		TemporalAddress:         getEnv("TEMPORAL_ADDRESS", "localhost:7233"),
		TemporalTaskQueue:       getEnv("TEMPORAL_TASK_QUEUE", "notes-planning"),
		PlanningMode:            strings.ToLower(getEnv("PLANNING_MODE", "inline")),
		LLMMode:                 getEnv("LLM_MODE", "remote"),
		LLMProvider:             getEnv("LLM_PROVIDER", "gemini"),
		LLMModel:                getEnv("LLM_MODEL", "gemini-2.0-flash"),
		LLMBaseURL:              getEnv("LLM_BASE_URL", ""),
		GeminiAPIKey:            getEnv("GEMINI_API_KEY", ""),
		OpenAIAPIKey:            getEnv("OPENAI_API_KEY", ""),
		OpenRouterAPIKey:        getEnv("OPENROUTER_API_KEY", ""),
		LLMAPIKeyEnc:            getEnv("LLM_API_KEY_ENC", ""),
		LLMSecretsKey:           getEnv("LLM_SECRETS_KEY", ""),
		PromptsPath:             getEnv("PROMPTS_PATH", ""),
		CalendarTimezone:        getEnv("CALENDAR_TIMEZONE", "UTC"),
		FragmentLimit:           getEnvInt("FRAGMENT_LIMIT", 5),
		HistoryWindow:           getEnvInt("HISTORY_WINDOW", 10),
		PlanningWindowDays:      getEnvInt("PLANNING_WINDOW_DAYS", 30),
		FragmentChunkChars:      getEnvInt("FRAGMENT_CHUNK_CHARS", 1200),
		FragmentChunkOverlap:    getEnvInt("FRAGMENT_CHUNK_OVERLAP", 200),
		FragmentMaxChunks:       getEnvInt("FRAGMENT_MAX_CHUNKS", 50),
		FragmentMinContentChars: getEnvInt("FRAGMENT_MIN_CONTENT_CHARS", 12),
		FragmentMaxContentBytes: getEnvInt("FRAGMENT_MAX_CONTENT_BYTES", 200000),
		LogLevel:                getEnv("LOG_LEVEL", "info"),
		Environment:             getEnv("ENVIRONMENT", "development"),
		RequestLog:              getEnvBool("HTTP_REQUEST_LOG", true),
	}
}

// ProviderAPIKey returns the plaintext key configured for the active provider.
func (c Config) ProviderAPIKey() string {
	switch c.LLMProvider {
	case "gemini":
		return c.GeminiAPIKey
	case "openai":
		return c.OpenAIAPIKey
	case "openrouter":
		return c.OpenRouterAPIKey
	default:
		return ""
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.Atoi(value)
		if err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.ParseBool(value)
		if err == nil {
			return parsed
		}
	}
	return fallback
}

func buildPostgresURL() string {
	user := getEnv("POSTGRES_USER", "notes")
	password := getEnv("POSTGRES_PASSWORD", "notes")
	host := getEnv("POSTGRES_HOST", "localhost")
	port := getEnv("POSTGRES_PORT", "5432")
	database := getEnv("POSTGRES_DB", "notes")
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", user, password, host, port, database)
}
