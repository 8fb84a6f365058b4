package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// DefaultJWTSecret is used when JWT_SECRET is unset. Deployments are expected
// to override it; tokens signed with it are trivially forgeable.
const DefaultJWTSecret = "default-secret-key-please-change-in-settings"

type Config struct {
	// Server
	Port string // default: 8080

	// Database
	PostgresDSN string

	// Cache
	RedisAddr string

	// Auth
	JWTSecret string

	// Provider selection: "gemini", "openai" or "relay"
	Provider string

	GeminiAPIKey string
	GeminiModel  string // default: gemini-1.5-flash

	OpenAIAPIKey  string
	OpenAIBaseURL string // any OpenAI-compatible endpoint
	OpenAIModel   string // default: gpt-3.5-turbo

	RelayURL   string // upstream /process-style gateway
	RelayToken string

	// Outbound AI request timeout
	ProviderTimeout time.Duration // default: 120s

	// Observability
	OTELExporterType     string // "stdout" or "otlp"
	OTELExporterEndpoint string // default: "localhost:4317"
}

func Load() (*Config, error) {
	// Load .env file if present (non-fatal if missing)
	_ = godotenv.Load()

	cfg := &Config{
		Port:                 getEnv("PORT", "8080"),
		PostgresDSN:          os.Getenv("POSTGRES_DSN"),
		RedisAddr:            os.Getenv("REDIS_ADDR"),
		JWTSecret:            getEnv("JWT_SECRET", DefaultJWTSecret),
		Provider:             getEnv("AI_PROVIDER", "gemini"),
		GeminiAPIKey:         os.Getenv("GEMINI_API_KEY"),
		GeminiModel:          getEnv("GEMINI_MODEL", "gemini-1.5-flash"),
		OpenAIAPIKey:         os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:        getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		OpenAIModel:          getEnv("OPENAI_MODEL", "gpt-3.5-turbo"),
		RelayURL:             os.Getenv("RELAY_URL"),
		RelayToken:           os.Getenv("RELAY_TOKEN"),
		OTELExporterType:     getEnv("OTEL_EXPORTER_TYPE", "stdout"),
		OTELExporterEndpoint: getEnv("OTEL_EXPORTER_ENDPOINT", "localhost:4317"),
	}

	timeoutStr := getEnv("PROVIDER_TIMEOUT_SECONDS", "120")
	seconds, err := strconv.Atoi(timeoutStr)
	if err != nil || seconds <= 0 {
		return nil, fmt.Errorf("invalid PROVIDER_TIMEOUT_SECONDS: %q", timeoutStr)
	}
	cfg.ProviderTimeout = time.Duration(seconds) * time.Second

	// Validation
	if cfg.PostgresDSN == "" {
		return nil, fmt.Errorf("POSTGRES_DSN is required")
	}
	if cfg.RedisAddr == "" {
		return nil, fmt.Errorf("REDIS_ADDR is required")
	}
	switch cfg.Provider {
	case "gemini", "openai", "relay":
	default:
		return nil, fmt.Errorf("unknown AI_PROVIDER: %q", cfg.Provider)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}
