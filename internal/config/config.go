// Package config resolves the workforce home directory and the environment
// driven runtime settings, and builds the provider registry from them.
package config

import (
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/zygen-arch/NuiFlo-WorkForce/internal/provider"
	"github.com/zygen-arch/NuiFlo-WorkForce/pkg/models"
)

// Settings holds the environment driven runtime configuration. Zero values
// fall back to defaults at the point of use.
type Settings struct {
	OllamaBaseURL    string
	OpenAIAPIKey     string
	OpenAIBaseURL    string
	AnthropicAPIKey  string
	AnthropicBaseURL string

	DBDriver string // "sqlite" (default) or "postgres"
	DBURL    string // postgres DSN or sqlite file DSN

	APIKey        string // HTTP API bearer token; empty disables auth
	ListenAddr    string
	MaxConcurrent int
	CallTimeout   time.Duration
}

// FromEnv reads settings from the process environment.
func FromEnv() Settings {
	s := Settings{
		OllamaBaseURL:    envOr("OLLAMA_BASE_URL", "http://localhost:11434"),
		OpenAIAPIKey:     os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:    envOr("OPENAI_BASE_URL", "https://api.openai.com"),
		AnthropicAPIKey:  os.Getenv("ANTHROPIC_API_KEY"),
		AnthropicBaseURL: envOr("ANTHROPIC_BASE_URL", "https://api.anthropic.com"),
		DBDriver:         envOr("WORKFORCE_DB_DRIVER", "sqlite"),
		DBURL:            os.Getenv("WORKFORCE_DB_URL"),
		APIKey:           os.Getenv("WORKFORCE_API_KEY"),
		ListenAddr:       envOr("WORKFORCE_LISTEN_ADDR", ":8090"),
		MaxConcurrent:    models.DefaultMaxConcurrentCalls,
		CallTimeout:      60 * time.Second,
	}
	if v := os.Getenv("WORKFORCE_MAX_CONCURRENT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			s.MaxConcurrent = n
		}
	}
	if v := os.Getenv("WORKFORCE_CALL_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			s.CallTimeout = d
		}
	}
	return s
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// BuildRegistry registers an adapter per configured backend, each wrapped in
// a circuit breaker. Paid backends without an API key stay unregistered so
// routing treats them as unavailable rather than failing at call time.
func BuildRegistry(s Settings) *provider.Registry {
	reg := provider.NewRegistry()
	client := &http.Client{Timeout: s.CallTimeout}

	reg.Register(provider.LocalMistral, provider.WithBreaker(&provider.Local{
		BaseURL: s.OllamaBaseURL,
		Client:  client,
	}))

	if s.OpenAIAPIKey != "" {
		openai := &provider.OpenAI{BaseURL: s.OpenAIBaseURL, APIKey: s.OpenAIAPIKey, Client: client}
		reg.Register(provider.OpenAIGPT4, provider.WithBreaker(openai))
		reg.Register(provider.OpenAIGPT35, provider.WithBreaker(openai))
	} else {
		slog.Info("OPENAI_API_KEY not set; openai backends unavailable")
	}

	if s.AnthropicAPIKey != "" {
		reg.Register(provider.AnthropicHaiku, provider.WithBreaker(&provider.Anthropic{
			BaseURL: s.AnthropicBaseURL,
			APIKey:  s.AnthropicAPIKey,
			Client:  client,
		}))
	} else {
		slog.Info("ANTHROPIC_API_KEY not set; anthropic backend unavailable")
	}

	return reg
}
