// Package config loads runtime settings from the environment, with an
// optional .env file for local development.
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Provider names accepted in LLM_PROVIDER.
const (
	ProviderHyperbolic = "hyperbolic"
	ProviderOpenRouter = "openrouter"
	ProviderAnthropic  = "anthropic"
)

// Vector backends accepted in VECTOR_BACKEND.
const (
	VectorBackendPinecone = "pinecone"
	VectorBackendLocal    = "local"
)

// Pinecone holds the vector index connection settings.
type Pinecone struct {
	APIKey    string
	IndexHost string
	Namespace string
}

// Resend holds the operator notification settings. Notifications are
// disabled when APIKey is empty.
type Resend struct {
	APIKey string
	From   string
	To     string
}

// GitHub holds the OAuth app credentials for the device flow.
type GitHub struct {
	ClientID     string
	ClientSecret string
	Scope        string
}

// Config is the full runtime configuration.
type Config struct {
	Port string

	Provider          string
	Model             string
	MaxTokens         int
	Temperature       float64
	TopP              float64
	RequestTimeout    time.Duration
	HyperbolicAPIKey  string
	OpenRouterAPIKey  string
	AnthropicAPIKey   string

	VectorBackend string
	LocalStoreDir string
	Pinecone      Pinecone

	Resend Resend
	GitHub GitHub
}

// Load reads configuration from the environment. A .env file in the
// working directory is applied first when present.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("[CONFIG] no .env file loaded: %v", err)
	}

	cfg := &Config{
		Port: getEnv("PORT", "8080"),

		Provider:         getEnv("LLM_PROVIDER", ProviderHyperbolic),
		Model:            getEnv("LLM_MODEL", "meta-llama/Meta-Llama-3.1-405B-Instruct"),
		MaxTokens:        getEnvAsInt("LLM_MAX_TOKENS", 2048),
		Temperature:      getEnvAsFloat("LLM_TEMPERATURE", 0.7),
		TopP:             getEnvAsFloat("LLM_TOP_P", 0.9),
		RequestTimeout:   getEnvAsDuration("REQUEST_TIMEOUT", 40*time.Second),
		HyperbolicAPIKey: getEnv("HYPERBOLIC_API_KEY", ""),
		OpenRouterAPIKey: getEnv("OPENROUTER_API_KEY", ""),
		AnthropicAPIKey:  getEnv("ANTHROPIC_API_KEY", ""),

		VectorBackend: getEnv("VECTOR_BACKEND", VectorBackendPinecone),
		LocalStoreDir: getEnv("LOCAL_STORE_DIR", ""),
		Pinecone: Pinecone{
			APIKey:    getEnv("PINECONE_API_KEY", ""),
			IndexHost: getEnv("PINECONE_INDEX_HOST", ""),
			Namespace: getEnv("PINECONE_NAMESPACE", "conversations"),
		},

		Resend: Resend{
			APIKey: getEnv("RESEND_API_KEY", ""),
			From:   getEnv("NOTIFY_FROM", ""),
			To:     getEnv("NOTIFY_TO", ""),
		},
		GitHub: GitHub{
			ClientID:     getEnv("GITHUB_CLIENT_ID", ""),
			ClientSecret: getEnv("GITHUB_CLIENT_SECRET", ""),
			Scope:        getEnv("GITHUB_SCOPE", "read:user"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Provider {
	case ProviderHyperbolic:
		if c.HyperbolicAPIKey == "" {
			return fmt.Errorf("config: HYPERBOLIC_API_KEY is required for provider %q", c.Provider)
		}
	case ProviderOpenRouter:
		if c.OpenRouterAPIKey == "" {
			return fmt.Errorf("config: OPENROUTER_API_KEY is required for provider %q", c.Provider)
		}
	case ProviderAnthropic:
		if c.AnthropicAPIKey == "" {
			return fmt.Errorf("config: ANTHROPIC_API_KEY is required for provider %q", c.Provider)
		}
	default:
		return fmt.Errorf("config: unknown LLM_PROVIDER %q", c.Provider)
	}

	switch c.VectorBackend {
	case VectorBackendPinecone:
		if c.Pinecone.APIKey == "" || c.Pinecone.IndexHost == "" {
			return fmt.Errorf("config: PINECONE_API_KEY and PINECONE_INDEX_HOST are required for the pinecone backend")
		}
	case VectorBackendLocal:
	default:
		return fmt.Errorf("config: unknown VECTOR_BACKEND %q", c.VectorBackend)
	}

	return nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("[CONFIG] %s=%q is not an integer, using %d", key, v, fallback)
		return fallback
	}
	return n
}

func getEnvAsFloat(key string, fallback float64) float64 {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Printf("[CONFIG] %s=%q is not a number, using %g", key, v, fallback)
		return fallback
	}
	return f
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("[CONFIG] %s=%q is not a duration, using %s", key, v, fallback)
		return fallback
	}
	return d
}
