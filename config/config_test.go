package config

import (
	"testing"
	"time"
)

func setMinimalEnv(t *testing.T) {
	t.Helper()
	t.Setenv("LLM_PROVIDER", ProviderHyperbolic)
	t.Setenv("HYPERBOLIC_API_KEY", "hk-test")
	t.Setenv("VECTOR_BACKEND", VectorBackendLocal)
}

func TestLoadDefaults(t *testing.T) {
	setMinimalEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("Port = %q", cfg.Port)
	}
	if cfg.MaxTokens != 2048 {
		t.Errorf("MaxTokens = %d", cfg.MaxTokens)
	}
	if cfg.RequestTimeout != 40*time.Second {
		t.Errorf("RequestTimeout = %s", cfg.RequestTimeout)
	}
	if cfg.Pinecone.Namespace != "conversations" {
		t.Errorf("Namespace = %q", cfg.Pinecone.Namespace)
	}
}

func TestLoadOverrides(t *testing.T) {
	setMinimalEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("LLM_MAX_TOKENS", "512")
	t.Setenv("LLM_TEMPERATURE", "0.2")
	t.Setenv("REQUEST_TIMEOUT", "10s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "9090" || cfg.MaxTokens != 512 {
		t.Errorf("overrides not applied: %+v", cfg)
	}
	if cfg.Temperature != 0.2 {
		t.Errorf("Temperature = %v", cfg.Temperature)
	}
	if cfg.RequestTimeout != 10*time.Second {
		t.Errorf("RequestTimeout = %s", cfg.RequestTimeout)
	}
}

func TestLoadInvalidNumbersFallBack(t *testing.T) {
	setMinimalEnv(t)
	t.Setenv("LLM_MAX_TOKENS", "not-a-number")
	t.Setenv("REQUEST_TIMEOUT", "soon")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.MaxTokens != 2048 {
		t.Errorf("MaxTokens = %d, want fallback 2048", cfg.MaxTokens)
	}
	if cfg.RequestTimeout != 40*time.Second {
		t.Errorf("RequestTimeout = %s, want fallback 40s", cfg.RequestTimeout)
	}
}

func TestLoadMissingProviderKey(t *testing.T) {
	t.Setenv("LLM_PROVIDER", ProviderOpenRouter)
	t.Setenv("OPENROUTER_API_KEY", "")
	t.Setenv("VECTOR_BACKEND", VectorBackendLocal)

	if _, err := Load(); err == nil {
		t.Error("expected error for missing provider key")
	}
}

func TestLoadUnknownProvider(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "nonsense")
	t.Setenv("VECTOR_BACKEND", VectorBackendLocal)

	if _, err := Load(); err == nil {
		t.Error("expected error for unknown provider")
	}
}

func TestLoadPineconeRequiresCredentials(t *testing.T) {
	t.Setenv("LLM_PROVIDER", ProviderHyperbolic)
	t.Setenv("HYPERBOLIC_API_KEY", "hk-test")
	t.Setenv("VECTOR_BACKEND", VectorBackendPinecone)
	t.Setenv("PINECONE_API_KEY", "")
	t.Setenv("PINECONE_INDEX_HOST", "")

	if _, err := Load(); err == nil {
		t.Error("expected error for missing pinecone credentials")
	}
}
