package model

import (
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Pipeline.BatchSize != 10 {
		t.Errorf("expected batch size 10, got %d", cfg.Pipeline.BatchSize)
	}
	if cfg.Pipeline.MaxWorkers != 5 {
		t.Errorf("expected 5 workers, got %d", cfg.Pipeline.MaxWorkers)
	}
	if cfg.Pipeline.MaxRetries != 3 {
		t.Errorf("expected 3 retries, got %d", cfg.Pipeline.MaxRetries)
	}
	if cfg.Pipeline.RetryDelay != 2*time.Second {
		t.Errorf("expected 2s retry delay, got %v", cfg.Pipeline.RetryDelay)
	}
	if cfg.KB.TopK != 5 {
		t.Errorf("expected top_k 5, got %d", cfg.KB.TopK)
	}
	if !cfg.Pipeline.FailOpen || !cfg.Pipeline.CacheEnabled {
		t.Error("fail-open and caching must default to on")
	}
}

func TestValidateRequiredCredentials(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LLM.APIKey = ""

	if err := cfg.Validate(false); err == nil {
		t.Error("missing OPENAI_API_KEY with the openai backend must be fatal")
	}

	cfg.LLM.APIKey = "sk-test"
	if err := cfg.Validate(false); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	if err := cfg.Validate(true); err == nil {
		t.Error("missing DATABASE_URL must be fatal when the KB is needed")
	}
	cfg.KB.DatabaseURL = "postgres://localhost/kb"
	if err := cfg.Validate(true); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidateOllamaNeedsNoKey(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LLM.Backend = "ollama"
	cfg.LLM.APIKey = ""

	if err := cfg.Validate(false); err != nil {
		t.Errorf("ollama backend must not require OPENAI_API_KEY: %v", err)
	}
}

func TestValidateSettings(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LLM.APIKey = "sk-test"

	cfg.Pipeline.BatchSize = 0
	if err := cfg.Validate(false); err == nil {
		t.Error("zero batch size must be rejected")
	}

	cfg = DefaultConfig()
	cfg.LLM.APIKey = "sk-test"
	cfg.KB.TopK = -1
	if err := cfg.Validate(false); err == nil {
		t.Error("negative top_k must be rejected")
	}
}
