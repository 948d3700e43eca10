package config

import (
	"testing"
	"time"
)

func TestLoad_WriteTimeoutFollowsLLMTimeout(t *testing.T) {
	t.Setenv("LLM_TIMEOUT", "90s")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.WriteTimeout != 105*time.Second {
		t.Fatalf("expected 105s write timeout, got %s", cfg.Server.WriteTimeout)
	}
}

func TestLoad_WriteTimeoutDefaultsAndOverride(t *testing.T) {
	t.Setenv("LLM_TIMEOUT", "30s")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.WriteTimeout != DefaultWriteTimeout {
		t.Fatalf("expected %s, got %s", DefaultWriteTimeout, cfg.Server.WriteTimeout)
	}

	t.Setenv("SERVER_WRITE_TIMEOUT", "2m")
	cfg, err = Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.WriteTimeout != 2*time.Minute {
		t.Fatalf("expected override, got %s", cfg.Server.WriteTimeout)
	}
}
