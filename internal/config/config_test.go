package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.BindAddr != ":8080" {
		t.Fatalf("BindAddr = %q", cfg.BindAddr)
	}
	if cfg.SessionIdleTimeout != time.Minute {
		t.Fatalf("SessionIdleTimeout = %v, want 1m", cfg.SessionIdleTimeout)
	}
	if cfg.CompletionModel != "gpt-4o-mini" {
		t.Fatalf("CompletionModel = %q", cfg.CompletionModel)
	}
	if cfg.CompletionTemperature != 0.4 {
		t.Fatalf("CompletionTemperature = %v", cfg.CompletionTemperature)
	}
	if cfg.TTSFormat != "mp3" {
		t.Fatalf("TTSFormat = %q", cfg.TTSFormat)
	}
	if cfg.SystemPrompt == "" {
		t.Fatalf("SystemPrompt empty")
	}
	if cfg.AllowAnyOrigin {
		t.Fatalf("AllowAnyOrigin should default to false")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("APP_BIND_ADDR", ":9191")
	t.Setenv("APP_SESSION_IDLE_TIMEOUT", "90s")
	t.Setenv("LLM_COMPLETION_TEMPERATURE", "0.7")
	t.Setenv("APP_TRANSCRIPT_TOKEN_BUDGET", "0")
	t.Setenv("APP_ALLOW_ANY_ORIGIN", "yes")
	t.Setenv("LLM_API_KEY", "  sk-test  ")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.BindAddr != ":9191" {
		t.Fatalf("BindAddr = %q", cfg.BindAddr)
	}
	if cfg.SessionIdleTimeout != 90*time.Second {
		t.Fatalf("SessionIdleTimeout = %v", cfg.SessionIdleTimeout)
	}
	if cfg.CompletionTemperature != 0.7 {
		t.Fatalf("CompletionTemperature = %v", cfg.CompletionTemperature)
	}
	if cfg.TranscriptTokenBudget != 0 {
		t.Fatalf("TranscriptTokenBudget = %d", cfg.TranscriptTokenBudget)
	}
	if !cfg.AllowAnyOrigin {
		t.Fatalf("AllowAnyOrigin not parsed")
	}
	if cfg.LLMAPIKey != "sk-test" {
		t.Fatalf("LLMAPIKey = %q, want trimmed", cfg.LLMAPIKey)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := []struct{ key, value string }{
		{"APP_SESSION_IDLE_TIMEOUT", "2s"},
		{"APP_SESSION_IDLE_TIMEOUT", "not-a-duration"},
		{"APP_JANITOR_INTERVAL", "0s"},
		{"LLM_COMPLETION_TEMPERATURE", "3.5"},
		{"APP_TRANSCRIPT_TOKEN_BUDGET", "-1"},
		{"APP_ALLOW_ANY_ORIGIN", "maybe"},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			if _, err := Load(); err == nil {
				t.Fatalf("Load() accepted %s=%q", tt.key, tt.value)
			}
		})
	}
}
