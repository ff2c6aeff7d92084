package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config contains all runtime settings for the live voice service.
type Config struct {
	BindAddr         string
	ShutdownTimeout  time.Duration
	MetricsNamespace string
	AllowAnyOrigin   bool

	SessionIdleTimeout time.Duration
	JanitorInterval    time.Duration
	SystemPrompt       string

	LLMBaseURL            string
	LLMAPIKey             string
	CompletionModel       string
	CompletionTemperature float64
	TranscriptionModel    string
	TranscriptionLanguage string
	TTSModel              string
	TTSVoice              string
	TTSFormat             string

	TranscribeTimeout     time.Duration
	CompleteTimeout       time.Duration
	SynthesizeTimeout     time.Duration
	TranscriptTokenBudget int

	DatabaseURL string
}

const defaultSystemPrompt = "You are a concise legal information assistant. " +
	"Answer in plain language, keep replies short enough to be spoken aloud, " +
	"and remind the user to consult a lawyer for advice specific to their situation."

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:         envOrDefault("APP_BIND_ADDR", ":8080"),
		MetricsNamespace: envOrDefault("APP_METRICS_NAMESPACE", "lexivoice"),
		AllowAnyOrigin:   false,
		SystemPrompt:     envOrDefault("APP_SYSTEM_PROMPT", defaultSystemPrompt),

		LLMBaseURL:            envOrDefault("LLM_BASE_URL", "https://api.openai.com/v1"),
		LLMAPIKey:             trimmedEnv("LLM_API_KEY"),
		CompletionModel:       envOrDefault("LLM_COMPLETION_MODEL", "gpt-4o-mini"),
		CompletionTemperature: 0.4,
		TranscriptionModel:    envOrDefault("LLM_TRANSCRIPTION_MODEL", "gpt-4o-transcribe"),
		TranscriptionLanguage: trimmedEnv("LLM_TRANSCRIPTION_LANGUAGE"),
		TTSModel:              envOrDefault("LLM_TTS_MODEL", "gpt-4o-mini-tts"),
		TTSVoice:              envOrDefault("LLM_TTS_VOICE", "alloy"),
		TTSFormat:             envOrDefault("LLM_TTS_FORMAT", "mp3"),

		DatabaseURL: trimmedEnv("DATABASE_URL"),

		ShutdownTimeout:       15 * time.Second,
		SessionIdleTimeout:    time.Minute,
		JanitorInterval:       30 * time.Second,
		TranscribeTimeout:     20 * time.Second,
		CompleteTimeout:       30 * time.Second,
		SynthesizeTimeout:     20 * time.Second,
		TranscriptTokenBudget: 6000,
	}

	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.SessionIdleTimeout, err = durationFromEnv("APP_SESSION_IDLE_TIMEOUT", cfg.SessionIdleTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.JanitorInterval, err = durationFromEnv("APP_JANITOR_INTERVAL", cfg.JanitorInterval)
	if err != nil {
		return Config{}, err
	}
	cfg.TranscribeTimeout, err = durationFromEnv("APP_TRANSCRIBE_TIMEOUT", cfg.TranscribeTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.CompleteTimeout, err = durationFromEnv("APP_COMPLETE_TIMEOUT", cfg.CompleteTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.SynthesizeTimeout, err = durationFromEnv("APP_SYNTHESIZE_TIMEOUT", cfg.SynthesizeTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.CompletionTemperature, err = floatFromEnv("LLM_COMPLETION_TEMPERATURE", cfg.CompletionTemperature)
	if err != nil {
		return Config{}, err
	}
	cfg.TranscriptTokenBudget, err = intFromEnv("APP_TRANSCRIPT_TOKEN_BUDGET", cfg.TranscriptTokenBudget)
	if err != nil {
		return Config{}, err
	}
	cfg.AllowAnyOrigin, err = boolFromEnv("APP_ALLOW_ANY_ORIGIN", cfg.AllowAnyOrigin)
	if err != nil {
		return Config{}, err
	}

	if cfg.SessionIdleTimeout < 5*time.Second {
		return Config{}, fmt.Errorf("APP_SESSION_IDLE_TIMEOUT must be at least 5s")
	}
	if cfg.JanitorInterval <= 0 {
		return Config{}, fmt.Errorf("APP_JANITOR_INTERVAL must be positive")
	}
	if cfg.CompletionTemperature < 0 || cfg.CompletionTemperature > 2 {
		return Config{}, fmt.Errorf("LLM_COMPLETION_TEMPERATURE must be in [0, 2]")
	}
	if cfg.TranscriptTokenBudget < 0 {
		return Config{}, fmt.Errorf("APP_TRANSCRIPT_TOKEN_BUDGET must be >= 0")
	}
	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func trimmedEnv(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := trimmedEnv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := trimmedEnv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func floatFromEnv(key string, fallback float64) (float64, error) {
	v := trimmedEnv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return f, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(trimmedEnv(key))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
}
