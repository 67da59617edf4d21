package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// defaultSystemPrompt frames the assistant as a patient speaking coach. It is
// the prompt the service shipped with; operators can replace it via SYSTEM_PROMPT.
const defaultSystemPrompt = "You are a supportive teacher helping students understand and retain new concepts " +
	"while practicing public speaking. " +
	"Explain ideas clearly and simply, assuming the student may not know key terms. " +
	"If you use a new concept, define it in plain language and give a quick example. " +
	"Help students understand the main idea before details and connect new concepts " +
	"to things they already know. " +
	"Encourage students to practice explaining ideas out loud in their own words. " +
	"If something seems unclear or confusing, slow down and re-explain it a different way. " +
	"End each response with one or two quick recall questions or a short speaking exercise " +
	"to help the student remember the concept."

// Config contains all runtime settings for the voice-chat service.
type Config struct {
	BindAddr         string
	ShutdownTimeout  time.Duration
	MetricsNamespace string

	AllowAnyOrigin bool

	// Groq speaks the OpenAI wire API; one credential covers both the
	// transcription and the conversation capability.
	GroqAPIKey   string
	GroqBaseURL  string
	STTModel     string
	ChatModel    string
	SystemPrompt string

	DatabaseURL    string
	PersistWorkers int

	AudioMinBytes int
	AudioMaxBytes int
}

// Load reads environment variables and applies safe defaults. GROQ_API_KEY is
// the only hard requirement; an empty DATABASE_URL selects the in-memory store.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:         envOrDefault("APP_BIND_ADDR", ":8080"),
		MetricsNamespace: envOrDefault("APP_METRICS_NAMESPACE", "amica"),
		AllowAnyOrigin:   false,
		GroqAPIKey:       envTrimmed("GROQ_API_KEY"),
		GroqBaseURL:      envOrDefault("GROQ_BASE_URL", "https://api.groq.com/openai/v1"),
		STTModel:         envOrDefault("STT_MODEL", "whisper-large-v3-turbo"),
		ChatModel:        envOrDefault("CHAT_MODEL", "llama-3.3-70b-versatile"),
		SystemPrompt:     envOrDefault("SYSTEM_PROMPT", defaultSystemPrompt),
		DatabaseURL:      envTrimmed("DATABASE_URL"),
		PersistWorkers:   4,
		AudioMinBytes:    8000,
		AudioMaxBytes:    500_000,
		ShutdownTimeout:  15 * time.Second,
	}

	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.AllowAnyOrigin, err = boolFromEnv("APP_ALLOW_ANY_ORIGIN", cfg.AllowAnyOrigin)
	if err != nil {
		return Config{}, err
	}
	cfg.PersistWorkers, err = intFromEnv("PERSIST_WORKERS", cfg.PersistWorkers)
	if err != nil {
		return Config{}, err
	}
	cfg.AudioMinBytes, err = intFromEnv("AUDIO_MIN_BYTES", cfg.AudioMinBytes)
	if err != nil {
		return Config{}, err
	}
	cfg.AudioMaxBytes, err = intFromEnv("AUDIO_MAX_BYTES", cfg.AudioMaxBytes)
	if err != nil {
		return Config{}, err
	}

	if cfg.GroqAPIKey == "" {
		return Config{}, fmt.Errorf("GROQ_API_KEY is required")
	}
	if cfg.PersistWorkers <= 0 {
		return Config{}, fmt.Errorf("PERSIST_WORKERS must be positive")
	}
	if cfg.AudioMinBytes <= 0 {
		return Config{}, fmt.Errorf("AUDIO_MIN_BYTES must be positive")
	}
	if cfg.AudioMaxBytes <= cfg.AudioMinBytes {
		return Config{}, fmt.Errorf("AUDIO_MAX_BYTES must be greater than AUDIO_MIN_BYTES")
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

func envTrimmed(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := envTrimmed(key)
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
	v := envTrimmed(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(envTrimmed(key))
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
