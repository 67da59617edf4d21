package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	setCoreEnvEmpty(t)
	t.Setenv("GROQ_API_KEY", "gsk_test")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.BindAddr != ":8080" {
		t.Fatalf("BindAddr = %q, want %q", cfg.BindAddr, ":8080")
	}
	if cfg.STTModel != "whisper-large-v3-turbo" {
		t.Fatalf("STTModel = %q, want default", cfg.STTModel)
	}
	if cfg.ChatModel != "llama-3.3-70b-versatile" {
		t.Fatalf("ChatModel = %q, want default", cfg.ChatModel)
	}
	if cfg.AudioMinBytes != 8000 || cfg.AudioMaxBytes != 500_000 {
		t.Fatalf("audio thresholds = %d/%d, want 8000/500000", cfg.AudioMinBytes, cfg.AudioMaxBytes)
	}
	if cfg.PersistWorkers != 4 {
		t.Fatalf("PersistWorkers = %d, want 4", cfg.PersistWorkers)
	}
	if cfg.DatabaseURL != "" {
		t.Fatalf("DatabaseURL = %q, want empty default", cfg.DatabaseURL)
	}
	if cfg.SystemPrompt == "" {
		t.Fatalf("SystemPrompt should have a default")
	}
}

func TestLoadRequiresAPIKey(t *testing.T) {
	setCoreEnvEmpty(t)

	if _, err := Load(); err == nil {
		t.Fatalf("Load() without GROQ_API_KEY should fail")
	}
}

func TestLoadRejectsInvertedAudioThresholds(t *testing.T) {
	setCoreEnvEmpty(t)
	t.Setenv("GROQ_API_KEY", "gsk_test")
	t.Setenv("AUDIO_MIN_BYTES", "500000")
	t.Setenv("AUDIO_MAX_BYTES", "8000")

	if _, err := Load(); err == nil {
		t.Fatalf("Load() with max <= min should fail")
	}
}

func TestLoadUsesExplicitDatabaseURL(t *testing.T) {
	setCoreEnvEmpty(t)
	t.Setenv("GROQ_API_KEY", "gsk_test")
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/amica")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.DatabaseURL != "postgres://localhost:5432/amica" {
		t.Fatalf("DatabaseURL = %q, want explicit value", cfg.DatabaseURL)
	}
}

func setCoreEnvEmpty(t *testing.T) {
	t.Helper()
	keys := []string{
		"APP_BIND_ADDR",
		"APP_SHUTDOWN_TIMEOUT",
		"APP_METRICS_NAMESPACE",
		"APP_ALLOW_ANY_ORIGIN",
		"GROQ_API_KEY",
		"GROQ_BASE_URL",
		"STT_MODEL",
		"CHAT_MODEL",
		"SYSTEM_PROMPT",
		"DATABASE_URL",
		"PERSIST_WORKERS",
		"AUDIO_MIN_BYTES",
		"AUDIO_MAX_BYTES",
	}
	for _, key := range keys {
		t.Setenv(key, "")
	}
}
