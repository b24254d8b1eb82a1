package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNormalizeDefaultsToLongpoll(t *testing.T) {
	cfg := &Config{Telegram: TelegramConfig{Token: "t", RunMode: " Polling "}}
	if err := Normalize(cfg); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if cfg.Telegram.RunMode != RunModeLongpoll {
		t.Fatalf("run mode = %q, want %q", cfg.Telegram.RunMode, RunModeLongpoll)
	}
}

func TestNormalizeRequiresToken(t *testing.T) {
	if err := Normalize(&Config{}); err == nil {
		t.Fatal("expected error for missing token")
	}
}

func TestNormalizeWebhookNeedsListener(t *testing.T) {
	cfg := &Config{
		Telegram: TelegramConfig{Token: "t", RunMode: "webhook"},
		Webhook:  WebhookConfig{URL: "https://example.org/hook"},
	}
	if err := Normalize(cfg); err == nil {
		t.Fatal("expected error for webhook without listen address")
	}
	cfg.Webhook.Listen = "0.0.0.0"
	cfg.Webhook.Port = 8443
	if err := Normalize(cfg); err != nil {
		t.Fatalf("normalize: %v", err)
	}
}

func TestNormalizeLogFileDefault(t *testing.T) {
	cfg := &Config{
		Telegram: TelegramConfig{Token: "t"},
		Logging:  LoggingConfig{Dir: "logs"},
	}
	if err := Normalize(cfg); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if cfg.Logging.BotFile == "" {
		t.Fatal("expected default bot file when dir is set")
	}
}

func TestLoadAppliesEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := []byte("telegram:\n  token: from-file\n  run_mode: longpoll\nlogging:\n  level: info\n")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("BOT_TOKEN", "from-env")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Telegram.Token != "from-env" {
		t.Fatalf("token = %q, want env override", cfg.Telegram.Token)
	}
	if cfg.Logging.Level != "info" {
		t.Fatalf("level = %q, want value from file", cfg.Logging.Level)
	}
}
