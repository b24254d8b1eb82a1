package app

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNormalizeChannel(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: " @market ", want: "@market"},
		{in: "-1001234567890", want: "-1001234567890"},
		{in: "", wantErr: true},
		{in: "@", wantErr: true},
		{in: "market", wantErr: true},
	}
	for _, tc := range cases {
		got, err := normalizeChannel(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("normalizeChannel(%q): expected error", tc.in)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Fatalf("normalizeChannel(%q) = %q, %v", tc.in, got, err)
		}
	}
}

func TestLoadFillsMessageDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`telegram:
  token: t
channel:
  id: "@market"
staging:
  skip_preview: true
messages:
  greeting: Hello
`)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Messages.Greeting != "Hello" {
		t.Fatalf("greeting = %q", cfg.Messages.Greeting)
	}
	if cfg.Messages.Success == "" || cfg.Messages.BtnPublish == "" {
		t.Fatal("missing texts must be filled from defaults")
	}
	if !cfg.Staging.SkipPreview || cfg.Channel.ID != "@market" {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.CoreConfig().Telegram.RunMode != "longpoll" {
		t.Fatalf("run mode = %q", cfg.CoreConfig().Telegram.RunMode)
	}
}

func TestLoadRejectsMissingChannel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("telegram:\n  token: t\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error without channel.id")
	}
}

func TestNormalizeRejectsNegativeCache(t *testing.T) {
	cfg := testConfig()
	cfg.Staging.MembershipCacheSeconds = -1
	if err := cfg.Normalize(); err == nil {
		t.Fatal("expected error for negative cache ttl")
	}
}
