package bootstrap

import (
	"errors"
	"testing"

	"github.com/jmoiron/sqlx"

	coreconfig "github.com/m3rciful/postbot/core/config"
	coredatabase "github.com/m3rciful/postbot/core/database"
)

func noopLogger(*coreconfig.Config) error { return nil }

func TestRunSkipsDatabaseWhenDisabled(t *testing.T) {
	connected := false
	res, err := Run(Options{
		Config:     &coreconfig.Config{},
		LoggerInit: noopLogger,
		Connect: func(coredatabase.Config) (*sqlx.DB, error) {
			connected = true
			return nil, nil
		},
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if connected {
		t.Fatal("connect must not be called without database.host")
	}
	if res.DB != nil {
		t.Fatal("expected nil DB")
	}
}

func TestRunPropagatesConnectError(t *testing.T) {
	boom := errors.New("boom")
	_, err := Run(Options{
		Config:     &coreconfig.Config{},
		Database:   coredatabase.Config{Host: "db"},
		LoggerInit: noopLogger,
		Connect: func(cfg coredatabase.Config) (*sqlx.DB, error) {
			if cfg.Port != "5432" {
				t.Fatalf("expected normalized port, got %q", cfg.Port)
			}
			return nil, boom
		},
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped connect error, got %v", err)
	}
}

func TestRunRequiresConfig(t *testing.T) {
	if _, err := Run(Options{}); err == nil {
		t.Fatal("expected error for nil config")
	}
}
