package cmd

import (
	"context"
	"errors"
	"strings"
	"testing"

	coreconfig "github.com/m3rciful/postbot/core/config"
	coretelegram "github.com/m3rciful/postbot/core/telegram"
)

type stubConfig struct{ core *coreconfig.Config }

func (s stubConfig) CoreConfig() *coreconfig.Config { return s.core }

type stubApp struct{ opts coretelegram.RunOptions }

func (s stubApp) TelegramRunOptions() (coretelegram.RunOptions, error) { return s.opts, nil }

func TestRunRequiresConfigPath(t *testing.T) {
	t.Setenv("POSTBOT_TEST_CONFIG", "")
	err := Run(Options{
		ConfigEnvVar: "POSTBOT_TEST_CONFIG",
		LoadConfig:   func(string) (ConfigCarrier, error) { return nil, nil },
		Bootstrap:    func(ConfigCarrier) (TelegramApp, error) { return nil, nil },
	})
	if err == nil || !strings.Contains(err.Error(), "POSTBOT_TEST_CONFIG") {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestRunFlushesLoggerOnBootstrapFailure(t *testing.T) {
	flushed := false
	err := Run(Options{
		DefaultConfigPath: "config.yaml",
		LoadConfig: func(string) (ConfigCarrier, error) {
			return stubConfig{core: &coreconfig.Config{}}, nil
		},
		Bootstrap: func(ConfigCarrier) (TelegramApp, error) {
			return nil, errors.New("db down")
		},
		ShutdownLogger: func() error { flushed = true; return nil },
	})
	if err == nil || !strings.Contains(err.Error(), "db down") {
		t.Fatalf("unexpected error %v", err)
	}
	if !flushed {
		t.Fatal("logger must be flushed when bootstrap fails")
	}
}

func TestRunWrapsLifecycleHooks(t *testing.T) {
	var order []string
	err := Run(Options{
		DefaultConfigPath: "config.yaml",
		LoadConfig: func(string) (ConfigCarrier, error) {
			return stubConfig{core: &coreconfig.Config{}}, nil
		},
		Bootstrap: func(ConfigCarrier) (TelegramApp, error) {
			return stubApp{opts: coretelegram.RunOptions{
				OnStop: func(context.Context, coretelegram.Runtime) error {
					order = append(order, "app.stop")
					return nil
				},
			}}, nil
		},
		ShutdownLogger: func() error { order = append(order, "logger"); return nil },
		RunTelegram: func(ctx context.Context, opts coretelegram.RunOptions) error {
			if err := opts.OnStart(ctx, coretelegram.Runtime{}); err != nil {
				return err
			}
			order = append(order, "running")
			return opts.OnStop(ctx, coretelegram.Runtime{})
		},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if strings.Join(order, ",") != "running,app.stop,logger" {
		t.Fatalf("unexpected order %v", order)
	}
}
