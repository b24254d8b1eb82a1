package telegram

import (
	"fmt"
	"log/slog"
	"time"

	coreconfig "github.com/m3rciful/postbot/core/config"
	"github.com/m3rciful/postbot/core/logger"

	tele "gopkg.in/telebot.v4"
)

// Settings returns the telebot settings for cfg. Updates are handled one at a
// time in arrival order: an album arrives as several messages and only the
// first carries the caption, so concurrent handlers would stage the photos
// in whatever order their network calls return.
func Settings(cfg *coreconfig.Config, poller tele.Poller) tele.Settings {
	return tele.Settings{
		Token:       cfg.Telegram.Token,
		Poller:      poller,
		Client:      BuildHTTPClient(),
		Synchronous: true,
	}
}

// NewBot builds a telebot instance with the poller and HTTP client derived from cfg.
// It contacts the Bot API once (getMe) to validate the token.
func NewBot(cfg *coreconfig.Config) (*tele.Bot, error) {
	if cfg == nil {
		return nil, fmt.Errorf("telegram: nil config provided")
	}
	poller := BuildPoller(PollerOptions{
		RunMode:                cfg.Telegram.RunMode,
		LongPollTimeoutSeconds: cfg.Telegram.LongPollTimeoutSeconds,
		Webhook: WebhookOptions{
			Listen: cfg.Webhook.Listen,
			Port:   cfg.Webhook.Port,
			URL:    cfg.Webhook.URL,
		},
	})

	start := time.Now()
	bot, err := tele.NewBot(Settings(cfg, poller))
	if err != nil {
		return nil, fmt.Errorf("telegram: bot initialization failed: %w", err)
	}

	switch p := poller.(type) {
	case *tele.Webhook:
		logger.TG.Info("webhook mode",
			slog.String("event", "mode"),
			slog.String("mode", "webhook"),
			slog.String("listen", p.Listen),
			slog.String("public_url", p.Endpoint.PublicURL),
			slog.Duration("duration", time.Since(start)),
		)
	case *tele.LongPoller:
		logger.TG.Info("polling mode",
			slog.String("event", "mode"),
			slog.String("mode", "polling"),
			slog.Int("timeout_seconds", int(p.Timeout/time.Second)),
			slog.Duration("duration", time.Since(start)),
		)
	}
	return bot, nil
}
