// Package app wires the submission bot together.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/postbot/core/bootstrap"
	"github.com/m3rciful/postbot/core/logger"
	coretelegram "github.com/m3rciful/postbot/core/telegram"
	"github.com/m3rciful/postbot/core/telegram/commands"
	"github.com/m3rciful/postbot/core/telegram/router"
	"github.com/m3rciful/postbot/core/telegram/sender"
	"github.com/m3rciful/postbot/internal/journal"
	"github.com/m3rciful/postbot/internal/lifecycle"
	"github.com/m3rciful/postbot/internal/membership"
	"github.com/m3rciful/postbot/internal/publish"
	"github.com/m3rciful/postbot/internal/staging"

	tele "gopkg.in/telebot.v4"
)

// Stats is the read side of the publication log used by /pending and /mine.
type Stats interface {
	CountSince(ctx context.Context, since time.Time) (int, error)
	LatestByOwner(ctx context.Context, ownerID int64, limit int) ([]journal.Publication, error)
}

// Deps are the collaborators of an App. Zero fields are built from Bot.
type Deps struct {
	Bot       *tele.Bot
	DB        *sqlx.DB
	Gate      lifecycle.Gate
	Messenger lifecycle.Messenger
	Notifier  lifecycle.Notifier
	Journal   lifecycle.Journal
	Stats     Stats
	Queue     *sender.Dispatcher
}

// App owns the controller and the Telegram wiring around it.
type App struct {
	cfg      *Config
	bot      *tele.Bot
	db       *sqlx.DB
	ctl      *lifecycle.Controller
	stats    Stats
	queue    *sender.Dispatcher
	registry *coretelegram.Registry
}

// Bootstrap initializes logging and the optional database, then builds the bot.
func Bootstrap(cfg *Config) (*App, error) {
	res, err := bootstrap.Run(bootstrap.Options{
		Config:   &cfg.Config,
		Database: cfg.Database,
	})
	if err != nil {
		return nil, err
	}

	bot, err := coretelegram.NewBot(&cfg.Config)
	if err != nil {
		closeDB(res.DB)
		return nil, err
	}
	deps := Deps{Bot: bot, DB: res.DB}
	if res.DB != nil {
		repo := journal.NewRepository(res.DB)
		deps.Journal, deps.Stats = repo, repo
	}
	return New(cfg, deps)
}

// New assembles an App from cfg and deps.
func New(cfg *Config, deps Deps) (*App, error) {
	if cfg == nil {
		return nil, errors.New("app: nil config")
	}
	if deps.Bot == nil {
		return nil, errors.New("app: nil bot")
	}
	channel := lifecycle.Chat(cfg.Channel.ID)

	if deps.Gate == nil {
		deps.Gate = membership.NewGate(deps.Bot, channel, membership.Options{
			CacheTTL: time.Duration(cfg.Staging.MembershipCacheSeconds) * time.Second,
		})
	}
	if deps.Messenger == nil {
		deps.Messenger = publish.NewMessenger(deps.Bot)
	}
	if deps.Queue == nil {
		deps.Queue = sender.NewDispatcher(sender.Options{MaxRetries: 2})
	}
	if deps.Notifier == nil {
		deps.Notifier = publish.NewDeferred(deps.Messenger, deps.Queue)
	}

	ctl, err := lifecycle.NewController(lifecycle.Options{
		Store:       staging.NewStore(),
		Gate:        deps.Gate,
		Messenger:   deps.Messenger,
		Notifier:    deps.Notifier,
		Journal:     deps.Journal,
		Channel:     channel,
		Messages:    cfg.Messages,
		SkipPreview: cfg.Staging.SkipPreview,
	})
	if err != nil {
		return nil, err
	}

	a := &App{
		cfg:      cfg,
		bot:      deps.Bot,
		db:       deps.DB,
		ctl:      ctl,
		stats:    deps.Stats,
		queue:    deps.Queue,
		registry: coretelegram.NewRegistry(),
	}
	if err := a.register(); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *App) register() error {
	cmds := map[string]commands.Command{
		"/start":   {Handler: a.onStart, Description: "Start a new post"},
		"/cancel":  {Handler: a.onCancel, Description: "Discard the current post"},
		"/mine":    {Handler: a.onMine, Description: "Show your draft and recent posts"},
		"/pending": {Handler: a.onPending, Description: "Show staging statistics", AdminOnly: true},
	}
	for name, cmd := range cmds {
		if err := a.registry.RegisterCommand(name, cmd); err != nil {
			return fmt.Errorf("app: %w", err)
		}
	}
	for _, action := range lifecycle.Actions() {
		if err := a.registry.RegisterCallback(action.String(), a.onAction(action)); err != nil {
			return fmt.Errorf("app: %w", err)
		}
	}
	a.registry.SetTextFallback(a.onContent)
	return nil
}

// Routes returns every handler the bot serves.
func (a *App) Routes() []coretelegram.Route {
	routes := router.CommandRoutes(a.registry, router.CommandRouteOptions{AdminID: a.cfg.Telegram.AdminID})
	routes = append(routes, router.CallbackRoute(a.registry))
	return append(routes, router.ContentRoutes(a.registry, router.ContentOptions{})...)
}

// TelegramRunOptions implements the runner contract of core/cmd.
func (a *App) TelegramRunOptions() (coretelegram.RunOptions, error) {
	return coretelegram.RunOptions{
		Config:      &a.cfg.Config,
		Registry:    a.registry,
		Bot:         a.bot,
		Dispatcher:  a.queue,
		Middlewares: coretelegram.DefaultMiddlewares(),
		Routes:      a.Routes(),
		OnError:     a.onError,
		OnStart: func(ctx context.Context, _ coretelegram.Runtime) error {
			logger.Info(ctx, "app", "config",
				slog.String("channel", a.cfg.Channel.ID),
				slog.Bool("skip_preview", a.cfg.Staging.SkipPreview),
				slog.Bool("journal", a.stats != nil),
			)
			return nil
		},
		OnStop: func(ctx context.Context, _ coretelegram.Runtime) error {
			logger.Info(ctx, "app", "staging.dropped",
				slog.Int("pending", a.ctl.Pending()),
			)
			closeDB(a.db)
			return nil
		},
	}, nil
}

func closeDB(db *sqlx.DB) {
	if db == nil {
		return
	}
	if err := db.Close(); err != nil {
		logger.DB.Warn("db close failed",
			slog.String("event", "db.close"),
			slog.String("err", err.Error()),
		)
	}
}
