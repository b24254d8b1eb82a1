package middleware

import (
	"log/slog"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/m3rciful/postbot/core/logger"
	"github.com/m3rciful/postbot/core/telegram/callbacks"
	tghelpers "github.com/m3rciful/postbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// recentUpdates remembers logged update IDs so webhook redeliveries are logged once.
var recentUpdates = expirable.NewLRU[int, struct{}](1024, nil, 30*time.Second)

func alreadyLogged(updateID int) bool {
	if _, ok := recentUpdates.Get(updateID); ok {
		return true
	}
	recentUpdates.Add(updateID, struct{}{})
	return false
}

// LoggerMiddleware sets the request id for the update and logs a single receipt line.
func LoggerMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		c.Set("update_start", time.Now())
		ctx := tghelpers.NewContext(c, "")

		o := tghelpers.OriginOf(c)
		if !logger.ShouldSampleDebug() || alreadyLogged(o.UpdateID) {
			return next(c)
		}

		attrs := []slog.Attr{
			slog.String("status", "ok"),
			slog.String("rid", logger.RIDFrom(ctx)),
			slog.Int("update_id", o.UpdateID),
		}
		if o.ChatID != 0 {
			attrs = append(attrs,
				slog.Int64("chat_id", o.ChatID),
				slog.String("chat_type", string(o.ChatType)),
			)
		}
		if u := c.Sender(); u != nil {
			attrs = append(attrs, slog.Int64("user_id", u.ID))
			if u.Username != "" {
				attrs = append(attrs, slog.String("username", logger.SanitizeLimit(u.Username, 64)))
			}
		}

		upd := c.Update()
		switch {
		case upd.Callback != nil:
			if key, payload := callbacks.ParseCallbackData(upd.Callback); key != "" {
				attrs = append(attrs, slog.String("cb_key", logger.SanitizeLimit(key, 128)))
				if payload != "" {
					attrs = append(attrs, slog.String("payload", logger.SanitizeLimit(payload, 256)))
				}
			}
		case upd.Message != nil:
			if t := c.Text(); t != "" {
				attrs = append(attrs, slog.Int("text_len", len(t)))
			}
			if upd.Message.Photo != nil {
				attrs = append(attrs, slog.String("media", "photo"))
			}
		}
		logger.LogEvent(ctx, logger.Component("tg"), slog.LevelDebug, "update.received", attrs...)
		return next(c)
	}
}
