package router

import (
	"time"

	tg "github.com/m3rciful/postbot/core/telegram"

	tele "gopkg.in/telebot.v4"
)

// ContentOptions controls routing of plain user messages.
type ContentOptions struct {
	// OnContent receives text and photo messages that are not commands.
	// The registry's text fallback is used when nil.
	OnContent tele.HandlerFunc
}

// ContentRoutes builds handlers for text and photo messages. Text that names a
// registered public command in a form telebot did not route itself ("/cmd@bot")
// reaches that command first.
func ContentRoutes(reg *tg.Registry, opts ContentOptions) []tg.Route {
	content := opts.OnContent
	if content == nil && reg != nil {
		content = reg.TextFallback()
	}

	handleContent := func(c tele.Context, start time.Time) error {
		if content == nil {
			logHandlerSummary(c, "content", start, "skip", nil)
			return nil
		}
		return handleWithSummary(c, "content", start, func() error {
			return content(c)
		})
	}

	textHandler := func(c tele.Context) error {
		start := time.Now()
		if reg != nil {
			if key, cmd, ok := reg.LookupCommand(c.Text()); ok && cmd.Handler != nil && !cmd.AdminOnly {
				return handleWithSummary(c, normalizeHandlerName(key), start, func() error {
					return cmd.Handler(c)
				})
			}
		}
		return handleContent(c, start)
	}

	photoHandler := func(c tele.Context) error {
		return handleContent(c, time.Now())
	}

	return []tg.Route{
		{Endpoint: tele.OnText, Handler: textHandler},
		{Endpoint: tele.OnPhoto, Handler: photoHandler},
	}
}
