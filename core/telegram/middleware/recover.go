package middleware

import (
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/m3rciful/postbot/core/logger"
	tghelpers "github.com/m3rciful/postbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// PanicError carries a recovered handler panic so it can travel the regular error path.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("handler panic: %v", e.Value)
}

// RecoverMiddleware turns a handler panic into an error returned to the bot,
// which hands it to the configured OnError hook. The stack is logged here only.
func RecoverMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) (err error) {
		defer func() {
			if r := recover(); r != nil {
				ctx := tghelpers.BuildContext(c)
				logger.TG.LogAttrs(ctx, slog.LevelError, "panic recovered",
					slog.String("event", "tg.panic"),
					slog.String("rid", logger.RIDFrom(ctx)),
					slog.Any("err", r),
					slog.String("stack", string(debug.Stack())),
				)
				err = &PanicError{Value: r}
			}
		}()
		return next(c)
	}
}
