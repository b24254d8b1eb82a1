package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/m3rciful/postbot/core/logger"
)

// escalate handles an update that failed. The error is logged in full, then
// each cleanup step runs on its own: a failing step never stops the next one
// and never replaces the original error.
func (c *Controller) escalate(ctx context.Context, e UnhandledError) {
	attrs := []slog.Attr{slog.String("status", "fail")}
	if e.User != nil {
		attrs = append(attrs, slog.Int64("user_id", e.User.ID))
	}
	if e.Err != nil {
		attrs = append(attrs, slog.String("err", e.Err.Error()))
	}
	logger.Error(ctx, "lifecycle", "update.unhandled", attrs...)

	if e.User == nil {
		return
	}
	userID := e.User.ID

	notice := c.msgs.Error
	if errors.Is(e.Err, ErrBroadcast) {
		notice = c.msgs.PublishFailed
		logger.Info(ctx, "lifecycle", "escalate.keep",
			slog.String("status", "skip"),
			slog.Int64("user_id", userID),
			slog.String("cause", "broadcast failed, submission kept for retry"),
		)
	} else {
		bestEffort(ctx, "escalate.remove", func() error {
			c.discardSession(ctx, userID)
			return nil
		})
	}
	if e.CallbackID != "" {
		bestEffort(ctx, "escalate.answer", func() error {
			return c.notifier.AnswerAction(ctx, e.CallbackID)
		})
	}
	if e.ChatID != 0 {
		bestEffort(ctx, "escalate.notify", func() error {
			return c.notifier.SendText(ctx, UserChat(e.ChatID), notice, DialectPlain, nil)
		})
	}
}

// bestEffort runs step and logs its failure or panic instead of returning it.
func bestEffort(ctx context.Context, step string, fn func() error) {
	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic: %v\n%s", r, debug.Stack())
			}
		}()
		return fn()
	}()
	if err != nil {
		logger.Warn(ctx, "lifecycle", step,
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)
	}
}
