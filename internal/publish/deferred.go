package publish

import (
	"context"
	"errors"
	"log/slog"

	"github.com/m3rciful/postbot/core/logger"
	"github.com/m3rciful/postbot/core/telegram/sender"
	"github.com/m3rciful/postbot/internal/lifecycle"
)

// Deferred hands notices to the background dispatcher so the escalation path
// never blocks on a slow API. It sends directly when the queue cannot take the job.
type Deferred struct {
	next  lifecycle.Notifier
	queue *sender.Dispatcher
}

// NewDeferred wraps next with queue.
func NewDeferred(next lifecycle.Notifier, queue *sender.Dispatcher) *Deferred {
	return &Deferred{next: next, queue: queue}
}

var _ lifecycle.Notifier = (*Deferred)(nil)

// SendText implements lifecycle.Notifier.
func (d *Deferred) SendText(ctx context.Context, to lifecycle.Chat, text string, dialect lifecycle.Dialect, buttons []lifecycle.Button) error {
	return d.enqueue(ctx, "send.text", to.Recipient(), func(ctx context.Context) error {
		return d.next.SendText(ctx, to, text, dialect, buttons)
	})
}

// AnswerAction implements lifecycle.Notifier.
func (d *Deferred) AnswerAction(ctx context.Context, callbackID string) error {
	return d.enqueue(ctx, "answer.callback", "", func(ctx context.Context) error {
		return d.next.AnswerAction(ctx, callbackID)
	})
}

func (d *Deferred) enqueue(ctx context.Context, action, target string, run func(context.Context) error) error {
	if d.queue == nil {
		return run(ctx)
	}
	detached := context.WithoutCancel(ctx)
	err := d.queue.Enqueue(ctx, action, target, func() error { return run(detached) })
	if errors.Is(err, sender.ErrQueueFull) || errors.Is(err, sender.ErrQueueClosed) {
		logger.Warn(ctx, "tg.sender", "queue.fallback",
			slog.String("action", action),
			slog.String("target", target),
			slog.String("err", err.Error()),
		)
		return run(ctx)
	}
	return err
}
