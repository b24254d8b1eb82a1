package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/m3rciful/postbot/core/logger"
	tghelpers "github.com/m3rciful/postbot/core/telegram/helpers"
	"github.com/m3rciful/postbot/internal/lifecycle"

	tele "gopkg.in/telebot.v4"
)

const (
	statsWindow = 24 * time.Hour
	recentLimit = 5
)

func (a *App) onStart(c tele.Context) error {
	u, chatID, ok := origin(c)
	if !ok {
		return nil
	}
	return a.ctl.Dispatch(tghelpers.BuildContext(c), lifecycle.StartCommand{User: u, ChatID: chatID})
}

func (a *App) onCancel(c tele.Context) error {
	u, chatID, ok := origin(c)
	if !ok {
		return nil
	}
	return a.ctl.Dispatch(tghelpers.BuildContext(c), lifecycle.ActionEvent{
		User:   u,
		ChatID: chatID,
		Action: lifecycle.ActionDiscard,
	})
}

func (a *App) onAction(action lifecycle.Action) tele.HandlerFunc {
	return func(c tele.Context) error {
		u, chatID, ok := origin(c)
		if !ok {
			return nil
		}
		ev := lifecycle.ActionEvent{User: u, ChatID: chatID, Action: action}
		if cb := c.Callback(); cb != nil {
			ev.CallbackID = cb.ID
			if msg := cb.Message; msg != nil {
				ev.Message = &lifecycle.MessageRef{ChatID: chatID, MessageID: msg.ID}
				if msg.Chat != nil {
					ev.Message.ChatID = msg.Chat.ID
				}
			}
		}
		return a.ctl.Dispatch(tghelpers.BuildContext(c), ev)
	}
}

func (a *App) onContent(c tele.Context) error {
	msg := c.Message()
	if msg == nil || msg.Sender == nil {
		return nil
	}
	ctx := tghelpers.BuildContext(c)
	if msg.Chat == nil || msg.Chat.Type != tele.ChatPrivate {
		logger.Debug(ctx, "app", "content.skip", slog.String("cause", "not_private"))
		return nil
	}

	ev := lifecycle.ContentMessage{
		User:   toUser(msg.Sender),
		ChatID: msg.Chat.ID,
		Text:   msg.Text,
	}
	if ev.Text == "" {
		ev.Text = msg.Caption
	}
	if msg.Photo != nil {
		ev.PhotoID = msg.Photo.FileID
	}
	return a.ctl.Dispatch(ctx, ev)
}

func (a *App) onPending(c tele.Context) error {
	return c.Send(a.pendingReport(tghelpers.BuildContext(c)))
}

func (a *App) pendingReport(ctx context.Context) string {
	text := fmt.Sprintf("Staged submissions: %d", a.ctl.Pending())
	if a.stats == nil {
		return text
	}
	n, err := a.stats.CountSince(ctx, time.Now().Add(-statsWindow))
	if err != nil {
		logger.Warn(ctx, "app", "stats.failed", slog.String("err", err.Error()))
		return text
	}
	return text + fmt.Sprintf("\nPublished in the last 24h: %d", n)
}

func (a *App) onMine(c tele.Context) error {
	u, _, ok := origin(c)
	if !ok {
		return nil
	}
	return c.Send(a.mineReport(tghelpers.BuildContext(c), u.ID))
}

// mineReport describes the user's draft and, with the journal on, their last posts.
func (a *App) mineReport(ctx context.Context, userID int64) string {
	var b strings.Builder
	if stage, ok := a.ctl.State(userID); ok {
		fmt.Fprintf(&b, "Your post in progress: %s", strings.ReplaceAll(stage.String(), "_", " "))
	} else {
		b.WriteString("You have no post in progress.")
	}
	if a.stats == nil {
		return b.String()
	}

	pubs, err := a.stats.LatestByOwner(ctx, userID, recentLimit)
	if err != nil {
		logger.Warn(ctx, "app", "stats.failed", slog.String("err", err.Error()))
		return b.String()
	}
	if len(pubs) == 0 {
		b.WriteString("\nNothing published yet.")
		return b.String()
	}
	b.WriteString("\nRecently published:")
	for _, p := range pubs {
		fmt.Fprintf(&b, "\n%s, %d photo(s)", p.PublishedAt.UTC().Format("2006-01-02 15:04"), p.MediaCount)
	}
	return b.String()
}

// onError turns a failed update into an escalation for its sender.
func (a *App) onError(err error, c tele.Context) {
	ev := lifecycle.UnhandledError{Err: err}
	ctx := context.Background()
	if c != nil {
		ctx = tghelpers.BuildContext(c)
		if u, chatID, ok := origin(c); ok {
			ev.User = &u
			ev.ChatID = chatID
		}
		if cb := c.Callback(); cb != nil {
			ev.CallbackID = cb.ID
		}
	}
	if ev.Err == nil {
		ev.Err = errors.New("unknown error")
	}
	if dErr := a.ctl.Dispatch(ctx, ev); dErr != nil {
		logger.Error(ctx, "app", "escalate.failed", slog.String("err", dErr.Error()))
	}
}

// origin returns the sender and the chat to answer in. Callbacks from old
// messages may lack a chat; the sender's private chat is used then.
func origin(c tele.Context) (lifecycle.User, int64, bool) {
	sender := c.Sender()
	if sender == nil {
		return lifecycle.User{}, 0, false
	}
	chatID := sender.ID
	if chat := c.Chat(); chat != nil {
		chatID = chat.ID
	}
	return toUser(sender), chatID, true
}

func toUser(u *tele.User) lifecycle.User {
	return lifecycle.User{ID: u.ID, Username: u.Username}
}
