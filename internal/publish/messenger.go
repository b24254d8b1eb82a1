// Package publish delivers lifecycle output through the Telegram Bot API.
package publish

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/m3rciful/postbot/core/logger"
	"github.com/m3rciful/postbot/core/telegram/keyboard"
	"github.com/m3rciful/postbot/core/telegram/middleware"
	"github.com/m3rciful/postbot/core/telegram/sender"
	"github.com/m3rciful/postbot/internal/lifecycle"

	tele "gopkg.in/telebot.v4"
)

// albumLimit is the Bot API cap on items in one media group.
const albumLimit = 10

// API is the part of *tele.Bot the messenger needs.
type API interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
	SendAlbum(to tele.Recipient, a tele.Album, opts ...interface{}) ([]tele.Message, error)
	Edit(msg tele.Editable, what interface{}, opts ...interface{}) (*tele.Message, error)
	Respond(c *tele.Callback, resp ...*tele.CallbackResponse) error
}

// Messenger implements lifecycle.Messenger on top of telebot.
type Messenger struct {
	api API
}

// NewMessenger wraps api.
func NewMessenger(api API) *Messenger {
	return &Messenger{api: api}
}

var _ lifecycle.Messenger = (*Messenger)(nil)

// SendText sends text with an optional inline keyboard, two buttons per row.
func (m *Messenger) SendText(ctx context.Context, to lifecycle.Chat, text string, dialect lifecycle.Dialect, buttons []lifecycle.Button) error {
	opts := &tele.SendOptions{ParseMode: parseMode(dialect)}
	if len(buttons) > 0 {
		opts.ReplyMarkup = Keyboard(buttons)
	}
	start := time.Now()
	_, err := m.api.Send(to, text, opts)
	return m.done(ctx, "sendMessage", to, len(buttons) > 0, start, err)
}

// SendMediaGroup sends photos in albums of up to ten. The caption goes on the
// first photo so it shows under the whole post; a single photo is sent alone.
func (m *Messenger) SendMediaGroup(ctx context.Context, to lifecycle.Chat, caption string, media []string, dialect lifecycle.Dialect) error {
	opts := &tele.SendOptions{ParseMode: parseMode(dialect)}
	start := time.Now()

	if len(media) == 1 {
		_, err := m.api.Send(to, &tele.Photo{File: tele.File{FileID: media[0]}, Caption: caption}, opts)
		return m.done(ctx, "sendPhoto", to, false, start, err)
	}

	for i, chunk := range Albums(media, caption) {
		if _, err := m.api.SendAlbum(to, chunk, opts); err != nil {
			logger.Warn(ctx, "tg.sender", "album.partial",
				slog.String("status", "fail"),
				slog.String("target", to.Recipient()),
				slog.Int("album", i+1),
			)
			return m.done(ctx, "sendMediaGroup", to, false, start, err)
		}
	}
	return m.done(ctx, "sendMediaGroup", to, false, start, nil)
}

// EditMessageText replaces the text of a message sent earlier and drops its keyboard.
func (m *Messenger) EditMessageText(ctx context.Context, ref lifecycle.MessageRef, text string) error {
	start := time.Now()
	msg := tele.StoredMessage{MessageID: strconv.Itoa(ref.MessageID), ChatID: ref.ChatID}
	_, err := m.api.Edit(msg, text)
	return m.done(ctx, "editMessageText", lifecycle.UserChat(ref.ChatID), false, start, err)
}

// AnswerAction closes the loading state of a pressed inline button.
func (m *Messenger) AnswerAction(ctx context.Context, callbackID string) error {
	err := m.api.Respond(&tele.Callback{ID: callbackID})
	if err != nil {
		logger.Warn(ctx, "tg.sender", "send.fail",
			slog.String("action", "answerCallbackQuery"),
			slog.String("error", sender.SanitizeError(err)),
			slog.String("error_kind", sender.ClassifyError(err)),
		)
	}
	return err
}

func (m *Messenger) done(ctx context.Context, action string, to lifecycle.Chat, kb bool, start time.Time, err error) error {
	attrs := []slog.Attr{
		slog.String("action", action),
		slog.String("target", to.Recipient()),
		slog.Duration("duration", time.Since(start)),
	}
	if err != nil {
		attrs = append(attrs,
			slog.String("error", sender.SanitizeError(err)),
			slog.String("error_kind", sender.ClassifyError(err)),
		)
		logger.Warn(ctx, "tg.sender", "send.fail", attrs...)
		return err
	}
	middleware.RecordSent(ctx, kb)
	logger.Debug(ctx, "tg.sender", "send.success", attrs...)
	return nil
}

// Albums splits media into Bot API sized groups with caption on the first photo.
func Albums(media []string, caption string) []tele.Album {
	var out []tele.Album
	for i := 0; i < len(media); i += albumLimit {
		var album tele.Album
		for j, id := range media[i:min(i+albumLimit, len(media))] {
			p := &tele.Photo{File: tele.File{FileID: id}}
			if i == 0 && j == 0 {
				p.Caption = caption
			}
			album = append(album, p)
		}
		out = append(out, album)
	}
	return out
}

// Keyboard renders action buttons as an inline keyboard keyed by action name.
func Keyboard(buttons []lifecycle.Button) *tele.ReplyMarkup {
	btns := make([]keyboard.Button, 0, len(buttons))
	for _, b := range buttons {
		btns = append(btns, keyboard.Button{Label: b.Label, Unique: b.Action.String()})
	}
	return keyboard.Grid(btns, 2)
}

func parseMode(d lifecycle.Dialect) tele.ParseMode {
	if d == lifecycle.DialectHTML {
		return tele.ModeHTML
	}
	return tele.ModeDefault
}
