// Package lifecycle drives a staged submission from the first message to
// publication or discard.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/m3rciful/postbot/core/logger"
	"github.com/m3rciful/postbot/core/telegram/format"
	"github.com/m3rciful/postbot/internal/staging"
)

// ErrBroadcast marks a failed send to the channel. The submission is kept so
// the user can press Publish again.
var ErrBroadcast = errors.New("lifecycle: broadcast failed")

// Options wires a Controller.
type Options struct {
	Store     *staging.Store
	Gate      Gate
	Messenger Messenger
	// Notifier delivers escalation notices; Messenger is used when nil.
	Notifier Notifier
	// Journal is optional.
	Journal  Journal
	Channel  Chat
	Messages Messages
	// SkipPreview shows the full preview right after the first message
	// instead of offering a Preview button.
	SkipPreview bool
	Now         func() time.Time
}

// Controller is the submission state machine.
type Controller struct {
	store       *staging.Store
	gate        Gate
	out         Messenger
	notifier    Notifier
	journal     Journal
	channel     Chat
	msgs        Messages
	skipPreview bool
	now         func() time.Time
}

// NewController validates opts and returns a Controller.
func NewController(opts Options) (*Controller, error) {
	switch {
	case opts.Store == nil:
		return nil, errors.New("lifecycle: nil store")
	case opts.Gate == nil:
		return nil, errors.New("lifecycle: nil membership gate")
	case opts.Messenger == nil:
		return nil, errors.New("lifecycle: nil messenger")
	case opts.Channel == "":
		return nil, errors.New("lifecycle: empty channel")
	}
	c := &Controller{
		store:       opts.Store,
		gate:        opts.Gate,
		out:         opts.Messenger,
		notifier:    opts.Notifier,
		journal:     opts.Journal,
		channel:     opts.Channel,
		msgs:        opts.Messages.WithDefaults(),
		skipPreview: opts.SkipPreview,
		now:         opts.Now,
	}
	if c.notifier == nil {
		c.notifier = opts.Messenger
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c, nil
}

// Messages returns the effective texts.
func (c *Controller) Messages() Messages {
	return c.msgs
}

// State reports the stage of the user's submission; ok is false when there is none.
func (c *Controller) State(userID int64) (staging.Stage, bool) {
	v, ok := c.store.Get(userID)
	return v.Stage, ok
}

// Pending returns the number of live submissions.
func (c *Controller) Pending() int {
	return c.store.Len()
}

// Dispatch processes one event. A returned error is meant to come back as an
// UnhandledError event for the same user.
func (c *Controller) Dispatch(ctx context.Context, ev Event) error {
	switch e := ev.(type) {
	case StartCommand:
		return c.start(ctx, e)
	case ContentMessage:
		return c.content(ctx, e)
	case ActionEvent:
		return c.action(ctx, e)
	case UnhandledError:
		c.escalate(ctx, e)
		return nil
	}
	return fmt.Errorf("lifecycle: unsupported event %T", ev)
}

func (c *Controller) start(ctx context.Context, e StartCommand) error {
	c.discardSession(ctx, e.User.ID)
	return c.out.SendText(ctx, UserChat(e.ChatID), c.msgs.Greeting, DialectPlain, nil)
}

func (c *Controller) content(ctx context.Context, e ContentMessage) error {
	if e.Text == "" && e.PhotoID == "" {
		logger.Warn(ctx, "lifecycle", "content.ignored",
			slog.String("status", "skip"),
			slog.Int64("user_id", e.User.ID),
			slog.String("cause", "no text or photo"),
		)
		return nil
	}

	status, err := c.gate.MembershipStatus(ctx, e.User.ID)
	if err != nil {
		return fmt.Errorf("membership check: %w", err)
	}
	to := UserChat(e.ChatID)
	switch status {
	case MembershipBanned:
		c.logDenied(ctx, e.User.ID, status)
		return c.out.SendText(ctx, to, c.msgs.Banned, DialectPlain, nil)
	case MembershipLeft:
		c.logDenied(ctx, e.User.ID, status)
		return c.out.SendText(ctx, to, c.msgs.Left, DialectPlain, nil)
	}

	caption := format.EscapeHTML(e.Text)
	if _, exists := c.store.Get(e.User.ID); !exists && !c.fitsMessage(caption, e.User) {
		logger.Info(ctx, "lifecycle", "content.too_long",
			slog.String("status", "denied"),
			slog.Int64("user_id", e.User.ID),
			slog.Int("text_len", format.VisibleLen(caption)),
		)
		return c.out.SendText(ctx, to, c.msgs.TooLong, DialectPlain, nil)
	}

	v, created := c.store.UpsertText(e.User.ID, caption)
	if e.PhotoID != "" {
		if err := c.store.AppendMedia(e.User.ID, e.PhotoID); err != nil {
			// Cleared by a concurrent /start or discard after the upsert.
			logger.Warn(ctx, "lifecycle", "content.append",
				slog.String("status", "skip"),
				slog.Int64("user_id", e.User.ID),
				slog.String("cause", err.Error()),
			)
			return nil
		}
	}

	if !created {
		logger.Info(ctx, "lifecycle", "content.append",
			slog.String("status", "ok"),
			slog.Int64("user_id", e.User.ID),
			slog.String("stage", v.Stage.String()),
			slog.Bool("photo", e.PhotoID != ""),
			slog.Bool("text_ignored", e.Text != ""),
		)
		return nil
	}

	logger.Info(ctx, "lifecycle", "content.create",
		slog.String("status", "ok"),
		slog.Int64("user_id", e.User.ID),
		slog.Bool("photo", e.PhotoID != ""),
		slog.Int("caption_len", len(v.Caption)),
	)
	if c.skipPreview {
		return c.preview(ctx, e.User, e.ChatID)
	}
	return c.out.SendText(ctx, to, c.msgs.Preview, DialectPlain,
		[]Button{{Action: ActionPreview, Label: c.msgs.BtnPreview}})
}

func (c *Controller) logDenied(ctx context.Context, userID int64, status Membership) {
	logger.Info(ctx, "lifecycle", "content.denied",
		slog.String("status", "denied"),
		slog.Int64("user_id", userID),
		slog.String("membership", status.String()),
	)
}

func (c *Controller) action(ctx context.Context, e ActionEvent) error {
	var err error
	switch e.Action {
	case ActionPreview:
		err = c.preview(ctx, e.User, e.ChatID)
	case ActionPublish:
		err = c.publish(ctx, e)
	case ActionDiscard:
		err = c.discard(ctx, e)
	default:
		err = fmt.Errorf("%w: %d", ErrUnknownAction, e.Action)
	}
	if err != nil {
		return err
	}
	c.answer(ctx, e.CallbackID)
	return nil
}

// preview renders the post exactly as it will be broadcast, followed by the
// Publish/Discard prompt.
func (c *Controller) preview(ctx context.Context, u User, chatID int64) error {
	to := UserChat(chatID)
	v, err := c.store.MarkAwaiting(u.ID)
	if errors.Is(err, staging.ErrNotFound) {
		c.logMissing(ctx, "preview", u.ID)
		return c.out.SendText(ctx, to, c.msgs.Error, DialectPlain, nil)
	}
	if err != nil {
		return err
	}

	if err := c.sendPost(ctx, to, v, u); err != nil {
		return fmt.Errorf("send preview: %w", err)
	}
	logger.Info(ctx, "lifecycle", "preview",
		slog.String("status", "ok"),
		slog.Int64("user_id", u.ID),
		slog.Int("media", len(v.Media)),
	)
	return c.out.SendText(ctx, to, c.msgs.Confirm, DialectPlain, []Button{
		{Action: ActionPublish, Label: c.msgs.BtnPublish},
		{Action: ActionDiscard, Label: c.msgs.BtnDiscard},
	})
}

func (c *Controller) publish(ctx context.Context, e ActionEvent) error {
	v, ok := c.store.Get(e.User.ID)
	if !ok {
		c.logMissing(ctx, "publish", e.User.ID)
		return c.out.SendText(ctx, UserChat(e.ChatID), c.msgs.Error, DialectPlain, nil)
	}

	start := c.now()
	if err := c.sendPost(ctx, c.channel, v, e.User); err != nil {
		return fmt.Errorf("%w: %w", ErrBroadcast, err)
	}
	c.discardSession(ctx, e.User.ID)

	logger.Info(ctx, "lifecycle", "publish",
		slog.String("status", "ok"),
		slog.Int64("user_id", e.User.ID),
		slog.String("channel", string(c.channel)),
		slog.Int("media", len(v.Media)),
		slog.Duration("duration", c.now().Sub(start)),
	)
	c.record(ctx, v, e.User)
	return c.reply(ctx, e, c.msgs.Success)
}

func (c *Controller) discard(ctx context.Context, e ActionEvent) error {
	c.discardSession(ctx, e.User.ID)
	logger.Info(ctx, "lifecycle", "discard",
		slog.String("status", "ok"),
		slog.Int64("user_id", e.User.ID),
	)
	return c.reply(ctx, e, c.msgs.Aborted)
}

// reply edits the message that carried the buttons, or sends a new message
// when the action came from a command.
func (c *Controller) reply(ctx context.Context, e ActionEvent, text string) error {
	if e.Message != nil {
		return c.out.EditMessageText(ctx, *e.Message, text)
	}
	return c.out.SendText(ctx, UserChat(e.ChatID), text, DialectPlain, nil)
}

// sendPost renders the post to one chat. A caption too long for a photo
// follows the photos as its own message.
func (c *Controller) sendPost(ctx context.Context, to Chat, v staging.View, author User) error {
	post := ComposePost(v.Caption, c.msgs.Attribution(author))
	if !v.HasMedia() {
		return c.out.SendText(ctx, to, post, DialectHTML, nil)
	}
	if format.VisibleLen(post) <= format.MaxCaptionLen {
		return c.out.SendMediaGroup(ctx, to, post, v.Media, DialectHTML)
	}

	logger.Debug(ctx, "lifecycle", "post.split",
		slog.Int64("user_id", author.ID),
		slog.Int("caption_len", format.VisibleLen(post)),
	)
	if err := c.out.SendMediaGroup(ctx, to, "", v.Media, DialectHTML); err != nil {
		return err
	}
	return c.out.SendText(ctx, to, post, DialectHTML, nil)
}

// fitsMessage reports whether caption plus the author line fits one text message.
func (c *Controller) fitsMessage(caption string, author User) bool {
	return format.VisibleLen(ComposePost(caption, c.msgs.Attribution(author))) <= format.MaxTextLen
}

func (c *Controller) record(ctx context.Context, v staging.View, author User) {
	if c.journal == nil {
		return
	}
	bestEffort(ctx, "journal.record", func() error {
		return c.journal.RecordPublication(ctx, PublicationRecord{
			OwnerID:     author.ID,
			Username:    author.Username,
			MediaCount:  len(v.Media),
			CaptionLen:  len(v.Caption),
			Channel:     string(c.channel),
			PublishedAt: c.now(),
		})
	})
}

func (c *Controller) answer(ctx context.Context, callbackID string) {
	if callbackID == "" {
		return
	}
	if err := c.out.AnswerAction(ctx, callbackID); err != nil {
		logger.Warn(ctx, "lifecycle", "action.answer",
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)
	}
}

// discardSession clears the user's submission; a missing one is fine.
func (c *Controller) discardSession(ctx context.Context, userID int64) {
	_ = c.store.Remove(ctx, userID)
}

func (c *Controller) logMissing(ctx context.Context, action string, userID int64) {
	logger.Warn(ctx, "lifecycle", action,
		slog.String("status", "skip"),
		slog.Int64("user_id", userID),
		slog.String("cause", "no submission"),
	)
}
