// Package helpers carries request-scoped logging context through tele.Context.
package helpers

import (
	"context"

	"github.com/m3rciful/postbot/core/logger"

	tele "gopkg.in/telebot.v4"
)

const (
	ctxKey = "logger_ctx"
	ridKey = "rid"
)

// Origin holds the identifiers an update is logged under.
type Origin struct {
	UpdateID int
	ChatID   int64
	UserID   int64
	ChatType tele.ChatType
}

// OriginOf extracts update, chat and user ids from c. A callback on a message
// that is too old to carry its chat is attributed to the sender's private chat.
func OriginOf(c tele.Context) Origin {
	o := Origin{UpdateID: c.Update().ID}
	if u := c.Sender(); u != nil {
		o.UserID = u.ID
	}
	if chat := c.Chat(); chat != nil {
		o.ChatID, o.ChatType = chat.ID, chat.Type
	} else if c.Callback() != nil && o.UserID != 0 {
		o.ChatID, o.ChatType = o.UserID, tele.ChatPrivate
	}
	return o
}

// NewContext builds a fresh logging context for c under rid and stores it.
// An empty rid is derived from the update origin.
func NewContext(c tele.Context, rid string) context.Context {
	o := OriginOf(c)
	if rid == "" {
		rid = logger.BuildRID(o.UpdateID, o.ChatID, o.UserID)
	}
	c.Set(ridKey, rid)

	ctx := logger.WithRID(logger.Background(), rid)
	ctx = logger.WithUpdateMeta(ctx, o.UpdateID, o.UserID, o.ChatID)
	ctx = logger.WithLogger(ctx, logger.Component("tg"))
	StoreContext(c, ctx)
	return ctx
}

// StoreContext replaces the context kept on c.
func StoreContext(c tele.Context, ctx context.Context) {
	if c != nil && ctx != nil {
		c.Set(ctxKey, ctx)
	}
}

// ContextFrom returns the context stored on c, if any.
func ContextFrom(c tele.Context) (context.Context, bool) {
	if c == nil {
		return nil, false
	}
	ctx, ok := c.Get(ctxKey).(context.Context)
	return ctx, ok
}

// BuildContext returns the stored context or creates one. Handlers that run
// without the logging middleware (tests, OnError) still get rid and metadata.
func BuildContext(c tele.Context) context.Context {
	if ctx, ok := ContextFrom(c); ok {
		return ctx
	}
	rid, _ := c.Get(ridKey).(string)
	return NewContext(c, rid)
}

// WithHandler tags the stored context with the handler name.
func WithHandler(c tele.Context, handler string) context.Context {
	ctx := BuildContext(c)
	if handler != "" {
		ctx = logger.WithHandler(ctx, handler)
		StoreContext(c, ctx)
	}
	return ctx
}
