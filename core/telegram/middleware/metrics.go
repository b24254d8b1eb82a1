package middleware

import (
	"context"
	"sync/atomic"

	tghelpers "github.com/m3rciful/postbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// Counters tracks outbound messages produced while handling one update.
type Counters struct {
	messages atomic.Int32
	keyboard atomic.Bool
}

type countersKey struct{}

// WithCounters attaches counters to ctx.
func WithCounters(ctx context.Context, cnt *Counters) context.Context {
	return context.WithValue(ctx, countersKey{}, cnt)
}

// CountersFrom returns the counters stored in ctx, if any.
func CountersFrom(ctx context.Context) *Counters {
	if ctx == nil {
		return nil
	}
	cnt, _ := ctx.Value(countersKey{}).(*Counters)
	return cnt
}

// RecordSent bumps the counters stored in ctx. Senders that bypass tele.Context call it directly.
func RecordSent(ctx context.Context, withKeyboard bool) {
	CountersFrom(ctx).inc(withKeyboard)
}

func (cnt *Counters) inc(withKeyboard bool) {
	if cnt == nil {
		return
	}
	cnt.messages.Add(1)
	if withKeyboard {
		cnt.keyboard.Store(true)
	}
}

// metricsContext wraps tele.Context to count sent messages and detect keyboard usage.
type metricsContext struct {
	tele.Context
	cnt *Counters
}

func hasKeyboard(opts []interface{}) bool {
	for _, o := range opts {
		switch v := o.(type) {
		case *tele.SendOptions:
			if v != nil && v.ReplyMarkup != nil {
				return true
			}
		case *tele.ReplyMarkup:
			if v != nil {
				return true
			}
		}
	}
	return false
}

// Send proxies tele.Context.Send while updating message counters.
func (m metricsContext) Send(what interface{}, opts ...interface{}) error {
	err := m.Context.Send(what, opts...)
	if err == nil {
		m.cnt.inc(hasKeyboard(opts))
	}
	return err
}

// Reply proxies tele.Context.Reply while updating message counters.
func (m metricsContext) Reply(what interface{}, opts ...interface{}) error {
	err := m.Context.Reply(what, opts...)
	if err == nil {
		m.cnt.inc(hasKeyboard(opts))
	}
	return err
}

// Edit proxies tele.Context.Edit while updating message counters.
func (m metricsContext) Edit(what interface{}, opts ...interface{}) error {
	err := m.Context.Edit(what, opts...)
	if err == nil {
		m.cnt.inc(hasKeyboard(opts))
	}
	return err
}

// MessageMetricsMiddleware instruments the update with message counters, reachable both
// from tele.Context and from the stored handler context.
func MessageMetricsMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		cnt := &Counters{}
		c.Set("metrics", cnt)
		tghelpers.StoreContext(c, WithCounters(tghelpers.BuildContext(c), cnt))
		return next(metricsContext{Context: c, cnt: cnt})
	}
}

// GetCounters reads message count and keyboard presence flags from context.
func GetCounters(c tele.Context) (int, bool) {
	cnt, _ := c.Get("metrics").(*Counters)
	if cnt == nil {
		return 0, false
	}
	return int(cnt.messages.Load()), cnt.keyboard.Load()
}
