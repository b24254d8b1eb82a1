// Package membership checks a user's standing in the broadcast channel.
package membership

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/m3rciful/postbot/core/logger"
	"github.com/m3rciful/postbot/internal/lifecycle"

	tele "gopkg.in/telebot.v4"
)

// MemberLookup is the part of *tele.Bot the gate needs.
type MemberLookup interface {
	ChatMemberOf(chat, user tele.Recipient) (*tele.ChatMember, error)
}

// Options configures a Gate.
type Options struct {
	// CacheTTL keeps answers for a short while so an album does not cost one
	// API call per photo. Zero disables caching.
	CacheTTL  time.Duration
	CacheSize int
}

// Gate answers membership queries for one channel.
type Gate struct {
	api     MemberLookup
	channel tele.Recipient
	cache   *expirable.LRU[int64, lifecycle.Membership]
}

// NewGate returns a Gate for channel.
func NewGate(api MemberLookup, channel tele.Recipient, opts Options) *Gate {
	g := &Gate{api: api, channel: channel}
	if opts.CacheTTL > 0 {
		size := opts.CacheSize
		if size <= 0 {
			size = 512
		}
		g.cache = expirable.NewLRU[int64, lifecycle.Membership](size, nil, opts.CacheTTL)
	}
	return g
}

// MembershipStatus implements lifecycle.Gate.
func (g *Gate) MembershipStatus(ctx context.Context, userID int64) (lifecycle.Membership, error) {
	if g.cache != nil {
		if m, ok := g.cache.Get(userID); ok {
			return m, nil
		}
	}

	start := time.Now()
	member, err := g.api.ChatMemberOf(g.channel, &tele.User{ID: userID})
	if err != nil {
		logger.Warn(ctx, "membership", "membership.lookup",
			slog.String("status", "fail"),
			slog.Int64("user_id", userID),
			slog.String("err", err.Error()),
			slog.Duration("duration", time.Since(start)),
		)
		return 0, fmt.Errorf("get chat member %d: %w", userID, err)
	}

	m := Classify(member)
	logger.Debug(ctx, "membership", "membership.lookup",
		slog.String("status", "ok"),
		slog.Int64("user_id", userID),
		slog.String("role", string(member.Role)),
		slog.String("membership", m.String()),
		slog.Duration("duration", time.Since(start)),
	)
	if g.cache != nil {
		g.cache.Add(userID, m)
	}
	return m, nil
}

// Classify maps a Bot API chat member to a Membership. Restricted users
// count as members only while they are still in the chat.
func Classify(member *tele.ChatMember) lifecycle.Membership {
	if member == nil {
		return lifecycle.MembershipLeft
	}
	switch member.Role {
	case tele.Kicked:
		return lifecycle.MembershipBanned
	case tele.Left:
		return lifecycle.MembershipLeft
	case tele.Restricted:
		if !member.Member {
			return lifecycle.MembershipLeft
		}
	}
	return lifecycle.MembershipMember
}
