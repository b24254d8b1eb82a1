package membership

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/m3rciful/postbot/internal/lifecycle"

	tele "gopkg.in/telebot.v4"
)

type fakeLookup struct {
	roles map[int64]*tele.ChatMember
	err   error
	calls int
	chat  string
}

func (f *fakeLookup) ChatMemberOf(chat, user tele.Recipient) (*tele.ChatMember, error) {
	f.calls++
	f.chat = chat.Recipient()
	if f.err != nil {
		return nil, f.err
	}
	var id int64
	if u, ok := user.(*tele.User); ok {
		id = u.ID
	}
	return f.roles[id], nil
}

func TestClassify(t *testing.T) {
	cases := []struct {
		member *tele.ChatMember
		want   lifecycle.Membership
	}{
		{&tele.ChatMember{Role: tele.Kicked}, lifecycle.MembershipBanned},
		{&tele.ChatMember{Role: tele.Left}, lifecycle.MembershipLeft},
		{&tele.ChatMember{Role: tele.Restricted, Member: false}, lifecycle.MembershipLeft},
		{&tele.ChatMember{Role: tele.Restricted, Member: true}, lifecycle.MembershipMember},
		{&tele.ChatMember{Role: tele.Member}, lifecycle.MembershipMember},
		{&tele.ChatMember{Role: tele.Administrator}, lifecycle.MembershipMember},
		{&tele.ChatMember{Role: tele.Creator}, lifecycle.MembershipMember},
		{nil, lifecycle.MembershipLeft},
	}
	for _, tc := range cases {
		if got := Classify(tc.member); got != tc.want {
			t.Fatalf("Classify(%+v) = %s, want %s", tc.member, got, tc.want)
		}
	}
}

func TestGateQueriesConfiguredChannel(t *testing.T) {
	api := &fakeLookup{roles: map[int64]*tele.ChatMember{7: {Role: tele.Kicked}}}
	g := NewGate(api, lifecycle.Chat("@market"), Options{})
	m, err := g.MembershipStatus(context.Background(), 7)
	if err != nil || m != lifecycle.MembershipBanned {
		t.Fatalf("MembershipStatus = %s, %v", m, err)
	}
	if api.chat != "@market" {
		t.Fatalf("queried chat %q", api.chat)
	}
}

func TestGateWrapsErrors(t *testing.T) {
	api := &fakeLookup{err: errors.New("Bad Request: chat not found (400)")}
	g := NewGate(api, lifecycle.Chat("-1001"), Options{})
	if _, err := g.MembershipStatus(context.Background(), 1); !errors.Is(err, api.err) {
		t.Fatalf("err = %v", err)
	}
}

func TestGateCachesAnswers(t *testing.T) {
	api := &fakeLookup{roles: map[int64]*tele.ChatMember{1: {Role: tele.Member}}}
	g := NewGate(api, lifecycle.Chat("-1001"), Options{CacheTTL: time.Minute})
	for i := 0; i < 3; i++ {
		if _, err := g.MembershipStatus(context.Background(), 1); err != nil {
			t.Fatalf("MembershipStatus: %v", err)
		}
	}
	if api.calls != 1 {
		t.Fatalf("calls = %d, want 1", api.calls)
	}
}
